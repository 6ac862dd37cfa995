package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jgivc/fileregistry/internal/adapter/fsadapter"
	"github.com/jgivc/fileregistry/internal/adapter/tpladapter"
	"github.com/jgivc/fileregistry/internal/config"
	httphandler "github.com/jgivc/fileregistry/internal/handler/http"
	"github.com/jgivc/fileregistry/internal/registry"
	"github.com/jgivc/fileregistry/internal/repository/artifact"
	rsnapshot "github.com/jgivc/fileregistry/internal/repository/snapshot"
	"github.com/jgivc/fileregistry/internal/service/export"
	"github.com/jgivc/fileregistry/internal/service/ingest"
	ssnapshot "github.com/jgivc/fileregistry/internal/service/snapshot"
	"github.com/jgivc/fileregistry/internal/service/view"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
)

const (
	ingestTimeout   = 30 * time.Second
	exportTimeout   = 30 * time.Second
	shutdownTimeout = 5 * time.Second
)

type App struct {
	cfgPath  string
	cfg      *config.Config
	srv      *http.Server
	reg      *registry.FileRegistry
	ingester *ingest.IngestService
	exporter *export.ExportService
	log      *slog.Logger
}

func New(cfgPath string) *App {
	return &App{
		cfgPath: cfgPath,
	}
}

func (a *App) Start() {
	a.cfg = config.MustLoad(a.cfgPath)
	log := NewLogger(a.cfg.LogLevel)
	a.log = log

	tpl, err := tpladapter.New(a.cfg.TemplateFileName)
	if err != nil {
		panic(err)
	}

	a.reg = registry.New(registry.WithTemplate(tpl), registry.WithLogger(log))

	fsa := fsadapter.NewFSAdapter(&a.cfg.IngestConfig, log)
	a.ingester = ingest.NewIngestService(fsa, a.reg, log)

	sinks := []export.Sink{
		artifact.NewFSSink(afero.NewOsFs(), a.cfg.ExportConfig.OutputDir, log),
	}

	if a.cfg.ExportConfig.S3.Enabled() {
		s3, err := artifact.NewS3Sink(&a.cfg.ExportConfig.S3, log)
		if err != nil {
			panic(err)
		}

		sinks = append(sinks, s3)
	}

	var snapshotRepo ssnapshot.SnapshotRepository
	if a.cfg.RedisURL != "" {
		opt, err := redis.ParseURL(a.cfg.RedisURL)
		if err != nil {
			panic(err)
		}

		rdb := redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			panic(err)
		}

		repo, err := rsnapshot.NewSnapshotRepository(rdb, log)
		if err != nil {
			panic(err)
		}

		sinks = append(sinks, repo)
		snapshotRepo = repo
	}

	a.exporter = export.NewExportService(a.reg, a.ingester, sinks, log)

	vs, err := view.NewViewService(a.reg, a.cfg.HandlerConfig.CacheSize, log)
	if err != nil {
		panic(err)
	}

	snapshots := ssnapshot.NewSnapshotService(snapshotRepo, log)

	mux := http.NewServeMux()
	mux.Handle("POST /files/{name}", httphandler.NewAddHandler(a.reg, a.cfg.HandlerConfig.MaxUploadBytes, fsadapter.TypeByName, log))
	mux.Handle("GET /files/count", httphandler.NewCountHandler(a.reg, log))
	mux.Handle("GET /files/{index}", httphandler.NewDescribeHandler(a.reg, log))
	mux.Handle("DELETE /files", httphandler.NewClearHandler(a.reg, log))
	mux.Handle("GET /inspect/{name}", httphandler.NewInspectHandler(a.reg, log))
	mux.Handle("GET /total", httphandler.NewTotalSizeHandler(a.reg, log))
	mux.Handle("GET /manifest", httphandler.NewManifestHandler(vs, log))
	mux.Handle("GET /index.html", httphandler.NewIndexHandler(vs, log))
	mux.Handle("POST /export", httphandler.NewExportHandler(a.exporter, log))

	mux.Handle("GET /published/manifest", httphandler.NewPublishedManifestHandler(snapshots, log))
	mux.Handle("GET /published/index.html", httphandler.NewPublishedIndexHandler(snapshots, log))
	mux.Handle("GET /published/description.html", httphandler.NewPublishedDescriptionHandler(snapshots, log))
	mux.Handle("GET /published/files/{index}", httphandler.NewPublishedDescriptorHandler(snapshots, log))
	mux.Handle("GET /published/info", httphandler.NewPublishedInfoHandler(snapshots, log))

	a.srv = &http.Server{
		Addr:    a.cfg.Listen,
		Handler: mux,
	}

	go func() {
		log.Info("Start listen", slog.String("addr", a.cfg.Listen))

		if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Could not serve", slog.String("listen_addr", a.cfg.Listen), slog.Any("error", err))
			os.Exit(2)
		}
	}()
}

// Ingest adds the files of the work dir to the registry.
func (a *App) Ingest() {
	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()

	fmt.Println("Ingesting...")

	infos, err := a.ingester.Ingest(ctx, a.cfg.IngestConfig.WorkDir)
	if err != nil {
		fmt.Printf("Cannot ingest: %s\n", err)

		return
	}

	for i, info := range infos {
		fmt.Printf("%d. %s (%s, %s)\n", i+1, info.Name, info.Type, humanize.IBytes(uint64(info.Size)))
	}

	fmt.Printf("Done. Files: %d, total: %s\n", a.reg.Count(), humanize.IBytes(uint64(a.reg.TotalSize())))
}

func (a *App) Export() {
	ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
	defer cancel()

	snapshot, err := a.exporter.Export(ctx)
	if err != nil {
		a.log.Error("Cannot export", slog.Any("error", err))

		return
	}

	a.log.Info("Exported", slog.String("id", snapshot.ID), slog.Int("count", len(snapshot.Descriptors)))
}

func (a *App) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.srv.Shutdown(ctx); err != nil {
		a.log.Error("Cannot shutdown server", slog.Any("error", err))
	}
}

func NewLogger(level string) *slog.Logger {
	lo := &slog.HandlerOptions{}
	switch level {
	case config.LogLevelInfo:
		lo.Level = slog.LevelInfo
	case config.LogLevelWarn:
		lo.Level = slog.LevelWarn
	case config.LogLevelError:
		lo.Level = slog.LevelError
	case config.LogLevelDebug:
		lo.Level = slog.LevelDebug
	default:
		panic("unknown log level")
	}

	return slog.New(slog.NewTextHandler(os.Stderr, lo))
}
