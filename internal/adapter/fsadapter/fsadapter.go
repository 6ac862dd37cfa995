package fsadapter

import (
	"bytes"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jgivc/fileregistry/internal/config"
	"github.com/jgivc/fileregistry/internal/entity"
	"github.com/spf13/afero"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"go.abhg.dev/goldmark/frontmatter"
)

const (
	maxFiles              = 100
	mimeTypeCheckPartSize = 512
)

// Frontmatter is the optional header of the description file.
type Frontmatter struct {
	Types map[string]string `yaml:"types"`
	Skip  []string          `yaml:"skip"`
}

type fsAdapter struct {
	fs        afero.Fs
	cfg       *config.IngestConfig
	skipFiles map[string]struct{}
	md        goldmark.Markdown

	log *slog.Logger
}

func NewFSAdapter(cfg *config.IngestConfig, log *slog.Logger) *fsAdapter {
	return NewFSAdapterWithFS(afero.NewOsFs(), cfg, log)
}

func NewFSAdapterWithFS(fs afero.Fs, cfg *config.IngestConfig, log *slog.Logger) *fsAdapter {
	skipFilesMap := make(map[string]struct{})
	if cfg.DescFileName != "" {
		skipFilesMap[cfg.DescFileName] = struct{}{}
	}
	for _, file := range cfg.SkipFiles {
		skipFilesMap[file] = struct{}{}
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			&frontmatter.Extender{},
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)

	return &fsAdapter{
		fs:        fs,
		cfg:       cfg,
		skipFiles: skipFilesMap,
		md:        md,
		log:       log.With(slog.String("item", "FSAdapter")),
	}
}

/*
ToSource reads the regular files of folderPath in name order.
If the folder contains cfg.DescFileName, its frontmatter may override declared types
and skip more files, and its body is rendered to HTML as the source description.
*/
func (a *fsAdapter) ToSource(folderPath string) (*entity.Source, error) {
	if strings.Contains(folderPath, "..") {
		return nil, fmt.Errorf("invalid folder path")
	}

	source := &entity.Source{
		Path: folderPath,
	}

	var fm *Frontmatter
	if descFileName := filepath.Join(folderPath, a.cfg.DescFileName); a.cfg.DescFileName != "" && a.fileExists(descFileName) {
		var err error
		fm, source.Description, err = a.parseDescription(descFileName)
		if err != nil {
			return nil, fmt.Errorf("cannot parse description: %w", err)
		}
	}

	files, err := a.readFiles(folderPath, fm)
	if err != nil {
		return nil, fmt.Errorf("cannot get folder files: %w", err)
	}

	if len(files) < 1 {
		return nil, fmt.Errorf("folder have no files")
	}

	source.Files = files

	return source, nil
}

func (a *fsAdapter) parseDescription(fileName string) (*Frontmatter, string, error) {
	content, err := afero.ReadFile(a.fs, fileName)
	if err != nil {
		return nil, "", fmt.Errorf("cannot read md file: %w", err)
	}

	var buf bytes.Buffer

	ctx := parser.NewContext()
	if err := a.md.Convert(content, &buf, parser.WithContext(ctx)); err != nil {
		return nil, "", fmt.Errorf("cannot convert markdown: %w", err)
	}

	data := frontmatter.Get(ctx)
	if data == nil {
		return nil, buf.String(), nil
	}

	var fm Frontmatter
	if err := data.Decode(&fm); err != nil {
		return nil, "", fmt.Errorf("cannot decode frontmatter: %w", err)
	}

	return &fm, buf.String(), nil
}

func (a *fsAdapter) readFiles(folderPath string, fm *Frontmatter) ([]*entity.File, error) {
	entries, err := afero.ReadDir(a.fs, folderPath)
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	skip := make(map[string]struct{}, len(a.skipFiles))
	for name := range a.skipFiles {
		skip[name] = struct{}{}
	}
	if fm != nil {
		for _, name := range fm.Skip {
			skip[name] = struct{}{}
		}
	}

	var files []*entity.File
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(folderPath, entry.Name())

		if _, exists := skip[entry.Name()]; exists {
			a.log.Info("Skip file", slog.String("path", path))

			continue
		}

		content, err := afero.ReadFile(a.fs, path)
		if err != nil {
			a.log.Error("Cannot read file", slog.String("path", path), slog.Any("error", err))

			continue
		}

		files = append(files, &entity.File{
			Name:    entry.Name(),
			Type:    a.getType(entry.Name(), content, fm),
			Content: content,
			Size:    int64(len(content)),
		})

		if len(files) >= maxFiles {
			a.log.Warn("Too many files, rest are skipped", slog.String("path", folderPath), slog.Int("max_files", maxFiles))

			break
		}
	}

	return files, nil
}

func (a *fsAdapter) getType(name string, content []byte, fm *Frontmatter) string {
	if fm != nil {
		if t, exists := fm.Types[name]; exists {
			return t
		}
	}

	t := TypeByName(name)
	if t != TypeUnknown || !a.cfg.DetectMIME {
		return t
	}

	return getMimeType(name, content)
}

func getMimeType(name string, content []byte) string {
	if ext := filepath.Ext(name); ext != "" {
		if mimeType := mime.TypeByExtension(ext); mimeType != "" {
			return mimeType
		}
	}

	if len(content) > mimeTypeCheckPartSize {
		content = content[:mimeTypeCheckPartSize]
	}

	return http.DetectContentType(content)
}

func (a *fsAdapter) fileExists(path string) bool {
	if path == "" {
		return false
	}

	_, err := a.fs.Stat(path)
	if err == nil {
		return true
	}

	if os.IsNotExist(err) {
		return false
	}

	a.log.Error("Cannot stat file", slog.String("path", path), slog.Any("error", err))

	return false
}
