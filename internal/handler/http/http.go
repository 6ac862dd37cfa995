package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jgivc/fileregistry/internal/common"
	"github.com/jgivc/fileregistry/internal/entity"
	"github.com/jgivc/fileregistry/internal/service/view"
	"github.com/jgivc/fileregistry/internal/util"
)

const (
	contentTypeJSON = "application/json"
	contentTypeHTML = "text/html; charset=utf-8"
)

type RegistryService interface {
	Add(name, fileType string, content []byte)
	Count() int
	Describe(index int) string
	Inspect(name string) string
	TotalSize() int64
	Clear()
}

type ViewService interface {
	Manifest() view.Rendered
	HTMLIndex() view.Rendered
}

type ExportService interface {
	Export(ctx context.Context) (*entity.Snapshot, error)
}

type SnapshotService interface {
	GetManifest(ctx context.Context) (string, error)
	GetIndex(ctx context.Context) (string, error)
	GetDescription(ctx context.Context) (string, error)
	GetDescriptor(ctx context.Context, index int) (string, error)
	Info(ctx context.Context) (*entity.SnapshotInfo, error)
}

// TypeResolver returns the declared type for a file name when the client gives none.
type TypeResolver func(name string) string

func NewAddHandler(srv RegistryService, maxBytes int64, typeOf TypeResolver, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "AddHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")

		content, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				http.Error(w, "File is too large", http.StatusRequestEntityTooLarge)

				return
			}

			http.Error(w, "Cannot read file", http.StatusBadRequest)

			return
		}

		fileType := r.URL.Query().Get("type")
		if fileType == "" && typeOf != nil {
			fileType = typeOf(name)
		}

		srv.Add(name, fileType, content)
		log.Info("Add file", slog.String("name", name), slog.String("type", fileType), slog.Int("size", len(content)))

		writeJSONStatus(w, http.StatusCreated, entity.FileInfo{Name: name, Type: fileType, Size: int64(len(content))}, log)
	}
}

func NewCountHandler(srv RegistryService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "CountHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]int{"count": srv.Count()}, log)
	}
}

func NewTotalSizeHandler(srv RegistryService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "TotalSizeHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]int64{"total_size": srv.TotalSize()}, log)
	}
}

func NewDescribeHandler(srv RegistryService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "DescribeHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		index, err := strconv.Atoi(r.PathValue("index"))
		if err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)

			return
		}

		writeContent(w, r, contentTypeJSON, srv.Describe(index), "")
	}
}

func NewInspectHandler(srv RegistryService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "InspectHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		writeContent(w, r, contentTypeJSON, srv.Inspect(r.PathValue("name")), "")
	}
}

func NewClearHandler(srv RegistryService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "ClearHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		srv.Clear()
		log.Info("Registry cleared")

		w.WriteHeader(http.StatusNoContent)
	}
}

func NewManifestHandler(srv ViewService, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := srv.Manifest()
		writeContent(w, r, contentTypeJSON, m.Content, m.ETag)
	}
}

func NewIndexHandler(srv ViewService, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idx := srv.HTMLIndex()
		writeContent(w, r, contentTypeHTML, idx.Content, idx.ETag)
	}
}

func NewExportHandler(srv ExportService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "ExportHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, err := srv.Export(r.Context())
		if err != nil {
			switch {
			case errors.Is(err, common.ErrExportHasAlreadyStarted):
				http.Error(w, "Export process has already started", http.StatusConflict)
			case errors.Is(err, common.ErrNothingToExportError):
				http.Error(w, "Nothing to export", http.StatusUnprocessableEntity)
			case errors.Is(err, common.ErrPublishingIsNotConfigured):
				http.Error(w, "Export is not configured", http.StatusNotImplemented)
			default:
				http.Error(w, "Cannot export", http.StatusInternalServerError)
			}

			return
		}

		writeJSON(w, &entity.SnapshotInfo{
			ID:        snapshot.ID,
			Hash:      snapshot.Hash,
			FileCount: len(snapshot.Descriptors),
			CreatedAt: snapshot.CreatedAt,
		}, log)
	}
}

func NewPublishedManifestHandler(srv SnapshotService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "PublishedManifestHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		content, err := srv.GetManifest(r.Context())
		if err != nil {
			snapshotError(w, err)

			return
		}

		writeContent(w, r, contentTypeJSON, content, util.GetIDFromString(&content))
	}
}

func NewPublishedIndexHandler(srv SnapshotService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "PublishedIndexHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		content, err := srv.GetIndex(r.Context())
		if err != nil {
			snapshotError(w, err)

			return
		}

		writeContent(w, r, contentTypeHTML, content, util.GetIDFromString(&content))
	}
}

// NewPublishedDescriptionHandler serves the rendered description of the ingested folder.
func NewPublishedDescriptionHandler(srv SnapshotService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "PublishedDescriptionHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		content, err := srv.GetDescription(r.Context())
		if err != nil {
			snapshotError(w, err)

			return
		}

		writeContent(w, r, contentTypeHTML, content, util.GetIDFromString(&content))
	}
}

func NewPublishedDescriptorHandler(srv SnapshotService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "PublishedDescriptorHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		index, err := strconv.Atoi(r.PathValue("index"))
		if err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)

			return
		}

		content, err := srv.GetDescriptor(r.Context(), index)
		if err != nil {
			if errors.Is(err, common.ErrIndexOutOfRangeError) {
				writeContent(w, r, contentTypeJSON, "{}", "")

				return
			}

			snapshotError(w, err)

			return
		}

		writeContent(w, r, contentTypeJSON, content, "")
	}
}

func NewPublishedInfoHandler(srv SnapshotService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "PublishedInfoHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		info, err := srv.Info(r.Context())
		if err != nil {
			snapshotError(w, err)

			return
		}

		writeJSON(w, info, log)
	}
}

func snapshotError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrSnapshotNotFoundError):
		http.Error(w, "Snapshot not found", http.StatusNotFound)
	case errors.Is(err, common.ErrPublishingIsNotConfigured):
		http.Error(w, "Publishing is not configured", http.StatusNotImplemented)
	default:
		http.Error(w, "Cannot get snapshot", http.StatusInternalServerError)
	}
}

func writeContent(w http.ResponseWriter, r *http.Request, contentType, content, etag string) {
	if etag != "" {
		etag = strconv.Quote(etag)
		w.Header().Set("ETag", etag)

		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)

			return
		}
	}

	w.Header().Set("Content-Type", contentType)
	w.Write([]byte(content))
}

func writeJSON(w http.ResponseWriter, v any, log *slog.Logger) {
	writeJSONStatus(w, http.StatusOK, v, log)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any, log *slog.Logger) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Cannot write response", slog.Any("error", err))
	}
}
