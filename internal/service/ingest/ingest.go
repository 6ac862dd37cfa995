package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jgivc/fileregistry/internal/common"
	"github.com/jgivc/fileregistry/internal/entity"
)

const (
	serviceName = "ingest"
)

type FSAdapter interface {
	ToSource(folderPath string) (*entity.Source, error)
}

type Registry interface {
	Add(name, fileType string, content []byte)
}

type IngestService struct {
	running atomic.Bool
	adapter FSAdapter
	reg     Registry

	mu          sync.RWMutex
	description string

	log *slog.Logger
}

func NewIngestService(adapter FSAdapter, reg Registry, log *slog.Logger) *IngestService {
	return &IngestService{
		adapter: adapter,
		reg:     reg,
		log:     log.With(slog.String("service", serviceName)),
	}
}

// Ingest adds every file of folderPath to the registry in name order.
func (i *IngestService) Ingest(ctx context.Context, folderPath string) ([]entity.FileInfo, error) {
	if !i.running.CompareAndSwap(false, true) {
		return nil, common.ErrIngestHasAlreadyStarted
	}
	defer i.running.Store(false)

	source, err := i.adapter.ToSource(folderPath)
	if err != nil {
		i.log.Error("Cannot read folder", slog.String("path", folderPath), slog.Any("error", err))

		return nil, fmt.Errorf("cannot read folder %s: %w", folderPath, err)
	}

	infos := make([]entity.FileInfo, 0, len(source.Files))
	for _, file := range source.Files {
		if err := ctx.Err(); err != nil {
			i.log.Info("Interrupted", slog.Int("added", len(infos)))

			return infos, err
		}

		i.reg.Add(file.Name, file.Type, file.Content)
		infos = append(infos, entity.FileInfo{Name: file.Name, Type: file.Type, Size: file.Size})
	}

	i.mu.Lock()
	i.description = source.Description
	i.mu.Unlock()

	i.log.Info("Folder ingested", slog.String("path", folderPath), slog.Int("count", len(infos)))

	return infos, nil
}

// Description returns the rendered description of the last ingested folder.
func (i *IngestService) Description() string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	return i.description
}
