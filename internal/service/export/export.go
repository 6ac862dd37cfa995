package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jgivc/fileregistry/internal/common"
	"github.com/jgivc/fileregistry/internal/entity"
	"github.com/jgivc/fileregistry/internal/util"
)

const (
	serviceName = "export"
)

type Registry interface {
	Artifacts() entity.Artifacts
}

// Sink receives every exported snapshot.
type Sink interface {
	Name() string
	Put(ctx context.Context, snapshot *entity.Snapshot) error
}

type DescriptionSource interface {
	Description() string
}

type ExportService struct {
	running atomic.Bool
	reg     Registry
	desc    DescriptionSource
	sinks   []Sink
	now     func() time.Time
	log     *slog.Logger
}

func NewExportService(reg Registry, desc DescriptionSource, sinks []Sink, log *slog.Logger) *ExportService {
	return &ExportService{
		reg:   reg,
		desc:  desc,
		sinks: sinks,
		now:   time.Now,
		log:   log.With(slog.String("service", serviceName)),
	}
}

// Export renders the registry once and writes the snapshot to all sinks concurrently.
func (e *ExportService) Export(ctx context.Context) (*entity.Snapshot, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, common.ErrExportHasAlreadyStarted
	}
	defer e.running.Store(false)

	snapshot := e.build()
	if len(snapshot.Descriptors) < 1 {
		e.log.Error("Registry is empty")

		return nil, common.ErrNothingToExportError
	}

	if len(e.sinks) < 1 {
		return nil, common.ErrPublishingIsNotConfigured
	}

	errs := make([]error, len(e.sinks))

	var wg sync.WaitGroup
	wg.Add(len(e.sinks))
	for n, sink := range e.sinks {
		go func() {
			defer wg.Done()

			log := e.log.With(slog.String("sink", sink.Name()))
			if err := sink.Put(ctx, snapshot); err != nil {
				log.Error("Cannot put snapshot", slog.String("id", snapshot.ID), slog.Any("error", err))
				errs[n] = fmt.Errorf("sink %s: %w", sink.Name(), err)

				return
			}

			log.Info("Snapshot exported", slog.String("id", snapshot.ID))
		}()
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return snapshot, fmt.Errorf("cannot export snapshot: %w", err)
	}

	return snapshot, nil
}

func (e *ExportService) build() *entity.Snapshot {
	artifacts := e.reg.Artifacts()

	snapshot := &entity.Snapshot{
		ID:          uuid.NewString(),
		Hash:        util.GetIDFromString(&artifacts.Manifest),
		Manifest:    artifacts.Manifest,
		Index:       artifacts.Index,
		Descriptors: artifacts.Descriptors,
		CreatedAt:   e.now(),
	}

	if e.desc != nil {
		snapshot.Description = e.desc.Description()
	}

	return snapshot
}
