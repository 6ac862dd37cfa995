package snapshot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jgivc/fileregistry/internal/common"
	"github.com/jgivc/fileregistry/internal/entity"
)

const (
	serviceName = "snapshot"
)

type SnapshotRepository interface {
	GetManifest(ctx context.Context) (string, error)
	GetIndex(ctx context.Context) (string, error)
	GetDescription(ctx context.Context) (string, error)
	GetDescriptor(ctx context.Context, index int) (string, error)
	Info(ctx context.Context) (*entity.SnapshotInfo, error)
}

// SnapshotService reads the last published snapshot. A nil repository means publishing is off.
type SnapshotService struct {
	repo SnapshotRepository
	log  *slog.Logger
}

func NewSnapshotService(repo SnapshotRepository, log *slog.Logger) *SnapshotService {
	return &SnapshotService{
		repo: repo,
		log:  log.With(slog.String("service", serviceName)),
	}
}

func (s *SnapshotService) GetManifest(ctx context.Context) (string, error) {
	return s.get(ctx, "manifest", func(repo SnapshotRepository) (string, error) {
		return repo.GetManifest(ctx)
	})
}

func (s *SnapshotService) GetIndex(ctx context.Context) (string, error) {
	return s.get(ctx, "index", func(repo SnapshotRepository) (string, error) {
		return repo.GetIndex(ctx)
	})
}

func (s *SnapshotService) GetDescription(ctx context.Context) (string, error) {
	return s.get(ctx, "description", func(repo SnapshotRepository) (string, error) {
		return repo.GetDescription(ctx)
	})
}

func (s *SnapshotService) GetDescriptor(ctx context.Context, index int) (string, error) {
	return s.get(ctx, fmt.Sprintf("descriptor %d", index), func(repo SnapshotRepository) (string, error) {
		return repo.GetDescriptor(ctx, index)
	})
}

func (s *SnapshotService) Info(ctx context.Context) (*entity.SnapshotInfo, error) {
	if s.repo == nil {
		return nil, common.ErrPublishingIsNotConfigured
	}

	info, err := s.repo.Info(ctx)
	if err != nil {
		s.log.Error("Cannot get snapshot info", slog.Any("error", err))

		return nil, fmt.Errorf("cannot get snapshot info: %w", err)
	}

	return info, nil
}

func (s *SnapshotService) get(ctx context.Context, what string, fn func(repo SnapshotRepository) (string, error)) (string, error) {
	if s.repo == nil {
		return "", common.ErrPublishingIsNotConfigured
	}

	content, err := fn(s.repo)
	if err != nil {
		s.log.Error("Cannot get snapshot content", slog.String("kind", what), slog.Any("error", err))

		return "", fmt.Errorf("cannot get snapshot %s: %w", what, err)
	}

	return content, nil
}
