package artifact

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jgivc/fileregistry/internal/entity"
	"github.com/spf13/afero"
)

const (
	sinkNameFS = "fs"
	filePerm   = 0644
	dirPerm    = 0755
)

type FSSink struct {
	fs  afero.Fs
	dir string
	log *slog.Logger
}

func NewFSSink(fs afero.Fs, dir string, log *slog.Logger) *FSSink {
	return &FSSink{
		fs:  fs,
		dir: dir,
		log: log.With(slog.String("item", "FSSink"), slog.String("dir", dir)),
	}
}

func (s *FSSink) Name() string {
	return sinkNameFS
}

// Put replaces the previous export in the directory.
func (s *FSSink) Put(ctx context.Context, snapshot *entity.Snapshot) error {
	if err := s.fs.RemoveAll(filepath.Join(s.dir, FilesDir)); err != nil {
		return fmt.Errorf("cannot remove old descriptors: %w", err)
	}

	if err := s.fs.Remove(filepath.Join(s.dir, DescriptionFileName)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cannot remove old description: %w", err)
	}

	if err := s.fs.MkdirAll(filepath.Join(s.dir, FilesDir), dirPerm); err != nil {
		return fmt.Errorf("cannot create output dir: %w", err)
	}

	objs := objects(snapshot)
	for _, obj := range objs {
		if err := ctx.Err(); err != nil {
			return err
		}

		path := filepath.Join(s.dir, filepath.FromSlash(obj.path))
		if err := afero.WriteFile(s.fs, path, obj.data, filePerm); err != nil {
			return fmt.Errorf("cannot write %s: %w", path, err)
		}
	}

	s.log.Info("Snapshot written", slog.String("id", snapshot.ID), slog.Int("objects", len(objs)))

	return nil
}
