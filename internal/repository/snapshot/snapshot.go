package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jgivc/fileregistry/internal/common"
	"github.com/jgivc/fileregistry/internal/entity"
	"github.com/redis/go-redis/v9"
)

const (
	KeyVersion1      = "v1"
	KeyVersion2      = "v2"
	KeyActiveVersion = "av"   // STRING. Active slot
	KeyManifest      = "mf"   // STRING. mf:ver manifest JSON
	KeyIndex         = "ix"   // STRING. ix:ver HTML index
	KeyDescriptors   = "ds"   // HASH. ds:ver index: descriptor JSON
	KeyDescription   = "dc"   // STRING. dc:ver description HTML
	KeyMeta          = "meta" // HASH. meta:ver id, hash, count, created_at

	fieldID        = "id"
	fieldHash      = "hash"
	fieldCount     = "count"
	fieldCreatedAt = "created_at"

	KeyEmpty     = ""
	KeySeparator = ":"
)

var (
	ClearableKeys = []string{KeyManifest, KeyIndex, KeyDescriptors, KeyDescription, KeyMeta}
)

type snapshotRepository struct {
	ver atomic.Value
	cl  *redis.Client
	log *slog.Logger
}

func NewSnapshotRepository(cl *redis.Client, log *slog.Logger) (*snapshotRepository, error) {
	repo := &snapshotRepository{
		cl:  cl,
		log: log.With(slog.String("item", "SnapshotRepository")),
	}

	ver, _, err := repo.getVersions(context.Background())
	if err != nil {
		return nil, fmt.Errorf("cannot get active version: %w", err)
	}

	repo.ver.Store(ver)

	return repo, nil
}

func (r *snapshotRepository) Name() string {
	return "redis"
}

// Put writes the snapshot to the standby slot and makes it active.
func (r *snapshotRepository) Put(ctx context.Context, snapshot *entity.Snapshot) error {
	verActive, verStandby, err := r.getVersions(ctx)
	if err != nil {
		r.log.Error("Cannot get standby data version", slog.Any("error", err))

		return fmt.Errorf("cannot get active version: %w", err)
	}
	r.log.Info("Save new snapshot", slog.String("id", snapshot.ID), slog.String("active_version", verActive), slog.String("standby_version", verStandby))

	if err := r.clearOldData(ctx, verStandby); err != nil {
		r.log.Error("Cannot clear old data", slog.String("version", verStandby), slog.Any("error", err))

		return fmt.Errorf("cannot clear old data: %w", err)
	}

	if err := r.saveNewData(ctx, verStandby, snapshot); err != nil {
		r.log.Error("Cannot save new data", slog.String("version", verStandby), slog.Any("error", err))

		return fmt.Errorf("cannot save new data: %w", err)
	}

	if _, err := r.cl.Set(ctx, KeyActiveVersion, verStandby, 0).Result(); err != nil {
		r.log.Error("Cannot switch to new version", slog.String("version", verStandby), slog.Any("error", err))

		return fmt.Errorf("cannot switch to new version: %w", err)
	}

	r.ver.Store(verStandby)

	return nil
}

func (r *snapshotRepository) saveNewData(ctx context.Context, ver string, snapshot *entity.Snapshot) error {
	pipe := r.cl.Pipeline()

	pipe.Set(ctx, getKey(KeyManifest, ver), snapshot.Manifest, 0)
	pipe.Set(ctx, getKey(KeyIndex, ver), snapshot.Index, 0)
	if snapshot.Description != "" {
		pipe.Set(ctx, getKey(KeyDescription, ver), snapshot.Description, 0)
	}

	if len(snapshot.Descriptors) > 0 {
		values := make(map[string]any, len(snapshot.Descriptors))
		for i, desc := range snapshot.Descriptors {
			values[strconv.Itoa(i)] = desc
		}
		pipe.HSet(ctx, getKey(KeyDescriptors, ver), values)
	}

	pipe.HSet(ctx, getKey(KeyMeta, ver), map[string]any{
		fieldID:        snapshot.ID,
		fieldHash:      snapshot.Hash,
		fieldCount:     len(snapshot.Descriptors),
		fieldCreatedAt: snapshot.CreatedAt.UTC().Format(time.RFC3339Nano),
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cannot exec pipe: %w", err)
	}

	return nil
}

func (r *snapshotRepository) clearOldData(ctx context.Context, ver string) error {
	keys := make([]string, 0, len(ClearableKeys))
	for _, key := range ClearableKeys {
		keys = append(keys, getKey(key, ver))
	}

	count, err := r.cl.Del(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("error deleting keys: %w", err)
	}

	r.log.Info("Clear keys", slog.String("version", ver), slog.Int64("key_count", count))

	return nil
}

/*
getVersions return active and standby versions
*/
func (r *snapshotRepository) getVersions(ctx context.Context) (string, string, error) {
	ver, err := r.cl.Get(ctx, KeyActiveVersion).Result()
	if err != nil && err != redis.Nil {
		return KeyEmpty, KeyEmpty, fmt.Errorf("cannot get active version: %w", err)
	}

	active, standby, ok := versions(ver)
	if ok {
		return active, standby, nil
	}

	r.log.Info("Active version key is not found. Try to set new one", slog.String("version", KeyVersion1))

	if _, err = r.cl.Set(ctx, KeyActiveVersion, KeyVersion1, 0).Result(); err != nil {
		return KeyEmpty, KeyEmpty, fmt.Errorf("cannot set version key: %w", err)
	}

	return KeyVersion1, KeyVersion2, nil
}

func (r *snapshotRepository) getActiveVersion() string {
	return r.ver.Load().(string)
}

func (r *snapshotRepository) GetManifest(ctx context.Context) (string, error) {
	return r.getString(ctx, KeyManifest)
}

func (r *snapshotRepository) GetIndex(ctx context.Context) (string, error) {
	return r.getString(ctx, KeyIndex)
}

func (r *snapshotRepository) GetDescription(ctx context.Context) (string, error) {
	return r.getString(ctx, KeyDescription)
}

func (r *snapshotRepository) GetDescriptor(ctx context.Context, index int) (string, error) {
	str, err := r.cl.HGet(ctx, getKey(KeyDescriptors, r.getActiveVersion()), strconv.Itoa(index)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", common.ErrIndexOutOfRangeError
		}

		return "", fmt.Errorf("cannot get descriptor %d: %w", index, err)
	}

	return str, nil
}

func (r *snapshotRepository) Info(ctx context.Context) (*entity.SnapshotInfo, error) {
	meta, err := r.cl.HGetAll(ctx, getKey(KeyMeta, r.getActiveVersion())).Result()
	if err != nil {
		return nil, fmt.Errorf("cannot get snapshot meta: %w", err)
	}

	if len(meta) < 1 {
		return nil, common.ErrSnapshotNotFoundError
	}

	return parseInfo(meta)
}

func (r *snapshotRepository) getString(ctx context.Context, key string) (string, error) {
	str, err := r.cl.Get(ctx, getKey(key, r.getActiveVersion())).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", common.ErrSnapshotNotFoundError
		}

		return "", err
	}

	return str, nil
}

func parseInfo(meta map[string]string) (*entity.SnapshotInfo, error) {
	count, err := strconv.Atoi(meta[fieldCount])
	if err != nil {
		return nil, fmt.Errorf("cannot convert file count: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, meta[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("cannot parse creation time: %w", err)
	}

	return &entity.SnapshotInfo{
		ID:        meta[fieldID],
		Hash:      meta[fieldHash],
		FileCount: count,
		CreatedAt: createdAt,
	}, nil
}

func versions(active string) (string, string, bool) {
	switch active {
	case KeyVersion1:
		return KeyVersion1, KeyVersion2, true
	case KeyVersion2:
		return KeyVersion2, KeyVersion1, true
	}

	return KeyEmpty, KeyEmpty, false
}

func getKey(keys ...string) string {
	return strings.Join(keys, KeySeparator)
}
