package view

import (
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jgivc/fileregistry/internal/util"
)

const (
	serviceName = "view"

	kindManifest = "manifest"
	kindIndex    = "index"
)

type Registry interface {
	Version() uint64
	Manifest() string
	HTMLIndex() string
}

// Rendered is a rendered artifact with its content hash.
type Rendered struct {
	Content string
	ETag    string
}

// ViewService caches rendered artifacts until the registry changes.
type ViewService struct {
	reg   Registry
	cache *lru.Cache[string, Rendered]
	log   *slog.Logger
}

func NewViewService(reg Registry, size int, log *slog.Logger) (*ViewService, error) {
	cache, err := lru.New[string, Rendered](size)
	if err != nil {
		return nil, fmt.Errorf("cannot create cache: %w", err)
	}

	return &ViewService{
		reg:   reg,
		cache: cache,
		log:   log.With(slog.String("service", serviceName)),
	}, nil
}

func (v *ViewService) Manifest() Rendered {
	return v.get(kindManifest, v.reg.Manifest)
}

func (v *ViewService) HTMLIndex() Rendered {
	return v.get(kindIndex, v.reg.HTMLIndex)
}

func (v *ViewService) get(kind string, render func() string) Rendered {
	ver := v.reg.Version()
	key := fmt.Sprintf("%s:%d", kind, ver)

	if r, ok := v.cache.Get(key); ok {
		return r
	}

	content := render()
	r := Rendered{
		Content: content,
		ETag:    util.GetIDFromString(&content),
	}

	// Not cached if the registry changed while rendering.
	if v.reg.Version() != ver {
		return r
	}

	v.cache.Add(key, r)
	v.log.Debug("Rendered", slog.String("kind", kind), slog.Uint64("version", ver))

	return r
}
