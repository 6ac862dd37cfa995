package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"sync"

	"github.com/jgivc/fileregistry/internal/adapter/tpladapter"
	"github.com/jgivc/fileregistry/internal/common"
	"github.com/jgivc/fileregistry/internal/entity"
)

const (
	DefaultTitle   = "Converted Project"
	DefaultHeading = "Project Files"

	entryPointMarker = "int main"

	emptyDescriptor = "{}"
)

type Option func(r *FileRegistry)

// WithTemplate replaces the HTML index template.
func WithTemplate(tpl *template.Template) Option {
	return func(r *FileRegistry) {
		if tpl != nil {
			r.tpl = tpl
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(r *FileRegistry) {
		if log != nil {
			r.log = log.With(slog.String("item", "FileRegistry"))
		}
	}
}

type indexPage struct {
	Title   string
	Heading string
	Files   []entity.FileInfo
}

// FileRegistry is an ordered in-memory collection of files.
// Insertion order defines index lookups and the order of rendered artifacts.
type FileRegistry struct {
	mu      sync.RWMutex
	files   []*entity.File
	version uint64

	tpl *template.Template
	log *slog.Logger
}

func New(opts ...Option) *FileRegistry {
	r := &FileRegistry{
		tpl: tpladapter.Default(),
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Add appends a file. Content is copied; nil content is stored as empty.
func (r *FileRegistry) Add(name, fileType string, content []byte) {
	data := make([]byte, len(content))
	copy(data, content)

	file := &entity.File{
		Name:    name,
		Type:    fileType,
		Content: data,
		Size:    int64(len(data)),
	}

	r.mu.Lock()
	r.files = append(r.files, file)
	r.version++
	count := len(r.files)
	r.mu.Unlock()

	r.log.Debug("Add file", slog.String("name", name), slog.String("type", fileType), slog.Int64("size", file.Size), slog.Int("count", count))
}

func (r *FileRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.files)
}

// Version changes on every Add and Clear.
func (r *FileRegistry) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.version
}

func (r *FileRegistry) DescribeFile(index int) (entity.FileInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if index < 0 || index >= len(r.files) {
		return entity.FileInfo{}, fmt.Errorf("%w: %d", common.ErrIndexOutOfRangeError, index)
	}

	return toInfo(r.files[index]), nil
}

// Describe returns the JSON descriptor of the file at index, or {} when index is out of range.
func (r *FileRegistry) Describe(index int) string {
	info, err := r.DescribeFile(index)
	if err != nil {
		return emptyDescriptor
	}

	return r.marshal(info)
}

// InspectFile analyses the first file with the given name.
func (r *FileRegistry) InspectFile(name string) (entity.Analysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	file := r.lookupFile(name)
	if file == nil {
		return entity.Analysis{}, fmt.Errorf("%w: %s", common.ErrFileNotFoundError, name)
	}

	return entity.Analysis{
		File:    name,
		Lines:   bytes.Count(file.Content, []byte{'\n'}) + 1,
		Size:    file.Size,
		HasMain: bytes.Contains(file.Content, []byte(entryPointMarker)),
	}, nil
}

// Inspect returns the JSON analysis of the first file with the given name,
// or an object with an error field when there is no such file.
func (r *FileRegistry) Inspect(name string) string {
	analysis, err := r.InspectFile(name)
	if err != nil {
		return r.marshal(struct {
			Error string `json:"error"`
		}{Error: "File not found"})
	}

	return r.marshal(analysis)
}

func (r *FileRegistry) TotalSize() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.totalSize()
}

func (r *FileRegistry) ManifestData() entity.Manifest {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return entity.Manifest{
		Files:     r.infos(),
		TotalSize: r.totalSize(),
	}
}

func (r *FileRegistry) Manifest() string {
	return r.marshal(r.ManifestData())
}

func (r *FileRegistry) HTMLIndex() string {
	r.mu.RLock()
	infos := r.infos()
	r.mu.RUnlock()

	return r.render(infos)
}

// Artifacts renders the manifest, the HTML index and every descriptor from one state of the registry.
func (r *FileRegistry) Artifacts() entity.Artifacts {
	r.mu.RLock()
	infos := r.infos()
	total := r.totalSize()
	r.mu.RUnlock()

	descriptors := make([]string, 0, len(infos))
	for _, info := range infos {
		descriptors = append(descriptors, r.marshal(info))
	}

	return entity.Artifacts{
		Manifest:    r.marshal(entity.Manifest{Files: infos, TotalSize: total}),
		Index:       r.render(infos),
		Descriptors: descriptors,
	}
}

func (r *FileRegistry) Clear() {
	r.mu.Lock()
	r.files = nil
	r.version++
	r.mu.Unlock()

	r.log.Debug("Clear files")
}

// Files returns a copy of the stored records in insertion order.
func (r *FileRegistry) Files() []entity.File {
	r.mu.RLock()
	defer r.mu.RUnlock()

	files := make([]entity.File, len(r.files))
	for i, file := range r.files {
		files[i] = *file
		files[i].Content = append([]byte(nil), file.Content...)
	}

	return files
}

func (r *FileRegistry) lookupFile(name string) *entity.File {
	for _, file := range r.files {
		if file.Name == name {
			return file
		}
	}

	return nil
}

func (r *FileRegistry) infos() []entity.FileInfo {
	infos := make([]entity.FileInfo, 0, len(r.files))
	for _, file := range r.files {
		infos = append(infos, toInfo(file))
	}

	return infos
}

func (r *FileRegistry) totalSize() int64 {
	var total int64
	for _, file := range r.files {
		total += file.Size
	}

	return total
}

func (r *FileRegistry) render(infos []entity.FileInfo) string {
	page := &indexPage{
		Title:   DefaultTitle,
		Heading: DefaultHeading,
		Files:   infos,
	}

	buf := bytes.Buffer{}
	if err := r.tpl.Execute(&buf, page); err != nil {
		r.log.Error("Cannot execute index template", slog.Any("error", err))

		return ""
	}

	return buf.String()
}

func (r *FileRegistry) marshal(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		r.log.Error("Cannot marshal json", slog.Any("error", err))

		return emptyDescriptor
	}

	return string(data)
}

func toInfo(file *entity.File) entity.FileInfo {
	return entity.FileInfo{
		Name: file.Name,
		Type: file.Type,
		Size: file.Size,
	}
}
