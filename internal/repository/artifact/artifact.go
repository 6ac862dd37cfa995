package artifact

import (
	"path"
	"strconv"

	"github.com/jgivc/fileregistry/internal/entity"
)

const (
	ManifestFileName    = "manifest.json"
	IndexFileName       = "index.html"
	DescriptionFileName = "description.html"
	FilesDir            = "files"

	contentTypeJSON = "application/json"
	contentTypeHTML = "text/html; charset=utf-8"
)

type object struct {
	path        string
	contentType string
	data        []byte
}

// objects lays out a snapshot as relative paths.
func objects(s *entity.Snapshot) []object {
	objs := make([]object, 0, len(s.Descriptors)+3)
	objs = append(objs,
		object{path: ManifestFileName, contentType: contentTypeJSON, data: []byte(s.Manifest)},
		object{path: IndexFileName, contentType: contentTypeHTML, data: []byte(s.Index)},
	)

	for i, desc := range s.Descriptors {
		objs = append(objs, object{path: DescriptorPath(i), contentType: contentTypeJSON, data: []byte(desc)})
	}

	if s.Description != "" {
		objs = append(objs, object{path: DescriptionFileName, contentType: contentTypeHTML, data: []byte(s.Description)})
	}

	return objs
}

// DescriptorPath is the relative path of the descriptor of the i-th file.
func DescriptorPath(i int) string {
	return path.Join(FilesDir, strconv.Itoa(i)+".json")
}
