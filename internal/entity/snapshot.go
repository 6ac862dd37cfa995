package entity

import "time"

// Snapshot is one rendered export of the registry. It is an aggregate.
type Snapshot struct {
	ID          string    // Random identifier of the export
	Hash        string    // sha1 of Manifest, used as ETag
	Manifest    string    // Manifest JSON
	Index       string    // HTML index
	Descriptors []string  // JSON descriptor per record, insertion order
	Description string    // Optional HTML rendered from the work dir description file
	CreatedAt   time.Time // Time of export
}

// Source is the content of a work directory ready to be added to the registry.
type Source struct {
	Path        string
	Files       []*File
	Description string
}

type SnapshotInfo struct {
	ID        string    `json:"id"`
	Hash      string    `json:"hash"`
	FileCount int       `json:"file_count"`
	CreatedAt time.Time `json:"created_at"`
}
