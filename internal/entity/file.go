package entity

// File is a single record held by the registry.
type File struct {
	Name    string // Caller supplied name, not unique
	Type    string // Declared type, opaque to the registry
	Content []byte // Raw payload
	Size    int64  // len(Content) at insertion time
}

// FileInfo is the public descriptor of one record.
type FileInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// Analysis is the result of inspecting the content of one record.
type Analysis struct {
	File    string `json:"file"`
	Lines   int    `json:"lines"`
	Size    int64  `json:"size"`
	HasMain bool   `json:"has_main"`
}

type Manifest struct {
	Files     []FileInfo `json:"files"`
	TotalSize int64      `json:"total_size"`
}

// Artifacts are the rendered outputs of one registry state.
type Artifacts struct {
	Manifest    string
	Index       string
	Descriptors []string
}
