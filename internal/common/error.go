package common

import "fmt"

var (
	ErrFileNotFoundError         = fmt.Errorf("file not found")
	ErrIndexOutOfRangeError      = fmt.Errorf("index out of range")
	ErrSnapshotNotFoundError     = fmt.Errorf("snapshot not found")
	ErrNothingToExportError      = fmt.Errorf("nothing to export")
	ErrExportHasAlreadyStarted   = fmt.Errorf("export process has already started")
	ErrIngestHasAlreadyStarted   = fmt.Errorf("ingest process has already started")
	ErrPublishingIsNotConfigured = fmt.Errorf("publishing is not configured")
)
