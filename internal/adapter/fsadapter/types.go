package fsadapter

import (
	"path/filepath"
	"strings"
)

const (
	TypeUnknown = "Unknown"
)

var extTypes = map[string]string{
	"cpp":  "C++ Source",
	"cc":   "C++ Source",
	"h":    "Header",
	"hpp":  "Header",
	"c":    "C Source",
	"png":  "PNG Image",
	"jpg":  "JPEG Image",
	"jpeg": "JPEG Image",
	"ogg":  "OGG Audio",
	"wav":  "WAV Audio",
	"mp3":  "MP3 Audio",
	"dll":  "Windows DLL",
	"so":   "Shared Object",
	"txt":  "Text File",
	"json": "JSON",
	"vas":  "Valve Script",
}

// TypeByName returns the declared type for a file name based on its extension, or TypeUnknown.
func TypeByName(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if t, ok := extTypes[ext]; ok {
		return t
	}

	return TypeUnknown
}
