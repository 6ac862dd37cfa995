package fsadapter

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/jgivc/fileregistry/internal/config"
	"github.com/jgivc/fileregistry/internal/entity"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestTypeByName(t *testing.T) {
	testCases := map[string]string{
		"main.cpp":    "C++ Source",
		"MATH.H":      "Header",
		"a.b.json":    "JSON",
		"logo.PNG":    "PNG Image",
		"script.vas":  "Valve Script",
		"Makefile":    TypeUnknown,
		"archive.tgz": TypeUnknown,
		"":            TypeUnknown,
	}

	for name, expected := range testCases {
		require.Equal(t, expected, TypeByName(name), name)
	}
}

func TestToSource(t *testing.T) {
	workDir := "/test"

	testCases := []struct {
		name          string
		files         map[string]string
		detectMIME    bool
		skipFiles     []string
		expectError   bool
		expectedFiles []entity.FileInfo
		expectedDesc  string
	}{
		{
			name:        "Empty folder",
			expectError: true,
		},
		{
			name: "Only description",
			files: map[string]string{
				"description.md": "# Title\n",
			},
			expectError: true,
		},
		{
			name: "Plain files in name order",
			files: map[string]string{
				"math.h":   "int add(int a, int b);",
				"main.cpp": "int main() {}",
				"notes":    "hello",
			},
			expectedFiles: []entity.FileInfo{
				{Name: "main.cpp", Type: "C++ Source", Size: 13},
				{Name: "math.h", Type: "Header", Size: 22},
				{Name: "notes", Type: TypeUnknown, Size: 5},
			},
		},
		{
			name: "Detect MIME for unknown extension",
			files: map[string]string{
				"notes": "hello",
			},
			detectMIME: true,
			expectedFiles: []entity.FileInfo{
				{Name: "notes", Type: "text/plain; charset=utf-8", Size: 5},
			},
		},
		{
			name: "Skip files from config",
			files: map[string]string{
				".gitkeep": "",
				"a.txt":    "a",
			},
			skipFiles: []string{".gitkeep"},
			expectedFiles: []entity.FileInfo{
				{Name: "a.txt", Type: "Text File", Size: 1},
			},
		},
		{
			name: "Description with frontmatter",
			files: map[string]string{
				"a.txt":  "a",
				"b.txt":  "bb",
				"run.sh": "echo",
				"description.md": `---
types:
  run.sh: Shell Script
skip:
  - b.txt
---
# Project

Some *text*
`,
			},
			expectedFiles: []entity.FileInfo{
				{Name: "a.txt", Type: "Text File", Size: 1},
				{Name: "run.sh", Type: "Shell Script", Size: 4},
			},
			expectedDesc: "<h1>Project</h1>\n<p>Some <em>text</em></p>\n",
		},
		{
			name: "Description without frontmatter",
			files: map[string]string{
				"a.txt":          "a",
				"description.md": "Hello",
			},
			expectedFiles: []entity.FileInfo{
				{Name: "a.txt", Type: "Text File", Size: 1},
			},
			expectedDesc: "<p>Hello</p>\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, fs.MkdirAll(workDir, os.ModeDir))
			require.NoError(t, fs.MkdirAll(filepath.Join(workDir, "subdir"), os.ModeDir))

			for path, content := range tc.files {
				err := afero.WriteFile(fs, filepath.Join(workDir, path), []byte(content), 0644)
				require.NoError(t, err)
			}

			cfg := &config.IngestConfig{
				WorkDir:      workDir,
				DescFileName: "description.md",
				SkipFiles:    tc.skipFiles,
				DetectMIME:   tc.detectMIME,
			}
			log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

			source, err := NewFSAdapterWithFS(fs, cfg, log).ToSource(workDir)
			if tc.expectError {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, workDir, source.Path)
			require.Equal(t, tc.expectedDesc, source.Description)

			infos := make([]entity.FileInfo, 0, len(source.Files))
			for _, file := range source.Files {
				require.Equal(t, file.Size, int64(len(file.Content)))
				infos = append(infos, entity.FileInfo{Name: file.Name, Type: file.Type, Size: file.Size})
			}
			require.Equal(t, tc.expectedFiles, infos)
		})
	}
}

func TestToSourceInvalidPath(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	a := NewFSAdapterWithFS(afero.NewMemMapFs(), &config.IngestConfig{}, log)

	_, err := a.ToSource("/test/../etc")
	require.Error(t, err)
}
