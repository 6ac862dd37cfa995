package httphandler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/jgivc/fileregistry/internal/common"
	"github.com/jgivc/fileregistry/internal/entity"
	"github.com/jgivc/fileregistry/internal/registry"
	"github.com/jgivc/fileregistry/internal/service/view"
	"github.com/stretchr/testify/require"
)

const maxUploadBytes = 64

type fakeExport struct {
	err error
}

func (f *fakeExport) Export(ctx context.Context) (*entity.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}

	return &entity.Snapshot{ID: "id", Hash: "hash", Descriptors: []string{"{}"}}, nil
}

type fakeSnapshots struct {
	snapshot *entity.Snapshot
}

func (f *fakeSnapshots) GetManifest(ctx context.Context) (string, error) {
	if f.snapshot == nil {
		return "", common.ErrSnapshotNotFoundError
	}

	return f.snapshot.Manifest, nil
}

func (f *fakeSnapshots) GetIndex(ctx context.Context) (string, error) {
	if f.snapshot == nil {
		return "", common.ErrPublishingIsNotConfigured
	}

	return f.snapshot.Index, nil
}

func (f *fakeSnapshots) GetDescription(ctx context.Context) (string, error) {
	if f.snapshot == nil || f.snapshot.Description == "" {
		return "", common.ErrSnapshotNotFoundError
	}

	return f.snapshot.Description, nil
}

func (f *fakeSnapshots) GetDescriptor(ctx context.Context, index int) (string, error) {
	if f.snapshot == nil || index < 0 || index >= len(f.snapshot.Descriptors) {
		return "", common.ErrIndexOutOfRangeError
	}

	return f.snapshot.Descriptors[index], nil
}

func (f *fakeSnapshots) Info(ctx context.Context) (*entity.SnapshotInfo, error) {
	if f.snapshot == nil {
		return nil, common.ErrSnapshotNotFoundError
	}

	return &entity.SnapshotInfo{ID: f.snapshot.ID}, nil
}

func newMux(t *testing.T, reg *registry.FileRegistry, exp ExportService, snaps SnapshotService) *http.ServeMux {
	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	vs, err := view.NewViewService(reg, 8, log)
	require.NoError(t, err)

	typeOf := func(name string) string {
		if strings.HasSuffix(name, ".cpp") {
			return "C++ Source"
		}

		return "Unknown"
	}

	mux := http.NewServeMux()
	mux.Handle("POST /files/{name}", NewAddHandler(reg, maxUploadBytes, typeOf, log))
	mux.Handle("GET /files/count", NewCountHandler(reg, log))
	mux.Handle("GET /files/{index}", NewDescribeHandler(reg, log))
	mux.Handle("DELETE /files", NewClearHandler(reg, log))
	mux.Handle("GET /inspect/{name}", NewInspectHandler(reg, log))
	mux.Handle("GET /total", NewTotalSizeHandler(reg, log))
	mux.Handle("GET /manifest", NewManifestHandler(vs, log))
	mux.Handle("GET /index.html", NewIndexHandler(vs, log))
	mux.Handle("POST /export", NewExportHandler(exp, log))
	mux.Handle("GET /published/manifest", NewPublishedManifestHandler(snaps, log))
	mux.Handle("GET /published/index.html", NewPublishedIndexHandler(snaps, log))
	mux.Handle("GET /published/description.html", NewPublishedDescriptionHandler(snaps, log))
	mux.Handle("GET /published/files/{index}", NewPublishedDescriptorHandler(snaps, log))
	mux.Handle("GET /published/info", NewPublishedInfoHandler(snaps, log))

	return mux
}

func do(mux *http.ServeMux, method, target, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	return rec
}

func TestRegistryRoutes(t *testing.T) {
	reg := registry.New()
	mux := newMux(t, reg, &fakeExport{}, &fakeSnapshots{})

	rec := do(mux, http.MethodPost, "/files/main.cpp", "int main() { return 0; }")
	require.Equal(t, http.StatusCreated, rec.Code)
	require.JSONEq(t, `{"name":"main.cpp","type":"C++ Source","size":24}`, rec.Body.String())

	rec = do(mux, http.MethodPost, "/files/notes?type=Text%20File", "a\nb")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(mux, http.MethodPost, "/files/big", strings.Repeat("x", maxUploadBytes+1))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = do(mux, http.MethodGet, "/files/count", "")
	require.JSONEq(t, `{"count":2}`, rec.Body.String())

	rec = do(mux, http.MethodGet, "/total", "")
	require.JSONEq(t, `{"total_size":27}`, rec.Body.String())

	testCases := []struct {
		target       string
		expectedCode int
		expectedBody string
	}{
		{target: "/files/0", expectedCode: http.StatusOK, expectedBody: `{"name":"main.cpp","type":"C++ Source","size":24}`},
		{target: "/files/1", expectedCode: http.StatusOK, expectedBody: `{"name":"notes","type":"Text File","size":3}`},
		{target: "/files/2", expectedCode: http.StatusOK, expectedBody: `{}`},
		{target: "/files/-1", expectedCode: http.StatusOK, expectedBody: `{}`},
		{target: "/files/abc", expectedCode: http.StatusBadRequest},
		{target: "/inspect/main.cpp", expectedCode: http.StatusOK, expectedBody: `{"file":"main.cpp","lines":1,"size":24,"has_main":true}`},
		{target: "/inspect/notes", expectedCode: http.StatusOK, expectedBody: `{"file":"notes","lines":2,"size":3,"has_main":false}`},
		{target: "/inspect/missing", expectedCode: http.StatusOK, expectedBody: `{"error":"File not found"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.target, func(t *testing.T) {
			rec := do(mux, http.MethodGet, tc.target, "")
			require.Equal(t, tc.expectedCode, rec.Code)
			if tc.expectedBody != "" {
				require.JSONEq(t, tc.expectedBody, rec.Body.String())
			}
		})
	}

	rec = do(mux, http.MethodDelete, "/files", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, 0, reg.Count())
}

func TestArtifactRoutes(t *testing.T) {
	reg := registry.New()
	reg.Add("<a>", "Header", []byte("x"))
	mux := newMux(t, reg, &fakeExport{}, &fakeSnapshots{})

	rec := do(mux, http.MethodGet, "/manifest", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, contentTypeJSON, rec.Header().Get("Content-Type"))

	var m entity.Manifest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	require.Equal(t, int64(1), m.TotalSize)
	require.Equal(t, "<a>", m.Files[0].Name)

	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	rec = do(mux, http.MethodGet, "/manifest", "", "If-None-Match", etag)
	require.Equal(t, http.StatusNotModified, rec.Code)

	rec = do(mux, http.MethodGet, "/index.html", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, contentTypeHTML, rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), "<li>&lt;a&gt; (Header, 1 bytes)</li>")

	reg.Add("b", "Header", nil)
	rec = do(mux, http.MethodGet, "/manifest", "", "If-None-Match", etag)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestExportRoute(t *testing.T) {
	testCases := []struct {
		name         string
		err          error
		expectedCode int
	}{
		{name: "ok", expectedCode: http.StatusOK},
		{name: "running", err: common.ErrExportHasAlreadyStarted, expectedCode: http.StatusConflict},
		{name: "empty", err: common.ErrNothingToExportError, expectedCode: http.StatusUnprocessableEntity},
		{name: "not configured", err: common.ErrPublishingIsNotConfigured, expectedCode: http.StatusNotImplemented},
		{name: "failed", err: io.ErrUnexpectedEOF, expectedCode: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mux := newMux(t, registry.New(), &fakeExport{err: tc.err}, &fakeSnapshots{})

			rec := do(mux, http.MethodPost, "/export", "")
			require.Equal(t, tc.expectedCode, rec.Code)

			if tc.err == nil {
				var info entity.SnapshotInfo
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
				require.Equal(t, "id", info.ID)
				require.Equal(t, 1, info.FileCount)
			}
		})
	}
}

func TestPublishedRoutes(t *testing.T) {
	snaps := &fakeSnapshots{}
	mux := newMux(t, registry.New(), &fakeExport{}, snaps)

	require.Equal(t, http.StatusNotFound, do(mux, http.MethodGet, "/published/manifest", "").Code)
	require.Equal(t, http.StatusNotImplemented, do(mux, http.MethodGet, "/published/index.html", "").Code)
	require.Equal(t, http.StatusNotFound, do(mux, http.MethodGet, "/published/info", "").Code)
	require.Equal(t, http.StatusNotFound, do(mux, http.MethodGet, "/published/description.html", "").Code)

	snaps.snapshot = &entity.Snapshot{
		ID:          "id",
		Manifest:    `{"files":[],"total_size":0}`,
		Index:       "<html></html>",
		Descriptors: []string{`{"name":"a","type":"","size":0}`},
		Description: "<p>desc</p>",
	}

	rec := do(mux, http.MethodGet, "/published/manifest", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, snaps.snapshot.Manifest, rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("ETag"))

	rec = do(mux, http.MethodGet, "/published/index.html", "")
	require.Equal(t, snaps.snapshot.Index, rec.Body.String())

	rec = do(mux, http.MethodGet, "/published/description.html", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, contentTypeHTML, rec.Header().Get("Content-Type"))
	require.Equal(t, "<p>desc</p>", rec.Body.String())

	for i, expected := range []string{snaps.snapshot.Descriptors[0], "{}"} {
		rec = do(mux, http.MethodGet, "/published/files/"+strconv.Itoa(i), "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, expected, rec.Body.String())
	}

	require.Equal(t, http.StatusBadRequest, do(mux, http.MethodGet, "/published/files/x", "").Code)

	rec = do(mux, http.MethodGet, "/published/info", "")
	require.JSONEq(t, `{"id":"id","hash":"","file_count":0,"created_at":"0001-01-01T00:00:00Z"}`, rec.Body.String())
}
