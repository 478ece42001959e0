package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/channelgate/channelgate/internal/config"
	ierr "github.com/channelgate/channelgate/internal/errors"
	"github.com/channelgate/channelgate/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, maxMB int64) *Service {
	t.Helper()
	svc, err := NewService(config.RelayConfig{
		Enabled:       true,
		TempDir:       t.TempDir(),
		MaxFileSizeMB: maxMB,
		SessionTTL:    time.Minute,
	}, logger.GetLogger())
	require.NoError(t, err)
	return svc
}

func TestIsDirectURL(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"https://example.com/file.zip", true},
		{"http://example.com/file.zip", true},
		{"  https://example.com/file.zip  ", true},
		{"ftp://example.com/file.zip", false},
		{"example.com/file.zip", false},
		{"/addpremium 42 7day", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsDirectURL(tt.text), "text %q", tt.text)
	}
}

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Length", "2048")
	}))
	defer srv.Close()

	svc := newTestService(t, 10)
	info, err := svc.Probe(context.Background(), srv.URL+"/archive.zip")
	require.NoError(t, err)
	assert.Equal(t, "archive.zip", info.Name)
	assert.Equal(t, int64(2048), info.Size)
	assert.Equal(t, "application/zip", info.ContentType)
}

func TestProbeRejectsOversizedFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "3145728") // 3MB
	}))
	defer srv.Close()

	svc := newTestService(t, 2)
	_, err := svc.Probe(context.Background(), srv.URL+"/big.bin")
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}

func TestProbeRejectsNonURL(t *testing.T) {
	svc := newTestService(t, 10)
	_, err := svc.Probe(context.Background(), "not a url")
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}

func TestDownload(t *testing.T) {
	content := strings.Repeat("x", 1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(content))
	}))
	defer srv.Close()

	svc := newTestService(t, 10)
	session := &Session{
		ID:           "rs_test",
		ChatID:       42,
		URL:          srv.URL + "/data.bin",
		OriginalName: "data.bin",
	}

	filePath, err := svc.Download(context.Background(), session)
	require.NoError(t, err)
	defer svc.Cleanup(filePath)

	data, err := os.ReadFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
	assert.Contains(t, filePath, "rs_test_data.bin")
}

func TestDownloadEnforcesSizeCapMidStream(t *testing.T) {
	// Serve more than the cap without a Content-Length so only the copy
	// loop can catch it.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chunk := make([]byte, 64*1024)
		for i := 0; i < 20; i++ { // ~1.25MB against a 1MB cap
			_, _ = w.Write(chunk)
			w.(http.Flusher).Flush()
		}
	}))
	defer srv.Close()

	svc := newTestService(t, 1)
	session := &Session{ID: "rs_cap", ChatID: 42, URL: srv.URL, OriginalName: "big.bin"}

	_, err := svc.Download(context.Background(), session)
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))

	// The partial file must not be left behind.
	entries, err := os.ReadDir(svc.cfg.TempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDownloadUsesRenamedFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("data"))
	}))
	defer srv.Close()

	svc := newTestService(t, 10)
	session := &Session{
		ID:           "rs_rename",
		ChatID:       42,
		URL:          srv.URL + "/original.bin",
		OriginalName: "original.bin",
		NewName:      "renamed.bin",
	}

	filePath, err := svc.Download(context.Background(), session)
	require.NoError(t, err)
	defer svc.Cleanup(filePath)
	assert.Contains(t, filePath, "renamed.bin")
}

func TestDownloadKeepsTraversalNamesInTempDir(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("data"))
	}))
	defer srv.Close()

	svc := newTestService(t, 10)
	session := &Session{
		ID:           "relay_escape",
		ChatID:       42,
		URL:          srv.URL + "/original.bin",
		OriginalName: "original.bin",
		NewName:      "/../../victim.txt",
	}

	filePath, err := svc.Download(context.Background(), session)
	require.NoError(t, err)
	defer svc.Cleanup(filePath)

	// The write must land inside the temp dir under a bare filename.
	assert.Equal(t, svc.cfg.TempDir, filepath.Dir(filePath))
	assert.Equal(t, "relay_escape_victim.txt", filepath.Base(filePath))

	entries, err := os.ReadDir(svc.cfg.TempDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestSessionStore(t *testing.T) {
	store := NewSessionStore(time.Minute)

	assert.Nil(t, store.Get(42))

	store.Put(&Session{ChatID: 42, URL: "https://example.com/a.zip", OriginalName: "a.zip"})
	session := store.Get(42)
	require.NotNil(t, session)
	assert.True(t, strings.HasPrefix(session.ID, "relay_"))
	assert.False(t, session.CreatedAt.IsZero())

	// A new session for the same chat replaces the previous one.
	store.Put(&Session{ChatID: 42, URL: "https://example.com/b.zip", OriginalName: "b.zip"})
	assert.Equal(t, "b.zip", store.Get(42).OriginalName)

	store.Delete(42)
	assert.Nil(t, store.Get(42))
}

func TestSessionStoreTTL(t *testing.T) {
	store := NewSessionStore(20 * time.Millisecond)
	store.Put(&Session{ChatID: 42, URL: "https://example.com/a.zip", OriginalName: "a.zip"})

	assert.Eventually(t, func() bool {
		return store.Get(42) == nil
	}, time.Second, 10*time.Millisecond)
}

func TestFinalName(t *testing.T) {
	s := &Session{OriginalName: "a.zip"}
	assert.Equal(t, "a.zip", s.FinalName())
	s.NewName = "b.zip"
	assert.Equal(t, "b.zip", s.FinalName())
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{512, "512 B"},
		{2048, "2.00 KB"},
		{5 * 1024 * 1024, "5.00 MB"},
		{3 * 1024 * 1024 * 1024, "3.00 GB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatFileSize(tt.bytes))
	}
}
