package relay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/channelgate/channelgate/internal/config"
	ierr "github.com/channelgate/channelgate/internal/errors"
	"github.com/channelgate/channelgate/internal/logger"
	"github.com/hashicorp/go-retryablehttp"
)

// FileInfo is what a URL probe learns about the remote file.
type FileInfo struct {
	Name        string
	Size        int64
	ContentType string
}

// Service downloads files from direct URLs into a temp dir so the bot can
// re-upload them to a chat. Intentionally shallow: nothing persists and any
// failure just surfaces as an error reply.
type Service struct {
	cfg        config.RelayConfig
	log        *logger.Logger
	httpClient *http.Client
}

// NewService creates the relay service and ensures the temp dir exists.
func NewService(cfg config.RelayConfig, log *logger.Logger) (*Service, error) {
	if err := os.MkdirAll(cfg.TempDir, 0o755); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to create relay temp directory").
			Mark(ierr.ErrSystem)
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.HTTPClient.Timeout = 0 // large downloads are bounded by context, not a flat timeout
	rc.Logger = log.GetRetryableHTTPLogger()

	return &Service{
		cfg:        cfg,
		log:        log,
		httpClient: rc.StandardClient(),
	}, nil
}

// IsDirectURL reports whether the text looks like a direct http(s) link.
func IsDirectURL(text string) bool {
	u, err := url.Parse(strings.TrimSpace(text))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// MaxFileSizeBytes returns the configured size cap in bytes.
func (s *Service) MaxFileSizeBytes() int64 {
	return s.cfg.MaxFileSizeMB * 1024 * 1024
}

// Probe issues a HEAD request to learn the file's name, size and type
// before anything is downloaded.
func (s *Service) Probe(ctx context.Context, rawURL string) (*FileInfo, error) {
	if !IsDirectURL(rawURL) {
		return nil, ierr.NewErrorf("not a direct download link: %q", rawURL).
			WithHint("Only direct http/https download links are supported").
			Mark(ierr.ErrValidation)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrValidation)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Could not reach the download link").
			Mark(ierr.ErrHTTPClient)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, ierr.NewErrorf("probe returned status %d", resp.StatusCode).
			WithHint("The download link did not respond successfully").
			Mark(ierr.ErrHTTPClient)
	}

	info := &FileInfo{
		Name:        filenameFromURL(rawURL),
		Size:        resp.ContentLength,
		ContentType: resp.Header.Get("Content-Type"),
	}
	if info.Size > 0 && info.Size > s.MaxFileSizeBytes() {
		return nil, ierr.NewErrorf("file too large: %d bytes", info.Size).
			WithHintf("File is too large (%s). Max allowed: %dMB",
				FormatFileSize(info.Size), s.cfg.MaxFileSizeMB).
			Mark(ierr.ErrValidation)
	}

	return info, nil
}

// Download streams the URL into the temp dir and returns the local path.
// The size cap is enforced during the copy as well, since HEAD responses
// may omit Content-Length. Callers must remove the returned file.
func (s *Service) Download(ctx context.Context, session *Session) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, session.URL, nil)
	if err != nil {
		return "", ierr.WithError(err).Mark(ierr.ErrValidation)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Download failed. Invalid link or network error").
			Mark(ierr.ErrHTTPClient)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", ierr.NewErrorf("download returned status %d", resp.StatusCode).
			WithHint("Download failed. Invalid link or network error").
			Mark(ierr.ErrHTTPClient)
	}

	// The final name is user-controlled; reduce it to a bare filename so a
	// name carrying separators or ".." segments cannot climb out of the
	// temp dir.
	fileName := filepath.Base(session.FinalName())
	if fileName == "." || fileName == ".." || fileName == string(filepath.Separator) {
		fileName = "file"
	}
	filePath := filepath.Join(s.cfg.TempDir, session.ID+"_"+fileName)
	out, err := os.Create(filePath)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to write the downloaded file").
			Mark(ierr.ErrSystem)
	}
	defer out.Close()

	limit := s.MaxFileSizeBytes()
	written, err := io.Copy(out, io.LimitReader(resp.Body, limit+1))
	if err != nil {
		os.Remove(filePath)
		return "", ierr.WithError(err).
			WithHint("Download was interrupted").
			Mark(ierr.ErrHTTPClient)
	}
	if written > limit {
		os.Remove(filePath)
		return "", ierr.NewErrorf("file exceeds size cap of %dMB", s.cfg.MaxFileSizeMB).
			WithHintf("File is too large. Max allowed: %dMB", s.cfg.MaxFileSizeMB).
			Mark(ierr.ErrValidation)
	}

	s.log.Infow("downloaded relay file",
		"session_id", session.ID, "bytes", written, "path", filePath)

	return filePath, nil
}

// Cleanup removes a downloaded temp file, logging failures.
func (s *Service) Cleanup(filePath string) {
	if filePath == "" {
		return
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		s.log.Warnw("failed to remove relay temp file", "path", filePath, "error", err)
	}
}

// filenameFromURL derives a filename from the URL path, with a generated
// fallback when the path has none.
func filenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "file"
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "file"
	}
	return name
}

// FormatFileSize renders a byte count for chat replies.
func FormatFileSize(bytes int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
