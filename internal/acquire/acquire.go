// Package acquire downloads paper PDFs into topic folders.
package acquire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/paper-harvest/internal/httputil"
	"github.com/pdiddy/paper-harvest/pkg/types"
)

// pdfMagic is the header every PDF file starts with.
var pdfMagic = []byte("%PDF")

// ErrExists is returned by Download when the destination file is already
// present; the existing file is left untouched.
var ErrExists = errors.New("file already exists")

// Request describes one PDF download.
type Request struct {
	// URL is the PDF location.
	URL string

	// Dir is the destination folder. It is created on first use.
	Dir string

	// Filename is the destination file name inside Dir.
	Filename string
}

// Path returns the destination path.
func (r Request) Path() string {
	return filepath.Join(r.Dir, r.Filename)
}

// Filename returns the PDF file name for a versioned arXiv ID. Old-style
// identifiers contain a slash, which is replaced so the file stays inside
// its topic folder.
func Filename(shortID string) string {
	return strings.ReplaceAll(shortID, "/", "_") + ".pdf"
}

// Download fetches req.URL to req.Path() using a temporary file in the
// destination folder, renamed into place on success. It sets User-Agent,
// requests PDF via the Accept header, retries transient failures, and
// rejects responses that are not PDFs. It returns the number of bytes
// written. If the destination exists, it returns ErrExists.
func Download(ctx context.Context, client *http.Client, req Request, cfg types.SearchConfig) (int64, error) {
	destPath := req.Path()
	if _, err := os.Stat(destPath); err == nil {
		return 0, ErrExists
	}

	if err := os.MkdirAll(req.Dir, 0o755); err != nil {
		return 0, fmt.Errorf("creating directory %s: %w", req.Dir, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("User-Agent", cfg.UserAgent)
	httpReq.Header.Set("Accept", "application/pdf")

	resp, err := httputil.DoWithRetry(ctx, client, httpReq, httputil.ConfiguredRetries(cfg.MaxRetries))
	if err != nil {
		return 0, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HTTP %d from %s", resp.StatusCode, req.URL)
	}

	head := make([]byte, len(pdfMagic))
	n, err := io.ReadFull(resp.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("reading response: %w", err)
	}
	head = head[:n]
	if !bytes.Equal(head, pdfMagic) {
		return 0, fmt.Errorf("response from %s is not a PDF (Content-Type %q)", req.URL, resp.Header.Get("Content-Type"))
	}

	tmpFile, err := os.CreateTemp(req.Dir, ".download-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	written, copyErr := io.Copy(tmpFile, io.MultiReader(bytes.NewReader(head), resp.Body))
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("renaming temp file: %w", err)
	}
	return written, nil
}
