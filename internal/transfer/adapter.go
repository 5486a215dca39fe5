package transfer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/oshokin/songbook-offline/internal/constants"
	"github.com/oshokin/songbook-offline/internal/logger"
	"github.com/oshokin/songbook-offline/internal/scheduler"
	"github.com/oshokin/songbook-offline/internal/utils"
)

// Static error definitions for better error handling.
var (
	// ErrUnsupportedScheme indicates that the source URL is not http(s).
	ErrUnsupportedScheme = errors.New("unsupported source URL scheme")
	// ErrUnexpectedHTTPStatus indicates a non-2xx response.
	ErrUnexpectedHTTPStatus = errors.New("unexpected HTTP status")
	// ErrIncompleteDownload indicates that fewer or more bytes arrived than the server announced.
	ErrIncompleteDownload = errors.New("incomplete download")
)

const throttleInterval = time.Second

// Config holds the HTTPAdapter settings.
type Config struct {
	// SpeedLimit is the maximum number of bytes per second per transfer; zero means unlimited.
	SpeedLimit int64
}

// HTTPAdapter downloads files over HTTP(S). It implements scheduler.TransferAdapter and scheduler.Canceler.
type HTTPAdapter struct {
	client     *resty.Client
	speedLimit int64

	mu       *sync.Mutex
	inflight map[scheduler.JobID]context.CancelFunc
}

// NewHTTPAdapter creates an HTTPAdapter that sends requests through client.
func NewHTTPAdapter(client *resty.Client, cfg Config) *HTTPAdapter {
	return &HTTPAdapter{
		client:     client,
		speedLimit: max(cfg.SpeedLimit, 0),
		mu:         &sync.Mutex{},
		inflight:   make(map[scheduler.JobID]context.CancelFunc),
	}
}

// Transfer streams the source into a unique .part file next to the destination, hashing it on the way,
// and renames it onto the destination once every byte has arrived.
func (a *HTTPAdapter) Transfer(
	ctx context.Context,
	req scheduler.TransferRequest,
	onProgress scheduler.ProgressFunc,
) (scheduler.TransferResult, error) {
	if err := checkScheme(req.SourceURL); err != nil {
		return scheduler.TransferResult{}, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.track(req.JobID, cancel)
	defer a.untrack(req.JobID)

	resp, err := a.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(req.SourceURL)
	if err != nil {
		return scheduler.TransferResult{}, fmt.Errorf("failed to request %s: %w", req.SourceURL, err)
	}

	body := resp.RawBody()
	defer body.Close() //nolint:errcheck // Error on close is not critical here.

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return scheduler.TransferResult{}, fmt.Errorf("%w: %s for %s", ErrUnexpectedHTTPStatus, resp.Status(), req.SourceURL)
	}

	var totalBytes int64 = -1
	if resp.RawResponse != nil {
		totalBytes = resp.RawResponse.ContentLength
	}

	return a.save(ctx, req, body, totalBytes, onProgress)
}

// save writes body into a .part file and renames it onto the destination.
func (a *HTTPAdapter) save(
	ctx context.Context,
	req scheduler.TransferRequest,
	body io.Reader,
	totalBytes int64,
	onProgress scheduler.ProgressFunc,
) (scheduler.TransferResult, error) {
	dir := filepath.Dir(req.DestinationPath)
	if err := os.MkdirAll(dir, constants.DefaultFolderPermissions); err != nil {
		return scheduler.TransferResult{}, fmt.Errorf("failed to create folder %s: %w", dir, err)
	}

	partPath := utils.SetFileExtension(req.DestinationPath+"."+uuid.NewString(), constants.ExtensionPart, false)

	f, err := os.OpenFile(filepath.Clean(partPath), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, constants.DefaultFilePermissions)
	if err != nil {
		return scheduler.TransferResult{}, fmt.Errorf("failed to create temporary file: %w", err)
	}

	var succeeded bool

	defer func() {
		closeErr := f.Close()

		if succeeded {
			return
		}

		if removeErr := os.Remove(partPath); removeErr != nil && !os.IsNotExist(removeErr) {
			logger.Warnf(ctx, "Failed to clean up temporary file '%s': %v (close error: %v)",
				partPath, removeErr, closeErr)
		}
	}()

	var (
		hasher  = sha256.New()
		counter = &progressWriter{total: totalBytes, onProgress: onProgress}
		writer  = io.MultiWriter(f, hasher, counter)
	)

	written, err := a.copy(ctx, writer, body)
	if err != nil {
		return scheduler.TransferResult{}, fmt.Errorf("failed to write file: %w", err)
	}

	if totalBytes >= 0 && written != totalBytes {
		return scheduler.TransferResult{}, fmt.Errorf("%w: wrote %d bytes, expected %d bytes",
			ErrIncompleteDownload, written, totalBytes)
	}

	if err = f.Close(); err != nil {
		return scheduler.TransferResult{}, fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err = os.Rename(partPath, req.DestinationPath); err != nil {
		return scheduler.TransferResult{}, fmt.Errorf("failed to move file into place: %w", err)
	}

	succeeded = true

	logger.DebugKV(ctx, "File transferred",
		"job_id", req.JobID, "kind", req.Kind, "path", req.DestinationPath, "bytes", written)

	return scheduler.TransferResult{
		Kind:            req.Kind,
		DestinationPath: req.DestinationPath,
		SizeBytes:       written,
		SHA256:          hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// copy moves bytes from src to dst, at most speedLimit bytes per second when a limit is set.
func (a *HTTPAdapter) copy(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	if a.speedLimit == 0 {
		return io.Copy(dst, src)
	}

	var written int64

	for {
		n, err := io.CopyN(dst, src, a.speedLimit)
		written += n

		if errors.Is(err, io.EOF) {
			return written, nil
		}

		if err != nil {
			return written, err
		}

		// Throttle to respect speed limit.
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		case <-time.After(throttleInterval):
		}
	}
}

// Exists reports whether a regular file exists at path.
func (a *HTTPAdapter) Exists(_ context.Context, path string) (bool, error) {
	return utils.IsFileExist(path)
}

// Cancel aborts the in-flight transfer of the job, if any.
func (a *HTTPAdapter) Cancel(jobID scheduler.JobID) {
	a.mu.Lock()
	cancel, ok := a.inflight[jobID]
	a.mu.Unlock()

	if ok {
		cancel()
	}
}

func (a *HTTPAdapter) track(jobID scheduler.JobID, cancel context.CancelFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.inflight[jobID] = cancel
}

func (a *HTTPAdapter) untrack(jobID scheduler.JobID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.inflight, jobID)
}

func checkScheme(rawURL string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnsupportedScheme, err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%w: '%s'", ErrUnsupportedScheme, rawURL)
	}

	return nil
}

// progressWriter reports the fraction of total written so far.
type progressWriter struct {
	written    int64
	total      int64
	onProgress scheduler.ProgressFunc
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))

	if w.onProgress != nil && w.total > 0 {
		w.onProgress(float64(w.written) / float64(w.total))
	}

	return len(p), nil
}
