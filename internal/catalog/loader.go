package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-resty/resty/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/songbook-offline/internal/logger"
)

//go:generate $MOCKGEN -source=loader.go -destination=mocks/loader_mock.go

// Loader loads manifests from files or URLs.
type Loader interface {
	// Load reads and validates the manifest at source, a local path or an http(s) URL.
	// The returned manifest may be shared with other callers and must not be modified.
	Load(ctx context.Context, source string) (*Manifest, error)
}

// Static error definitions for better error handling.
var (
	// ErrEmptySource indicates that no manifest location was configured.
	ErrEmptySource = errors.New("manifest source is empty")
	// ErrUnexpectedHTTPStatus indicates a failed manifest request.
	ErrUnexpectedHTTPStatus = errors.New("unexpected HTTP status")
	// ErrDecodeManifest indicates a manifest that is neither valid YAML nor JSON.
	ErrDecodeManifest = errors.New("failed to decode manifest")
)

const (
	// DefaultCacheSize is the number of remote manifests kept in memory.
	DefaultCacheSize = 8

	headerETag        = "ETag"
	headerIfNoneMatch = "If-None-Match"
)

// cachedManifest is a decoded remote manifest with the ETag it was served with.
type cachedManifest struct {
	etag     string
	manifest *Manifest
}

// LoaderImpl loads manifests, caching remote ones by URL.
type LoaderImpl struct {
	client *resty.Client
	cache  *lru.Cache[string, cachedManifest]
	group  *singleflight.Group
}

// NewLoader creates a Loader that fetches remote manifests with client.
func NewLoader(client *resty.Client, cacheSize int) (Loader, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	cache, err := lru.New[string, cachedManifest](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create manifest cache: %w", err)
	}

	return &LoaderImpl{
		client: client,
		cache:  cache,
		group:  &singleflight.Group{},
	}, nil
}

// Load reads the manifest at source. Concurrent loads of the same source share one request.
func (l *LoaderImpl) Load(ctx context.Context, source string) (*Manifest, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, ErrEmptySource
	}

	value, err, shared := l.group.Do(source, func() (any, error) {
		if isRemote(source) {
			return l.fetch(ctx, source)
		}

		return l.readFile(source)
	})
	if err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Manifest loaded", "source", source, "shared", shared)

	manifest, _ := value.(*Manifest)

	return manifest, nil
}

func (l *LoaderImpl) fetch(ctx context.Context, source string) (*Manifest, error) {
	request := l.client.R().SetContext(ctx)

	cached, isCached := l.cache.Get(source)
	if isCached && cached.etag != "" {
		request.SetHeader(headerIfNoneMatch, cached.etag)
	}

	response, err := request.Get(source)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch manifest: %w", err)
	}

	if response.StatusCode() == http.StatusNotModified && isCached {
		logger.DebugKV(ctx, "Manifest not modified", "source", source, "etag", cached.etag)

		return cached.manifest, nil
	}

	if !response.IsSuccess() {
		return nil, fmt.Errorf("%w: %s for %s", ErrUnexpectedHTTPStatus, response.Status(), source)
	}

	manifest, err := Decode(bytes.NewReader(response.Body()))
	if err != nil {
		return nil, err
	}

	l.cache.Add(source, cachedManifest{
		etag:     response.Header().Get(headerETag),
		manifest: manifest,
	})

	return manifest, nil
}

func (l *LoaderImpl) readFile(path string) (*Manifest, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}

	defer f.Close() //nolint:errcheck // Error on close is not critical here.

	return Decode(f)
}

// Decode parses and validates a YAML or JSON manifest.
func Decode(r io.Reader) (*Manifest, error) {
	var manifest Manifest

	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&manifest); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrDecodeManifest, err)
	}

	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	return &manifest, nil
}

func isRemote(source string) bool {
	parsedURL, err := url.Parse(source)
	if err != nil {
		return false
	}

	return parsedURL.Scheme == "http" || parsedURL.Scheme == "https"
}
