package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"gopkg.in/yaml.v3"
)

// PublishedVersions maps each extension to the versions a publishing
// service already knows about.
type PublishedVersions map[ExtensionID][]string

// Contains reports whether version has been published for id. known is false
// when the index has no record of id at all.
func (p PublishedVersions) Contains(id ExtensionID, version string) (known, contains bool) {
	versions, ok := p[id]
	if !ok {
		return false, false
	}
	return true, slices.Contains(versions, version)
}

// PublishedSource returns the published-versions index
type PublishedSource interface {
	Published(ctx context.Context) (PublishedVersions, error)
}

// FileSource reads the index from a local YAML or JSON file
type FileSource struct {
	Path string
}

func (s *FileSource) Published(ctx context.Context) (PublishedVersions, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read published index: %w", err)
	}

	versions := PublishedVersions{}
	if err := yaml.Unmarshal(data, &versions); err != nil {
		return nil, fmt.Errorf("failed to parse published index %s: %w", s.Path, err)
	}
	return versions, nil
}

// HTTPSource fetches the index as JSON from a URL, consulting the on-disk
// cache first unless it has expired.
type HTTPSource struct {
	URL    string
	Client *retryablehttp.Client
	Cache  *CacheManager // optional
}

// NewHTTPSource creates an HTTP source with a retrying client
func NewHTTPSource(url string, cache *CacheManager) *HTTPSource {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 500 * time.Millisecond
	client.Logger = nil
	return &HTTPSource{
		URL:    url,
		Client: client,
		Cache:  cache,
	}
}

func (s *HTTPSource) Published(ctx context.Context) (PublishedVersions, error) {
	if s.Cache != nil {
		if err := s.Cache.Load(); err == nil && s.Cache.IsValid(s.URL) {
			return s.Cache.Get(), nil
		}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch published index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("failed to fetch published index: %s: %s", resp.Status, body)
	}

	versions := PublishedVersions{}
	if err := json.NewDecoder(resp.Body).Decode(&versions); err != nil {
		return nil, fmt.Errorf("failed to decode published index: %w", err)
	}

	if s.Cache != nil {
		// Non-fatal; the index was fetched
		_ = s.Cache.Set(s.URL, versions)
	}

	return versions, nil
}
