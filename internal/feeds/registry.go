// Package feeds holds the registry of GTFS-realtime feeds the collector polls.
package feeds

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed feeds.yml
var defaultFeeds []byte

// Feed is one independently fetched GTFS-realtime endpoint.
type Feed struct {
	ID   string `yaml:"id" validate:"required"`
	Path string `yaml:"path" validate:"required"`
}

type registryFile struct {
	Feeds []Feed `yaml:"feeds" validate:"required,min=1,dive"`
}

// Registry is an immutable, ordered set of feeds.
type Registry struct {
	feeds []Feed
	byID  map[string]int
}

// NewRegistry builds a registry from a feed id -> path mapping, ordered by id.
func NewRegistry(paths map[string]string) *Registry {
	ids := make([]string, 0, len(paths))
	for id := range paths {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	feeds := make([]Feed, 0, len(ids))
	for _, id := range ids {
		feeds = append(feeds, Feed{ID: id, Path: paths[id]})
	}
	r, _ := newRegistry(feeds)
	return r
}

func newRegistry(feeds []Feed) (*Registry, error) {
	r := &Registry{
		feeds: make([]Feed, 0, len(feeds)),
		byID:  make(map[string]int, len(feeds)),
	}
	for _, f := range feeds {
		if _, dup := r.byID[f.ID]; dup {
			return nil, fmt.Errorf("duplicate feed id %q", f.ID)
		}
		r.byID[f.ID] = len(r.feeds)
		r.feeds = append(r.feeds, f)
	}
	return r, nil
}

// Default returns the embedded NYC Subway registry.
func Default() (*Registry, error) {
	return parse(defaultFeeds)
}

// Load reads a YAML registry file. An empty path yields the default registry.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feed registry: %w", err)
	}
	r, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Parse decodes a YAML registry document.
func Parse(in io.Reader) (*Registry, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("read feed registry: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode feed registry: %w", err)
	}
	if err := validator.New().Struct(file); err != nil {
		return nil, fmt.Errorf("invalid feed registry: %w", err)
	}
	return newRegistry(file.Feeds)
}

// Feeds returns a copy of the registered feeds in registry order.
func (r *Registry) Feeds() []Feed {
	out := make([]Feed, len(r.feeds))
	copy(out, r.feeds)
	return out
}

// Lookup returns the feed registered under id.
func (r *Registry) Lookup(id string) (Feed, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Feed{}, false
	}
	return r.feeds[i], true
}

// Len returns the number of registered feeds.
func (r *Registry) Len() int {
	return len(r.feeds)
}
