// Package registry holds the static per-source tables: origin, pagination
// template and the category key / id / display name mapping.
package registry

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed sources.yaml
var defaultSources []byte

// Lookup and validation errors.
var (
	ErrUnknownSource     = errors.New("unknown source")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrNoSources         = errors.New("at least one source is required")
	ErrMissingOrigin     = errors.New("source origin is required")
	ErrDuplicateSource   = errors.New("duplicate source name")
	ErrDuplicateCategory = errors.New("duplicate category")
)

// Category is one entry of a source's category table.
type Category struct {
	Key  string `yaml:"key"`
	ID   int    `yaml:"id"`
	Name string `yaml:"name"`
}

// Source is the read-only configuration of one news source.
type Source struct {
	Name        string     `yaml:"name"`
	DisplayName string     `yaml:"display_name"`
	Origin      string     `yaml:"origin"`
	PageSuffix  string     `yaml:"page_suffix"` // appended for page > 1, e.g. "-p%d"
	Feed        string     `yaml:"feed"`        // RSS path template with the category key
	Categories  []Category `yaml:"categories"`

	byKey map[string]Category
	byID  map[int]Category
}

// ListURL builds the listing URL of a category page. Page 1 has no suffix.
func (s *Source) ListURL(categoryKey string, page int) string {
	u := s.Origin + "/" + categoryKey
	if page > 1 {
		u += fmt.Sprintf(s.PageSuffix, page)
	}
	return u
}

// FeedURL returns the RSS feed of a category, or "" when the source has none.
func (s *Source) FeedURL(categoryKey string) string {
	if s.Feed == "" {
		return ""
	}
	return s.Origin + fmt.Sprintf(s.Feed, categoryKey)
}

// CategoryByKey looks up a category by its URL key.
func (s *Source) CategoryByKey(key string) (Category, error) {
	c, ok := s.byKey[key]
	if !ok {
		return Category{}, fmt.Errorf("%w %q for %s", ErrUnknownCategory, key, s.Name)
	}
	return c, nil
}

// CategoryByID looks up a category by its numeric id.
func (s *Source) CategoryByID(id int) (Category, error) {
	c, ok := s.byID[id]
	if !ok {
		return Category{}, fmt.Errorf("%w %d for %s", ErrUnknownCategory, id, s.Name)
	}
	return c, nil
}

// Category resolves either a category key or a numeric id given as text.
func (s *Source) Category(keyOrID string) (Category, error) {
	if c, ok := s.byKey[keyOrID]; ok {
		return c, nil
	}
	if id, err := strconv.Atoi(keyOrID); err == nil {
		return s.CategoryByID(id)
	}
	return Category{}, fmt.Errorf("%w %q for %s", ErrUnknownCategory, keyOrID, s.Name)
}

// CategoryIDs returns the key to id mapping.
func (s *Source) CategoryIDs() map[string]int {
	m := make(map[string]int, len(s.Categories))
	for _, c := range s.Categories {
		m[c.Key] = c.ID
	}
	return m
}

// CategoryNames returns the id to display name mapping.
func (s *Source) CategoryNames() map[int]string {
	m := make(map[int]string, len(s.Categories))
	for _, c := range s.Categories {
		m[c.ID] = c.Name
	}
	return m
}

func (s *Source) index() error {
	if s.Origin == "" {
		return fmt.Errorf("%s: %w", s.Name, ErrMissingOrigin)
	}
	s.byKey = make(map[string]Category, len(s.Categories))
	s.byID = make(map[int]Category, len(s.Categories))
	for _, c := range s.Categories {
		if _, dup := s.byKey[c.Key]; dup {
			return fmt.Errorf("%s: %w key %q", s.Name, ErrDuplicateCategory, c.Key)
		}
		if _, dup := s.byID[c.ID]; dup {
			return fmt.Errorf("%s: %w id %d", s.Name, ErrDuplicateCategory, c.ID)
		}
		s.byKey[c.Key] = c
		s.byID[c.ID] = c
	}
	return nil
}

// Registry is the set of known sources.
type Registry struct {
	sources map[string]*Source
}

// Load parses and validates a YAML source table.
func Load(data []byte) (*Registry, error) {
	var doc struct {
		Sources []*Source `yaml:"sources"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse source table: %w", err)
	}
	if len(doc.Sources) == 0 {
		return nil, ErrNoSources
	}

	r := &Registry{sources: make(map[string]*Source, len(doc.Sources))}
	for _, s := range doc.Sources {
		if _, dup := r.sources[s.Name]; dup {
			return nil, fmt.Errorf("%w %q", ErrDuplicateSource, s.Name)
		}
		if err := s.index(); err != nil {
			return nil, err
		}
		r.sources[s.Name] = s
	}
	return r, nil
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry built from the embedded source table.
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := Load(defaultSources)
		if err != nil {
			panic(fmt.Sprintf("registry: embedded source table: %v", err))
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// Source looks up a source by name.
func (r *Registry) Source(name string) (*Source, error) {
	s, ok := r.sources[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownSource, name)
	}
	return s, nil
}

// Names returns the known source names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
