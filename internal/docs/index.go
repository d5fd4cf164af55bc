// Package docs searches prebuilt documentation indexes for the std, core
// and alloc crates.
package docs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"gopkg.in/yaml.v3"
)

type Source string

const (
	SourceStd   Source = "std"
	SourceCore  Source = "core"
	SourceAlloc Source = "alloc"
)

var Sources = []Source{SourceStd, SourceCore, SourceAlloc}

// ParseSource maps a user supplied crate name onto a source.
func ParseSource(value string) (Source, bool) {
	switch Source(strings.ToLower(strings.TrimSpace(value))) {
	case SourceStd:
		return SourceStd, true
	case SourceCore:
		return SourceCore, true
	case SourceAlloc:
		return SourceAlloc, true
	}
	return "", false
}

// Color is the embed accent used for each source.
func (s Source) Color() int {
	switch s {
	case SourceAlloc:
		return 0x8E24AA
	case SourceCore:
		return 0xF4511E
	default:
		return 0x1E88E5
	}
}

type Item struct {
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Docs string `json:"docs,omitempty" yaml:"docs,omitempty"`
}

// Extensions lists the index file formats, in lookup order.
var Extensions = []string{".json", ".yaml", ".yml"}

// Index holds one item list per source, loaded from <dir>/<source>.json
// or a YAML file of the same shape.
type Index struct {
	dir    string
	logger *slog.Logger

	mu    sync.RWMutex
	items map[Source][]Item
}

func New(dir string, logger *slog.Logger) *Index {
	return &Index{
		dir:    strings.TrimSpace(dir),
		logger: logger,
		items:  map[Source][]Item{},
	}
}

func (i *Index) Dir() string {
	return i.dir
}

// Load reads every source file present in the index directory. Missing
// files leave that source empty.
func (i *Index) Load() error {
	if i.dir == "" {
		return nil
	}
	for _, source := range Sources {
		for _, ext := range Extensions {
			path := filepath.Join(i.dir, string(source)+ext)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				continue
			}
			if err := i.loadFile(source, path); err != nil {
				return err
			}
			break
		}
	}
	return nil
}

// Reload refreshes the source backing path. Files that are not index
// files are ignored.
func (i *Index) Reload(ctx context.Context, path string) {
	ext := strings.ToLower(filepath.Ext(path))
	if !isIndexExt(ext) {
		return
	}
	source, ok := ParseSource(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	if !ok {
		return
	}
	if err := i.loadFile(source, path); err != nil {
		i.logger.Error("docs index reload failed", "source", source, "path", path, "error", err)
		return
	}
	i.logger.Info("docs index reloaded", "source", source, "items", i.Count(source))
}

func (i *Index) loadFile(source Source, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read docs index %s: %w", path, err)
	}
	var items []Item
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &items)
	default:
		err = json.Unmarshal(raw, &items)
	}
	if err != nil {
		return fmt.Errorf("decode docs index %s: %w", path, err)
	}
	i.Set(source, items)
	return nil
}

func isIndexExt(ext string) bool {
	for _, candidate := range Extensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

func (i *Index) Set(source Source, items []Item) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.items[source] = items
}

func (i *Index) Count(source Source) int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.items[source])
}

type match struct {
	item     Item
	tier     int
	distance int
}

// Search ranks items of source against query: exact names first, then
// prefixes, then substrings, then close misspellings.
func (i *Index) Search(source Source, query string, limit int) []Item {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	if limit < 1 {
		limit = 1
	}
	i.mu.RLock()
	items := i.items[source]
	i.mu.RUnlock()

	maxDistance := len(query)/3 + 1
	matches := make([]match, 0, limit)
	for _, item := range items {
		name := strings.ToLower(item.Name)
		path := strings.ToLower(item.Path)
		switch {
		case name == query || path == query:
			matches = append(matches, match{item: item, tier: 0})
		case strings.HasPrefix(name, query):
			matches = append(matches, match{item: item, tier: 1, distance: len(name) - len(query)})
		case strings.Contains(path, query):
			matches = append(matches, match{item: item, tier: 2, distance: len(path) - len(query)})
		default:
			if distance := levenshtein.ComputeDistance(name, query); distance <= maxDistance {
				matches = append(matches, match{item: item, tier: 3, distance: distance})
			}
		}
	}
	sort.SliceStable(matches, func(a, b int) bool {
		if matches[a].tier != matches[b].tier {
			return matches[a].tier < matches[b].tier
		}
		if matches[a].distance != matches[b].distance {
			return matches[a].distance < matches[b].distance
		}
		return len(matches[a].item.Path) < len(matches[b].item.Path)
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	result := make([]Item, 0, len(matches))
	for _, m := range matches {
		result = append(result, m.item)
	}
	return result
}
