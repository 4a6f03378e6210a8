// Package memory serves a catalog tree held in memory, usually loaded from
// a YAML document.
package memory

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"

	"catalogtree/internal/domain"
)

// Entry is one node of a YAML catalog document.
type Entry struct {
	Name       string            `yaml:"name"`
	Expandable bool              `yaml:"expandable,omitempty"`
	Metadata   map[string]string `yaml:"metadata,omitempty"`
	Children   []Entry           `yaml:"children,omitempty"`
}

// Provider implements ports.ItemProvider over a fixed tree. Keys are the
// slash separated names below the root; the root key is empty.
type Provider struct {
	mu       sync.RWMutex
	name     string
	children map[string][]domain.Item
}

// NewProvider builds a provider from a root entry
func NewProvider(root Entry) *Provider {
	p := &Provider{
		name:     root.Name,
		children: make(map[string][]domain.Item),
	}
	p.add("", root.Children)
	return p
}

// Load reads a YAML catalog document
func Load(r io.Reader) (*Provider, error) {
	var root Entry
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if root.Name == "" {
		root.Name = "catalog"
	}
	return NewProvider(root), nil
}

// LoadFile reads a YAML catalog document from path
func LoadFile(path string) (*Provider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func (p *Provider) add(parent string, entries []Entry) {
	items := make([]domain.Item, 0, len(entries))
	for _, e := range entries {
		key := e.Name
		if parent != "" {
			key = parent + "/" + e.Name
		}
		expandable := e.Expandable || len(e.Children) > 0
		items = append(items, domain.Item{
			Key:        key,
			Name:       e.Name,
			Expandable: expandable,
			Metadata:   e.Metadata,
		})
		if expandable {
			p.add(key, e.Children)
		}
	}
	p.children[parent] = items
}

// RootName returns the document's root name
func (p *Provider) RootName() string {
	return p.name
}

// Replace swaps the children of key, for tests and live edits
func (p *Provider) Replace(key string, items []domain.Item) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.children[key] = items
}

// ListChildren returns one page of key's children. The page token is the
// offset of the first item.
func (p *Provider) ListChildren(ctx context.Context, key, pageToken string, limit int) (domain.Page, error) {
	if err := ctx.Err(); err != nil {
		return domain.Page{}, err
	}
	if limit < 1 {
		return domain.Page{}, fmt.Errorf("invalid page size: %d", limit)
	}

	p.mu.RLock()
	items, ok := p.children[key]
	p.mu.RUnlock()
	if !ok {
		return domain.Page{}, fmt.Errorf("unknown key: %q", key)
	}

	offset := 0
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil || n < 0 || n > len(items) {
			return domain.Page{}, fmt.Errorf("invalid page token: %q", pageToken)
		}
		offset = n
	}
	end := min(offset+limit, len(items))

	page := domain.Page{Items: append([]domain.Item(nil), items[offset:end]...)}
	if end < len(items) {
		page.NextPageToken = strconv.Itoa(end)
	}
	return page, nil
}
