package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"catalogtree/internal/domain"
)

// Provider implements ports.ItemProvider over a directory tree. Keys are
// absolute paths; the empty key is the configured root.
type Provider struct {
	root       string
	showHidden bool
}

// Option configures a Provider
type Option func(*Provider)

// WithHidden includes dot files and directories
func WithHidden(show bool) Option {
	return func(p *Provider) {
		p.showHidden = show
	}
}

// NewProvider creates a new filesystem provider rooted at root
func NewProvider(root string, opts ...Option) (*Provider, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(root, "~") {
		home, _ := os.UserHomeDir()
		root = filepath.Join(home, root[1:])
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", abs)
	}

	p := &Provider{root: abs}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Root returns the absolute root directory
func (p *Provider) Root() string {
	return p.root
}

// RootName returns the root directory's base name
func (p *Provider) RootName() string {
	return filepath.Base(p.root)
}

// Path resolves a key to a filesystem path
func (p *Provider) Path(key string) string {
	if key == "" {
		return p.root
	}
	return key
}

// ListChildren lists one page of a directory: directories first, then
// files, each sorted by name. The page token is the offset of the first
// entry.
func (p *Provider) ListChildren(ctx context.Context, key, pageToken string, limit int) (domain.Page, error) {
	if err := ctx.Err(); err != nil {
		return domain.Page{}, err
	}
	if limit < 1 {
		return domain.Page{}, fmt.Errorf("invalid page size: %d", limit)
	}

	offset := 0
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil || n < 0 {
			return domain.Page{}, fmt.Errorf("invalid page token: %q", pageToken)
		}
		offset = n
	}

	dir := p.Path(key)
	if !p.contains(dir) {
		return domain.Page{}, fmt.Errorf("%s is outside %s", dir, p.root)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return domain.Page{}, fmt.Errorf("failed to read directory: %w", err)
	}

	var visible []os.DirEntry
	for _, e := range entries {
		if !p.showHidden && strings.HasPrefix(e.Name(), ".") {
			continue
		}
		visible = append(visible, e)
	}
	sort.SliceStable(visible, func(i, j int) bool {
		di, dj := visible[i].IsDir(), visible[j].IsDir()
		if di != dj {
			return di
		}
		return visible[i].Name() < visible[j].Name()
	})

	if offset > len(visible) {
		offset = len(visible)
	}
	end := min(offset+limit, len(visible))

	page := domain.Page{Items: make([]domain.Item, 0, end-offset)}
	for _, e := range visible[offset:end] {
		page.Items = append(page.Items, p.item(dir, e))
	}
	if end < len(visible) {
		page.NextPageToken = strconv.Itoa(end)
	}
	return page, nil
}

func (p *Provider) item(dir string, e os.DirEntry) domain.Item {
	item := domain.Item{
		Key:        filepath.Join(dir, e.Name()),
		Name:       e.Name(),
		Expandable: e.IsDir(),
	}
	// A vanished entry is still listed, just without metadata
	if info, err := e.Info(); err == nil {
		item.Metadata = map[string]string{
			"mode":  info.Mode().String(),
			"mtime": info.ModTime().Format(time.RFC3339),
		}
		if !e.IsDir() {
			item.Metadata["size"] = strconv.FormatInt(info.Size(), 10)
		}
	}
	return item
}

func (p *Provider) contains(path string) bool {
	rel, err := filepath.Rel(p.root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
