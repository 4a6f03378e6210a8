package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"catalogtree/internal/domain"
)

var errBackendDown = errors.New("backend down")

// pagedProvider serves fixed child lists with offset tokens.
type pagedProvider struct {
	children map[string][]domain.Item
	calls    int
	failNext bool
	failKeys map[string]bool
}

func newPagedProvider() *pagedProvider {
	return &pagedProvider{
		children: make(map[string][]domain.Item),
		failKeys: make(map[string]bool),
	}
}

func (p *pagedProvider) add(parent string, names ...string) {
	for _, name := range names {
		p.children[parent] = append(p.children[parent], domain.Item{Key: parent + "/" + name, Name: name})
	}
}

func (p *pagedProvider) addBranch(parent string, names ...string) {
	for _, name := range names {
		p.children[parent] = append(p.children[parent], domain.Item{Key: parent + "/" + name, Name: name, Expandable: true})
	}
}

func (p *pagedProvider) ListChildren(_ context.Context, key, pageToken string, limit int) (domain.Page, error) {
	p.calls++
	if p.failNext || p.failKeys[key] {
		p.failNext = false
		return domain.Page{}, errBackendDown
	}
	offset := 0
	if pageToken != "" {
		var err error
		offset, err = strconv.Atoi(pageToken)
		if err != nil {
			return domain.Page{}, fmt.Errorf("bad token %q", pageToken)
		}
	}
	items := p.children[key]
	end := min(offset+limit, len(items))
	page := domain.Page{Items: append([]domain.Item(nil), items[offset:end]...)}
	if end < len(items) {
		page.NextPageToken = strconv.Itoa(end)
	}
	return page, nil
}

func names(nodes []*domain.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		if n.Sentinel {
			out[i] = "SENTINEL"
			continue
		}
		out[i] = n.Name
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
