package domain

// Item is an opaque descriptor yielded by a provider for one child entry.
type Item struct {
	Key        string            `json:"key" yaml:"key"`
	Name       string            `json:"name" yaml:"name"`
	Expandable bool              `json:"expandable" yaml:"expandable"`
	Metadata   map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Page is one bounded batch of provider results. An empty NextPageToken
// means there are no further pages.
type Page struct {
	Items         []Item `json:"items"`
	NextPageToken string `json:"next_page_token,omitempty"`
}

// HasMore reports whether another page can be requested.
func (p Page) HasMore() bool {
	return p.NextPageToken != ""
}
