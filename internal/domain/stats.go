package domain

import "time"

// CatalogStats summarizes the contents of a catalog index
type CatalogStats struct {
	Entries  int
	Branches int
	Source   string
}

// CrawlStats holds statistics from mirroring a provider into an index
type CrawlStats struct {
	Branches     int
	Entries      int
	PagesFetched int
	Failed       int
	Duration     time.Duration
}
