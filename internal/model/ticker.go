package model

import "time"

// Ticker is a watch-list entry. Symbol is unique; LastSync is nil until the
// first successful sync.
type Ticker struct {
	ID       int64
	Symbol   string
	Name     string
	Sector   string
	IsActive bool
	LastSync *time.Time
}

// LastSyncString renders the last sync timestamp for API output.
func (t *Ticker) LastSyncString() string {
	if t.LastSync == nil {
		return "Never"
	}
	return t.LastSync.UTC().Format("2006-01-02 15:04")
}
