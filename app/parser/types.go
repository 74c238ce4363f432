package parser

import "time"

// RawEntry is the canonical shape both RSS 2.x and Atom entries converge
// on. URL is always present: entries without a resolvable link never leave
// the parser. Title is always non-empty: missing titles are synthesized
// from the entry body.
type RawEntry struct {
	GUID        string // empty = feed provided no GUID
	URL         string
	Title       string
	Description string
	Content     string
	Author      string
	PublishedAt *time.Time
	UpdatedAt   *time.Time
	Tags        []string
}

// Result carries the feed-level metadata plus the normalized entries.
// Dropped counts entries discarded for missing links; they are not errors.
type Result struct {
	Title       string
	Description string
	Entries     []RawEntry
	Dropped     int
}
