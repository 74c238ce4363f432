// Package parser turns raw feed payloads into canonical entries. RSS 2.x
// and Atom both land on the same RawEntry shape; the dialect is gofeed's
// problem, charset normalization happens here first.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Songmu/go-httpdate"
	"github.com/mmcdole/gofeed"
)

var (
	// ErrInvalidFormat means the document is not a recognizable feed at
	// all (broken XML, unknown root). Document-level: the whole parse
	// aborts, nothing is salvaged.
	ErrInvalidFormat = errors.New("not a valid RSS/Atom document")
	// ErrUndecodable means no usable text could be recovered from the
	// payload under any supported encoding.
	ErrUndecodable = errors.New("payload is not decodable text")
)

// Entries missing a title get one synthesized from this many leading
// characters of their body.
const synthesizedTitleLen = 80

type Parser struct {
	gofeedParser *gofeed.Parser
}

func New() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

func (p *Parser) Parse(data []byte) (*Result, error) {
	decoded, salvaged, err := normalizeUTF8(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	// Only byte-salvaged payloads with no markup are undecodable; text
	// that decoded cleanly but isn't a feed is a format problem.
	if salvaged && !bytes.ContainsRune(decoded, '<') {
		return nil, fmt.Errorf("%w: no markup recovered", ErrUndecodable)
	}

	feed, err := p.gofeedParser.Parse(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	result := &Result{
		Title:       feed.Title,
		Description: feed.Description,
		Entries:     make([]RawEntry, 0, len(feed.Items)),
	}

	for _, item := range feed.Items {
		entry, ok := p.normalizeEntry(item)
		if !ok {
			result.Dropped++
			continue
		}
		result.Entries = append(result.Entries, entry)
	}

	if result.Dropped > 0 {
		slog.Debug("Dropped entries without a resolvable link",
			"feed", result.Title, "dropped", result.Dropped)
	}

	return result, nil
}

func (p *Parser) normalizeEntry(item *gofeed.Item) (RawEntry, bool) {
	if item == nil {
		return RawEntry{}, false
	}

	link := strings.TrimSpace(item.Link)
	if link == "" {
		// No resolvable link, nothing downstream could address it by.
		return RawEntry{}, false
	}

	entry := RawEntry{
		GUID:        strings.TrimSpace(item.GUID),
		URL:         link,
		Description: item.Description,
		Content:     item.Content,
		Author:      firstAuthor(item),
		PublishedAt: parseDate(item.PublishedParsed, item.Published),
		UpdatedAt:   parseDate(item.UpdatedParsed, item.Updated),
		Tags:        item.Categories,
	}

	entry.Title = strings.TrimSpace(item.Title)
	if entry.Title == "" {
		entry.Title = synthesizeTitle(entry.Content, entry.Description)
	}

	return entry, true
}

// parseDate prefers gofeed's parsed value and falls back to a lenient
// HTTP-date parse of the raw string. Unparseable dates are absent, never
// an error.
func parseDate(parsed *time.Time, raw string) *time.Time {
	if parsed != nil {
		t := parsed.UTC()
		return &t
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	t, err := httpdate.Str2Time(raw, time.UTC)
	if err != nil || t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}

func firstAuthor(item *gofeed.Item) string {
	for _, a := range item.Authors {
		if a == nil {
			continue
		}
		if name := strings.TrimSpace(a.Name); name != "" {
			return name
		}
		if email := strings.TrimSpace(a.Email); email != "" {
			return email
		}
	}
	if item.Author != nil {
		if name := strings.TrimSpace(item.Author.Name); name != "" {
			return name
		}
		return strings.TrimSpace(item.Author.Email)
	}
	return ""
}

// synthesizeTitle builds a title from the leading characters of the entry
// body so no entry is ever stored without one.
func synthesizeTitle(content, description string) string {
	body := strings.TrimSpace(content)
	if body == "" {
		body = strings.TrimSpace(description)
	}
	if body == "" {
		return "Untitled"
	}

	runes := []rune(strings.Join(strings.Fields(body), " "))
	if len(runes) > synthesizedTitleLen {
		runes = runes[:synthesizedTitleLen]
	}
	return string(runes)
}
