package parser

import (
	"errors"
	"strings"
	"testing"
)

func TestParseRSS2(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <description>Test Description</description>
    <item>
      <title>Test Item 1</title>
      <link>https://example.com/item1</link>
      <description>Test Item 1 Description</description>
      <guid>item-1</guid>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
      <author>test@example.com (Test Author)</author>
      <category>Technology</category>
      <category>Programming</category>
    </item>
    <item>
      <title>Test Item 2</title>
      <link>https://example.com/item2</link>
      <description>Test Item 2 Description</description>
      <guid>item-2</guid>
      <pubDate>Mon, 03 Jul 2023 11:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

	p := New()
	result, err := p.Parse([]byte(rssData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if result.Title != "Test Feed" {
		t.Errorf("Expected title 'Test Feed', got: %s", result.Title)
	}
	if result.Description != "Test Description" {
		t.Errorf("Expected description 'Test Description', got: %s", result.Description)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("Expected 2 entries, got: %d", len(result.Entries))
	}
	if result.Dropped != 0 {
		t.Errorf("Expected no dropped entries, got: %d", result.Dropped)
	}

	entry := result.Entries[0]
	if entry.GUID != "item-1" {
		t.Errorf("Expected GUID 'item-1', got: %s", entry.GUID)
	}
	if entry.URL != "https://example.com/item1" {
		t.Errorf("Expected URL 'https://example.com/item1', got: %s", entry.URL)
	}
	if entry.Title != "Test Item 1" {
		t.Errorf("Expected title 'Test Item 1', got: %s", entry.Title)
	}
	if entry.PublishedAt == nil {
		t.Error("Expected published date to be parsed")
	}
	if len(entry.Tags) != 2 {
		t.Errorf("Expected 2 tags, got: %d", len(entry.Tags))
	}
	if entry.Author == "" {
		t.Error("Expected author to be extracted")
	}
}

func TestParseAtom(t *testing.T) {
	atomData := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Test Atom Feed</title>
  <link href="https://example.com"/>
  <updated>2023-07-03T12:00:00Z</updated>
  <id>urn:uuid:1234567890</id>
  <entry>
    <title>Test Entry</title>
    <link href="https://example.com/entry1"/>
    <id>urn:uuid:entry-1</id>
    <updated>2023-07-03T10:00:00Z</updated>
    <author><name>Atom Author</name></author>
    <content type="html">Test content</content>
  </entry>
</feed>`

	p := New()
	result, err := p.Parse([]byte(atomData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if result.Title != "Test Atom Feed" {
		t.Errorf("Expected title 'Test Atom Feed', got: %s", result.Title)
	}
	if len(result.Entries) != 1 {
		t.Fatalf("Expected 1 entry, got: %d", len(result.Entries))
	}

	entry := result.Entries[0]
	if entry.GUID != "urn:uuid:entry-1" {
		t.Errorf("Expected Atom id as GUID, got: %s", entry.GUID)
	}
	if entry.URL != "https://example.com/entry1" {
		t.Errorf("Expected URL 'https://example.com/entry1', got: %s", entry.URL)
	}
	if entry.Author != "Atom Author" {
		t.Errorf("Expected author 'Atom Author', got: %s", entry.Author)
	}
	if entry.UpdatedAt == nil {
		t.Error("Expected updated date to be parsed")
	}
}

func TestParseDropsEntriesWithoutLink(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <item>
      <title>Has Link</title>
      <link>https://example.com/item1</link>
    </item>
    <item>
      <title>No Link At All</title>
      <description>This entry cannot be addressed</description>
    </item>
  </channel>
</rss>`

	p := New()
	result, err := p.Parse([]byte(rssData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(result.Entries) != 1 {
		t.Fatalf("Expected 1 entry, got: %d", len(result.Entries))
	}
	if result.Dropped != 1 {
		t.Errorf("Expected 1 dropped entry, got: %d", result.Dropped)
	}
	for _, entry := range result.Entries {
		if entry.URL == "" {
			t.Error("Parse must never emit an entry without a URL")
		}
	}
}

func TestParseSynthesizesMissingTitle(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <item>
      <link>https://example.com/item1</link>
      <description>A fairly long description that should become the synthesized title of this otherwise untitled entry, truncated at a sane length.</description>
    </item>
  </channel>
</rss>`

	p := New()
	result, err := p.Parse([]byte(rssData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(result.Entries) != 1 {
		t.Fatalf("Expected 1 entry, got: %d", len(result.Entries))
	}

	entry := result.Entries[0]
	if entry.Title == "" {
		t.Fatal("Title must never be empty")
	}
	if !strings.HasPrefix(entry.Title, "A fairly long description") {
		t.Errorf("Expected title synthesized from description, got: %s", entry.Title)
	}
	if len([]rune(entry.Title)) > synthesizedTitleLen {
		t.Errorf("Expected synthesized title capped at %d runes, got %d", synthesizedTitleLen, len([]rune(entry.Title)))
	}
}

func TestParseUnparseableDateBecomesAbsent(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <item>
      <title>Bad Date</title>
      <link>https://example.com/item1</link>
      <pubDate>sometime last Tuesday, probably</pubDate>
    </item>
  </channel>
</rss>`

	p := New()
	result, err := p.Parse([]byte(rssData))
	if err != nil {
		t.Fatalf("Bad dates must not fail the feed, got: %v", err)
	}
	if len(result.Entries) != 1 {
		t.Fatalf("Expected 1 entry, got: %d", len(result.Entries))
	}
	if result.Entries[0].PublishedAt != nil {
		t.Errorf("Expected unparseable date to be absent, got: %v", result.Entries[0].PublishedAt)
	}
}

func TestParseInvalidFormat(t *testing.T) {
	cases := map[string]string{
		"not xml":       "this is not a feed at all",
		"truncated xml": "<?xml version=\"1.0\"?><rss version=\"2.0\"><channel><item>",
		"unknown root":  "<?xml version=\"1.0\"?><bookshelf><book/></bookshelf>",
	}

	p := New()
	for name, data := range cases {
		_, err := p.Parse([]byte(data))
		if !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("%s: expected ErrInvalidFormat, got: %v", name, err)
		}
		if errors.Is(err, ErrUndecodable) {
			t.Errorf("%s: cleanly decoded text must not be classified undecodable", name)
		}
	}
}

func TestParseUndecodable(t *testing.T) {
	p := New()
	_, err := p.Parse([]byte{0x00, 0x01, 0x02, 0xFF, 0xFE, 0x00, 0x00})
	if !errors.Is(err, ErrUndecodable) {
		t.Errorf("Expected ErrUndecodable, got: %v", err)
	}
}

func TestParseLatin1Charset(t *testing.T) {
	// "Café" with a literal 0xE9 byte, declared as ISO-8859-1.
	rssData := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<rss version=\"2.0\"><channel><title>Caf\xe9 Feed</title>" +
		"<item><title>Entr\xe9e</title><link>https://example.com/item1</link></item>" +
		"</channel></rss>"

	p := New()
	result, err := p.Parse([]byte(rssData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if result.Title != "Café Feed" {
		t.Errorf("Expected decoded title 'Café Feed', got: %s", result.Title)
	}
	if len(result.Entries) != 1 || result.Entries[0].Title != "Entrée" {
		t.Errorf("Expected decoded entry title 'Entrée', got: %+v", result.Entries)
	}
}
