package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var xmlEncodingRe = regexp.MustCompile(`(?i)<\?xml[^>]*\bencoding=["']([A-Za-z0-9._-]+)["']`)

// normalizeUTF8 converts a feed payload to UTF-8 before structural
// parsing. The charset comes from the byte-order mark or the XML
// declaration; payloads with neither are assumed UTF-8 and fall back to
// Windows-1252 when the bytes are not valid UTF-8 (the usual culprit for
// stray Latin-1 in the wild). Invalid sequences are replaced, not fatal.
// salvaged reports that the Windows-1252 fallback had to reinterpret the
// bytes, so the caller can tell recovered text from text that was valid
// all along.
func normalizeUTF8(data []byte) (out []byte, salvaged bool, err error) {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return data[3:], false, nil
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}) || bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		out, _, err := transform.Bytes(dec, data)
		if err != nil {
			return nil, false, fmt.Errorf("failed to decode UTF-16 payload: %w", err)
		}
		return out, false, nil
	}

	if name := declaredEncoding(data); name != "" && !isUTF8Name(name) {
		enc, err := htmlindex.Get(name)
		if err != nil {
			return nil, false, fmt.Errorf("unknown charset %q: %w", name, err)
		}
		out, _, err := transform.Bytes(enc.NewDecoder(), data)
		if err != nil {
			return nil, false, fmt.Errorf("failed to decode %q payload: %w", name, err)
		}
		return stripEncodingDecl(out), false, nil
	}

	if utf8.Valid(data) {
		return data, false, nil
	}

	out, _, err = transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode payload: %w", err)
	}
	return out, true, nil
}

func declaredEncoding(data []byte) string {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	if m := xmlEncodingRe.FindSubmatch(head); m != nil {
		return string(m[1])
	}
	return ""
}

func isUTF8Name(name string) bool {
	switch name {
	case "utf-8", "UTF-8", "utf8", "UTF8":
		return true
	}
	return false
}

// stripEncodingDecl rewrites the XML declaration so the now-UTF-8 bytes
// do not claim to be something else.
func stripEncodingDecl(data []byte) []byte {
	return xmlEncodingRe.ReplaceAll(data, []byte(`<?xml version="1.0" encoding="UTF-8"`))
}
