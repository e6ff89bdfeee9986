package canonicalize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// MaxSnippetBytes is the evidence snippet size ceiling (§4.2): events
// never carry more than this many bytes of redacted source text.
const MaxSnippetBytes = 200

// Snippet is a redacted piece of evidence: a short excerpt, its hash,
// the offsets it was taken from, and a reference to its source.
type Snippet struct {
	Text         string `json:"snippet"`
	SHA256       string `json:"snippet_sha256"`
	OffsetStart  int    `json:"offset_start"`
	OffsetEnd    int    `json:"offset_end"`
	SourceRef    string `json:"source_ref"`
}

// SnippetHash computes snippet_sha256 = SHA-256(snippet_utf8).
func SnippetHash(snippetUTF8 string) string {
	h := sha256.Sum256([]byte(snippetUTF8))
	return hex.EncodeToString(h[:])
}

// NewSnippet builds a Snippet from a source text and an offset range,
// truncating to MaxSnippetBytes and computing its hash. It returns an
// error if the offsets are out of range so callers never silently
// fabricate evidence.
func NewSnippet(source string, start, end int, sourceRef string) (Snippet, error) {
	if start < 0 || end > len(source) || start > end {
		return Snippet{}, fmt.Errorf("canonicalize: invalid snippet offsets [%d,%d) for source len %d", start, end, len(source))
	}
	text := source[start:end]
	if len(text) > MaxSnippetBytes {
		text = text[:MaxSnippetBytes]
		end = start + MaxSnippetBytes
	}
	return Snippet{
		Text:        text,
		SHA256:      SnippetHash(text),
		OffsetStart: start,
		OffsetEnd:   end,
		SourceRef:   sourceRef,
	}, nil
}

// VerifySnippet checks that a snippet's text is a verbatim substring of
// source at its stated offsets and that its hash matches — the check
// the Classifier's LLM acceptance gate requires for every evidence span
// (§4.6).
func VerifySnippet(s Snippet, source string) bool {
	if s.OffsetStart < 0 || s.OffsetEnd > len(source) || s.OffsetStart > s.OffsetEnd {
		return false
	}
	if source[s.OffsetStart:s.OffsetEnd] != s.Text {
		return false
	}
	return SnippetHash(s.Text) == s.SHA256
}
