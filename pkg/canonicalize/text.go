package canonicalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// quotedReplyMarkers are deterministic boundary patterns that mark the
// start of a quoted reply chain in an email body (§4.1). The first
// matching marker truncates everything from that point onward.
var quotedReplyMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^On .{0,200} wrote:\s*$`),
	regexp.MustCompile(`(?m)^Am .{0,200} schrieb .{0,80}:\s*$`),
	regexp.MustCompile(`(?m)^-{2,}\s*Original Message\s*-{2,}\s*$`),
	regexp.MustCompile(`(?m)^From:\s.*$`),
	regexp.MustCompile(`(?m)^>{1}.*$`),
}

var whitespaceRun = regexp.MustCompile(`[ \t]+`)
var blankLineRun = regexp.MustCompile(`\n{3,}`)

// StripQuotedReplies truncates body at the first deterministic quoted-
// reply boundary marker, returning the text preceding it. The original
// (untruncated) body is preserved separately for evidence offsets;
// only the fingerprinting/classification pipeline sees the stripped form.
func StripQuotedReplies(body string) string {
	cut := len(body)
	for _, marker := range quotedReplyMarkers {
		loc := marker.FindStringIndex(body)
		if loc != nil && loc[0] < cut {
			cut = loc[0]
		}
	}
	return strings.TrimRight(body[:cut], " \t\n")
}

// CanonicalizeText applies NFC normalization and deterministic
// whitespace collapsing. It never lowercases — lowercasing is reserved
// for fingerprinting (CanonicalizeForFingerprint) so evidence snippets
// retain original casing.
func CanonicalizeText(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = blankLineRun.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// CanonicalizeForFingerprint produces the lowercase form used only to
// compute message_fingerprint; it is never used for evidence display.
func CanonicalizeForFingerprint(s string) string {
	return strings.ToLower(CanonicalizeText(s))
}
