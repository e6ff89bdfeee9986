package canonicalize

import (
	"testing"

	webpkijcs "github.com/gowebpki/jcs"
)

// The hand-rolled JCS implementation in jcs.go is cross-checked against the
// gowebpki/jcs reference implementation so a future change to either
// cannot silently drift from RFC 8785 without a test failure.
func TestJCS_MatchesReferenceImplementation(t *testing.T) {
	cases := []string{
		`{"a":1,"b":2}`,
		`{"z":{"y":"foo","x":"bar"},"a":1}`,
		`{"arr":[3,1,2],"nested":{"deep":{"key":"val"}}}`,
		`{"unicode":"こんにちは","emoji":"🚀"}`,
		`{"num":123.456,"bool":true,"null":null}`,
	}

	for _, raw := range cases {
		ours, err := JCSFromRawJSON([]byte(raw))
		if err != nil {
			t.Fatalf("JCSFromRawJSON(%s): %v", raw, err)
		}
		theirs, err := webpkijcs.Transform([]byte(raw))
		if err != nil {
			t.Fatalf("webpkijcs.Transform(%s): %v", raw, err)
		}
		if string(ours) != string(theirs) {
			t.Errorf("JCS mismatch for %s:\n  ours:  %s\n  theirs: %s", raw, ours, theirs)
		}
	}
}
