package canonicalize

import "sort"

// AttachmentRef is the minimal shape needed to canonically order a
// message's attachment list (§4.1 iii): ordering is by (sha256, filename),
// independent of upload order or MIME part index.
type AttachmentRef struct {
	SHA256   string
	Filename string
}

// OrderAttachments returns a new slice sorted by (sha256, filename).
// The input is never mutated.
func OrderAttachments(refs []AttachmentRef) []AttachmentRef {
	out := make([]AttachmentRef, len(refs))
	copy(out, refs)
	sort.Slice(out, func(i, j int) bool {
		if out[i].SHA256 != out[j].SHA256 {
			return out[i].SHA256 < out[j].SHA256
		}
		return out[i].Filename < out[j].Filename
	})
	return out
}

// SHA256List extracts the sorted sha256 list from canonically ordered
// attachment refs, for use in message_fingerprint.
func SHA256List(refs []AttachmentRef) []string {
	ordered := OrderAttachments(refs)
	out := make([]string, len(ordered))
	for i, r := range ordered {
		out[i] = r.SHA256
	}
	return out
}
