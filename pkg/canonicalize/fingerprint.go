package canonicalize

// MessageFingerprintInput is the canonical object hashed to produce
// message_fingerprint (§4.1):
//
//	message_fingerprint = SHA-256( canonical({subject_c14n, body_text_c14n, sorted attachment sha256 list}) )
type MessageFingerprintInput struct {
	SubjectC14N    string   `json:"subject_c14n"`
	BodyTextC14N   string   `json:"body_text_c14n"`
	AttachmentSHAs []string `json:"attachment_sha256_list"`
}

// MessageFingerprint computes the deterministic message_fingerprint
// from already-canonicalized subject/body text and attachment refs.
func MessageFingerprint(subject, body string, attachments []AttachmentRef) (string, error) {
	input := MessageFingerprintInput{
		SubjectC14N:    CanonicalizeForFingerprint(subject),
		BodyTextC14N:   CanonicalizeForFingerprint(StripQuotedReplies(body)),
		AttachmentSHAs: SHA256List(attachments),
	}
	return CanonicalHash(input)
}
