// Package interfaces declares the typed ports (§6) the deterministic
// core consumes from its external collaborators. Every adapter —
// mail ingestion, blob store, directory, AV scanner, OCR, LLM
// provider, case system — is deliberately out of scope (§1); the core
// depends only on these interfaces so any adapter is replaceable.
package interfaces

import (
	"context"
	"time"

	"github.com/aliuyar1234/intake-routing-engine/pkg/model"
)

// IncomingMail is one message yielded by MailIngest.
type IncomingMail struct {
	RawMIMEBytes    []byte
	SourceMetadata  map[string]string
	SourceMessageID string
}

// MailIngest yields inbound messages with durable cursor semantics.
type MailIngest interface {
	Next(ctx context.Context) (*IncomingMail, error)
	Ack(ctx context.Context, sourceMessageID string) error
}

// AttachmentStore is an append-only content-addressed blob store.
type AttachmentStore interface {
	Put(ctx context.Context, bytes []byte) (sha256 string, err error)
	Get(ctx context.Context, sha256 string) ([]byte, error)
}

// ArtifactStore persists schema-validated stage outputs, content
// addressed and write-once.
type ArtifactStore interface {
	PutIfAbsent(ctx context.Context, ref model.ArtifactRef, bytes []byte) error
	Get(ctx context.Context, ref model.ArtifactRef) ([]byte, error)
	ListByStage(ctx context.Context, messageID string, stage string) ([]model.ArtifactRef, error)
}

// AuditStore appends to and reads the per-(message_id,run_id) audit chain.
type AuditStore interface {
	Append(ctx context.Context, messageID, runID string, event model.AuditEvent) error
	ReadChain(ctx context.Context, messageID, runID string) ([]model.AuditEvent, error)
}

// Job is a unit of work dequeued from the Broker.
type Job struct {
	MessageID string
	Stage     string
	Payload   []byte
}

// AckToken is returned by Dequeue and consumed by Ack/Nack.
type AckToken string

// Broker is an at-least-once durable work queue. Idempotency against
// redelivery is the caller's responsibility via job_id (§9 C9).
type Broker interface {
	Enqueue(ctx context.Context, job Job) error
	Dequeue(ctx context.Context) (Job, AckToken, error)
	Ack(ctx context.Context, token AckToken) error
	Nack(ctx context.Context, token AckToken, deadLetter bool) error
}

// DirectoryStatus is the existence/activity state a directory lookup returns.
type DirectoryStatus string

const (
	DirectoryActive DirectoryStatus = "ACTIVE"
	DirectoryClosed DirectoryStatus = "CLOSED"
)

// DirectoryRecord is the result of a successful directory lookup.
type DirectoryRecord struct {
	Found  bool
	Status DirectoryStatus
}

// DirectoryAdapter resolves policy/claim/customer identifiers against
// the system of record. Implementations must respect the per-call
// deadline carried on ctx (§5): 2s by default.
type DirectoryAdapter interface {
	LookupPolicy(ctx context.Context, id string) (DirectoryRecord, error)
	LookupClaim(ctx context.Context, id string) (DirectoryRecord, error)
	LookupCustomer(ctx context.Context, idOrEmail string) (DirectoryRecord, error)
}

// AVResult is an antivirus scan outcome.
type AVResult struct {
	Status         model.AVStatus
	ScannerVersion string
}

// AVScanner scans attachment bytes before any downstream stage uses them.
type AVScanner interface {
	Scan(ctx context.Context, bytes []byte) (AVResult, error)
}

// OCRResult is extracted text plus a confidence score.
type OCRResult struct {
	Text       string
	Confidence float64
}

// TextExtractor extracts text from attachment bytes (OCR or native parse).
type TextExtractor interface {
	Extract(ctx context.Context, bytes []byte, mimeType string) (OCRResult, error)
}

// LLMRequest is a deterministic-params-only inference request (§6, §9).
type LLMRequest struct {
	Prompt string
	Params model.LLMParams
}

// LLMProvider performs inference. It never retries internally — the
// caller (Classifier/Extractor) owns the bounded retry policy (§4.6).
type LLMProvider interface {
	Infer(ctx context.Context, req LLMRequest) (rawText string, err error)
}

// CaseAdapter creates/updates cases and attaches artifacts/drafts.
type CaseAdapter interface {
	CreateOrUpdate(ctx context.Context, idempotencyKey string, payload []byte) error
	Attach(ctx context.Context, idempotencyKey string, artifact model.ArtifactRef) error
	AddDraft(ctx context.Context, idempotencyKey string, artifact model.ArtifactRef) error
}

// Clock abstracts wall-clock time so audit timestamps are injectable in
// tests without ever leaking into a decision_hash (which excludes all
// timestamps per I3).
type Clock func() time.Time
