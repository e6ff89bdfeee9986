package tape

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aliuyar1234/intake-routing-engine/pkg/interfaces"
	"github.com/aliuyar1234/intake-routing-engine/pkg/ireerrors"
)

// RecordingDirectoryAdapter wraps a live interfaces.DirectoryAdapter and
// tapes the result of every lookup that succeeds, so a later replay of
// the same run can reproduce identical directory responses without
// calling the live system of record again. A lookup that returns an
// error is passed through and not taped, so replaying it is a tape miss. A directory lookup is as nondeterministic an
// input as any tape entry: the record underlying it can change between
// the original run and a replay.
type RecordingDirectoryAdapter struct {
	next interfaces.DirectoryAdapter
	rec  *Recorder
}

// NewRecordingDirectoryAdapter wraps next, recording onto rec.
func NewRecordingDirectoryAdapter(next interfaces.DirectoryAdapter, rec *Recorder) *RecordingDirectoryAdapter {
	return &RecordingDirectoryAdapter{next: next, rec: rec}
}

func (a *RecordingDirectoryAdapter) LookupPolicy(ctx context.Context, id string) (interfaces.DirectoryRecord, error) {
	return a.lookup(ctx, "policy", id, a.next.LookupPolicy)
}

func (a *RecordingDirectoryAdapter) LookupClaim(ctx context.Context, id string) (interfaces.DirectoryRecord, error) {
	return a.lookup(ctx, "claim", id, a.next.LookupClaim)
}

func (a *RecordingDirectoryAdapter) LookupCustomer(ctx context.Context, idOrEmail string) (interfaces.DirectoryRecord, error) {
	return a.lookup(ctx, "customer", idOrEmail, a.next.LookupCustomer)
}

func (a *RecordingDirectoryAdapter) lookup(ctx context.Context, kind, id string, call func(context.Context, string) (interfaces.DirectoryRecord, error)) (interfaces.DirectoryRecord, error) {
	rec, err := call(ctx, id)
	if err != nil {
		return rec, err
	}
	value, marshalErr := json.Marshal(rec)
	if marshalErr == nil {
		a.rec.Record(EntryTypeNetwork, "directory_adapter", kind+":"+id, value)
	}
	return rec, nil
}

// ReplayingDirectoryAdapter serves directory lookups from a tape
// instead of calling a live system of record during replay. A lookup
// the original run never made is a REPLAY_TAPE_MISS, returned as a
// KindDeterminismViolation rather than silently falling through to a
// live call.
type ReplayingDirectoryAdapter struct {
	replayer *Replayer
}

// NewReplayingDirectoryAdapter wraps a Replayer as a DirectoryAdapter.
func NewReplayingDirectoryAdapter(r *Replayer) *ReplayingDirectoryAdapter {
	return &ReplayingDirectoryAdapter{replayer: r}
}

func (a *ReplayingDirectoryAdapter) LookupPolicy(ctx context.Context, id string) (interfaces.DirectoryRecord, error) {
	return a.lookup("policy", id)
}

func (a *ReplayingDirectoryAdapter) LookupClaim(ctx context.Context, id string) (interfaces.DirectoryRecord, error) {
	return a.lookup("claim", id)
}

func (a *ReplayingDirectoryAdapter) LookupCustomer(ctx context.Context, idOrEmail string) (interfaces.DirectoryRecord, error) {
	return a.lookup("customer", idOrEmail)
}

func (a *ReplayingDirectoryAdapter) lookup(kind, id string) (interfaces.DirectoryRecord, error) {
	raw, err := a.replayer.LookupByKey(EntryTypeNetwork, kind+":"+id)
	if err != nil {
		return interfaces.DirectoryRecord{}, ireerrors.Wrap(
			ireerrors.KindDeterminismViolation, "", ireerrors.ReasonDeterminismCacheMiss,
			fmt.Errorf("directory lookup %s:%s not present on tape: %w", kind, id, err),
		)
	}
	var rec interfaces.DirectoryRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return interfaces.DirectoryRecord{}, ireerrors.Wrap(ireerrors.KindIntegrity, "", ireerrors.ReasonHashMismatch, err)
	}
	return rec, nil
}
