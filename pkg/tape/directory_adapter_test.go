package tape

import (
	"context"
	"testing"

	"github.com/aliuyar1234/intake-routing-engine/pkg/interfaces"
)

type fakeDirectory struct {
	policies map[string]interfaces.DirectoryRecord
}

func (f *fakeDirectory) LookupPolicy(ctx context.Context, id string) (interfaces.DirectoryRecord, error) {
	return f.policies[id], nil
}
func (f *fakeDirectory) LookupClaim(ctx context.Context, id string) (interfaces.DirectoryRecord, error) {
	return interfaces.DirectoryRecord{}, nil
}
func (f *fakeDirectory) LookupCustomer(ctx context.Context, idOrEmail string) (interfaces.DirectoryRecord, error) {
	return interfaces.DirectoryRecord{}, nil
}

func TestRecordThenReplayDirectoryAdapterRoundTrips(t *testing.T) {
	live := &fakeDirectory{policies: map[string]interfaces.DirectoryRecord{
		"POL-1": {Found: true, Status: "ACTIVE"},
	}}
	rec := NewRecorder("run-1")
	recording := NewRecordingDirectoryAdapter(live, rec)

	got, err := recording.LookupPolicy(context.Background(), "POL-1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Found || got.Status != "ACTIVE" {
		t.Fatalf("unexpected live lookup result: %+v", got)
	}

	replayer := NewReplayer(rec.Entries())
	replaying := NewReplayingDirectoryAdapter(replayer)

	replayed, err := replaying.LookupPolicy(context.Background(), "POL-1")
	if err != nil {
		t.Fatalf("expected taped lookup to replay, got error: %v", err)
	}
	if replayed != got {
		t.Fatalf("replayed result %+v != recorded result %+v", replayed, got)
	}
}

func TestReplayingDirectoryAdapterFailsClosedOnMiss(t *testing.T) {
	replayer := NewReplayer(nil)
	replaying := NewReplayingDirectoryAdapter(replayer)

	_, err := replaying.LookupPolicy(context.Background(), "POL-NEVER-RECORDED")
	if err == nil {
		t.Fatal("expected an error for an untaped lookup")
	}
}
