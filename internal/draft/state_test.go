package draft

import (
	"testing"

	"github.com/ignite/bottler-outreach/internal/report"
)

func testGroups(names ...string) []*report.SubBottlerGroup {
	groups := make([]*report.SubBottlerGroup, 0, len(names))
	for _, name := range names {
		row := report.NewRow()
		row.Set(report.ColumnBottler, "Acme")
		row.Set(report.DerivedSubBottler, name)
		row.SubBottler = name
		groups = append(groups, &report.SubBottlerGroup{Name: name, Rows: []*report.Row{row}})
	}
	return groups
}

func TestResetMakesAllPending(t *testing.T) {
	s := NewStateStore()
	s.Reset(testGroups("east", "west"))

	for _, name := range []string{"east", "west"} {
		d, ok := s.Get(name)
		if !ok {
			t.Fatalf("group %q missing after reset", name)
		}
		if d.State != StatePending {
			t.Errorf("group %q state = %q, want pending", name, d.State)
		}
	}
	if got := s.Groups(); len(got) != 2 || got[0] != "east" || got[1] != "west" {
		t.Errorf("Groups() = %v", got)
	}
}

func TestCompleteAndFail(t *testing.T) {
	s := NewStateStore()
	s.Reset(testGroups("east"))

	epoch, ok := s.Begin("east")
	if !ok {
		t.Fatal("Begin failed for known group")
	}
	if !s.Complete("east", epoch, "subject", "<p>body</p>") {
		t.Fatal("Complete rejected matching epoch")
	}
	d, _ := s.Get("east")
	if d.State != StateReady || d.Subject != "subject" || d.Body != "<p>body</p>" {
		t.Errorf("after Complete: %+v", d)
	}

	epoch, _ = s.Begin("east")
	if !s.Fail("east", epoch, "provider quota hit") {
		t.Fatal("Fail rejected matching epoch")
	}
	d, _ = s.Get("east")
	if d.State != StateFailed || d.Error != "provider quota hit" {
		t.Errorf("after Fail: %+v", d)
	}
	if d.Subject != "" || d.Body != "" {
		t.Errorf("failed draft kept stale content: %+v", d)
	}
}

func TestStaleEpochDiscarded(t *testing.T) {
	s := NewStateStore()
	s.Reset(testGroups("east"))

	// A batch run starts, then the operator regenerates the same group
	// before the batch attempt finishes.
	oldEpoch, _ := s.Begin("east")
	newEpoch, _ := s.Begin("east")

	if s.Complete("east", oldEpoch, "stale subject", "stale body") {
		t.Error("stale completion was applied")
	}
	d, _ := s.Get("east")
	if d.State != StatePending {
		t.Errorf("state = %q, want pending while newer generation runs", d.State)
	}

	if !s.Complete("east", newEpoch, "fresh subject", "fresh body") {
		t.Error("current completion was rejected")
	}
	d, _ = s.Get("east")
	if d.Subject != "fresh subject" {
		t.Errorf("subject = %q, want fresh subject", d.Subject)
	}

	// Same guard applies to failures.
	if s.Fail("east", oldEpoch, "stale failure") {
		t.Error("stale failure was applied")
	}
}

func TestUnknownGroup(t *testing.T) {
	s := NewStateStore()
	s.Reset(testGroups("east"))

	if _, ok := s.Begin("nowhere"); ok {
		t.Error("Begin succeeded for unknown group")
	}
	if s.Complete("nowhere", 1, "s", "b") {
		t.Error("Complete succeeded for unknown group")
	}
	if _, ok := s.Get("nowhere"); ok {
		t.Error("Get succeeded for unknown group")
	}
}

func TestResetDropsOldGroups(t *testing.T) {
	s := NewStateStore()
	s.Reset(testGroups("east"))
	epoch, _ := s.Begin("east")
	s.Complete("east", epoch, "s", "b")

	s.Reset(testGroups("west"))
	if _, ok := s.Get("east"); ok {
		t.Error("old group survived reset")
	}
	d, ok := s.Get("west")
	if !ok || d.State != StatePending {
		t.Errorf("new group after reset: %+v ok=%v", d, ok)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStateStore()
	s.Reset(testGroups("east"))

	snap := s.Snapshot()
	snap["east"] = Draft{State: StateFailed}

	d, _ := s.Get("east")
	if d.State != StatePending {
		t.Error("mutating snapshot changed the store")
	}
}
