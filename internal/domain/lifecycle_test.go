package domain

import (
	"errors"
	"testing"
	"time"
)

type lightStatus string

var lightTable = NewTable("light",
	[]lightStatus{"red", "green", "amber", "off"},
	[]Transition[lightStatus]{
		{Action: "go", Src: "red", Dst: "green"},
		{Action: "slow", Src: "green", Dst: "amber"},
		{Action: "stop", Src: "amber", Dst: "red"},
		{Action: "shutdown", Src: "red", Dst: "off"},
	},
)

func newLight(t *testing.T) *lifecycle[lightStatus] {
	t.Helper()
	lc, err := newLifecycle(lightTable, "l-1", "red", time.Unix(0, 0))
	if err != nil {
		t.Fatalf("newLifecycle: %v", err)
	}
	return &lc
}

// tableChecker exposes the generic properties every entity table must hold.
type tableChecker interface {
	Kind() string
	total() bool
}

func (t *Table[S]) total() bool {
	for _, s := range t.statuses {
		if _, ok := t.allowed[s]; !ok {
			return false
		}
	}
	return len(t.allowed) == len(t.statuses)
}

func TestTables_AreTotal(t *testing.T) {
	for _, table := range []tableChecker{TenantTable, ClientTable, ContractTable, InvoiceTable, lightTable} {
		if !table.total() {
			t.Errorf("%s table has statuses without an entry", table.Kind())
		}
	}
}

func TestNewTable_PanicsOnUnknownStatus(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for transition to an undeclared status")
		}
	}()
	NewTable("bad", []lightStatus{"red"}, []Transition[lightStatus]{{Action: "go", Src: "red", Dst: "blue"}})
}

func TestNewTable_PanicsOnDuplicateEdge(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for duplicate edge")
		}
	}()
	NewTable("bad", []lightStatus{"red", "green"}, []Transition[lightStatus]{
		{Action: "go", Src: "red", Dst: "green"},
		{Action: "again", Src: "red", Dst: "green"},
	})
}

func TestTransitionTo_Valid(t *testing.T) {
	lc := newLight(t)
	at := time.Unix(100, 0)

	ev, err := lc.TransitionTo("green", at)
	if err != nil {
		t.Fatalf("TransitionTo: %v", err)
	}
	if lc.Status() != "green" {
		t.Errorf("Status = %q, want %q", lc.Status(), "green")
	}
	if !lc.UpdatedAt().Equal(at) {
		t.Errorf("UpdatedAt = %v, want %v", lc.UpdatedAt(), at)
	}
	if ev.Name != "light.go" || ev.From != "red" || ev.To != "green" || ev.EntityID != "l-1" {
		t.Errorf("event = %+v", ev)
	}
	if len(lc.pending) != 1 || lc.pending[0].ID != ev.ID {
		t.Errorf("pending = %+v, want the returned event only", lc.pending)
	}
}

func TestTransitionTo_InvalidLeavesStateUntouched(t *testing.T) {
	for _, from := range lightTable.Statuses() {
		for _, to := range lightTable.Statuses() {
			if lightTable.Allows(from, to) {
				continue
			}
			lc, _ := newLifecycle(lightTable, "l-1", from, time.Unix(0, 0))
			_, err := lc.TransitionTo(to, time.Unix(1, 0))

			var trErr *TransitionError
			if !errors.As(err, &trErr) {
				t.Fatalf("%s -> %s: expected TransitionError, got %v", from, to, err)
			}
			if trErr.From != string(from) || trErr.To != string(to) || trErr.EntityID != "l-1" {
				t.Errorf("%s -> %s: error = %+v", from, to, trErr)
			}
			if lc.Status() != from || len(lc.pending) != 0 || !lc.UpdatedAt().Equal(time.Unix(0, 0)) {
				t.Errorf("%s -> %s: lifecycle mutated on failure", from, to)
			}
		}
	}
}

func TestTransitionTo_TerminalRejectsEverything(t *testing.T) {
	lc := newLight(t)
	if _, err := lc.TransitionTo("off", time.Now()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	for _, s := range lightTable.Statuses() {
		if _, err := lc.TransitionTo(s, time.Now()); err == nil {
			t.Errorf("off -> %s succeeded, want error", s)
		}
	}
}

func TestReleaseEvents_OrderAndEmpty(t *testing.T) {
	lc := newLight(t)
	lc.record(EventCreated, time.Unix(0, 0), nil)
	for _, s := range []lightStatus{"green", "amber", "red"} {
		if _, err := lc.TransitionTo(s, time.Now()); err != nil {
			t.Fatalf("TransitionTo(%q): %v", s, err)
		}
	}

	first := lc.ReleaseEvents()
	wantNames := []string{"light.created", "light.go", "light.slow", "light.stop"}
	if len(first) != len(wantNames) {
		t.Fatalf("released %d events, want %d", len(first), len(wantNames))
	}
	for i, name := range wantNames {
		if first[i].Name != name {
			t.Errorf("event[%d] = %q, want %q", i, first[i].Name, name)
		}
	}

	second := lc.ReleaseEvents()
	if second == nil || len(second) != 0 {
		t.Errorf("second release = %#v, want empty non-nil slice", second)
	}
}

func TestNewLifecycle_RejectsUnknownStatus(t *testing.T) {
	if _, err := newLifecycle(lightTable, "l-1", "blue", time.Now()); err == nil {
		t.Error("expected error for unknown initial status")
	}
}

func TestStoredStatus_TracksLastSave(t *testing.T) {
	lc := newLight(t)

	if _, err := lc.TransitionTo("green", time.Unix(1, 0)); err != nil {
		t.Fatalf("TransitionTo: %v", err)
	}
	if lc.StoredStatus() != "red" {
		t.Errorf("StoredStatus before save = %q, want %q", lc.StoredStatus(), "red")
	}

	lc.MarkSaved()
	if lc.StoredStatus() != "green" {
		t.Errorf("StoredStatus after save = %q, want %q", lc.StoredStatus(), "green")
	}
}
