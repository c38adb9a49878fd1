package cancel

import "testing"

type fakeSession struct{ canceled int }

func (f *fakeSession) Cancel() { f.canceled++ }

func TestCancelInvokesMatchingSession(t *testing.T) {
	r := NewRegistry()
	target := &fakeSession{}
	unregister := r.Register(42, 99, target)
	defer unregister()

	if !r.Cancel(42, 99) {
		t.Fatal("Cancel reported no match for a registered pair")
	}
	if target.canceled != 1 {
		t.Errorf("got canceled=%d, want 1", target.canceled)
	}
}

func TestCancelUnknownPairIsIgnored(t *testing.T) {
	r := NewRegistry()
	if r.Cancel(1, 2) {
		t.Error("Cancel reported a match for an empty registry")
	}
}

func TestUnregisterRemovesEntry(t *testing.T) {
	r := NewRegistry()
	target := &fakeSession{}
	unregister := r.Register(7, 8, target)
	unregister()

	if r.Cancel(7, 8) {
		t.Error("Cancel matched after unregister")
	}
	if target.canceled != 0 {
		t.Errorf("got canceled=%d, want 0", target.canceled)
	}
}

func TestLenTracksRegisteredSessions(t *testing.T) {
	r := NewRegistry()
	if r.Len() != 0 {
		t.Fatalf("got Len()=%d on empty registry, want 0", r.Len())
	}
	done := r.Register(1, 1, &fakeSession{})
	if r.Len() != 1 {
		t.Errorf("got Len()=%d after Register, want 1", r.Len())
	}
	done()
	if r.Len() != 0 {
		t.Errorf("got Len()=%d after unregister, want 0", r.Len())
	}
}
