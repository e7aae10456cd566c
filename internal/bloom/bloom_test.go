package bloom

import "testing"

func TestFilter_StartsEmpty(t *testing.T) {
	f := New(100)
	if f.Check([]byte("test data")) {
		t.Fatal("empty filter should not contain anything")
	}
}

func TestFilter_InsertThenCheck(t *testing.T) {
	f := New(100)
	f.Insert([]byte("test data"))
	if !f.Check([]byte("test data")) {
		t.Fatal("expected inserted data to be present")
	}
}

func TestFilter_DoesNotContainUnrelatedData(t *testing.T) {
	f := New(100)
	f.Insert([]byte("test data"))
	if f.Check([]byte("other data")) {
		t.Fatal("unrelated data should not be reported as present (absent a collision)")
	}
}

func TestFilter_RemoveClearsData(t *testing.T) {
	f := New(100)
	f.Insert([]byte("test data"))
	f.Remove([]byte("test data"))
	if f.Check([]byte("test data")) {
		t.Fatal("removed data should no longer be present")
	}
}

// S6: a filter sized to 1 forces every key onto the same two bit
// positions; counting semantics mean removing one key must not make a
// still-present key disappear.
func TestFilter_HandlesForcedCollision(t *testing.T) {
	f := New(1)
	f.Insert([]byte("a"))
	f.Insert([]byte("b"))

	if !f.Check([]byte("a")) {
		t.Fatal("expected a present")
	}
	if !f.Check([]byte("b")) {
		t.Fatal("expected b present")
	}

	f.Remove([]byte("a"))
	if !f.Check([]byte("b")) {
		t.Fatal("b must still be present: its counter contribution remains")
	}
}
