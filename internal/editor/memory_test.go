package editor

import (
	"errors"
	"testing"
)

func TestMemoryOpenCloseRoundTrip(t *testing.T) {
	m := NewMemory()

	if err := m.OpenDiff("/a.txt", "proposed"); err != nil {
		t.Fatalf("OpenDiff: %v", err)
	}
	m.SetWorkingContent("/a.txt", "edited")

	content, err := m.CloseDiff("/a.txt")
	if err != nil {
		t.Fatalf("CloseDiff: %v", err)
	}
	if content != "edited" {
		t.Errorf("content = %q, want edited", content)
	}

	// The view is gone.
	if _, err := m.CloseDiff("/a.txt"); err == nil {
		t.Error("second CloseDiff succeeded")
	}
}

func TestMemoryAcceptPersists(t *testing.T) {
	m := NewMemory()

	if err := m.OpenDiff("/a.txt", "proposed"); err != nil {
		t.Fatalf("OpenDiff: %v", err)
	}
	content, err := m.AcceptDiff("/a.txt")
	if err != nil {
		t.Fatalf("AcceptDiff: %v", err)
	}
	if content != "proposed" {
		t.Errorf("content = %q, want proposed", content)
	}

	persisted, ok := m.FileContent("/a.txt")
	if !ok || persisted != "proposed" {
		t.Errorf("FileContent = %q,%v", persisted, ok)
	}
}

func TestMemoryAcceptFailureInjection(t *testing.T) {
	m := NewMemory()
	m.FailAccept = errors.New("boom")

	if err := m.OpenDiff("/a.txt", "proposed"); err != nil {
		t.Fatalf("OpenDiff: %v", err)
	}
	if _, err := m.AcceptDiff("/a.txt"); err == nil {
		t.Fatal("AcceptDiff succeeded with FailAccept set")
	}
	// The view survives a failed persist.
	if _, err := m.CloseDiff("/a.txt"); err != nil {
		t.Errorf("view lost after failed accept: %v", err)
	}
}

func TestMemoryRejectDiscards(t *testing.T) {
	m := NewMemory()

	if err := m.OpenDiff("/a.txt", "proposed"); err != nil {
		t.Fatalf("OpenDiff: %v", err)
	}
	if err := m.RejectDiff("/a.txt"); err != nil {
		t.Fatalf("RejectDiff: %v", err)
	}
	if _, ok := m.FileContent("/a.txt"); ok {
		t.Error("rejected content was persisted")
	}
	if _, err := m.AcceptDiff("/a.txt"); err == nil {
		t.Error("AcceptDiff succeeded after reject")
	}
}

func TestMemorySetWorkingContentIgnoresClosedViews(t *testing.T) {
	m := NewMemory()
	m.SetWorkingContent("/a.txt", "ghost")
	if _, err := m.CloseDiff("/a.txt"); err == nil {
		t.Error("SetWorkingContent resurrected a closed view")
	}
}
