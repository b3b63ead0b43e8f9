package metadata

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
)

func TestNewPairs(t *testing.T) {
	md := New(KeyEvent, "runtime.started", KeyRuntime, "corert", "dangling")
	if md[KeyEvent] != "runtime.started" || md[KeyRuntime] != "corert" {
		t.Fatalf("unexpected metadata %#v", md)
	}
	if len(md) != 2 {
		t.Fatalf("expected dangling key to be dropped, got %#v", md)
	}
}

func TestWithDoesNotAlias(t *testing.T) {
	base := New(KeyRuntime, "corert")
	enriched := base.With(KeyModule, "db")
	if _, ok := base[KeyModule]; ok {
		t.Fatal("expected base to stay untouched")
	}
	if enriched[KeyModule] != "db" || enriched[KeyRuntime] != "corert" {
		t.Fatalf("unexpected enriched metadata %#v", enriched)
	}
}

func TestApplyAndFromMessage(t *testing.T) {
	msg := message.NewMessage("id", nil)
	msg.Metadata = nil

	New(KeyEvent, "task.failed", KeyTaskID, "", KeyRuntimeID, "01H").Apply(msg)

	if msg.Metadata.Get(KeyEvent) != "task.failed" {
		t.Fatalf("expected event key, got %#v", msg.Metadata)
	}
	if _, ok := msg.Metadata[KeyTaskID]; ok {
		t.Fatal("expected empty values to be skipped")
	}

	round := FromMessage(msg)
	if round[KeyRuntimeID] != "01H" || len(round) != 2 {
		t.Fatalf("unexpected extracted metadata %#v", round)
	}

	if len(FromMessage(nil)) != 0 {
		t.Fatal("expected empty metadata for nil message")
	}
	New("k", "v").Apply(nil)
}
