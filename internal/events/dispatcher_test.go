package events

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestDispatcherDeliversToSink(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)
	defer d.Close()

	d.Emit(context.Background(), Event{EventType: "auth.login", UserID: "u1", Success: true})

	select {
	case event := <-sink.Events():
		if event.EventType != "auth.login" || event.UserID != "u1" {
			t.Fatalf("unexpected event: %+v", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestDispatcherDisabledReturnsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NewChannelSink(1))
	if d != nil {
		t.Fatal("disabled dispatcher must be nil")
	}
	// Every operation must be safe on the nil dispatcher.
	d.Emit(context.Background(), Event{EventType: "x"})
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reported drops")
	}
	d.Close()
}

func TestDispatcherDropIfFullCountsDrops(t *testing.T) {
	block := make(chan struct{})
	sink := sinkFunc(func(context.Context, Event) { <-block })
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// First emit is consumed by the run loop and parks in the sink, second
	// fills the buffer, the rest must drop.
	for i := 0; i < 6; i++ {
		d.Emit(context.Background(), Event{EventType: "e"})
	}

	deadline := time.Now().Add(2 * time.Second)
	for d.Dropped() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if d.Dropped() == 0 {
		t.Fatal("no drops recorded with a full buffer")
	}
	close(block)
	d.Close()
}

func TestDispatcherCloseDrainsBufferedEvents(t *testing.T) {
	var buf bytes.Buffer
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, NewJSONWriterSink(&buf))

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: "session.phase_changed", Success: true})
	}
	d.Close()
	d.Close() // idempotent

	lines := strings.Count(buf.String(), "\n")
	if lines != 5 {
		t.Fatalf("drained %d events, want 5", lines)
	}
	// Every line is a standalone JSON object.
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var event Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			t.Fatalf("line %q not valid JSON: %v", line, err)
		}
	}
}

func TestDispatcherEmitAfterCloseIsNoOp(t *testing.T) {
	sink := NewChannelSink(1)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)
	d.Close()
	d.Emit(context.Background(), Event{EventType: "late"})

	select {
	case event := <-sink.Events():
		if event.EventType == "late" {
			t.Fatal("event accepted after close")
		}
	default:
	}
}

type sinkFunc func(ctx context.Context, event Event)

func (f sinkFunc) Emit(ctx context.Context, event Event) { f(ctx, event) }
