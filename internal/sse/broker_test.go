package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/feattree/internal/catalog"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "ping", Data: map[string]string{"from": "test"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.HasPrefix(s, "id: ") {
			t.Errorf("missing event id in %q", s)
		}
		if !strings.Contains(s, "event: ping\n") || !strings.Contains(s, `"from":"test"`) {
			t.Errorf("unexpected message %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestPublishChangeThrottlesDocs(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishChange(catalog.ChangeEvent{Kind: catalog.KindFeature, ID: "AUTH", Op: catalog.OpCreated})
	b.PublishChange(catalog.ChangeEvent{Kind: catalog.KindWorkflow, ID: "W", Op: catalog.OpDeleted})

	time.Sleep(50 * time.Millisecond)
	var docs, changes []string
	for _, msg := range drain(ch) {
		if strings.Contains(msg, "event: docs.updated") {
			docs = append(docs, msg)
		} else {
			changes = append(changes, msg)
		}
	}
	if len(changes) != 2 {
		t.Fatalf("change events = %d, want 2", len(changes))
	}
	if !strings.Contains(changes[0], "event: feature.created") || !strings.Contains(changes[0], `"id":"AUTH"`) {
		t.Errorf("first change = %q", changes[0])
	}
	if !strings.Contains(changes[1], "event: workflow.deleted") {
		t.Errorf("second change = %q", changes[1])
	}
	if len(docs) != 1 {
		t.Errorf("docs events = %d, want 1 (throttled)", len(docs))
	}
}

func TestRegenerationOnlyEmitsDocs(t *testing.T) {
	b := NewBroker(10 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishChange(catalog.ChangeEvent{Kind: catalog.KindDocuments, Op: catalog.OpRegenerated})
	time.Sleep(50 * time.Millisecond)

	msgs := drain(ch)
	if len(msgs) != 1 || !strings.Contains(msgs[0], "event: docs.updated") {
		t.Errorf("messages = %q", msgs)
	}
}

// lockedRecorder guards the body so the test can read it while the
// handler goroutine may still be writing.
type lockedRecorder struct {
	*httptest.ResponseRecorder
	mu sync.Mutex
}

func (r *lockedRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Write(p)
}

func (r *lockedRecorder) body() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Body.String()
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := &lockedRecorder{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishChange(catalog.ChangeEvent{Kind: catalog.KindFeature, ID: "AUTH", Op: catalog.OpUpdated})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	if body := w.body(); !strings.Contains(body, "event: feature.updated") {
		t.Errorf("handler output missing event: %q", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func eventID(t *testing.T, msg []byte) string {
	t.Helper()
	line, _, _ := strings.Cut(string(msg), "\n")
	id, ok := strings.CutPrefix(line, "id: ")
	if !ok {
		t.Fatalf("message without id: %q", msg)
	}
	return id
}

func TestSubscribeFromReplaysMissedEvents(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	first := b.Subscribe()

	for _, typ := range []string{"one", "two", "three"} {
		b.Publish(Event{Type: typ, Data: map[string]string{}})
	}
	var ids []string
	for range 3 {
		select {
		case msg := <-first:
			ids = append(ids, eventID(t, msg))
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for message")
		}
	}
	b.Unsubscribe(first)

	resumed := b.SubscribeFrom(ids[0])
	defer b.Unsubscribe(resumed)
	time.Sleep(50 * time.Millisecond)

	msgs := drain(resumed)
	if len(msgs) != 2 {
		t.Fatalf("replayed %d messages, want 2: %q", len(msgs), msgs)
	}
	if !strings.Contains(msgs[0], "event: two\n") || !strings.Contains(msgs[1], "event: three\n") {
		t.Errorf("replay order = %q", msgs)
	}

	unknown := b.SubscribeFrom("not-an-id")
	defer b.Unsubscribe(unknown)
	time.Sleep(50 * time.Millisecond)
	if msgs := drain(unknown); len(msgs) != 0 {
		t.Errorf("unknown id replayed %q", msgs)
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Buffer holds 64; the rest must be dropped without blocking.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}
	b.Publish(Event{Type: "late"})
	b.PublishChange(catalog.ChangeEvent{Kind: catalog.KindFeature, Op: catalog.OpUpdated})
}
