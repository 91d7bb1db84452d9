package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
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

	b.Publish(Event{Type: "export.completed", Data: map[string]string{"target": "exports/mill"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: export.completed") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"target":"exports/mill"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestSceneEventProjectThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First event should trigger project.updated; the second, fired
	// immediately (as a batch import would), should be coalesced.
	b.PublishSceneEvent("imported", "scene-a")
	b.PublishSceneEvent("imported", "scene-b")

	time.Sleep(50 * time.Millisecond)
	projectCount := 0
	sceneCount := 0
loop:
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			if strings.Contains(s, "project.updated") {
				projectCount++
			} else {
				sceneCount++
			}
		default:
			break loop
		}
	}

	if sceneCount != 2 {
		t.Errorf("scene events = %d, want 2", sceneCount)
	}
	if projectCount != 1 {
		t.Errorf("project.updated events = %d, want 1 (throttled)", projectCount)
	}
}

func TestSceneEventKinds(t *testing.T) {
	b := NewBroker(time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishSceneEvent("deleted", "scene-x")

	deadline := time.After(time.Second)
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			if strings.Contains(s, "scene.deleted") && strings.Contains(s, `"sceneId":"scene-x"`) {
				return
			}
		case <-deadline:
			t.Fatal("timeout waiting for scene.deleted")
		}
	}
}

func TestServeHTTPStreamsEvents(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(rec, req)
		close(done)
	}()

	// Wait for the subscription to land, then publish.
	for i := 0; i < 100 && b.ClientCount() == 0; i++ {
		time.Sleep(5 * time.Millisecond)
	}
	b.PublishSceneEvent("imported", "scene-1")
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	if !strings.Contains(body, "event: scene.imported") {
		t.Errorf("stream missing scene.imported: %q", body)
	}
	if rec.Header().Get("Content-Type") != "text/event-stream" {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
}

func TestPublishAfterClose(t *testing.T) {
	b := NewBroker(time.Millisecond)
	b.Close()
	// Must not panic or block.
	b.Publish(Event{Type: "noop"})
	b.PublishSceneEvent("imported", "scene-1")
	if b.ClientCount() != 0 {
		t.Error("ClientCount after close != 0")
	}
}
