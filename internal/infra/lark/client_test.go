package lark

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func newWorkerClient(t *testing.T) *Client {
	t.Helper()
	c := NewClient("app", "secret", zerolog.Nop())
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.startWorker()
	return c
}

func TestClient_WorkerKeepsArrivalOrderAndDrainsOnStop(t *testing.T) {
	c := newWorkerClient(t)

	var got []int
	for i := 0; i < 50; i++ {
		i := i
		c.dispatchAsync(func() { got = append(got, i) })
	}
	// Stop returns only after the worker has run every accepted event,
	// so reading got afterwards is race-free.
	c.Stop()

	if len(got) != 50 {
		t.Fatalf("processed %d events, want 50", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("event %d processed out of order: got %d", i, v)
		}
	}
}

func TestClient_DispatchAfterStopIsDropped(t *testing.T) {
	c := newWorkerClient(t)
	c.Stop()

	// Must neither block nor panic on the torn-down pipeline.
	c.dispatchAsync(func() {
		t.Error("handler ran after stop")
	})
}

func TestClient_StopWaitsForInFlightHandler(t *testing.T) {
	c := newWorkerClient(t)

	started := make(chan struct{})
	finished := false
	c.dispatchAsync(func() {
		close(started)
		finished = true
	})

	<-started
	c.Stop()
	if !finished {
		t.Error("Stop returned before the in-flight handler completed")
	}
}

func TestBuildCard_KeyboardRows(t *testing.T) {
	card := buildCard("pick one", [][]Button{
		{{Label: "Admin", Payload: "ns:admin"}, {Label: "User", Payload: "ns:user"}},
	})

	elements, ok := card["elements"].([]any)
	if !ok || len(elements) != 2 {
		t.Fatalf("elements = %#v, want text block plus one action row", card["elements"])
	}
	row, ok := elements[1].(map[string]any)
	if !ok || row["tag"] != "action" {
		t.Fatalf("second element = %#v, want action row", elements[1])
	}
	actions := row["actions"].([]any)
	if len(actions) != 2 {
		t.Fatalf("actions = %d, want 2", len(actions))
	}
	value := actions[0].(map[string]any)["value"].(map[string]any)
	if value["cmd"] != "ns:admin" {
		t.Errorf("button payload = %v, want ns:admin", value["cmd"])
	}

	bare := buildCard("plain", nil)
	if len(bare["elements"].([]any)) != 1 {
		t.Error("card without keyboard should hold only the text block")
	}
}
