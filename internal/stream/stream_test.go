package stream

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/san-kum/rigidsim/internal/body"
	"github.com/san-kum/rigidsim/internal/geom"
	"github.com/san-kum/rigidsim/internal/sim"
	"github.com/san-kum/rigidsim/internal/world"
)

func dial(t *testing.T, h *Hub) (*websocket.Conn, func()) {
	t.Helper()
	server := httptest.NewServer(h)
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		server.Close()
		t.Fatalf("dial: %v", err)
	}
	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, h.Clients())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f Frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func TestHubBroadcast(t *testing.T) {
	h := NewHub(nil)
	conn, done := dial(t, h)
	defer done()
	waitClients(t, h, 1)

	if sent := h.Broadcast(Frame{Step: 3, Time: 0.05}); sent != 1 {
		t.Fatalf("sent to %d clients", sent)
	}
	f := readFrame(t, conn)
	if f.Step != 3 || f.Time != 0.05 {
		t.Errorf("got frame %+v", f)
	}

	conn.Close()
	waitClients(t, h, 0)
	if sent := h.Broadcast(Frame{}); sent != 0 {
		t.Errorf("closed client still received a frame")
	}
}

func TestHubGreeting(t *testing.T) {
	h := NewHub(nil)
	h.OnConnect(func() any { return map[string]string{"scene": "drop"} })
	conn, done := dial(t, h)
	defer done()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var hello map[string]string
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read greeting: %v", err)
	}
	if hello["scene"] != "drop" {
		t.Errorf("greeting = %v", hello)
	}
}

func TestPublisherFrames(t *testing.T) {
	w, err := world.New(world.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	w.AddBody(body.New(0, body.Static, geom.Plane(geom.Vec3{0, 1, 0}, 0), 0))
	ball := body.New(0, body.Dynamic, geom.Sphere(0.5), 1)
	ball.Position = geom.Vec3{0, 0.49, 0}
	id, _ := w.AddBody(ball)

	h := NewHub(nil)
	conn, done := dial(t, h)
	defer done()
	waitClients(t, h, 1)

	r := sim.New(w)
	r.AddObserver(NewPublisher(h, w, 5))
	if _, err := r.Run(context.Background(), sim.Config{Dt: 0.01, Duration: 0.1}); err != nil {
		t.Fatal(err)
	}

	first := readFrame(t, conn)
	second := readFrame(t, conn)
	if first.Step != 5 || second.Step != 10 {
		t.Fatalf("frame steps %d, %d", first.Step, second.Step)
	}
	if len(second.Poses) != 2 || second.Poses[1].ID != id {
		t.Errorf("poses = %+v", second.Poses)
	}
	entered := false
	for _, f := range []Frame{first, second} {
		for _, e := range f.Events {
			if e.Kind == "collision_stay" {
				t.Errorf("stay events should not be streamed")
			}
			entered = entered || e.Kind == "collision_enter"
		}
	}
	if !entered {
		t.Error("collision_enter never streamed")
	}
}
