package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"codesync/internal/models"
)

type frameCapture struct {
	frames []models.Frame
}

func newFrameCapture() *frameCapture { return &frameCapture{} }

func (c *frameCapture) hook(frame models.Frame) { c.frames = append(c.frames, frame) }

func (c *frameCapture) list() []models.Frame {
	out := make([]models.Frame, len(c.frames))
	copy(out, c.frames)
	return out
}

func TestClientSendWithHook(t *testing.T) {
	client := NewClient("sock-1", nil)
	capture := newFrameCapture()
	client.SetSendHook(capture.hook)

	client.Send(models.Frame{Event: "ping"})

	got := capture.list()
	if len(got) != 1 || got[0].Event != "ping" {
		t.Fatalf("expected frame captured, got %#v", got)
	}
}

func TestClientSendWithoutConnDoesNotPanic(t *testing.T) {
	client := NewClient("sock-1", nil)
	client.Send(models.Frame{Event: "noop"})
}

func TestClientKeepsAssignedID(t *testing.T) {
	client := NewClient("sock-42", nil)
	if client.ID != "sock-42" {
		t.Fatalf("expected id sock-42, got %q", client.ID)
	}
}

func TestClientSendWritesToConn(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan models.Frame, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var frame models.Frame
		if err := conn.ReadJSON(&frame); err == nil {
			received <- frame
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()

	client := NewClient("sock-1", conn)
	client.Send(models.Frame{Event: "ping"})

	select {
	case frame := <-received:
		if frame.Event != "ping" {
			t.Fatalf("unexpected frame: %#v", frame)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected frame to be received")
	}
}
