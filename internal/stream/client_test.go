package stream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type backend struct {
	srv    *httptest.Server
	query  chan string
	frames chan []byte
}

func newBackend(t *testing.T, script func(conn *websocket.Conn)) *backend {
	t.Helper()
	res := &backend{query: make(chan string, 1), frames: make(chan []byte, 16)}
	upgrader := websocket.Upgrader{}
	res.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res.query <- r.URL.RawQuery
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		go func() {
			for {
				mt, msg, err := conn.ReadMessage()
				if err != nil {
					return
				}
				if mt == websocket.BinaryMessage {
					res.frames <- msg
				}
			}
		}()
		script(conn)
	}))
	t.Cleanup(res.srv.Close)
	return res
}

func (b *backend) url() string {
	return "ws" + strings.TrimPrefix(b.srv.URL, "http")
}

func readEvent(t *testing.T, c *Client) (Event, bool) {
	t.Helper()
	select {
	case ev, ok := <-c.Events():
		return ev, ok
	case <-time.After(2 * time.Second):
		t.Fatal("no event")
	}
	return Event{}, false
}

func TestClient_Events(t *testing.T) {
	b := newBackend(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"partialTranscript":"hello"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{not json`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"status":"ok"}`))
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2})
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"partialTranscript":"hello there","isFinal":true}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"model crashed"}`))
		time.Sleep(200 * time.Millisecond)
	})
	c, err := Dial(context.Background(), b.url(), 16000)
	if err != nil {
		t.Fatalf("Dial() failed: %v", err)
	}
	defer c.Close()

	ev, _ := readEvent(t, c)
	if ev.Text != "hello" || ev.Final || ev.Err != nil {
		t.Errorf("event 1 = %+v", ev)
	}
	ev, _ = readEvent(t, c)
	if ev.Text != "hello there" || !ev.Final {
		t.Errorf("event 2 = %+v", ev)
	}
	ev, _ = readEvent(t, c)
	var se *ServiceError
	if !errors.As(ev.Err, &se) || se.Msg != "model crashed" {
		t.Errorf("event 3 = %+v, want service error", ev)
	}
}

func TestClient_Query(t *testing.T) {
	b := newBackend(t, func(conn *websocket.Conn) { time.Sleep(50 * time.Millisecond) })
	c, err := Dial(context.Background(), b.url()+"?lang=en", 16000)
	if err != nil {
		t.Fatalf("Dial() failed: %v", err)
	}
	defer c.Close()
	q := <-b.query
	for _, s := range []string{"lang=en", "sample_rate=16000", "encoding=linear16", "channels=1"} {
		if !strings.Contains(q, s) {
			t.Errorf("query %q does not contain %q", q, s)
		}
	}
}

func TestClient_Send(t *testing.T) {
	b := newBackend(t, func(conn *websocket.Conn) { time.Sleep(300 * time.Millisecond) })
	c, err := Dial(context.Background(), b.url(), 16000)
	if err != nil {
		t.Fatalf("Dial() failed: %v", err)
	}
	if err := c.Send([]byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("Send() failed: %v", err)
	}
	select {
	case f := <-b.frames:
		if len(f) != 4 || f[3] != 4 {
			t.Errorf("frame = %v", f)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
	_ = c.Close()
	if err := c.Send([]byte{1}); err == nil {
		t.Error("Send() after Close() expected error")
	}
	for ev := range c.Events() {
		if ev.Err != nil {
			t.Errorf("unexpected error event after Close(): %v", ev.Err)
		}
	}
}

func TestClient_RemoteClose(t *testing.T) {
	b := newBackend(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		time.Sleep(100 * time.Millisecond)
	})
	c, err := Dial(context.Background(), b.url(), 16000)
	if err != nil {
		t.Fatalf("Dial() failed: %v", err)
	}
	defer c.Close()
	ev, ok := readEvent(t, c)
	if !ok || !errors.Is(ev.Err, ErrRemoteClosed) {
		t.Errorf("event = %+v, want ErrRemoteClosed", ev)
	}
	if _, ok := readEvent(t, c); ok {
		t.Error("events channel must be closed")
	}
}

func TestDial_Fail(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	u := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()
	if _, err := Dial(context.Background(), u, 16000); err == nil {
		t.Error("Dial() expected error")
	}
}

func Test_decode(t *testing.T) {
	tests := []struct {
		name    string
		msg     string
		wantOK  bool
		want    string
		wantErr bool
	}{
		{name: "partial", msg: `{"partialTranscript":"a b"}`, wantOK: true, want: "a b"},
		{name: "empty partial", msg: `{"partialTranscript":""}`, wantOK: true, want: ""},
		{name: "error", msg: `{"error":"x"}`, wantOK: true, wantErr: true},
		{name: "other", msg: `{"type":"meta"}`},
		{name: "bad", msg: `]`},
		{name: "trailing data", msg: `{"partialTranscript":"a"} xyz`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := decode([]byte(tt.msg))
			if ok != tt.wantOK {
				t.Fatalf("decode() ok = %v, want %v", ok, tt.wantOK)
			}
			if got.Text != tt.want || (got.Err != nil) != tt.wantErr {
				t.Errorf("decode() = %+v", got)
			}
		})
	}
}
