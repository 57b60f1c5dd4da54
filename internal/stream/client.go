// Package stream keeps the websocket connection to the transcription backend
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/gorilla/websocket"
)

// ErrRemoteClosed is reported when the backend closes the connection
var ErrRemoteClosed = errors.New("connection closed by transcription service")

// ServiceError is an error reported by the transcription service itself
type ServiceError struct {
	Msg string
}

func (e *ServiceError) Error() string {
	return "transcription service error: " + e.Msg
}

// Event is one inbound message. Err is set for terminal events.
type Event struct {
	Text  string
	Final bool
	Err   error
}

type message struct {
	PartialTranscript *string `json:"partialTranscript,omitempty"`
	IsFinal           bool    `json:"isFinal,omitempty"`
	Error             *string `json:"error,omitempty"`
}

// Client is a single transcription session connection, it does not reconnect
type Client struct {
	conn   *websocket.Conn
	events chan Event

	writeLock sync.Mutex
	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

// Dial connects to the backend
func Dial(ctx context.Context, backendURL string, sampleRate int) (*Client, error) {
	u, err := prepareURL(backendURL, sampleRate)
	if err != nil {
		return nil, err
	}
	goapp.Log.Info().Str("url", u).Msg("dial")
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("can't dial to URL: %w", err)
	}
	res := &Client{conn: conn, events: make(chan Event, 64), done: make(chan struct{})}
	go res.readLoop()
	return res, nil
}

func prepareURL(backendURL string, sampleRate int) (string, error) {
	u, err := url.Parse(backendURL)
	if err != nil {
		return "", fmt.Errorf("can't parse url %q: %w", backendURL, err)
	}
	q := u.Query()
	if sampleRate > 0 {
		q.Set("sample_rate", strconv.Itoa(sampleRate))
	}
	q.Set("encoding", "linear16")
	q.Set("channels", "1")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Events returns inbound events, the channel is closed when reading stops
func (c *Client) Events() <-chan Event {
	return c.events
}

// Send writes one PCM frame
func (c *Client) Send(frame []byte) error {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	select {
	case <-c.done:
		return net.ErrClosed
	default:
	}
	if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return fmt.Errorf("can't write audio: %w", err)
	}
	return nil
}

// Close closes the connection, no error event is produced after it
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeLock.Lock()
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeLock.Unlock()
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *Client) readLoop() {
	defer close(c.events)
	defer goapp.Log.Debug().Msg("read routine ended")
	for {
		mType, msg, err := c.conn.ReadMessage()
		if err != nil {
			if c.closed() {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
				errors.Is(err, net.ErrClosed) {
				goapp.Log.Info().Msg("connection closed")
				c.send(Event{Err: ErrRemoteClosed})
				return
			}
			goapp.Log.Error().Err(err).Msg("read error")
			c.send(Event{Err: fmt.Errorf("can't read: %w", err)})
			return
		}
		if mType != websocket.TextMessage {
			continue
		}
		goapp.Log.Trace().Str("msg", string(msg)).Send()
		ev, ok := decode(msg)
		if ok && !c.send(ev) {
			return
		}
	}
}

func decode(msg []byte) (Event, bool) {
	var m message
	if err := json.Unmarshal(msg, &m); err != nil {
		goapp.Log.Warn().Err(err).Msg("can't decode message, skip")
		return Event{}, false
	}
	if m.Error != nil {
		return Event{Err: &ServiceError{Msg: *m.Error}}, true
	}
	if m.PartialTranscript != nil {
		return Event{Text: *m.PartialTranscript, Final: m.IsFinal}, true
	}
	return Event{}, false
}

func (c *Client) send(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

func (c *Client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
