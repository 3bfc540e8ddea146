// Package bus connects the daemon to a publish/subscribe session
// broker. Outbound only: incoming traffic on the session is read and
// dropped by design.
package bus

import (
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/framecast/framecast/pkg/logger"
)

const (
	writeWait   = 10 * time.Second
	sendBacklog = 8
)

// Session is a process-wide handle to one bus session. It is created
// once at startup and polled for liveness every pipeline cycle.
type Session struct {
	cid  uint32
	conn *websocket.Conn
	send chan []byte
	quit chan struct{}
	log  *logger.Logger

	running  atomic.Bool
	stopOnce sync.Once
}

// NewSession dials the broker and joins the session identified by cid.
func NewSession(cid uint32, addr string, log *logger.Logger) (*Session, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("bus: bad broker address %q: %w", addr, err)
	}
	u.Path = fmt.Sprintf("/session/%d", cid)
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("bus: dial %v: %w", u, err)
	}

	s := &Session{
		cid:  cid,
		conn: conn,
		send: make(chan []byte, sendBacklog),
		quit: make(chan struct{}),
		log:  log,
	}
	s.running.Store(true)
	go s.reader()
	go s.writer()
	return s, nil
}

// Publish sends one coded frame to the session, fire and forget. When
// the writer cannot keep up the frame is dropped, delivery is the
// transport's concern.
func (s *Session) Publish(payload []byte, width, height int) error {
	if !s.running.Load() {
		return fmt.Errorf("bus: session %d is not running", s.cid)
	}
	env := Envelope{
		DataType:    ImageReadingType,
		SenderStamp: s.cid,
		Sent:        time.Now().UnixMicro(),
		ImageReading: &ImageReading{
			Format: "h264",
			Width:  uint32(width),
			Height: uint32(height),
			Data:   payload,
		},
	}
	raw, err := json.Marshal(&env)
	if err != nil {
		return fmt.Errorf("bus: marshal: %w", err)
	}
	select {
	case s.send <- raw:
	default:
		// Decoders stall on a missing frame until the next keyframe,
		// so a drop is worth more than a debug line.
		metricFramesDropped.Inc()
		s.log.Warn().Int("bytes", len(payload)).Msg("send backlog full, frame dropped")
	}
	return nil
}

// Running reports whether the session transport is still viable. The
// pipeline uses it purely as a termination signal.
func (s *Session) Running() bool { return s.running.Load() }

// Stop marks the session not running and closes the connection. Safe
// to call more than once and from any goroutine.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.running.Store(false)
		close(s.quit)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		_ = s.conn.Close()
	})
}

// reader drains inbound messages. The session consumes nothing, the
// read pump only serves connection liveness.
func (s *Session) reader() {
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Msg("session read failed")
			}
			break
		}
	}
	s.Stop()
}

// writer serializes all writes to the connection.
func (s *Session) writer() {
	for {
		select {
		case raw := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				s.Stop()
				return
			}
			if err := s.conn.WriteMessage(websocket.BinaryMessage, raw); err != nil {
				s.log.Warn().Err(err).Msg("session write failed")
				s.Stop()
				return
			}
		case <-s.quit:
			return
		}
	}
}
