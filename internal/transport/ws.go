package transport

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"filefeed/internal/event"
)

const (
	dialTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second
)

// WSSender delivers segments as JSON messages over a websocket
// connection to the receiving system. Writes are serialized; the
// pipeline treats delivery as fire-and-forget, so a failed write is
// surfaced as an error for the emitter to log, nothing more.
type WSSender struct {
	url  string
	mu   sync.Mutex
	conn *websocket.Conn
}

// DialWS connects to the target endpoint.
func DialWS(url string) (*WSSender, error) {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	log.Info().Str("url", url).Msg("connected to event target")
	return &WSSender{url: url, conn: conn}, nil
}

func (s *WSSender) Send(seg event.Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}
	if err := s.conn.WriteJSON(seg); err != nil {
		return fmt.Errorf("write segment %d of %s: %w", seg.Index, seg.File, err)
	}
	return nil
}

// Close tells the peer we are done and drops the connection.
func (s *WSSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	deadline := time.Now().Add(writeTimeout)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := s.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		log.Debug().Str("url", s.url).Err(err).Msg("close message not delivered")
	}
	return s.conn.Close()
}
