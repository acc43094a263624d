package session

import (
	"context"
	"sync"
	"time"

	"chat-core/domain/event"

	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

// wsSink ships view deltas down one websocket connection. Gorilla
// connections allow a single concurrent writer, so the sink shares a
// write mutex with the request/reply path.
type wsSink struct {
	conn    *websocket.Conn
	writeMu *sync.Mutex
}

func (s *wsSink) Consume(ctx context.Context, d event.Delta) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteJSON(fromDelta(d))
}
