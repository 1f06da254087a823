package visual

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Stream serves frames to websocket clients. Every connected client gets
// each published frame; clients that fail a write are dropped.
type Stream struct {
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu          sync.Mutex
	subscribers map[uint64]*subscriber
	nextID      atomic.Uint64
	last        []byte
}

func NewStream(logger *log.Logger) *Stream {
	if logger == nil {
		logger = log.Default()
	}
	return &Stream{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		subscribers: make(map[uint64]*subscriber),
	}
}

// ServeHTTP upgrades the request and keeps the connection subscribed until
// the client goes away. The most recent frame is sent on connect.
func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("upgrade failed: %v", err)
		return
	}

	id := s.nextID.Add(1)
	sub := &subscriber{conn: conn}

	s.mu.Lock()
	s.subscribers[id] = sub
	last := s.last
	s.mu.Unlock()

	if last != nil {
		if err := sub.write(last); err != nil {
			s.disconnect(id)
			return
		}
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.disconnect(id)
			return
		}
	}
}

func (sub *subscriber) write(data []byte) error {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return sub.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Stream) disconnect(id uint64) {
	s.mu.Lock()
	sub, ok := s.subscribers[id]
	delete(s.subscribers, id)
	s.mu.Unlock()
	if ok {
		sub.conn.Close()
	}
}

// Subscribers reports the number of connected clients.
func (s *Stream) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// Publish implements Publisher.
func (s *Stream) Publish(frame Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame %d: %w", frame.Tick, err)
	}

	s.mu.Lock()
	s.last = data
	subs := make(map[uint64]*subscriber, len(s.subscribers))
	for id, sub := range s.subscribers {
		subs[id] = sub
	}
	s.mu.Unlock()

	for id, sub := range subs {
		if err := sub.write(data); err != nil {
			s.logger.Printf("failed to send frame %d to client %d: %v", frame.Tick, id, err)
			s.disconnect(id)
		}
	}
	return nil
}

// Close drops every client.
func (s *Stream) Close() {
	s.mu.Lock()
	subs := s.subscribers
	s.subscribers = make(map[uint64]*subscriber)
	s.mu.Unlock()
	for _, sub := range subs {
		sub.mu.Lock()
		sub.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
		sub.mu.Unlock()
		sub.conn.Close()
	}
}
