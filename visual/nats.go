package visual

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is where frames are published when no subject is given.
const DefaultSubject = "rover.visual"

// Conn is the part of a NATS connection used for publishing.
type Conn interface {
	Publish(subject string, data []byte) error
}

// NATS publishes each frame as JSON on a subject.
type NATS struct {
	conn    Conn
	subject string
	owned   *nats.Conn
}

func NewNATS(conn Conn, subject string) *NATS {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATS{conn: conn, subject: subject}
}

// DialNATS connects to url and publishes on subject. Close releases the
// connection.
func DialNATS(url, subject string) (*NATS, error) {
	conn, err := nats.Connect(url, nats.Name("rover"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	n := NewNATS(conn, subject)
	n.owned = conn
	return n, nil
}

// Publish implements Publisher.
func (n *NATS) Publish(frame Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", n.subject, err)
	}
	return nil
}

func (n *NATS) Close() {
	if n.owned != nil {
		n.owned.Drain()
	}
}
