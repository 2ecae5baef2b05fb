package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const DefaultSubject = "healthwatch.status"

// NATS publishes alerts as JSON messages so other services can react to outages.
type NATS struct {
	Conn    *nats.Conn
	Subject string
}

// Message is the payload published on the subject.
type Message struct {
	Title  string    `json:"title"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}

func NewNATS(nc *nats.Conn, subject string) *NATS {
	if nc == nil {
		return nil
	}
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATS{Conn: nc, Subject: subject}
}

// Connect dials url with the reconnect policy used for long-lived publishers.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("healthwatch"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return nc, nil
}

func (n *NATS) Send(ctx context.Context, title, text string) error {
	if n == nil || n.Conn == nil {
		return errors.New("nats disabled")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(Message{Title: title, Text: text, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode nats message: %w", err)
	}
	if err := n.Conn.Publish(n.Subject, body); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}
