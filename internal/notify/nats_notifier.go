package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Publisher is the subset of *nats.Conn the notifier needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type NATSNotifier struct {
	pub     Publisher
	conn    *nats.Conn
	subject string
}

func NewNATSNotifier(url, subject string) (*NATSNotifier, error) {
	nc, err := nats.Connect(url,
		nats.Name("tasksync-reminders"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return &NATSNotifier{pub: nc, conn: nc, subject: subject}, nil
}

func NewNATSNotifierWithPublisher(pub Publisher, subject string) *NATSNotifier {
	return &NATSNotifier{pub: pub, subject: subject}
}

func (n *NATSNotifier) Notify(_ context.Context, r Reminder) error {
	data, err := encode(r)
	if err != nil {
		return fmt.Errorf("encode reminder %s: %w", r.TaskID, err)
	}
	if err := n.pub.Publish(n.subject, data); err != nil {
		return fmt.Errorf("publish reminder %s (nats): %w", r.TaskID, err)
	}
	return nil
}

func (n *NATSNotifier) Close() error {
	if n.conn == nil {
		return nil
	}
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
		return fmt.Errorf("drain nats: %w", err)
	}
	return nil
}
