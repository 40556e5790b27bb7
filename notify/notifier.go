// Package notify delivers short title/body messages to the user.
package notify

import (
	"context"

	"github.com/jrsteele09/go-calendar-relay/internal/fanout"
)

// Notifier sends one message.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, title, body string) error

func (f NotifierFunc) Notify(ctx context.Context, title, body string) error {
	return f(ctx, title, body)
}

// All sends the message through every notifier concurrently. Every notifier
// is attempted; failures are returned together as an
// *errors.AggregateError in notifier order.
func All(ctx context.Context, notifiers []Notifier, title, body string) error {
	return fanout.Run(ctx, notifiers, func(ctx context.Context, n Notifier) error {
		return n.Notify(ctx, title, body)
	})
}
