// Package notifier delivers trading messages and receives operator commands.
package notifier

import "context"

// Notifier sends HTML-formatted messages to the operator.
type Notifier interface {
	Send(ctx context.Context, text string) error
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Noop discards messages; used when no bot token is configured.
type Noop struct{}

func (Noop) Send(context.Context, string) error               { return nil }
func (Noop) SendWithRetry(context.Context, string, int) error { return nil }
