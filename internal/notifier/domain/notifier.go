// Package domain defines the outbound notification boundary. Sending is
// fire-and-forget from the reconciliation core's perspective: failures
// are logged by the caller, never retried.
package domain

import "context"

type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type Notifier interface {
	SendEmail(ctx context.Context, email Email) error
}
