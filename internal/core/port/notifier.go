package port

import "context"

// Notifier delivers messages to an account holder out-of-band.
//
// A delivery failure must not corrupt account state: reset tokens are
// persisted before Send is attempted and a failed send is reported, not
// rolled back.
type Notifier interface {
	Send(ctx context.Context, toEmail, subject, bodyText, bodyHTML string) error
}
