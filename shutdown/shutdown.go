// Package shutdown cancels a context when the process is asked to exit.
package shutdown

import (
	"context"
	"os/signal"
)

// Context returns a copy of parent that is canceled on the first
// termination signal. The returned stop func releases the signal handler.
func Context(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}
