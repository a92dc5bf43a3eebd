package shutdown

import (
	"context"
	"os"

	"ptt/log"
)

// Requester is whatever stops the gate when a signal arrives.
type Requester interface {
	Shutdown()
}

// Watch requests shutdown on the first interrupt or terminate signal and
// returns. It also returns when ctx is done.
func Watch(ctx context.Context, r Requester) {
	ch := make(chan os.Signal, 1)
	Notify(ch)
	defer Stop(ch)

	select {
	case sig := <-ch:
		log.Infof("received %s, shutting down", sig)
		r.Shutdown()
	case <-ctx.Done():
	}
}
