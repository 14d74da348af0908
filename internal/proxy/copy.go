package proxy

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"
)

// CopyBidirectional pumps bytes between both connections until either
// direction reaches end-of-stream or fails, then closes both sides so the
// other direction does not linger half-open. It returns the number of
// bytes copied client-to-upstream and upstream-to-client.
func CopyBidirectional(ctx context.Context, client, upstream net.Conn) (toUpstream, toClient int64, err error) {
	var closeOnce sync.Once
	closeBoth := func() {
		closeOnce.Do(func() {
			_ = client.Close()
			_ = upstream.Close()
		})
	}
	defer closeBoth()

	// If the context is canceled mid-relay, close both sides to unblock
	// the copies.
	stop := context.AfterFunc(ctx, closeBoth)
	defer stop()

	var g errgroup.Group

	g.Go(func() error {
		n, err := io.Copy(upstream, client)
		toUpstream = n
		closeBoth()
		return err
	})

	g.Go(func() error {
		n, err := io.Copy(client, upstream)
		toClient = n
		closeBoth()
		return err
	})

	err = g.Wait()

	// Whichever direction finishes first closes both connections, so the
	// other copy routinely fails with "use of closed network connection"
	// (or io.ErrClosedPipe for in-memory pipes). That is the expected
	// shutdown sequence, not a relay error.
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		err = nil
	}
	return toUpstream, toClient, err
}
