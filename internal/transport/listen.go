// File: internal/transport/listen.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-logr/logr"

	"github.com/momentics/hioload-headunit/internal/resiliency"
)

// DefaultPort is the projection TCP listening port.
const DefaultPort = 5000

// Listen binds a TCP listener on addr, retrying with exponential back-off
// until ctx is done. The socket is created with address reuse enabled so a
// quick restart does not trip over TIME_WAIT.
func Listen(ctx context.Context, addr string, log logr.Logger) (net.Listener, error) {
	lc := net.ListenConfig{Control: reuseAddrControl}

	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(100*time.Millisecond),
		backoff.WithMaxInterval(2*time.Second),
		backoff.WithMaxElapsedTime(0),
	)
	attempt := 0
	ln, err := resiliency.RetryGet(ctx, b, func() (net.Listener, error) {
		attempt++
		ln, err := lc.Listen(ctx, "tcp4", addr)
		if err != nil {
			log.V(1).Info("Listen attempt failed", "addr", addr, "attempt", attempt, "error", err.Error())
			return nil, err
		}
		return ln, nil
	})
	if err != nil {
		return nil, fmt.Errorf("tcp listen on %s failed: %w", addr, err)
	}
	log.Info("Listening for network clients", "addr", ln.Addr().String())
	return ln, nil
}
