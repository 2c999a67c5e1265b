package verifier

import (
	"context"
	"net"
	"sync"
	"time"
)

const reachProbeTimeout = 3 * time.Second

// DialFunc opens a TCP connection; net.Dialer.DialContext satisfies it.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// reachProber answers one question: can this process open outbound port-25
// connections at all? Most cloud networks block the port wholesale, so the
// answer is a property of the environment, not of any one destination. The
// first probe's answer is memoized for the prober's lifetime; construct a new
// Verifier for a fresh answer.
type reachProber struct {
	dial DialFunc

	mu      sync.Mutex
	probed  bool
	outcome bool
}

func newReachProber(dial DialFunc) *reachProber {
	if dial == nil {
		d := &net.Dialer{Timeout: reachProbeTimeout}
		dial = d.DialContext
	}
	return &reachProber{dial: dial}
}

// IsReachable probes mxHost:25 on the first call and returns the cached
// verdict afterwards. Dial errors and timeouts resolve to false, never to an
// error.
func (p *reachProber) IsReachable(ctx context.Context, mxHost string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.probed {
		return p.outcome
	}

	ctx, cancel := context.WithTimeout(ctx, reachProbeTimeout)
	defer cancel()

	conn, err := p.dial(ctx, "tcp", net.JoinHostPort(mxHost, "25"))
	if err == nil {
		conn.Close()
	}

	p.probed = true
	p.outcome = err == nil
	return p.outcome
}
