package verifier

import (
	"context"
	"fmt"
	"net"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	smtpConnectTimeout = 4 * time.Second
	smtpSessionTimeout = 8 * time.Second
	maxMXAttempts      = 3
)

// Transport is the wire capability the handshake engine drives. The real
// implementation speaks TCP; tests plug in an in-memory fake.
type Transport interface {
	Connect(ctx context.Context, host string) error
	Cmd(line string) error
	ReadReply() (code int, text string, err error)
	Close() error
}

// TransportFactory builds a fresh Transport per SMTP session.
type TransportFactory func() Transport

// netTransport speaks SMTP over a raw TCP connection. net/smtp is not used
// on purpose: it folds reply codes into opaque errors, and the engine needs
// the codes themselves.
type netTransport struct {
	dial DialFunc
	conn net.Conn
	text *textproto.Conn
}

// NewNetTransport returns the production Transport. A nil dial falls back to
// a plain net.Dialer.
func NewNetTransport(dial DialFunc) Transport {
	if dial == nil {
		d := &net.Dialer{}
		dial = d.DialContext
	}
	return &netTransport{dial: dial}
}

func (t *netTransport) Connect(ctx context.Context, host string) error {
	dialCtx, cancel := context.WithTimeout(ctx, smtpConnectTimeout)
	defer cancel()

	conn, err := t.dial(dialCtx, "tcp", net.JoinHostPort(host, "25"))
	if err != nil {
		return err
	}

	// The session deadline, not the connect deadline, bounds all reads.
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	t.conn = conn
	t.text = textproto.NewConn(conn)
	return nil
}

func (t *netTransport) Cmd(line string) error {
	return t.text.PrintfLine("%s", line)
}

func (t *netTransport) ReadReply() (int, string, error) {
	return t.text.ReadResponse(-1)
}

func (t *netTransport) Close() error {
	if t.text != nil {
		return t.text.Close()
	}
	return nil
}

// handshakeState tracks which SMTP command the engine is waiting on.
type handshakeState int

const (
	stateGreeting handshakeState = iota // connected, awaiting 220
	stateEHLO                           // EHLO sent, awaiting 250
	stateMailFrom                       // MAIL FROM sent, awaiting 250
	stateRcptTo                         // RCPT TO sent, awaiting the verdict
)

// transition is one step of the reply-driven state machine: either the next
// outbound command, or a terminal outcome.
type transition struct {
	next handshakeState
	cmd  string
	done *outcome
}

// handshake holds the per-session identities; the transition table is a pure
// function of (state, code, text) so it can be unit-tested without sockets.
type handshake struct {
	hello string
	from  string
	rcpt  string
}

func (h handshake) transition(state handshakeState, code int, text string) transition {
	switch state {
	case stateGreeting:
		if code == 220 {
			return transition{next: stateEHLO, cmd: "EHLO " + h.hello}
		}
		return terminal(StatusUnknown, ReasonBlocked, code, text)

	case stateEHLO:
		if code == 250 {
			return transition{next: stateMailFrom, cmd: fmt.Sprintf("MAIL FROM:<%s>", h.from)}
		}
		return terminal(StatusUnknown, ReasonBlocked, code, text)

	case stateMailFrom:
		switch code {
		case 250:
			return transition{next: stateRcptTo, cmd: fmt.Sprintf("RCPT TO:<%s>", h.rcpt)}
		case 421, 450, 451:
			return terminal(StatusRisky, ReasonRateLimited, code, text)
		default:
			return terminal(StatusUnknown, ReasonBlocked, code, text)
		}

	case stateRcptTo:
		switch code {
		case 250, 251:
			return terminal(StatusValid, ReasonValid, code, text)
		case 550, 551, 552, 553, 554:
			lowered := strings.ToLower(text)
			if strings.Contains(lowered, "mailbox full") || strings.Contains(lowered, "quota") {
				return terminal(StatusRisky, ReasonMailboxFull, code, text)
			}
			return terminal(StatusInvalid, ReasonMailboxUnavailable, code, text)
		case 421, 450, 451, 452:
			return terminal(StatusRisky, ReasonRateLimited, code, text)
		default:
			return terminal(StatusUnknown, ReasonUnknownError, code, text)
		}
	}
	return terminal(StatusUnknown, ReasonUnknownError, code, text)
}

func terminal(status Status, reason Reason, code int, text string) transition {
	return transition{done: &outcome{
		Status:   status,
		Reason:   reason,
		Response: fmt.Sprintf("%d %s", code, text),
	}}
}

// smtpEngine runs handshakes against a domain's MX hosts.
type smtpEngine struct {
	hello     string
	from      string
	transport TransportFactory
}

// Probe attempts a full handshake against up to the first three MX hosts in
// priority order. A host that does not even accept the connection is skipped;
// the first host that carries the session to a verdict wins. When the real
// candidate is accepted, a second independent session against a randomized,
// guaranteed-nonexistent local part decides whether the domain is a catch-all.
func (e *smtpEngine) Probe(ctx context.Context, email, domain string, mxHosts []string) outcome {
	out, host := e.probeOnce(ctx, email, mxHosts)
	if out.Status != StatusValid {
		return out
	}

	probe := randomProbeAddress(domain)
	second, _ := e.probeOnce(ctx, probe, []string{host})
	if second.Status == StatusValid {
		return outcome{
			Status:   StatusCatchAll,
			Reason:   ReasonCatchAllDetected,
			Response: out.Response,
		}
	}
	return out
}

// probeOnce runs one handshake session and reports which host produced the
// verdict, so the catch-all probe can target the same exchange.
func (e *smtpEngine) probeOnce(ctx context.Context, rcpt string, mxHosts []string) (outcome, string) {
	hosts := mxHosts
	if len(hosts) > maxMXAttempts {
		hosts = hosts[:maxMXAttempts]
	}

	h := handshake{hello: e.hello, from: e.from, rcpt: rcpt}

	for _, host := range hosts {
		out, connected := e.runSession(ctx, h, host)
		if !connected {
			continue // unreachable host is not a verdict, try the next MX
		}
		return out, host
	}

	return outcome{
		Status:   StatusUnknown,
		Reason:   ReasonTimeout,
		Response: "no MX host accepted a connection",
	}, ""
}

func (e *smtpEngine) runSession(parent context.Context, h handshake, host string) (outcome, bool) {
	ctx, cancel := context.WithTimeout(parent, smtpSessionTimeout)
	defer cancel()

	t := e.transport()
	if err := t.Connect(ctx, host); err != nil {
		return outcome{}, false
	}
	defer t.Close()

	state := stateGreeting
	for {
		code, text, err := t.ReadReply()
		if err != nil {
			return sessionError(ctx, err), true
		}

		tr := h.transition(state, code, text)
		if tr.done != nil {
			_ = t.Cmd("QUIT")
			return *tr.done, true
		}

		if err := t.Cmd(tr.cmd); err != nil {
			return sessionError(ctx, err), true
		}
		state = tr.next
	}
}

// sessionError classifies a mid-session transport failure. Deadline blowouts
// become timeout; anything else is an unknown infrastructure error. Both are
// indeterminate, so the orchestrator falls through to the DNS policy.
func sessionError(ctx context.Context, err error) outcome {
	reason := ReasonUnknownError
	if ctx.Err() != nil {
		reason = ReasonTimeout
	} else if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
		reason = ReasonTimeout
	}
	return outcome{Status: StatusUnknown, Reason: reason, Response: err.Error()}
}

// randomProbeAddress builds a local part no sane mail server has a mailbox
// for. Acceptance of this address marks the domain as a catch-all.
func randomProbeAddress(domain string) string {
	return fmt.Sprintf("probe-%s@%s", uuid.NewString(), domain)
}
