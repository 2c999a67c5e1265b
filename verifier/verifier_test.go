package verifier

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn is the least net.Conn that satisfies the reachability prober.
type fakeConn struct{}

func (fakeConn) Read(b []byte) (int, error)         { return 0, errors.New("not implemented") }
func (fakeConn) Write(b []byte) (int, error)        { return len(b), nil }
func (fakeConn) Close() error                       { return nil }
func (fakeConn) LocalAddr() net.Addr                { return &net.TCPAddr{} }
func (fakeConn) RemoteAddr() net.Addr               { return &net.TCPAddr{} }
func (fakeConn) SetDeadline(t time.Time) error      { return nil }
func (fakeConn) SetReadDeadline(t time.Time) error  { return nil }
func (fakeConn) SetWriteDeadline(t time.Time) error { return nil }

func dialOK(calls *int) DialFunc {
	return func(_ context.Context, _, _ string) (net.Conn, error) {
		*calls++
		return fakeConn{}, nil
	}
}

func dialBlocked(calls *int) DialFunc {
	return func(_ context.Context, _, _ string) (net.Conn, error) {
		*calls++
		return nil, errors.New("connect: connection timed out")
	}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func fullPostureResolver(domain string, mxHosts ...string) *fakeResolver {
	mx := make([]*net.MX, len(mxHosts))
	for i, host := range mxHosts {
		mx[i] = &net.MX{Host: host + ".", Pref: uint16(10 * (i + 1))}
	}
	return &fakeResolver{
		mx: mx,
		txt: map[string][]string{
			domain:           {"v=spf1 include:_spf." + domain + " ~all"},
			"_dmarc." + domain: {"v=DMARC1; p=quarantine"},
		},
		hosts: map[string][]string{domain: {"192.0.2.1"}},
		ns:    map[string][]*net.NS{domain: {{Host: "ns1." + domain}}},
	}
}

func TestVerifySyntaxInvalidSkipsNetwork(t *testing.T) {
	var dials int
	resolver := &fakeResolver{}
	v := New(Options{
		Resolver: resolver,
		Dial:     dialOK(&dials),
		Logger:   quietLogger(),
	})

	result := v.Verify(context.Background(), "not-an-address")

	assert.Equal(t, StatusInvalid, result.Status)
	assert.Equal(t, ReasonSyntaxInvalid, result.Reason)
	assert.Zero(t, resolver.mxCalls, "syntax failure must not trigger DNS")
	assert.Zero(t, dials, "syntax failure must not touch the network")
}

func TestVerifyDisposableSkipsDNS(t *testing.T) {
	resolver := &fakeResolver{}
	v := New(Options{Resolver: resolver, Logger: quietLogger()})

	result := v.Verify(context.Background(), "someone@mailinator.com")

	assert.Equal(t, StatusInvalid, result.Status)
	assert.Equal(t, ReasonDisposable, result.Reason)
	assert.True(t, result.IsDisposable)
	assert.Zero(t, resolver.mxCalls)
}

func TestVerifyNoMXRecords(t *testing.T) {
	resolver := &fakeResolver{mxErr: errors.New("nxdomain")}
	v := New(Options{Resolver: resolver, Logger: quietLogger()})

	result := v.Verify(context.Background(), "user@nomail.example")

	assert.Equal(t, StatusInvalid, result.Status)
	assert.Equal(t, ReasonMXMissing, result.Reason)
}

func TestVerifyFreeMailDNSFallback(t *testing.T) {
	var dials int
	v := New(Options{
		Resolver: fullPostureResolver("gmail.com", "alt1.gmail-smtp-in.l.google.com"),
		Dial:     dialBlocked(&dials),
		Logger:   quietLogger(),
	})

	result := v.Verify(context.Background(), "someone@gmail.com")

	assert.Equal(t, StatusValid, result.Status)
	assert.Equal(t, ReasonDNSVerified, result.Reason)
	assert.Equal(t, 100, result.DNSScore)
	assert.True(t, result.IsFree)
	assert.Equal(t, "Google Workspace", result.Provider)
}

func TestVerifyRoleAccountDowngrade(t *testing.T) {
	var dials int
	session := &scriptedTransport{replies: acceptAll()}
	catchAllProbe := &scriptedTransport{replies: []reply{
		{220, "ready"}, {250, "ok"}, {250, "ok"}, {550, "no such user"},
	}}
	engine, _ := newScriptedEngine(session, catchAllProbe)

	v := New(Options{
		Resolver:  fullPostureResolver("corp.example", "mx1.corp.example"),
		Dial:      dialOK(&dials),
		Transport: engine.transport,
		Logger:    quietLogger(),
	})

	result := v.Verify(context.Background(), "support@corp.example")

	assert.Equal(t, StatusRisky, result.Status)
	assert.Equal(t, ReasonRoleAccount, result.Reason)
	assert.True(t, result.IsRoleBased)
}

func TestVerifyWeakDNSFallsToUnknown(t *testing.T) {
	var dials int
	v := New(Options{
		Resolver: &fakeResolver{mx: []*net.MX{{Host: "mx.weak.example.", Pref: 10}}},
		Dial:     dialBlocked(&dials),
		Logger:   quietLogger(),
	})

	result := v.Verify(context.Background(), "user@weak.example")

	assert.Equal(t, StatusUnknown, result.Status)
	assert.Equal(t, ReasonNoSMTP, result.Reason)
	assert.Equal(t, 25, result.DNSScore)
}

func TestVerifyMidScoreFallbackIsRisky(t *testing.T) {
	// SPF only (score 50) and SPF+A (score 65) land in different bands of the
	// fallback policy but both resolve to risky/dns_verified today.
	for _, resolver := range []*fakeResolver{
		{
			mx:  []*net.MX{{Host: "mx.plain.example.", Pref: 10}},
			txt: map[string][]string{"plain.example": {"v=spf1 -all"}},
		},
		{
			mx:    []*net.MX{{Host: "mx.plain.example.", Pref: 10}},
			txt:   map[string][]string{"plain.example": {"v=spf1 -all"}},
			hosts: map[string][]string{"plain.example": {"192.0.2.7"}},
		},
	} {
		var dials int
		v := New(Options{Resolver: resolver, Dial: dialBlocked(&dials), Logger: quietLogger()})

		result := v.Verify(context.Background(), "user@plain.example")

		assert.Equal(t, StatusRisky, result.Status)
		assert.Equal(t, ReasonDNSVerified, result.Reason)
	}
}

func TestVerifyIndeterminateSMTPUsesDNSPolicy(t *testing.T) {
	var dials int
	session := &scriptedTransport{replies: []reply{{554, "access denied"}}}
	engine, _ := newScriptedEngine(session)

	v := New(Options{
		Resolver:  fullPostureResolver("corp.example", "mx1.corp.example"),
		Dial:      dialOK(&dials),
		Transport: engine.transport,
		Logger:    quietLogger(),
	})

	result := v.Verify(context.Background(), "user@corp.example")

	// The handshake was indeterminate, the DNS posture decides, and the
	// server's actual reply is kept for diagnostics.
	assert.Equal(t, StatusRisky, result.Status)
	assert.Equal(t, ReasonDNSVerified, result.Reason)
	assert.Equal(t, "554 access denied", result.SMTPResponse)
}

func TestVerifyCatchAll(t *testing.T) {
	var dials int
	session := &scriptedTransport{replies: acceptAll()}
	catchAllProbe := &scriptedTransport{replies: acceptAll()}
	engine, _ := newScriptedEngine(session, catchAllProbe)

	v := New(Options{
		Resolver:  fullPostureResolver("corp.example", "mx1.corp.example"),
		Dial:      dialOK(&dials),
		Transport: engine.transport,
		Logger:    quietLogger(),
	})

	result := v.Verify(context.Background(), "anyone@corp.example")

	assert.Equal(t, StatusCatchAll, result.Status)
	assert.Equal(t, ReasonCatchAllDetected, result.Reason)
	assert.True(t, result.IsCatchAll)
}

func TestVerifyReachabilityMemoized(t *testing.T) {
	var dials int
	v := New(Options{
		Resolver: fullPostureResolver("gmail.com", "gmail-smtp-in.l.google.com"),
		Dial:     dialBlocked(&dials),
		Logger:   quietLogger(),
	})

	first := v.Verify(context.Background(), "someone@gmail.com")
	second := v.Verify(context.Background(), "someone@gmail.com")

	assert.Equal(t, 1, dials, "the port-25 probe happens once per Verifier")
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Reason, second.Reason)
}

func TestVerifyAlwaysProducesLegalPair(t *testing.T) {
	var dials int
	emails := []string{
		"bad syntax",
		"user@mailinator.com",
		"user@nomail.example",
		"someone@gmail.com",
	}
	v := New(Options{
		Resolver: fullPostureResolver("gmail.com", "gmail-smtp-in.l.google.com"),
		Dial:     dialBlocked(&dials),
		Logger:   quietLogger(),
	})

	for _, email := range emails {
		result := v.Verify(context.Background(), email)
		require.True(t, result.Status.IsValid(), email)
		assert.True(t, LegalPair(result.Status, result.Reason),
			"%s produced %s/%s", email, result.Status, result.Reason)
	}
}
