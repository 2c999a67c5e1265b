// Package verifier implements deliverability verification for email
// addresses without sending mail: syntax and heuristic classification, DNS
// health scoring, and a direct SMTP handshake probe with catch-all detection.
package verifier

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/likexian/whois"
	"github.com/sirupsen/logrus"
)

const (
	defaultHelloDomain = "verify.verimail.io"
	defaultFromEmail   = "postmaster@verify.verimail.io"
)

// Options configures a Verifier. Zero values fall back to production
// defaults; tests inject fakes for Resolver, Transport and Dial.
type Options struct {
	HelloDomain string
	FromEmail   string
	Resolver    Resolver
	Transport   TransportFactory
	Dial        DialFunc
	Logger      *logrus.Logger
	EnableWHOIS bool
}

// Verifier runs the full verification pipeline. The port-25 reachability
// verdict is memoized for the life of the instance (see reachProber), so one
// Verifier per process lifetime is the intended scoping.
type Verifier struct {
	resolver    Resolver
	engine      *smtpEngine
	prober      *reachProber
	log         *logrus.Logger
	enableWHOIS bool
}

func New(opts Options) *Verifier {
	if opts.HelloDomain == "" {
		opts.HelloDomain = defaultHelloDomain
	}
	if opts.FromEmail == "" {
		opts.FromEmail = defaultFromEmail
	}
	if opts.Resolver == nil {
		opts.Resolver = net.DefaultResolver
	}
	if opts.Transport == nil {
		dial := opts.Dial
		opts.Transport = func() Transport { return NewNetTransport(dial) }
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}

	return &Verifier{
		resolver: opts.Resolver,
		engine: &smtpEngine{
			hello:     opts.HelloDomain,
			from:      opts.FromEmail,
			transport: opts.Transport,
		},
		prober:      newReachProber(opts.Dial),
		log:         opts.Logger,
		enableWHOIS: opts.EnableWHOIS,
	}
}

// Verify classifies a single address into one of the five terminal statuses.
// It never returns an error for a bad address; infrastructure trouble
// degrades the result to unknown instead of propagating.
func (v *Verifier) Verify(ctx context.Context, email string) *Result {
	email = strings.ToLower(strings.TrimSpace(email))

	result := &Result{
		Email:      email,
		VerifiedAt: time.Now().UTC(),
	}

	c := Classify(email)
	if !c.SyntaxValid {
		return v.finish(result, outcome{Status: StatusInvalid, Reason: ReasonSyntaxInvalid})
	}

	result.IsDisposable = c.IsDisposable
	result.IsRoleBased = c.IsRoleBased
	result.IsFree = c.IsFree

	if c.IsDisposable {
		return v.finish(result, outcome{Status: StatusInvalid, Reason: ReasonDisposable})
	}

	mxHosts, err := ResolveMX(ctx, v.resolver, c.Domain)
	if err != nil || len(mxHosts) == 0 {
		return v.finish(result, outcome{Status: StatusInvalid, Reason: ReasonMXMissing})
	}
	result.MXHosts = mxHosts
	result.Provider = FingerprintProvider(mxHosts)

	report := DNSReport{MXHosts: mxHosts, Provider: result.Provider}
	ScoreDomain(ctx, v.resolver, c.Domain, &report)
	result.DNSScore = report.Score
	result.HasSPF = report.HasSPF
	result.HasDMARC = report.HasDMARC

	v.attachWHOIS(result, c.Domain)

	if !v.prober.IsReachable(ctx, mxHosts[0]) {
		v.log.WithFields(logrus.Fields{"domain": c.Domain, "score": report.Score}).
			Debug("port 25 unreachable, applying DNS fallback")
		return v.finish(result, v.fallbackOutcome(c, report))
	}

	out := v.engine.Probe(ctx, email, c.Domain, mxHosts)
	if out.Status == StatusUnknown {
		// Indeterminate handshake: greylisting, mid-session drops, odd reply
		// codes. Retrying the same blocked path burns the timeout budget
		// again, so the DNS posture decides instead.
		fallback := v.fallbackOutcome(c, report)
		fallback.Response = out.Response
		return v.finish(result, fallback)
	}

	if out.Status == StatusValid && c.IsRoleBased {
		out.Status = StatusRisky
		out.Reason = ReasonRoleAccount
	}
	return v.finish(result, out)
}

// fallbackOutcome is the DNS-score policy used when direct SMTP probing is
// blocked or indeterminate. Scores were awarded in ScoreDomain; the bands
// are deliberate: a well-known free-mail domain with a complete DNS posture
// is as close to deliverable as we can claim without a handshake.
func (v *Verifier) fallbackOutcome(c Classification, report DNSReport) outcome {
	switch {
	case c.IsFree && report.Score >= 70:
		if c.IsRoleBased {
			return outcome{Status: StatusRisky, Reason: ReasonRoleAccount}
		}
		return outcome{Status: StatusValid, Reason: ReasonDNSVerified}
	case report.Provider != "" && report.Score >= 60:
		return outcome{Status: StatusRisky, Reason: ReasonDNSVerified}
	case report.Score >= 50:
		return outcome{Status: StatusRisky, Reason: ReasonDNSVerified}
	case report.Score >= 30:
		// Collapses to the same outcome as the >=50 band. Kept separate so
		// finer tiering is a one-line change once product decides.
		return outcome{Status: StatusRisky, Reason: ReasonDNSVerified}
	default:
		return outcome{Status: StatusUnknown, Reason: ReasonNoSMTP}
	}
}

func (v *Verifier) finish(result *Result, out outcome) *Result {
	result.Status = out.Status
	result.Reason = out.Reason
	result.SMTPResponse = out.Response
	result.IsCatchAll = out.Status == StatusCatchAll

	if !LegalPair(result.Status, result.Reason) {
		v.log.WithFields(logrus.Fields{
			"email":  result.Email,
			"status": result.Status,
			"reason": result.Reason,
		}).Error("illegal status/reason pairing produced by policy")
	}
	return result
}

// attachWHOIS decorates the result with raw WHOIS text for diagnostics.
// Best effort only; lookup failures leave the field empty.
func (v *Verifier) attachWHOIS(result *Result, domain string) {
	if !v.enableWHOIS {
		return
	}
	if info, err := whois.Whois(domain); err == nil {
		result.WHOIS = info
	}
}
