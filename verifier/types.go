package verifier

import "time"

// Status is the terminal classification of a verification attempt.
type Status string

const (
	StatusValid    Status = "valid"
	StatusInvalid  Status = "invalid"
	StatusRisky    Status = "risky"
	StatusCatchAll Status = "catch_all"
	StatusUnknown  Status = "unknown"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusValid, StatusInvalid, StatusRisky, StatusCatchAll, StatusUnknown:
		return true
	}
	return false
}

// Reason narrows a Status down to the signal that produced it.
type Reason string

const (
	ReasonSyntaxInvalid      Reason = "syntax_invalid"
	ReasonMXMissing          Reason = "mx_missing"
	ReasonDisposable         Reason = "disposable"
	ReasonNoSMTP             Reason = "no_smtp"
	ReasonMailboxUnavailable Reason = "mailbox_unavailable"
	ReasonMailboxFull        Reason = "mailbox_full"
	ReasonRateLimited        Reason = "rate_limited"
	ReasonTimeout            Reason = "timeout"
	ReasonBlocked            Reason = "blocked"
	ReasonCatchAllDetected   Reason = "catch_all_detected"
	ReasonRoleAccount        Reason = "role_account"
	ReasonDNSVerified        Reason = "dns_verified"
	ReasonValid              Reason = "valid"
	ReasonUnknownError       Reason = "unknown_error"
)

// legalReasons is the pairing table the orchestrator policy can produce.
// A (status, reason) pair outside this table is a bug, not a data state.
var legalReasons = map[Status][]Reason{
	StatusValid:    {ReasonValid, ReasonDNSVerified},
	StatusInvalid:  {ReasonSyntaxInvalid, ReasonMXMissing, ReasonDisposable, ReasonMailboxUnavailable},
	StatusRisky:    {ReasonRoleAccount, ReasonRateLimited, ReasonMailboxFull, ReasonDNSVerified},
	StatusCatchAll: {ReasonCatchAllDetected},
	StatusUnknown:  {ReasonNoSMTP, ReasonBlocked, ReasonTimeout, ReasonUnknownError},
}

// LegalPair reports whether the reason is one the policy may attach to the status.
func LegalPair(status Status, reason Reason) bool {
	for _, r := range legalReasons[status] {
		if r == reason {
			return true
		}
	}
	return false
}

// Result is the immutable outcome of one verification attempt.
type Result struct {
	Email        string    `json:"email"`
	Status       Status    `json:"status"`
	Reason       Reason    `json:"reason"`
	MXHosts      []string  `json:"mx_hosts,omitempty"`
	Provider     string    `json:"provider,omitempty"`
	IsDisposable bool      `json:"is_disposable"`
	IsRoleBased  bool      `json:"is_role_based"`
	IsCatchAll   bool      `json:"is_catch_all"`
	IsFree       bool      `json:"is_free"`
	SMTPResponse string    `json:"smtp_response,omitempty"`
	DNSScore     int       `json:"dns_score"`
	HasSPF       bool      `json:"has_spf"`
	HasDMARC     bool      `json:"has_dmarc"`
	WHOIS        string    `json:"whois,omitempty"`
	VerifiedAt   time.Time `json:"verified_at"`
}

// outcome is what the handshake engine and the fallback policy hand back to
// the orchestrator before the full Result is assembled.
type outcome struct {
	Status   Status
	Reason   Reason
	Response string
}

func (o outcome) terminal() bool { return o.Status != "" }
