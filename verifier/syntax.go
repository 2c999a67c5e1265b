package verifier

import (
	"regexp"
	"strings"

	"github.com/badoux/checkmail"
)

const (
	maxEmailLen  = 254
	maxLocalLen  = 64
	maxDomainLen = 253
	maxLabelLen  = 63
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Classification is the outcome of the syntax and heuristic checks. It never
// touches the network.
type Classification struct {
	SyntaxValid  bool
	LocalPart    string
	Domain       string
	IsDisposable bool
	IsRoleBased  bool
	IsFree       bool
}

// Classify normalizes the address and runs grammar, disposable-domain and
// role-account checks. The input is lowercased and trimmed first; everything
// downstream works on the normalized form.
func Classify(email string) Classification {
	email = strings.ToLower(strings.TrimSpace(email))

	c := Classification{}
	if !validSyntax(email) {
		return c
	}

	at := strings.LastIndex(email, "@")
	c.SyntaxValid = true
	c.LocalPart = email[:at]
	c.Domain = email[at+1:]
	c.IsDisposable = IsDisposableDomain(c.Domain)
	c.IsRoleBased = roleAccounts[c.LocalPart]
	c.IsFree = IsFreeDomain(c.Domain)
	return c
}

func validSyntax(email string) bool {
	if len(email) > maxEmailLen {
		return false
	}
	if err := checkmail.ValidateFormat(email); err != nil {
		return false
	}
	if !emailRegex.MatchString(email) {
		return false
	}

	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	local, domain := email[:at], email[at+1:]

	if len(local) > maxLocalLen || len(domain) > maxDomainLen {
		return false
	}
	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") || strings.Contains(local, "..") {
		return false
	}
	if strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") || strings.Contains(domain, "..") {
		return false
	}

	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if label == "" || len(label) > maxLabelLen {
			return false
		}
	}
	return true
}

// IsDisposableDomain matches exactly or by suffix, so sub.mailinator.com is
// disposable when mailinator.com is listed.
func IsDisposableDomain(domain string) bool {
	if disposableDomains[domain] {
		return true
	}
	for i := strings.Index(domain, "."); i >= 0; i = strings.Index(domain, ".") {
		domain = domain[i+1:]
		if disposableDomains[domain] {
			return true
		}
	}
	return false
}

// IsFreeDomain reports whether the domain belongs to a major free mailbox
// provider. Free-mail domains get a stricter DNS-fallback treatment because
// their DNS posture is always complete.
func IsFreeDomain(domain string) bool {
	for _, provider := range freeEmailProviders {
		if domain == provider {
			return true
		}
	}
	return false
}

// IsRoleAccount matches the local part against function mailboxes like
// support@ or billing@. A role account is flagged, never rejected outright.
func IsRoleAccount(localPart string) bool {
	return roleAccounts[strings.ToLower(localPart)]
}

var freeEmailProviders = []string{
	"gmail.com", "yahoo.com", "outlook.com", "hotmail.com",
	"aol.com", "protonmail.com", "icloud.com", "mail.com",
	"yandex.com", "zoho.com", "gmx.com", "live.com",
}

var roleAccounts = map[string]bool{
	"abuse":         true,
	"admin":         true,
	"administrator": true,
	"billing":       true,
	"contact":       true,
	"enquiries":     true,
	"feedback":      true,
	"hello":         true,
	"help":          true,
	"hr":            true,
	"info":          true,
	"inquiries":     true,
	"jobs":          true,
	"legal":         true,
	"mail":          true,
	"marketing":     true,
	"newsletter":    true,
	"no-reply":      true,
	"noreply":       true,
	"office":        true,
	"postmaster":    true,
	"privacy":       true,
	"sales":         true,
	"security":      true,
	"service":       true,
	"support":       true,
	"team":          true,
	"webmaster":     true,
}
