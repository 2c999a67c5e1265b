package verifier

import (
	"context"
	"net"
	"sort"
	"strings"
	"sync"
	"time"
)

const dnsLookupTimeout = 5 * time.Second

// Resolver is the subset of net.Resolver the scorer needs. *net.Resolver
// satisfies it; tests inject a fake.
type Resolver interface {
	LookupMX(ctx context.Context, domain string) ([]*net.MX, error)
	LookupTXT(ctx context.Context, name string) ([]string, error)
	LookupHost(ctx context.Context, host string) ([]string, error)
	LookupNS(ctx context.Context, name string) ([]*net.NS, error)
}

// DNSReport carries everything the DNS stage learned about a domain.
type DNSReport struct {
	MXHosts  []string
	Provider string
	Score    int
	HasSPF   bool
	HasDMARC bool
	HasA     bool
	HasNS    bool
}

// providerPatterns maps a mail provider to substrings of its MX hostnames.
// First match wins; no match means no provider label, which is not an error.
var providerPatterns = []struct {
	name     string
	patterns []string
}{
	{"Google Workspace", []string{"google.com", "googlemail.com"}},
	{"Microsoft 365", []string{"protection.outlook.com", "outlook.com", "hotmail.com"}},
	{"Yahoo", []string{"yahoodns.net", "yahoo.com"}},
	{"Zoho", []string{"zoho.com", "zoho.eu"}},
	{"Proton", []string{"protonmail.ch", "proton.me"}},
	{"Fastmail", []string{"messagingengine.com", "fastmail.com"}},
	{"iCloud", []string{"icloud.com", "me.com"}},
	{"Yandex", []string{"mx.yandex"}},
	{"GMX", []string{"gmx.net", "gmx.com"}},
	{"Mimecast", []string{"mimecast.com"}},
	{"Proofpoint", []string{"pphosted.com"}},
	{"Barracuda", []string{"barracudanetworks.com"}},
}

// ResolveMX returns the domain's exchange hosts sorted by priority, trailing
// dots stripped. An empty list with a nil error still means no usable MX.
func ResolveMX(ctx context.Context, resolver Resolver, domain string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, dnsLookupTimeout)
	defer cancel()

	records, err := resolver.LookupMX(ctx, domain)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Pref < records[j].Pref
	})

	hosts := make([]string, 0, len(records))
	for _, mx := range records {
		host := strings.TrimSuffix(mx.Host, ".")
		if host != "" {
			hosts = append(hosts, host)
		}
	}
	return hosts, nil
}

// FingerprintProvider labels the mail provider from its MX hostnames.
func FingerprintProvider(mxHosts []string) string {
	for _, host := range mxHosts {
		host = strings.ToLower(host)
		for _, p := range providerPatterns {
			for _, pattern := range p.patterns {
				if strings.Contains(host, pattern) {
					return p.name
				}
			}
		}
	}
	return ""
}

// ScoreDomain computes the 0-100 DNS health score for a domain that already
// has MX records. The four supplementary lookups run concurrently; a failed
// lookup counts as the signal being absent, never as an error.
func ScoreDomain(ctx context.Context, resolver Resolver, domain string, report *DNSReport) {
	report.Score = 25 // MX exists, or we would not be here

	ctx, cancel := context.WithTimeout(ctx, dnsLookupTimeout)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		report.HasSPF = hasTXTPrefix(ctx, resolver, domain, "v=spf1")
	}()
	go func() {
		defer wg.Done()
		report.HasDMARC = hasTXTPrefix(ctx, resolver, "_dmarc."+domain, "v=dmarc1")
	}()
	go func() {
		defer wg.Done()
		addrs, err := resolver.LookupHost(ctx, domain)
		report.HasA = err == nil && len(addrs) > 0
	}()
	go func() {
		defer wg.Done()
		nss, err := resolver.LookupNS(ctx, domain)
		report.HasNS = err == nil && len(nss) > 0
	}()

	wg.Wait()

	if report.HasSPF {
		report.Score += 25
	}
	if report.HasDMARC {
		report.Score += 25
	}
	if report.HasA {
		report.Score += 15
	}
	if report.HasNS {
		report.Score += 10
	}
}

func hasTXTPrefix(ctx context.Context, resolver Resolver, name, prefix string) bool {
	records, err := resolver.LookupTXT(ctx, name)
	if err != nil {
		return false
	}
	for _, txt := range records {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(txt)), prefix) {
			return true
		}
	}
	return false
}
