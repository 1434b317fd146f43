package tenant

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/dmitrymomot/tenantkit/pkg/environment"
)

// maxSubdomainLength matches the DNS label limit.
const maxSubdomainLength = 63

// subdomainPattern ensures DNS-safe labels: alphanumeric start, hyphens allowed.
var subdomainPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*$`)

// Resolver derives the authoritative tenant for an inbound request.
//
// The Host header is the only trusted signal in production-like
// environments. In development, when Host is an IP or carries no
// subdomain, the Origin header may be consulted instead, but a
// subdomain taken from Origin is only trusted after it re-validates
// against the directory (exists and active). An unverifiable Origin is
// discarded in favor of the configured development default, never
// trusted blindly. Client-supplied tenant ids in body or query are never
// consulted.
type Resolver struct {
	directory  Directory
	suffix     string
	devDefault string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithDomainSuffix sets the base-domain suffix stripped from hosts,
// e.g. ".app.example.com" so "acme.app.example.com" resolves "acme".
func WithDomainSuffix(suffix string) ResolverOption {
	return func(r *Resolver) { r.suffix = suffix }
}

// WithDevelopmentDefault sets the subdomain used in development when the
// request carries no verifiable tenant signal. Ignored in production.
func WithDevelopmentDefault(subdomain string) ResolverOption {
	return func(r *Resolver) { r.devDefault = subdomain }
}

// NewResolver creates a Resolver backed by the given directory.
func NewResolver(directory Directory, opts ...ResolverOption) *Resolver {
	if directory == nil {
		panic("tenant: directory cannot be nil")
	}
	r := &Resolver{directory: directory}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the active tenant the request belongs to.
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) (*Identity, error) {
	host := stripPort(req.Host)
	sub, hostOK := subdomainFromHost(host, r.suffix)

	if environment.IsProduction(ctx) {
		// No fallback signals in production: an unusable Host is a
		// deployment problem, not something to guess around.
		if !hostOK {
			return nil, ErrHostRequired
		}
		return r.lookup(ctx, sub)
	}

	if hostOK {
		return r.lookup(ctx, sub)
	}

	// Development with an IP or placeholder Host: the Origin header may
	// identify the tenant, but only if the directory confirms it.
	if origin := req.Header.Get("Origin"); origin != "" {
		if originSub, ok := subdomainFromOrigin(origin, r.suffix); ok {
			if identity, err := r.lookup(ctx, originSub); err == nil {
				return identity, nil
			}
			// Unverifiable Origin: fall through to the safe default.
		}
	}

	if r.devDefault != "" {
		return r.lookup(ctx, r.devDefault)
	}
	return nil, ErrHostRequired
}

func (r *Resolver) lookup(ctx context.Context, subdomain string) (*Identity, error) {
	if !isValidSubdomain(subdomain) {
		return nil, ErrInvalidSubdomain
	}

	identity, err := r.directory.LookupBySubdomain(ctx, strings.ToLower(subdomain))
	if err != nil {
		return nil, err
	}
	if !identity.Active() {
		return nil, ErrTenantSuspended
	}
	return identity, nil
}

// subdomainFromHost extracts the tenant label from a host without port.
// Returns false when the host has no subdomain to offer.
func subdomainFromHost(host, suffix string) (string, bool) {
	if host == "" {
		return "", false
	}
	// An IP literal splits into enough dot-separated parts to look like
	// a subdomain but never names a tenant.
	if net.ParseIP(strings.Trim(host, "[]")) != nil {
		return "", false
	}

	if suffix != "" {
		if !strings.HasSuffix(host, suffix) || len(host) <= len(suffix) {
			return "", false
		}
		label := host[:len(host)-len(suffix)]
		if strings.Contains(label, ".") {
			// Ambiguous: more than one label in front of the suffix.
			return "", false
		}
		return label, label != "" && label != "www"
	}

	parts := strings.Split(host, ".")
	// subdomain.domain.tld at minimum; the bare base domain is no tenant.
	if len(parts) < 3 {
		return "", false
	}
	label := parts[0]
	if label == "www" {
		if len(parts) < 4 {
			return "", false
		}
		label = parts[1]
	}
	return label, label != ""
}

func subdomainFromOrigin(origin, suffix string) (string, bool) {
	u, err := url.Parse(origin)
	if err != nil || u.Hostname() == "" {
		return "", false
	}
	return subdomainFromHost(u.Hostname(), suffix)
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func isValidSubdomain(s string) bool {
	return s != "" && len(s) <= maxSubdomainLength && subdomainPattern.MatchString(s)
}
