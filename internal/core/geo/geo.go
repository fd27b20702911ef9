// Package geo resolves client IP addresses to a coarse location for
// session/device records. Resolution is best-effort everywhere: a
// failing resolver never fails the enclosing token flow.
package geo

import "context"

// Location is a coarse place attached to a session record.
type Location struct {
	City    string
	Country string
}

// Resolver looks up the location of an IP address.
type Resolver interface {
	Resolve(ctx context.Context, ip string) (Location, error)
}

// NoopResolver resolves nothing. The default when no geo backend is
// configured.
type NoopResolver struct{}

func (NoopResolver) Resolve(ctx context.Context, ip string) (Location, error) {
	return Location{}, nil
}

// StaticResolver serves a fixed table, used in tests and air-gapped
// deployments.
type StaticResolver map[string]Location

func (r StaticResolver) Resolve(ctx context.Context, ip string) (Location, error) {
	return r[ip], nil
}
