package geoapi

import (
	"context"
	"net/netip"
)

type callerKey struct{}

// WithCallerIP records the address of the end user a lookup is made for.
// An empty lookup then resolves that user instead of this server.
func WithCallerIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, callerKey{}, ip)
}

// callerIP returns the recorded caller address if the API can locate it.
// Private, loopback and unparsable addresses are dropped so the API falls
// back to resolving the requester.
func callerIP(ctx context.Context) string {
	ip, _ := ctx.Value(callerKey{}).(string)
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return ""
	}
	addr = addr.Unmap()
	if !addr.IsGlobalUnicast() || addr.IsPrivate() {
		return ""
	}
	return addr.String()
}
