package cfddns

import (
	"context"
	"net/netip"
)

// Provider is the DNS side of a reconciliation.
// CloudflareClient is the only implementation shipped with this package.
type Provider interface {
	ZoneID(ctx context.Context, domain string) (string, error)
	AddressRecords(ctx context.Context, zoneID, domain string) (RecordIDs, error)
	UpdateRecord(ctx context.Context, zoneID, recordID, domain string, addr netip.Addr, recordType string) (UpdateResult, error)
}

// AddressSource reports the public addresses of the current host.
type AddressSource interface {
	CurrentAddresses(ctx context.Context) (Addresses, error)
}

// AddressSourceFunc adapts an ordinary function to AddressSource.
type AddressSourceFunc func(context.Context) (Addresses, error)

func (f AddressSourceFunc) CurrentAddresses(ctx context.Context) (Addresses, error) {
	return f(ctx)
}
