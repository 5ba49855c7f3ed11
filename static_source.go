package cfddns

import (
	"context"
	"fmt"
	"net/netip"
)

// FromString constructs an address source that always reports the given addresses.
// At most one IPv4 and one IPv6 address may be given.
func FromString(addrs ...string) (AddressSource, error) {
	var s staticSource
	for _, a := range addrs {
		ip, err := netip.ParseAddr(a)
		if err != nil {
			return nil, fmt.Errorf("unable to parse IP: %w", err)
		}
		if ip.Is4() {
			if s.IPv4.IsValid() {
				return nil, fmt.Errorf("more than one IPv4 address given: %s, %s", s.IPv4, ip)
			}
			s.IPv4 = ip
			continue
		}
		if s.IPv6.IsValid() {
			return nil, fmt.Errorf("more than one IPv6 address given: %s, %s", s.IPv6, ip)
		}
		s.IPv6 = ip
	}
	return s, nil
}

type staticSource Addresses

func (s staticSource) CurrentAddresses(context.Context) (Addresses, error) {
	return Addresses(s), nil
}
