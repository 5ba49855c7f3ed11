package cfddns

import (
	"bytes"
	"encoding/json"
	"net/netip"

	"github.com/cloudflare/cloudflare-go"
)

const (
	RecordTypeA    = "A"
	RecordTypeAAAA = "AAAA"
)

// Envelope is the wrapper around every Cloudflare v4 API response.
// The client replaces a missing or null result with an empty slice.
type Envelope[T any] struct {
	Success bool                      `json:"success"`
	Errors  []cloudflare.ResponseInfo `json:"errors"`
	Result  Results[T]                `json:"result"`
}

// Results is the result field of an Envelope.
// List endpoints send an array and single-object endpoints send an object;
// both decode to a slice.
type Results[T any] []T

func (r *Results[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var v T
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*r = Results[T]{v}
		return nil
	}
	var s []T
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*r = s
	return nil
}

type Zone struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type DNSRecord struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// UpdatePayload is the body of a record update.
// Proxied is always sent as false.
type UpdatePayload struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	Proxied bool   `json:"proxied"`
}

// RecordIDs holds the ids of the existing A and AAAA records for a name.
// An empty string means no record of that type exists.
type RecordIDs struct {
	IPv4 string
	IPv6 string
}

// Addresses holds the current public addresses.
// A zero netip.Addr means the family was not reported.
type Addresses struct {
	IPv4 netip.Addr
	IPv6 netip.Addr
}

// UpdateResult is the outcome of a record update that reached Cloudflare.
// A request that Cloudflare refused is reported here with Success false,
// not as an error.
type UpdateResult struct {
	Success    bool
	RecordType string
	RecordID   string
	Address    netip.Addr
	Errors     []cloudflare.ResponseInfo
}
