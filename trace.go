package cfddns

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/sirupsen/logrus"
)

const DefaultTraceURL = "https://cloudflare.com/cdn-cgi/trace"

// NewTraceSource constructs an address source backed by a Cloudflare trace endpoint.
// An empty traceURL selects DefaultTraceURL.
//
// With no networks, a single request is made and only the address family of that
// connection is reported.
// Passing "tcp4" and/or "tcp6" makes one request per network over a connection
// pinned to it, which lets a dual-stack host report both families in one call.
func NewTraceSource(traceURL string, networks ...string) (*TraceSource, error) {
	if traceURL == "" {
		traceURL = DefaultTraceURL
	}
	for _, n := range networks {
		if n != "tcp4" && n != "tcp6" {
			return nil, fmt.Errorf("unsupported trace network %q: want tcp4 or tcp6", n)
		}
	}
	return &TraceSource{
		url:      traceURL,
		networks: networks,
		logger:   discard,
	}, nil
}

// TraceSource implements cfddns.AddressSource.
type TraceSource struct {
	url        string
	networks   []string
	httpClient *http.Client
	logger     logrus.FieldLogger
}

func (ts *TraceSource) SetHTTPClient(c *http.Client) { ts.httpClient = c }

func (ts *TraceSource) SetLogger(l logrus.FieldLogger) { ts.logger = l }

// CurrentAddresses implements cfddns.AddressSource.
//
// In pinned mode a failed lookup leaves its family absent;
// an error is returned only when every pinned lookup failed.
func (ts *TraceSource) CurrentAddresses(ctx context.Context) (Addresses, error) {
	if len(ts.networks) == 0 {
		return ts.lookup(ctx, ts.client())
	}

	var found Addresses
	var errs []error
	for _, network := range ts.networks {
		addrs, err := ts.lookup(ctx, ts.pinnedClient(network))
		if err != nil {
			ts.logger.Warnf("trace lookup over %s failed: %s", network, err)
			errs = append(errs, fmt.Errorf("%s: %w", network, err))
			continue
		}
		if addrs.IPv4.IsValid() {
			found.IPv4 = addrs.IPv4
		}
		if addrs.IPv6.IsValid() {
			found.IPv6 = addrs.IPv6
		}
	}
	if len(errs) == len(ts.networks) {
		return Addresses{}, errors.Join(errs...)
	}
	return found, nil
}

func (ts *TraceSource) lookup(ctx context.Context, httpclient *http.Client) (Addresses, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.url, nil)
	if err != nil {
		return Addresses{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := httpclient.Do(req)
	if err != nil {
		return Addresses{}, &TransportError{Op: http.MethodGet, URL: ts.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Addresses{}, &ProtocolError{
			Op:         http.MethodGet,
			URL:        ts.url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("http request returned %s", resp.Status),
		}
	}

	addrs, err := ParseTrace(resp.Body)
	if err != nil {
		return Addresses{}, &ProtocolError{Op: http.MethodGet, URL: ts.url, StatusCode: resp.StatusCode, Err: err}
	}
	ts.logger.Debugf("trace reported IPv4=%s IPv6=%s", addrs.IPv4, addrs.IPv6)
	return addrs, nil
}

func (ts *TraceSource) client() *http.Client {
	if ts.httpClient == nil {
		return http.DefaultClient
	}
	return ts.httpClient
}

// pinnedClient copies the configured client with its dialer restricted to network.
// A client whose transport is not an *http.Transport gets a copy of the default transport.
func (ts *TraceSource) pinnedClient(network string) *http.Client {
	base := ts.client()
	t, ok := base.Transport.(*http.Transport)
	if !ok || t == nil {
		t = http.DefaultTransport.(*http.Transport)
	}
	t = t.Clone()
	dialer := &net.Dialer{}
	t.DialContext = func(ctx context.Context, _ string, addr string) (net.Conn, error) {
		return dialer.DialContext(ctx, network, addr)
	}
	return &http.Client{
		Transport:     t,
		CheckRedirect: base.CheckRedirect,
		Jar:           base.Jar,
		Timeout:       base.Timeout,
	}
}

// ParseTrace reads the newline-delimited key=value body of a trace response.
// The value of the "ip" key is IPv6 if it contains a colon and IPv4 otherwise.
// A body without an "ip" line yields no addresses and no error.
func ParseTrace(r io.Reader) (addrs Addresses, err error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok || key != "ip" {
			continue
		}
		value = strings.TrimSpace(value)
		ip, err := netip.ParseAddr(value)
		if err != nil {
			return Addresses{}, fmt.Errorf("error parsing IP address from trace: %w", err)
		}
		if strings.Contains(value, ":") {
			addrs.IPv6 = ip
		} else {
			addrs.IPv4 = ip
		}
	}
	if err := scanner.Err(); err != nil {
		return Addresses{}, fmt.Errorf("error reading trace: %w", err)
	}
	return addrs, nil
}
