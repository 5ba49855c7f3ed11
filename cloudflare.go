package cfddns

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

const DefaultAPIBaseURL = "https://api.cloudflare.com/client/v4"

// NewCloudflareClient constructs a client authenticating with the global API key
// (X-Auth-Email and X-Auth-Key headers).
// The credentials are not checked until the first request.
func NewCloudflareClient(authEmail, authKey string) *CloudflareClient {
	return &CloudflareClient{
		authEmail: authEmail,
		authKey:   authKey,
		baseURL:   DefaultAPIBaseURL,
		logger:    discard,
	}
}

// CloudflareClient implements cfddns.Provider against the Cloudflare v4 REST API.
//
// It should be constructed using NewCloudflareClient.
type CloudflareClient struct {
	authEmail  string
	authKey    string
	baseURL    string
	httpClient *http.Client
	logger     logrus.FieldLogger
}

func (cf *CloudflareClient) SetHTTPClient(c *http.Client) { cf.httpClient = c }

func (cf *CloudflareClient) SetLogger(l logrus.FieldLogger) { cf.logger = l }

// SetBaseURL points the client at a different API root, e.g. a test server.
func (cf *CloudflareClient) SetBaseURL(u string) { cf.baseURL = strings.TrimSuffix(u, "/") }

// ZoneID returns the id of the zone for the apex of domain.
// The apex is the last two labels, so names under multi-label public suffixes
// such as co.uk resolve to the suffix itself.
func (cf *CloudflareClient) ZoneID(ctx context.Context, domain string) (string, error) {
	apex := apexDomain(domain)
	cf.logger.Debugf("looking up zone ID for %s...", apex)

	env, status, err := request[Zone](ctx, cf, http.MethodGet, "/zones?"+url.Values{"name": {apex}}.Encode(), nil)
	if err != nil {
		return "", err
	}
	if !env.Success {
		return "", &APIError{Op: "list zones", StatusCode: status, Errors: env.Errors}
	}
	if len(env.Result) == 0 {
		return "", &NotFoundError{Name: apex}
	}
	cf.logger.Debugf("found %d zones named %s, using %s", len(env.Result), apex, env.Result[0].ID)
	return env.Result[0].ID, nil
}

// AddressRecords returns the ids of the A and AAAA records named exactly domain.
// If several records of one type exist, the last one listed wins.
// Finding none is not an error.
func (cf *CloudflareClient) AddressRecords(ctx context.Context, zoneID, domain string) (ids RecordIDs, err error) {
	path := "/zones/" + url.PathEscape(zoneID) + "/dns_records?" + url.Values{"name": {domain}}.Encode()
	env, status, err := request[DNSRecord](ctx, cf, http.MethodGet, path, nil)
	if err != nil {
		return ids, err
	}
	if !env.Success {
		return ids, &APIError{Op: "list dns records", StatusCode: status, Errors: env.Errors}
	}
	cf.logger.Debugf("found %d existing records: %+v", len(env.Result), env.Result)

	for _, r := range env.Result {
		switch r.Type {
		case RecordTypeA:
			ids.IPv4 = r.ID
		case RecordTypeAAAA:
			ids.IPv6 = r.ID
		}
	}
	return ids, nil
}

// UpdateRecord overwrites an existing record with addr.
// The record is never proxied.
//
// A refusal from Cloudflare (success=false) is returned as an UpdateResult carrying
// Cloudflare's error list and a nil error.
func (cf *CloudflareClient) UpdateRecord(ctx context.Context, zoneID, recordID, domain string, addr netip.Addr, recordType string) (UpdateResult, error) {
	payload := UpdatePayload{
		Type:    recordType,
		Name:    domain,
		Content: addr.String(),
		Proxied: false,
	}
	cf.logger.Debugf("updating %s record %s to %s...", recordType, recordID, payload.Content)

	path := "/zones/" + url.PathEscape(zoneID) + "/dns_records/" + url.PathEscape(recordID)
	env, status, err := request[DNSRecord](ctx, cf, http.MethodPut, path, payload)
	if err != nil {
		return UpdateResult{}, err
	}
	cf.logger.Debugf("update of record %s answered HTTP %d, success=%t", recordID, status, env.Success)

	return UpdateResult{
		Success:    env.Success,
		RecordType: recordType,
		RecordID:   recordID,
		Address:    addr,
		Errors:     env.Errors,
	}, nil
}

// request performs one authenticated call and decodes the envelope.
// The envelope is decoded whatever the HTTP status, since Cloudflare reports
// refusals inside it.
func request[T any](ctx context.Context, cf *CloudflareClient, method, path string, payload any) (env Envelope[T], status int, err error) {
	u := cf.baseURL + path

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return env, 0, fmt.Errorf("error encoding request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return env, 0, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("X-Auth-Email", cf.authEmail)
	req.Header.Set("X-Auth-Key", cf.authKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpclient := cf.httpClient
	if httpclient == nil {
		httpclient = http.DefaultClient
	}

	resp, err := httpclient.Do(req)
	if err != nil {
		return env, 0, &TransportError{Op: method, URL: u, Err: err}
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return env, resp.StatusCode, &ProtocolError{
			Op:         method,
			URL:        u,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("error decoding response body: %w", err),
		}
	}
	if env.Result == nil {
		env.Result = Results[T]{}
	}
	return env, resp.StatusCode, nil
}

func apexDomain(domain string) string {
	labels := strings.Split(strings.TrimSuffix(domain, "."), ".")
	if len(labels) < 2 {
		return domain
	}
	return strings.Join(labels[len(labels)-2:], ".")
}
