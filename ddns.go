package cfddns

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"time"

	"github.com/cloudflare/cloudflare-go"
	"github.com/sirupsen/logrus"
)

var discard logrus.FieldLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

// New constructs a Syncer for cfg.
// Unless overridden with UsingProvider and UsingAddressSource,
// it talks to Cloudflare with the credentials in cfg
// and reads the public address from the Cloudflare trace endpoint.
func New(cfg Config, options ...Option) (*Syncer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cfddns.New: invalid configuration: %w", err)
	}
	s := &Syncer{cfg: cfg}
	for i, opt := range options {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("cfddns.New: option %d returned an error: %w", i, err)
		}
	}

	if s.provider == nil {
		cf := NewCloudflareClient(cfg.AuthEmail, cfg.AuthKey)
		if s.apiBaseURL != "" {
			cf.SetBaseURL(s.apiBaseURL)
		}
		s.provider = cf
	}
	if s.source == nil {
		ts, err := NewTraceSource(s.traceURL, s.traceNetworks...)
		if err != nil {
			return nil, fmt.Errorf("cfddns.New: %w", err)
		}
		s.source = ts
	}
	if s.logger == nil {
		s.logger = discard
	}

	// propagate shared settings to dependencies regardless of option order
	type setLogger interface {
		SetLogger(logrus.FieldLogger)
	}
	type setHTTPClient interface {
		SetHTTPClient(*http.Client)
	}
	for _, dep := range []any{s.provider, s.source} {
		if l, ok := dep.(setLogger); ok {
			l.SetLogger(s.logger)
		}
		if hc, ok := dep.(setHTTPClient); ok && s.httpClient != nil {
			hc.SetHTTPClient(s.httpClient)
		}
	}
	return s, nil
}

type Option func(*Syncer) error

func UsingProvider(p Provider) Option {
	return func(s *Syncer) error {
		if p == nil {
			return fmt.Errorf("cfddns.UsingProvider: provider cannot be nil")
		}
		s.provider = p
		return nil
	}
}

func UsingAddressSource(src AddressSource) Option {
	return func(s *Syncer) error {
		if src == nil {
			return fmt.Errorf("cfddns.UsingAddressSource: address source cannot be nil")
		}
		s.source = src
		return nil
	}
}

// UsingHTTPClient sets the client used for every outbound request.
// Timeouts belong here; the Syncer sets none of its own.
func UsingHTTPClient(httpclient *http.Client) Option {
	return func(s *Syncer) error {
		if httpclient == nil {
			httpclient = http.DefaultClient
		}
		s.httpClient = httpclient
		return nil
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Syncer) error {
		s.logger = logger
		return nil
	}
}

// WithAPIBaseURL overrides DefaultAPIBaseURL for the default provider.
func WithAPIBaseURL(u string) Option {
	return func(s *Syncer) error {
		s.apiBaseURL = u
		return nil
	}
}

// WithTraceURL overrides DefaultTraceURL for the default address source.
func WithTraceURL(u string) Option {
	return func(s *Syncer) error {
		s.traceURL = u
		return nil
	}
}

// WithTraceNetworks pins the default address source's lookups to the given networks.
// See NewTraceSource.
func WithTraceNetworks(networks ...string) Option {
	return func(s *Syncer) error {
		s.traceNetworks = networks
		return nil
	}
}

// Syncer reconciles the A and AAAA records of one name with the current public addresses.
// It keeps no state between runs.
type Syncer struct {
	cfg      Config
	provider Provider
	source   AddressSource
	logger   logrus.FieldLogger

	httpClient    *http.Client
	apiBaseURL    string
	traceURL      string
	traceNetworks []string
}

type Outcome int

const (
	Skipped Outcome = iota
	Updated
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Updated:
		return "updated"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// FamilyReport describes what happened to one address family during a run.
type FamilyReport struct {
	RecordType string
	RecordID   string
	Address    netip.Addr
	Outcome    Outcome
	// SkipReason is set when Outcome is Skipped.
	SkipReason string
	// Errors holds Cloudflare's error list when Outcome is Failed.
	Errors []cloudflare.ResponseInfo
}

type Report struct {
	Domain string
	ZoneID string
	IPv4   FamilyReport
	IPv6   FamilyReport
}

// Run performs one reconciliation.
//
// A lookup failure aborts the run with an error.
// A refused update is logged and reported as Failed without stopping the other family.
func (s *Syncer) Run(ctx context.Context) (Report, error) {
	domain := s.cfg.Domain
	log := s.logger.WithField("domain", domain)
	log.Infof("starting DNS update for %s", domain)

	log.Info("discovering zone ID...")
	zoneID, err := s.provider.ZoneID(ctx, domain)
	if err != nil {
		return Report{}, fmt.Errorf("unable to get zone ID for %s: %w", domain, err)
	}
	log.Infof("found zone ID: %s", zoneID)

	log.Info("discovering DNS record IDs...")
	ids, err := s.provider.AddressRecords(ctx, zoneID, domain)
	if err != nil {
		return Report{}, fmt.Errorf("unable to list records for %s in zone %s: %w", domain, zoneID, err)
	}
	log.Infof("found record IDs - IPv4: %s, IPv6: %s", orNone(ids.IPv4), orNone(ids.IPv6))

	addrs, err := s.source.CurrentAddresses(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("error getting current addresses: %w", err)
	}
	log.Infof("current addresses - IPv4: %s, IPv6: %s", addrOrNone(addrs.IPv4), addrOrNone(addrs.IPv6))

	report := Report{Domain: domain, ZoneID: zoneID}
	if report.IPv4, err = s.reconcile(ctx, log, zoneID, RecordTypeA, ids.IPv4, addrs.IPv4); err != nil {
		return report, err
	}
	if report.IPv6, err = s.reconcile(ctx, log, zoneID, RecordTypeAAAA, ids.IPv6, addrs.IPv6); err != nil {
		return report, err
	}
	return report, nil
}

func (s *Syncer) reconcile(ctx context.Context, log logrus.FieldLogger, zoneID, recordType, recordID string, addr netip.Addr) (FamilyReport, error) {
	fr := FamilyReport{RecordType: recordType, RecordID: recordID, Address: addr}
	family := "IPv4"
	if recordType == RecordTypeAAAA {
		family = "IPv6"
	}

	if !addr.IsValid() || recordID == "" {
		fr.Outcome = Skipped
		fr.SkipReason = skipReason(addr, recordID)
		log.Infof("skipping %s update - %s", family, fr.SkipReason)
		return fr, nil
	}

	res, err := s.provider.UpdateRecord(ctx, zoneID, recordID, s.cfg.Domain, addr, recordType)
	if err != nil {
		return fr, fmt.Errorf("error updating %s record %s: %w", recordType, recordID, err)
	}
	if !res.Success {
		fr.Outcome = Failed
		fr.Errors = res.Errors
		log.Errorf("%s update failed: %s", recordType, formatResponseErrors(res.Errors))
		return fr, nil
	}
	fr.Outcome = Updated
	log.Infof("%s record updated successfully to %s", recordType, addr)
	return fr, nil
}

func skipReason(addr netip.Addr, recordID string) string {
	switch {
	case !addr.IsValid() && recordID == "":
		return "address and record not available"
	case !addr.IsValid():
		return "address not available"
	default:
		return "record not available"
	}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func addrOrNone(a netip.Addr) string {
	if !a.IsValid() {
		return "none"
	}
	return a.String()
}

// minDaemonInterval bounds how often RunDaemon calls the Cloudflare API.
var minDaemonInterval = 1 * time.Minute

// RunDaemon runs s immediately and then once per interval until ctx is done.
// Each run starts from scratch; a failed run is logged and the next tick proceeds as usual.
//
// Intervals below one minute are raised to one minute.
// A nil logger sends errors to the logger configured on s.
func RunDaemon(ctx context.Context, s *Syncer, interval time.Duration, logger logrus.FieldLogger) {
	if interval < minDaemonInterval {
		interval = minDaemonInterval
	}
	if logger == nil {
		logger = s.logger
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.Run(ctx); err != nil {
			logger.Errorf("cfddns.RunDaemon: %s", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
