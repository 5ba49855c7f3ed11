package cfddns_test

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/Travis-Britz/cfddns"
	"github.com/sirupsen/logrus"
)

func ExampleNew() {
	cfg, err := cfddns.ConfigFromEnv()
	if err != nil {
		log.Fatalf("error reading configuration: %s", err)
	}
	s, err := cfddns.New(cfg,
		cfddns.WithLogger(logrus.StandardLogger()),
		cfddns.UsingHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	)
	if err != nil {
		log.Fatalf("error creating syncer: %s", err)
	}
	// run once:
	report, err := s.Run(context.Background())
	if err != nil {
		log.Fatalf("ddns update failed: %s", err)
	}
	log.Printf("A: %s, AAAA: %s", report.IPv4.Outcome, report.IPv6.Outcome)
}

func ExampleWithTraceNetworks() {
	// Look up each address family over its own connection so a dual-stack host
	// updates both records in one run.
	s, err := cfddns.New(cfddns.Config{
		AuthEmail: os.Getenv("CF_AUTH_EMAIL"),
		AuthKey:   os.Getenv("CF_API_TOKEN"),
		Domain:    "dynamic-ip.example.com",
	}, cfddns.WithTraceNetworks("tcp4", "tcp6"))
	if err != nil {
		log.Fatalf("error creating syncer: %s", err)
	}
	if _, err := s.Run(context.Background()); err != nil {
		log.Fatalf("ddns update failed: %s", err)
	}
}

func ExampleRunDaemon() {
	cfg, err := cfddns.ConfigFromEnv()
	if err != nil {
		log.Fatalf("error reading configuration: %s", err)
	}
	s, err := cfddns.New(cfg)
	if err != nil {
		log.Fatalf("error creating syncer: %s", err)
	}

	// run every 5 minutes and stop after an hour:
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Hour)
	defer cancel()
	cfddns.RunDaemon(ctx, s, 5*time.Minute, nil)
}

func ExampleFromString() {
	src, err := cfddns.FromString("203.0.113.5", "2001:db8::1")
	if err != nil {
		log.Fatalf("error parsing addresses: %s", err)
	}
	s, err := cfddns.New(cfddns.Config{
		AuthEmail: os.Getenv("CF_AUTH_EMAIL"),
		AuthKey:   os.Getenv("CF_API_TOKEN"),
		Domain:    "static-ip.example.com",
	}, cfddns.UsingAddressSource(src))
	if err != nil {
		log.Fatalf("error creating syncer: %s", err)
	}
	if _, err := s.Run(context.Background()); err != nil {
		log.Fatalf("ddns update failed: %s", err)
	}
}
