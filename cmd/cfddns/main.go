package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/Travis-Britz/cfddns"
	"github.com/cloudflare/cloudflare-go"
	log "github.com/sirupsen/logrus"
	"golang.org/x/term"
)

var config = struct {
	Domain    string
	KeyFile   string
	IP        string
	Interval  time.Duration
	Timeout   time.Duration
	DualStack bool
	Verbose   bool
}{}

func init() {
	flag.StringVar(&config.Domain, "d", "", "DNS entry to update (overrides CF_DOMAIN)")
	flag.StringVar(&config.KeyFile, "k", filepath.Join(os.Getenv("HOME"), ".cloudflare"), "Path to Cloudflare API key file, used when CF_API_TOKEN is unset")
	flag.StringVar(&config.IP, "ip", "", "Comma-separated IP addresses to set instead of asking the trace endpoint")
	flag.DurationVar(&config.Interval, "i", 0, "Duration to wait between runs; 0 runs once")
	flag.DurationVar(&config.Timeout, "timeout", 30*time.Second, "Timeout for each HTTP request")
	flag.BoolVar(&config.DualStack, "dual", false, "Look up the IPv4 and IPv6 address over separate connections")
	flag.BoolVar(&config.Verbose, "v", false, "Enable verbose logging")
}

func main() {
	flag.Parse()
	if config.Verbose {
		log.SetLevel(log.DebugLevel)
	}
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := cfddns.ConfigFromEnv()
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	if config.Domain != "" {
		cfg.Domain = config.Domain
	}
	if cfg.AuthKey == "" {
		log.Debugf("CF_API_TOKEN is unset, reading key file \"%s\"", config.KeyFile)
		if cfg.AuthKey, err = keyFromFile(config.KeyFile, cfg.AuthEmail); err != nil {
			return fmt.Errorf("run: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	log.Debugf("config is valid: %+v", cfg)

	options := []cfddns.Option{
		cfddns.WithLogger(log.StandardLogger()),
		cfddns.UsingHTTPClient(&http.Client{Timeout: config.Timeout}),
	}
	if config.IP != "" {
		src, err := cfddns.FromString(strings.Split(config.IP, ",")...)
		if err != nil {
			return fmt.Errorf("run: -ip: %w", err)
		}
		options = append(options, cfddns.UsingAddressSource(src))
	}
	if config.DualStack {
		options = append(options, cfddns.WithTraceNetworks("tcp4", "tcp6"))
	}

	syncer, err := cfddns.New(cfg, options...)
	if err != nil {
		return fmt.Errorf("error creating syncer: %w", err)
	}

	if config.Interval > 0 {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		cfddns.RunDaemon(ctx, syncer, config.Interval, nil)
		return nil
	}

	if _, err := syncer.Run(context.Background()); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}

// keyFromFile reads the API key from path.
// A missing file starts interactive setup when stdin is a terminal.
func keyFromFile(path, email string) (string, error) {
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debugf("key file \"%s\" does not exist", path)
		if !term.IsTerminal(int(syscall.Stdin)) {
			return "", fmt.Errorf("no API key: set CF_API_TOKEN or create \"%s\"", path)
		}
		if err := runSetup(path, email); err != nil {
			return "", fmt.Errorf("setup: %w", err)
		}
	}
	if err := verifyPermissions(path); err != nil {
		return "", err
	}
	return readKey(path)
}

func runSetup(path, email string) error {
	if email == "" {
		return errors.New("CF_AUTH_EMAIL must be set to verify the API key")
	}
	log.Debug("running setup")
	time.Sleep(200 * time.Millisecond) // dirty timer hack to try to get stderr and stdout output lines to display in order
	fmt.Printf("Enter Cloudflare API Key for %s: \n", email)
	bytekey, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return fmt.Errorf("runSetup: error reading from stdin: %w", err)
	}
	key := strings.TrimSpace(string(bytekey))

	api, err := cloudflare.New(key, email, cloudflare.HTTPClient(&http.Client{Timeout: config.Timeout}))
	if err != nil {
		return fmt.Errorf("error creating api client: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Debug("verifying key...")
	user, err := api.UserDetails(ctx)
	if err != nil {
		return fmt.Errorf("unable to verify api key: %w", err)
	}
	if !strings.EqualFold(user.Email, email) {
		return fmt.Errorf("api key belongs to \"%s\", not \"%s\"", user.Email, email)
	}
	log.Debug("key verified successfully")

	log.Debugf("creating key file at \"%s\"", path)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("unable to create \"%s\": %w", path, err)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, key); err != nil {
		return fmt.Errorf("unable to write \"%s\": %w", path, err)
	}
	log.Infof("key written to \"%s\"", path)
	return nil
}

func readKey(path string) (key string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("error reading key: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	keyb, _, err := r.ReadLine()
	if err != nil {
		return "", fmt.Errorf("error reading line: %w", err)
	}
	return strings.TrimSpace(string(keyb)), nil
}

func verifyPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("error checking keyfile permissions: %w", err)
	}

	perms := info.Mode().Perm()
	// Error messages will state that we want 0600,
	// but we'll also accept 0400 which is even more restricted.
	// The file might be provided by some secrets managing software as readonly.
	if perms != 0600 && perms != 0400 {
		return fmt.Errorf("invalid permissions for \"%s\": %w", path, permissionError(perms))
	}
	return nil
}

type permissionError fs.FileMode

func (pe permissionError) Error() string {
	return fmt.Sprintf("expected file permissions \"-rw-------\"; found \"%s\"", fs.FileMode(pe))
}
