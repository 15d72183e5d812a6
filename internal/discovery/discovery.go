// Package discovery browses the local network over mDNS for devices that can
// be registered in the inventory.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/monorkin/iot-inventory/internal/models"
)

const (
	DEFAULT_SERVICE = "_http._tcp"
	DEFAULT_DOMAIN  = "local."
	DEFAULT_TIMEOUT = 5 * time.Second
)

type browseFunc func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error

// Candidate is a device announced on the network that is not necessarily
// registered yet.
type Candidate struct {
	Instance string            `json:"instance" yaml:"instance"`
	Service  string            `json:"service" yaml:"service"`
	Hostname string            `json:"hostname" yaml:"hostname"`
	IP       string            `json:"ip" yaml:"ip"`
	Port     int               `json:"port" yaml:"port"`
	Text     map[string]string `json:"text,omitempty" yaml:"text,omitempty"`
}

// Device proposes an inventory record from the announcement's TXT record.
func (candidate Candidate) Device() models.Device {
	serviceType := strings.TrimPrefix(strings.SplitN(candidate.Service, ".", 2)[0], "_")

	return models.Device{
		Name:         candidate.Instance,
		Type:         firstNonEmpty(candidate.Text["type"], candidate.Text["ty"], serviceType),
		Manufacturer: firstNonEmpty(candidate.Text["manufacturer"], candidate.Text["mf"], candidate.Text["vendor"]),
		ModelNumber:  firstNonEmpty(candidate.Text["model"], candidate.Text["md"]),
	}
}

type Browser struct {
	timeout time.Duration
	browse  browseFunc
	logger  *slog.Logger
}

func NewBrowser() *Browser {
	return NewBrowserWithLogger(nil)
}

func NewBrowserWithLogger(logger *slog.Logger) *Browser {
	return &Browser{
		timeout: DEFAULT_TIMEOUT,
		browse:  resolverBrowse,
		logger:  logger,
	}
}

func (browser *Browser) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		browser.timeout = timeout
	}
}

func (browser *Browser) log(level slog.Level, msg string, args ...any) {
	if browser.logger != nil {
		browser.logger.Log(context.Background(), level, msg, args...)
	}
}

func resolverBrowse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("failed to initialize resolver: %w", err)
	}

	return resolver.Browse(ctx, service, domain, entries)
}

// Discover collects announcements of service until the browse timeout
// elapses or ctx is done. Instances announced more than once are reported
// once.
func (browser *Browser) Discover(ctx context.Context, service string) ([]Candidate, error) {
	if service == "" {
		service = DEFAULT_SERVICE
	}

	ctx, cancel := context.WithTimeout(ctx, browser.timeout)
	defer cancel()

	browser.log(slog.LevelDebug, "Starting device discovery", "service", service, "timeout", browser.timeout)

	entries := make(chan *zeroconf.ServiceEntry)
	if err := browser.browse(ctx, service, DEFAULT_DOMAIN, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for devices: %w", err)
	}

	var candidates []Candidate
	seen := make(map[string]bool)

loop:
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				break loop
			}
			if entry == nil || seen[entry.Instance] {
				continue
			}
			seen[entry.Instance] = true

			candidate := candidateFromEntry(entry)
			browser.log(slog.LevelDebug, "Device discovered", "instance", candidate.Instance, "ip", candidate.IP)
			candidates = append(candidates, candidate)
		case <-ctx.Done():
			break loop
		}
	}

	browser.log(slog.LevelDebug, "Device discovery completed", "devices_count", len(candidates))

	return candidates, nil
}

func candidateFromEntry(entry *zeroconf.ServiceEntry) Candidate {
	candidate := Candidate{
		Instance: entry.Instance,
		Service:  entry.Service,
		Hostname: strings.TrimSuffix(entry.HostName, "."),
		Port:     entry.Port,
		Text:     parseText(entry.Text),
	}

	switch {
	case len(entry.AddrIPv4) > 0:
		candidate.IP = entry.AddrIPv4[0].String()
	case len(entry.AddrIPv6) > 0:
		candidate.IP = entry.AddrIPv6[0].String()
	}

	return candidate
}

// parseText turns DNS-SD TXT strings into a map. Keys are case-insensitive;
// a key without "=" is a boolean attribute with an empty value.
func parseText(records []string) map[string]string {
	text := make(map[string]string, len(records))

	for _, record := range records {
		key, value, _ := strings.Cut(record, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		if _, exists := text[key]; exists {
			continue
		}
		text[key] = value
	}

	return text
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
