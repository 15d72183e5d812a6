package discovery

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func entry(instance, host string, ip net.IP, text ...string) *zeroconf.ServiceEntry {
	e := zeroconf.NewServiceEntry(instance, "_http._tcp", "local.")
	e.HostName = host
	e.Port = 80
	e.Text = text
	if ip != nil {
		e.AddrIPv4 = []net.IP{ip}
	}
	return e
}

func fakeBrowse(announced ...*zeroconf.ServiceEntry) browseFunc {
	return func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
		go func() {
			defer close(entries)
			for _, e := range announced {
				select {
				case entries <- e:
				case <-ctx.Done():
					return
				}
			}
		}()
		return nil
	}
}

func TestDiscoverCollectsUniqueInstances(t *testing.T) {
	browser := NewBrowser()
	browser.browse = fakeBrowse(
		entry("Living Room Sensor", "sensor-1.local.", net.ParseIP("192.168.1.20"), "mf=Nest", "md=T3007ES", "type=Sensor"),
		entry("Living Room Sensor", "sensor-1.local.", net.ParseIP("192.168.1.20")),
		entry("Doorbell", "doorbell.local.", nil),
	)

	candidates, err := browser.Discover(context.Background(), "")
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("Discover() = %+v, want 2 candidates", candidates)
	}

	first := candidates[0]
	if first.Hostname != "sensor-1.local" || first.IP != "192.168.1.20" || first.Port != 80 {
		t.Errorf("first candidate = %+v", first)
	}

	device := first.Device()
	if device.Name != "Living Room Sensor" || device.Manufacturer != "Nest" || device.ModelNumber != "T3007ES" || device.Type != "Sensor" {
		t.Errorf("Device() = %+v", device)
	}

	if candidates[1].IP != "" {
		t.Errorf("candidate without address has IP %q", candidates[1].IP)
	}
	if got := candidates[1].Device().Type; got != "http" {
		t.Errorf("fallback type = %q, want http", got)
	}
}

func TestDiscoverStopsAtTimeout(t *testing.T) {
	browser := NewBrowser()
	browser.SetTimeout(20 * time.Millisecond)
	browser.browse = func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
		return nil
	}

	started := time.Now()
	candidates, err := browser.Discover(context.Background(), DEFAULT_SERVICE)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("Discover() = %+v, want none", candidates)
	}
	if elapsed := time.Since(started); elapsed > time.Second {
		t.Errorf("Discover() took %v", elapsed)
	}
}

func TestDiscoverBrowseError(t *testing.T) {
	browser := NewBrowser()
	browser.browse = func(context.Context, string, string, chan<- *zeroconf.ServiceEntry) error {
		return errors.New("no multicast interface")
	}

	if _, err := browser.Discover(context.Background(), ""); err == nil {
		t.Error("Discover() swallowed the browse error")
	}
}

func TestParseText(t *testing.T) {
	text := parseText([]string{"MF=Acme", "md=Widget=2", "secure", "=orphan", "mf=Other"})

	if text["mf"] != "Acme" {
		t.Errorf("mf = %q, want Acme", text["mf"])
	}
	if text["md"] != "Widget=2" {
		t.Errorf("md = %q, want Widget=2", text["md"])
	}
	if value, ok := text["secure"]; !ok || value != "" {
		t.Errorf("secure = %q (present %t)", value, ok)
	}
	if _, ok := text[""]; ok {
		t.Error("empty key kept")
	}
}
