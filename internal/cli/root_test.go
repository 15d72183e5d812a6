package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/monorkin/iot-inventory/internal/globals"
	"github.com/monorkin/iot-inventory/internal/models"
	"github.com/monorkin/iot-inventory/internal/store"
)

type closeCountingStore struct {
	store.Store
	closed int
}

func (s *closeCountingStore) Close() error {
	s.closed++
	return s.Store.Close()
}

func TestExitWithErrorClosesStore(t *testing.T) {
	recorded := &closeCountingStore{Store: store.NewMemoryStore()}

	previousStore, previousExit := globals.Store, osExit
	t.Cleanup(func() {
		globals.Store, osExit = previousStore, previousExit
	})

	var code int
	globals.Store = recorded
	osExit = func(c int) { code = c }

	exitWithError("Failed to check out device", &models.ConflictError{Kind: models.KindDevice, ID: 1, Reason: "is already checked out"})

	if recorded.closed != 1 {
		t.Errorf("store closed %d times, want 1", recorded.closed)
	}
	if code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}

	exitWithError("Failed to fetch devices", errors.New("disk I/O error"))

	if recorded.closed != 1 {
		t.Errorf("store closed %d times after a second exit, want 1", recorded.closed)
	}
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}

func TestWriteRemoved(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{outputTable, "Removed phone 4.\n"},
		{outputJSON, "{\n  \"kind\": \"phone\",\n  \"id\": 4,\n  \"removed\": true\n}\n"},
		{outputYAML, "kind: phone\nid: 4\nremoved: true\n"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var out bytes.Buffer
			if err := writeRemoved(&out, tt.format, models.KindPhone, 4); err != nil {
				t.Fatalf("writeRemoved() error: %v", err)
			}
			if got := out.String(); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}
