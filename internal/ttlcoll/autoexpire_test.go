package ttlcoll

import (
	"runtime"
	"testing"
	"time"

	"github.com/corehost/taskrun/internal/registry"
	"github.com/corehost/taskrun/internal/schedule"
)

func TestAutoExpiringSelfDrains(t *testing.T) {
	timers := schedule.NewPeriodicTimerController(registry.New(), nil)
	var expired []any

	ae, err := NewAutoExpiring(30*time.Millisecond, func(payload any) {
		expired = append(expired, payload)
	}, timers)
	if err != nil {
		t.Fatalf("NewAutoExpiring: %v", err)
	}
	if err := ae.Add("x"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for len(expired) == 0 {
		select {
		case <-deadline:
			t.Fatal("payload never expired via self-draining timer")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if expired[0] != "x" {
		t.Fatalf("expired = %v, want [x]", expired)
	}
	runtime.KeepAlive(ae)
}

func TestNewAutoExpiringRejectsNilController(t *testing.T) {
	_, err := NewAutoExpiring(time.Second, nil, nil)
	if err == nil {
		t.Fatal("expected error for nil controller")
	}
}
