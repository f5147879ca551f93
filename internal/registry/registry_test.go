// Package registry tests for device registration semantics.
package registry

import (
	"testing"
	"time"

	apperrors "github.com/himslabs/syncserver/internal/errors"
	"github.com/himslabs/syncserver/internal/store"
)

func setupRegistry(t *testing.T) *Registry {
	t.Helper()
	st, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(st)
}

const devA = "aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaaa"

// TestRegisterAndGet verifies the basic round trip.
func TestRegisterAndGet(t *testing.T) {
	r := setupRegistry(t)

	err := r.Register(Registration{
		UUID:      devA,
		Name:      "Kitchen Terminal",
		IPAddress: "192.168.1.20",
		Role:      "client",
	})
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	dev, err := r.Get(devA)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if dev.Name != "Kitchen Terminal" || dev.IPAddress != "192.168.1.20" || dev.Role != "client" {
		t.Errorf("device = %+v", dev)
	}
	if !dev.IsActive {
		t.Error("registered device should be active")
	}
	if dev.LastSeen == "" {
		t.Error("last_seen not stamped")
	}
}

// TestRegisterValidation verifies malformed registrations are rejected.
func TestRegisterValidation(t *testing.T) {
	r := setupRegistry(t)

	if err := r.Register(Registration{UUID: "not-a-uuid", Name: "X"}); !apperrors.Is(err, apperrors.ErrInvalidRequest) {
		t.Errorf("bad uuid err = %v, want INVALID_REQUEST", err)
	}
	if err := r.Register(Registration{UUID: devA}); !apperrors.Is(err, apperrors.ErrInvalidRequest) {
		t.Errorf("missing name err = %v, want INVALID_REQUEST", err)
	}
}

// TestRegisterDefaultRole verifies the client role default.
func TestRegisterDefaultRole(t *testing.T) {
	r := setupRegistry(t)
	if err := r.Register(Registration{UUID: devA, Name: "Till"}); err != nil {
		t.Fatal(err)
	}
	dev, err := r.Get(devA)
	if err != nil {
		t.Fatal(err)
	}
	if dev.Role != "client" {
		t.Errorf("role = %q, want client", dev.Role)
	}
}

// TestReRegistration verifies refresh semantics: name, last-seen, and active
// flag update; address and role stay as first registered.
func TestReRegistration(t *testing.T) {
	r := setupRegistry(t)

	if err := r.Register(Registration{UUID: devA, Name: "Old Name", IPAddress: "192.168.1.20", Role: "client"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Deactivate(devA); err != nil {
		t.Fatal(err)
	}

	first, err := r.Get(devA)
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(5 * time.Millisecond) // distinguishable last_seen

	err = r.Register(Registration{UUID: devA, Name: "New Name", IPAddress: "192.168.1.99", Role: "master"})
	if err != nil {
		t.Fatalf("re-register failed: %v", err)
	}

	dev, err := r.Get(devA)
	if err != nil {
		t.Fatal(err)
	}
	if dev.Name != "New Name" {
		t.Errorf("name = %q, want refreshed name", dev.Name)
	}
	if !dev.IsActive {
		t.Error("re-registration should reactivate the device")
	}
	if dev.LastSeen <= first.LastSeen {
		t.Errorf("last_seen not refreshed: %q -> %q", first.LastSeen, dev.LastSeen)
	}
	// Sticky identity: address and role retained from first registration.
	if dev.IPAddress != "192.168.1.20" {
		t.Errorf("ip_address = %q, want original address retained", dev.IPAddress)
	}
	if dev.Role != "client" {
		t.Errorf("role = %q, want original role retained", dev.Role)
	}

	// Still one row.
	devices, err := r.ActiveDevices()
	if err != nil {
		t.Fatal(err)
	}
	if len(devices) != 1 {
		t.Errorf("active devices = %d, want 1", len(devices))
	}
}

// TestGetUnknown verifies unknown devices report not-found.
func TestGetUnknown(t *testing.T) {
	r := setupRegistry(t)
	_, err := r.Get("bbbbbbbb-bbbb-4bbb-8bbb-bbbbbbbbbbbb")
	if !apperrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

// TestActiveDevicesOrdering verifies active-only filtering and recency
// ordering.
func TestActiveDevicesOrdering(t *testing.T) {
	r := setupRegistry(t)

	uuids := []string{
		"cccccccc-cccc-4ccc-8ccc-ccccccccccc1",
		"cccccccc-cccc-4ccc-8ccc-ccccccccccc2",
		"cccccccc-cccc-4ccc-8ccc-ccccccccccc3",
	}
	for _, u := range uuids {
		if err := r.Register(Registration{UUID: u, Name: "Device"}); err != nil {
			t.Fatal(err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := r.Deactivate(uuids[1]); err != nil {
		t.Fatal(err)
	}

	devices, err := r.ActiveDevices()
	if err != nil {
		t.Fatal(err)
	}
	if len(devices) != 2 {
		t.Fatalf("active devices = %d, want 2", len(devices))
	}
	// Most recently seen first.
	if devices[0].UUID != uuids[2] || devices[1].UUID != uuids[0] {
		t.Errorf("ordering = %s, %s", devices[0].UUID, devices[1].UUID)
	}
}

// TestTouch verifies last-seen refresh and that unknown devices are a no-op.
func TestTouch(t *testing.T) {
	r := setupRegistry(t)

	if err := r.Register(Registration{UUID: devA, Name: "Till"}); err != nil {
		t.Fatal(err)
	}
	before, _ := r.Get(devA)

	time.Sleep(5 * time.Millisecond)
	if err := r.Touch(devA); err != nil {
		t.Fatalf("Touch() failed: %v", err)
	}
	after, _ := r.Get(devA)
	if after.LastSeen <= before.LastSeen {
		t.Error("Touch() did not refresh last_seen")
	}

	if err := r.Touch("dddddddd-dddd-4ddd-8ddd-dddddddddddd"); err != nil {
		t.Errorf("Touch(unknown) should be a no-op, got %v", err)
	}
}

// TestDeactivateUnknown verifies not-found on unknown uuid.
func TestDeactivateUnknown(t *testing.T) {
	r := setupRegistry(t)
	if err := r.Deactivate(devA); !apperrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}
