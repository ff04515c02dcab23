package roster_test

import (
	"testing"

	"github.com/dlazar-im/toxcore/roster"
)

func key(b byte) [32]byte {
	var k [32]byte
	for i := range k {
		k[i] = b
	}
	return k
}

func newFriend(pk [32]byte, status roster.FriendStatus) *roster.Friend {
	return &roster.Friend{
		Status: status,
		Devices: []roster.Device{
			{Status: roster.DeviceConfirmed, PublicKey: pk},
		},
	}
}

func TestInsertLookupRemove(t *testing.T) {
	tbl := roster.New()

	idx := tbl.Insert(newFriend(key(1), roster.FriendConfirmed))
	if idx != 0 {
		t.Fatalf("expected index 0, got %d", idx)
	}

	fIdx, dIdx, ok := tbl.LookupByPublicKey(key(1))
	if !ok || fIdx != 0 || dIdx != 0 {
		t.Fatalf("lookup failed: fIdx=%d dIdx=%d ok=%v", fIdx, dIdx, ok)
	}

	if _, _, ok := tbl.LookupByPublicKey(key(2)); ok {
		t.Fatalf("lookup for unknown key should fail")
	}

	if err := tbl.Remove(0); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if tbl.Exists(0) {
		t.Fatalf("slot 0 should not exist after remove")
	}
	if _, _, ok := tbl.LookupByPublicKey(key(1)); ok {
		t.Fatalf("lookup should fail after remove")
	}
}

func TestSlotReuse(t *testing.T) {
	tbl := roster.New()
	tbl.Insert(newFriend(key(1), roster.FriendConfirmed))
	tbl.Insert(newFriend(key(2), roster.FriendConfirmed))

	if err := tbl.Remove(0); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	idx := tbl.Insert(newFriend(key(3), roster.FriendConfirmed))
	if idx != 0 {
		t.Fatalf("expected slot 0 to be reused, got %d", idx)
	}
}

func TestTailShrink(t *testing.T) {
	tbl := roster.New()
	tbl.Insert(newFriend(key(1), roster.FriendConfirmed))
	tbl.Insert(newFriend(key(2), roster.FriendConfirmed))
	if tbl.Len() != 2 {
		t.Fatalf("expected len 2, got %d", tbl.Len())
	}

	if err := tbl.Remove(1); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if tbl.Len() != 1 {
		t.Fatalf("expected table to shrink to len 1, got %d", tbl.Len())
	}
}

func TestAddDeviceIndexesKey(t *testing.T) {
	tbl := roster.New()
	idx := tbl.Insert(newFriend(key(1), roster.FriendConfirmed))

	devIdx, err := tbl.AddDevice(idx, roster.Device{Status: roster.DevicePending, PublicKey: key(9)})
	if err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	if devIdx != 1 {
		t.Fatalf("expected device index 1, got %d", devIdx)
	}

	fIdx, dIdx, ok := tbl.LookupByPublicKey(key(9))
	if !ok || fIdx != idx || dIdx != 1 {
		t.Fatalf("lookup for new device failed: fIdx=%d dIdx=%d ok=%v", fIdx, dIdx, ok)
	}
}

func TestFriendOnline(t *testing.T) {
	f := newFriend(key(1), roster.FriendConfirmed)
	if f.Online() {
		t.Fatalf("confirmed-only friend should not be online")
	}
	f.Devices[0].Status = roster.DeviceOnline
	if !f.Online() {
		t.Fatalf("friend with an online device should be online")
	}
}
