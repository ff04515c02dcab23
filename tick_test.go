package toxcore_test

import (
	"testing"
	"time"

	"github.com/dlazar-im/toxcore"
	"github.com/dlazar-im/toxcore/identity"
	"github.com/dlazar-im/toxcore/roster"
)

func TestRequestTimeoutDoublesBackoffAndRetries(t *testing.T) {
	c, tr := newTestCore(t)
	addr := identity.Encode(identity.Address{PublicKey: testKey(70), Nospam: 1})
	idx, err := c.AddFriend(addr, []byte("hi"))
	if err != nil {
		t.Fatalf("AddFriend: %v", err)
	}

	c.Tick() // Added -> Requested, first request sent
	if len(tr.requests) != 1 {
		t.Fatalf("expected 1 request after first tick, got %d", len(tr.requests))
	}
	f, _ := c.GetFriend(idx)
	if f.Status != roster.FriendRequested {
		t.Fatalf("expected Requested after first tick, got %v", f.Status)
	}
	firstTimeout := f.RequestTimeout

	// Not yet timed out: ticking again must not re-send or change state.
	c.Tick()
	if len(tr.requests) != 1 {
		t.Fatalf("expected no re-send before timeout, got %d requests", len(tr.requests))
	}
	f, _ = c.GetFriend(idx)
	if f.Status != roster.FriendRequested {
		t.Fatalf("friend regressed before timeout elapsed: %v", f.Status)
	}

	// Force the timeout to have already elapsed and tick again: the
	// friend should fall back to Added with a doubled timeout, ready for
	// tickPendingRequest to retry on the next tick.
	backdated := f
	backdated.RequestLastSent = time.Now().Add(-2 * firstTimeout)
	*forceFriend(c, idx) = backdated

	c.Tick()
	f, _ = c.GetFriend(idx)
	if f.Status != roster.FriendAdded {
		t.Fatalf("expected Added after timeout, got %v", f.Status)
	}
	if f.RequestTimeout != firstTimeout*2 {
		t.Fatalf("expected timeout to double to %v, got %v", firstTimeout*2, f.RequestTimeout)
	}

	c.Tick() // Added -> Requested again, second request sent
	if len(tr.requests) != 2 {
		t.Fatalf("expected a second retry request, got %d", len(tr.requests))
	}
}

// forceFriend reaches into the roster to get a live pointer for tests that
// need to backdate a timestamp no public setter exposes.
func forceFriend(c *toxcore.Core, idx int) *roster.Friend {
	return c.Roster.Get(idx)
}

func TestNextTickDelayClampsToMinRunInterval(t *testing.T) {
	if got := toxcore.NextTickDelay(200 * time.Millisecond); got != toxcore.MinRunInterval {
		t.Fatalf("expected MinRunInterval for a longer transport interval, got %v", got)
	}
	if got := toxcore.NextTickDelay(10 * time.Millisecond); got != 10*time.Millisecond {
		t.Fatalf("expected the shorter transport interval to pass through, got %v", got)
	}
}

func TestNotifyCoreConnectionChangeFiresOnlyOnChange(t *testing.T) {
	c, _ := newTestCore(t)
	var calls int
	c.Callbacks.CoreConnectionChange = func(ctx interface{}, kind roster.ConnectionKind) {
		calls++
	}
	c.NotifyCoreConnectionChange(roster.ConnUDP)
	c.NotifyCoreConnectionChange(roster.ConnUDP)
	c.NotifyCoreConnectionChange(roster.ConnTCP)
	if calls != 2 {
		t.Fatalf("expected 2 callback invocations (UDP then TCP), got %d", calls)
	}
}
