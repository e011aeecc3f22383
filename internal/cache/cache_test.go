package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func TestNilCacheIsDisabled(t *testing.T) {
	var d *Dashboard
	ctx := context.Background()

	d.Set(ctx, Key("u1", "summary"), map[string]int{"a": 1})
	var out map[string]int
	if d.Get(ctx, Key("u1", "summary"), &out) {
		t.Fatal("disabled cache reported a hit")
	}
	d.Invalidate(ctx, "u1")
}

func TestConnectWithoutAddr(t *testing.T) {
	d, err := Connect(context.Background(), "", "", 0, 0)
	if err != nil || d != nil {
		t.Fatalf("Connect(\"\") = %v, %v; want nil, nil", d, err)
	}
}

func TestKeyIsScopedPerUser(t *testing.T) {
	if Key("u1", "summary:2026-10") == Key("u2", "summary:2026-10") {
		t.Fatal("keys of different users collide")
	}
	if got := Key("u1", "weekly"); got != "sijuk:dashboard:u1:weekly" {
		t.Errorf("Key = %q", got)
	}
}

func newTestCache(t *testing.T, ttl time.Duration) (*Dashboard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, ttl), mr
}

func TestGetSetRoundTrip(t *testing.T) {
	d, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	type rollup struct {
		Sales string `json:"sales"`
		Sold  int    `json:"sold"`
	}
	key := Key("u1", "summary:2026-10")
	var out rollup
	if d.Get(ctx, key, &out) {
		t.Fatal("hit on empty cache")
	}

	d.Set(ctx, key, rollup{Sales: "30000", Sold: 20})
	if !d.Get(ctx, key, &out) {
		t.Fatal("miss after Set")
	}
	if out.Sales != "30000" || out.Sold != 20 {
		t.Errorf("got %+v", out)
	}
	if ttl := mr.TTL(key); ttl != time.Minute {
		t.Errorf("ttl = %v, want 1m", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if d.Get(ctx, key, &out) {
		t.Error("hit after ttl expired")
	}
}

func TestGetIgnoresCorruptValue(t *testing.T) {
	d, mr := newTestCache(t, time.Minute)
	key := Key("u1", "weekly")
	if err := mr.Set(key, "{bukan json"); err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if d.Get(context.Background(), key, &out) {
		t.Error("corrupt value reported as hit")
	}
}

func TestInvalidateOnlyTouchesOneUser(t *testing.T) {
	d, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	d.Set(ctx, Key("u1", "summary:2026-10"), 1)
	d.Set(ctx, Key("u1", "weekly"), 2)
	d.Set(ctx, Key("u2", "summary:2026-10"), 3)
	d.Set(ctx, Key("u2", "weekly"), 4)

	d.Invalidate(ctx, "u1")

	for _, k := range []string{Key("u1", "summary:2026-10"), Key("u1", "weekly")} {
		if mr.Exists(k) {
			t.Errorf("%s survived invalidation", k)
		}
	}
	for _, k := range []string{Key("u2", "summary:2026-10"), Key("u2", "weekly")} {
		if !mr.Exists(k) {
			t.Errorf("%s of the other user was removed", k)
		}
	}

	// user tanpa key: no-op
	d.Invalidate(ctx, "u3")
}

func TestInvalidateUserUsesDefault(t *testing.T) {
	d, mr := newTestCache(t, time.Minute)
	prev := Default
	Default = d
	t.Cleanup(func() { Default = prev })

	d.Set(context.Background(), Key("u1", "weekly"), 1)
	InvalidateUser(context.Background(), "u1")
	if mr.Exists(Key("u1", "weekly")) {
		t.Error("InvalidateUser did not clear the default cache")
	}
}
