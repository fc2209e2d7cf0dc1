package cache

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/phishguard/phishguard/pkg/engine"
)

func newTestCache(t *testing.T) (*VerdictCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewWithClient(client, time.Minute)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	v := &engine.Verdict{
		Input:       "http://example.com",
		Label:       engine.LabelLegitimate,
		Confidence:  97.5,
		Reasons:     []string{"no suspicious lexical features detected"},
		Probability: 0.025,
		Threshold:   0.5,
	}
	if err := c.Put(ctx, v.Input, v); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := c.Get(ctx, v.Input)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned a miss for a stored verdict")
	}
	if !reflect.DeepEqual(got, v) {
		t.Errorf("round trip changed the verdict:\nput %+v\ngot %+v", v, got)
	}
}

func TestMissReturnsNil(t *testing.T) {
	c, _ := newTestCache(t)

	got, err := c.Get(context.Background(), "http://never-stored.example")
	if err != nil {
		t.Fatalf("Get on a miss should not error: %v", err)
	}
	if got != nil {
		t.Errorf("Get on a miss returned %+v", got)
	}
}

func TestCorruptEntryIsAMiss(t *testing.T) {
	c, mr := newTestCache(t)

	if err := mr.Set(keyPrefix+"http://example.com", "{broken"); err != nil {
		t.Fatalf("seeding corrupt entry: %v", err)
	}
	got, err := c.Get(context.Background(), "http://example.com")
	if err != nil {
		t.Fatalf("corrupt entry should read as a miss, got error %v", err)
	}
	if got != nil {
		t.Errorf("corrupt entry should read as a miss, got %+v", got)
	}
}

func TestEntriesExpire(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewWithClient(client, time.Second)
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	v := &engine.Verdict{Input: "http://example.com", Label: engine.LabelLegitimate}
	if err := c.Put(ctx, v.Input, v); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	mr.FastForward(2 * time.Second)

	got, err := c.Get(ctx, v.Input)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expired entry should read as a miss, got %+v", got)
	}
}

func TestNilCacheIsNoOp(t *testing.T) {
	var c *VerdictCache // what New("") hands back
	ctx := context.Background()

	if got, err := c.Get(ctx, "http://example.com"); err != nil || got != nil {
		t.Errorf("nil cache Get = (%+v, %v), want (nil, nil)", got, err)
	}
	if err := c.Put(ctx, "http://example.com", &engine.Verdict{}); err != nil {
		t.Errorf("nil cache Put failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("nil cache Close failed: %v", err)
	}
	if New("", time.Minute) != nil {
		t.Error("New with an empty address should disable the cache")
	}
}
