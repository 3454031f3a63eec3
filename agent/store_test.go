package agent

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/tbxark/leadagent/types"
)

func TestMemoryCacheTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	cache := NewMemoryCache[string](time.Minute)
	cache.now = func() time.Time { return now }

	if err := cache.Set(ctx, "a", "1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, ok, _ := cache.Get(ctx, "a"); !ok || v != "1" {
		t.Fatalf("get = %q %v", v, ok)
	}
	now = now.Add(2 * time.Minute)
	if _, ok, _ := cache.Get(ctx, "a"); ok {
		t.Error("entry should have expired")
	}

	_ = cache.Set(ctx, "b", "2")
	_ = cache.Set(ctx, "c", "3")
	now = now.Add(2 * time.Minute)
	if n := cache.Sweep(); n != 2 {
		t.Errorf("sweep removed %d, want 2", n)
	}
}

func TestMemoryCacheNoTTL(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache[int](0)
	_ = cache.Set(ctx, "k", 7)
	cache.now = func() time.Time { return time.Now().Add(1000 * time.Hour) }
	if ok, _ := cache.Exists(ctx, "k"); !ok {
		t.Error("zero ttl should keep entries")
	}
	_ = cache.Del(ctx, "k")
	if ok, _ := cache.Exists(ctx, "k"); ok {
		t.Error("deleted entry still present")
	}
}

func TestStateStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStateStore(0)
	ctx := WithStateKey(context.Background(), "copy")

	state, err := store.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if state.SessionID != "copy" || state.Phase != types.PhaseCollecting {
		t.Fatalf("fresh state = %+v", state)
	}
	state.Fields.Set(types.FieldName, "Asha")
	state.appendTurn(types.RoleUser, "hi", time.Now())
	if err := store.Write(ctx, state); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, _ := store.Read(ctx)
	got.appendTurn(types.RoleUser, "mutated", time.Now())
	got.Fields.Set(types.FieldName, "Other")

	again, _ := store.Read(ctx)
	if len(again.History) != 1 {
		t.Errorf("history leaked through copy: %d turns", len(again.History))
	}
	if v, _ := again.Fields.Get(types.FieldName); v != "Asha" {
		t.Errorf("fields leaked through copy: %q", v)
	}
}

func TestStateStoreDefaultKey(t *testing.T) {
	store := NewMemoryStateStore(0)
	ctx := context.Background()
	state := NewState(DefaultSessionID)
	state.Fields.Set(types.FieldBudget, "1 crore")
	if err := store.Write(ctx, state); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, _ := store.Read(WithStateKey(ctx, DefaultSessionID))
	if v, ok := got.Fields.Get(types.FieldBudget); !ok || v != "1 crore" {
		t.Errorf("missing key should route to the default session, got %q", v)
	}
}

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStateStore(t *testing.T) {
	mr, client := newMiniRedis(t)
	store := NewStateStore(NewRedisCache[*State](client, time.Hour))
	ctx := WithStateKey(context.Background(), "redis-1")

	state := NewState("redis-1")
	state.Fields.Set(types.FieldLocation, "Goa")
	state.appendTurn(types.RoleUser, "Goa", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if err := store.Write(ctx, state); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !mr.Exists(stateNamespace + ":redis-1") {
		t.Fatalf("expected key in redis, have %v", mr.Keys())
	}

	got, err := store.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if v, _ := got.Fields.Get(types.FieldLocation); v != "Goa" || len(got.History) != 1 {
		t.Errorf("round trip lost data: %+v", got)
	}

	mr.FastForward(2 * time.Hour)
	got, err = store.Read(ctx)
	if err != nil {
		t.Fatalf("read after ttl: %v", err)
	}
	if _, ok := got.Fields.Get(types.FieldLocation); ok {
		t.Error("state should expire with the ttl")
	}
}

func TestRedisStateStoreRemove(t *testing.T) {
	_, client := newMiniRedis(t)
	store := NewStateStore(NewRedisCache[*State](client, 0))
	ctx := WithStateKey(context.Background(), "gone")
	_ = store.Write(ctx, NewState("gone"))
	if err := store.Remove(ctx); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := store.Remove(ctx); err != nil {
		t.Fatalf("remove twice: %v", err)
	}
	exists, err := NewRedisCache[*State](client, 0).Exists(ctx, stateNamespace+":gone")
	if err != nil || exists {
		t.Errorf("exists = %v, %v", exists, err)
	}
}

func TestRedisCacheFromURL(t *testing.T) {
	mr := miniredis.RunT(t)
	cache, err := NewRedisCacheFromURL[string](context.Background(), "redis://"+mr.Addr()+"/0", time.Minute)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer cache.Close()
	if err := cache.Set(context.Background(), "k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, ok, err := cache.Get(context.Background(), "k"); err != nil || !ok || v != "v" {
		t.Errorf("get = %q %v %v", v, ok, err)
	}
	if _, err := NewRedisCacheFromURL[string](context.Background(), "not a url", time.Minute); err == nil {
		t.Error("expected parse error")
	}
}

func TestKeyedMutexReleases(t *testing.T) {
	km := NewKeyedMutex()
	unlockA := km.Lock("a")
	unlockB := km.Lock("b")
	if km.size() != 2 {
		t.Errorf("size = %d", km.size())
	}
	done := make(chan struct{})
	go func() {
		unlock := km.Lock("a")
		unlock()
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("second lock on a should block")
	case <-time.After(20 * time.Millisecond):
	}
	unlockA()
	<-done
	unlockB()
	if km.size() != 0 {
		t.Errorf("locks not cleaned up: %d", km.size())
	}
}
