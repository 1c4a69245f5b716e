package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://"+s.Addr(), ttl)
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, s
}

func TestNewRedisStore(t *testing.T) {
	store, _ := setupTestRedis(t, time.Hour)
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewRedisStoreBadURL(t *testing.T) {
	if _, err := NewRedisStore("not a url", time.Hour); err == nil {
		t.Fatal("expected error for invalid redis url")
	}
}

func TestSetAndGet(t *testing.T) {
	store, _ := setupTestRedis(t, time.Hour)
	ctx := context.Background()

	if err := store.Set(ctx, "usr_1", KeyLanguage, json.RawMessage(`"de"`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set(ctx, "usr_1", KeyAuth, json.RawMessage(`{"name":"Avery"}`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := store.Get(ctx, "usr_1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got[KeyLanguage]) != `"de"` {
		t.Errorf("language = %s", got[KeyLanguage])
	}
	if string(got[KeyAuth]) != `{"name":"Avery"}` {
		t.Errorf("auth = %s", got[KeyAuth])
	}

	other, err := store.Get(ctx, "usr_2")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected no prefs for another subject, got %v", other)
	}
}

func TestEditingStateIsNotPersisted(t *testing.T) {
	store, s := setupTestRedis(t, time.Hour)
	ctx := context.Background()

	for _, key := range []string{"editMode", "isEditing", "draft"} {
		err := store.Set(ctx, "usr_1", key, json.RawMessage(`true`))
		if !errors.Is(err, ErrNotPersisted) {
			t.Fatalf("Set(%s) error = %v, want ErrNotPersisted", key, err)
		}
	}
	if keys := s.Keys(); len(keys) != 0 {
		t.Fatalf("expected no redis keys, got %v", keys)
	}
}

func TestSetRejectsInvalidJSON(t *testing.T) {
	store, _ := setupTestRedis(t, time.Hour)
	if err := store.Set(context.Background(), "usr_1", KeyLanguage, json.RawMessage(`de`)); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("Set error = %v, want ErrInvalidValue", err)
	}
}

func TestPrefsExpire(t *testing.T) {
	store, s := setupTestRedis(t, time.Minute)
	ctx := context.Background()

	if err := store.Set(ctx, "usr_1", KeyLanguage, json.RawMessage(`"en"`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if ttl := s.TTL("prefs:usr_1:language"); ttl != time.Minute {
		t.Fatalf("ttl = %v, want 1m", ttl)
	}

	s.FastForward(2 * time.Minute)

	got, err := store.Get(ctx, "usr_1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, ok := got[KeyLanguage]; ok {
		t.Fatal("expected language to expire")
	}
}

func TestDelete(t *testing.T) {
	store, _ := setupTestRedis(t, time.Hour)
	ctx := context.Background()

	if err := store.Set(ctx, "usr_1", KeyAuth, json.RawMessage(`{}`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Delete(ctx, "usr_1", KeyAuth); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, "usr_1", KeyAuth); err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}
	if err := store.Delete(ctx, "usr_1", "editMode"); !errors.Is(err, ErrNotPersisted) {
		t.Fatalf("Delete(editMode) error = %v", err)
	}

	got, _ := store.Get(ctx, "usr_1")
	if len(got) != 0 {
		t.Fatalf("expected empty prefs, got %v", got)
	}
}

func TestKeys(t *testing.T) {
	keys := Keys()
	if len(keys) != 2 || keys[0] != KeyAuth || keys[1] != KeyLanguage {
		t.Fatalf("Keys() = %v", keys)
	}
}
