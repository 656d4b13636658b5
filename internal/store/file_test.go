package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := NewFileStore(path)
	ctx := context.Background()

	// empty store loads nil
	rec, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record, got %+v", rec)
	}

	exp := time.Now().Add(30 * time.Minute).Truncate(time.Millisecond)
	in := &Record{AccessToken: "tok-1", UserJSON: []byte(`{"id":1,"email":"a@b.com"}`), ExpiresAt: exp}
	if err := s.Save(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil || got.AccessToken != "tok-1" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if !got.ExpiresAt.Equal(exp) {
		t.Fatalf("expiry mismatch: got %v want %v", got.ExpiresAt, exp)
	}
	if string(got.UserJSON) != `{"id":1,"email":"a@b.com"}` {
		t.Fatalf("user payload mismatch: %s", got.UserJSON)
	}
}

func TestFileStoreClearIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := NewFileStore(path)
	ctx := context.Background()

	if err := s.Save(ctx, &Record{AccessToken: "t", UserJSON: []byte(`{}`), ExpiresAt: time.Now().Add(time.Hour)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	// clearing again must not fail
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	rec, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load after clear: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil after clear, got %+v", rec)
	}
}

func TestRecordExpired(t *testing.T) {
	now := time.Now()
	r := &Record{ExpiresAt: now.Add(-time.Second)}
	if !r.Expired(now) {
		t.Fatalf("expected expired")
	}
	r.ExpiresAt = now.Add(time.Minute)
	if r.Expired(now) {
		t.Fatalf("expected not expired")
	}
}
