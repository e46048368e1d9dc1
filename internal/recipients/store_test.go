package recipients

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStore(client)
}

func TestStoreSaveAndGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "East Division", "a@b.com,  c@d.com"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Get(ctx, "East Division")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "a@b.com, c@d.com" {
		t.Errorf("Get = %q, want normalized form", got)
	}
}

func TestStoreGetMissingGroup(t *testing.T) {
	s := testStore(t)
	got, err := s.Get(context.Background(), "never saved")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "" {
		t.Errorf("Get = %q, want empty string", got)
	}
}

func TestStoreSaveRejectsInvalidWithoutWriting(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "east", "good@b.com"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	err := s.Save(ctx, "east", "good@b.com, broken")
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}

	// The previous value must survive the rejected edit.
	got, _ := s.Get(ctx, "east")
	if got != "good@b.com" {
		t.Errorf("stored value after rejected edit = %q", got)
	}
}

func TestStoreSaveEmptyClears(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "east", "a@b.com"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, "east", "  "); err != nil {
		t.Fatalf("Save empty: %v", err)
	}
	got, _ := s.Get(ctx, "east")
	if got != "" {
		t.Errorf("Get after clear = %q", got)
	}
}

func TestStoreAll(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.Save(ctx, "east", "a@b.com")
	s.Save(ctx, "west", "c@d.com")

	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 2 || all["east"] != "a@b.com" || all["west"] != "c@d.com" {
		t.Errorf("All = %v", all)
	}
}
