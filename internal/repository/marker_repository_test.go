package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	return db
}

func TestFindNearBoundingBox(t *testing.T) {
	repo := NewMarkerRepository(newTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, 10, 55.7512, 37.6184, "пост")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	found, err := repo.FindNear(ctx, 55.7513, 37.6185, 0.001)
	if err != nil {
		t.Fatalf("find near: %v", err)
	}
	if found == nil || found.ID != created.ID {
		t.Fatalf("expected marker %d inside the box, got %+v", created.ID, found)
	}

	miss, err := repo.FindNear(ctx, 55.7600, 37.6184, 0.001)
	if err != nil {
		t.Fatalf("find near miss: %v", err)
	}
	if miss != nil {
		t.Fatalf("expected no marker outside the box, got %+v", miss)
	}
}

func TestAddVoteCountsDistinctVoters(t *testing.T) {
	repo := NewMarkerRepository(newTestDB(t))
	ctx := context.Background()

	marker, err := repo.Create(ctx, 10, 55.0, 37.0, "метка")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	count, err := repo.AddVote(ctx, marker.ID, 21)
	if err != nil {
		t.Fatalf("first vote: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}

	// Same voter again: set semantics, count unchanged.
	count, err = repo.AddVote(ctx, marker.ID, 21)
	if err != nil {
		t.Fatalf("repeat vote: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count to stay 1, got %d", count)
	}

	count, err = repo.AddVote(ctx, marker.ID, 22)
	if err != nil {
		t.Fatalf("second voter: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
}

func TestDeleteRemovesVotes(t *testing.T) {
	db := newTestDB(t)
	repo := NewMarkerRepository(db)
	ctx := context.Background()

	marker, err := repo.Create(ctx, 10, 55.0, 37.0, "метка")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.AddVote(ctx, marker.ID, 21); err != nil {
		t.Fatalf("add vote: %v", err)
	}

	if err := repo.Delete(ctx, marker.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := repo.FindByID(ctx, marker.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("marker should be gone, got %v", err)
	}

	// A new marker with the same id space must start with zero votes.
	fresh, err := repo.Create(ctx, 10, 56.0, 37.0, "новая")
	if err != nil {
		t.Fatalf("create fresh: %v", err)
	}
	count, err := repo.AddVote(ctx, fresh.ID, 30)
	if err != nil {
		t.Fatalf("vote on fresh: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected fresh marker to have 1 vote, got %d", count)
	}
}

func TestListAllOrdered(t *testing.T) {
	repo := NewMarkerRepository(newTestDB(t))
	ctx := context.Background()

	if _, err := repo.Create(ctx, 10, 55.0, 37.0, "первая"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.Create(ctx, 11, 56.0, 38.0, "вторая"); err != nil {
		t.Fatalf("create: %v", err)
	}

	markers, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(markers) != 2 {
		t.Fatalf("expected 2 markers, got %d", len(markers))
	}
	if markers[0].Comment != "первая" {
		t.Fatalf("expected oldest first, got %q", markers[0].Comment)
	}
}
