package repository

import (
	"context"
	"testing"
)

func TestGetOrCreate(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	user, created, err := repo.GetOrCreate(ctx, 100)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if !created {
		t.Fatal("expected first call to create the user")
	}
	if user.HasMapCenter() || user.IsAdmin {
		t.Fatalf("new user should have defaults, got %+v", user)
	}

	again, created, err := repo.GetOrCreate(ctx, 100)
	if err != nil {
		t.Fatalf("second get or create: %v", err)
	}
	if created {
		t.Fatal("second call must not create a new row")
	}
	if again.ID != user.ID {
		t.Fatalf("expected same record, got %d and %d", user.ID, again.ID)
	}
}

func TestSetMapCenterIdempotent(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	if err := repo.SetMapCenter(ctx, 100, 55.75, 37.61); err != nil {
		t.Fatalf("set center: %v", err)
	}
	if err := repo.SetMapCenter(ctx, 100, 59.93, 30.31); err != nil {
		t.Fatalf("overwrite center: %v", err)
	}

	user, err := repo.FindByTelegramID(ctx, 100)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if !user.HasMapCenter() || *user.MapCenterLat != 59.93 || *user.MapCenterLon != 30.31 {
		t.Fatalf("expected overwritten center, got %+v", user)
	}
}

func TestIsAdminUnknownUser(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))

	ok, err := repo.IsAdmin(context.Background(), 777)
	if err != nil {
		t.Fatalf("is admin: %v", err)
	}
	if ok {
		t.Fatal("unknown user must not be admin")
	}
}

func TestPromoteToAdminCreatesUser(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	if err := repo.PromoteToAdmin(ctx, 200); err != nil {
		t.Fatalf("promote: %v", err)
	}

	ok, err := repo.IsAdmin(ctx, 200)
	if err != nil {
		t.Fatalf("is admin: %v", err)
	}
	if !ok {
		t.Fatal("promoted user should be admin")
	}
}
