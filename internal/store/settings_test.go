package store

import (
	"context"
	"testing"

	"github.com/staysync/staysync/internal/db"
)

func TestGetJWTSecret_GeneratesAndPersists(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	secret1, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if len(secret1) != 64 { // 32 bytes = 64 hex chars
		t.Fatalf("expected 64 hex chars, got %d", len(secret1))
	}

	secret2, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if secret1 != secret2 {
		t.Fatalf("expected same secret, got %q and %q", secret1, secret2)
	}
}

func TestSettings(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if _, ok, err := GetSetting(ctx, database, "missing"); err != nil || ok {
		t.Fatalf("GetSetting(missing) = ok %v, err %v", ok, err)
	}

	if err := SetSetting(ctx, database, "k", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := SetSetting(ctx, database, "k", "v2"); err != nil {
		t.Fatal(err)
	}

	got, ok, err := GetSetting(ctx, database, "k")
	if err != nil || !ok {
		t.Fatalf("GetSetting: ok %v, err %v", ok, err)
	}
	if got != "v2" {
		t.Errorf("expected v2, got %q", got)
	}
}
