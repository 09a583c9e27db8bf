package main

import (
	"context"
	"testing"

	"kasirdemo/backend/internal/config"
	"kasirdemo/backend/internal/store/memory"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	if err := validateSecurityConfig(config.Config{AuthSecret: "short"}); err == nil {
		t.Fatalf("expected short secret to be rejected")
	}
	if err := validateSecurityConfig(config.Config{AuthSecret: "abababababababababababababababab"}); err == nil {
		t.Fatalf("expected repeated secret to be rejected")
	}
	if err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", DemoDays: 100000}); err == nil {
		t.Fatalf("expected oversized DEMO_DAYS to be rejected")
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", DemoDays: 180})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}

func TestEnsureSeedUsers(t *testing.T) {
	ctx := context.Background()

	t.Setenv("SEED_ADMIN_PASSWORD", "")
	t.Setenv("SEED_CASHIER_PASSWORD", "")
	repo := memory.New()
	if err := ensureSeedUsers(ctx, repo); err != nil {
		t.Fatalf("ensure seed users: %v", err)
	}
	if users, _ := repo.ListUsers(ctx); len(users) != 0 {
		t.Fatalf("expected no users without seed passwords, got %d", len(users))
	}

	t.Setenv("SEED_ADMIN_PASSWORD", "admin-secret")
	t.Setenv("SEED_CASHIER_PASSWORD", "cashier-secret")
	if err := ensureSeedUsers(ctx, repo); err != nil {
		t.Fatalf("ensure seed users: %v", err)
	}
	users, _ := repo.ListUsers(ctx)
	if len(users) != 2 || users[0].Role != "admin" || users[1].Role != "cashier" {
		t.Fatalf("unexpected seeded users: %+v", users)
	}

	if err := ensureSeedUsers(ctx, repo); err != nil {
		t.Fatalf("second call must be a no-op, got %v", err)
	}
}
