package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/fathomcrm/fathom-backend/internal/repos"
	"github.com/fathomcrm/fathom-backend/internal/repos/testutil"
	"github.com/fathomcrm/fathom-backend/internal/requestdata"
)

func newAuthFixture(t *testing.T, tx *gorm.DB) AuthService {
	t.Helper()
	log := testutil.Logger(t)
	return NewAuthService(tx, log,
		repos.NewUserRepo(tx, log),
		repos.NewUserTokenRepo(tx, log),
		"test-secret",
		time.Hour,
		24*time.Hour,
	)
}

func TestAuthRegisterLoginRoundTrip(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	svc := newAuthFixture(t, tx)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Pat@Acme.com", "hunter2hunter2", "Pat", "Doe")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "pat@acme.com" {
		t.Fatalf("expected normalized email, got %s", user.Email)
	}

	if _, err := svc.Register(ctx, "pat@acme.com", "hunter2hunter2", "Pat", "Doe"); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	if _, err := svc.Register(ctx, "nope", "hunter2hunter2", "", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid email rejection, got %v", err)
	}
	if _, err := svc.Register(ctx, "short@acme.com", "short", "", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected short password rejection, got %v", err)
	}

	pair, err := svc.Login(ctx, "pat@acme.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected both tokens, got %+v", pair)
	}

	if _, err := svc.Login(ctx, "pat@acme.com", "wrong-password"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected bad password rejection, got %v", err)
	}
	if _, err := svc.Login(ctx, "ghost@acme.com", "hunter2hunter2"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unknown user rejection, got %v", err)
	}

	hydrated, err := svc.SetContextFromToken(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("set context: %v", err)
	}
	if requestdata.UserID(hydrated) != user.ID {
		t.Fatalf("expected caller identity in context")
	}
	if _, err := svc.SetContextFromToken(ctx, "garbage"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected garbage token rejection, got %v", err)
	}
}

func TestAuthRefreshRotatesToken(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	svc := newAuthFixture(t, tx)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "sam@acme.com", "hunter2hunter2", "Sam", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	pair, err := svc.Login(ctx, "sam@acme.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	next, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Fatalf("expected refresh token rotation")
	}

	// The old token is burned.
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected rotated token to be rejected, got %v", err)
	}

	if err := svc.Logout(ctx, next.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Refresh(ctx, next.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected logged-out token to be rejected, got %v", err)
	}
}
