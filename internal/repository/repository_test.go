package repository_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"matching-backend/internal/models"
	"matching-backend/internal/repository"
	"matching-backend/internal/services"

	"github.com/jackc/pgx/v5/pgxpool"
)

// openTestDB connects to TEST_DATABASE_URL and starts from empty tables
func openTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := repository.Connect(ctx, dsn, 20)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(db.Close)

	if err := repository.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := db.Exec(ctx, `TRUNCATE messages, matches, swipes, invite_codes, users RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return db
}

func createUsers(t *testing.T, users *repository.UserRepository, n int) []*models.User {
	t.Helper()
	now := time.Now().Unix()
	out := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		u := &models.User{
			Email:     "user" + string(rune('a'+i)) + "@example.com",
			Password:  "hash",
			Name:      "User",
			Age:       25,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := users.Create(context.Background(), u); err != nil {
			t.Fatalf("create user: %v", err)
		}
		out = append(out, u)
	}
	return out
}

func TestUserRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := repository.NewUserRepository(db)

	created := createUsers(t, users, 1)[0]

	dup := *created
	if err := users.Create(ctx, &dup); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("duplicate email err = %v", err)
	}

	got, err := users.GetByEmail(ctx, created.Email)
	if err != nil || got.ID != created.ID {
		t.Fatalf("get by email = %+v, %v", got, err)
	}
	if _, err := users.GetByID(ctx, 999); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("missing user err = %v", err)
	}
	if err := users.UpdateProfile(ctx, 999, "x", 30, "", 1); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("update missing user err = %v", err)
	}
}

func TestLedgerOnPostgres_ConcurrentMutualLike(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	userRepo := repository.NewUserRepository(db)
	matches := repository.NewMatchRepository(db)
	ledger := services.NewMatchingLedger(userRepo, repository.NewSwipeRepository(db), matches,
		repository.NewInviteCodeRepository(db), func() int64 { return time.Now().Unix() })

	u := createUsers(t, userRepo, 2)
	a, b := u[0].ID, u[1].ID

	var wg sync.WaitGroup
	results := make([]*services.SwipeResult, 2)
	for i, pair := range [][2]int64{{a, b}, {b, a}} {
		wg.Add(1)
		go func(i int, actor, target int64) {
			defer wg.Done()
			res, err := ledger.RecordSwipe(ctx, actor, target, true)
			if err != nil {
				t.Errorf("swipe %d->%d: %v", actor, target, err)
				return
			}
			results[i] = res
		}(i, pair[0], pair[1])
	}
	wg.Wait()

	n, err := matches.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	// Under read committed both swipes may miss each other; they must never
	// produce two matches.
	if n > 1 {
		t.Fatalf("matches = %d, want at most 1", n)
	}

	created := 0
	for _, res := range results {
		if res != nil && res.Created {
			created++
		}
	}
	if created != n {
		t.Fatalf("created flags = %d, rows = %d", created, n)
	}

	if _, err := ledger.RecordSwipe(ctx, a, b, true); !errors.Is(err, services.ErrAlreadySwiped) {
		t.Fatalf("repeat swipe err = %v", err)
	}
}

func TestInviteCodeRepository_ConcurrentConsume(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	userRepo := repository.NewUserRepository(db)
	invites := repository.NewInviteCodeRepository(db)
	creator := createUsers(t, userRepo, 1)[0]
	now := time.Now().Unix()

	ok, err := invites.Create(ctx, &models.InviteCode{Code: "ONCEONLY", CreatedBy: creator.ID, MaxUses: 1, CreatedAt: now})
	if err != nil || !ok {
		t.Fatalf("create: %v %v", ok, err)
	}
	if ok, err := invites.Create(ctx, &models.InviteCode{Code: "ONCEONLY", CreatedBy: creator.ID, MaxUses: 1, CreatedAt: now}); err != nil || ok {
		t.Fatalf("duplicate create = %v, %v", ok, err)
	}

	var accepted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := invites.Consume(ctx, "ONCEONLY", now)
			if err != nil {
				t.Errorf("consume: %v", err)
				return
			}
			if ok {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()

	if accepted.Load() != 1 {
		t.Fatalf("accepted = %d, want 1", accepted.Load())
	}

	ic, err := invites.GetByCode(ctx, "ONCEONLY")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ic.CurrentUses != 1 || !ic.IsUsed || ic.UsedAt == nil {
		t.Fatalf("invite = %+v", ic)
	}

	expired := now - 1
	invites.Create(ctx, &models.InviteCode{Code: "EXPIRED1", CreatedBy: creator.ID, MaxUses: -1, CreatedAt: now, ExpiresAt: &expired})
	if ok, err := invites.Consume(ctx, "EXPIRED1", now); err != nil || ok {
		t.Fatalf("expired consume = %v, %v", ok, err)
	}

	total, used, err := invites.Count(ctx)
	if err != nil || total != 2 || used != 1 {
		t.Fatalf("count = %d/%d, %v", total, used, err)
	}
}
