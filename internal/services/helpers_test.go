package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"matching-backend/internal/models"
	"matching-backend/internal/repository/memory"
)

const testNow = int64(1_700_000_000)

type testClock struct {
	now atomic.Int64
}

func newTestClock() *testClock {
	c := &testClock{}
	c.now.Store(testNow)
	return c
}

func (c *testClock) Now() int64 { return c.now.Load() }

func (c *testClock) Advance(seconds int64) { c.now.Add(seconds) }

type testEnv struct {
	store  *memory.Store
	clock  *testClock
	ledger *MatchingLedger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := memory.New()
	clock := newTestClock()
	return &testEnv{
		store:  st,
		clock:  clock,
		ledger: NewMatchingLedger(st.Users(), st.Swipes(), st.Matches(), st.InviteCodes(), clock.Now),
	}
}

// seedUsers creates n users with ids 1..n
func (e *testEnv) seedUsers(t *testing.T, n int) []*models.User {
	t.Helper()
	users := make([]*models.User, 0, n)
	for i := 1; i <= n; i++ {
		u := &models.User{
			Email:     fmt.Sprintf("user%d@example.com", i),
			Password:  "x",
			Name:      fmt.Sprintf("User %d", i),
			Age:       20 + i%50,
			CreatedAt: e.clock.Now(),
			UpdatedAt: e.clock.Now(),
		}
		if err := e.store.Users().Create(context.Background(), u); err != nil {
			t.Fatalf("seed user %d: %v", i, err)
		}
		users = append(users, u)
	}
	return users
}

func (e *testEnv) putInvite(code string, maxUses, currentUses int, expiresAt *int64) {
	e.store.InviteCodes().Put(&models.InviteCode{
		Code:        code,
		CreatedBy:   1,
		MaxUses:     maxUses,
		CurrentUses: currentUses,
		IsUsed:      maxUses != models.UnlimitedUses && currentUses >= maxUses,
		CreatedAt:   testNow,
		ExpiresAt:   expiresAt,
	})
}

func (e *testEnv) invite(t *testing.T, code string) *models.InviteCode {
	t.Helper()
	ic, err := e.store.InviteCodes().GetByCode(context.Background(), code)
	if err != nil {
		t.Fatalf("get invite %s: %v", code, err)
	}
	return ic
}

func int64Ptr(v int64) *int64 { return &v }
