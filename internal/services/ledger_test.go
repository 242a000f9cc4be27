package services

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"

	"matching-backend/internal/models"
)

func TestRecordSwipe_MutualLikeCreatesOneMatch(t *testing.T) {
	env := newTestEnv(t)
	env.seedUsers(t, 9)
	ctx := context.Background()

	first, err := env.ledger.RecordSwipe(ctx, 5, 9, true)
	if err != nil {
		t.Fatalf("swipe 5->9: %v", err)
	}
	if first.Matched {
		t.Fatalf("first like should not match")
	}

	second, err := env.ledger.RecordSwipe(ctx, 9, 5, true)
	if err != nil {
		t.Fatalf("swipe 9->5: %v", err)
	}
	if !second.Matched || !second.Created {
		t.Fatalf("second like: matched=%v created=%v, want true/true", second.Matched, second.Created)
	}
	if second.Match.User1ID != 5 || second.Match.User2ID != 9 {
		t.Fatalf("match pair = (%d, %d), want (5, 9)", second.Match.User1ID, second.Match.User2ID)
	}

	n, err := env.store.Matches().Count(ctx)
	if err != nil {
		t.Fatalf("count matches: %v", err)
	}
	if n != 1 {
		t.Fatalf("match count = %d, want 1", n)
	}
	if _, err := env.store.Matches().GetByPair(ctx, 5, 9); err != nil {
		t.Fatalf("match (5, 9) missing: %v", err)
	}
}

func TestRecordSwipe_LikeThenPassDoesNotMatch(t *testing.T) {
	env := newTestEnv(t)
	env.seedUsers(t, 9)
	ctx := context.Background()

	if _, err := env.ledger.RecordSwipe(ctx, 5, 9, true); err != nil {
		t.Fatalf("swipe 5->9: %v", err)
	}
	res, err := env.ledger.RecordSwipe(ctx, 9, 5, false)
	if err != nil {
		t.Fatalf("swipe 9->5: %v", err)
	}
	if res.Matched {
		t.Fatalf("pass should not match")
	}

	n, _ := env.store.Matches().Count(ctx)
	if n != 0 {
		t.Fatalf("match count = %d, want 0", n)
	}
}

func TestRecordSwipe_PassThenLikeDoesNotMatch(t *testing.T) {
	env := newTestEnv(t)
	env.seedUsers(t, 2)
	ctx := context.Background()

	if _, err := env.ledger.RecordSwipe(ctx, 1, 2, false); err != nil {
		t.Fatalf("swipe 1->2: %v", err)
	}
	res, err := env.ledger.RecordSwipe(ctx, 2, 1, true)
	if err != nil {
		t.Fatalf("swipe 2->1: %v", err)
	}
	if res.Matched {
		t.Fatalf("one-sided like should not match")
	}
}

func TestRecordSwipe_Rejections(t *testing.T) {
	env := newTestEnv(t)
	env.seedUsers(t, 3)
	ctx := context.Background()

	if _, err := env.ledger.RecordSwipe(ctx, 1, 2, true); err != nil {
		t.Fatalf("first swipe: %v", err)
	}

	tests := []struct {
		name     string
		actor    int64
		target   int64
		isLike   bool
		wantKind error
	}{
		{"self like", 2, 2, true, ErrInvalidArgument},
		{"self pass", 2, 2, false, ErrInvalidArgument},
		{"zero actor", 0, 2, true, ErrInvalidArgument},
		{"negative target", 1, -3, true, ErrInvalidArgument},
		{"unknown target", 1, 42, true, ErrNotFound},
		{"duplicate like", 1, 2, true, ErrConflict},
		{"duplicate with other decision", 1, 2, false, ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.ledger.RecordSwipe(ctx, tt.actor, tt.target, tt.isLike)
			if !errors.Is(err, tt.wantKind) {
				t.Fatalf("err = %v, want kind %v", err, tt.wantKind)
			}
		})
	}
}

func TestRecordSwipe_ConcurrentMutualLikes(t *testing.T) {
	const pairs = 50

	env := newTestEnv(t)
	env.seedUsers(t, pairs*2)
	ctx := context.Background()

	type outcome struct {
		res *SwipeResult
		err error
	}

	for p := 0; p < pairs; p++ {
		a, b := int64(2*p+1), int64(2*p+2)
		results := make([]outcome, 2)

		var wg sync.WaitGroup
		start := make(chan struct{})
		for i, sw := range [][2]int64{{a, b}, {b, a}} {
			wg.Add(1)
			go func(i int, actor, target int64) {
				defer wg.Done()
				<-start
				res, err := env.ledger.RecordSwipe(ctx, actor, target, true)
				results[i] = outcome{res, err}
			}(i, sw[0], sw[1])
		}
		close(start)
		wg.Wait()

		matched, created := 0, 0
		for _, o := range results {
			if o.err != nil {
				t.Fatalf("pair (%d, %d): %v", a, b, o.err)
			}
			if o.res.Matched {
				matched++
				if o.res.Match.User1ID != a || o.res.Match.User2ID != b {
					t.Fatalf("pair (%d, %d): match stored as (%d, %d)", a, b, o.res.Match.User1ID, o.res.Match.User2ID)
				}
			}
			if o.res.Created {
				created++
			}
		}
		if matched == 0 {
			t.Fatalf("pair (%d, %d): neither swipe reported a match", a, b)
		}
		if created != 1 {
			t.Fatalf("pair (%d, %d): created = %d, want 1", a, b, created)
		}
	}

	n, _ := env.store.Matches().Count(ctx)
	if n != pairs {
		t.Fatalf("match count = %d, want %d", n, pairs)
	}
}

func TestConsumeInviteCode_Unlimited(t *testing.T) {
	env := newTestEnv(t)
	env.putInvite("WELCOME1", models.UnlimitedUses, 0, nil)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		res, err := env.ledger.ConsumeInviteCode(ctx, "WELCOME1", env.clock.Now())
		if err != nil || !res.Accepted {
			t.Fatalf("use %d: accepted=%v err=%v", i+1, res.Accepted, err)
		}
	}

	ic := env.invite(t, "WELCOME1")
	if ic.CurrentUses != 25 {
		t.Fatalf("current_uses = %d, want 25", ic.CurrentUses)
	}
	if ic.IsUsed || ic.IsExhausted() {
		t.Fatalf("unlimited code must never be exhausted")
	}
}

func TestConsumeInviteCode_UnlimitedWithHighUsage(t *testing.T) {
	env := newTestEnv(t)
	env.putInvite("MANYUSES", models.UnlimitedUses, 1_000_000, nil)

	res, err := env.ledger.ConsumeInviteCode(context.Background(), "MANYUSES", env.clock.Now())
	if err != nil || !res.Accepted {
		t.Fatalf("accepted=%v err=%v, want accepted", res.Accepted, err)
	}
}

func TestConsumeInviteCode_SingleUse(t *testing.T) {
	env := newTestEnv(t)
	env.putInvite("ABC12345", 1, 0, nil)
	ctx := context.Background()

	res, err := env.ledger.ConsumeInviteCode(ctx, "ABC12345", env.clock.Now())
	if err != nil || !res.Accepted {
		t.Fatalf("first use: accepted=%v err=%v", res.Accepted, err)
	}
	if res.Code.CurrentUses != 1 {
		t.Fatalf("current_uses = %d, want 1", res.Code.CurrentUses)
	}

	ic := env.invite(t, "ABC12345")
	if ic.CurrentUses != 1 || !ic.IsUsed || ic.UsedAt == nil {
		t.Fatalf("stored code = %+v, want one use recorded", ic)
	}

	res, err = env.ledger.ConsumeInviteCode(ctx, "ABC12345", env.clock.Now())
	if res.Accepted {
		t.Fatalf("second use accepted")
	}
	if !errors.Is(err, ErrInvalidInviteCode) {
		t.Fatalf("second use err = %v, want ErrInvalidInviteCode", err)
	}
}

func TestConsumeInviteCode_Normalizes(t *testing.T) {
	env := newTestEnv(t)
	env.putInvite("ABC12345", 2, 0, nil)

	res, err := env.ledger.ConsumeInviteCode(context.Background(), "  abc12345 ", env.clock.Now())
	if err != nil || !res.Accepted {
		t.Fatalf("accepted=%v err=%v", res.Accepted, err)
	}
}

func TestConsumeInviteCode_Expired(t *testing.T) {
	env := newTestEnv(t)
	past := env.clock.Now() - 1
	env.putInvite("OLDCODE1", models.UnlimitedUses, 0, &past)
	env.putInvite("OLDCODE2", 10, 3, &past)
	env.putInvite("EXPNOW01", 1, 0, int64Ptr(env.clock.Now()))

	for _, code := range []string{"OLDCODE1", "OLDCODE2", "EXPNOW01"} {
		res, err := env.ledger.ConsumeInviteCode(context.Background(), code, env.clock.Now())
		if res.Accepted {
			t.Fatalf("%s: expired code accepted", code)
		}
		if !errors.Is(err, ErrInvalidInviteCode) {
			t.Fatalf("%s: err = %v, want ErrInvalidInviteCode", code, err)
		}
	}

	if ic := env.invite(t, "OLDCODE2"); ic.CurrentUses != 3 {
		t.Fatalf("expired code usage changed to %d", ic.CurrentUses)
	}
}

func TestConsumeInviteCode_ExpiresLater(t *testing.T) {
	env := newTestEnv(t)
	env.putInvite("SOONCODE", models.UnlimitedUses, 0, int64Ptr(env.clock.Now()+60))
	ctx := context.Background()

	if res, err := env.ledger.ConsumeInviteCode(ctx, "SOONCODE", env.clock.Now()); err != nil || !res.Accepted {
		t.Fatalf("before expiry: accepted=%v err=%v", res.Accepted, err)
	}

	env.clock.Advance(61)
	if res, _ := env.ledger.ConsumeInviteCode(ctx, "SOONCODE", env.clock.Now()); res.Accepted {
		t.Fatalf("after expiry: accepted")
	}
}

func TestConsumeInviteCode_UnknownAndBlank(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.ledger.ConsumeInviteCode(ctx, "NOPE0000", env.clock.Now())
	if res.Accepted || !errors.Is(err, ErrInvalidInviteCode) {
		t.Fatalf("unknown code: accepted=%v err=%v", res.Accepted, err)
	}

	res, err = env.ledger.ConsumeInviteCode(ctx, "   ", env.clock.Now())
	if res.Accepted || !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("blank code: accepted=%v err=%v", res.Accepted, err)
	}
}

func TestConsumeInviteCode_ConcurrentSingleUse(t *testing.T) {
	const callers = 64

	env := newTestEnv(t)
	env.putInvite("RACE0001", 1, 0, nil)
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			res, err := env.ledger.ConsumeInviteCode(ctx, "RACE0001", testNow)
			if err != nil && !errors.Is(err, ErrInvalidInviteCode) && !errors.Is(err, ErrInviteCodeRaceLost) {
				t.Errorf("unexpected error: %v", err)
			}
			if res.Accepted {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()

	if accepted != 1 {
		t.Fatalf("accepted = %d, want exactly 1", accepted)
	}
	if ic := env.invite(t, "RACE0001"); ic.CurrentUses != 1 {
		t.Fatalf("current_uses = %d, want 1", ic.CurrentUses)
	}
}

// racingInvites lets another registration spend the code between the
// ledger's read and its conditional update.
type racingInvites struct {
	InviteCodeStore
	once sync.Once
}

func (r *racingInvites) GetByCode(ctx context.Context, code string) (*models.InviteCode, error) {
	ic, err := r.InviteCodeStore.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	r.once.Do(func() {
		r.InviteCodeStore.Consume(ctx, code, testNow)
	})
	return ic, nil
}

func TestConsumeInviteCode_RaceLostChecksAffectedRows(t *testing.T) {
	env := newTestEnv(t)
	env.putInvite("LASTUSE1", 1, 0, nil)

	invites := &racingInvites{InviteCodeStore: env.store.InviteCodes()}
	ledger := NewMatchingLedger(env.store.Users(), env.store.Swipes(), env.store.Matches(), invites, env.clock.Now)

	res, err := ledger.ConsumeInviteCode(context.Background(), "LASTUSE1", testNow)
	if res.Accepted {
		t.Fatalf("lost race accepted")
	}
	if !errors.Is(err, ErrInviteCodeRaceLost) || !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrInviteCodeRaceLost", err)
	}
	if ic := env.invite(t, "LASTUSE1"); ic.CurrentUses != 1 {
		t.Fatalf("current_uses = %d, want 1", ic.CurrentUses)
	}
}

func TestConsumeInviteCode_BoundedMultiUse(t *testing.T) {
	env := newTestEnv(t)
	env.putInvite("TEAM0003", 3, 0, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if res, err := env.ledger.ConsumeInviteCode(ctx, "TEAM0003", testNow); err != nil || !res.Accepted {
			t.Fatalf("use %d: accepted=%v err=%v", i+1, res.Accepted, err)
		}
		ic := env.invite(t, "TEAM0003")
		if wantUsed := i == 2; ic.IsUsed != wantUsed {
			t.Fatalf("after use %d: is_used = %v, want %v", i+1, ic.IsUsed, wantUsed)
		}
	}

	if res, _ := env.ledger.ConsumeInviteCode(ctx, "TEAM0003", testNow); res.Accepted {
		t.Fatalf("fourth use accepted")
	}
}

var inviteCodePattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)

func TestGenerateInviteCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := GenerateInviteCode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if !inviteCodePattern.MatchString(code) {
			t.Fatalf("code %q does not match [A-Z0-9]{8}", code)
		}
		seen[code] = true
	}
	if len(seen) < 190 {
		t.Fatalf("only %d distinct codes out of 200", len(seen))
	}
}

// collidingInvites rejects the first n inserts as duplicates
type collidingInvites struct {
	InviteCodeStore
	collisions int
	attempts   int
}

func (c *collidingInvites) Create(ctx context.Context, ic *models.InviteCode) (bool, error) {
	c.attempts++
	if c.attempts <= c.collisions {
		return false, nil
	}
	return c.InviteCodeStore.Create(ctx, ic)
}

func TestCreateInviteCode_RetriesCollisions(t *testing.T) {
	env := newTestEnv(t)
	env.seedUsers(t, 1)

	invites := &collidingInvites{InviteCodeStore: env.store.InviteCodes(), collisions: 3}
	ledger := NewMatchingLedger(env.store.Users(), env.store.Swipes(), env.store.Matches(), invites, env.clock.Now)

	ic, err := ledger.CreateInviteCode(context.Background(), 1, 1, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if invites.attempts != 4 {
		t.Fatalf("attempts = %d, want 4", invites.attempts)
	}
	if !inviteCodePattern.MatchString(ic.Code) || ic.ID == 0 {
		t.Fatalf("created code = %+v", ic)
	}
}

func TestCreateInviteCode_GivesUpAfterMaxAttempts(t *testing.T) {
	env := newTestEnv(t)

	invites := &collidingInvites{InviteCodeStore: env.store.InviteCodes(), collisions: maxInviteCodeAttempts}
	ledger := NewMatchingLedger(env.store.Users(), env.store.Swipes(), env.store.Matches(), invites, env.clock.Now)

	_, err := ledger.CreateInviteCode(context.Background(), 1, 1, nil)
	if !errors.Is(err, ErrInviteCodeExists) || !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrInviteCodeExists", err)
	}
	if invites.attempts != maxInviteCodeAttempts {
		t.Fatalf("attempts = %d, want %d", invites.attempts, maxInviteCodeAttempts)
	}
}

func TestCreateInviteCode_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, maxUses := range []int{0, -2, maxInviteCodeUses + 1} {
		if _, err := env.ledger.CreateInviteCode(ctx, 1, maxUses, nil); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("maxUses %d: err = %v, want ErrInvalidArgument", maxUses, err)
		}
	}
	if _, err := env.ledger.CreateInviteCode(ctx, 1, 1, int64Ptr(testNow)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("past expiry: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := env.ledger.CreateInviteCode(ctx, 1, maxInviteCodeUses, nil); err != nil {
		t.Fatalf("largest maxUses: %v", err)
	}
}

func TestEnsureInviteCode_IsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := env.ledger.EnsureInviteCode(ctx, "welcome1", 1); err != nil {
			t.Fatalf("ensure #%d: %v", i+1, err)
		}
	}

	ic := env.invite(t, "WELCOME1")
	if ic.MaxUses != models.UnlimitedUses || ic.ExpiresAt != nil {
		t.Fatalf("seed code = %+v, want unlimited and non-expiring", ic)
	}
	total, _, _ := env.store.InviteCodes().Count(ctx)
	if total != 1 {
		t.Fatalf("invite count = %d, want 1", total)
	}
}
