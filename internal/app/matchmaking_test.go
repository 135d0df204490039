package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"math-maxxer-service/internal/app"
	"math-maxxer-service/internal/domain"
	"math-maxxer-service/internal/infra/memory"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestWindowSchedule(t *testing.T) {
	cfg := app.DefaultMatchmakingConfig
	cases := []struct {
		wait time.Duration
		want int
	}{
		{0, 100},
		{9 * time.Second, 100},
		{10 * time.Second, 150},
		{35 * time.Second, 250},
		{time.Hour, 500},
		{-time.Second, 100},
	}
	for _, tc := range cases {
		if got := cfg.Window(tc.wait); got != tc.want {
			t.Fatalf("Window(%s) = %d, want %d", tc.wait, got, tc.want)
		}
	}
}

func TestJoinQueuePairsWithinWindow(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedProfile(t, store, domain.Profile{ID: "a", IQRating: 1000})
	seedProfile(t, store, domain.Profile{ID: "b", IQRating: 1080})
	pub := &recordingPublisher{}
	clock := &testClock{now: testNow}
	mm := app.NewMatchmakerWithClock(store, pub, app.MatchmakingConfig{}, clock.Now)

	matchID, err := mm.JoinQueue(ctx, "a", domain.Advanced, "5+5")
	if err != nil || matchID != "" {
		t.Fatalf("first player should wait, got %q %v", matchID, err)
	}
	clock.Advance(time.Second)
	matchID, err = mm.JoinQueue(ctx, "b", domain.Advanced, "5+5")
	if err != nil || matchID == "" {
		t.Fatalf("expected pairing, got %q %v", matchID, err)
	}

	match, err := store.GetMatch(ctx, matchID)
	if err != nil {
		t.Fatalf("get match: %v", err)
	}
	if match.Player1ID != "a" || match.Player2ID != "b" || match.Status != domain.MatchInProgress || match.Difficulty != domain.Advanced {
		t.Fatalf("unexpected match: %+v", match)
	}
	if n, _ := store.CountQueue(ctx); n != 0 {
		t.Fatalf("expected empty queue, got %d", n)
	}
	if pub.count(domain.EventMatchFound, "a") != 1 || pub.count(domain.EventMatchFound, "b") != 1 {
		t.Fatalf("expected match.found for both players: %+v", pub.events)
	}
}

func TestJoinQueueRespectsBucketsAndWindow(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedProfile(t, store, domain.Profile{ID: "a", IQRating: 1000})
	seedProfile(t, store, domain.Profile{ID: "far", IQRating: 1300})
	seedProfile(t, store, domain.Profile{ID: "other-tc", IQRating: 1000})
	mm := app.NewMatchmakerWithClock(store, nil, app.MatchmakingConfig{}, fixedClock)

	for _, join := range []struct {
		user string
		tc   string
	}{{"a", "5+5"}, {"far", "5+5"}, {"other-tc", "10+10"}} {
		matchID, err := mm.JoinQueue(ctx, join.user, domain.Beginner, join.tc)
		if err != nil || matchID != "" {
			t.Fatalf("%s should not pair, got %q %v", join.user, matchID, err)
		}
	}
	if n, _ := store.CountQueue(ctx); n != 3 {
		t.Fatalf("expected 3 waiting, got %d", n)
	}
}

func TestFindMatchWindowWidensWithWait(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedProfile(t, store, domain.Profile{ID: "a", IQRating: 1000})
	seedProfile(t, store, domain.Profile{ID: "b", IQRating: 1180})
	clock := &testClock{now: testNow}
	mm := app.NewMatchmakerWithClock(store, nil, app.MatchmakingConfig{}, clock.Now)

	if id, _ := mm.JoinQueue(ctx, "a", domain.Expert, "3+2"); id != "" {
		t.Fatalf("unexpected early pairing")
	}
	if id, _ := mm.JoinQueue(ctx, "b", domain.Expert, "3+2"); id != "" {
		t.Fatalf("180 apart should not pair at the initial window")
	}

	clock.Advance(20 * time.Second)
	matchID, err := mm.FindMatch(ctx, "a", domain.Expert, "3+2", 1000)
	if err != nil || matchID == "" {
		t.Fatalf("expected pairing after window widened to 200, got %q %v", matchID, err)
	}
}

func TestFindMatchWithoutEntryReturnsNull(t *testing.T) {
	mm := app.NewMatchmaker(memory.NewStore(), nil, app.MatchmakingConfig{})
	matchID, err := mm.FindMatch(context.Background(), "ghost", domain.Beginner, "3+2", 1000)
	if err != nil || matchID != "" {
		t.Fatalf("expected null match without error, got %q %v", matchID, err)
	}
}

func TestJoinThenLeaveRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedProfile(t, store, domain.Profile{ID: "a", IQRating: 1000})
	mm := app.NewMatchmaker(store, nil, app.MatchmakingConfig{})

	if _, err := mm.JoinQueue(ctx, "a", domain.Master, "30+30"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := mm.JoinQueue(ctx, "a", domain.Master, "30+30"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected duplicate join rejected, got %v", err)
	}
	status, _ := mm.QueueStatus(ctx, "a")
	if !status.InQueue || status.QueueCount != 1 {
		t.Fatalf("unexpected status: %+v", status)
	}

	if err := mm.LeaveQueue(ctx, "a"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if err := mm.LeaveQueue(ctx, "a"); err != nil {
		t.Fatalf("second leave should be a no-op: %v", err)
	}
	status, _ = mm.QueueStatus(ctx, "a")
	if status.InQueue || status.QueueCount != 0 {
		t.Fatalf("expected empty queue after leave: %+v", status)
	}
	if id, _ := mm.FindMatch(ctx, "a", domain.Master, "30+30", 1000); id != "" {
		t.Fatalf("no match expected after leaving")
	}
}

func TestConcurrentJoinsNeverDoublePair(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	const players = 20
	for i := 0; i < players; i++ {
		seedProfile(t, store, domain.Profile{ID: fmt.Sprintf("p%02d", i), IQRating: 1000})
	}
	mm := app.NewMatchmaker(store, nil, app.MatchmakingConfig{})

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		matchIDs []string
	)
	for i := 0; i < players; i++ {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			matchID, err := mm.JoinQueue(ctx, userID, domain.Beginner, "5+5")
			if err != nil {
				t.Errorf("join %s: %v", userID, err)
				return
			}
			if matchID != "" {
				mu.Lock()
				matchIDs = append(matchIDs, matchID)
				mu.Unlock()
			}
		}(fmt.Sprintf("p%02d", i))
	}
	wg.Wait()

	if n, _ := store.CountQueue(ctx); n != 0 {
		t.Fatalf("expected everyone paired, %d left waiting", n)
	}
	if len(matchIDs) != players/2 {
		t.Fatalf("expected %d matches, got %d", players/2, len(matchIDs))
	}
	seen := make(map[string]string)
	for _, id := range matchIDs {
		match, err := store.GetMatch(ctx, id)
		if err != nil {
			t.Fatalf("get match %s: %v", id, err)
		}
		for _, player := range []string{match.Player1ID, match.Player2ID} {
			if other, dup := seen[player]; dup {
				t.Fatalf("%s paired twice (%s and %s)", player, other, id)
			}
			seen[player] = id
		}
	}
	if len(seen) != players {
		t.Fatalf("expected %d distinct players, got %d", players, len(seen))
	}
}

func TestSweepPairsAndExpires(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedProfile(t, store, domain.Profile{ID: "old", IQRating: 1000})
	seedProfile(t, store, domain.Profile{ID: "a", IQRating: 1500})
	seedProfile(t, store, domain.Profile{ID: "b", IQRating: 1700})
	pub := &recordingPublisher{}
	clock := &testClock{now: testNow}
	mm := app.NewMatchmakerWithClock(store, pub, app.MatchmakingConfig{MaxWait: time.Minute}, clock.Now)

	if _, err := mm.JoinQueue(ctx, "old", domain.Beginner, "3+2"); err != nil {
		t.Fatalf("join old: %v", err)
	}
	clock.Advance(30 * time.Second)
	if _, err := mm.JoinQueue(ctx, "a", domain.Master, "3+2"); err != nil {
		t.Fatalf("join a: %v", err)
	}
	if _, err := mm.JoinQueue(ctx, "b", domain.Master, "3+2"); err != nil {
		t.Fatalf("join b: %v", err)
	}

	clock.Advance(31 * time.Second)
	paired, expired, err := mm.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if paired != 1 || expired != 1 {
		t.Fatalf("expected 1 paired and 1 expired, got %d/%d", paired, expired)
	}
	if n, _ := store.CountQueue(ctx); n != 0 {
		t.Fatalf("expected empty queue after sweep, got %d", n)
	}
	if pub.count(domain.EventMatchFound, "a") != 1 {
		t.Fatalf("expected match.found after sweep")
	}
}

func TestFindMatchUsesQueuedRatingNotClaimedRating(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedProfile(t, store, domain.Profile{ID: "novice", IQRating: 1000})
	seedProfile(t, store, domain.Profile{ID: "shark", IQRating: 3000})
	mm := app.NewMatchmakerWithClock(store, nil, app.MatchmakingConfig{}, fixedClock)

	if id, err := mm.JoinQueue(ctx, "novice", domain.Beginner, "3+2"); err != nil || id != "" {
		t.Fatalf("novice should wait, got %q %v", id, err)
	}
	if id, err := mm.JoinQueue(ctx, "shark", domain.Beginner, "3+2"); err != nil || id != "" {
		t.Fatalf("2000 apart should not pair, got %q %v", id, err)
	}
	if id, err := mm.FindMatch(ctx, "shark", domain.Beginner, "3+2", 1000); err != nil || id != "" {
		t.Fatalf("a claimed rating must not move the window, got %q %v", id, err)
	}
	if n, _ := store.CountQueue(ctx); n != 2 {
		t.Fatalf("expected both players still waiting, got %d", n)
	}
}
