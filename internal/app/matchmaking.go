package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"math-maxxer-service/internal/domain"
	"math-maxxer-service/internal/metrics"
)

// MatchmakingConfig controls how far apart two ratings may be for a pairing.
// The window grows with the caller's time in queue.
type MatchmakingConfig struct {
	InitialWindow int
	WindowStep    int
	WidenEvery    time.Duration
	MaxWindow     int
	MaxWait       time.Duration
}

// DefaultMatchmakingConfig is used for any zero field.
var DefaultMatchmakingConfig = MatchmakingConfig{
	InitialWindow: 100,
	WindowStep:    50,
	WidenEvery:    10 * time.Second,
	MaxWindow:     500,
	MaxWait:       5 * time.Minute,
}

func (c MatchmakingConfig) withDefaults() MatchmakingConfig {
	if c.InitialWindow <= 0 {
		c.InitialWindow = DefaultMatchmakingConfig.InitialWindow
	}
	if c.WindowStep < 0 {
		c.WindowStep = 0
	}
	if c.WidenEvery <= 0 {
		c.WidenEvery = DefaultMatchmakingConfig.WidenEvery
	}
	if c.MaxWindow < c.InitialWindow {
		c.MaxWindow = c.InitialWindow
	}
	if c.MaxWait <= 0 {
		c.MaxWait = DefaultMatchmakingConfig.MaxWait
	}
	return c
}

// Window returns the rating window for an entry that has waited for wait.
func (c MatchmakingConfig) Window(wait time.Duration) int {
	if wait < 0 {
		wait = 0
	}
	steps := int(wait / c.WidenEvery)
	window := c.InitialWindow + c.WindowStep*steps
	if window > c.MaxWindow || window < c.InitialWindow {
		return c.MaxWindow
	}
	return window
}

// Matchmaker owns the shared queue and pairs players within a
// (difficulty, time control) bucket.
type Matchmaker struct {
	store     Store
	publisher Publisher
	cfg       MatchmakingConfig
	now       func() time.Time
}

func NewMatchmaker(store Store, publisher Publisher, cfg MatchmakingConfig) *Matchmaker {
	return NewMatchmakerWithClock(store, publisher, cfg, time.Now)
}

// NewMatchmakerWithClock is used by tests to control queue ages.
func NewMatchmakerWithClock(store Store, publisher Publisher, cfg MatchmakingConfig, now func() time.Time) *Matchmaker {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Matchmaker{store: store, publisher: publisher, cfg: cfg.withDefaults(), now: now}
}

// JoinQueue enqueues the caller with a snapshot of their competitive rating and
// tries to pair them straight away. It returns the match id when paired.
func (m *Matchmaker) JoinQueue(ctx context.Context, callerID string, difficulty domain.Difficulty, timeControl string) (string, error) {
	if callerID == "" {
		return "", domain.ErrUnauthorized
	}
	if !difficulty.Valid() {
		return "", fmt.Errorf("%w: unknown difficulty %q", domain.ErrValidation, difficulty)
	}
	if !domain.ValidTimeControl(timeControl) {
		return "", fmt.Errorf("%w: unknown time control %q", domain.ErrValidation, timeControl)
	}

	profile, err := m.store.GetProfile(ctx, callerID)
	if err != nil {
		return "", err
	}
	entry := domain.QueueEntry{
		ID:          uuid.NewString(),
		UserID:      callerID,
		Difficulty:  difficulty,
		TimeControl: timeControl,
		IQRating:    profile.IQRating,
		CreatedAt:   m.now(),
	}
	if err := m.store.Enqueue(ctx, entry); err != nil {
		return "", err
	}
	m.notify(ctx, domain.EventQueueChanged, "", callerID)

	return m.FindMatch(ctx, callerID, difficulty, timeControl, profile.IQRating)
}

// FindMatch tries to pair userID's queue entry with the oldest compatible entry in
// the same bucket. It returns "" when nobody is in range or when the caller is no
// longer queued. Pairing is serialized per bucket so an entry is claimed at most once.
// The window is centred on the rating stored when the entry was queued;
// claimedRating is accepted for the RPC signature and otherwise ignored.
func (m *Matchmaker) FindMatch(ctx context.Context, userID string, difficulty domain.Difficulty, timeControl string, claimedRating int) (string, error) {
	if userID == "" {
		return "", domain.ErrUnauthorized
	}

	var match domain.Match
	err := m.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.LockQueueBucket(ctx, difficulty, timeControl); err != nil {
			return err
		}
		entry, err := tx.GetQueueEntry(ctx, userID)
		if err != nil {
			return err
		}
		if entry.Difficulty != difficulty || entry.TimeControl != timeControl {
			return domain.ErrQueueEntryMissing
		}

		now := m.now()
		window := m.cfg.Window(now.Sub(entry.CreatedAt))
		candidates, err := tx.QueueCandidates(ctx, difficulty, timeControl, userID, entry.IQRating-window, entry.IQRating+window)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return nil
		}
		opponent := candidates[0]

		if _, err := tx.DeleteQueueEntry(ctx, opponent.UserID); err != nil {
			return err
		}
		if _, err := tx.DeleteQueueEntry(ctx, userID); err != nil {
			return err
		}

		// whoever waited longer plays first
		player1, player2 := opponent.UserID, userID
		if entry.CreatedAt.Before(opponent.CreatedAt) {
			player1, player2 = userID, opponent.UserID
		}
		match = domain.Match{
			ID:          uuid.NewString(),
			Player1ID:   player1,
			Player2ID:   player2,
			Difficulty:  difficulty,
			TimeControl: timeControl,
			Status:      domain.MatchInProgress,
			CreatedAt:   now,
		}
		return tx.CreateMatch(ctx, match)
	})
	if errors.Is(err, domain.ErrQueueEntryMissing) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if match.ID == "" {
		return "", nil
	}

	metrics.MatchesPaired.Inc()
	m.notify(ctx, domain.EventMatchFound, match.ID, match.Player1ID, match.Player2ID)
	m.notify(ctx, domain.EventQueueChanged, "", match.Player1ID, match.Player2ID)
	return match.ID, nil
}

// LeaveQueue removes the caller's entry. Leaving when not queued is a no-op.
func (m *Matchmaker) LeaveQueue(ctx context.Context, callerID string) error {
	if callerID == "" {
		return domain.ErrUnauthorized
	}
	deleted, err := m.store.DeleteQueueEntry(ctx, callerID)
	if err != nil {
		return err
	}
	if deleted {
		m.notify(ctx, domain.EventQueueChanged, "", callerID)
	}
	return nil
}

// QueueStatus reports whether the caller is queued and how many entries are waiting.
func (m *Matchmaker) QueueStatus(ctx context.Context, callerID string) (domain.QueueStatus, error) {
	if callerID == "" {
		return domain.QueueStatus{}, domain.ErrUnauthorized
	}
	var status domain.QueueStatus
	_, err := m.store.GetQueueEntry(ctx, callerID)
	switch {
	case err == nil:
		status.InQueue = true
	case !errors.Is(err, domain.ErrQueueEntryMissing):
		return domain.QueueStatus{}, err
	}
	count, err := m.store.CountQueue(ctx)
	if err != nil {
		return domain.QueueStatus{}, err
	}
	status.QueueCount = count
	return status, nil
}

// Sweep retries pairing for every waiting entry, oldest first, so windows keep
// widening without client polling. Entries older than MaxWait are dropped.
func (m *Matchmaker) Sweep(ctx context.Context) (paired, expired int, err error) {
	entries, err := m.store.ListQueue(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list queue: %w", err)
	}

	now := m.now()
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return paired, expired, err
		}
		if now.Sub(entry.CreatedAt) > m.cfg.MaxWait {
			deleted, err := m.store.DeleteQueueEntry(ctx, entry.UserID)
			if err != nil {
				return paired, expired, err
			}
			if deleted {
				expired++
				metrics.QueueExpired.Inc()
				m.notify(ctx, domain.EventQueueChanged, "", entry.UserID)
			}
			continue
		}
		matchID, err := m.FindMatch(ctx, entry.UserID, entry.Difficulty, entry.TimeControl, entry.IQRating)
		if err != nil {
			return paired, expired, err
		}
		if matchID != "" {
			paired++
		}
	}
	return paired, expired, nil
}

func (m *Matchmaker) notify(ctx context.Context, eventType, matchID string, userIDs ...string) {
	at := m.now()
	for _, userID := range userIDs {
		if err := m.publisher.Publish(ctx, domain.Event{Type: eventType, UserID: userID, MatchID: matchID, At: at}); err != nil {
			log.Printf("publish %s to %s: %v", eventType, userID, err)
		}
	}
}
