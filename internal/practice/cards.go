package practice

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/belmiro-kunga/certquest/internal/spacedrep"
	"github.com/belmiro-kunga/certquest/internal/store"
)

// CardService schedules flashcard reviews and keeps their states.
type CardService struct {
	base
	mu    sync.Mutex
	store *store.Store
	sched *spacedrep.Scheduler
}

// NewCardService creates a card service.
func NewCardService(st *store.Store, cfg Config, opts ...Option) *CardService {
	return &CardService{
		base:  newBase(opts),
		store: st,
		sched: spacedrep.NewScheduler(cfg.Review),
	}
}

// Review rates cardID for userID with a raw quality as typed by the user.
// A card that was never reviewed starts from a fresh state.
func (c *CardService) Review(ctx context.Context, userID, cardID, rawQuality string) (spacedrep.ReviewState, error) {
	q, err := spacedrep.ParseQuality(rawQuality)
	if err != nil {
		return spacedrep.ReviewState{}, fmt.Errorf("review %s: %w", cardID, err)
	}
	if cardID == "" {
		return spacedrep.ReviewState{}, errors.New("review: missing card id")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var prev, next spacedrep.ReviewState
	err = c.store.InTx(ctx, func(r store.Repos) error {
		var err error
		prev, err = r.Flashcards().Get(ctx, userID, cardID)
		if errors.Is(err, store.ErrNotFound) {
			prev = c.sched.New(userID, cardID)
		} else if err != nil {
			return err
		}
		next = c.sched.Review(prev, q, c.now())
		return r.Flashcards().Save(ctx, next)
	})
	if err != nil {
		return spacedrep.ReviewState{}, fmt.Errorf("review %s: %w", cardID, err)
	}

	err = c.store.Events().AppendReviewEvent(ctx, store.ReviewEventData{
		UserID:       userID,
		CardID:       cardID,
		Quality:      q,
		FromStatus:   prev.Status,
		ToStatus:     next.Status,
		IntervalDays: next.IntervalDays,
		EaseFactor:   next.EaseFactor,
		NextDueAt:    next.NextDueAt,
	})
	if err != nil {
		c.warn("failed to log review event for card %s: %v", cardID, err)
	}
	return next, nil
}

// Card returns the stored state of one card.
func (c *CardService) Card(ctx context.Context, userID, cardID string) (spacedrep.ReviewState, error) {
	rs, err := c.store.Flashcards().Get(ctx, userID, cardID)
	if err != nil {
		return spacedrep.ReviewState{}, fmt.Errorf("load card: %w", err)
	}
	return rs, nil
}

// Due returns the user's cards due now, most overdue first.
func (c *CardService) Due(ctx context.Context, userID string) ([]spacedrep.ReviewState, error) {
	states, err := c.store.Flashcards().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("due cards: %w", err)
	}
	return slices.Collect(spacedrep.DueCards(states, c.now())), nil
}

// Stats summarizes the user's cards.
func (c *CardService) Stats(ctx context.Context, userID string) (spacedrep.Stats, error) {
	states, err := c.store.Flashcards().ListByUser(ctx, userID)
	if err != nil {
		return spacedrep.Stats{}, fmt.Errorf("card stats: %w", err)
	}
	return spacedrep.ComputeStats(states), nil
}

// History returns the review events of one card, oldest first.
func (c *CardService) History(ctx context.Context, userID, cardID string, opts store.QueryOpts) ([]store.ReviewEventRecord, error) {
	events, err := c.store.Events().ReviewEvents(ctx, userID, cardID, opts)
	if err != nil {
		return nil, fmt.Errorf("card history: %w", err)
	}
	return events, nil
}
