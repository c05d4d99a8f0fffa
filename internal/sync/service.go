// Package sync implements the offline-first mutation queue. Every mutating
// call either writes through to the remote gateway immediately or defers the
// operation into a durable FIFO queue that is replayed once connectivity
// returns. Callers see success either way; the Outcome preserves the
// distinction for tests and logging.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/d-lef/flashcard-webapp/internal/connectivity"
	"github.com/d-lef/flashcard-webapp/internal/domain"
	"github.com/d-lef/flashcard-webapp/internal/gateway"
)

// Outcome tells whether a write reached the remote store or was queued.
type Outcome int

const (
	// OutcomeCommitted means the remote write was confirmed.
	OutcomeCommitted Outcome = iota
	// OutcomeDeferred means the operation sits in the queue awaiting replay.
	OutcomeDeferred
)

func (o Outcome) String() string {
	if o == OutcomeCommitted {
		return "committed"
	}
	return "deferred"
}

// Store is the durable state the service needs from local storage.
type Store interface {
	AppendOperation(op domain.PendingOperation) error
	LoadQueue() ([]domain.PendingOperation, error)
	ReplaceQueue(ops []domain.PendingOperation) error
	SaveDeck(deck domain.Deck) error
	DeleteDeck(deckID string) error
	IncrementDayStat(day string, correct bool) error
	SetDayCompleted(day string, completed bool) error
}

// Service is the write path between the app and the remote store.
type Service struct {
	gw     gateway.Gateway
	store  Store
	conn   connectivity.Observer
	logger *slog.Logger
	settle time.Duration
	now    func() time.Time

	mu       stdsync.Mutex
	queue    []domain.PendingOperation
	flushing bool
}

// Option tweaks service construction.
type Option func(*Service)

// WithSettleDelay overrides the pause between going online and flushing.
func WithSettleDelay(d time.Duration) Option {
	return func(s *Service) { s.settle = d }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New wires the service and subscribes it to connectivity transitions.
// Call Restore before first use to reload the persisted queue.
func New(gw gateway.Gateway, store Store, conn connectivity.Observer, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		gw:     gw,
		store:  store,
		conn:   conn,
		logger: logger,
		settle: 250 * time.Millisecond,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	conn.OnOnline(func() {
		go s.flushAfterSettle()
	})
	conn.OnOffline(func() {
		s.logger.Info("connectivity lost, deferring writes")
	})
	return s
}

// flushAfterSettle waits out a possible connectivity flap, then flushes once.
func (s *Service) flushAfterSettle() {
	time.Sleep(s.settle)
	if !s.conn.Online() {
		return
	}
	if err := s.Flush(context.Background()); err != nil {
		s.logger.Error("flush after reconnect failed", "error", err)
	}
}

// Restore reloads the persisted queue. Call once at startup.
func (s *Service) Restore() error {
	ops, err := s.store.LoadQueue()
	if err != nil {
		return fmt.Errorf("restore pending queue: %w", err)
	}
	s.mu.Lock()
	s.queue = ops
	s.mu.Unlock()
	if len(ops) > 0 {
		s.logger.Info("restored pending operations", "count", len(ops))
	}
	return nil
}

// Pending returns a snapshot of the queued operations, oldest first.
func (s *Service) Pending() []domain.PendingOperation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.PendingOperation, len(s.queue))
	copy(out, s.queue)
	return out
}

// SaveDeck persists the deck locally and pushes the deck plus its dirty cards
// remotely. Dirty flags on the caller's deck are cleared only for cards whose
// remote write was confirmed.
func (s *Service) SaveDeck(ctx context.Context, deck *domain.Deck, isNew bool) (Outcome, error) {
	if deck == nil || deck.ID == "" {
		return 0, errors.New("sync: deck without id")
	}

	if err := s.store.SaveDeck(*deck); err != nil {
		s.logger.Warn("local deck snapshot failed", "deck", deck.ID, "error", err)
	}

	if !s.conn.Online() {
		return s.enqueue(domain.OpSaveDeck, domain.SaveDeckPayload{Deck: *deck, IsNew: isNew})
	}
	s.drainBeforeWrite(ctx)

	if err := s.executeSaveDeck(ctx, deck, isNew); err != nil {
		s.logger.Warn("deck write failed, deferring", "deck", deck.ID, "error", err)
		return s.enqueue(domain.OpSaveDeck, domain.SaveDeckPayload{Deck: *deck, IsNew: isNew})
	}

	// Re-snapshot with the flags cleared by the confirmed write.
	if err := s.store.SaveDeck(*deck); err != nil {
		s.logger.Warn("local deck snapshot failed", "deck", deck.ID, "error", err)
	}
	return OutcomeCommitted, nil
}

// DeleteDeck removes the deck locally right away; the remote delete follows
// the usual write-through rules.
func (s *Service) DeleteDeck(ctx context.Context, deckID string) (Outcome, error) {
	if deckID == "" {
		return 0, errors.New("sync: delete deck without id")
	}
	if err := s.store.DeleteDeck(deckID); err != nil {
		s.logger.Warn("local deck delete failed", "deck", deckID, "error", err)
	}

	if !s.conn.Online() {
		return s.enqueue(domain.OpDeleteDeck, domain.DeleteDeckPayload{DeckID: deckID})
	}
	s.drainBeforeWrite(ctx)

	if err := s.gw.DeleteDeck(ctx, deckID); err != nil {
		s.logger.Warn("deck delete failed, deferring", "deck", deckID, "error", err)
		return s.enqueue(domain.OpDeleteDeck, domain.DeleteDeckPayload{DeckID: deckID})
	}
	return OutcomeCommitted, nil
}

// DeleteCard pushes a card delete; the caller already removed it from the
// in-memory deck.
func (s *Service) DeleteCard(ctx context.Context, cardID string) (Outcome, error) {
	if cardID == "" {
		return 0, errors.New("sync: delete card without id")
	}

	if !s.conn.Online() {
		return s.enqueue(domain.OpDeleteCard, domain.DeleteCardPayload{CardID: cardID})
	}
	s.drainBeforeWrite(ctx)

	if err := s.gw.DeleteCard(ctx, cardID); err != nil {
		s.logger.Warn("card delete failed, deferring", "card", cardID, "error", err)
		return s.enqueue(domain.OpDeleteCard, domain.DeleteCardPayload{CardID: cardID})
	}
	return OutcomeCommitted, nil
}

// UpdateReviewStats records one review outcome (correct != nil) and/or the
// end-of-session completion flag for the day. Local counters are mirrored
// immediately so the calendar works offline.
func (s *Service) UpdateReviewStats(ctx context.Context, day string, correct, allDueCompleted *bool, firstReviewToday bool) (Outcome, error) {
	if day == "" {
		return 0, errors.New("sync: stats update without day")
	}

	if correct != nil {
		if err := s.store.IncrementDayStat(day, *correct); err != nil {
			s.logger.Warn("local stat increment failed", "day", day, "error", err)
		}
	}
	if allDueCompleted != nil {
		if err := s.store.SetDayCompleted(day, *allDueCompleted); err != nil {
			s.logger.Warn("local completion write failed", "day", day, "error", err)
		}
	}

	payload := domain.UpdateStatsPayload{
		Day:              day,
		Correct:          correct,
		AllDueCompleted:  allDueCompleted,
		FirstReviewToday: firstReviewToday,
	}

	if !s.conn.Online() {
		return s.enqueue(domain.OpUpdateReviewStats, payload)
	}
	s.drainBeforeWrite(ctx)

	if err := s.gw.PushDayStat(ctx, deltaFromPayload(payload)); err != nil {
		s.logger.Warn("stat push failed, deferring", "day", day, "error", err)
		return s.enqueue(domain.OpUpdateReviewStats, payload)
	}
	return OutcomeCommitted, nil
}

// Flush replays the queue in enqueue order. A failing operation is re-queued
// at the tail and processing continues with the next. Re-entry is a no-op so
// an in-flight flush never double-sends.
func (s *Service) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.flushing || len(s.queue) == 0 || !s.conn.Online() {
		s.mu.Unlock()
		return nil
	}
	s.flushing = true
	batch := s.queue
	s.queue = nil
	s.mu.Unlock()

	s.logger.Info("processing pending queue", "count", len(batch))

	var requeued []domain.PendingOperation
	for _, op := range batch {
		if err := s.executeOperation(ctx, op); err != nil {
			s.logger.Warn("queued operation failed, re-queueing", "type", op.Type, "error", err)
			requeued = append(requeued, op)
		}
	}

	s.mu.Lock()
	// Operations enqueued during the flush sit ahead of the retries.
	s.queue = append(s.queue, requeued...)
	remaining := make([]domain.PendingOperation, len(s.queue))
	copy(remaining, s.queue)
	s.flushing = false
	s.mu.Unlock()

	if err := s.store.ReplaceQueue(remaining); err != nil {
		s.logger.Warn("persisting queue after flush failed", "error", err)
	}
	return nil
}

// drainBeforeWrite opportunistically replays older queued operations before a
// fresh online write so they are not overtaken forever.
func (s *Service) drainBeforeWrite(ctx context.Context) {
	s.mu.Lock()
	pending := len(s.queue) > 0 && !s.flushing
	s.mu.Unlock()
	if pending {
		if err := s.Flush(ctx); err != nil {
			s.logger.Warn("pre-write flush failed", "error", err)
		}
	}
}

// enqueue appends the operation to the queue and persists it. From the
// caller's perspective this is still a success.
func (s *Service) enqueue(t domain.OpType, payload any) (Outcome, error) {
	op, err := domain.NewOperation(t, payload, s.now())
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.queue = append(s.queue, op)
	s.mu.Unlock()

	if err := s.store.AppendOperation(op); err != nil {
		// Queue survives in memory only; durability is best effort.
		s.logger.Warn("persisting queued operation failed", "type", t, "error", err)
	}
	return OutcomeDeferred, nil
}

// executeOperation replays one queued entry against the gateway.
func (s *Service) executeOperation(ctx context.Context, op domain.PendingOperation) error {
	switch op.Type {
	case domain.OpSaveDeck:
		var p domain.SaveDeckPayload
		if err := json.Unmarshal(op.Payload, &p); err != nil {
			return fmt.Errorf("decode saveDeck payload: %w", err)
		}
		deck := p.Deck
		return s.executeSaveDeck(ctx, &deck, p.IsNew)
	case domain.OpDeleteDeck:
		var p domain.DeleteDeckPayload
		if err := json.Unmarshal(op.Payload, &p); err != nil {
			return fmt.Errorf("decode deleteDeck payload: %w", err)
		}
		return s.gw.DeleteDeck(ctx, p.DeckID)
	case domain.OpDeleteCard:
		var p domain.DeleteCardPayload
		if err := json.Unmarshal(op.Payload, &p); err != nil {
			return fmt.Errorf("decode deleteCard payload: %w", err)
		}
		return s.gw.DeleteCard(ctx, p.CardID)
	case domain.OpUpdateReviewStats:
		var p domain.UpdateStatsPayload
		if err := json.Unmarshal(op.Payload, &p); err != nil {
			return fmt.Errorf("decode updateReviewStats payload: %w", err)
		}
		return s.gw.PushDayStat(ctx, deltaFromPayload(p))
	}
	return fmt.Errorf("unknown operation type %q", op.Type)
}

// executeSaveDeck writes the deck row, then pushes only dirty cards. A card
// that fails keeps its flags and is retried on the next deck save; the deck
// operation itself still counts as confirmed, matching the remote contract.
func (s *Service) executeSaveDeck(ctx context.Context, deck *domain.Deck, isNew bool) error {
	var err error
	if isNew {
		err = s.gw.CreateDeck(ctx, *deck)
	} else {
		err = s.gw.UpdateDeck(ctx, *deck)
	}
	if err != nil {
		return err
	}

	now := s.now()
	for i := range deck.Cards {
		c := &deck.Cards[i]
		if !c.IsNew && !c.IsModified {
			continue
		}
		if err := s.gw.SaveCard(ctx, *c, deck.ID); err != nil {
			s.logger.Warn("card write failed, flags kept", "card", c.ID, "error", err)
			continue
		}
		if c.IsNew {
			c.IsNew = false
			if c.CreatedAt.IsZero() {
				c.CreatedAt = now
			}
		}
		c.IsModified = false
		c.UpdatedAt = now
	}
	return nil
}

func deltaFromPayload(p domain.UpdateStatsPayload) gateway.StatDelta {
	d := gateway.StatDelta{Day: p.Day, AllDueCompleted: p.AllDueCompleted}
	if p.Correct != nil {
		d.Reviews = 1
		if *p.Correct {
			d.Correct = 1
		} else {
			d.Lapses = 1
		}
	}
	return d
}
