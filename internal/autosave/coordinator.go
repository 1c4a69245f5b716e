// Package autosave pushes a session's content to the draft service on a
// fixed interval, skipping calls when nothing changed since the last
// successful save.
package autosave

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"universe/api/internal/draft"
)

const DefaultInterval = 10 * time.Second

type Outcome string

const (
	OutcomeSkipped  Outcome = "skipped"
	OutcomeCreated  Outcome = "created"
	OutcomeUpdated  Outcome = "updated"
	OutcomeInFlight Outcome = "in_flight"
	OutcomeFailed   Outcome = "failed"
)

const (
	OpSerialize = "serialize"
	OpCreate    = "create"
	OpUpdate    = "update"
)

// SaveError is returned by a failed save. The last saved snapshot is left
// untouched so the next attempt sends the same payload again.
type SaveError struct {
	Op      string
	DraftID string
	Err     error
}

func (e *SaveError) Error() string {
	if e.DraftID == "" {
		return fmt.Sprintf("autosave %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("autosave %s draft %s: %v", e.Op, e.DraftID, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

type Result struct {
	Outcome Outcome `json:"outcome"`
	DraftID string  `json:"draftId,omitempty"`
}

// Source is the content being saved.
type Source interface {
	Serialize() (string, error)
}

// TickerFunc returns a tick channel and a release func for it.
type TickerFunc func(interval time.Duration) (<-chan time.Time, func())

func realTicker(interval time.Duration) (<-chan time.Time, func()) {
	ticker := time.NewTicker(interval)
	return ticker.C, ticker.Stop
}

type Options struct {
	Interval time.Duration
	// DraftID is set when the session already has a remote draft.
	DraftID string
	Logger  zerolog.Logger
	Metrics *Metrics
	Now     func() time.Time
	Ticker  TickerFunc
}

type Coordinator struct {
	source   Source
	drafts   draft.Service
	interval time.Duration
	logger   zerolog.Logger
	metrics  *Metrics
	now      func() time.Time
	ticker   TickerFunc

	mu        sync.Mutex
	draftID   string
	lastSaved string
	hasSaved  bool
	saving    bool
	running   bool
	stop      chan struct{}
	done      chan struct{}

	background sync.WaitGroup
}

func New(source Source, drafts draft.Service, opts Options) *Coordinator {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Ticker == nil {
		opts.Ticker = realTicker
	}
	return &Coordinator{
		source:   source,
		drafts:   drafts,
		interval: opts.Interval,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		now:      opts.Now,
		ticker:   opts.Ticker,
		draftID:  opts.DraftID,
	}
}

func (c *Coordinator) DraftID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draftID
}

// LastSaved returns the snapshot of the last successful save, if any.
func (c *Coordinator) LastSaved() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSaved, c.hasSaved
}

func (c *Coordinator) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// SaveNow saves the current content if it differs from the last saved
// snapshot. Once the remote call starts it runs to completion even if ctx
// is cancelled. A save requested while another is in flight returns
// OutcomeInFlight without calling the draft service.
func (c *Coordinator) SaveNow(ctx context.Context) (Result, error) {
	snapshot, err := c.source.Serialize()
	if err != nil {
		c.metrics.countOutcome(OutcomeFailed)
		return Result{Outcome: OutcomeFailed, DraftID: c.DraftID()}, &SaveError{Op: OpSerialize, DraftID: c.DraftID(), Err: err}
	}

	c.mu.Lock()
	id := c.draftID
	if c.saving {
		c.mu.Unlock()
		c.metrics.countOutcome(OutcomeInFlight)
		return Result{Outcome: OutcomeInFlight, DraftID: id}, nil
	}
	if c.hasSaved && snapshot == c.lastSaved {
		c.mu.Unlock()
		c.metrics.countOutcome(OutcomeSkipped)
		return Result{Outcome: OutcomeSkipped, DraftID: id}, nil
	}
	c.saving = true
	c.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	result, err := c.push(ctx, id, snapshot)

	c.mu.Lock()
	c.saving = false
	if err == nil {
		c.draftID = result.DraftID
		c.lastSaved = snapshot
		c.hasSaved = true
	}
	c.mu.Unlock()

	c.metrics.countOutcome(result.Outcome)
	return result, err
}

func (c *Coordinator) push(ctx context.Context, id, snapshot string) (Result, error) {
	payload := json.RawMessage(snapshot)
	started := time.Now()

	if id == "" {
		record, err := c.drafts.CreateDraft(ctx, payload)
		c.metrics.observeCall(OpCreate, time.Since(started))
		if err != nil {
			return Result{Outcome: OutcomeFailed}, &SaveError{Op: OpCreate, Err: err}
		}
		if record.ID == "" {
			return Result{Outcome: OutcomeFailed}, &SaveError{Op: OpCreate, Err: fmt.Errorf("draft service returned no id")}
		}
		return Result{Outcome: OutcomeCreated, DraftID: record.ID}, nil
	}

	now := c.now().UTC()
	err := c.drafts.UpdateDraft(ctx, id, payload, &now)
	c.metrics.observeCall(OpUpdate, time.Since(started))
	if err != nil {
		return Result{Outcome: OutcomeFailed, DraftID: id}, &SaveError{Op: OpUpdate, DraftID: id, Err: err}
	}
	return Result{Outcome: OutcomeUpdated, DraftID: id}, nil
}

// Start begins periodic saves. It is a no-op while already running. The
// loop ends on Stop or when ctx is done.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	stop := make(chan struct{})
	done := make(chan struct{})
	c.stop, c.done = stop, done
	c.mu.Unlock()

	ticks, release := c.ticker(c.interval)
	go c.loop(ctx, ticks, release, stop, done)
}

// Stop ends periodic saves and releases the ticker. Saves already in flight
// keep running; use Wait to block on them.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	stop, done := c.stop, c.done
	c.mu.Unlock()

	close(stop)
	<-done
}

// Flush starts one save in the background, tracked by Wait.
func (c *Coordinator) Flush(ctx context.Context) {
	c.background.Add(1)
	go func() {
		defer c.background.Done()
		c.save(ctx, "flush")
	}()
}

// Wait blocks until background saves started by ticks or Flush finish.
func (c *Coordinator) Wait() {
	c.background.Wait()
}

func (c *Coordinator) loop(ctx context.Context, ticks <-chan time.Time, release func(), stop, done chan struct{}) {
	defer close(done)
	defer release()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			c.mu.Lock()
			if c.done == done {
				c.running = false
			}
			c.mu.Unlock()
			return
		case <-ticks:
			c.background.Add(1)
			go func() {
				defer c.background.Done()
				c.save(ctx, "tick")
			}()
		}
	}
}

func (c *Coordinator) save(ctx context.Context, trigger string) {
	result, err := c.SaveNow(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Str("trigger", trigger).Str("draft_id", result.DraftID).Msg("autosave failed, retrying next tick")
		return
	}
	switch result.Outcome {
	case OutcomeCreated, OutcomeUpdated:
		c.logger.Info().Str("trigger", trigger).Str("outcome", string(result.Outcome)).Str("draft_id", result.DraftID).Msg("draft saved")
	default:
		c.logger.Debug().Str("trigger", trigger).Str("outcome", string(result.Outcome)).Msg("autosave")
	}
}
