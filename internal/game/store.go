// Package game owns the authoritative in-memory game state. Every read sees
// an immutable snapshot; every mutation runs on a single goroutine and
// publishes the snapshots it produces, in order, to all subscribers.
package game

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"tycoon-engine/internal/catalog"
	"tycoon-engine/internal/clock"
	"tycoon-engine/internal/economy"
	"tycoon-engine/internal/model"
	"tycoon-engine/pkg/uid"
)

// Saver receives persistence requests from the store. Both calls must return
// immediately; they are invoked from the store goroutine.
type Saver interface {
	MarkDirty()
	ForceCloudSave()
}

// Options configures a Store. Zero values fall back to production defaults.
type Options struct {
	Catalog      *catalog.Catalog
	Clock        clock.Clock
	Rand         economy.Rand
	NewID        func() string
	HoursPerTick float64
	IntroBonus   float64
	Initial      *model.GameState
}

// Store is the single writer of one player's GameState.
type Store struct {
	cat          *catalog.Catalog
	clock        clock.Clock
	rnd          economy.Rand
	newID        func() string
	hoursPerTick float64
	introBonus   float64

	current   atomic.Pointer[model.GameState]
	snapshots hub[*model.GameState]
	dayEnded  hub[model.DailyStats]

	saverMu sync.RWMutex
	saver   Saver

	ops       chan op
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type op struct {
	ctx    context.Context
	fn     func(*Tx) error
	result chan error
}

// DefaultIntroBonus is the balance granted when the intro completes.
const DefaultIntroBonus = 10000

// New creates a store and starts its goroutine. Call Close to stop it.
func New(opts Options) *Store {
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.NewID == nil {
		opts.NewID = uid.New
	}
	if opts.HoursPerTick <= 0 {
		opts.HoursPerTick = economy.HoursPerTick
	}
	if opts.IntroBonus <= 0 {
		opts.IntroBonus = DefaultIntroBonus
	}

	s := &Store{
		cat:          opts.Catalog,
		clock:        opts.Clock,
		rnd:          opts.Rand,
		newID:        opts.NewID,
		hoursPerTick: opts.HoursPerTick,
		introBonus:   opts.IntroBonus,
		ops:          make(chan op),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
	}

	initial := opts.Initial
	if initial == nil {
		initial = DefaultState(s.cat, s.clock.Now())
	}
	s.current.Store(initial)

	go s.run()
	return s
}

// Catalog returns the economy tables the store prices against.
func (s *Store) Catalog() *catalog.Catalog {
	return s.cat
}

// Now returns the store clock's current time.
func (s *Store) Now() time.Time {
	return s.clock.Now()
}

// SetSaver attaches the persistence hooks. A nil saver detaches them.
func (s *Store) SetSaver(saver Saver) {
	s.saverMu.Lock()
	s.saver = saver
	s.saverMu.Unlock()
}

func (s *Store) getSaver() Saver {
	s.saverMu.RLock()
	defer s.saverMu.RUnlock()
	return s.saver
}

// Read returns the latest committed snapshot. It must not be modified.
func (s *Store) Read() *model.GameState {
	return s.current.Load()
}

// Subscribe returns a stream that starts with the current snapshot and then
// receives every committed snapshot in commit order.
func (s *Store) Subscribe() *Subscription[*model.GameState] {
	return s.snapshots.subscribe(func() []*model.GameState {
		return []*model.GameState{s.current.Load()}
	})
}

// SubscribeDayEnded streams the stats of each day as it closes.
func (s *Store) SubscribeDayEnded() *Subscription[model.DailyStats] {
	return s.dayEnded.subscribe(nil)
}

// Do runs fn on the store goroutine with exclusive access to the state.
// Changes are committed when fn returns nil and discarded when it returns an
// error. fn must not call back into the store's blocking methods.
func (s *Store) Do(ctx context.Context, fn func(*Tx) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	o := op{ctx: ctx, fn: fn, result: make(chan error, 1)}
	select {
	case s.ops <- o:
	case <-s.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	// Once accepted, the operation always runs to completion.
	return <-o.result
}

// Close stops the store goroutine and ends every subscription.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
		<-s.done
		s.snapshots.closeAll()
		s.dayEnded.closeAll()
		log.Printf("[GameStore] Closed")
	})
	return nil
}

func (s *Store) run() {
	defer close(s.done)
	for {
		select {
		case o := <-s.ops:
			s.apply(o)
		case <-s.quit:
			return
		}
	}
}

func (s *Store) apply(o op) {
	tx := &Tx{store: s, ctx: o.ctx, base: s.current.Load()}
	err := s.invoke(tx, o.fn)
	if err != nil {
		tx.rollback()
		o.result <- err
		return
	}
	tx.Commit()

	if saver := s.getSaver(); saver != nil {
		if tx.forceCloud {
			saver.ForceCloudSave()
		}
		if tx.dirty {
			saver.MarkDirty()
		}
	}
	o.result <- nil
}

func (s *Store) invoke(tx *Tx, fn func(*Tx) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[GameStore] PANIC in operation: %v", r)
			err = fmt.Errorf("game operation panicked: %v", r)
		}
	}()
	return fn(tx)
}
