package game

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"tycoon-engine/internal/economy"
	"tycoon-engine/internal/model"
)

// Tick advances the simulation by one step: the in-game clock moves forward,
// payroll runs when the day closes, then passive income accrues. Until the
// intro is completed the tick is a no-op returning ErrIntroRequired.
func (s *Store) Tick(ctx context.Context) error {
	return s.Do(ctx, func(tx *Tx) error {
		return s.tick(tx)
	})
}

func (s *Store) tick(tx *Tx) error {
	if !tx.State().HasCompletedIntro {
		return ErrIntroRequired
	}

	st := tx.edit()
	next, wrapped := economy.AdvanceClock(st.TimeOfDay, s.hoursPerTick)
	st.TimeOfDay = next
	if wrapped {
		salaries := economy.Payroll(st.Companies)
		if salaries > 0 {
			tx.addMoney(-salaries)
			st.DailyStats.Expenses += salaries
		}
		report := st.DailyStats
		report.Day = st.Day
		tx.reportDay(report)

		st.Day++
		st.DailyStats = model.DailyStats{Day: st.Day}
	}
	tx.Commit()

	inc := economy.PassiveIncome(tx.State().Companies, s.rnd)
	if inc.Total > 0 {
		tx.addMoney(inc.Total)
		for source, amount := range inc.BySource {
			tx.recordIncome(source, amount)
		}
	}
	return nil
}

// Loop drives Tick on a fixed interval.
type Loop struct {
	store    *Store
	interval time.Duration
	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// NewLoop creates a progression loop. It does nothing until Start.
func NewLoop(store *Store, interval time.Duration) *Loop {
	if interval <= 0 {
		interval = time.Second
	}
	return &Loop{
		store:    store,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins ticking.
func (l *Loop) Start() {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	l.ticker = time.NewTicker(l.interval)
	l.mu.Unlock()

	log.Printf("[GameLoop] Started - Interval: %v", l.interval)

	l.wg.Add(1)
	go l.run()
}

func (l *Loop) run() {
	defer l.wg.Done()
	for {
		select {
		case <-l.ticker.C:
			err := l.store.Tick(context.Background())
			switch {
			case err == nil, errors.Is(err, ErrIntroRequired):
			case errors.Is(err, ErrClosed):
				log.Printf("[GameLoop] Store closed, stopping")
				return
			default:
				log.Printf("[GameLoop] Tick failed: %v", err)
			}
		case <-l.stopCh:
			log.Printf("[GameLoop] Stopped")
			return
		}
	}
}

// Stop halts the loop and waits for an in-flight tick to finish.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		if l.ticker != nil {
			l.ticker.Stop()
		}
		close(l.stopCh)
		l.running = false
		l.mu.Unlock()
	})
	l.wg.Wait()
}
