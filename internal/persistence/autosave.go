package persistence

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// AutosaveConfig holds the save schedule.
type AutosaveConfig struct {
	// LocalInterval is the period of unconditional local saves.
	LocalInterval time.Duration
	// CloudInterval is the period of cloud saves.
	CloudInterval time.Duration
	// Debounce delays the local save that follows a MarkDirty so bursts of
	// mutations produce one write.
	Debounce time.Duration
	// Timeout bounds a single save.
	Timeout time.Duration
}

// DefaultAutosaveConfig returns the production schedule.
func DefaultAutosaveConfig() AutosaveConfig {
	return AutosaveConfig{
		LocalInterval: 10 * time.Second,
		CloudInterval: 60 * time.Second,
		Debounce:      2 * time.Second,
		Timeout:       30 * time.Second,
	}
}

// Autosave runs the two-tier save schedule for an Adapter: frequent local
// saves, infrequent cloud saves, and immediate saves on request. It
// implements game.Saver. Save failures are logged and dropped; the next
// scheduled save retries with a newer snapshot.
type Autosave struct {
	adapter *Adapter
	cfg     AutosaveConfig

	dirty chan struct{}
	force chan struct{}

	stopCh    chan struct{}
	stopOnce  sync.Once
	startOnce sync.Once
	wg        sync.WaitGroup
}

// NewAutosave creates a worker. Zero config fields take their defaults.
func NewAutosave(adapter *Adapter, cfg AutosaveConfig) *Autosave {
	def := DefaultAutosaveConfig()
	if cfg.LocalInterval <= 0 {
		cfg.LocalInterval = def.LocalInterval
	}
	if cfg.CloudInterval <= 0 {
		cfg.CloudInterval = def.CloudInterval
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = def.Debounce
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Autosave{
		adapter: adapter,
		cfg:     cfg,
		dirty:   make(chan struct{}, 1),
		force:   make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
	}
}

// MarkDirty schedules a debounced local save. It never blocks.
func (w *Autosave) MarkDirty() {
	select {
	case w.dirty <- struct{}{}:
	default:
	}
}

// ForceCloudSave schedules an immediate local and cloud save. It never blocks.
func (w *Autosave) ForceCloudSave() {
	select {
	case w.force <- struct{}{}:
	default:
	}
}

// Start begins the save loop.
func (w *Autosave) Start() {
	w.startOnce.Do(func() {
		w.wg.Add(1)
		go w.run()
		log.Printf("[Autosave] Started - local every %v, cloud every %v", w.cfg.LocalInterval, w.cfg.CloudInterval)
	})
}

// Close stops the loop after a final best-effort local and cloud save.
func (w *Autosave) Close() error {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
	w.wg.Wait()
	return nil
}

func (w *Autosave) run() {
	defer w.wg.Done()

	localTicker := time.NewTicker(w.cfg.LocalInterval)
	defer localTicker.Stop()
	cloudTicker := time.NewTicker(w.cfg.CloudInterval)
	defer cloudTicker.Stop()

	var debounce *time.Timer
	var debounceC <-chan time.Time
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-w.dirty:
			if debounceC == nil {
				debounce = time.NewTimer(w.cfg.Debounce)
				debounceC = debounce.C
			}
		case <-debounceC:
			debounceC = nil
			w.saveLocal()
		case <-localTicker.C:
			w.saveLocal()
		case <-cloudTicker.C:
			w.saveCloud()
		case <-w.force:
			w.saveLocal()
			w.saveCloud()
		case <-w.stopCh:
			log.Printf("[Autosave] Shutdown: final save...")
			w.saveLocal()
			w.saveCloud()
			log.Printf("[Autosave] Stopped")
			return
		}
	}
}

func (w *Autosave) saveLocal() {
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.Timeout)
	defer cancel()
	if err := w.adapter.SaveLocal(ctx); err != nil {
		log.Printf("[Autosave] Local save failed: %v", err)
	}
}

func (w *Autosave) saveCloud() {
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.Timeout)
	defer cancel()
	err := w.adapter.SaveCloud(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrNoUser), errors.Is(err, ErrSaveSuppressed):
		// Expected while signed out or playing as a fresh guest.
	default:
		log.Printf("[Autosave] Cloud save failed: %v", err)
	}
}
