package handler

import (
	"net/http"
	"runtime"
	"time"

	"tycoon-engine/internal/game"
	"tycoon-engine/internal/repository"
	"tycoon-engine/pkg/response"
)

// AdminConfig holds the dependencies of the admin handler.
type AdminConfig struct {
	Store   *game.Store
	Local   repository.LocalSaveRepository
	SaveKey string
	// Backends names the implementation behind each pluggable component,
	// e.g. "cloud": "mongodb".
	Backends map[string]string
}

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	cfg       AdminConfig
	startTime time.Time
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(cfg AdminConfig) *AdminHandler {
	return &AdminHandler{cfg: cfg, startTime: time.Now()}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	// System info
	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["backends"] = h.cfg.Backends

	// Memory stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	// Game snapshot summary
	if h.cfg.Store != nil {
		st := h.cfg.Store.Read()
		unlocked, employees := 0, 0
		for _, c := range st.Companies {
			if c.Unlocked {
				unlocked++
			}
			employees += len(c.Employees)
		}
		stats["game"] = map[string]interface{}{
			"day":                st.Day,
			"time_of_day":        st.TimeOfDay,
			"money":              st.Money,
			"total_money_earned": st.TotalMoneyEarned,
			"intro_completed":    st.HasCompletedIntro,
			"companies_unlocked": unlocked,
			"employees":          employees,
			"last_saved_at":      st.LastSavedAt,
		}
	}

	// Local save
	if h.cfg.Local != nil {
		rec, err := h.cfg.Local.GetSave(ctx, h.cfg.SaveKey)
		switch {
		case err != nil:
			stats["local_save"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		case rec == nil:
			stats["local_save"] = map[string]interface{}{
				"status": "empty",
			}
		default:
			stats["local_save"] = map[string]interface{}{
				"status":        "ok",
				"codec":         rec.Codec,
				"payload_bytes": len(rec.Payload),
				"saved_at":      rec.SavedAt.Format(time.RFC3339),
			}
		}
	} else {
		stats["local_save"] = map[string]interface{}{
			"status": "not_configured",
		}
	}

	// Runtime info
	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}

// VerifyLogin handles POST /api/v1/admin/login. It is mounted behind the
// login key middleware, so reaching it means the key is valid.
func (h *AdminHandler) VerifyLogin(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]bool{"valid": true})
}
