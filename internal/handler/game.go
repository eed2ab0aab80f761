package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tycoon-engine/internal/game"
	"tycoon-engine/internal/model"
	"tycoon-engine/pkg/response"
)

// GameHandler exposes the game store. Prices come from the catalog, so
// clients only name what they buy.
type GameHandler struct {
	store *game.Store
}

// NewGameHandler creates a new game handler.
func NewGameHandler(store *game.Store) *GameHandler {
	return &GameHandler{store: store}
}

// Routes mounts the game endpoints.
func (h *GameHandler) Routes(r chi.Router) {
	r.Get("/state", h.GetState)
	r.Get("/power", h.GetEmployeePower)
	r.Post("/intro", h.CompleteIntro)
	r.Post("/reset", h.Reset)
	r.Put("/time", h.SetTimeOfDay)
	r.Patch("/profile", h.UpdateProfile)

	r.Post("/earnings", h.AddEarnings)
	r.Post("/spend", h.SpendMoney)
	r.Post("/prestige/{itemID}", h.BuyPrestigeItem)

	r.Route("/companies/{companyID}", func(r chi.Router) {
		r.Post("/unlock", h.UnlockCompany)
		r.Put("/profit", h.SetCompanyProfit)
		r.Get("/hire-cost", h.GetHireCost)
		r.Post("/employees", h.HireEmployee)
		r.Post("/employees/{employeeID}/train", h.TrainEmployee)
		r.Post("/employees/{employeeID}/pause", h.ToggleEmployeePause)
	})

	r.Route("/foodtruck", func(r chi.Router) {
		r.Post("/intro-seen", h.MarkFoodtruckIntroSeen)
		r.Post("/upgrades/{kind}", h.BuyFoodtruckUpgrade)
		r.Post("/ingredients/{ingredient}", h.UnlockIngredient)
		r.Post("/keyboard", h.UnlockKeyboard)
		r.Post("/service", h.RecordService)
		r.Post("/mastery", h.GainIngredientXP)
	})

	r.Route("/freelance", func(r chi.Router) {
		r.Post("/setup/{item}", h.BuySetupUpgrade)
		r.Post("/themes/{themeID}", h.BuyFreelanceTheme)
		r.Put("/theme", h.SetFreelanceTheme)
		r.Post("/contracts", h.CompleteContract)
		r.Post("/contracts/increment", h.IncrementContractsCompleted)
		r.Post("/boss", h.IncrementBossBeaten)
	})
}

func (h *GameHandler) ok(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, h.store.Read())
}

// GetState handles GET /game/state
func (h *GameHandler) GetState(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.store.Read())
}

// GetEmployeePower handles GET /game/power?job=FOODTRUCK&role=COOK
func (h *GameHandler) GetEmployeePower(w http.ResponseWriter, r *http.Request) {
	job := model.JobType(r.URL.Query().Get("job"))
	role := model.EmployeeRole(r.URL.Query().Get("role"))
	response.OK(w, map[string]int{"power": h.store.TotalEmployeePower(job, role)})
}

// CompleteIntro handles POST /game/intro
func (h *GameHandler) CompleteIntro(w http.ResponseWriter, r *http.Request) {
	h.ok(w, r, h.store.CompleteIntro(r.Context()))
}

// Reset handles POST /game/reset
func (h *GameHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.ok(w, r, h.store.Reset(r.Context()))
}

// TimeRequest is the body of PUT /game/time.
type TimeRequest struct {
	Hour float64 `json:"hour"`
}

// SetTimeOfDay handles PUT /game/time
func (h *GameHandler) SetTimeOfDay(w http.ResponseWriter, r *http.Request) {
	var req TimeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.ok(w, r, h.store.SetTimeOfDay(r.Context(), req.Hour))
}

// UpdateProfile handles PATCH /game/profile
func (h *GameHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req game.ProfileUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	h.ok(w, r, h.store.UpdateProfile(r.Context(), req))
}

// AmountRequest carries a money amount and, for earnings, where it came from.
type AmountRequest struct {
	Amount float64            `json:"amount"`
	Source model.IncomeSource `json:"source,omitempty"`
}

// AddEarnings handles POST /game/earnings
func (h *GameHandler) AddEarnings(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Amount <= 0 {
		h.ok(w, r, fmt.Errorf("%w: amount must be positive", game.ErrInvalidArgument))
		return
	}
	switch req.Source {
	case model.SourceNone, model.SourceFoodtruck, model.SourceFreelance, model.SourceFactory:
	default:
		h.ok(w, r, fmt.Errorf("%w: unknown income source %q", game.ErrInvalidArgument, req.Source))
		return
	}
	h.ok(w, r, h.store.AddEarnings(r.Context(), req.Source, req.Amount))
}

// SpendMoney handles POST /game/spend
func (h *GameHandler) SpendMoney(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Amount <= 0 {
		h.ok(w, r, fmt.Errorf("%w: amount must be positive", game.ErrInvalidArgument))
		return
	}
	h.ok(w, r, h.store.SpendMoney(r.Context(), req.Amount))
}

// BuyPrestigeItem handles POST /game/prestige/{itemID}
func (h *GameHandler) BuyPrestigeItem(w http.ResponseWriter, r *http.Request) {
	h.ok(w, r, h.store.BuyPrestigeItem(r.Context(), chi.URLParam(r, "itemID")))
}

// UnlockCompany handles POST /game/companies/{companyID}/unlock
func (h *GameHandler) UnlockCompany(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "companyID")
	arch, ok := h.store.Catalog().Company(id)
	if !ok {
		h.ok(w, r, fmt.Errorf("%w: company %q", game.ErrNotFound, id))
		return
	}
	h.ok(w, r, h.store.UnlockCompany(r.Context(), id, arch.UnlockCost))
}

// ProfitRequest is the body of PUT /game/companies/{companyID}/profit.
type ProfitRequest struct {
	RevenuePerSecond float64 `json:"revenuePerSecond"`
	CostPerSecond    float64 `json:"costPerSecond"`
}

// SetCompanyProfit handles PUT /game/companies/{companyID}/profit
func (h *GameHandler) SetCompanyProfit(w http.ResponseWriter, r *http.Request) {
	var req ProfitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.ok(w, r, h.store.SetCompanyProfit(r.Context(), chi.URLParam(r, "companyID"), req.RevenuePerSecond, req.CostPerSecond))
}

// GetHireCost handles GET /game/companies/{companyID}/hire-cost?role=COOK
func (h *GameHandler) GetHireCost(w http.ResponseWriter, r *http.Request) {
	role := model.EmployeeRole(r.URL.Query().Get("role"))
	cost, err := h.store.NextHireCost(chi.URLParam(r, "companyID"), role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, map[string]any{"role": role, "cost": cost})
}

// HireRequest is the body of POST /game/companies/{companyID}/employees.
type HireRequest struct {
	Role model.EmployeeRole `json:"role"`
}

// HireEmployee handles POST /game/companies/{companyID}/employees
func (h *GameHandler) HireEmployee(w http.ResponseWriter, r *http.Request) {
	var req HireRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	emp, err := h.store.HireEmployee(r.Context(), chi.URLParam(r, "companyID"), req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Created(w, emp)
}

// TrainEmployee handles POST /game/companies/{companyID}/employees/{employeeID}/train
func (h *GameHandler) TrainEmployee(w http.ResponseWriter, r *http.Request) {
	_, err := h.store.TrainEmployee(r.Context(), chi.URLParam(r, "companyID"), chi.URLParam(r, "employeeID"))
	h.ok(w, r, err)
}

// ToggleEmployeePause handles POST /game/companies/{companyID}/employees/{employeeID}/pause
func (h *GameHandler) ToggleEmployeePause(w http.ResponseWriter, r *http.Request) {
	paused, err := h.store.ToggleEmployeePause(r.Context(), chi.URLParam(r, "companyID"), chi.URLParam(r, "employeeID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, map[string]bool{"paused": paused})
}

// MarkFoodtruckIntroSeen handles POST /game/foodtruck/intro-seen
func (h *GameHandler) MarkFoodtruckIntroSeen(w http.ResponseWriter, r *http.Request) {
	h.ok(w, r, h.store.MarkFoodtruckIntroSeen(r.Context()))
}

// BuyFoodtruckUpgrade handles POST /game/foodtruck/upgrades/{kind}
func (h *GameHandler) BuyFoodtruckUpgrade(w http.ResponseWriter, r *http.Request) {
	kind := model.FoodtruckUpgradeKind(chi.URLParam(r, "kind"))
	_, err := h.store.UpgradeFoodtruck(r.Context(), kind)
	h.ok(w, r, err)
}

// UnlockIngredient handles POST /game/foodtruck/ingredients/{ingredient}
func (h *GameHandler) UnlockIngredient(w http.ResponseWriter, r *http.Request) {
	ing := model.Ingredient(chi.URLParam(r, "ingredient"))
	cost, ok := h.store.Catalog().IngredientCost(ing)
	if !ok {
		h.ok(w, r, fmt.Errorf("%w: ingredient %q is not for sale", game.ErrInvalidArgument, ing))
		return
	}
	h.ok(w, r, h.store.UnlockIngredient(r.Context(), ing, cost))
}

// UnlockKeyboard handles POST /game/foodtruck/keyboard
func (h *GameHandler) UnlockKeyboard(w http.ResponseWriter, r *http.Request) {
	h.ok(w, r, h.store.UnlockKeyboard(r.Context(), h.store.Catalog().KeyboardCost))
}

// ServiceRequest is the body of POST /game/foodtruck/service.
type ServiceRequest struct {
	Combo int `json:"combo"`
}

// RecordService handles POST /game/foodtruck/service
func (h *GameHandler) RecordService(w http.ResponseWriter, r *http.Request) {
	var req ServiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	unlocked, err := h.store.RecordService(r.Context(), req.Combo)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, map[string]any{"unlocked": nonNil(unlocked)})
}

// MasteryRequest is the body of POST /game/foodtruck/mastery.
type MasteryRequest struct {
	Ingredients []model.Ingredient `json:"ingredients"`
}

// GainIngredientXP handles POST /game/foodtruck/mastery
func (h *GameHandler) GainIngredientXP(w http.ResponseWriter, r *http.Request) {
	var req MasteryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	levelled, err := h.store.GainIngredientXP(r.Context(), req.Ingredients)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, map[string]any{"levelledUp": nonNil(levelled)})
}

// BuySetupUpgrade handles POST /game/freelance/setup/{item}
func (h *GameHandler) BuySetupUpgrade(w http.ResponseWriter, r *http.Request) {
	item := model.SetupItem(chi.URLParam(r, "item"))
	cost, ok := h.store.Catalog().SetupCost(item)
	if !ok {
		h.ok(w, r, fmt.Errorf("%w: setup item %q", game.ErrInvalidArgument, item))
		return
	}
	h.ok(w, r, h.store.BuySetupUpgrade(r.Context(), item, cost))
}

// BuyFreelanceTheme handles POST /game/freelance/themes/{themeID}
func (h *GameHandler) BuyFreelanceTheme(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "themeID")
	theme, ok := h.store.Catalog().Theme(id)
	if !ok {
		h.ok(w, r, fmt.Errorf("%w: theme %q", game.ErrNotFound, id))
		return
	}
	h.ok(w, r, h.store.BuyFreelanceTheme(r.Context(), theme.ID, theme.Cost))
}

// ThemeRequest is the body of PUT /game/freelance/theme.
type ThemeRequest struct {
	ThemeID string `json:"themeId"`
}

// SetFreelanceTheme handles PUT /game/freelance/theme
func (h *GameHandler) SetFreelanceTheme(w http.ResponseWriter, r *http.Request) {
	var req ThemeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.ok(w, r, h.store.SetFreelanceTheme(r.Context(), req.ThemeID))
}

// ContractRequest is the body of POST /game/freelance/contracts.
type ContractRequest struct {
	BaseReward float64 `json:"baseReward"`
	Combo      int     `json:"combo"`
	Boss       bool    `json:"boss"`
}

// CompleteContract handles POST /game/freelance/contracts
func (h *GameHandler) CompleteContract(w http.ResponseWriter, r *http.Request) {
	var req ContractRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	reward, err := h.store.CompleteContract(r.Context(), req.BaseReward, req.Combo, req.Boss)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, map[string]float64{"reward": reward})
}

// IncrementContractsCompleted handles POST /game/freelance/contracts/increment
func (h *GameHandler) IncrementContractsCompleted(w http.ResponseWriter, r *http.Request) {
	h.ok(w, r, h.store.IncrementContractsCompleted(r.Context()))
}

// IncrementBossBeaten handles POST /game/freelance/boss
func (h *GameHandler) IncrementBossBeaten(w http.ResponseWriter, r *http.Request) {
	h.ok(w, r, h.store.IncrementBossBeaten(r.Context()))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
