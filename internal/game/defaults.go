package game

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"tycoon-engine/internal/catalog"
	"tycoon-engine/internal/model"
)

const (
	defaultUsername = "Entrepreneur"
	defaultTitle    = "Beginner"
	startingMoney   = 2000
	startingHour    = 6.0
	startingXPMax   = 5
)

// starterIngredients are always unlocked.
var starterIngredients = []model.Ingredient{model.IngredientBun, model.IngredientSteak}

// DefaultState builds the state of a brand new game.
func DefaultState(cat *catalog.Catalog, now time.Time) *model.GameState {
	companies := make([]model.Company, 0, len(cat.Companies))
	for _, a := range cat.Companies {
		companies = append(companies, newCompany(a))
	}

	mastery := make(map[model.Ingredient]model.IngredientStats, len(model.AllIngredients))
	for _, ing := range model.AllIngredients {
		mastery[ing] = model.IngredientStats{Level: 1, XP: 0, XPMax: startingXPMax}
	}

	ms := now.UnixMilli()
	return &model.GameState{
		User:      &model.UserProfile{Username: defaultUsername, Title: defaultTitle},
		Money:     startingMoney,
		Day:       1,
		TimeOfDay: startingHour,
		Companies: companies,
		FoodtruckMastery: mastery,
		FoodtruckUpgrades: model.FoodtruckUpgrades{
			GrillLevel:          1,
			MarketingLevel:      1,
			ServiceLevel:        1,
			UnlockedIngredients: append([]model.Ingredient(nil), starterIngredients...),
			MaxServiceReached:   1,
		},
		FreelanceUpgrades: model.FreelanceUpgrades{
			OwnedThemes:   []string{model.DefaultThemeID},
			ActiveThemeID: model.DefaultThemeID,
		},
		DailyStats:   model.DailyStats{Day: 1},
		Achievements: []model.Achievement{},
		LastSavedAt:  ms,
		LastOnlineAt: ms,
	}
}

func newCompany(a catalog.CompanyArchetype) model.Company {
	return model.Company{
		ID:                   a.ID,
		Type:                 a.Type,
		Name:                 a.Name,
		Level:                1,
		Unlocked:             a.Unlocked,
		UnlockCost:           a.UnlockCost,
		BaseRevenuePerAction: a.BaseRevenuePerAction,
		Employees:            []model.Employee{},
	}
}

// MergeWithDefaults overlays a persisted snapshot on top of def. The merge is
// shallow: every top-level field present in raw replaces the default value
// wholesale, absent fields keep the default. JSON null counts as absent.
// The result is normalized so the state invariants hold even for old or
// hand-edited saves.
func MergeWithDefaults(cat *catalog.Catalog, def *model.GameState, raw []byte) (*model.GameState, error) {
	base, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("encode defaults: %w", err)
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, fmt.Errorf("decode defaults: %w", err)
	}

	var loaded map[string]json.RawMessage
	if err := json.Unmarshal(raw, &loaded); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	for k, v := range loaded {
		if string(v) == "null" {
			continue
		}
		merged[k] = v
	}

	out, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("encode merged snapshot: %w", err)
	}
	var s model.GameState
	if err := json.Unmarshal(out, &s); err != nil {
		return nil, fmt.Errorf("decode merged snapshot: %w", err)
	}
	Normalize(cat, &s)
	return &s, nil
}

// Normalize repairs s in place so that the state invariants hold: unique
// company ids covering every catalog archetype, starter ingredients unlocked,
// the default theme owned and the active theme owned.
func Normalize(cat *catalog.Catalog, s *model.GameState) {
	if s.User == nil {
		s.User = &model.UserProfile{Username: defaultUsername, Title: defaultTitle}
	}

	seen := make(map[string]bool, len(s.Companies))
	companies := make([]model.Company, 0, len(cat.Companies))
	for _, c := range s.Companies {
		if c.ID == "" || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		if c.Employees == nil {
			c.Employees = []model.Employee{}
		}
		companies = append(companies, c)
	}
	for _, a := range cat.Companies {
		if !seen[a.ID] {
			companies = append(companies, newCompany(a))
		}
	}
	s.Companies = companies

	if s.FoodtruckMastery == nil {
		s.FoodtruckMastery = make(map[model.Ingredient]model.IngredientStats, len(model.AllIngredients))
	}
	for _, ing := range model.AllIngredients {
		if _, ok := s.FoodtruckMastery[ing]; !ok {
			s.FoodtruckMastery[ing] = model.IngredientStats{Level: 1, XP: 0, XPMax: startingXPMax}
		}
	}

	ft := &s.FoodtruckUpgrades
	var missing []model.Ingredient
	for _, ing := range starterIngredients {
		if !ft.HasIngredient(ing) {
			missing = append(missing, ing)
		}
	}
	ft.UnlockedIngredients = append(missing, ft.UnlockedIngredients...)

	fl := &s.FreelanceUpgrades
	if !fl.OwnsTheme(model.DefaultThemeID) {
		fl.OwnedThemes = append([]string{model.DefaultThemeID}, fl.OwnedThemes...)
	}
	if fl.ActiveThemeID == "" || !fl.OwnsTheme(fl.ActiveThemeID) {
		fl.ActiveThemeID = model.DefaultThemeID
	}

	achievements := make([]model.Achievement, 0, len(s.Achievements))
	ids := make(map[string]bool, len(s.Achievements))
	for _, a := range s.Achievements {
		if ids[a.ID] {
			continue
		}
		ids[a.ID] = true
		achievements = append(achievements, a)
	}
	s.Achievements = achievements

	if s.Day < 1 {
		s.Day = 1
	}
	if math.IsNaN(s.TimeOfDay) || s.TimeOfDay < 0 || s.TimeOfDay >= 24 {
		s.TimeOfDay = 0
	}
	if s.DailyStats.Day == 0 {
		s.DailyStats.Day = s.Day
	}
}
