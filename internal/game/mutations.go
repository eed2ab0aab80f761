package game

import (
	"context"
	"fmt"
	"strings"

	"tycoon-engine/internal/catalog"
	"tycoon-engine/internal/economy"
	"tycoon-engine/internal/model"
)

// AddMoney credits (amount > 0) or debits (amount < 0) the balance without any
// lower bound. Purchases must go through SpendMoney instead.
func (s *Store) AddMoney(ctx context.Context, amount float64) error {
	return s.Do(ctx, func(tx *Tx) error {
		if amount == 0 {
			return nil
		}
		tx.addMoney(amount)
		tx.MarkDirty()
		return nil
	})
}

// AddEarnings credits a gain and attributes it to an income source.
func (s *Store) AddEarnings(ctx context.Context, source model.IncomeSource, amount float64) error {
	return s.Do(ctx, func(tx *Tx) error {
		if amount == 0 {
			return nil
		}
		tx.addMoney(amount)
		tx.recordIncome(source, amount)
		tx.MarkDirty()
		return nil
	})
}

// SpendMoney debits amount iff the balance covers it, otherwise it returns
// ErrInsufficientFunds and leaves the balance unchanged.
func (s *Store) SpendMoney(ctx context.Context, amount float64) error {
	return s.Do(ctx, func(tx *Tx) error {
		if err := tx.spend(amount); err != nil {
			return err
		}
		tx.MarkDirty()
		return nil
	})
}

// SpendWith debits amount only if the balance covers it and settle succeeds.
// settle runs on the store goroutine between the balance check and the debit,
// so no other mutation can spend the same money meanwhile. It must not call
// back into the store.
func (s *Store) SpendWith(ctx context.Context, amount float64, settle func(ctx context.Context) error) error {
	return s.Do(ctx, func(tx *Tx) error {
		if tx.State().Money < amount {
			return ErrInsufficientFunds
		}
		if err := settle(tx.Context()); err != nil {
			return err
		}
		if err := tx.spend(amount); err != nil {
			return err
		}
		tx.MarkDirty()
		return nil
	})
}

// Wager settles a bet of stake. The balance must cover the stake when the
// operation runs; settle then claims the bet and the stake is won or lost.
// settle must not call back into the store.
func (s *Store) Wager(ctx context.Context, stake float64, won bool, settle func(ctx context.Context) error) error {
	if stake <= 0 {
		return fmt.Errorf("%w: stake must be positive", ErrInvalidArgument)
	}
	return s.Do(ctx, func(tx *Tx) error {
		if tx.State().Money < stake {
			return ErrInsufficientFunds
		}
		if err := settle(tx.Context()); err != nil {
			return err
		}
		if won {
			tx.addMoney(stake)
		} else if err := tx.spend(stake); err != nil {
			return err
		}
		tx.MarkDirty()
		return nil
	})
}

// NextHireCost prices the next hire of role at a company.
func (s *Store) NextHireCost(companyID string, role model.EmployeeRole) (float64, error) {
	return nextHireCost(s.Read(), s, companyID, role)
}

func nextHireCost(st *model.GameState, s *Store, companyID string, role model.EmployeeRole) (float64, error) {
	cfg, ok := s.cat.Role(role)
	if !ok {
		return 0, fmt.Errorf("%w: unknown role %q", ErrInvalidArgument, role)
	}
	i := st.CompanyIndex(companyID)
	if i < 0 {
		return 0, fmt.Errorf("%w: company %q", ErrNotFound, companyID)
	}
	return economy.NextHireCost(cfg, economy.CountRole(st.Companies[i], role)), nil
}

// HireEmployee buys the next employee of role for a company. The daily salary
// is frozen from the catalog at hire time.
func (s *Store) HireEmployee(ctx context.Context, companyID string, role model.EmployeeRole) (model.Employee, error) {
	var hired model.Employee
	err := s.Do(ctx, func(tx *Tx) error {
		st := tx.State()
		cost, err := nextHireCost(st, s, companyID, role)
		if err != nil {
			return err
		}
		i := st.CompanyIndex(companyID)
		if economy.CountRole(st.Companies[i], role) >= s.cat.MaxEmployeesPerRole {
			return fmt.Errorf("%w: at most %d %s per company", ErrLimitReached, s.cat.MaxEmployeesPerRole, role)
		}
		if err := tx.spend(cost); err != nil {
			return err
		}
		cfg, _ := s.cat.Role(role)
		hired = model.Employee{
			ID:          s.newID(),
			Role:        role,
			HiredAt:     tx.Now().UnixMilli(),
			DailySalary: cfg.BaseDailySalary,
			Efficiency:  1,
			IsPaused:    false,
		}
		tx.appendEmployee(i, hired)
		tx.MarkDirty()
		return nil
	})
	return hired, err
}

// UnlockCompany buys access to a locked company.
func (s *Store) UnlockCompany(ctx context.Context, companyID string, cost float64) error {
	return s.Do(ctx, func(tx *Tx) error {
		i := tx.State().CompanyIndex(companyID)
		if i < 0 {
			return fmt.Errorf("%w: company %q", ErrNotFound, companyID)
		}
		if tx.State().Companies[i].Unlocked {
			return ErrAlreadyOwned
		}
		if err := tx.spend(cost); err != nil {
			return err
		}
		tx.company(i).Unlocked = true
		tx.MarkDirty()
		return nil
	})
}

// BuyFoodtruckUpgrade raises one foodtruck upgrade by a level.
func (s *Store) BuyFoodtruckUpgrade(ctx context.Context, kind model.FoodtruckUpgradeKind, cost float64) error {
	_, err := s.buyFoodtruckUpgrade(ctx, kind, func(int) float64 { return cost })
	return err
}

// UpgradeFoodtruck buys the next level of kind at the catalog price of the
// level owned when the operation runs, and returns the price paid.
func (s *Store) UpgradeFoodtruck(ctx context.Context, kind model.FoodtruckUpgradeKind) (float64, error) {
	return s.buyFoodtruckUpgrade(ctx, kind, func(level int) float64 {
		return economy.FoodtruckUpgradeCost(s.cat, level)
	})
}

func (s *Store) buyFoodtruckUpgrade(ctx context.Context, kind model.FoodtruckUpgradeKind, price func(level int) float64) (float64, error) {
	var paid float64
	err := s.Do(ctx, func(tx *Tx) error {
		switch kind {
		case model.UpgradeGrill, model.UpgradeMarketing, model.UpgradeService:
		default:
			return fmt.Errorf("%w: upgrade %q", ErrInvalidArgument, kind)
		}
		cost := price(tx.State().FoodtruckUpgrades.Level(kind))
		if err := tx.spend(cost); err != nil {
			return err
		}
		ft := &tx.edit().FoodtruckUpgrades
		switch kind {
		case model.UpgradeGrill:
			ft.GrillLevel++
		case model.UpgradeMarketing:
			ft.MarketingLevel++
		case model.UpgradeService:
			ft.ServiceLevel++
		}
		paid = cost
		tx.MarkDirty()
		return nil
	})
	return paid, err
}

func validIngredient(ing model.Ingredient) bool {
	for _, known := range model.AllIngredients {
		if known == ing {
			return true
		}
	}
	return false
}

// UnlockIngredient buys an ingredient for the foodtruck.
func (s *Store) UnlockIngredient(ctx context.Context, ing model.Ingredient, cost float64) error {
	return s.Do(ctx, func(tx *Tx) error {
		if !validIngredient(ing) {
			return fmt.Errorf("%w: ingredient %q", ErrInvalidArgument, ing)
		}
		if tx.State().FoodtruckUpgrades.HasIngredient(ing) {
			return ErrAlreadyOwned
		}
		if err := tx.spend(cost); err != nil {
			return err
		}
		ft := tx.foodtruck()
		ft.UnlockedIngredients = append(ft.UnlockedIngredients, ing)
		tx.MarkDirty()
		return nil
	})
}

// UnlockIngredientByService grants an ingredient for free as a service reward.
func (s *Store) UnlockIngredientByService(ctx context.Context, ing model.Ingredient) error {
	return s.Do(ctx, func(tx *Tx) error {
		if !validIngredient(ing) {
			return fmt.Errorf("%w: ingredient %q", ErrInvalidArgument, ing)
		}
		if tx.State().FoodtruckUpgrades.HasIngredient(ing) {
			return ErrAlreadyOwned
		}
		ft := tx.foodtruck()
		ft.UnlockedIngredients = append(ft.UnlockedIngredients, ing)
		tx.MarkDirty()
		return nil
	})
}

// UnlockKeyboard buys the keyboard shortcut upgrade.
func (s *Store) UnlockKeyboard(ctx context.Context, cost float64) error {
	return s.Do(ctx, func(tx *Tx) error {
		if tx.State().FoodtruckUpgrades.HasKeyboard {
			return ErrAlreadyOwned
		}
		if err := tx.spend(cost); err != nil {
			return err
		}
		tx.edit().FoodtruckUpgrades.HasKeyboard = true
		tx.MarkDirty()
		return nil
	})
}

// BuySetupUpgrade buys a single-level freelance desk item. Buying an item
// already owned is rejected before any money is spent.
func (s *Store) BuySetupUpgrade(ctx context.Context, item model.SetupItem, cost float64) error {
	return s.Do(ctx, func(tx *Tx) error {
		lvl := tx.State().FreelanceUpgrades.SetupLevel(item)
		if lvl < 0 {
			return fmt.Errorf("%w: setup item %q", ErrInvalidArgument, item)
		}
		if lvl >= 1 {
			return ErrAlreadyOwned
		}
		if err := tx.spend(cost); err != nil {
			return err
		}
		fl := &tx.edit().FreelanceUpgrades
		switch item {
		case model.SetupChair:
			fl.ChairLevel = 1
		case model.SetupScreen:
			fl.ScreenLevel = 1
		case model.SetupCoffee:
			fl.CoffeeLevel = 1
		case model.SetupPC:
			fl.PCLevel = 1
		}
		tx.MarkDirty()
		return nil
	})
}

// BuyFreelanceTheme buys an editor theme and equips it.
func (s *Store) BuyFreelanceTheme(ctx context.Context, themeID string, cost float64) error {
	return s.Do(ctx, func(tx *Tx) error {
		if themeID == "" {
			return fmt.Errorf("%w: empty theme id", ErrInvalidArgument)
		}
		if tx.State().FreelanceUpgrades.OwnsTheme(themeID) {
			return ErrAlreadyOwned
		}
		if err := tx.spend(cost); err != nil {
			return err
		}
		fl := tx.freelance()
		fl.OwnedThemes = append(fl.OwnedThemes, themeID)
		fl.ActiveThemeID = themeID
		tx.MarkDirty()
		return nil
	})
}

// SetFreelanceTheme equips an owned theme.
func (s *Store) SetFreelanceTheme(ctx context.Context, themeID string) error {
	return s.Do(ctx, func(tx *Tx) error {
		if !tx.State().FreelanceUpgrades.OwnsTheme(themeID) {
			return fmt.Errorf("%w: theme %q not owned", ErrNotFound, themeID)
		}
		tx.edit().FreelanceUpgrades.ActiveThemeID = themeID
		tx.MarkDirty()
		return nil
	})
}

// BuyPrestigeItem buys a catalog luxury item once and records it as an
// achievement. The purchase is pushed to the cloud immediately.
func (s *Store) BuyPrestigeItem(ctx context.Context, itemID string) error {
	return s.Do(ctx, func(tx *Tx) error {
		item, ok := s.cat.PrestigeItem(itemID)
		if !ok {
			return fmt.Errorf("%w: prestige item %q", ErrNotFound, itemID)
		}
		if tx.State().HasAchievement(item.AchievementID()) {
			return ErrAlreadyOwned
		}
		if err := tx.spend(item.Cost); err != nil {
			return err
		}
		tx.appendAchievement(model.Achievement{
			ID:         item.AchievementID(),
			Name:       item.Name,
			Icon:       item.Icon,
			UnlockedAt: tx.Now().UnixMilli(),
		})
		tx.ForceCloudSave()
		return nil
	})
}

func findEmployee(st *model.GameState, companyID, employeeID string) (int, int, error) {
	ci := st.CompanyIndex(companyID)
	if ci < 0 {
		return 0, 0, fmt.Errorf("%w: company %q", ErrNotFound, companyID)
	}
	for ei, e := range st.Companies[ci].Employees {
		if e.ID == employeeID {
			return ci, ei, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: employee %q", ErrNotFound, employeeID)
}

// UpgradeEmployeeSetup trains an employee, raising their efficiency by one.
func (s *Store) UpgradeEmployeeSetup(ctx context.Context, companyID, employeeID string, cost float64) error {
	_, err := s.upgradeEmployee(ctx, companyID, employeeID, func(float64) float64 { return cost })
	return err
}

// TrainEmployee raises an employee's efficiency at the training price of the
// efficiency it has when the operation runs, and returns the price paid.
func (s *Store) TrainEmployee(ctx context.Context, companyID, employeeID string) (float64, error) {
	return s.upgradeEmployee(ctx, companyID, employeeID, economy.TrainingCost)
}

func (s *Store) upgradeEmployee(ctx context.Context, companyID, employeeID string, price func(efficiency float64) float64) (float64, error) {
	var paid float64
	err := s.Do(ctx, func(tx *Tx) error {
		ci, ei, err := findEmployee(tx.State(), companyID, employeeID)
		if err != nil {
			return err
		}
		cost := price(tx.State().Companies[ci].Employees[ei].Efficiency)
		if err := tx.spend(cost); err != nil {
			return err
		}
		tx.employees(ci)[ei].Efficiency++
		paid = cost
		tx.MarkDirty()
		return nil
	})
	return paid, err
}

// ToggleEmployeePause flips an employee's pause flag and returns the new value.
// Paused employees still draw their salary.
func (s *Store) ToggleEmployeePause(ctx context.Context, companyID, employeeID string) (bool, error) {
	var paused bool
	err := s.Do(ctx, func(tx *Tx) error {
		ci, ei, err := findEmployee(tx.State(), companyID, employeeID)
		if err != nil {
			return err
		}
		emp := &tx.employees(ci)[ei]
		emp.IsPaused = !emp.IsPaused
		paused = emp.IsPaused
		tx.MarkDirty()
		return nil
	})
	return paused, err
}

// CompleteIntro finishes the intro sequence once: it sets the balance to the
// intro bonus, unlocks the foodtruck and forces a cloud save.
func (s *Store) CompleteIntro(ctx context.Context) error {
	return s.Do(ctx, func(tx *Tx) error {
		if tx.State().HasCompletedIntro {
			return ErrAlreadyOwned
		}
		st := tx.edit()
		st.HasCompletedIntro = true
		st.Money = s.introBonus
		if i := st.CompanyIndex(catalog.FoodtruckCompanyID); i >= 0 {
			tx.company(i).Unlocked = true
		}
		tx.ForceCloudSave()
		return nil
	})
}

// IncrementContractsCompleted counts one finished freelance contract.
func (s *Store) IncrementContractsCompleted(ctx context.Context) error {
	return s.Do(ctx, func(tx *Tx) error {
		tx.edit().FreelanceUpgrades.ContractsCompleted++
		tx.MarkDirty()
		return nil
	})
}

// IncrementBossBeaten counts one beaten boss contract.
func (s *Store) IncrementBossBeaten(ctx context.Context) error {
	return s.Do(ctx, func(tx *Tx) error {
		tx.edit().FreelanceUpgrades.BossBeaten++
		tx.MarkDirty()
		return nil
	})
}

// CompleteContract pays out a successful freelance contract, including the
// screen bonus and the combo bonus, and updates the contract counters.
func (s *Store) CompleteContract(ctx context.Context, baseReward float64, combo int, boss bool) (float64, error) {
	if baseReward < 0 || combo < 0 {
		return 0, fmt.Errorf("%w: negative reward or combo", ErrInvalidArgument)
	}
	var reward float64
	err := s.Do(ctx, func(tx *Tx) error {
		reward = economy.ContractReward(baseReward, tx.State().FreelanceUpgrades.ScreenLevel, combo)
		tx.addMoney(reward)
		tx.recordIncome(model.SourceFreelance, reward)
		fl := &tx.edit().FreelanceUpgrades
		fl.ContractsCompleted++
		if boss {
			fl.BossBeaten++
		}
		tx.MarkDirty()
		return nil
	})
	return reward, err
}

// SetTimeOfDay moves the in-game clock within the current day.
func (s *Store) SetTimeOfDay(ctx context.Context, hour float64) error {
	if !(hour >= 0 && hour < economy.HoursPerDay) {
		return fmt.Errorf("%w: hour %v outside [0,24)", ErrInvalidArgument, hour)
	}
	return s.Do(ctx, func(tx *Tx) error {
		tx.edit().TimeOfDay = hour
		return nil
	})
}

// RecordService registers one served foodtruck customer at the given combo.
// It raises the best combo reached and grants the ingredients that combo
// unlocks. The newly unlocked ingredients are returned.
func (s *Store) RecordService(ctx context.Context, combo int) ([]model.Ingredient, error) {
	if combo < 0 {
		return nil, fmt.Errorf("%w: negative combo", ErrInvalidArgument)
	}
	var unlocked []model.Ingredient
	err := s.Do(ctx, func(tx *Tx) error {
		st := tx.edit()
		st.DailyStats.CustomersServed++
		if combo > st.FoodtruckUpgrades.MaxServiceReached {
			st.FoodtruckUpgrades.MaxServiceReached = combo
		}
		for _, ing := range economy.ComboUnlocks(combo) {
			if tx.State().FoodtruckUpgrades.HasIngredient(ing) {
				continue
			}
			ft := tx.foodtruck()
			ft.UnlockedIngredients = append(ft.UnlockedIngredients, ing)
			unlocked = append(unlocked, ing)
		}
		tx.MarkDirty()
		return nil
	})
	return unlocked, err
}

// GainIngredientXP adds one mastery point to each listed ingredient and
// returns those that levelled up.
func (s *Store) GainIngredientXP(ctx context.Context, ings []model.Ingredient) ([]model.Ingredient, error) {
	for _, ing := range ings {
		if !validIngredient(ing) {
			return nil, fmt.Errorf("%w: ingredient %q", ErrInvalidArgument, ing)
		}
	}
	var levelled []model.Ingredient
	err := s.Do(ctx, func(tx *Tx) error {
		m := tx.mastery()
		for _, ing := range ings {
			stats, ok := m[ing]
			if !ok {
				stats = model.IngredientStats{Level: 1, XPMax: startingXPMax}
			}
			next, up := economy.GainIngredientXP(stats)
			m[ing] = next
			if up {
				levelled = append(levelled, ing)
			}
		}
		tx.MarkDirty()
		return nil
	})
	return levelled, err
}

// SetCompanyProfit records the per-second revenue and cost a mini-game
// reports for a company. Passive income reads the resulting net profit.
func (s *Store) SetCompanyProfit(ctx context.Context, companyID string, revenuePerSecond, costPerSecond float64) error {
	return s.Do(ctx, func(tx *Tx) error {
		i := tx.State().CompanyIndex(companyID)
		if i < 0 {
			return fmt.Errorf("%w: company %q", ErrNotFound, companyID)
		}
		c := tx.company(i)
		c.RevenuePerSecond = revenuePerSecond
		c.CostPerSecond = costPerSecond
		c.NetProfitPerSecond = revenuePerSecond - costPerSecond
		return nil
	})
}

// ProfileUpdate lists the profile fields to change. Nil fields are left as is.
type ProfileUpdate struct {
	Username  *string `json:"username,omitempty"`
	Title     *string `json:"title,omitempty"`
	AvatarID  *string `json:"avatarId,omitempty"`
	HoldingID *string `json:"holdingId,omitempty"`
}

// MaxUsernameLength bounds profile usernames.
const MaxUsernameLength = 24

// UpdateProfile edits the player's public profile and forces a cloud save.
// The creation date is stamped the first time a profile is written.
func (s *Store) UpdateProfile(ctx context.Context, upd ProfileUpdate) error {
	if upd.Username != nil {
		name := strings.TrimSpace(*upd.Username)
		if name == "" || len([]rune(name)) > MaxUsernameLength {
			return fmt.Errorf("%w: username must be 1-%d characters", ErrInvalidArgument, MaxUsernameLength)
		}
		upd.Username = &name
	}
	return s.Do(ctx, func(tx *Tx) error {
		u := tx.user()
		if upd.Username != nil {
			u.Username = *upd.Username
		}
		if upd.Title != nil {
			u.Title = *upd.Title
		}
		if upd.AvatarID != nil {
			u.AvatarID = *upd.AvatarID
		}
		if upd.HoldingID != nil {
			u.HoldingID = *upd.HoldingID
		}
		if u.CreationDate == 0 {
			u.CreationDate = tx.Now().UnixMilli()
		}
		tx.ForceCloudSave()
		return nil
	})
}

// MarkFoodtruckIntroSeen records that the foodtruck tutorial was shown.
func (s *Store) MarkFoodtruckIntroSeen(ctx context.Context) error {
	return s.Do(ctx, func(tx *Tx) error {
		if tx.State().TutoFlags.FoodtruckIntroSeen {
			return nil
		}
		tx.edit().TutoFlags.FoodtruckIntroSeen = true
		tx.MarkDirty()
		return nil
	})
}

// Reset replaces the state with a brand new game.
func (s *Store) Reset(ctx context.Context) error {
	return s.Do(ctx, func(tx *Tx) error {
		tx.Replace(DefaultState(s.cat, tx.Now()))
		tx.MarkDirty()
		return nil
	})
}

// Replace swaps in a state loaded from storage. The store takes ownership of st.
func (s *Store) Replace(ctx context.Context, st *model.GameState) error {
	if st == nil {
		return fmt.Errorf("%w: nil state", ErrInvalidArgument)
	}
	return s.Do(ctx, func(tx *Tx) error {
		tx.Replace(st)
		return nil
	})
}

// RecordCloudSave adds played minutes and stamps the save time. It runs just
// before a state is written to the cloud.
func (s *Store) RecordCloudSave(ctx context.Context, playMinutes float64) (*model.GameState, error) {
	var saved *model.GameState
	err := s.Do(ctx, func(tx *Tx) error {
		st := tx.edit()
		st.Stats.TotalPlayTimeMinutes += playMinutes
		now := tx.Now().UnixMilli()
		st.LastSavedAt = now
		st.LastOnlineAt = now
		tx.Commit()
		saved = tx.State()
		return nil
	})
	return saved, err
}

// TotalEmployeePower counts the employees of role at the first company of the
// given archetype.
func (s *Store) TotalEmployeePower(jobType model.JobType, role model.EmployeeRole) int {
	st := s.Read()
	for _, c := range st.Companies {
		if c.Type == jobType {
			return economy.CountRole(c, role)
		}
	}
	return 0
}
