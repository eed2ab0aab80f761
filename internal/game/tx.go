package game

import (
	"context"
	"time"

	"tycoon-engine/internal/catalog"
	"tycoon-engine/internal/model"
)

// Tx is the exclusive view of the state handed to an operation. Writes go to a
// working copy that shares every sub-object it has not touched with the last
// committed snapshot.
type Tx struct {
	store *Store
	ctx   context.Context
	base  *model.GameState
	next  *model.GameState
	own   owned

	dirty      bool
	forceCloud bool
	dayReports []model.DailyStats
}

// owned records which shared sub-objects of next have been copied.
type owned struct {
	all          bool
	user         bool
	companies    bool
	employees    map[int]bool
	mastery      bool
	ingredients  bool
	themes       bool
	achievements bool
}

// Context returns the context of the calling operation.
func (tx *Tx) Context() context.Context {
	return tx.ctx
}

// Catalog returns the store's economy tables.
func (tx *Tx) Catalog() *catalog.Catalog {
	return tx.store.cat
}

// Now returns the store clock's current time.
func (tx *Tx) Now() time.Time {
	return tx.store.clock.Now()
}

// State returns the state as seen by this operation. It must not be modified.
func (tx *Tx) State() *model.GameState {
	if tx.next != nil {
		return tx.next
	}
	return tx.base
}

// Replace swaps the whole state. The caller hands over ownership of s.
func (tx *Tx) Replace(s *model.GameState) {
	tx.next = s
	tx.own = owned{all: true}
}

// MarkDirty requests a local save once the operation succeeds.
func (tx *Tx) MarkDirty() {
	tx.dirty = true
}

// ForceCloudSave requests an immediate cloud save once the operation succeeds.
func (tx *Tx) ForceCloudSave() {
	tx.forceCloud = true
	tx.dirty = true
}

// Commit publishes the pending changes as a new snapshot. Operations that
// need subscribers to observe intermediate states commit more than once.
func (tx *Tx) Commit() {
	if tx.next == nil {
		return
	}
	snap := tx.next
	tx.store.snapshots.publish(snap, func() {
		tx.store.current.Store(snap)
	})
	tx.base = snap
	tx.next = nil
	tx.own = owned{}

	for _, r := range tx.dayReports {
		tx.store.dayEnded.publish(r, nil)
	}
	tx.dayReports = nil
}

func (tx *Tx) rollback() {
	tx.next = nil
	tx.own = owned{}
	tx.dayReports = nil
}

// edit returns the working copy, creating it on first use.
func (tx *Tx) edit() *model.GameState {
	if tx.next == nil {
		c := *tx.base
		tx.next = &c
	}
	return tx.next
}

func (tx *Tx) user() *model.UserProfile {
	s := tx.edit()
	if !tx.own.all && !tx.own.user {
		u := model.UserProfile{}
		if s.User != nil {
			u = *s.User
		}
		s.User = &u
		tx.own.user = true
	}
	if s.User == nil {
		s.User = &model.UserProfile{}
	}
	return s.User
}

// companies returns a company slice owned by this transaction. Employee
// slices stay shared until employees is called for that company.
func (tx *Tx) companies() []model.Company {
	s := tx.edit()
	if !tx.own.all && !tx.own.companies {
		out := make([]model.Company, len(s.Companies))
		copy(out, s.Companies)
		s.Companies = out
		tx.own.companies = true
	}
	return s.Companies
}

// company returns a pointer to the owned company at index i.
func (tx *Tx) company(i int) *model.Company {
	return &tx.companies()[i]
}

// employees returns the owned employee slice of the company at index i.
func (tx *Tx) employees(i int) []model.Employee {
	c := tx.company(i)
	if !tx.own.all && !tx.own.employees[i] {
		c.Employees = cloneSlice(c.Employees)
		if tx.own.employees == nil {
			tx.own.employees = make(map[int]bool)
		}
		tx.own.employees[i] = true
	}
	return c.Employees
}

// appendEmployee adds e to the company at index i.
func (tx *Tx) appendEmployee(i int, e model.Employee) {
	c := tx.company(i)
	emps := tx.employees(i)
	c.Employees = append(emps, e)
}

func (tx *Tx) mastery() map[model.Ingredient]model.IngredientStats {
	s := tx.edit()
	if !tx.own.all && !tx.own.mastery {
		m := make(map[model.Ingredient]model.IngredientStats, len(s.FoodtruckMastery))
		for k, v := range s.FoodtruckMastery {
			m[k] = v
		}
		s.FoodtruckMastery = m
		tx.own.mastery = true
	}
	if s.FoodtruckMastery == nil {
		s.FoodtruckMastery = make(map[model.Ingredient]model.IngredientStats)
	}
	return s.FoodtruckMastery
}

// foodtruck returns the upgrades with an owned ingredient list.
func (tx *Tx) foodtruck() *model.FoodtruckUpgrades {
	s := tx.edit()
	if !tx.own.all && !tx.own.ingredients {
		s.FoodtruckUpgrades.UnlockedIngredients = cloneSlice(s.FoodtruckUpgrades.UnlockedIngredients)
		tx.own.ingredients = true
	}
	return &s.FoodtruckUpgrades
}

// freelance returns the upgrades with an owned theme list.
func (tx *Tx) freelance() *model.FreelanceUpgrades {
	s := tx.edit()
	if !tx.own.all && !tx.own.themes {
		s.FreelanceUpgrades.OwnedThemes = cloneSlice(s.FreelanceUpgrades.OwnedThemes)
		tx.own.themes = true
	}
	return &s.FreelanceUpgrades
}

func (tx *Tx) appendAchievement(a model.Achievement) {
	s := tx.edit()
	if !tx.own.all && !tx.own.achievements {
		s.Achievements = cloneSlice(s.Achievements)
		tx.own.achievements = true
	}
	s.Achievements = append(s.Achievements, a)
}

// addMoney credits or debits the balance. Gains also count towards total
// earnings and the day's revenue; losses only touch the balance.
func (tx *Tx) addMoney(amount float64) {
	s := tx.edit()
	s.Money += amount
	if amount > 0 {
		s.TotalMoneyEarned += amount
		s.DailyStats.Revenue += amount
	}
}

// spend debits amount if the balance covers it.
func (tx *Tx) spend(amount float64) error {
	if tx.State().Money < amount {
		return ErrInsufficientFunds
	}
	tx.edit().Money -= amount
	return nil
}

// recordIncome attributes a gain to a long-horizon stats counter.
func (tx *Tx) recordIncome(source model.IncomeSource, amount float64) {
	if amount <= 0 {
		return
	}
	s := tx.edit()
	switch source {
	case model.SourceFoodtruck:
		s.Stats.FoodtruckIncome += amount
	case model.SourceFreelance:
		s.Stats.FreelanceIncome += amount
	case model.SourceFactory:
		s.Stats.FactoryIncome += amount
	}
}

func (tx *Tx) reportDay(stats model.DailyStats) {
	tx.dayReports = append(tx.dayReports, stats)
}

// cloneSlice copies in, keeping nil and empty distinct.
func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
