// Package economy contains the pure calculators behind hiring, payroll,
// passive income and the in-game clock.
package economy

import (
	"math"

	"tycoon-engine/internal/catalog"
	"tycoon-engine/internal/model"
)

// HoursPerTick is the default in-game time advanced by one tick.
const HoursPerTick = 1.0 / 60.0

// HoursPerDay is the length of an in-game day.
const HoursPerDay = 24.0

const (
	juniorBaseChance     = 0.05
	juniorChancePerEff   = 0.01
	juniorPayoutPerEff   = 100.0
	seniorBaseChance     = 0.02
	seniorChancePerEff   = 0.005
	seniorPayoutPerEff   = 1500.0
	passiveProfitDivisor = 10.0
	screenBonusPerLevel  = 0.5
	masteryXPGrowth      = 1.5
	trainingBaseCost     = 500.0
	trainingCostFactor   = 1.5
)

// Rand is the random source used for probabilistic payouts.
// *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// GeometricCost returns floor(base * factor^count).
func GeometricCost(base, factor float64, count int) float64 {
	if count < 0 {
		count = 0
	}
	return math.Floor(base * math.Pow(factor, float64(count)))
}

// CountRole returns how many employees of role work at c.
func CountRole(c model.Company, role model.EmployeeRole) int {
	n := 0
	for _, e := range c.Employees {
		if e.Role == role {
			n++
		}
	}
	return n
}

// NextHireCost prices the next hire of a role given how many are already employed.
func NextHireCost(cfg catalog.RoleConfig, count int) float64 {
	return GeometricCost(cfg.BaseCost, catalog.HireCostFactor, count)
}

// FoodtruckUpgradeCost prices the next level of a foodtruck upgrade at its current level.
func FoodtruckUpgradeCost(cat *catalog.Catalog, level int) float64 {
	return GeometricCost(cat.FoodtruckUpgradeBase, cat.FoodtruckUpgradeFactor, level)
}

// TrainingCost prices one efficiency point for an employee at efficiency eff.
func TrainingCost(eff float64) float64 {
	return math.Floor(trainingBaseCost * math.Pow(trainingCostFactor, eff))
}

// Payroll sums the daily salary of every employee, paused ones included.
func Payroll(companies []model.Company) float64 {
	total := 0.0
	for _, c := range companies {
		for _, e := range c.Employees {
			total += e.DailySalary
		}
	}
	return total
}

// FreelanceChance returns the per-tick success probability of a freelance
// developer. ok is false for roles that never produce freelance payouts.
func FreelanceChance(e model.Employee) (chance float64, ok bool) {
	switch e.Role {
	case model.RoleDevJunior:
		return juniorBaseChance + e.Efficiency*juniorChancePerEff, true
	case model.RoleDevSenior:
		return seniorBaseChance + e.Efficiency*seniorChancePerEff, true
	}
	return 0, false
}

// FreelancePayout returns the lump sum paid when a freelance developer's roll succeeds.
func FreelancePayout(e model.Employee) float64 {
	switch e.Role {
	case model.RoleDevJunior:
		return juniorPayoutPerEff * e.Efficiency
	case model.RoleDevSenior:
		return seniorPayoutPerEff * e.Efficiency
	}
	return 0
}

// RollFreelance performs one Bernoulli trial for e and returns the payout, or 0.
// Paused employees never roll.
func RollFreelance(e model.Employee, rnd Rand) float64 {
	if e.IsPaused {
		return 0
	}
	chance, ok := FreelanceChance(e)
	if !ok {
		return 0
	}
	if rnd.Float64() < chance {
		return FreelancePayout(e)
	}
	return 0
}

// SourceFor maps a company archetype to its stats income source.
func SourceFor(t model.JobType) model.IncomeSource {
	switch t {
	case model.JobFoodtruck:
		return model.SourceFoodtruck
	case model.JobFreelanceDev:
		return model.SourceFreelance
	case model.JobFactory:
		return model.SourceFactory
	}
	return model.SourceNone
}

// Income is the passive income produced by one tick.
type Income struct {
	Total    float64
	BySource map[model.IncomeSource]float64
}

// PassiveIncome computes one tick of passive income. Only unlocked companies
// with at least one employee produce. Freelance agencies roll per employee;
// every other archetype yields a tenth of its externally reported net profit.
func PassiveIncome(companies []model.Company, rnd Rand) Income {
	inc := Income{BySource: make(map[model.IncomeSource]float64)}
	for _, c := range companies {
		if !c.Unlocked || len(c.Employees) == 0 {
			continue
		}
		amount := 0.0
		if c.Type == model.JobFreelanceDev {
			for _, e := range c.Employees {
				amount += RollFreelance(e, rnd)
			}
		} else {
			amount = c.NetProfitPerSecond / passiveProfitDivisor
		}
		inc.Total += amount
		inc.BySource[SourceFor(c.Type)] += amount
	}
	return inc
}

// AdvanceClock moves timeOfDay forward by hours. When the day boundary is
// reached the time wraps to 0 and wrapped is true.
func AdvanceClock(timeOfDay, hours float64) (next float64, wrapped bool) {
	next = timeOfDay + hours
	if next >= HoursPerDay {
		return 0, true
	}
	return next, false
}

// GainIngredientXP adds one point of mastery xp, levelling up when xpMax is reached.
func GainIngredientXP(s model.IngredientStats) (model.IngredientStats, bool) {
	s.XP++
	if s.XP >= s.XPMax {
		s.Level++
		s.XP = 0
		s.XPMax = int(math.Floor(float64(s.XPMax) * masteryXPGrowth))
		return s, true
	}
	return s, false
}

// ScreenBonus is the extra contract reward granted by the screen upgrade.
func ScreenBonus(base float64, screenLevel int) float64 {
	return base * float64(screenLevel) * screenBonusPerLevel
}

// ContractReward is the payout of a completed freelance contract.
func ContractReward(base float64, screenLevel int, combo int) float64 {
	return base + ScreenBonus(base, screenLevel) + float64(combo)
}

// comboUnlocks lists the ingredients unlocked by reaching a service combo.
var comboUnlocks = []struct {
	combo int
	ing   model.Ingredient
}{
	{6, model.IngredientPickle},
	{10, model.IngredientTomato},
	{15, model.IngredientSauce},
}

// ComboUnlocks returns the ingredients earned by reaching combo.
func ComboUnlocks(combo int) []model.Ingredient {
	var out []model.Ingredient
	for _, u := range comboUnlocks {
		if combo >= u.combo {
			out = append(out, u.ing)
		}
	}
	return out
}
