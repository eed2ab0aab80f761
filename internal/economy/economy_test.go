package economy

import (
	"math"
	"testing"

	"tycoon-engine/internal/catalog"
	"tycoon-engine/internal/model"
)

// seqRand returns its values in order, repeating the last one.
type seqRand struct {
	vals []float64
	i    int
}

func (r *seqRand) Float64() float64 {
	v := r.vals[r.i]
	if r.i < len(r.vals)-1 {
		r.i++
	}
	return v
}

func TestNextHireCostFollowsGeometricCurve(t *testing.T) {
	cfg, _ := catalog.Default().Role(model.RoleDevJunior)
	prev := -1.0
	for count := 0; count < 15; count++ {
		got := NextHireCost(cfg, count)
		want := math.Floor(cfg.BaseCost * math.Pow(1.5, float64(count)))
		if got != want {
			t.Fatalf("count %d: expected %v got %v", count, want, got)
		}
		if got <= prev {
			t.Fatalf("count %d: cost %v not greater than %v", count, got, prev)
		}
		prev = got
	}
	if NextHireCost(cfg, 1) != 3000 {
		t.Fatalf("expected second junior to cost 3000")
	}
}

func TestCountRoleIgnoresOtherRoles(t *testing.T) {
	c := model.Company{Employees: []model.Employee{
		{Role: model.RoleDevJunior}, {Role: model.RoleDevSenior}, {Role: model.RoleDevJunior},
	}}
	if CountRole(c, model.RoleDevJunior) != 2 || CountRole(c, model.RoleDevSenior) != 1 || CountRole(c, model.RoleCook) != 0 {
		t.Fatalf("unexpected role counts")
	}
}

func TestFoodtruckUpgradeCost(t *testing.T) {
	cat := catalog.Default()
	if got := FoodtruckUpgradeCost(cat, 1); got != 240 {
		t.Fatalf("level 1: expected 240 got %v", got)
	}
	if got := FoodtruckUpgradeCost(cat, 2); got != 384 {
		t.Fatalf("level 2: expected 384 got %v", got)
	}
}

func TestPayrollIncludesPausedEmployees(t *testing.T) {
	companies := []model.Company{
		{Employees: []model.Employee{{DailySalary: 100}, {DailySalary: 50, IsPaused: true}}},
		{Employees: []model.Employee{{DailySalary: 800}}},
		{},
	}
	if got := Payroll(companies); got != 950 {
		t.Fatalf("expected 950 got %v", got)
	}
}

func TestFreelanceChance(t *testing.T) {
	c, ok := FreelanceChance(model.Employee{Role: model.RoleDevJunior, Efficiency: 1})
	if !ok || math.Abs(c-0.06) > 1e-12 {
		t.Fatalf("junior chance: %v", c)
	}
	c, ok = FreelanceChance(model.Employee{Role: model.RoleDevSenior, Efficiency: 2})
	if !ok || math.Abs(c-0.03) > 1e-12 {
		t.Fatalf("senior chance: %v", c)
	}
	if _, ok := FreelanceChance(model.Employee{Role: model.RoleCook, Efficiency: 1}); ok {
		t.Fatalf("cook should not roll")
	}
}

func TestRollFreelance(t *testing.T) {
	junior := model.Employee{Role: model.RoleDevJunior, Efficiency: 3}
	if got := RollFreelance(junior, &seqRand{vals: []float64{0.079}}); got != 300 {
		t.Fatalf("expected 300 payout, got %v", got)
	}
	if got := RollFreelance(junior, &seqRand{vals: []float64{0.081}}); got != 0 {
		t.Fatalf("roll above chance must fail, got %v", got)
	}
	junior.IsPaused = true
	if got := RollFreelance(junior, &seqRand{vals: []float64{0}}); got != 0 {
		t.Fatalf("paused employee paid %v", got)
	}
}

func TestPassiveIncome(t *testing.T) {
	companies := []model.Company{
		{Type: model.JobClothingStore, Unlocked: true, NetProfitPerSecond: 50, Employees: []model.Employee{{Role: model.RoleCashier}}},
		{Type: model.JobFreelanceDev, Unlocked: true, Employees: []model.Employee{
			{Role: model.RoleDevJunior, Efficiency: 1},
			{Role: model.RoleDevSenior, Efficiency: 1},
			{Role: model.RoleDevJunior, Efficiency: 1, IsPaused: true},
		}},
		{Type: model.JobFoodtruck, Unlocked: false, NetProfitPerSecond: 1000, Employees: []model.Employee{{Role: model.RoleCook}}},
		{Type: model.JobFactory, Unlocked: true, NetProfitPerSecond: 1000},
	}
	inc := PassiveIncome(companies, &seqRand{vals: []float64{0}})
	want := 5.0 + 100 + 1500
	if inc.Total != want {
		t.Fatalf("expected total %v got %v", want, inc.Total)
	}
	if inc.BySource[model.SourceFreelance] != 1600 || inc.BySource[model.SourceNone] != 5 {
		t.Fatalf("unexpected breakdown: %+v", inc.BySource)
	}
	if _, ok := inc.BySource[model.SourceFactory]; ok {
		t.Fatalf("factory without employees must not produce")
	}
}

func TestAdvanceClock(t *testing.T) {
	next, wrapped := AdvanceClock(6, HoursPerTick)
	if wrapped || math.Abs(next-(6+1.0/60)) > 1e-12 {
		t.Fatalf("unexpected advance: %v %v", next, wrapped)
	}
	next, wrapped = AdvanceClock(24-HoursPerTick/2, HoursPerTick)
	if !wrapped || next != 0 {
		t.Fatalf("expected wrap to 0, got %v %v", next, wrapped)
	}
	tod := 0.0
	wraps := 0
	for i := 0; i < 24*60*3; i++ {
		tod, wrapped = AdvanceClock(tod, HoursPerTick)
		if tod < 0 || tod >= HoursPerDay {
			t.Fatalf("tick %d: time of day %v out of range", i, tod)
		}
		if wrapped {
			wraps++
		}
	}
	if wraps < 2 || wraps > 3 {
		t.Fatalf("expected about 3 wraps over 3 days of ticks, got %d", wraps)
	}
}

func TestGainIngredientXP(t *testing.T) {
	s := model.IngredientStats{Level: 1, XP: 0, XPMax: 5}
	for i := 0; i < 4; i++ {
		var up bool
		s, up = GainIngredientXP(s)
		if up {
			t.Fatalf("levelled up early at step %d", i)
		}
	}
	s, up := GainIngredientXP(s)
	if !up || s.Level != 2 || s.XP != 0 || s.XPMax != 7 {
		t.Fatalf("unexpected level up result: %+v", s)
	}
}

func TestContractReward(t *testing.T) {
	if got := ContractReward(1000, 0, 3); got != 1003 {
		t.Fatalf("expected 1003 got %v", got)
	}
	if got := ContractReward(1000, 1, 0); got != 1500 {
		t.Fatalf("expected 1500 got %v", got)
	}
}

func TestComboUnlocks(t *testing.T) {
	if got := ComboUnlocks(5); len(got) != 0 {
		t.Fatalf("expected nothing at combo 5, got %v", got)
	}
	got := ComboUnlocks(10)
	if len(got) != 2 || got[0] != model.IngredientPickle || got[1] != model.IngredientTomato {
		t.Fatalf("unexpected unlocks at 10: %v", got)
	}
	if len(ComboUnlocks(15)) != 3 {
		t.Fatalf("expected three unlocks at 15")
	}
}

func TestTrainingCost(t *testing.T) {
	if got := TrainingCost(1); got != 750 {
		t.Fatalf("expected 750 got %v", got)
	}
	if got := TrainingCost(2); got != 1125 {
		t.Fatalf("expected 1125 got %v", got)
	}
}
