package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"tycoon-engine/internal/model"
)

func TestDefaultValidates(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("default catalog invalid: %v", err)
	}
	if len(c.Roles) != 8 {
		t.Fatalf("expected 8 roles, got %d", len(c.Roles))
	}
	junior, ok := c.Role(model.RoleDevJunior)
	if !ok || junior.BaseCost != 2000 || junior.BaseDailySalary != 100 {
		t.Fatalf("unexpected junior config: %+v", junior)
	}
	unlocked := 0
	for _, a := range c.Companies {
		if a.Unlocked {
			unlocked++
		}
	}
	if len(c.Companies) != 4 || unlocked != 1 {
		t.Fatalf("expected 4 companies with 1 unlocked, got %d/%d", len(c.Companies), unlocked)
	}
	if a, ok := c.Company(FoodtruckCompanyID); !ok || a.Type != model.JobFoodtruck {
		t.Fatalf("company %s should be the foodtruck, got %+v", FoodtruckCompanyID, a)
	}
}

func TestDefaultReturnsIndependentCopies(t *testing.T) {
	a := Default()
	b := Default()
	a.SetupCosts[model.SetupChair] = 1
	a.Companies[0].Name = "changed"
	if b.SetupCosts[model.SetupChair] != 2000 || b.Companies[0].Name == "changed" {
		t.Fatal("Default shares state between calls")
	}
}

func TestPrestigeAchievementID(t *testing.T) {
	item, ok := Default().PrestigeItem("WATCH")
	if !ok {
		t.Fatal("WATCH not found")
	}
	if item.AchievementID() != "PRESTIGE_WATCH" {
		t.Fatalf("got %s", item.AchievementID())
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	body := `
keyboard_cost: 7500
setup_costs:
  PC: 25000
roles:
  COOK:
    name: Chef
    base_cost: 800
    cost_factor: 1.5
    base_daily_salary: 70
    base_efficiency: 1
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.KeyboardCost != 7500 {
		t.Fatalf("keyboard cost = %v", c.KeyboardCost)
	}
	if cost, _ := c.SetupCost(model.SetupPC); cost != 25000 {
		t.Fatalf("PC cost = %v", cost)
	}
	if cost, _ := c.SetupCost(model.SetupChair); cost != 2000 {
		t.Fatalf("chair cost should keep its default, got %v", cost)
	}
	cook, _ := c.Role(model.RoleCook)
	if cook.BaseCost != 800 || cook.Role != model.RoleCook {
		t.Fatalf("cook override not applied: %+v", cook)
	}
	if _, ok := c.Role(model.RoleWorker); !ok {
		t.Fatal("untouched roles must survive an override")
	}
}

func TestLoadRejectsDuplicateCompanies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	body := `
companies:
  - {id: "1", type: CLOTHING_STORE, name: A, unlocked: true}
  - {id: "1", type: FREELANCE_DEV, name: B}
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected duplicate company ids to be rejected")
	}
}

func TestLoadOrDefaultEmptyPath(t *testing.T) {
	c, err := LoadOrDefault("")
	if err != nil || c == nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
}
