// Package catalog holds the static economy tables: employee roles, company
// archetypes, shop items and their prices.
package catalog

import (
	"fmt"
	"os"

	"tycoon-engine/internal/model"

	"gopkg.in/yaml.v3"
)

const (
	// HireCostFactor is the growth applied per employee already hired in a role.
	HireCostFactor = 1.5

	// FoodtruckCompanyID is the company force-unlocked by the intro.
	FoodtruckCompanyID = "3"
)

// RoleConfig describes the cost, salary and efficiency curves of a role.
type RoleConfig struct {
	Role             model.EmployeeRole `yaml:"role" json:"role"`
	Name             string             `yaml:"name" json:"name"`
	BaseCost         float64            `yaml:"base_cost" json:"baseCost"`
	CostFactor       float64            `yaml:"cost_factor" json:"costFactor"`
	BaseDailySalary  float64            `yaml:"base_daily_salary" json:"baseDailySalary"`
	SalaryFactor     float64            `yaml:"salary_factor" json:"salaryFactor"`
	BaseEfficiency   float64            `yaml:"base_efficiency" json:"baseEfficiency"`
	EfficiencyFactor float64            `yaml:"efficiency_factor" json:"efficiencyFactor"`
	Description      string             `yaml:"description" json:"description"`
}

// CompanyArchetype is instantiated once in the default state.
type CompanyArchetype struct {
	ID                   string        `yaml:"id" json:"id"`
	Type                 model.JobType `yaml:"type" json:"type"`
	Name                 string        `yaml:"name" json:"name"`
	Unlocked             bool          `yaml:"unlocked" json:"unlocked"`
	UnlockCost           float64       `yaml:"unlock_cost" json:"unlockCost"`
	BaseRevenuePerAction float64       `yaml:"base_revenue_per_action" json:"baseRevenuePerAction"`
}

// Theme is a purchasable freelance editor theme.
type Theme struct {
	ID   string  `yaml:"id" json:"id"`
	Name string  `yaml:"name" json:"name"`
	Cost float64 `yaml:"cost" json:"cost"`
}

// PrestigeItem is a one-time luxury purchase recorded as an achievement.
type PrestigeItem struct {
	ID          string  `yaml:"id" json:"id"`
	Name        string  `yaml:"name" json:"name"`
	Icon        string  `yaml:"icon" json:"icon"`
	Cost        float64 `yaml:"cost" json:"cost"`
	Description string  `yaml:"description" json:"description"`
}

// AchievementID returns the achievement id granted by buying the item.
func (p PrestigeItem) AchievementID() string {
	return model.PrestigePrefix + p.ID
}

// Catalog is the full set of economy tables.
type Catalog struct {
	Roles                  map[model.EmployeeRole]RoleConfig `yaml:"roles" json:"roles"`
	Companies              []CompanyArchetype                `yaml:"companies" json:"companies"`
	Themes                 []Theme                           `yaml:"themes" json:"themes"`
	Prestige               []PrestigeItem                    `yaml:"prestige" json:"prestige"`
	SetupCosts             map[model.SetupItem]float64       `yaml:"setup_costs" json:"setupCosts"`
	IngredientCosts        map[model.Ingredient]float64      `yaml:"ingredient_costs" json:"ingredientCosts"`
	KeyboardCost           float64                           `yaml:"keyboard_cost" json:"keyboardCost"`
	FoodtruckUpgradeBase   float64                           `yaml:"foodtruck_upgrade_base" json:"foodtruckUpgradeBase"`
	FoodtruckUpgradeFactor float64                           `yaml:"foodtruck_upgrade_factor" json:"foodtruckUpgradeFactor"`
	MaxEmployeesPerRole    int                               `yaml:"max_employees_per_role" json:"maxEmployeesPerRole"`
}

// Default returns the built-in economy tables. Each call returns a fresh copy.
func Default() *Catalog {
	return &Catalog{
		Roles: map[model.EmployeeRole]RoleConfig{
			model.RoleDevJunior:    {model.RoleDevJunior, "Intern", 2000, 1.5, 100, 1.2, 1, 1.2, "Codes slowly"},
			model.RoleDevSenior:    {model.RoleDevSenior, "Lead Dev", 10000, 1.6, 800, 1.3, 4, 1.4, "Codes fast, lands big contracts"},
			model.RoleCook:         {model.RoleCook, "Cook", 500, 1.55, 50, 1.2, 1, 1.1, "Cooking"},
			model.RoleServer:       {model.RoleServer, "Waiter", 300, 1.6, 40, 1.15, 5, 1.05, "Service"},
			model.RoleCashier:      {model.RoleCashier, "Cashier", 200, 1.4, 30, 1.1, 1, 1.1, "Checkout"},
			model.RoleStockManager: {model.RoleStockManager, "Stock Clerk", 500, 1.4, 60, 1.1, 1, 1.1, "Stock"},
			model.RoleWorker:       {model.RoleWorker, "Worker", 2000, 1.4, 200, 1.1, 1, 1.1, "Production"},
			model.RoleLineManager:  {model.RoleLineManager, "Line Manager", 10000, 1.5, 1000, 1.2, 1, 1.2, "Supervision"},
		},
		Companies: []CompanyArchetype{
			{ID: "1", Type: model.JobClothingStore, Name: "Thrift Shop", Unlocked: true, UnlockCost: 0, BaseRevenuePerAction: 10},
			{ID: "2", Type: model.JobFreelanceDev, Name: "Web Agency", UnlockCost: 1000, BaseRevenuePerAction: 10},
			{ID: FoodtruckCompanyID, Type: model.JobFoodtruck, Name: "Burger Truck", UnlockCost: 5000, BaseRevenuePerAction: 10},
			{ID: "4", Type: model.JobFactory, Name: "Car Factory", UnlockCost: 20000, BaseRevenuePerAction: 10},
		},
		Themes: []Theme{
			{ID: model.DefaultThemeID, Name: "VS Code Dark", Cost: 0},
			{ID: "MATRIX", Name: "The Matrix", Cost: 2500},
			{ID: "DRACULA", Name: "Dracula", Cost: 5000},
			{ID: "SOLARIZED", Name: "Solarized Light", Cost: 10000},
		},
		Prestige: []PrestigeItem{
			{ID: "WATCH", Name: "Gold Watch", Icon: "⌚", Cost: 5000, Description: "Time is money."},
			{ID: "CAR", Name: "Electric Sedan", Icon: "🚗", Cost: 45000, Description: "Zero emissions, all style."},
			{ID: "APARTMENT", Name: "Penthouse", Icon: "🏢", Cost: 250000, Description: "A view over your whole empire."},
			{ID: "ISLAND", Name: "Private Island", Icon: "🏝️", Cost: 5000000, Description: "Early retirement."},
		},
		SetupCosts: map[model.SetupItem]float64{
			model.SetupChair:  2000,
			model.SetupScreen: 5000,
			model.SetupCoffee: 1500,
			model.SetupPC:     20000,
		},
		IngredientCosts: map[model.Ingredient]float64{
			model.IngredientSalad:  150,
			model.IngredientCheese: 250,
			model.IngredientOnion:  300,
			model.IngredientTomato: 400,
			model.IngredientPickle: 500,
			model.IngredientSauce:  600,
			model.IngredientBacon:  1200,
		},
		KeyboardCost:           5000,
		FoodtruckUpgradeBase:   150,
		FoodtruckUpgradeFactor: 1.6,
		MaxEmployeesPerRole:    20,
	}
}

// Load reads a YAML override file on top of Default. Top-level keys present in
// the file replace the default value for that key; map entries are replaced
// one by one.
func Load(path string) (*Catalog, error) {
	c := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Validate checks the cross-table constraints the game relies on.
func (c *Catalog) Validate() error {
	for role, cfg := range c.Roles {
		if cfg.Role == "" {
			cfg.Role = role
			c.Roles[role] = cfg
		}
		if cfg.Role != role {
			return fmt.Errorf("role %s: mismatched role field %s", role, cfg.Role)
		}
		if cfg.BaseCost <= 0 {
			return fmt.Errorf("role %s: base_cost must be positive", role)
		}
		if cfg.BaseDailySalary < 0 {
			return fmt.Errorf("role %s: base_daily_salary must not be negative", role)
		}
	}

	seen := make(map[string]bool, len(c.Companies))
	for _, a := range c.Companies {
		if a.ID == "" {
			return fmt.Errorf("company with empty id")
		}
		if seen[a.ID] {
			return fmt.Errorf("duplicate company id %q", a.ID)
		}
		seen[a.ID] = true
	}

	if _, ok := c.Theme(model.DefaultThemeID); !ok {
		return fmt.Errorf("theme %s is required", model.DefaultThemeID)
	}
	if c.MaxEmployeesPerRole <= 0 {
		return fmt.Errorf("max_employees_per_role must be positive")
	}
	if c.FoodtruckUpgradeFactor < 1 {
		return fmt.Errorf("foodtruck_upgrade_factor must be at least 1")
	}
	return nil
}

// Role looks up a role configuration.
func (c *Catalog) Role(role model.EmployeeRole) (RoleConfig, bool) {
	cfg, ok := c.Roles[role]
	return cfg, ok
}

// Company looks up a company archetype by id.
func (c *Catalog) Company(id string) (CompanyArchetype, bool) {
	for _, a := range c.Companies {
		if a.ID == id {
			return a, true
		}
	}
	return CompanyArchetype{}, false
}

// Theme looks up a theme by id.
func (c *Catalog) Theme(id string) (Theme, bool) {
	for _, t := range c.Themes {
		if t.ID == id {
			return t, true
		}
	}
	return Theme{}, false
}

// PrestigeItem looks up a prestige item by id.
func (c *Catalog) PrestigeItem(id string) (PrestigeItem, bool) {
	for _, p := range c.Prestige {
		if p.ID == id {
			return p, true
		}
	}
	return PrestigeItem{}, false
}

// SetupCost returns the price of a freelance setup item.
func (c *Catalog) SetupCost(item model.SetupItem) (float64, bool) {
	cost, ok := c.SetupCosts[item]
	return cost, ok
}

// IngredientCost returns the shop price of an ingredient. Starting ingredients
// have no price.
func (c *Catalog) IngredientCost(ing model.Ingredient) (float64, bool) {
	cost, ok := c.IngredientCosts[ing]
	return cost, ok
}

// LoadOrDefault returns Load(path) when path is set, Default otherwise.
func LoadOrDefault(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}
