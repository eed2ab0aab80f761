package model

// JobType identifies a company archetype.
type JobType string

const (
	JobClothingStore JobType = "CLOTHING_STORE"
	JobFreelanceDev  JobType = "FREELANCE_DEV"
	JobWebAgency     JobType = "WEB_AGENCY"
	JobFoodtruck     JobType = "FOODTRUCK"
	JobFactory       JobType = "FACTORY"
)

// EmployeeRole identifies a hireable role.
type EmployeeRole string

const (
	RoleCashier      EmployeeRole = "CASHIER"
	RoleStockManager EmployeeRole = "STOCK_MANAGER"
	RoleDevJunior    EmployeeRole = "DEV_JUNIOR"
	RoleDevSenior    EmployeeRole = "DEV_SENIOR"
	RoleCook         EmployeeRole = "COOK"
	RoleServer       EmployeeRole = "SERVER"
	RoleWorker       EmployeeRole = "WORKER"
	RoleLineManager  EmployeeRole = "LINE_MANAGER"
)

// SetupItem is a single-purchase freelance desk upgrade.
type SetupItem string

const (
	SetupChair  SetupItem = "CHAIR"
	SetupScreen SetupItem = "SCREEN"
	SetupCoffee SetupItem = "COFFEE"
	SetupPC     SetupItem = "PC"
)

// Ingredient is a foodtruck burger ingredient.
type Ingredient string

const (
	IngredientBun    Ingredient = "BUN"
	IngredientSteak  Ingredient = "STEAK"
	IngredientCheese Ingredient = "CHEESE"
	IngredientSalad  Ingredient = "SALAD"
	IngredientTomato Ingredient = "TOMATO"
	IngredientSauce  Ingredient = "SAUCE"
	IngredientOnion  Ingredient = "ONION"
	IngredientPickle Ingredient = "PICKLE"
	IngredientBacon  Ingredient = "BACON"
)

// AllIngredients lists every ingredient in display order.
var AllIngredients = []Ingredient{
	IngredientBun, IngredientSteak, IngredientCheese, IngredientSalad, IngredientTomato,
	IngredientSauce, IngredientOnion, IngredientPickle, IngredientBacon,
}

// FoodtruckUpgradeKind is one of the leveled foodtruck upgrades.
type FoodtruckUpgradeKind string

const (
	UpgradeGrill     FoodtruckUpgradeKind = "grill"
	UpgradeMarketing FoodtruckUpgradeKind = "marketing"
	UpgradeService   FoodtruckUpgradeKind = "service"
)

// IncomeSource attributes earnings to a long-horizon stats counter.
type IncomeSource string

const (
	SourceNone      IncomeSource = ""
	SourceFoodtruck IncomeSource = "foodtruck"
	SourceFreelance IncomeSource = "freelance"
	SourceFactory   IncomeSource = "factory"
)

// DefaultThemeID is always owned.
const DefaultThemeID = "DEFAULT"

// PrestigePrefix prefixes achievement ids granted by prestige purchases.
const PrestigePrefix = "PRESTIGE_"

// UserProfile is the player's public identity.
type UserProfile struct {
	Username     string `json:"username"`
	Title        string `json:"title"`
	AvatarID     string `json:"avatarId,omitempty"`
	HoldingID    string `json:"holdingId,omitempty"`
	CreationDate int64  `json:"creationDate,omitempty"`
}

// Employee belongs to exactly one company.
type Employee struct {
	ID          string       `json:"id"`
	Role        EmployeeRole `json:"role"`
	HiredAt     int64        `json:"hiredAt"`
	DailySalary float64      `json:"dailySalary"`
	Efficiency  float64      `json:"efficiency"`
	IsPaused    bool         `json:"isPaused"`
}

// Company is one unlockable business.
type Company struct {
	ID                   string     `json:"id"`
	Type                 JobType    `json:"type"`
	Name                 string     `json:"name"`
	Level                int        `json:"level"`
	Unlocked             bool       `json:"unlocked"`
	UnlockCost           float64    `json:"unlockCost"`
	BaseRevenuePerAction float64    `json:"baseRevenuePerAction"`
	RevenuePerSecond     float64    `json:"revenuePerSecond"`
	CostPerSecond        float64    `json:"costPerSecond"`
	NetProfitPerSecond   float64    `json:"netProfitPerSecond"`
	Employees            []Employee `json:"employees"`
}

// IngredientStats tracks per-ingredient mastery.
type IngredientStats struct {
	Level int `json:"level"`
	XP    int `json:"xp"`
	XPMax int `json:"xpMax"`
}

// DailyStats accumulates one in-game day.
type DailyStats struct {
	Day             int     `json:"day"`
	Revenue         float64 `json:"revenue"`
	Expenses        float64 `json:"expenses"`
	CustomersServed int     `json:"customersServed"`
}

// FoodtruckUpgrades holds foodtruck progression.
type FoodtruckUpgrades struct {
	GrillLevel          int          `json:"grillLevel"`
	MarketingLevel      int          `json:"marketingLevel"`
	ServiceLevel        int          `json:"serviceLevel"`
	UnlockedIngredients []Ingredient `json:"unlockedIngredients"`
	MaxServiceReached   int          `json:"maxServiceReached"`
	HasKeyboard         bool         `json:"hasKeyboard"`
}

// HasIngredient reports whether ing is unlocked.
func (u FoodtruckUpgrades) HasIngredient(ing Ingredient) bool {
	for _, have := range u.UnlockedIngredients {
		if have == ing {
			return true
		}
	}
	return false
}

// Level returns the level of the given upgrade kind, or 0 for an unknown kind.
func (u FoodtruckUpgrades) Level(kind FoodtruckUpgradeKind) int {
	switch kind {
	case UpgradeGrill:
		return u.GrillLevel
	case UpgradeMarketing:
		return u.MarketingLevel
	case UpgradeService:
		return u.ServiceLevel
	}
	return 0
}

// FreelanceUpgrades holds freelance agency progression.
type FreelanceUpgrades struct {
	ChairLevel         int      `json:"chairLevel"`
	ScreenLevel        int      `json:"screenLevel"`
	CoffeeLevel        int      `json:"coffeeLevel"`
	PCLevel            int      `json:"pcLevel"`
	BossBeaten         int      `json:"bossBeaten"`
	ContractsCompleted int      `json:"contractsCompleted"`
	OwnedThemes        []string `json:"ownedThemes"`
	ActiveThemeID      string   `json:"activeThemeId"`
}

// SetupLevel returns the level of a setup item, or -1 for an unknown item.
func (u FreelanceUpgrades) SetupLevel(item SetupItem) int {
	switch item {
	case SetupChair:
		return u.ChairLevel
	case SetupScreen:
		return u.ScreenLevel
	case SetupCoffee:
		return u.CoffeeLevel
	case SetupPC:
		return u.PCLevel
	}
	return -1
}

// OwnsTheme reports whether id is in OwnedThemes.
func (u FreelanceUpgrades) OwnsTheme(id string) bool {
	for _, t := range u.OwnedThemes {
		if t == id {
			return true
		}
	}
	return false
}

// TutoFlags records one-shot tutorial screens.
type TutoFlags struct {
	FoodtruckIntroSeen bool `json:"foodtruckIntroSeen"`
}

// Achievement is an append-only unlock record.
type Achievement struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Icon       string `json:"icon,omitempty"`
	UnlockedAt int64  `json:"unlockedAt,omitempty"`
}

// PlayerStats are long-horizon analytics counters.
type PlayerStats struct {
	FoodtruckIncome      float64 `json:"foodtruckIncome" bson:"foodtruckIncome"`
	FreelanceIncome      float64 `json:"freelanceIncome" bson:"freelanceIncome"`
	FactoryIncome        float64 `json:"factoryIncome" bson:"factoryIncome"`
	TotalPlayTimeMinutes float64 `json:"totalPlayTimeMinutes" bson:"totalPlayTimeMinutes"`
}

// GameState is one immutable snapshot of a player's progress.
// Published snapshots are shared between readers and must never be modified in place.
type GameState struct {
	User              *UserProfile                   `json:"user"`
	Money             float64                        `json:"money"`
	Gems              float64                        `json:"gems"`
	TotalMoneyEarned  float64                        `json:"totalMoneyEarned"`
	HasCompletedIntro bool                           `json:"hasCompletedIntro"`
	TutoFlags         TutoFlags                      `json:"tutoFlags"`
	Day               int                            `json:"day"`
	TimeOfDay         float64                        `json:"timeOfDay"`
	Companies         []Company                      `json:"companies"`
	FoodtruckMastery  map[Ingredient]IngredientStats `json:"foodtruckMastery"`
	FoodtruckUpgrades FoodtruckUpgrades              `json:"foodtruckUpgrades"`
	FreelanceUpgrades FreelanceUpgrades              `json:"freelanceUpgrades"`
	DailyStats        DailyStats                     `json:"dailyStats"`
	Achievements      []Achievement                  `json:"achievements"`
	Stats             PlayerStats                    `json:"stats"`
	LastSavedAt       int64                          `json:"lastSavedAt"`
	LastOnlineAt      int64                          `json:"lastOnlineAt"`
}

// CompanyIndex returns the index of the company with id, or -1.
func (s *GameState) CompanyIndex(id string) int {
	for i := range s.Companies {
		if s.Companies[i].ID == id {
			return i
		}
	}
	return -1
}

// HasAchievement reports whether an achievement id has been unlocked.
func (s *GameState) HasAchievement(id string) bool {
	for _, a := range s.Achievements {
		if a.ID == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy that the caller may modify freely.
func (s *GameState) Clone() *GameState {
	c := *s
	if s.User != nil {
		u := *s.User
		c.User = &u
	}
	c.Companies = CloneCompanies(s.Companies)
	if s.FoodtruckMastery != nil {
		c.FoodtruckMastery = make(map[Ingredient]IngredientStats, len(s.FoodtruckMastery))
		for k, v := range s.FoodtruckMastery {
			c.FoodtruckMastery[k] = v
		}
	}
	c.FoodtruckUpgrades.UnlockedIngredients = cloneSlice(s.FoodtruckUpgrades.UnlockedIngredients)
	c.FreelanceUpgrades.OwnedThemes = cloneSlice(s.FreelanceUpgrades.OwnedThemes)
	c.Achievements = cloneSlice(s.Achievements)
	return &c
}

// CloneCompanies deep-copies a company list including employee slices.
func CloneCompanies(in []Company) []Company {
	if in == nil {
		return nil
	}
	out := make([]Company, len(in))
	for i, c := range in {
		out[i] = c
		out[i].Employees = cloneSlice(c.Employees)
	}
	return out
}

// cloneSlice copies in, keeping nil and empty distinct so JSON output is stable.
func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
