package model

// Market listing rarities.
const (
	RarityCommon    = "COMMON"
	RarityRare      = "RARE"
	RarityLegendary = "LEGENDARY"
)

// Public event kinds shown in the global ticker.
const (
	EventWin     = "win"
	EventInfo    = "info"
	EventJackpot = "jackpot"
)

// MarketItem is a listing in the shared market collection.
type MarketItem struct {
	ID         string  `json:"id" bson:"_id"`
	SellerID   string  `json:"sellerId" bson:"sellerId"`
	SellerName string  `json:"sellerName" bson:"sellerName"`
	Type       string  `json:"type" bson:"type"`
	Price      float64 `json:"price" bson:"price"`
	Timestamp  int64   `json:"timestamp" bson:"timestamp"`
	Rarity     string  `json:"rarity,omitempty" bson:"rarity,omitempty"`
}

// Holding is a player guild.
type Holding struct {
	ID             string  `json:"id" bson:"_id"`
	Name           string  `json:"name" bson:"name"`
	LeaderName     string  `json:"leaderName" bson:"leaderName"`
	TotalValuation float64 `json:"totalValuation" bson:"totalValuation"`
	MembersCount   int     `json:"membersCount" bson:"membersCount"`
	Icon           string  `json:"icon" bson:"icon"`
}

// Invite is a directed duel invitation.
type Invite struct {
	ID        string  `json:"id" bson:"_id"`
	FromID    string  `json:"fromId" bson:"fromId"`
	FromName  string  `json:"fromName" bson:"fromName"`
	ToID      string  `json:"toId" bson:"toId"`
	GameType  string  `json:"gameType" bson:"gameType"`
	Amount    float64 `json:"amount" bson:"amount"`
	Timestamp int64   `json:"timestamp" bson:"timestamp"`
}

// PublicEvent is one entry of the global ticker feed.
type PublicEvent struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Username  string `json:"username,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// LeaderboardStats is the denormalized summary stored on every player document.
type LeaderboardStats struct {
	Money        float64     `json:"money" bson:"money"`
	Prestige     int         `json:"prestige" bson:"prestige"`
	Username     string      `json:"username" bson:"username"`
	CreationDate int64       `json:"creationDate" bson:"creationDate"`
	HoldingID    string      `json:"holdingId,omitempty" bson:"holdingId,omitempty"`
	Stats        PlayerStats `json:"stats" bson:"stats"`
}

// LeaderboardEntry is one row of a top-N leaderboard query.
type LeaderboardEntry struct {
	ID string `json:"id"`
	LeaderboardStats
}

// PlayerDocument is the remote per-user document: the game state plus derived fields.
type PlayerDocument struct {
	*GameState
	LeaderboardStats LeaderboardStats `json:"leaderboardStats"`
	LastUpdated      int64            `json:"lastUpdated"`
}

// NewPlayerDocument derives the remote document for a snapshot.
func NewPlayerDocument(s *GameState, now int64) PlayerDocument {
	ls := LeaderboardStats{
		Money:        s.Money,
		Prestige:     s.FreelanceUpgrades.BossBeaten,
		Username:     "Anonymous",
		CreationDate: now,
		Stats:        s.Stats,
	}
	if s.User != nil {
		if s.User.Username != "" {
			ls.Username = s.User.Username
		}
		if s.User.CreationDate != 0 {
			ls.CreationDate = s.User.CreationDate
		}
		ls.HoldingID = s.User.HoldingID
	}
	return PlayerDocument{GameState: s, LeaderboardStats: ls, LastUpdated: now}
}
