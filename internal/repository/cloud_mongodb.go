package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	"tycoon-engine/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names of the cloud document store.
const (
	CollectionPlayers  = "players"
	CollectionMarket   = "market"
	CollectionHoldings = "holdings"
	CollectionInvites  = "invites"
)

// MongoDBCloudRepository implements CloudRepository using MongoDB.
// Player documents are keyed by user id and exchanged as relaxed extended JSON
// so that numbers written as integers come back as integers.
type MongoDBCloudRepository struct {
	client   *mongo.Client
	db       *mongo.Database
	players  *mongo.Collection
	market   *mongo.Collection
	holdings *mongo.Collection
	invites  *mongo.Collection
}

// NewMongoDBCloudRepository connects to MongoDB and prepares the collections.
func NewMongoDBCloudRepository(uri, database string) (*MongoDBCloudRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(5 * time.Minute).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)
	r := &MongoDBCloudRepository{
		client:   client,
		db:       db,
		players:  db.Collection(CollectionPlayers),
		market:   db.Collection(CollectionMarket),
		holdings: db.Collection(CollectionHoldings),
		invites:  db.Collection(CollectionInvites),
	}

	indexes := []struct {
		coll *mongo.Collection
		keys bson.D
	}{
		{r.players, bson.D{{Key: "leaderboardStats.money", Value: -1}}},
		{r.market, bson.D{{Key: "timestamp", Value: -1}}},
		{r.holdings, bson.D{{Key: "totalValuation", Value: -1}}},
		{r.invites, bson.D{{Key: "toId", Value: 1}, {Key: "timestamp", Value: 1}}},
	}
	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: idx.keys}); err != nil {
			log.Printf("[MongoDB] Warning: failed to create index on %s: %v", idx.coll.Name(), err)
		}
	}

	log.Printf("[MongoDB] Connected to %s", database)
	return r, nil
}

// GetPlayer returns the player document as JSON, or nil if absent.
func (r *MongoDBCloudRepository) GetPlayer(ctx context.Context, userID string) ([]byte, error) {
	opts := options.FindOne().SetProjection(bson.M{"_id": 0})
	raw, err := r.players.FindOne(ctx, bson.M{"_id": userID}, opts).Raw()
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	doc, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, fmt.Errorf("failed to convert player to JSON: %w", err)
	}
	return doc, nil
}

// SetPlayer writes the player document, merging top-level fields when merge is set.
func (r *MongoDBCloudRepository) SetPlayer(ctx context.Context, userID string, doc []byte, merge bool) error {
	var fields bson.M
	if err := bson.UnmarshalExtJSON(doc, false, &fields); err != nil {
		return fmt.Errorf("failed to parse player JSON: %w", err)
	}
	delete(fields, "_id")

	filter := bson.M{"_id": userID}
	var err error
	if merge {
		_, err = r.players.UpdateOne(ctx, filter, bson.M{"$set": fields}, options.Update().SetUpsert(true))
	} else {
		_, err = r.players.ReplaceOne(ctx, filter, fields, options.Replace().SetUpsert(true))
	}
	if err != nil {
		return fmt.Errorf("failed to upsert player: %w", err)
	}
	return nil
}

// TopPlayers returns the n richest players.
func (r *MongoDBCloudRepository) TopPlayers(ctx context.Context, n int) ([]model.LeaderboardEntry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "leaderboardStats.money", Value: -1}}).
		SetLimit(int64(n)).
		SetProjection(bson.M{"leaderboardStats": 1})

	cursor, err := r.players.Find(ctx, bson.M{"leaderboardStats": bson.M{"$exists": true}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID    string                 `bson:"_id"`
		Stats model.LeaderboardStats `bson:"leaderboardStats"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode leaderboard: %w", err)
	}

	entries := make([]model.LeaderboardEntry, len(docs))
	for i, d := range docs {
		entries[i] = model.LeaderboardEntry{ID: d.ID, LeaderboardStats: d.Stats}
	}
	return entries, nil
}

// ListListings returns the n most recent listings.
func (r *MongoDBCloudRepository) ListListings(ctx context.Context, n int) ([]model.MarketItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(int64(n))
	cursor, err := r.market.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list market: %w", err)
	}
	defer cursor.Close(ctx)

	items := []model.MarketItem{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode market: %w", err)
	}
	return items, nil
}

// CreateListing inserts a listing.
func (r *MongoDBCloudRepository) CreateListing(ctx context.Context, item model.MarketItem) error {
	if _, err := r.market.InsertOne(ctx, item); err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

// GetListing returns a listing by id.
func (r *MongoDBCloudRepository) GetListing(ctx context.Context, id string) (*model.MarketItem, error) {
	var item model.MarketItem
	err := r.market.FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &item, nil
}

// DeleteListing removes a listing. Only one concurrent caller observes true.
func (r *MongoDBCloudRepository) DeleteListing(ctx context.Context, id string) (bool, error) {
	res, err := r.market.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("failed to delete listing: %w", err)
	}
	return res.DeletedCount == 1, nil
}

// TopHoldings returns the n most valuable holdings.
func (r *MongoDBCloudRepository) TopHoldings(ctx context.Context, n int) ([]model.Holding, error) {
	opts := options.Find().SetSort(bson.D{{Key: "totalValuation", Value: -1}}).SetLimit(int64(n))
	cursor, err := r.holdings.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	defer cursor.Close(ctx)

	holdings := []model.Holding{}
	if err := cursor.All(ctx, &holdings); err != nil {
		return nil, fmt.Errorf("failed to decode holdings: %w", err)
	}
	return holdings, nil
}

// CreateHolding inserts a holding.
func (r *MongoDBCloudRepository) CreateHolding(ctx context.Context, h model.Holding) error {
	if _, err := r.holdings.InsertOne(ctx, h); err != nil {
		return fmt.Errorf("failed to create holding: %w", err)
	}
	return nil
}

// GetHolding returns a holding by id.
func (r *MongoDBCloudRepository) GetHolding(ctx context.Context, id string) (*model.Holding, error) {
	var h model.Holding
	err := r.holdings.FindOne(ctx, bson.M{"_id": id}).Decode(&h)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}
	return &h, nil
}

// AddMember atomically bumps the member count and valuation of a holding.
func (r *MongoDBCloudRepository) AddMember(ctx context.Context, id string, valuation float64) error {
	update := bson.M{"$inc": bson.M{"membersCount": 1, "totalValuation": valuation}}
	res, err := r.holdings.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to join holding: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateInvite inserts an invitation.
func (r *MongoDBCloudRepository) CreateInvite(ctx context.Context, inv model.Invite) error {
	if _, err := r.invites.InsertOne(ctx, inv); err != nil {
		return fmt.Errorf("failed to create invite: %w", err)
	}
	return nil
}

// InvitesFor returns the invitations addressed to userID, oldest first.
func (r *MongoDBCloudRepository) InvitesFor(ctx context.Context, userID string) ([]model.Invite, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cursor, err := r.invites.Find(ctx, bson.M{"toId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	defer cursor.Close(ctx)

	invites := []model.Invite{}
	if err := cursor.All(ctx, &invites); err != nil {
		return nil, fmt.Errorf("failed to decode invites: %w", err)
	}
	return invites, nil
}

// GetInvite returns an invitation by id.
func (r *MongoDBCloudRepository) GetInvite(ctx context.Context, id string) (*model.Invite, error) {
	var inv model.Invite
	err := r.invites.FindOne(ctx, bson.M{"_id": id}).Decode(&inv)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}
	return &inv, nil
}

// DeleteInvite removes an invitation.
func (r *MongoDBCloudRepository) DeleteInvite(ctx context.Context, id string) (bool, error) {
	res, err := r.invites.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("failed to delete invite: %w", err)
	}
	return res.DeletedCount == 1, nil
}

// DeleteInvitesBefore removes invitations sent before cutoff.
func (r *MongoDBCloudRepository) DeleteInvitesBefore(ctx context.Context, cutoff int64) (int64, error) {
	res, err := r.invites.DeleteMany(ctx, bson.M{"timestamp": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired invites: %w", err)
	}
	if res.DeletedCount > 0 {
		log.Printf("[MongoDB] Cleaned up %d expired invites", res.DeletedCount)
	}
	return res.DeletedCount, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBCloudRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

var _ CloudRepository = (*MongoDBCloudRepository)(nil)
