// Package dividend persists dividend announcements in MongoDB. The
// collection is replaced wholesale on every ingestion run.
package dividend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const DefaultCollection = "dividend_events"

// Event is one dividend announcement. Dates are optional.
type Event struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Symbol        string             `bson:"symbol" json:"symbol"`
	Title         string             `bson:"title" json:"title"`
	CompanyName   string             `bson:"company_name" json:"company_name"`
	Type          string             `bson:"type" json:"type"`
	Floor         string             `bson:"floor" json:"floor"`
	PublishedDate *time.Time         `bson:"published_date" json:"published_date"`
	RecordDate    *time.Time         `bson:"record_date" json:"record_date"`
	ExrightDate   *time.Time         `bson:"exright_date" json:"exright_date"`
	PayoutDate    *time.Time         `bson:"payout_date" json:"payout_date"`
}

// Store is the document store for dividend events.
type Store interface {
	Replace(ctx context.Context, events []Event) (int, error)
	Find(ctx context.Context, symbol string) ([]Event, error)
}

// Config locates the collection.
type Config struct {
	URI        string `json:",optional"`
	Database   string `json:",default=admin"`
	Collection string `json:",default=dividend_events"`
}

func (c Config) Configured() bool { return strings.TrimSpace(c.URI) != "" }

// MongoStore implements Store on a single collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Connect dials MongoDB and pings it.
func Connect(ctx context.Context, cfg Config) (*MongoStore, error) {
	if !cfg.Configured() {
		return nil, errors.New("dividend: mongo uri not configured")
	}
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI).SetServerAPIOptions(serverAPI))
	if err != nil {
		return nil, fmt.Errorf("dividend: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("dividend: ping: %w", err)
	}
	name := cfg.Collection
	if name == "" {
		name = DefaultCollection
	}
	return NewMongoStore(client, client.Database(cfg.Database).Collection(name)), nil
}

func NewMongoStore(client *mongo.Client, coll *mongo.Collection) *MongoStore {
	return &MongoStore{client: client, coll: coll}
}

// Replace clears the collection and inserts events. It returns the number of
// inserted documents.
func (s *MongoStore) Replace(ctx context.Context, events []Event) (int, error) {
	if _, err := s.coll.DeleteMany(ctx, bson.D{}); err != nil {
		return 0, fmt.Errorf("dividend: clear collection: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}
	docs := make([]any, len(events))
	for i := range events {
		ev := events[i]
		ev.ID = primitive.NilObjectID
		docs[i] = ev
	}
	res, err := s.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		inserted := 0
		if res != nil {
			inserted = len(res.InsertedIDs)
		}
		return inserted, fmt.Errorf("dividend: insert: %w", err)
	}
	return len(res.InsertedIDs), nil
}

// Find returns events for symbol, or every event with a symbol when symbol
// is empty, newest publication first.
func (s *MongoStore) Find(ctx context.Context, symbol string) ([]Event, error) {
	filter := bson.D{{Key: "symbol", Value: bson.D{{Key: "$ne", Value: nil}}}}
	if symbol = strings.TrimSpace(symbol); symbol != "" {
		filter = bson.D{{Key: "symbol", Value: strings.ToUpper(symbol)}}
	}
	opts := options.Find().SetSort(bson.D{{Key: "published_date", Value: -1}})
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("dividend: find: %w", err)
	}
	defer cur.Close(ctx)
	var events []Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("dividend: decode: %w", err)
	}
	return events, nil
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
