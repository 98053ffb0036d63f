// Package archive stores every successful raw provider fetch in MongoDB.
// Records are only ever inserted.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/skyventures840/skybet/pkg/contracts"
	"github.com/skyventures840/skybet/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the collection raw fetches are appended to
const CollectionName = "odds_fetches"

// inserter is the subset of *mongo.Collection the archive needs
type inserter interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// MongoArchive appends fetch records to a Mongo collection
type MongoArchive struct {
	collection inserter
	now        func() time.Time
}

var _ contracts.FetchArchive = (*MongoArchive)(nil)

// NewMongoArchive creates an archive writing to collection
func NewMongoArchive(collection *mongo.Collection) *MongoArchive {
	return newMongoArchive(collection)
}

func newMongoArchive(collection inserter) *MongoArchive {
	return &MongoArchive{
		collection: collection,
		now:        time.Now,
	}
}

// Append inserts record, filling in its id and fetch time when unset
func (a *MongoArchive) Append(ctx context.Context, record models.FetchRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.FetchedAt.IsZero() {
		record.FetchedAt = a.now().UTC()
	}

	if _, err := a.collection.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("insert fetch record %s: %w", record.ID, err)
	}
	return nil
}

// Connect opens a Mongo client, verifies it with a ping and makes sure the
// archive indexes exist
func Connect(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Collection, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	collection := client.Database(database).Collection(CollectionName)

	_, err = collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sport", Value: 1}, {Key: "fetched_at", Value: -1}}},
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("create archive indexes: %w", err)
	}

	return client, collection, nil
}
