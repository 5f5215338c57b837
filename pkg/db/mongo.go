package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"news-crawler/pkg/domain"
)

// ErrNotConnected is returned when a store is used before Connect succeeded.
var ErrNotConnected = errors.New("database not connected")

// Client archives snapshots in a MongoDB collection, one document each.
type Client struct {
	mongoClient *mongo.Client
	collection  *mongo.Collection
}

// NewClient creates a MongoDB client for the given database and collection.
// No network round trip happens until Connect.
func NewClient(connectionString, databaseName, collectionName string) (*Client, error) {
	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(connectionString))
	if err != nil {
		return nil, fmt.Errorf("create mongo client: %w", err)
	}
	return &Client{
		mongoClient: mongoClient,
		collection:  mongoClient.Database(databaseName).Collection(collectionName),
	}, nil
}

// Connect verifies the server is reachable.
func (c *Client) Connect(ctx context.Context) error {
	if c.mongoClient == nil {
		return ErrNotConnected
	}
	if err := c.mongoClient.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}
	return nil
}

// Close disconnects from MongoDB.
func (c *Client) Close(ctx context.Context) error {
	if c.mongoClient == nil {
		return nil
	}
	return c.mongoClient.Disconnect(ctx)
}

// SaveSnapshot upserts the snapshot document by id and returns the id.
func (c *Client) SaveSnapshot(ctx context.Context, snap *domain.Snapshot) (string, error) {
	if c.collection == nil {
		return "", ErrNotConnected
	}
	if len(snap.Articles) == 0 {
		return "", ErrEmptySnapshot
	}

	filter := bson.M{"_id": snap.ID}
	opts := options.Replace().SetUpsert(true)
	if _, err := c.collection.ReplaceOne(ctx, filter, snap, opts); err != nil {
		return "", fmt.Errorf("save snapshot %s: %w", snap.ID, err)
	}
	return snap.ID, nil
}

// ListSnapshots returns every archived snapshot, oldest first.
func (c *Client) ListSnapshots(ctx context.Context) ([]domain.Snapshot, error) {
	if c.collection == nil {
		return nil, ErrNotConnected
	}

	cursor, err := c.collection.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find snapshots: %w", err)
	}
	defer cursor.Close(ctx)

	var snaps []domain.Snapshot
	if err := cursor.All(ctx, &snaps); err != nil {
		return nil, fmt.Errorf("decode snapshots: %w", err)
	}
	return snaps, nil
}
