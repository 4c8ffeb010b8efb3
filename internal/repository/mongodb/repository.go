package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/agritrace/internal/domain/models"
	"github.com/mamadbah2/agritrace/internal/repository/snapshot"
)

const (
	snapshotCollection = "snapshots"
	digestCollection   = "daily_digests"
)

// Repository keeps the batch snapshot in MongoDB and archives daily digests.
type Repository interface {
	snapshot.Store
	SaveDailyDigest(ctx context.Context, digest models.DailyDigest) error
}

type snapshotDocument struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoDBRepository implements the Repository interface for MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	dbName string
	key    string
}

var _ Repository = (*MongoDBRepository)(nil)

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri, dbName, key string) (*MongoDBRepository, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, errors.New("mongodb uri must not be empty")
	}
	if strings.TrimSpace(key) == "" {
		key = snapshot.DefaultKey
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client: client,
		dbName: dbName,
		key:    key,
	}, nil
}

// LoadAll fetches the snapshot document for the configured key.
func (r *MongoDBRepository) LoadAll(ctx context.Context) (map[string]models.Batch, error) {
	collection := r.client.Database(r.dbName).Collection(snapshotCollection)

	var doc snapshotDocument
	err := collection.FindOne(ctx, bson.M{"_id": r.key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return map[string]models.Batch{}, nil
		}
		return nil, fmt.Errorf("failed to find snapshot %s: %w", r.key, err)
	}

	batches, err := snapshot.Decode([]byte(doc.Value))
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", r.key, err)
	}
	return batches, nil
}

// SaveAll replaces the snapshot document, inserting it on first save.
func (r *MongoDBRepository) SaveAll(ctx context.Context, batches map[string]models.Batch) error {
	data, err := snapshot.Encode(batches)
	if err != nil {
		return err
	}

	collection := r.client.Database(r.dbName).Collection(snapshotCollection)
	doc := snapshotDocument{Key: r.key, Value: string(data), UpdatedAt: time.Now().UTC()}

	_, err = collection.ReplaceOne(ctx, bson.M{"_id": r.key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to replace snapshot %s: %w", r.key, err)
	}
	return nil
}

// SaveDailyDigest archives a digest produced by the scheduler.
func (r *MongoDBRepository) SaveDailyDigest(ctx context.Context, digest models.DailyDigest) error {
	collection := r.client.Database(r.dbName).Collection(digestCollection)
	_, err := collection.InsertOne(ctx, digest)
	if err != nil {
		return fmt.Errorf("failed to insert daily digest: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
