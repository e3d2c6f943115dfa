package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ytcollect/storage"
)

// MongoSink stores one document per snapshot, keyed by name.
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
}

type mongoSnapshot struct {
	Name      string    `bson:"_id"`
	CreatedAt time.Time `bson:"created_at"`
	Data      []byte    `bson:"data"`
}

// OpenMongo connects to uri and uses database.snapshots.
func OpenMongo(ctx context.Context, uri, database string) (*MongoSink, error) {
	if database == "" {
		database = "ytcollect"
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("can't ping MongoDB: %w", err)
	}

	return &MongoSink{
		client:     client,
		collection: client.Database(database).Collection("snapshots"),
	}, nil
}

// Put inserts a new snapshot document.
func (s *MongoSink) Put(ctx context.Context, name string, data []byte) error {
	if err := validName(name); err != nil {
		return err
	}
	_, err := s.collection.InsertOne(ctx, mongoSnapshot{
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Data:      data,
	})
	if mongo.IsDuplicateKeyError(err) {
		return &storage.StorageError{Op: "put", Entity: "snapshot", ID: name, Err: storage.ErrAlreadyExists}
	}
	if err != nil {
		return &storage.StorageError{Op: "put", Entity: "snapshot", ID: name, Err: err}
	}
	return nil
}

// Latest returns the document with the greatest _id.
func (s *MongoSink) Latest(ctx context.Context) (string, []byte, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})

	var doc mongoSnapshot
	err := s.collection.FindOne(ctx, bson.D{}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil, storage.ErrNotFound
	}
	if err != nil {
		return "", nil, &storage.StorageError{Op: "latest", Entity: "snapshot", Err: err}
	}
	return doc.Name, doc.Data, nil
}

// Close disconnects the client.
func (s *MongoSink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
