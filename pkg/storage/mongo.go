package storage

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/matzehuels/btgraph/pkg/cache"
	"github.com/matzehuels/btgraph/pkg/errors"
)

// Collection names used by MongoStore.
const (
	DocumentsCollection = "documents"
	BackupsCollection   = "backups"
)

// DefaultDatabase is used when no database name is configured.
const DefaultDatabase = "btgraph"

// mongoDocument is the stored form of a document. The encoded JSON is kept
// as a string so it round-trips byte for byte.
type mongoDocument struct {
	Name      string    `bson:"_id"`
	Data      string    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStore stores documents in MongoDB. It is safe for concurrent use.
type MongoStore struct {
	client    *mongo.Client
	documents *mongo.Collection
	backups   *mongo.Collection
	now       func() time.Time
}

// NewMongoStore connects to MongoDB and verifies the connection, retrying
// transient failures with backoff.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if err := errors.ValidateURL(uri, "mongodb", "mongodb+srv"); err != nil {
		return nil, err
	}
	if database == "" {
		database = DefaultDatabase
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "connect mongodb")
	}
	err = cache.RetryWithBackoff(ctx, func() error {
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			return cache.Retryable(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "ping mongodb")
	}
	return NewMongoStoreFromClient(client, database), nil
}

// NewMongoStoreFromClient wraps a connected client.
func NewMongoStoreFromClient(client *mongo.Client, database string) *MongoStore {
	db := client.Database(database)
	return &MongoStore{
		client:    client,
		documents: db.Collection(DocumentsCollection),
		backups:   db.Collection(BackupsCollection),
		now:       time.Now,
	}
}

// Load fetches a document by name.
func (s *MongoStore) Load(ctx context.Context, name string) ([]byte, error) {
	if err := errors.ValidateDocumentName(name); err != nil {
		return nil, err
	}
	var doc mongoDocument
	err := s.documents.FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "load %s", name)
	}
	return []byte(doc.Data), nil
}

// Save upserts a document.
func (s *MongoStore) Save(ctx context.Context, name string, data []byte) error {
	return s.upsert(ctx, s.documents, name, data)
}

// Backup upserts the pre-migration bytes of a document.
func (s *MongoStore) Backup(ctx context.Context, name string, data []byte) error {
	return s.upsert(ctx, s.backups, name, data)
}

func (s *MongoStore) upsert(ctx context.Context, coll *mongo.Collection, name string, data []byte) error {
	if err := errors.ValidateDocumentName(name); err != nil {
		return err
	}
	doc := newMongoDocument(name, data, s.now())
	_, err := coll.ReplaceOne(ctx, bson.M{"_id": name}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "save %s to %s", name, coll.Name())
	}
	return nil
}

// List returns all document names in ascending order.
func (s *MongoStore) List(ctx context.Context) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.documents.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list documents")
	}
	defer cur.Close(ctx)

	var names []string
	for cur.Next(ctx) {
		var doc struct {
			Name string `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorage, err, "decode document name")
		}
		names = append(names, doc.Name)
	}
	if err := cur.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list documents")
	}
	return names, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func newMongoDocument(name string, data []byte, now time.Time) mongoDocument {
	return mongoDocument{Name: name, Data: string(data), UpdatedAt: now.UTC()}
}

// Ensure MongoStore implements Store.
var _ Store = (*MongoStore)(nil)
