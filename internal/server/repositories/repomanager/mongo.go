package repomanager

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/dmitrijs2005/gophgallery/internal/server/repositories/assets"
	"github.com/dmitrijs2005/gophgallery/internal/server/repositories/users"
)

// DefaultMongoDatabase is used when the connection string names none.
const DefaultMongoDatabase = "gophgallery"

// mongoConnect is a seam for testing mongo.Connect.
var mongoConnect = mongo.Connect

// MongoRepositoryManager vends MongoDB-backed repositories over one database.
type MongoRepositoryManager struct {
	client *mongo.Client
	db     *mongo.Database
}

// OpenMongo connects to the deployment in uri and selects the database named
// in its path.
func OpenMongo(ctx context.Context, uri string) (*MongoRepositoryManager, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid mongodb uri: %w", err)
	}
	name := cs.Database
	if name == "" {
		name = DefaultMongoDatabase
	}

	client, err := mongoConnect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	return NewMongoRepositoryManager(client, client.Database(name)), nil
}

func NewMongoRepositoryManager(client *mongo.Client, db *mongo.Database) *MongoRepositoryManager {
	return &MongoRepositoryManager{client: client, db: db}
}

func (m *MongoRepositoryManager) Users() users.Repository {
	return users.NewMongoRepository(m.db.Collection(users.CollectionName))
}

func (m *MongoRepositoryManager) Assets() assets.Repository {
	return assets.NewMongoRepository(m.db.Collection(assets.CollectionName))
}

// RunMigrations creates the indexes the repositories rely on. Creating an
// index that already exists is a no-op.
func (m *MongoRepositoryManager) RunMigrations(ctx context.Context) error {
	_, err := m.db.Collection(users.CollectionName).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}

	_, err = m.db.Collection(assets.CollectionName).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "uploadedAt", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create assets indexes: %w", err)
	}
	return nil
}

func (m *MongoRepositoryManager) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
