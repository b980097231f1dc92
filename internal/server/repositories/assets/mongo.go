package assets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/server/models"
)

// CollectionName is the Mongo collection holding asset metadata.
const CollectionName = "images"

type assetDocument struct {
	ID            string    `bson:"_id"`
	OwnerID       string    `bson:"userId,omitempty"`
	BlobLocator   string    `bson:"fileUrl"`
	BlobDeleteKey string    `bson:"publicId,omitempty"`
	Category      string    `bson:"category"`
	Description   string    `bson:"description,omitempty"`
	GroupID       string    `bson:"groupId,omitempty"`
	CreatedAt     time.Time `bson:"uploadedAt"`
}

func toDocument(a *models.Asset) assetDocument {
	return assetDocument{
		ID:            uuid.NewString(),
		OwnerID:       a.OwnerID,
		BlobLocator:   a.BlobLocator,
		BlobDeleteKey: a.BlobDeleteKey,
		Category:      a.Category,
		Description:   a.Description,
		GroupID:       a.GroupID,
		CreatedAt:     a.CreatedAt.UTC().Truncate(time.Millisecond),
	}
}

func (d *assetDocument) toModel() *models.Asset {
	return &models.Asset{
		ID:            d.ID,
		OwnerID:       d.OwnerID,
		BlobLocator:   d.BlobLocator,
		BlobDeleteKey: d.BlobDeleteKey,
		Category:      d.Category,
		Description:   d.Description,
		GroupID:       d.GroupID,
		CreatedAt:     d.CreatedAt,
	}
}

// MongoRepository keeps assets as documents. Field names follow the
// collection layout written by earlier deployments, so legacy documents
// without userId decode as unowned assets. Legacy _id and userId values are
// ObjectIDs; they decode to hex strings and idFilter matches them back.
type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{coll: coll}
}

func (r *MongoRepository) Insert(ctx context.Context, a *models.Asset) error {
	doc := toDocument(a)
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	a.ID = doc.ID
	return nil
}

// InsertMany runs an ordered insert. Without a replica set there is no
// multi-document transaction, so on failure the documents that did land
// are removed again before the error is returned.
func (r *MongoRepository) InsertMany(ctx context.Context, assets []*models.Asset) error {
	if len(assets) == 0 {
		return nil
	}

	docs := make([]any, len(assets))
	ids := make([]string, len(assets))
	for i, a := range assets {
		d := toDocument(a)
		docs[i] = d
		ids[i] = d.ID
	}

	if _, err := r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		filter := bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}
		if _, derr := r.coll.DeleteMany(ctx, filter); derr != nil {
			return fmt.Errorf("db error: %w", errors.Join(err, derr))
		}
		return fmt.Errorf("db error: %w", err)
	}

	for i, a := range assets {
		a.ID = ids[i]
	}
	return nil
}

// idFilter matches key against id. A hex id may be stored either as a
// string or as the ObjectID it encodes, so both forms are accepted.
func idFilter(key, id string) bson.D {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.D{{Key: key, Value: bson.D{{Key: "$in", Value: bson.A{id, oid}}}}}
	}
	return bson.D{{Key: key, Value: id}}
}

func (r *MongoRepository) FindByID(ctx context.Context, id string) (*models.Asset, error) {
	var doc assetDocument
	err := r.coll.FindOne(ctx, idFilter("_id", id)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return doc.toModel(), nil
}

func (r *MongoRepository) FindAllByOwner(ctx context.Context, ownerID string) ([]*models.Asset, error) {
	return r.find(ctx, idFilter("userId", ownerID))
}

func (r *MongoRepository) FindAll(ctx context.Context) ([]*models.Asset, error) {
	return r.find(ctx, bson.D{})
}

func (r *MongoRepository) find(ctx context.Context, filter bson.D) ([]*models.Asset, error) {
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "uploadedAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to select assets: %w", err)
	}

	var docs []assetDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode assets: %w", err)
	}

	result := make([]*models.Asset, 0, len(docs))
	for i := range docs {
		result = append(result, docs[i].toModel())
	}
	return result, nil
}

func (r *MongoRepository) DistinctCategories(ctx context.Context) ([]string, error) {
	values, err := r.coll.Distinct(ctx, "category", bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to select categories: %w", err)
	}

	result := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			result = append(result, s)
		}
	}
	return result, nil
}

func (r *MongoRepository) DeleteByID(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, idFilter("_id", id))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if res.DeletedCount == 0 {
		return common.ErrorNotFound
	}
	return nil
}
