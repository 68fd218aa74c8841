package installed

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// installedDoc is the persisted shape of one installed pack.
type installedDoc struct {
	RefID     string    `bson:"ref_id"`
	Pack      string    `bson:"pack"`
	Version   string    `bson:"version"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoRegistry persists installed pack versions in a MongoDB
// collection, one document per (refID, pack).
type MongoRegistry struct {
	coll     *mongo.Collection
	borrowed bool
}

// CollectionName is the default collection for installed-pack records.
const CollectionName = "installed_packs"

// NewMongoRegistry connects to MongoDB and prepares the registry
// collection with its (ref_id, pack) unique index.
func NewMongoRegistry(ctx context.Context, uri, database string) (*MongoRegistry, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	coll := client.Database(database).Collection(CollectionName)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "ref_id", Value: 1}, {Key: "pack", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &MongoRegistry{coll: coll}, nil
}

// NewMongoRegistryFromCollection wraps an existing collection, for
// callers that manage the client themselves. Close is a no-op for a
// wrapped collection.
func NewMongoRegistryFromCollection(coll *mongo.Collection) *MongoRegistry {
	return &MongoRegistry{coll: coll, borrowed: true}
}

// Close disconnects the owned client. Registries wrapping a borrowed
// collection leave the client alone.
func (r *MongoRegistry) Close(ctx context.Context) error {
	if r.borrowed {
		return nil
	}
	return r.coll.Database().Client().Disconnect(ctx)
}

// CurrentVersion returns the installed version recorded for
// (refID, pack), or ok=false when no record exists.
func (r *MongoRegistry) CurrentVersion(ctx context.Context, refID, pack string) (string, bool, error) {
	var doc installedDoc
	err := r.coll.FindOne(ctx, bson.M{"ref_id": refID, "pack": pack}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return doc.Version, true, nil
}

// Record upserts the installed version for (refID, pack).
func (r *MongoRegistry) Record(ctx context.Context, refID, pack, version string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"ref_id": refID, "pack": pack},
		bson.M{"$set": bson.M{"version": version, "updated_at": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	return err
}

// Remove deletes the installed record for (refID, pack). Removing a
// missing record is not an error.
func (r *MongoRegistry) Remove(ctx context.Context, refID, pack string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"ref_id": refID, "pack": pack})
	return err
}

// Installed lists all installed packs for a ref as a pack→version map.
func (r *MongoRegistry) Installed(ctx context.Context, refID string) (map[string]string, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"ref_id": refID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	result := make(map[string]string)
	for cursor.Next(ctx) {
		var doc installedDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		result[doc.Pack] = doc.Version
	}
	return result, cursor.Err()
}

// Ensure MongoRegistry implements Lookup.
var _ Lookup = (*MongoRegistry)(nil)
