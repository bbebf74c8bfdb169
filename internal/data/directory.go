package data

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// UsersStore reads public identities from the users collection owned by the
// account service.
type UsersStore struct {
	coll *mongo.Collection
}

// NewUsersStore returns a UsersStore using the provided collection.
func NewUsersStore(coll *mongo.Collection) *UsersStore {
	return &UsersStore{coll: coll}
}

// BatchGetIdentities resolves many user ids with a single query. Unknown and
// malformed ids are absent from the result.
func (u *UsersStore) BatchGetIdentities(ctx context.Context, ids []string) (map[string]*Identity, error) {
	out := map[string]*Identity{}
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return out, nil
	}

	opts := options.Find().SetProjection(bson.M{"username": 1})
	cursor, err := u.coll.Find(ctx, bson.M{"_id": bson.M{"$in": oids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var identities []*Identity
	if err := cursor.All(ctx, &identities); err != nil {
		return nil, err
	}
	for _, id := range identities {
		out[id.ID.Hex()] = id
	}
	return out, nil
}

// ListingsStore reads listing summaries from the listings collection owned by
// the listing service.
type ListingsStore struct {
	coll *mongo.Collection
}

// NewListingsStore returns a ListingsStore using the provided collection.
func NewListingsStore(coll *mongo.Collection) *ListingsStore {
	return &ListingsStore{coll: coll}
}

// BatchGetSummaries resolves many listing ids with a single query.
func (l *ListingsStore) BatchGetSummaries(ctx context.Context, ids []string) (map[string]*ListingSummary, error) {
	out := map[string]*ListingSummary{}
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return out, nil
	}

	opts := options.Find().SetProjection(bson.M{"seller_id": 1, "title": 1, "price": 1, "thumbnail_url": 1})
	cursor, err := l.coll.Find(ctx, bson.M{"_id": bson.M{"$in": oids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var listings []*ListingSummary
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, err
	}
	for _, s := range listings {
		out[s.ID.Hex()] = s
	}
	return out, nil
}
