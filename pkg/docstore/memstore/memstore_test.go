package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/pisakart/pisakart-backend/pkg/docstore"
)

func TestInsertAndFindWithFilter(t *testing.T) {
	store := New()
	coll := store.Collection("payments")
	ctx := context.Background()

	_, err := coll.InsertOne(ctx, bson.M{"payment_method": "cod", "user_code": "111111"})
	require.NoError(t, err)
	_, err = coll.InsertOne(ctx, bson.M{"payment_method": "prepaid", "user_code": "222222"})
	require.NoError(t, err)

	docs, err := coll.Find(ctx, bson.M{"payment_method": "cod"}, docstore.FindOptions{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "111111", docs[0]["user_code"])
}

func TestFindOperators(t *testing.T) {
	store := New()
	coll := store.Collection("items")
	ctx := context.Background()

	_, err := coll.InsertOne(ctx, bson.M{"status": "cancelled"})
	require.NoError(t, err)
	_, err = coll.InsertOne(ctx, bson.M{"status": "ordered", "viewed": true})
	require.NoError(t, err)
	_, err = coll.InsertOne(ctx, bson.M{"status": "requested for return"})
	require.NoError(t, err)

	docs, err := coll.Find(ctx, bson.M{
		"status": bson.M{"$in": []string{"cancelled", "requested for return"}},
		"viewed": bson.M{"$ne": true},
	}, docstore.FindOptions{})
	require.NoError(t, err)
	require.Len(t, docs, 2)

	docs, err = coll.Find(ctx, bson.M{"$or": []bson.M{
		{"status": "ordered"},
		{"status": "cancelled"},
	}}, docstore.FindOptions{})
	require.NoError(t, err)
	require.Len(t, docs, 2)
}

func TestSortMissingFieldGoesLastOnDescending(t *testing.T) {
	store := New()
	coll := store.Collection("customers")
	ctx := context.Background()

	now := time.Now()
	_, err := coll.InsertOne(ctx, bson.M{"name": "old", "created_at": now.Add(-time.Hour)})
	require.NoError(t, err)
	_, err = coll.InsertOne(ctx, bson.M{"name": "missing"})
	require.NoError(t, err)
	_, err = coll.InsertOne(ctx, bson.M{"name": "new", "created_at": now})
	require.NoError(t, err)

	docs, err := coll.Find(ctx, bson.M{}, docstore.FindOptions{
		Sort: bson.D{{Key: "created_at", Value: -1}},
	})
	require.NoError(t, err)
	require.Equal(t, "new", docs[0]["name"])
	require.Equal(t, "old", docs[1]["name"])
	require.Equal(t, "missing", docs[2]["name"])
}

func TestFindOneSortedByInsertionOrder(t *testing.T) {
	store := New()
	coll := store.Collection("customers")
	ctx := context.Background()

	_, err := coll.InsertOne(ctx, bson.M{"pisa_code": "111111"})
	require.NoError(t, err)
	_, err = coll.InsertOne(ctx, bson.M{"pisa_code": "222222"})
	require.NoError(t, err)

	doc, err := coll.FindOne(ctx, bson.M{}, docstore.FindOptions{
		Sort: bson.D{{Key: "_id", Value: -1}},
	})
	require.NoError(t, err)
	require.Equal(t, "222222", doc["pisa_code"])
}

func TestUpdateByIDSetAndPush(t *testing.T) {
	store := New()
	coll := store.Collection("customers")
	ctx := context.Background()

	id, err := coll.InsertOne(ctx, bson.M{"name": "A"})
	require.NoError(t, err)

	matched, err := coll.UpdateByID(ctx, id, bson.M{
		"$set":  bson.M{"status": "Ordered"},
		"$push": bson.M{"order_ref_ids": "ref-1"},
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, matched)

	doc, err := coll.FindOne(ctx, bson.M{"_id": id}, docstore.FindOptions{})
	require.NoError(t, err)
	require.Equal(t, "Ordered", doc["status"])
	require.Equal(t, bson.A{"ref-1"}, doc["order_ref_ids"])
}

func TestFindOneAndDeleteReturnsDocument(t *testing.T) {
	store := New()
	coll := store.Collection("address_history")
	ctx := context.Background()

	id, err := coll.InsertOne(ctx, bson.M{"street": "S"})
	require.NoError(t, err)

	doc, err := coll.FindOneAndDelete(ctx, bson.M{"_id": id})
	require.NoError(t, err)
	require.Equal(t, "S", doc["street"])

	_, err = coll.FindOneAndDelete(ctx, bson.M{"_id": id})
	require.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestUniqueIndexRejectsDuplicates(t *testing.T) {
	store := New()
	store.RegisterUniqueIndex("customers", "pisa_code")
	coll := store.Collection("customers")
	ctx := context.Background()

	_, err := coll.InsertOne(ctx, bson.M{"pisa_code": "123456"})
	require.NoError(t, err)

	_, err = coll.InsertOne(ctx, bson.M{"pisa_code": "123456"})
	require.True(t, docstore.IsDuplicateKey(err))

	// documents without the indexed field are unaffected (sparse behavior)
	_, err = coll.InsertOne(ctx, bson.M{"name": "orderdoc"})
	require.NoError(t, err)
}

func TestDeleteManyCounts(t *testing.T) {
	store := New()
	coll := store.Collection("address_history")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := coll.InsertOne(ctx, bson.M{"type": "selected"})
		require.NoError(t, err)
	}

	removed, err := coll.DeleteMany(ctx, bson.M{})
	require.NoError(t, err)
	require.EqualValues(t, 3, removed)

	count, err := coll.CountDocuments(ctx, bson.M{})
	require.NoError(t, err)
	require.Zero(t, count)
}
