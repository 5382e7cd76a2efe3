package docstore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Collection names are the persisted contract; renaming one is a data
// migration, not a refactor.
const (
	CollectionCustomers      = "customers"
	CollectionItems          = "items"
	CollectionPayments       = "payments"
	CollectionAddressHistory = "address_history"
)

// ErrNotFound reports that no document matched the filter.
var ErrNotFound = errors.New("docstore: no matching document")

// FindOptions narrows a find to the sort/limit surface the services use.
type FindOptions struct {
	Sort  bson.D
	Limit int64
}

// Collection is the schema-less document surface the services are written
// against. The production implementation is Mongo; tests run against memstore.
type Collection interface {
	InsertOne(ctx context.Context, doc bson.M) (primitive.ObjectID, error)
	Find(ctx context.Context, filter bson.M, opts FindOptions) ([]bson.M, error)
	FindOne(ctx context.Context, filter bson.M, opts FindOptions) (bson.M, error)
	UpdateByID(ctx context.Context, id primitive.ObjectID, update bson.M) (int64, error)
	FindOneAndDelete(ctx context.Context, filter bson.M) (bson.M, error)
	DeleteMany(ctx context.Context, filter bson.M) (int64, error)
	CountDocuments(ctx context.Context, filter bson.M) (int64, error)
}

// Store hands out collections by name.
type Store interface {
	Collection(name string) Collection
}

// IsDuplicateKey reports whether err is a store-level unique index violation.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicateKey) {
		return true
	}
	return mongo.IsDuplicateKeyError(err)
}

// ErrDuplicateKey is returned by memstore when a registered unique index is
// violated; the Mongo implementation surfaces the driver's own error instead.
var ErrDuplicateKey = errors.New("docstore: duplicate key")
