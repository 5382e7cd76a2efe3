package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/pisakart/pisakart-backend/pkg/config"
	"github.com/pisakart/pisakart-backend/pkg/logger"
)

// Client wraps the shared Mongo connection. Every collection call runs under
// the configured query timeout.
type Client struct {
	client       *mongo.Client
	db           *mongo.Database
	queryTimeout time.Duration
}

// Pinger exposes the health check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New connects to Mongo using the provided configuration and verifies the
// connection with a ping before handing the client back.
func New(ctx context.Context, cfg config.MongoConfig, logg *logger.Logger) (*Client, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo URI is required")
	}

	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout)
	if cfg.Username != "" || cfg.Password != "" {
		clientOptions = clientOptions.SetAuth(options.Credential{
			AuthSource: cfg.Database,
			Username:   cfg.Username,
			Password:   cfg.Password,
		})
	}

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "mongo connection established")
	}

	return &Client{
		client:       client,
		db:           client.Database(cfg.Database),
		queryTimeout: cfg.QueryTimeout,
	}, nil
}

// Collection returns a handle for the named collection.
func (c *Client) Collection(name string) Collection {
	return &mongoCollection{coll: c.db.Collection(name), timeout: c.queryTimeout}
}

// Ping verifies the datasource is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Close shuts down the pooled connections.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// EnsureIndexes creates the lookup indexes the consistency model leans on.
// The pisa_code index cannot be unique: orders share the customers collection
// and repeat their owner's code, so code uniqueness is enforced at generation
// time instead.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	customers := c.db.Collection(CollectionCustomers)
	_, err := customers.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "pisa_code", Value: 1}},
		Options: options.Index().
			SetSparse(true).
			SetName("idx_pisa_code"),
	})
	if err != nil {
		return fmt.Errorf("creating customer code index: %w", err)
	}

	items := c.db.Collection(CollectionItems)
	_, err = items.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "order_ref_id", Value: 1}},
		Options: options.Index().SetSparse(true).SetName("idx_order_ref_id"),
	})
	if err != nil {
		return fmt.Errorf("creating cart order ref index: %w", err)
	}
	return nil
}

type mongoCollection struct {
	coll    *mongo.Collection
	timeout time.Duration
}

func (m *mongoCollection) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, m.timeout)
}

func (m *mongoCollection) InsertOne(ctx context.Context, doc bson.M) (primitive.ObjectID, error) {
	ctx, cancel := m.opContext(ctx)
	defer cancel()

	res, err := m.coll.InsertOne(ctx, doc)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return id, nil
}

func (m *mongoCollection) Find(ctx context.Context, filter bson.M, opts FindOptions) ([]bson.M, error) {
	ctx, cancel := m.opContext(ctx)
	defer cancel()

	findOpts := options.Find()
	if len(opts.Sort) > 0 {
		findOpts.SetSort(opts.Sort)
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}

	cursor, err := m.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (m *mongoCollection) FindOne(ctx context.Context, filter bson.M, opts FindOptions) (bson.M, error) {
	ctx, cancel := m.opContext(ctx)
	defer cancel()

	findOpts := options.FindOne()
	if len(opts.Sort) > 0 {
		findOpts.SetSort(opts.Sort)
	}

	var doc bson.M
	err := m.coll.FindOne(ctx, filter, findOpts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (m *mongoCollection) UpdateByID(ctx context.Context, id primitive.ObjectID, update bson.M) (int64, error) {
	ctx, cancel := m.opContext(ctx)
	defer cancel()

	res, err := m.coll.UpdateByID(ctx, id, update)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (m *mongoCollection) FindOneAndDelete(ctx context.Context, filter bson.M) (bson.M, error) {
	ctx, cancel := m.opContext(ctx)
	defer cancel()

	var doc bson.M
	err := m.coll.FindOneAndDelete(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (m *mongoCollection) DeleteMany(ctx context.Context, filter bson.M) (int64, error) {
	ctx, cancel := m.opContext(ctx)
	defer cancel()

	res, err := m.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (m *mongoCollection) CountDocuments(ctx context.Context, filter bson.M) (int64, error) {
	ctx, cancel := m.opContext(ctx)
	defer cancel()

	return m.coll.CountDocuments(ctx, filter)
}
