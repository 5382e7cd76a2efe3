package carts

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/pisakart/pisakart-backend/pkg/docid"
	"github.com/pisakart/pisakart-backend/pkg/docstore"
	pkgerrors "github.com/pisakart/pisakart-backend/pkg/errors"
	"github.com/pisakart/pisakart-backend/pkg/money"
)

// Lifecycle states the notification feed watches for. Status values are
// otherwise free-form; there is no transition graph.
const (
	StatusCancelled       = "cancelled"
	StatusReturnRequested = "requested for return"
)

// NotificationLimit caps the unacknowledged-status feed.
const NotificationLimit = 10

// CodeResolver supplies the current-customer heuristic when a cart arrives
// without a code of its own.
type CodeResolver interface {
	ResolveCurrentCode(ctx context.Context) (string, error)
}

// SaveResult mirrors the storefront's historical save-cart acknowledgement.
type SaveResult struct {
	Status  string `json:"status"`
	CartID  string `json:"cart_id"`
	Message string `json:"message"`
}

// Service stores cart submissions and mutates their lifecycle status.
type Service interface {
	Save(ctx context.Context, raw bson.M) (SaveResult, error)
	List(ctx context.Context, limit int64) ([]bson.M, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) (int64, error)
	SetStatus(ctx context.Context, id string, status string) error
	Notifications(ctx context.Context) ([]bson.M, error)
	MarkViewed(ctx context.Context, id string) error
}

type service struct {
	store    docstore.Store
	resolver CodeResolver
}

func NewService(store docstore.Store, resolver CodeResolver) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "document store required")
	}
	if resolver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "code resolver required")
	}
	return &service{store: store, resolver: resolver}, nil
}

func (s *service) collection() docstore.Collection {
	return s.store.Collection(docstore.CollectionItems)
}

func (s *service) Save(ctx context.Context, raw bson.M) (SaveResult, error) {
	doc := Normalize(raw)

	code, _ := raw["user_code"].(string)
	if strings.TrimSpace(code) == "" {
		resolved, err := s.resolver.ResolveCurrentCode(ctx)
		if err != nil {
			return SaveResult{}, err
		}
		code = resolved
	}
	doc["user_code"] = code

	id, err := s.collection().InsertOne(ctx, doc)
	if err != nil {
		return SaveResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert cart")
	}
	return SaveResult{
		Status:  "success",
		CartID:  id.Hex(),
		Message: "cart saved",
	}, nil
}

func (s *service) List(ctx context.Context, limit int64) ([]bson.M, error) {
	docs, err := s.collection().Find(ctx, bson.M{}, docstore.FindOptions{
		Sort:  bson.D{{Key: "processed_at", Value: -1}},
		Limit: limit,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list carts")
	}
	return fixAll(docs), nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	oid, err := docid.Parse(id)
	if err != nil {
		return err
	}
	if _, err := s.collection().FindOneAndDelete(ctx, bson.M{"_id": oid}); err != nil {
		if err == docstore.ErrNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart")
	}
	return nil
}

func (s *service) Clear(ctx context.Context) (int64, error) {
	count, err := s.collection().DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear carts")
	}
	return count, nil
}

func (s *service) SetStatus(ctx context.Context, id string, status string) error {
	status = strings.TrimSpace(status)
	if status == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "status is required")
	}
	oid, err := docid.Parse(id)
	if err != nil {
		return err
	}
	matched, err := s.collection().UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart status")
	}
	if matched == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}
	return nil
}

func (s *service) Notifications(ctx context.Context) ([]bson.M, error) {
	docs, err := s.collection().Find(ctx, bson.M{
		"status": bson.M{"$in": []string{StatusCancelled, StatusReturnRequested}},
		"viewed": bson.M{"$ne": true},
	}, docstore.FindOptions{
		Sort:  bson.D{{Key: "updated_at", Value: -1}},
		Limit: NotificationLimit,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list notifications")
	}
	return fixAll(docs), nil
}

func (s *service) MarkViewed(ctx context.Context, id string) error {
	oid, err := docid.Parse(id)
	if err != nil {
		return err
	}
	matched, err := s.collection().UpdateByID(ctx, oid, bson.M{"$set": bson.M{"viewed": true}})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark notification viewed")
	}
	if matched == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}
	return nil
}

// Normalize coerces a loosely-typed cart payload into the canonical stored
// document. It is total: malformed items and money values degrade to safe
// defaults instead of failing the save.
func Normalize(raw bson.M) bson.M {
	now := time.Now().UTC()
	items := normalizeItems(raw["items"])

	doc := bson.M{
		"items":        items,
		"subtotal":     money.Canonical(raw["subtotal"]),
		"total":        money.Canonical(raw["total"]),
		"savings":      money.Canonical(raw["savings"]),
		"processed_at": now,
	}

	if ts, ok := raw["timestamp"].(string); ok && strings.TrimSpace(ts) != "" {
		doc["timestamp"] = ts
	} else if ts, ok := raw["timestamp"].(time.Time); ok {
		doc["timestamp"] = ts
	} else {
		doc["timestamp"] = now
	}

	if status, ok := raw["status"].(string); ok && strings.TrimSpace(status) != "" {
		doc["status"] = status
	} else if len(items) > 0 {
		doc["status"] = "ordered"
	} else {
		doc["status"] = "Ordered"
	}
	return doc
}

// normalizeItems accepts an object array, a JSON string encoding one, or a
// mixed list. A string that will not parse becomes a zero-priced item named
// after itself.
func normalizeItems(raw any) bson.A {
	switch typed := raw.(type) {
	case nil:
		return bson.A{}
	case string:
		var parsed []map[string]any
		if err := json.Unmarshal([]byte(typed), &parsed); err != nil {
			if strings.TrimSpace(typed) == "" {
				return bson.A{}
			}
			return bson.A{normalizeItem(bson.M{"name": typed, "price": 0})}
		}
		out := bson.A{}
		for _, item := range parsed {
			out = append(out, normalizeItem(item))
		}
		return out
	default:
		out := bson.A{}
		for _, element := range toSlice(raw) {
			switch item := element.(type) {
			case string:
				var parsed map[string]any
				if err := json.Unmarshal([]byte(item), &parsed); err != nil {
					out = append(out, normalizeItem(bson.M{"name": item, "price": 0}))
					continue
				}
				out = append(out, normalizeItem(parsed))
			case bson.M:
				out = append(out, normalizeItem(item))
			case map[string]any:
				out = append(out, normalizeItem(item))
			}
		}
		return out
	}
}

func normalizeItem(item map[string]any) bson.M {
	return bson.M{
		"name":     stringField(item["name"]),
		"price":    money.Numeric(item["price"]),
		"image":    stringField(item["image"]),
		"category": stringField(item["category"]),
	}
}

func stringField(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toSlice(v any) []any {
	switch typed := v.(type) {
	case bson.A:
		return typed
	case []any:
		return typed
	case []bson.M:
		out := make([]any, len(typed))
		for i, m := range typed {
			out[i] = m
		}
		return out
	case []map[string]any:
		out := make([]any, len(typed))
		for i, m := range typed {
			out[i] = m
		}
		return out
	}
	return nil
}

func fixAll(docs []bson.M) []bson.M {
	out := make([]bson.M, 0, len(docs))
	for _, doc := range docs {
		out = append(out, docid.FixIdentifiers(doc).(bson.M))
	}
	return out
}
