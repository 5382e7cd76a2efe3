package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/pisakart/pisakart-backend/internal/customers"
	"github.com/pisakart/pisakart-backend/pkg/docid"
	"github.com/pisakart/pisakart-backend/pkg/docstore"
	pkgerrors "github.com/pisakart/pisakart-backend/pkg/errors"
)

// Identity supplies the current-customer heuristic and order reference
// minting. Satisfied by the customers service.
type Identity interface {
	ResolveCurrentCode(ctx context.Context) (string, error)
	NewOrderRef() string
}

// CreateRequest is a checkout submission: the address snapshot to freeze into
// the order, plus optional linkage to the cart that produced it.
type CreateRequest struct {
	UserCode    string `json:"user_code"`
	Name        string `json:"name" validate:"required"`
	PhoneNumber string `json:"phonenumber" validate:"required"`
	Street      string `json:"street" validate:"required"`
	Village     string `json:"village"`
	Pincode     string `json:"pincode" validate:"required"`
	City        string `json:"city"`
	State       string `json:"state"`
	Status      string `json:"status"`
	CartID      string `json:"cart_id"`
}

// CreateResult reports the stored order and its join token.
type CreateResult struct {
	ID         string `json:"id"`
	OrderRefID string `json:"order_ref_id"`
	UserCode   string `json:"user_code"`
}

// Service stores orders and projects them into the back-office listing shape.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (CreateResult, error)
	List(ctx context.Context, limit int64) ([]bson.M, error)
	MyOrders(ctx context.Context, code string) ([]bson.M, error)
}

type service struct {
	store    docstore.Store
	identity Identity
}

func NewService(store docstore.Store, identity Identity) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "document store required")
	}
	if identity == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "identity resolver required")
	}
	return &service{store: store, identity: identity}, nil
}

// Create performs three independent writes: the order document, the ref
// appended to the owning customer, and the order_ref_id stamped onto the
// cart. They are not atomic; readers tolerate missing linkage.
func (s *service) Create(ctx context.Context, req CreateRequest) (CreateResult, error) {
	code := strings.TrimSpace(req.UserCode)
	if code == "" {
		resolved, err := s.identity.ResolveCurrentCode(ctx)
		if err != nil {
			return CreateResult{}, err
		}
		code = resolved
	}

	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = "ordered"
	}

	ref := s.identity.NewOrderRef()
	doc := bson.M{
		"pisa_code":    code,
		"order_ref_id": ref,
		"created_at":   time.Now().UTC(),
		"name":         req.Name,
		"phonenumber":  req.PhoneNumber,
		"street":       req.Street,
		"village":      req.Village,
		"pincode":      req.Pincode,
		"city":         req.City,
		"state":        req.State,
		"status":       status,
	}

	objects := s.store.Collection(docstore.CollectionCustomers)
	id, err := objects.InsertOne(ctx, doc)
	if err != nil {
		return CreateResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert order")
	}

	// Customer documents share the collection with orders; the absence of
	// order_ref_id is what marks a customer.
	if code != "" {
		owner, err := objects.FindOne(ctx, bson.M{
			"$or":          []bson.M{{"pisa_code": code}, {"user_code": code}},
			"order_ref_id": bson.M{"$exists": false},
		}, docstore.FindOptions{})
		if err == nil {
			if oid, parseErr := docid.Parse(docid.String(owner["_id"])); parseErr == nil {
				_, _ = objects.UpdateByID(ctx, oid, bson.M{"$push": bson.M{"order_ref_ids": ref}})
			}
		}
	}

	if cartID := strings.TrimSpace(req.CartID); cartID != "" {
		if oid, parseErr := docid.Parse(cartID); parseErr == nil {
			_, _ = s.store.Collection(docstore.CollectionItems).
				UpdateByID(ctx, oid, bson.M{"$set": bson.M{"order_ref_id": ref}})
		}
	}

	return CreateResult{ID: id.Hex(), OrderRefID: ref, UserCode: code}, nil
}

// List projects every stored order into flat rows, newest first. Documents
// without created_at sort last.
func (s *service) List(ctx context.Context, limit int64) ([]bson.M, error) {
	docs, err := s.store.Collection(docstore.CollectionCustomers).Find(ctx, bson.M{
		"order_ref_id": bson.M{"$exists": true},
	}, docstore.FindOptions{
		Sort:  bson.D{{Key: "created_at", Value: -1}},
		Limit: limit,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}

	rows := []bson.M{}
	for _, doc := range docs {
		rows = append(rows, Project(doc)...)
	}
	return rows, nil
}

// MyOrders joins a customer's orders to their carts on order_ref_id. Orders
// whose cart was never stamped, or was deleted since, are silently dropped.
func (s *service) MyOrders(ctx context.Context, code string) ([]bson.M, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer code is required")
	}

	orders, err := s.store.Collection(docstore.CollectionCustomers).Find(ctx, bson.M{
		"$or":          []bson.M{{"pisa_code": code}, {"user_code": code}},
		"order_ref_id": bson.M{"$exists": true},
	}, docstore.FindOptions{
		Sort: bson.D{{Key: "created_at", Value: -1}},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list customer orders")
	}

	carts := s.store.Collection(docstore.CollectionItems)
	out := []bson.M{}
	for _, order := range orders {
		ref, _ := order["order_ref_id"].(string)
		if ref == "" {
			continue
		}
		cart, err := carts.FindOne(ctx, bson.M{"order_ref_id": ref}, docstore.FindOptions{})
		if errors.Is(err, docstore.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find order cart")
		}
		row := docid.FixIdentifiers(order).(bson.M)
		row["cart"] = docid.FixIdentifiers(cart)
		out = append(out, row)
	}
	return out, nil
}

// addressFields are the snapshot columns every projected row carries.
var addressFields = []string{"name", "phonenumber", "street", "village", "pincode", "city", "state"}

// Project flattens a stored document into listing rows. A flattened document
// yields one row; a legacy document with an embedded addresses array yields
// one row per entry, inheriting the top-level name and phone number when an
// entry lacks its own. Unresolved fields render as "-".
func Project(doc bson.M) []bson.M {
	embedded := toSlice(doc["addresses"])
	if len(embedded) == 0 {
		return []bson.M{projectRow(doc, doc)}
	}

	rows := make([]bson.M, 0, len(embedded))
	for _, element := range embedded {
		entry, ok := asDoc(element)
		if !ok {
			continue
		}
		merged := bson.M{}
		for k, v := range entry {
			merged[k] = v
		}
		if merged["name"] == nil {
			merged["name"] = doc["name"]
		}
		if merged["phonenumber"] == nil {
			merged["phonenumber"] = doc["phonenumber"]
		}
		rows = append(rows, projectRow(doc, merged))
	}
	return rows
}

func projectRow(doc bson.M, address bson.M) bson.M {
	row := bson.M{
		"user_code": orDash(customers.CodeFromDoc(doc)),
		"status":    orDash(stringValue(doc["status"])),
	}
	if id, ok := doc["_id"]; ok {
		row["id"] = docid.String(id)
	}
	for _, field := range addressFields {
		row[field] = orDash(stringValue(address[field]))
	}
	if ref, ok := doc["order_ref_id"].(string); ok && ref != "" {
		row["order_ref_id"] = ref
	}
	if created, ok := doc["created_at"]; ok {
		row["created_at"] = created
	}
	return row
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func asDoc(v any) (bson.M, bool) {
	switch typed := v.(type) {
	case bson.M:
		return typed, true
	case map[string]any:
		return typed, true
	}
	return nil, false
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
	}
	return nil
}
