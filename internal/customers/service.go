package customers

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/pisakart/pisakart-backend/internal/addresshistory"
	"github.com/pisakart/pisakart-backend/pkg/docid"
	"github.com/pisakart/pisakart-backend/pkg/docstore"
	pkgerrors "github.com/pisakart/pisakart-backend/pkg/errors"
)

// CreateRequest is the first address submission that brings a customer into
// existence.
type CreateRequest struct {
	Name        string `json:"name" validate:"required"`
	PhoneNumber string `json:"phonenumber" validate:"required"`
	Street      string `json:"street" validate:"required"`
	Village     string `json:"village"`
	Pincode     string `json:"pincode" validate:"required"`
	City        string `json:"city"`
	State       string `json:"state"`
}

// CreateResult reports the generated code back to the storefront.
type CreateResult struct {
	ID       string `json:"id"`
	UserCode string `json:"user_code"`
}

// Service owns customer identity: code allocation, the current-customer
// heuristic, and the customer documents themselves.
type Service interface {
	// ResolveCurrentCode returns the code of the most recently inserted
	// customer, or empty when none exist. This is a single-user heuristic
	// carried over from the storefront's history, not an authenticated
	// identity lookup.
	ResolveCurrentCode(ctx context.Context) (string, error)
	GenerateCode(ctx context.Context) (string, error)
	NewOrderRef() string
	Create(ctx context.Context, req CreateRequest) (CreateResult, error)
	AddAddress(ctx context.Context, code string, req CreateRequest) error
	Get(ctx context.Context, code string) (bson.M, error)
	Info(ctx context.Context, code string) (bson.M, error)
}

type service struct {
	store   docstore.Store
	history addresshistory.Service
}

// NewService wires customer identity against the document store and the
// address ledger.
func NewService(store docstore.Store, history addresshistory.Service) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "document store required")
	}
	if history == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "address history service required")
	}
	return &service{store: store, history: history}, nil
}

func (s *service) collection() docstore.Collection {
	return s.store.Collection(docstore.CollectionCustomers)
}

func (s *service) ResolveCurrentCode(ctx context.Context) (string, error) {
	doc, err := s.collection().FindOne(ctx, bson.M{}, docstore.FindOptions{
		Sort: bson.D{{Key: "_id", Value: -1}},
	})
	if errors.Is(err, docstore.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve current customer")
	}
	return CodeFromDoc(doc), nil
}

// GenerateCode draws random 6-digit codes until one is free. The check runs
// against the whole collection, so a code carried by an order document is
// also treated as taken. Create still retries on a duplicate-key insert.
func (s *service) GenerateCode(ctx context.Context) (string, error) {
	for {
		code := fmt.Sprintf("%06d", rand.Intn(1000000))
		count, err := s.collection().CountDocuments(ctx, codeFilter(code))
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check customer code")
		}
		if count == 0 {
			return code, nil
		}
	}
}

// NewOrderRef mints the opaque token joining an order to its cart. It is only
// ever compared for equality, never parsed.
func (s *service) NewOrderRef() string {
	return uuid.NewString()
}

func (s *service) Create(ctx context.Context, req CreateRequest) (CreateResult, error) {
	var id string
	var code string
	for {
		var err error
		code, err = s.GenerateCode(ctx)
		if err != nil {
			return CreateResult{}, err
		}

		doc := bson.M{
			"pisa_code":   code,
			"name":        req.Name,
			"phonenumber": req.PhoneNumber,
			"street":      req.Street,
			"village":     req.Village,
			"pincode":     req.Pincode,
			"city":        req.City,
			"state":       req.State,
			"created_at":  time.Now().UTC(),
		}
		insertedID, err := s.collection().InsertOne(ctx, doc)
		if docstore.IsDuplicateKey(err) {
			continue
		}
		if err != nil {
			return CreateResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert customer")
		}
		id = insertedID.Hex()
		break
	}

	// Best-effort ledger write; the customer document is already committed
	// and a failure here must not unwind it.
	_, _ = s.history.Record(ctx, addresshistory.Entry{
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		Street:      req.Street,
		Village:     req.Village,
		Pincode:     req.Pincode,
		City:        req.City,
		State:       req.State,
		Type:        addresshistory.KindNew,
		UserCode:    code,
	})

	return CreateResult{ID: id, UserCode: code}, nil
}

func (s *service) AddAddress(ctx context.Context, code string, req CreateRequest) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer code is required")
	}

	doc, err := s.collection().FindOne(ctx, customerFilter(code), docstore.FindOptions{})
	if errors.Is(err, docstore.ErrNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find customer")
	}

	// The ledger's dedup check gates the append: a duplicate submission is
	// rejected before it reaches the customer document.
	if _, err := s.history.Record(ctx, addresshistory.Entry{
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		Street:      req.Street,
		Village:     req.Village,
		Pincode:     req.Pincode,
		City:        req.City,
		State:       req.State,
		Type:        addresshistory.KindAdded,
		UserCode:    code,
	}); err != nil {
		return err
	}

	oid, err := docid.Parse(docid.String(doc["_id"]))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "customer id")
	}

	entry := bson.M{
		"name":        req.Name,
		"phonenumber": req.PhoneNumber,
		"street":      req.Street,
		"village":     req.Village,
		"pincode":     req.Pincode,
		"city":        req.City,
		"state":       req.State,
	}
	if _, err := s.collection().UpdateByID(ctx, oid, bson.M{"$push": bson.M{"addresses": entry}}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append address")
	}
	return nil
}

// Get returns the customer with a normalized addresses list regardless of
// which historical document shape is stored.
func (s *service) Get(ctx context.Context, code string) (bson.M, error) {
	doc, err := s.findByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	fixed := docid.FixIdentifiers(doc).(bson.M)
	fixed["addresses"] = AddressList(doc)
	return fixed, nil
}

// Info is the compact back-office view of a customer: identity plus the most
// recent address with "-" placeholders for anything unresolved.
func (s *service) Info(ctx context.Context, code string) (bson.M, error) {
	doc, err := s.findByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	addresses := AddressList(doc)
	latest := bson.M{}
	if len(addresses) > 0 {
		latest = addresses[len(addresses)-1]
	}

	view := bson.M{
		"id":        docid.String(doc["_id"]),
		"user_code": CodeFromDoc(doc),
		"name":      stringOrDash(doc["name"]),
	}
	for _, field := range []string{"phonenumber", "street", "village", "pincode", "city", "state"} {
		view[field] = stringOrDash(latest[field])
	}
	if refs, ok := doc["order_ref_ids"]; ok {
		view["order_ref_ids"] = docid.FixIdentifiers(refs)
	}
	return view, nil
}

func (s *service) findByCode(ctx context.Context, code string) (bson.M, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer code is required")
	}
	doc, err := s.collection().FindOne(ctx, customerFilter(code), docstore.FindOptions{})
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find customer")
	}
	return doc, nil
}

// CodeFromDoc reads a customer code, preferring the current field name and
// falling back to the legacy one.
func CodeFromDoc(doc bson.M) string {
	if code, ok := doc["pisa_code"].(string); ok && code != "" {
		return code
	}
	if code, ok := doc["user_code"].(string); ok && code != "" {
		return code
	}
	return ""
}

// codeFilter matches any document carrying the code under either historical
// field name, order documents included.
func codeFilter(code string) bson.M {
	return bson.M{"$or": []bson.M{
		{"pisa_code": code},
		{"user_code": code},
	}}
}

// customerFilter narrows codeFilter to actual customer documents. Orders live
// in the same collection and repeat their owner's code; the absence of
// order_ref_id is what tells the two apart.
func customerFilter(code string) bson.M {
	filter := codeFilter(code)
	filter["order_ref_id"] = bson.M{"$exists": false}
	return filter
}

// AddressList normalizes the two persisted customer shapes into one ordered
// address slice: the flattened top-level fields first (when present), then
// any entries of the legacy embedded array.
func AddressList(doc bson.M) []bson.M {
	var out []bson.M

	if flat := flatAddress(doc); flat != nil {
		out = append(out, flat)
	}

	if raw, ok := doc["addresses"]; ok {
		for _, item := range toSlice(raw) {
			entry, ok := asDoc(item)
			if !ok {
				continue
			}
			normalized := bson.M{}
			for _, field := range []string{"name", "phonenumber", "street", "village", "pincode", "city", "state"} {
				normalized[field] = entry[field]
			}
			if normalized["name"] == nil {
				normalized["name"] = doc["name"]
			}
			if normalized["phonenumber"] == nil {
				normalized["phonenumber"] = doc["phonenumber"]
			}
			out = append(out, normalized)
		}
	}
	return out
}

func flatAddress(doc bson.M) bson.M {
	street, _ := doc["street"].(string)
	pincode, _ := doc["pincode"].(string)
	if street == "" && pincode == "" {
		return nil
	}
	return bson.M{
		"name":        doc["name"],
		"phonenumber": doc["phonenumber"],
		"street":      doc["street"],
		"village":     doc["village"],
		"pincode":     doc["pincode"],
		"city":        doc["city"],
		"state":       doc["state"],
	}
}

func stringOrDash(v any) string {
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return "-"
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
