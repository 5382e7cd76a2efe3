package payments

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/pisakart/pisakart-backend/pkg/docid"
	"github.com/pisakart/pisakart-backend/pkg/docstore"
	pkgerrors "github.com/pisakart/pisakart-backend/pkg/errors"
	"github.com/pisakart/pisakart-backend/pkg/instamojo"
)

const (
	MethodPrepaid = "prepaid"
	MethodCOD     = "cod"
)

// CodeResolver supplies the current-customer heuristic for tagging a payment
// selection with its owner.
type CodeResolver interface {
	ResolveCurrentCode(ctx context.Context) (string, error)
}

// Gateway is the hosted-checkout collaborator. Exactly two outcomes: a
// payment URL, or an error.
type Gateway interface {
	CreatePayment(ctx context.Context, req instamojo.PaymentRequest) (string, error)
}

// RecordResult acknowledges a stored payment selection.
type RecordResult struct {
	ID       string `json:"id"`
	Method   string `json:"payment_method"`
	UserCode string `json:"user_code,omitempty"`
}

// Service stores payment method selections and brokers gateway checkouts.
type Service interface {
	Record(ctx context.Context, method string) (RecordResult, error)
	List(ctx context.Context, limit int64) ([]bson.M, error)
	Delete(ctx context.Context, id string) error
	CreatePayment(ctx context.Context, req instamojo.PaymentRequest) (string, error)
}

type service struct {
	store    docstore.Store
	resolver CodeResolver
	gateway  Gateway
}

// NewService wires payment selection against the document store. The gateway
// may be nil when no credentials are configured; CreatePayment then fails
// with a dependency error instead of panicking.
func NewService(store docstore.Store, resolver CodeResolver, gateway Gateway) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "document store required")
	}
	if resolver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "code resolver required")
	}
	return &service{store: store, resolver: resolver, gateway: gateway}, nil
}

func (s *service) collection() docstore.Collection {
	return s.store.Collection(docstore.CollectionPayments)
}

func (s *service) Record(ctx context.Context, method string) (RecordResult, error) {
	method = strings.ToLower(strings.TrimSpace(method))
	if method != MethodPrepaid && method != MethodCOD {
		return RecordResult{}, pkgerrors.New(pkgerrors.CodeValidation, "payment method must be prepaid or cod")
	}

	// Best effort: a payment selection without an owner is still recorded.
	code, err := s.resolver.ResolveCurrentCode(ctx)
	if err != nil {
		code = ""
	}

	doc := bson.M{
		"payment_method": method,
		"timestamp":      time.Now().UTC(),
	}
	if code != "" {
		doc["user_code"] = code
	}

	id, err := s.collection().InsertOne(ctx, doc)
	if err != nil {
		return RecordResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert payment selection")
	}
	return RecordResult{ID: id.Hex(), Method: method, UserCode: code}, nil
}

func (s *service) List(ctx context.Context, limit int64) ([]bson.M, error) {
	docs, err := s.collection().Find(ctx, bson.M{}, docstore.FindOptions{
		Sort:  bson.D{{Key: "timestamp", Value: -1}},
		Limit: limit,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payments")
	}
	out := make([]bson.M, 0, len(docs))
	for _, doc := range docs {
		out = append(out, docid.FixIdentifiers(doc).(bson.M))
	}
	return out, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	oid, err := docid.Parse(id)
	if err != nil {
		return err
	}
	if _, err := s.collection().FindOneAndDelete(ctx, bson.M{"_id": oid}); err != nil {
		if err == docstore.ErrNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete payment")
	}
	return nil
}

func (s *service) CreatePayment(ctx context.Context, req instamojo.PaymentRequest) (string, error) {
	if s.gateway == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured")
	}
	return s.gateway.CreatePayment(ctx, req)
}
