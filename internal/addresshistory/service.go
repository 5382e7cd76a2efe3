package addresshistory

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/pisakart/pisakart-backend/pkg/docid"
	"github.com/pisakart/pisakart-backend/pkg/docstore"
	pkgerrors "github.com/pisakart/pisakart-backend/pkg/errors"
)

// Entry kinds. New and added entries dedup; selected entries are a write-only
// audit trail.
const (
	KindNew      = "new"
	KindAdded    = "added"
	KindSelected = "selected"
)

// Entry is one address event as submitted by a caller. ID is accepted on
// restore payloads but never stored; restores always mint a fresh identifier.
type Entry struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phonenumber" validate:"required"`
	Street      string `json:"street" validate:"required"`
	Village     string `json:"village"`
	Pincode     string `json:"pincode" validate:"required"`
	City        string `json:"city"`
	State       string `json:"state"`
	Type        string `json:"type"`
	UserCode    string `json:"userCode"`
	Timestamp   string `json:"timestamp,omitempty"`
}

// Service is the append-only-with-dedup ledger of address events.
type Service interface {
	Record(ctx context.Context, entry Entry) (string, error)
	RecordSelection(ctx context.Context, entry Entry) (string, bool, error)
	List(ctx context.Context, limit int64) ([]bson.M, error)
	Delete(ctx context.Context, id string) (bson.M, error)
	Restore(ctx context.Context, entry Entry) (string, error)
	Clear(ctx context.Context) (int64, error)
}

type service struct {
	store docstore.Store
}

// NewService wires the ledger against a document store.
func NewService(store docstore.Store) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "document store required")
	}
	return &service{store: store}, nil
}

func (s *service) collection() docstore.Collection {
	return s.store.Collection(docstore.CollectionAddressHistory)
}

// Record inserts one ledger entry. Entries of kind new/added are rejected with
// a conflict when the same (userCode, street, pincode, phonenumber) tuple
// already exists among those two kinds; selected entries always insert.
func (s *service) Record(ctx context.Context, entry Entry) (string, error) {
	kind := strings.TrimSpace(entry.Type)
	switch kind {
	case KindNew, KindAdded:
		if err := s.checkDuplicate(ctx, entry); err != nil {
			return "", err
		}
	case KindSelected:
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "type must be one of new, added, selected")
	}

	id, err := s.collection().InsertOne(ctx, entry.document(kind, time.Now().UTC()))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert address history entry")
	}
	return id.Hex(), nil
}

// RecordSelection is the narrow endpoint used during checkout: it records
// selected-typed payloads only and silently skips everything else.
func (s *service) RecordSelection(ctx context.Context, entry Entry) (string, bool, error) {
	if strings.TrimSpace(entry.Type) != KindSelected {
		return "", false, nil
	}
	id, err := s.Record(ctx, entry)
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (s *service) List(ctx context.Context, limit int64) ([]bson.M, error) {
	docs, err := s.collection().Find(ctx, bson.M{}, docstore.FindOptions{
		Sort:  bson.D{{Key: "timestamp", Value: -1}},
		Limit: limit,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list address history")
	}
	out := make([]bson.M, 0, len(docs))
	for _, doc := range docs {
		out = append(out, docid.FixIdentifiers(doc).(bson.M))
	}
	return out, nil
}

// Delete removes one entry by id and returns it so callers can offer undo.
func (s *service) Delete(ctx context.Context, id string) (bson.M, error) {
	oid, err := docid.Parse(id)
	if err != nil {
		return nil, err
	}
	doc, err := s.collection().FindOneAndDelete(ctx, bson.M{"_id": oid})
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete address history entry")
	}
	return docid.FixIdentifiers(doc).(bson.M), nil
}

// Restore re-inserts a previously deleted entry under a fresh identifier. The
// dedup invariant still applies, so restoring an address that was re-created
// in the meantime surfaces as a conflict rather than a silent merge.
func (s *service) Restore(ctx context.Context, entry Entry) (string, error) {
	kind := strings.TrimSpace(entry.Type)
	if kind == "" {
		kind = KindNew
	}
	if kind == KindNew || kind == KindAdded {
		if err := s.checkDuplicate(ctx, entry); err != nil {
			return "", err
		}
	}

	ts := time.Now().UTC()
	if entry.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, entry.Timestamp); err == nil {
			ts = parsed
		}
	}

	id, err := s.collection().InsertOne(ctx, entry.document(kind, ts))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restore address history entry")
	}
	return id.Hex(), nil
}

func (s *service) Clear(ctx context.Context) (int64, error) {
	removed, err := s.collection().DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear address history")
	}
	return removed, nil
}

func (s *service) checkDuplicate(ctx context.Context, entry Entry) error {
	count, err := s.collection().CountDocuments(ctx, bson.M{
		"userCode":    userCodeValue(entry.UserCode),
		"street":      entry.Street,
		"pincode":     entry.Pincode,
		"phonenumber": entry.PhoneNumber,
		"type":        bson.M{"$in": []string{KindNew, KindAdded}},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check duplicate address")
	}
	if count > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "duplicate address").WithDetails(map[string]any{
			"street":  entry.Street,
			"pincode": entry.Pincode,
		})
	}
	return nil
}

func (e Entry) document(kind string, ts time.Time) bson.M {
	return bson.M{
		"name":        e.Name,
		"phonenumber": e.PhoneNumber,
		"street":      e.Street,
		"village":     e.Village,
		"pincode":     e.Pincode,
		"city":        e.City,
		"state":       e.State,
		"type":        kind,
		"userCode":    userCodeValue(e.UserCode),
		"timestamp":   ts,
	}
}

// userCodeValue keeps the historical nullable userCode shape: the field is
// always present, null when unresolved.
func userCodeValue(code string) any {
	if strings.TrimSpace(code) == "" {
		return nil
	}
	return code
}
