// Package docid hides the store's binary identifier format behind the opaque
// hex strings exchanged over the wire.
package docid

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	pkgerrors "github.com/pisakart/pisakart-backend/pkg/errors"
)

// Parse converts a caller-supplied id string into an ObjectID. Malformed input
// maps to a validation error so handlers never 500 on a bad id.
func Parse(raw string) (primitive.ObjectID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return primitive.NilObjectID, pkgerrors.New(pkgerrors.CodeValidation, "id is required")
	}
	id, err := primitive.ObjectIDFromHex(trimmed)
	if err != nil {
		return primitive.NilObjectID, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("invalid id %q", trimmed))
	}
	return id, nil
}

// String renders an identifier value in its wire form.
func String(v any) string {
	switch typed := v.(type) {
	case primitive.ObjectID:
		return typed.Hex()
	case string:
		return typed
	default:
		return fmt.Sprint(typed)
	}
}

// FixIdentifiers rewrites every "_id" in a document tree into a caller-visible
// "id" string, recursing through nested documents and arrays. Applying it to
// an already-fixed value is a no-op.
func FixIdentifiers(v any) any {
	switch typed := v.(type) {
	case bson.M:
		return fixDoc(typed)
	case map[string]any:
		return fixDoc(bson.M(typed))
	case bson.A:
		return fixSlice(typed)
	case []any:
		return fixSlice(typed)
	case []bson.M:
		out := make([]any, len(typed))
		for i, doc := range typed {
			out[i] = fixDoc(doc)
		}
		return out
	case primitive.ObjectID:
		return typed.Hex()
	default:
		return v
	}
}

func fixDoc(doc bson.M) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		if k == "_id" {
			out["id"] = String(v)
			continue
		}
		out[k] = FixIdentifiers(v)
	}
	return out
}

func fixSlice(items []any) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = FixIdentifiers(item)
	}
	return out
}
