// Package memstore is an in-memory docstore.Store used by tests. It evaluates
// the small filter subset the services rely on: field equality, $or, $in, $ne
// and $exists, plus sort/limit and $set/$push updates.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pisakart/pisakart-backend/pkg/docstore"
)

type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type uniqueIndex struct {
	fields []string
}

type collection struct {
	docs    []bson.M
	uniques []uniqueIndex
}

func New() *Store {
	return &Store{collections: map[string]*collection{}}
}

// RegisterUniqueIndex mimics a store-level unique constraint on the given
// field tuple; inserts violating it fail with docstore.ErrDuplicateKey.
func (s *Store) RegisterUniqueIndex(name string, fields ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll := s.collection(name)
	coll.uniques = append(coll.uniques, uniqueIndex{fields: fields})
}

func (s *Store) Collection(name string) docstore.Collection {
	return &memCollection{store: s, name: name}
}

func (s *Store) collection(name string) *collection {
	coll, ok := s.collections[name]
	if !ok {
		coll = &collection{}
		s.collections[name] = coll
	}
	return coll
}

type memCollection struct {
	store *Store
	name  string
}

func (c *memCollection) InsertOne(_ context.Context, doc bson.M) (primitive.ObjectID, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	coll := c.store.collection(c.name)
	stored := copyDoc(doc)

	id, ok := stored["_id"].(primitive.ObjectID)
	if !ok {
		id = primitive.NewObjectID()
		stored["_id"] = id
	}

	for _, idx := range coll.uniques {
		if violatesUnique(coll.docs, stored, idx.fields) {
			return primitive.NilObjectID, docstore.ErrDuplicateKey
		}
	}

	coll.docs = append(coll.docs, stored)
	return id, nil
}

func (c *memCollection) Find(_ context.Context, filter bson.M, opts docstore.FindOptions) ([]bson.M, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	coll := c.store.collection(c.name)
	var matched []bson.M
	for _, doc := range coll.docs {
		if matchFilter(doc, filter) {
			matched = append(matched, copyDoc(doc))
		}
	}

	applySort(matched, opts.Sort)
	if opts.Limit > 0 && int64(len(matched)) > opts.Limit {
		matched = matched[:opts.Limit]
	}
	return matched, nil
}

func (c *memCollection) FindOne(ctx context.Context, filter bson.M, opts docstore.FindOptions) (bson.M, error) {
	opts.Limit = 1
	docs, err := c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, docstore.ErrNotFound
	}
	return docs[0], nil
}

func (c *memCollection) UpdateByID(_ context.Context, id primitive.ObjectID, update bson.M) (int64, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	coll := c.store.collection(c.name)
	for _, doc := range coll.docs {
		docID, ok := doc["_id"].(primitive.ObjectID)
		if !ok || docID != id {
			continue
		}
		if set, ok := update["$set"].(bson.M); ok {
			for k, v := range set {
				doc[k] = copyValue(v)
			}
		}
		if push, ok := update["$push"].(bson.M); ok {
			for k, v := range push {
				existing, _ := doc[k].(bson.A)
				doc[k] = append(existing, copyValue(v))
			}
		}
		return 1, nil
	}
	return 0, nil
}

func (c *memCollection) FindOneAndDelete(_ context.Context, filter bson.M) (bson.M, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	coll := c.store.collection(c.name)
	for i, doc := range coll.docs {
		if matchFilter(doc, filter) {
			coll.docs = append(coll.docs[:i], coll.docs[i+1:]...)
			return copyDoc(doc), nil
		}
	}
	return nil, docstore.ErrNotFound
}

func (c *memCollection) DeleteMany(_ context.Context, filter bson.M) (int64, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	coll := c.store.collection(c.name)
	var kept []bson.M
	var removed int64
	for _, doc := range coll.docs {
		if matchFilter(doc, filter) {
			removed++
			continue
		}
		kept = append(kept, doc)
	}
	coll.docs = kept
	return removed, nil
}

func (c *memCollection) CountDocuments(_ context.Context, filter bson.M) (int64, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	coll := c.store.collection(c.name)
	var count int64
	for _, doc := range coll.docs {
		if matchFilter(doc, filter) {
			count++
		}
	}
	return count, nil
}

func violatesUnique(docs []bson.M, candidate bson.M, fields []string) bool {
	present := false
	for _, f := range fields {
		if _, ok := candidate[f]; ok {
			present = true
			break
		}
	}
	if !present {
		return false
	}
	for _, doc := range docs {
		same := true
		for _, f := range fields {
			if !looseEqual(doc[f], candidate[f]) {
				same = false
				break
			}
		}
		if same {
			return true
		}
	}
	return false
}

func matchFilter(doc bson.M, filter bson.M) bool {
	for key, cond := range filter {
		if key == "$or" {
			if !matchOr(doc, cond) {
				return false
			}
			continue
		}
		if !matchField(doc, key, cond) {
			return false
		}
	}
	return true
}

func matchOr(doc bson.M, cond any) bool {
	branches := toSlice(cond)
	for _, branch := range branches {
		if sub, ok := asDoc(branch); ok && matchFilter(doc, sub) {
			return true
		}
	}
	return false
}

func matchField(doc bson.M, key string, cond any) bool {
	value, exists := doc[key]
	if ops, ok := asDoc(cond); ok && hasOperator(ops) {
		for op, arg := range ops {
			switch op {
			case "$eq":
				if !looseEqual(value, arg) {
					return false
				}
			case "$ne":
				if looseEqual(value, arg) {
					return false
				}
			case "$in":
				found := false
				for _, candidate := range toSlice(arg) {
					if looseEqual(value, candidate) {
						found = true
						break
					}
				}
				if !found {
					return false
				}
			case "$exists":
				want, _ := arg.(bool)
				if exists != want {
					return false
				}
			default:
				return false
			}
		}
		return true
	}
	return looseEqual(value, cond)
}

func hasOperator(doc bson.M) bool {
	for k := range doc {
		if strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
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
	case []any:
		return typed
	case bson.A:
		return typed
	case []bson.M:
		out := make([]any, len(typed))
		for i, m := range typed {
			out[i] = m
		}
		return out
	case []string:
		out := make([]any, len(typed))
		for i, s := range typed {
			out[i] = s
		}
		return out
	}
	return nil
}

func applySort(docs []bson.M, sortSpec bson.D) {
	if len(sortSpec) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, field := range sortSpec {
			cmp := compareValues(docs[i][field.Key], docs[j][field.Key])
			if cmp == 0 {
				continue
			}
			desc := false
			if dir, ok := toInt64(field.Value); ok && dir < 0 {
				desc = true
			}
			if desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// compareValues orders nil (absent field) below everything so that descending
// sorts push documents missing the key to the end.
func compareValues(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			default:
				return 0
			}
		}
	}
	if ad, ok := a.(primitive.DateTime); ok {
		if bd, ok := b.(primitive.DateTime); ok {
			switch {
			case ad < bd:
				return -1
			case ad > bd:
				return 1
			default:
				return 0
			}
		}
	}
	if aid, ok := a.(primitive.ObjectID); ok {
		if bid, ok := b.(primitive.ObjectID); ok {
			return strings.Compare(aid.Hex(), bid.Hex())
		}
	}
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs)
	}
	return 0
}

func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
	}
	if aid, ok := a.(primitive.ObjectID); ok {
		if bid, ok := b.(primitive.ObjectID); ok {
			return aid == bid
		}
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Equal(bt)
		}
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			return ab == bb
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as == bs
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch typed := v.(type) {
	case int:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case float32:
		return float64(typed), true
	case float64:
		return typed, true
	}
	return 0, false
}

func toInt64(v any) (int64, bool) {
	switch typed := v.(type) {
	case int:
		return int64(typed), true
	case int32:
		return int64(typed), true
	case int64:
		return typed, true
	}
	return 0, false
}

func copyDoc(doc bson.M) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch typed := v.(type) {
	case bson.M:
		return copyDoc(typed)
	case map[string]any:
		return copyDoc(bson.M(typed))
	case bson.A:
		out := make(bson.A, len(typed))
		for i, item := range typed {
			out[i] = copyValue(item)
		}
		return out
	case []any:
		out := make(bson.A, len(typed))
		for i, item := range typed {
			out[i] = copyValue(item)
		}
		return out
	case []bson.M:
		out := make(bson.A, len(typed))
		for i, item := range typed {
			out[i] = copyDoc(item)
		}
		return out
	}
	return v
}
