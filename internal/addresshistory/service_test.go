package addresshistory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pisakart/pisakart-backend/pkg/docstore/memstore"
	pkgerrors "github.com/pisakart/pisakart-backend/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(memstore.New())
	require.NoError(t, err)
	return svc
}

func sampleEntry(kind string) Entry {
	return Entry{
		Name:        "A",
		PhoneNumber: "9876543210",
		Street:      "12 MG Road",
		Village:     "Kothrud",
		Pincode:     "411038",
		City:        "Pune",
		State:       "MH",
		Type:        kind,
		UserCode:    "482913",
	}
}

func TestRecordDedupsNewAndAdded(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id, err := svc.Record(ctx, sampleEntry(KindNew))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// identical tuple, same kind class
	_, err = svc.Record(ctx, sampleEntry(KindAdded))
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	entries, err := svc.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestRecordSelectedNeverDedups(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Record(ctx, sampleEntry(KindSelected))
		require.NoError(t, err)
	}

	entries, err := svc.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
}

func TestRecordRejectsUnknownKind(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Record(context.Background(), sampleEntry("bogus"))
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestRecordSelectionIgnoresOtherKinds(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, recorded, err := svc.RecordSelection(ctx, sampleEntry(KindNew))
	require.NoError(t, err)
	require.False(t, recorded)

	id, recorded, err := svc.RecordSelection(ctx, sampleEntry(KindSelected))
	require.NoError(t, err)
	require.True(t, recorded)
	require.NotEmpty(t, id)

	entries, err := svc.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestDifferentTuplesDoNotConflict(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Record(ctx, sampleEntry(KindNew))
	require.NoError(t, err)

	other := sampleEntry(KindAdded)
	other.Street = "14 FC Road"
	_, err = svc.Record(ctx, other)
	require.NoError(t, err)

	unresolved := sampleEntry(KindNew)
	unresolved.UserCode = ""
	_, err = svc.Record(ctx, unresolved)
	require.NoError(t, err)
}

func TestDeleteReturnsEntryForUndo(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id, err := svc.Record(ctx, sampleEntry(KindNew))
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "12 MG Road", deleted["street"])
	require.Equal(t, id, deleted["id"])
	require.NotContains(t, deleted, "_id")

	entries, err := svc.List(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestDeleteErrors(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Delete(ctx, primitive.NewObjectID().Hex())
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	_, err = svc.Delete(ctx, "not-an-id")
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestRestoreRegeneratesIdentifier(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	id, err := svc.Record(ctx, sampleEntry(KindNew))
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, id)
	require.NoError(t, err)

	restoredID, err := svc.Restore(ctx, Entry{
		Name:        deleted["name"].(string),
		PhoneNumber: deleted["phonenumber"].(string),
		Street:      deleted["street"].(string),
		Pincode:     deleted["pincode"].(string),
		Type:        KindNew,
		UserCode:    "482913",
	})
	require.NoError(t, err)
	require.NotEqual(t, id, restoredID)
}

func TestRestoreConflictsWhenTupleExists(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Record(ctx, sampleEntry(KindNew))
	require.NoError(t, err)

	_, err = svc.Restore(ctx, sampleEntry(KindAdded))
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestClearRemovesEverything(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Record(ctx, sampleEntry(KindNew))
	require.NoError(t, err)
	_, err = svc.Record(ctx, sampleEntry(KindSelected))
	require.NoError(t, err)

	removed, err := svc.Clear(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, removed)
}

func TestListNewestFirst(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first := sampleEntry(KindSelected)
	first.Street = "older"
	_, err := svc.Record(ctx, first)
	require.NoError(t, err)

	second := sampleEntry(KindSelected)
	second.Street = "newer"
	_, err = svc.Record(ctx, second)
	require.NoError(t, err)

	entries, err := svc.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "newer", entries[0]["street"])

	one, err := svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, one, 1)
}
