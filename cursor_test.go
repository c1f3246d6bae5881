package mongoexec_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/corewire/mongoexec"
)

func doubler(batch []int) ([]int, error) {
	out := make([]int, len(batch))
	for i, v := range batch {
		out[i] = v * 2
	}
	return out, nil
}

func TestTransformingCursorAppliesPerBatch(t *testing.T) {
	inner := newSliceCursor([]int{1, 2}, []int{3})
	cursor := mongoexec.NewTransformingBatchCursor(inner, doubler)
	ctx := context.Background()

	var got [][]int
	for cursor.Next(ctx) {
		got = append(got, cursor.Batch())
	}
	require.NoError(t, cursor.Err())
	assert.Equal(t, [][]int{{2, 4}, {6}}, got)
}

func TestTransformingCursorLazyOncePerBatch(t *testing.T) {
	calls := 0
	inner := newSliceCursor([]int{1, 2})
	cursor := mongoexec.NewTransformingBatchCursor(inner, func(batch []int) ([]int, error) {
		calls++
		return batch, nil
	})
	ctx := context.Background()

	require.True(t, cursor.Next(ctx))
	assert.Equal(t, 0, calls, "transform must not run before the batch is read")

	cursor.Batch()
	cursor.Batch()
	cursor.Batch()
	assert.Equal(t, 1, calls, "transform must run once per batch, not once per read")
}

func TestTransformingCursorCloseIdempotent(t *testing.T) {
	inner := newSliceCursor([]int{1})
	cursor := mongoexec.NewTransformingBatchCursor(inner, doubler)
	ctx := context.Background()

	require.NoError(t, cursor.Close(ctx))
	require.NoError(t, cursor.Close(ctx))
	assert.Equal(t, 1, inner.closes, "inner cursor must be closed exactly once")

	assert.False(t, cursor.Next(ctx))
}

func TestTransformingCursorTransformError(t *testing.T) {
	boom := errors.New("malformed document")
	inner := newSliceCursor([]int{1})
	cursor := mongoexec.NewTransformingBatchCursor(inner, func([]int) ([]int, error) {
		return nil, boom
	})
	ctx := context.Background()

	require.True(t, cursor.Next(ctx))
	assert.Nil(t, cursor.Batch(), "a failed transform must never expose a partial batch")
	assert.ErrorIs(t, cursor.Err(), boom)
	assert.False(t, cursor.Next(ctx))

	require.NoError(t, cursor.Close(ctx))
	assert.Equal(t, 1, inner.closes)
}

func TestTransformingCursorCancellation(t *testing.T) {
	inner := newSliceCursor([]int{1}, []int{2})
	cursor := mongoexec.NewTransformingBatchCursor(inner, doubler)
	ctx, cancel := context.WithCancel(context.Background())

	require.True(t, cursor.Next(ctx))
	assert.Equal(t, []int{2}, cursor.Batch())

	cancel()
	assert.False(t, cursor.Next(ctx))
	assert.ErrorIs(t, cursor.Err(), context.Canceled)

	// Still disposable after cancellation.
	require.NoError(t, cursor.Close(ctx))
	assert.Equal(t, 1, inner.closes)
}

func TestTransformingCursorInnerError(t *testing.T) {
	netErr := &mongoexec.NetworkError{Err: errors.New("connection reset")}
	inner := newSliceCursor([]int{1})
	inner.failAfter = 1
	inner.failWith = netErr
	cursor := mongoexec.NewTransformingBatchCursor(inner, doubler)
	ctx := context.Background()

	require.True(t, cursor.Next(ctx))
	assert.Equal(t, []int{2}, cursor.Batch())
	assert.False(t, cursor.Next(ctx))
	assert.ErrorIs(t, cursor.Err(), netErr)
}

func TestIterDecodesAcrossBatches(t *testing.T) {
	inner := newSliceCursor(
		[]bson.Raw{
			mustRaw(t, bson.D{{Key: "name", Value: "users"}}),
			mustRaw(t, bson.D{{Key: "name", Value: "orders"}}),
		},
		[]bson.Raw{
			mustRaw(t, bson.D{{Key: "name", Value: "events"}}),
		},
	)
	it := mongoexec.NewIter(context.Background(), inner, mongoexec.DefaultEncoderSettings())

	var names []string
	var doc struct {
		Name string `bson:"name"`
	}
	for it.Next(&doc) {
		names = append(names, doc.Name)
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"users", "orders", "events"}, names)

	require.NoError(t, it.Close())
	assert.Equal(t, 1, inner.closes)
}

func TestIterAll(t *testing.T) {
	inner := newSliceCursor(
		[]bson.Raw{mustRaw(t, bson.D{{Key: "name", Value: "users"}})},
		[]bson.Raw{mustRaw(t, bson.D{{Key: "name", Value: "orders"}})},
	)
	it := mongoexec.NewIter(context.Background(), inner, nil)

	var docs []mongoexec.CollectionInfo
	require.NoError(t, it.All(&docs))
	require.Len(t, docs, 2)
	assert.Equal(t, "users", docs[0].Name)
	assert.Equal(t, "orders", docs[1].Name)

	require.NoError(t, it.All(&docs), "an exhausted iterator yields an empty result")
	assert.Empty(t, docs)
}

func TestIterAllRequiresSlicePointer(t *testing.T) {
	it := mongoexec.NewIter(context.Background(), newSliceCursor[bson.Raw](), nil)
	var argErr *mongoexec.ArgumentError
	assert.ErrorAs(t, it.All("not a pointer"), &argErr)
}
