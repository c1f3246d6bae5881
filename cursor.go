// cursor.go - Batch cursors and the document iterator built on top of them

package mongoexec

import (
	"context"
	"reflect"

	"go.mongodb.org/mongo-driver/bson"
)

// BatchCursor is a lazy sequence of batches of documents, each batch fetched
// on demand. Next advances to the following batch; Batch returns the current
// one. Once Next reports false the cursor is exhausted and cannot rewind.
type BatchCursor[T any] interface {
	Next(ctx context.Context) bool
	Batch() []T
	Err() error
	Close(ctx context.Context) error
}

// TransformingBatchCursor wraps a raw cursor it exclusively owns, applying a
// pure per-batch transformation before exposing documents. Batch boundaries
// and in-batch order are preserved; the transform may drop or relabel
// documents but never reorders them.
type TransformingBatchCursor[S, T any] struct {
	inner     BatchCursor[S]
	transform func([]S) ([]T, error)

	current     []T
	transformed bool
	err         error
	closed      bool
}

// NewTransformingBatchCursor wraps inner with the given transform. The
// wrapper takes exclusive ownership of inner; closing the wrapper closes it.
func NewTransformingBatchCursor[S, T any](inner BatchCursor[S], transform func([]S) ([]T, error)) *TransformingBatchCursor[S, T] {
	return &TransformingBatchCursor[S, T]{inner: inner, transform: transform}
}

// Next advances to the next batch. No transformation is applied to an absent
// batch: exhaustion and errors pass straight through from the inner cursor.
func (c *TransformingBatchCursor[S, T]) Next(ctx context.Context) bool {
	if c.err != nil || c.closed {
		return false
	}
	if ctx.Err() != nil {
		c.err = ctx.Err()
		c.current = nil
		c.transformed = true
		return false
	}
	if !c.inner.Next(ctx) {
		// Exhaustion or inner failure: keep whatever fully-transformed
		// batch was already exposed, never touch the stale inner batch.
		c.err = c.inner.Err()
		c.transformed = true
		return false
	}
	c.current = nil
	c.transformed = false
	return true
}

// Batch returns the current batch with the transformation applied. The
// transform runs once per batch on first access, not once per read. If it
// fails, Batch returns nil and the error is held for Err; no half-applied
// batch is ever exposed.
func (c *TransformingBatchCursor[S, T]) Batch() []T {
	if !c.transformed {
		c.transformed = true
		out, err := c.transform(c.inner.Batch())
		if err != nil {
			c.err = err
			c.current = nil
			return nil
		}
		c.current = out
	}
	return c.current
}

// Err returns the first error encountered by iteration or transformation.
func (c *TransformingBatchCursor[S, T]) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.inner.Err()
}

// Close releases the inner cursor. Safe to call multiple times; the inner
// cursor is closed exactly once.
func (c *TransformingBatchCursor[S, T]) Close(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.inner.Close(ctx)
}

// Iter walks a raw batch cursor document by document, decoding each into a
// caller-supplied value through the encoder settings' registry.
type Iter struct {
	ctx      context.Context
	cursor   BatchCursor[bson.Raw]
	settings *EncoderSettings

	batch []bson.Raw
	pos   int
	err   error
}

// NewIter wraps cursor. The iterator takes ownership: Close closes the
// cursor. The given context is threaded through every batch fetch.
func NewIter(ctx context.Context, cursor BatchCursor[bson.Raw], settings *EncoderSettings) *Iter {
	if settings == nil {
		settings = DefaultEncoderSettings()
	}
	return &Iter{ctx: ctx, cursor: cursor, settings: settings}
}

// Next decodes the next document into result and reports whether one was
// available. A false return means exhaustion or error; check Err.
func (it *Iter) Next(result interface{}) bool {
	if it.err != nil {
		return false
	}
	if it.cursor == nil {
		it.err = ErrNotFound
		return false
	}
	for it.pos >= len(it.batch) {
		if !it.cursor.Next(it.ctx) {
			// End of cursor is normal; an actual error sticks.
			it.err = it.cursor.Err()
			return false
		}
		it.batch = it.cursor.Batch()
		if err := it.cursor.Err(); err != nil {
			it.err = err
			return false
		}
		it.pos = 0
	}
	raw := it.batch[it.pos]
	it.pos++
	it.err = it.settings.Decode(raw, result)
	return it.err == nil
}

// Err returns the error that stopped iteration, if any.
func (it *Iter) Err() error {
	return it.err
}

// Close closes the underlying cursor and returns the sticky iteration error,
// if any.
func (it *Iter) Close() error {
	if it.cursor != nil {
		err := it.cursor.Close(it.ctx)
		if err != nil && it.err == nil {
			it.err = err
		}
	}
	return it.err
}

// All decodes every remaining document into result, which must be a pointer
// to a slice. Decoding goes document by document to respect the registry for
// each element type.
func (it *Iter) All(result interface{}) error {
	dstValue := reflect.ValueOf(result)
	if dstValue.Kind() != reflect.Ptr || dstValue.Elem().Kind() != reflect.Slice {
		return &ArgumentError{Name: "result", Reason: "must be a pointer to a slice"}
	}
	dstSlice := dstValue.Elem()
	elementType := dstSlice.Type().Elem()
	newSlice := reflect.MakeSlice(dstSlice.Type(), 0, 0)

	for {
		element := reflect.New(elementType)
		if !it.Next(element.Interface()) {
			break
		}
		newSlice = reflect.Append(newSlice, element.Elem())
	}
	if it.err != nil {
		return it.err
	}
	dstSlice.Set(newSlice)
	return nil
}
