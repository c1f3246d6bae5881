// find.go - Generic find-style operation executor

package mongoexec

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// FindOperation describes a find-style read against a collection. Build one
// with NewFindOperation, shape it with the chained setters, then run it with
// Execute (own binding, own context) or ExecuteWithContext (caller-owned
// context). The same descriptor may be executed any number of times.
type FindOperation struct {
	ns       Namespace
	settings *EncoderSettings

	filter     Doc
	sort       Doc
	projection Doc
	skip       int64
	limit      int64
	batchSize  int32

	mode           Mode
	retryRequested bool
	log            *zap.Logger
}

// NewFindOperation builds a find operation against ns. The namespace and
// encoder settings are mandatory; validation happens here, never at
// execution time.
func NewFindOperation(ns Namespace, settings *EncoderSettings) (*FindOperation, error) {
	if !ns.IsValid() {
		return nil, &ArgumentError{Name: "ns", Reason: "namespace " + ns.FullName() + " is not a valid collection namespace"}
	}
	if settings == nil {
		return nil, &ArgumentError{Name: "settings"}
	}
	return &FindOperation{
		ns:       ns,
		settings: settings,
		mode:     Primary,
		log:      defaultLogger(),
	}, nil
}

// SetFilter sets the query filter. A nil filter matches all documents. The
// document is treated as shared with the caller and is never mutated.
func (op *FindOperation) SetFilter(filter Doc) *FindOperation {
	op.filter = filter
	return op
}

// Sort sets the sort order from field names; a "-" prefix means descending.
func (op *FindOperation) Sort(fields ...string) *FindOperation {
	var sort Doc
	for _, field := range fields {
		order := 1
		if strings.HasPrefix(field, "-") {
			order = -1
			field = field[1:]
		}
		sort = append(sort, bson.E{Key: field, Value: order})
	}
	op.sort = sort
	return op
}

// Select sets the fields to project.
func (op *FindOperation) Select(projection Doc) *FindOperation {
	op.projection = projection
	return op
}

// Skip sets the number of documents to omit from the start of the result.
func (op *FindOperation) Skip(n int64) *FindOperation {
	op.skip = n
	return op
}

// Limit caps the number of documents returned.
func (op *FindOperation) Limit(n int64) *FindOperation {
	op.limit = n
	return op
}

// BatchSize sets the number of documents fetched per roundtrip.
func (op *FindOperation) BatchSize(n int32) *FindOperation {
	op.batchSize = n
	return op
}

// SetMode sets the read preference used during server selection.
func (op *FindOperation) SetMode(mode Mode) *FindOperation {
	op.mode = mode
	return op
}

// SetRetry permits the executor to retry once on a transient failure.
func (op *FindOperation) SetRetry(retry bool) *FindOperation {
	op.retryRequested = retry
	return op
}

func (op *FindOperation) querySpec() QuerySpec {
	filter := op.filter.D()
	if filter == nil {
		filter = bson.D{}
	}
	return QuerySpec{
		Filter:     filter,
		Sort:       op.sort.D(),
		Projection: op.projection.D(),
		Skip:       op.skip,
		Limit:      op.limit,
		BatchSize:  op.batchSize,
		Settings:   op.settings,
	}
}

// Execute selects a server through the binding, runs the find in a context
// of its own, and releases the lease before returning. The returned cursor
// stays usable; further fetches ride on state carried by the cursor itself.
func (op *FindOperation) Execute(ctx context.Context, binding Binding) (BatchCursor[bson.Raw], error) {
	rc, err := NewRetryContext(ctx, binding, op.mode.ReadPreference(), op.retryRequested)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return op.ExecuteWithContext(ctx, rc)
}

// ExecuteWithContext runs the find inside a caller-owned context. The
// context is not closed here; releasing the lease stays with whoever
// created it.
func (op *FindOperation) ExecuteWithContext(ctx context.Context, rc *RetryContext) (BatchCursor[bson.Raw], error) {
	if rc == nil {
		return nil, &ArgumentError{Name: "rc"}
	}
	spec := op.querySpec()
	op.log.Debug("executing find",
		zap.String("execution_id", rc.ID().String()),
		zap.String("namespace", op.ns.FullName()))
	return executeRetryable(ctx, rc, func(ch Channel) (BatchCursor[bson.Raw], error) {
		return ch.Query(ctx, op.ns, spec)
	})
}

// CursorResult carries the outcome of an asynchronous execution.
type CursorResult struct {
	Cursor BatchCursor[bson.Raw]
	Err    error
}

// ExecuteAsync runs Execute on its own goroutine and delivers the outcome on
// the returned channel. Behavior is identical to Execute by construction.
func (op *FindOperation) ExecuteAsync(ctx context.Context, binding Binding) <-chan CursorResult {
	out := make(chan CursorResult, 1)
	go func() {
		cursor, err := op.Execute(ctx, binding)
		out <- CursorResult{Cursor: cursor, Err: err}
	}()
	return out
}

// ExecuteWithContextAsync is the asynchronous form of ExecuteWithContext.
// The caller must keep the context open until the result is delivered.
func (op *FindOperation) ExecuteWithContextAsync(ctx context.Context, rc *RetryContext) <-chan CursorResult {
	out := make(chan CursorResult, 1)
	go func() {
		cursor, err := op.ExecuteWithContext(ctx, rc)
		out <- CursorResult{Cursor: cursor, Err: err}
	}()
	return out
}
