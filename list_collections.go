// list_collections.go - List-collections operation with capability resolution

package mongoexec

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// ListCollectionsOperation lists the collections of a database. Against
// servers that understand the listCollections command it runs the command;
// against older servers it falls back to querying the legacy catalog
// collection and rewrites the results so callers cannot tell which path
// served them.
type ListCollectionsOperation struct {
	ns       Namespace
	settings *EncoderSettings

	filter         Doc
	mode           Mode
	retryRequested bool
	log            *zap.Logger
}

// NewListCollectionsOperation builds the operation for the database named by
// ns. The namespace's database part and the encoder settings are mandatory.
func NewListCollectionsOperation(ns Namespace, settings *EncoderSettings) (*ListCollectionsOperation, error) {
	if !ns.IsDatabaseValid() {
		return nil, &ArgumentError{Name: "ns", Reason: "database name " + ns.DB + " is not valid"}
	}
	if settings == nil {
		return nil, &ArgumentError{Name: "settings"}
	}
	return &ListCollectionsOperation{
		ns:       ns,
		settings: settings,
		mode:     Primary,
		log:      defaultLogger(),
	}, nil
}

// SetFilter restricts the listing. A "name" field, if present, must hold the
// bare collection name; the database prefix is always added internally when
// the legacy path runs. The document is shared with the caller and is never
// mutated.
func (op *ListCollectionsOperation) SetFilter(filter Doc) *ListCollectionsOperation {
	op.filter = filter
	return op
}

// SetMode sets the read preference used during server selection.
func (op *ListCollectionsOperation) SetMode(mode Mode) *ListCollectionsOperation {
	op.mode = mode
	return op
}

// SetRetry permits the executor to retry once on a transient failure.
func (op *ListCollectionsOperation) SetRetry(retry bool) *ListCollectionsOperation {
	op.retryRequested = retry
	return op
}

// listCollectionsExecutor is one resolved protocol variant. Resolution
// happens once per attempt, against the description of the channel the
// attempt runs on.
type listCollectionsExecutor interface {
	run(ctx context.Context, rc *RetryContext, ch Channel) (BatchCursor[bson.Raw], error)
}

func (op *ListCollectionsOperation) resolve(desc ServerDescription) listCollectionsExecutor {
	if desc.SupportsListCollections() {
		return commandListCollections{op: op}
	}
	return legacyListCollections{op: op}
}

// commandListCollections runs the modern listCollections command.
type commandListCollections struct {
	op *ListCollectionsOperation
}

func (e commandListCollections) run(ctx context.Context, rc *RetryContext, ch Channel) (BatchCursor[bson.Raw], error) {
	cmd := bson.D{{Key: "listCollections", Value: 1}}
	if e.op.filter != nil {
		cmd = append(cmd, bson.E{Key: "filter", Value: e.op.filter.D()})
	}
	return ch.Command(ctx, e.op.ns.DB, cmd, e.op.settings)
}

// Execute selects a server through the binding, lists collections in a
// context of its own, and releases the lease before returning.
func (op *ListCollectionsOperation) Execute(ctx context.Context, binding Binding) (BatchCursor[bson.Raw], error) {
	rc, err := NewRetryContext(ctx, binding, op.mode.ReadPreference(), op.retryRequested)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return op.ExecuteWithContext(ctx, rc)
}

// ExecuteWithContext lists collections inside a caller-owned context, which
// is not closed here.
func (op *ListCollectionsOperation) ExecuteWithContext(ctx context.Context, rc *RetryContext) (BatchCursor[bson.Raw], error) {
	if rc == nil {
		return nil, &ArgumentError{Name: "rc"}
	}
	return executeRetryable(ctx, rc, func(ch Channel) (BatchCursor[bson.Raw], error) {
		exec := op.resolve(ch.Description())
		if _, legacy := exec.(legacyListCollections); legacy {
			op.log.Debug("server lacks listCollections, using catalog query",
				zap.String("execution_id", rc.ID().String()),
				zap.String("server", ch.Description().Address))
		}
		return exec.run(ctx, rc.Borrow(), ch)
	})
}

// ExecuteAsync runs Execute on its own goroutine and delivers the outcome on
// the returned channel. Behavior is identical to Execute by construction.
func (op *ListCollectionsOperation) ExecuteAsync(ctx context.Context, binding Binding) <-chan CursorResult {
	out := make(chan CursorResult, 1)
	go func() {
		cursor, err := op.Execute(ctx, binding)
		out <- CursorResult{Cursor: cursor, Err: err}
	}()
	return out
}

// ExecuteWithContextAsync is the asynchronous form of ExecuteWithContext.
// The caller must keep the context open until the result is delivered.
func (op *ListCollectionsOperation) ExecuteWithContextAsync(ctx context.Context, rc *RetryContext) <-chan CursorResult {
	out := make(chan CursorResult, 1)
	go func() {
		cursor, err := op.ExecuteWithContext(ctx, rc)
		out <- CursorResult{Cursor: cursor, Err: err}
	}()
	return out
}

// CollectionInfo is the decoded form of one listing entry.
type CollectionInfo struct {
	Name    string   `bson:"name"`
	Type    string   `bson:"type,omitempty"`
	Options bson.Raw `bson:"options,omitempty"`
}

// Collections executes the operation and drains the cursor into a slice of
// decoded entries.
func (op *ListCollectionsOperation) Collections(ctx context.Context, binding Binding) ([]CollectionInfo, error) {
	cursor, err := op.Execute(ctx, binding)
	if err != nil {
		return nil, err
	}
	it := NewIter(ctx, cursor, op.settings)
	var infos []CollectionInfo
	if err := it.All(&infos); err != nil {
		it.Close()
		return nil, err
	}
	return infos, it.Close()
}
