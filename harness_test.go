package mongoexec_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/corewire/mongoexec"
)

// sliceCursor serves pre-scripted batches and counts closes. failAfter, when
// non-negative, makes Next fail once that many batches have been served.
type sliceCursor[T any] struct {
	batches   [][]T
	idx       int
	err       error
	failAfter int
	failWith  error
	closes    int
}

func newSliceCursor[T any](batches ...[]T) *sliceCursor[T] {
	return &sliceCursor[T]{batches: batches, idx: -1, failAfter: -1}
}

func (c *sliceCursor[T]) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}
	if ctx.Err() != nil {
		c.err = ctx.Err()
		return false
	}
	if c.failAfter >= 0 && c.idx+1 >= c.failAfter {
		c.err = c.failWith
		return false
	}
	c.idx++
	return c.idx < len(c.batches)
}

func (c *sliceCursor[T]) Batch() []T {
	if c.idx < 0 || c.idx >= len(c.batches) {
		return nil
	}
	return c.batches[c.idx]
}

func (c *sliceCursor[T]) Err() error { return c.err }

func (c *sliceCursor[T]) Close(ctx context.Context) error {
	c.closes++
	return nil
}

// roundtrip is one scripted Query/Command outcome served by a fakeChannel.
type roundtrip struct {
	cursor mongoexec.BatchCursor[bson.Raw]
	err    error
}

type queryCall struct {
	ns   mongoexec.Namespace
	spec mongoexec.QuerySpec
}

type commandCall struct {
	db  string
	cmd bson.D
}

type fakeChannel struct {
	desc       mongoexec.ServerDescription
	roundtrips []roundtrip
	served     int
	queries    []queryCall
	commands   []commandCall
	released   int
}

func (c *fakeChannel) Description() mongoexec.ServerDescription { return c.desc }

func (c *fakeChannel) next() (mongoexec.BatchCursor[bson.Raw], error) {
	if c.served >= len(c.roundtrips) {
		return newSliceCursor[bson.Raw](), nil
	}
	rt := c.roundtrips[c.served]
	c.served++
	return rt.cursor, rt.err
}

func (c *fakeChannel) Query(ctx context.Context, ns mongoexec.Namespace, spec mongoexec.QuerySpec) (mongoexec.BatchCursor[bson.Raw], error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	c.queries = append(c.queries, queryCall{ns: ns, spec: spec})
	return c.next()
}

func (c *fakeChannel) Command(ctx context.Context, db string, cmd bson.D, _ *mongoexec.EncoderSettings) (mongoexec.BatchCursor[bson.Raw], error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	c.commands = append(c.commands, commandCall{db: db, cmd: cmd})
	return c.next()
}

func (c *fakeChannel) Release() { c.released++ }

// grant is one scripted GetChannel outcome served by a fakeBinding.
type grant struct {
	ch  *fakeChannel
	err error
}

type fakeBinding struct {
	grants []grant
	calls  int
	prefs  []*readpref.ReadPref
}

func (b *fakeBinding) GetChannel(ctx context.Context, pref *readpref.ReadPref) (mongoexec.Channel, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	b.prefs = append(b.prefs, pref)
	if b.calls >= len(b.grants) {
		return nil, mongoexec.ErrNotFound
	}
	g := b.grants[b.calls]
	b.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.ch, nil
}

func bindingFor(channels ...*fakeChannel) *fakeBinding {
	b := &fakeBinding{}
	for _, ch := range channels {
		b.grants = append(b.grants, grant{ch: ch})
	}
	return b
}

func modernDesc() mongoexec.ServerDescription {
	return mongoexec.ServerDescription{Address: "node1:27017", MinWireVersion: 0, MaxWireVersion: 9}
}

func legacyDesc() mongoexec.ServerDescription {
	return mongoexec.ServerDescription{Address: "node0:27017", MinWireVersion: 0, MaxWireVersion: 2}
}

func mustRaw(t *testing.T, doc bson.D) bson.Raw {
	t.Helper()
	data, err := bson.Marshal(doc)
	require.NoError(t, err)
	return bson.Raw(data)
}

func rawNames(t *testing.T, batch []bson.Raw) []string {
	t.Helper()
	var names []string
	for _, doc := range batch {
		v, err := doc.LookupErr("name")
		require.NoError(t, err)
		s, ok := v.StringValueOK()
		require.True(t, ok)
		names = append(names, s)
	}
	return names
}

// drainNames exhausts a cursor, collecting names per batch.
func drainNames(t *testing.T, ctx context.Context, cursor mongoexec.BatchCursor[bson.Raw]) [][]string {
	t.Helper()
	var out [][]string
	for cursor.Next(ctx) {
		out = append(out, rawNames(t, cursor.Batch()))
	}
	require.NoError(t, cursor.Err())
	return out
}
