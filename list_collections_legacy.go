// list_collections_legacy.go - Catalog-query fallback for pre-3.0 servers

package mongoexec

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// legacyListCollections serves a listing request by querying the
// <db>.system.namespaces catalog and rewriting the results into the modern
// command's shape.
//
// The catalog stores fully-qualified names, so a caller filter on "name" is
// rewritten to "<db>.<value>" before the query, and result names are checked
// against the "<db>." prefix and stripped back to the bare collection name.
// Entries from other databases sharing the catalog, and entries whose name
// contains "$" (indexes and system sub-objects), are dropped.
type legacyListCollections struct {
	op *ListCollectionsOperation
}

func (e legacyListCollections) run(ctx context.Context, rc *RetryContext, _ Channel) (BatchCursor[bson.Raw], error) {
	filter, err := e.translateFilter()
	if err != nil {
		return nil, err
	}

	find, err := NewFindOperation(e.op.ns.SystemNamespaces(), e.op.settings)
	if err != nil {
		return nil, err
	}
	find.SetFilter(filter).SetMode(e.op.mode).SetRetry(e.op.retryRequested)

	raw, err := find.ExecuteWithContext(ctx, rc)
	if err != nil {
		return nil, err
	}
	return NewTransformingBatchCursor(raw, legacyBatchTransform(e.op.ns.DB+".")), nil
}

// translateFilter returns the filter in catalog form. A filter without a
// "name" field passes through untouched; one with a "name" field is cloned
// and the value, which must be a plain string, gains the database prefix.
// The caller's document is never mutated.
func (e legacyListCollections) translateFilter() (Doc, error) {
	value, ok := e.op.filter.Lookup("name")
	if !ok {
		return e.op.filter, nil
	}
	name, ok := value.(string)
	if !ok {
		return nil, &UnsupportedError{
			Reason: "the name filter must be a plain string when the server does not support the listCollections command",
		}
	}
	return e.op.filter.Clone().Set("name", e.op.ns.DB+"."+name), nil
}

// legacyBatchTransform filters and relabels one catalog batch. Documents are
// only dropped or renamed, never reordered, and batch boundaries are
// preserved by the transforming cursor.
func legacyBatchTransform(prefix string) func([]bson.Raw) ([]bson.Raw, error) {
	return func(batch []bson.Raw) ([]bson.Raw, error) {
		out := make([]bson.Raw, 0, len(batch))
		for _, doc := range batch {
			value, err := doc.LookupErr("name")
			if err != nil {
				return nil, &ProtocolError{Message: "catalog document has no name field"}
			}
			name, ok := value.StringValueOK()
			if !ok {
				return nil, &ProtocolError{Message: "catalog document name is not a string"}
			}
			if !strings.HasPrefix(name, prefix) {
				continue
			}
			collection := name[len(prefix):]
			if strings.Contains(collection, "$") {
				continue
			}
			renamed, err := rewriteNameField(doc, collection)
			if err != nil {
				return nil, err
			}
			out = append(out, renamed)
		}
		return out, nil
	}
}

// rewriteNameField rebuilds doc with its name field set to collection,
// preserving the order of every other field.
func rewriteNameField(doc bson.Raw, collection string) (bson.Raw, error) {
	var d bson.D
	if err := bson.Unmarshal(doc, &d); err != nil {
		return nil, &ProtocolError{Message: "catalog document is not decodable: " + err.Error()}
	}
	for i := range d {
		if d[i].Key == "name" {
			d[i].Value = collection
		}
	}
	rebuilt, err := bson.Marshal(d)
	if err != nil {
		return nil, err
	}
	return bson.Raw(rebuilt), nil
}
