// document.go - Ordered filter/value documents shared between callers and operations

package mongoexec

import (
	"go.mongodb.org/mongo-driver/bson"
)

// Doc is an ordered key-value document used for filters, sort specifications
// and command bodies. A nil Doc means "match all". Element order is preserved
// through every operation, which matters for commands where the first key
// names the command itself.
//
// Docs handed to an operation are treated as potentially shared with the
// caller: operations that need to rewrite a field always work on a Clone.
type Doc bson.D

// D returns the document as a bson.D for encoding.
func (d Doc) D() bson.D {
	return bson.D(d)
}

// Has reports whether the document contains the named field.
func (d Doc) Has(key string) bool {
	for _, e := range d {
		if e.Key == key {
			return true
		}
	}
	return false
}

// Lookup returns the value of the named field and whether it is present.
func (d Doc) Lookup(key string) (interface{}, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Set replaces the value of the named field in place, or appends the field if
// it is not present. The (possibly reallocated) document is returned.
func (d Doc) Set(key string, value interface{}) Doc {
	for i, e := range d {
		if e.Key == key {
			d[i].Value = value
			return d
		}
	}
	return append(d, bson.E{Key: key, Value: value})
}

// Clone returns a shallow copy: the element slice is copied, the values are
// shared. Mutating a field on the clone never touches the original.
func (d Doc) Clone() Doc {
	if d == nil {
		return nil
	}
	out := make(Doc, len(d))
	copy(out, d)
	return out
}
