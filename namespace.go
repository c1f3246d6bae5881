// namespace.go - Database/collection addressing for wire operations

package mongoexec

import "strings"

// Namespace encapsulates a database and collection name, which together
// uniquely identify a collection within a cluster. The collection part may be
// empty for operations addressed at a whole database (listCollections).
type Namespace struct {
	DB         string
	Collection string
}

// NewNamespace returns a Namespace for the given database and collection.
func NewNamespace(db, collection string) Namespace {
	return Namespace{DB: db, Collection: collection}
}

// DatabaseNamespace returns a Namespace addressing a whole database.
func DatabaseNamespace(db string) Namespace {
	return Namespace{DB: db}
}

// ParseNamespace parses a "db.collection" string into a Namespace. The first
// "." is the separator; everything after it belongs to the collection name.
// If the string contains no ".", the zero (invalid) Namespace is returned.
func ParseNamespace(name string) Namespace {
	idx := strings.Index(name, ".")
	if idx == -1 {
		return Namespace{}
	}
	return Namespace{DB: name[:idx], Collection: name[idx+1:]}
}

// FullName returns the "db.collection" form of the namespace.
func (ns Namespace) FullName() string {
	return ns.DB + "." + ns.Collection
}

// IsDatabaseValid reports whether the database part names a real database.
func (ns Namespace) IsDatabaseValid() bool {
	return ns.DB != "" && !strings.ContainsAny(ns.DB, ". ")
}

// IsValid reports whether the namespace addresses a collection.
func (ns Namespace) IsValid() bool {
	return ns.IsDatabaseValid() && ns.Collection != ""
}

// SystemNamespaces returns the namespace of the legacy catalog collection that
// pre-3.0 servers expose in place of the listCollections command.
func (ns Namespace) SystemNamespaces() Namespace {
	return Namespace{DB: ns.DB, Collection: "system.namespaces"}
}
