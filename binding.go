// binding.go - Channel binding capability consumed by operation executors

package mongoexec

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Mode specifies the replica-set read preference mode. The numeric values
// match those of the original mgo driver for drop-in parity.
type Mode int

const (
	// Primary mode - all operations read from the primary.
	Primary Mode = 2
	// PrimaryPreferred - read from primary if available otherwise secondary.
	PrimaryPreferred Mode = 3
	// Secondary - read from one of the secondaries only.
	Secondary Mode = 4
	// SecondaryPreferred - read from secondary if available otherwise primary.
	SecondaryPreferred Mode = 5
	// Nearest - read from the node with lowest network latency regardless of role.
	Nearest Mode = 6

	// Eventual, Monotonic and Strong are legacy aliases kept for API
	// compatibility. They map onto the standard modes above.
	Eventual  Mode = 0
	Monotonic Mode = 1
	Strong    Mode = 2
)

// ReadPreference converts the mode to the official driver representation
// handed to the binding during server selection.
func (m Mode) ReadPreference() *readpref.ReadPref {
	switch m {
	case Primary:
		return readpref.Primary()
	case PrimaryPreferred:
		return readpref.PrimaryPreferred()
	case Secondary:
		return readpref.Secondary()
	case SecondaryPreferred:
		return readpref.SecondaryPreferred()
	case Nearest:
		return readpref.Nearest()
	default:
		return readpref.Primary()
	}
}

// ServerDescription carries the capability window of the server behind a
// channel. Wire versions gate which commands the executors may send.
type ServerDescription struct {
	Address        string
	MinWireVersion int32
	MaxWireVersion int32
}

// listCollections was introduced with wire version 3 (server 3.0).
const minListCollectionsWireVersion = 3

// SupportsListCollections reports whether the server understands the
// listCollections command, or whether the legacy catalog query must be used.
func (d ServerDescription) SupportsListCollections() bool {
	return d.MaxWireVersion >= minListCollectionsWireVersion
}

// QuerySpec is the wire-level shape of a find-style roundtrip, produced by a
// FindOperation and consumed by the channel.
type QuerySpec struct {
	Filter     bson.D
	Sort       bson.D
	Projection bson.D
	Skip       int64
	Limit      int64
	BatchSize  int32
	Settings   *EncoderSettings
}

// Channel is one leased connection to a selected server. Implementations
// surface transport failures as *NetworkError and server error replies as
// *QueryError so the retry layer can classify them. The cursors a channel
// returns remain usable after the lease is released; any state further
// fetches need travels with the cursor.
type Channel interface {
	// Description reports the capability window of the server this channel
	// is connected to.
	Description() ServerDescription

	// Query runs a find-style roundtrip against a collection and returns a
	// cursor over the raw result documents.
	Query(ctx context.Context, ns Namespace, spec QuerySpec) (BatchCursor[bson.Raw], error)

	// Command runs a cursor-returning database command (first key of cmd
	// names the command) and returns a cursor over the raw result documents.
	Command(ctx context.Context, db string, cmd bson.D, settings *EncoderSettings) (BatchCursor[bson.Raw], error)

	// Release returns the lease. Called exactly once per lease by the
	// retry context that owns it.
	Release()
}

// Binding yields channel leases to a capable server. It may implement
// retry-aware server reselection internally; this package treats it as
// opaque and reports its failures as *ServerSelectionError.
type Binding interface {
	GetChannel(ctx context.Context, pref *readpref.ReadPref) (Channel, error)
}
