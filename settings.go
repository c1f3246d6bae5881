// settings.go - Message encoder settings threaded through operations unchanged

package mongoexec

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
)

// EncoderSettings is the opaque configuration bag for protocol-level encoding
// choices. Operations validate its presence at construction and thread it
// through to the channel unchanged; the only part this package consumes itself
// is the codec registry, used to decode raw wire documents into typed values.
type EncoderSettings struct {
	// Registry resolves codecs by target type. Never nil after
	// DefaultEncoderSettings.
	Registry *bsoncodec.Registry

	// MaxDocumentSize caps a single wire document. Zero means the server
	// default; the channel interprets it.
	MaxDocumentSize int32

	// Strict and any further wire dialect toggles belong to the channel
	// implementation; they ride along here untouched.
	Strict bool
}

// DefaultEncoderSettings returns settings backed by the driver's default
// codec registry.
func DefaultEncoderSettings() *EncoderSettings {
	return &EncoderSettings{Registry: bson.DefaultRegistry}
}

// Decode decodes a raw wire document into result using the configured
// registry. This is the single seam through which the serializer capability
// is consumed.
func (s *EncoderSettings) Decode(raw bson.Raw, result interface{}) error {
	reg := s.Registry
	if reg == nil {
		reg = bson.DefaultRegistry
	}
	return bson.UnmarshalWithRegistry(reg, raw, result)
}
