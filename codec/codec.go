// Package codec converts values to the bytes stored on the server.
//
// Member identity in a set is the encoded byte string, so every codec here
// is deterministic: equal inputs produce equal bytes (maps are written with
// sorted keys, CBOR uses Core Deterministic encoding, protobuf marshals
// deterministically).
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
