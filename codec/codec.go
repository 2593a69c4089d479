// Package codec provides (de)serializers for values crossing a process
// boundary. The core cache holds values by reference and never touches a
// codec; only remote store backends (store/redis) need one.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
