package codec

import "encoding/json"

// JSON is the default codec. encoding/json writes map keys sorted, which
// keeps map-valued members stable.
type JSON[V any] struct{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
