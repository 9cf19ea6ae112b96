package codec

import (
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type item struct {
	ID   string            `json:"id" msgpack:"id" cbor:"id"`
	Tags map[string]string `json:"tags" msgpack:"tags" cbor:"tags"`
}

func manyTags() map[string]string {
	m := make(map[string]string, 32)
	for _, k := range strings.Split("q w e r t y u i o p a s d f g h j k l z x c v b n m", " ") {
		m[k] = k + k
	}
	return m
}

// Equal inputs must give equal bytes, or set membership breaks.
func TestCodecsDeterministicOnMaps(t *testing.T) {
	codecs := map[string]Codec[item]{
		"json":    JSON[item]{},
		"msgpack": Msgpack[item]{},
		"cbor":    MustCBOR[item](),
	}
	for name, c := range codecs {
		t.Run(name, func(t *testing.T) {
			first, err := c.Encode(item{ID: "1", Tags: manyTags()})
			require.NoError(t, err)
			for i := 0; i < 20; i++ {
				again, err := c.Encode(item{ID: "1", Tags: manyTags()})
				require.NoError(t, err)
				require.Equal(t, first, again, "non-deterministic encoding on run %d", i)
			}
			back, err := c.Decode(first)
			require.NoError(t, err)
			assert.Equal(t, "1", back.ID)
			assert.Equal(t, manyTags(), back.Tags)
		})
	}
}

func TestCodecsRejectGarbage(t *testing.T) {
	garbage := []byte{0xc1, 0xff, 0x00}
	_, err := (JSON[item]{}).Decode(garbage)
	assert.Error(t, err, "json")
	_, err = (Msgpack[item]{}).Decode(garbage)
	assert.Error(t, err, "msgpack")
	_, err = MustCBOR[item]().Decode(garbage)
	assert.Error(t, err, "cbor")
}

func TestProtobufDeterministic(t *testing.T) {
	c := NewProtobuf(func() *structpb.Struct { return &structpb.Struct{} })
	build := func() *structpb.Struct {
		s, err := structpb.NewStruct(map[string]any{"a": 1.0, "b": "two", "c": true, "d": "x", "e": 5.0})
		require.NoError(t, err)
		return s
	}
	first, err := c.Encode(build())
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := c.Encode(build())
		require.NoError(t, err)
		require.Equal(t, first, again, "non-deterministic protobuf encoding on run %d", i)
	}
	back, err := c.Decode(first)
	require.NoError(t, err)
	assert.Equal(t, "two", back.Fields["b"].GetStringValue())
}

func TestProtobufScalarWrapper(t *testing.T) {
	c := NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })
	b, err := c.Encode(wrapperspb.String("hello"))
	require.NoError(t, err)
	v, err := c.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, "hello", v.GetValue())
}

func TestRawCodecs(t *testing.T) {
	b, err := String{}.Encode("héllo")
	require.NoError(t, err)
	s, err := String{}.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, "héllo", s)

	in := []byte{0, 1, 2}
	out, err := Bytes{}.Encode(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestLimitRejectsOversized(t *testing.T) {
	c := Limit[string]{Inner: String{}, MaxDecode: 4}
	_, err := c.Decode([]byte("12345"))
	assert.Error(t, err)

	v, err := c.Decode([]byte("1234"))
	require.NoError(t, err)
	assert.Equal(t, "1234", v)

	off := Limit[string]{Inner: String{}}
	_, err = off.Decode([]byte(strings.Repeat("x", 1<<16)))
	assert.NoError(t, err, "MaxDecode=0 disables the limit")
}

type countingCodec struct {
	decodes atomic.Int32
}

func (c *countingCodec) Encode(s string) ([]byte, error) { return []byte(s), nil }
func (c *countingCodec) Decode(b []byte) (string, error) {
	c.decodes.Add(1)
	if len(b) == 0 {
		return "", errors.New("empty")
	}
	return string(b), nil
}

func TestMemoCachesDecodes(t *testing.T) {
	inner := &countingCodec{}
	m, err := NewMemo[string](inner, MemoConfig{NumCounters: 1000, MaxCost: 1 << 20})
	require.NoError(t, err)
	t.Cleanup(m.Close)

	v, err := m.Decode([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, "abc", v)
	m.Wait()

	v, err = m.Decode([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, "abc", v)
	assert.Equal(t, int32(1), inner.decodes.Load())

	_, err = m.Decode(nil)
	assert.Error(t, err, "inner errors pass through")
	m.Wait()
	_, err = m.Decode(nil)
	assert.Error(t, err, "errors are not cached as values")
}

func TestMemoConfigValidation(t *testing.T) {
	_, err := NewMemo[string](nil, MemoConfig{NumCounters: 1, MaxCost: 1})
	assert.Error(t, err)
	_, err = NewMemo[string](String{}, MemoConfig{})
	assert.Error(t, err)
}
