package rowstream

import "github.com/vmihailenco/msgpack/v5"

// MsgpackCodec is the block-compressed-binary row-group codec, grounded on
// weaviate-weaviate's use of github.com/vmihailenco/msgpack/v5 for its
// on-disk envelopes. It is the production-grade codec for large stages:
// smaller row groups than JSONCodec and no reflection-heavy string keys in
// the wire format.
type MsgpackCodec[T any] struct{}

func (MsgpackCodec[T]) Name() string { return "msgpack" }

func (MsgpackCodec[T]) Marshal(batch []T) ([]byte, error) {
	data, err := msgpack.Marshal(batch)
	if err != nil {
		return nil, NewSerializationError("msgpack", err)
	}
	return data, nil
}

func (MsgpackCodec[T]) Unmarshal(data []byte) ([]T, error) {
	var batch []T
	if err := msgpack.Unmarshal(data, &batch); err != nil {
		return nil, NewSerializationError("msgpack", err)
	}
	return batch, nil
}
