package rowstream

import "encoding/json"

// JSONCodec is the reference row-group codec built on the standard library.
// It exists alongside MsgpackCodec to give the serialization adapter at
// least two concrete wire formats; no third-party columnar or JSON library
// in the example pack offers anything encoding/json does not already
// provide for this narrow job (encode one batch, decode one batch), so
// reaching for one here would be gratuitous.
type JSONCodec[T any] struct{}

func (JSONCodec[T]) Name() string { return "json" }

func (JSONCodec[T]) Marshal(batch []T) ([]byte, error) {
	data, err := json.Marshal(batch)
	if err != nil {
		return nil, NewSerializationError("json", err)
	}
	return data, nil
}

func (JSONCodec[T]) Unmarshal(data []byte) ([]T, error) {
	var batch []T
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, NewSerializationError("json", err)
	}
	return batch, nil
}
