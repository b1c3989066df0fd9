package rowstream

// Codec marshals and unmarshals one row group (a batch of records) at a
// time. The façade is agnostic to the wire format; two implementations are
// provided, codec_json.go and codec_msgpack.go, matching the two concrete
// serialization adapters the storage layer supports.
type Codec[T any] interface {
	Name() string
	Marshal(batch []T) ([]byte, error)
	Unmarshal(data []byte) ([]T, error)
}
