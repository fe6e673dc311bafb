package proto

import (
	"fmt"

	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content subtype used by the geyser plugin service
const CodecName = "geyser"

// Message is implemented by every message exchanged with a geyser plugin
type Message interface {
	AppendWire(b []byte) []byte
	UnmarshalWire(b []byte) error
}

// Codec encodes Message values in protobuf wire format
type Codec struct{}

func init() {
	encoding.RegisterCodec(Codec{})
}

func (Codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(Message)
	if !ok {
		return nil, fmt.Errorf("%s codec cannot marshal %T", CodecName, v)
	}
	return m.AppendWire(nil), nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	m, ok := v.(Message)
	if !ok {
		return fmt.Errorf("%s codec cannot unmarshal into %T", CodecName, v)
	}
	return m.UnmarshalWire(data)
}

func (Codec) Name() string {
	return CodecName
}
