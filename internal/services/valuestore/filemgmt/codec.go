package filemgmt

import (
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// codecName matches the content subtype of generated protobuf stubs so the
// file service sees an ordinary application/grpc+proto call.
const codecName = "proto"

// Codec marshals the file service messages.
type Codec struct{}

var _ encoding.Codec = Codec{}

// Marshal implements encoding.Codec.
func (Codec) Marshal(v any) ([]byte, error) {
	msg, ok := v.(wireMessage)
	if !ok {
		return nil, fmt.Errorf("filemgmt codec: cannot marshal %T", v)
	}
	return msg.marshalWire()
}

// Unmarshal implements encoding.Codec.
func (Codec) Unmarshal(data []byte, v any) error {
	msg, ok := v.(wireMessage)
	if !ok {
		return fmt.Errorf("filemgmt codec: cannot unmarshal into %T", v)
	}
	return msg.unmarshalWire(data)
}

// Name implements encoding.Codec.
func (Codec) Name() string {
	return codecName
}

// ServerOption configures a gRPC server to decode the file service messages.
// Every service on that server must use them.
func ServerOption() grpc.ServerOption {
	return grpc.ForceServerCodec(Codec{})
}
