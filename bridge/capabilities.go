package bridge

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// DecodeCapabilities 解析 bridge_capabilities 返回的 google.protobuf.Struct 二进制
func DecodeCapabilities(raw []byte) (*structpb.Struct, error) {
	caps := &structpb.Struct{}
	if len(raw) == 0 {
		return caps, nil
	}
	if err := proto.Unmarshal(raw, caps); err != nil {
		return nil, fmt.Errorf("failed to decode capabilities: %w", err)
	}
	return caps, nil
}

// EncodeCapabilities is the inverse of DecodeCapabilities, used by in-process
// runtimes that advertise their capabilities the same way a library does.
func EncodeCapabilities(fields map[string]interface{}) ([]byte, error) {
	caps, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to build capabilities: %w", err)
	}
	return proto.Marshal(caps)
}

// FormatCapabilities renders capabilities as indented JSON.
func FormatCapabilities(caps *structpb.Struct) string {
	if caps == nil {
		return "{}"
	}
	return protojson.MarshalOptions{Multiline: true, Indent: "  "}.Format(caps)
}
