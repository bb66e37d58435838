// Package filemgmt reads value store workbooks from the file-management
// service over a unary gRPC call.
//
// The service's generated stubs are not vendored here. The two messages are
// encoded by hand with protowire, field for field compatible with the
// service's ReadFileRequest and ReadFileResponse.
package filemgmt

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the file service's messages.
const (
	fieldSiteID   protowire.Number = 1
	fieldDriveID  protowire.Number = 2
	fieldPath     protowire.Number = 3
	fieldFileName protowire.Number = 4

	fieldContent protowire.Number = 1
)

// ReadFileRequest identifies one file in a document library folder.
type ReadFileRequest struct {
	SiteID   string
	DriveID  string
	Path     string
	FileName string
}

// ReadFileResponse carries the raw file bytes.
type ReadFileResponse struct {
	Content []byte
}

type wireMessage interface {
	marshalWire() ([]byte, error)
	unmarshalWire(data []byte) error
}

func (r *ReadFileRequest) marshalWire() ([]byte, error) {
	var b []byte
	b = appendString(b, fieldSiteID, r.SiteID)
	b = appendString(b, fieldDriveID, r.DriveID)
	b = appendString(b, fieldPath, r.Path)
	b = appendString(b, fieldFileName, r.FileName)
	return b, nil
}

func (r *ReadFileRequest) unmarshalWire(data []byte) error {
	*r = ReadFileRequest{}
	return consumeFields(data, func(num protowire.Number, value []byte) {
		switch num {
		case fieldSiteID:
			r.SiteID = string(value)
		case fieldDriveID:
			r.DriveID = string(value)
		case fieldPath:
			r.Path = string(value)
		case fieldFileName:
			r.FileName = string(value)
		}
	})
}

func (r *ReadFileResponse) marshalWire() ([]byte, error) {
	if len(r.Content) == 0 {
		return nil, nil
	}
	b := protowire.AppendTag(nil, fieldContent, protowire.BytesType)
	return protowire.AppendBytes(b, r.Content), nil
}

func (r *ReadFileResponse) unmarshalWire(data []byte) error {
	*r = ReadFileResponse{}
	return consumeFields(data, func(num protowire.Number, value []byte) {
		if num == fieldContent {
			r.Content = append([]byte(nil), value...)
		}
	})
}

func appendString(b []byte, num protowire.Number, value string) []byte {
	if value == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, value)
}

// consumeFields walks data and hands every length-delimited field to set.
// Fields of other wire types are skipped so newer server fields are
// tolerated.
func consumeFields(data []byte, set func(protowire.Number, []byte)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("decode tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		if typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("skip field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
			continue
		}

		value, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return fmt.Errorf("decode field %d: %w", num, protowire.ParseError(n))
		}
		set(num, value)
		data = data[n:]
	}
	return nil
}
