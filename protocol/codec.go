package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

var ErrEmptyPayload = errors.New("empty payload")

// Schema is one of the node payload types.
type Schema struct {
	desc protoreflect.MessageDescriptor
}

func (s *Schema) Name() string {
	return string(s.desc.Name())
}

func (s *Schema) Descriptor() protoreflect.MessageDescriptor {
	return s.desc
}

func (s *Schema) New() *Message {
	return &Message{dynamicpb.NewMessage(s.desc)}
}

// Decode parses a length delimited record, the framing nodes use on the
// wire and the gateway queue uses on disk.
func (s *Schema) Decode(data []byte) (*Message, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", s.Name(), ErrEmptyPayload)
	}
	m := s.New()
	if err := protodelim.UnmarshalFrom(bytes.NewReader(data), m.msg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.Name(), err)
	}
	return m, nil
}

// DecodeRaw parses a record without a length prefix, as found embedded in
// other messages.
func (s *Schema) DecodeRaw(data []byte) (*Message, error) {
	m := s.New()
	if err := proto.Unmarshal(data, m.msg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.Name(), err)
	}
	return m, nil
}

// Message is a decoded payload.
type Message struct {
	msg *dynamicpb.Message
}

// Encode returns the length delimited encoding of m.
func (m *Message) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *Message) WriteTo(w io.Writer) (int64, error) {
	n, err := protodelim.MarshalTo(w, m.msg)
	return int64(n), err
}

// EncodeRaw returns the encoding of m without a length prefix.
func (m *Message) EncodeRaw() ([]byte, error) {
	return proto.Marshal(m.msg)
}

func (m *Message) fd(num protoreflect.FieldNumber) protoreflect.FieldDescriptor {
	fd := m.msg.Descriptor().Fields().ByNumber(num)
	if fd == nil {
		panic(fmt.Sprintf("protocol: %s has no field %d", m.msg.Descriptor().Name(), num))
	}
	return fd
}

func (m *Message) Has(num protoreflect.FieldNumber) bool {
	return m.msg.Has(m.fd(num))
}

func (m *Message) Clear(num protoreflect.FieldNumber) {
	m.msg.Clear(m.fd(num))
}

func (m *Message) Uint32(num protoreflect.FieldNumber) uint32 {
	return uint32(m.msg.Get(m.fd(num)).Uint())
}

func (m *Message) SetUint32(num protoreflect.FieldNumber, v uint32) {
	m.msg.Set(m.fd(num), protoreflect.ValueOfUint32(v))
}

func (m *Message) Float(num protoreflect.FieldNumber) float32 {
	return float32(m.msg.Get(m.fd(num)).Float())
}

func (m *Message) SetFloat(num protoreflect.FieldNumber, v float32) {
	m.msg.Set(m.fd(num), protoreflect.ValueOfFloat32(v))
}

func (m *Message) AppendFloat(num protoreflect.FieldNumber, v float32) {
	list := m.msg.Mutable(m.fd(num)).List()
	list.Append(protoreflect.ValueOfFloat32(v))
}

func (m *Message) Bool(num protoreflect.FieldNumber) bool {
	return m.msg.Get(m.fd(num)).Bool()
}

func (m *Message) SetBool(num protoreflect.FieldNumber, v bool) {
	m.msg.Set(m.fd(num), protoreflect.ValueOfBool(v))
}

func (m *Message) Bytes(num protoreflect.FieldNumber) []byte {
	return m.msg.Get(m.fd(num)).Bytes()
}

func (m *Message) SetBytes(num protoreflect.FieldNumber, v []byte) {
	m.msg.Set(m.fd(num), protoreflect.ValueOfBytes(v))
}

func (m *Message) Enum(num protoreflect.FieldNumber) int32 {
	return int32(m.msg.Get(m.fd(num)).Enum())
}

func (m *Message) SetEnum(num protoreflect.FieldNumber, v int32) {
	m.msg.Set(m.fd(num), protoreflect.ValueOfEnum(protoreflect.EnumNumber(v)))
}

// Equal reports whether both messages hold the same fields.
func (m *Message) Equal(o *Message) bool {
	return proto.Equal(m.msg, o.msg)
}
