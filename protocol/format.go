package protocol

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// FieldOverride renders a field of m in place of the default formatting.
type FieldOverride func(m *Message) (string, error)

type Overrides map[protoreflect.FieldNumber]FieldOverride

var (
	SampleOverrides = Overrides{
		SampleTime: func(m *Message) (string, error) {
			return FormatEpoch(int64(m.Uint32(SampleTime))), nil
		},
		SampleAVR: func(m *Message) (string, error) {
			avr, err := Rs485Schema.DecodeRaw(m.Bytes(SampleAVR))
			if err != nil {
				return "", err
			}
			text, err := Format(avr, nil)
			if err != nil {
				return "", err
			}
			return "\n" + Indent(text), nil
		},
	}
	ConfigOverrides = Overrides{
		ConfigAvrID: func(m *Message) (string, error) {
			return FormatHex(m.Uint32(ConfigAvrID)), nil
		},
		ConfigPowerID: func(m *Message) (string, error) {
			return FormatHex(m.Uint32(ConfigPowerID)), nil
		},
	}
)

func FormatSample(m *Message) (string, error) {
	return Format(m, SampleOverrides)
}

func FormatConfig(m *Message) (string, error) {
	return Format(m, ConfigOverrides)
}

// Format renders every set field of m as "name: value", one per line, in
// field declaration order. Nested messages are indented.
func Format(m *Message, overrides Overrides) (string, error) {
	var lines []string
	fields := m.msg.Descriptor().Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		if !m.msg.Has(fd) {
			continue
		}
		if override, ok := overrides[fd.Number()]; ok {
			text, err := override(m)
			if err != nil {
				return "", fmt.Errorf("field %s: %w", fd.Name(), err)
			}
			lines = append(lines, fmt.Sprintf("%s: %s", fd.Name(), text))
			continue
		}
		if fd.IsList() {
			list := m.msg.Get(fd).List()
			for j := 0; j < list.Len(); j++ {
				text, err := formatValue(fd, list.Get(j))
				if err != nil {
					return "", err
				}
				lines = append(lines, fmt.Sprintf("%s: %s", fd.Name(), text))
			}
			continue
		}
		text, err := formatValue(fd, m.msg.Get(fd))
		if err != nil {
			return "", err
		}
		lines = append(lines, fmt.Sprintf("%s: %s", fd.Name(), text))
	}
	return strings.Join(lines, "\n"), nil
}

func formatValue(fd protoreflect.FieldDescriptor, v protoreflect.Value) (string, error) {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		return strconv.FormatBool(v.Bool()), nil
	case protoreflect.FloatKind:
		return strconv.FormatFloat(v.Float(), 'g', -1, 32), nil
	case protoreflect.DoubleKind:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64), nil
	case protoreflect.Int32Kind, protoreflect.Int64Kind, protoreflect.Sint32Kind,
		protoreflect.Sint64Kind, protoreflect.Sfixed32Kind, protoreflect.Sfixed64Kind:
		return strconv.FormatInt(v.Int(), 10), nil
	case protoreflect.Uint32Kind, protoreflect.Uint64Kind, protoreflect.Fixed32Kind, protoreflect.Fixed64Kind:
		return strconv.FormatUint(v.Uint(), 10), nil
	case protoreflect.StringKind:
		return v.String(), nil
	case protoreflect.BytesKind:
		return hex.EncodeToString(v.Bytes()), nil
	case protoreflect.EnumKind:
		if ev := fd.Enum().Values().ByNumber(v.Enum()); ev != nil {
			return string(ev.Name()), nil
		}
		return strconv.Itoa(int(v.Enum())), nil
	case protoreflect.MessageKind, protoreflect.GroupKind:
		nested, ok := v.Message().Interface().(*dynamicpb.Message)
		if !ok {
			return "", fmt.Errorf("field %s: unexpected message type %T", fd.Name(), v.Message().Interface())
		}
		text, err := Format(&Message{nested}, nil)
		if err != nil {
			return "", err
		}
		return "\n" + Indent(text), nil
	}
	return "", fmt.Errorf("field %s: unsupported kind %s", fd.Name(), fd.Kind())
}

// Indent prefixes every line of s with four spaces.
func Indent(s string) string {
	return "    " + strings.ReplaceAll(s, "\n", "\n    ")
}

// FormatDate renders t in UTC, e.g. "2015-10-16 12:53:20 UTC".
func FormatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05 MST")
}

// FormatEpoch renders a unix time as the epoch followed by its UTC date.
func FormatEpoch(epoch int64) string {
	return fmt.Sprintf("%d (%s)", epoch, FormatDate(time.Unix(epoch, 0)))
}

func FormatHex(v uint32) string {
	return strconv.FormatUint(uint64(v), 16)
}

// ParseHex parses a hex ID, with or without a 0x prefix.
func ParseHex(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%q is not a valid hex value", s)
	}
	return uint32(v), nil
}
