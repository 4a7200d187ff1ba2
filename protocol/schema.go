// Package protocol describes the protocol buffer payloads exchanged with
// sensor nodes. The descriptors are built at init so the package has no
// generated code to keep in sync with the firmware.
package protocol

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

const pkg = "mountainsensing"

// Field numbers used by the fetcher.
const (
	SampleTime protoreflect.FieldNumber = 1
	SampleBatt protoreflect.FieldNumber = 2
	SampleTemp protoreflect.FieldNumber = 3
	SampleAccX protoreflect.FieldNumber = 4
	SampleAccY protoreflect.FieldNumber = 5
	SampleAccZ protoreflect.FieldNumber = 6
	SampleADC1 protoreflect.FieldNumber = 7
	SampleADC2 protoreflect.FieldNumber = 8
	SampleRain protoreflect.FieldNumber = 9
	SampleAVR  protoreflect.FieldNumber = 10
	SampleID   protoreflect.FieldNumber = 11

	ConfigInterval    protoreflect.FieldNumber = 1
	ConfigHasADC1     protoreflect.FieldNumber = 2
	ConfigHasADC2     protoreflect.FieldNumber = 3
	ConfigAvrID       protoreflect.FieldNumber = 4
	ConfigHasRain     protoreflect.FieldNumber = 5
	ConfigRoutingMode protoreflect.FieldNumber = 6
	ConfigPowerID     protoreflect.FieldNumber = 7

	Rs485ID   protoreflect.FieldNumber = 1
	Rs485Type protoreflect.FieldNumber = 2
	Rs485Data protoreflect.FieldNumber = 3
)

var (
	SampleSchema *Schema
	ConfigSchema *Schema
	Rs485Schema  *Schema
)

func init() {
	fd, err := buildFile()
	if err != nil {
		panic(fmt.Sprintf("protocol: invalid descriptors: %v", err))
	}
	msgs := fd.Messages()
	SampleSchema = &Schema{desc: msgs.ByName("Sample")}
	ConfigSchema = &Schema{desc: msgs.ByName("SensorConfig")}
	Rs485Schema = &Schema{desc: msgs.ByName("Rs485")}
}

func field(name string, num int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(num),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   typ.Enum(),
	}
}

func buildFile() (protoreflect.FileDescriptor, error) {
	var (
		u32   = descriptorpb.FieldDescriptorProto_TYPE_UINT32
		f32   = descriptorpb.FieldDescriptorProto_TYPE_FLOAT
		bytes = descriptorpb.FieldDescriptorProto_TYPE_BYTES
		boolT = descriptorpb.FieldDescriptorProto_TYPE_BOOL
		enumT = descriptorpb.FieldDescriptorProto_TYPE_ENUM
	)

	routingMode := field("routingMode", int32(ConfigRoutingMode), enumT)
	routingMode.TypeName = proto.String("." + pkg + ".SensorConfig.RoutingMode")

	data := field("data", int32(Rs485Data), f32)
	data.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()

	fdp := &descriptorpb.FileDescriptorProto{
		Name:    proto.String("mountainsensing/payloads.proto"),
		Package: proto.String(pkg),
		Syntax:  proto.String("proto2"),
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("Sample"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("time", int32(SampleTime), u32),
					field("batt", int32(SampleBatt), f32),
					field("temp", int32(SampleTemp), f32),
					field("accX", int32(SampleAccX), f32),
					field("accY", int32(SampleAccY), f32),
					field("accZ", int32(SampleAccZ), f32),
					field("ADC1", int32(SampleADC1), u32),
					field("ADC2", int32(SampleADC2), u32),
					field("rain", int32(SampleRain), u32),
					field("AVR", int32(SampleAVR), bytes),
					field("id", int32(SampleID), u32),
				},
			},
			{
				Name: proto.String("SensorConfig"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("interval", int32(ConfigInterval), u32),
					field("hasADC1", int32(ConfigHasADC1), boolT),
					field("hasADC2", int32(ConfigHasADC2), boolT),
					field("avrID", int32(ConfigAvrID), u32),
					field("hasRain", int32(ConfigHasRain), boolT),
					routingMode,
					field("powerID", int32(ConfigPowerID), u32),
				},
				EnumType: []*descriptorpb.EnumDescriptorProto{
					{
						Name: proto.String("RoutingMode"),
						Value: []*descriptorpb.EnumValueDescriptorProto{
							{Name: proto.String("MESH"), Number: proto.Int32(int32(RoutingMesh))},
							{Name: proto.String("LEAF"), Number: proto.Int32(int32(RoutingLeaf))},
						},
					},
				},
			},
			{
				Name: proto.String("Rs485"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("id", int32(Rs485ID), u32),
					field("type", int32(Rs485Type), u32),
					data,
				},
			},
		},
	}
	return protodesc.NewFile(fdp, new(protoregistry.Files))
}

// RoutingMode selects how a node takes part in the RPL mesh.
type RoutingMode int32

const (
	RoutingMesh RoutingMode = 0
	RoutingLeaf RoutingMode = 1
)

var routingModeNames = map[RoutingMode]string{
	RoutingMesh: "MESH",
	RoutingLeaf: "LEAF",
}

func (m RoutingMode) String() string {
	if name, ok := routingModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("RoutingMode(%d)", int32(m))
}

// ParseRoutingMode parses the name of a routing mode, e.g. "MESH".
func ParseRoutingMode(s string) (RoutingMode, error) {
	for mode, name := range routingModeNames {
		if name == s {
			return mode, nil
		}
	}
	return 0, fmt.Errorf("unknown routing mode %q, should be one of MESH, LEAF", s)
}
