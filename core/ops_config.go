package core

import (
	"context"
	"net/netip"

	"github.com/mountainsensing/msfetch/protocol"
	"github.com/mountainsensing/msfetch/state"
	"github.com/plgd-dev/go-coap/v3/message"
	"google.golang.org/protobuf/reflect/protoreflect"
)

const (
	// IDNone removes an AVR or power board from a config.
	IDNone          = 0
	DefaultInterval = 1200
)

// ConfigSettings are the config fields given on the command line. Nil fields
// were not given.
type ConfigSettings struct {
	HasADC1     *bool
	HasADC2     *bool
	HasRain     *bool
	Interval    *uint32
	AvrID       *uint32
	PowerID     *uint32
	RoutingMode *protocol.RoutingMode
}

func pick[T any](v *T, fallback T) T {
	if v != nil {
		return *v
	}
	return fallback
}

// BuildConfig creates a config from s. Fields missing from s are taken from
// old, or from the defaults if old is nil. An ID of IDNone clears the ID.
func BuildConfig(s ConfigSettings, old *protocol.Message) *protocol.Message {
	var (
		interval = uint32(DefaultInterval)
		adc1     = false
		adc2     = false
		rain     = false
		mode     = protocol.RoutingMesh
	)
	if old != nil {
		interval = old.Uint32(protocol.ConfigInterval)
		adc1 = old.Bool(protocol.ConfigHasADC1)
		adc2 = old.Bool(protocol.ConfigHasADC2)
		rain = old.Bool(protocol.ConfigHasRain)
		mode = protocol.RoutingMode(old.Enum(protocol.ConfigRoutingMode))
	}

	cfg := protocol.ConfigSchema.New()
	cfg.SetUint32(protocol.ConfigInterval, pick(s.Interval, interval))
	cfg.SetBool(protocol.ConfigHasADC1, pick(s.HasADC1, adc1))
	cfg.SetBool(protocol.ConfigHasADC2, pick(s.HasADC2, adc2))
	cfg.SetBool(protocol.ConfigHasRain, pick(s.HasRain, rain))
	cfg.SetEnum(protocol.ConfigRoutingMode, int32(pick(s.RoutingMode, mode)))
	setID(cfg, old, protocol.ConfigAvrID, s.AvrID)
	setID(cfg, old, protocol.ConfigPowerID, s.PowerID)
	return cfg
}

func setID(cfg, old *protocol.Message, field protoreflect.FieldNumber, id *uint32) {
	switch {
	case id != nil && *id != IDNone:
		cfg.SetUint32(field, *id)
	case id == nil && old != nil && old.Has(field):
		cfg.SetUint32(field, old.Uint32(field))
	}
}

func getConfig(ctx context.Context, t Transport, addr netip.Addr) (*protocol.Message, error) {
	path := resourcePath(ResourceConfig)
	NodeLogger(ctx).Debug("attempting to get config", "path", path)
	resp, err := t.Get(ctx, addr, path)
	payload, err := expect(MethodGet, path, resp, err, "failed to get config")
	if err != nil {
		return nil, err
	}
	return decodeConfig(payload)
}

func setConfig(ctx context.Context, t Transport, addr netip.Addr, cfg *protocol.Message) error {
	path := resourcePath(ResourceConfig)
	data, err := cfg.Encode()
	if err != nil {
		return err
	}
	NodeLogger(ctx).Debug("attempting to post config", "path", path)
	resp, err := t.Post(ctx, addr, path, message.AppOctets, data)
	_, err = expect(MethodPost, path, resp, err, "failed to post config")
	return err
}

// GetConfig logs the config of each node.
type GetConfig struct {
	singlePass
	Transport Transport
}

func (a *GetConfig) Perform(ctx context.Context, node state.NodeAddress) Outcome {
	cfg, err := getConfig(ctx, a.Transport, node.Addr)
	if err != nil {
		return Classify(err)
	}
	return Classify(logFormatted(ctx, "config is", cfg, protocol.FormatConfig))
}

// ForceConfig overwrites the config of each node, using defaults for any
// setting not given.
type ForceConfig struct {
	singlePass
	Transport Transport
	Settings  ConfigSettings
}

func (a *ForceConfig) Perform(ctx context.Context, node state.NodeAddress) Outcome {
	cfg := BuildConfig(a.Settings, nil)
	if err := setConfig(ctx, a.Transport, node.Addr, cfg); err != nil {
		return Classify(err)
	}
	return Classify(logFormatted(ctx, "config set to", cfg, protocol.FormatConfig))
}

// EditConfig changes the given settings of each node's config, keeping the
// rest.
type EditConfig struct {
	singlePass
	Transport Transport
	Settings  ConfigSettings
}

func (a *EditConfig) Perform(ctx context.Context, node state.NodeAddress) Outcome {
	old, err := getConfig(ctx, a.Transport, node.Addr)
	if err != nil {
		return Classify(err)
	}
	cfg := BuildConfig(a.Settings, old)
	if err := setConfig(ctx, a.Transport, node.Addr, cfg); err != nil {
		return Classify(err)
	}
	return Classify(logFormatted(ctx, "config updated to", cfg, protocol.FormatConfig))
}
