package core_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mountainsensing/msfetch/core"
	"github.com/mountainsensing/msfetch/mock"
	"github.com/mountainsensing/msfetch/protocol"
	"github.com/mountainsensing/msfetch/state"
	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func executor(retries int) *core.Executor {
	return &core.Executor{
		Resolver: state.NewResolver(nil, nil),
		Retries:  retries,
		Log:      discard(),
	}
}

func encodedSample(t *testing.T, id uint32) []byte {
	t.Helper()
	s := protocol.SampleSchema.New()
	s.SetUint32(protocol.SampleTime, 1445000000+id)
	s.SetFloat(protocol.SampleBatt, 3.3)
	s.SetUint32(protocol.SampleID, id)
	data, err := s.Encode()
	require.NoError(t, err)
	return data
}

// tick returns a clock that advances by a second on every call.
func tick() func() time.Time {
	now := time.Unix(1445000000, 0)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func TestGrabSample_DrainsNode(t *testing.T) {
	tr := mock.NewTransport().
		On(core.MethodGet, "/sample",
			mock.Reply(codes.Content, encodedSample(t, 1)),
			mock.Reply(codes.Content, encodedSample(t, 2)),
			mock.Reply(codes.NotFound, nil)).
		On(core.MethodDelete, "/sample/1", mock.Reply(codes.Deleted, nil)).
		On(core.MethodDelete, "/sample/2", mock.Reply(codes.Deleted, nil))

	dir := t.TempDir()
	sink := &core.DirSink{Dir: dir, Now: tick()}
	action := &core.GrabSample{Transport: tr, All: true, Sinks: []core.SampleSink{sink}}

	summary := executor(3).Run(context.Background(), []string{"2001:db8::1"}, action)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, core.NodeDone, summary.Results[0].Status)
	assert.Equal(t, 2, action.Grabbed)

	deletes := tr.CallsTo(core.MethodDelete)
	require.Len(t, deletes, 2)
	assert.Equal(t, "/sample/1", deletes[0].Path)
	assert.Equal(t, "/sample/2", deletes[1].Path)

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	for i, f := range files {
		assert.True(t, strings.HasSuffix(f.Name(), "_2001:db8::1"), f.Name())
		data, err := os.ReadFile(filepath.Join(dir, f.Name()))
		require.NoError(t, err)
		s, err := protocol.SampleSchema.Decode(data)
		require.NoError(t, err)
		assert.Equal(t, uint32(i+1), s.Uint32(protocol.SampleID))
	}
}

func TestGrabSample_SinglePass(t *testing.T) {
	tr := mock.NewTransport().
		On(core.MethodGet, "/sample", mock.Reply(codes.Content, encodedSample(t, 5))).
		On(core.MethodDelete, "/sample/5", mock.Reply(codes.Deleted, nil))
	action := &core.GrabSample{Transport: tr, Sinks: []core.SampleSink{&core.DirSink{Dir: t.TempDir()}}}

	summary := executor(3).Run(context.Background(), []string{"10.0.0.1"}, action)
	assert.Equal(t, core.NodeDone, summary.Results[0].Status)
	assert.Equal(t, 1, action.Grabbed)
	assert.Len(t, tr.CallsTo(core.MethodGet), 1)
}

func TestGrabSample_EmptyNodeIsNotAFailure(t *testing.T) {
	tr := mock.NewTransport().On(core.MethodGet, "/sample", mock.Reply(codes.NotFound, nil))
	action := &core.GrabSample{Transport: tr, All: true}

	summary := executor(3).Run(context.Background(), []string{"10.0.0.1"}, action)
	assert.Equal(t, core.NodeDone, summary.Results[0].Status)
	assert.Equal(t, 1, summary.RoundTrips())
	assert.Zero(t, action.Grabbed)
}

type brokenSink struct{}

func (brokenSink) Save(state.NodeAddress, *protocol.Message) (string, error) {
	return "", errors.New("disk full")
}

func (brokenSink) Close() error {
	return nil
}

func TestGrabSample_SinkFailureKeepsSampleOnNode(t *testing.T) {
	tr := mock.NewTransport().On(core.MethodGet, "/sample", mock.Reply(codes.Content, encodedSample(t, 1)))
	action := &core.GrabSample{Transport: tr, All: true, Sinks: []core.SampleSink{brokenSink{}}}

	summary := executor(2).Run(context.Background(), []string{"10.0.0.1"}, action)
	assert.Equal(t, core.NodeAbandoned, summary.Results[0].Status)
	assert.Empty(t, tr.CallsTo(core.MethodDelete))
}

func TestGetSample_ServerErrorIsRetried(t *testing.T) {
	tr := mock.NewTransport().On(core.MethodGet, "/sample/3",
		mock.Reply(codes.ServiceUnavailable, nil),
		mock.Fail(context.DeadlineExceeded),
		mock.Reply(codes.Content, encodedSample(t, 3)))

	summary := executor(3).Run(context.Background(), []string{"10.0.0.1"}, &core.GetSample{Transport: tr, ID: 3})
	assert.Equal(t, core.NodeDone, summary.Results[0].Status)
	assert.Equal(t, 3, summary.Results[0].RoundTrips)
}

func TestDeleteSample_ClientErrorIsNotRetried(t *testing.T) {
	tr := mock.NewTransport().On(core.MethodDelete, "/sample", mock.Reply(codes.MethodNotAllowed, nil))

	summary := executor(3).Run(context.Background(), []string{"10.0.0.1"}, &core.DeleteSample{Transport: tr})
	assert.Equal(t, core.NodeFailed, summary.Results[0].Status)
	assert.Len(t, tr.Calls(), 1)
}

func ptr[T any](v T) *T {
	return &v
}

func postedConfig(t *testing.T, tr *mock.Transport) *protocol.Message {
	t.Helper()
	posts := tr.CallsTo(core.MethodPost)
	require.Len(t, posts, 1)
	assert.Equal(t, "/config", posts[0].Path)
	assert.Equal(t, message.AppOctets, posts[0].Format)
	cfg, err := protocol.ConfigSchema.Decode(posts[0].Payload)
	require.NoError(t, err)
	return cfg
}

func TestForceConfig_UsesDefaults(t *testing.T) {
	tr := mock.NewTransport().On(core.MethodPost, "/config", mock.Reply(codes.Changed, nil))
	action := &core.ForceConfig{Transport: tr, Settings: core.ConfigSettings{HasRain: ptr(true), AvrID: ptr(uint32(0x1f))}}

	summary := executor(3).Run(context.Background(), []string{"10.0.0.1"}, action)
	require.Equal(t, core.NodeDone, summary.Results[0].Status)
	assert.Empty(t, tr.CallsTo(core.MethodGet))

	cfg := postedConfig(t, tr)
	assert.Equal(t, uint32(core.DefaultInterval), cfg.Uint32(protocol.ConfigInterval))
	assert.True(t, cfg.Bool(protocol.ConfigHasRain))
	assert.False(t, cfg.Bool(protocol.ConfigHasADC1))
	assert.Equal(t, uint32(0x1f), cfg.Uint32(protocol.ConfigAvrID))
	assert.False(t, cfg.Has(protocol.ConfigPowerID))
	assert.Equal(t, int32(protocol.RoutingMesh), cfg.Enum(protocol.ConfigRoutingMode))
}

func TestEditConfig_MergesWithCurrent(t *testing.T) {
	old := core.BuildConfig(core.ConfigSettings{
		Interval:    ptr(uint32(600)),
		HasADC1:     ptr(true),
		AvrID:       ptr(uint32(0x10)),
		PowerID:     ptr(uint32(0x20)),
		RoutingMode: ptr(protocol.RoutingLeaf),
	}, nil)
	oldData, err := old.Encode()
	require.NoError(t, err)

	tr := mock.NewTransport().
		On(core.MethodGet, "/config", mock.Reply(codes.Content, oldData)).
		On(core.MethodPost, "/config", mock.Reply(codes.Changed, nil))
	action := &core.EditConfig{Transport: tr, Settings: core.ConfigSettings{HasRain: ptr(true), AvrID: ptr(uint32(core.IDNone))}}

	summary := executor(3).Run(context.Background(), []string{"10.0.0.1"}, action)
	require.Equal(t, core.NodeDone, summary.Results[0].Status)

	cfg := postedConfig(t, tr)
	assert.Equal(t, uint32(600), cfg.Uint32(protocol.ConfigInterval))
	assert.True(t, cfg.Bool(protocol.ConfigHasADC1))
	assert.True(t, cfg.Bool(protocol.ConfigHasRain))
	assert.False(t, cfg.Has(protocol.ConfigAvrID))
	assert.Equal(t, uint32(0x20), cfg.Uint32(protocol.ConfigPowerID))
	assert.Equal(t, int32(protocol.RoutingLeaf), cfg.Enum(protocol.ConfigRoutingMode))
}

func TestSetDate(t *testing.T) {
	tr := mock.NewTransport().On(core.MethodPost, "/date", mock.Reply(codes.Changed, nil))
	now := func() time.Time { return time.Unix(1700000000, 0) }

	executor(1).Run(context.Background(), []string{"10.0.0.1"}, &core.SetDate{Transport: tr, Now: now})
	executor(1).Run(context.Background(), []string{"10.0.0.1"}, &core.SetDate{Transport: tr, Now: now, Epoch: ptr(int64(42))})

	posts := tr.CallsTo(core.MethodPost)
	require.Len(t, posts, 2)
	assert.Equal(t, "1700000000", string(posts[0].Payload))
	assert.Equal(t, "42", string(posts[1].Payload))
	assert.Equal(t, message.TextPlain, posts[0].Format)
}

func TestGetDate_BadPayloadIsRetried(t *testing.T) {
	tr := mock.NewTransport().On(core.MethodGet, "/date",
		mock.Reply(codes.Content, []byte("soon")),
		mock.Reply(codes.Content, []byte("1700000000\n")))

	summary := executor(3).Run(context.Background(), []string{"10.0.0.1"}, &core.GetDate{Transport: tr})
	assert.Equal(t, core.NodeDone, summary.Results[0].Status)
	assert.Equal(t, 2, summary.Results[0].RoundTrips)
}

func TestGetUptime(t *testing.T) {
	tr := mock.NewTransport().On(core.MethodGet, "/uptime", mock.Reply(codes.Content, []byte("3600")))
	summary := executor(1).Run(context.Background(), []string{"10.0.0.1"}, &core.GetUptime{Transport: tr})
	assert.Equal(t, core.NodeDone, summary.Results[0].Status)
}

func TestForceReboot_NoAnswerIsSuccess(t *testing.T) {
	tr := mock.NewTransport().On(mock.MethodPostBlind, "/reboot", mock.Fail(context.DeadlineExceeded))

	summary := executor(3).Run(context.Background(), []string{"10.0.0.1"}, &core.ForceReboot{Transport: tr})
	assert.Equal(t, core.NodeDone, summary.Results[0].Status)
	assert.Len(t, tr.Calls(), 1)
}

func TestGetReboot(t *testing.T) {
	tr := mock.NewTransport().On(core.MethodGet, "/reboot", mock.Reply(codes.Content, []byte("17")))
	summary := executor(1).Run(context.Background(), []string{"10.0.0.1"}, &core.GetReboot{Transport: tr})
	assert.Equal(t, core.NodeDone, summary.Results[0].Status)
}

func TestPing(t *testing.T) {
	down := netip.MustParseAddr("10.0.0.2")
	tr := mock.NewTransport().OnNode(down, mock.MethodPing, "", mock.Fail(context.DeadlineExceeded))

	summary := executor(2).Run(context.Background(), []string{"10.0.0.1", "10.0.0.2"}, &core.Ping{Transport: tr})
	assert.Equal(t, core.NodeDone, summary.Results[0].Status)
	assert.Equal(t, core.NodeAbandoned, summary.Results[1].Status)
	assert.Len(t, tr.CallsTo(mock.MethodPing), 3)
}
