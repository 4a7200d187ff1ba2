package protocol

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSample(t *testing.T) *Message {
	t.Helper()
	avr := Rs485Schema.New()
	avr.SetUint32(Rs485ID, 1)
	avr.SetUint32(Rs485Type, 2)
	avr.AppendFloat(Rs485Data, 1.5)
	avr.AppendFloat(Rs485Data, 2)
	raw, err := avr.EncodeRaw()
	require.NoError(t, err)

	s := SampleSchema.New()
	s.SetUint32(SampleTime, 1445000000)
	s.SetFloat(SampleBatt, 3.5)
	s.SetFloat(SampleTemp, 21.25)
	s.SetBytes(SampleAVR, raw)
	s.SetUint32(SampleID, 7)
	return s
}

func TestSample_RoundTrip(t *testing.T) {
	s := testSample(t)
	data, err := s.Encode()
	require.NoError(t, err)
	assert.Equal(t, byte(len(data)-1), data[0])

	decoded, err := SampleSchema.Decode(data)
	require.NoError(t, err)
	assert.True(t, s.Equal(decoded))
	assert.Equal(t, uint32(7), decoded.Uint32(SampleID))
	assert.False(t, decoded.Has(SampleRain))
}

func TestDecode_Errors(t *testing.T) {
	_, err := SampleSchema.Decode(nil)
	assert.ErrorIs(t, err, ErrEmptyPayload)

	_, err = ConfigSchema.Decode([]byte{0x05, 0x08})
	assert.Error(t, err)
}

func TestFormatSample(t *testing.T) {
	text, err := FormatSample(testSample(t))
	require.NoError(t, err)
	want := strings.Join([]string{
		"time: 1445000000 (2015-10-16 12:53:20 UTC)",
		"batt: 3.5",
		"temp: 21.25",
		"AVR: ",
		"    id: 1",
		"    type: 2",
		"    data: 1.5",
		"    data: 2",
		"id: 7",
	}, "\n")
	if diff := cmp.Diff(want, text); diff != "" {
		t.Errorf("FormatSample mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatConfig(t *testing.T) {
	c := ConfigSchema.New()
	c.SetUint32(ConfigInterval, 1200)
	c.SetBool(ConfigHasADC1, true)
	c.SetBool(ConfigHasADC2, false)
	c.SetUint32(ConfigAvrID, 0x2f)
	c.SetEnum(ConfigRoutingMode, int32(RoutingLeaf))

	text, err := FormatConfig(c)
	require.NoError(t, err)
	assert.Equal(t, "interval: 1200\nhasADC1: true\nhasADC2: false\navrID: 2f\nroutingMode: LEAF", text)
}

func TestFormatEpoch(t *testing.T) {
	assert.Equal(t, "0 (1970-01-01 00:00:00 UTC)", FormatEpoch(0))
}

func TestParseHex(t *testing.T) {
	v, err := ParseHex("2F")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x2f), v)

	v, err = ParseHex("0x10")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x10), v)

	_, err = ParseHex("zz")
	assert.Error(t, err)
}

func TestRoutingMode(t *testing.T) {
	m, err := ParseRoutingMode("MESH")
	require.NoError(t, err)
	assert.Equal(t, RoutingMesh, m)
	assert.Equal(t, "LEAF", RoutingLeaf.String())
	_, err = ParseRoutingMode("mesh")
	assert.Error(t, err)
}

func TestReadDump(t *testing.T) {
	c := ConfigSchema.New()
	c.SetUint32(ConfigInterval, 60)
	data, err := c.Encode()
	require.NoError(t, err)

	var dump bytes.Buffer
	dump.WriteString("booting\n")
	dump.WriteString("deadbeef\n")
	dump.WriteString(ConfigDump.Start + "\n")
	dump.WriteString(strings.ToUpper(hex.EncodeToString(data)) + "\r\n")
	dump.WriteString("\n")
	dump.WriteString(ConfigDump.End + "\n")
	dump.WriteString(SampleDump.Start + "\n")
	dump.WriteString("00\n")
	dump.WriteString(SampleDump.End + "\n")

	records, err := ReadDump(&dump, ConfigDump)
	require.NoError(t, err)
	require.Len(t, records, 1)
	decoded, err := ConfigSchema.Decode(records[0])
	require.NoError(t, err)
	assert.Equal(t, uint32(60), decoded.Uint32(ConfigInterval))
}

func TestReadDump_BadHex(t *testing.T) {
	in := SampleDump.Start + "\nnothex\n" + SampleDump.End + "\n"
	_, err := ReadDump(strings.NewReader(in), SampleDump)
	assert.ErrorContains(t, err, "line 2")
}
