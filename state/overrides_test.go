package state

import (
	"errors"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverrideTable_Load(t *testing.T) {
	table := NewOverrideTable()
	input := `# deployment hosts
2001:db8::7	sensor7 s7   # trailing comment

   10.0.0.2 gateway.local
`
	require.NoError(t, table.Load(strings.NewReader(input), "hosts"))

	addr, ok := table.Lookup("sensor7")
	assert.True(t, ok)
	assert.Equal(t, netip.MustParseAddr("2001:db8::7"), addr)

	addr, ok = table.Lookup("s7")
	assert.True(t, ok)
	assert.Equal(t, netip.MustParseAddr("2001:db8::7"), addr)

	addr, ok = table.Lookup("gateway.local")
	assert.True(t, ok)
	assert.Equal(t, netip.MustParseAddr("10.0.0.2"), addr)

	_, ok = table.Lookup("unknown")
	assert.False(t, ok)
	assert.Equal(t, 3, table.Len())
}

func TestOverrideTable_CaseInsensitive(t *testing.T) {
	table := NewOverrideTable()
	require.NoError(t, table.Load(strings.NewReader("fd00::1 Sensor1\n"), "hosts"))
	_, ok := table.Lookup("SENSOR1")
	assert.True(t, ok)
}

func TestOverrideTable_LaterWins(t *testing.T) {
	table := NewOverrideTable()
	require.NoError(t, table.Load(strings.NewReader("fd00::1 sensor1\nfd00::2 sensor1\n"), "a"))
	addr, _ := table.Lookup("sensor1")
	assert.Equal(t, netip.MustParseAddr("fd00::2"), addr)

	require.NoError(t, table.Load(strings.NewReader("fd00::3 sensor1\n"), "b"))
	addr, _ = table.Lookup("sensor1")
	assert.Equal(t, netip.MustParseAddr("fd00::3"), addr)
}

func TestOverrideTable_ParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
		cause error
	}{
		{"bad address", "sensor1 fd00::1\n", 1, ErrBadAddress},
		{"missing hostname", "# ok\nfd00::1\n", 2, ErrMissingHostname},
		{"bad hostname", "fd00::1 good\nfd00::2 bad_name\n", 2, ErrBadHostname},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewOverrideTable().Load(strings.NewReader(tt.input), "hosts")
			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, "hosts", parseErr.Source)
			assert.Equal(t, tt.line, parseErr.Line)
			assert.ErrorIs(t, err, tt.cause)
		})
	}
}

func TestOverrideTable_FailedSourceKeepsEarlier(t *testing.T) {
	table := NewOverrideTable()
	require.NoError(t, table.Load(strings.NewReader("fd00::1 sensor1\n"), "good"))

	err := table.Load(strings.NewReader("fd00::9 sensor1\nfd00::2 sensor2\nbroken\n"), "bad")
	assert.Error(t, err)

	addr, ok := table.Lookup("sensor1")
	assert.True(t, ok)
	assert.Equal(t, netip.MustParseAddr("fd00::1"), addr)
	_, ok = table.Lookup("sensor2")
	assert.False(t, ok)
}

func TestOverrideTable_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts")
	require.NoError(t, os.WriteFile(path, []byte("fd00::1 sensor1\n"), 0600))

	table := NewOverrideTable()
	require.NoError(t, table.LoadFile(path))
	assert.Equal(t, 1, table.Len())

	assert.Error(t, table.LoadFile(filepath.Join(t.TempDir(), "missing")))
}

func TestOverrideTable_EntriesSorted(t *testing.T) {
	table := NewOverrideTable()
	require.NoError(t, table.Load(strings.NewReader("fd00::2 b a\nfd00::1 z\n"), "hosts"))
	assert.Equal(t, []OverrideEntry{
		{Hostname: "z", Addr: netip.MustParseAddr("fd00::1")},
		{Hostname: "a", Addr: netip.MustParseAddr("fd00::2")},
		{Hostname: "b", Addr: netip.MustParseAddr("fd00::2")},
	}, table.Entries())
}
