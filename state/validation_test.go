package state

import (
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameValidator_Valid(t *testing.T) {
	assert.NoError(t, NameValidator("1"))
	assert.NoError(t, NameValidator("ab_cd"))
	assert.NoError(t, NameValidator("glacier-north"))
}

func TestNameValidator_Invalid(t *testing.T) {
	assert.Error(t, NameValidator("1A"))
	assert.Error(t, NameValidator("node name"))
	assert.Error(t, NameValidator(""))
	assert.Error(t, NameValidator("\t"))
	assert.Error(t, NameValidator(strings.Repeat("a", 200)))
}

func TestNodeValidator(t *testing.T) {
	assert.NoError(t, NodeValidator([]string{"fd00::1", "sensor7", "10.0.0.1"}))
	assert.Error(t, NodeValidator(nil))
	assert.ErrorContains(t, NodeValidator([]string{"fd00::1", "bad host"}), "bad host")
}

func TestConfigValidator_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, ConfigValidator(&cfg))
}

func TestConfigValidator_Invalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Retries = 0
	assert.ErrorContains(t, ConfigValidator(&cfg), "retries")

	cfg = DefaultConfig()
	cfg.Timeout = 0
	assert.ErrorContains(t, ConfigValidator(&cfg), "timeout")

	cfg = DefaultConfig()
	cfg.Port = 70000
	assert.ErrorContains(t, ConfigValidator(&cfg), "port")

	cfg = DefaultConfig()
	cfg.ConsoleLevel = "chatty"
	assert.Error(t, ConfigValidator(&cfg))

	cfg = DefaultConfig()
	cfg.Networks = []NetworkCfg{
		{Name: "a", Prefix: netip.MustParsePrefix("fd00::/16")},
		{Name: "a", Prefix: netip.MustParsePrefix("fd01::/16")},
	}
	assert.ErrorContains(t, ConfigValidator(&cfg), "duplicate network")

	cfg = DefaultConfig()
	cfg.Networks = []NetworkCfg{{Name: "b"}}
	assert.ErrorContains(t, ConfigValidator(&cfg), "invalid prefix")
}
