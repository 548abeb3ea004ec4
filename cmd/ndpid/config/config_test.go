package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHasSaneDefaults(t *testing.T) {
	cfg := New()
	assert.Equal(t, "/tmp/ndpid-collector.sock", cfg.CollectorSocket)
	assert.Greater(t, cfg.Threads, 0)
	assert.Equal(t, "logfmt", cfg.Logging.Encoding)
}

func TestParseValidConfig(t *testing.T) {
	src := `{"interface": "eth0", "threads": 8, "collector_socket": "/run/ndpid.sock"}`
	cfg, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "eth0", cfg.Interface)
	assert.Equal(t, 8, cfg.Threads)
	assert.Equal(t, "/run/ndpid.sock", cfg.CollectorSocket)
}

func TestParseMissingInterfaceFails(t *testing.T) {
	src := `{"threads": 4}`
	_, err := Parse(strings.NewReader(src))
	assert.Error(t, err)
}

func TestParseNegativeThreadsFails(t *testing.T) {
	src := `{"interface": "eth0", "threads": -1}`
	_, err := Parse(strings.NewReader(src))
	assert.Error(t, err)
}

func TestParseEmptyCollectorSocketFails(t *testing.T) {
	src := `{"interface": "eth0", "collector_socket": ""}`
	_, err := Parse(strings.NewReader(src))
	assert.Error(t, err)
}

func TestParseUnsupportedLogEncodingFails(t *testing.T) {
	src := `{"interface": "eth0", "logging": {"encoding": "xml"}}`
	_, err := Parse(strings.NewReader(src))
	assert.Error(t, err)
}

func TestParseMalformedJSONFails(t *testing.T) {
	_, err := Parse(strings.NewReader(`{not json`))
	assert.Error(t, err)
}

func TestParseFileMissingPathFails(t *testing.T) {
	_, err := ParseFile("/nonexistent/ndpid.json")
	assert.Error(t, err)
}
