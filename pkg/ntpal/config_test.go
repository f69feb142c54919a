package ntpal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	t.Parallel()

	config, err := ParseConfig(strings.NewReader(`
# pools
server time.cloudflare.com
server time.google.com version 3 timeout 2s
   server 127.0.0.1 port 1230 version 4

server ::1 timeout 250ms port 10123
`))
	require.NoError(t, err)
	require.Equal(t, []ServerConfig{
		{Host: "time.cloudflare.com", Port: 123, Version: Version4, Timeout: 5 * time.Second},
		{Host: "time.google.com", Port: 123, Version: Version3, Timeout: 2 * time.Second},
		{Host: "127.0.0.1", Port: 1230, Version: Version4, Timeout: 5 * time.Second},
		{Host: "::1", Port: 10123, Version: Version4, Timeout: 250 * time.Millisecond},
	}, config.Servers)

	require.Equal(t, "time.cloudflare.com:123", config.Servers[0].Address())
	require.Equal(t, "[::1]:10123", config.Servers[3].Address())
}

func TestParseConfig_Empty(t *testing.T) {
	t.Parallel()

	config, err := ParseConfig(strings.NewReader("# nothing here\n\n"))
	require.NoError(t, err)
	require.Empty(t, config.Servers)
}

func TestParseConfig_Errors(t *testing.T) {
	t.Parallel()

	gold := []struct {
		config   string
		expected string
	}{
		{"driftfile /etc/ntp.drift", "line 1: invalid command: driftfile"},
		{"server", "missing required argument"},
		{"\nserver a port", "line 2: no value supplied for argument: port"},
		{"server a port abc", "port argument requires an integer value"},
		{"server a port 0", "port must be between 1 and 65535"},
		{"server a port 65536", "port must be between 1 and 65535"},
		{"server a version 2", "only NTP versions 3 and 4 are supported"},
		{"server a version 260", "only NTP versions 3 and 4 are supported"},
		{"server a timeout soon", "timeout requires a positive duration"},
		{"server a timeout -1s", "timeout requires a positive duration"},
		{"server a iburst", "invalid arguments supplied to command, one was: \"iburst\""},
	}

	for _, p := range gold {
		config, err := ParseConfig(strings.NewReader(p.config))
		require.Nil(t, config, p.config)
		require.ErrorIs(t, err, ErrInvalidConfig, p.config)
		require.ErrorContains(t, err, p.expected, p.config)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ntp.conf")
	require.NoError(t, os.WriteFile(path, []byte("server pool.ntp.org version 3\n"), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, config.Servers, 1)
	require.Equal(t, Version3, config.Servers[0].Version)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.conf"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
