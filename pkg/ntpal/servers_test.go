package ntpal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClient_QueryServers(t *testing.T) {
	t.Parallel()

	host, port, _ := startServer(t, staticServer)
	silentHost, silentPort, _ := startServer(t, func([]byte) []byte { return nil })

	servers := []ServerConfig{
		{Host: host, Port: port, Version: Version4, Timeout: time.Second},
		{Host: silentHost, Port: silentPort, Version: Version4, Timeout: 50 * time.Millisecond},
		{Host: host, Port: port, Version: 9, Timeout: time.Second},
		{Host: host, Port: port, Version: Version3, Timeout: time.Second},
	}

	results := NewClient(nil).QueryServers(context.Background(), servers, 2)
	require.Len(t, results, len(servers))
	for i, result := range results {
		require.Equal(t, servers[i], result.Server)
	}

	require.NoError(t, results[0].Err)
	require.Equal(t, uint8(2), results[0].Result.Packet.Stratum)

	require.ErrorIs(t, results[1].Err, context.DeadlineExceeded)
	require.Nil(t, results[1].Result)

	require.ErrorIs(t, results[2].Err, ErrInvalidArgument)

	require.NoError(t, results[3].Err)
}

func TestClient_QueryServers_Empty(t *testing.T) {
	t.Parallel()

	require.Empty(t, NewClient(nil).QueryServers(context.Background(), nil, 0))
}
