package ntpal

import (
	"context"

	"github.com/alitto/pond/v2"
)

const defaultServersConcurrency = 8

type ServerResult struct {
	Server ServerConfig
	Result *Result
	Err    error
}

// QueryServers runs one independent exchange per server, each bounded by
// the server's timeout. Results come back in the order of servers.
func (c *Client) QueryServers(ctx context.Context, servers []ServerConfig, concurrency int) []ServerResult {
	if len(servers) == 0 {
		return nil
	}
	if concurrency <= 0 {
		concurrency = defaultServersConcurrency
	}

	pool := pond.NewResultPool[ServerResult](concurrency)
	defer pool.StopAndWait()

	group := pool.NewGroup()
	for _, server := range servers {
		server := server
		group.Submit(func() ServerResult {
			requestCtx := ctx
			if server.Timeout > 0 {
				var cancel context.CancelFunc
				requestCtx, cancel = context.WithTimeout(ctx, server.Timeout)
				defer cancel()
			}

			result, err := c.RequestTime(requestCtx, server.Host, server.Port, server.Version)
			return ServerResult{Server: server, Result: result, Err: err}
		})
	}

	results, _ := group.Wait()
	return results
}
