package gateway

import (
	"testing"

	"github.com/stretchr/testify/require"

	"banking/internal/ledger"
)

const testHost = "127.0.0.1"

func startTestServer(t *testing.T, l *ledger.Ledger) *Server {
	t.Helper()
	srv := NewServer(testHost, 0, l, nil)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)
	return srv
}

func dialTestClients(t *testing.T, srv *Server, n int) []*Client {
	t.Helper()
	clients := make([]*Client, n)
	for i := range n {
		c, err := Dial(srv.Addr())
		if err != nil {
			t.Fatalf("Client %d failed to connect to %s: %v", i, srv.Addr(), err)
		}
		t.Cleanup(func() { c.Disconnect() })
		clients[i] = c
	}
	return clients
}

func openTestAccounts(t *testing.T, c *Client, balances map[int]int) {
	t.Helper()
	for id, bal := range balances {
		require.NoError(t, c.Open(id, bal))
	}
}
