package gateway

import (
	"encoding/json"
	"errors"
	"math"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banking/internal/ledger"
	"banking/internal/transaction"
	"banking/internal/util"
)

func TestOpenTransferBalance(t *testing.T) {
	l := ledger.MakeLedger()
	srv := startTestServer(t, l)
	c := dialTestClients(t, srv, 1)[0]
	openTestAccounts(t, c, map[int]int{1: 1000, 2: 500})

	r, err := c.Transfer(1, 2, 100)
	require.NoError(t, err)
	assert.True(t, r.Completed())
	assert.Equal(t, transaction.Completed, r.Outcome)
	assert.Equal(t, 1, r.Fee)
	assert.NotEmpty(t, r.ID)

	bal, err := c.Balance(1)
	require.NoError(t, err)
	assert.Equal(t, 899, bal)
	bal, err = c.Balance(2)
	require.NoError(t, err)
	assert.Equal(t, 600, bal)

	journal := l.Journal()
	require.Len(t, journal, 1)
	assert.Equal(t, journal[0].ID, r.ID)
	assert.True(t, journal[0].Time.Equal(r.Time))
}

func TestDeclinedTransferIsAResult(t *testing.T) {
	srv := startTestServer(t, ledger.MakeLedger())
	c := dialTestClients(t, srv, 1)[0]
	openTestAccounts(t, c, map[int]int{1: 50, 2: 500})

	r, err := c.Transfer(1, 2, 100)
	require.NoError(t, err)
	assert.Equal(t, transaction.InsufficientFunds, r.Outcome)

	require.NoError(t, c.SetFee(60))
	require.NoError(t, c.Open(3, 1000))
	r, err = c.Transfer(3, 2, 100)
	require.NoError(t, err)
	assert.Equal(t, transaction.FeeTooHigh, r.Outcome)
}

func TestRemoteErrorsMatchSentinels(t *testing.T) {
	srv := startTestServer(t, ledger.MakeLedger())
	c := dialTestClients(t, srv, 1)[0]
	openTestAccounts(t, c, map[int]int{1: 1000, 2: 500})

	_, err := c.Transfer(1, 1, 300)
	assert.ErrorIs(t, err, transaction.ErrSameAccount)
	assert.ErrorIs(t, err, transaction.ErrInvalidOperation)

	_, err = c.Transfer(1, 2, 0)
	assert.ErrorIs(t, err, transaction.ErrNonPositiveAmount)
	assert.ErrorIs(t, err, transaction.ErrInvalidArgument)

	_, err = c.Transfer(1, 2, 99)
	assert.ErrorIs(t, err, transaction.ErrAmountTooSmall)

	_, err = c.Balance(9)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	assert.ErrorIs(t, c.Open(1, 0), ledger.ErrAccountExists)
	assert.ErrorIs(t, c.SetFee(-1), ledger.ErrNegativeFee)
	assert.ErrorIs(t, c.SetFee(math.MaxInt), ledger.ErrFeeTooLarge)
	assert.ErrorIs(t, c.Open(3, math.MaxInt), ledger.ErrBalanceTooLarge)

	var remote *RemoteError
	require.True(t, errors.As(c.Open(1, 0), &remote))
	assert.Equal(t, "account_exists", remote.Reason)
}

func TestExtremeTransferOverTheWire(t *testing.T) {
	l := ledger.MakeLedger()
	srv := startTestServer(t, l)
	c := dialTestClients(t, srv, 1)[0]
	openTestAccounts(t, c, map[int]int{1: 1000, 2: 500})

	r, err := c.Transfer(1, 2, math.MaxInt)
	require.NoError(t, err)
	assert.Equal(t, transaction.InsufficientFunds, r.Outcome)

	require.Error(t, c.SetFee(math.MaxInt))
	fee, err := c.Fee()
	require.NoError(t, err)
	assert.Equal(t, transaction.DefaultFee, fee)

	assert.Equal(t, map[int]int{1: 1000, 2: 500}, l.Balances())
}

func TestFee(t *testing.T) {
	srv := startTestServer(t, ledger.MakeLedger())
	c := dialTestClients(t, srv, 1)[0]

	fee, err := c.Fee()
	require.NoError(t, err)
	assert.Equal(t, 1, fee)

	require.NoError(t, c.SetFee(10))
	fee, err = c.Fee()
	require.NoError(t, err)
	assert.Equal(t, 10, fee)
}

func TestCloseAccount(t *testing.T) {
	l := ledger.MakeLedger()
	srv := startTestServer(t, l)
	c := dialTestClients(t, srv, 1)[0]
	openTestAccounts(t, c, map[int]int{1: 1000, 2: 500})

	bal, err := c.Close(2)
	require.NoError(t, err)
	assert.Equal(t, 500, bal)
	assert.Equal(t, []int{1}, l.Accounts())

	_, err = c.Close(2)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestBadRequests(t *testing.T) {
	srv := startTestServer(t, ledger.MakeLedger())

	conn, err := net.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	defer conn.Close()
	enc := json.NewEncoder(conn)
	dec := json.NewDecoder(conn)

	for _, msg := range []Message{
		{Id: "a", Cmd: "withdraw"},
		{Id: "b", Cmd: CmdTransfer},
		{Id: "c", Cmd: CmdBalance, Data: json.RawMessage(`"one"`)},
	} {
		require.NoError(t, enc.Encode(msg))

		var reply Message
		require.NoError(t, dec.Decode(&reply))
		assert.Equal(t, msg.Id, reply.Id)
		assert.Equal(t, CmdError, reply.Cmd)

		var e ErrorReply
		require.NoError(t, json.Unmarshal(reply.Data, &e))
		assert.Equal(t, "bad_request", e.Reason, "cmd %s", msg.Cmd)
	}

	// The connection survives bad requests.
	c := &Client{conn: conn, enc: enc, dec: dec}
	_, err = c.Fee()
	assert.NoError(t, err)
	err = c.call("withdraw", nil, nil)
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestLedgerConsistency(t *testing.T) {
	l := ledger.MakeLedger()
	srv := startTestServer(t, l)
	clients := dialTestClients(t, srv, 5)
	openTestAccounts(t, clients[0], map[int]int{1: 100_000, 2: 100_000, 3: 100_000, 4: 100_000, 5: 100_000})

	const txPerClient = 20
	util.Parallel(len(clients), func(i int) {
		for j := range txPerClient {
			from := 1 + (i+j)%5
			to := 1 + (i+j+1)%5
			if _, err := clients[i].Transfer(from, to, 100+j); err != nil {
				t.Errorf("client %d: transfer %d->%d: %v", i, from, to, err)
			}
		}
	})

	// Replaying the journal on a fresh ledger must land on the same balances.
	computed := ledger.MakeLedger()
	for id := 1; id <= 5; id++ {
		require.NoError(t, computed.Open(id, 100_000))
	}
	for _, r := range l.Journal() {
		if !r.Completed() {
			continue
		}
		_, err := computed.Transfer(r.From, r.To, r.Amount)
		require.NoError(t, err)
	}

	if !ledger.VerifyConsistency([]*ledger.Ledger{l, computed}) {
		t.Errorf("Gateway ledger does not match computed ledger")
	}
	assert.Len(t, l.Journal(), len(clients)*txPerClient)
	assert.True(t, l.Totals().Balanced())
}

func TestStopDisconnectsClients(t *testing.T) {
	srv := NewServer(testHost, 0, ledger.MakeLedger(), nil)
	require.NoError(t, srv.Start())
	c := dialTestClients(t, srv, 1)[0]

	_, err := c.Fee()
	require.NoError(t, err)

	srv.Stop()
	srv.Stop()

	_, err = c.Fee()
	assert.Error(t, err)
	_, err = Dial(srv.Addr())
	assert.Error(t, err)
}

func TestStartTwice(t *testing.T) {
	srv := startTestServer(t, ledger.MakeLedger())
	assert.Error(t, srv.Start())
}
