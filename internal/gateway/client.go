package gateway

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"banking/internal/ledger"
)

// RemoteError is an error reply from the server. It unwraps to the ledger
// or transaction sentinel named by its reason, so errors.Is works across
// the connection.
type RemoteError struct {
	Reason  string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("gateway: %s", e.Message)
}

func (e *RemoteError) Unwrap() error {
	if e.Reason == reasonBadRequest {
		return ErrBadRequest
	}
	return ledger.ReasonErr(e.Reason)
}

// Client is a connection to a Server. It is safe for concurrent use; calls
// are serialized on the connection.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
	enc  *json.Encoder
	dec  *json.Decoder
}

func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn: conn,
		enc:  json.NewEncoder(conn),
		dec:  json.NewDecoder(conn),
	}, nil
}

func (c *Client) Disconnect() error {
	return c.conn.Close()
}

func (c *Client) call(cmd Cmd, req, out any) error {
	msg, err := NewMessage(cmd, req)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.enc.Encode(msg); err != nil {
		return fmt.Errorf("send %s: %w", cmd, err)
	}
	var reply Message
	if err := c.dec.Decode(&reply); err != nil {
		return fmt.Errorf("receive %s reply: %w", cmd, err)
	}
	if reply.Id != msg.Id {
		return fmt.Errorf("reply %s does not answer request %s", reply.Id, msg.Id)
	}

	switch reply.Cmd {
	case CmdError:
		var e ErrorReply
		if err := json.Unmarshal(reply.Data, &e); err != nil {
			return fmt.Errorf("decode %s error reply: %w", cmd, err)
		}
		return &RemoteError{Reason: e.Reason, Message: e.Message}
	case CmdResult:
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(reply.Data, out); err != nil {
			return fmt.Errorf("decode %s result: %w", cmd, err)
		}
		return nil
	default:
		return fmt.Errorf("unexpected reply %q to %s", reply.Cmd, cmd)
	}
}

func (c *Client) Open(id, balance int) error {
	return c.call(CmdOpen, AccountRequest{ID: id, Balance: balance}, nil)
}

// Close closes the account id on the server and returns its final balance.
func (c *Client) Close(id int) (int, error) {
	var reply BalanceReply
	if err := c.call(CmdClose, AccountRequest{ID: id}, &reply); err != nil {
		return 0, err
	}
	return reply.Balance, nil
}

func (c *Client) Transfer(from, to, amount int) (ledger.Receipt, error) {
	var r ledger.Receipt
	err := c.call(CmdTransfer, TransferRequest{From: from, To: to, Amount: amount}, &r)
	return r, err
}

func (c *Client) Balance(id int) (int, error) {
	var reply BalanceReply
	if err := c.call(CmdBalance, AccountRequest{ID: id}, &reply); err != nil {
		return 0, err
	}
	return reply.Balance, nil
}

func (c *Client) Fee() (int, error) {
	var reply FeeMessage
	if err := c.call(CmdFee, nil, &reply); err != nil {
		return 0, err
	}
	return reply.Fee, nil
}

func (c *Client) SetFee(fee int) error {
	return c.call(CmdSetFee, FeeMessage{Fee: fee}, nil)
}
