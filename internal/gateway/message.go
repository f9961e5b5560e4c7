package gateway

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type Cmd string

const (
	CmdOpen     Cmd = "open"
	CmdClose    Cmd = "close"
	CmdTransfer Cmd = "transfer"
	CmdBalance  Cmd = "balance"
	CmdFee      Cmd = "fee"
	CmdSetFee   Cmd = "set_fee"

	CmdResult Cmd = "result"
	CmdError  Cmd = "error"
)

// Message is one line on the wire. Replies carry the id of their request.
type Message struct {
	Id   string          `json:"id"`
	Cmd  Cmd             `json:"cmd"`
	Data json.RawMessage `json:"data,omitempty"`
}

func NewMessage(cmd Cmd, data any) (Message, error) {
	return newMessage(uuid.NewString(), cmd, data)
}

func newMessage(id string, cmd Cmd, data any) (Message, error) {
	msg := Message{Id: id, Cmd: cmd}
	if data == nil {
		return msg, nil
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s payload: %w", cmd, err)
	}
	msg.Data = jsonData
	return msg, nil
}

type AccountRequest struct {
	ID      int `json:"id"`
	Balance int `json:"balance,omitempty"`
}

type TransferRequest struct {
	From   int `json:"from"`
	To     int `json:"to"`
	Amount int `json:"amount"`
}

type BalanceReply struct {
	ID      int `json:"id"`
	Balance int `json:"balance"`
}

type FeeMessage struct {
	Fee int `json:"fee"`
}

type ErrorReply struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// ErrBadRequest is returned for messages the server cannot interpret.
var ErrBadRequest = errors.New("bad request")

const (
	reasonBadRequest = "bad_request"
	reasonInternal   = "internal"
)

func decodeData(msg Message, v any) error {
	if len(msg.Data) == 0 {
		return fmt.Errorf("%w: %s without payload", ErrBadRequest, msg.Cmd)
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrBadRequest, msg.Cmd, err)
	}
	return nil
}
