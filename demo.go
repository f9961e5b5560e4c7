package main

import (
	"fmt"
	"math/rand/v2"

	"banking/internal/gateway"
	"banking/internal/ledger"
	"banking/internal/util"
)

const (
	demoClients     = 10
	demoTxPerClient = 10
	demoAccounts    = 5
	demoBalance     = 10_000
)

// runDemo drives transfers at addr from concurrent clients, then replays the
// completed receipts on a computed ledger and compares it with served.
func runDemo(addr string, served *ledger.Ledger) error {
	clients := make([]*gateway.Client, demoClients)
	for i := range clients {
		c, err := gateway.Dial(addr)
		if err != nil {
			return fmt.Errorf("client %d failed to connect to %s: %w", i, addr, err)
		}
		defer c.Disconnect()
		clients[i] = c
	}

	for id := range demoAccounts {
		if err := clients[0].Open(id, demoBalance); err != nil {
			return err
		}
	}

	errs := make([]error, demoClients)
	util.Parallel(demoClients, func(i int) {
		for j := range demoTxPerClient {
			from := (i + j) % demoAccounts
			to := (i + j + 1) % demoAccounts
			if _, err := clients[i].Transfer(from, to, transactionAmount()); err != nil {
				errs[i] = err
				return
			}
		}
	})
	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("client %d: %w", i, err)
		}
	}

	computed := ledger.MakeLedger(ledger.WithFee(served.Fee()))
	for id := range demoAccounts {
		if err := computed.Open(id, demoBalance); err != nil {
			return err
		}
	}
	for _, r := range served.Journal() {
		if !r.Completed() {
			continue
		}
		if _, err := computed.Transfer(r.From, r.To, r.Amount); err != nil {
			return fmt.Errorf("replay %s: %w", r.ID, err)
		}
	}

	if !ledger.VerifyConsistency([]*ledger.Ledger{served, computed}) || !served.Totals().Balanced() {
		fmt.Println("Error: Ledgers are inconsistent or do not match computed ledger")
		return nil
	}
	fmt.Println("Success: All ledgers are consistent and match computed ledger")
	return nil
}

func transactionAmount() int {
	return 100 + rand.IntN(100)
}
