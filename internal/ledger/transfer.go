package ledger

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"banking/internal/account"
	"banking/internal/transaction"
)

// Receipt records a transfer that passed validation, whatever its outcome.
type Receipt struct {
	ID      string              `json:"id"`
	From    int                 `json:"from"`
	To      int                 `json:"to"`
	Amount  int                 `json:"amount"`
	Fee     int                 `json:"fee"`
	Outcome transaction.Outcome `json:"outcome"`
	Time    time.Time           `json:"time"`
}

func (r Receipt) Completed() bool {
	return r.Outcome == transaction.Completed
}

// Entry is one side of a completed transfer in an account's history.
// The source side carries the fee in its delta.
type Entry struct {
	Receipt      string    `json:"receipt"`
	Time         time.Time `json:"time"`
	Delta        int       `json:"delta"`
	Counterparty int       `json:"counterparty"`
}

// Recorder receives transfer telemetry.
type Recorder interface {
	ObserveTransfer(r Receipt, elapsed time.Duration)
	ObserveRejection(reason string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveTransfer(Receipt, time.Duration) {}
func (nopRecorder) ObserveRejection(string)                {}

// Transfer moves amount between two open accounts. Business failures are
// reported in the receipt's outcome; the error is reserved for requests that
// fail validation or name unknown accounts.
func (l *Ledger) Transfer(from, to, amount int) (Receipt, error) {
	start := time.Now()

	l.mu.RLock()
	defer l.mu.RUnlock()

	res, err := l.execute(from, to, amount)
	if err != nil {
		l.rec.ObserveRejection(Reason(err))
		l.log.Warn("transfer rejected",
			zap.Int("from", from),
			zap.Int("to", to),
			zap.Int("amount", amount),
			zap.Error(err),
		)
		return Receipt{}, err
	}

	r := Receipt{
		ID:      uuid.NewString(),
		From:    from,
		To:      to,
		Amount:  res.Amount,
		Fee:     res.Fee,
		Outcome: res.Outcome,
		Time:    start.UTC(),
	}
	if r.Completed() {
		l.burned.Add(int64(r.Fee))
	}
	l.record(r)
	l.rec.ObserveTransfer(r, time.Since(start))

	fields := []zap.Field{
		zap.String("receipt", r.ID),
		zap.Int("from", from),
		zap.Int("to", to),
		zap.Int("amount", amount),
		zap.Int("fee", r.Fee),
		zap.Stringer("outcome", r.Outcome),
	}
	if r.Completed() {
		l.log.Debug("transfer completed", fields...)
	} else {
		l.log.Info("transfer declined", fields...)
	}
	return r, nil
}

func (l *Ledger) execute(from, to, amount int) (transaction.Result, error) {
	src, err := l.lookup(from)
	if err != nil {
		return transaction.Result{}, err
	}
	dst, err := l.lookup(to)
	if err != nil {
		return transaction.Result{}, err
	}
	return l.tx.Execute(src, dst, amount)
}

// lookup expects l.mu to be held.
func (l *Ledger) lookup(id int) (*account.Account, error) {
	a, ok := l.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return a, nil
}

func (l *Ledger) record(r Receipt) {
	l.journalMu.Lock()
	defer l.journalMu.Unlock()

	l.journal = append(l.journal, r)
	if !r.Completed() {
		return
	}
	l.history[r.From] = append(l.history[r.From], Entry{
		Receipt: r.ID, Time: r.Time, Delta: -(r.Amount + r.Fee), Counterparty: r.To,
	})
	l.history[r.To] = append(l.history[r.To], Entry{
		Receipt: r.ID, Time: r.Time, Delta: r.Amount, Counterparty: r.From,
	})
}

// History returns the completed transfers of an open account, oldest first.
func (l *Ledger) History(id int) ([]Entry, error) {
	l.mu.RLock()
	_, ok := l.accounts[id]
	l.mu.RUnlock()
	if !ok {
		return nil, ErrAccountNotFound
	}

	l.journalMu.Lock()
	defer l.journalMu.Unlock()
	out := make([]Entry, len(l.history[id]))
	copy(out, l.history[id])
	return out, nil
}

// Journal returns every receipt issued so far, in the order they were
// recorded. Receipts are recorded after the accounts are released, so two
// concurrent transfers may appear in either order.
func (l *Ledger) Journal() []Receipt {
	l.journalMu.Lock()
	defer l.journalMu.Unlock()
	out := make([]Receipt, len(l.journal))
	copy(out, l.journal)
	return out
}
