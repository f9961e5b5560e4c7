// Package httpapi serves a read-only admin view of the ledger over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"banking/internal/ledger"
)

type handler struct {
	ledger *ledger.Ledger
	log    *zap.Logger
}

// NewRouter exposes l. A nil metrics handler leaves /metrics unrouted.
func NewRouter(l *ledger.Ledger, metrics http.Handler, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{ledger: l, log: logger.Named("http")}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/accounts", h.handleListAccounts).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{id:[0-9-]+}", h.handleGetAccount).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{id:[0-9-]+}/history", h.handleGetHistory).Methods(http.MethodGet)
	r.HandleFunc("/journal", h.handleJournal).Methods(http.MethodGet)
	r.HandleFunc("/totals", h.handleTotals).Methods(http.MethodGet)
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods(http.MethodGet)
	}
	return r
}

type accountView struct {
	ID      int `json:"id"`
	Balance int `json:"balance"`
}

type errorView struct {
	Error string `json:"error"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "fee": h.ledger.Fee()})
}

func (h *handler) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	balances := h.ledger.Balances()
	out := make([]accountView, 0, len(balances))
	for _, id := range h.ledger.Accounts() {
		if bal, ok := balances[id]; ok {
			out = append(out, accountView{ID: id, Balance: bal})
		}
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *handler) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	bal, err := h.ledger.Balance(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, accountView{ID: id, Balance: bal})
}

func (h *handler) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	entries, err := h.ledger.History(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}

func (h *handler) handleJournal(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.ledger.Journal())
}

func (h *handler) handleTotals(w http.ResponseWriter, r *http.Request) {
	totals := h.ledger.Totals()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"opened":      totals.Opened,
		"balances":    totals.Balances,
		"fees_burned": totals.FeesBurned,
		"balanced":    totals.Balanced(),
	})
}

func (h *handler) accountID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorView{Error: "invalid account id"})
		return 0, false
	}
	return id, true
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, ledger.ErrAccountNotFound) {
		status = http.StatusNotFound
	}
	h.writeJSON(w, status, errorView{Error: err.Error()})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn("failed to write response", zap.Error(err))
	}
}
