package transaction

import (
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"
)

// callTrace collects lock calls across accounts in the order they happen.
type callTrace struct {
	mu    sync.Mutex
	calls []string
}

func (c *callTrace) add(format string, args ...any) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, fmt.Sprintf(format, args...))
}

// mockAccount is an Account whose methods are driven by testify expectations.
type mockAccount struct {
	mock.Mock
	id    int
	trace *callTrace
}

func newMockAccount(id int, trace *callTrace) *mockAccount {
	return &mockAccount{id: id, trace: trace}
}

func (m *mockAccount) ID() int {
	return m.id
}

func (m *mockAccount) Balance() int {
	args := m.Called()
	return args.Int(0)
}

func (m *mockAccount) ChangeBalance(delta int) {
	m.Called(delta)
}

func (m *mockAccount) Lock() {
	m.trace.add("lock %d", m.id)
	m.Called()
}

func (m *mockAccount) Unlock() {
	m.trace.add("unlock %d", m.id)
	m.Called()
}
