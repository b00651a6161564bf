package journal

import "sync"

// Memory keeps records in slices. Useful for tests and dry runs.
type Memory struct {
	mu        sync.Mutex
	Positions []PositionRecord
	Balances  []BalanceSnapshot
	Closed    bool
}

func (m *Memory) RecordClose(p PositionRecord, b BalanceSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Positions = append(m.Positions, p)
	m.Balances = append(m.Balances, b)
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordClose(PositionRecord, BalanceSnapshot) error { return nil }
func (Nop) Close() error                                      { return nil }
