// Package report records swap outcomes. Every execution attempt, won or
// lost, produces exactly one SwapOutcome; sinks decide where it lives.
package report

import (
	"context"
	"sync"
	"time"

	"github.com/greyfield/swaprouter/internal/swaperr"
)

// SwapOutcome is the terminal record of one execution attempt. Gas fields
// are zero when no transaction reached the chain.
type SwapOutcome struct {
	Success           bool          `json:"success"`
	TxHash            string        `json:"tx_hash,omitempty"`
	VenueUsed         string        `json:"venue_used,omitempty"`
	TokenIn           string        `json:"token_in"`
	TokenOut          string        `json:"token_out"`
	AmountIn          string        `json:"amount_in"`
	GasUsed           uint64        `json:"gas_used,omitempty"`
	EffectiveGasPrice string        `json:"effective_gas_price,omitempty"`
	FailureClass      swaperr.Class `json:"failure_class,omitempty"`
	FailureDetail     string        `json:"failure_detail,omitempty"`
	Remediation       string        `json:"remediation,omitempty"`
	Timestamp         time.Time     `json:"timestamp"`
}

// Sink persists outcomes. Record must not block the pipeline on sink
// trouble; implementations log and move on.
type Sink interface {
	Record(ctx context.Context, o SwapOutcome) error
	Recent(ctx context.Context, n int) ([]SwapOutcome, error)
}

// MemorySink keeps the most recent outcomes in a fixed ring. The zero
// retention default matches one screen of history.
type MemorySink struct {
	mu       sync.Mutex
	ring     []SwapOutcome
	capacity int
}

func NewMemorySink(capacity int) *MemorySink {
	if capacity <= 0 {
		capacity = 64
	}
	return &MemorySink{capacity: capacity}
}

func (m *MemorySink) Record(_ context.Context, o SwapOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ring = append(m.ring, o)
	if len(m.ring) > m.capacity {
		m.ring = m.ring[len(m.ring)-m.capacity:]
	}
	return nil
}

// Recent returns up to n outcomes, newest first.
func (m *MemorySink) Recent(_ context.Context, n int) ([]SwapOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n <= 0 || n > len(m.ring) {
		n = len(m.ring)
	}
	out := make([]SwapOutcome, 0, n)
	for i := len(m.ring) - 1; i >= len(m.ring)-n; i-- {
		out = append(out, m.ring[i])
	}
	return out, nil
}
