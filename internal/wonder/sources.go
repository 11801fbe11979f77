package wonder

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/udisondev/wonderhelper/internal/model"
)

// StaticTown is a fixed capacity and stock reading for any town.
// It serves offline planning where the numbers come from the operator.
type StaticTown struct {
	Units     int64
	Known     bool
	Inventory *model.Stock
}

// TradeCapacity implements CapacitySource.
func (s StaticTown) TradeCapacity(context.Context, int32) (int64, bool, error) {
	return s.Units, s.Known, nil
}

// Stock implements InventorySource.
func (s StaticTown) Stock(context.Context, int32) (*model.Stock, error) {
	if s.Inventory == nil {
		return nil, nil
	}
	st := *s.Inventory
	return &st, nil
}

// MemoryModeStore keeps mode selections in memory.
// Thread-safe: all state protected by mu.
type MemoryModeStore struct {
	mu       sync.RWMutex
	fallback model.Mode
	modes    map[int32]model.Mode
}

// NewMemoryModeStore creates a store that returns fallback for towns without a selection.
func NewMemoryModeStore(fallback model.Mode) *MemoryModeStore {
	return &MemoryModeStore{
		fallback: fallback.Normalize(),
		modes:    make(map[int32]model.Mode),
	}
}

// Mode implements ModeStore.
func (s *MemoryModeStore) Mode(_ context.Context, townID int32) (model.Mode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if m, ok := s.modes[townID]; ok {
		return m, nil
	}
	return s.fallback, nil
}

// SaveMode implements ModeStore.
func (s *MemoryModeStore) SaveMode(_ context.Context, townID int32, mode model.Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.modes[townID] = mode.Normalize()
	return nil
}

// WriterSink prints each allocation as a line of text.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink creates a sink writing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Apply implements Sink.
func (s *WriterSink) Apply(_ context.Context, townID int32, a model.Allocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.w, "town=%d %s total=%d\n", townID, a, a.Total()); err != nil {
		return fmt.Errorf("writing allocation: %w", err)
	}
	return nil
}

// RecordingSink remembers every applied allocation.
// NotReady makes the first NotReady calls fail with ErrSinkNotReady.
type RecordingSink struct {
	mu       sync.Mutex
	NotReady int
	calls    int
	applied  []model.Allocation
}

// Apply implements Sink.
func (s *RecordingSink) Apply(_ context.Context, _ int32, a model.Allocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.calls <= s.NotReady {
		return ErrSinkNotReady
	}
	s.applied = append(s.applied, a)
	return nil
}

// Calls returns the number of Apply calls.
func (s *RecordingSink) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Applied returns a copy of all successfully applied allocations.
func (s *RecordingSink) Applied() []model.Allocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Allocation, len(s.applied))
	copy(out, s.applied)
	return out
}
