package wonder

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/wonderhelper/internal/config"
	"github.com/udisondev/wonderhelper/internal/model"
)

// failingInventory always fails to read stock.
type failingInventory struct{}

func (failingInventory) Stock(context.Context, int32) (*model.Stock, error) {
	return nil, errors.New("town model missing")
}

type failingCapacity struct{}

func (failingCapacity) TradeCapacity(context.Context, int32) (int64, bool, error) {
	return 0, false, errors.New("connection reset")
}

type brokenSink struct{}

func (brokenSink) Apply(context.Context, int32, model.Allocation) error {
	return errors.New("disk full")
}

func fastConfig() config.Planner {
	cfg := config.DefaultPlanner()
	cfg.ApplyDelay = time.Millisecond
	return cfg
}

func newTestPlanner(town StaticTown, sink Sink) (*Planner, *MemoryModeStore) {
	modes := NewMemoryModeStore(model.ModeEven)
	return NewPlanner(fastConfig(), town, town, modes, sink), modes
}

func TestPlanner_Update(t *testing.T) {
	tests := []struct {
		name string
		town StaticTown
		mode model.Mode
		want model.Allocation
	}{
		{
			name: "even without stock",
			town: StaticTown{Units: 31, Known: true},
			mode: model.ModeEven,
			want: model.Allocation{Wood: 11, Stone: 10, Iron: 10},
		},
		{
			name: "even with wood cap",
			town: StaticTown{Units: 10, Known: true, Inventory: &model.Stock{Wood: 2, Stone: 100, Iron: 100}},
			mode: model.ModeEven,
			want: model.Allocation{Wood: 2, Stone: 4, Iron: 4},
		},
		{
			name: "iron only saturated",
			town: StaticTown{Units: 5, Known: true, Inventory: &model.Stock{Iron: 2}},
			mode: model.ModeIronOnly,
			want: model.Allocation{Iron: 2},
		},
		{
			name: "no wood",
			town: StaticTown{Units: 9, Known: true},
			mode: model.ModeNoWood,
			want: model.Allocation{Stone: 4, Iron: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &RecordingSink{}
			p, modes := newTestPlanner(tt.town, sink)
			require.NoError(t, modes.SaveMode(context.Background(), 7, tt.mode))

			got, err := p.Update(context.Background(), 7)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, []model.Allocation{tt.want}, sink.Applied())
		})
	}
}

func TestPlanner_NoCapacity(t *testing.T) {
	tests := []struct {
		name string
		town StaticTown
	}{
		{"unknown", StaticTown{Units: 100, Known: false}},
		{"zero", StaticTown{Units: 0, Known: true}},
		{"negative", StaticTown{Units: -5, Known: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &RecordingSink{}
			p, _ := newTestPlanner(tt.town, sink)

			_, err := p.Update(context.Background(), 1)
			require.ErrorIs(t, err, ErrNoCapacity)
			assert.Zero(t, sink.Calls(), "sink must not be touched without capacity")
		})
	}
}

func TestPlanner_InventoryFailureIsUncapped(t *testing.T) {
	t.Parallel()

	sink := &RecordingSink{}
	p := NewPlanner(fastConfig(), StaticTown{Units: 30, Known: true}, failingInventory{}, NewMemoryModeStore(model.ModeWoodOnly), sink)

	got, err := p.Update(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.Allocation{Wood: 30}, got)
}

func TestPlanner_CapacityError(t *testing.T) {
	t.Parallel()

	p := NewPlanner(fastConfig(), failingCapacity{}, StaticTown{}, NewMemoryModeStore(model.ModeEven), &RecordingSink{})

	_, err := p.Update(context.Background(), 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoCapacity)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPlanner_RetriesUntilSinkReady(t *testing.T) {
	t.Parallel()

	sink := &RecordingSink{NotReady: 3}
	p, _ := newTestPlanner(StaticTown{Units: 30, Known: true}, sink)

	got, err := p.Update(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 4, sink.Calls())
	assert.Equal(t, []model.Allocation{got}, sink.Applied())
}

func TestPlanner_SinkUnavailable(t *testing.T) {
	t.Parallel()

	sink := &RecordingSink{NotReady: 100}
	p, _ := newTestPlanner(StaticTown{Units: 30, Known: true}, sink)

	got, err := p.Update(context.Background(), 1)
	require.ErrorIs(t, err, ErrSinkUnavailable)
	assert.Equal(t, model.Allocation{Wood: 10, Stone: 10, Iron: 10}, got, "allocation still returned")
	assert.Equal(t, 7, sink.Calls(), "first attempt plus six retries")
	assert.Empty(t, sink.Applied())
}

func TestPlanner_SinkErrorNotRetried(t *testing.T) {
	t.Parallel()

	p, _ := newTestPlanner(StaticTown{Units: 30, Known: true}, brokenSink{})

	_, err := p.Update(context.Background(), 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSinkUnavailable)
	assert.Contains(t, err.Error(), "disk full")
}

func TestPlanner_RetryHonorsCancel(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultPlanner()
	cfg.ApplyDelay = time.Hour
	sink := &RecordingSink{NotReady: 100}
	modes := NewMemoryModeStore(model.ModeEven)
	town := StaticTown{Units: 30, Known: true}
	p := NewPlanner(cfg, town, town, modes, sink)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Update(ctx, 1)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, sink.Calls())
}

func TestPlanner_SetMode(t *testing.T) {
	t.Parallel()

	sink := &RecordingSink{}
	p, modes := newTestPlanner(StaticTown{Units: 10, Known: true}, sink)

	got, err := p.SetMode(context.Background(), 3, model.ModeNoSilver)
	require.NoError(t, err)
	assert.Equal(t, model.Allocation{Wood: 5, Stone: 5}, got)

	stored, err := modes.Mode(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, model.ModeNoSilver, stored)

	// Unknown modes are stored as even.
	_, err = p.SetMode(context.Background(), 3, model.Mode(77))
	require.NoError(t, err)
	stored, err = modes.Mode(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, model.ModeEven, stored)
}

func TestPlanner_Plan(t *testing.T) {
	t.Parallel()

	p, _ := newTestPlanner(StaticTown{Units: 5, Known: true, Inventory: &model.Stock{Iron: 2}}, &RecordingSink{})

	a, units, err := p.Plan(context.Background(), 1, model.ModeIronOnly)
	require.NoError(t, err)
	assert.Equal(t, int64(5), units)
	assert.Equal(t, int64(3), a.Shortfall(units))
}

func TestPlanner_ConcurrentUpdates(t *testing.T) {
	t.Parallel()

	sink := &RecordingSink{}
	p, _ := newTestPlanner(StaticTown{Units: 31, Known: true}, sink)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(town int32) {
			defer wg.Done()
			got, err := p.Update(context.Background(), town)
			assert.NoError(t, err)
			assert.Equal(t, model.Allocation{Wood: 11, Stone: 10, Iron: 10}, got)
		}(int32(i))
	}
	wg.Wait()

	assert.Len(t, sink.Applied(), 16)
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterSink(&buf)

	require.NoError(t, sink.Apply(context.Background(), 12, model.Allocation{Wood: 1, Stone: 2, Iron: 3}))
	assert.Equal(t, "town=12 wood=1 stone=2 iron=3 total=6\n", buf.String())
}

func TestStaticTown_StockIsCopied(t *testing.T) {
	st := &model.Stock{Wood: 5}
	town := StaticTown{Units: 1, Known: true, Inventory: st}

	got, err := town.Stock(context.Background(), 1)
	require.NoError(t, err)
	got.Wood = 99
	assert.Equal(t, int64(5), st.Wood)

	empty, err := StaticTown{}.Stock(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, empty)
}
