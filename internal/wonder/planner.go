// Package wonder fills a town's world wonder trade window.
//
// The Planner reads the town's trade capacity and stock, splits the capacity
// with the allocator according to the town's selected mode and pushes the
// result to a Sink. Sources and sinks are interfaces so the same flow runs
// against PostgreSQL, in-memory fixtures or a live client.
package wonder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/wonderhelper/internal/allocator"
	"github.com/udisondev/wonderhelper/internal/config"
	"github.com/udisondev/wonderhelper/internal/model"
)

var (
	// ErrNoCapacity means the town has no known trade capacity, so nothing is planned.
	ErrNoCapacity = errors.New("no trade capacity")

	// ErrSinkNotReady is returned by a Sink whose destination is not available yet.
	// The Planner retries these.
	ErrSinkNotReady = errors.New("sink not ready")

	// ErrSinkUnavailable is returned after every apply attempt hit ErrSinkNotReady.
	ErrSinkUnavailable = errors.New("sink unavailable")
)

// CapacitySource provides the number of units a town can send.
type CapacitySource interface {
	// TradeCapacity returns known=false when the capacity cannot be determined.
	TradeCapacity(ctx context.Context, townID int32) (units int64, known bool, err error)
}

// InventorySource provides a town's current stock.
type InventorySource interface {
	// Stock returns nil when the stock is unknown.
	Stock(ctx context.Context, townID int32) (*model.Stock, error)
}

// ModeStore persists the distribution mode selected for each town.
type ModeStore interface {
	Mode(ctx context.Context, townID int32) (model.Mode, error)
	SaveMode(ctx context.Context, townID int32, mode model.Mode) error
}

// Sink receives the final allocation.
type Sink interface {
	Apply(ctx context.Context, townID int32, a model.Allocation) error
}

// Planner runs the capacity → allocation → sink flow for a town.
type Planner struct {
	capacity  CapacitySource
	inventory InventorySource
	modes     ModeStore
	sink      Sink

	applyAttempts int
	applyDelay    time.Duration
}

// NewPlanner creates a Planner. ApplyAttempts in cfg counts retries after the first apply.
func NewPlanner(cfg config.Planner, capacity CapacitySource, inventory InventorySource, modes ModeStore, sink Sink) *Planner {
	return &Planner{
		capacity:      capacity,
		inventory:     inventory,
		modes:         modes,
		sink:          sink,
		applyAttempts: max(cfg.ApplyAttempts, 0),
		applyDelay:    cfg.ApplyDelay,
	}
}

// Plan computes the allocation for a town in the given mode without applying it.
// It returns the allocation and the capacity it was computed from.
func (p *Planner) Plan(ctx context.Context, townID int32, mode model.Mode) (model.Allocation, int64, error) {
	var (
		units int64
		known bool
		stock *model.Stock
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		units, known, err = p.capacity.TradeCapacity(gctx, townID)
		if err != nil {
			return fmt.Errorf("reading trade capacity for town %d: %w", townID, err)
		}
		return nil
	})

	g.Go(func() error {
		s, err := p.inventory.Stock(gctx, townID)
		if err != nil {
			// Unknown stock is a degraded mode, not a failure.
			slog.Warn("reading stock failed, planning without caps", "town", townID, "err", err)
			return nil
		}
		stock = s
		return nil
	})

	if err := g.Wait(); err != nil {
		return model.Allocation{}, 0, err
	}

	if !known || units <= 0 {
		return model.Allocation{}, units, fmt.Errorf("town %d: %w (units=%d, known=%t)", townID, ErrNoCapacity, units, known)
	}
	if stock == nil {
		slog.Warn("stock unknown, planning without caps", "town", townID)
	}

	a, err := allocator.Allocate(units, mode, stock)
	if err != nil {
		return model.Allocation{}, units, fmt.Errorf("allocating for town %d: %w", townID, err)
	}

	if short := a.Shortfall(units); short > 0 {
		slog.Info("stock saturated, capacity left unused",
			"town", townID,
			"mode", mode.String(),
			"units", units,
			"unused", short)
	}

	return a, units, nil
}

// Update plans with the town's stored mode and applies the result to the sink.
func (p *Planner) Update(ctx context.Context, townID int32) (model.Allocation, error) {
	mode, err := p.modes.Mode(ctx, townID)
	if err != nil {
		return model.Allocation{}, fmt.Errorf("reading mode for town %d: %w", townID, err)
	}

	a, _, err := p.Plan(ctx, townID, mode)
	if err != nil {
		return model.Allocation{}, err
	}

	if err := p.apply(ctx, townID, a); err != nil {
		return a, err
	}

	slog.Debug("allocation applied", "town", townID, "mode", mode.String(), "allocation", a.String())
	return a, nil
}

// SetMode stores a new mode for the town and re-plans with it.
func (p *Planner) SetMode(ctx context.Context, townID int32, mode model.Mode) (model.Allocation, error) {
	mode = mode.Normalize()
	if err := p.modes.SaveMode(ctx, townID, mode); err != nil {
		return model.Allocation{}, fmt.Errorf("saving mode for town %d: %w", townID, err)
	}
	slog.Info("distribution mode changed", "town", townID, "mode", mode.String())
	return p.Update(ctx, townID)
}

func (p *Planner) apply(ctx context.Context, townID int32, a model.Allocation) error {
	for attempt := 0; ; attempt++ {
		err := p.sink.Apply(ctx, townID, a)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrSinkNotReady) {
			return fmt.Errorf("applying allocation for town %d: %w", townID, err)
		}
		if attempt >= p.applyAttempts {
			slog.Warn("trade window not found, giving up", "town", townID, "attempts", attempt+1)
			return fmt.Errorf("town %d after %d attempts: %w", townID, attempt+1, ErrSinkUnavailable)
		}

		timer := time.NewTimer(p.applyDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("applying allocation for town %d: %w", townID, ctx.Err())
		case <-timer.C:
		}
	}
}
