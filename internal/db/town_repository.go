package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/wonderhelper/internal/model"
	"github.com/udisondev/wonderhelper/internal/wonder"
)

// TownRepository reads trade capacity and stock from town_resources.
type TownRepository struct {
	pool *pgxpool.Pool
}

// Compile-time check.
var (
	_ wonder.CapacitySource  = (*TownRepository)(nil)
	_ wonder.InventorySource = (*TownRepository)(nil)
)

// NewTownRepository creates a new town repository.
func NewTownRepository(pool *pgxpool.Pool) *TownRepository {
	return &TownRepository{pool: pool}
}

// TownRow is one row of town_resources. Nil fields are unknown.
type TownRow struct {
	TownID        int32
	TradeCapacity *int64
	Wood          *int64
	Stone         *int64
	Iron          *int64
}

// TradeCapacity implements wonder.CapacitySource.
// A missing row or NULL capacity is reported as unknown.
func (r *TownRepository) TradeCapacity(ctx context.Context, townID int32) (int64, bool, error) {
	var units *int64
	err := r.pool.QueryRow(ctx,
		`SELECT trade_capacity FROM town_resources WHERE town_id = $1`, townID,
	).Scan(&units)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("querying trade capacity town %d: %w", townID, err)
	}
	if units == nil {
		return 0, false, nil
	}
	return *units, true, nil
}

// Stock implements wonder.InventorySource.
// Returns nil, nil when no stock column is known; a NULL column next to known ones reads as 0.
func (r *TownRepository) Stock(ctx context.Context, townID int32) (*model.Stock, error) {
	var wood, stone, iron *int64
	err := r.pool.QueryRow(ctx,
		`SELECT wood, stone, iron FROM town_resources WHERE town_id = $1`, townID,
	).Scan(&wood, &stone, &iron)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying stock town %d: %w", townID, err)
	}
	if wood == nil && stone == nil && iron == nil {
		return nil, nil
	}
	return &model.Stock{
		Wood:  valueOrZero(wood),
		Stone: valueOrZero(stone),
		Iron:  valueOrZero(iron),
	}, nil
}

// UpsertTown inserts or replaces a town's capacity and stock.
func (r *TownRepository) UpsertTown(ctx context.Context, row TownRow) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO town_resources (town_id, trade_capacity, wood, stone, iron, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (town_id) DO UPDATE SET
		   trade_capacity = EXCLUDED.trade_capacity,
		   wood = EXCLUDED.wood,
		   stone = EXCLUDED.stone,
		   iron = EXCLUDED.iron,
		   updated_at = now()`,
		row.TownID, row.TradeCapacity, row.Wood, row.Stone, row.Iron,
	)
	if err != nil {
		return fmt.Errorf("upserting town %d: %w", row.TownID, err)
	}
	return nil
}

func valueOrZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
