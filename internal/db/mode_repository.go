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

// ModeRepository stores each town's distribution mode in wonder_distribution_modes.
type ModeRepository struct {
	pool     *pgxpool.Pool
	fallback model.Mode
}

// Compile-time check.
var _ wonder.ModeStore = (*ModeRepository)(nil)

// NewModeRepository creates a mode repository returning fallback for towns without a row.
func NewModeRepository(pool *pgxpool.Pool, fallback model.Mode) *ModeRepository {
	return &ModeRepository{pool: pool, fallback: fallback.Normalize()}
}

// Mode implements wonder.ModeStore. Stored values outside the known range decode as even.
func (r *ModeRepository) Mode(ctx context.Context, townID int32) (model.Mode, error) {
	var v int16
	err := r.pool.QueryRow(ctx,
		`SELECT mode FROM wonder_distribution_modes WHERE town_id = $1`, townID,
	).Scan(&v)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.fallback, nil
		}
		return r.fallback, fmt.Errorf("querying mode town %d: %w", townID, err)
	}
	return model.ModeFromInt(int(v)), nil
}

// SaveMode implements wonder.ModeStore.
func (r *ModeRepository) SaveMode(ctx context.Context, townID int32, mode model.Mode) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO wonder_distribution_modes (town_id, mode, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (town_id) DO UPDATE SET mode = EXCLUDED.mode, updated_at = now()`,
		townID, int16(mode.Normalize()),
	)
	if err != nil {
		return fmt.Errorf("saving mode town %d: %w", townID, err)
	}
	return nil
}
