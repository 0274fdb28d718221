package store

import (
	"context"
	"fmt"
	"time"

	"sismanpnr/internal/utils"
	"sismanpnr/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pnrTableName = "pnrs"

var pnrColumns = utils.StructTagValues(types.PNR{})

type PNRRepository struct {
	pool *pgxpool.Pool
}

func NewPNRRepository(pool *pgxpool.Pool) *PNRRepository {
	return &PNRRepository{pool: pool}
}

func (r *PNRRepository) PNRs(ctx context.Context) ([]*types.PNR, error) {
	query, args, err := psql().
		Select(pnrColumns...).
		From(pnrTableName).
		OrderBy("number ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate pnrs query: %w", err)
	}

	var pnrs = make([]*types.PNR, 0)
	err = pgxscan.Select(ctx, r.pool, &pnrs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pnrs: %w", err)
	}

	return pnrs, nil
}

func (r *PNRRepository) CreatePNR(ctx context.Context, pnr *types.PNR) error {
	pnr.ID = utils.NanoID()
	pnr.CreatedAt = time.Now().UTC()

	query, args, err := psql().
		Insert(pnrTableName).
		SetMap(utils.StructToMap(pnr)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert pnr query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create pnr")
}

// UpsertPNR inserts a unit or refreshes the address and block of an existing
// unit with the same number. Used by the seed command.
func (r *PNRRepository) UpsertPNR(ctx context.Context, pnr *types.PNR) error {
	if pnr.ID == "" {
		pnr.ID = utils.NanoID()
	}
	if pnr.CreatedAt.IsZero() {
		pnr.CreatedAt = time.Now().UTC()
	}

	query, args, err := psql().
		Insert(pnrTableName).
		SetMap(utils.StructToMap(pnr)).
		Suffix("ON CONFLICT (number) DO UPDATE SET address = EXCLUDED.address, block = EXCLUDED.block").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate upsert pnr query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to upsert pnr")
}

// UpdatePNR replaces number, address and block. The returned count is zero
// when no row matched.
func (r *PNRRepository) UpdatePNR(ctx context.Context, id string, in types.PNRInput) (int64, error) {
	query, args, err := psql().
		Update(pnrTableName).
		SetMap(map[string]any{
			"number":  in.Number,
			"address": in.Address,
			"block":   in.Block,
		}).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate update pnr query for pnr %s: %w", id, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update pnr %s: %w", id, err)
	}

	return tag.RowsAffected(), nil
}

func (r *PNRRepository) DeletePNR(ctx context.Context, id string) (int64, error) {
	query, args, err := psql().
		Delete(pnrTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate delete pnr query for pnr %s: %w", id, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete pnr %s: %w", id, err)
	}

	return tag.RowsAffected(), nil
}
