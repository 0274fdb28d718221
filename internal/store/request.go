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

const requestTableName = "maintenance_requests"

var requestColumns = utils.StructTagValues(types.MaintenanceRequest{})

type RequestRepository struct {
	pool *pgxpool.Pool
}

func NewRequestRepository(pool *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{pool: pool}
}

// Requests returns every maintenance request, newest first.
func (r *RequestRepository) Requests(ctx context.Context) ([]*types.MaintenanceRequest, error) {
	query, args, err := psql().
		Select(requestColumns...).
		From(requestTableName).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate requests query: %w", err)
	}

	var requests = make([]*types.MaintenanceRequest, 0)
	err = pgxscan.Select(ctx, r.pool, &requests, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch requests: %w", err)
	}

	for _, req := range requests {
		if req.Images == nil {
			req.Images = []string{}
		}
	}

	return requests, nil
}

func (r *RequestRepository) Request(ctx context.Context, id string) (*types.MaintenanceRequest, error) {
	query, args, err := psql().
		Select(requestColumns...).
		From(requestTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate request query: %w", err)
	}

	var request = new(types.MaintenanceRequest)
	err = pgxscan.Get(ctx, r.pool, request, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to fetch request: %w", err)
	}

	return request, nil
}

// CreateRequest inserts the request as a new pending, unarchived row and
// fills in the assigned identifier and timestamps.
func (r *RequestRepository) CreateRequest(ctx context.Context, request *types.MaintenanceRequest) error {

	now := time.Now().UTC()
	request.ID = utils.NanoID()
	request.Status = types.StatusPending
	request.IsArchived = false
	request.DenialReason = nil
	request.CreatedAt = now
	request.UpdatedAt = now
	if request.Images == nil {
		request.Images = []string{}
	}

	query, args, err := psql().
		Insert(requestTableName).
		SetMap(utils.StructToMap(request)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert request query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create request")
}

// UpdateRequest writes the given columns and returns the number of rows
// affected.
func (r *RequestRepository) UpdateRequest(ctx context.Context, id string, fields map[string]any) (int64, error) {

	query, args, err := psql().
		Update(requestTableName).
		SetMap(fields).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate update request query for request %s: %w", id, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update request %s: %w", id, err)
	}

	return tag.RowsAffected(), nil
}

func (r *RequestRepository) DeleteRequest(ctx context.Context, id string) (int64, error) {

	query, args, err := psql().
		Delete(requestTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate delete request query for request %s: %w", id, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete request %s: %w", id, err)
	}

	return tag.RowsAffected(), nil
}
