package mirror

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"sismanpnr/internal/metrics"
	"sismanpnr/pkg/types"

	"github.com/sirupsen/logrus"
)

const requestEntity = "request"

// RequestStore is the persistent side of the request mirror.
type RequestStore interface {
	Requests(ctx context.Context) ([]*types.MaintenanceRequest, error)
	CreateRequest(ctx context.Context, request *types.MaintenanceRequest) error
	UpdateRequest(ctx context.Context, id string, fields map[string]any) (int64, error)
	DeleteRequest(ctx context.Context, id string) (int64, error)
}

// Requests mirrors maintenance_requests ordered by descending creation time.
type Requests struct {
	store   RequestStore
	logger  *logrus.Logger
	metrics *metrics.Recorder
	now     func() time.Time

	mu      sync.RWMutex
	items   []*types.MaintenanceRequest
	loading atomic.Bool
}

func NewRequests(store RequestStore, logger *logrus.Logger, recorder *metrics.Recorder) *Requests {
	return &Requests{
		store:   store,
		logger:  logger,
		metrics: recorder,
		now:     utcNow,
		items:   make([]*types.MaintenanceRequest, 0),
	}
}

func (m *Requests) Loading() bool {
	return m.loading.Load()
}

// Refresh replaces the whole mirror with the store's contents. On failure the
// previous contents stay available and false is returned.
func (m *Requests) Refresh(ctx context.Context) bool {
	m.loading.Store(true)
	defer m.loading.Store(false)

	requests, err := m.store.Requests(ctx)
	if err != nil {
		m.logger.WithError(err).Error("failed to fetch maintenance requests")
		return false
	}

	m.mu.Lock()
	m.items = requests
	n := len(m.items)
	m.mu.Unlock()

	m.metrics.MirrorSize(requestEntity, n)
	return true
}

// Items returns copies of every mirrored request, newest first.
func (m *Requests) Items() []*types.MaintenanceRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*types.MaintenanceRequest, len(m.items))
	for i, r := range m.items {
		out[i] = r.Clone()
	}
	return out
}

func (m *Requests) FindByID(id string) (*types.MaintenanceRequest, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.items {
		if r.ID == id {
			return r.Clone(), true
		}
	}
	return nil, false
}

// FindByUnitNumber returns every request whose unit number equals number,
// ignoring case.
func (m *Requests) FindByUnitNumber(number string) []*types.MaintenanceRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*types.MaintenanceRequest, 0)
	for _, r := range m.items {
		if strings.EqualFold(r.PNRNumber, number) {
			out = append(out, r.Clone())
		}
	}
	return out
}

// Create inserts a new pending request and prepends it to the mirror.
func (m *Requests) Create(ctx context.Context, draft types.RequestDraft) Result[*types.MaintenanceRequest] {
	request := &types.MaintenanceRequest{
		PNRNumber:     draft.PNRNumber,
		PNRAddress:    draft.PNRAddress,
		RequesterName: draft.RequesterName,
		RequesterRank: draft.RequesterRank,
		Category:      draft.Category,
		Description:   draft.Description,
		IsUrgent:      draft.IsUrgent,
		Images:        append([]string{}, draft.Images...),
	}

	err := m.store.CreateRequest(ctx, request)
	m.metrics.Write(requestEntity, "create", err == nil)
	if err != nil {
		m.logger.WithError(err).WithField("pnr_number", draft.PNRNumber).Error("failed to create maintenance request")
		return failed[*types.MaintenanceRequest]()
	}

	m.mu.Lock()
	// a refresh may already have picked the row up
	exists := false
	for _, r := range m.items {
		if r.ID == request.ID {
			exists = true
			break
		}
	}
	if !exists {
		m.items = append([]*types.MaintenanceRequest{request}, m.items...)
	}
	n := len(m.items)
	m.mu.Unlock()

	m.metrics.MirrorSize(requestEntity, n)
	return applied(request.Clone())
}

// SetStatus records a decision. reason is persisted only when non-empty; this
// layer does not require it for denials.
func (m *Requests) SetStatus(ctx context.Context, id string, status types.RequestStatus, reason string) Result[*types.MaintenanceRequest] {
	if !status.Decided() {
		m.logger.WithFields(logrus.Fields{"id": id, "status": status}).Error("refusing to set a non-decision status")
		return failed[*types.MaintenanceRequest]()
	}

	now := m.now()
	fields := map[string]any{
		"status":     status,
		"updated_at": now,
	}
	if reason != "" {
		fields["denial_reason"] = reason
	}

	return m.update(ctx, id, "set_status", fields, func(r *types.MaintenanceRequest) {
		r.Status = status
		if reason != "" {
			r.DenialReason = &reason
		}
		r.UpdatedAt = now
	})
}

// SetUrgent writes the urgency flag without looking at the current status.
func (m *Requests) SetUrgent(ctx context.Context, id string, urgent bool) Result[*types.MaintenanceRequest] {
	now := m.now()
	return m.update(ctx, id, "set_urgent", map[string]any{
		"is_urgent":  urgent,
		"updated_at": now,
	}, func(r *types.MaintenanceRequest) {
		r.IsUrgent = urgent
		r.UpdatedAt = now
	})
}

// Archive marks the request archived. Archiving twice is not an error.
func (m *Requests) Archive(ctx context.Context, id string) Result[*types.MaintenanceRequest] {
	now := m.now()
	return m.update(ctx, id, "archive", map[string]any{
		"is_archived": true,
		"updated_at":  now,
	}, func(r *types.MaintenanceRequest) {
		r.IsArchived = true
		r.UpdatedAt = now
	})
}

// Delete removes the request from the store and then from the mirror. The
// returned value is the removed record when it was mirrored.
func (m *Requests) Delete(ctx context.Context, id string) Result[*types.MaintenanceRequest] {
	_, err := m.store.DeleteRequest(ctx, id)
	m.metrics.Write(requestEntity, "delete", err == nil)
	if err != nil {
		m.logger.WithError(err).WithField("id", id).Error("failed to delete maintenance request")
		return failed[*types.MaintenanceRequest]()
	}

	var removed *types.MaintenanceRequest

	m.mu.Lock()
	kept := make([]*types.MaintenanceRequest, 0, len(m.items))
	for _, r := range m.items {
		if r.ID == id {
			removed = r
			continue
		}
		kept = append(kept, r)
	}
	m.items = kept
	n := len(m.items)
	m.mu.Unlock()

	m.metrics.MirrorSize(requestEntity, n)
	return applied(removed)
}

func (m *Requests) update(ctx context.Context, id, operation string, fields map[string]any, patch func(*types.MaintenanceRequest)) Result[*types.MaintenanceRequest] {
	rows, err := m.store.UpdateRequest(ctx, id, fields)
	if err == nil && rows == 0 {
		err = errNoRowsAffected
	}
	m.metrics.Write(requestEntity, operation, err == nil)
	if err != nil {
		m.logger.WithError(err).WithFields(logrus.Fields{
			"id":        id,
			"operation": operation,
		}).Error("failed to update maintenance request")
		return failed[*types.MaintenanceRequest]()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, r := range m.items {
		if r.ID != id {
			continue
		}
		next := r.Clone()
		patch(next)
		m.items[i] = next
		return applied(next.Clone())
	}

	// the row exists in the store but not in this mirror yet
	return applied[*types.MaintenanceRequest](nil)
}
