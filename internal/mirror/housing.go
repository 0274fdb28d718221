package mirror

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"sismanpnr/internal/metrics"
	"sismanpnr/pkg/types"

	"github.com/sirupsen/logrus"
)

const pnrEntity = "pnr"

// PNRStore is the persistent side of the housing registry.
type PNRStore interface {
	PNRs(ctx context.Context) ([]*types.PNR, error)
	CreatePNR(ctx context.Context, pnr *types.PNR) error
	UpdatePNR(ctx context.Context, id string, in types.PNRInput) (int64, error)
	DeletePNR(ctx context.Context, id string) (int64, error)
}

// Housing mirrors the pnrs table ordered by unit number.
type Housing struct {
	store   PNRStore
	logger  *logrus.Logger
	metrics *metrics.Recorder

	mu      sync.RWMutex
	items   []*types.PNR
	loading atomic.Bool
}

func NewHousing(store PNRStore, logger *logrus.Logger, recorder *metrics.Recorder) *Housing {
	return &Housing{
		store:   store,
		logger:  logger,
		metrics: recorder,
		items:   make([]*types.PNR, 0),
	}
}

func (h *Housing) Loading() bool {
	return h.loading.Load()
}

func (h *Housing) Refresh(ctx context.Context) bool {
	h.loading.Store(true)
	defer h.loading.Store(false)

	pnrs, err := h.store.PNRs(ctx)
	if err != nil {
		h.logger.WithError(err).Error("failed to fetch pnrs")
		return false
	}

	h.mu.Lock()
	h.items = pnrs
	n := len(h.items)
	h.mu.Unlock()

	h.metrics.MirrorSize(pnrEntity, n)
	return true
}

func (h *Housing) Items() []*types.PNR {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*types.PNR, len(h.items))
	for i, p := range h.items {
		c := *p
		out[i] = &c
	}
	return out
}

func (h *Housing) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.items)
}

func (h *Housing) FindByID(id string) (*types.PNR, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, p := range h.items {
		if p.ID == id {
			c := *p
			return &c, true
		}
	}
	return nil, false
}

// FindByNumber matches the unit number exactly, ignoring case.
func (h *Housing) FindByNumber(number string) (*types.PNR, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, p := range h.items {
		if strings.EqualFold(p.Number, number) {
			c := *p
			return &c, true
		}
	}
	return nil, false
}

// Search returns the units whose number or address contains term, ignoring
// case. A blank term matches nothing.
func (h *Housing) Search(term string) []*types.PNR {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]*types.PNR, 0)
	if term == "" {
		return out
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, p := range h.items {
		if strings.Contains(strings.ToLower(p.Number), term) || strings.Contains(strings.ToLower(p.Address), term) {
			c := *p
			out = append(out, &c)
		}
	}
	return out
}

func (h *Housing) Create(ctx context.Context, in types.PNRInput) Result[*types.PNR] {
	pnr := &types.PNR{
		Number:  in.Number,
		Address: in.Address,
		Block:   in.Block,
	}

	err := h.store.CreatePNR(ctx, pnr)
	h.metrics.Write(pnrEntity, "create", err == nil)
	if err != nil {
		h.logger.WithError(err).WithField("number", in.Number).Error("failed to create pnr")
		return failed[*types.PNR]()
	}

	h.mu.Lock()
	h.items = append(h.items, pnr)
	sortByNumber(h.items)
	n := len(h.items)
	h.mu.Unlock()

	h.metrics.MirrorSize(pnrEntity, n)
	c := *pnr
	return applied(&c)
}

// Update replaces number, address and block of a unit. Requests that already
// copied the old values keep them.
func (h *Housing) Update(ctx context.Context, id string, in types.PNRInput) Result[*types.PNR] {
	rows, err := h.store.UpdatePNR(ctx, id, in)
	if err == nil && rows == 0 {
		err = errNoRowsAffected
	}
	h.metrics.Write(pnrEntity, "update", err == nil)
	if err != nil {
		h.logger.WithError(err).WithField("id", id).Error("failed to update pnr")
		return failed[*types.PNR]()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var updated *types.PNR
	for i, p := range h.items {
		if p.ID != id {
			continue
		}
		next := *p
		next.Number = in.Number
		next.Address = in.Address
		next.Block = in.Block
		h.items[i] = &next
		updated = &next
		break
	}
	sortByNumber(h.items)

	if updated == nil {
		return applied[*types.PNR](nil)
	}
	c := *updated
	return applied(&c)
}

// Delete removes a unit and then reloads the mirror from the store. A delete
// that reports zero affected rows, or a unit that is still present after the
// reload, counts as a failure: access policies can reject a delete without
// raising an error.
func (h *Housing) Delete(ctx context.Context, id string) Result[*types.PNR] {
	before, _ := h.FindByID(id)

	rows, err := h.store.DeletePNR(ctx, id)
	if err == nil && rows == 0 {
		err = errNoRowsAffected
	}
	if err != nil {
		h.metrics.Write(pnrEntity, "delete", false)
		h.logger.WithError(err).WithField("id", id).Error("failed to delete pnr")
		return failed[*types.PNR]()
	}

	if !h.Refresh(ctx) {
		// the store confirmed the delete, drop it locally
		h.mu.Lock()
		kept := h.items[:0:0]
		for _, p := range h.items {
			if p.ID != id {
				kept = append(kept, p)
			}
		}
		h.items = kept
		h.mu.Unlock()
	}

	if _, still := h.FindByID(id); still {
		h.metrics.Write(pnrEntity, "delete", false)
		h.logger.WithError(fmt.Errorf("pnr %s still present after delete", id)).Error("failed to delete pnr")
		return failed[*types.PNR]()
	}

	h.metrics.Write(pnrEntity, "delete", true)
	return applied(before)
}

func sortByNumber(pnrs []*types.PNR) {
	sort.SliceStable(pnrs, func(i, j int) bool {
		return pnrs[i].Number < pnrs[j].Number
	})
}
