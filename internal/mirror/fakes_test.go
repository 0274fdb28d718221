package mirror

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"sismanpnr/pkg/types"
)

var errStore = errors.New("store unavailable")

type fakeRequestStore struct {
	mu      sync.Mutex
	rows    map[string]*types.MaintenanceRequest
	seq     int
	clock   time.Time
	fail    bool
	calls   int
	updates []map[string]any
}

func newFakeRequestStore() *fakeRequestStore {
	return &fakeRequestStore{
		rows:  make(map[string]*types.MaintenanceRequest),
		clock: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeRequestStore) Requests(ctx context.Context) ([]*types.MaintenanceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return nil, errStore
	}
	out := make([]*types.MaintenanceRequest, 0, len(f.rows))
	for _, r := range f.rows {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeRequestStore) CreateRequest(ctx context.Context, r *types.MaintenanceRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return errStore
	}
	f.seq++
	f.clock = f.clock.Add(time.Minute)
	r.ID = fmt.Sprintf("req-%03d", f.seq)
	r.Status = types.StatusPending
	r.IsArchived = false
	r.CreatedAt = f.clock
	r.UpdatedAt = f.clock
	if r.Images == nil {
		r.Images = []string{}
	}
	f.rows[r.ID] = r.Clone()
	return nil
}

func (f *fakeRequestStore) UpdateRequest(ctx context.Context, id string, fields map[string]any) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return 0, errStore
	}
	f.updates = append(f.updates, fields)
	r, ok := f.rows[id]
	if !ok {
		return 0, nil
	}
	for k, v := range fields {
		switch k {
		case "status":
			r.Status = v.(types.RequestStatus)
		case "denial_reason":
			s := v.(string)
			r.DenialReason = &s
		case "is_urgent":
			r.IsUrgent = v.(bool)
		case "is_archived":
			r.IsArchived = v.(bool)
		case "updated_at":
			r.UpdatedAt = v.(time.Time)
		}
	}
	return 1, nil
}

func (f *fakeRequestStore) DeleteRequest(ctx context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return 0, errStore
	}
	if _, ok := f.rows[id]; !ok {
		return 0, nil
	}
	delete(f.rows, id)
	return 1, nil
}

type fakePNRStore struct {
	mu sync.Mutex
	// rows keyed by id
	rows map[string]*types.PNR
	seq  int
	fail bool
	// silently ignore deletes, reporting zero rows
	denyDelete bool
	// report success for deletes but keep the row
	ghostDelete bool
	failList    bool
}

func newFakePNRStore(pnrs ...types.PNR) *fakePNRStore {
	f := &fakePNRStore{rows: make(map[string]*types.PNR)}
	for _, p := range pnrs {
		p := p
		f.rows[p.ID] = &p
	}
	return f
}

func (f *fakePNRStore) PNRs(ctx context.Context) ([]*types.PNR, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail || f.failList {
		return nil, errStore
	}
	out := make([]*types.PNR, 0, len(f.rows))
	for _, p := range f.rows {
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (f *fakePNRStore) CreatePNR(ctx context.Context, p *types.PNR) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errStore
	}
	for _, existing := range f.rows {
		if existing.Number == p.Number {
			return errors.New("duplicate key value violates unique constraint")
		}
	}
	f.seq++
	p.ID = fmt.Sprintf("pnr-%03d", f.seq)
	c := *p
	f.rows[p.ID] = &c
	return nil
}

func (f *fakePNRStore) UpdatePNR(ctx context.Context, id string, in types.PNRInput) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return 0, errStore
	}
	p, ok := f.rows[id]
	if !ok {
		return 0, nil
	}
	p.Number, p.Address, p.Block = in.Number, in.Address, in.Block
	return 1, nil
}

func (f *fakePNRStore) DeletePNR(ctx context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return 0, errStore
	}
	if f.denyDelete {
		return 0, nil
	}
	if _, ok := f.rows[id]; !ok {
		return 0, nil
	}
	if f.ghostDelete {
		return 1, nil
	}
	delete(f.rows, id)
	return 1, nil
}
