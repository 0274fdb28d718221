// Package projection turns the mirrored request collection into the filtered
// and ordered list shown on the staff dashboard.
package projection

import (
	"sort"
	"strings"

	"sismanpnr/pkg/types"
)

// All is the "no restriction" value of every enumerated filter.
const All = "all"

type Urgency string

const (
	UrgencyAll    Urgency = All
	UrgencyUrgent Urgency = "urgent"
	UrgencyNormal Urgency = "normal"
)

// Filter holds the dashboard parameters. Zero values of Status, Category and
// Urgency mean "all"; Archived selects the archived view instead of the
// active one. Unit is matched as a case-insensitive substring and should be
// the settled copy of the search input.
type Filter struct {
	Archived bool                  `form:"archived"`
	Status   types.RequestStatus   `form:"status"`
	Category types.ServiceCategory `form:"category"`
	Urgency  Urgency               `form:"urgency"`
	Unit     string                `form:"pnr"`
}

// Normalize folds "all" and unknown enum values to the zero value.
func (f *Filter) Normalize() {
	if !f.Status.Valid() {
		f.Status = ""
	}
	if !f.Category.Valid() {
		f.Category = ""
	}
	if f.Urgency != UrgencyUrgent && f.Urgency != UrgencyNormal {
		f.Urgency = UrgencyAll
	}
	f.Unit = strings.TrimSpace(f.Unit)
}

// Match reports whether r passes every active predicate.
func (f Filter) Match(r *types.MaintenanceRequest) bool {
	if r.IsArchived != f.Archived {
		return false
	}
	if f.Status != "" && string(f.Status) != All && r.Status != f.Status {
		return false
	}
	if f.Category != "" && string(f.Category) != All && r.Category != f.Category {
		return false
	}
	switch f.Urgency {
	case UrgencyUrgent:
		if !r.IsUrgent {
			return false
		}
	case UrgencyNormal:
		if r.IsUrgent {
			return false
		}
	}
	if f.Unit != "" && !strings.Contains(strings.ToLower(r.PNRNumber), strings.ToLower(f.Unit)) {
		return false
	}
	return true
}

// Apply filters requests and orders the result: urgent pending requests
// first, then everything else, each group newest first. The input slice is
// not modified.
func Apply(requests []*types.MaintenanceRequest, f Filter) []*types.MaintenanceRequest {
	out := make([]*types.MaintenanceRequest, 0, len(requests))
	for _, r := range requests {
		if f.Match(r) {
			out = append(out, r)
		}
	}

	Sort(out)
	return out
}

// Sort orders requests in place, stably, by urgent-pending precedence and
// then by descending creation time.
func Sort(requests []*types.MaintenanceRequest) {
	sort.SliceStable(requests, func(i, j int) bool {
		a, b := requests[i], requests[j]
		if a.UrgentPending() != b.UrgentPending() {
			return a.UrgentPending()
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

// Summary holds the dashboard counters, computed over the whole collection.
type Summary struct {
	Total         int
	Pending       int
	UrgentPending int
	Approved      int
	Denied        int
	Archived      int
}

func Summarize(requests []*types.MaintenanceRequest) Summary {
	var s Summary
	for _, r := range requests {
		s.Total++
		switch r.Status {
		case types.StatusPending:
			s.Pending++
			if r.IsUrgent {
				s.UrgentPending++
			}
		case types.StatusApproved:
			s.Approved++
		case types.StatusDenied:
			s.Denied++
		}
		if r.IsArchived {
			s.Archived++
		}
	}
	return s
}
