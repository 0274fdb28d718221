package types

import (
	"errors"
	"strings"
	"time"
)

var ErrRequestNotFound = errors.New("maintenance request not found")

type ServiceCategory string

const (
	CategoryMason       ServiceCategory = "pedreiro"
	CategoryCarpenter   ServiceCategory = "marceneiro"
	CategoryElectrician ServiceCategory = "eletricista"
	CategoryPlumbing    ServiceCategory = "hidraulica"
	CategoryPainting    ServiceCategory = "pintura"
	CategoryOther       ServiceCategory = "outros"
)

// ServiceCategories lists every category in display order.
var ServiceCategories = []ServiceCategory{
	CategoryMason,
	CategoryCarpenter,
	CategoryElectrician,
	CategoryPlumbing,
	CategoryPainting,
	CategoryOther,
}

var categoryLabels = map[ServiceCategory]string{
	CategoryMason:       "Pedreiro",
	CategoryCarpenter:   "Marceneiro",
	CategoryElectrician: "Eletricista",
	CategoryPlumbing:    "Hidráulica",
	CategoryPainting:    "Pintura",
	CategoryOther:       "Outros",
}

func (c ServiceCategory) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

func (c ServiceCategory) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

type RequestStatus string

const (
	StatusPending  RequestStatus = "pendente"
	StatusApproved RequestStatus = "aprovado"
	StatusDenied   RequestStatus = "negado"
)

var RequestStatuses = []RequestStatus{StatusPending, StatusApproved, StatusDenied}

var statusLabels = map[RequestStatus]string{
	StatusPending:  "Pendente",
	StatusApproved: "Aprovado",
	StatusDenied:   "Negado",
}

func (s RequestStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

func (s RequestStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Decided reports whether the request left the pending state.
func (s RequestStatus) Decided() bool {
	return s == StatusApproved || s == StatusDenied
}

// MaintenanceRequest mirrors a row of maintenance_requests. PNRNumber and
// PNRAddress are copied from the housing registry at submission time and are
// never rewritten afterwards.
type MaintenanceRequest struct {
	ID            string          `db:"id"`
	PNRNumber     string          `db:"pnr_number"`
	PNRAddress    string          `db:"pnr_address"`
	RequesterName string          `db:"requester_name"`
	RequesterRank string          `db:"requester_rank"`
	Category      ServiceCategory `db:"category"`
	Description   string          `db:"description"`
	IsUrgent      bool            `db:"is_urgent"`
	IsArchived    bool            `db:"is_archived"`
	Images        []string        `db:"images"`
	Status        RequestStatus   `db:"status"`
	DenialReason  *string         `db:"denial_reason"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

// Clone returns a deep copy so callers never share the mirror's backing
// slices or pointers.
func (r *MaintenanceRequest) Clone() *MaintenanceRequest {
	if r == nil {
		return nil
	}

	out := *r
	out.Images = append([]string{}, r.Images...)
	if r.DenialReason != nil {
		reason := *r.DenialReason
		out.DenialReason = &reason
	}

	return &out
}

// UrgentPending is the precedence key of the dashboard ordering.
func (r *MaintenanceRequest) UrgentPending() bool {
	return r.IsUrgent && r.Status == StatusPending
}

// ShortID is the service order number printed on documents.
func (r *MaintenanceRequest) ShortID() string {
	id := r.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return strings.ToUpper(id)
}

// RequestDraft carries the caller supplied fields of a new request. Status,
// archived flag, identifier and timestamps are assigned on insert.
type RequestDraft struct {
	PNRNumber     string          `validate:"required"`
	PNRAddress    string          `validate:"required"`
	RequesterName string          `validate:"required" form:"requester_name"`
	RequesterRank string          `validate:"required" form:"requester_rank"`
	Category      ServiceCategory `validate:"required,category" form:"category"`
	Description   string          `validate:"required" form:"description"`
	IsUrgent      bool
	Images        []string `validate:"max=5"`
}

func (d *RequestDraft) Normalize() {
	d.RequesterName = strings.TrimSpace(d.RequesterName)
	d.RequesterRank = strings.TrimSpace(d.RequesterRank)
	d.Description = strings.TrimSpace(d.Description)
}
