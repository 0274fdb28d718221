// Package document renders the printable service order (ordem de serviço)
// handed to the team executing an approved maintenance request.
package document

import (
	"fmt"
	"strings"
	"time"

	"sismanpnr/pkg/types"
)

const (
	SystemName = "SISMAN-PNR"
	dateLayout = "02/01/2006"
	// rendered as "16/10/2026 às 14:05"
	timestampLayout = "02/01/2006 às 15:04"
)

// Letterhead is the organisation block printed at the top of every order.
type Letterhead struct {
	OrgName     string
	UnitName    string
	SectionName string
}

func LetterheadFromConfig(c *types.Config) Letterhead {
	return Letterhead{
		OrgName:     c.OrderOrgName,
		UnitName:    c.OrderUnitName,
		SectionName: c.OrderSectionName,
	}
}

// ServiceOrder is the view of a request as printed on paper.
type ServiceOrder struct {
	Letterhead
	RequestID   string
	Number      string
	IssuedOn    string
	Urgent      bool
	Priority    string
	PNRNumber   string
	RequestedOn string
	Address     string
	ServiceType string
	Description string
	Requester   string
	GeneratedAt string
}

func NewServiceOrder(lh Letterhead, req *types.MaintenanceRequest, now time.Time) ServiceOrder {
	priority := "NORMAL"
	if req.IsUrgent {
		priority = "URGENTE"
	}

	return ServiceOrder{
		Letterhead:  lh,
		RequestID:   req.ID,
		Number:      req.ShortID(),
		IssuedOn:    now.Format(dateLayout),
		Urgent:      req.IsUrgent,
		Priority:    priority,
		PNRNumber:   req.PNRNumber,
		RequestedOn: req.CreatedAt.Format(dateLayout),
		Address:     req.PNRAddress,
		ServiceType: req.Category.Label(),
		Description: req.Description,
		Requester:   strings.TrimSpace(req.RequesterRank + " " + req.RequesterName),
		GeneratedAt: now.Format(timestampLayout),
	}
}

// FooterLine is the organisation line under the generation timestamp.
func (o ServiceOrder) FooterLine() string {
	return strings.Join(nonEmpty(o.OrgName, o.UnitName), " / ")
}

var fileNameReplacer = strings.NewReplacer("/", "-", "\\", "-", " ", "_", "\"", "")

// FileName is the download name of the order, OS-<id prefix>-<unit>.pdf.
func FileName(req *types.MaintenanceRequest) string {
	id := req.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("OS-%s-%s.pdf", id, fileNameReplacer.Replace(req.PNRNumber))
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
