package server

import (
	"bytes"
	"fmt"
	"net/http"

	"sismanpnr/internal/document"
	"sismanpnr/pkg/types"
)

type ServiceOrderPageData struct {
	types.BasePageData
	Order   document.ServiceOrder
	PDFPath string
}

func (s *Service) orderRequest(w http.ResponseWriter, r *http.Request) (*types.MaintenanceRequest, bool) {
	req, ok := s.requests.FindByID(r.PathValue("id"))
	if !ok {
		data := &types.BasePageData{Title: "Solicitação não encontrada"}
		s.render(w, r, http.StatusNotFound, "page.notfound", data)
		return nil, false
	}
	return req, true
}

func (s *Service) handleServiceOrder(w http.ResponseWriter, r *http.Request) {
	req, ok := s.orderRequest(w, r)
	if !ok {
		return
	}

	order := document.NewServiceOrder(s.letterhead, req, s.now())
	data := &ServiceOrderPageData{
		BasePageData: types.BasePageData{Title: "O.S. " + order.Number},
		Order:        order,
		PDFPath:      fmt.Sprintf("/admin/ordem-servico/%s/pdf", req.ID),
	}

	s.render(w, r, http.StatusOK, "page.order", data)
}

func (s *Service) handleServiceOrderPDF(w http.ResponseWriter, r *http.Request) {
	req, ok := s.orderRequest(w, r)
	if !ok {
		return
	}

	order := document.NewServiceOrder(s.letterhead, req, s.now())

	var buf bytes.Buffer
	if err := s.orders.Write(&buf, order); err != nil {
		s.logger.WithError(err).WithField("request_id", req.ID).Error("failed to render service order pdf")
		s.internalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", document.FileName(req)))
	_, _ = buf.WriteTo(w)
}
