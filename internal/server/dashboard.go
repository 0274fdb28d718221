package server

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"sismanpnr/internal/export"
	"sismanpnr/internal/projection"
	"sismanpnr/internal/triage"
	"sismanpnr/pkg/types"

	"github.com/sirupsen/logrus"
)

type DashboardPageData struct {
	types.BasePageData
	Loading     bool
	Filter      projection.Filter
	FilterQuery template.URL
	Summary     projection.Summary
	Requests    []*types.MaintenanceRequest
	Selected    *types.MaintenanceRequest
	ShowDeny    bool
	Statuses    []types.Option
	Categories  []types.Option
}

func decodeFilter(values url.Values) projection.Filter {
	var f projection.Filter
	_ = decoder.Decode(&f, values)
	f.Normalize()
	return f
}

// filterQuery encodes f back into the dashboard query string. Defaults are
// omitted.
func filterQuery(f projection.Filter) string {
	v := url.Values{}
	if f.Archived {
		v.Set("archived", "true")
	}
	if f.Status != "" {
		v.Set("status", string(f.Status))
	}
	if f.Category != "" {
		v.Set("category", string(f.Category))
	}
	if f.Urgency != projection.UrgencyAll {
		v.Set("urgency", string(f.Urgency))
	}
	if f.Unit != "" {
		v.Set("pnr", f.Unit)
	}
	return v.Encode()
}

func (s *Service) handleDashboard(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := decodeFilter(query)
	all := s.requests.Items()

	data := &DashboardPageData{
		BasePageData: types.BasePageData{
			Title:  "Painel Administrativo",
			Notice: query.Get("notice"),
			Error:  query.Get("error"),
			Navbar: types.NavbarData{Active: "admin"},
		},
		Loading:     s.requests.Loading(),
		Filter:      filter,
		FilterQuery: template.URL(filterQuery(filter)),
		Summary:     projection.Summarize(all),
		Requests:    projection.Apply(all, filter),
		Statuses:    types.StatusOptions(filter.Status),
		Categories:  types.CategoryOptions(filter.Category),
	}

	if id := query.Get("id"); id != "" {
		if req, ok := s.requests.FindByID(id); ok {
			data.Selected = req
			data.ShowDeny = query.Get("deny") == "1" && req.Status == types.StatusPending
		} else {
			data.Error = "Solicitação não encontrada."
		}
	}

	s.render(w, r, http.StatusOK, "page.dashboard", data)
}

func (s *Service) handleExport(w http.ResponseWriter, r *http.Request) {
	filter := decodeFilter(r.URL.Query())
	list := projection.Apply(s.requests.Items(), filter)

	body, err := export.Requests(list)
	if err != nil {
		s.logger.WithError(err).Error("failed to build spreadsheet export")
		s.internalServerError(w)
		return
	}

	name := fmt.Sprintf("solicitacoes-%s.xlsx", s.now().Format("20060102"))
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	_, _ = w.Write(body)
}

// dashboardReturn rebuilds the dashboard URL an action came from. Only
// filter parameters are kept; id keeps the detail panel open.
func dashboardReturn(r *http.Request, keepID string) string {
	values, _ := url.ParseQuery(r.PostFormValue("return"))
	q := filterQuery(decodeFilter(values))
	if keepID != "" {
		if q != "" {
			q += "&"
		}
		q += "id=" + url.QueryEscape(keepID)
	}
	if q == "" {
		return "/admin"
	}
	return "/admin?" + q
}

func (s *Service) handleApprove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	_, err := s.triage.Approve(r.Context(), id)
	s.afterTriage(w, r, "approve", id, err, "Solicitação aprovada.")
}

func (s *Service) handleDeny(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	_, err := s.triage.Deny(r.Context(), id, r.PostFormValue("reason"))
	if errors.Is(err, triage.ErrDenialReasonRequired) {
		http.Redirect(w, r, withQuery(dashboardReturn(r, id)+"&deny=1", "error", "Informe o motivo da negativa."), http.StatusSeeOther)
		return
	}
	s.afterTriage(w, r, "deny", id, err, "Solicitação negada.")
}

func (s *Service) handleToggleUrgent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	req, err := s.triage.ToggleUrgent(r.Context(), id)

	notice := "Urgência removida."
	if err == nil && req != nil && req.IsUrgent {
		notice = "Marcado como urgente."
	}
	s.afterTriage(w, r, "urgent", id, err, notice)
}

func (s *Service) handleArchive(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	_, err := s.triage.Archive(r.Context(), id)
	s.afterTriage(w, r, "archive", id, err, "A solicitação foi arquivada.")
}

func (s *Service) handleDeleteRequest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	_, err := s.triage.Delete(r.Context(), id)
	s.afterTriage(w, r, "delete", id, err, "Solicitação excluída.")
}

func (s *Service) afterTriage(w http.ResponseWriter, r *http.Request, action, id string, err error, notice string) {
	userID, _ := s.userIDFromContext(r.Context())
	entry := s.logger.WithFields(logrus.Fields{
		"action":     action,
		"request_id": id,
		"user_id":    userID,
	})

	if err != nil {
		entry.WithError(err).Warn("triage action refused")
		keep := id
		if action == "delete" || errors.Is(err, types.ErrRequestNotFound) {
			keep = ""
		}
		s.redirectWithError(w, r, dashboardReturn(r, keep), triageMessage(err))
		return
	}

	entry.Info("triage action applied")

	keep := id
	if action == "archive" || action == "delete" {
		keep = ""
	}
	s.redirectWithNotice(w, r, dashboardReturn(r, keep), notice)
}

func triageMessage(err error) string {
	switch {
	case errors.Is(err, types.ErrRequestNotFound):
		return "Solicitação não encontrada."
	case errors.Is(err, triage.ErrNotPending):
		return "A solicitação não está mais pendente."
	case errors.Is(err, triage.ErrNotDecided):
		return "Apenas solicitações aprovadas ou negadas podem ser arquivadas."
	case errors.Is(err, triage.ErrAlreadyArchived):
		return "A solicitação já está arquivada."
	case errors.Is(err, triage.ErrDenialReasonRequired):
		return "Informe o motivo da negativa."
	default:
		return "Não foi possível salvar a alteração. Tente novamente."
	}
}
