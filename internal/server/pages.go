package server

import (
	"net/http"
	"strings"

	"sismanpnr/pkg/types"
)

type HomePageData struct {
	types.BasePageData
	UnitCount int
}

func (s *Service) handleHome(w http.ResponseWriter, r *http.Request) {
	data := &HomePageData{
		BasePageData: types.BasePageData{
			Title:  "Início",
			Notice: r.URL.Query().Get("notice"),
			Error:  r.URL.Query().Get("error"),
			Navbar: types.NavbarData{Active: "home"},
		},
		UnitCount: s.housing.Len(),
	}

	s.render(w, r, http.StatusOK, "page.home", data)
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if s.requests.Loading() || s.housing.Loading() {
		w.Header().Set("Retry-After", "1")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Service) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.logger.WithField("path", r.URL.Path).Warn("route not found")

	data := &types.BasePageData{Title: "Página não encontrada"}
	s.render(w, r, http.StatusNotFound, "page.notfound", data)
}

func required(v string) bool {
	return strings.TrimSpace(v) != ""
}

func (s *Service) internalServerError(w http.ResponseWriter) {
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
