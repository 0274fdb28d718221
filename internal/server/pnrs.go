package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"sismanpnr/pkg/types"
)

type PNRsPageData struct {
	types.BasePageData
	Search     string
	PNRs       []*types.PNR
	Total      int
	BlockCount int
	Editing    *types.PNR
	Form       types.PNRInput
}

// matchPNRs filters units by number, address or block, ignoring case.
func matchPNRs(pnrs []*types.PNR, term string) []*types.PNR {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return pnrs
	}

	out := make([]*types.PNR, 0, len(pnrs))
	for _, p := range pnrs {
		if strings.Contains(strings.ToLower(p.Number), term) ||
			strings.Contains(strings.ToLower(p.Address), term) ||
			strings.Contains(strings.ToLower(p.Block), term) {
			out = append(out, p)
		}
	}
	return out
}

func countBlocks(pnrs []*types.PNR) int {
	seen := make(map[string]struct{}, len(pnrs))
	for _, p := range pnrs {
		seen[p.Block] = struct{}{}
	}
	return len(seen)
}

func (s *Service) handleGetPNRs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	all := s.housing.Items()

	data := &PNRsPageData{
		BasePageData: types.BasePageData{
			Title:  "Gerenciar PNRs",
			Notice: query.Get("notice"),
			Error:  query.Get("error"),
			Navbar: types.NavbarData{Active: "pnrs"},
		},
		Search:     strings.TrimSpace(query.Get("q")),
		Total:      len(all),
		BlockCount: countBlocks(all),
	}
	data.PNRs = matchPNRs(all, data.Search)

	if id := query.Get("edit"); id != "" {
		if pnr, ok := s.housing.FindByID(id); ok {
			data.Editing = pnr
			data.Form = types.PNRInput{Number: pnr.Number, Address: pnr.Address, Block: pnr.Block}
		}
	}

	s.render(w, r, http.StatusOK, "page.pnrs", data)
}

func (s *Service) decodePNRInput(r *http.Request) (types.PNRInput, bool) {
	var in types.PNRInput
	if err := r.ParseForm(); err != nil {
		return in, false
	}
	if err := decoder.Decode(&in, r.PostForm); err != nil {
		s.logger.WithError(err).Warn("failed to decode pnr form")
		return in, false
	}
	in.Normalize()
	return in, types.Validate(in) == nil
}

func (s *Service) handlePostPNR(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodePNRInput(r)
	if !ok {
		s.redirectWithError(w, r, "/admin/pnrs", "Preencha todos os campos.")
		return
	}

	result := s.housing.Create(r.Context(), in)
	if !result.Applied {
		s.redirectWithError(w, r, "/admin/pnrs", "Não foi possível adicionar a PNR. Verifique se o número já existe.")
		return
	}

	s.redirectWithNotice(w, r, "/admin/pnrs", fmt.Sprintf("%s foi adicionada com sucesso.", result.Value.Number))
}

func (s *Service) handleUpdatePNR(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	editPath := "/admin/pnrs?edit=" + url.QueryEscape(id)

	if _, ok := s.housing.FindByID(id); !ok {
		s.redirectWithError(w, r, "/admin/pnrs", "PNR não encontrada.")
		return
	}

	in, ok := s.decodePNRInput(r)
	if !ok {
		s.redirectWithError(w, r, editPath, "Preencha todos os campos.")
		return
	}

	result := s.housing.Update(r.Context(), id, in)
	if !result.Applied {
		s.redirectWithError(w, r, editPath, "Não foi possível atualizar a PNR.")
		return
	}

	s.redirectWithNotice(w, r, "/admin/pnrs", fmt.Sprintf("%s foi atualizada com sucesso.", in.Number))
}

func (s *Service) handleDeletePNR(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	pnr, ok := s.housing.FindByID(id)
	if !ok {
		s.redirectWithError(w, r, "/admin/pnrs", "PNR não encontrada.")
		return
	}

	result := s.housing.Delete(r.Context(), id)
	if !result.Applied {
		s.redirectWithError(w, r, "/admin/pnrs", "Não foi possível remover a PNR. Ela pode ter solicitações vinculadas.")
		return
	}

	s.redirectWithNotice(w, r, "/admin/pnrs", fmt.Sprintf("%s foi removida com sucesso.", pnr.Number))
}
