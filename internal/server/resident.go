package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"sismanpnr/internal/imaging"
	"sismanpnr/internal/intake"
	"sismanpnr/pkg/types"
)

const (
	stepSearch  = "search"
	stepForm    = "form"
	stepSuccess = "success"

	maxSubmissionBytes = (imaging.MaxAttachments+1)*imaging.MaxFileSize + 1<<20
	multipartMemory    = 32 << 20
)

type SolicitarPageData struct {
	types.BasePageData
	Step       string
	Search     string
	Results    []*types.PNR
	Selected   *types.PNR
	Draft      types.RequestDraft
	Categories []types.Option
	MaxImages  int
	Warnings   []string
	Created    *types.MaintenanceRequest
}

type ConsultarPageData struct {
	types.BasePageData
	Search   string
	Searched bool
	Requests []*types.MaintenanceRequest
}

func (s *Service) newSolicitarPage() *SolicitarPageData {
	return &SolicitarPageData{
		BasePageData: types.BasePageData{
			Title:  "Solicitar Manutenção",
			Navbar: types.NavbarData{Active: "solicitar"},
		},
		Step:       stepSearch,
		Results:    make([]*types.PNR, 0),
		Categories: types.CategoryOptions(""),
		MaxImages:  imaging.MaxAttachments,
	}
}

// handleGetSolicitar serves the first two steps of the wizard: unit search
// (?q=) and the request form for a selected unit (?pnr=<id>). htmx search
// requests only receive the result list.
func (s *Service) handleGetSolicitar(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	data := s.newSolicitarPage()
	data.Error = query.Get("error")

	if id := strings.TrimSpace(query.Get("pnr")); id != "" {
		if pnr, ok := s.housing.FindByID(id); ok {
			data.Step = stepForm
			data.Selected = pnr
			s.render(w, r, http.StatusOK, "page.solicitar", data)
			return
		}
		data.Error = "PNR não encontrada. Busque novamente."
	}

	data.Search = strings.TrimSpace(query.Get("q"))
	data.Results = s.housing.Search(data.Search)

	if r.Header.Get("HX-Request") == "true" {
		s.render(w, r, http.StatusOK, "partial.pnr-results", data)
		return
	}

	s.render(w, r, http.StatusOK, "page.solicitar", data)
}

func (s *Service) handlePostSolicitar(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSubmissionBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		s.logger.WithError(err).Warn("failed to parse submission")
		s.redirectWithError(w, r, "/solicitar", "Não foi possível ler o formulário. Verifique o tamanho das imagens.")
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	data := s.newSolicitarPage()
	data.Step = stepForm

	var draft types.RequestDraft
	if err := decoder.Decode(&draft, r.PostForm); err != nil {
		s.logger.WithError(err).Warn("failed to decode submission form")
	}
	data.Draft = draft
	data.Categories = types.CategoryOptions(draft.Category)

	pnrID := strings.TrimSpace(r.PostFormValue("pnr_id"))
	selected, ok := s.housing.FindByID(pnrID)
	if !ok {
		s.redirectWithError(w, r, "/solicitar", "Selecione uma PNR válida.")
		return
	}
	data.Selected = selected

	files, err := formFiles(r.MultipartForm, "images")
	if err != nil {
		s.logger.WithError(err).Error("failed to read attached images")
		data.Error = "Não foi possível ler as imagens anexadas."
		s.render(w, r, http.StatusBadRequest, "page.solicitar", data)
		return
	}

	receipt, err := s.intake.Submit(r.Context(), intake.Submission{
		PNRID: pnrID,
		Draft: draft,
		Files: files,
	})
	switch {
	case errors.Is(err, intake.ErrDraftInvalid):
		data.Error = "Por favor, preencha todos os campos obrigatórios."
		s.render(w, r, http.StatusUnprocessableEntity, "page.solicitar", data)
		return
	case errors.Is(err, types.ErrPNRNotFound):
		s.redirectWithError(w, r, "/solicitar", "Selecione uma PNR válida.")
		return
	case err != nil:
		data.Error = "Não foi possível criar a solicitação. Tente novamente."
		s.render(w, r, http.StatusServiceUnavailable, "page.solicitar", data)
		return
	}

	data.Step = stepSuccess
	data.Created = receipt.Request
	if receipt.FailedUploads > 0 {
		data.Warnings = append(data.Warnings, "Algumas imagens não puderam ser enviadas.")
	}
	for _, rej := range receipt.Rejected {
		data.Warnings = append(data.Warnings, rejectionMessage(rej))
	}

	s.render(w, r, http.StatusCreated, "page.solicitar", data)
}

func rejectionMessage(rej imaging.Rejection) string {
	switch {
	case errors.Is(rej.Err, imaging.ErrFileTooLarge):
		return fmt.Sprintf("%s excede o limite de 20MB.", rej.Name)
	case errors.Is(rej.Err, imaging.ErrNotImage):
		return fmt.Sprintf("%s não é uma imagem.", rej.Name)
	case errors.Is(rej.Err, imaging.ErrImageTooLarge):
		return fmt.Sprintf("%s tem resolução acima do permitido.", rej.Name)
	case errors.Is(rej.Err, imaging.ErrTooManyAttachments):
		return fmt.Sprintf("Máximo de %d imagens por solicitação.", imaging.MaxAttachments)
	default:
		return fmt.Sprintf("%s não pôde ser anexado.", rej.Name)
	}
}

func formFiles(mf *multipart.Form, field string) ([]imaging.File, error) {
	if mf == nil {
		return nil, nil
	}

	headers := mf.File[field]
	files := make([]imaging.File, 0, len(headers))
	for _, fh := range headers {
		if fh.Size == 0 && fh.Filename == "" {
			continue
		}

		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}

		contentType := fh.Header.Get("Content-Type")
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = http.DetectContentType(data)
		}

		files = append(files, imaging.File{
			Name:        fh.Filename,
			ContentType: contentType,
			Data:        data,
		})
	}

	return files, nil
}

// handleConsultar lists every request of a unit, newest first.
func (s *Service) handleConsultar(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("pnr"))

	data := &ConsultarPageData{
		BasePageData: types.BasePageData{
			Title:  "Consultar Status",
			Navbar: types.NavbarData{Active: "consultar"},
		},
		Search:   search,
		Searched: search != "",
		Requests: make([]*types.MaintenanceRequest, 0),
	}

	if data.Searched {
		data.Requests = s.requests.FindByUnitNumber(search)
	}

	s.render(w, r, http.StatusOK, "page.consultar", data)
}
