package server

import (
	"bytes"
	"net/http"

	"sismanpnr/pkg/types"
)

func (s *Service) renderTemplate(w http.ResponseWriter, r *http.Request, templateName string, data any) error {
	userID, _ := r.Context().Value(contextKeyUserID).(string)
	userEmail, _ := r.Context().Value(contextKeyEmail).(string)

	if setter, ok := data.(types.NavbarDataSetter); ok {
		setter.SetNavbarData(types.NavbarData{
			IsAuthenticated: userID != "",
			UserID:          userID,
			UserEmail:       userEmail,
		})
	}

	return s.templates.ExecuteTemplate(w, templateName, data)
}

// render executes the template into a buffer first so a template error still
// produces a clean 500 instead of a half-written page.
func (s *Service) render(w http.ResponseWriter, r *http.Request, status int, templateName string, data any) {
	var buf bytes.Buffer
	rw := &bufferedWriter{header: w.Header(), buf: &buf}
	if err := s.renderTemplate(rw, r, templateName, data); err != nil {
		s.logger.WithError(err).WithField("template", templateName).Error("failed to render template")
		s.internalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type bufferedWriter struct {
	header http.Header
	buf    *bytes.Buffer
}

func (b *bufferedWriter) Header() http.Header         { return b.header }
func (b *bufferedWriter) Write(p []byte) (int, error) { return b.buf.Write(p) }
func (b *bufferedWriter) WriteHeader(int)             {}
