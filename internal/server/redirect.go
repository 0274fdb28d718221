package server

import (
	"net/http"
	"net/url"
	"strings"
)

// redirectWithNotice sends the browser to path with a flash message in the
// query string. path may already carry a query.
func (s *Service) redirectWithNotice(w http.ResponseWriter, r *http.Request, path, notice string) {
	http.Redirect(w, r, withQuery(path, "notice", notice), http.StatusSeeOther)
}

func (s *Service) redirectWithError(w http.ResponseWriter, r *http.Request, path, msg string) {
	http.Redirect(w, r, withQuery(path, "error", msg), http.StatusSeeOther)
}

func withQuery(path, key, value string) string {
	u, err := url.Parse(path)
	if err != nil || u.IsAbs() || !strings.HasPrefix(u.Path, "/") {
		u = &url.URL{Path: "/"}
	}
	q := u.Query()
	q.Del("notice")
	q.Del("error")
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
