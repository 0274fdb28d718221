package server

import (
	"context"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"sismanpnr/internal/debounce"
	"sismanpnr/internal/document"
	"sismanpnr/internal/intake"
	"sismanpnr/internal/metrics"
	"sismanpnr/internal/mirror"
	"sismanpnr/internal/triage"
	"sismanpnr/internal/utils"
	"sismanpnr/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/go-playground/form/v4"
	"github.com/gorilla/securecookie"
	"github.com/sirupsen/logrus"
)

//go:embed templates static
var uiFS embed.FS
var decoder = newDecoder()

func newDecoder() *form.Decoder {
	d := form.NewDecoder()
	d.SetMode(form.ModeExplicit)
	return d
}

// CognitoAPI is the part of the Cognito client used for staff login.
type CognitoAPI interface {
	InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
}

// Dependencies are the long-lived components the handlers operate on. The
// mirrors are owned by the caller and must already be loaded.
type Dependencies struct {
	Requests *mirror.Requests
	Housing  *mirror.Housing
	Triage   *triage.Service
	Intake   *intake.Service
	Orders   *document.Renderer
	Metrics  *metrics.Recorder
	Cognito  CognitoAPI
	Verifier TokenVerifier
}

type Service struct {
	logger    *logrus.Logger
	config    *types.Config
	templates *template.Template

	requests   *mirror.Requests
	housing    *mirror.Housing
	triage     *triage.Service
	intake     *intake.Service
	orders     *document.Renderer
	letterhead document.Letterhead
	metrics    *metrics.Recorder

	cognito  CognitoAPI
	verifier TokenVerifier
	cookie   *securecookie.SecureCookie

	now    func() time.Time
	server *http.Server
}

func New(config *types.Config, logger *logrus.Logger, deps Dependencies) (*Service, error) {
	mux := flow.New()

	hashKey, _ := base64.StdEncoding.DecodeString(config.CookieHashKey)
	blockKey, _ := base64.StdEncoding.DecodeString(config.CookieBlockKey)
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(32)
		logger.Warn("COOKIE_HASH_KEY not set, staff sessions will not survive a restart")
	}
	if len(blockKey) == 0 {
		blockKey = nil
	}

	s := &Service{
		logger: logger,
		config: config,

		requests:   deps.Requests,
		housing:    deps.Housing,
		triage:     deps.Triage,
		intake:     deps.Intake,
		orders:     deps.Orders,
		letterhead: document.LetterheadFromConfig(config),
		metrics:    deps.Metrics,

		cognito:  deps.Cognito,
		verifier: deps.Verifier,
		cookie:   securecookie.New(hashKey, blockKey),

		now: time.Now,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			Handler:           mux,
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	s.templates = templates

	s.buildRouter(mux)

	return s, nil
}

func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.NotFound = http.HandlerFunc(s.handleNotFound)

	r.Use(s.StripTrailingSlash)
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/", s.handleHome, http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler(), http.MethodGet)

	r.HandleFunc("/solicitar", s.handleGetSolicitar, http.MethodGet)
	r.HandleFunc("/solicitar", s.handlePostSolicitar, http.MethodPost)
	r.HandleFunc("/consultar", s.handleConsultar, http.MethodGet)

	r.HandleFunc("/admin/login", s.handleGetLogin, http.MethodGet)
	r.HandleFunc("/admin/login", s.handlePostLogin, http.MethodPost)
	r.HandleFunc("/admin/logout", s.handlePostLogout, http.MethodPost)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)

		r.HandleFunc("/admin", s.handleDashboard, http.MethodGet)
		r.HandleFunc("/admin/export.xlsx", s.handleExport, http.MethodGet)

		r.HandleFunc("/admin/requests/:id/approve", s.handleApprove, http.MethodPost)
		r.HandleFunc("/admin/requests/:id/deny", s.handleDeny, http.MethodPost)
		r.HandleFunc("/admin/requests/:id/urgent", s.handleToggleUrgent, http.MethodPost)
		r.HandleFunc("/admin/requests/:id/archive", s.handleArchive, http.MethodPost)
		r.HandleFunc("/admin/requests/:id/delete", s.handleDeleteRequest, http.MethodPost)

		r.HandleFunc("/admin/pnrs", s.handleGetPNRs, http.MethodGet)
		r.HandleFunc("/admin/pnrs", s.handlePostPNR, http.MethodPost)
		r.HandleFunc("/admin/pnrs/:id", s.handleUpdatePNR, http.MethodPost)
		r.HandleFunc("/admin/pnrs/:id/delete", s.handleDeletePNR, http.MethodPost)

		r.HandleFunc("/admin/ordem-servico/:id", s.handleServiceOrder, http.MethodGet)
		r.HandleFunc("/admin/ordem-servico/:id/pdf", s.handleServiceOrderPDF, http.MethodGet)
	})

	staticRoot, err := fs.Sub(uiFS, "static")
	if err != nil {
		s.logger.WithError(err).Fatal("failed to mount static assets")
	}
	r.Handle("/static/...", http.StripPrefix("/static/", http.FileServer(http.FS(staticRoot))), http.MethodGet)
}

func loadTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"deref": utils.PtrString,
		"date": func(t time.Time) string {
			return t.Format("02/01/2006")
		},
		"datetime": func(t time.Time) string {
			return t.Format("02/01/2006 15:04")
		},
		"settleMs": func() int64 {
			return debounce.SearchSettle.Milliseconds()
		},
		"add": func(a, b int) int {
			return a + b
		},
	}

	t := template.New("").Funcs(funcMap)
	err := fs.WalkDir(uiFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		data, err := fs.ReadFile(uiFS, path)
		if err != nil {
			return fmt.Errorf("read template %s: %w", path, err)
		}

		if _, err := t.Parse(string(data)); err != nil {
			return fmt.Errorf("parse template %s: %w", path, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return t, nil
}

func (s *Service) userIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(contextKeyUserID).(string)
	if !ok {
		return "", fmt.Errorf("user id not found in context")
	}
	return userID, nil
}
