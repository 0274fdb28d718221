package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"sismanpnr/internal"
	"sismanpnr/internal/document"
	"sismanpnr/internal/imaging"
	"sismanpnr/internal/intake"
	"sismanpnr/internal/metrics"
	"sismanpnr/internal/mirror"
	"sismanpnr/internal/triage"
	"sismanpnr/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	cognitotypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRequestStore struct {
	mu   sync.Mutex
	rows map[string]*types.MaintenanceRequest
	seq  int
}

func (m *memRequestStore) Requests(ctx context.Context) ([]*types.MaintenanceRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*types.MaintenanceRequest, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memRequestStore) CreateRequest(ctx context.Context, r *types.MaintenanceRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	r.ID = fmt.Sprintf("req%05dabcdef", m.seq)
	r.Status = types.StatusPending
	r.CreatedAt = time.Date(2026, 1, 1, 0, m.seq, 0, 0, time.UTC)
	r.UpdatedAt = r.CreatedAt
	m.rows[r.ID] = r.Clone()
	return nil
}

func (m *memRequestStore) UpdateRequest(ctx context.Context, id string, fields map[string]any) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return 0, nil
	}
	if v, ok := fields["status"]; ok {
		r.Status = v.(types.RequestStatus)
	}
	if v, ok := fields["denial_reason"]; ok {
		s := v.(string)
		r.DenialReason = &s
	}
	if v, ok := fields["is_urgent"]; ok {
		r.IsUrgent = v.(bool)
	}
	if v, ok := fields["is_archived"]; ok {
		r.IsArchived = v.(bool)
	}
	return 1, nil
}

func (m *memRequestStore) DeleteRequest(ctx context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return 0, nil
	}
	delete(m.rows, id)
	return 1, nil
}

type memPNRStore struct {
	mu   sync.Mutex
	rows map[string]*types.PNR
	seq  int
}

func (m *memPNRStore) PNRs(ctx context.Context) ([]*types.PNR, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*types.PNR, 0, len(m.rows))
	for _, p := range m.rows {
		c := *p
		out = append(out, &c)
	}
	return out, nil
}

func (m *memPNRStore) CreatePNR(ctx context.Context, p *types.PNR) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.rows {
		if existing.Number == p.Number {
			return errors.New("duplicate key")
		}
	}
	m.seq++
	p.ID = fmt.Sprintf("pnr-%d", m.seq)
	c := *p
	m.rows[p.ID] = &c
	return nil
}

func (m *memPNRStore) UpdatePNR(ctx context.Context, id string, in types.PNRInput) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return 0, nil
	}
	p.Number, p.Address, p.Block = in.Number, in.Address, in.Block
	return 1, nil
}

func (m *memPNRStore) DeletePNR(ctx context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return 0, nil
	}
	delete(m.rows, id)
	return 1, nil
}

type stubUploader struct{}

func (stubUploader) UploadAll(ctx context.Context, files []imaging.File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, "https://cdn.example/maintenance-images/uploads/"+f.Name)
	}
	return out
}

func (stubUploader) Delete(ctx context.Context, url string) bool { return true }

type stubVerifier struct{}

func (stubVerifier) Verify(ctx context.Context, token string) (jwt.Token, error) {
	if token != "valid-token" {
		return nil, errors.New("invalid token")
	}
	return jwt.NewBuilder().Subject("staff-1").Claim("email", "fiscal@example.com").Build()
}

type stubCognito struct {
	password string
}

func (c stubCognito) InitiateAuth(ctx context.Context, in *cognitoidentityprovider.InitiateAuthInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error) {
	if in.AuthParameters["PASSWORD"] != c.password {
		return nil, &cognitotypes.NotAuthorizedException{Message: aws.String("Incorrect username or password.")}
	}
	return &cognitoidentityprovider.InitiateAuthOutput{
		AuthenticationResult: &cognitotypes.AuthenticationResultType{
			AccessToken: aws.String("valid-token"),
			ExpiresIn:   3600,
		},
	}, nil
}

type fixture struct {
	svc      *Service
	handler  http.Handler
	requests *mirror.Requests
	housing  *mirror.Housing
	store    *memRequestStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, _ := test.NewNullLogger()
	recorder := metrics.New()

	reqStore := &memRequestStore{rows: map[string]*types.MaintenanceRequest{}}
	pnrStore := &memPNRStore{rows: map[string]*types.PNR{
		"pnr-a": {ID: "pnr-a", Number: "101", Address: "Rua das Palmeiras, 10", Block: "A"},
		"pnr-b": {ID: "pnr-b", Number: "202", Address: "Avenida Central, 55", Block: "B"},
	}}

	requests := mirror.NewRequests(reqStore, logger, recorder)
	housing := mirror.NewHousing(pnrStore, logger, recorder)
	require.True(t, requests.Refresh(context.Background()))
	require.True(t, housing.Refresh(context.Background()))

	config := &types.Config{
		CookieHashKey:    base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("h"), 32)),
		CookieBlockKey:   base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("b"), 32)),
		CognitoClientID:  "client",
		OrderOrgName:     "Comando de Fronteira Jauru",
		OrderUnitName:    "66º Batalhão de Infantaria",
		OrderSectionName: "Seção de Manutenção de PNR",
	}

	svc, err := New(config, logger, Dependencies{
		Requests: requests,
		Housing:  housing,
		Triage:   triage.New(requests, nil),
		Intake:   intake.New(housing, requests, stubUploader{}, logger),
		Orders:   document.NewRenderer(),
		Metrics:  recorder,
		Cognito:  stubCognito{password: "s3nha"},
		Verifier: stubVerifier{},
	})
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC) }

	return &fixture{svc: svc, handler: svc.Handler(), requests: requests, housing: housing, store: reqStore}
}

func (f *fixture) do(t *testing.T, req *http.Request, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	if admin {
		value, err := f.svc.cookie.Encode(internal.COOKIE_ACCESS_TOKEN_NAME, "valid-token")
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: internal.COOKIE_ACCESS_TOKEN_NAME, Value: value})
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func (f *fixture) seedRequest(t *testing.T, unit string) *types.MaintenanceRequest {
	t.Helper()
	res := f.requests.Create(context.Background(), types.RequestDraft{
		PNRNumber:     unit,
		PNRAddress:    "Rua das Palmeiras, 10",
		RequesterName: "Silva",
		RequesterRank: "Sgt",
		Category:      types.CategoryElectrician,
		Description:   "Disjuntor desarmando",
	})
	require.True(t, res.Applied)
	return res.Value
}

func TestPublicPages(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/", nil), false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Solicitar Manutenção")

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/nao-existe", nil), false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Página não encontrada")

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil), false)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSolicitarSearch(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/solicitar?q=palmeiras", nil), false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/solicitar?pnr=pnr-a")
	assert.NotContains(t, rec.Body.String(), "/solicitar?pnr=pnr-b")
	assert.Contains(t, rec.Body.String(), "delay:300ms")

	req := httptest.NewRequest(http.MethodGet, "/solicitar?q=202", nil)
	req.Header.Set("HX-Request", "true")
	rec = f.do(t, req, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<!DOCTYPE html>")
	assert.Contains(t, rec.Body.String(), "/solicitar?pnr=pnr-b")

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/solicitar?pnr=pnr-b", nil), false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="pnr_id" value="pnr-b"`)
}

func multipartSubmission(t *testing.T, fields map[string]string, images map[string][]byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for name, data := range images {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename=%q`, name))
		h.Set("Content-Type", "image/jpeg")
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = io.Copy(part, bytes.NewReader(data))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/solicitar", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestSolicitarSubmit(t *testing.T) {
	f := newFixture(t)

	req := multipartSubmission(t, map[string]string{
		"pnr_id":         "pnr-a",
		"requester_rank": "Sgt",
		"requester_name": "Silva",
		"category":       "hidraulica",
		"description":    "Vazamento no banheiro",
	}, map[string][]byte{"foto.jpg": []byte("jpeg-bytes")})

	rec := f.do(t, req, false)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "Solicitação Enviada!")
	assert.Contains(t, rec.Body.String(), "/consultar?pnr=101")

	items := f.requests.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "101", items[0].PNRNumber)
	assert.Equal(t, "Rua das Palmeiras, 10", items[0].PNRAddress)
	assert.Equal(t, types.CategoryPlumbing, items[0].Category)
	assert.Equal(t, []string{"https://cdn.example/maintenance-images/uploads/foto.jpg"}, items[0].Images)
	assert.False(t, items[0].IsUrgent)
}

func TestSubmitListedFirstOnDashboard(t *testing.T) {
	f := newFixture(t)
	older := f.seedRequest(t, "101")

	unit := f.housing.Create(context.Background(), types.PNRInput{Number: "PNR-001", Address: "Rua dos Ipês, 1", Block: "C"})
	require.True(t, unit.Applied)

	req := multipartSubmission(t, map[string]string{
		"pnr_id":         unit.Value.ID,
		"requester_rank": "Cb",
		"requester_name": "Souza",
		"category":       "eletricista",
		"description":    "Tomada da cozinha sem energia",
	}, nil)
	rec := f.do(t, req, false)
	require.Equal(t, http.StatusCreated, rec.Code)

	submitted := f.requests.FindByUnitNumber("PNR-001")
	require.Len(t, submitted, 1)
	created := submitted[0]
	assert.Equal(t, types.StatusPending, created.Status)
	assert.Equal(t, types.CategoryElectrician, created.Category)
	assert.NotNil(t, created.Images)
	assert.Empty(t, created.Images)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/admin", nil), true)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	newIdx := strings.Index(body, "id="+created.ID)
	oldIdx := strings.Index(body, "id="+older.ID)
	require.NotEqual(t, -1, newIdx)
	require.NotEqual(t, -1, oldIdx)
	assert.Less(t, newIdx, oldIdx)
}

func TestSolicitarSubmitMissingFields(t *testing.T) {
	f := newFixture(t)

	req := multipartSubmission(t, map[string]string{
		"pnr_id":         "pnr-a",
		"requester_rank": "  ",
		"requester_name": "Silva",
		"category":       "hidraulica",
		"description":    "Vazamento",
	}, nil)

	rec := f.do(t, req, false)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "preencha todos os campos obrigatórios")
	assert.Empty(t, f.requests.Items())
}

func TestConsultar(t *testing.T) {
	f := newFixture(t)
	created := f.seedRequest(t, "101")

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/consultar?pnr=101", nil), false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "#"+created.ShortID())

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/consultar?pnr=999", nil), false)
	assert.Contains(t, rec.Body.String(), "Nenhuma solicitação encontrada")
}

func TestAdminRequiresLogin(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/admin?status=pendente", nil), false)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))

	var redirect *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == internal.COOKIE_REDIRECT_NAME {
			redirect = c
		}
	}
	require.NotNil(t, redirect)
	assert.Equal(t, "/admin?status=pendente", redirect.Value)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: internal.COOKIE_ACCESS_TOKEN_NAME, Value: "tampered"})
	rec = f.do(t, req, false)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, postForm("/admin/login", url.Values{"email": {"fiscal@example.com"}, "password": {"errada"}}), false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "E-mail ou senha inválidos.")

	req := postForm("/admin/login", url.Values{"email": {"fiscal@example.com"}, "password": {"s3nha"}})
	req.AddCookie(&http.Cookie{Name: internal.COOKIE_REDIRECT_NAME, Value: "/admin/pnrs"})
	rec = f.do(t, req, false)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/pnrs", rec.Header().Get("Location"))

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == internal.COOKIE_ACCESS_TOKEN_NAME {
			session = c
		}
	}
	require.NotNil(t, session)

	var token string
	require.NoError(t, f.svc.cookie.Decode(internal.COOKIE_ACCESS_TOKEN_NAME, session.Value, &token))
	assert.Equal(t, "valid-token", token)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	first := f.seedRequest(t, "101")
	second := f.seedRequest(t, "202")

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/admin?pnr=20", nil), true)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "id="+second.ID)
	assert.NotContains(t, body, "id="+first.ID)
	assert.Contains(t, body, "fiscal@example.com")

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/admin?id="+first.ID, nil), true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/admin/requests/"+first.ID+"/approve")
}

func TestTriageActions(t *testing.T) {
	f := newFixture(t)
	req := f.seedRequest(t, "101")

	rec := f.do(t, postForm("/admin/requests/"+req.ID+"/deny", url.Values{"reason": {"   "}, "return": {"status=pendente"}}), true)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	loc := rec.Header().Get("Location")
	assert.Contains(t, loc, "deny=1")
	assert.Contains(t, loc, "status=pendente")
	got, _ := f.requests.FindByID(req.ID)
	assert.Equal(t, types.StatusPending, got.Status)

	rec = f.do(t, postForm("/admin/requests/"+req.ID+"/urgent", url.Values{}), true)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	got, _ = f.requests.FindByID(req.ID)
	assert.True(t, got.IsUrgent)

	rec = f.do(t, postForm("/admin/requests/"+req.ID+"/deny", url.Values{"reason": {"Fora do escopo"}}), true)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	got, _ = f.requests.FindByID(req.ID)
	assert.Equal(t, types.StatusDenied, got.Status)
	require.NotNil(t, got.DenialReason)
	assert.Equal(t, "Fora do escopo", *got.DenialReason)

	rec = f.do(t, postForm("/admin/requests/"+req.ID+"/approve", url.Values{}), true)
	assert.Contains(t, rec.Header().Get("Location"), "error=")

	rec = f.do(t, postForm("/admin/requests/"+req.ID+"/archive", url.Values{}), true)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	got, _ = f.requests.FindByID(req.ID)
	assert.True(t, got.IsArchived)
	assert.True(t, f.store.rows[req.ID].IsArchived)

	rec = f.do(t, postForm("/admin/requests/"+req.ID+"/delete", url.Values{}), true)
	assert.Contains(t, rec.Header().Get("Location"), "error=")
	_, ok := f.requests.FindByID(req.ID)
	assert.True(t, ok)
}

func TestPNRManagement(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, postForm("/admin/pnrs", url.Values{"number": {"303"}, "address": {"Rua Nova, 3"}, "block": {"C"}}), true)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "notice=")
	created, ok := f.housing.FindByNumber("303")
	require.True(t, ok)

	rec = f.do(t, postForm("/admin/pnrs", url.Values{"number": {"303"}, "address": {"Outra"}, "block": {"D"}}), true)
	assert.Contains(t, rec.Header().Get("Location"), "error=")
	assert.Equal(t, 3, f.housing.Len())

	rec = f.do(t, postForm("/admin/pnrs", url.Values{"number": {"404"}, "address": {" "}, "block": {"D"}}), true)
	assert.Contains(t, rec.Header().Get("Location"), "error=")

	rec = f.do(t, postForm("/admin/pnrs/"+created.ID, url.Values{"number": {"303A"}, "address": {"Rua Nova, 3"}, "block": {"C"}}), true)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	_, ok = f.housing.FindByNumber("303A")
	assert.True(t, ok)

	rec = f.do(t, postForm("/admin/pnrs/"+created.ID+"/delete", url.Values{}), true)
	assert.Contains(t, rec.Header().Get("Location"), "notice=")
	_, ok = f.housing.FindByID(created.ID)
	assert.False(t, ok)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/admin/pnrs?q=bloco", nil), true)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServiceOrder(t *testing.T) {
	f := newFixture(t)
	req := f.seedRequest(t, "101")

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/admin/ordem-servico/"+req.ID, nil), true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "O.S. Nº "+req.ShortID())
	assert.Contains(t, rec.Body.String(), "Prioridade: NORMAL")

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/admin/ordem-servico/"+req.ID+"/pdf", nil), true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), document.FileName(req))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/admin/ordem-servico/missing", nil), true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportAndMetrics(t *testing.T) {
	f := newFixture(t)
	f.seedRequest(t, "101")

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/admin/export.xlsx", nil), true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "solicitacoes-20261016.xlsx")
	assert.NotEmpty(t, rec.Body.Bytes())

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil), false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `sismanpnr_store_writes_total{entity="request",operation="create",outcome="applied"} 1`)
}
