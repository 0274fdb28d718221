package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sismanpnr/internal"
	"sismanpnr/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	cognitotypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// TokenVerifier validates a staff access token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (jwt.Token, error)
}

// JWKSVerifier checks token signatures against the user pool's cached key
// set.
type JWKSVerifier struct {
	cache *jwk.Cache
	url   string
}

func NewJWKSVerifier(cache *jwk.Cache, url string) *JWKSVerifier {
	return &JWKSVerifier{cache: cache, url: url}
}

func (v *JWKSVerifier) Verify(ctx context.Context, token string) (jwt.Token, error) {
	set, err := v.cache.Lookup(ctx, v.url)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}

	parsed, err := jwt.Parse([]byte(token), jwt.WithKeySet(set), jwt.WithValidate(true))
	if err != nil {
		return nil, fmt.Errorf("parse jwt: %w", err)
	}

	return parsed, nil
}

type LoginPageData struct {
	types.BasePageData
	Email string
}

func (s *Service) handleGetLogin(w http.ResponseWriter, r *http.Request) {
	_, err := r.Cookie(internal.COOKIE_ACCESS_TOKEN_NAME)
	if err == nil {
		s.logger.Debug("user is already logged in, redirecting to dashboard")
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}

	data := &LoginPageData{
		BasePageData: types.BasePageData{
			Title:  "Acesso Administrativo",
			Notice: r.URL.Query().Get("notice"),
			Error:  r.URL.Query().Get("error"),
		},
	}

	s.render(w, r, http.StatusOK, "page.login", data)
}

func (s *Service) handlePostLogin(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	data := &LoginPageData{
		BasePageData: types.BasePageData{Title: "Acesso Administrativo"},
		Email:        email,
	}

	if !required(email) || !required(password) {
		data.Error = "Informe e-mail e senha."
		s.render(w, r, http.StatusBadRequest, "page.login", data)
		return
	}

	input := &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: cognitotypes.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(s.config.CognitoClientID),
		AuthParameters: map[string]string{
			"USERNAME": email,
			"PASSWORD": password,
		},
	}

	resp, err := s.cognito.InitiateAuth(r.Context(), input)
	if err != nil {
		// NotAuthorizedException, UserNotConfirmedException, etc.
		s.logger.WithError(err).WithField("email", email).Info("staff login rejected")
		data.Error = "E-mail ou senha inválidos."
		s.render(w, r, http.StatusUnauthorized, "page.login", data)
		return
	}

	if resp.AuthenticationResult == nil || resp.AuthenticationResult.AccessToken == nil {
		data.Error = "Não foi possível concluir o login."
		s.render(w, r, http.StatusUnauthorized, "page.login", data)
		return
	}

	accessToken := aws.ToString(resp.AuthenticationResult.AccessToken)
	expiresIn := int(resp.AuthenticationResult.ExpiresIn)

	encryptedToken, err := s.cookie.Encode(internal.COOKIE_ACCESS_TOKEN_NAME, accessToken)
	if err != nil {
		s.logger.WithError(err).Error("failed to encrypt access token")
		s.internalServerError(w)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     internal.COOKIE_ACCESS_TOKEN_NAME,
		Value:    encryptedToken,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   expiresIn,
		Path:     "/",
	})

	// Check to see if this login attempt was the result of an unauthed redirect
	redirectCookie, err := r.Cookie(internal.COOKIE_REDIRECT_NAME)
	if err == nil && strings.HasPrefix(redirectCookie.Value, "/admin") {
		s.clearRedirectCookie(w)
		http.Redirect(w, r, redirectCookie.Value, http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *Service) handlePostLogout(w http.ResponseWriter, r *http.Request) {
	s.clearAccessCookie(w)
	s.clearRedirectCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Service) setRedirectCookie(w http.ResponseWriter, path string, age time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     internal.COOKIE_REDIRECT_NAME,
		Value:    path,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   int(age.Seconds()),
	})
}

func (s *Service) clearRedirectCookie(w http.ResponseWriter) {
	s.expireCookie(w, internal.COOKIE_REDIRECT_NAME)
}

func (s *Service) clearAccessCookie(w http.ResponseWriter) {
	s.expireCookie(w, internal.COOKIE_ACCESS_TOKEN_NAME)
}

func (s *Service) expireCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})
}
