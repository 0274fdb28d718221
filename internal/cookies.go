package internal

const (
	COOKIE_ACCESS_TOKEN_NAME = "sismanpnr_access_token"
	COOKIE_REDIRECT_NAME     = "sismanpnr_redirect"
)
