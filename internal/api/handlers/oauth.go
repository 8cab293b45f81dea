package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/donaldgifford/storefront-proxy/internal/marketplace"
	"github.com/donaldgifford/storefront-proxy/pkg/logger"
)

// OAuth error codes returned in TokenBody.Error.
const (
	ErrCodeMissingEnv          = "missing_env"
	ErrCodeMissingCode         = "missing_code"
	ErrCodeRefreshFailed       = "refresh_failed"
	ErrCodeTokenExchangeFailed = "token_exchange_failed"
)

// OAuthClient performs marketplace OAuth grants. *marketplace.Credentials
// implements it.
type OAuthClient interface {
	RefreshGrant(ctx context.Context) (*marketplace.Grant, error)
	Exchange(ctx context.Context, code string) (*marketplace.Grant, error)
	AuthCodeURL(state string) (string, error)
}

// OAuthHandler handles the operator OAuth endpoints.
type OAuthHandler struct {
	oauth OAuthClient
	log   *slog.Logger
}

// NewOAuthHandler creates a new OAuthHandler.
func NewOAuthHandler(c OAuthClient, log *slog.Logger) *OAuthHandler {
	return &OAuthHandler{oauth: c, log: logger.Component(log, "handlers.oauth")}
}

// TokenBody is the token endpoint response. On success it carries the
// new token pair; on failure an error code plus either the missing
// settings or the marketplace body.
type TokenBody struct {
	AccessToken  string   `json:"access_token,omitempty"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	ExpiresIn    *int64   `json:"expires_in,omitempty"    doc:"Seconds until the access token expires"`
	Scope        string   `json:"scope,omitempty"`
	TokenType    string   `json:"token_type,omitempty"`
	UserID       any      `json:"user_id,omitempty"`
	Error        string   `json:"error,omitempty"         example:"missing_env"`
	Missing      []string `json:"missing,omitempty"       doc:"Unset credential settings"`
	Data         any      `json:"data,omitempty"          doc:"Token endpoint response body"`
}

// TokenOutput is the response for the refresh and callback endpoints.
type TokenOutput struct {
	Status int
	Body   TokenBody
}

// CallbackInput is the authorization redirect back from the marketplace.
type CallbackInput struct {
	Code string `query:"code" doc:"Authorization code"`
}

// Refresh performs a refresh_token grant and installs the new pair.
func (h *OAuthHandler) Refresh(ctx context.Context, _ *struct{}) (*TokenOutput, error) {
	grant, err := h.oauth.RefreshGrant(ctx)
	if err != nil {
		return h.grantFailure(ErrCodeRefreshFailed, err), nil
	}
	return tokenSuccess(grant), nil
}

// Callback exchanges an authorization code for a token pair.
func (h *OAuthHandler) Callback(ctx context.Context, input *CallbackInput) (*TokenOutput, error) {
	if input.Code == "" {
		return &TokenOutput{
			Status: http.StatusBadRequest,
			Body:   TokenBody{Error: ErrCodeMissingCode},
		}, nil
	}

	grant, err := h.oauth.Exchange(ctx, input.Code)
	if err != nil {
		return h.grantFailure(ErrCodeTokenExchangeFailed, err), nil
	}

	h.log.Info("authorization code exchanged", "user_id", grant.UserID)
	return tokenSuccess(grant), nil
}

// Authorize redirects the operator to the marketplace consent page. The
// state parameter is passed through, or generated when absent.
//
// @Summary Start the OAuth authorization flow
// @Tags oauth
// @Success 302
// @Failure 500 {object} TokenBody
// @Router /oauth/authorize [get]
func (h *OAuthHandler) Authorize(c echo.Context) error {
	state := c.QueryParam("state")
	if state == "" {
		state = uuid.NewString()
	}

	target, err := h.oauth.AuthCodeURL(state)
	if err != nil {
		var cerr *marketplace.ConfigError
		if errors.As(err, &cerr) {
			return c.JSON(http.StatusInternalServerError, TokenBody{
				Error:   ErrCodeMissingEnv,
				Missing: cerr.Missing,
			})
		}
		return c.JSON(http.StatusInternalServerError, TokenBody{Error: err.Error()})
	}

	return c.Redirect(http.StatusFound, target)
}

func (h *OAuthHandler) grantFailure(code string, err error) *TokenOutput {
	var (
		cerr *marketplace.ConfigError
		gerr *marketplace.GrantError
	)
	switch {
	case errors.As(err, &cerr):
		return &TokenOutput{
			Status: http.StatusInternalServerError,
			Body:   TokenBody{Error: ErrCodeMissingEnv, Missing: cerr.Missing},
		}
	case errors.As(err, &gerr):
		h.log.Warn("token endpoint rejected grant", "grant", code, "status", gerr.Status)
		return &TokenOutput{
			Status: gerr.Status,
			Body:   TokenBody{Error: code, Data: gerr.Data},
		}
	default:
		h.log.Error("token grant failed", "grant", code, "error", err)
		return &TokenOutput{
			Status: http.StatusBadGateway,
			Body:   TokenBody{Error: code, Data: err.Error()},
		}
	}
}

func tokenSuccess(g *marketplace.Grant) *TokenOutput {
	expiresIn := g.ExpiresIn
	return &TokenOutput{
		Status: http.StatusOK,
		Body: TokenBody{
			AccessToken:  g.AccessToken,
			RefreshToken: g.RefreshToken,
			ExpiresIn:    &expiresIn,
			Scope:        g.Scope,
			TokenType:    g.TokenType,
			UserID:       g.UserID,
		},
	}
}

// RegisterOAuthRoutes registers the token endpoints with the Huma API.
// Authorize is a plain redirect and is mounted on Echo directly.
func RegisterOAuthRoutes(api huma.API, h *OAuthHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "oauth-refresh",
		Method:      http.MethodPost,
		Path:        "/oauth/refresh",
		Summary:     "Refresh the marketplace access token",
		Description: "Performs a refresh_token grant and installs the returned token pair.",
		Tags:        []string{"oauth"},
	}, h.Refresh)

	huma.Register(api, huma.Operation{
		OperationID: "oauth-callback",
		Method:      http.MethodGet,
		Path:        "/oauth/callback",
		Summary:     "Complete the OAuth authorization flow",
		Description: "Exchanges the authorization code for a token pair and installs it.",
		Tags:        []string{"oauth"},
	}, h.Callback)
}
