package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zRyyH/leiturista-hidro/internal/auth/refresh"
	"github.com/zRyyH/leiturista-hidro/internal/auth/session"
	"github.com/zRyyH/leiturista-hidro/internal/clients/rest"
	"github.com/zRyyH/leiturista-hidro/internal/service"
)

func TestToHTTP_BaseMapping(t *testing.T) {
	tcs := []struct {
		name       string
		in         error
		wantStatus int
		wantCode   string
	}{
		{"validation", &service.ValidationError{Field: "valor", Message: "x"}, http.StatusBadRequest, "invalid_argument"},
		{"api_401", &rest.APIError{Status: 401}, http.StatusUnauthorized, "unauthenticated"},
		{"no_refresh_token", fmt.Errorf("op: %w", refresh.ErrNoRefreshToken), http.StatusUnauthorized, "unauthenticated"},
		{"malformed_refresh", refresh.ErrMalformedRefreshResponse, http.StatusUnauthorized, "unauthenticated"},
		{"session_expired", session.ErrSessionExpired, http.StatusUnauthorized, "unauthenticated"},
		{"invalid_credentials", fmt.Errorf("%w: %w", service.ErrInvalidCredentials, &rest.APIError{Status: 401}), http.StatusUnauthorized, "invalid_credentials"},
		{"not_found", service.ErrNotFound, http.StatusNotFound, "not_found"},
		{"api_400", &rest.APIError{Status: 400}, http.StatusBadRequest, "invalid_argument"},
		{"api_403", &rest.APIError{Status: 403}, http.StatusForbidden, "permission_denied"},
		{"api_404", &rest.APIError{Status: 404}, http.StatusNotFound, "not_found"},
		{"api_429", &rest.APIError{Status: 429}, http.StatusTooManyRequests, "resource_exhausted"},
		{"api_500", &rest.APIError{Status: 500}, http.StatusBadGateway, "bad_gateway"},
		{"network", fmt.Errorf("%w: dial", rest.ErrNetwork), http.StatusServiceUnavailable, "unavailable"},
		{"malformed", rest.ErrMalformedResponse, http.StatusBadGateway, "bad_gateway"},
		{"canceled", context.Canceled, StatusClientClosedRequest, "canceled"},
		{"deadline", fmt.Errorf("%w: %w", rest.ErrNetwork, context.DeadlineExceeded), http.StatusGatewayTimeout, "deadline_exceeded"},
		{"internal", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			gotStatus, resp := ToHTTP(tc.in)
			require.Equal(t, tc.wantStatus, gotStatus)
			require.Equal(t, tc.wantCode, resp.Error.Code)
			require.NotEmpty(t, resp.Error.Message)
		})
	}
}

func TestToHTTP_NilError_Returns500Internal(t *testing.T) {
	gotStatus, resp := ToHTTP(nil)
	require.Equal(t, http.StatusInternalServerError, gotStatus)
	require.Equal(t, "internal", resp.Error.Code)
	require.Equal(t, "internal error", resp.Error.Message)
}

func TestToHTTP_Messages(t *testing.T) {
	_, resp := ToHTTP(&service.ValidationError{Field: "foto", Message: service.MsgPhotoRequired})
	require.Equal(t, service.MsgPhotoRequired, resp.Error.Message)
	require.Equal(t, "foto", resp.Error.Field)

	// сообщение удалённого API показывается как есть
	_, resp = ToHTTP(&rest.APIError{Status: 400, Message: "Invalid payload."})
	require.Equal(t, "Invalid payload.", resp.Error.Message)

	// а текст про токен - нет
	_, resp = ToHTTP(&rest.APIError{Status: 401, Message: "Token expired."})
	require.Equal(t, MsgSessionExpired, resp.Error.Message)

	_, resp = ToHTTP(fmt.Errorf("%w: %w", service.ErrInvalidCredentials, &rest.APIError{Status: 401, Message: "Invalid user credentials."}))
	require.Equal(t, "Invalid user credentials.", resp.Error.Message)

	_, resp = ToHTTP(errors.New("pq: secret detail"))
	require.Equal(t, "internal error", resp.Error.Message)
}

func TestWriteErrorForm(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/leituras/1", nil)
	req.Header.Set("X-Request-Id", "rid-1")
	rec := httptest.NewRecorder()

	WriteErrorForm(rec, req, &service.ValidationError{Field: "valor", Message: service.MsgValueRequired}, map[string]string{"valor": " "})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "rid-1", resp.Error.RequestID)
	require.Equal(t, " ", resp.Form["valor"])
}

func TestWriteError_UnauthenticatedPointsToSignIn(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/condominios", nil)
	rec := httptest.NewRecorder()

	WriteError(rec, req, refresh.ErrNoRefreshToken)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "/", rec.Header().Get("Location"))
}
