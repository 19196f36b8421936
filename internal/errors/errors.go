// errors стандартизирует ответы об ошибках HTTP-слоя (команда serve).
// На вход - ошибка сервиса, ядра сессии или REST-клиента, на выход:
//   - HTTP-статус;
//   - короткий стабильный code и сообщение для показа пользователю.
//
// Сообщение берётся из поля формы, из первого сообщения удалённого API
// либо из текста по умолчанию для шага сценария. Внутренние детали наружу не уходят.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/zRyyH/leiturista-hidro/internal/auth/refresh"
	"github.com/zRyyH/leiturista-hidro/internal/auth/session"
	"github.com/zRyyH/leiturista-hidro/internal/clients/rest"
	"github.com/zRyyH/leiturista-hidro/internal/service"
)

// Нестандартный код "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// MsgSessionExpired - ответ на запросы без действующей сессии.
const MsgSessionExpired = "Sessão expirada. Faça login novamente."

// APIError - единый формат для фронта.
// Field - поле формы, к которому относится ошибка (если есть).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse - корневой объект ответа. Form возвращает введённые
// значения, чтобы форма не терялась при ошибке.
type ErrorResponse struct {
	Error APIError          `json:"error"`
	Form  map[string]string `json:"form,omitempty"`
}

// ToHTTP конвертирует ошибку в HTTP-статус и ответ.
// err == nil - программная ошибка вызова, отдаём 500/internal.
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return http.StatusInternalServerError, ErrorResponse{
			Error: APIError{Code: "internal", Message: "internal error"},
		}
	}

	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ErrorResponse{
			Error: APIError{Code: "invalid_argument", Message: ve.Message, Field: ve.Field},
		}
	}

	if errors.Is(err, service.ErrInvalidCredentials) {
		return http.StatusUnauthorized, ErrorResponse{
			Error: APIError{Code: "invalid_credentials", Message: service.UserMessage(err, service.MsgLoginFailed)},
		}
	}

	status, code, msg := classify(err)
	if code == "unauthenticated" {
		// текст API ("Token expired.") пользователю не показываем
		return status, ErrorResponse{Error: APIError{Code: code, Message: msg}}
	}

	return status, ErrorResponse{
		Error: APIError{Code: code, Message: service.UserMessage(err, msg)},
	}
}

// classify - базовый маппинг ошибки в HTTP-статус, code и сообщение по умолчанию.
// Порядок важен: сетевая ошибка может оборачивать дедлайн.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "canceled"
	case isAuthError(err):
		return http.StatusUnauthorized, "unauthenticated", MsgSessionExpired
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found", "not found"
	case errors.Is(err, rest.ErrNetwork):
		return http.StatusServiceUnavailable, "unavailable", "service unavailable"
	case errors.Is(err, rest.ErrMalformedResponse), errors.Is(err, service.ErrMalformedLoginResponse):
		return http.StatusBadGateway, "bad_gateway", "bad gateway"
	}

	return fromAPIStatus(rest.StatusOf(err))
}

func isAuthError(err error) bool {
	return errors.Is(err, rest.ErrAuthExpired) ||
		errors.Is(err, refresh.ErrNoRefreshToken) ||
		errors.Is(err, refresh.ErrMalformedRefreshResponse) ||
		errors.Is(err, refresh.ErrExchangePanic) ||
		errors.Is(err, session.ErrSessionExpired) ||
		errors.Is(err, session.ErrLoggedOut)
}

// fromAPIStatus - статус удалённого API (0 - ошибка не от API).
func fromAPIStatus(st int) (int, string, string) {
	switch {
	case st == http.StatusBadRequest, st == http.StatusUnprocessableEntity:
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case st == http.StatusForbidden:
		return http.StatusForbidden, "permission_denied", "permission denied"
	case st == http.StatusNotFound:
		return http.StatusNotFound, "not_found", "not found"
	case st == http.StatusConflict:
		return http.StatusConflict, "already_exists", "already exists"
	case st == http.StatusTooManyRequests:
		return http.StatusTooManyRequests, "resource_exhausted", "resource exhausted"
	case st >= 500:
		return http.StatusBadGateway, "bad_gateway", "bad gateway"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}

// WriteError - хелпер для HTTP-хендлеров.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	WriteErrorForm(w, r, err, nil)
}

// WriteErrorForm пишет ошибку вместе с введёнными значениями формы.
// На 401 добавляет Location на экран входа.
func WriteErrorForm(w http.ResponseWriter, r *http.Request, err error, form map[string]string) {
	status, resp := ToHTTP(err)
	resp.Form = form

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	if status == http.StatusUnauthorized {
		w.Header().Set("Location", session.PathSignIn)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
