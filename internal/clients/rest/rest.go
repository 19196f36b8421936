// rest - минимальный JSON/REST клиент к API коллекций с цепочкой
// интерсепторов по образцу клиентских gRPC-интерсепторов.
//
// Один вызов описывается Call; тело хранится байтами, поэтому вызов можно
// безопасно повторить (повтор после 401 делает auth/pipeline).
package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
)

var (
	// ErrAuthExpired - API ответило 401: токен недействителен или истёк.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrNetwork - запрос не дошёл до API или ответ не прочитан.
	ErrNetwork = errors.New("network error")

	// ErrMalformedResponse - 2xx без ожидаемого конверта {data: ...}.
	ErrMalformedResponse = errors.New("malformed response")
)

// APIError - не-2xx ответ API. Message - первое сообщение из {errors:[...]}.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}

	return fmt.Sprintf("api error %d", e.Status)
}

// Is - 401 совпадает с ErrAuthExpired.
func (e *APIError) Is(target error) bool {
	return target == ErrAuthExpired && e.Status == http.StatusUnauthorized
}

// Message - текст ошибки API для показа пользователю либо fallback.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}

	return fallback
}

// StatusOf - HTTP-статус из APIError (0, если ошибка не от API).
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}

	return 0
}

// Call - один запрос к API.
type Call struct {
	Method      string
	Path        string
	Query       url.Values
	Header      http.Header
	Body        []byte
	ContentType string

	// Out - куда декодировать поле data ответа; nil - тело игнорируется.
	Out any

	// Status - код последнего ответа (заполняет транспорт).
	Status int
}

func NewCall(method, path string) *Call {
	return &Call{Method: method, Path: path, Header: make(http.Header)}
}

// JSON - вызов с JSON-телом in (nil - без тела).
func JSON(method, path string, in, out any) (*Call, error) {
	c := NewCall(method, path)
	c.Out = out

	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("rest.JSON: %w", err)
		}
		c.Body = b
		c.ContentType = "application/json"
	}

	return c, nil
}

// Multipart - вызов с одним файлом в поле field.
func Multipart(method, path, field, filename, contentType string, data []byte, out any) (*Call, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("rest.Multipart: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("rest.Multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("rest.Multipart: %w", err)
	}

	c := NewCall(method, path)
	c.Body = buf.Bytes()
	c.ContentType = mw.FormDataContentType()
	c.Out = out

	return c, nil
}

// SetBearer ставит Authorization: Bearer; пустой токен снимает заголовок.
func (c *Call) SetBearer(tok string) {
	if c.Header == nil {
		c.Header = make(http.Header)
	}

	if tok == "" {
		c.Header.Del("Authorization")
		return
	}

	c.Header.Set("Authorization", "Bearer "+tok)
}

// Bearer - токен из заголовка Authorization.
func (c *Call) Bearer() string {
	if c.Header == nil {
		return ""
	}

	return strings.TrimPrefix(c.Header.Get("Authorization"), "Bearer ")
}
