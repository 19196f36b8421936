package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zRyyH/leiturista-hidro/internal/app"
	"github.com/zRyyH/leiturista-hidro/internal/service"
)

// Handlers агрегирует зависимости хендлеров.
type Handlers struct {
	App *app.App
}

func New(a *app.App) *Handlers {
	return &Handlers{App: a}
}

// writeJSON - единый ответ JSON. Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict - строгий JSON-декодер: неизвестные поля запрещены.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

// pathID - положительный числовой параметр маршрута.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, &service.ValidationError{Field: name, Message: "identificador inválido"}
	}

	return id, nil
}

func errInvalidBody() error {
	return &service.ValidationError{Field: "body", Message: "requisição inválida"}
}
