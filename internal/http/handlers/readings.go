package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/zRyyH/leiturista-hidro/internal/auth/session"
	apierrors "github.com/zRyyH/leiturista-hidro/internal/errors"
	"github.com/zRyyH/leiturista-hidro/internal/models"
	"github.com/zRyyH/leiturista-hidro/internal/service"
)

// maxPhotoBytes - предел размера фото в форме отправки.
const maxPhotoBytes = 20 << 20

type condominiumsResponse struct {
	Items []models.Condominium `json:"items"`
	// Selected - кондоминиум, выбранный по умолчанию (первый в списке).
	Selected int64 `json:"selected,omitempty"`
}

type readingsResponse struct {
	Items []models.ReadingView `json:"items"`
}

type submitResponse struct {
	Reading  models.ReadingView `json:"reading"`
	Location string             `json:"location"`
}

func (h *Handlers) ListCondominiums(w http.ResponseWriter, r *http.Request) {
	items, err := h.App.Readings.ListCondominiums(r.Context())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := condominiumsResponse{Items: items}
	if len(items) > 0 {
		out.Selected = items[0].ID
	}
	if out.Items == nil {
		out.Items = []models.Condominium{}
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) ListPending(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	items, err := h.App.Readings.ListPending(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := readingsResponse{Items: make([]models.ReadingView, 0, len(items))}
	for _, it := range items {
		out.Items = append(out.Items, models.ReadingViewFrom(it))
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) GetReading(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	rd, err := h.App.Readings.GetReading(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ReadingViewFrom(*rd))
}

// SubmitReading - multipart: "valor" и файл "foto". При ошибке введённое
// значение возвращается в form, чтобы форма его сохранила.
func (h *Handlers) SubmitReading(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoBytes+1<<20)
	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		apierrors.WriteError(w, r, errInvalidBody())
		return
	}

	in := service.SubmitInput{ReadingID: id, Value: r.FormValue("valor")}
	form := map[string]string{"valor": in.Value}

	file, hdr, err := r.FormFile("foto")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// пустое фото отклонит проверка формы
	case err != nil:
		apierrors.WriteErrorForm(w, r, errInvalidBody(), form)
		return
	default:
		defer file.Close()
		in.PhotoName = hdr.Filename
		if in.Photo, err = io.ReadAll(io.LimitReader(file, maxPhotoBytes+1)); err != nil {
			apierrors.WriteErrorForm(w, r, errInvalidBody(), form)
			return
		}
		if len(in.Photo) > maxPhotoBytes {
			apierrors.WriteErrorForm(w, r, &service.ValidationError{Field: "foto", Message: service.MsgPhotoTooLarge}, form)
			return
		}
	}

	rd, err := h.App.Readings.Submit(r.Context(), in)
	if err != nil {
		apierrors.WriteErrorForm(w, r, err, form)
		return
	}

	h.App.Location.Enter(session.PathDashboard)

	writeJSON(w, http.StatusOK, submitResponse{Reading: models.ReadingViewFrom(*rd), Location: session.PathDashboard})
}
