package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/zRyyH/leiturista-hidro/internal/clients/directus"
	"github.com/zRyyH/leiturista-hidro/internal/config"
	"github.com/zRyyH/leiturista-hidro/internal/models"
	"github.com/zRyyH/leiturista-hidro/internal/photo"
	logctx "github.com/zRyyH/leiturista-hidro/pkg/log"
)

// readingFields - показание с раскрытыми счётчиком и квартирой.
var readingFields = []string{"*", "medidor_unidade_id.*", "medidor_unidade_id.unidade_id.*"}

type Readings struct {
	api      ItemsAPI
	ep       config.EndpointsConfig
	status   config.StatusConfig
	photo    *photo.Normalizer
	validate *validator.Validate
}

func NewReadings(api ItemsAPI, ep config.EndpointsConfig, status config.StatusConfig, norm *photo.Normalizer) *Readings {
	if norm == nil {
		norm = photo.New(0, 0)
	}

	return &Readings{api: api, ep: ep, status: status, photo: norm, validate: validator.New()}
}

// ListCondominiums - все кондоминиумы по имени.
func (s *Readings) ListCondominiums(ctx context.Context) ([]models.Condominium, error) {
	const op = "service.readings.ListCondominiums"

	var out []models.Condominium
	q := directus.Query{Sort: []string{"nome"}, Limit: -1}
	if err := s.api.ListItems(ctx, s.ep.Condominiums, q, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, step(MsgCondominiumsFailed, err))
	}

	return out, nil
}

// ListPending - ожидающие показания кондоминиума, новые первыми.
func (s *Readings) ListPending(ctx context.Context, condominiumID int64) ([]models.Reading, error) {
	const op = "service.readings.ListPending"

	if condominiumID <= 0 {
		return nil, fmt.Errorf("%s: %w", op, &ValidationError{Field: "condominio", Message: "Selecione um condomínio."})
	}

	q := directus.Query{
		Filter: map[string]any{
			"_and": []any{
				map[string]any{"status": map[string]any{"_eq": s.status.Pending}},
				map[string]any{"medidor_unidade_id": map[string]any{
					"unidade_id": map[string]any{
						"condominio_id": map[string]any{"_eq": condominiumID},
					},
				}},
			},
		},
		Sort:   []string{"-date_created"},
		Fields: readingFields,
		Limit:  -1,
	}

	var all []models.Reading
	if err := s.api.ListItems(ctx, s.ep.Readings, q, &all); err != nil {
		return nil, fmt.Errorf("%s: %w", op, step(MsgReadingsFailed, err))
	}

	// сервер может проигнорировать вложенный фильтр
	out := make([]models.Reading, 0, len(all))
	for _, r := range all {
		if r.Status == s.status.Pending && r.CondominiumID() == condominiumID {
			out = append(out, r)
		}
	}

	if len(out) != len(all) {
		logctx.From(ctx).Debug("pending_filtered_locally",
			slog.Int("received", len(all)),
			slog.Int("kept", len(out)),
		)
	}

	return out, nil
}

func (s *Readings) GetReading(ctx context.Context, id int64) (*models.Reading, error) {
	const op = "service.readings.GetReading"

	var out models.Reading
	if err := s.api.GetItem(ctx, s.ep.Readings, id, readingFields, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, step(MsgReadingFailed, err))
	}
	if out.ID == 0 {
		return nil, fmt.Errorf("%s: %w", op, step(MsgReadingFailed, ErrNotFound))
	}

	return &out, nil
}

// SubmitInput - данные формы отправки показания.
type SubmitInput struct {
	ReadingID int64
	Value     string `validate:"required,number"`
	Photo     []byte `validate:"required,min=1"`
	PhotoName string
}

// Submit - проверка формы, подготовка и загрузка фото, затем PATCH показания
// со статусом "отправлено". Ошибки формы возвращаются до любого сетевого вызова.
func (s *Readings) Submit(ctx context.Context, in SubmitInput) (*models.Reading, error) {
	const op = "service.readings.Submit"

	value, err := s.validateSubmit(&in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg := logctx.From(ctx).With(slog.Int64("reading_id", in.ReadingID))

	img, err := s.photo.Normalize(bytes.NewReader(in.Photo))
	if err != nil {
		lg.Warn("photo_normalize_failed", slog.String("err", err.Error()))
		if errors.Is(err, photo.ErrNotImage) {
			return nil, fmt.Errorf("%s: %w", op, &ValidationError{Field: "foto", Message: MsgPhotoInvalid})
		}
		return nil, fmt.Errorf("%s: %w", op, step(MsgPhotoInvalid, err))
	}

	fileID, err := s.api.UploadFile(ctx, photoName(in), photo.ContentType, img)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, step(MsgUploadFailed, err))
	}

	lg.Debug("photo_uploaded", slog.String("file_id", fileID), slog.Int("bytes", len(img)))

	patch := models.ReadingUpdate{Value: value, PhotoID: fileID, Status: s.status.Submitted}

	var out models.Reading
	if err := s.api.UpdateItem(ctx, s.ep.Readings, in.ReadingID, patch, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, step(MsgUpdateFailed, err))
	}

	lg.Info("reading_submitted", slog.Int64("value", value))

	return &out, nil
}

func (s *Readings) validateSubmit(in *SubmitInput) (int64, error) {
	if in.ReadingID <= 0 {
		return 0, &ValidationError{Field: "id", Message: MsgReadingFailed}
	}

	in.Value = strings.TrimSpace(in.Value)

	if err := s.validate.Struct(in); err != nil {
		field, tag := firstInvalid(err)
		switch {
		case field == "Photo":
			return 0, &ValidationError{Field: "foto", Message: MsgPhotoRequired}
		case tag == "required":
			return 0, &ValidationError{Field: "valor", Message: MsgValueRequired}
		default:
			return 0, &ValidationError{Field: "valor", Message: MsgValueInvalid}
		}
	}

	value, err := strconv.ParseInt(in.Value, 10, 64)
	if err != nil {
		return 0, &ValidationError{Field: "valor", Message: MsgValueInvalid}
	}

	return value, nil
}

func photoName(in SubmitInput) string {
	base := filepath.Base(in.PhotoName)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "leitura-" + strconv.FormatInt(in.ReadingID, 10)
	}

	return name + ".jpg"
}
