// service - сценарии полевого сотрудника поверх API коллекций:
// вход/выход, выбор кондоминиума, список ожидающих показаний и отправка
// показания с фото.
//
// Пакет не держит состояния сессии сам: токены лежат в tokenstore,
// а Bearer и продление добавляет цепочка REST-клиента.
package service

import (
	"context"
	"errors"

	"github.com/zRyyH/leiturista-hidro/internal/clients/directus"
	"github.com/zRyyH/leiturista-hidro/internal/clients/rest"
	"github.com/zRyyH/leiturista-hidro/internal/models"
)

var (
	// ErrValidation - форма не прошла локальную проверку; в сеть не ходили.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidCredentials - API отклонило e-mail/пароль при входе.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrMalformedLoginResponse - вход успешен, но API не вернуло пару токенов.
	ErrMalformedLoginResponse = errors.New("malformed login response")

	// ErrNotFound - запись не найдена или не принадлежит кондоминиуму.
	ErrNotFound = errors.New("not found")
)

// Сообщения для пользователя, если API не прислало своего.
const (
	MsgLoginFailed        = "Falha na autenticação. Verifique suas credenciais."
	MsgCondominiumsFailed = "Erro ao carregar condomínios."
	MsgReadingsFailed     = "Erro ao carregar leituras pendentes."
	MsgReadingFailed      = "Erro ao carregar dados da leitura."
	MsgUploadFailed       = "Erro ao fazer upload da foto."
	MsgUpdateFailed       = "Erro ao atualizar leitura."
	MsgValueRequired      = "Informe o valor da leitura."
	MsgValueInvalid       = "O valor da leitura deve ser um número inteiro não negativo."
	MsgPhotoRequired      = "É necessário enviar uma foto do medidor."
	MsgPhotoInvalid       = "Erro ao processar a foto. Tente novamente."
	MsgPhotoTooLarge      = "A foto excede o tamanho máximo de 20 MB."
	MsgEmailInvalid       = "Informe um e-mail válido."
	MsgPasswordRequired   = "Informe a senha."
)

// AuthAPI - вызовы аутентификации (directus.Client).
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (models.LoginResult, error)
	Logout(ctx context.Context, refreshToken string) error
}

// ItemsAPI - вызовы коллекций и файлов (directus.Client).
type ItemsAPI interface {
	ListItems(ctx context.Context, collection string, q directus.Query, out any) error
	GetItem(ctx context.Context, collection string, id int64, fields []string, out any) error
	UpdateItem(ctx context.Context, collection string, id int64, patch, out any) error
	UploadFile(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

// ValidationError - ошибка конкретного поля формы.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// stepError помечает шаг сценария сообщением по умолчанию.
type stepError struct {
	fallback string
	err      error
}

func (e *stepError) Error() string { return e.err.Error() }

func (e *stepError) Unwrap() error { return e.err }

func step(fallback string, err error) error {
	if err == nil {
		return nil
	}

	return &stepError{fallback: fallback, err: err}
}

// UserMessage - текст ошибки для показа: сообщение поля формы, первое
// сообщение API либо сообщение шага по умолчанию.
func UserMessage(err error, fallback string) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}

	var se *stepError
	if errors.As(err, &se) {
		fallback = se.fallback
	}

	return rest.Message(err, fallback)
}
