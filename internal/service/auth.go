package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/zRyyH/leiturista-hidro/internal/auth/session"
	"github.com/zRyyH/leiturista-hidro/internal/clients/rest"
	"github.com/zRyyH/leiturista-hidro/internal/models"
	"github.com/zRyyH/leiturista-hidro/internal/tokenstore"
	logctx "github.com/zRyyH/leiturista-hidro/pkg/log"
	"github.com/zRyyH/leiturista-hidro/pkg/redact"
)

type Auth struct {
	api      AuthAPI
	store    tokenstore.Store
	gate     *session.Gate
	validate *validator.Validate
}

func NewAuth(api AuthAPI, store tokenstore.Store, gate *session.Gate) *Auth {
	return &Auth{api: api, store: store, gate: gate, validate: validator.New()}
}

// Login - вход по e-mail и паролю. Старая сессия очищается до запроса,
// при любой ошибке хранилище остаётся пустым.
func (a *Auth) Login(ctx context.Context, email, password string) (*models.User, error) {
	const op = "service.auth.Login"

	in := models.LoginRequest{Email: strings.TrimSpace(email), Password: password}
	if err := a.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%s: %w", op, loginValidationError(err))
	}

	lg := logctx.From(ctx).With(slog.String("email", redact.Email(in.Email)))

	if err := tokenstore.Clear(ctx, a.store); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res, err := a.api.Login(ctx, in.Email, in.Password)
	if err != nil {
		a.clear(ctx)
		lg.Warn("login_failed", slog.String("err", err.Error()))
		if errors.Is(err, rest.ErrAuthExpired) {
			return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidCredentials, step(MsgLoginFailed, err))
		}
		return nil, fmt.Errorf("%s: %w", op, step(MsgLoginFailed, err))
	}

	if !res.Pair.Complete() {
		a.clear(ctx)
		return nil, fmt.Errorf("%s: %w", op, step(MsgLoginFailed, ErrMalformedLoginResponse))
	}

	if err := tokenstore.SaveSession(ctx, a.store, res.Pair, string(res.User)); err != nil {
		a.clear(ctx)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("login_ok", slog.String("access_token", redact.TokenTail(res.Pair.AccessToken)))

	u, _ := models.ParseUser(string(res.User))

	return u, nil
}

// Logout - отзыв refresh-токена на сервере (по возможности) и очистка сессии.
func (a *Auth) Logout(ctx context.Context) {
	if rt := tokenstore.Lookup(ctx, a.store, tokenstore.KeyRefreshToken); rt != "" {
		if err := a.api.Logout(ctx, rt); err != nil {
			logctx.From(ctx).Warn("logout_revoke_failed", slog.String("err", err.Error()))
		}
	}

	a.gate.Logout(ctx)
}

func (a *Auth) clear(ctx context.Context) {
	if err := tokenstore.Clear(ctx, a.store); err != nil {
		logctx.From(ctx).Warn("login_clear_failed", slog.String("err", err.Error()))
	}
}

func loginValidationError(err error) error {
	field, _ := firstInvalid(err)
	if field == "Password" {
		return &ValidationError{Field: "password", Message: MsgPasswordRequired}
	}

	return &ValidationError{Field: "email", Message: MsgEmailInvalid}
}

// firstInvalid - имя поля и тег первого нарушенного правила.
func firstInvalid(err error) (string, string) {
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		return verrs[0].StructField(), verrs[0].Tag()
	}

	return "", ""
}
