// session - производное состояние "вошёл / не вошёл" поверх хранилища
// токенов и сторож, который выкидывает на экран входа, когда сессия
// перестала быть валидной.
package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/zRyyH/leiturista-hidro/internal/auth/token"
	"github.com/zRyyH/leiturista-hidro/internal/models"
	"github.com/zRyyH/leiturista-hidro/internal/tokenstore"
	logctx "github.com/zRyyH/leiturista-hidro/pkg/log"
)

var (
	// ErrSessionExpired - сторож обнаружил, что access-токена больше нет
	// или он битый. Сессия уже очищена.
	ErrSessionExpired = errors.New("session expired")

	// ErrLoggedOut - причина перехода на вход при явном выходе.
	ErrLoggedOut = errors.New("logged out")
)

// Gate отвечает на вопрос "аутентифицирован ли пользователь".
type Gate struct {
	store tokenstore.Store
	nav   Navigator
}

func NewGate(store tokenstore.Store, nav Navigator) *Gate {
	return &Gate{store: store, nav: nav}
}

// IsAuthenticated - в хранилище лежит структурно валидный access-токен.
// Битый токен вычищает все три слота.
func (g *Gate) IsAuthenticated(ctx context.Context) bool {
	tok, ok, err := g.store.Get(ctx, tokenstore.KeyAccessToken)
	if err != nil {
		logctx.From(ctx).Warn("session_store_read_failed", slog.String("err", err.Error()))
		return false
	}

	if !ok || tok == "" {
		return false
	}

	if !token.IsStructurallyValid(tok) {
		logctx.From(ctx).Warn("session_token_malformed")
		g.clear(ctx)
		return false
	}

	return true
}

// CurrentUser - снимок пользователя; только для аутентифицированной сессии.
// Битый снимок удаляется из хранилища.
func (g *Gate) CurrentUser(ctx context.Context) (*models.User, bool) {
	if !g.IsAuthenticated(ctx) {
		return nil, false
	}

	raw, ok, err := g.store.Get(ctx, tokenstore.KeyUserData)
	if err != nil || !ok {
		return nil, false
	}

	u, ok := models.ParseUser(raw)
	if !ok {
		logctx.From(ctx).Warn("session_user_snapshot_corrupt")
		if err := g.store.Delete(ctx, tokenstore.KeyUserData); err != nil {
			logctx.From(ctx).Warn("session_store_delete_failed", slog.String("err", err.Error()))
		}
		return nil, false
	}

	return u, true
}

// Logout очищает сессию и уводит на экран входа. Повторный вызов безопасен.
func (g *Gate) Logout(ctx context.Context) {
	g.clear(ctx)

	if g.nav != nil {
		g.nav.ToSignIn(ctx, ErrLoggedOut)
	}
}

func (g *Gate) clear(ctx context.Context) {
	if err := tokenstore.Clear(ctx, g.store); err != nil {
		logctx.From(ctx).Warn("session_clear_failed", slog.String("err", err.Error()))
	}
}
