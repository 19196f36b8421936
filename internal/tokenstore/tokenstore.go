// tokenstore - постоянное хранилище сессии клиента: три слота
// (access-токен, refresh-токен, снимок пользователя).
//
// Хранилище не проверяет содержимое слотов: валидацией занимаются
// auth/token и auth/session. Реализации безопасны для конкурентного
// использования; запись нескольких ключей выполняется атомарно.
package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zRyyH/leiturista-hidro/internal/models"
)

// Имена слотов. Совпадают с ключами, которые видит пользователь в хранилище.
const (
	KeyAccessToken  = "authToken"
	KeyRefreshToken = "refreshToken"
	KeyUserData     = "userData"
)

// AllKeys - все слоты сессии.
var AllKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUserData}

var (
	// ErrIncompletePair - попытка записать пару токенов без одной из половин.
	ErrIncompletePair = errors.New("incomplete token pair")

	// ErrClosed - хранилище уже закрыто.
	ErrClosed = errors.New("token store closed")
)

// Store - минимальный контракт хранилища слотов.
type Store interface {
	// Get возвращает значение слота и признак его наличия.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set записывает все пары key/value одной операцией.
	Set(ctx context.Context, kv map[string]string) error
	// Delete удаляет перечисленные слоты; отсутствующие игнорируются.
	Delete(ctx context.Context, keys ...string) error
	// Close освобождает ресурсы бэкенда.
	Close() error
}

// Locker реализуют хранилища, общие для нескольких процессов.
// Lock ждёт, пока блокировка name свободна, и держит её не дольше ttl.
type Locker interface {
	Lock(ctx context.Context, name string, ttl time.Duration) (unlock func(), err error)
}

// Clear очищает все три слота.
func Clear(ctx context.Context, s Store) error {
	const op = "tokenstore.Clear"

	if err := s.Delete(ctx, AllKeys...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SavePair атомарно заменяет обе половины пары.
func SavePair(ctx context.Context, s Store, p models.TokenPair) error {
	const op = "tokenstore.SavePair"

	if !p.Complete() {
		return fmt.Errorf("%s: %w", op, ErrIncompletePair)
	}

	err := s.Set(ctx, map[string]string{
		KeyAccessToken:  p.AccessToken,
		KeyRefreshToken: p.RefreshToken,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SaveSession пишет пару и снимок пользователя одной записью.
// Пустой userJSON удаляет старый снимок.
func SaveSession(ctx context.Context, s Store, p models.TokenPair, userJSON string) error {
	const op = "tokenstore.SaveSession"

	if !p.Complete() {
		return fmt.Errorf("%s: %w", op, ErrIncompletePair)
	}

	kv := map[string]string{
		KeyAccessToken:  p.AccessToken,
		KeyRefreshToken: p.RefreshToken,
	}
	if userJSON != "" {
		kv[KeyUserData] = userJSON
	}

	if err := s.Set(ctx, kv); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if userJSON == "" {
		if err := s.Delete(ctx, KeyUserData); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}

// Lookup - Get без признака наличия: отсутствие и ошибка дают "".
func Lookup(ctx context.Context, s Store, key string) string {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return ""
	}

	return v
}
