// token - разбор access-токена без проверки подписи.
//
// Клиент не знает ключей сервера: подпись проверяет API. Здесь решается
// только вопрос "похоже ли это на JWT" и "когда он истекает".
// Ни одна функция пакета не паникует и не возвращает ошибку наружу.
package token

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultThreshold - запас до истечения, при котором токен пора продлевать.
const DefaultThreshold = 300 * time.Second

// ErrDecode - токен не удалось разобрать. Наружу не выходит.
var ErrDecode = errors.New("token decode failed")

// Три base64url-сегмента, подпись может быть пустой.
var structureRe = regexp.MustCompile(`^[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*$`)

var parser = jwt.NewParser()

// IsStructurallyValid - строка имеет форму header.payload.signature.
func IsStructurallyValid(tok string) bool {
	return tok != "" && structureRe.MatchString(tok)
}

// DecodeExpiry достаёт claim exp. Пустой результат на любой битый ввод.
func DecodeExpiry(tok string) (time.Time, bool) {
	exp, err := decodeExpiry(tok)
	if err != nil {
		return time.Time{}, false
	}

	return exp, true
}

func decodeExpiry(tok string) (t time.Time, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			t, err = time.Time{}, ErrDecode
		}
	}()

	// Заголовок и подпись не читаются: exp берётся только из payload.
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return time.Time{}, ErrDecode
	}

	raw, err := parser.DecodeSegment(parts[1])
	if err != nil {
		return time.Time{}, errors.Join(ErrDecode, err)
	}

	var claims struct {
		ExpiresAt *jwt.NumericDate `json:"exp"`
	}
	if err := json.Unmarshal(raw, &claims); err != nil {
		return time.Time{}, errors.Join(ErrDecode, err)
	}

	if claims.ExpiresAt == nil {
		return time.Time{}, ErrDecode
	}

	return claims.ExpiresAt.Time, nil
}

// Inspector - проверка близости истечения с настраиваемым порогом и часами.
type Inspector struct {
	Threshold time.Duration
	Now       func() time.Time
}

// NewInspector; threshold <= 0 заменяется на DefaultThreshold.
func NewInspector(threshold time.Duration) *Inspector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	return &Inspector{Threshold: threshold, Now: time.Now}
}

// IsExpiringSoon - true, если exp не читается или до него меньше порога.
func (i *Inspector) IsExpiringSoon(tok string) bool {
	exp, ok := DecodeExpiry(tok)
	if !ok {
		return true
	}

	return exp.Sub(i.now()) < i.threshold()
}

// TimeLeft - сколько осталось до exp (может быть отрицательным).
func (i *Inspector) TimeLeft(tok string) (time.Duration, bool) {
	exp, ok := DecodeExpiry(tok)
	if !ok {
		return 0, false
	}

	return exp.Sub(i.now()), true
}

func (i *Inspector) now() time.Time {
	if i == nil || i.Now == nil {
		return time.Now()
	}

	return i.Now()
}

func (i *Inspector) threshold() time.Duration {
	if i == nil || i.Threshold <= 0 {
		return DefaultThreshold
	}

	return i.Threshold
}

// IsExpiringSoon - проверка с порогом threshold по текущему времени.
func IsExpiringSoon(tok string, threshold time.Duration) bool {
	return (&Inspector{Threshold: threshold}).IsExpiringSoon(tok)
}
