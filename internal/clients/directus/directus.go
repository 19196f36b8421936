// directus - типизированные вызовы API коллекций (auth, items, files).
//
// Клиент не знает о сессии: Bearer и повторы после 401 добавляет цепочка
// authed. Вызовы аутентификации идут через цепочку public без auth/pipeline,
// иначе обновление токена зациклилось бы само на себя.
package directus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/zRyyH/leiturista-hidro/internal/clients/rest"
	"github.com/zRyyH/leiturista-hidro/internal/config"
	"github.com/zRyyH/leiturista-hidro/internal/models"
)

type Client struct {
	authed rest.Invoker
	public rest.Invoker
	ep     config.EndpointsConfig
}

func New(authed, public rest.Invoker, ep config.EndpointsConfig) *Client {
	return &Client{authed: authed, public: public, ep: ep}
}

// Query - параметры выборки items.
type Query struct {
	Filter map[string]any
	Sort   []string
	Fields []string
	Limit  int
}

func (q Query) values() (url.Values, error) {
	v := url.Values{}

	if len(q.Filter) > 0 {
		b, err := json.Marshal(q.Filter)
		if err != nil {
			return nil, err
		}
		v.Set("filter", string(b))
	}
	if len(q.Sort) > 0 {
		v.Set("sort", strings.Join(q.Sort, ","))
	}
	if len(q.Fields) > 0 {
		v.Set("fields", strings.Join(q.Fields, ","))
	}
	if q.Limit != 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}

	return v, nil
}

type authData struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	User         json.RawMessage `json:"user"`
}

// Login - POST /auth/login.
func (c *Client) Login(ctx context.Context, email, password string) (models.LoginResult, error) {
	const op = "directus.Login"

	var out authData
	call, err := rest.JSON(http.MethodPost, c.ep.Login, map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return models.LoginResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := c.public(ctx, call); err != nil {
		return models.LoginResult{}, fmt.Errorf("%s: %w", op, err)
	}

	res := models.LoginResult{Pair: models.TokenPair{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}}
	if u := bytes.TrimSpace(out.User); len(u) > 0 && !bytes.Equal(u, []byte("null")) {
		res.User = u
	}

	return res, nil
}

// RefreshTokens - POST /auth/refresh {refresh_token, mode:"json"}.
func (c *Client) RefreshTokens(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	const op = "directus.RefreshTokens"

	var out authData
	call, err := rest.JSON(http.MethodPost, c.ep.Refresh, map[string]string{
		"refresh_token": refreshToken,
		"mode":          "json",
	}, &out)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := c.public(ctx, call); err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.TokenPair{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}, nil
}

// Logout - POST /auth/logout: отзыв refresh-токена на сервере.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	const op = "directus.Logout"

	call, err := rest.JSON(http.MethodPost, c.ep.Logout, map[string]string{
		"refresh_token": refreshToken,
		"mode":          "json",
	}, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := c.public(ctx, call); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ListItems - GET <collection>?filter&sort&fields&limit, data - массив.
func (c *Client) ListItems(ctx context.Context, collection string, q Query, out any) error {
	const op = "directus.ListItems"

	vals, err := q.values()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	call := rest.NewCall(http.MethodGet, collection)
	call.Query = vals
	call.Out = out

	if err := c.authed(ctx, call); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// GetItem - GET <collection>/<id>.
func (c *Client) GetItem(ctx context.Context, collection string, id int64, fields []string, out any) error {
	const op = "directus.GetItem"

	vals, err := Query{Fields: fields}.values()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	call := rest.NewCall(http.MethodGet, itemPath(collection, id))
	call.Query = vals
	call.Out = out

	if err := c.authed(ctx, call); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// UpdateItem - PATCH <collection>/<id>.
func (c *Client) UpdateItem(ctx context.Context, collection string, id int64, patch, out any) error {
	const op = "directus.UpdateItem"

	call, err := rest.JSON(http.MethodPatch, itemPath(collection, id), patch, out)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := c.authed(ctx, call); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// UploadFile - POST /files multipart (поле "file"), возвращает id файла.
func (c *Client) UploadFile(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	const op = "directus.UploadFile"

	var out struct {
		ID string `json:"id"`
	}
	call, err := rest.Multipart(http.MethodPost, c.ep.Files, "file", filename, contentType, data, &out)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := c.authed(ctx, call); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if out.ID == "" {
		return "", fmt.Errorf("%s: %w: empty file id", op, rest.ErrMalformedResponse)
	}

	return out.ID, nil
}

func itemPath(collection string, id int64) string {
	return strings.TrimRight(collection, "/") + "/" + strconv.FormatInt(id, 10)
}
