package handlers

import (
	"net/http"

	"github.com/zRyyH/leiturista-hidro/internal/auth/session"
	apierrors "github.com/zRyyH/leiturista-hidro/internal/errors"
	"github.com/zRyyH/leiturista-hidro/internal/models"
	"github.com/zRyyH/leiturista-hidro/internal/tokenstore"
	logctx "github.com/zRyyH/leiturista-hidro/pkg/log"
)

type locationResponse struct {
	Location string `json:"location"`
}

type sessionResponse struct {
	Location    string       `json:"location"`
	User        *models.User `json:"user"`
	DisplayName string       `json:"display_name,omitempty"`
}

func newSessionResponse(u *models.User) sessionResponse {
	out := sessionResponse{Location: session.PathDashboard, User: u}
	if u != nil {
		out.DisplayName = u.DisplayName()
	}

	return out
}

// SignIn - вход на экран логина: остатки прошлой сессии стираются.
func (h *Handlers) SignIn(w http.ResponseWriter, r *http.Request) {
	h.App.StopWatchdog()
	if err := tokenstore.Clear(r.Context(), h.App.Store); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}
	h.App.Location.Enter(session.PathSignIn)

	writeJSON(w, http.StatusOK, locationResponse{Location: session.PathSignIn})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in models.LoginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidBody())
		return
	}

	u, err := h.App.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		apierrors.WriteErrorForm(w, r, err, map[string]string{"email": in.Email})
		return
	}

	h.App.StartWatchdog()
	logctx.From(r.Context()).Debug("watchdog_started_on_login")

	writeJSON(w, http.StatusOK, newSessionResponse(u))
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.App.Logout(r.Context())

	writeJSON(w, http.StatusOK, locationResponse{Location: session.PathSignIn})
}

// Me - снимок пользователя для шапки рабочего экрана.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	u, _ := h.App.Gate.CurrentUser(r.Context())

	writeJSON(w, http.StatusOK, newSessionResponse(u))
}
