package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/mbolis/brand-survey/app"
	"github.com/mbolis/brand-survey/httpx"
	"github.com/mbolis/brand-survey/log"
	"github.com/mbolis/brand-survey/routes/middlewares"
	"github.com/mbolis/brand-survey/session"
	"github.com/pkg/errors"
)

const tokenCookie = "jwt"

type loginRequest struct {
	Code string `json:"code" form:"code"`
}

// Login accepts the access code as JSON or as a form field. The token is
// returned in the body and set as a cookie.
func Login(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := loginRequest{}
		err := render.Decode(r, &req)
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		sess, token, err := app.Sessions.Login(r.Context(), req.Code)
		switch {
		case errors.Is(err, session.ErrInvalidCode):
			httpx.LogError(w, r, http.StatusUnauthorized, log.DebugLevel, "login.code", err, session.MsgInvalidCode)
			return
		case errors.Is(err, session.ErrConnection):
			httpx.LogError(w, r, http.StatusBadGateway, log.WarnLevel, "login.backend", err, session.MsgConnection)
			return
		case err != nil:
			httpx.LogInternalError(w, r, "login", err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Path:     "/",
			Name:     tokenCookie,
			Value:    token,
			Expires:  sess.Expires(),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		render.JSON(w, r, map[string]any{
			"token":     token,
			"expiresAt": sess.Expires().UTC().Format(time.RFC3339),
			"user":      sess.User,
		})
	}
}

func Logout(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middlewares.Session(r.Context())
		app.Sessions.Logout(sess.ID)
		log.Infof("session.logout: %s", sess.User.ID)

		http.SetCookie(w, &http.Cookie{
			Path:   "/",
			Name:   tokenCookie,
			Value:  "",
			MaxAge: -1,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}
