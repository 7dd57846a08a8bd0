package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mbolis/brand-survey/app"
	"github.com/mbolis/brand-survey/comparison"
	"github.com/mbolis/brand-survey/httpx"
	"github.com/mbolis/brand-survey/log"
	"github.com/mbolis/brand-survey/routes/middlewares"
	"github.com/mbolis/brand-survey/session"
	"github.com/pkg/errors"
)

const msgLimit = "You can compare at most 4 users at a time."

type comparisonUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	Selected bool   `json:"selected"`
}

func ListComparisonUsers(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		panel := middlewares.Session(r.Context()).Comparison()

		users, err := panel.Eligible(r.Context())
		if err != nil {
			httpx.LogError(w, r, http.StatusBadGateway, log.WarnLevel, "comparison.eligible", err, session.MsgConnection)
			return
		}

		selected := panel.Selected()
		isSelected := map[string]bool{}
		for _, id := range selected {
			isSelected[id] = true
		}

		out := make([]comparisonUser, 0, len(users))
		for _, u := range users {
			out = append(out, comparisonUser{
				ID:       u.ID,
				Name:     u.Name,
				Color:    panel.Color(u.ID),
				Selected: isSelected[u.ID],
			})
		}
		render.JSON(w, r, map[string]any{
			"users":    out,
			"selected": selected,
			"max":      comparison.MaxCompared,
		})
	}
}

func SelectComparisonUser(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middlewares.Session(r.Context())
		err := sess.Comparison().Select(r.Context(), chi.URLParam(r, "uid"))
		respondComparison(w, r, sess, "comparison.select", err)
	}
}

func DeselectComparisonUser(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middlewares.Session(r.Context())
		err := sess.Comparison().Deselect(r.Context(), chi.URLParam(r, "uid"))
		respondComparison(w, r, sess, "comparison.deselect", err)
	}
}

func GetComparison(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middlewares.Session(r.Context())
		respondComparison(w, r, sess, "comparison.get", nil)
	}
}

func respondComparison(w http.ResponseWriter, r *http.Request, sess *session.Session, code string, err error) {
	switch {
	case errors.Is(err, comparison.ErrLimit):
		httpx.LogError(w, r, http.StatusConflict, log.DebugLevel, code, err, msgLimit)
		return
	case errors.Is(err, comparison.ErrUnknownUser):
		httpx.LogStatusMsg(w, r, http.StatusNotFound, log.DebugLevel, code, "%s", err)
		return
	case err != nil:
		httpx.LogError(w, r, http.StatusBadGateway, log.WarnLevel, code, err, session.MsgConnection)
		return
	}
	render.JSON(w, r, sess.Comparison().Overlay(sess.Catalog))
}
