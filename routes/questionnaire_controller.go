package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mbolis/brand-survey/app"
	"github.com/mbolis/brand-survey/httpx"
	"github.com/mbolis/brand-survey/log"
	"github.com/mbolis/brand-survey/questionnaire"
	"github.com/mbolis/brand-survey/routes/middlewares"
	"github.com/mbolis/brand-survey/session"
	"github.com/pkg/errors"
)

type textRequest struct {
	Text string `json:"text" form:"text"`
}

func GetQuestionnaire(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middlewares.Session(r.Context())
		render.JSON(w, r, sess.View())
	}
}

func GetProgress(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middlewares.Session(r.Context())
		render.JSON(w, r, sess.Progress())
	}
}

func ToggleAnswer(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middlewares.Session(r.Context())
		qid := chi.URLParam(r, "qid")

		err := sess.ToggleAnswer(r.Context(), qid, chi.URLParam(r, "aid"))
		respondQuestion(w, r, sess, qid, "sync.toggle_answer", err)
	}
}

func SetOtherText(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middlewares.Session(r.Context())
		qid := chi.URLParam(r, "qid")

		req := textRequest{}
		if err := render.Decode(r, &req); err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		err := sess.SetOtherText(r.Context(), qid, req.Text)
		respondQuestion(w, r, sess, qid, "sync.other_text", err)
	}
}

func ToggleGenericOther(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middlewares.Session(r.Context())
		qid := chi.URLParam(r, "qid")

		err := sess.ToggleGenericOther(r.Context(), qid)
		respondQuestion(w, r, sess, qid, "sync.toggle_other", err)
	}
}

func SetGenericOtherText(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middlewares.Session(r.Context())
		qid := chi.URLParam(r, "qid")

		req := textRequest{}
		if err := render.Decode(r, &req); err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		err := sess.SetGenericOtherText(r.Context(), qid, req.Text)
		respondQuestion(w, r, sess, qid, "sync.generic_other_text", err)
	}
}

// respondQuestion answers an interaction with the question as it now
// stands and the overall progress.
func respondQuestion(w http.ResponseWriter, r *http.Request, sess *session.Session, qid, code string, err error) {
	switch {
	case errors.Is(err, questionnaire.ErrUnknownQuestion),
		errors.Is(err, questionnaire.ErrUnknownAnswer),
		errors.Is(err, questionnaire.ErrNoGenericOther),
		errors.Is(err, questionnaire.ErrNoListedOther):
		httpx.LogStatusMsg(w, r, http.StatusNotFound, log.DebugLevel, code, "%s", err)
		return
	case errors.Is(err, session.ErrSave):
		httpx.LogError(w, r, http.StatusBadGateway, log.WarnLevel, code, err, session.MsgSave)
		return
	case err != nil:
		httpx.LogInternalError(w, r, code, err)
		return
	}

	qv, ok := sess.Question(qid)
	if !ok {
		httpx.LogNotFound(w, r, code, qid)
		return
	}
	render.JSON(w, r, map[string]any{
		"question": qv,
		"progress": sess.Progress(),
	})
}

func Submit(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middlewares.Session(r.Context())

		res, err := sess.Submit(r.Context())
		switch {
		case errors.Is(err, session.ErrSubmit):
			httpx.LogError(w, r, http.StatusBadGateway, log.WarnLevel, "sync.submit", err, session.MsgSubmit)
			return
		case err != nil:
			httpx.LogInternalError(w, r, "sync.submit", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, res)
	}
}
