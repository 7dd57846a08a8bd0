package routes

import (
	"net/http"
	"sort"

	"github.com/go-chi/render"
	"github.com/goccy/go-json"
	"github.com/mbolis/brand-survey/app"
	"github.com/mbolis/brand-survey/httpx"
	"github.com/mbolis/brand-survey/log"
	"github.com/mbolis/brand-survey/model"
	"github.com/mbolis/brand-survey/session"
)

type resultView struct {
	model.Result
	Summary *model.Summary `json:"summary,omitempty"`
}

// ListResults returns every recorded completion, newest first, with the
// summaries decoded.
func ListResults(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results, err := app.Store.ListResults(r.Context())
		if err != nil {
			httpx.LogError(w, r, http.StatusBadGateway, log.WarnLevel, "admin.list_results", err, session.MsgConnection)
			return
		}

		sort.SliceStable(results, func(i, j int) bool {
			return results[i].SubmittedAt.After(results[j].SubmittedAt)
		})

		out := make([]resultView, 0, len(results))
		for _, res := range results {
			v := resultView{Result: res}
			if res.Summary != "" {
				sum := model.Summary{}
				if err := json.Unmarshal([]byte(res.Summary), &sum); err != nil {
					log.Warnf("admin.list_results.parse_summary: %s: %s", res.ID, err)
				} else {
					v.Summary = &sum
				}
			}
			out = append(out, v)
		}

		render.JSON(w, r, map[string]any{
			"results": out,
		})
	}
}
