package store

import (
	"context"
	"time"

	"github.com/mbolis/brand-survey/airtable"
	"github.com/mbolis/brand-survey/model"
	"github.com/pkg/errors"
)

func (s *Store) CreateResult(ctx context.Context, r model.Result) (model.Result, error) {
	links := r.UserAnswerIDs
	if links == nil {
		links = []string{}
	}
	rec, err := s.backend.Create(ctx, s.tables.Results, airtable.Fields{
		"user_id":               []string{r.UserID},
		"completion_percentage": r.CompletionPercentage,
		"submitted_at":          r.SubmittedAt.UTC().Format(time.RFC3339),
		"summary":               r.Summary,
		"user_answers":          links,
	})
	if err != nil {
		return model.Result{}, errors.Wrap(err, "create result")
	}
	return decodeResult(rec), nil
}

func (s *Store) ListResults(ctx context.Context) ([]model.Result, error) {
	recs, err := s.listAll(ctx, s.tables.Results, airtable.ListOptions{})
	if err != nil {
		return nil, err
	}
	results := make([]model.Result, 0, len(recs))
	for _, rec := range recs {
		results = append(results, decodeResult(rec))
	}
	return results, nil
}

func decodeResult(rec airtable.Record) model.Result {
	submittedAt, _ := time.Parse(time.RFC3339, rec.Fields.String("submitted_at"))
	return model.Result{
		ID:                   rec.ID,
		UserID:               rec.Fields.FirstLink("user_id"),
		CompletionPercentage: rec.Fields.Int("completion_percentage"),
		SubmittedAt:          submittedAt,
		Summary:              rec.Fields.String("summary"),
		UserAnswerIDs:        rec.Fields.Links("user_answers"),
	}
}
