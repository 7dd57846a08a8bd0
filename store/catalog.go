package store

import (
	"context"

	"github.com/mbolis/brand-survey/airtable"
	"github.com/mbolis/brand-survey/model"
)

func (s *Store) ListSections(ctx context.Context) ([]model.Section, error) {
	recs, err := s.listAll(ctx, s.tables.Sections, airtable.ListOptions{Sort: byOrder})
	if err != nil {
		return nil, err
	}
	sections := make([]model.Section, 0, len(recs))
	for _, rec := range recs {
		sections = append(sections, model.Section{
			ID:          rec.ID,
			Title:       rec.Fields.String("title"),
			Description: rec.Fields.String("description"),
			Order:       rec.Fields.Int("order"),
		})
	}
	return sections, nil
}

func (s *Store) ListQuestions(ctx context.Context) ([]model.Question, error) {
	recs, err := s.listAll(ctx, s.tables.Questions, airtable.ListOptions{Sort: byOrder})
	if err != nil {
		return nil, err
	}
	questions := make([]model.Question, 0, len(recs))
	for _, rec := range recs {
		questions = append(questions, model.Question{
			ID:            rec.ID,
			SectionID:     rec.Fields.FirstLink("section_id"),
			Text:          rec.Fields.String("question_text"),
			Order:         rec.Fields.Int("order"),
			AllowMultiple: rec.Fields.Bool("allow_multiple"),
		})
	}
	return questions, nil
}

// ListAnswers returns every answer option of every question, across all pages.
func (s *Store) ListAnswers(ctx context.Context) ([]model.Answer, error) {
	recs, err := s.listAll(ctx, s.tables.Answers, airtable.ListOptions{Sort: byOrder})
	if err != nil {
		return nil, err
	}
	answers := make([]model.Answer, 0, len(recs))
	for _, rec := range recs {
		answers = append(answers, model.Answer{
			ID:          rec.ID,
			QuestionID:  rec.Fields.FirstLink("question_id"),
			Label:       rec.Fields.String("option_label"),
			Description: rec.Fields.String("option_description"),
			IsOther:     rec.Fields.Bool("is_other_option"),
			Order:       rec.Fields.Int("order"),
		})
	}
	return answers, nil
}
