package questionnaire

import (
	"github.com/mbolis/brand-survey/model"
)

const otherLabel = "Other"

// Summarize resolves every question of every section to the choices made.
func Summarize(cat *Catalog, s State, user model.User) model.Summary {
	p := ComputeProgress(cat, s)
	sum := model.Summary{
		User:                 user.Name,
		CompletionPercentage: p.Percent,
		Answered:             p.Answered,
		Total:                p.Total,
		Sections:             make([]model.SummarySection, 0, len(cat.Sections)),
	}

	for _, sec := range cat.Sections {
		ss := model.SummarySection{
			ID:        sec.ID,
			Title:     sec.Title,
			Questions: []model.SummaryQuestion{},
		}
		for _, q := range cat.SectionQuestions(sec.ID) {
			qs := s.questions[q.ID]
			sq := model.SummaryQuestion{
				ID:       q.ID,
				Text:     q.Text,
				Answered: len(qs.Choices) > 0,
				Answers:  []model.SummaryAnswer{},
			}
			for _, c := range qs.Choices {
				sq.Answers = append(sq.Answers, resolve(cat, qs, c))
			}
			ss.Questions = append(ss.Questions, sq)
		}
		sum.Sections = append(sum.Sections, ss)
	}
	return sum
}

func resolve(cat *Catalog, qs QuestionState, c Choice) model.SummaryAnswer {
	if c.Kind == KindOther {
		return model.SummaryAnswer{Label: otherLabel, Other: true, Text: qs.OtherText}
	}
	a, ok := cat.Answer(c.AnswerID)
	if !ok {
		return model.SummaryAnswer{ID: c.AnswerID}
	}
	sa := model.SummaryAnswer{ID: a.ID, Label: a.Label, Description: a.Description}
	if a.IsOther {
		sa.Other = true
		sa.Text = qs.OtherText
	}
	return sa
}
