package questionnaire

import "github.com/mbolis/brand-survey/model"

// Catalog is the read-only survey content: sections, questions and answer
// options, kept in display order.
type Catalog struct {
	Sections  []model.Section
	Questions []model.Question
	Answers   []model.Answer

	questions  map[string]model.Question
	answers    map[string]model.Answer
	bySection  map[string][]model.Question
	byQuestion map[string][]model.Answer
}

func NewCatalog(sections []model.Section, questions []model.Question, answers []model.Answer) *Catalog {
	c := &Catalog{
		Sections:   sections,
		Questions:  questions,
		Answers:    answers,
		questions:  make(map[string]model.Question, len(questions)),
		answers:    make(map[string]model.Answer, len(answers)),
		bySection:  map[string][]model.Question{},
		byQuestion: map[string][]model.Answer{},
	}
	for _, q := range questions {
		c.questions[q.ID] = q
		c.bySection[q.SectionID] = append(c.bySection[q.SectionID], q)
	}
	for _, a := range answers {
		c.answers[a.ID] = a
		c.byQuestion[a.QuestionID] = append(c.byQuestion[a.QuestionID], a)
	}
	return c
}

func (c *Catalog) Question(id string) (model.Question, bool) {
	q, ok := c.questions[id]
	return q, ok
}

func (c *Catalog) Answer(id string) (model.Answer, bool) {
	a, ok := c.answers[id]
	return a, ok
}

func (c *Catalog) SectionQuestions(sectionID string) []model.Question {
	return c.bySection[sectionID]
}

func (c *Catalog) QuestionAnswers(questionID string) []model.Answer {
	return c.byQuestion[questionID]
}

// HasOtherOption reports whether one of the question's options is flagged
// as the "other" option. Questions without one offer a generic "other".
func (c *Catalog) HasOtherOption(questionID string) bool {
	for _, a := range c.byQuestion[questionID] {
		if a.IsOther {
			return true
		}
	}
	return false
}

// takesText reports whether selecting the choice comes with free text.
func (c *Catalog) takesText(ch Choice) bool {
	if ch.Kind == KindOther {
		return true
	}
	a, ok := c.answers[ch.AnswerID]
	return ok && a.IsOther
}
