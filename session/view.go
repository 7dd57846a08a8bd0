package session

import (
	"github.com/mbolis/brand-survey/model"
	"github.com/mbolis/brand-survey/questionnaire"
)

type View struct {
	User     model.User             `json:"user"`
	Progress questionnaire.Progress `json:"progress"`
	Sections []SectionView          `json:"sections"`
}

type SectionView struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Questions   []QuestionView `json:"questions"`
}

type QuestionView struct {
	ID            string       `json:"id"`
	Text          string       `json:"text"`
	AllowMultiple bool         `json:"allowMultiple"`
	Options       []OptionView `json:"options"`
	OtherText     string       `json:"otherText,omitempty"`
}

type OptionView struct {
	Choice      questionnaire.Choice `json:"choice"`
	Label       string               `json:"label"`
	Description string               `json:"description,omitempty"`
	IsOther     bool                 `json:"isOther"`
	Selected    bool                 `json:"selected"`
}

const genericOtherLabel = "Other"

// View renders the catalog with the session's selections. Sections without
// questions are left out; questions without a listed other option get the
// generic one last.
func (s *Session) View() View {
	st := s.State()
	v := View{
		User:     s.User,
		Progress: questionnaire.ComputeProgress(s.Catalog, st),
		Sections: []SectionView{},
	}

	for _, sec := range s.Catalog.Sections {
		questions := s.Catalog.SectionQuestions(sec.ID)
		if len(questions) == 0 {
			continue
		}
		sv := SectionView{ID: sec.ID, Title: sec.Title, Description: sec.Description}
		for _, q := range questions {
			sv.Questions = append(sv.Questions, s.questionView(st, q))
		}
		v.Sections = append(v.Sections, sv)
	}
	return v
}

// Question renders a single question, as returned after an interaction.
func (s *Session) Question(questionID string) (QuestionView, bool) {
	q, ok := s.Catalog.Question(questionID)
	if !ok {
		return QuestionView{}, false
	}
	return s.questionView(s.State(), q), true
}

func (s *Session) questionView(st questionnaire.State, q model.Question) QuestionView {
	qv := QuestionView{
		ID:            q.ID,
		Text:          q.Text,
		AllowMultiple: q.AllowMultiple,
		OtherText:     st.OtherText(q.ID),
		Options:       []OptionView{},
	}
	for _, a := range s.Catalog.QuestionAnswers(q.ID) {
		c := questionnaire.AnswerChoice(a.ID)
		qv.Options = append(qv.Options, OptionView{
			Choice:      c,
			Label:       a.Label,
			Description: a.Description,
			IsOther:     a.IsOther,
			Selected:    st.Selected(q.ID, c),
		})
	}
	if !s.Catalog.HasOtherOption(q.ID) {
		qv.Options = append(qv.Options, OptionView{
			Choice:   questionnaire.OtherChoice,
			Label:    genericOtherLabel,
			IsOther:  true,
			Selected: st.Selected(q.ID, questionnaire.OtherChoice),
		})
	}
	return qv
}
