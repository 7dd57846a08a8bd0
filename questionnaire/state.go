package questionnaire

import (
	"sort"

	"github.com/mbolis/brand-survey/model"
	"github.com/pkg/errors"
)

var (
	ErrUnknownQuestion = errors.New("unknown question")
	ErrUnknownAnswer   = errors.New("unknown answer for question")
	ErrNoGenericOther  = errors.New("question has a listed other option")
	ErrNoListedOther   = errors.New("question has no listed other option")
)

// QuestionState is what one user picked for one question.
type QuestionState struct {
	Choices   []Choice
	OtherText string
	// Records maps a choice to the join row persisting it.
	Records map[Choice]string
}

func (qs QuestionState) clone() QuestionState {
	out := QuestionState{OtherText: qs.OtherText}
	if len(qs.Choices) > 0 {
		out.Choices = append([]Choice(nil), qs.Choices...)
	}
	if len(qs.Records) > 0 {
		out.Records = make(map[Choice]string, len(qs.Records))
		for c, id := range qs.Records {
			out.Records[c] = id
		}
	}
	return out
}

func (qs QuestionState) empty() bool {
	return len(qs.Choices) == 0 && qs.OtherText == "" && len(qs.Records) == 0
}

func (qs QuestionState) Selected(c Choice) bool {
	for _, x := range qs.Choices {
		if x == c {
			return true
		}
	}
	return false
}

func (qs *QuestionState) add(c Choice) {
	if !qs.Selected(c) {
		qs.Choices = append(qs.Choices, c)
	}
}

func (qs *QuestionState) remove(c Choice) {
	kept := qs.Choices[:0]
	for _, x := range qs.Choices {
		if x != c {
			kept = append(kept, x)
		}
	}
	qs.Choices = kept
	if len(qs.Choices) == 0 {
		qs.Choices = nil
	}
}

func (qs *QuestionState) setRecord(c Choice, id string) {
	if qs.Records == nil {
		qs.Records = map[Choice]string{}
	}
	qs.Records[c] = id
}

func (qs *QuestionState) dropRecord(c Choice) {
	delete(qs.Records, c)
	if len(qs.Records) == 0 {
		qs.Records = nil
	}
}

// State is the selection state of one user's session. It is a value:
// every transition returns a new State and leaves the receiver untouched.
type State struct {
	UserID    string
	questions map[string]QuestionState
}

func NewState(userID string) State {
	return State{UserID: userID}
}

// Question returns a copy of the state of one question.
func (s State) Question(questionID string) QuestionState {
	return s.questions[questionID].clone()
}

func (s State) Choices(questionID string) []Choice {
	return s.Question(questionID).Choices
}

func (s State) Selected(questionID string, c Choice) bool {
	return s.questions[questionID].Selected(c)
}

func (s State) OtherText(questionID string) string {
	return s.questions[questionID].OtherText
}

func (s State) RecordID(questionID string, c Choice) string {
	return s.questions[questionID].Records[c]
}

// RecordIDs lists every join row known for the user, sorted.
func (s State) RecordIDs() []string {
	ids := []string{}
	for _, qs := range s.questions {
		for _, id := range qs.Records {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// QuestionIDs lists the questions holding any state, sorted.
func (s State) QuestionIDs() []string {
	ids := make([]string, 0, len(s.questions))
	for id := range s.questions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s State) with(questionID string, qs QuestionState) State {
	next := State{UserID: s.UserID, questions: make(map[string]QuestionState, len(s.questions)+1)}
	for id, q := range s.questions {
		next.questions[id] = q
	}
	if qs.empty() {
		delete(next.questions, questionID)
	} else {
		next.questions[questionID] = qs
	}
	if len(next.questions) == 0 {
		next.questions = nil
	}
	return next
}

// Hydrate rebuilds a user's state from the join rows belonging to them.
// Rows without a question are ignored.
func Hydrate(userID string, uas []model.UserAnswer) State {
	s := NewState(userID)
	for _, ua := range uas {
		if ua.QuestionID == "" {
			continue
		}
		qs := s.Question(ua.QuestionID)
		if ua.AnswerID != "" {
			c := AnswerChoice(ua.AnswerID)
			qs.add(c)
			qs.setRecord(c, ua.ID)
			if ua.OtherText != "" {
				qs.OtherText = ua.OtherText
			}
		} else {
			qs.add(OtherChoice)
			qs.setRecord(OtherChoice, ua.ID)
			qs.OtherText = ua.OtherText
		}
		s = s.with(ua.QuestionID, qs)
	}
	return s
}

// RecordCreated remembers the join row persisting a choice.
func (s State) RecordCreated(questionID string, c Choice, recordID string) State {
	qs := s.Question(questionID)
	qs.setRecord(c, recordID)
	return s.with(questionID, qs)
}

// RecordDeleted forgets a join row, unless the choice has meanwhile been
// persisted by another row.
func (s State) RecordDeleted(questionID string, c Choice, recordID string) State {
	qs := s.Question(questionID)
	if qs.Records[c] != recordID {
		return s
	}
	qs.dropRecord(c)
	return s.with(questionID, qs)
}
