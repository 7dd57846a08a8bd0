package questionnaire

import (
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

type Kind int

const (
	KindAnswer Kind = iota + 1
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindAnswer:
		return "answer"
	case KindOther:
		return "other"
	}
	return "unknown"
}

// Choice is one selected item of a question: either a listed answer
// or the generic, unlisted "other".
type Choice struct {
	Kind     Kind
	AnswerID string
}

func AnswerChoice(answerID string) Choice {
	return Choice{Kind: KindAnswer, AnswerID: answerID}
}

var OtherChoice = Choice{Kind: KindOther}

func (c Choice) String() string {
	if c.Kind == KindAnswer {
		return "answer:" + c.AnswerID
	}
	return c.Kind.String()
}

type choiceJSON struct {
	Kind     string `json:"kind"`
	AnswerID string `json:"answerId,omitempty"`
}

func (c Choice) MarshalJSON() ([]byte, error) {
	return json.Marshal(choiceJSON{Kind: c.Kind.String(), AnswerID: c.AnswerID})
}

func (c *Choice) UnmarshalJSON(data []byte) error {
	var v choiceJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v.Kind {
	case "answer":
		if v.AnswerID == "" {
			return errors.New("answer choice without answerId")
		}
		*c = AnswerChoice(v.AnswerID)
	case "other":
		*c = OtherChoice
	default:
		return errors.Errorf("unknown choice kind %q", v.Kind)
	}
	return nil
}
