package questionnaire

import "github.com/pkg/errors"

type EffectKind int

const (
	// EffectCreate creates the join row of a choice.
	EffectCreate EffectKind = iota + 1
	// EffectTouch patches a join row without changing any field.
	EffectTouch
	// EffectPatchText replaces the free text of a join row.
	EffectPatchText
	// EffectDelete deletes a join row.
	EffectDelete
)

func (k EffectKind) String() string {
	switch k {
	case EffectCreate:
		return "create"
	case EffectTouch:
		return "touch"
	case EffectPatchText:
		return "patch_text"
	case EffectDelete:
		return "delete"
	}
	return "unknown"
}

// Effect is one remote write a transition asks for. Effects of a
// transition must be applied in order.
type Effect struct {
	Kind       EffectKind
	QuestionID string
	Choice     Choice
	RecordID   string
	OtherText  string
}

// ToggleAnswer selects or deselects a listed answer.
//
// Multi-select questions add or remove the answer. Single-select questions
// replace whatever was selected; selecting the current answer again keeps
// the selection and still persists it.
func ToggleAnswer(cat *Catalog, s State, questionID, answerID string) (State, []Effect, error) {
	q, ok := cat.Question(questionID)
	if !ok {
		return s, nil, errors.Wrap(ErrUnknownQuestion, questionID)
	}
	a, ok := cat.Answer(answerID)
	if !ok || a.QuestionID != questionID {
		return s, nil, errors.Wrapf(ErrUnknownAnswer, "%s/%s", questionID, answerID)
	}

	c := AnswerChoice(answerID)
	qs := s.Question(questionID)
	var effects []Effect

	if q.AllowMultiple {
		if qs.Selected(c) {
			qs.remove(c)
			if a.IsOther {
				qs.OtherText = ""
			}
			effects = appendDelete(effects, qs, questionID, c)
			return s.with(questionID, qs), effects, nil
		}
		qs.add(c)
		effects = append(effects, save(qs, questionID, c, a.IsOther))
		return s.with(questionID, qs), effects, nil
	}

	effects = clearOthers(cat, &qs, questionID, c, effects)
	qs.add(c)
	effects = append(effects, save(qs, questionID, c, a.IsOther))
	return s.with(questionID, qs), effects, nil
}

// SetOtherText changes the free text that goes with the question's listed
// "other" option. Only a join row already known is patched.
func SetOtherText(cat *Catalog, s State, questionID, text string) (State, []Effect, error) {
	if _, ok := cat.Question(questionID); !ok {
		return s, nil, errors.Wrap(ErrUnknownQuestion, questionID)
	}
	if !cat.HasOtherOption(questionID) {
		return s, nil, errors.Wrap(ErrNoListedOther, questionID)
	}

	qs := s.Question(questionID)
	qs.OtherText = text

	var effects []Effect
	for _, c := range qs.Choices {
		if c.Kind != KindAnswer || !cat.takesText(c) {
			continue
		}
		if id := qs.Records[c]; id != "" {
			effects = append(effects, Effect{Kind: EffectPatchText, QuestionID: questionID, Choice: c, RecordID: id, OtherText: text})
		}
		break
	}
	return s.with(questionID, qs), effects, nil
}

// ToggleGenericOther selects or deselects the unlisted "other" of a
// question that has no listed other option.
func ToggleGenericOther(cat *Catalog, s State, questionID string) (State, []Effect, error) {
	q, ok := cat.Question(questionID)
	if !ok {
		return s, nil, errors.Wrap(ErrUnknownQuestion, questionID)
	}
	if cat.HasOtherOption(questionID) {
		return s, nil, errors.Wrap(ErrNoGenericOther, questionID)
	}

	qs := s.Question(questionID)
	var effects []Effect

	if qs.Selected(OtherChoice) {
		qs.remove(OtherChoice)
		qs.OtherText = ""
		effects = appendDelete(effects, qs, questionID, OtherChoice)
		return s.with(questionID, qs), effects, nil
	}

	if !q.AllowMultiple {
		effects = clearOthers(cat, &qs, questionID, OtherChoice, effects)
	}
	qs.add(OtherChoice)
	if id := qs.Records[OtherChoice]; id != "" {
		effects = append(effects, Effect{Kind: EffectPatchText, QuestionID: questionID, Choice: OtherChoice, RecordID: id, OtherText: qs.OtherText})
	} else {
		effects = append(effects, Effect{Kind: EffectCreate, QuestionID: questionID, Choice: OtherChoice, OtherText: qs.OtherText})
	}
	return s.with(questionID, qs), effects, nil
}

// SetGenericOtherText changes the text of the unlisted "other". Nothing is
// written until the generic other has a join row.
func SetGenericOtherText(cat *Catalog, s State, questionID, text string) (State, []Effect, error) {
	if _, ok := cat.Question(questionID); !ok {
		return s, nil, errors.Wrap(ErrUnknownQuestion, questionID)
	}
	if cat.HasOtherOption(questionID) {
		return s, nil, errors.Wrap(ErrNoGenericOther, questionID)
	}

	qs := s.Question(questionID)
	qs.OtherText = text

	var effects []Effect
	if id := qs.Records[OtherChoice]; id != "" && qs.Selected(OtherChoice) {
		effects = append(effects, Effect{Kind: EffectPatchText, QuestionID: questionID, Choice: OtherChoice, RecordID: id, OtherText: text})
	}
	return s.with(questionID, qs), effects, nil
}

// clearOthers deselects every choice but keep, deleting their rows.
func clearOthers(cat *Catalog, qs *QuestionState, questionID string, keep Choice, effects []Effect) []Effect {
	for _, c := range append([]Choice(nil), qs.Choices...) {
		if c == keep {
			continue
		}
		qs.remove(c)
		if cat.takesText(c) {
			qs.OtherText = ""
		}
		effects = appendDelete(effects, *qs, questionID, c)
	}
	return effects
}

func appendDelete(effects []Effect, qs QuestionState, questionID string, c Choice) []Effect {
	if id := qs.Records[c]; id != "" {
		effects = append(effects, Effect{Kind: EffectDelete, QuestionID: questionID, Choice: c, RecordID: id})
	}
	return effects
}

func save(qs QuestionState, questionID string, c Choice, takesText bool) Effect {
	text := ""
	if takesText {
		text = qs.OtherText
	}
	if id := qs.Records[c]; id != "" {
		if text != "" {
			return Effect{Kind: EffectPatchText, QuestionID: questionID, Choice: c, RecordID: id, OtherText: text}
		}
		return Effect{Kind: EffectTouch, QuestionID: questionID, Choice: c, RecordID: id}
	}
	return Effect{Kind: EffectCreate, QuestionID: questionID, Choice: c, OtherText: text}
}
