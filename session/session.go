package session

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/mbolis/brand-survey/comparison"
	"github.com/mbolis/brand-survey/log"
	"github.com/mbolis/brand-survey/model"
	"github.com/mbolis/brand-survey/questionnaire"
	"github.com/mbolis/brand-survey/store"
	"github.com/pkg/errors"
)

const (
	MsgSave   = "Error saving answer. Please try again."
	MsgSubmit = "Your answers are saved, but the completion summary could not be recorded. Please try again."
)

var (
	ErrSave   = errors.New("answer not saved")
	ErrSubmit = errors.New("completion summary not recorded")
)

// Session is one logged-in user. Operations on a session run one at a time;
// each updates the local state first, then writes through to the backend.
type Session struct {
	ID      string
	User    model.User
	Catalog *questionnaire.Catalog

	store      *store.Store
	now        func() time.Time
	expires    time.Time
	comparison *comparison.Panel

	mu          sync.Mutex
	state       questionnaire.State
	submissions int
}

// State returns the current selection state.
func (s *Session) State() questionnaire.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Expires() time.Time {
	return s.expires
}

func (s *Session) Comparison() *comparison.Panel {
	return s.comparison
}

func (s *Session) Progress() questionnaire.Progress {
	return questionnaire.ComputeProgress(s.Catalog, s.State())
}

func (s *Session) ToggleAnswer(ctx context.Context, questionID, answerID string) error {
	return s.transition(ctx, func(st questionnaire.State) (questionnaire.State, []questionnaire.Effect, error) {
		return questionnaire.ToggleAnswer(s.Catalog, st, questionID, answerID)
	})
}

func (s *Session) SetOtherText(ctx context.Context, questionID, text string) error {
	return s.transition(ctx, func(st questionnaire.State) (questionnaire.State, []questionnaire.Effect, error) {
		return questionnaire.SetOtherText(s.Catalog, st, questionID, text)
	})
}

func (s *Session) ToggleGenericOther(ctx context.Context, questionID string) error {
	return s.transition(ctx, func(st questionnaire.State) (questionnaire.State, []questionnaire.Effect, error) {
		return questionnaire.ToggleGenericOther(s.Catalog, st, questionID)
	})
}

func (s *Session) SetGenericOtherText(ctx context.Context, questionID, text string) error {
	return s.transition(ctx, func(st questionnaire.State) (questionnaire.State, []questionnaire.Effect, error) {
		return questionnaire.SetGenericOtherText(s.Catalog, st, questionID, text)
	})
}

type transitionFunc func(questionnaire.State) (questionnaire.State, []questionnaire.Effect, error)

func (s *Session) transition(ctx context.Context, fn transitionFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, effects, err := fn(s.state)
	if err != nil {
		return err
	}
	s.state = next
	return s.apply(ctx, effects)
}

// apply performs the effects in order. Failed deletes are only logged;
// the first failed create or patch is returned as ErrSave. Local state is
// not rolled back.
func (s *Session) apply(ctx context.Context, effects []questionnaire.Effect) error {
	var saveErr error
	for _, e := range effects {
		switch e.Kind {
		case questionnaire.EffectCreate:
			ua := model.UserAnswer{
				UserID:     s.User.ID,
				QuestionID: e.QuestionID,
				OtherText:  e.OtherText,
			}
			if e.Choice.Kind == questionnaire.KindAnswer {
				ua.AnswerID = e.Choice.AnswerID
			}
			created, err := s.store.CreateUserAnswer(ctx, ua)
			if err != nil {
				log.Errorf("session.save.create: %s %s: %s", e.QuestionID, e.Choice, err)
				saveErr = firstErr(saveErr, err)
				continue
			}
			s.state = s.state.RecordCreated(e.QuestionID, e.Choice, created.ID)
			log.Debugf("session.save.create: %s", created.ID)

		case questionnaire.EffectTouch:
			if err := s.store.TouchUserAnswer(ctx, e.RecordID); err != nil {
				log.Errorf("session.save.touch: %s", err)
				saveErr = firstErr(saveErr, err)
			}

		case questionnaire.EffectPatchText:
			if err := s.store.UpdateOtherText(ctx, e.RecordID, e.OtherText); err != nil {
				log.Errorf("session.save.patch_text: %s", err)
				saveErr = firstErr(saveErr, err)
			}

		case questionnaire.EffectDelete:
			if err := s.store.DeleteUserAnswer(ctx, e.RecordID); err != nil {
				log.Errorf("session.delete: %s", err)
				continue
			}
			s.state = s.state.RecordDeleted(e.QuestionID, e.Choice, e.RecordID)
			log.Debugf("session.delete: %s", e.RecordID)
		}
	}
	if saveErr != nil {
		return errors.Wrap(ErrSave, saveErr.Error())
	}
	return nil
}

func firstErr(prev, err error) error {
	if prev != nil {
		return prev
	}
	return err
}

// Submit records the completion summary. Answers themselves were written
// as they were given, so a failure here only concerns the summary.
// Submitting again creates another Result.
func (s *Session) Submit(ctx context.Context) (model.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := questionnaire.Summarize(s.Catalog, s.state, s.User)
	buf, err := json.Marshal(sum)
	if err != nil {
		return model.Result{}, errors.Wrap(err, "encode summary")
	}

	if s.submissions > 0 {
		log.Warnf("session.submit: %s submits again (%d previous results)", s.User.ID, s.submissions)
	}

	res, err := s.store.CreateResult(ctx, model.Result{
		UserID:               s.User.ID,
		CompletionPercentage: sum.CompletionPercentage,
		SubmittedAt:          s.now().UTC().Truncate(time.Second),
		Summary:              string(buf),
		UserAnswerIDs:        s.state.RecordIDs(),
	})
	if err != nil {
		log.Errorf("session.submit: %s", err)
		return model.Result{}, errors.Wrap(ErrSubmit, err.Error())
	}
	s.submissions++

	log.Infof("session.submit: %s completed %d%%", s.User.ID, sum.CompletionPercentage)
	return res, nil
}
