package store

import (
	"context"

	"github.com/mbolis/brand-survey/airtable"
	"github.com/mbolis/brand-survey/model"
	"github.com/pkg/errors"
)

// ListAllUserAnswers fetches the whole join table.
func (s *Store) ListAllUserAnswers(ctx context.Context) ([]model.UserAnswer, error) {
	recs, err := s.listAll(ctx, s.tables.UserAnswers, airtable.ListOptions{})
	if err != nil {
		return nil, err
	}
	uas := make([]model.UserAnswer, 0, len(recs))
	for _, rec := range recs {
		uas = append(uas, decodeUserAnswer(rec))
	}
	return uas, nil
}

// ListUserAnswers fetches the whole join table and keeps the rows whose
// first user link is userID. Linked-record fields cannot be matched by id
// in a filter formula, so the filtering happens here.
func (s *Store) ListUserAnswers(ctx context.Context, userID string) ([]model.UserAnswer, error) {
	all, err := s.ListAllUserAnswers(ctx)
	if err != nil {
		return nil, err
	}
	return IndexByUser(all)[userID], nil
}

// IndexByUser groups join rows by their user, preserving table order.
func IndexByUser(uas []model.UserAnswer) map[string][]model.UserAnswer {
	idx := map[string][]model.UserAnswer{}
	for _, ua := range uas {
		if ua.UserID == "" {
			continue
		}
		idx[ua.UserID] = append(idx[ua.UserID], ua)
	}
	return idx
}

// CreateUserAnswer stores a join row. Rows without an answer always carry
// other_text, possibly empty; rows with an answer only when text is set.
func (s *Store) CreateUserAnswer(ctx context.Context, ua model.UserAnswer) (model.UserAnswer, error) {
	fields := airtable.Fields{
		"user_id":     []string{ua.UserID},
		"question_id": []string{ua.QuestionID},
	}
	if ua.AnswerID != "" {
		fields["answer_id"] = []string{ua.AnswerID}
	}
	if ua.AnswerID == "" || ua.OtherText != "" {
		fields["other_text"] = ua.OtherText
	}

	rec, err := s.backend.Create(ctx, s.tables.UserAnswers, fields)
	if err != nil {
		return model.UserAnswer{}, errors.Wrap(err, "create user answer")
	}
	return decodeUserAnswer(rec), nil
}

func (s *Store) UpdateOtherText(ctx context.Context, id, text string) error {
	_, err := s.backend.Update(ctx, s.tables.UserAnswers, id, airtable.Fields{"other_text": text})
	return errors.Wrapf(err, "update user answer %s", id)
}

// TouchUserAnswer issues an empty patch, leaving the row as it is.
func (s *Store) TouchUserAnswer(ctx context.Context, id string) error {
	_, err := s.backend.Update(ctx, s.tables.UserAnswers, id, airtable.Fields{})
	return errors.Wrapf(err, "touch user answer %s", id)
}

func (s *Store) DeleteUserAnswer(ctx context.Context, id string) error {
	return errors.Wrapf(s.backend.Delete(ctx, s.tables.UserAnswers, id), "delete user answer %s", id)
}

func decodeUserAnswer(rec airtable.Record) model.UserAnswer {
	return model.UserAnswer{
		ID:         rec.ID,
		UserID:     rec.Fields.FirstLink("user_id"),
		QuestionID: rec.Fields.FirstLink("question_id"),
		AnswerID:   rec.Fields.FirstLink("answer_id"),
		OtherText:  rec.Fields.String("other_text"),
	}
}
