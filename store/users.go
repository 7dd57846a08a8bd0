package store

import (
	"context"

	"github.com/mbolis/brand-survey/airtable"
	"github.com/mbolis/brand-survey/model"
	"github.com/pkg/errors"
)

// FindUserByCode returns the user owning the access code, or ErrNoUser.
func (s *Store) FindUserByCode(ctx context.Context, code string) (model.User, error) {
	page, err := s.backend.List(ctx, s.tables.Users, airtable.ListOptions{
		FilterByFormula: airtable.Equals("code", code),
		PageSize:        1,
	})
	if err != nil {
		return model.User{}, errors.Wrap(err, "find user by code")
	}
	if len(page.Records) == 0 {
		return model.User{}, ErrNoUser
	}
	return decodeUser(page.Records[0]), nil
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	recs, err := s.listAll(ctx, s.tables.Users, airtable.ListOptions{})
	if err != nil {
		return nil, err
	}
	users := make([]model.User, 0, len(recs))
	for _, rec := range recs {
		users = append(users, decodeUser(rec))
	}
	return users, nil
}

func decodeUser(rec airtable.Record) model.User {
	role := model.RoleOrdinary
	if model.Role(rec.Fields.String("role")) == model.RoleAdmin {
		role = model.RoleAdmin
	}
	return model.User{
		ID:   rec.ID,
		Code: rec.Fields.String("code"),
		Name: rec.Fields.String("name"),
		Role: role,
	}
}
