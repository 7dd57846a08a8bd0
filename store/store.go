package store

import (
	"context"

	"github.com/mbolis/brand-survey/airtable"
	"github.com/mbolis/brand-survey/log"
	"github.com/pkg/errors"
)

// Backend is the hosted tables API, or anything that speaks its contract.
type Backend interface {
	List(ctx context.Context, table string, opts airtable.ListOptions) (airtable.ListResult, error)
	Create(ctx context.Context, table string, fields airtable.Fields) (airtable.Record, error)
	Update(ctx context.Context, table, id string, fields airtable.Fields) (airtable.Record, error)
	Delete(ctx context.Context, table, id string) error
}

// Tables names the tables of the base.
type Tables struct {
	Sections    string `env:"AIRTABLE_TABLE_SECTIONS" envDefault:"sections"`
	Questions   string `env:"AIRTABLE_TABLE_QUESTIONS" envDefault:"questions"`
	Answers     string `env:"AIRTABLE_TABLE_ANSWERS" envDefault:"answers"`
	Users       string `env:"AIRTABLE_TABLE_USERS" envDefault:"users"`
	UserAnswers string `env:"AIRTABLE_TABLE_USER_ANSWERS" envDefault:"user_answers"`
	Results     string `env:"AIRTABLE_TABLE_RESULTS" envDefault:"results"`
}

func DefaultTables() Tables {
	return Tables{
		Sections:    "sections",
		Questions:   "questions",
		Answers:     "answers",
		Users:       "users",
		UserAnswers: "user_answers",
		Results:     "results",
	}
}

var ErrNoUser = errors.New("no user with this code")

type Store struct {
	backend Backend
	tables  Tables
}

func New(backend Backend, tables Tables) *Store {
	return &Store{backend, tables}
}

var byOrder = []airtable.Sort{{Field: "order", Direction: airtable.Asc}}

// listAll follows the continuation cursor until the last page.
func (s *Store) listAll(ctx context.Context, table string, opts airtable.ListOptions) ([]airtable.Record, error) {
	var all []airtable.Record
	seen := map[string]bool{}
	opts.Offset = ""
	for {
		page, err := s.backend.List(ctx, table, opts)
		if err != nil {
			return nil, errors.Wrapf(err, "list %s", table)
		}
		all = append(all, page.Records...)
		log.Debugf("store.list_all: %s: fetched %d records so far", table, len(all))

		if page.Offset == "" {
			return all, nil
		}
		if seen[page.Offset] {
			return nil, errors.Errorf("list %s: cursor %q returned twice", table, page.Offset)
		}
		seen[page.Offset] = true
		opts.Offset = page.Offset
	}
}
