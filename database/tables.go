package database

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofrs/uuid"
	"github.com/mbolis/brand-survey/airtable"
	"github.com/mbolis/brand-survey/log"
	"github.com/pkg/errors"
)

const (
	DefaultPageSize = 100
	idAlphabet      = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	idLength        = 14
)

// Tables serves the tables API contract out of the record table.
type Tables struct {
	db  *sql.DB
	Now func() time.Time
}

func NewTables(db *sql.DB) *Tables {
	return &Tables{db: db, Now: time.Now}
}

func notFound(table, id string) error {
	return &airtable.Error{
		StatusCode: http.StatusNotFound,
		Type:       "NOT_FOUND",
		Message:    "record " + id + " not found in " + table,
	}
}

func unprocessable(typ, msg string) error {
	return &airtable.Error{StatusCode: http.StatusUnprocessableEntity, Type: typ, Message: msg}
}

// fieldPath addresses a top-level key of the fields document.
func fieldPath(field string) string {
	return `$."` + strings.ReplaceAll(field, `"`, `\"`) + `"`
}

func (t *Tables) List(ctx context.Context, table string, opts airtable.ListOptions) (airtable.ListResult, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT id, fields, created_time FROM record WHERE tbl = ?`)
	args := []any{table}

	if opts.FilterByFormula != "" {
		field, value, err := airtable.ParseEquals(opts.FilterByFormula)
		if err != nil {
			return airtable.ListResult{}, unprocessable("INVALID_FILTER_BY_FORMULA", err.Error())
		}
		query.WriteString(` AND CAST(json_extract(fields, ?) AS TEXT) = ?`)
		args = append(args, fieldPath(field), value)
	}

	query.WriteString(` ORDER BY `)
	for _, s := range opts.Sort {
		dir := "ASC"
		if s.Direction == airtable.Desc {
			dir = "DESC"
		}
		query.WriteString(`json_extract(fields, ?) ` + dir + `, `)
		args = append(args, fieldPath(s.Field))
	}
	query.WriteString(`rowid`)

	size := opts.PageSize
	if size <= 0 || size > DefaultPageSize {
		size = DefaultPageSize
	}
	start := 0
	if opts.Offset != "" {
		n, err := strconv.Atoi(opts.Offset)
		if err != nil || n < 0 {
			return airtable.ListResult{}, unprocessable("LIST_RECORDS_ITERATOR_NOT_AVAILABLE", opts.Offset)
		}
		start = n
	}
	// one extra row tells whether another page follows
	query.WriteString(` LIMIT ? OFFSET ?`)
	args = append(args, size+1, start)

	rows, err := t.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return airtable.ListResult{}, errors.Wrap(err, "db.list")
	}
	defer rows.Close()

	res := airtable.ListResult{Records: []airtable.Record{}}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return airtable.ListResult{}, err
		}
		res.Records = append(res.Records, rec)
	}
	if err = rows.Err(); err != nil {
		return airtable.ListResult{}, errors.Wrap(err, "db.list.rows")
	}

	if len(res.Records) > size {
		res.Records = res.Records[:size]
		res.Offset = strconv.Itoa(start + size)
	}
	return res, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (airtable.Record, error) {
	var rec airtable.Record
	var fields string
	if err := row.Scan(&rec.ID, &fields, &rec.CreatedTime); err != nil {
		return rec, errors.Wrap(err, "db.record.scan")
	}
	if err := json.Unmarshal([]byte(fields), &rec.Fields); err != nil {
		return rec, errors.Wrapf(err, "db.record.fields %s", rec.ID)
	}
	rec.CreatedTime = rec.CreatedTime.UTC()
	return rec, nil
}

func (t *Tables) Create(ctx context.Context, table string, fields airtable.Fields) (airtable.Record, error) {
	id, err := newID()
	if err != nil {
		return airtable.Record{}, err
	}
	return t.Insert(ctx, table, id, fields)
}

// Insert stores a record under a chosen identifier.
func (t *Tables) Insert(ctx context.Context, table, id string, fields airtable.Fields) (airtable.Record, error) {
	rec := airtable.Record{
		ID:          id,
		CreatedTime: t.Now().UTC().Truncate(time.Second),
		Fields:      airtable.Fields{},
	}
	for k, v := range fields {
		if v != nil {
			rec.Fields[k] = v
		}
	}

	buf, err := encodeFields(rec.Fields)
	if err != nil {
		return airtable.Record{}, err
	}
	_, err = t.db.ExecContext(ctx, `
		INSERT INTO record (tbl, id, fields, created_time)
		VALUES (?, ?, ?, ?)`,
		table, rec.ID, buf, rec.CreatedTime,
	)
	if err != nil {
		return airtable.Record{}, errors.Wrap(err, "db.insert")
	}

	// hand back the fields the way a read would decode them
	rec.Fields = airtable.Fields{}
	_ = json.Unmarshal([]byte(buf), &rec.Fields)
	return rec, nil
}

// Update merges fields into the record. A nil value clears the field.
func (t *Tables) Update(ctx context.Context, table, id string, fields airtable.Fields) (airtable.Record, error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return airtable.Record{}, errors.Wrap(err, "db.begin_tx")
	}
	defer tx.Rollback()

	rec, err := scanRecord(tx.QueryRowContext(ctx, `
		SELECT id, fields, created_time FROM record
		WHERE tbl = ? AND id = ?`,
		table, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return airtable.Record{}, notFound(table, id)
	}
	if err != nil {
		return airtable.Record{}, err
	}
	if rec.Fields == nil {
		rec.Fields = airtable.Fields{}
	}

	for k, v := range fields {
		if v == nil {
			delete(rec.Fields, k)
		} else {
			rec.Fields[k] = v
		}
	}

	buf, err := encodeFields(rec.Fields)
	if err != nil {
		return airtable.Record{}, err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE record SET fields = ?
		WHERE tbl = ? AND id = ?`,
		buf, table, id,
	)
	if err != nil {
		return airtable.Record{}, errors.Wrap(err, "db.update")
	}
	if err = tx.Commit(); err != nil {
		return airtable.Record{}, errors.Wrap(err, "db.update.commit")
	}

	rec.Fields = airtable.Fields{}
	_ = json.Unmarshal([]byte(buf), &rec.Fields)
	return rec, nil
}

func (t *Tables) Delete(ctx context.Context, table, id string) error {
	res, err := t.db.ExecContext(ctx, `
		DELETE FROM record WHERE tbl = ? AND id = ?`,
		table, id,
	)
	if err != nil {
		return errors.Wrap(err, "db.delete")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "db.delete.verify")
	}
	if n < 1 {
		return notFound(table, id)
	}
	return nil
}

func encodeFields(fields airtable.Fields) (string, error) {
	buf, err := json.Marshal(fields)
	if err != nil {
		return "", errors.Wrap(err, "db.encode_fields")
	}
	return string(buf), nil
}

// newID makes identifiers shaped like the hosted service's: "rec" and
// 14 alphanumerics.
func newID() (string, error) {
	u, err := uuid.NewV4()
	if err != nil {
		return "", errors.Wrap(err, "db.new_id")
	}
	id := make([]byte, 0, 3+idLength)
	id = append(id, "rec"...)
	for _, b := range u.Bytes()[:idLength] {
		id = append(id, idAlphabet[int(b)%len(idAlphabet)])
	}
	return string(id), nil
}

// Fixture maps table names to the records to load into them.
// Records may carry an explicit "id" so that links between them resolve.
type Fixture map[string][]FixtureRecord

type FixtureRecord struct {
	ID     string          `json:"id"`
	Fields airtable.Fields `json:"fields"`
}

// Seed loads fixture records, skipping identifiers already present.
func (t *Tables) Seed(ctx context.Context, fx Fixture) (int, error) {
	n := 0
	for table, recs := range fx {
		for _, r := range recs {
			if r.ID == "" {
				if _, err := t.Create(ctx, table, r.Fields); err != nil {
					return n, err
				}
				n++
				continue
			}

			var exists bool
			err := t.db.QueryRowContext(ctx, `SELECT 1 FROM record WHERE id = ?`, r.ID).Scan(&exists)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return n, errors.Wrap(err, "db.seed.exists")
			}
			if exists {
				log.Debugf("db.seed: %s already present", r.ID)
				continue
			}
			if _, err := t.Insert(ctx, table, r.ID, r.Fields); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

// SeedFile loads a JSON fixture file.
func (t *Tables) SeedFile(ctx context.Context, path string) (int, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.Wrap(err, "db.seed.read")
	}
	var fx Fixture
	if err := json.Unmarshal(buf, &fx); err != nil {
		return 0, errors.Wrapf(err, "db.seed.parse %s", path)
	}
	return t.Seed(ctx, fx)
}
