package airtable

import (
	"context"
	"net/http"
	"strings"
	"time"

	api "github.com/mehanizm/airtable"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const DefaultURL = "https://api.airtable.com/v0"

// throttling is done by our own limiter; the library's is opened up
const unthrottled = 1000

// Observer is notified after every call to the API.
type Observer interface {
	ObserveCall(table, method string, err error, elapsed time.Duration)
}

// Client talks to the tables of one base through the mehanizm/airtable
// library. It never retries: a failed call is returned to the caller as is.
type Client struct {
	api      *api.Client
	baseID   string
	setupErr error
	limiter  *rate.Limiter
	observer Observer
}

type Option func(*Client)

// WithRateLimit throttles outgoing calls. A non-positive rps disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

func New(apiURL, baseID, apiKey string, opts ...Option) *Client {
	if apiURL == "" {
		apiURL = DefaultURL
	}
	c := &Client{api: api.NewClient(apiKey), baseID: baseID}
	c.api.SetRateLimit(unthrottled)
	if err := c.api.SetBaseURL(strings.TrimRight(apiURL, "/")); err != nil {
		c.setupErr = errors.Wrapf(err, "airtable: base url %q", apiURL)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) table(name string) *api.Table {
	return c.api.GetTable(c.baseID, name)
}

// List fetches one page of a table.
func (c *Client) List(ctx context.Context, table string, opts ListOptions) (page ListResult, err error) {
	err = c.call(ctx, table, http.MethodGet, func() error {
		req := c.table(table).GetRecords()
		if len(opts.Sort) > 0 {
			sorts := make([]struct {
				FieldName string
				Direction string
			}, len(opts.Sort))
			for i, s := range opts.Sort {
				dir := s.Direction
				if dir == "" {
					dir = Asc
				}
				sorts[i].FieldName = s.Field
				sorts[i].Direction = string(dir)
			}
			req = req.WithSort(sorts...)
		}
		if opts.FilterByFormula != "" {
			req = req.WithFilterFormula(opts.FilterByFormula)
		}
		if opts.PageSize > 0 {
			req = req.PageSize(opts.PageSize)
		}
		if opts.Offset != "" {
			req = req.WithOffset(opts.Offset)
		}

		recs, err := req.DoContext(ctx)
		if err != nil {
			return err
		}
		page.Offset = recs.Offset
		page.Records = make([]Record, 0, len(recs.Records))
		for _, r := range recs.Records {
			page.Records = append(page.Records, fromAPI(r))
		}
		return nil
	})
	return
}

func (c *Client) Create(ctx context.Context, table string, fields Fields) (rec Record, err error) {
	err = c.call(ctx, table, http.MethodPost, func() error {
		out, err := c.table(table).AddRecordsContext(ctx, &api.Records{
			Records: []*api.Record{{Fields: fields}},
		})
		if err != nil {
			return err
		}
		rec, err = single(out)
		return err
	})
	return
}

// Update patches the given fields of a record, leaving the others untouched.
func (c *Client) Update(ctx context.Context, table, id string, fields Fields) (rec Record, err error) {
	err = c.call(ctx, table, http.MethodPatch, func() error {
		out, err := c.table(table).UpdateRecordsPartialContext(ctx, &api.Records{
			Records: []*api.Record{{ID: id, Fields: fields}},
		})
		if err != nil {
			return err
		}
		rec, err = single(out)
		return err
	})
	return
}

func (c *Client) Delete(ctx context.Context, table, id string) error {
	return c.call(ctx, table, http.MethodDelete, func() error {
		_, err := c.table(table).DeleteRecordsContext(ctx, []string{id})
		return err
	})
}

// call throttles, runs and observes one API call, translating the
// library's errors into ours.
func (c *Client) call(ctx context.Context, table, method string, run func() error) (err error) {
	start := time.Now()
	if c.observer != nil {
		defer func() { c.observer.ObserveCall(table, method, err, time.Since(start)) }()
	}

	if c.setupErr != nil {
		return c.setupErr
	}
	if c.limiter != nil {
		if err = c.limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, "airtable: rate limit wait")
		}
	}

	if err = run(); err != nil {
		return translateError(method, table, err)
	}
	return nil
}

func fromAPI(r *api.Record) Record {
	rec := Record{ID: r.ID, Fields: Fields(r.Fields)}
	if rec.Fields == nil {
		rec.Fields = Fields{}
	}
	if t, err := time.Parse(time.RFC3339, r.CreatedTime); err == nil {
		rec.CreatedTime = t
	}
	return rec
}

func single(out *api.Records) (Record, error) {
	if out == nil || len(out.Records) != 1 {
		return Record{}, errors.New("airtable: expected exactly one record in response")
	}
	return fromAPI(out.Records[0]), nil
}

// Quote renders a string literal for use in a filter formula.
func Quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
