package session

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/goccy/go-json"
	"github.com/mbolis/brand-survey/airtable"
	"github.com/mbolis/brand-survey/airtable/airtabletest"
	"github.com/mbolis/brand-survey/model"
	"github.com/mbolis/brand-survey/questionnaire"
	"github.com/mbolis/brand-survey/store"
	"github.com/pkg/errors"
)

type fixture struct {
	srv     *airtabletest.Server
	manager *Manager
	ids     map[string]string
}

// newFixture seeds a survey: section s1 with q1 (single: A, B),
// q2 (multi: X, Y, listed Other) and q3 (single: M, generic other).
func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := airtabletest.NewServer()
	t.Cleanup(srv.Close)
	srv.PageSize = 2

	ids := map[string]string{}
	ids["s1"] = srv.Seed("sections", airtable.Fields{"title": "Tone", "order": 1})
	ids["s2"] = srv.Seed("sections", airtable.Fields{"title": "Empty", "order": 2})
	ids["q2"] = srv.Seed("questions", airtable.Fields{"question_text": "Pick many", "order": 2, "allow_multiple": true, "section_id": []string{ids["s1"]}})
	ids["q1"] = srv.Seed("questions", airtable.Fields{"question_text": "Pick one", "order": 1, "section_id": []string{ids["s1"]}})
	ids["q3"] = srv.Seed("questions", airtable.Fields{"question_text": "Pick or specify", "order": 3, "section_id": []string{ids["s1"]}})
	ids["a"] = srv.Seed("answers", airtable.Fields{"option_label": "A", "order": 1, "question_id": []string{ids["q1"]}})
	ids["b"] = srv.Seed("answers", airtable.Fields{"option_label": "B", "order": 2, "question_id": []string{ids["q1"]}})
	ids["x"] = srv.Seed("answers", airtable.Fields{"option_label": "X", "order": 1, "question_id": []string{ids["q2"]}})
	ids["y"] = srv.Seed("answers", airtable.Fields{"option_label": "Y", "order": 2, "question_id": []string{ids["q2"]}})
	ids["o"] = srv.Seed("answers", airtable.Fields{"option_label": "Other", "order": 3, "is_other_option": true, "question_id": []string{ids["q2"]}})
	ids["m"] = srv.Seed("answers", airtable.Fields{"option_label": "M", "order": 1, "question_id": []string{ids["q3"]}})
	ids["ann"] = srv.Seed("users", airtable.Fields{"code": "ann-123", "name": "Ann", "role": "ordinary"})
	ids["bob"] = srv.Seed("users", airtable.Fields{"code": "bob-456", "name": "Bob"})

	st := store.New(srv.Client(), store.DefaultTables())
	m := NewManager(st, jwtauth.New("HS256", []byte("test-secret"), nil), time.Hour)
	return &fixture{srv: srv, manager: m, ids: ids}
}

func (f *fixture) login(t *testing.T, code string) *Session {
	t.Helper()
	sess, token, err := f.manager.Login(context.Background(), code)
	if err != nil {
		t.Fatalf("Login(%q) error = %v", code, err)
	}
	if token == "" {
		t.Fatal("Login() returned an empty token")
	}
	return sess
}

func (f *fixture) rows(questionKey string) []airtable.Record {
	var out []airtable.Record
	for _, rec := range f.srv.Records("user_answers") {
		if rec.Fields.FirstLink("question_id") == f.ids[questionKey] {
			out = append(out, rec)
		}
	}
	return out
}

func TestLoginInvalidCode(t *testing.T) {
	f := newFixture(t)

	for _, code := range []string{"nope", "", "   "} {
		_, _, err := f.manager.Login(context.Background(), code)
		if !errors.Is(err, ErrInvalidCode) {
			t.Errorf("Login(%q) error = %v, want ErrInvalidCode", code, err)
		}
	}
	if n := len(f.srv.Requests()); n != 1 {
		t.Errorf("backend requests = %d, want 1 (blank codes never reach the backend)", n)
	}
}

func TestLoginConnectionError(t *testing.T) {
	f := newFixture(t)

	f.srv.FailOn(http.MethodGet, "users", http.StatusInternalServerError)
	if _, _, err := f.manager.Login(context.Background(), "ann-123"); !errors.Is(err, ErrConnection) {
		t.Errorf("Login() with failing users table error = %v, want ErrConnection", err)
	}

	f.srv.ClearFailures()
	f.srv.FailOn(http.MethodGet, "answers", http.StatusServiceUnavailable)
	if _, _, err := f.manager.Login(context.Background(), "ann-123"); !errors.Is(err, ErrConnection) {
		t.Errorf("Login() with failing answers table error = %v, want ErrConnection", err)
	}
	if f.manager.Count() != 0 {
		t.Errorf("sessions after failed logins = %d", f.manager.Count())
	}
}

func TestLoginLoadsCatalogAcrossPages(t *testing.T) {
	f := newFixture(t)
	sess := f.login(t, "ann-123")

	if got := len(sess.Catalog.Answers); got != 6 {
		t.Errorf("answers loaded = %d, want 6", got)
	}
	if sess.Catalog.Questions[0].ID != f.ids["q1"] {
		t.Errorf("questions not sorted by order: first is %s", sess.Catalog.Questions[0].ID)
	}
	if sess.User.Name != "Ann" || sess.User.Role != model.RoleOrdinary {
		t.Errorf("user = %+v", sess.User)
	}

	v := sess.View()
	if len(v.Sections) != 1 {
		t.Fatalf("view sections = %d, want 1 (empty sections are skipped)", len(v.Sections))
	}
	q3 := v.Sections[0].Questions[2]
	if n := len(q3.Options); n != 2 || q3.Options[1].Choice != questionnaire.OtherChoice {
		t.Errorf("q3 options = %+v, want M plus generic other", q3.Options)
	}
	q2 := v.Sections[0].Questions[1]
	if n := len(q2.Options); n != 3 {
		t.Errorf("q2 options = %d, want 3 (no generic other next to a listed one)", n)
	}
}

func TestSingleSelectSwitch(t *testing.T) {
	f := newFixture(t)
	sess := f.login(t, "ann-123")
	ctx := context.Background()

	if err := sess.ToggleAnswer(ctx, f.ids["q1"], f.ids["a"]); err != nil {
		t.Fatal(err)
	}
	if err := sess.ToggleAnswer(ctx, f.ids["q1"], f.ids["b"]); err != nil {
		t.Fatal(err)
	}

	rows := f.rows("q1")
	if len(rows) != 1 || rows[0].Fields.FirstLink("answer_id") != f.ids["b"] {
		t.Errorf("remote rows = %+v, want exactly one for B", rows)
	}
	choices := sess.State().Choices(f.ids["q1"])
	if len(choices) != 1 || choices[0] != questionnaire.AnswerChoice(f.ids["b"]) {
		t.Errorf("local choices = %v, want [B]", choices)
	}
}

func TestRoundTripAfterRelogin(t *testing.T) {
	f := newFixture(t)
	sess := f.login(t, "ann-123")
	ctx := context.Background()

	steps := []func() error{
		func() error { return sess.ToggleAnswer(ctx, f.ids["q1"], f.ids["a"]) },
		func() error { return sess.ToggleAnswer(ctx, f.ids["q2"], f.ids["x"]) },
		func() error { return sess.ToggleAnswer(ctx, f.ids["q2"], f.ids["o"]) },
		func() error { return sess.SetOtherText(ctx, f.ids["q2"], "teal") },
		func() error { return sess.ToggleAnswer(ctx, f.ids["q2"], f.ids["y"]) },
		func() error { return sess.ToggleAnswer(ctx, f.ids["q2"], f.ids["x"]) },
		func() error { return sess.ToggleGenericOther(ctx, f.ids["q3"]) },
		func() error { return sess.SetGenericOtherText(ctx, f.ids["q3"], "bespoke") },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	// another user's rows must not leak in
	f.srv.Seed("user_answers", airtable.Fields{"user_id": []string{f.ids["bob"]}, "question_id": []string{f.ids["q1"]}, "answer_id": []string{f.ids["b"]}})

	before := sess.State()
	again := f.login(t, "ann-123")
	after := again.State()

	for _, q := range []string{"q1", "q2", "q3"} {
		b, a := before.Question(f.ids[q]), after.Question(f.ids[q])
		if b.OtherText != a.OtherText {
			t.Errorf("%s other text: %q before, %q after", q, b.OtherText, a.OtherText)
		}
		if len(b.Choices) != len(a.Choices) {
			t.Errorf("%s choices: %v before, %v after", q, b.Choices, a.Choices)
			continue
		}
		for _, c := range b.Choices {
			if !a.Selected(c) || a.Records[c] != b.Records[c] {
				t.Errorf("%s choice %s not restored (records %v / %v)", q, c, b.Records, a.Records)
			}
		}
	}
	if len(before.RecordIDs()) != 4 {
		t.Errorf("record ids = %v, want 4", before.RecordIDs())
	}
}

func TestDeleteFailureIsOnlyLogged(t *testing.T) {
	f := newFixture(t)
	sess := f.login(t, "ann-123")
	ctx := context.Background()

	if err := sess.ToggleAnswer(ctx, f.ids["q1"], f.ids["a"]); err != nil {
		t.Fatal(err)
	}
	f.srv.FailOn(http.MethodDelete, "user_answers", http.StatusInternalServerError)

	if err := sess.ToggleAnswer(ctx, f.ids["q1"], f.ids["b"]); err != nil {
		t.Errorf("ToggleAnswer() with failing delete error = %v, want nil", err)
	}
	if n := len(f.rows("q1")); n != 2 {
		t.Errorf("remote rows = %d, want the stale row left behind", n)
	}
}

func TestCreateFailureSurfaces(t *testing.T) {
	f := newFixture(t)
	sess := f.login(t, "ann-123")
	f.srv.FailOn(http.MethodPost, "user_answers", http.StatusUnprocessableEntity)

	err := sess.ToggleAnswer(context.Background(), f.ids["q2"], f.ids["x"])
	if !errors.Is(err, ErrSave) {
		t.Fatalf("ToggleAnswer() error = %v, want ErrSave", err)
	}
	// local state was already updated
	if !sess.State().Selected(f.ids["q2"], questionnaire.AnswerChoice(f.ids["x"])) {
		t.Error("local selection rolled back")
	}
}

func TestUnknownQuestion(t *testing.T) {
	f := newFixture(t)
	sess := f.login(t, "ann-123")
	err := sess.ToggleAnswer(context.Background(), "recNope", f.ids["a"])
	if !errors.Is(err, questionnaire.ErrUnknownQuestion) {
		t.Errorf("error = %v, want ErrUnknownQuestion", err)
	}
}

func TestSubmit(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	f.manager.Now = func() time.Time { return now }
	sess := f.login(t, "ann-123")
	ctx := context.Background()

	if err := sess.ToggleAnswer(ctx, f.ids["q1"], f.ids["b"]); err != nil {
		t.Fatal(err)
	}
	if err := sess.ToggleAnswer(ctx, f.ids["q2"], f.ids["x"]); err != nil {
		t.Fatal(err)
	}

	res, err := sess.Submit(ctx)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if res.CompletionPercentage != 67 {
		t.Errorf("completion = %d, want 67", res.CompletionPercentage)
	}
	if !res.SubmittedAt.Equal(now) {
		t.Errorf("submitted at = %v, want %v", res.SubmittedAt, now)
	}
	if len(res.UserAnswerIDs) != 2 || res.UserID != f.ids["ann"] {
		t.Errorf("result = %+v", res)
	}

	var sum model.Summary
	if err := json.Unmarshal([]byte(res.Summary), &sum); err != nil {
		t.Fatalf("summary is not JSON: %v", err)
	}
	if len(sum.Sections) != 2 || len(sum.Sections[0].Questions) != 3 || !sum.Sections[0].Questions[0].Answered {
		t.Errorf("summary = %+v", sum)
	}
	if got := sum.Sections[0].Questions[0].Answers[0].Label; got != "B" {
		t.Errorf("q1 answer label = %q", got)
	}

	// no idempotency: a second submission is another record
	if _, err := sess.Submit(ctx); err != nil {
		t.Fatal(err)
	}
	if n := len(f.srv.Records("results")); n != 2 {
		t.Errorf("results = %d, want 2", n)
	}
}

func TestSubmitFailureKeepsAnswers(t *testing.T) {
	f := newFixture(t)
	sess := f.login(t, "ann-123")
	ctx := context.Background()

	if err := sess.ToggleAnswer(ctx, f.ids["q1"], f.ids["a"]); err != nil {
		t.Fatal(err)
	}
	f.srv.FailOn(http.MethodPost, "results", http.StatusBadGateway)

	_, err := sess.Submit(ctx)
	if !errors.Is(err, ErrSubmit) {
		t.Fatalf("Submit() error = %v, want ErrSubmit", err)
	}
	if n := len(f.rows("q1")); n != 1 {
		t.Errorf("answer rows = %d, want 1", n)
	}
}

func TestSessionLookupAndExpiry(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	f.manager.Now = func() time.Time { return now }
	sess := f.login(t, "ann-123")

	if got, err := f.manager.Get(sess.ID); err != nil || got != sess {
		t.Fatalf("Get() = %v, %v", got, err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := f.manager.Get(sess.ID); !errors.Is(err, ErrNoSession) {
		t.Errorf("Get() after expiry error = %v, want ErrNoSession", err)
	}

	other := f.login(t, "bob-456")
	f.manager.Logout(other.ID)
	if _, err := f.manager.Get(other.ID); !errors.Is(err, ErrNoSession) {
		t.Errorf("Get() after logout error = %v", err)
	}
}
