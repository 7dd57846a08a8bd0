package questionnaire

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"github.com/mbolis/brand-survey/model"
	"github.com/pkg/errors"
)

// fixture: one section, a single-select question (A, B), a multi-select
// question (X, Y, Other listed) and a single-select question with no listed other.
func testCatalog() *Catalog {
	return NewCatalog(
		[]model.Section{{ID: "s1", Title: "Tone", Order: 1}},
		[]model.Question{
			{ID: "q1", SectionID: "s1", Text: "Pick one", Order: 1},
			{ID: "q2", SectionID: "s1", Text: "Pick many", Order: 2, AllowMultiple: true},
			{ID: "q3", SectionID: "s1", Text: "Pick or specify", Order: 3},
		},
		[]model.Answer{
			{ID: "a", QuestionID: "q1", Label: "A", Order: 1},
			{ID: "b", QuestionID: "q1", Label: "B", Description: "the b one", Order: 2},
			{ID: "x", QuestionID: "q2", Label: "X", Order: 1},
			{ID: "y", QuestionID: "q2", Label: "Y", Order: 2},
			{ID: "o", QuestionID: "q2", Label: "Other", IsOther: true, Order: 3},
			{ID: "m", QuestionID: "q3", Label: "M", Order: 1},
		},
	)
}

// remote is an in-memory join table applying effects the way the session does.
type remote struct {
	seq  int
	rows map[string]model.UserAnswer
	log  []string
}

func newRemote() *remote {
	return &remote{rows: map[string]model.UserAnswer{}}
}

func (r *remote) apply(t *testing.T, s State, effects []Effect) State {
	t.Helper()
	for _, e := range effects {
		r.log = append(r.log, e.Kind.String()+" "+e.Choice.String())
		switch e.Kind {
		case EffectCreate:
			r.seq++
			id := fmt.Sprintf("rec%d", r.seq)
			ua := model.UserAnswer{ID: id, UserID: s.UserID, QuestionID: e.QuestionID, OtherText: e.OtherText}
			if e.Choice.Kind == KindAnswer {
				ua.AnswerID = e.Choice.AnswerID
			}
			r.rows[id] = ua
			s = s.RecordCreated(e.QuestionID, e.Choice, id)
		case EffectTouch:
			if _, ok := r.rows[e.RecordID]; !ok {
				t.Fatalf("touch of missing row %s", e.RecordID)
			}
		case EffectPatchText:
			ua, ok := r.rows[e.RecordID]
			if !ok {
				t.Fatalf("patch of missing row %s", e.RecordID)
			}
			ua.OtherText = e.OtherText
			r.rows[e.RecordID] = ua
		case EffectDelete:
			if _, ok := r.rows[e.RecordID]; !ok {
				t.Fatalf("delete of missing row %s", e.RecordID)
			}
			delete(r.rows, e.RecordID)
			s = s.RecordDeleted(e.QuestionID, e.Choice, e.RecordID)
		}
	}
	return s
}

// table returns rows in creation order, as the tables API would list them.
func (r *remote) table() []model.UserAnswer {
	var out []model.UserAnswer
	for i := 1; i <= r.seq; i++ {
		if ua, ok := r.rows[fmt.Sprintf("rec%d", i)]; ok {
			out = append(out, ua)
		}
	}
	return out
}

func (r *remote) rowsFor(questionID string) []model.UserAnswer {
	var out []model.UserAnswer
	for _, ua := range r.table() {
		if ua.QuestionID == questionID {
			out = append(out, ua)
		}
	}
	return out
}

func mustStep(t *testing.T, r *remote, s State, next State, effects []Effect, err error) State {
	t.Helper()
	if err != nil {
		t.Fatalf("transition error = %v", err)
	}
	return r.apply(t, next, effects)
}

func TestSingleSelectSwitchKeepsOneRow(t *testing.T) {
	cat := testCatalog()
	r := newRemote()
	s := NewState("u1")

	next, effects, err := ToggleAnswer(cat, s, "q1", "a")
	s = mustStep(t, r, s, next, effects, err)
	next, effects, err = ToggleAnswer(cat, s, "q1", "b")
	s = mustStep(t, r, s, next, effects, err)

	if got := s.Choices("q1"); !reflect.DeepEqual(got, []Choice{AnswerChoice("b")}) {
		t.Errorf("choices = %v, want [b]", got)
	}
	rows := r.rowsFor("q1")
	if len(rows) != 1 || rows[0].AnswerID != "b" {
		t.Errorf("remote rows = %+v, want exactly one row for b", rows)
	}
	wantLog := []string{"create answer:a", "delete answer:a", "create answer:b"}
	if !reflect.DeepEqual(r.log, wantLog) {
		t.Errorf("effects = %v, want %v", r.log, wantLog)
	}
}

func TestSingleSelectReselectStillWrites(t *testing.T) {
	cat := testCatalog()
	r := newRemote()
	s := NewState("u1")

	next, effects, err := ToggleAnswer(cat, s, "q1", "a")
	s = mustStep(t, r, s, next, effects, err)
	next, effects, err = ToggleAnswer(cat, s, "q1", "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(effects) != 1 || effects[0].Kind != EffectTouch || effects[0].RecordID != s.RecordID("q1", AnswerChoice("a")) {
		t.Fatalf("effects = %+v, want a single touch of the existing row", effects)
	}
	if !reflect.DeepEqual(next, s) {
		t.Errorf("state changed on reselect: %+v -> %+v", s, next)
	}
}

func TestMultiSelectTogglesIndependently(t *testing.T) {
	cat := testCatalog()
	r := newRemote()
	s := NewState("u1")

	for _, aid := range []string{"x", "y", "x"} {
		next, effects, err := ToggleAnswer(cat, s, "q2", aid)
		s = mustStep(t, r, s, next, effects, err)
	}

	if got := s.Choices("q2"); !reflect.DeepEqual(got, []Choice{AnswerChoice("y")}) {
		t.Errorf("choices = %v, want [y]", got)
	}
	rows := r.rowsFor("q2")
	if len(rows) != 1 || rows[0].AnswerID != "y" {
		t.Errorf("remote rows = %+v, want only y", rows)
	}
}

func TestListedOtherText(t *testing.T) {
	cat := testCatalog()
	r := newRemote()
	s := NewState("u1")

	// text typed before the option is selected stays local
	next, effects, err := SetOtherText(cat, s, "q2", "early")
	if err != nil || len(effects) != 0 {
		t.Fatalf("SetOtherText before selection: effects %v, err %v", effects, err)
	}
	s = next

	next, effects, err = ToggleAnswer(cat, s, "q2", "o")
	s = mustStep(t, r, s, next, effects, err)
	if rows := r.rowsFor("q2"); len(rows) != 1 || rows[0].OtherText != "early" {
		t.Fatalf("created row = %+v, want text carried over", rows)
	}

	next, effects, err = SetOtherText(cat, s, "q2", "later")
	s = mustStep(t, r, s, next, effects, err)
	if rows := r.rowsFor("q2"); rows[0].OtherText != "later" {
		t.Errorf("patched text = %q, want later", rows[0].OtherText)
	}

	next, effects, err = ToggleAnswer(cat, s, "q2", "o")
	s = mustStep(t, r, s, next, effects, err)
	if s.OtherText("q2") != "" {
		t.Errorf("text after deselect = %q, want cleared", s.OtherText("q2"))
	}
	if rows := r.rowsFor("q2"); len(rows) != 0 {
		t.Errorf("rows after deselect = %+v", rows)
	}
}

func TestGenericOther(t *testing.T) {
	cat := testCatalog()
	r := newRemote()
	s := NewState("u1")

	if _, _, err := ToggleGenericOther(cat, s, "q2"); err == nil {
		t.Error("ToggleGenericOther on a question with a listed other should fail")
	}

	next, effects, err := SetGenericOtherText(cat, s, "q3", "draft")
	if err != nil || len(effects) != 0 {
		t.Fatalf("text before toggle: effects %v, err %v", effects, err)
	}
	s = next

	next, effects, err = ToggleAnswer(cat, s, "q3", "m")
	s = mustStep(t, r, s, next, effects, err)

	next, effects, err = ToggleGenericOther(cat, s, "q3")
	s = mustStep(t, r, s, next, effects, err)

	if got := s.Choices("q3"); !reflect.DeepEqual(got, []Choice{OtherChoice}) {
		t.Errorf("choices = %v, want [other]", got)
	}
	rows := r.rowsFor("q3")
	if len(rows) != 1 || rows[0].AnswerID != "" || rows[0].OtherText != "draft" {
		t.Fatalf("rows = %+v, want one generic other row with text", rows)
	}

	next, effects, err = SetGenericOtherText(cat, s, "q3", "final")
	s = mustStep(t, r, s, next, effects, err)
	if r.rowsFor("q3")[0].OtherText != "final" {
		t.Errorf("generic text not patched")
	}

	next, effects, err = ToggleGenericOther(cat, s, "q3")
	s = mustStep(t, r, s, next, effects, err)
	if len(s.Choices("q3")) != 0 || s.OtherText("q3") != "" || len(r.rowsFor("q3")) != 0 {
		t.Errorf("after deselect: choices %v text %q rows %v", s.Choices("q3"), s.OtherText("q3"), r.rowsFor("q3"))
	}
}

func TestUnknownIdentifiers(t *testing.T) {
	cat := testCatalog()
	s := NewState("u1")

	if _, _, err := ToggleAnswer(cat, s, "nope", "a"); err == nil {
		t.Error("unknown question accepted")
	}
	if _, _, err := ToggleAnswer(cat, s, "q1", "x"); err == nil {
		t.Error("answer of another question accepted")
	}
	if _, _, err := SetOtherText(cat, s, "nope", "t"); err == nil {
		t.Error("unknown question accepted by SetOtherText")
	}
}

// Free text only travels through the setter matching the question's kind
// of "other"; the wrong one would change the text without persisting it.
func TestOtherTextSetterMustMatchQuestion(t *testing.T) {
	cat := testCatalog()
	r := newRemote()
	s := NewState("u1")

	next, effects, err := ToggleGenericOther(cat, s, "q3")
	s = mustStep(t, r, s, next, effects, err)
	next, effects, err = SetGenericOtherText(cat, s, "q3", "persisted")
	s = mustStep(t, r, s, next, effects, err)

	next, effects, err = SetOtherText(cat, s, "q3", "changed")
	if !errors.Is(err, ErrNoListedOther) {
		t.Errorf("SetOtherText on generic-other question: err = %v, want ErrNoListedOther", err)
	}
	if len(effects) != 0 || next.OtherText("q3") != "persisted" {
		t.Errorf("rejected SetOtherText changed state: text %q, effects %v", next.OtherText("q3"), effects)
	}

	next, effects, err = ToggleAnswer(cat, s, "q2", "o")
	s = mustStep(t, r, s, next, effects, err)
	next, effects, err = SetOtherText(cat, s, "q2", "listed")
	s = mustStep(t, r, s, next, effects, err)

	next, effects, err = SetGenericOtherText(cat, s, "q2", "changed")
	if !errors.Is(err, ErrNoGenericOther) {
		t.Errorf("SetGenericOtherText on listed-other question: err = %v, want ErrNoGenericOther", err)
	}
	if len(effects) != 0 || next.OtherText("q2") != "listed" {
		t.Errorf("rejected SetGenericOtherText changed state: text %q, effects %v", next.OtherText("q2"), effects)
	}

	if got := Hydrate("u1", r.table()); !sameSelections(got, s) {
		t.Errorf("hydrated %+v, want %+v", got.questions, s.questions)
	}
}

func TestTransitionsDoNotMutateInput(t *testing.T) {
	cat := testCatalog()
	r := newRemote()
	s := NewState("u1")
	next, effects, err := ToggleAnswer(cat, s, "q2", "x")
	s = mustStep(t, r, s, next, effects, err)

	before := s.Question("q2")
	if _, _, err := ToggleAnswer(cat, s, "q2", "y"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ToggleAnswer(cat, s, "q2", "x"); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(before, s.Question("q2")) {
		t.Errorf("input state mutated: %+v -> %+v", before, s.Question("q2"))
	}
}

func TestHydrate(t *testing.T) {
	s := Hydrate("u1", []model.UserAnswer{
		{ID: "r1", UserID: "u1", QuestionID: "q2", AnswerID: "x"},
		{ID: "r2", UserID: "u1", QuestionID: "q2", AnswerID: "o", OtherText: "mine"},
		{ID: "r3", UserID: "u1", QuestionID: "q3"},
		{ID: "r4", UserID: "u1"},
	})

	if got := s.Choices("q2"); !reflect.DeepEqual(got, []Choice{AnswerChoice("x"), AnswerChoice("o")}) {
		t.Errorf("q2 choices = %v", got)
	}
	if s.OtherText("q2") != "mine" || s.RecordID("q2", AnswerChoice("o")) != "r2" {
		t.Errorf("q2 other text %q record %q", s.OtherText("q2"), s.RecordID("q2", AnswerChoice("o")))
	}
	if !s.Selected("q3", OtherChoice) || s.RecordID("q3", OtherChoice) != "r3" || s.OtherText("q3") != "" {
		t.Errorf("q3 generic other not hydrated: %+v", s.Question("q3"))
	}
	if got := s.RecordIDs(); !reflect.DeepEqual(got, []string{"r1", "r2", "r3"}) {
		t.Errorf("record ids = %v", got)
	}
}

// Random toggle sequences must keep the join table consistent with the
// local state, and re-reading the table must rebuild the same state.
func TestRandomSequencesRoundTrip(t *testing.T) {
	cat := testCatalog()
	type op func(State) (State, []Effect, error)
	ops := []op{
		func(s State) (State, []Effect, error) { return ToggleAnswer(cat, s, "q1", "a") },
		func(s State) (State, []Effect, error) { return ToggleAnswer(cat, s, "q1", "b") },
		func(s State) (State, []Effect, error) { return ToggleAnswer(cat, s, "q2", "x") },
		func(s State) (State, []Effect, error) { return ToggleAnswer(cat, s, "q2", "y") },
		func(s State) (State, []Effect, error) { return ToggleAnswer(cat, s, "q2", "o") },
		func(s State) (State, []Effect, error) { return SetOtherText(cat, s, "q2", "typed") },
		func(s State) (State, []Effect, error) { return ToggleAnswer(cat, s, "q3", "m") },
		func(s State) (State, []Effect, error) { return ToggleGenericOther(cat, s, "q3") },
		func(s State) (State, []Effect, error) { return SetGenericOtherText(cat, s, "q3", "bespoke") },
	}

	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 200; run++ {
		r := newRemote()
		s := NewState("u1")
		for step := 0; step < 25; step++ {
			next, effects, err := ops[rng.Intn(len(ops))](s)
			s = mustStep(t, r, s, next, effects, err)

			for _, qid := range []string{"q1", "q3"} {
				if n := len(r.rowsFor(qid)); n > 1 {
					t.Fatalf("run %d step %d: %d rows for single-select %s", run, step, n, qid)
				}
				if n := len(s.Choices(qid)); n > 1 {
					t.Fatalf("run %d step %d: %d local choices for single-select %s", run, step, n, qid)
				}
			}

			remoteSet := map[Choice]bool{}
			for _, ua := range r.rowsFor("q2") {
				remoteSet[AnswerChoice(ua.AnswerID)] = true
			}
			localSet := map[Choice]bool{}
			for _, c := range s.Choices("q2") {
				localSet[c] = true
			}
			if !reflect.DeepEqual(remoteSet, localSet) {
				t.Fatalf("run %d step %d: remote %v != local %v", run, step, remoteSet, localSet)
			}
		}

		// only texts persisted somewhere survive a reload
		for _, qid := range s.QuestionIDs() {
			qs := s.Question(qid)
			persisted := false
			for c := range qs.Records {
				if cat.takesText(c) {
					persisted = true
				}
			}
			if !persisted && qs.OtherText != "" {
				if cat.HasOtherOption(qid) {
					s, _, _ = SetOtherText(cat, s, qid, "")
				} else {
					s, _, _ = SetGenericOtherText(cat, s, qid, "")
				}
			}
		}

		if got := Hydrate("u1", r.table()); !sameSelections(got, s) {
			t.Fatalf("run %d: hydrated %+v, want %+v", run, got.questions, s.questions)
		}
	}
}

func sameSelections(a, b State) bool {
	if !reflect.DeepEqual(a.QuestionIDs(), b.QuestionIDs()) {
		return false
	}
	for _, qid := range a.QuestionIDs() {
		qa, qb := a.Question(qid), b.Question(qid)
		if qa.OtherText != qb.OtherText || !reflect.DeepEqual(qa.Records, qb.Records) {
			return false
		}
		if len(qa.Choices) != len(qb.Choices) {
			return false
		}
		for _, c := range qa.Choices {
			if !qb.Selected(c) {
				return false
			}
		}
	}
	return true
}

func TestPercent(t *testing.T) {
	tests := []struct {
		answered, total, want int
	}{
		{0, 0, 0},
		{0, 7, 0},
		{7, 7, 100},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
	}
	for _, tt := range tests {
		if got := Percent(tt.answered, tt.total); got != tt.want {
			t.Errorf("Percent(%d, %d) = %d, want %d", tt.answered, tt.total, got, tt.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	cat := testCatalog()
	s := Hydrate("u1", []model.UserAnswer{
		{ID: "r1", UserID: "u1", QuestionID: "q1", AnswerID: "b"},
		{ID: "r2", UserID: "u1", QuestionID: "q2", AnswerID: "o", OtherText: "custom"},
		{ID: "r3", UserID: "u1", QuestionID: "q3", OtherText: "free"},
	})

	sum := Summarize(cat, s, model.User{ID: "u1", Name: "Ann"})
	if sum.CompletionPercentage != 100 || sum.Answered != 3 || sum.Total != 3 {
		t.Errorf("progress = %d%% %d/%d", sum.CompletionPercentage, sum.Answered, sum.Total)
	}
	qs := sum.Sections[0].Questions
	if len(qs) != 3 {
		t.Fatalf("questions = %d, want 3", len(qs))
	}
	if a := qs[0].Answers[0]; a.Label != "B" || a.Description != "the b one" {
		t.Errorf("q1 answer = %+v", a)
	}
	if a := qs[1].Answers[0]; !a.Other || a.Text != "custom" || a.Label != "Other" {
		t.Errorf("q2 answer = %+v", a)
	}
	if a := qs[2].Answers[0]; !a.Other || a.Text != "free" || a.ID != "" {
		t.Errorf("q3 answer = %+v", a)
	}

	empty := Summarize(cat, NewState("u1"), model.User{})
	if empty.CompletionPercentage != 0 || empty.Sections[0].Questions[0].Answered {
		t.Errorf("empty summary = %+v", empty)
	}
}
