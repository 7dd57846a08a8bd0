// Package comparison overlays other respondents' stored answers on the
// questionnaire. Up to MaxCompared users can be compared at once; each gets
// a color from a fixed palette, by position in the selection.
package comparison

import (
	"context"
	"strings"
	"sync"

	"github.com/mbolis/brand-survey/log"
	"github.com/mbolis/brand-survey/model"
	"github.com/mbolis/brand-survey/questionnaire"
	"github.com/mbolis/brand-survey/store"
	"github.com/pkg/errors"
)

const MaxCompared = 4

var Palette = []string{
	"#3b82f6", "#ef4444", "#10b981", "#f59e0b",
	"#8b5cf6", "#ec4899", "#06b6d4", "#f97316",
}

const (
	noColor     = "#666"
	unknownName = "Unknown User"
)

var (
	ErrLimit       = errors.Errorf("you can compare up to %d users at a time", MaxCompared)
	ErrUnknownUser = errors.New("user cannot be compared")
	ErrLoad        = errors.New("could not load comparison data")
)

// Source is where users, results and join rows come from.
type Source interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	ListResults(ctx context.Context) ([]model.Result, error)
	ListAllUserAnswers(ctx context.Context) ([]model.UserAnswer, error)
}

// Panel holds one session's comparison selection and the loaded answers
// of the selected users.
type Panel struct {
	source        Source
	currentUserID string

	mu       sync.Mutex
	loaded   bool
	eligible []model.User
	selected []string
	data     map[string]questionnaire.State
}

func NewPanel(source Source, currentUserID string) *Panel {
	return &Panel{source: source, currentUserID: currentUserID}
}

// Eligible lists the users who submitted at least one result, other than
// the current user and admins. The list is loaded once per panel.
func (p *Panel) Eligible(ctx context.Context) ([]model.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.load(ctx); err != nil {
		return nil, err
	}
	return append([]model.User(nil), p.eligible...), nil
}

func (p *Panel) load(ctx context.Context) error {
	if p.loaded {
		return nil
	}

	users, err := p.source.ListUsers(ctx)
	if err != nil {
		return errors.Wrap(err, "comparison: list users")
	}
	results, err := p.source.ListResults(ctx)
	if err != nil {
		return errors.Wrap(err, "comparison: list results")
	}

	submitted := map[string]bool{}
	for _, r := range results {
		if r.UserID != "" && r.UserID != p.currentUserID {
			submitted[r.UserID] = true
		}
	}

	p.eligible = p.eligible[:0]
	for _, u := range users {
		if submitted[u.ID] && !u.IsAdmin() {
			p.eligible = append(p.eligible, u)
		}
	}
	log.Debugf("comparison.load: %d users with submitted results", len(p.eligible))
	p.loaded = true
	return nil
}

func (p *Panel) Selected() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.selected...)
}

// Select adds a user to the comparison and reloads the selected users'
// answers. A fifth user is refused with ErrLimit and nothing changes.
func (p *Panel) Select(ctx context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.load(ctx); err != nil {
		return err
	}
	if indexOf(p.selected, userID) >= 0 {
		return nil
	}
	if p.findUser(userID) == nil {
		return errors.Wrap(ErrUnknownUser, userID)
	}
	if len(p.selected) >= MaxCompared {
		return ErrLimit
	}

	p.selected = append(p.selected, userID)
	return p.refresh(ctx)
}

// Deselect removes a user from the comparison and reloads the others.
func (p *Panel) Deselect(ctx context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := indexOf(p.selected, userID)
	if i < 0 {
		return nil
	}
	p.selected = append(p.selected[:i:i], p.selected[i+1:]...)
	return p.refresh(ctx)
}

// refresh lists the join table once and rebuilds every selected user's state.
func (p *Panel) refresh(ctx context.Context) error {
	if len(p.selected) == 0 {
		p.data = nil
		return nil
	}

	all, err := p.source.ListAllUserAnswers(ctx)
	if err != nil {
		log.Errorf("comparison.refresh: %s", err)
		p.data = nil
		return errors.Wrap(ErrLoad, err.Error())
	}

	idx := store.IndexByUser(all)
	data := make(map[string]questionnaire.State, len(p.selected))
	for _, id := range p.selected {
		data[id] = questionnaire.Hydrate(id, idx[id])
	}
	p.data = data
	log.Debugf("comparison.refresh: loaded answers of %d users", len(data))
	return nil
}

func (p *Panel) findUser(id string) *model.User {
	for i := range p.eligible {
		if p.eligible[i].ID == id {
			return &p.eligible[i]
		}
	}
	return nil
}

func indexOf(ids []string, id string) int {
	for i, x := range ids {
		if x == id {
			return i
		}
	}
	return -1
}

// Color returns the marker color of a selected user.
func (p *Panel) Color(userID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.color(userID)
}

func (p *Panel) color(userID string) string {
	i := indexOf(p.selected, userID)
	if i < 0 {
		return noColor
	}
	return Palette[i%len(Palette)]
}

func (p *Panel) name(userID string) string {
	if u := p.findUser(userID); u != nil && u.Name != "" {
		return u.Name
	}
	return unknownName
}

// Marker tags an option with one compared user who chose it. OtherText
// is only set on "other" options.
type Marker struct {
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	Initial   string `json:"initial"`
	Color     string `json:"color"`
	OtherText string `json:"otherText,omitempty"`
}

func (p *Panel) marker(userID string) Marker {
	name := p.name(userID)
	initial := ""
	if r := []rune(strings.TrimSpace(name)); len(r) > 0 {
		initial = string(r[0])
	}
	return Marker{UserID: userID, Name: name, Initial: initial, Color: p.color(userID)}
}

// markers lists, in selection order, the compared users who chose c.
func (p *Panel) markers(questionID string, c questionnaire.Choice, withText bool) []Marker {
	markers := []Marker{}
	for _, id := range p.selected {
		st, ok := p.data[id]
		if !ok || !st.Selected(questionID, c) {
			continue
		}
		m := p.marker(id)
		if withText {
			m.OtherText = st.OtherText(questionID)
		}
		markers = append(markers, m)
	}
	return markers
}

type OptionOverlay struct {
	Choice  questionnaire.Choice `json:"choice"`
	Markers []Marker             `json:"markers"`
}

type QuestionOverlay struct {
	QuestionID string          `json:"questionId"`
	Options    []OptionOverlay `json:"options"`
}

type Overlay struct {
	Users     []Marker          `json:"users"`
	Questions []QuestionOverlay `json:"questions"`
}

// Overlay annotates every option of the catalog with its markers.
// Questions without a listed other option also get the generic other.
func (p *Panel) Overlay(cat *questionnaire.Catalog) Overlay {
	p.mu.Lock()
	defer p.mu.Unlock()

	ov := Overlay{Users: []Marker{}, Questions: []QuestionOverlay{}}
	for _, id := range p.selected {
		ov.Users = append(ov.Users, p.marker(id))
	}
	if len(p.selected) == 0 {
		return ov
	}

	for _, q := range cat.Questions {
		qo := QuestionOverlay{QuestionID: q.ID, Options: []OptionOverlay{}}
		for _, a := range cat.QuestionAnswers(q.ID) {
			c := questionnaire.AnswerChoice(a.ID)
			qo.Options = append(qo.Options, OptionOverlay{Choice: c, Markers: p.markers(q.ID, c, a.IsOther)})
		}
		if !cat.HasOtherOption(q.ID) {
			qo.Options = append(qo.Options, OptionOverlay{
				Choice:  questionnaire.OtherChoice,
				Markers: p.markers(q.ID, questionnaire.OtherChoice, true),
			})
		}
		ov.Questions = append(ov.Questions, qo)
	}
	return ov
}
