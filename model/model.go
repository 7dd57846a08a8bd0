package model

import "time"

type Role string

const (
	RoleOrdinary Role = "ordinary"
	RoleAdmin    Role = "admin"
)

type Section struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Order       int    `json:"order"`
}

type Question struct {
	ID            string `json:"id"`
	SectionID     string `json:"sectionId"`
	Text          string `json:"text"`
	Order         int    `json:"order"`
	AllowMultiple bool   `json:"allowMultiple"`
}

type Answer struct {
	ID          string `json:"id"`
	QuestionID  string `json:"questionId"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	IsOther     bool   `json:"isOther"`
	Order       int    `json:"order"`
}

type User struct {
	ID   string `json:"id"`
	Code string `json:"-"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserAnswer links a user, a question and optionally an answer.
// An empty AnswerID denotes an unlisted "other" selection carried by OtherText.
type UserAnswer struct {
	ID         string `json:"id"`
	UserID     string `json:"userId"`
	QuestionID string `json:"questionId"`
	AnswerID   string `json:"answerId,omitempty"`
	OtherText  string `json:"otherText,omitempty"`
}

type Result struct {
	ID                   string    `json:"id"`
	UserID               string    `json:"userId"`
	CompletionPercentage int       `json:"completionPercentage"`
	SubmittedAt          time.Time `json:"submittedAt"`
	Summary              string    `json:"summary"`
	UserAnswerIDs        []string  `json:"userAnswers"`
}

// Summary is the snapshot serialized into a Result.
type Summary struct {
	User                 string           `json:"user"`
	CompletionPercentage int              `json:"completionPercentage"`
	Answered             int              `json:"answered"`
	Total                int              `json:"total"`
	Sections             []SummarySection `json:"sections"`
}

type SummarySection struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Questions []SummaryQuestion `json:"questions"`
}

type SummaryQuestion struct {
	ID       string          `json:"id"`
	Text     string          `json:"text"`
	Answered bool            `json:"answered"`
	Answers  []SummaryAnswer `json:"answers"`
}

type SummaryAnswer struct {
	ID          string `json:"id,omitempty"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Other       bool   `json:"other,omitempty"`
	Text        string `json:"text,omitempty"`
}
