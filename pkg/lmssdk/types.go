package lmssdk

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ID identifies an API resource. The API uses integer keys for most
// resources but the client treats them as opaque, so both JSON strings and
// numbers decode into an ID.
type ID string

func (id ID) String() string { return string(id) }

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*id = ""
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("lmssdk: id must be a string or number: %w", err)
		}
		*id = ID(n.String())
		return nil
	}
}

// MarshalJSON writes integer-looking IDs back as numbers so request bodies
// keep the type the server handed out.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.isInteger() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) isInteger() bool {
	if id == "" || len(id) > 18 {
		return false
	}
	if id[0] == '0' && len(id) > 1 {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}

// Page is a list response. List endpoints answer either with a bare array
// or with an object wrapping the array in "items"; both decode into Page.
type Page[T any] struct {
	Items   []T `json:"items"`
	Total   int `json:"total,omitempty"`
	Page    int `json:"page,omitempty"`
	PerPage int `json:"per_page,omitempty"`
}

func (p *Page[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var items []T
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		*p = Page[T]{Items: items, Total: len(items)}
		return nil
	}

	var raw struct {
		Items   []T `json:"items"`
		Total   int `json:"total"`
		Page    int `json:"page"`
		PerPage int `json:"per_page"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Items == nil {
		raw.Items = []T{}
	}
	*p = Page[T]{Items: raw.Items, Total: raw.Total, Page: raw.Page, PerPage: raw.PerPage}
	return nil
}

// ============================================================================
// Auth
// ============================================================================

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) validate() error {
	if r.Email == "" || r.Password == "" {
		return errors.New("email and password are required")
	}
	return nil
}

// LoginResponse is returned by POST /auth/login.
type LoginResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	Roles        []string `json:"roles"`
}

func (r *LoginResponse) validate() error {
	if r.AccessToken == "" {
		return errors.New("missing access_token")
	}
	if r.RefreshToken == "" {
		return errors.New("missing refresh_token")
	}
	return nil
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r RegisterRequest) validate() error {
	if r.Email == "" || r.Username == "" || r.Password == "" {
		return errors.New("email, username and password are required")
	}
	return nil
}

// RefreshResponse is returned by POST /auth/refresh. Servers that rotate
// refresh tokens also send refresh_token.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

func (r *RefreshResponse) validate() error {
	if r.AccessToken == "" {
		return errors.New("missing access_token")
	}
	return nil
}

// Profile is the current user as returned by GET /auth/profile.
type Profile struct {
	ID        ID         `json:"id"`
	Email     string     `json:"email"`
	Username  string     `json:"username"`
	FullName  string     `json:"full_name,omitempty"`
	Campus    string     `json:"campus,omitempty"`
	Roles     []string   `json:"roles"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

func (p *Profile) validate() error {
	if p.ID == "" {
		return errors.New("missing id")
	}
	if p.Roles == nil {
		p.Roles = []string{}
	}
	return nil
}

// ProfileUpdate is the body of PUT /auth/profile. Empty fields are omitted.
type ProfileUpdate struct {
	Username string `json:"username,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Campus   string `json:"campus,omitempty"`
}

// ============================================================================
// Catalog
// ============================================================================

type Course struct {
	ID           ID     `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	Category     string `json:"category,omitempty"`
	Campus       string `json:"campus,omitempty"`
	Difficulty   string `json:"difficulty,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Published    bool   `json:"published"`
	Approved     bool   `json:"approved"`
}

// CourseInput is the body for creating or updating a course.
type CourseInput struct {
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	Category     string `json:"category,omitempty"`
	Campus       string `json:"campus,omitempty"`
	Difficulty   string `json:"difficulty,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// CourseQuery filters the catalog. Empty fields are not sent.
type CourseQuery struct {
	Campus     string
	Category   string
	Difficulty string
	Search     string
}

type Module struct {
	ID      ID       `json:"id"`
	Title   string   `json:"title"`
	Lessons []Lesson `json:"lessons,omitempty"`
}

type Lesson struct {
	ID      ID     `json:"id"`
	Title   string `json:"title"`
	Type    string `json:"type,omitempty"`
	Content string `json:"content,omitempty"`
	URL     string `json:"url,omitempty"`
}

// ============================================================================
// Learning
// ============================================================================

type Enrollment struct {
	ID       ID      `json:"id"`
	CourseID ID      `json:"course_id"`
	Course   *Course `json:"course,omitempty"`
	Status   string  `json:"status,omitempty"`
	Progress float64 `json:"progress"`
}

type Certification struct {
	ID                ID         `json:"id"`
	CourseID          ID         `json:"course_id,omitempty"`
	CertificationRule string     `json:"certification_rule,omitempty"`
	CertificateURL    string     `json:"certificate_url,omitempty"`
	IssuedAt          *time.Time `json:"issued_at,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
}

type Assessment struct {
	ID    ID         `json:"id"`
	Title string     `json:"title"`
	DueAt *time.Time `json:"due_at,omitempty"`
}

type Question struct {
	ID      ID       `json:"id"`
	Type    string   `json:"type,omitempty"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options,omitempty"`
	Points  float64  `json:"points,omitempty"`
}

// AssessmentSubmission is the body of POST /assessments/{id}/submit, keyed
// by question id.
type AssessmentSubmission struct {
	Answers map[string]any `json:"answers"`
}

type Submission struct {
	ID           ID         `json:"id"`
	AssessmentID ID         `json:"assessment_id,omitempty"`
	Status       string     `json:"status,omitempty"`
	Score        *float64   `json:"score,omitempty"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
}

// Announcement targets either a course or a role; leave the other unset.
type Announcement struct {
	ID       ID     `json:"id,omitempty"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	CourseID *ID    `json:"course_id"`
	RoleName string `json:"role_name,omitempty"`
}

// ============================================================================
// AI
// ============================================================================

// ChatMessage is one turn of an assistant conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Message string        `json:"message"`
	History []ChatMessage `json:"conversation_history"`
}

type ChatResponse struct {
	Response string `json:"response"`
	Status   string `json:"status,omitempty"`
}

type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
}

type GenerateQuizRequest struct {
	LessonID     ID  `json:"lesson_id"`
	NumQuestions int `json:"num_questions"`
}

type GenerateQuizResponse struct {
	Questions []QuizQuestion `json:"questions"`
}

type SaveQuizRequest struct {
	LessonID        ID             `json:"lesson_id"`
	Questions       []QuizQuestion `json:"questions"`
	AssessmentTitle string         `json:"assessment_title"`
	UpdateExisting  bool           `json:"update_existing"`
	AssessmentID    *ID            `json:"assessment_id"`
}

type SaveQuizResponse struct {
	AssessmentID ID     `json:"assessment_id"`
	Message      string `json:"message,omitempty"`
}

type UnpublishQuizRequest struct {
	LessonID         ID   `json:"lesson_id"`
	DeleteAssessment bool `json:"delete_assessment"`
}

// MessageResponse is the generic {"message": "..."} acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}
