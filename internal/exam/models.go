package exam

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Question struct {
	ID            int64             `json:"id"`
	Content       string            `json:"content" validate:"required"`
	Type          string            `json:"type,omitempty" validate:"omitempty,oneof=mcq_single true_false"`
	Options       map[string]string `json:"options,omitempty"` // "A".."D" or arbitrary keys
	CorrectAnswer string            `json:"correct_answer,omitempty" validate:"required"`
	CreatedBy     int64             `json:"created_by"`
	CreatedAt     time.Time         `json:"created_at"`
}

// QuestionLink attaches a question to an exam with its point value.
type QuestionLink struct {
	QuestionID int64   `json:"question_id" validate:"gt=0"`
	Points     float64 `json:"points" validate:"gte=0"`
}

type Exam struct {
	ID               int64          `json:"id"`
	Title            string         `json:"title" validate:"required"`
	Description      string         `json:"description,omitempty"`
	DurationMinutes  int            `json:"duration_minutes" validate:"gte=0"`
	StartTime        *time.Time     `json:"start_time,omitempty"`
	EndTime          *time.Time     `json:"end_time,omitempty"`
	Password         string         `json:"password,omitempty"` // plaintext on write only
	HasPassword      bool           `json:"has_password"`
	AllowViewAnswers bool           `json:"allow_view_answers"`
	OwnerID          int64          `json:"owner_id"`
	Questions        []QuestionLink `json:"questions" validate:"dive"`
	CreatedAt        time.Time      `json:"created_at"`

	passwordHash string
}

// PublicQuestion is a question as shown to a student taking the exam.
type PublicQuestion struct {
	ID      int64             `json:"id"`
	Content string            `json:"content"`
	Options map[string]string `json:"options,omitempty"`
	Points  float64           `json:"points"`
}

// ExamView is the student-safe rendering of an exam: no answer keys and no
// password material.
type ExamView struct {
	ID              int64            `json:"id"`
	Title           string           `json:"title"`
	Description     string           `json:"description,omitempty"`
	DurationMinutes int              `json:"duration_minutes"`
	StartTime       *time.Time       `json:"start_time,omitempty"`
	EndTime         *time.Time       `json:"end_time,omitempty"`
	HasPassword     bool             `json:"has_password"`
	Questions       []PublicQuestion `json:"questions"`
}

// CheckPassword reports whether pw opens the exam. Exams without a
// password accept anything.
func (e Exam) CheckPassword(pw string) bool {
	if e.passwordHash == "" {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(e.passwordHash), []byte(pw)) == nil
}

// OpenAt reports whether t falls inside the exam's time window.
func (e Exam) OpenAt(t time.Time) bool {
	if e.StartTime != nil && t.Before(*e.StartTime) {
		return false
	}
	if e.EndTime != nil && t.After(*e.EndTime) {
		return false
	}
	return true
}

// TimeLimit is the per-attempt allowance; zero means untimed.
func (e Exam) TimeLimit() time.Duration {
	if e.DurationMinutes <= 0 {
		return 0
	}
	return time.Duration(e.DurationMinutes) * time.Minute
}

// PointValue is the link's weight, defaulting to 1.0.
func (l QuestionLink) PointValue() float64 {
	if l.Points <= 0 {
		return 1.0
	}
	return l.Points
}
