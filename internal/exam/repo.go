package exam

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

type ListOpts struct {
	Q       string // title substring, case-insensitive
	Limit   int
	Offset  int
	OwnerID int64 // 0 lists every owner
}

// ExamSummary is a listing row; it never carries answer keys.
type ExamSummary struct {
	ID              int64      `json:"id" db:"id"`
	Title           string     `json:"title" db:"title"`
	DurationMinutes int        `json:"duration_minutes" db:"duration_minutes"`
	StartTime       *time.Time `json:"start_time,omitempty" db:"-"`
	EndTime         *time.Time `json:"end_time,omitempty" db:"-"`
	HasPassword     bool       `json:"has_password" db:"-"`
	OwnerID         int64      `json:"owner_id" db:"owner_id"`
	QuestionCount   int        `json:"question_count" db:"question_count"`
}

// Store is the exam definition and question bank.
type Store interface {
	CreateQuestion(ctx context.Context, q *Question) error
	GetQuestion(ctx context.Context, id int64) (Question, error)
	// GetQuestions returns the questions that exist among ids; missing ids
	// are simply absent from the map.
	GetQuestions(ctx context.Context, ids []int64) (map[int64]Question, error)

	PutExam(ctx context.Context, e *Exam) error
	// GetExam is student-safe: no answer keys.
	GetExam(ctx context.Context, id int64) (ExamView, error)
	// GetExamAdmin returns the full exam with its links, for grading and owners.
	GetExamAdmin(ctx context.Context, id int64) (Exam, error)
	ListExams(ctx context.Context, opts ListOpts) ([]ExamSummary, error)
	// DeleteExam removes links, results and result details too.
	DeleteExam(ctx context.Context, id int64) error
}
