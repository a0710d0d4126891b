package results

import (
	"fmt"
	"strings"
	"time"

	"github.com/mind-engage/mcqexam/internal/rbac"
)

// Record is the persisted outcome of one submission.
type Record struct {
	ID             int64     `json:"id"`
	ExamID         int64     `json:"exam_id"`
	StudentID      int64     `json:"student_id"`
	Score          float64   `json:"total_score"`
	CorrectCount   int       `json:"correct_count"`
	TotalQuestions int       `json:"total_questions"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`

	// AttemptID is the attempt this record closes; Create marks it
	// submitted. Zero when the submission had no recorded start.
	AttemptID int64 `json:"-"`
}

// Attempt is a server-recorded exam start. It stays open until a
// submission closes it.
type Attempt struct {
	ID          int64      `json:"attempt_id"`
	ExamID      int64      `json:"exam_id"`
	StudentID   int64      `json:"student_id"`
	StartedAt   time.Time  `json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
}

// Detail is the per-question grading outcome inside a Record.
type Detail struct {
	ID            int64   `json:"id"`
	ResultID      int64   `json:"result_id"`
	QuestionID    int64   `json:"question_id"`
	StudentAnswer *string `json:"student_answer"`
	IsCorrect     bool    `json:"is_correct"`
}

// StudentRecord is a Record joined with the student's display fields.
type StudentRecord struct {
	Record
	StudentName string `json:"student_name"`
	StudentCode string `json:"student_code"`
}

// ExamResults lists the results of one exam.
type ExamResults struct {
	ExamID    int64           `json:"exam_id"`
	ExamTitle string          `json:"exam_title"`
	Results   []StudentRecord `json:"results"`
}

// Answer is one submitted (question, token) pair; a nil Answer is a
// skipped question.
type Answer struct {
	QuestionID int64   `json:"question_id" validate:"gt=0"`
	Answer     *string `json:"answer"`
}

// Submission is a student's batch of answers for one exam attempt. The
// start time always comes from the recorded attempt.
type Submission struct {
	ExamID    int64
	StudentID int64
	Answers   []Answer
	Password  string
}

// Summary is what Submit reports back to the caller.
type Summary struct {
	ResultID       int64     `json:"result_id"`
	Score          float64   `json:"score"`
	CorrectCount   int       `json:"correct_count"`
	TotalQuestions int       `json:"total_questions"`
	FinishedAt     time.Time `json:"finished_at"`
}

// Requester identifies the caller of a read or management operation.
type Requester struct {
	ID   int64
	Role rbac.Role
}

type ReviewQuestion struct {
	QuestionID    int64             `json:"question_id"`
	Content       string            `json:"content"`
	Options       map[string]string `json:"options,omitempty"`
	Points        float64           `json:"points"`
	CorrectAnswer *string           `json:"correct_answer,omitempty"`
	StudentAnswer *string           `json:"student_answer"`
	IsCorrect     bool              `json:"is_correct"`
	// Unlinked marks a graded question that was later removed from the exam.
	Unlinked bool `json:"unlinked,omitempty"`
}

type ReviewPayload struct {
	ResultID         int64            `json:"result_id"`
	ExamID           int64            `json:"exam_id"`
	ExamTitle        string           `json:"exam_title"`
	StudentID        int64            `json:"student_id"`
	TotalScore       float64          `json:"total_score"`
	StartedAt        time.Time        `json:"started_at"`
	FinishedAt       time.Time        `json:"finished_at"`
	AllowViewAnswers bool             `json:"allow_view_answers"`
	AnswersVisible   bool             `json:"answers_visible"`
	Questions        []ReviewQuestion `json:"questions"`
}

// Policy decides what happens when a student submits the same exam again.
type Policy string

const (
	PolicyAppend    Policy = "append"    // every submission gets its own record
	PolicyReject    Policy = "reject"    // later submissions fail with ErrAlreadySubmitted
	PolicyOverwrite Policy = "overwrite" // earlier records are replaced
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyAppend, PolicyReject, PolicyOverwrite:
		return p, nil
	case "":
		return PolicyAppend, nil
	}
	return "", fmt.Errorf("results: unknown resubmit policy %q", s)
}
