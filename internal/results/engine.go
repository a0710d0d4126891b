package results

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mind-engage/mcqexam/internal/exam"
	"github.com/mind-engage/mcqexam/internal/grading"
)

// ExamSource is the read-only exam definition store.
type ExamSource interface {
	GetExamAdmin(ctx context.Context, id int64) (exam.Exam, error)
}

// QuestionSource is the read-only question bank. Ids that do not exist
// are absent from the returned map.
type QuestionSource interface {
	GetQuestions(ctx context.Context, ids []int64) (map[int64]exam.Question, error)
}

// Engine scores submissions and serves result reads.
type Engine struct {
	exams     ExamSource
	questions QuestionSource
	store     Store
	grader    grading.Grader
	scale     float64
	policy    Policy
	now       func() time.Time
}

type Option func(*Engine)

func WithScale(scale float64) Option {
	return func(e *Engine) {
		if scale > 0 {
			e.scale = scale
		}
	}
}

func WithPolicy(p Policy) Option { return func(e *Engine) { e.policy = p } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithGrader(g grading.Grader) Option { return func(e *Engine) { e.grader = g } }

func NewEngine(exams ExamSource, questions QuestionSource, store Store, opts ...Option) *Engine {
	e := &Engine{
		exams:     exams,
		questions: questions,
		store:     store,
		grader:    grading.NewDefaultGrader(),
		scale:     grading.DefaultScale,
		policy:    PolicyAppend,
		now:       time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// SubmitGrace is how late past an attempt's time limit a submission is
// still accepted.
const SubmitGrace = time.Minute

// StartAttempt records when a student starts an exam. An unexpired open
// attempt is returned as is, so restarting never resets the clock.
func (e *Engine) StartAttempt(ctx context.Context, examID, studentID int64, password string) (Attempt, error) {
	if examID <= 0 || studentID <= 0 {
		return Attempt{}, fmt.Errorf("%w: exam and student are required", ErrInvalidInput)
	}
	ex, err := e.loadExam(ctx, examID)
	if err != nil {
		return Attempt{}, err
	}
	now := e.now().UTC().Truncate(time.Second)
	if !ex.OpenAt(now) {
		return Attempt{}, fmt.Errorf("%w: exam %d is not open", ErrInvalidInput, ex.ID)
	}
	if !ex.CheckPassword(password) {
		return Attempt{}, fmt.Errorf("%w: wrong exam password", ErrForbidden)
	}
	if e.policy == PolicyReject {
		n, err := e.store.CountResults(ctx, ex.ID, studentID)
		if err != nil {
			return Attempt{}, fmt.Errorf("results: count results: %w", err)
		}
		if n > 0 {
			return Attempt{}, fmt.Errorf("exam %d student %d: %w", ex.ID, studentID, ErrAlreadySubmitted)
		}
	}

	limit := ex.TimeLimit()
	cur, err := e.store.OpenAttempt(ctx, ex.ID, studentID)
	switch {
	case err == nil:
		if limit == 0 || !now.After(cur.StartedAt.Add(limit+SubmitGrace)) {
			return withDeadline(cur, limit), nil
		}
	case !errors.Is(err, ErrNotFound):
		return Attempt{}, fmt.Errorf("results: load attempt: %w", err)
	}

	a := Attempt{ExamID: ex.ID, StudentID: studentID, StartedAt: now}
	if err := e.store.CreateAttempt(ctx, &a); err != nil {
		return Attempt{}, fmt.Errorf("results: start attempt: %w", err)
	}
	return withDeadline(a, limit), nil
}

func withDeadline(a Attempt, limit time.Duration) Attempt {
	if limit > 0 {
		d := a.StartedAt.Add(limit)
		a.Deadline = &d
	}
	return a
}

// Submit grades sub against the exam's stored key and persists one result
// record plus one detail per accepted answer in a single transaction. The
// start time is taken from the student's open attempt; without one it is
// the finish time. Timed exams require an attempt.
func (e *Engine) Submit(ctx context.Context, sub Submission) (Summary, error) {
	if sub.ExamID <= 0 || sub.StudentID <= 0 {
		return Summary{}, fmt.Errorf("%w: exam and student are required", ErrInvalidInput)
	}
	for _, a := range sub.Answers {
		if a.QuestionID <= 0 {
			return Summary{}, fmt.Errorf("%w: bad question id %d", ErrInvalidInput, a.QuestionID)
		}
	}

	ex, err := e.loadExam(ctx, sub.ExamID)
	if err != nil {
		return Summary{}, err
	}

	finished := e.now().UTC().Truncate(time.Second)
	if !ex.OpenAt(finished) {
		return Summary{}, fmt.Errorf("%w: exam %d is not open for submissions", ErrInvalidInput, ex.ID)
	}
	if !ex.CheckPassword(sub.Password) {
		return Summary{}, fmt.Errorf("%w: wrong exam password", ErrForbidden)
	}

	started := finished
	att, err := e.store.OpenAttempt(ctx, ex.ID, sub.StudentID)
	switch {
	case err == nil:
		if !att.StartedAt.After(finished) {
			started = att.StartedAt
		}
		if limit := ex.TimeLimit(); limit > 0 && finished.After(att.StartedAt.Add(limit+SubmitGrace)) {
			return Summary{}, fmt.Errorf("%w: time limit of exam %d exceeded", ErrInvalidInput, ex.ID)
		}
	case errors.Is(err, ErrNotFound):
		if ex.TimeLimit() > 0 {
			return Summary{}, fmt.Errorf("%w: timed exam %d was not started", ErrInvalidInput, ex.ID)
		}
	default:
		return Summary{}, fmt.Errorf("results: load attempt: %w", err)
	}

	key, err := e.scoringKey(ctx, ex)
	if err != nil {
		return Summary{}, err
	}
	responses := make([]grading.Response, 0, len(sub.Answers))
	for _, a := range sub.Answers {
		responses = append(responses, grading.Response{QuestionID: a.QuestionID, Answer: a.Answer})
	}
	out := grading.Score(ctx, e.grader, key, responses, e.scale)

	rec := Record{
		ExamID:         ex.ID,
		StudentID:      sub.StudentID,
		Score:          out.Score,
		CorrectCount:   out.Correct,
		TotalQuestions: out.Total,
		StartedAt:      started,
		FinishedAt:     finished,
		AttemptID:      att.ID,
	}
	details := make([]Detail, 0, len(out.Items))
	for _, it := range out.Items {
		details = append(details, Detail{QuestionID: it.QuestionID, StudentAnswer: it.Answer, IsCorrect: it.Correct})
	}

	if err := e.store.Create(ctx, &rec, details, e.policy); err != nil {
		if errors.Is(err, ErrAlreadySubmitted) {
			return Summary{}, err
		}
		return Summary{}, fmt.Errorf("results: persist submission: %w", err)
	}

	return Summary{
		ResultID:       rec.ID,
		Score:          rec.Score,
		CorrectCount:   rec.CorrectCount,
		TotalQuestions: rec.TotalQuestions,
		FinishedAt:     rec.FinishedAt,
	}, nil
}

func (e *Engine) loadExam(ctx context.Context, id int64) (exam.Exam, error) {
	ex, err := e.exams.GetExamAdmin(ctx, id)
	if err != nil {
		if errors.Is(err, exam.ErrNotFound) {
			return exam.Exam{}, fmt.Errorf("exam %d: %w", id, ErrNotFound)
		}
		return exam.Exam{}, fmt.Errorf("results: load exam: %w", err)
	}
	return ex, nil
}

// scoringKey joins the exam's links with the question bank. Links whose
// question is gone become unknown key items.
func (e *Engine) scoringKey(ctx context.Context, ex exam.Exam) ([]grading.KeyItem, error) {
	qs, err := e.questionsFor(ctx, ex)
	if err != nil {
		return nil, err
	}
	key := make([]grading.KeyItem, 0, len(ex.Questions))
	for _, l := range ex.Questions {
		q, ok := qs[l.QuestionID]
		key = append(key, grading.KeyItem{
			QuestionID:    l.QuestionID,
			Type:          q.Type,
			CorrectAnswer: q.CorrectAnswer,
			Points:        l.PointValue(),
			Known:         ok,
		})
	}
	return key, nil
}

func (e *Engine) questionsFor(ctx context.Context, ex exam.Exam) (map[int64]exam.Question, error) {
	ids := make([]int64, 0, len(ex.Questions))
	for _, l := range ex.Questions {
		ids = append(ids, l.QuestionID)
	}
	qs, err := e.questions.GetQuestions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("results: load questions: %w", err)
	}
	return qs, nil
}
