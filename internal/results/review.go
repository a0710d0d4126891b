package results

import (
	"context"
	"errors"
	"fmt"

	"github.com/mind-engage/mcqexam/internal/exam"
	"github.com/mind-engage/mcqexam/internal/rbac"
)

// canRead: a student reads only their own results, a teacher only the
// results of exams they own, an admin everything.
func canRead(req Requester, rec Record, ex exam.Exam) bool {
	switch req.Role {
	case rbac.RoleAdmin:
		return true
	case rbac.RoleTeacher:
		return ex.OwnerID == req.ID
	case rbac.RoleStudent:
		return rec.StudentID == req.ID
	}
	return false
}

// canManage covers score overrides, deletions and per-exam listings.
func canManage(req Requester, ex exam.Exam) bool {
	switch req.Role {
	case rbac.RoleAdmin:
		return true
	case rbac.RoleTeacher:
		return ex.OwnerID == req.ID
	}
	return false
}

// load fetches a record and its exam.
func (e *Engine) load(ctx context.Context, resultID int64) (Record, exam.Exam, error) {
	rec, err := e.store.Get(ctx, resultID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Record{}, exam.Exam{}, err
		}
		return Record{}, exam.Exam{}, fmt.Errorf("results: load result: %w", err)
	}
	ex, err := e.loadExam(ctx, rec.ExamID)
	if err != nil {
		return Record{}, exam.Exam{}, err
	}
	return rec, ex, nil
}

// Result returns a single record if req may read it.
func (e *Engine) Result(ctx context.Context, resultID int64, req Requester) (Record, error) {
	rec, ex, err := e.load(ctx, resultID)
	if err != nil {
		return Record{}, err
	}
	if !canRead(req, rec, ex) {
		return Record{}, ErrForbidden
	}
	return rec, nil
}

// Review joins a result with its details and the exam's question set.
// Correct answers are only included when the exam allows it or the
// requester manages the exam.
func (e *Engine) Review(ctx context.Context, resultID int64, req Requester) (ReviewPayload, error) {
	rec, ex, err := e.load(ctx, resultID)
	if err != nil {
		return ReviewPayload{}, err
	}
	if !canRead(req, rec, ex) {
		return ReviewPayload{}, ErrForbidden
	}

	details, err := e.store.Details(ctx, rec.ID)
	if err != nil {
		return ReviewPayload{}, fmt.Errorf("results: load details: %w", err)
	}
	byQuestion := make(map[int64]Detail, len(details))
	for _, d := range details {
		byQuestion[d.QuestionID] = d
	}
	// details graded against links the exam no longer has
	linked := make(map[int64]bool, len(ex.Questions))
	ids := make([]int64, 0, len(ex.Questions)+len(details))
	for _, l := range ex.Questions {
		linked[l.QuestionID] = true
		ids = append(ids, l.QuestionID)
	}
	var orphans []Detail
	for _, d := range details {
		if !linked[d.QuestionID] {
			orphans = append(orphans, d)
			ids = append(ids, d.QuestionID)
		}
	}
	qs, err := e.questions.GetQuestions(ctx, ids)
	if err != nil {
		return ReviewPayload{}, fmt.Errorf("results: load questions: %w", err)
	}

	reveal := ex.AllowViewAnswers || canManage(req, ex)
	p := ReviewPayload{
		ResultID:         rec.ID,
		ExamID:           ex.ID,
		ExamTitle:        ex.Title,
		StudentID:        rec.StudentID,
		TotalScore:       rec.Score,
		StartedAt:        rec.StartedAt,
		FinishedAt:       rec.FinishedAt,
		AllowViewAnswers: ex.AllowViewAnswers,
		AnswersVisible:   reveal,
		Questions:        make([]ReviewQuestion, 0, len(ex.Questions)+len(orphans)),
	}
	for _, l := range ex.Questions {
		rq := reviewQuestion(qs[l.QuestionID], l.QuestionID, l.PointValue(), reveal)
		if d, ok := byQuestion[l.QuestionID]; ok {
			rq.StudentAnswer = d.StudentAnswer
			rq.IsCorrect = d.IsCorrect
		}
		p.Questions = append(p.Questions, rq)
	}
	// unlinked questions carry no points now but keep what was graded
	for _, d := range orphans {
		rq := reviewQuestion(qs[d.QuestionID], d.QuestionID, 0, reveal)
		rq.StudentAnswer = d.StudentAnswer
		rq.IsCorrect = d.IsCorrect
		rq.Unlinked = true
		p.Questions = append(p.Questions, rq)
	}
	return p, nil
}

func reviewQuestion(q exam.Question, id int64, points float64, reveal bool) ReviewQuestion {
	rq := ReviewQuestion{QuestionID: id, Content: q.Content, Options: q.Options, Points: points}
	if reveal && q.CorrectAnswer != "" {
		ca := q.CorrectAnswer
		rq.CorrectAnswer = &ca
	}
	return rq
}

// ListForStudent returns a student's own results, newest first.
func (e *Engine) ListForStudent(ctx context.Context, studentID int64) ([]Record, error) {
	recs, err := e.store.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("results: list: %w", err)
	}
	return recs, nil
}

// ListForExam returns every result of an exam to its owner or an admin.
func (e *Engine) ListForExam(ctx context.Context, examID int64, req Requester) (ExamResults, error) {
	ex, err := e.loadExam(ctx, examID)
	if err != nil {
		return ExamResults{}, err
	}
	if !canManage(req, ex) {
		return ExamResults{}, ErrForbidden
	}
	recs, err := e.store.ListByExam(ctx, examID)
	if err != nil {
		return ExamResults{}, fmt.Errorf("results: list: %w", err)
	}
	return ExamResults{ExamID: ex.ID, ExamTitle: ex.Title, Results: recs}, nil
}

// OverrideScore sets a result's total score by hand. The score must lie on
// the engine's scale.
func (e *Engine) OverrideScore(ctx context.Context, resultID int64, score float64, req Requester) (Record, error) {
	if score < 0 || score > e.scale {
		return Record{}, fmt.Errorf("%w: score must be between 0 and %g", ErrInvalidInput, e.scale)
	}
	rec, ex, err := e.load(ctx, resultID)
	if err != nil {
		return Record{}, err
	}
	if !canManage(req, ex) {
		return Record{}, ErrForbidden
	}
	if err := e.store.UpdateScore(ctx, rec.ID, score); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("results: update score: %w", err)
	}
	rec.Score = score
	return rec, nil
}

// Delete removes a result and its details.
func (e *Engine) Delete(ctx context.Context, resultID int64, req Requester) error {
	rec, ex, err := e.load(ctx, resultID)
	if err != nil {
		return err
	}
	if !canManage(req, ex) {
		return ErrForbidden
	}
	if err := e.store.Delete(ctx, rec.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("results: delete: %w", err)
	}
	return nil
}
