package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mind-engage/mcqexam/internal/db"
)

// Store persists result records and their details.
type Store interface {
	// Create writes rec and details atomically, applying policy against
	// earlier records of the same exam and student. On success rec.ID and
	// every detail's ID and ResultID are set.
	Create(ctx context.Context, rec *Record, details []Detail, policy Policy) error
	Get(ctx context.Context, id int64) (Record, error)
	Details(ctx context.Context, resultID int64) ([]Detail, error)
	ListByStudent(ctx context.Context, studentID int64) ([]Record, error)
	ListByExam(ctx context.Context, examID int64) ([]StudentRecord, error)
	UpdateScore(ctx context.Context, id int64, score float64) error
	// Delete removes the record and its details.
	Delete(ctx context.Context, id int64) error

	// CreateAttempt records a start; a.ID is set on success.
	CreateAttempt(ctx context.Context, a *Attempt) error
	// OpenAttempt returns the latest unsubmitted attempt or ErrNotFound.
	OpenAttempt(ctx context.Context, examID, studentID int64) (Attempt, error)
	CountResults(ctx context.Context, examID, studentID int64) (int, error)
}

type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(d *sqlx.DB) *SQLStore { return &SQLStore{db: d} }

type recordRow struct {
	ID             int64   `db:"id"`
	ExamID         int64   `db:"exam_id"`
	StudentID      int64   `db:"student_id"`
	Score          float64 `db:"total_score"`
	CorrectCount   int     `db:"correct_count"`
	TotalQuestions int     `db:"total_questions"`
	StartedAt      int64   `db:"started_at"`
	FinishedAt     int64   `db:"finished_at"`
}

func (r recordRow) toRecord() Record {
	return Record{
		ID:             r.ID,
		ExamID:         r.ExamID,
		StudentID:      r.StudentID,
		Score:          r.Score,
		CorrectCount:   r.CorrectCount,
		TotalQuestions: r.TotalQuestions,
		StartedAt:      time.Unix(r.StartedAt, 0).UTC(),
		FinishedAt:     time.Unix(r.FinishedAt, 0).UTC(),
	}
}

type studentRecordRow struct {
	recordRow
	StudentName string `db:"student_name"`
	StudentCode string `db:"student_code"`
}

type detailRow struct {
	ID            int64          `db:"id"`
	ResultID      int64          `db:"result_id"`
	QuestionID    int64          `db:"question_id"`
	StudentAnswer sql.NullString `db:"student_answer"`
	IsCorrect     bool           `db:"is_correct"`
}

const recordColumns = `r.id, r.exam_id, r.student_id, r.total_score, r.correct_count, r.total_questions, r.started_at, r.finished_at`

func (s *SQLStore) Create(ctx context.Context, rec *Record, details []Detail, policy Policy) error {
	return db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if policy != PolicyAppend && s.db.DriverName() != string(db.DriverSQLite) {
			// serializes reject/overwrite checks per exam; SQLite already
			// runs one writer at a time
			if _, err := tx.ExecContext(ctx, `SELECT id FROM exams WHERE id=$1 FOR UPDATE`, rec.ExamID); err != nil {
				return fmt.Errorf("results: lock exam: %w", err)
			}
		}
		switch policy {
		case PolicyReject:
			var n int
			if err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM exam_results WHERE exam_id=$1 AND student_id=$2`,
				rec.ExamID, rec.StudentID); err != nil {
				return fmt.Errorf("results: count previous: %w", err)
			}
			if n > 0 {
				return fmt.Errorf("exam %d student %d: %w", rec.ExamID, rec.StudentID, ErrAlreadySubmitted)
			}
		case PolicyOverwrite:
			if _, err := tx.ExecContext(ctx, `DELETE FROM exam_result_details WHERE result_id IN
				(SELECT id FROM exam_results WHERE exam_id=$1 AND student_id=$2)`, rec.ExamID, rec.StudentID); err != nil {
				return fmt.Errorf("results: clear previous details: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM exam_results WHERE exam_id=$1 AND student_id=$2`,
				rec.ExamID, rec.StudentID); err != nil {
				return fmt.Errorf("results: clear previous: %w", err)
			}
		}

		if rec.AttemptID > 0 {
			res, err := tx.ExecContext(ctx, `UPDATE exam_attempts SET submitted_at=$1 WHERE id=$2 AND submitted_at IS NULL`,
				rec.FinishedAt.Unix(), rec.AttemptID)
			if err != nil {
				return fmt.Errorf("results: close attempt: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("attempt %d: %w", rec.AttemptID, ErrAlreadySubmitted)
			}
		}

		if err := tx.QueryRowxContext(ctx, `INSERT INTO exam_results
			(exam_id, student_id, total_score, correct_count, total_questions, started_at, finished_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
			rec.ExamID, rec.StudentID, rec.Score, rec.CorrectCount, rec.TotalQuestions,
			rec.StartedAt.Unix(), rec.FinishedAt.Unix()).Scan(&rec.ID); err != nil {
			return fmt.Errorf("results: insert result: %w", err)
		}
		for i := range details {
			d := &details[i]
			d.ResultID = rec.ID
			if err := tx.QueryRowxContext(ctx, `INSERT INTO exam_result_details
				(result_id, question_id, student_answer, is_correct) VALUES ($1,$2,$3,$4) RETURNING id`,
				d.ResultID, d.QuestionID, toNullString(d.StudentAnswer), d.IsCorrect).Scan(&d.ID); err != nil {
				return fmt.Errorf("results: insert detail for question %d: %w", d.QuestionID, err)
			}
		}
		return nil
	})
}

func (s *SQLStore) Get(ctx context.Context, id int64) (Record, error) {
	var r recordRow
	if err := s.db.GetContext(ctx, &r, `SELECT `+recordColumns+` FROM exam_results r WHERE r.id=$1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, fmt.Errorf("result %d: %w", id, ErrNotFound)
		}
		return Record{}, err
	}
	return r.toRecord(), nil
}

func (s *SQLStore) Details(ctx context.Context, resultID int64) ([]Detail, error) {
	var rows []detailRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, result_id, question_id, student_answer, is_correct
		FROM exam_result_details WHERE result_id=$1 ORDER BY id`, resultID); err != nil {
		return nil, err
	}
	out := make([]Detail, 0, len(rows))
	for _, r := range rows {
		d := Detail{ID: r.ID, ResultID: r.ResultID, QuestionID: r.QuestionID, IsCorrect: r.IsCorrect}
		if r.StudentAnswer.Valid {
			a := r.StudentAnswer.String
			d.StudentAnswer = &a
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *SQLStore) ListByStudent(ctx context.Context, studentID int64) ([]Record, error) {
	var rows []recordRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+recordColumns+` FROM exam_results r
		WHERE r.student_id=$1 ORDER BY r.finished_at DESC, r.id DESC`, studentID); err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toRecord())
	}
	return out, nil
}

func (s *SQLStore) ListByExam(ctx context.Context, examID int64) ([]StudentRecord, error) {
	var rows []studentRecordRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+recordColumns+`,
		COALESCE(u.full_name, '') AS student_name, COALESCE(u.student_code, '') AS student_code
		FROM exam_results r LEFT JOIN users u ON u.id = r.student_id
		WHERE r.exam_id=$1 ORDER BY r.finished_at, r.id`, examID); err != nil {
		return nil, err
	}
	out := make([]StudentRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, StudentRecord{Record: r.toRecord(), StudentName: r.StudentName, StudentCode: r.StudentCode})
	}
	return out, nil
}

func (s *SQLStore) UpdateScore(ctx context.Context, id int64, score float64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE exam_results SET total_score=$1 WHERE id=$2`, score, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("result %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM exam_result_details WHERE result_id=$1`, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM exam_results WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("result %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

type attemptRow struct {
	ID          int64         `db:"id"`
	ExamID      int64         `db:"exam_id"`
	StudentID   int64         `db:"student_id"`
	StartedAt   int64         `db:"started_at"`
	SubmittedAt sql.NullInt64 `db:"submitted_at"`
}

func (r attemptRow) toAttempt() Attempt {
	a := Attempt{ID: r.ID, ExamID: r.ExamID, StudentID: r.StudentID, StartedAt: time.Unix(r.StartedAt, 0).UTC()}
	if r.SubmittedAt.Valid {
		t := time.Unix(r.SubmittedAt.Int64, 0).UTC()
		a.SubmittedAt = &t
	}
	return a
}

func (s *SQLStore) CreateAttempt(ctx context.Context, a *Attempt) error {
	return s.db.QueryRowxContext(ctx, `INSERT INTO exam_attempts (exam_id, student_id, started_at)
		VALUES ($1,$2,$3) RETURNING id`, a.ExamID, a.StudentID, a.StartedAt.Unix()).Scan(&a.ID)
}

func (s *SQLStore) OpenAttempt(ctx context.Context, examID, studentID int64) (Attempt, error) {
	var r attemptRow
	err := s.db.GetContext(ctx, &r, `SELECT id, exam_id, student_id, started_at, submitted_at FROM exam_attempts
		WHERE exam_id=$1 AND student_id=$2 AND submitted_at IS NULL ORDER BY id DESC LIMIT 1`, examID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, fmt.Errorf("open attempt for exam %d: %w", examID, ErrNotFound)
		}
		return Attempt{}, err
	}
	return r.toAttempt(), nil
}

func (s *SQLStore) CountResults(ctx context.Context, examID, studentID int64) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM exam_results WHERE exam_id=$1 AND student_id=$2`, examID, studentID)
	return n, err
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
