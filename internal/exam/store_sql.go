package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mcqexam/internal/db"
)

type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(d *sqlx.DB) *SQLStore {
	return &SQLStore{db: d}
}

type questionRow struct {
	ID            int64  `db:"id"`
	Content       string `db:"content"`
	Type          string `db:"question_type"`
	OptionsJSON   string `db:"options_json"`
	CorrectAnswer string `db:"correct_answer"`
	CreatedBy     int64  `db:"created_by"`
	CreatedAt     int64  `db:"created_at"`
}

func (r questionRow) toQuestion() (Question, error) {
	q := Question{
		ID:            r.ID,
		Content:       r.Content,
		Type:          r.Type,
		CorrectAnswer: r.CorrectAnswer,
		CreatedBy:     r.CreatedBy,
		CreatedAt:     time.Unix(r.CreatedAt, 0).UTC(),
	}
	if r.OptionsJSON != "" {
		if err := json.Unmarshal([]byte(r.OptionsJSON), &q.Options); err != nil {
			return Question{}, fmt.Errorf("exam: question %d options: %w", r.ID, err)
		}
	}
	return q, nil
}

type examRow struct {
	ID               int64         `db:"id"`
	Title            string        `db:"title"`
	Description      string        `db:"description"`
	DurationMinutes  int           `db:"duration_minutes"`
	StartTime        sql.NullInt64 `db:"start_time"`
	EndTime          sql.NullInt64 `db:"end_time"`
	PasswordHash     string        `db:"password_hash"`
	AllowViewAnswers bool          `db:"allow_view_answers"`
	OwnerID          int64         `db:"owner_id"`
	CreatedAt        int64         `db:"created_at"`
}

func (r examRow) toExam() Exam {
	return Exam{
		ID:               r.ID,
		Title:            r.Title,
		Description:      r.Description,
		DurationMinutes:  r.DurationMinutes,
		StartTime:        fromNullUnix(r.StartTime),
		EndTime:          fromNullUnix(r.EndTime),
		HasPassword:      r.PasswordHash != "",
		AllowViewAnswers: r.AllowViewAnswers,
		OwnerID:          r.OwnerID,
		CreatedAt:        time.Unix(r.CreatedAt, 0).UTC(),
		passwordHash:     r.PasswordHash,
	}
}

type linkRow struct {
	QuestionID int64   `db:"question_id"`
	Points     float64 `db:"point_value"`
}

const examColumns = `id,title,description,duration_minutes,start_time,end_time,password_hash,allow_view_answers,owner_id,created_at`

func (s *SQLStore) CreateQuestion(ctx context.Context, q *Question) error {
	if q.Type == "" {
		q.Type = "mcq_single"
	}
	opts := []byte("{}")
	if len(q.Options) > 0 {
		b, err := json.Marshal(q.Options)
		if err != nil {
			return err
		}
		opts = b
	}
	q.CreatedAt = time.Now().UTC().Truncate(time.Second)
	err := s.db.QueryRowxContext(ctx, `INSERT INTO questions (content,question_type,options_json,correct_answer,created_by,created_at)
		VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		q.Content, q.Type, string(opts), q.CorrectAnswer, q.CreatedBy, q.CreatedAt.Unix()).Scan(&q.ID)
	if err != nil {
		return fmt.Errorf("exam: insert question: %w", err)
	}
	return nil
}

func (s *SQLStore) GetQuestion(ctx context.Context, id int64) (Question, error) {
	var r questionRow
	err := s.db.GetContext(ctx, &r, `SELECT id,content,question_type,options_json,correct_answer,created_by,created_at
		FROM questions WHERE id=$1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Question{}, fmt.Errorf("question %d: %w", id, ErrNotFound)
		}
		return Question{}, err
	}
	return r.toQuestion()
}

func (s *SQLStore) GetQuestions(ctx context.Context, ids []int64) (map[int64]Question, error) {
	out := make(map[int64]Question, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`SELECT id,content,question_type,options_json,correct_answer,created_by,created_at
		FROM questions WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var rows []questionRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("exam: load questions: %w", err)
	}
	for _, r := range rows {
		q, err := r.toQuestion()
		if err != nil {
			return nil, err
		}
		out[r.ID] = q
	}
	return out, nil
}

// PutExam inserts e when e.ID is zero, otherwise replaces the stored exam
// and its question links. A non-empty e.Password replaces the stored
// password hash; an empty one keeps it.
func (s *SQLStore) PutExam(ctx context.Context, e *Exam) error {
	seen := make(map[int64]bool, len(e.Questions))
	for _, l := range e.Questions {
		if l.QuestionID <= 0 || seen[l.QuestionID] {
			return fmt.Errorf("%w: duplicate or invalid question id %d", ErrInvalidInput, l.QuestionID)
		}
		seen[l.QuestionID] = true
	}
	if e.StartTime != nil && e.EndTime != nil && e.EndTime.Before(*e.StartTime) {
		return fmt.Errorf("%w: end_time before start_time", ErrInvalidInput)
	}

	var hash string
	if e.Password != "" {
		b, err := bcrypt.GenerateFromPassword([]byte(e.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		hash = string(b)
	}

	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if e.ID == 0 {
			e.CreatedAt = time.Now().UTC().Truncate(time.Second)
			if err := tx.QueryRowxContext(ctx, `INSERT INTO exams
				(title,description,duration_minutes,start_time,end_time,password_hash,allow_view_answers,owner_id,created_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
				e.Title, e.Description, e.DurationMinutes, toNullUnix(e.StartTime), toNullUnix(e.EndTime),
				hash, e.AllowViewAnswers, e.OwnerID, e.CreatedAt.Unix()).Scan(&e.ID); err != nil {
				return fmt.Errorf("exam: insert: %w", err)
			}
		} else {
			var cur examRow
			if err := tx.GetContext(ctx, &cur, `SELECT `+examColumns+` FROM exams WHERE id=$1`, e.ID); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("exam %d: %w", e.ID, ErrNotFound)
				}
				return err
			}
			if hash == "" {
				hash = cur.PasswordHash
			}
			e.CreatedAt = time.Unix(cur.CreatedAt, 0).UTC()
			if _, err := tx.ExecContext(ctx, `UPDATE exams SET title=$1, description=$2, duration_minutes=$3,
				start_time=$4, end_time=$5, password_hash=$6, allow_view_answers=$7 WHERE id=$8`,
				e.Title, e.Description, e.DurationMinutes, toNullUnix(e.StartTime), toNullUnix(e.EndTime),
				hash, e.AllowViewAnswers, e.ID); err != nil {
				return fmt.Errorf("exam: update: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM exam_questions WHERE exam_id=$1`, e.ID); err != nil {
				return fmt.Errorf("exam: clear links: %w", err)
			}
		}
		for i, l := range e.Questions {
			if _, err := tx.ExecContext(ctx, `INSERT INTO exam_questions (exam_id,question_id,point_value,position)
				VALUES ($1,$2,$3,$4)`, e.ID, l.QuestionID, l.PointValue(), i); err != nil {
				return fmt.Errorf("exam: insert link: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.passwordHash = hash
	e.HasPassword = hash != ""
	e.Password = ""
	for i := range e.Questions {
		e.Questions[i].Points = e.Questions[i].PointValue()
	}
	return nil
}

func (s *SQLStore) GetExamAdmin(ctx context.Context, id int64) (Exam, error) {
	var r examRow
	if err := s.db.GetContext(ctx, &r, `SELECT `+examColumns+` FROM exams WHERE id=$1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Exam{}, fmt.Errorf("exam %d: %w", id, ErrNotFound)
		}
		return Exam{}, err
	}
	var links []linkRow
	if err := s.db.SelectContext(ctx, &links, `SELECT question_id, point_value FROM exam_questions
		WHERE exam_id=$1 ORDER BY position, question_id`, id); err != nil {
		return Exam{}, fmt.Errorf("exam: load links: %w", err)
	}
	e := r.toExam()
	e.Questions = make([]QuestionLink, 0, len(links))
	for _, l := range links {
		e.Questions = append(e.Questions, QuestionLink{QuestionID: l.QuestionID, Points: l.Points})
	}
	return e, nil
}

func (s *SQLStore) ListExams(ctx context.Context, opts ListOpts) ([]ExamSummary, error) {
	if opts.Limit <= 0 || opts.Limit > 200 {
		opts.Limit = 50
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	query := `SELECT e.id, e.title, e.duration_minutes, e.start_time, e.end_time, e.password_hash, e.owner_id,
		(SELECT COUNT(*) FROM exam_questions eq WHERE eq.exam_id = e.id) AS question_count
		FROM exams e WHERE 1=1`
	var args []interface{}
	if opts.OwnerID > 0 {
		query += ` AND e.owner_id = ?`
		args = append(args, opts.OwnerID)
	}
	if q := strings.TrimSpace(opts.Q); q != "" {
		query += ` AND LOWER(e.title) LIKE ?`
		args = append(args, "%"+strings.ToLower(q)+"%")
	}
	query += ` ORDER BY e.created_at DESC, e.id DESC LIMIT ? OFFSET ?`
	args = append(args, opts.Limit, opts.Offset)

	var rows []struct {
		ExamSummary
		StartTime    sql.NullInt64 `db:"start_time"`
		EndTime      sql.NullInt64 `db:"end_time"`
		PasswordHash string        `db:"password_hash"`
	}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("exam: list: %w", err)
	}
	out := make([]ExamSummary, 0, len(rows))
	for _, r := range rows {
		sum := r.ExamSummary
		sum.StartTime = fromNullUnix(r.StartTime)
		sum.EndTime = fromNullUnix(r.EndTime)
		sum.HasPassword = r.PasswordHash != ""
		out = append(out, sum)
	}
	return out, nil
}

func (s *SQLStore) GetExam(ctx context.Context, id int64) (ExamView, error) {
	e, err := s.GetExamAdmin(ctx, id)
	if err != nil {
		return ExamView{}, err
	}
	ids := make([]int64, 0, len(e.Questions))
	for _, l := range e.Questions {
		ids = append(ids, l.QuestionID)
	}
	qs, err := s.GetQuestions(ctx, ids)
	if err != nil {
		return ExamView{}, err
	}
	v := ExamView{
		ID:              e.ID,
		Title:           e.Title,
		Description:     e.Description,
		DurationMinutes: e.DurationMinutes,
		StartTime:       e.StartTime,
		EndTime:         e.EndTime,
		HasPassword:     e.HasPassword,
		Questions:       make([]PublicQuestion, 0, len(e.Questions)),
	}
	for _, l := range e.Questions {
		q, ok := qs[l.QuestionID]
		if !ok {
			continue
		}
		v.Questions = append(v.Questions, PublicQuestion{ID: q.ID, Content: q.Content, Options: q.Options, Points: l.PointValue()})
	}
	return v, nil
}

func (s *SQLStore) DeleteExam(ctx context.Context, id int64) error {
	return db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var exists int
		if err := tx.GetContext(ctx, &exists, `SELECT COUNT(*) FROM exams WHERE id=$1`, id); err != nil {
			return err
		}
		if exists == 0 {
			return fmt.Errorf("exam %d: %w", id, ErrNotFound)
		}
		stmts := []string{
			`DELETE FROM exam_result_details WHERE result_id IN (SELECT id FROM exam_results WHERE exam_id=$1)`,
			`DELETE FROM exam_results WHERE exam_id=$1`,
			`DELETE FROM exam_attempts WHERE exam_id=$1`,
			`DELETE FROM exam_questions WHERE exam_id=$1`,
			`DELETE FROM exams WHERE id=$1`,
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return fmt.Errorf("exam: delete: %w", err)
			}
		}
		return nil
	})
}

func toNullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func fromNullUnix(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}
