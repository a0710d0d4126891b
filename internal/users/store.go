package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mcqexam/internal/db"
	"github.com/mind-engage/mcqexam/internal/rbac"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
)

// hashCost is the bcrypt cost for stored passwords.
var hashCost = 12

type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	FullName     string    `json:"full_name" db:"full_name"`
	StudentCode  string    `json:"student_code,omitempty" db:"student_code"`
	Role         rbac.Role `json:"role" db:"role"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    int64     `json:"created_at" db:"created_at"`
}

// Input is one account to create or update. Password may be empty when
// updating an existing account.
type Input struct {
	Username    string `json:"username" validate:"required"`
	FullName    string `json:"full_name"`
	StudentCode string `json:"student_code"`
	Role        string `json:"role"`
	Password    string `json:"password,omitempty"`
}

type Store struct{ db *sqlx.DB }

func NewStore(d *sqlx.DB) *Store { return &Store{db: d} }

const userColumns = `id,username,full_name,student_code,role,password_hash,created_at`

func (s *Store) Get(ctx context.Context, id int64) (User, error) {
	var u User
	if err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id=$1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// Role returns the stored role for id; this is the authoritative role
// source for authenticated requests.
func (s *Store) Role(ctx context.Context, id int64) (rbac.Role, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return rbac.ParseRole(string(u.Role))
}

func (s *Store) List(ctx context.Context, role rbac.Role) ([]User, error) {
	out := []User{}
	var err error
	if role == "" {
		err = s.db.SelectContext(ctx, &out, `SELECT `+userColumns+` FROM users ORDER BY username`)
	} else {
		err = s.db.SelectContext(ctx, &out, `SELECT `+userColumns+` FROM users WHERE role=$1 ORDER BY username`, string(role))
	}
	return out, err
}

// Authenticate checks username/password and returns the account.
func (s *Store) Authenticate(ctx context.Context, username, password string) (User, error) {
	var u User
	err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE username=$1`, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Store) Create(ctx context.Context, in Input) (User, error) {
	var u User
	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var err error
		u, _, err = upsert(ctx, tx, in, false)
		return err
	})
	return u, err
}

// BulkUpsert creates or updates accounts by username in one transaction.
func (s *Store) BulkUpsert(ctx context.Context, rows []Input) (inserted, updated int, err error) {
	err = db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		for _, r := range rows {
			_, existed, err := upsert(ctx, tx, r, true)
			if err != nil {
				return err
			}
			if existed {
				updated++
			} else {
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return inserted, updated, nil
}

func upsert(ctx context.Context, tx *sqlx.Tx, in Input, allowUpdate bool) (User, bool, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return User{}, false, fmt.Errorf("%w: username required", ErrInvalidInput)
	}
	var role rbac.Role
	if strings.TrimSpace(in.Role) != "" {
		r, err := rbac.ParseRole(in.Role)
		if err != nil {
			return User{}, false, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		role = r
	}
	var phash string
	if in.Password != "" {
		b, err := bcrypt.GenerateFromPassword([]byte(in.Password), hashCost)
		if err != nil {
			return User{}, false, err
		}
		phash = string(b)
	}

	var cur User
	err := tx.GetContext(ctx, &cur, `SELECT `+userColumns+` FROM users WHERE username=$1`, username)
	switch {
	case err == nil:
		if !allowUpdate {
			return User{}, true, fmt.Errorf("%w: username %q taken", ErrInvalidInput, username)
		}
		if phash == "" {
			phash = cur.PasswordHash
		}
		// an update without a role keeps the stored one
		if role == "" {
			role = cur.Role
		}
		if err := keepLastAdmin(ctx, tx, cur.Role, role); err != nil {
			return User{}, true, err
		}
		_, err = tx.ExecContext(ctx, `UPDATE users SET full_name=$1, student_code=$2, role=$3, password_hash=$4 WHERE id=$5`,
			in.FullName, in.StudentCode, string(role), phash, cur.ID)
		if err != nil {
			return User{}, true, err
		}
		cur.FullName, cur.StudentCode, cur.Role, cur.PasswordHash = in.FullName, in.StudentCode, role, phash
		return cur, true, nil
	case errors.Is(err, sql.ErrNoRows):
	default:
		return User{}, false, err
	}

	if phash == "" {
		return User{}, false, fmt.Errorf("%w: password required for new user %s", ErrInvalidInput, username)
	}
	if role == "" {
		role = rbac.RoleStudent
	}
	u := User{Username: username, FullName: in.FullName, StudentCode: in.StudentCode, Role: role,
		PasswordHash: phash, CreatedAt: time.Now().Unix()}
	err = tx.QueryRowxContext(ctx, `INSERT INTO users (username,full_name,student_code,role,password_hash,created_at)
		VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		u.Username, u.FullName, u.StudentCode, string(u.Role), u.PasswordHash, u.CreatedAt).Scan(&u.ID)
	if err != nil {
		return User{}, false, err
	}
	return u, false, nil
}

func (s *Store) ChangePassword(ctx context.Context, id int64, oldPassword, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password required", ErrInvalidInput)
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPassword)) != nil {
		return ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), hashCost)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, string(hash), id)
	return err
}

// SetRole changes a user's role. The last admin cannot be demoted.
func (s *Store) SetRole(ctx context.Context, id int64, role rbac.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: invalid role %q", ErrInvalidInput, role)
	}
	return db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var cur string
		if err := tx.GetContext(ctx, &cur, `SELECT role FROM users WHERE id=$1`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if err := keepLastAdmin(ctx, tx, rbac.Role(cur), role); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE users SET role=$1 WHERE id=$2`, string(role), id)
		return err
	})
}

// keepLastAdmin refuses a role change that would leave no admin.
func keepLastAdmin(ctx context.Context, tx *sqlx.Tx, from, to rbac.Role) error {
	if from != rbac.RoleAdmin || to == rbac.RoleAdmin {
		return nil
	}
	var admins int
	if err := tx.GetContext(ctx, &admins, `SELECT COUNT(*) FROM users WHERE role=$1`, string(rbac.RoleAdmin)); err != nil {
		return err
	}
	if admins <= 1 {
		return fmt.Errorf("%w: cannot demote the last admin", ErrInvalidInput)
	}
	return nil
}

// EnsureAdmin creates the bootstrap admin account from a pre-hashed
// password when no account with that username exists yet.
func (s *Store) EnsureAdmin(ctx context.Context, username, passHash string) error {
	if username == "" || passHash == "" {
		return nil
	}
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users WHERE username=$1`, username); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (username,full_name,role,password_hash,created_at)
		VALUES ($1,$2,$3,$4,$5)`, username, "Administrator", string(rbac.RoleAdmin), passHash, time.Now().Unix())
	return err
}
