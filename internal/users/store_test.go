package users

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mcqexam/internal/db"
	"github.com/mind-engage/mcqexam/internal/rbac"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	hashCost = bcrypt.MinCost
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	d, err := db.Open(context.Background(), db.DriverSQLite, "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return NewStore(d)
}

func TestStore_CreateAndAuthenticate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.Create(ctx, Input{Username: "lan", FullName: "Lan Nguyen", StudentCode: "S01", Password: "pw"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID == 0 || u.Role != rbac.RoleStudent {
		t.Fatalf("unexpected user: %+v", u)
	}

	got, err := s.Authenticate(ctx, " lan ", "pw")
	if err != nil || got.ID != u.ID {
		t.Fatalf("authenticate: %+v %v", got, err)
	}
	if _, err := s.Authenticate(ctx, "lan", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, err := s.Authenticate(ctx, "nobody", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: %v", err)
	}

	role, err := s.Role(ctx, u.ID)
	if err != nil || role != rbac.RoleStudent {
		t.Fatalf("role: %q %v", role, err)
	}

	if _, err := s.Create(ctx, Input{Username: "lan", Password: "x"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("duplicate username: %v", err)
	}
	if _, err := s.Create(ctx, Input{Username: "mai", Role: "parent", Password: "x"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad role: %v", err)
	}
	if _, err := s.Create(ctx, Input{Username: "mai"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing password: %v", err)
	}
}

func TestStore_BulkUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.Create(ctx, Input{Username: "t1", Role: "teacher", Password: "pw"}); err != nil {
		t.Fatal(err)
	}

	ins, upd, err := s.BulkUpsert(ctx, []Input{
		{Username: "t1", Role: "teacher", FullName: "Teacher One"},
		{Username: "s1", Password: "pw"},
		{Username: "s2", Password: "pw", StudentCode: "S02"},
	})
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if ins != 2 || upd != 1 {
		t.Fatalf("inserted=%d updated=%d", ins, upd)
	}
	// t1 kept its password
	if _, err := s.Authenticate(ctx, "t1", "pw"); err != nil {
		t.Fatalf("t1 password lost: %v", err)
	}

	students, err := s.List(ctx, rbac.RoleStudent)
	if err != nil || len(students) != 2 {
		t.Fatalf("list students: %d %v", len(students), err)
	}

	// one bad row rolls back the batch
	if _, _, err := s.BulkUpsert(ctx, []Input{{Username: "s3", Password: "pw"}, {Username: "s4"}}); err == nil {
		t.Fatal("expected error for row without password")
	}
	all, _ := s.List(ctx, "")
	if len(all) != 3 {
		t.Fatalf("batch should have rolled back, have %d users", len(all))
	}
}

func TestStore_ChangePasswordAndEnsureAdmin(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u, err := s.Create(ctx, Input{Username: "hoa", Password: "old"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.ChangePassword(ctx, u.ID, "bad", "new"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("want invalid credentials, got %v", err)
	}
	if err := s.ChangePassword(ctx, u.ID, "old", "new"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Authenticate(ctx, "hoa", "new"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte("root"), bcrypt.MinCost)
	for i := 0; i < 2; i++ {
		if err := s.EnsureAdmin(ctx, "admin", string(hash)); err != nil {
			t.Fatal(err)
		}
	}
	admins, _ := s.List(ctx, rbac.RoleAdmin)
	if len(admins) != 1 {
		t.Fatalf("want exactly one admin, got %d", len(admins))
	}
	if _, err := s.Authenticate(ctx, "admin", "root"); err != nil {
		t.Fatalf("admin login: %v", err)
	}
}

func TestStore_SetRole(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	admin, err := s.Create(ctx, Input{Username: "root", Role: "admin", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}
	stu, err := s.Create(ctx, Input{Username: "an", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.SetRole(ctx, admin.ID, rbac.RoleTeacher); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("demoting last admin: %v", err)
	}
	if err := s.SetRole(ctx, stu.ID, rbac.Role("owner")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad role: %v", err)
	}
	if err := s.SetRole(ctx, 999, rbac.RoleTeacher); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown user: %v", err)
	}
	if err := s.SetRole(ctx, stu.ID, rbac.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	if err := s.SetRole(ctx, admin.ID, rbac.RoleTeacher); err != nil {
		t.Fatalf("demote with another admin present: %v", err)
	}
	if role, _ := s.Role(ctx, admin.ID); role != rbac.RoleTeacher {
		t.Fatalf("role = %q", role)
	}
}

func TestStore_BulkUpsertKeepsLastAdmin(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	root, err := s.Create(ctx, Input{Username: "root", Role: "admin", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}

	// a row without a role keeps the stored one
	if _, _, err := s.BulkUpsert(ctx, []Input{{Username: "root", FullName: "Root"}}); err != nil {
		t.Fatalf("bulk without role: %v", err)
	}
	if role, _ := s.Role(ctx, root.ID); role != rbac.RoleAdmin {
		t.Fatalf("role after bulk = %q", role)
	}

	_, _, err = s.BulkUpsert(ctx, []Input{
		{Username: "new1", Password: "pw"},
		{Username: "root", Role: "student"},
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("demoting last admin: %v", err)
	}
	if role, _ := s.Role(ctx, root.ID); role != rbac.RoleAdmin {
		t.Fatalf("role after rejected bulk = %q", role)
	}
	if _, err := s.Authenticate(ctx, "new1", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("rejected batch left rows behind: %v", err)
	}

	_, _, err = s.BulkUpsert(ctx, []Input{
		{Username: "ops", Role: "admin", Password: "pw"},
		{Username: "root", Role: "teacher"},
	})
	if err != nil {
		t.Fatalf("demote with another admin in the batch: %v", err)
	}
	if role, _ := s.Role(ctx, root.ID); role != rbac.RoleTeacher {
		t.Fatalf("role = %q", role)
	}
}
