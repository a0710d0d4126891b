package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mind-engage/mcqexam/internal/rbac"
	"github.com/mind-engage/mcqexam/internal/users"
)

type fakeAccounts struct {
	byName map[string]users.User
	pw     string
	err    error
}

func (f fakeAccounts) Authenticate(_ context.Context, username, password string) (users.User, error) {
	if f.err != nil {
		return users.User{}, f.err
	}
	u, ok := f.byName[username]
	if !ok || password != f.pw {
		return users.User{}, users.ErrInvalidCredentials
	}
	return u, nil
}

func (f fakeAccounts) Role(_ context.Context, id int64) (rbac.Role, error) {
	if f.err != nil {
		return "", f.err
	}
	for _, u := range f.byName {
		if u.ID == id {
			return u.Role, nil
		}
	}
	return "", users.ErrNotFound
}

func echoIdentity() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := rbac.SubjectFromContext(r.Context())
		_ = json.NewEncoder(w).Encode(map[string]any{"id": id, "role": rbac.RoleFromContext(r.Context())})
	})
}

func TestIssueAndParse(t *testing.T) {
	a := NewAuthService("secret", time.Hour)
	tok, err := a.IssueJWT(42, rbac.RoleTeacher)
	if err != nil {
		t.Fatal(err)
	}
	c, err := a.Parse(tok)
	if err != nil {
		t.Fatal(err)
	}
	if c.Subject != "42" || c.Role != "teacher" || c.Issuer != issuer {
		t.Fatalf("claims = %+v", c)
	}

	if _, err := NewAuthService("other", time.Hour).Parse(tok); err == nil {
		t.Fatal("token signed with another secret must not parse")
	}

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{Role: "student", RegisteredClaims: jwt.RegisteredClaims{
		Subject: "1", Issuer: issuer, ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	s, _ := expired.SignedString([]byte("secret"))
	if _, err := a.Parse(s); err == nil {
		t.Fatal("expired token must not parse")
	}
}

func TestLoginHandler(t *testing.T) {
	a := NewAuthService("secret", time.Hour)
	accounts := fakeAccounts{pw: "pw", byName: map[string]users.User{
		"lan": {ID: 7, Username: "lan", Role: rbac.RoleStudent},
	}}
	h := LoginHandler(a, accounts)

	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"lan","password":"pw"}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	c, err := a.Parse(resp.AccessToken)
	if err != nil || c.Subject != "7" || c.Role != "student" {
		t.Fatalf("issued claims %+v, %v", c, err)
	}

	rr = httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"lan","password":"nope"}`)))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad json status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	LoginHandler(a, fakeAccounts{err: errors.New("db down")})(rr,
		httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"lan","password":"pw"}`)))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("store failure status = %d", rr.Code)
	}
}

func TestJWTMiddleware(t *testing.T) {
	a := NewAuthService("secret", time.Hour)
	h := JWTMiddleware(a)(echoIdentity())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("no bearer: %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: %d", rr.Code)
	}

	tok, _ := a.IssueJWT(9, rbac.RoleAdmin)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"id":9`) || !strings.Contains(rr.Body.String(), `"role":"admin"`) {
		t.Fatalf("got %d %s", rr.Code, rr.Body.String())
	}
}

func TestAttachRoleFromStore(t *testing.T) {
	a := NewAuthService("secret", time.Hour)
	accounts := fakeAccounts{byName: map[string]users.User{"t": {ID: 3, Role: rbac.RoleTeacher}}}

	call := func(src RoleSource, fallback bool, id int64, claim rbac.Role) *httptest.ResponseRecorder {
		tok, _ := a.IssueJWT(id, claim)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rr := httptest.NewRecorder()
		JWTMiddleware(a)(AttachRoleFromStore(src, fallback)(echoIdentity())).ServeHTTP(rr, req)
		return rr
	}

	// stored role wins over the claim
	if rr := call(accounts, false, 3, rbac.RoleAdmin); rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"role":"teacher"`) {
		t.Fatalf("stored role: %d %s", rr.Code, rr.Body.String())
	}
	if rr := call(accounts, false, 99, rbac.RoleStudent); rr.Code != http.StatusForbidden {
		t.Fatalf("unknown user without fallback: %d", rr.Code)
	}
	if rr := call(accounts, true, 99, rbac.RoleStudent); rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"role":"student"`) {
		t.Fatalf("unknown user with fallback: %d %s", rr.Code, rr.Body.String())
	}
	if rr := call(fakeAccounts{err: errors.New("db down")}, false, 3, rbac.RoleTeacher); rr.Code != http.StatusForbidden {
		t.Fatalf("store error without fallback: %d", rr.Code)
	}
}
