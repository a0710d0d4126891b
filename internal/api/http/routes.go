package http

import (
	"github.com/go-chi/chi/v5"

	auth "github.com/mind-engage/mcqexam/internal/auth/middleware"
	"github.com/mind-engage/mcqexam/internal/exam"
	"github.com/mind-engage/mcqexam/internal/rbac"
	"github.com/mind-engage/mcqexam/internal/results"
	"github.com/mind-engage/mcqexam/internal/users"
)

type Deps struct {
	Auth    *auth.AuthService
	Users   *users.Store
	Exams   exam.Store
	Results *results.Engine

	// AllowClaimRole trusts the token role when the user row is missing.
	AllowClaimRole bool
}

// Mount registers the login route and the authenticated API on r.
func Mount(r chi.Router, d Deps) {
	r.Post("/auth/login", auth.LoginHandler(d.Auth, d.Users))

	// JWT → stored role in context → RBAC
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth), auth.AttachRoleFromStore(d.Users, d.AllowClaimRole))

		pr.With(rbac.Require("users:create")).Post("/users", CreateUserHandler(d.Users))
		pr.With(rbac.Require("users:bulk_upsert")).Post("/users/bulk", BulkUpsertUsersHandler(d.Users))
		pr.With(rbac.Require("users:list")).Get("/users", ListUsersHandler(d.Users))
		pr.With(rbac.Require("users:update_role")).Patch("/users/{userID}/role", AdminUpdateUserRoleHandler(d.Users))
		pr.With(rbac.Require("user:change_password")).Post("/users/change-password", ChangePasswordHandler(d.Users))

		pr.With(rbac.Require("exam:create")).Post("/questions", CreateQuestionHandler(d.Exams))
		pr.With(rbac.Require("exam:create")).Put("/exams", PutExamHandler(d.Exams))
		pr.With(rbac.Require("exam:view")).Get("/exams", ListExamsHandler(d.Exams))

		pr.Route("/exams/{examID}", func(er chi.Router) {
			er.With(rbac.Require("exam:view")).Get("/", GetExamHandler(d.Exams))
			er.With(rbac.Require("exam:delete_own")).Delete("/", DeleteExamHandler(d.Exams))
			er.With(rbac.Require("result:submit")).Post("/start", StartAttemptHandler(d.Results))
			er.With(rbac.Require("result:submit")).Post("/submit", SubmitHandler(d.Results))
			er.With(rbac.Require("result:view-all")).Get("/results", ExamResultsHandler(d.Results))
			er.With(rbac.Require("result:view-all")).Get("/results/export", ExportExamResultsHandler(d.Results))
		})

		pr.With(rbac.Require("result:view-own")).Get("/results/mine", MyResultsHandler(d.Results))
		pr.Route("/results/{resultID}", func(rr chi.Router) {
			rr.With(rbac.RequireAny("result:view-own", "result:view-all")).Get("/", GetResultHandler(d.Results))
			rr.With(rbac.RequireAny("result:view-own", "result:view-all")).Get("/review", ReviewHandler(d.Results))
			rr.With(rbac.Require("result:grade")).Patch("/score", OverrideScoreHandler(d.Results))
			rr.With(rbac.Require("result:delete")).Delete("/", DeleteResultHandler(d.Results))
		})
	})
}
