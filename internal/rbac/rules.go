package rbac

// RolePermissions is the default policy. Ownership (a teacher's own exams,
// a student's own results) is checked by the services, not here.
var RolePermissions = map[Role][]string{
	RoleStudent: {
		"exam:view",
		"result:submit",
		"result:view-own",
		"user:change_password",
	},
	RoleTeacher: {
		"exam:create",
		"exam:view",
		"exam:delete_own",
		"result:view-all",
		"result:grade",
		"result:delete",
		"users:list",
		"user:change_password",
	},
	RoleAdmin: {
		"*", // everything
	},
}
