package rbac

const (
	QuizCreate         = "quiz:create"
	QuizView           = "quiz:view"
	QuizStats          = "quiz:stats"
	AttemptCreate      = "attempt:create"
	AttemptSave        = "attempt:save"
	AttemptSubmit      = "attempt:submit"
	AttemptViewOwn     = "attempt:view-own"
	AttemptViewAll     = "attempt:view-all"
	AttemptForceSubmit = "attempt:force-submit"
	AttemptGrade       = "attempt:grade"
	EventsRead         = "events:read"
)

// RolePermissions is the default policy. Teachers oversee attempts but only
// admins force-submit or read the event log.
var RolePermissions = map[string][]string{
	"student": {
		QuizView,
		AttemptCreate,
		AttemptSave,
		AttemptSubmit,
		AttemptViewOwn,
	},
	"teacher": {
		"quiz:*",
		AttemptViewAll,
		AttemptGrade,
	},
	"admin": {
		"*",
	},
}
