package rbac

import "strings"

const (
	PermQuizCreate      = "quiz:create"
	PermQuizView        = "quiz:view"
	PermQuizViewAnswers = "quiz:view-answers"
	PermAttemptCreate   = "attempt:create"
	PermAttemptSave     = "attempt:save"
	PermAttemptSubmit   = "attempt:submit"
	PermAttemptViewOwn  = "attempt:view-own"
	PermAttemptViewAll  = "attempt:view-all"
	PermAttemptGrade    = "attempt:grade"
	PermRubricCreate    = "rubric:create"
	PermRubricView      = "rubric:view"
	PermRubricGrade     = "rubric:grade"
)

// Policy maps a role to the permission patterns it holds. A pattern is an
// exact permission, a "resource:*" family, or "*".
type Policy map[string][]string

// DefaultPolicy is what the HTTP guards enforce.
var DefaultPolicy = Policy{
	"student": {
		PermQuizView,
		PermAttemptCreate,
		PermAttemptSave,
		PermAttemptSubmit,
		PermAttemptViewOwn,
	},
	"teacher": {
		"quiz:*",
		PermAttemptViewAll,
		PermAttemptGrade,
		"rubric:*",
	},
	"admin": {"*"},
}

// Allows reports whether role holds at least one of perms. Unknown and
// empty roles hold nothing.
func (p Policy) Allows(role string, perms ...string) bool {
	for _, pattern := range p[role] {
		for _, perm := range perms {
			if grants(pattern, perm) {
				return true
			}
		}
	}
	return false
}

func grants(pattern, perm string) bool {
	family, wildcard := strings.CutSuffix(pattern, "*")
	if !wildcard {
		return pattern == perm
	}
	return strings.HasPrefix(perm, family)
}
