package attempt

import (
	"context"
	"errors"
	"time"

	"github.com/mind-engage/mindengage-assess/internal/db"
)

var (
	ErrNotFound       = errors.New("attempt not found")
	ErrNotActive      = errors.New("attempt not active")
	ErrNotSubmitted   = errors.New("attempt not submitted")
	ErrLimitReached   = errors.New("attempt limit reached")
	ErrAnswerNotFound = errors.New("answer not found")
)

// Start describes a new attempt. Begin enforces MaxAttempts and the single
// in-progress attempt per (quiz, user) atomically.
type Start struct {
	QuizID      string
	UserID      string
	Now         time.Time
	Deadline    *time.Time
	MaxAttempts int
}

// TxFunc writes alongside a ledger change, inside the ledger's transaction.
type TxFunc func(ctx context.Context, tx db.Execer) error

// Ledger is the durable record of attempts and answers. Every method takes
// the caller's notion of now; the ledger never reads a clock.
type Ledger interface {
	// Active returns the in-progress attempt for (quiz, user) or ErrNotFound.
	Active(ctx context.Context, quizID, userID string) (Attempt, error)
	// Begin returns the in-progress attempt if one exists (created=false),
	// otherwise inserts a new one.
	Begin(ctx context.Context, s Start) (a Attempt, created bool, err error)
	Get(ctx context.Context, id string) (Attempt, error)
	// SaveAnswer upserts one answer while the attempt is open at now.
	SaveAnswer(ctx context.Context, attemptID, questionID, text string, now time.Time) (Answer, error)
	// Finalize grades and closes an in-progress attempt in one transaction.
	// Closing an already submitted attempt returns it with closed=false.
	Finalize(ctx context.Context, id string, now time.Time, by Trigger, grade GradeFunc) (a Attempt, closed bool, err error)
	// Review sets one answer's mark on a submitted attempt and rewrites the
	// attempt totals from rescore. A non-nil also runs in the same
	// transaction once the answer is marked; its error aborts the review.
	Review(ctx context.Context, id, questionID string, mark Mark, reviewer string, now time.Time, rescore GradeFunc, also TxFunc) (Attempt, error)
	// ListDue returns in-progress attempts whose deadline is strictly before
	// now, oldest deadline first.
	ListDue(ctx context.Context, now time.Time, limit int) ([]Attempt, error)
	List(ctx context.Context, f ListFilter) ([]Attempt, error)
}
