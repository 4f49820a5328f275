// Package enrollment answers whether a learner may take a course's quizzes.
package enrollment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type Checker interface {
	IsEnrolled(ctx context.Context, courseID, userID string) (bool, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, courseID, userID string) (bool, error)

func (f CheckerFunc) IsEnrolled(ctx context.Context, courseID, userID string) (bool, error) {
	return f(ctx, courseID, userID)
}

// SQLChecker reads active rows from course_students.
type SQLChecker struct{ db *sql.DB }

func NewSQLChecker(sqldb *sql.DB) *SQLChecker { return &SQLChecker{db: sqldb} }

func (c *SQLChecker) IsEnrolled(ctx context.Context, courseID, userID string) (bool, error) {
	var one int
	err := c.db.QueryRowContext(ctx,
		`SELECT 1 FROM course_students WHERE course_id=$1 AND student_id=$2 AND status='active'`,
		courseID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Enroll upserts an active enrollment.
func (c *SQLChecker) Enroll(ctx context.Context, courseID, userID string) error {
	_, err := c.db.ExecContext(ctx, `INSERT INTO course_students (course_id, student_id, status) VALUES ($1,$2,'active')
		ON CONFLICT (course_id, student_id) DO UPDATE SET status='active'`, courseID, userID)
	return err
}

// HTTPChecker asks the course service:
// GET {base}/courses/{course}/enrollments/{user} -> 200 {"enrolled": bool}, 404 when unknown.
type HTTPChecker struct {
	base string
	http *http.Client
}

func NewHTTPChecker(baseURL string, client *http.Client) *HTTPChecker {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPChecker{base: strings.TrimSuffix(baseURL, "/"), http: client}
}

func (c *HTTPChecker) IsEnrolled(ctx context.Context, courseID, userID string) (bool, error) {
	u := fmt.Sprintf("%s/courses/%s/enrollments/%s", c.base, url.PathEscape(courseID), url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")
	res, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()
	switch {
	case res.StatusCode == http.StatusNotFound:
		return false, nil
	case res.StatusCode/100 != 2:
		return false, fmt.Errorf("enrollment check: %s", res.Status)
	}
	var body struct {
		Enrolled bool `json:"enrolled"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("enrollment check: decode: %w", err)
	}
	return body.Enrolled, nil
}
