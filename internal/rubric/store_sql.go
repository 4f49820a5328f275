package rubric

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-assess/internal/db"
)

var (
	ErrNotFound      = errors.New("rubric not found")
	ErrGradeNotFound = errors.New("grade not found")
)

type Store interface {
	CreateRubric(ctx context.Context, r Rubric) (Rubric, error)
	GetRubric(ctx context.Context, id string) (Rubric, error)
	// SaveScores replaces every score the entity holds on this rubric and
	// upserts its grade in one transaction.
	SaveScores(ctx context.Context, r Rubric, scores []Score, g Grade) error
	// WriteScores does the same writes through a caller's transaction.
	WriteScores(ctx context.Context, tx db.Execer, r Rubric, scores []Score, g Grade) error
	ListScores(ctx context.Context, rubricID, entityID string) ([]Score, error)
	GetGrade(ctx context.Context, entityID string) (Grade, error)
}

type SQLStore struct{ db *sql.DB }

func NewSQLStore(sqldb *sql.DB) *SQLStore { return &SQLStore{db: sqldb} }

func (s *SQLStore) CreateRubric(ctx context.Context, r Rubric) (Rubric, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Rubric{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO rubrics (id, owner_id, title, created_by, created_at) VALUES ($1,$2,$3,$4,$5)`,
		r.ID, r.OwnerID, r.Title, r.CreatedBy, db.Millis(r.CreatedAt)); err != nil {
		return Rubric{}, fmt.Errorf("insert rubric: %w", err)
	}
	for i := range r.Items {
		it := &r.Items[i]
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		it.OrderIndex = i
		if _, err := tx.ExecContext(ctx, `INSERT INTO rubric_items (id, rubric_id, description, max_score, weight, order_index)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			it.ID, r.ID, it.Description, it.MaxScore.String(), it.Weight.String(), it.OrderIndex); err != nil {
			return Rubric{}, fmt.Errorf("insert rubric item: %w", err)
		}
	}
	return r, tx.Commit()
}

func (s *SQLStore) GetRubric(ctx context.Context, id string) (Rubric, error) {
	var (
		r       Rubric
		created int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, owner_id, title, created_by, created_at FROM rubrics WHERE id=$1`, id).
		Scan(&r.ID, &r.OwnerID, &r.Title, &r.CreatedBy, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Rubric{}, ErrNotFound
		}
		return Rubric{}, err
	}
	r.CreatedAt = db.FromMillis(created)

	rows, err := s.db.QueryContext(ctx, `SELECT id, description, max_score, weight, order_index
		FROM rubric_items WHERE rubric_id=$1 ORDER BY order_index`, id)
	if err != nil {
		return Rubric{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Description, &it.MaxScore, &it.Weight, &it.OrderIndex); err != nil {
			return Rubric{}, err
		}
		r.Items = append(r.Items, it)
	}
	return r, rows.Err()
}

func (s *SQLStore) SaveScores(ctx context.Context, r Rubric, scores []Score, g Grade) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := s.WriteScores(ctx, tx, r, scores, g); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) WriteScores(ctx context.Context, tx db.Execer, r Rubric, scores []Score, g Grade) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM rubric_scores
		WHERE entity_id=$1 AND rubric_item_id IN (SELECT id FROM rubric_items WHERE rubric_id=$2)`,
		g.EntityID, r.ID); err != nil {
		return fmt.Errorf("clear scores: %w", err)
	}
	for _, sc := range scores {
		if _, err := tx.ExecContext(ctx, `INSERT INTO rubric_scores (entity_id, rubric_item_id, score, comment, scored_by, scored_at)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			g.EntityID, sc.ItemID, sc.Score.String(), sc.Comment, sc.ScoredBy, db.Millis(sc.ScoredAt)); err != nil {
			return fmt.Errorf("insert score: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO grades (entity_id, rubric_id, percentage, graded_by, graded_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (entity_id) DO UPDATE SET rubric_id=EXCLUDED.rubric_id, percentage=EXCLUDED.percentage,
			graded_by=EXCLUDED.graded_by, graded_at=EXCLUDED.graded_at`,
		g.EntityID, r.ID, g.Percentage.StringFixed(2), g.GradedBy, db.Millis(g.GradedAt)); err != nil {
		return fmt.Errorf("upsert grade: %w", err)
	}
	return nil
}

// ListScores returns the entity's scores on one rubric in item order.
func (s *SQLStore) ListScores(ctx context.Context, rubricID, entityID string) ([]Score, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT s.entity_id, s.rubric_item_id, s.score, s.comment, s.scored_by, s.scored_at
		FROM rubric_scores s JOIN rubric_items i ON i.id = s.rubric_item_id
		WHERE i.rubric_id=$1 AND s.entity_id=$2 ORDER BY i.order_index`, rubricID, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Score{}
	for rows.Next() {
		var (
			sc Score
			at int64
		)
		if err := rows.Scan(&sc.EntityID, &sc.ItemID, &sc.Score, &sc.Comment, &sc.ScoredBy, &at); err != nil {
			return nil, err
		}
		sc.ScoredAt = db.FromMillis(at)
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetGrade(ctx context.Context, entityID string) (Grade, error) {
	var (
		g  Grade
		at int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT entity_id, rubric_id, percentage, graded_by, graded_at FROM grades WHERE entity_id=$1`, entityID).
		Scan(&g.EntityID, &g.RubricID, &g.Percentage, &g.GradedBy, &at)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Grade{}, ErrGradeNotFound
		}
		return Grade{}, err
	}
	g.GradedAt = db.FromMillis(at)
	return g, nil
}
