package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ClassroomRepository reads the room catalog. Rooms are managed elsewhere.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository creates a new classroom repository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// ListActiveIDs returns ids of rooms that are not soft-deleted, sorted.
func (r *ClassroomRepository) ListActiveIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT id FROM classrooms WHERE deleted_at IS NULL ORDER BY id ASC`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list classrooms: %w", err)
	}
	return ids, nil
}
