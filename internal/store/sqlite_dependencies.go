package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hyperengineering/driverlib/internal/types"
)

const dependencyColumns = `id, parent_instance_id, child_instance_id, mapping, created_at`

// CreateDependency persists an edge. A second edge between the same ordered
// pair returns ErrDuplicateDependency; a missing endpoint returns ErrNotFound.
func (s *SQLiteStore) CreateDependency(ctx context.Context, dep types.NewDriverDependency) (*types.DriverDependency, error) {
	mapping, err := json.Marshal(dep.Mapping)
	if err != nil {
		return nil, fmt.Errorf("marshal mapping: %w", err)
	}

	id := newID()
	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO driver_dependencies (`+dependencyColumns+`)
		VALUES (?, ?, ?, ?, ?)
	`, id, dep.ParentInstanceID, dep.ChildInstanceID, string(mapping), formatTime(now))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateDependency
		}
		if isForeignKeyViolation(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("insert dependency: %w", err)
	}

	return s.getDependency(ctx, id)
}

// GetDependencies returns every edge touching the instance, as parent or child.
func (s *SQLiteStore) GetDependencies(ctx context.Context, instanceID string) ([]types.DriverDependency, error) {
	return s.queryDependencies(ctx, `
		SELECT `+dependencyColumns+` FROM driver_dependencies
		WHERE parent_instance_id = ? OR child_instance_id = ?
		ORDER BY created_at ASC, id ASC
	`, instanceID, instanceID)
}

// ListDependencies returns every edge in the graph.
func (s *SQLiteStore) ListDependencies(ctx context.Context) ([]types.DriverDependency, error) {
	return s.queryDependencies(ctx, `
		SELECT `+dependencyColumns+` FROM driver_dependencies
		ORDER BY created_at ASC, id ASC
	`)
}

// DeleteDependency removes an edge by ID.
func (s *SQLiteStore) DeleteDependency(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM driver_dependencies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete dependency: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) getDependency(ctx context.Context, id string) (*types.DriverDependency, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+dependencyColumns+` FROM driver_dependencies WHERE id = ?`, id)
	d, err := scanDependency(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan row: %w", err)
	}
	return d, nil
}

func (s *SQLiteStore) queryDependencies(ctx context.Context, query string, args ...any) ([]types.DriverDependency, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query dependencies: %w", err)
	}
	defer rows.Close()

	deps := []types.DriverDependency{}
	for rows.Next() {
		d, err := scanDependency(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		deps = append(deps, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return deps, nil
}

func scanDependency(scanner rowScanner) (*types.DriverDependency, error) {
	var d types.DriverDependency
	var mappingJSON, createdAt string

	if err := scanner.Scan(&d.ID, &d.ParentInstanceID, &d.ChildInstanceID, &mappingJSON, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(mappingJSON), &d.Mapping); err != nil {
		return nil, fmt.Errorf("parse mapping JSON: %w", err)
	}
	d.CreatedAt = parseTime(createdAt)
	return &d, nil
}
