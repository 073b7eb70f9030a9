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

const templateColumns = `id, type, name, description, input_schema, formula, created_at, updated_at`

// SeedTemplates inserts every seed whose driver type is not yet in the
// catalog and returns how many were inserted. Existing templates are never
// overwritten, so seeding on every start is safe.
func (s *SQLiteStore) SeedTemplates(ctx context.Context, seeds []types.DriverTemplate) (int, error) {
	if len(seeds) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO driver_templates (`+templateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(type) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	now := formatTime(time.Now())
	inserted := 0
	for _, t := range seeds {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			return 0, fmt.Errorf("marshal input schema for %s: %w", t.Type, err)
		}
		res, err := stmt.ExecContext(ctx, newID(), string(t.Type), t.Name, t.Description, string(schema), t.Formula, now, now)
		if err != nil {
			return 0, fmt.Errorf("insert template %s: %w", t.Type, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("get rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return inserted, nil
}

// ListTemplates returns the catalog ordered by name.
func (s *SQLiteStore) ListTemplates(ctx context.Context) ([]types.DriverTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+templateColumns+` FROM driver_templates ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	templates := []types.DriverTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		templates = append(templates, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return templates, nil
}

// GetTemplate retrieves a template by ID.
func (s *SQLiteStore) GetTemplate(ctx context.Context, id string) (*types.DriverTemplate, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM driver_templates WHERE id = ?`, id)
	return getTemplate(row)
}

// GetTemplateByType retrieves the template for a driver type.
func (s *SQLiteStore) GetTemplateByType(ctx context.Context, t types.DriverType) (*types.DriverTemplate, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM driver_templates WHERE type = ?`, string(t))
	return getTemplate(row)
}

func getTemplate(row *sql.Row) (*types.DriverTemplate, error) {
	t, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan row: %w", err)
	}
	return t, nil
}

func scanTemplate(scanner rowScanner) (*types.DriverTemplate, error) {
	var t types.DriverTemplate
	var driverType, schemaJSON, createdAt, updatedAt string

	err := scanner.Scan(&t.ID, &driverType, &t.Name, &t.Description, &schemaJSON, &t.Formula, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	t.Type = types.DriverType(driverType)
	if err := json.Unmarshal([]byte(schemaJSON), &t.InputSchema); err != nil {
		return nil, fmt.Errorf("parse input schema JSON: %w", err)
	}
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return &t, nil
}
