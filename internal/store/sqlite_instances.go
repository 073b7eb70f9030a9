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

const instanceSelect = `
	SELECT i.id, i.template_id, i.forecast_version_id, i.name, i.inputs,
	       i.period_start, i.period_end, i.period_type, i.created_at, i.updated_at,
	       t.id, t.type, t.name, t.description, t.input_schema, t.formula, t.created_at, t.updated_at
	FROM driver_instances i
	JOIN driver_templates t ON t.id = i.template_id
`

// CreateInstance persists a new instance. Returns ErrTemplateNotFound if the
// referenced template does not exist.
func (s *SQLiteStore) CreateInstance(ctx context.Context, inst types.NewDriverInstance) (*types.DriverInstance, error) {
	inputs, err := marshalInputs(inst.Inputs)
	if err != nil {
		return nil, err
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM driver_templates WHERE id = ?`, inst.TemplateID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("check template: %w", err)
	}

	id := newID()
	now := formatTime(time.Now())
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO driver_instances (
			id, template_id, forecast_version_id, name, inputs,
			period_start, period_end, period_type, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, inst.TemplateID, nullString(inst.ForecastVersionID), inst.Name, inputs,
		inst.Configuration.PeriodStart, inst.Configuration.PeriodEnd, string(inst.Configuration.PeriodType),
		now, now)
	if err != nil {
		return nil, fmt.Errorf("insert instance: %w", err)
	}

	return s.GetInstance(ctx, id)
}

// GetInstance retrieves an instance joined with its template.
func (s *SQLiteStore) GetInstance(ctx context.Context, id string) (*types.DriverInstance, error) {
	row := s.db.QueryRowContext(ctx, instanceSelect+` WHERE i.id = ?`, id)
	inst, err := scanInstance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan row: %w", err)
	}
	return inst, nil
}

// UpdateInstance writes the mutable fields (name, inputs, configuration) and
// refreshes updated_at.
func (s *SQLiteStore) UpdateInstance(ctx context.Context, inst *types.DriverInstance) (*types.DriverInstance, error) {
	inputs, err := marshalInputs(inst.Inputs)
	if err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE driver_instances
		SET name = ?, inputs = ?, period_start = ?, period_end = ?, period_type = ?, updated_at = ?
		WHERE id = ?
	`, inst.Name, inputs, inst.Configuration.PeriodStart, inst.Configuration.PeriodEnd,
		string(inst.Configuration.PeriodType), formatTime(time.Now()), inst.ID)
	if err != nil {
		return nil, fmt.Errorf("update instance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	return s.GetInstance(ctx, inst.ID)
}

// DeleteInstance removes an instance, its results and incident edges in one
// transaction. The deletes are explicit rather than relying on FK cascades.
func (s *SQLiteStore) DeleteInstance(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM driver_results WHERE instance_id = ?`, id); err != nil {
		return fmt.Errorf("delete results: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM driver_dependencies WHERE parent_instance_id = ? OR child_instance_id = ?`, id, id); err != nil {
		return fmt.Errorf("delete dependencies: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM driver_instances WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete instance: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListInstances returns instances newest first. An empty forecastVersionID
// lists every instance.
func (s *SQLiteStore) ListInstances(ctx context.Context, forecastVersionID string) ([]types.DriverInstance, error) {
	query := instanceSelect
	var args []any
	if forecastVersionID != "" {
		query += ` WHERE i.forecast_version_id = ?`
		args = append(args, forecastVersionID)
	}
	query += ` ORDER BY i.created_at DESC, i.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query instances: %w", err)
	}
	defer rows.Close()

	instances := []types.DriverInstance{}
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		instances = append(instances, *inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return instances, nil
}

func scanInstance(scanner rowScanner) (*types.DriverInstance, error) {
	var inst types.DriverInstance
	var tmpl types.DriverTemplate
	var versionID sql.NullString
	var inputsJSON, periodType, createdAt, updatedAt string
	var driverType, schemaJSON, tmplCreatedAt, tmplUpdatedAt string

	err := scanner.Scan(
		&inst.ID, &inst.TemplateID, &versionID, &inst.Name, &inputsJSON,
		&inst.Configuration.PeriodStart, &inst.Configuration.PeriodEnd, &periodType, &createdAt, &updatedAt,
		&tmpl.ID, &driverType, &tmpl.Name, &tmpl.Description, &schemaJSON, &tmpl.Formula, &tmplCreatedAt, &tmplUpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if versionID.Valid {
		inst.ForecastVersionID = &versionID.String
	}
	if err := json.Unmarshal([]byte(inputsJSON), &inst.Inputs); err != nil {
		return nil, fmt.Errorf("parse inputs JSON: %w", err)
	}
	if err := json.Unmarshal([]byte(schemaJSON), &tmpl.InputSchema); err != nil {
		return nil, fmt.Errorf("parse input schema JSON: %w", err)
	}
	inst.Configuration.PeriodType = types.PeriodType(periodType)
	inst.CreatedAt = parseTime(createdAt)
	inst.UpdatedAt = parseTime(updatedAt)

	tmpl.Type = types.DriverType(driverType)
	tmpl.CreatedAt = parseTime(tmplCreatedAt)
	tmpl.UpdatedAt = parseTime(tmplUpdatedAt)
	inst.Template = &tmpl

	return &inst, nil
}

func marshalInputs(in types.Inputs) (string, error) {
	if in == nil {
		in = types.Inputs{}
	}
	b, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("marshal inputs: %w", err)
	}
	return string(b), nil
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
