package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hyperengineering/driverlib/internal/types"
)

const resultColumns = `id, instance_id, period_type, period_date, revenue, customers, units, calculated_values, created_at, updated_at`

// UpsertResult writes a result keyed by (instance, period type, period date).
// An existing row keeps its ID and created_at; every value column is replaced.
func (s *SQLiteStore) UpsertResult(ctx context.Context, r types.DriverResult) (*types.DriverResult, error) {
	values := r.CalculatedValues
	if values == nil {
		values = map[string]float64{}
	}
	valuesJSON, err := json.Marshal(types.NullableFloats(values))
	if err != nil {
		return nil, fmt.Errorf("marshal calculated values: %w", err)
	}

	now := formatTime(time.Now())
	var id, createdAt, updatedAt string
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO driver_results (`+resultColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(instance_id, period_type, period_date) DO UPDATE SET
			revenue = excluded.revenue,
			customers = excluded.customers,
			units = excluded.units,
			calculated_values = excluded.calculated_values,
			updated_at = excluded.updated_at
		RETURNING id, created_at, updated_at
	`, newID(), r.InstanceID, string(r.PeriodType), r.PeriodDate, nullFloat(&r.Revenue),
		nullFloat(r.Customers), nullFloat(r.Units), string(valuesJSON), now, now,
	).Scan(&id, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert result: %w", err)
	}

	out := r
	out.ID = id
	out.CalculatedValues = values
	out.CreatedAt = parseTime(createdAt)
	out.UpdatedAt = parseTime(updatedAt)
	return &out, nil
}

// GetResult retrieves a single period's result by natural key.
func (s *SQLiteStore) GetResult(ctx context.Context, instanceID string, pt types.PeriodType, periodDate string) (*types.DriverResult, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+resultColumns+` FROM driver_results
		WHERE instance_id = ? AND period_type = ? AND period_date = ?
	`, instanceID, string(pt), periodDate)

	r, err := scanResult(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan row: %w", err)
	}
	return r, nil
}

// ListResults returns an instance's results in ascending period order.
func (s *SQLiteStore) ListResults(ctx context.Context, instanceID string, f types.ResultFilter) ([]types.DriverResult, error) {
	clauses := []string{"instance_id = ?"}
	args := []any{instanceID}
	if f.PeriodType != "" {
		clauses = append(clauses, "period_type = ?")
		args = append(args, string(f.PeriodType))
	}
	if f.From != "" {
		clauses = append(clauses, "period_date >= ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		clauses = append(clauses, "period_date <= ?")
		args = append(args, f.To)
	}

	query := `SELECT ` + resultColumns + ` FROM driver_results WHERE ` +
		strings.Join(clauses, " AND ") + ` ORDER BY period_date ASC, period_type ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	results := []types.DriverResult{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		results = append(results, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return results, nil
}

func scanResult(scanner rowScanner) (*types.DriverResult, error) {
	var r types.DriverResult
	var periodType, valuesJSON, createdAt, updatedAt string
	var revenue, customers, units sql.NullFloat64

	err := scanner.Scan(&r.ID, &r.InstanceID, &periodType, &r.PeriodDate, &revenue,
		&customers, &units, &valuesJSON, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	r.PeriodType = types.PeriodType(periodType)
	r.Revenue = math.NaN()
	if revenue.Valid {
		r.Revenue = revenue.Float64
	}
	if customers.Valid {
		r.Customers = &customers.Float64
	}
	if units.Valid {
		r.Units = &units.Float64
	}
	var values map[string]*float64
	if err := json.Unmarshal([]byte(valuesJSON), &values); err != nil {
		return nil, fmt.Errorf("parse calculated values JSON: %w", err)
	}
	r.CalculatedValues = types.FromNullableFloats(values)
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}

// nullFloat stores nil and NaN as NULL.
func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil || math.IsNaN(*v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
