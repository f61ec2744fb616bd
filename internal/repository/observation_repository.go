package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jengzang/crime-lisa-go/internal/analysis/temporal"
	"github.com/jengzang/crime-lisa-go/internal/database"
	"github.com/jengzang/crime-lisa-go/internal/models"
)

// ObservationRepository handles database operations for yearly crime observations
type ObservationRepository struct {
	db *sql.DB
}

// NewObservationRepository creates a new observation repository
func NewObservationRepository(db *sql.DB) *ObservationRepository {
	return &ObservationRepository{db: db}
}

// Upsert inserts observations of one measure, replacing existing values
// for the same (unit, crime type, year)
func (r *ObservationRepository) Upsert(ctx context.Context, measure models.Measure, observations []models.Observation) (int, error) {
	if len(observations) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO observations (ref_area, crime_type, year, measure, value)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (ref_area, crime_type, year, measure)
		DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`

	written := 0
	err := database.Transaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare upsert: %w", err)
		}
		defer stmt.Close()

		for _, o := range observations {
			if _, err := stmt.ExecContext(ctx, o.RefArea, o.CrimeType, o.Year, string(measure), o.Value); err != nil {
				return fmt.Errorf("failed to upsert %s/%s/%d: %w", o.RefArea, o.CrimeType, o.Year, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// ListObservations returns raw observations ordered by unit and year.
// The level is applied by unit code length.
func (r *ObservationRepository) ListObservations(ctx context.Context, q models.ObservationQuery) ([]models.Observation, error) {
	query := `
		SELECT ref_area, crime_type, year, value
		FROM observations
		WHERE measure = ? AND crime_type = ?
	`
	args := []interface{}{string(q.Measure), q.CrimeType}

	if q.Years.Start > 0 {
		query += " AND year >= ?"
		args = append(args, q.Years.Start)
	}
	if q.Years.End > 0 {
		query += " AND year <= ?"
		args = append(args, q.Years.End)
	}
	query += " ORDER BY ref_area, year"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	var observations []models.Observation
	for rows.Next() {
		var o models.Observation
		if err := rows.Scan(&o.RefArea, &o.CrimeType, &o.Year, &o.Value); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		observations = append(observations, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate observations: %w", err)
	}

	if q.Level != "" {
		observations = temporal.FilterLevel(observations, q.Level)
	}
	return observations, nil
}

// GetObservations returns the observation series of a query
func (r *ObservationRepository) GetObservations(ctx context.Context, q models.ObservationQuery) (*models.ObservationSeries, error) {
	observations, err := r.ListObservations(ctx, q)
	if err != nil {
		return nil, err
	}
	return temporal.BuildSeries(q.CrimeType, observations)
}

// ListCrimeTypes returns the crime types that have observations for a measure,
// named from the taxonomy when known
func (r *ObservationRepository) ListCrimeTypes(ctx context.Context, measure models.Measure) ([]models.CrimeType, error) {
	query := `
		SELECT o.crime_type, COALESCE(c.name, o.crime_type), COALESCE(c.category, '')
		FROM (SELECT DISTINCT crime_type FROM observations WHERE measure = ?) o
		LEFT JOIN crime_types c ON c.code = o.crime_type
		ORDER BY o.crime_type
	`

	rows, err := r.db.QueryContext(ctx, query, string(measure))
	if err != nil {
		return nil, fmt.Errorf("failed to list crime types: %w", err)
	}
	defer rows.Close()

	types := []models.CrimeType{}
	for rows.Next() {
		var ct models.CrimeType
		if err := rows.Scan(&ct.Code, &ct.Name, &ct.Category); err != nil {
			return nil, fmt.Errorf("failed to scan crime type: %w", err)
		}
		types = append(types, ct)
	}
	return types, rows.Err()
}

// UpsertCrimeTypes stores taxonomy entries
func (r *ObservationRepository) UpsertCrimeTypes(ctx context.Context, types []models.CrimeType) error {
	query := `
		INSERT INTO crime_types (code, name, category) VALUES (?, ?, ?)
		ON CONFLICT (code) DO UPDATE SET name = excluded.name, category = excluded.category
	`
	return database.Transaction(r.db, func(tx *sql.Tx) error {
		for _, ct := range types {
			if _, err := tx.ExecContext(ctx, query, ct.Code, ct.Name, ct.Category); err != nil {
				return fmt.Errorf("failed to upsert crime type %s: %w", ct.Code, err)
			}
		}
		return nil
	})
}

// YearCoverage returns the first and last year with data for a crime type
func (r *ObservationRepository) YearCoverage(ctx context.Context, measure models.Measure, crimeType string) (models.YearRange, error) {
	query := `
		SELECT MIN(year), MAX(year)
		FROM observations
		WHERE measure = ? AND crime_type = ?
	`

	var minYear, maxYear sql.NullInt64
	if err := r.db.QueryRowContext(ctx, query, string(measure), crimeType).Scan(&minYear, &maxYear); err != nil {
		return models.YearRange{}, fmt.Errorf("failed to query year coverage: %w", err)
	}
	if !minYear.Valid {
		return models.YearRange{}, fmt.Errorf("%w: no observations for %s", models.ErrInsufficientData, crimeType)
	}
	return models.YearRange{Start: int(minYear.Int64), End: int(maxYear.Int64)}, nil
}

// Count returns the number of stored observations of a measure
func (r *ObservationRepository) Count(ctx context.Context, measure models.Measure) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM observations WHERE measure = ?", string(measure)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count observations: %w", err)
	}
	return count, nil
}
