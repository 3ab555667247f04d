// Package diagnostics persists per-iteration telemetry about a run:
// state size, estimated energy, hard-cap warnings, and wall time. It
// never stores the quantum state itself, only statistics about it.
package diagnostics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/fumin/qdmc/errs"
)

const tableIterations = "iterations"

// Store is a SQLite-backed log of one row per completed power-iteration
// step.
type Store struct {
	Path string
	db   *sql.DB
}

// Open creates or truncates the diagnostics database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", dbPath))
	if err != nil {
		return nil, errs.Wrap(errs.IO, err, "diagnostics: Open: opening %s", dbPath)
	}
	if err := prepareDB(db); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.IO, err, "diagnostics: Open: preparing schema")
	}
	return &Store{Path: dbPath, db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return errs.Wrap(errs.IO, err, "diagnostics: Close")
	}
	return nil
}

// Record is one row of per-iteration telemetry.
type Record struct {
	Iteration  int
	Size       int
	Energy     complex128
	HardCapHit bool
	Duration   time.Duration
}

// Log appends r to the store, overwriting any existing row for the same
// iteration number.
func (s *Store) Log(ctx context.Context, r Record) error {
	sqlStr := fmt.Sprintf(`INSERT OR REPLACE INTO %s (iteration, size, energy_re, energy_im, hard_cap_hit, duration_ns) VALUES (?, ?, ?, ?, ?, ?)`, tableIterations)
	hardCapHit := 0
	if r.HardCapHit {
		hardCapHit = 1
	}
	args := []any{r.Iteration, r.Size, real(r.Energy), imag(r.Energy), hardCapHit, r.Duration.Nanoseconds()}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return errs.Wrap(errs.IO, errors.Wrapf(err, "%s %#v", sqlStr, args), "diagnostics: Log")
	}
	return nil
}

// All returns every logged record, ordered by iteration.
func (s *Store) All(ctx context.Context) ([]Record, error) {
	sqlStr := fmt.Sprintf(`SELECT iteration, size, energy_re, energy_im, hard_cap_hit, duration_ns FROM %s ORDER BY iteration`, tableIterations)
	rows, err := s.db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, errs.Wrap(errs.IO, err, "diagnostics: All: querying")
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var re, im float64
		var hardCapHit int
		var durNs int64
		if err := rows.Scan(&r.Iteration, &r.Size, &re, &im, &hardCapHit, &durNs); err != nil {
			return nil, errs.Wrap(errs.IO, err, "diagnostics: All: scanning row")
		}
		r.Energy = complex(re, im)
		r.HardCapHit = hardCapHit != 0
		r.Duration = time.Duration(durNs)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.IO, err, "diagnostics: All: iterating rows")
	}
	return out, nil
}

func prepareDB(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`DROP TABLE IF EXISTS %s`, tableIterations)
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, "")
	}
	sqlStr = fmt.Sprintf(`CREATE TABLE %s (
		iteration INTEGER PRIMARY KEY,
		size INTEGER,
		energy_re REAL,
		energy_im REAL,
		hard_cap_hit INTEGER,
		duration_ns INTEGER
	) STRICT`, tableIterations)
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}
