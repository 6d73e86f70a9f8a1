package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/adsim-project/adsim-go/pkg/waveform"
)

// SQLiteStore keeps the current sensor rows and a log of client writes.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (and migrates) the database at dbPath.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared across queries.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`PRAGMA journal_mode = WAL;`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	s := &SQLiteStore{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sensors (
		module INTEGER NOT NULL,
		sensor INTEGER NOT NULL,
		module_name TEXT NOT NULL,
		module_status TEXT,
		name TEXT NOT NULL,
		type TEXT,
		unit TEXT,
		min_value REAL,
		max_value REAL,
		waveform_kind TEXT NOT NULL,
		amplitude REAL NOT NULL DEFAULT 0,
		frequency REAL NOT NULL DEFAULT 0,
		phase_offset REAL NOT NULL DEFAULT 0,
		dc_offset REAL NOT NULL DEFAULT 0,
		value REAL NOT NULL DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (module, sensor)
	);

	CREATE TABLE IF NOT EXISTS sensor_writes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		module INTEGER NOT NULL,
		sensor INTEGER NOT NULL,
		name TEXT,
		value REAL NOT NULL,
		written_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sensor_writes_address ON sensor_writes(module, sensor);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// LoadSensors returns all sensor rows ordered by address.
func (s *SQLiteStore) LoadSensors(ctx context.Context) ([]SensorRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT module, sensor, module_name, module_status, name, type, unit,
		       min_value, max_value, waveform_kind,
		       amplitude, frequency, phase_offset, dc_offset, value
		FROM sensors ORDER BY module, sensor
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SensorRow
	for rows.Next() {
		var r SensorRow
		var status, typ, unit sql.NullString
		var min, max sql.NullFloat64
		var kind string

		err := rows.Scan(
			&r.Module, &r.Sensor, &r.ModuleName, &status, &r.Name, &typ, &unit,
			&min, &max, &kind,
			&r.Config.Amplitude, &r.Config.Frequency, &r.Config.PhaseOffset, &r.Config.DCOffset,
			&r.Value,
		)
		if err != nil {
			return nil, err
		}

		r.Kind, err = waveform.ParseKind(kind)
		if err != nil {
			return nil, fmt.Errorf("sensor %d/%d: %w", r.Module, r.Sensor, err)
		}
		r.ModuleStatus = status.String
		r.Type = typ.String
		r.Unit = unit.String
		if min.Valid {
			r.Min = &min.Float64
		}
		if max.Valid {
			r.Max = &max.Float64
		}

		result = append(result, r)
	}

	return result, rows.Err()
}

// RecordWrite appends to the write log and updates the current value.
func (s *SQLiteStore) RecordWrite(ctx context.Context, rec WriteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sensor_writes (module, sensor, name, value, written_at)
		VALUES (?, ?, ?, ?, ?)
	`, rec.Module, rec.Sensor, rec.Name, rec.Value, rec.At)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sensors SET value = ?, updated_at = ? WHERE module = ? AND sensor = ?
	`, rec.Value, rec.At, rec.Module, rec.Sensor)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// SeedSensors fills the sensors table when it is empty. It reports whether
// any rows were inserted.
func (s *SQLiteStore) SeedSensors(ctx context.Context, rows []SensorRow) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sensors`).Scan(&count); err != nil {
		return false, err
	}
	if count > 0 || len(rows) == 0 {
		return false, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sensors (module, sensor, module_name, module_status, name, type, unit,
		                     min_value, max_value, waveform_kind,
		                     amplitude, frequency, phase_offset, dc_offset, value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return false, err
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.ExecContext(ctx,
			r.Module, r.Sensor, r.ModuleName, r.ModuleStatus, r.Name, r.Type, r.Unit,
			nullFloat(r.Min), nullFloat(r.Max), r.Kind.String(),
			r.Config.Amplitude, r.Config.Frequency, r.Config.PhaseOffset, r.Config.DCOffset,
			r.Value,
		)
		if err != nil {
			return false, fmt.Errorf("sensor %d/%d: %w", r.Module, r.Sensor, err)
		}
	}

	return true, tx.Commit()
}

// WriteCount returns the number of logged writes for an address.
func (s *SQLiteStore) WriteCount(ctx context.Context, module, sensor uint16) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sensor_writes WHERE module = ? AND sensor = ?
	`, module, sensor).Scan(&count)
	return count, err
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
