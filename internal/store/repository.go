package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"codeberg.org/kessl/xptrack/internal/errors"
	"codeberg.org/kessl/xptrack/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

const (
	defaultDirPerm = 0o755
)

type repository struct {
	db     *sql.DB
	dbPath string
}

// Open opens (creating if necessary) the sample database at dbPath and
// validates its schema.
func Open(dbPath string) (Store, error) {
	errFactory := errors.New()

	if dbPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  dbPath,
			Error: err.Error(),
		})
	}

	// Open database with specific pragmas for better performance and safety
	dsn := dbPath + "?_journal=WAL&_auto_vacuum=2&_foreign_keys=1"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	// Validate if schema is current, with backup if needed
	if err := ValidateAndUpdateSchema(db, dbPath); err != nil {
		db.Close()
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "schema_version",
			Error: err.Error(),
		})
	}

	logger.Info().
		Str("path", dbPath).
		Int("schema_version", SchemaVersion).
		Msg("Sample store initialized")

	return &repository{
		db:     db,
		dbPath: dbPath,
	}, nil
}

func (r *repository) UpsertSpot(ctx context.Context, name string) (Spot, error) {
	errFactory := errors.New()

	if name == "" {
		return Spot{}, errFactory.WithMessage(errors.ErrInvalidArgument, "spot name must not be empty")
	}

	// Idempotent get-or-create; the unique constraint resolves races
	// between concurrent upserts of the same name.
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO spots (name, created_at)
        VALUES (?, ?)
        ON CONFLICT(name) DO NOTHING
    `, name, time.Now().UnixMilli())
	if err != nil {
		return Spot{}, errFactory.WithData(ErrStorageAccess, struct {
			Operation string
			Name      string
			Error     string
		}{
			Operation: "upsert_spot",
			Name:      name,
			Error:     err.Error(),
		})
	}

	var spot Spot
	err = r.db.QueryRowContext(ctx, `
        SELECT id, name, created_at
        FROM spots
        WHERE name = ?
    `, name).Scan(&spot.ID, &spot.Name, &spot.CreatedAt)
	if err != nil {
		return Spot{}, errFactory.WithData(ErrStorageAccess, struct {
			Operation string
			Name      string
			Error     string
		}{
			Operation: "select_spot",
			Name:      name,
			Error:     err.Error(),
		})
	}

	return spot, nil
}

func (r *repository) ListSpots(ctx context.Context) ([]Spot, error) {
	errFactory := errors.New()

	rows, err := r.db.QueryContext(ctx, `
        SELECT id, name, created_at
        FROM spots
        ORDER BY created_at DESC, id DESC
    `)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	var spots []Spot
	for rows.Next() {
		var spot Spot
		if err := rows.Scan(&spot.ID, &spot.Name, &spot.CreatedAt); err != nil {
			return nil, errFactory.Wrap(ErrStorageAccess, err)
		}
		spots = append(spots, spot)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}

	return spots, nil
}

func (r *repository) GetSpot(ctx context.Context, id int64) (Spot, error) {
	errFactory := errors.New()

	var spot Spot
	err := r.db.QueryRowContext(ctx, `
        SELECT id, name, created_at
        FROM spots
        WHERE id = ?
    `, id).Scan(&spot.ID, &spot.Name, &spot.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Spot{}, errFactory.WithData(ErrSpotNotFound, id)
	}
	if err != nil {
		return Spot{}, errFactory.Wrap(ErrStorageAccess, err)
	}

	return spot, nil
}

func (r *repository) InsertSample(ctx context.Context, spotID, ts int64, level int, expPercent float64) error {
	errFactory := errors.New()

	if _, err := r.db.ExecContext(ctx, insertSampleSQL, spotID, ts, level, expPercent); err != nil {
		return errFactory.WithData(ErrStorageAccess, struct {
			Operation string
			SpotID    int64
			Error     string
		}{
			Operation: "insert_sample",
			SpotID:    spotID,
			Error:     err.Error(),
		})
	}

	return nil
}

func (r *repository) ListSamples(ctx context.Context, spotID int64, limit int) ([]ExpSample, error) {
	errFactory := errors.New()

	rows, err := r.db.QueryContext(ctx, `
        SELECT id, spot_id, ts, level, exp_percent
        FROM exp_samples
        WHERE spot_id = ?
        ORDER BY ts DESC
        LIMIT ?
    `, spotID, limit)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

func (r *repository) SamplesSince(ctx context.Context, spotID, sinceMS int64) ([]ExpSample, error) {
	errFactory := errors.New()

	rows, err := r.db.QueryContext(ctx, `
        SELECT id, spot_id, ts, level, exp_percent
        FROM exp_samples
        WHERE spot_id = ? AND ts >= ?
        ORDER BY ts ASC
    `, spotID, sinceMS)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

func scanSamples(rows *sql.Rows) ([]ExpSample, error) {
	errFactory := errors.New()

	var samples []ExpSample
	for rows.Next() {
		var s ExpSample
		if err := rows.Scan(&s.ID, &s.SpotID, &s.TS, &s.Level, &s.ExpPercent); err != nil {
			return nil, errFactory.Wrap(ErrStorageAccess, err)
		}
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}

	return samples, nil
}

func (r *repository) GetSetting(ctx context.Context, key string) (string, bool, error) {
	errFactory := errors.New()

	var value string
	err := r.db.QueryRowContext(ctx, `
        SELECT value FROM exp_settings WHERE key = ?
    `, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errFactory.Wrap(ErrStorageAccess, err)
	}

	return value, true, nil
}

func (r *repository) SetSetting(ctx context.Context, key, value string) error {
	errFactory := errors.New()

	_, err := r.db.ExecContext(ctx, `
        INSERT INTO exp_settings (key, value)
        VALUES (?, ?)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value
    `, key, value)
	if err != nil {
		return errFactory.WithData(ErrStorageAccess, struct {
			Operation string
			Key       string
			Error     string
		}{
			Operation: "set_setting",
			Key:       key,
			Error:     err.Error(),
		})
	}

	return nil
}

func (r *repository) Close() error {
	errFactory := errors.New()

	// Checkpoint WAL and cleanup on close
	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errFactory.WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "checkpoint_wal",
			Error: err.Error(),
		})
	}

	if err := r.db.Close(); err != nil {
		return errFactory.WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "close_database",
			Error: err.Error(),
		})
	}

	logger.Debug().Msg("Sample store closed")

	return nil
}
