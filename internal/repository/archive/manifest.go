// Package archive persists the clip archive as an append-only manifest and
// serves lookups from an immutable in-memory snapshot.
package archive

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Record is one row of the clip manifest. Rows are never updated or deleted;
// the row id doubles as the archive version.
type Record struct {
	Version    int64
	ClipID     string
	AudioRef   string
	Keywords   []string
	Variations []string
	Patterns   []string
	Vectors    [][]float32
	Priority   int
	CreatedAt  time.Time
}

// Manifest is the SQLite-backed durable log behind the archive.
type Manifest struct {
	db *sql.DB
}

// OpenManifest opens (or creates) the manifest database in dataDir and runs
// pending migrations. Pass ":memory:" as dataDir for an in-memory database
// (used by tests).
func OpenManifest(dataDir string) (*Manifest, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "voicecore.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// WAL mode keeps reads cheap while a publish is in flight.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	m := &Manifest{db: db}
	if err := m.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return m, nil
}

// Close closes the underlying database connection.
func (m *Manifest) Close() error {
	return m.db.Close()
}

// Ping checks database connectivity.
func (m *Manifest) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

// Append inserts a record and returns the version assigned to it. Versions
// are assigned by the database and increase monotonically.
func (m *Manifest) Append(ctx context.Context, rec Record) (int64, error) {
	keywords, err := json.Marshal(rec.Keywords)
	if err != nil {
		return 0, fmt.Errorf("encoding keywords: %w", err)
	}
	variations, err := json.Marshal(rec.Variations)
	if err != nil {
		return 0, fmt.Errorf("encoding variations: %w", err)
	}
	patterns, err := json.Marshal(rec.Patterns)
	if err != nil {
		return 0, fmt.Errorf("encoding patterns: %w", err)
	}
	vectors, err := json.Marshal(rec.Vectors)
	if err != nil {
		return 0, fmt.Errorf("encoding vectors: %w", err)
	}

	res, err := m.db.ExecContext(ctx, `
		INSERT INTO clip_manifest (clip_id, audio_ref, keywords, variations, patterns, vectors, priority, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ClipID, rec.AudioRef, string(keywords), string(variations),
		string(patterns), string(vectors), rec.Priority,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting manifest record: %w", err)
	}

	version, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading assigned version: %w", err)
	}
	return version, nil
}

// SkippedRow reports a manifest row that could not be decoded on load.
type SkippedRow struct {
	Version int64
	ClipID  string
	Err     error
}

// LoadAll returns every decodable record in version order plus the latest
// version. A row whose stored fields fail to decode is reported in skipped
// rather than failing the load; its version still advances the version
// counter. An empty manifest yields version 0.
func (m *Manifest) LoadAll(ctx context.Context) ([]Record, []SkippedRow, int64, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT version, clip_id, audio_ref, keywords, variations, patterns, vectors, priority, created_at
		FROM clip_manifest ORDER BY version ASC`,
	)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("querying manifest: %w", err)
	}
	defer rows.Close()

	var records []Record
	var skipped []SkippedRow
	var latest int64
	for rows.Next() {
		var rec Record
		var keywords, variations, patterns, vectors, createdAt string
		if err := rows.Scan(
			&rec.Version, &rec.ClipID, &rec.AudioRef,
			&keywords, &variations, &patterns, &vectors,
			&rec.Priority, &createdAt,
		); err != nil {
			return nil, nil, 0, fmt.Errorf("scanning manifest record: %w", err)
		}
		latest = rec.Version

		if err := decodeRecordFields(&rec, keywords, variations, patterns, vectors, createdAt); err != nil {
			skipped = append(skipped, SkippedRow{Version: rec.Version, ClipID: rec.ClipID, Err: err})
			continue
		}

		records = append(records, rec)
	}
	return records, skipped, latest, rows.Err()
}

func decodeRecordFields(rec *Record, keywords, variations, patterns, vectors, createdAt string) error {
	if err := json.Unmarshal([]byte(keywords), &rec.Keywords); err != nil {
		return fmt.Errorf("decoding keywords: %w", err)
	}
	if err := json.Unmarshal([]byte(variations), &rec.Variations); err != nil {
		return fmt.Errorf("decoding variations: %w", err)
	}
	if err := json.Unmarshal([]byte(patterns), &rec.Patterns); err != nil {
		return fmt.Errorf("decoding patterns: %w", err)
	}
	if err := json.Unmarshal([]byte(vectors), &rec.Vectors); err != nil {
		return fmt.Errorf("decoding vectors: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return fmt.Errorf("parsing created_at: %w", err)
	}
	rec.CreatedAt = t
	return nil
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (m *Manifest) migrate() error {
	if _, err := m.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			return fmt.Errorf("parsing migration version from %q: %w", entry.Name(), err)
		}

		var exists int
		if err := m.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := m.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}
