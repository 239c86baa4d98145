package effect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-lighting/engine/parameter"

	_ "modernc.org/sqlite"
)

// CompileRecorder persists the effect permutations requested at runtime, so they can be
// inspected or compiled ahead of time.
type CompileRecorder interface {
	// Record stores one compile request. Recording the same permutation twice is a no-op.
	//
	// Parameters:
	//   - ctx: the request context
	//   - effectName: the compiled effect
	//   - used: the parameters the permutation depends on
	//
	// Returns:
	//   - error: an error if the request could not be stored
	Record(ctx context.Context, effectName string, used parameter.ParameterCollection) error
}

// CompileRequest is one recorded permutation.
type CompileRequest struct {
	EffectName     string
	ParametersHash string
	Parameters     string
	RecordedAt     time.Time
}

// SQLiteCompileRecorder stores compile requests in a SQLite database.
type SQLiteCompileRecorder struct {
	db  *sql.DB
	now func() time.Time
}

var _ CompileRecorder = &SQLiteCompileRecorder{}

// OpenSQLiteCompileRecorder opens (creating if needed) a recorder database at path.
func OpenSQLiteCompileRecorder(path string) (*SQLiteCompileRecorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open compile log: %w", err)
	}
	r := &SQLiteCompileRecorder{db: db, now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate compile log: %w", err)
	}
	return r, nil
}

func (r *SQLiteCompileRecorder) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS compile_requests (
		effect_name TEXT NOT NULL,
		parameters_hash TEXT NOT NULL,
		parameters TEXT NOT NULL,
		recorded_at TIMESTAMP NOT NULL,
		PRIMARY KEY (effect_name, parameters_hash)
	);
	`
	_, err := r.db.Exec(schema)
	return err
}

func (r *SQLiteCompileRecorder) Record(ctx context.Context, effectName string, used parameter.ParameterCollection) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO compile_requests (effect_name, parameters_hash, parameters, recorded_at) VALUES (?, ?, ?, ?)`,
		effectName, parameter.HashCollection(used).String(), describeParameters(used), r.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record compile request: %w", err)
	}
	return nil
}

// Requests returns every recorded request ordered by effect name and recording time.
func (r *SQLiteCompileRecorder) Requests(ctx context.Context) ([]CompileRequest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT effect_name, parameters_hash, parameters, recorded_at FROM compile_requests ORDER BY effect_name, recorded_at, parameters_hash`)
	if err != nil {
		return nil, fmt.Errorf("failed to query compile log: %w", err)
	}
	defer rows.Close()

	var out []CompileRequest
	for rows.Next() {
		var req CompileRequest
		if err := rows.Scan(&req.EffectName, &req.ParametersHash, &req.Parameters, &req.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan compile request: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// Close closes the database.
func (r *SQLiteCompileRecorder) Close() error {
	return r.db.Close()
}

func describeParameters(pc parameter.ParameterCollection) string {
	var sb strings.Builder
	pc.Range(func(key parameter.Key, value any) bool {
		if sb.Len() > 0 {
			sb.WriteString("; ")
		}
		fmt.Fprintf(&sb, "%s=%v", key.Name(), value)
		return true
	})
	return sb.String()
}
