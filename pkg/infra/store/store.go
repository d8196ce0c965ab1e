package store

import (
	"bytes"
	"compress/zlib"
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"io"
	"time"

	"github.com/ccdrover/ccdrover/pkg/domain/model"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	_ "github.com/mattn/go-sqlite3"
)

// Store persists cases in a SQLite database. Source code is
// deduplicated by content hash and zlib compressed; everything else
// lives in the cases and timings tables.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS code (
	id     TEXT PRIMARY KEY,
	source BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS cases (
	id              TEXT PRIMARY KEY,
	created_at      INTEGER NOT NULL,
	marker          TEXT NOT NULL,
	bad_setting     TEXT NOT NULL,
	good_settings   TEXT NOT NULL,
	include_paths   TEXT NOT NULL,
	code_id         TEXT NOT NULL REFERENCES code(id),
	reduced_code_id TEXT REFERENCES code(id),
	bisection       TEXT
);
CREATE TABLE IF NOT EXISTS timings (
	case_id           TEXT PRIMARY KEY REFERENCES cases(id),
	generate_seconds  REAL NOT NULL DEFAULT 0,
	generate_attempts INTEGER NOT NULL DEFAULT 0,
	bisect_seconds    REAL NOT NULL DEFAULT 0,
	bisect_steps      INTEGER NOT NULL DEFAULT 0,
	reduce_seconds    REAL NOT NULL DEFAULT 0
);
`

// New opens (and if needed initializes) the database at path
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_fk=on")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open case database", goerr.V("path", path))
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to initialize schema")
	}
	return &Store{db: db}, nil
}

// Close releases the database handle
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return goerr.Wrap(err, "failed to close case database")
	}
	return nil
}

func compress(code string) ([]byte, string, error) {
	sum := sha1.Sum([]byte(code))
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write([]byte(code)); err != nil {
		return nil, "", goerr.Wrap(err, "failed to compress code")
	}
	if err := w.Close(); err != nil {
		return nil, "", goerr.Wrap(err, "failed to compress code")
	}
	return buf.Bytes(), hex.EncodeToString(sum[:]), nil
}

func decompress(blob []byte) (string, error) {
	r, err := zlib.NewReader(bytes.NewReader(blob))
	if err != nil {
		return "", goerr.Wrap(err, "failed to decompress code")
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return "", goerr.Wrap(err, "failed to decompress code")
	}
	return string(data), nil
}

func (s *Store) putCode(ctx context.Context, tx *sql.Tx, code string) (string, error) {
	blob, id, err := compress(code)
	if err != nil {
		return "", err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO code (id, source) VALUES (?, ?)`, id, blob); err != nil {
		return "", goerr.Wrap(err, "failed to insert code")
	}
	return id, nil
}

func (s *Store) getCode(ctx context.Context, id string) (string, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT source FROM code WHERE id = ?`, id).Scan(&blob)
	if err != nil {
		return "", goerr.Wrap(err, "failed to load code", goerr.V("code_id", id))
	}
	return decompress(blob)
}

// PutCase inserts a new case and returns its generated ID
func (s *Store) PutCase(ctx context.Context, c *model.Case) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	badJSON, err := json.Marshal(c.BadSetting)
	if err != nil {
		return "", goerr.Wrap(err, "failed to encode bad setting")
	}
	goodJSON, err := json.Marshal(c.GoodSettings)
	if err != nil {
		return "", goerr.Wrap(err, "failed to encode good settings")
	}
	includeJSON, err := json.Marshal(c.SystemIncludePaths)
	if err != nil {
		return "", goerr.Wrap(err, "failed to encode include paths")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", goerr.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	codeID, err := s.putCode(ctx, tx, c.Code)
	if err != nil {
		return "", err
	}

	var reducedID sql.NullString
	if c.ReducedCode != "" {
		id, err := s.putCode(ctx, tx, c.ReducedCode)
		if err != nil {
			return "", err
		}
		reducedID = sql.NullString{String: id, Valid: true}
	}

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO cases
			(id, created_at, marker, bad_setting, good_settings, include_paths, code_id, reduced_code_id, bisection)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, time.Now().Unix(), c.Marker,
		string(badJSON), string(goodJSON), string(includeJSON),
		codeID, reducedID, nullable(c.Bisection))
	if err != nil {
		return "", goerr.Wrap(err, "failed to insert case")
	}

	if err := tx.Commit(); err != nil {
		return "", goerr.Wrap(err, "failed to commit case")
	}
	return id, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// UpdateCase rewrites the mutable parts of a stored case: reduced
// code and bisection result
func (s *Store) UpdateCase(ctx context.Context, id string, c *model.Case) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	var reducedID sql.NullString
	if c.ReducedCode != "" {
		rid, err := s.putCode(ctx, tx, c.ReducedCode)
		if err != nil {
			return err
		}
		reducedID = sql.NullString{String: rid, Valid: true}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE cases SET reduced_code_id = ?, bisection = ? WHERE id = ?`,
		reducedID, nullable(c.Bisection), id)
	if err != nil {
		return goerr.Wrap(err, "failed to update case", goerr.V("case_id", id))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return goerr.New("case not found", goerr.V("case_id", id))
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit update")
	}
	return nil
}

func (s *Store) scanCase(ctx context.Context, row *sql.Row) (*model.CaseRecord, error) {
	var (
		rec       model.CaseRecord
		createdAt int64
		marker    string
		badJSON   string
		goodJSON  string
		incJSON   string
		codeID    string
		reducedID sql.NullString
		bisection sql.NullString
	)
	err := row.Scan(&rec.ID, &createdAt, &marker, &badJSON, &goodJSON, &incJSON, &codeID, &reducedID, &bisection)
	if err == sql.ErrNoRows {
		return nil, goerr.Wrap(err, "case not found")
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to scan case")
	}

	c := &model.Case{Marker: marker, Bisection: bisection.String}
	if err := json.Unmarshal([]byte(badJSON), &c.BadSetting); err != nil {
		return nil, goerr.Wrap(err, "corrupt bad setting", goerr.V("case_id", rec.ID))
	}
	if err := json.Unmarshal([]byte(goodJSON), &c.GoodSettings); err != nil {
		return nil, goerr.Wrap(err, "corrupt good settings", goerr.V("case_id", rec.ID))
	}
	if err := json.Unmarshal([]byte(incJSON), &c.SystemIncludePaths); err != nil {
		return nil, goerr.Wrap(err, "corrupt include paths", goerr.V("case_id", rec.ID))
	}

	if c.Code, err = s.getCode(ctx, codeID); err != nil {
		return nil, err
	}
	if reducedID.Valid {
		if c.ReducedCode, err = s.getCode(ctx, reducedID.String); err != nil {
			return nil, err
		}
	}

	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	rec.Case = c
	return &rec, nil
}

const caseColumns = `id, created_at, marker, bad_setting, good_settings, include_paths, code_id, reduced_code_id, bisection`

// GetCase loads one case by ID
func (s *Store) GetCase(ctx context.Context, id string) (*model.CaseRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE id = ?`, id)
	return s.scanCase(ctx, row)
}

// ListCases returns all stored cases, newest first
func (s *Store) ListCases(ctx context.Context) ([]*model.CaseRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM cases ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list cases")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, goerr.Wrap(err, "failed to scan case id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate cases")
	}

	records := make([]*model.CaseRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.GetCase(ctx, id)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// RecordTiming upserts pipeline timings for a case
func (s *Store) RecordTiming(ctx context.Context, caseID string, t *model.Timings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO timings
			(case_id, generate_seconds, generate_attempts, bisect_seconds, bisect_steps, reduce_seconds)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(case_id) DO UPDATE SET
			generate_seconds = excluded.generate_seconds,
			generate_attempts = excluded.generate_attempts,
			bisect_seconds = excluded.bisect_seconds,
			bisect_steps = excluded.bisect_steps,
			reduce_seconds = excluded.reduce_seconds`,
		caseID, t.GenerateSeconds, t.GenerateAttempts, t.BisectSeconds, t.BisectSteps, t.ReduceSeconds)
	if err != nil {
		return goerr.Wrap(err, "failed to record timings", goerr.V("case_id", caseID))
	}
	return nil
}

// GetTiming loads timings for a case; nil without error when none
// were recorded
func (s *Store) GetTiming(ctx context.Context, caseID string) (*model.Timings, error) {
	var t model.Timings
	err := s.db.QueryRowContext(ctx, `
		SELECT generate_seconds, generate_attempts, bisect_seconds, bisect_steps, reduce_seconds
		FROM timings WHERE case_id = ?`, caseID).
		Scan(&t.GenerateSeconds, &t.GenerateAttempts, &t.BisectSeconds, &t.BisectSteps, &t.ReduceSeconds)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load timings", goerr.V("case_id", caseID))
	}
	return &t, nil
}
