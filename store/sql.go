package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// sqlDB runs the shared queries. Queries are written with '?' placeholders
// and rebound for drivers that use numbered parameters.
type sqlDB struct {
	db       *sql.DB
	numbered bool
}

func (d *sqlDB) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d *sqlDB) exec(query string, args ...any) (sql.Result, error) {
	return d.db.Exec(d.rebind(query), args...)
}

func (d *sqlDB) query(query string, args ...any) (*sql.Rows, error) {
	return d.db.Query(d.rebind(query), args...)
}

func (d *sqlDB) queryRow(query string, args ...any) *sql.Row {
	return d.db.QueryRow(d.rebind(query), args...)
}

func newSQLBundle(d *sqlDB) *Bundle {
	return &Bundle{
		Runs:    &SQLRunStore{d: d},
		Threads: &SQLThreadStore{d: d},
		closer:  d.db.Close,
	}
}

// =============================================================================
// SQLRunStore
// =============================================================================

type SQLRunStore struct {
	d *sqlDB
}

func (s *SQLRunStore) CreateRun(question string, maxIterations int) (string, error) {
	id := generateID()
	_, err := s.d.exec(
		`INSERT INTO research_runs (id, question, status, max_iterations, iterations, started_at) VALUES (?, ?, ?, ?, 0, ?)`,
		id, question, StatusRunning, maxIterations, time.Now(),
	)
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	return id, nil
}

func (s *SQLRunStore) FinishRun(id, status string, iterations int, report, errMsg string) error {
	var finishedAt *time.Time
	if isFinished(status) {
		now := time.Now()
		finishedAt = &now
	}
	res, err := s.d.exec(
		`UPDATE research_runs SET status = ?, iterations = ?, report = ?, error = ?, finished_at = ? WHERE id = ?`,
		status, iterations, nullString(report), nullString(errMsg), finishedAt, id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

const runColumns = `id, question, status, max_iterations, iterations, report, error, started_at, finished_at`

func scanRun(scan func(dest ...any) error) (*ResearchRun, error) {
	var r ResearchRun
	var report, errMsg sql.NullString
	var finishedAt sql.NullTime

	if err := scan(&r.ID, &r.Question, &r.Status, &r.MaxIterations, &r.Iterations, &report, &errMsg, &r.StartedAt, &finishedAt); err != nil {
		return nil, err
	}
	r.Report = report.String
	r.Error = errMsg.String
	if finishedAt.Valid {
		r.FinishedAt = &finishedAt.Time
	}
	return &r, nil
}

func (s *SQLRunStore) GetRun(id string) (*ResearchRun, error) {
	row := s.d.queryRow(`SELECT `+runColumns+` FROM research_runs WHERE id = ?`, id)
	r, err := scanRun(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

func (s *SQLRunStore) ListRuns(limit, offset int) ([]ResearchRun, int, error) {
	var total int
	if err := s.d.queryRow(`SELECT COUNT(*) FROM research_runs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count runs: %w", err)
	}
	if limit <= 0 {
		limit = total
	}

	rows, err := s.d.query(
		`SELECT `+runColumns+` FROM research_runs ORDER BY started_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []ResearchRun{}
	for rows.Next() {
		r, err := scanRun(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, *r)
	}
	return runs, total, rows.Err()
}

func (s *SQLRunStore) AddFinding(runID string, iteration int, content string) error {
	_, err := s.d.exec(
		`INSERT INTO run_findings (run_id, iteration, content, created_at) VALUES (?, ?, ?, ?)`,
		runID, iteration, content, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("add finding: %w", err)
	}
	return nil
}

func (s *SQLRunStore) GetFindings(runID string) ([]Finding, error) {
	if err := s.requireRun(runID); err != nil {
		return nil, err
	}
	rows, err := s.d.query(
		`SELECT run_id, iteration, content, created_at FROM run_findings WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var findings []Finding
	for rows.Next() {
		var f Finding
		if err := rows.Scan(&f.RunID, &f.Iteration, &f.Content, &f.CreatedAt); err != nil {
			return nil, err
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

func (s *SQLRunStore) AddDecision(runID string, iteration int, complete bool, response string) error {
	_, err := s.d.exec(
		`INSERT INTO run_decisions (run_id, iteration, complete, response, created_at) VALUES (?, ?, ?, ?, ?)`,
		runID, iteration, complete, response, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("add decision: %w", err)
	}
	return nil
}

func (s *SQLRunStore) GetDecisions(runID string) ([]Decision, error) {
	if err := s.requireRun(runID); err != nil {
		return nil, err
	}
	rows, err := s.d.query(
		`SELECT run_id, iteration, complete, response, created_at FROM run_decisions WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decisions []Decision
	for rows.Next() {
		var d Decision
		if err := rows.Scan(&d.RunID, &d.Iteration, &d.Complete, &d.Response, &d.CreatedAt); err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

func (s *SQLRunStore) requireRun(id string) error {
	var n int
	if err := s.d.queryRow(`SELECT COUNT(*) FROM research_runs WHERE id = ?`, id).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

// =============================================================================
// SQLThreadStore
// =============================================================================

type SQLThreadStore struct {
	d *sqlDB
}

func (s *SQLThreadStore) CreateThread() (string, error) {
	id := generateID()
	if _, err := s.d.exec(`INSERT INTO threads (id, created_at) VALUES (?, ?)`, id, time.Now()); err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return id, nil
}

func (s *SQLThreadStore) AppendMessage(threadID, role, content string) error {
	_, err := s.d.exec(
		`INSERT INTO thread_messages (thread_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		threadID, role, content, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (s *SQLThreadStore) GetMessages(threadID string) ([]ThreadMessage, error) {
	var n int
	if err := s.d.queryRow(`SELECT COUNT(*) FROM threads WHERE id = ?`, threadID).Scan(&n); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("thread %s: %w", threadID, ErrNotFound)
	}

	rows, err := s.d.query(
		`SELECT id, role, content, created_at FROM thread_messages WHERE thread_id = ? ORDER BY id`,
		threadID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []ThreadMessage
	for rows.Next() {
		var m ThreadMessage
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
