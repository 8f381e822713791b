package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (or creates) the job database.
// Use ":memory:" for an in-memory database, or a file path for persistence.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sync_jobs (
		job_id TEXT PRIMARY KEY,
		repository_name TEXT NOT NULL,
		repository_url TEXT NOT NULL,
		branch TEXT NOT NULL,
		status TEXT NOT NULL,
		progress INTEGER NOT NULL DEFAULT 0,
		started_at INTEGER,
		completed_at INTEGER,
		error_message TEXT,
		result_metadata TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_sync_jobs_repo_status ON sync_jobs(repository_name, status);
	CREATE INDEX IF NOT EXISTS idx_sync_jobs_status ON sync_jobs(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateJob inserts a new pending job row.
func (s *SQLiteStore) CreateJob(ctx context.Context, job *SyncJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_jobs (job_id, repository_name, repository_url, branch, status, progress)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		job.JobID, job.RepositoryName, job.RepositoryURL, job.Branch, string(job.Status), job.Progress,
	)
	if err != nil {
		return fmt.Errorf("insert sync job: %w", err)
	}
	return nil
}

// GetJob returns a job row by ID.
func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*SyncJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		selectColumns+` FROM sync_jobs WHERE job_id = ?`, jobID)
	return scanJob(row)
}

// FindActiveByRepository returns the non-terminal job for a repository.
func (s *SQLiteStore) FindActiveByRepository(ctx context.Context, repoName string) (*SyncJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		selectColumns+` FROM sync_jobs WHERE repository_name = ? AND status IN (?, ?) LIMIT 1`,
		repoName, string(StatusPending), string(StatusRunning))
	return scanJob(row)
}

// ListJobs returns the most recent jobs, newest first by insertion order.
func (s *SQLiteStore) ListJobs(ctx context.Context, limit int) ([]*SyncJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		selectColumns+` FROM sync_jobs ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sync jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*SyncJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return jobs, nil
}

// MarkRunning transitions a job to running.
func (s *SQLiteStore) MarkRunning(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE sync_jobs SET status = ?, progress = 0, started_at = ? WHERE job_id = ?`,
		string(StatusRunning), time.Now().Unix(), jobID)
	if err != nil {
		return fmt.Errorf("mark running: %w", err)
	}
	return requireRow(res)
}

// UpdateProgress raises a job's progress, never lowering it.
func (s *SQLiteStore) UpdateProgress(ctx context.Context, jobID string, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE sync_jobs SET progress = CASE WHEN progress < ? THEN ? ELSE progress END WHERE job_id = ?`,
		progress, progress, jobID)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return requireRow(res)
}

// MarkCompleted finalizes a successful job with its result metadata.
func (s *SQLiteStore) MarkCompleted(ctx context.Context, jobID string, meta *ResultMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var metaJSON []byte
	if meta != nil {
		var err error
		metaJSON, err = json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshal result metadata: %w", err)
		}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE sync_jobs SET status = ?, progress = 100, completed_at = ?, error_message = NULL, result_metadata = ?
		 WHERE job_id = ?`,
		string(StatusCompleted), time.Now().Unix(), metaJSON, jobID)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return requireRow(res)
}

// MarkFailed finalizes a failed job. Progress keeps its last written value.
func (s *SQLiteStore) MarkFailed(ctx context.Context, jobID, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE sync_jobs SET status = ?, completed_at = ?, error_message = ?, result_metadata = NULL
		 WHERE job_id = ?`,
		string(StatusFailed), time.Now().Unix(), errorMessage, jobID)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return requireRow(res)
}

// FailOrphaned marks every non-terminal job as failed and returns how many
// rows it touched. Called once at startup: a row still pending or running
// belongs to a process that died mid-run, and left alone it would block
// admission for its repository forever.
func (s *SQLiteStore) FailOrphaned(ctx context.Context, message string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE sync_jobs SET status = ?, completed_at = ?, error_message = ?, result_metadata = NULL
		 WHERE status IN (?, ?)`,
		string(StatusFailed), time.Now().Unix(), message,
		string(StatusPending), string(StatusRunning))
	if err != nil {
		return 0, fmt.Errorf("fail orphaned jobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// Ping verifies the database is reachable, for health checks.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

const selectColumns = `SELECT job_id, repository_name, repository_url, branch, status, progress,
	started_at, completed_at, error_message, result_metadata`

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*SyncJob, error) {
	var (
		job         SyncJob
		status      string
		startedAt   sql.NullInt64
		completedAt sql.NullInt64
		errMsg      sql.NullString
		metaJSON    []byte
	)
	err := row.Scan(&job.JobID, &job.RepositoryName, &job.RepositoryURL, &job.Branch,
		&status, &job.Progress, &startedAt, &completedAt, &errMsg, &metaJSON)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan sync job: %w", err)
	}

	job.Status = Status(status)
	if startedAt.Valid {
		t := time.Unix(startedAt.Int64, 0)
		job.StartedAt = &t
	}
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0)
		job.CompletedAt = &t
	}
	if errMsg.Valid {
		job.ErrorMessage = errMsg.String
	}
	if len(metaJSON) > 0 {
		meta := &ResultMetadata{}
		if err := json.Unmarshal(metaJSON, meta); err != nil {
			return nil, fmt.Errorf("unmarshal result metadata: %w", err)
		}
		job.ResultMetadata = meta
	}
	return &job, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
