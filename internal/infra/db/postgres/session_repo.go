package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	domain "github.com/bryanwahyu/artifact-triage/internal/domain/analysis"
)

type SessionRepository struct{ db *sql.DB }

func NewSessionRepository(db *sql.DB) *SessionRepository { return &SessionRepository{db: db} }

// Save insert/update Session record
func (r *SessionRepository) Save(ctx context.Context, s *domain.Session) error {
	const q = `
INSERT INTO analysis_sessions
(id, tenant_id, operator_id, artifact_path, analysis_type, priority, status,
 phase, progress, entropy, agents_involved, insights, connections,
 error_message, report_url, started_at, completed_at, estimated_completion)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
ON CONFLICT (id) DO UPDATE SET
 status = EXCLUDED.status,
 phase = EXCLUDED.phase,
 progress = EXCLUDED.progress,
 entropy = EXCLUDED.entropy,
 insights = EXCLUDED.insights,
 connections = EXCLUDED.connections,
 error_message = EXCLUDED.error_message,
 report_url = EXCLUDED.report_url,
 completed_at = EXCLUDED.completed_at;`

	tenant := s.TenantID
	if strings.TrimSpace(tenant) == "" {
		tenant = "-"
	}
	started := s.StartedAt
	if started.IsZero() {
		started = time.Now()
	}

	agents, err := json.Marshal(s.AgentsInvolved)
	if err != nil {
		return err
	}
	insights, err := json.Marshal(s.Insights)
	if err != nil {
		return err
	}
	connections, err := json.Marshal(s.Connections)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, q,
		s.ID, tenant, s.OperatorID, s.ArtifactPath, s.AnalysisType, s.Priority, s.Status,
		s.Phase, s.Progress, s.Entropy, agents, insights, connections,
		s.ErrorMessage, s.ReportURL, started, s.CompletedAt, s.EstimatedDone,
	)
	return err
}

// UpdatePhase hanya update kolom phase + progress
func (r *SessionRepository) UpdatePhase(ctx context.Context, tenant string, id domain.SessionID, phase string, progress int) error {
	const q = `
UPDATE analysis_sessions
SET phase = $1, progress = $2
WHERE tenant_id = $3 AND id = $4;`
	_, err := r.db.ExecContext(ctx, q, phase, progress, tenant, id)
	return err
}

// UpdateStatus update status (dan error message untuk sesi gagal)
func (r *SessionRepository) UpdateStatus(ctx context.Context, tenant string, id domain.SessionID, status domain.Status, errMsg string) error {
	const q = `
UPDATE analysis_sessions
SET status = $1, error_message = $2,
    completed_at = CASE WHEN $1 IN ('completed','error') THEN NOW() ELSE completed_at END
WHERE tenant_id = $3 AND id = $4;`
	_, err := r.db.ExecContext(ctx, q, status, errMsg, tenant, id)
	return err
}

// SaveResults menyimpan semua AnalysisResult untuk satu sesi
func (r *SessionRepository) SaveResults(ctx context.Context, tenant string, id domain.SessionID, results []domain.AnalysisResult) error {
	const q = `
INSERT INTO analysis_results
(session_id, tenant_id, seq, agent_id, result_type, success, confidence,
 execution_secs, output_data, error_message)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (session_id, seq) DO UPDATE SET
 success = EXCLUDED.success,
 confidence = EXCLUDED.confidence,
 execution_secs = EXCLUDED.execution_secs,
 output_data = EXCLUDED.output_data,
 error_message = EXCLUDED.error_message;`
	for seq, res := range results {
		payload, err := json.Marshal(res.OutputData)
		if err != nil {
			return err
		}
		if _, err := r.db.ExecContext(ctx, q,
			id, tenant, seq, res.AgentID, res.ResultType, res.Success, res.Confidence,
			res.ExecutionSecs, payload, res.ErrorMessage,
		); err != nil {
			return err
		}
	}
	return nil
}

const sessionColumns = `
id, tenant_id, operator_id, artifact_path, analysis_type, priority, status,
phase, progress, entropy, agents_involved, insights, connections,
error_message, report_url, started_at, completed_at, estimated_completion`

// Get by ID + Tenant
func (r *SessionRepository) Get(ctx context.Context, tenant string, id domain.SessionID) (*domain.Session, error) {
	q := `SELECT ` + sessionColumns + `
FROM analysis_sessions
WHERE tenant_id=$1 AND id=$2
LIMIT 1;`
	row := r.db.QueryRowContext(ctx, q, tenant, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	return s, err
}

// ResultsFor returns stored results in pipeline order.
func (r *SessionRepository) ResultsFor(ctx context.Context, tenant string, id domain.SessionID) ([]domain.AnalysisResult, error) {
	const q = `
SELECT agent_id, result_type, success, confidence, execution_secs, output_data, error_message
FROM analysis_results
WHERE tenant_id=$1 AND session_id=$2
ORDER BY seq ASC;`
	rows, err := r.db.QueryContext(ctx, q, tenant, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AnalysisResult
	for rows.Next() {
		var res domain.AnalysisResult
		var payload []byte
		if err := rows.Scan(&res.AgentID, &res.ResultType, &res.Success, &res.Confidence,
			&res.ExecutionSecs, &payload, &res.ErrorMessage); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			var data any
			if err := json.Unmarshal(payload, &data); err == nil {
				res.OutputData = data
			}
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// Latest sessions per tenant
func (r *SessionRepository) Latest(ctx context.Context, tenant string, limit int) ([]*domain.Session, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + sessionColumns + `
FROM analysis_sessions
WHERE tenant_id=$1
ORDER BY started_at DESC
LIMIT $2;`
	rows, err := r.db.QueryContext(ctx, q, tenant, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

// Summary counts session outcomes since N days
func (r *SessionRepository) Summary(ctx context.Context, tenant string, sinceDays int) (int, int, int, int, error) {
	if sinceDays <= 0 {
		sinceDays = 7
	}
	cut := time.Now().AddDate(0, 0, -sinceDays)

	const q = `
SELECT COUNT(*),
       COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END),0),
       COALESCE(SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END),0),
       COALESCE(SUM(CASE WHEN status = 'running' THEN 1 ELSE 0 END),0)
FROM analysis_sessions
WHERE tenant_id=$1 AND started_at >= $2;`
	var t, c, f, ru int
	if err := r.db.QueryRowContext(ctx, q, tenant, cut).Scan(&t, &c, &f, &ru); err != nil {
		return 0, 0, 0, 0, err
	}
	return t, c, f, ru, nil
}

// NearEntropy tolerance-band lookup, bounded by LIMIT.
func (r *SessionRepository) NearEntropy(ctx context.Context, tenant string, entropy, epsilon float64, limit int) ([]*domain.Session, error) {
	if limit <= 0 {
		limit = 25
	}
	q := `SELECT ` + sessionColumns + `
FROM analysis_sessions
WHERE tenant_id=$1 AND status='completed' AND ABS(entropy - $2) <= $3
ORDER BY started_at DESC
LIMIT $4;`
	rows, err := r.db.QueryContext(ctx, q, tenant, entropy, epsilon, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var s domain.Session
	var agents, insights, connections []byte
	var completedAt sql.NullTime
	if err := row.Scan(
		&s.ID, &s.TenantID, &s.OperatorID, &s.ArtifactPath, &s.AnalysisType, &s.Priority, &s.Status,
		&s.Phase, &s.Progress, &s.Entropy, &agents, &insights, &connections,
		&s.ErrorMessage, &s.ReportURL, &s.StartedAt, &completedAt, &s.EstimatedDone,
	); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		s.CompletedAt = &t
	}
	_ = json.Unmarshal(agents, &s.AgentsInvolved)
	_ = json.Unmarshal(insights, &s.Insights)
	_ = json.Unmarshal(connections, &s.Connections)
	return &s, nil
}

func collectSessions(rows *sql.Rows) ([]*domain.Session, error) {
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
