package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	domain "github.com/bryanwahyu/artifact-triage/internal/domain/sessionerrors"
)

type SessionErrorRepository struct {
	db *sql.DB
}

func NewSessionErrorRepository(db *sql.DB) *SessionErrorRepository {
	return &SessionErrorRepository{db: db}
}

func (r *SessionErrorRepository) Save(ctx context.Context, e *domain.SessionError) error {
	const q = `
INSERT INTO analysis_session_errors
  (tenant_id, session_id, agent_id, phase, message, details_json, created_at)
VALUES (?,?,?,?,?,?,?)
`
	tenant := stringOrDash(e.TenantID)
	session := stringOrDash(e.SessionID)
	agent := stringOrDash(e.AgentID)
	phase := stringOrDash(e.Phase)
	msg := e.Message
	if strings.TrimSpace(msg) == "" {
		msg = "-"
	}
	details := e.DetailsJSON
	if strings.TrimSpace(details) == "" {
		details = "{}"
	} else {
		// ensure valid json; if invalid, wrap as string field
		var js any
		if json.Unmarshal([]byte(details), &js) != nil {
			b, _ := json.Marshal(map[string]string{"raw": details})
			details = string(b)
		}
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q, tenant, session, agent, phase, msg, details, created)
	return err
}

func (r *SessionErrorRepository) ListBySession(ctx context.Context, tenant string, sessionID string, limit int) ([]*domain.SessionError, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, tenant_id, session_id, agent_id, phase, message, details_json, created_at
FROM analysis_session_errors
WHERE tenant_id = ? AND session_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, tenant, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.SessionError
	for rows.Next() {
		var e domain.SessionError
		var created time.Time
		if err := rows.Scan(&e.ID, &e.TenantID, &e.SessionID, &e.AgentID, &e.Phase, &e.Message, &e.DetailsJSON, &created); err != nil {
			return nil, err
		}
		e.CreatedAt = created
		out = append(out, &e)
	}
	return out, rows.Err()
}
