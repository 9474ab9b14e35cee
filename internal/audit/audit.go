package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/db"
)

// ActorKind identifies who performed an audited action.
type ActorKind string

const (
	// ActorKindOperator is a signed-in till operator or admin.
	ActorKindOperator ActorKind = "operator"
	// ActorKindSystem is an internal automated action.
	ActorKindSystem ActorKind = "system"
	// ActorKindAnonymous is an unauthenticated caller.
	ActorKindAnonymous ActorKind = "anonymous"
)

// Actor describes the entity performing the action.
type Actor struct {
	Kind       ActorKind
	OperatorID *uuid.UUID
	Role       string
}

// Entry is a persisted audit record.
type Entry struct {
	ID           uuid.UUID       `json:"id"`
	ActorKind    ActorKind       `json:"actorKind"`
	OperatorID   *uuid.UUID      `json:"operatorId,omitempty"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resourceType"`
	ResourceID   *string         `json:"resourceId,omitempty"`
	Method       string          `json:"method"`
	Path         string          `json:"path"`
	Route        *string         `json:"route,omitempty"`
	Status       int32           `json:"status"`
	IP           *string         `json:"ip,omitempty"`
	UserAgent    *string         `json:"userAgent,omitempty"`
	RequestID    *string         `json:"requestId,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Queries provides pgx-backed persistence for audit entries.
type Queries struct {
	db db.DBTX
}

// NewQueries binds the audit queries to a connection or transaction.
func NewQueries(conn db.DBTX) *Queries {
	return &Queries{db: conn}
}

const entryColumns = `id, actor_kind, operator_id, action, resource_type, resource_id,
	method, path, route, status, ip, user_agent, request_id, metadata, created_at`

// Insert persists a single audit entry.
func (q *Queries) Insert(ctx context.Context, e Entry) (Entry, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO audit_logs (
			actor_kind, operator_id, action, resource_type, resource_id,
			method, path, route, status, ip, user_agent, request_id, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+entryColumns,
		string(e.ActorKind), e.OperatorID, e.Action, e.ResourceType, e.ResourceID,
		e.Method, e.Path, e.Route, e.Status, e.IP, e.UserAgent, e.RequestID, e.Metadata,
	)
	return scanEntry(row)
}

// List returns audit entries newest first.
func (q *Queries) List(ctx context.Context, limit, offset int32) ([]Entry, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+entryColumns+`
		FROM audit_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var e Entry
	var kind string
	err := row.Scan(
		&e.ID, &kind, &e.OperatorID, &e.Action, &e.ResourceType, &e.ResourceID,
		&e.Method, &e.Path, &e.Route, &e.Status, &e.IP, &e.UserAgent, &e.RequestID,
		&e.Metadata, &e.CreatedAt,
	)
	if err != nil {
		return Entry{}, err
	}
	e.ActorKind = ActorKind(kind)
	return e, nil
}
