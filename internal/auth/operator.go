package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-pos/internal/db"
)

// ErrOperatorNotFound indicates no operator matches the identifier.
var ErrOperatorNotFound = errors.New("auth: operator not found")

// Operator roles.
const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

// Operator is a till user. PasswordHash never leaves this package.
type Operator struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"displayName"`
	Role         string    `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
	passwordHash string
}

const operatorColumns = `id, username, display_name, password_hash, role, is_active, created_at`

// Queries runs operator SQL against a pool or transaction.
type Queries struct {
	db db.DBTX
}

// NewQueries constructs operator queries bound to the provided connection.
func NewQueries(conn db.DBTX) *Queries {
	return &Queries{db: conn}
}

// GetByUsername loads an operator by login name.
func (q *Queries) GetByUsername(ctx context.Context, username string) (Operator, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+operatorColumns+` FROM operators WHERE username = $1`,
		strings.ToLower(strings.TrimSpace(username)))
	return scanOperator(row)
}

// GetByID loads an operator by identifier.
func (q *Queries) GetByID(ctx context.Context, id uuid.UUID) (Operator, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+operatorColumns+` FROM operators WHERE id = $1`, db.UUID(id))
	return scanOperator(row)
}

// Create inserts an operator with an already-hashed password.
func (q *Queries) Create(ctx context.Context, username, displayName, passwordHash, role string) (Operator, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO operators (username, display_name, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING `+operatorColumns,
		strings.ToLower(strings.TrimSpace(username)), displayName, passwordHash, role)
	return scanOperator(row)
}

func scanOperator(row pgx.Row) (Operator, error) {
	var (
		op Operator
		id pgtype.UUID
	)
	err := row.Scan(&id, &op.Username, &op.DisplayName, &op.passwordHash, &op.Role, &op.Active, &op.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Operator{}, ErrOperatorNotFound
		}
		return Operator{}, fmt.Errorf("scan operator: %w", err)
	}
	op.ID = db.FromUUID(id)
	return op, nil
}
