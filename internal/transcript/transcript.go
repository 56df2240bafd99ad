// Package transcript persists the per-chat message log: one user message
// and one assistant message per turn, appended in order and read back to
// seed the next model step. Chat creation and deletion live elsewhere.
package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Valid message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Source is one citation stored with an assistant message.
type Source struct {
	Source    string  `json:"source"`
	Relevance float64 `json:"relevance"`
}

// Message is one transcript entry. Seq is assigned by the database and
// orders messages within a chat.
type Message struct {
	Seq       int64     `json:"seq"`
	ChatID    uuid.UUID `json:"chatId"`
	TenantID  string    `json:"tenantId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Sources   []Source  `json:"sources,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store is the append-only transcript log over PostgreSQL.
type Store struct {
	db DBTX
}

// New creates a Store.
func New(db DBTX) *Store {
	return &Store{db: db}
}

func validRole(role string) bool {
	return role == RoleUser || role == RoleAssistant || role == RoleSystem
}

const appendMessageSQL = `
INSERT INTO messages (chat_id, tenant_id, role, content, sources)
VALUES ($1, $2, $3, $4, $5)`

// Append writes one message to the chat's log.
func (s *Store) Append(ctx context.Context, msg Message) error {
	if msg.ChatID == uuid.Nil {
		return errors.New("chat id is required")
	}
	if msg.TenantID == "" {
		return errors.New("tenant id is required")
	}
	if !validRole(msg.Role) {
		return fmt.Errorf("invalid role %q", msg.Role)
	}

	var sources []byte
	if len(msg.Sources) > 0 {
		var err error
		sources, err = json.Marshal(msg.Sources)
		if err != nil {
			return fmt.Errorf("marshal sources: %w", err)
		}
	}

	if _, err := s.db.Exec(ctx, appendMessageSQL,
		msg.ChatID, msg.TenantID, msg.Role, msg.Content, sources); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

const historySQL = `
SELECT seq, chat_id, tenant_id, role, content, sources, created_at
FROM messages
WHERE chat_id = $1 AND tenant_id = $2
ORDER BY seq`

// History returns the chat's messages in append order. An unknown chat
// yields an empty history, not an error.
func (s *Store) History(ctx context.Context, chatID uuid.UUID, tenantID string) ([]Message, error) {
	if tenantID == "" {
		return nil, errors.New("tenant id is required")
	}

	rows, err := s.db.Query(ctx, historySQL, chatID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var (
			msg Message
			raw []byte
		)
		if err := rows.Scan(&msg.Seq, &msg.ChatID, &msg.TenantID, &msg.Role, &msg.Content, &raw, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &msg.Sources); err != nil {
				return nil, fmt.Errorf("unmarshal sources: %w", err)
			}
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history rows: %w", err)
	}
	return out, nil
}
