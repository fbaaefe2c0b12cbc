package context

import (
	"database/sql"
	"time"
)

// SQLiteProvider reads conversation turns from the journal database.
type SQLiteProvider struct {
	DB *sql.DB
}

// GetHistory returns the most recent `limit` turns across all sessions,
// ordered chronologically (oldest first).
func (p *SQLiteProvider) GetHistory(limit int) ([]Message, error) {
	rows, err := p.DB.Query(
		"SELECT role, text, created_at FROM turns ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Message
	for rows.Next() {
		var role, text string
		var createdAt int64
		if err := rows.Scan(&role, &text, &createdAt); err != nil {
			continue
		}
		mapped := RoleUser
		if role == RoleAssistant {
			mapped = RoleAssistant
		}
		results = append(results, Message{Role: mapped, Content: text, At: time.Unix(createdAt, 0)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to chronological order.
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}
	return results, nil
}
