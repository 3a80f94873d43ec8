package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

const ticketColumns = `t.ticket_id, t.user_id, u.user_name, t.channel, t.created_at, t.status, t.issue_type, t.tags`

// GetTicket returns a ticket with its full message history in insertion order.
func (s *Store) GetTicket(ctx context.Context, id string) (*Ticket, error) {
	var t Ticket
	err := s.db.GetContext(ctx, &t, s.db.Rebind(`
		SELECT `+ticketColumns+`
		FROM tickets t JOIN users u ON u.user_id = t.user_id
		WHERE t.ticket_id = ?`), id)
	if err != nil {
		if isNoRows(err) {
			return nil, notFound("ticket", id)
		}
		return nil, fmt.Errorf("store: get ticket: %w", err)
	}

	msgs, err := s.ticketMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Messages = msgs

	return &t, nil
}

func (s *Store) ticketMessages(ctx context.Context, ticketID string) ([]Message, error) {
	var msgs []Message
	err := s.db.SelectContext(ctx, &msgs, s.db.Rebind(`
		SELECT message_id, ticket_id, role, content, created_at
		FROM ticket_messages WHERE ticket_id = ? ORDER BY seq`), ticketID)
	if err != nil {
		return nil, fmt.Errorf("store: load messages: %w", err)
	}
	return msgs, nil
}

// UpdateTicket sets status, replaces the issue type when non-empty and merges
// tags into the existing set. The caller validates status.
func (s *Store) UpdateTicket(ctx context.Context, id, status, issueType, tags string) (*Ticket, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: update ticket: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var cur struct {
		IssueType string `db:"issue_type"`
		Tags      string `db:"tags"`
	}
	err = tx.GetContext(ctx, &cur, tx.Rebind(`SELECT issue_type, tags FROM tickets WHERE ticket_id = ?`), id)
	if err != nil {
		if isNoRows(err) {
			return nil, notFound("ticket", id)
		}
		return nil, fmt.Errorf("store: update ticket: %w", err)
	}

	if issueType == "" {
		issueType = cur.IssueType
	}
	merged := cur.Tags
	if tags != "" {
		merged = MergeTags(cur.Tags, tags)
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		UPDATE tickets SET status = ?, issue_type = ?, tags = ? WHERE ticket_id = ?`),
		status, issueType, merged, id)
	if err != nil {
		return nil, fmt.Errorf("store: update ticket: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: update ticket: %w", err)
	}

	s.logger.Info("store.ticket.updated", "ticket_id", id, "status", status, "issue_type", issueType, "tags", merged)

	return s.GetTicket(ctx, id)
}

// AddMessage appends a message to a ticket. The role is normalized and the
// message receives a fresh UUIDv4.
func (s *Store) AddMessage(ctx context.Context, ticketID, role, content string) (*Message, error) {
	var exists int
	err := s.db.GetContext(ctx, &exists, s.db.Rebind(`SELECT COUNT(*) FROM tickets WHERE ticket_id = ?`), ticketID)
	if err != nil {
		return nil, fmt.Errorf("store: add message: %w", err)
	}
	if exists == 0 {
		return nil, notFound("ticket", ticketID)
	}

	msg := &Message{
		ID:        uuid.NewString(),
		TicketID:  ticketID,
		Role:      NormalizeRole(role),
		Content:   content,
		CreatedAt: s.timestamp(),
	}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO ticket_messages (message_id, ticket_id, seq, role, content, created_at)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM ticket_messages WHERE ticket_id = ?), ?, ?, ?)`),
		msg.ID, msg.TicketID, msg.TicketID, msg.Role, msg.Content, msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: add message: %w", err)
	}

	s.logger.Info("store.message.added", "ticket_id", ticketID, "role", msg.Role, "message_id", msg.ID)

	return msg, nil
}

// TicketHistory lists up to limit tickets of a user, most recent first. The
// summary is the first message of each ticket.
func (s *Store) TicketHistory(ctx context.Context, userID string, limit int) ([]TicketSummary, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	var rows []TicketSummary
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT t.ticket_id, t.status, t.issue_type, t.created_at,
			COALESCE((SELECT m.content FROM ticket_messages m
				WHERE m.ticket_id = t.ticket_id ORDER BY m.seq LIMIT 1), '') AS summary
		FROM tickets t
		WHERE t.user_id = ?
		ORDER BY t.created_at DESC, t.ticket_id DESC
		LIMIT ?`), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: ticket history: %w", err)
	}
	return rows, nil
}
