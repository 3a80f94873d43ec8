package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound matches every *NotFoundError.
var ErrNotFound = errors.New("not found")

// NotFoundError reports a missing record of a given kind.
type NotFoundError struct {
	Entity string // ticket, user, subscription, experience
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s found with id: %s", e.Entity, e.ID)
}

// Is makes errors.Is(err, ErrNotFound) succeed.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func notFound(entity, id string) error { return &NotFoundError{Entity: entity, ID: id} }

// Ticket statuses.
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
	StatusEscalated  = "escalated"
	StatusClosed     = "closed"
)

// Statuses lists every accepted ticket status.
var Statuses = []string{StatusOpen, StatusInProgress, StatusResolved, StatusEscalated, StatusClosed}

// ValidStatus reports whether s is an accepted ticket status.
func ValidStatus(s string) bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Ticket message roles.
const (
	RoleAgent  = "agent"
	RoleUser   = "user"
	RoleSystem = "system"
)

// NormalizeRole lower-cases role and maps anything unrecognized to agent.
func NormalizeRole(role string) string {
	switch r := strings.ToLower(strings.TrimSpace(role)); r {
	case RoleAgent, RoleUser, RoleSystem:
		return r
	default:
		return RoleAgent
	}
}

// MergeTags returns the sorted union of the comma separated tag lists, each
// tag trimmed and empties dropped, joined with ", ".
func MergeTags(existing, added string) string {
	set := map[string]struct{}{}
	for _, list := range []string{existing, added} {
		for _, t := range strings.Split(list, ",") {
			if t = strings.TrimSpace(t); t != "" {
				set[t] = struct{}{}
			}
		}
	}
	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return strings.Join(tags, ", ")
}

// Ticket is a support ticket with its metadata.
type Ticket struct {
	ID        string    `db:"ticket_id"`
	UserID    string    `db:"user_id"`
	UserName  string    `db:"user_name"`
	Channel   string    `db:"channel"`
	CreatedAt string    `db:"created_at"`
	Status    string    `db:"status"`
	IssueType string    `db:"issue_type"`
	Tags      string    `db:"tags"`
	Messages  []Message `db:"-"`
}

// Message is one entry of a ticket conversation.
type Message struct {
	ID        string `db:"message_id"`
	TicketID  string `db:"ticket_id"`
	Role      string `db:"role"`
	Content   string `db:"content"`
	CreatedAt string `db:"created_at"`
}

// TicketSummary is a row of a customer's ticket history.
type TicketSummary struct {
	ID        string `db:"ticket_id"`
	Status    string `db:"status"`
	IssueType string `db:"issue_type"`
	CreatedAt string `db:"created_at"`
	Summary   string `db:"summary"`
}

// User is a CultPass account.
type User struct {
	ID        string `db:"user_id"`
	UserName  string `db:"user_name"`
	FullName  string `db:"full_name"`
	Email     string `db:"email"`
	IsBlocked bool   `db:"is_blocked"`
}

// AccountStatus renders the blocked flag as ACTIVE or BLOCKED.
func (u *User) AccountStatus() string {
	if u.IsBlocked {
		return "BLOCKED"
	}
	return "ACTIVE"
}

// Preferences are stored per user; users without a row get defaults.
type Preferences struct {
	UserID           string `db:"user_id"`
	Language         string `db:"language"`
	PreferredChannel string `db:"preferred_channel"`
	Notes            string `db:"notes"`
}

// PreferencesPatch updates only the non-nil fields.
type PreferencesPatch struct {
	Language         *string
	PreferredChannel *string
	Notes            *string
}

// Subscription is a CultPass plan.
type Subscription struct {
	UserID    string  `db:"user_id"`
	Status    string  `db:"status"`
	Tier      string  `db:"tier"`
	StartedAt string  `db:"started_at"`
	EndedAt   *string `db:"ended_at"`
}

// Experience is a bookable CultPass event.
type Experience struct {
	ID             string `db:"experience_id"`
	Title          string `db:"title"`
	Description    string `db:"description"`
	Location       string `db:"location"`
	When           string `db:"starts_at"`
	IsPremium      bool   `db:"is_premium"`
	SlotsAvailable int    `db:"slots_available"`
}

// Reservation joins a user's booking with the experience it targets.
type Reservation struct {
	ID                  string `db:"reservation_id"`
	Status              string `db:"status"`
	ExperienceTitle     string `db:"title"`
	ExperienceLocation  string `db:"location"`
	ExperienceTime      string `db:"starts_at"`
	ExperienceIsPremium bool   `db:"is_premium"`
}

// Article is a knowledge base entry.
type Article struct {
	ID      string `db:"article_id"`
	Title   string `db:"title"`
	Content string `db:"content"`
	Tags    string `db:"tags"`
}
