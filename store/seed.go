package store

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultFixture []byte

// Fixture is the YAML document used to seed a store.
type Fixture struct {
	Users []struct {
		ID        string `yaml:"id"`
		UserName  string `yaml:"user_name"`
		FullName  string `yaml:"full_name"`
		Email     string `yaml:"email"`
		IsBlocked bool   `yaml:"is_blocked"`
	} `yaml:"users"`
	Tickets []struct {
		ID        string           `yaml:"id"`
		UserID    string           `yaml:"user_id"`
		Channel   string           `yaml:"channel"`
		CreatedAt string           `yaml:"created_at"`
		Status    string           `yaml:"status"`
		IssueType string           `yaml:"issue_type"`
		Tags      string           `yaml:"tags"`
		Messages  []FixtureMessage `yaml:"messages"`
	} `yaml:"tickets"`
	Preferences []struct {
		UserID           string `yaml:"user_id"`
		Language         string `yaml:"language"`
		PreferredChannel string `yaml:"preferred_channel"`
		Notes            string `yaml:"notes"`
	} `yaml:"preferences"`
	Subscriptions []struct {
		UserID    string  `yaml:"user_id"`
		Status    string  `yaml:"status"`
		Tier      string  `yaml:"tier"`
		StartedAt string  `yaml:"started_at"`
		EndedAt   *string `yaml:"ended_at"`
	} `yaml:"subscriptions"`
	Experiences []struct {
		ID             string `yaml:"id"`
		Title          string `yaml:"title"`
		Description    string `yaml:"description"`
		Location       string `yaml:"location"`
		When           string `yaml:"when"`
		IsPremium      bool   `yaml:"is_premium"`
		SlotsAvailable int    `yaml:"slots_available"`
	} `yaml:"experiences"`
	Reservations []struct {
		ID           string `yaml:"id"`
		UserID       string `yaml:"user_id"`
		ExperienceID string `yaml:"experience_id"`
		Status       string `yaml:"status"`
		CreatedAt    string `yaml:"created_at"`
	} `yaml:"reservations"`
	Articles []struct {
		ID      string `yaml:"id"`
		Title   string `yaml:"title"`
		Content string `yaml:"content"`
		Tags    string `yaml:"tags"`
	} `yaml:"articles"`
}

// FixtureMessage is a seeded ticket message.
type FixtureMessage struct {
	Role    string `yaml:"role"`
	Content string `yaml:"content"`
}

// ParseFixture decodes a YAML fixture.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("store: parse fixture: %w", err)
	}
	return &f, nil
}

// DefaultFixture returns the built-in demo data set.
func DefaultFixture() *Fixture {
	f, err := ParseFixture(defaultFixture)
	if err != nil {
		panic(err) // embedded file is validated by tests
	}
	return f
}

// Seed upserts every record of f in one transaction. Existing ticket
// messages are kept; fixture messages are only inserted for tickets that
// have none yet, so seeding twice is harmless.
func (s *Store) Seed(ctx context.Context, f *Fixture) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: seed: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	exec := func(query string, args ...any) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("store: seed: %w", err)
		}
		return nil
	}

	for _, u := range f.Users {
		if err := exec(`
			INSERT INTO users (user_id, user_name, full_name, email, is_blocked) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET user_name = excluded.user_name, full_name = excluded.full_name,
				email = excluded.email, is_blocked = excluded.is_blocked`,
			u.ID, u.UserName, u.FullName, u.Email, boolInt(u.IsBlocked)); err != nil {
			return err
		}
	}

	for _, t := range f.Tickets {
		createdAt := t.CreatedAt
		if createdAt == "" {
			createdAt = s.timestamp()
		}
		if err := exec(`
			INSERT INTO tickets (ticket_id, user_id, channel, created_at, status, issue_type, tags) VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(ticket_id) DO UPDATE SET status = excluded.status, issue_type = excluded.issue_type, tags = excluded.tags`,
			t.ID, t.UserID, orDefault(t.Channel, "chat"), createdAt, orDefault(t.Status, StatusOpen), t.IssueType, t.Tags); err != nil {
			return err
		}
		if err := seedMessages(ctx, tx, t.ID, createdAt, t.Messages); err != nil {
			return err
		}
	}

	for _, p := range f.Preferences {
		if err := exec(`
			INSERT INTO user_preferences (user_id, language, preferred_channel, notes) VALUES (?, ?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET language = excluded.language,
				preferred_channel = excluded.preferred_channel, notes = excluded.notes`,
			p.UserID, orDefault(p.Language, DefaultLanguage), orDefault(p.PreferredChannel, DefaultChannel), p.Notes); err != nil {
			return err
		}
	}

	for _, sub := range f.Subscriptions {
		if err := exec(`
			INSERT INTO subscriptions (user_id, status, tier, started_at, ended_at) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET status = excluded.status, tier = excluded.tier,
				started_at = excluded.started_at, ended_at = excluded.ended_at`,
			sub.UserID, sub.Status, sub.Tier, sub.StartedAt, sub.EndedAt); err != nil {
			return err
		}
	}

	for _, e := range f.Experiences {
		if err := exec(`
			INSERT INTO experiences (experience_id, title, description, location, starts_at, is_premium, slots_available)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(experience_id) DO UPDATE SET title = excluded.title, description = excluded.description,
				location = excluded.location, starts_at = excluded.starts_at, is_premium = excluded.is_premium,
				slots_available = excluded.slots_available`,
			e.ID, e.Title, e.Description, e.Location, e.When, boolInt(e.IsPremium), e.SlotsAvailable); err != nil {
			return err
		}
	}

	for _, r := range f.Reservations {
		if err := exec(`
			INSERT INTO reservations (reservation_id, user_id, experience_id, status, created_at) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(reservation_id) DO UPDATE SET status = excluded.status`,
			r.ID, r.UserID, r.ExperienceID, r.Status, r.CreatedAt); err != nil {
			return err
		}
	}

	for _, a := range f.Articles {
		if err := exec(`
			INSERT INTO articles (article_id, title, content, tags) VALUES (?, ?, ?, ?)
			ON CONFLICT(article_id) DO UPDATE SET title = excluded.title, content = excluded.content, tags = excluded.tags`,
			a.ID, a.Title, a.Content, a.Tags); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: seed: %w", err)
	}

	s.logger.Info("store.seeded", "users", len(f.Users), "tickets", len(f.Tickets),
		"experiences", len(f.Experiences), "articles", len(f.Articles))

	return nil
}

func seedMessages(ctx context.Context, tx *sqlx.Tx, ticketID, createdAt string, msgs []FixtureMessage) error {
	var n int
	if err := tx.GetContext(ctx, &n, tx.Rebind(`SELECT COUNT(*) FROM ticket_messages WHERE ticket_id = ?`), ticketID); err != nil {
		return fmt.Errorf("store: seed: %w", err)
	}
	if n > 0 {
		return nil
	}
	for i, m := range msgs {
		_, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO ticket_messages (message_id, ticket_id, seq, role, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
			fmt.Sprintf("%s-m%d", ticketID, i+1), ticketID, i+1, NormalizeRole(m.Role), m.Content, createdAt)
		if err != nil {
			return fmt.Errorf("store: seed: %w", err)
		}
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
