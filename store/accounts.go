package store

import (
	"context"
	"fmt"
)

// Default preference values for users that never stored any.
const (
	DefaultLanguage = "en"
	DefaultChannel  = "chat"
)

// GetUser returns a CultPass account.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.db.GetContext(ctx, &u, s.db.Rebind(`
		SELECT user_id, user_name, full_name, email, is_blocked FROM users WHERE user_id = ?`), id)
	if err != nil {
		if isNoRows(err) {
			return nil, notFound("user", id)
		}
		return nil, fmt.Errorf("store: get user: %w", err)
	}
	return &u, nil
}

// GetPreferences returns stored preferences or the defaults.
func (s *Store) GetPreferences(ctx context.Context, userID string) (*Preferences, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	p := Preferences{UserID: userID, Language: DefaultLanguage, PreferredChannel: DefaultChannel}
	err := s.db.GetContext(ctx, &p, s.db.Rebind(`
		SELECT user_id, language, preferred_channel, notes FROM user_preferences WHERE user_id = ?`), userID)
	if err != nil && !isNoRows(err) {
		return nil, fmt.Errorf("store: get preferences: %w", err)
	}
	return &p, nil
}

// UpdatePreferences applies patch on top of the current preferences.
func (s *Store) UpdatePreferences(ctx context.Context, userID string, patch PreferencesPatch) (*Preferences, error) {
	p, err := s.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	if patch.Language != nil {
		p.Language = *patch.Language
	}
	if patch.PreferredChannel != nil {
		p.PreferredChannel = *patch.PreferredChannel
	}
	if patch.Notes != nil {
		p.Notes = *patch.Notes
	}

	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO user_preferences (user_id, language, preferred_channel, notes)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			language = excluded.language, preferred_channel = excluded.preferred_channel, notes = excluded.notes`),
		p.UserID, p.Language, p.PreferredChannel, p.Notes)
	if err != nil {
		return nil, fmt.Errorf("store: update preferences: %w", err)
	}

	s.logger.Info("store.preferences.updated", "user_id", userID)

	return p, nil
}

// GetSubscription returns the user's plan. A user without one yields a
// NotFoundError for entity "subscription".
func (s *Store) GetSubscription(ctx context.Context, userID string) (*Subscription, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	var sub Subscription
	err := s.db.GetContext(ctx, &sub, s.db.Rebind(`
		SELECT user_id, status, tier, started_at, ended_at FROM subscriptions WHERE user_id = ?`), userID)
	if err != nil {
		if isNoRows(err) {
			return nil, notFound("subscription", userID)
		}
		return nil, fmt.Errorf("store: get subscription: %w", err)
	}
	return &sub, nil
}

// GetReservations lists a user's bookings joined with their experiences.
func (s *Store) GetReservations(ctx context.Context, userID string) ([]Reservation, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	var out []Reservation
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(`
		SELECT r.reservation_id, r.status, e.title, e.location, e.starts_at, e.is_premium
		FROM reservations r JOIN experiences e ON e.experience_id = r.experience_id
		WHERE r.user_id = ?
		ORDER BY e.starts_at`), userID)
	if err != nil {
		return nil, fmt.Errorf("store: get reservations: %w", err)
	}
	return out, nil
}

const experienceColumns = `experience_id, title, description, location, starts_at, is_premium, slots_available`

// GetExperience returns one experience with its remaining slots.
func (s *Store) GetExperience(ctx context.Context, id string) (*Experience, error) {
	var e Experience
	err := s.db.GetContext(ctx, &e, s.db.Rebind(`SELECT `+experienceColumns+` FROM experiences WHERE experience_id = ?`), id)
	if err != nil {
		if isNoRows(err) {
			return nil, notFound("experience", id)
		}
		return nil, fmt.Errorf("store: get experience: %w", err)
	}
	return &e, nil
}

// ListExperiences returns the experience catalogue.
func (s *Store) ListExperiences(ctx context.Context) ([]Experience, error) {
	var out []Experience
	if err := s.db.SelectContext(ctx, &out, `SELECT `+experienceColumns+` FROM experiences ORDER BY experience_id`); err != nil {
		return nil, fmt.Errorf("store: list experiences: %w", err)
	}
	return out, nil
}

// ListArticles returns the knowledge base.
func (s *Store) ListArticles(ctx context.Context) ([]Article, error) {
	var out []Article
	if err := s.db.SelectContext(ctx, &out, `SELECT article_id, title, content, tags FROM articles ORDER BY article_id`); err != nil {
		return nil, fmt.Errorf("store: list articles: %w", err)
	}
	return out, nil
}
