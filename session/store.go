// Package session keeps per-conversation history so follow-up requests
// can be answered with earlier context. Sessions are identified by
// opaque UUIDs and expire on a sliding TTL.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tripweaver/tripweaver/core"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one exchange entry in a session.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	Time    time.Time `json:"time"`
}

// Session is a conversation's stored state.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`
}

// Store persists sessions in a Memory backend. Every read and write
// refreshes the TTL, so a session stays alive as long as it is used.
type Store struct {
	memory      core.Memory
	ttl         time.Duration
	maxMessages int
	logger      core.Logger
}

// NewStore creates a session store over an existing memory backend.
func NewStore(memory core.Memory, cfg core.SessionConfig, logger core.Logger) *Store {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	maxMessages := cfg.MaxMessages
	if maxMessages <= 0 {
		maxMessages = 50
	}
	return &Store{memory: memory, ttl: ttl, maxMessages: maxMessages, logger: logger}
}

// NewRedisStore creates a session store backed by Redis. Sessions live
// in their own logical database under their own namespace, so flushing
// application state never destroys conversations.
func NewRedisStore(redisURL string, cfg core.SessionConfig, logger core.Logger) (*Store, error) {
	client, err := core.NewRedisClient(core.RedisClientOptions{
		RedisURL:  redisURL,
		DB:        core.RedisDBSessions,
		Namespace: "tripweaver:sessions",
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating session redis client: %w", err)
	}
	return NewStore(client, cfg, logger), nil
}

// Create starts a new empty session.
func (s *Store) Create(ctx context.Context) (*Session, error) {
	now := time.Now().UTC()
	sess := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []Message{},
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.Debug("Session created", map[string]interface{}{
		"operation":  "session_create",
		"session_id": sess.ID,
	})
	return sess, nil
}

// Get loads a session and refreshes its TTL. A missing or expired
// session returns ErrSessionNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := s.memory.Get(ctx, s.key(id))
	if err != nil {
		if err == core.ErrKeyNotFound {
			return nil, core.ErrSessionNotFound
		}
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}

	// Sliding expiry: reading keeps the session alive.
	if err := s.save(ctx, &sess); err != nil {
		s.logger.Warn("Session TTL refresh failed", map[string]interface{}{
			"operation":  "session_get",
			"session_id": id,
			"error":      err.Error(),
		})
	}
	return &sess, nil
}

// Append records one message, trimming the history to the configured
// window so long-lived sessions stay bounded.
func (s *Store) Append(ctx context.Context, id, role, content string) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	sess.Messages = append(sess.Messages, Message{
		Role:    role,
		Content: content,
		Time:    time.Now().UTC(),
	})
	if len(sess.Messages) > s.maxMessages {
		sess.Messages = sess.Messages[len(sess.Messages)-s.maxMessages:]
	}
	sess.UpdatedAt = time.Now().UTC()

	return s.save(ctx, sess)
}

// Delete removes a session.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.memory.Delete(ctx, s.key(id))
}

func (s *Store) save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", sess.ID, err)
	}
	return s.memory.Set(ctx, s.key(sess.ID), string(data), s.ttl)
}

func (s *Store) key(id string) string {
	return "session:" + id
}
