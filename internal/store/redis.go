package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/faircombine/faircombine/internal/constants"
	"github.com/faircombine/faircombine/internal/domain"
	fcerrors "github.com/faircombine/faircombine/internal/errors"
)

// RedisStore implements Store over a redigo connection pool.
type RedisStore struct {
	pool *redis.Pool
	log  zerolog.Logger
}

// Options configures the redis connection.
type Options struct {
	// Addr is the redis host:port.
	Addr string

	// Password is the optional AUTH password.
	Password string

	// DB is the redis database number.
	DB int
}

// NewRedisStore creates a store backed by the redis instance at
// opts.Addr. The connection is verified with a PING before returning.
func NewRedisStore(ctx context.Context, opts Options) (*RedisStore, error) {
	dialOpts := []redis.DialOption{
		redis.DialDatabase(opts.DB),
		redis.DialConnectTimeout(5 * time.Second),
	}
	if opts.Password != "" {
		dialOpts = append(dialOpts, redis.DialPassword(opts.Password))
	}

	pool := &redis.Pool{
		MaxIdle:     8,
		IdleTimeout: 5 * time.Minute,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialContext(ctx, "tcp", opts.Addr, dialOpts...)
		},
	}

	s := &RedisStore{
		pool: pool,
		log: zerolog.Ctx(ctx).With().
			Str("component", "store").
			Str("redis_addr", opts.Addr).
			Logger(),
	}
	if err := s.Ping(ctx); err != nil {
		_ = pool.Close()
		return nil, err
	}
	s.log.Info().Msg("connected to redis")
	return s, nil
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.pool.Close()
}

// Ping verifies the redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s", fcerrors.ErrStore, err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.Do("PING"); err != nil {
		return fmt.Errorf("%w: ping failed: %s", fcerrors.ErrStore, err)
	}
	return nil
}

// Get loads and unmarshals a session document.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	data, err := s.getRaw(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("%w: corrupted session document %s: %s",
			fcerrors.ErrStore, sessionID, err)
	}
	return &session, nil
}

// Set marshals and writes the full session document.
func (s *RedisStore) Set(ctx context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("%w: session", fcerrors.ErrEmptyValue)
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("%w: marshal session %s: %s", fcerrors.ErrStore, session.ID, err)
	}
	return s.setRaw(ctx, session.ID, data)
}

// SetField overwrites one field of a stored session document. The path
// uses gjson syntax, e.g. "status". Writing to a path absent from the
// document is rejected, matching the behavior callers rely on to turn
// bad task paths into not-found errors.
func (s *RedisStore) SetField(ctx context.Context, sessionID, path string, value any) error {
	data, err := s.getRaw(ctx, sessionID)
	if err != nil {
		return err
	}
	if !gjson.GetBytes(data, path).Exists() {
		return fmt.Errorf("%w: session %s has no field %q",
			fcerrors.ErrStore, sessionID, path)
	}
	updated, err := sjson.SetBytes(data, path, value)
	if err != nil {
		return fmt.Errorf("%w: set field %q on session %s: %s",
			fcerrors.ErrStore, path, sessionID, err)
	}
	return s.setRaw(ctx, sessionID, updated)
}

// Delete removes a session document.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s", fcerrors.ErrStore, err)
	}
	defer func() { _ = conn.Close() }()

	removed, err := redis.Int(conn.Do("DEL", sessionKey(sessionID)))
	if err != nil {
		return fmt.Errorf("%w: delete session %s: %s", fcerrors.ErrStore, sessionID, err)
	}
	if removed == 0 {
		return fmt.Errorf("%w: %s", fcerrors.ErrSessionNotFound, sessionID)
	}
	return nil
}

// getRaw fetches the raw JSON document for a session.
func (s *RedisStore) getRaw(ctx context.Context, sessionID string) ([]byte, error) {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", fcerrors.ErrStore, err)
	}
	defer func() { _ = conn.Close() }()

	data, err := redis.Bytes(conn.Do("GET", sessionKey(sessionID)))
	if err == redis.ErrNil {
		return nil, fmt.Errorf("%w: %s", fcerrors.ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get session %s: %s", fcerrors.ErrStore, sessionID, err)
	}
	return data, nil
}

// setRaw writes the raw JSON document for a session.
func (s *RedisStore) setRaw(ctx context.Context, sessionID string, data []byte) error {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s", fcerrors.ErrStore, err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.Do("SET", sessionKey(sessionID), data); err != nil {
		return fmt.Errorf("%w: set session %s: %s", fcerrors.ErrStore, sessionID, err)
	}
	return nil
}

// sessionKey builds the redis key for a session id.
func sessionKey(sessionID string) string {
	return constants.SessionKeyPrefix + sessionID
}
