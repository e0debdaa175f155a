package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/2beens/liftlog/internal/datastore"
	"github.com/2beens/liftlog/pkg"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultTTL       = 24 * 7 * time.Hour
	sessionKeyPrefix = "liftlog-session||"
	tokensSetKey     = "liftlog-sessions"

	fieldUserID    = "user_id"
	fieldCreatedAt = "created_at"
)

var ErrEmptyUserID = errors.New("empty user id")

type Session struct {
	Token     string
	UserID    string
	CreatedAt time.Time
}

// Service keeps login sessions in redis: one hash per token plus a set of all tokens.
type Service struct {
	redisClient *redis.Client
	ttl         time.Duration
	now         func() time.Time
	// ability to inject random string generator func for tokens (for unit and dev testing)
	RandStringFunc func(s int) (string, error)
}

func NewService(ttl time.Duration, redisClient *redis.Client) *Service {
	return &Service{
		ttl:            ttl,
		redisClient:    redisClient,
		now:            time.Now,
		RandStringFunc: pkg.GenerateRandomString,
	}
}

func sessionKey(token string) string {
	return sessionKeyPrefix + token
}

// Login opens a session for userID and returns its token.
func (as *Service) Login(ctx context.Context, userID string, createdAt time.Time) (string, error) {
	if userID == "" {
		return "", ErrEmptyUserID
	}

	token, err := as.RandStringFunc(35)
	if err != nil {
		return "", err
	}

	key := sessionKey(token)
	if err := as.redisClient.HSet(ctx, key, fieldUserID, userID, fieldCreatedAt, createdAt.Unix()).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	if err := as.redisClient.Expire(ctx, key, as.ttl).Err(); err != nil {
		return "", fmt.Errorf("session expiry: %w", err)
	}

	// add token to list of sessions
	if err := as.redisClient.SAdd(ctx, tokensSetKey, token).Err(); err != nil {
		return "", fmt.Errorf("register session: %w", err)
	}

	return token, nil
}

// Logout drops the session. It reports whether the session existed.
func (as *Service) Logout(ctx context.Context, token string) (bool, error) {
	removed, err := as.redisClient.Del(ctx, sessionKey(token)).Result()
	if err != nil {
		return false, err
	}

	// remove token from the list of sessions
	if err := as.redisClient.SRem(ctx, tokensSetKey, token).Err(); err != nil {
		return false, err
	}

	return removed > 0, nil
}

func (as *Service) session(ctx context.Context, token string) (*Session, error) {
	fields, err := as.redisClient.HGetAll(ctx, sessionKey(token)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}

	createdAtUnix, err := strconv.ParseInt(fields[fieldCreatedAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("session created at: %w", err)
	}

	return &Session{
		Token:     token,
		UserID:    fields[fieldUserID],
		CreatedAt: time.Unix(createdAtUnix, 0),
	}, nil
}

func (as *Service) expired(s *Session) bool {
	return as.now().Sub(s.CreatedAt) > as.ttl
}

// UserForToken resolves a session token to its user id. Unknown, expired and
// malformed sessions are datastore.ErrUnauthenticated.
func (as *Service) UserForToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", datastore.ErrUnauthenticated
	}

	s, err := as.session(ctx, token)
	if err != nil {
		return "", err
	}
	if s == nil || s.UserID == "" || as.expired(s) {
		return "", datastore.ErrUnauthenticated
	}

	return s.UserID, nil
}

// ScanAndClean will run through all sessions, check the TTL, and clean them if old.
// Returns the number of removed sessions.
func (as *Service) ScanAndClean(ctx context.Context) int {
	sessionTokens, err := as.redisClient.SMembers(ctx, tokensSetKey).Result()
	if err != nil {
		log.Errorf("auth service, scan and clean, get sessions: %s", err)
		return 0
	}

	if len(sessionTokens) == 0 {
		log.Debugln("auth service, scan and clean abort, no sessions")
		return 0
	}

	log.Debugf("auth service, scan and clean [%d sessions] start ...", len(sessionTokens))
	var toRemove []string
	for _, token := range sessionTokens {
		s, err := as.session(ctx, token)
		if err != nil {
			log.Errorf("auth service, scan and clean token %s: %s", token, err)
			continue
		}
		// nil: redis already expired the hash, only the set entry is left
		if s == nil || as.expired(s) {
			toRemove = append(toRemove, token)
		}
	}

	removed := 0
	for _, token := range toRemove {
		if err := as.redisClient.Del(ctx, sessionKey(token)).Err(); err != nil {
			log.Errorf("auth service, clean token %s: %s", token, err)
			continue
		}
		if err := as.redisClient.SRem(ctx, tokensSetKey, token).Err(); err != nil {
			log.Errorf("auth service, clean token %s: %s", token, err)
			continue
		}
		removed++
	}

	log.Debugf("auth service, scan and clean removed %d sessions", removed)
	return removed
}

// RunCleaner calls ScanAndClean every interval until ctx is done.
func (as *Service) RunCleaner(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			as.ScanAndClean(ctx)
		}
	}
}
