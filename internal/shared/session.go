package shared

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// expiryGuardTTL bounds how long concurrent 401s are folded into one notice.
const expiryGuardTTL = 2 * time.Minute

// FlashMessage represents a one-time notification stored in session.
type FlashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SessionManager orchestrates cookie based sessions backed by Redis.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
	box        *TokenBox
}

// Session holds per-request session data.
type Session struct {
	ID        string
	values    map[string]string
	userID    string
	flashes   []FlashMessage
	isNew     bool
	dirty     bool
	destroyed bool
}

type sessionPayload struct {
	Values  map[string]string `json:"values"`
	UserID  string            `json:"user_id"`
	Flashes []FlashMessage    `json:"flashes"`
}

// NewSessionManager constructs a SessionManager. The secret keys the at-rest
// encryption of upstream bearer tokens.
func NewSessionManager(client *redis.Client, cookieName string, secret string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		box:        NewTokenBox(secret),
	}
}

// Load loads or creates a new session for request.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return sm.newSession(), nil
		}
		return nil, err
	}

	payload, err := sm.client.Get(ctx, sm.redisKey(cookie.Value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			sess := sm.newSession()
			sess.ID = cookie.Value
			return sess, nil
		}
		return nil, err
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}

	sess := sm.newSession()
	sess.ID = cookie.Value
	if stored.Values != nil {
		sess.values = stored.Values
	}
	sess.userID = stored.UserID
	sess.flashes = stored.Flashes
	sess.isNew = false
	sess.dirty = false
	return sess, nil
}

// Commit persists the session and writes cookie headers as needed.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *Session) error {
	if sess == nil {
		return nil
	}

	if sess.destroyed {
		if err := sm.client.Del(ctx, sm.redisKey(sess.ID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sm.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   sm.secure,
			SameSite: http.SameSiteLaxMode,
		})
		return nil
	}

	if sess.ID == "" {
		sess.ID = sm.generateSessionID()
	}

	if sess.dirty || sess.isNew {
		data, err := json.Marshal(sessionPayload{Values: sess.values, UserID: sess.userID, Flashes: sess.flashes})
		if err != nil {
			return err
		}
		if err := sm.client.Set(ctx, sm.redisKey(sess.ID), data, sm.ttl).Err(); err != nil {
			return err
		}
		sess.dirty = false
		sess.isNew = false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(sm.ttl),
	})
	return nil
}

// Destroy marks the session for deletion.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess == nil {
		return
	}
	sess.destroyed = true
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

// StoreAuth seals the upstream token and records the principal on the session.
func (sm *SessionManager) StoreAuth(sess *Session, p Principal) error {
	if sess == nil {
		return errors.New("session missing")
	}
	sealed, err := sm.box.Seal(p.Token)
	if err != nil {
		return err
	}
	perms, err := json.Marshal(p.Permissions)
	if err != nil {
		return err
	}
	sess.SetUser(p.User)
	sess.Set(authTokenKey, sealed)
	sess.Set(authRoleKey, p.Role)
	sess.Set(authGroupKey, p.Group)
	sess.Set(authPermsKey, string(perms))
	if !p.ExpiresAt.IsZero() {
		sess.Set(authExpiryKey, p.ExpiresAt.UTC().Format(time.RFC3339))
	} else {
		sess.Delete(authExpiryKey)
	}
	return nil
}

// Principal reopens the authenticated principal stored on the session.
func (sm *SessionManager) Principal(sess *Session) (Principal, bool) {
	if sess == nil || sess.User() == "" {
		return Principal{}, false
	}
	sealed := sess.Get(authTokenKey)
	if sealed == "" {
		return Principal{}, false
	}
	token, err := sm.box.Open(sealed)
	if err != nil {
		return Principal{}, false
	}
	p := Principal{
		User:  sess.User(),
		Role:  sess.Get(authRoleKey),
		Group: sess.Get(authGroupKey),
		Token: token,
	}
	if raw := sess.Get(authPermsKey); raw != "" {
		_ = json.Unmarshal([]byte(raw), &p.Permissions)
	}
	if raw := sess.Get(authExpiryKey); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			p.ExpiresAt = t
		}
	}
	return p, true
}

// MarkExpired clears auth state and reports whether this call is the first to
// observe the expiry. Concurrent callers share one notice.
func (sm *SessionManager) MarkExpired(ctx context.Context, sess *Session) (bool, error) {
	if sess == nil {
		return false, nil
	}
	sess.ClearAuth()
	first, err := sm.client.SetNX(ctx, sm.guardKey(sess.ID), "1", expiryGuardTTL).Result()
	if err != nil {
		return false, err
	}
	if !first {
		return false, nil
	}
	if err := sm.client.Set(ctx, sm.noticeKey(sess.ID), "1", sm.ttl).Err(); err != nil {
		return true, err
	}
	return true, nil
}

// Expired reports whether the session has been flagged as expired.
func (sm *SessionManager) Expired(ctx context.Context, sess *Session) bool {
	if sess == nil {
		return false
	}
	n, err := sm.client.Exists(ctx, sm.guardKey(sess.ID)).Result()
	return err == nil && n > 0
}

// TakeExpiredNotice consumes the pending session-expired notice, if any.
func (sm *SessionManager) TakeExpiredNotice(ctx context.Context, sess *Session) bool {
	if sess == nil {
		return false
	}
	_, err := sm.client.GetDel(ctx, sm.noticeKey(sess.ID)).Result()
	return err == nil
}

// ResetExpiry forgets a previous expiry, typically after a fresh login.
func (sm *SessionManager) ResetExpiry(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	return sm.client.Del(ctx, sm.guardKey(sess.ID), sm.noticeKey(sess.ID)).Err()
}

// Session helpers

// Set stores a key-value pair.
func (s *Session) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	if s.values[key] == value {
		return
	}
	s.values[key] = value
	s.dirty = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	if s.values == nil {
		return ""
	}
	return s.values[key]
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	if s.values == nil {
		return
	}
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	s.dirty = true
}

// SetUser associates the session with a user.
func (s *Session) SetUser(id string) {
	s.userID = id
	s.dirty = true
}

// User returns the current user.
func (s *Session) User() string {
	return s.userID
}

// ClearAuth drops the token, group and permissions but keeps the session.
func (s *Session) ClearAuth() {
	s.userID = ""
	for _, key := range []string{authTokenKey, authRoleKey, authGroupKey, authPermsKey, authExpiryKey} {
		s.Delete(key)
	}
	s.dirty = true
}

// AddFlash queues a flash message.
func (s *Session) AddFlash(msg FlashMessage) {
	s.flashes = append(s.flashes, msg)
	s.dirty = true
}

// PopFlash retrieves and clears the oldest flash message.
func (s *Session) PopFlash() *FlashMessage {
	if len(s.flashes) == 0 {
		return nil
	}
	msg := s.flashes[0]
	s.flashes = s.flashes[1:]
	s.dirty = true
	return &msg
}

func (sm *SessionManager) newSession() *Session {
	return &Session{
		ID:     sm.generateSessionID(),
		values: make(map[string]string),
		isNew:  true,
		dirty:  true,
	}
}

func (sm *SessionManager) redisKey(id string) string {
	return "session:" + id
}

func (sm *SessionManager) guardKey(id string) string {
	return "session:" + id + ":expired"
}

func (sm *SessionManager) noticeKey(id string) string {
	return "session:" + id + ":notice"
}

func (sm *SessionManager) generateSessionID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return base64.RawURLEncoding.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano)))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
