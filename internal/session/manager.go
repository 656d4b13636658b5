package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Acuveth/life-rank/internal/api"
	"github.com/Acuveth/life-rank/internal/config"
	"github.com/Acuveth/life-rank/internal/googleid"
	"github.com/Acuveth/life-rank/internal/models"
	"github.com/Acuveth/life-rank/internal/store"
	"github.com/Acuveth/life-rank/internal/tokens"
	"github.com/Acuveth/life-rank/pkg/logger"
	"github.com/Acuveth/life-rank/pkg/metrics"
)

// State is the snapshot consumers observe. IsAuthenticated is derived purely
// from User; exactly one of loading/authenticated/unauthenticated holds once
// IsInitialized is true.
type State struct {
	User            *models.User
	IsAuthenticated bool
	IsLoading       bool
	IsInitialized   bool
}

// Manager owns the session lifecycle: startup hydration and verification,
// sign-in/sign-out operations, the periodic local-expiry check, and
// foreground re-verification. One instance per process; dispose with Close.
type Manager struct {
	cfg    config.SessionConfig
	api    *api.Client
	store  store.Store
	google googleid.TokenVerifier

	mu          sync.RWMutex
	user        *models.User
	loading     bool
	initialized bool

	subMu  sync.Mutex
	subs   map[int]chan State
	nextID int
	closed bool

	watchMu   sync.Mutex
	watchStop chan struct{}

	verifyLimit *rate.Limiter
	now         func() time.Time
}

type Option func(*Manager)

// WithGoogleVerifier enables local pre-verification of Google ID tokens
// before they are exchanged with the server.
func WithGoogleVerifier(v googleid.TokenVerifier) Option {
	return func(m *Manager) { m.google = v }
}

func NewManager(cfg config.SessionConfig, client *api.Client, st store.Store, opts ...Option) *Manager {
	lim := rate.NewLimiter(rate.Limit(cfg.VerifyRPS), cfg.VerifyBurst)
	if cfg.VerifyRPS <= 0 {
		lim = rate.NewLimiter(rate.Inf, 1)
	}
	m := &Manager{
		cfg:         cfg,
		api:         client,
		store:       st,
		subs:        map[int]chan State{},
		verifyLimit: lim,
		now:         time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// State returns the current snapshot. The user is a copy; mutating it does
// not affect the manager.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return State{
		User:            m.user.Clone(),
		IsAuthenticated: m.user != nil,
		IsLoading:       m.loading,
		IsInitialized:   m.initialized,
	}
}

func (m *Manager) IsAuthenticated() bool { return m.State().IsAuthenticated }
func (m *Manager) IsInitialized() bool   { return m.State().IsInitialized }

// Subscribe registers an observer of state transitions. The channel is
// buffered and the manager never blocks on it; a consumer whose buffer is
// full misses snapshots until it drains. The returned func unsubscribes and
// closes the channel.
func (m *Manager) Subscribe() (<-chan State, func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	id := m.nextID
	m.nextID++
	ch := make(chan State, 8)
	m.subs[id] = ch
	return ch, func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		if c, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(c)
		}
	}
}

func (m *Manager) publish() {
	st := m.State()
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- st:
		default:
		}
	}
}

// Initialize runs the startup protocol: hydrate from the store, reject
// locally expired sessions without a network call, verify the rest with the
// server. A transient verify failure keeps the stored session (an offline
// start must not force a logout); only a confirmed rejection clears it.
// The authenticated/unauthenticated decision and the loading flag flip in a
// single state update, so observers never see an intermediate flash.
func (m *Manager) Initialize(ctx context.Context) error {
	m.setLoading(true)

	rec, err := m.store.Load(ctx)
	if err != nil {
		logger.Errorf("session store read failed: %v", err)
		m.finishInit(nil)
		return fmt.Errorf("load session: %w", err)
	}
	if rec == nil {
		m.finishInit(nil)
		return nil
	}
	if rec.Expired(m.now()) {
		logger.Infof("stored session expired locally, discarding")
		m.clearStore(ctx)
		m.finishInit(nil)
		return nil
	}
	var u models.User
	if err := json.Unmarshal(rec.UserJSON, &u); err != nil {
		logger.Warnf("stored user record unreadable, discarding session: %v", err)
		m.clearStore(ctx)
		m.finishInit(nil)
		return nil
	}

	switch err := m.api.VerifySession(ctx); {
	case err == nil:
		metrics.SessionVerify.WithLabelValues("ok").Inc()
		m.finishInit(&u)
	case api.IsAuthRejected(err):
		metrics.SessionVerify.WithLabelValues("rejected").Inc()
		logger.Infof("stored session rejected by server, discarding")
		m.clearStore(ctx)
		m.finishInit(nil)
	default:
		// can't reach the server: trust the stored session until it either
		// validates or is explicitly rejected
		metrics.SessionVerify.WithLabelValues("transient").Inc()
		logger.Warnf("session verify unavailable, keeping stored session: %v", err)
		m.finishInit(&u)
	}
	return nil
}

// finishInit commits the startup decision: user, loading and initialized
// change together under one lock.
func (m *Manager) finishInit(u *models.User) {
	m.mu.Lock()
	m.user = u
	m.loading = false
	m.initialized = true
	m.mu.Unlock()
	m.publish()
	if u != nil {
		m.startWatcher()
	}
}

// Login authenticates with email and password and commits the session.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.setLoading(true)
	defer m.setLoading(false)

	res, err := m.api.Login(ctx, email, password)
	if err != nil {
		return opError(err, "Login failed")
	}
	if err := m.commit(ctx, res); err != nil {
		return err
	}
	metrics.Logins.WithLabelValues("password").Inc()
	logger.Infof("signed in as %s", res.User.Email)
	return nil
}

// Register creates an account and commits the resulting session.
func (m *Manager) Register(ctx context.Context, req api.RegisterRequest) error {
	m.setLoading(true)
	defer m.setLoading(false)

	res, err := m.api.Register(ctx, req)
	if err != nil {
		return opError(err, "Registration failed")
	}
	if err := m.commit(ctx, res); err != nil {
		return err
	}
	metrics.Logins.WithLabelValues("register").Inc()
	logger.Infof("registered as %s", res.User.Email)
	return nil
}

// GoogleLogin exchanges a Google ID token for a session. When a verifier is
// configured the token is checked locally first so an obviously bad token
// fails without a round trip.
func (m *Manager) GoogleLogin(ctx context.Context, idToken string) error {
	if m.google != nil {
		tok, err := m.google.Verify(ctx, idToken)
		if err != nil {
			return fmt.Errorf("Google sign-in failed: %w", err)
		}
		if email := googleid.Email(tok); email != "" {
			logger.Debugf("exchanging Google identity for %s", email)
		}
	}

	m.setLoading(true)
	defer m.setLoading(false)

	res, err := m.api.ExchangeGoogleToken(ctx, idToken)
	if err != nil {
		return opError(err, "Google sign-in failed")
	}
	if err := m.commit(ctx, res); err != nil {
		return err
	}
	metrics.Logins.WithLabelValues("google").Inc()
	return nil
}

// commit persists token, user and freshly computed expiry as one record,
// then updates memory. The local window is capped at the token's own exp
// claim when the token parses as a JWT.
func (m *Manager) commit(ctx context.Context, res *api.AuthResult) error {
	if res.AccessToken == "" || res.User == nil {
		return fmt.Errorf("malformed auth response from server")
	}
	expiresAt := tokens.ClampExpiry(res.AccessToken, m.now().Add(m.cfg.Lifetime))
	uj, err := json.Marshal(res.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	rec := &store.Record{AccessToken: res.AccessToken, UserJSON: uj, ExpiresAt: expiresAt}
	if err := m.store.Save(ctx, rec); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	m.mu.Lock()
	m.user = res.User.Clone()
	m.mu.Unlock()
	m.publish()
	m.startWatcher()
	return nil
}

// UpdateUser sends a profile update and replaces the user wholesale with the
// server's authoritative response. A rejected credential tears the session down.
func (m *Manager) UpdateUser(ctx context.Context, upd models.UserUpdate) (*models.User, error) {
	m.setLoading(true)
	defer m.setLoading(false)

	u, err := m.api.UpdateProfile(ctx, upd)
	if err != nil {
		if api.IsAuthRejected(err) {
			m.rejectedLogout("profile update")
		}
		return nil, opError(err, "Update failed")
	}
	if err := m.persistUser(ctx, u); err != nil {
		logger.Warnf("failed to persist updated user: %v", err)
	}
	m.mu.Lock()
	m.user = u.Clone()
	m.mu.Unlock()
	m.publish()
	return u, nil
}

// RefreshUser fetches the profile and shallow-merges it into the current
// user. Refresh failures are logged and the unchanged user is returned; a
// background refresh must never force a logout or fail its caller.
func (m *Manager) RefreshUser(ctx context.Context) *models.User {
	fetched, err := m.api.FetchProfile(ctx)

	m.mu.RLock()
	cur := m.user.Clone()
	m.mu.RUnlock()

	if err != nil {
		logger.Warnf("profile refresh failed: %v", err)
		return cur
	}
	merged := models.Merge(cur, fetched)
	if err := m.persistUser(ctx, merged); err != nil {
		logger.Warnf("failed to persist refreshed user: %v", err)
	}
	m.mu.Lock()
	m.user = merged.Clone()
	m.mu.Unlock()
	m.publish()
	return merged
}

// DeleteAccount removes the account server-side and clears the local session.
func (m *Manager) DeleteAccount(ctx context.Context) error {
	if err := m.api.DeleteAccount(ctx); err != nil {
		if api.IsAuthRejected(err) {
			m.rejectedLogout("account deletion")
		}
		return opError(err, "Account deletion failed")
	}
	m.Logout()
	return nil
}

// Logout clears the session synchronously and never touches the network.
// Safe to call repeatedly.
func (m *Manager) Logout() {
	m.stopWatcher()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m.clearStore(ctx)

	m.mu.Lock()
	wasAuth := m.user != nil
	m.user = nil
	m.mu.Unlock()
	if wasAuth {
		logger.Infof("signed out")
	}
	m.publish()
}

// NotifyVisible is the foreground-transition hook: while authenticated it
// re-verifies the session with the server to catch revocation that happened
// while the app was backgrounded. Throttled so rapid visibility flips don't
// turn into a request storm.
func (m *Manager) NotifyVisible(ctx context.Context) {
	if !m.IsAuthenticated() {
		return
	}
	if !m.verifyLimit.Allow() {
		return
	}
	switch err := m.api.VerifySession(ctx); {
	case err == nil:
		metrics.SessionVerify.WithLabelValues("ok").Inc()
	case api.IsAuthRejected(err):
		metrics.SessionVerify.WithLabelValues("rejected").Inc()
		m.rejectedLogout("foreground check")
	default:
		metrics.SessionVerify.WithLabelValues("transient").Inc()
		logger.Debugf("foreground verify unavailable: %v", err)
	}
}

// Close disposes the manager: background checks stop and all subscriber
// channels are closed. The session itself is left intact.
func (m *Manager) Close() {
	m.stopWatcher()
	m.subMu.Lock()
	defer m.subMu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
}

// persistUser rewrites the stored user record, keeping the committed token
// and expiry as they are. A missing record means the session ended while the
// call was in flight; nothing to persist then.
func (m *Manager) persistUser(ctx context.Context, u *models.User) error {
	rec, err := m.store.Load(ctx)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}
	uj, err := json.Marshal(u)
	if err != nil {
		return err
	}
	rec.UserJSON = uj
	return m.store.Save(ctx, rec)
}

func (m *Manager) setLoading(v bool) {
	m.mu.Lock()
	m.loading = v
	m.mu.Unlock()
	m.publish()
}

func (m *Manager) clearStore(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		logger.Warnf("failed to clear session store: %v", err)
	}
}

func (m *Manager) rejectedLogout(where string) {
	metrics.AuthRejected.WithLabelValues(where).Inc()
	logger.Warnf("credential rejected during %s, signing out", where)
	m.Logout()
}

// startWatcher launches the periodic expiry check. Active only while a
// session exists; stopped by Logout/Close. Idempotent.
func (m *Manager) startWatcher() {
	m.watchMu.Lock()
	defer m.watchMu.Unlock()
	if m.watchStop != nil {
		return
	}
	stop := make(chan struct{})
	m.watchStop = stop
	go m.watchExpiry(stop)
}

func (m *Manager) stopWatcher() {
	m.watchMu.Lock()
	defer m.watchMu.Unlock()
	if m.watchStop != nil {
		close(m.watchStop)
		m.watchStop = nil
	}
}

// watchExpiry re-reads the committed expiry every tick rather than caching
// it, so a login that raced the ticker always wins.
func (m *Manager) watchExpiry(stop chan struct{}) {
	t := time.NewTicker(m.cfg.CheckInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			rec, err := m.store.Load(ctx)
			cancel()
			if err != nil {
				logger.Warnf("expiry check failed: %v", err)
				continue
			}
			if rec == nil || rec.Expired(m.now()) {
				logger.Infof("session expired locally, signing out")
				m.Logout()
				return
			}
		}
	}
}

// opError surfaces the server's message when it gave one, otherwise the
// generic per-operation fallback. The original error stays in the chain for
// classification.
func opError(err error, fallback string) error {
	if err == nil {
		return nil
	}
	if api.Message(err) != "" {
		return err
	}
	return fmt.Errorf("%s: %w", fallback, err)
}
