package http_test

import (
	"context"
	nethttp "net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/niveshmitr/gateway/internal/domain"
	"github.com/niveshmitr/gateway/internal/engine"
	api "github.com/niveshmitr/gateway/internal/http"
	"github.com/niveshmitr/gateway/internal/identity"
	"github.com/niveshmitr/gateway/internal/oauth"
	"github.com/niveshmitr/gateway/internal/queue"
	"github.com/niveshmitr/gateway/internal/repo"
)

// memStore fakes the Mongo store and doubles as the identity provider so the
// linker and the session/profile paths share one user set.
type memStore struct {
	mu            sync.Mutex
	users         map[string]*domain.User // keyed by email
	secrets       map[string]string       // email -> derived secret
	profiles      map[string]*domain.Profile
	profileWrites map[string]int
	refresh       map[string]*repo.RefreshToken
	pingErr       error
}

func newMemStore() *memStore {
	return &memStore{
		users:         map[string]*domain.User{},
		secrets:       map[string]string{},
		profiles:      map[string]*domain.Profile{},
		profileWrites: map[string]int{},
		refresh:       map[string]*repo.RefreshToken{},
	}
}

func (m *memStore) Ping(context.Context) error { return m.pingErr }

func (m *memStore) FindUserByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memStore) UpsertGoogleUser(_ context.Context, email, sub string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[email]; ok {
		u.ExternalID = sub
		u.Verified = true
		return u, nil
	}
	u := &domain.User{ID: primitive.NewObjectID(), Email: email, Provider: "google", ExternalID: sub, Verified: true, CreatedAt: time.Now()}
	m.users[email] = u
	return u, nil
}

func (m *memStore) EnsureProfile(_ context.Context, accountID, email string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[accountID]; ok {
		return p, nil
	}
	p := &domain.Profile{AccountID: accountID, Email: email, CashBalance: domain.SeedBalance, CreatedAt: time.Now()}
	m.profiles[accountID] = p
	m.profileWrites[accountID]++
	return p, nil
}

func (m *memStore) GetProfile(_ context.Context, accountID string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profiles[accountID], nil
}

func (m *memStore) SaveRefresh(_ context.Context, userID primitive.ObjectID, plain string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresh[plain] = &repo.RefreshToken{UserID: userID, ExpiresAt: time.Now().Add(ttl)}
	return nil
}

func (m *memStore) FindValidRefresh(_ context.Context, plain string) (*repo.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.refresh[plain]
	if !ok || rt.Revoked || rt.ExpiresAt.Before(time.Now()) {
		return nil, nil
	}
	return rt, nil
}

func (m *memStore) RevokeRefresh(_ context.Context, plain string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rt, ok := m.refresh[plain]; ok {
		rt.Revoked = true
	}
	return nil
}

// identity.Provider over the same user set

func (m *memStore) SignIn(_ context.Context, email, secret string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return "", identity.ErrUnknownAccount
	}
	if stored, ok := m.secrets[email]; ok && stored != secret {
		return "", identity.ErrInvalidCredential
	}
	m.secrets[email] = secret
	return u.ID.Hex(), nil
}

func (m *memStore) CreateAccount(_ context.Context, email, secret string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[email]; ok {
		return "", identity.ErrEmailTaken
	}
	u := &domain.User{ID: primitive.NewObjectID(), Email: email, Provider: "otp", Verified: true, CreatedAt: time.Now()}
	m.users[email] = u
	m.secrets[email] = secret
	return u.ID.Hex(), nil
}

// capturePub records published events and can be told to fail.
type capturePub struct {
	mu       sync.Mutex
	otps     []queue.OTPRequested
	failWith error
}

func (p *capturePub) Publish(_ context.Context, _, key string, event any, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return p.failWith
	}
	if key == queue.KeyOTPRequested {
		if ev, ok := event.(queue.OTPRequested); ok {
			p.otps = append(p.otps, ev)
		}
	}
	return nil
}

func (p *capturePub) Close() error { return nil }

func (p *capturePub) lastCode() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.otps) == 0 {
		return ""
	}
	return p.otps[len(p.otps)-1].Code
}

// engineBackend is a swappable httptest handler standing in for the trading
// engine.
type engineBackend struct {
	mu sync.Mutex
	fn nethttp.HandlerFunc
}

func (b *engineBackend) set(fn nethttp.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fn = fn
}

func (b *engineBackend) ServeHTTP(w nethttp.ResponseWriter, r *nethttp.Request) {
	b.mu.Lock()
	fn := b.fn
	b.mu.Unlock()
	if fn == nil {
		nethttp.NotFound(w, r)
		return
	}
	fn(w, r)
}

type testEnv struct {
	Router  *gin.Engine
	Store   *memStore
	Pub     *capturePub
	Redis   *miniredis.Miniredis
	Backend *engineBackend
}

func newTestEnv(t *testing.T, otpPerMin int) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rds := repo.NewRedis(mr.Addr())
	t.Cleanup(func() { _ = rds.Close() })
	otp := repo.NewOTPStore(rds, 5*time.Minute, 5)

	store := newMemStore()
	pub := &capturePub{}
	backend := &engineBackend{}

	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	linker := identity.NewLinker(store, "test-credential-key")
	eng := engine.NewClient(srv.URL, 5*time.Second, zap.NewNop())
	google := oauth.NewGoogle("", "", "", "test-state-key")

	h := api.NewHandler(store, otp, rds, linker, eng, google, pub,
		"test-jwt-secret", 14, otpPerMin, "auth.events")
	return &testEnv{Router: api.NewRouter(h), Store: store, Pub: pub, Redis: mr, Backend: backend}
}
