package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/amiwrpremium/xtls-crud/internal/auth/token"
	"github.com/amiwrpremium/xtls-crud/internal/bootstrap"
	"github.com/amiwrpremium/xtls-crud/internal/cache"
	"github.com/amiwrpremium/xtls-crud/internal/migrations"
	"github.com/amiwrpremium/xtls-crud/internal/notifier"
	"github.com/amiwrpremium/xtls-crud/internal/repository/sqlite"
	"github.com/amiwrpremium/xtls-crud/internal/security"
	"github.com/amiwrpremium/xtls-crud/internal/support/hash"
)

var testNow = time.Unix(1_700_000_000, 0)

func testClock() time.Time { return testNow }

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	ctx := context.Background()
	db, err := bootstrap.OpenSQLite(ctx, filepath.Join(t.TempDir(), "service.db"), bootstrap.DBOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Up(ctx, db))
	return sqlite.NewStore(db)
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notifier.InboundDisabled
}

func (n *recordingNotifier) InboundDisabled(_ context.Context, notice notifier.InboundDisabled) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return nil
}

type recordingAudit struct {
	mu     sync.Mutex
	events []security.Event
}

func (r *recordingAudit) Record(_ context.Context, event security.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingAudit) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

type authFixture struct {
	store  *sqlite.Store
	auth   AuthService
	users  UserService
	tokens *token.Manager
	audit  *recordingAudit
	cache  cache.Store
}

func newAuthFixture(t *testing.T, opts AuthOptions) *authFixture {
	t.Helper()
	store := newTestStore(t)
	hasher, err := hash.NewBcryptHasher(4)
	require.NoError(t, err)
	mgr, err := token.NewManager(token.Options{
		SigningKey: []byte("test-signing-key"),
		Issuer:     "xtls-crud",
		Audience:   "xtls-crud-api",
		TTL:        time.Hour,
	})
	require.NoError(t, err)
	cacheStore := cache.NewStore(cache.Options{Prefix: "test"})
	rate, err := security.NewRateLimiter(cacheStore)
	require.NoError(t, err)
	audit := &recordingAudit{}
	return &authFixture{
		store:  store,
		auth:   NewAuthService(store.Users(), store.Tokens(), hasher, mgr, rate, audit, cacheStore, opts),
		users:  NewUserService(store.Users(), store.Tokens(), hasher, nil),
		tokens: mgr,
		audit:  audit,
		cache:  cacheStore,
	}
}
