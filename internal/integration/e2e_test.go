package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"
	"time"

	"arcade_webapp/internal/config"
	"arcade_webapp/internal/db"
	httpServer "arcade_webapp/internal/http"
	"arcade_webapp/internal/http/handlers"
	"arcade_webapp/internal/http/middleware"
	"arcade_webapp/internal/repository"
	"arcade_webapp/internal/service"
	"arcade_webapp/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type testServer struct {
	*httptest.Server
	accounts *repository.AccountRepository
}

func startServer(t *testing.T) *testServer {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	if exec.Command("docker", "info").Run() != nil {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()
	pg, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("arcade"),
		postgres.WithUsername("arcade"),
		postgres.WithPassword("arcade"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(dsn))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	hub := ws.NewHub()
	t.Cleanup(hub.Close)

	tokens := service.NewTokenIssuer("e2e-secret", time.Hour)
	accounts := repository.NewAccountRepository(pool)
	audit := service.NewAuditService(repository.NewAuditRepository(pool))
	settings := service.NewSettingsService(
		repository.NewSettingsRepository(pool),
		repository.NewWithdrawalRepository(pool),
		hub,
		audit,
	)
	h := &handlers.Handler{
		Accounts: service.NewAccountService(accounts, tokens,
			service.WithAudit(audit),
			service.WithPromoCatalog(settings),
		),
		Settings: settings,
		Levels:   service.NewMemoryLevelStore(),
		Audit:    audit,
		Hub:      hub,
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestContext())
	cfg := &config.Config{
		APIRateLimit:      1000,
		APIRateWindowSec:  60,
		AuthRateLimit:     100,
		AuthRateWindowSec: 60,
	}
	httpServer.RegisterRoutes(r, cfg, httpServer.Deps{
		Handler: h,
		Health:  handlers.NewHealthHandler(pool, nil, "test"),
		Limiter: middleware.NewRateLimiter(nil),
		Tokens:  tokens,
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, accounts: accounts}
}

type call struct {
	ip    string
	token string
}

func (s *testServer) post(t *testing.T, c call, path, action string, data any) (int, map[string]any) {
	t.Helper()
	body, err := json.Marshal(map[string]any{"action": action, "data": data})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, s.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return s.do(t, c, req)
}

func (s *testServer) get(t *testing.T, c call, path string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, s.URL+path, nil)
	require.NoError(t, err)
	return s.do(t, c, req)
}

func (s *testServer) do(t *testing.T, c call, req *http.Request) (int, map[string]any) {
	t.Helper()
	if c.ip != "" {
		req.Header.Set("X-Forwarded-For", c.ip)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func stats(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	s, ok := body["stats"].(map[string]any)
	require.True(t, ok, "response has no stats: %v", body)
	return s
}

func TestAccountsAndSettingsFlow(t *testing.T) {
	s := startServer(t)
	alice := call{ip: "203.0.113.7"}
	bob := call{ip: "198.51.100.2"}
	ctx := context.Background()

	code, body := s.post(t, alice, "/api/accounts", "register", map[string]any{"username": "alice", "password": "pw"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "203.0.113.7", body["ip"])
	require.NotEmpty(t, body["token"])
	alice.token = body["token"].(string)
	acct := body["account"].(map[string]any)
	assert.Equal(t, "ALICE", acct["username"])
	assert.Equal(t, float64(100), stats(t, acct)["credits"])

	code, body = s.post(t, bob, "/accounts", "register", map[string]any{"username": "Alice"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Username already exists", body["error"])

	code, body = s.post(t, bob, "/accounts", "register", map[string]any{"username": "bob"})
	require.Equal(t, http.StatusOK, code, body)

	t.Run("ip auto login", func(t *testing.T) {
		code, body := s.get(t, alice, "/api/accounts?ip=true")
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, true, body["autoLogin"])
		assert.Equal(t, "ALICE", body["account"].(map[string]any)["username"])

		code, body = s.get(t, call{ip: "192.0.2.99"}, "/api/accounts?ip=true")
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, false, body["autoLogin"])

		code, body = s.get(t, alice, "/api/accounts?username=bob")
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, true, body["exists"])
	})

	t.Run("login", func(t *testing.T) {
		code, body := s.post(t, alice, "/accounts", "login", map[string]any{"username": "alice", "password": "nope"})
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, "Invalid username or password", body["error"])

		code, body = s.post(t, alice, "/accounts", "login", map[string]any{"username": "alice", "password": "pw"})
		require.Equal(t, http.StatusOK, code)
		assert.NotEmpty(t, body["token"])
	})

	t.Run("transfer charges the fee", func(t *testing.T) {
		code, body := s.post(t, alice, "/accounts", "transfer", map[string]any{"fromUser": "alice", "toUser": "bob", "credits": 50})
		require.Equal(t, http.StatusOK, code, body)
		assert.Equal(t, "1%", body["fee"])
		assert.Equal(t, float64(51), body["charged"].(map[string]any)["credits"])
		assert.Equal(t, float64(49), stats(t, body)["credits"])

		code, body = s.post(t, alice, "/accounts", "transfer", map[string]any{"fromUser": "alice", "toUser": "bob", "credits": 49})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "Insufficient funds (including 1% fee)", body["error"])
	})

	t.Run("buy credits needs cash", func(t *testing.T) {
		code, body := s.post(t, alice, "/accounts", "buyCredits", map[string]any{"username": "alice", "amount": 1000})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "Insufficient cash balance", body["error"])
	})

	code, body = s.post(t, bob, "/accounts", "register", map[string]any{"username": "root", "password": "admin"})
	require.Equal(t, http.StatusOK, code, body)
	require.NoError(t, s.accounts.SetAdmin(ctx, "ROOT", true))

	t.Run("admin gate", func(t *testing.T) {
		code, body := s.post(t, alice, "/accounts", "getAllAccounts", map[string]any{"adminUser": "alice"})
		assert.Equal(t, http.StatusForbidden, code)
		assert.Equal(t, "Admin access required", body["error"])

		code, body = s.post(t, bob, "/accounts", "getAllAccounts", map[string]any{"adminUser": "root"})
		require.Equal(t, http.StatusOK, code)
		assert.Len(t, body["accounts"], 3)

		code, body = s.post(t, bob, "/accounts", "giveToAllAccounts", map[string]any{"adminUser": "root", "cash": 0.05})
		require.Equal(t, http.StatusOK, code, body)
		assert.Equal(t, float64(3), body["totalAccounts"])

		code, body = s.post(t, bob, "/accounts", "deleteAccount", map[string]any{"adminUser": "root", "username": "root"})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "Cannot delete your own account", body["error"])
	})

	t.Run("buy credits with granted cash", func(t *testing.T) {
		code, body := s.post(t, alice, "/accounts", "buyCredits", map[string]any{"username": "alice", "amount": 1000})
		require.Equal(t, http.StatusOK, code, body)
		assert.Equal(t, float64(1049), body["credits"])
		assert.Equal(t, 0.04, body["cashBalance"])
	})

	t.Run("promo codes from settings", func(t *testing.T) {
		code, body := s.post(t, bob, "/global", "createPromoCode", map[string]any{"code": "E2E", "credits": 7, "maxUses": 1})
		require.Equal(t, http.StatusOK, code, body)
		assert.Equal(t, true, body["success"])

		code, body = s.post(t, alice, "/accounts", "redeemPromoCode", map[string]any{"username": "alice", "code": "e2e"})
		require.Equal(t, http.StatusOK, code, body)
		assert.Equal(t, "E2E", body["code"])
		assert.Equal(t, float64(1056), stats(t, body)["credits"])

		code, _ = s.post(t, alice, "/accounts", "redeemPromoCode", map[string]any{"username": "alice", "code": "E2E"})
		assert.Equal(t, http.StatusConflict, code)
		code, body = s.post(t, bob, "/accounts", "redeemPromoCode", map[string]any{"username": "bob", "code": "E2E"})
		assert.Equal(t, http.StatusConflict, code)
		assert.Equal(t, "Promo code usage limit reached", body["error"])
	})

	t.Run("withdrawal log", func(t *testing.T) {
		code, _ := s.post(t, alice, "/global", "submitWithdrawal", map[string]any{"user": "ALICE", "amount": 2, "method": "PayPal", "account": "a@example.com"})
		require.Equal(t, http.StatusOK, code)

		code, body := s.get(t, bob, "/api/global/withdrawals?adminUser=root&status=pending")
		require.Equal(t, http.StatusOK, code, body)
		assert.Len(t, body["withdrawals"], 1)

		code, _ = s.get(t, bob, "/api/global/withdrawals?adminUser=alice")
		assert.Equal(t, http.StatusForbidden, code)
	})

	t.Run("audit trail", func(t *testing.T) {
		code, body := s.get(t, bob, "/api/audit?adminUser=root&username=alice")
		require.Equal(t, http.StatusOK, code, body)
		logs := body["logs"].([]any)
		require.NotEmpty(t, logs)

		var actions []string
		for _, l := range logs {
			actions = append(actions, l.(map[string]any)["action"].(string))
		}
		assert.Contains(t, actions, "register")
		assert.Contains(t, actions, "transfer_out")
		assert.Contains(t, actions, "promo_redeem")
	})

	t.Run("bad bearer token", func(t *testing.T) {
		code, _ := s.get(t, call{token: "garbage"}, "/api/global")
		assert.Equal(t, http.StatusUnauthorized, code)

		code, _ = s.get(t, alice, "/api/global")
		assert.Equal(t, http.StatusOK, code)
	})
}

func TestBroadcastReachesSubscribers(t *testing.T) {
	s := startServer(t)

	wsURL := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() ws.Message {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var msg ws.Message
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}
	require.Equal(t, ws.MsgReady, read().Type)

	code, body := s.post(t, call{}, "/global", "sendBroadcast", map[string]any{"message": "maintenance at noon", "type": "warning"})
	require.Equal(t, http.StatusOK, code, body)

	msg := read()
	require.Equal(t, ws.MsgBroadcast, msg.Type)
	require.NotNil(t, msg.Broadcast)
	assert.Equal(t, "maintenance at noon", msg.Broadcast.Message)
	assert.Equal(t, "warning", msg.Broadcast.Type)

	code, body = s.get(t, call{}, "/global")
	require.Equal(t, http.StatusOK, code)
	broadcasts := body["adminBroadcasts"].([]any)
	require.Len(t, broadcasts, 1)
	assert.Equal(t, "maintenance at noon", broadcasts[0].(map[string]any)["message"])
}
