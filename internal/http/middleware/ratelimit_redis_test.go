package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func limitedRouter(l *RateLimiter, scope string, max int, window time.Duration) *gin.Engine {
	r := gin.New()
	r.GET("/test", l.Limit(scope, max, window), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func get(r http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Forwarded-For", ip)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// Integration-style test: runs only if REDIS_ADDR env is set.
func TestRedisRateLimitIntegration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping integration test")
	}
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			db = n
		}
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("REDIS_PASSWORD"), DB: db})
	defer rdb.Close()
	require.NoError(t, rdb.Ping(context.Background()).Err())

	max := 2
	r := limitedRouter(NewRateLimiter(rdb), "test-"+uuid.NewString(), max, 2*time.Second)

	for i := 0; i < max; i++ {
		assert.Equal(t, http.StatusOK, get(r, "10.0.0.1").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, get(r, "10.0.0.1").Code)
}

func TestMemoryRateLimit(t *testing.T) {
	r := limitedRouter(NewRateLimiter(nil), "api", 3, time.Minute)

	for i := 0; i < 3; i++ {
		w := get(r, "10.0.0.1")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, strconv.Itoa(2-i), w.Header().Get("X-RateLimit-Remaining"))
	}
	assert.Equal(t, http.StatusTooManyRequests, get(r, "10.0.0.1").Code)

	// other clients have their own window
	assert.Equal(t, http.StatusOK, get(r, "10.0.0.2").Code)
}

func TestMemoryWindowResets(t *testing.T) {
	m := newMemoryWindows()
	now := time.Now()

	assert.EqualValues(t, 1, m.hit("k", time.Second, now))
	assert.EqualValues(t, 2, m.hit("k", time.Second, now.Add(500*time.Millisecond)))
	assert.EqualValues(t, 1, m.hit("k", time.Second, now.Add(2*time.Second)))
}

func TestAuthRateLimitOnlyCountsListedActions(t *testing.T) {
	l := NewRateLimiter(nil)
	r := gin.New()
	r.POST("/accounts", AuthRateLimit(l, 1, time.Minute, "login"), func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.String(http.StatusOK, string(body))
	})

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/accounts", strings.NewReader(body))
		req.Header.Set("X-Real-IP", "10.1.1.1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	login := `{"action":"login","data":{"username":"abc"}}`
	w := post(login)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, login, w.Body.String(), "body must reach the handler intact")

	assert.Equal(t, http.StatusTooManyRequests, post(login).Code)
	assert.Equal(t, http.StatusOK, post(`{"action":"saveStats"}`).Code)

	// exactly at the cap still passes whole
	fits := `{"action":"saveStats","pad":"` + strings.Repeat("x", maxAccountsBody-31) + `"}`
	require.Len(t, fits, maxAccountsBody)
	w = post(fits)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, len(fits), w.Body.Len())

	w = post(fits + " ")
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "Request body too large")
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"forwarded first entry", map[string]string{"X-Forwarded-For": " 1.2.3.4 , 5.6.7.8"}, "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": "9.9.9.9"}, "9.9.9.9"},
		{"forwarded wins", map[string]string{"X-Forwarded-For": "1.1.1.1", "X-Real-IP": "2.2.2.2"}, "1.1.1.1"},
		{"none", nil, UnknownIP},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.headers {
				c.Request.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, ClientIP(c))
		})
	}
}
