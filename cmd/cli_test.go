package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bnema/pacer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlatform struct {
	server     *httptest.Server
	password   string
	loginDelay atomic.Int64

	mu     sync.Mutex
	tokens map[string]bool

	logins atomic.Int32
	probes atomic.Int32
	likes  atomic.Int32
}

func newFakePlatform(t *testing.T, password string) *fakePlatform {
	t.Helper()

	p := &fakePlatform{password: password, tokens: map[string]bool{}}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/accounts/login", p.handleLogin)
	mux.HandleFunc("GET /api/v1/accounts/current_user", p.authenticated(func(w http.ResponseWriter, _ *http.Request) {
		p.probes.Add(1)
		_, _ = fmt.Fprint(w, `{"user_id":"17","username":"alice","follower_count":12}`)
	}))
	mux.HandleFunc("POST /api/v1/media/{id}/like", p.authenticated(func(w http.ResponseWriter, r *http.Request) {
		p.likes.Add(1)
		_, _ = fmt.Fprintf(w, `{"status":"ok","media_id":%q}`, r.PathValue("id"))
	}))
	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)

	return p
}

func (p *fakePlatform) handleLogin(w http.ResponseWriter, r *http.Request) {
	if delay := time.Duration(p.loginDelay.Load()); delay > 0 {
		time.Sleep(delay)
	}

	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Device   struct {
			DeviceID string `json:"device_id"`
		} `json:"device"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Password != p.password {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = fmt.Fprint(w, `{"message":"bad password"}`)
		return
	}

	n := p.logins.Add(1)
	token := fmt.Sprintf("tok-%d", n)
	p.mu.Lock()
	p.tokens[token] = true
	p.mu.Unlock()

	_, _ = fmt.Fprintf(w, `{"authenticated":true,"user_id":"17","username":%q,"token":%q}`, body.Username, token)
}

func (p *fakePlatform) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		p.mu.Lock()
		ok := p.tokens[token]
		p.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = fmt.Fprint(w, `{"message":"login required"}`)
			return
		}
		next(w, r)
	}
}

// configureAccount points pacer at baseURL with delays disabled.
func configureAccount(t *testing.T, baseURL string) {
	t.Helper()

	t.Setenv("PACER_ACCOUNT_USERNAME", "alice")
	t.Setenv("PACER_PLATFORM_BASE_URL", baseURL)
	t.Setenv("PACER_LOG_LEVEL", "error")
	for _, kind := range []string{"ACTION", "REQUEST", "ERROR"} {
		t.Setenv("PACER_DELAYS_"+kind+"_MIN", "0s")
		t.Setenv("PACER_DELAYS_"+kind+"_MAX", "0s")
	}
}

func TestVersionWorksWithoutConfig(t *testing.T) {
	t.Setenv("PACER_ACCOUNT_USERNAME", "")

	stdout, _, err := executeCLI(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)
}

func TestCommandsRequireUsername(t *testing.T) {
	t.Setenv("PACER_ACCOUNT_USERNAME", "")

	_, _, err := executeCLI(t, t.TempDir(), "session", "status")
	require.ErrorIs(t, err, domain.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "account.username must not be empty")
}

func TestSessionStatusWithoutStoredSession(t *testing.T) {
	configureAccount(t, "")

	stdout, _, err := executeCLI(t, t.TempDir(), "session", "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Session: alice")
	assert.Contains(t, stdout, "state: absent")
}

func TestSessionAcquireRequiresBaseURL(t *testing.T) {
	configureAccount(t, "")

	_, _, err := executeCLI(t, t.TempDir(), "session", "acquire")
	require.ErrorIs(t, err, domain.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "platform.base_url is not configured")
}

func TestSessionAcquireWithoutLoginPermission(t *testing.T) {
	platform := newFakePlatform(t, "hunter2")
	configureAccount(t, platform.server.URL)

	_, _, err := executeCLI(t, t.TempDir(), "session", "acquire")
	require.ErrorIs(t, err, domain.ErrSessionExpired)
	assert.Contains(t, err.Error(), "fresh login not allowed")
	assert.Zero(t, platform.logins.Load())
}

func TestAuthSetRequiresSecretValueFlag(t *testing.T) {
	configureAccount(t, "")

	_, _, err := executeCLI(t, t.TempDir(), "auth", "set")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag(s) \"secret-value\" not set")
}

func TestAuthSetThenAcquireReusesSessionAcrossRuns(t *testing.T) {
	platform := newFakePlatform(t, "hunter2")
	configureAccount(t, platform.server.URL)
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "auth", "set", "--secret-value", "hunter2")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "session", "acquire", "--allow-login")
	require.NoError(t, err)
	assert.Contains(t, stdout, "alice: logged in (logins: 1)")

	stdout, _, err = executeCLI(t, home, "session", "acquire", "--allow-login")
	require.NoError(t, err)
	assert.Contains(t, stdout, "alice: resumed stored session (logins: 1)")
	assert.EqualValues(t, 1, platform.logins.Load())
	assert.EqualValues(t, 1, platform.probes.Load())

	stdout, _, err = executeCLI(t, home, "session", "acquire", "--bypass-validation", "--json")
	require.NoError(t, err)
	assert.Contains(t, stdout, "\"FreshLogin\": false")
	assert.EqualValues(t, 1, platform.probes.Load())

	stdout, _, err = executeCLI(t, home, "session", "status", "--json")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(stdout)))
	assert.Contains(t, stdout, "\"State\": \"valid\"")
	assert.Contains(t, stdout, "\"LoginCount\": 1")

	_, err = os.Stat(filepath.Join(home, ".pacer", "sessions.toml"))
	require.NoError(t, err)
}

func TestSessionRefreshForcesLogin(t *testing.T) {
	platform := newFakePlatform(t, "hunter2")
	configureAccount(t, platform.server.URL)
	t.Setenv("PACER_ALICE_PASSWORD", "hunter2")
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "session", "acquire", "--allow-login")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "session", "refresh")
	require.NoError(t, err)
	assert.Contains(t, stdout, "alice: logged in (logins: 2)")
	assert.EqualValues(t, 2, platform.logins.Load())
}

func TestSessionAcquireWrongPassword(t *testing.T) {
	platform := newFakePlatform(t, "hunter2")
	configureAccount(t, platform.server.URL)
	t.Setenv("PACER_ALICE_PASSWORD", "wrong")

	_, _, err := executeCLI(t, t.TempDir(), "session", "acquire", "--allow-login")
	require.ErrorIs(t, err, domain.ErrAuthenticationFailure)
	assert.Contains(t, err.Error(), "bad password")
}

func TestSessionAcquireShowsSpinnerMessage(t *testing.T) {
	platform := newFakePlatform(t, "hunter2")
	platform.loginDelay.Store(int64(200 * time.Millisecond))
	configureAccount(t, platform.server.URL)
	t.Setenv("PACER_ALICE_PASSWORD", "hunter2")

	_, stderr, err := executeCLI(t, t.TempDir(), "session", "acquire", "--allow-login")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Logging in as alice...")
}

func TestActionRunHonorsQuotaAcrossRuns(t *testing.T) {
	platform := newFakePlatform(t, "hunter2")
	configureAccount(t, platform.server.URL)
	t.Setenv("PACER_ALICE_PASSWORD", "hunter2")
	t.Setenv("PACER_RATE_LIMITS_ACTIONS_LIKE_MAX", "1")
	home := t.TempDir()

	args := []string{"action", "run", "--type", "like", "--method", "POST", "--path", "/api/v1/media/42/like", "--allow-login"}

	stdout, _, err := executeCLI(t, home, args...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "\"status\": \"ok\"")
	assert.Contains(t, stdout, "\"media_id\": \"42\"")

	_, _, err = executeCLI(t, home, args...)
	require.ErrorIs(t, err, errQuotaExhausted)
	assert.Contains(t, err.Error(), "like (1 per 1h)")
	assert.EqualValues(t, 1, platform.likes.Load())
	assert.EqualValues(t, 1, platform.logins.Load())

	stdout, _, err = executeCLI(t, home, "report", "--json")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(stdout)))
	assert.Contains(t, stdout, "\"TotalActions\": 1")
	assert.Contains(t, stdout, "\"Status\": \"SAFE\"")
}

func TestActionRunRecordsFailures(t *testing.T) {
	platform := newFakePlatform(t, "hunter2")
	configureAccount(t, platform.server.URL)
	t.Setenv("PACER_ALICE_PASSWORD", "hunter2")
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "action", "run", "--type", "follow", "--method", "POST", "--path", "/api/v1/friendships/9/follow", "--allow-login")
	require.ErrorIs(t, err, domain.ErrTransient)

	stdout, _, err := executeCLI(t, home, "report")
	require.NoError(t, err)
	assert.Contains(t, stdout, "actions: 1 (0 ok, 0.0% success)")
	assert.Contains(t, stdout, "status: WARNING")
	assert.Contains(t, stdout, "Low success rate detected")
}

func TestActionRunValidatesFlags(t *testing.T) {
	configureAccount(t, "http://127.0.0.1:1")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "bad param", args: []string{"--type", "read", "--path", "/feed", "--param", "limit"}, want: `invalid --param "limit"`},
		{name: "relative path", args: []string{"--type", "read", "--path", "feed"}, want: "--path must start with /"},
		{name: "bad body", args: []string{"--type", "post", "--path", "/p", "--body", "{"}, want: "--body must be valid JSON"},
		{name: "missing type", args: []string{"--path", "/feed"}, want: "required flag(s) \"type\" not set"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := executeCLI(t, t.TempDir(), append([]string{"action", "run"}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReportWithoutHistory(t *testing.T) {
	configureAccount(t, "")

	stdout, _, err := executeCLI(t, t.TempDir(), "report")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Safety report: alice")
	assert.Contains(t, stdout, "status: SAFE")
	assert.Contains(t, stdout, "No actions recorded.")
	assert.Contains(t, stdout, "(0/30 per 1h)")
}

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"limit=20", "tag=a", "tag=b=c"})
	require.NoError(t, err)
	assert.Equal(t, "20", params.Get("limit"))
	assert.Equal(t, []string{"a", "b=c"}, params["tag"])

	params, err = parseParams(nil)
	require.NoError(t, err)
	assert.Nil(t, params)
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}
