//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/purgo-board/apiserver/config"
	"github.com/purgo-board/apiserver/internal/db"
	"github.com/purgo-board/apiserver/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const serverPort = 18080

var baseURL = fmt.Sprintf("http://localhost:%d", serverPort)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d", "postgres", "redis"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	moderation := httptest.NewServer(http.HandlerFunc(moderate))

	code := func() int {
		defer moderation.Close()
		defer func() { _ = dockerCompose(context.Background(), root, "down") }()

		cfg := testConfig(moderation.URL)
		if err := waitForPostgres(ctx, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
			return 1
		}
		if err := runMigrations(root, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
			return 1
		}

		srv, err := server.New(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
			return 1
		}
		go func() { _ = srv.Start() }()
		defer func() { _ = srv.Shutdown(context.Background()) }()

		if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
			fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
			return 1
		}
		return m.Run()
	}()
	os.Exit(code)
}

// moderate flags any text containing "badword" and masks it.
func moderate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	w.Header().Set("Content-Type", "application/json")
	if strings.Contains(body.Text, "badword") {
		_, _ = w.Write([]byte(`{"final_decision":1,"result":{"rewritten_text":"***"}}`))
		return
	}
	_, _ = w.Write([]byte(`{"final_decision":"0"}`))
}

func testConfig(moderationURL string) config.Config {
	env := map[string]string{
		"SERVER_PORT":           fmt.Sprintf("%d", serverPort),
		"JWT_SECRET":            "test-secret",
		"DB_HOST":               "localhost",
		"DB_PORT":               "5432",
		"DB_USER":               "board",
		"DB_PASSWORD":           "password",
		"DB_NAME":               "board_db",
		"REDIS_URL":             "localhost:6379",
		"MQ_BACKEND":            "none",
		"STORAGE_BACKEND":       "none",
		"MODERATION_URL":        moderationURL,
		"MODERATION_JWT_SECRET": "moderation-secret",
	}
	for key, value := range env {
		_ = os.Setenv(key, value)
	}
	return config.LoadConfig()
}

func TestPostModerationLifecycle(t *testing.T) {
	suffix := time.Now().UnixNano()
	alice := signupAndLogin(t, fmt.Sprintf("alice%d", suffix))
	bob := signupAndLogin(t, fmt.Sprintf("bob%d", suffix))

	var post struct {
		ID           int    `json:"post_id"`
		Title        string `json:"title"`
		Content      string `json:"content"`
		PenaltyCount *int   `json:"penalty_count"`
	}
	status := call(t, http.MethodPost, "/api/posts/", alice, map[string]string{
		"title":   "hello",
		"content": "badword1",
	}, &post)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "hello", post.Title)
	assert.Equal(t, "***", post.Content)
	require.NotNil(t, post.PenaltyCount)
	assert.Equal(t, 1, *post.PenaltyCount)

	var penalty struct {
		PenaltyCount int `json:"penalty_count"`
	}
	require.Equal(t, http.StatusOK, call(t, http.MethodGet, "/api/user/penalty-count", alice, nil, &penalty))
	assert.Equal(t, 1, penalty.PenaltyCount)

	var logs []struct {
		PostID       int    `json:"post_id"`
		OriginalText string `json:"original_text"`
		FilteredText string `json:"filtered_text"`
	}
	require.Equal(t, http.StatusOK, call(t, http.MethodGet, "/api/user/moderation-logs", alice, nil, &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, post.ID, logs[0].PostID)
	assert.Equal(t, "badword1", logs[0].OriginalText)
	assert.Equal(t, "***", logs[0].FilteredText)

	path := fmt.Sprintf("/api/posts/%d", post.ID)
	status = call(t, http.MethodPut, path, bob, map[string]string{"title": "mine", "content": "now"}, nil)
	assert.Equal(t, http.StatusForbidden, status)

	var comment struct {
		ID      int    `json:"comment_id"`
		Content string `json:"content"`
	}
	require.Equal(t, http.StatusCreated, call(t, http.MethodPost, path+"/comments/", bob, map[string]string{"content": "nice"}, &comment))
	assert.Equal(t, "nice", comment.Content)

	require.Equal(t, http.StatusNoContent, call(t, http.MethodDelete, path, alice, nil, nil))
	assert.Equal(t, http.StatusNotFound, call(t, http.MethodGet, path, "", nil, nil))
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	token := signupAndLogin(t, fmt.Sprintf("carol%d", time.Now().UnixNano()))

	require.Equal(t, http.StatusOK, call(t, http.MethodGet, "/api/user/profile", token, nil, nil))
	require.Equal(t, http.StatusOK, call(t, http.MethodPost, "/api/auth/logout", token, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, call(t, http.MethodGet, "/api/user/profile", token, nil, nil))
}

func signupAndLogin(t *testing.T, loginID string) string {
	t.Helper()

	password := "testpass123!"
	status := call(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"login_id": loginID,
		"username": loginID,
		"email":    loginID + "@example.com",
		"password": password,
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	var pair struct {
		AccessToken string `json:"access_token"`
	}
	status = call(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"login_id": loginID,
		"password": password,
	}, &pair)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, pair.AccessToken)
	return pair.AccessToken
}

func call(t *testing.T, method, path, token string, payload any, out any) int {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, baseURL+path, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func waitForPostgres(ctx context.Context, cfg config.Config) error {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		conn, err := db.Open(ctx, cfg)
		if err == nil {
			return conn.Close()
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string, cfg config.Config) error {
	migrationsURL := "file://" + filepath.Join(root, "internal", "db", "migrations")

	migrator, err := migrate.New(migrationsURL, db.PostgresURL(cfg.Database))
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
