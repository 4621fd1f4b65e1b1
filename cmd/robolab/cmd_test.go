package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/term"

	"github.com/nhle/robolab-console/internal/app"
	"github.com/nhle/robolab-console/internal/credential"
	"github.com/nhle/robolab-console/internal/model"
)

func setup(t *testing.T, baseURL string) (*commandLine, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	return &commandLine{
		cfg: &model.AppConfig{
			Profile:       "default",
			API:           model.APIConfig{BaseURL: baseURL, Timeout: 5 * time.Second},
			Push:          model.PushConfig{BaseDelay: time.Second, MaxDelay: time.Minute},
			Poll:          model.PollConfig{IntervalSec: 60},
			Notifications: model.NotificationsConfig{PageSize: 10},
			StorePath:     filepath.Join(t.TempDir(), "robolab.db"),
			Log:           model.LogConfig{Level: "info"},
		},
		cfgPath: filepath.Join(t.TempDir(), "config.yaml"),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		vault:   credential.NewVault(keyring.NewArrayKeyring(nil)),
		stdout:  out,
	}, out
}

func signToken(t *testing.T, claims credential.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func mockPassword(t *testing.T, value string) {
	t.Helper()
	readPasswordFunc = func(int) ([]byte, error) { return []byte(value), nil }
	t.Cleanup(func() { readPasswordFunc = term.ReadPassword })
}

func login(t *testing.T, cli *commandLine, accountID string) string {
	t.Helper()
	token := signToken(t, credential.Claims{AccountID: accountID})
	mockPassword(t, token)
	require.NoError(t, cli.run([]string{"robolab", "login"}))
	return token
}

func TestUsage(t *testing.T) {
	cli, out := setup(t, "http://unused")

	assert.ErrorIs(t, cli.run([]string{"robolab"}), errHelp)
	assert.ErrorIs(t, cli.run([]string{"robolab", "lol"}), errHelp)
	assert.Contains(t, out.String(), "Usage:")
	assert.ErrorIs(t, cli.run([]string{"robolab", "blocks"}), errHelp)
	assert.ErrorIs(t, cli.run([]string{"robolab", "list"}), errHelp)
	assert.ErrorIs(t, cli.run([]string{"robolab", "catalogs"}), errHelp)
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name    string
		claims  credential.Claims
		args    []string
		chosen  string
		want    string
		wantErr error
	}{
		{
			name:   "single account from claim",
			claims: credential.Claims{AccountID: "acct-1"},
			want:   "acct-1",
		},
		{
			name: "several accounts prompt",
			claims: credential.Claims{Accounts: []credential.Account{
				{ID: "acct-1", Name: "School"}, {ID: "acct-2", Name: "Home"},
			}},
			chosen: "acct-2",
			want:   "acct-2",
		},
		{
			name:   "explicit account flag",
			claims: credential.Claims{AccountID: "acct-1"},
			args:   []string{"-account", "acct-9"},
			want:   "acct-9",
		},
		{
			name: "expired token",
			claims: credential.Claims{
				AccountID:        "acct-1",
				RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))},
			},
			wantErr: credential.ErrTokenExpired,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli, _ := setup(t, "http://unused")
			mockPassword(t, signToken(t, tt.claims))

			prompted := false
			chooseAccountFunc = func([]credential.Account) (string, error) {
				prompted = true
				return tt.chosen, nil
			}
			t.Cleanup(func() { chooseAccountFunc = chooseAccount })

			err := cli.run(append([]string{"robolab", "login"}, tt.args...))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.chosen != "", prompted)

			session, err := cli.vault.Session("default")
			require.NoError(t, err)
			assert.Equal(t, tt.want, session.AccountID)
		})
	}
}

func TestLoginEmptyToken(t *testing.T) {
	cli, _ := setup(t, "http://unused")
	mockPassword(t, "")
	assert.ErrorIs(t, cli.run([]string{"robolab", "login"}), errHelp)
}

func TestLogout(t *testing.T) {
	cli, out := setup(t, "http://unused")
	login(t, cli, "acct-1")

	require.NoError(t, cli.run([]string{"robolab", "logout"}))
	assert.Contains(t, out.String(), "Logged out of profile default.")

	_, err := cli.vault.Token("default")
	assert.ErrorIs(t, err, credential.ErrNotLoggedIn)
}

func TestList(t *testing.T) {
	var gotPath, gotAuth string
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"c1","name":"Robotics 101"}],"total_count":7,"total_pages":2,"has_next":false,"has_previous":true}`))
	}))
	defer srv.Close()

	cli, out := setup(t, srv.URL)
	token := login(t, cli, "acct-1")
	out.Reset()

	require.NoError(t, cli.run([]string{"robolab", "list", "-resource", "courses", "-page", "2", "-size", "5", "-search", "robot"}))

	assert.Equal(t, "/courses", gotPath)
	assert.Equal(t, []string{"2"}, gotQuery["page"])
	assert.Equal(t, []string{"5"}, gotQuery["size"])
	assert.Equal(t, []string{"robot"}, gotQuery["search"])
	assert.Equal(t, "Bearer "+token, gotAuth)

	var page map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &page))
	assert.EqualValues(t, 7, page["total_count"])
}

func TestListErrors(t *testing.T) {
	cli, _ := setup(t, "http://unused")

	err := cli.run([]string{"robolab", "list", "-resource", "courses"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")

	login(t, cli, "acct-1")
	err = cli.run([]string{"robolab", "list", "-resource", "spaceships"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown resource")
}

func TestBlocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/actions" && r.URL.Query().Get("robotModelId") == "M1" {
			_, _ = w.Write([]byte(`{"data":[{"id":"a1","name":"Wave","code":"wave","robotModelId":"M1"}],"total_count":1,"total_pages":1}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":[],"total_count":0,"total_pages":0}`))
	}))
	defer srv.Close()

	cli, out := setup(t, srv.URL)
	login(t, cli, "acct-1")
	out.Reset()

	require.NoError(t, cli.run([]string{"robolab", "blocks", "-model", "M1"}))

	var blocks []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &blocks))
	types := make([]string, len(blocks))
	for i, b := range blocks {
		types[i] = b["type"].(string)
	}
	assert.Contains(t, types, "M1.action")
	assert.Contains(t, types, "robot_start")
	assert.Contains(t, out.String(), `"Wave"`)
	assert.Contains(t, out.String(), `"???"`)

	out.Reset()
	require.NoError(t, cli.run([]string{"robolab", "blocks", "-model", "M1", "-type", "action"}))
	var one map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &one))
	assert.Equal(t, "M1.action", one["type"])

	err := cli.run([]string{"robolab", "blocks", "-model", "M1", "-type", "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no block")

	// The fetch above left the catalogs in the local store.
	out.Reset()
	require.NoError(t, cli.run([]string{"robolab", "catalogs", "-model", "M1"}))
	var infos []model.CatalogInfo
	require.NoError(t, json.Unmarshal(out.Bytes(), &infos))
	require.NotEmpty(t, infos)
	counts := map[string]int{}
	for _, info := range infos {
		assert.Equal(t, "M1", info.ModelID)
		counts[info.Kind] = info.Count
	}
	assert.Equal(t, 1, counts["actions"])

	out.Reset()
	require.NoError(t, cli.run([]string{"robolab", "catalogs", "-model", "M9"}))
	assert.JSONEq(t, `[]`, out.String())
}

func TestConfig(t *testing.T) {
	cli, out := setup(t, "http://api.test")

	require.NoError(t, cli.run([]string{"robolab", "config"}))
	assert.Contains(t, out.String(), "http://api.test")

	require.NoError(t, cli.run([]string{"robolab", "config", "-write"}))
	loaded, err := model.LoadConfig(cli.cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "http://api.test", loaded.API.BaseURL)
	assert.Equal(t, 10, loaded.Notifications.PageSize)
}

func TestBellWiring(t *testing.T) {
	cli, _ := setup(t, "http://unused")
	login(t, cli, "acct-1")

	var ran bool
	runBellFunc = func(m app.Model) error {
		ran = true
		return nil
	}
	t.Cleanup(func() { runBellFunc = runBell })

	require.NoError(t, cli.run([]string{"robolab", "bell"}))
	assert.True(t, ran)
}
