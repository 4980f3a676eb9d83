package secrets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVault(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Vault-Token") != "root" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.URL.Path != "/v1/secret/data/scheduler" && r.URL.Path != "/v1/secret/scheduler" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch_KVv2(t *testing.T) {
	srv := newVault(t, http.StatusOK, `{"data":{"data":{"OPENAI_API_KEY":"sk-test","SMTP_PORT":587,"DEBUG":true,"EMPTY":null}}}`)

	values, err := Fetch(context.Background(), VaultConfig{Addr: srv.URL, Token: "root", Mount: "secret", Path: "scheduler", KVVersion: 2})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"OPENAI_API_KEY": "sk-test",
		"SMTP_PORT":      "587",
		"DEBUG":          "true",
		"EMPTY":          "",
	}, values)
}

func TestFetch_KVv1(t *testing.T) {
	srv := newVault(t, http.StatusOK, `{"data":{"SMTP_PASSWORD":"hunter2"}}`)

	values, err := Fetch(context.Background(), VaultConfig{Addr: srv.URL, Token: "root", Mount: "secret", Path: "scheduler", KVVersion: 1})
	require.NoError(t, err)
	assert.Equal(t, "hunter2", values["SMTP_PASSWORD"])
}

func TestFetch_Errors(t *testing.T) {
	srv := newVault(t, http.StatusOK, `{"data":{}}`)

	_, err := Fetch(context.Background(), VaultConfig{Addr: srv.URL, Token: "wrong", Mount: "secret", Path: "scheduler"})
	assert.ErrorContains(t, err, "403")

	_, err = Fetch(context.Background(), VaultConfig{Addr: srv.URL, Token: "root", Mount: "secret", Path: "scheduler", KVVersion: 2})
	assert.Error(t, err)

	_, err = Fetch(context.Background(), VaultConfig{Addr: srv.URL})
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	srv := newVault(t, http.StatusOK, `{"data":{"data":{"SCHED_TEST_KEY":"from-vault","SCHED_TEST_SET":"from-vault"}}}`)
	t.Setenv("SCHED_TEST_KEY", "")
	t.Setenv("SCHED_TEST_SET", "local")

	res, err := Apply(context.Background(), VaultConfig{Enabled: true, Addr: srv.URL, Token: "root", Mount: "secret", Path: "scheduler", KVVersion: 2})
	require.NoError(t, err)
	assert.Equal(t, Result{Loaded: 1, Skipped: 1}, res)
	assert.Equal(t, "from-vault", os.Getenv("SCHED_TEST_KEY"))
	assert.Equal(t, "local", os.Getenv("SCHED_TEST_SET"))

	res, err = Apply(context.Background(), VaultConfig{})
	require.NoError(t, err)
	assert.Zero(t, res)
}
