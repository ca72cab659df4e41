package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/codeassure/internal/apitest"
	"github.com/joescharf/codeassure/internal/output"
)

const testToken = "cli-token"

// testEnv sets up isolated config dir, viper, and output for testing.
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	// Override configDirFunc for tests
	origFunc := configDirFunc
	configDirFunc = func() (string, error) { return dir, nil }
	t.Cleanup(func() { configDirFunc = origFunc })

	viper.Reset()
	viper.SetEnvPrefix("CODEASSURE")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()
	setDefaults(dir)

	closeDeps()
	t.Cleanup(closeDeps)

	ui = output.New()
	dryRun = false
	configForce = false

	return dir
}

// captureUI redirects command output to a buffer.
func captureUI(t *testing.T) *bytes.Buffer {
	t.Helper()
	out := &bytes.Buffer{}
	ui = &output.UI{Out: out, ErrOut: out, In: strings.NewReader("")}
	return out
}

// withServer points the CLI at a fake backend. A non-empty token is stored
// as the session before the command runs.
func withServer(t *testing.T, token string) *apitest.Server {
	t.Helper()
	srv := apitest.NewServer(t, testToken)
	viper.Set("api_url", srv.URL)
	viper.Set("embedding.initial_delay", time.Millisecond)
	viper.Set("embedding.max_delay", 2*time.Millisecond)
	viper.Set("embedding.max_attempts", 3)

	if token != "" {
		s, err := getSession(context.Background())
		require.NoError(t, err)
		require.NoError(t, s.SetToken(context.Background(), token))
	}
	return srv
}

func dbPath(dir string) string { return filepath.Join(dir, "codeassure.db") }
