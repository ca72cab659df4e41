package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/codeassure/internal/client"
	"github.com/joescharf/codeassure/internal/logging"
	"github.com/joescharf/codeassure/internal/output"
	"github.com/joescharf/codeassure/internal/session"
	"github.com/joescharf/codeassure/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store
	sess      *session.Session
	apiClient *client.Client

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "codeassure",
	Short: "CodeAssure - AI pull request reviews from your terminal",
	Long: `codeassure is the terminal client for a CodeAssure review server.
It signs in with GitHub, shows a live dashboard of pull request reviews,
triggers manual reviews and starts repository embeddings.

Run without a subcommand to open the dashboard.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	err := rootCmd.Execute()
	closeDeps()
	_ = logging.Close()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return rootRun(cmd)
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/codeassure/config.yaml)")
	rootCmd.PersistentFlags().String("api-url", "", "CodeAssure server URL (overrides api_url)")
	_ = viper.BindPFlag("api_url", rootCmd.PersistentFlags().Lookup("api-url"))
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		configDir, err := configDirFunc()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CODEASSURE")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	configDir, _ := configDirFunc()
	setDefaults(configDir)

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

// setDefaults registers every config key with its default value.
func setDefaults(stateDir string) {
	viper.SetDefault("api_url", "http://localhost:8000")
	viper.SetDefault("state_dir", stateDir)
	viper.SetDefault("db_path", filepath.Join(stateDir, "codeassure.db"))
	viper.SetDefault("log_file", filepath.Join(stateDir, "codeassure.log"))
	viper.SetDefault("refresh.interval", 5*time.Second)
	viper.SetDefault("http.timeout", client.DefaultTimeout)
	viper.SetDefault("auth.callback_addr", "localhost:5173")
	viper.SetDefault("auth.wait_timeout", 5*time.Minute)
	viper.SetDefault("embedding.initial_delay", 5*time.Second)
	viper.SetDefault("embedding.max_attempts", 10)
	viper.SetDefault("embedding.max_delay", time.Minute)
	viper.SetDefault("review.refetch_delay", 3*time.Second)
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	if err := logging.Init(viper.GetString("log_file"), verbose); err != nil {
		ui.VerboseLog("logging disabled: %v", err)
	}

	// Store, session and client are opened lazily, only by commands that
	// talk to the server. This allows config/version to run without a db.
}

// rootRun handles `codeassure` with no subcommand: open the dashboard when
// signed in, otherwise show help.
func rootRun(cmd *cobra.Command) error {
	s, err := getSession(cmd.Context())
	if err != nil || !s.IsAuthenticated() {
		return cmd.Help()
	}
	return dashboardRun(cmd.Context())
}

// getStore returns the shared store, initializing it on first call.
func getStore(ctx context.Context) (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// getSession loads the persisted session on first call.
func getSession(ctx context.Context) (*session.Session, error) {
	if sess != nil {
		return sess, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := getStore(ctx)
	if err != nil {
		return nil, err
	}
	s, err := session.Load(ctx, st)
	if err != nil {
		return nil, err
	}
	sess = s
	return sess, nil
}

// getClient returns the API client, authenticated by the shared session.
func getClient(ctx context.Context) (*client.Client, error) {
	if apiClient != nil {
		return apiClient, nil
	}
	s, err := getSession(ctx)
	if err != nil {
		return nil, err
	}
	c, err := client.New(viper.GetString("api_url"), s,
		client.WithTimeout(viper.GetDuration("http.timeout")),
		client.WithLogger(logging.With("component", "client")),
	)
	if err != nil {
		return nil, fmt.Errorf("api_url: %w", err)
	}
	apiClient = c
	return apiClient, nil
}

// requireLogin fails early, without a request, when no token is stored.
func requireLogin(ctx context.Context) (*client.Client, error) {
	c, err := getClient(ctx)
	if err != nil {
		return nil, err
	}
	if !sess.IsAuthenticated() {
		return nil, errNotLoggedIn
	}
	return c, nil
}

var errNotLoggedIn = fmt.Errorf("not logged in (run 'codeassure login')")

// authHint adds a login hint to authentication failures.
func authHint(err error) error {
	if client.IsAuthError(err) {
		return fmt.Errorf("%w (run 'codeassure login')", err)
	}
	return err
}

func closeDeps() {
	apiClient = nil
	sess = nil
	if dataStore != nil {
		_ = dataStore.Close()
		dataStore = nil
	}
}
