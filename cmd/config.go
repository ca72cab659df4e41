package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// envKeyReplacer maps nested keys to env names: refresh.interval is
// read from CODEASSURE_REFRESH_INTERVAL.
var envKeyReplacer = strings.NewReplacer(".", "_")

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "codeassure"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage codeassure configuration.

Running bare 'codeassure config' is the same as 'codeassure config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# codeassure configuration
# See: codeassure config show (for effective values and sources)

# CodeAssure server (default: http://localhost:8000)
api_url: "{{ .APIURL }}"

# State/data directory (default: ~/.config/codeassure)
# state_dir: {{ .StateDir }}

# SQLite database holding the session token
# db_path: {{ .DBPath }}

# Structured diagnostics log
# log_file: {{ .LogFile }}

refresh:
  # Dashboard auto-refresh interval (default: 5s)
  interval: {{ .RefreshInterval }}

http:
  # Per-request timeout (default: 30s)
  timeout: {{ .HTTPTimeout }}

auth:
  # Where 'codeassure login' receives the OAuth handoff. Must match the
  # frontend origin the server redirects to (default: localhost:5173)
  callback_addr: "{{ .CallbackAddr }}"

  # How long 'codeassure login' waits for the browser (default: 5m)
  wait_timeout: {{ .WaitTimeout }}

embedding:
  # First status check after starting an embedding (default: 5s)
  initial_delay: {{ .EmbedInitialDelay }}

  # Upper bound for the doubling delay between checks (default: 1m)
  max_delay: {{ .EmbedMaxDelay }}

  # Checks before a job is marked failed (default: 10)
  max_attempts: {{ .EmbedMaxAttempts }}

review:
  # Delay before re-fetching after a manual review request (default: 3s)
  refetch_delay: {{ .RefetchDelay }}
`

type configTemplateData struct {
	APIURL            string
	StateDir          string
	DBPath            string
	LogFile           string
	RefreshInterval   time.Duration
	HTTPTimeout       time.Duration
	CallbackAddr      string
	WaitTimeout       time.Duration
	EmbedInitialDelay time.Duration
	EmbedMaxDelay     time.Duration
	EmbedMaxAttempts  int
	RefetchDelay      time.Duration
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		APIURL:            viper.GetString("api_url"),
		StateDir:          viper.GetString("state_dir"),
		DBPath:            viper.GetString("db_path"),
		LogFile:           viper.GetString("log_file"),
		RefreshInterval:   viper.GetDuration("refresh.interval"),
		HTTPTimeout:       viper.GetDuration("http.timeout"),
		CallbackAddr:      viper.GetString("auth.callback_addr"),
		WaitTimeout:       viper.GetDuration("auth.wait_timeout"),
		EmbedInitialDelay: viper.GetDuration("embedding.initial_delay"),
		EmbedMaxDelay:     viper.GetDuration("embedding.max_delay"),
		EmbedMaxAttempts:  viper.GetInt("embedding.max_attempts"),
		RefetchDelay:      viper.GetDuration("review.refetch_delay"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
}

var configKeys = []configKeyInfo{
	{Key: "api_url", EnvVar: "CODEASSURE_API_URL"},
	{Key: "state_dir", EnvVar: "CODEASSURE_STATE_DIR"},
	{Key: "db_path", EnvVar: "CODEASSURE_DB_PATH"},
	{Key: "log_file", EnvVar: "CODEASSURE_LOG_FILE"},
	{Key: "refresh.interval", EnvVar: "CODEASSURE_REFRESH_INTERVAL"},
	{Key: "http.timeout", EnvVar: "CODEASSURE_HTTP_TIMEOUT"},
	{Key: "auth.callback_addr", EnvVar: "CODEASSURE_AUTH_CALLBACK_ADDR"},
	{Key: "auth.wait_timeout", EnvVar: "CODEASSURE_AUTH_WAIT_TIMEOUT"},
	{Key: "embedding.initial_delay", EnvVar: "CODEASSURE_EMBEDDING_INITIAL_DELAY"},
	{Key: "embedding.max_delay", EnvVar: "CODEASSURE_EMBEDDING_MAX_DELAY"},
	{Key: "embedding.max_attempts", EnvVar: "CODEASSURE_EMBEDDING_MAX_ATTEMPTS"},
	{Key: "review.refetch_delay", EnvVar: "CODEASSURE_REVIEW_REFETCH_DELAY"},
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-26s %v  %s\n", k.Key, val, source)
	}

	return nil
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set; set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'codeassure config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
