package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/deevus/carbon-tui/config"
	"github.com/deevus/carbon-tui/internal/api"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
log_file = "/tmp/carbon.log"
log_level = "debug"
metrics_addr = "127.0.0.1:9100"

[ui]
stale_ttl = "1m"
notification_timeout = "3s"
notification_position = "inline"
refresh_schedule = "@every 30s"

[profiles.verifier]
base_url = "https://api.carbon.example/v1"
token = "t-1"
role = "cva"
user_id = "cva-1"
page_size = 50

[profiles.owner]
base_url = "http://localhost:8080"
role = "EV_OWNER"
user_id = "owner-1"
insecure_skip_verify = true
timeout = "5s"
requests_per_second = 2.5
`)

	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(cfg.Profiles))
	}
	if cfg.LogLevel != "debug" || cfg.MetricsAddr != "127.0.0.1:9100" {
		t.Errorf("unexpected top-level keys: %+v", cfg)
	}
	if cfg.UI.StaleTTL != time.Minute {
		t.Errorf("expected stale_ttl 1m, got %s", cfg.UI.StaleTTL)
	}
	if cfg.UI.NotificationTimeout != 3*time.Second {
		t.Errorf("expected notification_timeout 3s, got %s", cfg.UI.NotificationTimeout)
	}
	if cfg.UI.NotificationPosition != "inline" {
		t.Errorf("expected inline, got %s", cfg.UI.NotificationPosition)
	}

	v := cfg.Profiles["verifier"]
	if v.Role != api.RoleCVA {
		t.Errorf("expected role cva, got %s", v.Role)
	}
	if v.PageSize != 50 {
		t.Errorf("expected page_size 50, got %d", v.PageSize)
	}
	if v.Timeout != config.DefaultTimeout {
		t.Errorf("expected default timeout, got %s", v.Timeout)
	}

	o := cfg.Profiles["owner"]
	if o.Role != api.RoleEVOwner {
		t.Errorf("expected role to be lower-cased to ev_owner, got %s", o.Role)
	}
	if !o.InsecureSkipVerify {
		t.Error("expected insecure_skip_verify=true for owner")
	}
	if o.Timeout != 5*time.Second || o.RequestsPerSecond != 2.5 {
		t.Errorf("unexpected owner limits: %s %v", o.Timeout, o.RequestsPerSecond)
	}
	if o.PageSize != config.DefaultPageSize {
		t.Errorf("expected default page size, got %d", o.PageSize)
	}
}

func TestLoad_UIDefaults(t *testing.T) {
	cfg, err := config.LoadFrom(writeConfig(t, `
[profiles.a]
base_url = "http://localhost"
role = "buyer"
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.UI.StaleTTL != config.DefaultStaleTTL {
		t.Errorf("expected default stale ttl, got %s", cfg.UI.StaleTTL)
	}
	if cfg.UI.NotificationTimeout != config.DefaultNotificationTimeout {
		t.Errorf("expected default notification timeout, got %s", cfg.UI.NotificationTimeout)
	}
	if cfg.UI.NotificationPosition != "toast" {
		t.Errorf("expected toast, got %s", cfg.UI.NotificationPosition)
	}
	if cfg.Profiles["a"].RequestsPerSecond != config.DefaultRequestsPerSecond {
		t.Errorf("expected default rps, got %v", cfg.Profiles["a"].RequestsPerSecond)
	}
}

func TestLoad_RoleFromToken(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "owner-42",
		"role": "ev_owner",
	}).SignedString([]byte("k"))
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv("CARBON_TOKEN", tok)

	cfg, err := config.LoadFrom(writeConfig(t, `
[profiles.me]
base_url = "http://localhost"
token = "$CARBON_TOKEN"
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := cfg.Profiles["me"]
	if p.Token != tok {
		t.Error("expected token to be expanded from the environment")
	}
	if p.Role != api.RoleEVOwner || p.UserID != "owner-42" {
		t.Errorf("expected claims fallback, got role=%s user=%s", p.Role, p.UserID)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"no profiles", ``, "no profiles"},
		{"missing base url", "[profiles.a]\nrole = \"admin\"\n", "base_url is required"},
		{"missing role", "[profiles.a]\nbase_url = \"http://x\"\n", "role is required"},
		{"unknown role", "[profiles.a]\nbase_url = \"http://x\"\nrole = \"root\"\n", "unknown role"},
		{"bad position", "[ui]\nnotification_position = \"left\"\n[profiles.a]\nbase_url = \"http://x\"\nrole = \"admin\"\n", "notification_position"},
		{"bad schedule", "[ui]\nrefresh_schedule = \"every now and then\"\n[profiles.a]\nbase_url = \"http://x\"\nrole = \"admin\"\n", "refresh_schedule"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadFrom(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoad_WithSSH(t *testing.T) {
	cfg, err := config.LoadFrom(writeConfig(t, `
[profiles.home]
base_url = "http://10.0.0.5:8080"
role = "admin"

[profiles.home.ssh]
host = "bastion.example.com"
port = 2222
username = "ops"
private_key_path = "/home/test/.ssh/id_ed25519"
host_key_fingerprint = "SHA256:abc123"
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ssh := cfg.Profiles["home"].SSH
	if ssh == nil {
		t.Fatal("expected SSH config")
	}
	if ssh.Host != "bastion.example.com" || ssh.Port != 2222 || ssh.Username != "ops" {
		t.Errorf("unexpected ssh config: %+v", ssh)
	}
}

func TestLoad_SSHDefaults(t *testing.T) {
	t.Setenv("USER", "carbon")
	cfg, err := config.LoadFrom(writeConfig(t, `
[profiles.home]
base_url = "https://gateway.internal:8443"
role = "admin"

[profiles.home.ssh]
private_key_path = "/home/test/.ssh/id_ed25519"
host_key_fingerprint = "SHA256:abc123"
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ssh := cfg.Profiles["home"].SSH
	if ssh.Port != 22 {
		t.Errorf("expected default ssh port 22, got %d", ssh.Port)
	}
	if ssh.Host != "gateway.internal" {
		t.Errorf("expected ssh host to default to the base_url host, got %s", ssh.Host)
	}
	if ssh.Username != "carbon" {
		t.Errorf("expected ssh username to default to $USER, got %s", ssh.Username)
	}
}

func TestLoad_ExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home dir")
	}

	cfg, err := config.LoadFrom(writeConfig(t, `
log_file = "~/carbon/tui.log"

[profiles.home]
base_url = "http://localhost"
role = "admin"

[profiles.home.ssh]
private_key_path = "~/.ssh/id_ed25519"
host_key_fingerprint = "SHA256:abc123"
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := filepath.Join(home, ".ssh", "id_ed25519")
	if cfg.Profiles["home"].SSH.PrivateKeyPath != expected {
		t.Errorf("expected expanded path %s, got %s", expected, cfg.Profiles["home"].SSH.PrivateKeyPath)
	}
	if cfg.LogFile != filepath.Join(home, "carbon", "tui.log") {
		t.Errorf("expected expanded log file, got %s", cfg.LogFile)
	}
}

func TestLoad_ExpandEnvVar(t *testing.T) {
	t.Setenv("TEST_KEY_DIR", "/custom/keys")
	t.Setenv("CARBON_API", "https://api.example.com")

	cfg, err := config.LoadFrom(writeConfig(t, `
[profiles.home]
base_url = "${CARBON_API}/v1"
role = "admin"

[profiles.home.ssh]
private_key_path = "$TEST_KEY_DIR/id_ed25519"
host_key_fingerprint = "SHA256:abc123"
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := cfg.Profiles["home"].SSH.PrivateKeyPath; got != "/custom/keys/id_ed25519" {
		t.Errorf("expected expanded path, got %s", got)
	}
	if got := cfg.Profiles["home"].BaseURL; got != "https://api.example.com/v1" {
		t.Errorf("expected expanded base url, got %s", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.LoadFrom("/nonexistent/config.toml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("CARBON_TEST_ENV_FILE=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CARBON_TEST_ENV_FILE", "")
	os.Unsetenv("CARBON_TEST_ENV_FILE")

	if err := config.LoadEnvFile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("CARBON_TEST_ENV_FILE"); got != "from-file" {
		t.Errorf("expected value from .env, got %q", got)
	}

	if err := config.LoadEnvFile(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("missing file should be ignored, got %v", err)
	}
}

func TestConfig_ResolveProfile(t *testing.T) {
	cfg, err := config.LoadFrom(writeConfig(t, `
[profiles.beta]
base_url = "http://b"
role = "buyer"

[profiles.alpha]
base_url = "http://a"
role = "admin"
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := cfg.ProfileNames()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("expected [alpha beta], got %v", names)
	}

	if _, _, err := cfg.Resolve(""); err == nil {
		t.Error("expected error when several profiles and none named")
	}
	name, p, err := cfg.Resolve("beta")
	if err != nil || name != "beta" || p.Role != api.RoleBuyer {
		t.Errorf("unexpected resolve result: %s %+v %v", name, p, err)
	}
	if _, _, err := cfg.Resolve("gamma"); err == nil {
		t.Error("expected error for unknown profile")
	}

	delete(cfg.Profiles, "beta")
	name, _, err = cfg.Resolve("")
	if err != nil || name != "alpha" {
		t.Errorf("expected the only profile to be selected, got %s %v", name, err)
	}
}

func TestDefaultPath(t *testing.T) {
	path := config.DefaultPath()
	if path == "" {
		t.Fatal("expected non-empty default path")
	}
	if !strings.HasSuffix(path, filepath.Join("carbon-tui", "config.toml")) {
		t.Errorf("unexpected default path %s", path)
	}
}
