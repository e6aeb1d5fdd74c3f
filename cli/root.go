// Package cli is the carbon-tui command line: the root command runs the
// terminal UI and the subcommands cover account tasks that need typed input.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/deevus/carbon-tui/config"
	"github.com/deevus/carbon-tui/internal"
	"github.com/deevus/carbon-tui/internal/api"
	"github.com/deevus/carbon-tui/internal/logging"
	"github.com/deevus/carbon-tui/internal/tunnel"
	"github.com/deevus/carbon-tui/views"
)

// EnvFile is loaded from the working directory before the config is read.
const EnvFile = ".env"

// connectFunc builds the services for a profile. The returned closer
// releases any tunnel.
type connectFunc func(p config.Profile, log logrus.FieldLogger) (*internal.Services, io.Closer, error)

type options struct {
	configPath string
	profile    string
	envFile    string

	connect connectFunc
	now     func() time.Time

	cfg *config.Config
}

func newOptions() *options {
	return &options{
		configPath: config.DefaultPath(),
		envFile:    EnvFile,
		connect:    connectProfile,
		now:        time.Now,
	}
}

// Execute runs the root command.
func Execute() error {
	return newRootCommand(newOptions()).Execute()
}

func newRootCommand(o *options) *cobra.Command {
	root := &cobra.Command{
		Use:          "carbon-tui",
		Short:        "Terminal client for the carbon credit marketplace",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), o)
		},
	}

	root.PersistentFlags().StringVar(&o.configPath, "config", o.configPath, "path to config file")
	root.PersistentFlags().StringVarP(&o.profile, "profile", "p", "", "profile name from config")

	root.AddCommand(
		profilesCmd(o),
		hostkeyCmd(o),
		passwdCmd(o),
		profileCmd(o),
		vehicleCmd(o),
		usersCmd(o),
	)
	return root
}

// load reads the .env file and the config once.
func (o *options) load() (*config.Config, error) {
	if o.cfg != nil {
		return o.cfg, nil
	}
	if o.envFile != "" {
		if err := config.LoadEnvFile(o.envFile); err != nil {
			return nil, err
		}
	}
	cfg, err := config.LoadFrom(o.configPath)
	if err != nil {
		return nil, err
	}
	o.cfg = cfg
	return cfg, nil
}

// resolve loads the config and picks the --profile.
func (o *options) resolve() (string, config.Profile, error) {
	cfg, err := o.load()
	if err != nil {
		return "", config.Profile{}, err
	}
	return cfg.Resolve(o.profile)
}

// services resolves the profile and connects to it, for the one-shot
// subcommands.
func (o *options) services() (config.Profile, *internal.Services, io.Closer, error) {
	_, prof, err := o.resolve()
	if err != nil {
		return config.Profile{}, nil, nil, err
	}
	svc, closer, err := o.connect(prof, nil)
	if err != nil {
		return config.Profile{}, nil, nil, err
	}
	return prof, svc, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// connectProfile builds the REST client for p, routed through the SSH tunnel
// when one is configured. No network traffic happens here.
func connectProfile(p config.Profile, log logrus.FieldLogger) (*internal.Services, io.Closer, error) {
	cfg := api.Config{
		BaseURL:            p.BaseURL,
		Token:              p.Token,
		Timeout:            p.Timeout,
		InsecureSkipVerify: p.InsecureSkipVerify,
		RequestsPerSecond:  p.RequestsPerSecond,
		Log:                log,
	}

	var closer io.Closer = nopCloser{}
	if p.SSH != nil {
		if p.SSH.HostKeyFingerprint == "" {
			return nil, nil, missingFingerprint(p.SSH)
		}
		signer, err := tunnel.LoadSigner(p.SSH.PrivateKeyPath)
		if err != nil {
			return nil, nil, err
		}
		dialer, err := tunnel.New(tunnel.Config{
			Host:               p.SSH.Host,
			Port:               p.SSH.Port,
			User:               p.SSH.Username,
			Signer:             signer,
			HostKeyFingerprint: p.SSH.HostKeyFingerprint,
		}, log)
		if err != nil {
			return nil, nil, fmt.Errorf("creating SSH tunnel: %w", err)
		}
		cfg.DialContext = dialer.DialContext
		closer = dialer
	}

	client, err := api.NewClient(cfg)
	if err != nil {
		_ = closer.Close()
		return nil, nil, fmt.Errorf("creating client: %w", err)
	}
	return internal.NewServices(client), closer, nil
}

// missingFingerprint tries to detect the host key so the error can tell the
// user exactly what to add to the config.
func missingFingerprint(s *config.SSHConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fp, err := tunnel.ScanHostKey(ctx, s.Host, s.Port)
	if err != nil {
		return fmt.Errorf("%w; could not auto-detect: %v\nGet it with: ssh-keyscan -p %d %s 2>/dev/null | ssh-keygen -lf -",
			tunnel.ErrNoFingerprint, err, s.Port, s.Host)
	}
	return fmt.Errorf("%w; detected fingerprint for %s:\n\n  host_key_fingerprint = %q\n\nadd it to the profile's ssh section",
		tunnel.ErrNoFingerprint, s.Host, fp)
}

// probe checks the session before the UI switches to the connected state.
func probe(ctx context.Context, svc *internal.Services, p config.Profile, now time.Time) error {
	if p.Token != "" {
		if s, err := api.ParseSession(p.Token); err == nil && s.Expired(now) {
			return &api.APIError{Status: 401, Message: "token expired", Kind: api.KindUnauthorized}
		}
	}
	if p.UserID == "" {
		return nil
	}
	if _, err := svc.Users.Get(ctx, p.UserID); err != nil {
		return fmt.Errorf("checking session: %w", err)
	}
	return nil
}

// userError shows the user-facing text for err while keeping it unwrappable.
type userError struct{ err error }

func (e userError) Error() string { return views.ErrorMessage(e.err) }
func (e userError) Unwrap() error { return e.err }

func friendly(err error) error {
	if err == nil {
		return nil
	}
	var ue userError
	if errors.As(err, &ue) {
		return err
	}
	return userError{err: err}
}

func newLogger(cfg *config.Config) (*logrus.Logger, io.Closer, error) {
	return logging.New(cfg.LogFile, cfg.LogLevel)
}
