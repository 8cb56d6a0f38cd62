// Package cli is the synology-recovery command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	synology "github.com/scaleoutsean/synology-go"
	"github.com/scaleoutsean/synology-go/config"
	"github.com/scaleoutsean/synology-go/console"
	"github.com/scaleoutsean/synology-go/initiator"
	"github.com/scaleoutsean/synology-go/recovery"
)

const logoutTimeout = 30 * time.Second

// LoginFunc opens a DSM session.
type LoginFunc func(ctx context.Context, cc synology.ClientConfig, username, password string) (recovery.Session, error)

// LocalChecker reports this host's own iSCSI state.
type LocalChecker interface {
	Sessions(hosts ...string) ([]initiator.LocalSession, error)
	Addresses() ([]string, error)
}

// Option changes how the command reaches the outside world.
type Option func(*app)

// WithFs reads the config file and CA bundle from fs.
func WithFs(fs afero.Fs) Option {
	return func(a *app) { a.fs = fs }
}

// WithEnv replaces os.Getenv.
func WithEnv(getenv func(string) string) Option {
	return func(a *app) { a.getenv = getenv }
}

// WithLogin replaces the DSM login.
func WithLogin(fn LoginFunc) Option {
	return func(a *app) { a.login = fn }
}

// WithLocalChecker replaces the iscsiadm/netlink backed checker.
func WithLocalChecker(c LocalChecker) Option {
	return func(a *app) { a.local = c }
}

type flags struct {
	configPath  string
	list        bool
	dryRun      bool
	latest      bool
	yes         bool
	luns        []string
	debug       bool
	checkLocal  bool
	metricsFile string
}

type app struct {
	stdin          io.Reader
	stdout, stderr io.Writer

	fs     afero.Fs
	getenv func(string) string
	login  LoginFunc
	local  LocalChecker

	flags flags
}

// exitError ends the command with code after the reason was already shown.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// NewRootCmd returns the root cobra command.
func NewRootCmd(stdin io.Reader, stdout, stderr io.Writer, opts ...Option) *cobra.Command {
	a := &app{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		fs:     afero.NewOsFs(),
		getenv: os.Getenv,
		login:  dialDSM,
	}
	for _, o := range opts {
		o(a)
	}

	cmd := &cobra.Command{
		Use:   "synology-recovery",
		Short: "Safely revert Synology iSCSI LUNs to snapshots",
		Long: "Lists the iSCSI targets, LUNs and snapshots of a Synology NAS and reverts\n" +
			"selected LUNs to a snapshot. Reversion is refused while any initiator is\n" +
			"connected to the NAS.",
		Args:          cobra.NoArgs,
		Version:       synology.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context())
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.StringVar(&a.flags.configPath, "config", config.DefaultPath, "Path to configuration file")
	f.BoolVar(&a.flags.list, "list", false, "List iSCSI targets, LUNs, and snapshots without reverting")
	f.BoolVar(&a.flags.dryRun, "dry-run", false, "Select snapshots and show what would be reverted without reverting")
	f.BoolVar(&a.flags.latest, "latest", false, "Select the newest snapshot of every LUN without prompting")
	f.BoolVarP(&a.flags.yes, "yes", "y", false, "Do not ask for confirmation before reverting")
	f.StringSliceVar(&a.flags.luns, "lun", nil, "Only process the LUN with this name (repeatable)")
	f.BoolVar(&a.flags.debug, "debug", false, "Enable debug logging and API tracing")
	f.BoolVar(&a.flags.checkLocal, "check-local", false, "Warn when this host holds iSCSI sessions to the NAS")
	f.StringVar(&a.flags.metricsFile, "metrics-file", "", "Write run metrics to this file in Prometheus text format")
	cmd.MarkFlagsMutuallyExclusive("list", "dry-run")

	return cmd
}

// Execute runs the command with the process stdio and returns the exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
	defer stop()
	return Run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

// Run executes the command with args and returns the exit code.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, opts ...Option) int {
	root := NewRootCmd(stdin, stdout, stderr, opts...)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintln(stderr, "Error:", err)
	return 1
}

func (a *app) mode() recovery.Mode {
	switch {
	case a.flags.list:
		return recovery.ModeList
	case a.flags.dryRun:
		return recovery.ModeDryRun
	}
	return recovery.ModeLive
}

func (a *app) run(ctx context.Context) error {
	log.SetOutput(a.stderr)
	log.SetLevel(log.InfoLevel)
	if a.flags.debug {
		log.SetLevel(log.DebugLevel)
	}

	con := console.New(a.stdin, a.stdout)

	cfg, cc, err := a.loadConfig()
	if err != nil {
		con.Warn("Configuration error: " + err.Error())
		fmt.Fprintln(a.stdout, "\nPlease create a config.toml file with your NAS credentials.")
		return &exitError{code: 1}
	}

	fmt.Fprintf(a.stdout, "Synology iSCSI Recovery Tool\nNAS: %s:%d\n", cfg.NAS.Host, cfg.NAS.Port)

	if a.flags.checkLocal {
		a.checkLocal(ctx, con, cfg.NAS.Host)
	}

	con.Step("Logging in...")
	session, err := a.login(ctx, cc, cfg.NAS.Username, cfg.NAS.Password)
	if err != nil {
		return a.fail(con, err)
	}
	fmt.Fprintln(a.stdout, "✓ Login successful")
	defer a.logout(ctx, session)

	var metrics *recovery.Metrics
	if a.flags.metricsFile != "" {
		metrics = recovery.NewMetrics()
		defer a.writeMetrics(metrics)
	}

	opts := recovery.Options{
		Mode:      a.mode(),
		LUNs:      a.flags.luns,
		AssumeYes: a.flags.yes,
	}
	if a.flags.latest {
		opts.Selector = recovery.LatestSelector
	}

	runner := &recovery.Runner{
		API:       session,
		Presenter: con,
		Options:   opts,
		Metrics:   metrics,
	}
	res, err := runner.Run(ctx)
	if err != nil {
		if res != nil && res.Report != nil {
			con.ShowNotAttempted(res.Report.NotAttempted)
		}
		return a.fail(con, err)
	}
	if code := res.Outcome.ExitCode(); code != 0 {
		return &exitError{code: code}
	}
	return nil
}

func (a *app) loadConfig() (*config.Config, synology.ClientConfig, error) {
	cfg, err := config.Load(a.fs, a.flags.configPath)
	if err != nil {
		return nil, synology.ClientConfig{}, err
	}
	cfg.ApplyEnvironment(a.getenv)
	if err := cfg.Validate(); err != nil {
		return nil, synology.ClientConfig{}, err
	}
	cc, err := cfg.ClientConfig(a.fs)
	if err != nil {
		return nil, synology.ClientConfig{}, err
	}
	if a.flags.debug {
		cc.DebugTraceFlags = map[string]bool{"api": true, "method": true}
	}
	return cfg, cc, nil
}

// fail reports err and ends the command with status 1. An interrupt is not
// reported as an error.
func (a *app) fail(con *console.Console, err error) error {
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(a.stdout)
		con.Warn("Operation cancelled by user.")
		return &exitError{code: 1}
	}
	fmt.Fprintln(a.stdout)
	fmt.Fprintln(a.stdout, "Error:", err)
	if synology.IsAuthError(err) {
		fmt.Fprintln(a.stdout, "Check the username and password in the configuration file.")
	}
	return &exitError{code: 1}
}

// logout releases the session even when ctx was cancelled.
func (a *app) logout(ctx context.Context, s recovery.Session) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutTimeout)
	defer cancel()
	if err := s.Logout(ctx); err != nil {
		log.WithError(err).Warn("Logout failed.")
	}
}

func (a *app) writeMetrics(m *recovery.Metrics) {
	if err := m.WriteTextfile(a.flags.metricsFile); err != nil {
		log.WithField("path", a.flags.metricsFile).WithError(err).Warn("Could not write metrics.")
	}
}

// checkLocal warns when this host is itself connected to the NAS. The NAS
// session list still decides whether reverting is allowed.
func (a *app) checkLocal(ctx context.Context, con *console.Console, host string) {
	checker := a.local
	if checker == nil {
		checker = initiator.New()
	}

	hosts := []string{host}
	if addrs, err := net.DefaultResolver.LookupHost(ctx, host); err == nil {
		hosts = append(hosts, addrs...)
	}

	sessions, err := checker.Sessions(hosts...)
	if err != nil {
		log.WithError(err).Warn("Could not read local iSCSI sessions.")
	}
	for _, s := range sessions {
		msg := fmt.Sprintf("This host has an iSCSI session to %s via %s", s.Target, s.Portal)
		if len(s.Devices) > 0 {
			msg += " (devices: " + strings.Join(s.Devices, ", ") + ")"
		}
		con.Warn(msg)
	}

	addrs, err := checker.Addresses()
	if err != nil {
		log.WithError(err).Debug("Could not list local addresses.")
		return
	}
	con.MarkLocal(addrs)
}

func dialDSM(ctx context.Context, cc synology.ClientConfig, username, password string) (recovery.Session, error) {
	s, err := synology.NewAPIClient(ctx, cc).Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return s, nil
}
