package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	nested "github.com/antonfisher/nested-logrus-formatter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/corvid-net/ferry/internal/config"
	"github.com/corvid-net/ferry/internal/dialer"
	"github.com/corvid-net/ferry/internal/metrics"
	"github.com/corvid-net/ferry/internal/proxy"
	"github.com/corvid-net/ferry/internal/resolver"
	"github.com/corvid-net/ferry/internal/tlsutil"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		listen    = pflag.String("listen", "", "SOCKS5 listen address (e.g. 127.0.0.1:1080). Empty disables.")
		tlsListen = pflag.String("tls-listen", "", "TLS-wrapped SOCKS5 listen address (e.g. 127.0.0.1:1443). Empty disables.")
		tlsCert   = pflag.String("tls-cert", "", "Path to the PEM certificate for --tls-listen")
		tlsKey    = pflag.String("tls-key", "", "Path to the PEM private key for --tls-listen")

		upstream           = pflag.String("upstream", defaultUpstream(), "Upstream forwarding target URL: direct:// | socks5://[user:pass@]host:port | socks5+tls://[user:pass@]host:port")
		upstreamSkipVerify = pflag.Bool("upstream-skip-verify", false, "Skip certificate verification for socks5+tls upstreams")

		requireAuth = pflag.Bool("require-auth", false, "Require username/password authentication from clients")
		users       = pflag.StringArray("user", nil, "Allowed credential pair as user:pass (repeatable; adds to --config users)")
		configPath  = pflag.String("config", "", "Path to YAML config file with users and log settings")

		dnsServer     = pflag.String("dns-server", "", "DNS server (host[:port]) for resolving client-requested domains. Empty uses the system resolver.")
		dialTimeout   = pflag.Duration("dial-timeout", 0, "Timeout for outbound TCP connect. Zero disables.")
		metricsListen = pflag.String("metrics-listen", "", "HTTP listen address exposing /metrics (e.g. 127.0.0.1:9090). Empty disables.")
		tcpKeepAlive  = pflag.String("tcp-keepalive", "45:45:3", "TCP keepalive: on|off|keepidle:keepintvl:keepcnt")
		logLevel      = pflag.String("log-level", "info", "Log level: debug, info, warn, or error")
	)

	pflag.CommandLine.SortFlags = false
	pflag.Parse()

	log.SetFormatter(&nested.Formatter{NoColors: true})
	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	log.SetLevel(level)

	userList, err := buildUserList(*configPath, *users)
	if err != nil {
		return err
	}

	ka, err := parseTCPKeepAlive(*tcpKeepAlive)
	if err != nil {
		return fmt.Errorf("invalid --tcp-keepalive: %w", err)
	}

	if *listen == "" && *tlsListen == "" {
		return errors.New("no listeners enabled (set at least one of --listen, --tls-listen)")
	}
	if *requireAuth && userList.Len() == 0 {
		// Deny-all rather than a startup error, but make it visible.
		log.Warn("authentication required with no users configured; every client will be denied")
	}

	dialCfg := dialer.Config{
		DialTimeout: *dialTimeout,
		KeepAlive:   ka,
	}
	if *upstreamSkipVerify {
		dialCfg.TLSConfig = tlsutil.ClientConfig("", true)
	}

	outbound, err := dialer.New(dialCfg, *upstream)
	if err != nil {
		return fmt.Errorf("invalid --upstream: %w", err)
	}

	cfg := proxy.Config{
		AuthRequired: *requireAuth,
		Users:        userList,
		Dialer:       outbound,
		KeepAlive:    ka,
	}
	if *dnsServer != "" {
		cfg.Resolver = resolver.DNS(withDefaultPort(*dnsServer, "53"))
	}

	srv := proxy.NewSOCKS5Server(cfg)

	g, ctx := errgroup.WithContext(context.Background())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *metricsListen != "" {
		g.Go(func() error {
			if err := metrics.StartServer(ctx, *metricsListen); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics serve: %w", err)
			}
			return nil
		})
		log.Infof("metrics listening on %s", *metricsListen)
	}

	if *listen != "" {
		ln, err := proxy.ListenTCP("tcp", *listen, ka)
		if err != nil {
			return fmt.Errorf("socks5 listen: %w", err)
		}
		context.AfterFunc(ctx, func() {
			_ = ln.Close()
		})

		g.Go(func() error {
			return serveUntilClosed(srv, ln, "socks5")
		})
		log.Infof("socks5 listening on %s", *listen)
	}

	if *tlsListen != "" {
		if *tlsCert == "" || *tlsKey == "" {
			return errors.New("--tls-listen requires --tls-cert and --tls-key")
		}
		tlsCfg, err := tlsutil.LoadServerConfig(*tlsCert, *tlsKey)
		if err != nil {
			return fmt.Errorf("tls config: %w", err)
		}

		ln, err := proxy.ListenTLS("tcp", *tlsListen, ka, tlsCfg)
		if err != nil {
			return fmt.Errorf("socks5 tls listen: %w", err)
		}
		context.AfterFunc(ctx, func() {
			_ = ln.Close()
		})

		g.Go(func() error {
			return serveUntilClosed(srv, ln, "socks5 tls")
		})
		log.Infof("socks5 tls listening on %s", *tlsListen)
	}

	err = g.Wait()
	log.Info("shutting down")
	return err
}

func serveUntilClosed(srv *proxy.SOCKS5Server, ln net.Listener, name string) error {
	err := srv.Serve(ln)
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return fmt.Errorf("%s serve: %w", name, err)
}

// buildUserList merges the config file users with any --user flags, and
// applies the config file's log output settings as a side effect.
func buildUserList(configPath string, flagUsers []string) (*proxy.UserList, error) {
	var entries []proxy.User

	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		for _, u := range cfg.Users {
			entries = append(entries, proxy.User{Username: u.Username, Password: u.Password})
		}

		if cfg.Log.Filename != "" {
			log.SetOutput(&lumberjack.Logger{
				Filename:   cfg.Log.Filename,
				MaxSize:    cfg.Log.MaxSize,
				MaxBackups: cfg.Log.MaxBackups,
				MaxAge:     cfg.Log.MaxAge,
				Compress:   cfg.Log.Compress,
			})
		}
	}

	for _, s := range flagUsers {
		username, password, ok := strings.Cut(s, ":")
		if !ok || username == "" {
			return nil, fmt.Errorf("invalid --user %q: expected user:pass", s)
		}
		entries = append(entries, proxy.User{Username: username, Password: password})
	}

	return proxy.NewUserList(entries...), nil
}

func withDefaultPort(addr, port string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, port)
}

func parseTCPKeepAlive(s string) (net.KeepAliveConfig, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return net.KeepAliveConfig{}, errors.New("empty")
	}
	if s == "on" {
		return net.KeepAliveConfig{Enable: true}, nil
	}
	if s == "off" {
		return net.KeepAliveConfig{Enable: false}, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return net.KeepAliveConfig{}, errors.New("expected on|off|keepidle:keepintvl:keepcnt")
	}
	keepIdle, err := parsePositiveSeconds(parts[0])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepidle: %w", err)
	}
	keepIntvl, err := parsePositiveSeconds(parts[1])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepintvl: %w", err)
	}
	keepCnt, err := parsePositiveInt(parts[2])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepcnt: %w", err)
	}

	return net.KeepAliveConfig{
		Enable:   true,
		Idle:     keepIdle,
		Interval: keepIntvl,
		Count:    keepCnt,
	}, nil
}

func parsePositiveSeconds(s string) (time.Duration, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.New("must be > 0")
	}
	return time.Duration(n) * time.Second, nil
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.New("must be > 0")
	}
	return n, nil
}

func defaultUpstream() string {
	if p := os.Getenv("ALL_PROXY"); p != "" {
		return p
	}

	if p := os.Getenv("all_proxy"); p != "" {
		return p
	}

	return "direct://"
}
