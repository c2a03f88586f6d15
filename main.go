package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"essayreview/internal/api"
	"essayreview/internal/artifact"
	"essayreview/internal/config"
	"essayreview/internal/logger"
	"essayreview/internal/model"
	"essayreview/internal/permission"
	"essayreview/internal/session"
	"essayreview/internal/tui"
	"essayreview/internal/web"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"github.com/tcnksm/go-latest"
)

func checkUpdate(cfg *config.Config, currentVer string) {
	if cfg.UpdateOwner == "" || cfg.UpdateRepository == "" {
		fmt.Println("Update check is not configured (set update_owner and update_repository).")
		return
	}

	githubTag := &latest.GithubTag{
		Owner:      cfg.UpdateOwner,
		Repository: cfg.UpdateRepository,
	}

	res, err := latest.Check(githubTag, currentVer)
	if err != nil {
		logger.Get().Warn("update check failed", "error", err)
		return // Silently fail
	}

	if res.Outdated {
		fmt.Printf("\n✨ A new version is available: %s (you have %s)\n", res.Current, currentVer)
		fmt.Printf("👉 Download it from https://github.com/%s/%s/releases\n", cfg.UpdateOwner, cfg.UpdateRepository)
	} else {
		fmt.Printf("✅ You are using the latest version: %s\n", currentVer)
	}
}

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: essayreview [options]\n\n")
		fmt.Fprintf(os.Stderr, "essayreview submits an essay to a review backend under a declared\n")
		fmt.Fprintf(os.Stderr, "AI usage level and shows the revised text, transcript and files.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  essayreview                 # Start TUI mode\n")
		fmt.Fprintf(os.Stderr, "  essayreview --web           # Serve the browser UI\n")
		fmt.Fprintf(os.Stderr, "  essayreview --json          # Print levels and allowed tools as JSON\n")
		fmt.Fprintf(os.Stderr, "  essayreview --offline       # Apply the permission policy locally\n")
	}

	defaultConfig, _ := config.DefaultPath()

	configFlag := pflag.StringP("config", "c", defaultConfig, "Path to the YAML config file")
	backendFlag := pflag.StringP("backend", "b", "", "Review backend base URL (overrides config)")
	addrFlag := pflag.StringP("addr", "a", "", "Listen address for --web (overrides config)")
	offlineFlag := pflag.Bool("offline", false, "Resolve allowed tools locally instead of asking the backend")
	debugFlag := pflag.BoolP("debug", "d", false, "Enable debug logging")
	jsonFlag := pflag.BoolP("json", "j", false, "Output the level catalog and allowed tools as JSON")
	webFlag := pflag.BoolP("web", "w", false, "Start Web Mode")
	versionFlag := pflag.BoolP("version", "V", false, "Print version information")
	updateFlag := pflag.BoolP("update", "u", false, "Check for latest version")
	helpFlag := pflag.BoolP("help", "h", false, "Show this help message")
	pflag.Parse()

	if *helpFlag {
		pflag.Usage()
		return
	}

	if *versionFlag {
		fmt.Printf("essayreview version %s\n", model.Version)
		return
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *backendFlag != "" {
		cfg.BackendURL = *backendFlag
	}
	if *addrFlag != "" {
		cfg.WebAddr = *addrFlag
	}
	if *offlineFlag {
		cfg.PermissionPolicy = config.PolicyLocal
	}
	if *debugFlag {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := initLogging(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	defer logger.Close()

	if *updateFlag {
		checkUpdate(cfg, model.Version)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(cfg)
	logger.Get().Info("starting", "version", model.Version, "backend", cfg.BackendURL, "policy", cfg.PermissionPolicy, "session", a.ctrl.ID())

	switch {
	case *jsonFlag:
		err = runJsonMode(ctx, a)
	case *webFlag:
		err = runWebMode(ctx, cfg, a)
	default:
		err = runTuiMode(ctx, a)
	}
	if err != nil {
		logger.Get().Error("exiting with error", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logger.Close()
		os.Exit(1)
	}
}

func initLogging(cfg *config.Config) error {
	logger.SetDebug(cfg.Debug)
	path := cfg.LogPath
	if path == "" {
		p, err := logger.DefaultLogPath()
		if err != nil {
			return err
		}
		path = p
	}
	return logger.Init(path)
}

type app struct {
	client    *api.Client
	resolver  permission.Resolver
	downloads *artifact.Store
	ctrl      *session.Controller
}

func newApp(cfg *config.Config) *app {
	client := api.NewClient(cfg.BackendURL,
		api.WithRequestTimeout(time.Duration(cfg.RequestTimeout)),
		api.WithAnalysisTimeout(time.Duration(cfg.AnalysisTimeout)),
		api.WithLogger(logger.WithComponent("api")),
	)

	a := &app{
		client:    client,
		downloads: artifact.NewStore(time.Duration(cfg.ArtifactTTL)),
	}

	switch cfg.PermissionPolicy {
	case config.PolicyLocal:
		a.resolver = permission.NewMockResolver(func() []string { return a.ctrl.Catalog() }, 0)
	default:
		a.resolver = permission.NewRemoteResolver(client)
	}

	a.ctrl = session.New(client, a.resolver, session.WithDownloads(a.downloads))
	return a
}

type levelReport struct {
	model.LevelInfo
	AllowedTools []string `json:"allowedTools"`
}

type catalogReport struct {
	Version string        `json:"version"`
	Backend string        `json:"backend"`
	Tools   []string      `json:"tools"`
	Levels  []levelReport `json:"levels"`
}

func runJsonMode(ctx context.Context, a *app) error {
	// Start loads the catalog the local resolver reads.
	if err := a.ctrl.Start(ctx); err != nil {
		return err
	}

	report := catalogReport{
		Version: model.Version,
		Backend: a.client.BaseURL(),
		Tools:   a.ctrl.Catalog(),
	}
	for _, info := range model.Levels() {
		allowed, err := a.resolver.Resolve(ctx, info.Level)
		if err != nil {
			return err
		}
		report.Levels = append(report.Levels, levelReport{LevelInfo: info, AllowedTools: allowed})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func runWebMode(ctx context.Context, cfg *config.Config, a *app) error {
	if err := a.ctrl.Start(ctx); err != nil {
		// The page still loads; the tool list stays empty until the backend is back.
		fmt.Fprintf(os.Stderr, "Warning: could not load tools from %s: %v\n", cfg.BackendURL, err)
	}

	fmt.Printf("Starting essayreview web server at http://%s\n", cfg.WebAddr)
	fmt.Printf("Go to http://%s in your browser.\n", cfg.WebAddr)

	srv := web.NewServer(a.ctrl, a.downloads)
	return srv.ListenAndServe(ctx, cfg.WebAddr)
}

func runTuiMode(ctx context.Context, a *app) error {
	m := tui.InitialModel(ctx, a.ctrl)
	defer m.Close()

	p := tea.NewProgram(&m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("alas, there's been an error: %w", err)
	}
	return nil
}
