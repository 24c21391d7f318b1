package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/browser"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jask/oslcbugs/internal/config"
	"github.com/jask/oslcbugs/internal/creation"
	"github.com/jask/oslcbugs/internal/inbox"
	"github.com/jask/oslcbugs/internal/logging"
	"github.com/jask/oslcbugs/internal/oslc"
	"github.com/jask/oslcbugs/internal/preview"
	"github.com/jask/oslcbugs/internal/tui"
	"github.com/jask/oslcbugs/internal/ui"
)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	var cfgPath string

	root := &cobra.Command{
		Use:          "oslcbugs",
		Short:        "Browse, create and preview bugs in an OSLC change management container",
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgPath != "" {
				return os.Setenv("OSLCBUGS_CONFIG", cfgPath)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default $HOME/.config/oslcbugs/config.toml)")

	root.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Create the sample bugs without the UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), cmd.OutOrStdout())
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the bug container listing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), cmd.OutOrStdout())
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newClient(cfg config.Config, log zerolog.Logger) (*oslc.Client, error) {
	return oslc.NewClient(cfg.Server.BaseURL, cfg.Server.Container,
		oslc.WithTimeout(cfg.Server.Timeout),
		oslc.WithLogger(log),
	)
}

func runTUI(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// the terminal belongs to the UI, so logs go to a file
	f, err := logging.OpenFile(cfg.Log.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	log := logging.New(f, cfg.Log.Level)

	client, err := newClient(cfg, log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sink := tui.NewProgramSink()
	deps := tui.Deps{
		Service:  client,
		Pipeline: creation.NewPipeline(client, sink, log.With().Str("component", "creation").Logger()),
		Batch:    creation.SampleBatch(),
		Log:      log.With().Str("component", "tui").Logger(),
	}
	if cfg.Dialog.OpenBrowser {
		deps.Launch = browser.OpenURL
	}
	app := tui.New(ctx, cfg, deps)

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(ctx))
	sink.Attach(p.Send)

	srv := inbox.NewServer(cfg.Dialog.ListenAddr, client.Origin(), func(m preview.FrameMessage) { p.Send(m) },
		log.With().Str("component", "inbox").Logger())
	go func() {
		if err := srv.Run(ctx); err != nil {
			log.Error().Err(err).Str("addr", cfg.Dialog.ListenAddr).Msg("frame message listener stopped")
		}
	}()

	log.Info().Str("container", client.ContainerURL()).Msg("starting")
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

// consoleSink prints notices and re-prints the listing on refresh.
type consoleSink struct {
	ctx    context.Context
	out    io.Writer
	client *oslc.Client
	log    zerolog.Logger
}

var _ ui.Sink = (*consoleSink)(nil)

func (s *consoleSink) ShowMessage(text string, links ...ui.Link) {
	fmt.Fprintln(s.out, text)
	for _, l := range links {
		fmt.Fprintf(s.out, "  %s <%s>\n", l.Label, l.Href)
	}
}

func (s *consoleSink) ShowListing(text string) { fmt.Fprintln(s.out, text) }

func (s *consoleSink) RefreshListing() {
	text, err := s.client.FetchListing(s.ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("load listing")
		return
	}
	s.ShowListing(text)
}

func runSeed(ctx context.Context, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := logging.NewConsole(cfg.Log.Level)
	client, err := newClient(cfg, log)
	if err != nil {
		return err
	}
	sink := &consoleSink{ctx: ctx, out: out, client: client, log: log}
	_, err = creation.NewPipeline(client, sink, log).Run(ctx, creation.SampleBatch())
	return err
}

func runList(ctx context.Context, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := logging.NewConsole(cfg.Log.Level)
	client, err := newClient(cfg, log)
	if err != nil {
		return err
	}
	text, err := client.FetchListing(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, text)
	return nil
}
