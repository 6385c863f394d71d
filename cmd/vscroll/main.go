package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/vscroll/internal/adapter"
	"github.com/mmcdole/vscroll/internal/adapter/source"
	"github.com/mmcdole/vscroll/internal/domain"
	"github.com/mmcdole/vscroll/internal/render"
	"github.com/mmcdole/vscroll/internal/search"
	"github.com/mmcdole/vscroll/internal/tui"
	"github.com/mmcdole/vscroll/internal/tui/styles"
	"golang.org/x/term"
)

// Version is set at build time via -ldflags
var Version = "dev"

// clearSpinnerLine clears the spinner line from the terminal
const clearSpinnerLine = "\r                                    \r"

type flags struct {
	config     string
	sourceType string
	url        string
	file       string
	filter     string
	headless   bool
	jsonOut    bool
	initConfig bool
	clearCache bool
}

func main() {
	var f flags
	var showVersion bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.StringVar(&f.config, "config", "", "config file (default: search ~/.config/vscroll and .)")
	flag.StringVar(&f.sourceType, "source", "", "source type: httpjson or fixture")
	flag.StringVar(&f.url, "url", "", "httpjson endpoint (implies -source httpjson)")
	flag.StringVar(&f.file, "file", "", "fixture file (implies -source fixture)")
	flag.StringVar(&f.filter, "filter", "", "initial fuzzy filter")
	flag.BoolVar(&f.headless, "headless", false, "load the whole list without a UI and print it")
	flag.BoolVar(&f.jsonOut, "json", false, "print headless output as JSON lines")
	flag.BoolVar(&f.initConfig, "init-config", false, "interactively write a config file")
	flag.BoolVar(&f.clearCache, "clear-cache", false, "remove cached pages and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("vscroll %s\n", Version)
		return
	}

	if err := run(f); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(f flags) error {
	// Load configuration
	cfg, err := adapter.LoadConfig(f.config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(cfg, f)

	interactive := term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))
	headless := f.headless || !interactive

	// Setup logger
	logger, closer, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger, closer = adapter.NullLogger(), io.NopCloser(nil)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	logger.Info("starting vscroll", "version", Version, "source", cfg.Source.Type, "headless", headless)

	if f.clearCache {
		if err := adapter.ClearCache(cfg.Cache.Dir); err != nil {
			return err
		}
		fmt.Println("✓ Cache cleared")
		return nil
	}

	if f.initConfig || !cfg.IsConfigured() {
		if !interactive {
			return fmt.Errorf("%w: pass -url or -file", domain.ErrNoDataSource)
		}
		return runSetupFlow(cfg, f.config, logger)
	}

	src, pages, err := source.NewFromConfig(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create data source: %w", err)
	}
	defer pages.Close()

	opts := tui.Options{
		Source:                 src,
		ChunkSize:              cfg.List.ChunkSize,
		PreloadAmount:          cfg.List.PreloadAmount,
		BatchSize:              cfg.List.BatchSize,
		FrameInterval:          cfg.List.FrameInterval,
		DisableObserver:        cfg.List.DisableObserver,
		VisibilityThreshold:    cfg.List.VisibilityThreshold,
		Separators:             cfg.List.Separators,
		SeparatorsAdvanceItems: cfg.List.SeparatorsAdvanceItems,
		ShowDescriptions:       cfg.UI.ShowDescriptions,
		Tombstones:             cfg.UI.Tombstones,
		Filter:                 f.filter,
		Headless:               headless,
		Logger:                 logger,
	}

	if headless {
		return runHeadless(opts, f.jsonOut, os.Stdout, logger)
	}

	if err := styles.ApplyTheme(cfg.UI.Theme); err != nil {
		logger.Warn("falling back to default theme", "error", err)
	}

	// Run the TUI
	p := tea.NewProgram(
		tui.NewModel(opts),
		tea.WithAltScreen(),
	)

	logger.Info("starting TUI")

	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}

// applyFlags lets command line flags override the loaded config
func applyFlags(cfg *adapter.Config, f flags) {
	if f.sourceType != "" {
		cfg.Source.Type = adapter.SourceType(f.sourceType)
	}
	if f.url != "" {
		cfg.Source.Type = adapter.SourceTypeHTTPJSON
		cfg.Source.URL = f.url
	}
	if f.file != "" {
		cfg.Source.Type = adapter.SourceTypeFixture
		cfg.Source.Path = f.file
	}
}

// runHeadless drives the list to the end of its lifecycle without a renderer
// and prints every entry that passes the filter.
func runHeadless(opts tui.Options, jsonOut bool, out io.Writer, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p := tea.NewProgram(
		tui.NewModel(opts),
		tea.WithContext(ctx),
		tea.WithInput(nil),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler(),
	)

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("headless run failed: %w", err)
	}
	m := final.(tui.Model)
	if m.Err != nil {
		return fmt.Errorf("loading list: %w", m.Err)
	}

	snap := m.List.State()
	logger.Info("headless run finished", "records", len(snap.Data), "renderCycles", m.List.RenderCycles())
	return printEntries(ctx, snap.Data, search.Filter(opts.Filter), jsonOut, out)
}

func printEntries(ctx context.Context, entries []domain.Entry, filter render.Filter, jsonOut bool, out io.Writer) error {
	w := bufio.NewWriter(out)
	enc := json.NewEncoder(w)

	for i, e := range entries {
		if filter != nil {
			item := domain.ComponentItem{Type: domain.ItemTypeItem, Props: tui.EntryMapping.ItemProps(e, i)}
			keep, err := filter(ctx, item, render.FilterMeta{Index: i, Total: len(entries)})
			if err != nil {
				return err
			}
			if !keep {
				continue
			}
		}

		if jsonOut {
			if err := enc.Encode(e); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", e.Title, e.Description())
	}
	return w.Flush()
}

// runSetupFlow handles the initial setup when not configured
func runSetupFlow(cfg *adapter.Config, path string, logger *slog.Logger) error {
	fmt.Println()
	fmt.Println("Welcome to vscroll!")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("Enter a JSON endpoint URL or a fixture file path: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		input = strings.TrimSpace(input)

		if input == "" {
			fmt.Println("Source cannot be empty. Please try again.")
			continue
		}

		if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
			cfg.Source.Type = adapter.SourceTypeHTTPJSON
			cfg.Source.URL = input
		} else {
			cfg.Source.Type = adapter.SourceTypeFixture
			cfg.Source.Path = input
		}

		fmt.Println()
		if err := checkSourceWithSpinner(cfg.Source, logger); err != nil {
			fmt.Printf("\n✗ Could not read from source: %v\n", err)
			fmt.Println("Please check the location and try again.")
			fmt.Println()
			continue
		}
		break
	}

	written, err := adapter.SaveConfig(cfg, path)
	if err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Printf("✓ Configuration saved to %s\n", written)
	fmt.Println()
	fmt.Println("Run vscroll again to start browsing.")

	return nil
}

// checkSourceWithSpinner fetches a single record with a visual spinner
func checkSourceWithSpinner(cfg adapter.SourceConfig, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	src, err := source.NewSource(cfg, logger)
	if err != nil {
		return err
	}

	// Channel to receive result
	resultCh := make(chan error, 1)

	// Start the check in background
	go func() {
		_, err := src.FetchPage(ctx, map[string]any{"offset": 0, "limit": 1})
		resultCh <- err
	}()

	// Spinner animation
	frame := 0

	// Print initial spinner
	fmt.Printf("\r%s Checking source...", styles.SpinnerFrames[frame])

	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case err := <-resultCh:
			// Clear spinner line
			fmt.Print(clearSpinnerLine)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Source reachable: %s\n", src.ID())
			return nil

		case <-ticker.C:
			frame++
			fmt.Printf("\r%s Checking source...", styles.SpinnerFrames[frame%len(styles.SpinnerFrames)])

		case <-ctx.Done():
			fmt.Print(clearSpinnerLine)
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("source check timed out")
			}
			return ctx.Err()
		}
	}
}
