package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/interviewkit/chatcore/internal/backend"
	"github.com/interviewkit/chatcore/internal/backend/httpapi"
	"github.com/interviewkit/chatcore/internal/config"
	"github.com/interviewkit/chatcore/internal/diag"
	"github.com/interviewkit/chatcore/internal/metrics"
	"github.com/interviewkit/chatcore/internal/notify"
	"github.com/interviewkit/chatcore/internal/session"
	"github.com/interviewkit/chatcore/internal/telemetry"
)

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat <interview-id>",
		Short: "Start an interactive chat session with an interview transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			listen, _ := cmd.Flags().GetString("listen")
			return runChat(cmd.Context(), cfgPath, args[0], listen)
		},
	}
	cmd.Flags().String("listen", "", "diagnostics listen address (overrides config)")
	return cmd
}

// loadEnvironment builds everything the commands share: config, logger,
// token provider, and backend client.
func loadEnvironment(cfgPath string) (*config.Config, *slog.Logger, *httpapi.Client, error) {
	resolved, err := resolveConfigPath(cfgPath)
	if err != nil {
		return nil, nil, nil, err
	}
	cfg, err := config.Load(resolved)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, nil, err
	}

	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var tokens backend.TokenProvider
	if cfg.Auth.TokenFile != "" {
		tokens = backend.FileToken{Path: cfg.Auth.TokenFile}
	} else {
		tokens = backend.StaticToken(cfg.Auth.Token)
	}

	client, err := httpapi.New(cfg.Backend, tokens, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, client, nil
}

func runChat(ctx context.Context, cfgPath, interviewID, listen string) error {
	cfg, logger, client, err := loadEnvironment(cfgPath)
	if err != nil {
		return err
	}

	shutdownTraces, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		Timeout:        cfg.Telemetry.Timeout,
		ServiceVersion: version,
	})
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTraces(context.Background()) }()

	printer := newStreamPrinter(os.Stdout)
	sink := notify.Funcs{
		OnError: func(msg string, err error) { fmt.Fprintf(os.Stderr, "\n! %s: %v\n", msg, err) },
		OnInfo:  func(msg string) { fmt.Fprintf(os.Stderr, "\n- %s\n", msg) },
	}

	mx := metrics.New()
	var manager *session.Manager
	manager = session.New(client, interviewID,
		session.WithLogger(logger),
		session.WithSink(sink),
		session.WithMetrics(mx),
		session.WithOnChange(func() { printer.update(manager.Snapshot()) }),
	)
	defer manager.Close()

	if listen == "" {
		listen = cfg.Diag.Listen
	}
	if listen != "" {
		srv := diag.New(listen, manager, mx, logger)
		if err := srv.Start(); err != nil {
			return fmt.Errorf("starting diag server: %w", err)
		}
		defer func() { _ = srv.Stop() }()
	}

	if err := manager.LoadHistory(ctx); err != nil {
		return err
	}
	snap := manager.Snapshot()
	for _, entry := range snap.Timeline() {
		printer.printMessage(entry.Message)
	}

	// Ctrl-C cancels the in-flight stream; a second one exits the REPL.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		for range sigs {
			manager.Cancel()
		}
	}()

	fmt.Println("Chatting with interview", interviewID, "- /search <query>, /history, /quit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/history":
			manager.InvalidateHistory()
			if err := manager.LoadHistory(ctx); err != nil {
				continue
			}
			for _, entry := range manager.Snapshot().Timeline() {
				printer.printMessage(entry.Message)
			}
		case strings.HasPrefix(line, "/search "):
			query := strings.TrimPrefix(line, "/search ")
			printMatches(os.Stdout, manager.Search(ctx, query, 0))
		default:
			streamExchange(ctx, manager, printer, line)
		}
	}
}

// streamExchange drives one streamed exchange, printing deltas as they land.
func streamExchange(ctx context.Context, manager *session.Manager, printer *streamPrinter, content string) {
	printer.beginReply()
	_, err := manager.Stream(ctx, content)
	printer.endReply(manager.Snapshot())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("(cancelled)")
		}
		// Backend failures were already surfaced through the sink.
		return
	}
	if snap := manager.Snapshot(); snap.RemainingTokens != nil {
		fmt.Printf("(%d tokens remaining)\n", *snap.RemainingTokens)
	}
}
