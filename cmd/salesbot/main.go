package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/coopco/salesbot/internal/bot"
	"github.com/coopco/salesbot/internal/bus"
	"github.com/coopco/salesbot/internal/channels"
	"github.com/coopco/salesbot/internal/config"
	"github.com/coopco/salesbot/internal/report"
	"github.com/coopco/salesbot/internal/salesapi"
	"github.com/coopco/salesbot/internal/scheduler"
	"github.com/coopco/salesbot/internal/session"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "salesbot",
		Short:         "Chat bot relaying sales reports from the sales-reporting API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "path to config file (default ~/.salesbot/config.json)")
	return root
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func run(ctx context.Context, cfg *config.Config) error {
	if cfg.API.BaseURL == "" {
		return fmt.Errorf("api.baseUrl is required")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	msgBus := bus.NewMessageBus(100)
	// Runs last on shutdown, after every producer has stopped.
	defer msgBus.Close()
	api := salesapi.NewClient(cfg.API.BaseURL, time.Duration(cfg.API.TimeoutSeconds)*time.Second)
	sessions := session.NewManager(api, msgBus, time.Duration(cfg.Session.TokenTTLHours)*time.Hour)
	defer sessions.Close()

	fetcher := report.NewFetcher(api, sessions, msgBus)
	sched := scheduler.New(func(channel, chatID string, reportType report.Type) {
		fetcher.Send(context.Background(), channel, chatID, reportType.Filter())
	})
	sched.Start()
	defer sched.Stop()

	router := bot.NewRouter(bot.Config{
		Bus:       msgBus,
		Sessions:  sessions,
		Fetcher:   fetcher,
		Scheduler: sched,
	})

	mgr := channels.NewManager(msgBus)
	if err := addChannels(mgr, cfg); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		msgBus.DispatchOutbound(ctx)
		return nil
	})
	g.Go(func() error {
		return router.Run(ctx)
	})

	if err := mgr.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start channels: %w", err)
	}
	defer mgr.StopAll()
	slog.Info("salesbot running", "channels", channels.RegisteredNames())

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// addChannels registers every channel that has a token configured.
func addChannels(mgr *channels.Manager, cfg *config.Config) error {
	add := func(name string, chCfg any) error {
		raw, err := json.Marshal(chCfg)
		if err != nil {
			return fmt.Errorf("failed to encode %s config: %w", name, err)
		}
		return mgr.AddChannel(name, raw)
	}

	count := 0
	if cfg.Channels.Telegram.Token != "" {
		if err := add("telegram", cfg.Channels.Telegram); err != nil {
			return err
		}
		count++
	}
	if cfg.Channels.Slack.BotToken != "" {
		if err := add("slack", cfg.Channels.Slack); err != nil {
			return err
		}
		count++
	}
	if cfg.Channels.Discord.Token != "" {
		if err := add("discord", cfg.Channels.Discord); err != nil {
			return err
		}
		count++
	}
	if count == 0 {
		return fmt.Errorf("no channels configured: set at least one channel token")
	}
	return nil
}
