package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/zulandar/switchyard/internal/config"
	"github.com/zulandar/switchyard/internal/db"
	"github.com/zulandar/switchyard/internal/field"
	"github.com/zulandar/switchyard/internal/kanban"
	"github.com/zulandar/switchyard/internal/store"
	"github.com/zulandar/switchyard/internal/telegraph"
	"github.com/zulandar/switchyard/internal/telegraph/discord"
	"github.com/zulandar/switchyard/internal/telegraph/slack"
	"gorm.io/gorm"
)

// actorEnv names the environment variable consulted when --as is not given.
const actorEnv = "SWITCHYARD_USER"

// app bundles everything a command needs.
type app struct {
	cfg      *config.Config
	db       *gorm.DB
	log      *logrus.Logger
	store    *store.Gorm
	notifier kanban.Notifier
	svc      *kanban.Service
}

// connectFromConfig loads the config file and opens the configured database.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	gormDB, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s: %w", cfg.Database.Name, err)
	}
	return cfg, gormDB, nil
}

// newApp wires the service stack from a config file. Events go to the chat
// announcer and then to every extra notifier.
func newApp(cmd *cobra.Command, configPath string, extra ...kanban.Notifier) (*app, error) {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	cache, err := field.NewCache(cfg.ValidatorCacheSize)
	if err != nil {
		return nil, err
	}
	announcer, err := newAnnouncer(cfg.Notify, log)
	if err != nil {
		return nil, err
	}
	notifier := append(kanban.Notifiers{announcer}, extra...)
	st := store.NewGorm(gormDB)
	svc, err := kanban.New(kanban.Options{
		Store:    st,
		Enforcer: field.NewEnforcer(cache),
		Notifier: notifier,
		Logger:   log,
	})
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, db: gormDB, log: log, store: st, notifier: notifier, svc: svc}, nil
}

// newLogger builds a logrus logger from the log section.
func newLogger(lc config.LogConfig, out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(lc.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(level)
	if lc.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}

// newAnnouncer creates senders for every configured chat platform.
func newAnnouncer(nc config.NotifyConfig, log logrus.FieldLogger) (*telegraph.Announcer, error) {
	var senders []telegraph.Sender
	if nc.Slack.Enabled() {
		a, err := slack.New(slack.AdapterOpts{BotToken: nc.Slack.BotToken, ChannelID: nc.Slack.Channel})
		if err != nil {
			return nil, err
		}
		senders = append(senders, a)
	}
	if nc.Discord.Enabled() {
		a, err := discord.New(discord.AdapterOpts{BotToken: nc.Discord.BotToken, ChannelID: nc.Discord.Channel})
		if err != nil {
			return nil, err
		}
		senders = append(senders, a)
	}
	return telegraph.NewAnnouncer(telegraph.AnnouncerOpts{Senders: senders, Logger: log}), nil
}

// addCommonFlags registers --config and --as on cmd.
func addCommonFlags(cmd *cobra.Command, configPath, actor *string) {
	cmd.Flags().StringVarP(configPath, "config", "c", defaultConfigPath, "path to Switchyard config file")
	if actor != nil {
		cmd.Flags().StringVar(actor, "as", "", "acting user id (default $"+actorEnv+")")
	}
}

// resolveActor returns the --as value, falling back to the environment.
func resolveActor(actor string) string {
	if actor != "" {
		return actor
	}
	return os.Getenv(actorEnv)
}
