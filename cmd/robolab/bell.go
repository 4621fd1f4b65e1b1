package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/robolab-console/internal/app"
	"github.com/nhle/robolab-console/internal/notify"
	"github.com/nhle/robolab-console/internal/store"
)

func (cli *commandLine) bell(profile string) error {
	client, session, err := cli.client(profile)
	if err != nil {
		return err
	}

	s, err := store.NewSQLiteStore(cli.cfg.StorePath)
	if err != nil {
		return err
	}
	defer s.Close()

	synchronizer := notify.New(client.Notifications(), s,
		notify.WithLogger(cli.logger.With("component", "notify")),
		notify.WithRefetchTimeout(cli.cfg.API.Timeout),
	)

	m := app.New(app.Options{
		Config:  cli.cfg,
		Session: session,
		Sync:    synchronizer,
		Logger:  cli.logger,
	})
	defer m.Shutdown()

	cli.logger.Info("bell started", "profile", profile, "account_id", session.AccountID)
	return runBellFunc(m)
}

func runBell(m app.Model) error {
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("running bell: %w", err)
	}
	return nil
}
