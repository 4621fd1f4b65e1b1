package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/nhle/robolab-console/internal/credential"
	"github.com/nhle/robolab-console/internal/store"
)

func (cli *commandLine) login(profile, token, accountID string) error {
	claims, err := credential.ParseToken(token)
	if err != nil {
		return err
	}
	if err := claims.CheckExpiry(time.Now()); err != nil {
		return err
	}

	choices := claims.Choices()
	switch {
	case accountID != "":
	case len(choices) == 0:
		return errors.New("token carries no account; pass -account")
	case len(choices) == 1:
		accountID = choices[0].ID
	default:
		if accountID, err = chooseAccountFunc(choices); err != nil {
			return err
		}
	}

	if err := cli.vault.SetToken(profile, token); err != nil {
		return err
	}
	if err := cli.vault.SetAccount(profile, accountID); err != nil {
		return err
	}

	cli.logger.Info("logged in", "profile", profile, "account_id", accountID)
	fmt.Fprintf(cli.stdout, "Logged in as account %s (profile %s).\n", accountID, profile)
	return nil
}

// chooseAccount asks which of the token's accounts to act as.
func chooseAccount(choices []credential.Account) (string, error) {
	options := make([]huh.Option[string], len(choices))
	for i, a := range choices {
		label := a.Name
		if label == "" || label == a.ID {
			label = a.ID
		} else {
			label = fmt.Sprintf("%s (%s)", a.Name, a.ID)
		}
		options[i] = huh.NewOption(label, a.ID)
	}

	var picked string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Account").
				Description("The token grants access to several accounts.").
				Options(options...).
				Value(&picked),
		),
	).Run()
	if err != nil {
		return "", fmt.Errorf("choosing account: %w", err)
	}
	return picked, nil
}

// logout forgets the profile's credentials and drops its locally indexed
// notifications.
func (cli *commandLine) logout(profile string) error {
	session, err := cli.vault.Session(profile)
	if err != nil && !errors.Is(err, credential.ErrNotLoggedIn) {
		return err
	}

	if session.AccountID != "" {
		s, err := store.NewSQLiteStore(cli.cfg.StorePath)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.Prune(context.Background(), session.AccountID); err != nil {
			return err
		}
	}

	if err := cli.vault.Forget(profile); err != nil {
		return err
	}

	cli.logger.Info("logged out", "profile", profile)
	fmt.Fprintf(cli.stdout, "Logged out of profile %s.\n", profile)
	return nil
}
