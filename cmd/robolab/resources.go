package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/robolab-console/internal/api"
	"github.com/nhle/robolab-console/internal/blockly"
	"github.com/nhle/robolab-console/internal/model"
	"github.com/nhle/robolab-console/internal/store"
)

// commandTimeout bounds the one-shot blocks and list commands.
const commandTimeout = 2 * time.Minute

func (cli *commandLine) blocks(profile, modelID, blockType string) error {
	client, _, err := cli.client(profile)
	if err != nil {
		return err
	}

	s, err := store.NewSQLiteStore(cli.cfg.StorePath)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var ws blockly.Workspace
	loader := blockly.NewLoader(client, s, cli.logger.With("component", "blockly"))
	if err := loader.LoadInto(ctx, &ws, modelID); err != nil {
		return err
	}

	if blockType == "" {
		return cli.printJSON(ws.Blocks())
	}
	b, ok := ws.Lookup(blockType)
	if !ok && !strings.Contains(blockType, ".") {
		b, ok = ws.Lookup(modelID + blockly.ModelPrefix + blockType)
	}
	if !ok {
		return fmt.Errorf("no block %q for model %s", blockType, modelID)
	}
	return cli.printJSON(b)
}

// catalogs prints what the local store holds for modelID. It works offline.
func (cli *commandLine) catalogs(modelID string) error {
	s, err := store.NewSQLiteStore(cli.cfg.StorePath)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	infos, err := s.Catalogs(ctx, modelID)
	if err != nil {
		return err
	}
	if infos == nil {
		infos = []model.CatalogInfo{}
	}
	return cli.printJSON(infos)
}

func (cli *commandLine) list(profile string, name api.ResourceName, q api.ListQuery) error {
	client, _, err := cli.client(profile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	page, err := client.ListRaw(ctx, name, q)
	if err != nil {
		return err
	}
	return cli.printJSON(page)
}

func (cli *commandLine) printJSON(v any) error {
	enc := json.NewEncoder(cli.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// config prints the effective configuration, or writes it to the config
// file when write is set.
func (cli *commandLine) config(write bool) error {
	if !write {
		return cli.printJSON(cli.cfg)
	}
	if err := model.SaveConfig(cli.cfgPath, cli.cfg); err != nil {
		return err
	}
	fmt.Fprintf(cli.stdout, "Wrote %s.\n", cli.cfgPath)
	return nil
}
