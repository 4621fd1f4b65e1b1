package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/nhle/robolab-console/internal/api"
	"github.com/nhle/robolab-console/internal/credential"
	"github.com/nhle/robolab-console/internal/model"
)

var (
	readPasswordFunc  = term.ReadPassword // mockable
	chooseAccountFunc = chooseAccount     // mockable
	runBellFunc       = runBell           // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	cfg     *model.AppConfig
	cfgPath string
	logger  *slog.Logger
	vault   *credential.Vault
	stdout  io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.stdout, "Usage:")
	fmt.Fprintln(cli.stdout, "  login [-profile NAME] [-account ID]   - store an access token (prompted)")
	fmt.Fprintln(cli.stdout, "  logout [-profile NAME]                - forget the stored token")
	fmt.Fprintln(cli.stdout, "  bell [-profile NAME]                  - open the notification bell")
	fmt.Fprintln(cli.stdout, "  blocks -model ID [-type TYPE] [-profile NAME]")
	fmt.Fprintln(cli.stdout, "                                        - print the Blockly definitions for a robot model")
	fmt.Fprintln(cli.stdout, "  catalogs -model ID                    - print the catalogs cached for a robot model")
	fmt.Fprintln(cli.stdout, "  list -resource NAME [-page N] [-size N] [-search TEXT] [-profile NAME]")
	fmt.Fprintln(cli.stdout, "                                        - print one page of a resource as JSON")
	fmt.Fprintln(cli.stdout, "  config [-write]                       - print the effective configuration, or save it")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	loginCmd := flag.NewFlagSet("login", flag.ContinueOnError)
	loginProfile := loginCmd.String("profile", cli.cfg.Profile, "Credential profile to store the token under.")
	loginAccount := loginCmd.String("account", "", "Account ID to act as. Prompted when the token lists several.")

	logoutCmd := flag.NewFlagSet("logout", flag.ContinueOnError)
	logoutProfile := logoutCmd.String("profile", cli.cfg.Profile, "Credential profile to forget.")

	bellCmd := flag.NewFlagSet("bell", flag.ContinueOnError)
	bellProfile := bellCmd.String("profile", cli.cfg.Profile, "Credential profile to run as.")

	blocksCmd := flag.NewFlagSet("blocks", flag.ContinueOnError)
	blocksModel := blocksCmd.String("model", "", "Robot model ID.")
	blocksType := blocksCmd.String("type", "", "Print only this block type, e.g. action or M1.action.")
	blocksProfile := blocksCmd.String("profile", cli.cfg.Profile, "Credential profile to run as.")

	catalogsCmd := flag.NewFlagSet("catalogs", flag.ContinueOnError)
	catalogsModel := catalogsCmd.String("model", "", "Robot model ID.")

	listCmd := flag.NewFlagSet("list", flag.ContinueOnError)
	listResource := listCmd.String("resource", "", "Resource name: "+resourceNames()+".")
	listPage := listCmd.Int("page", 1, "Page number, starting at 1.")
	listSize := listCmd.Int("size", 20, "Page size, at most 100.")
	listSearch := listCmd.String("search", "", "Free-text search.")
	listProfile := listCmd.String("profile", cli.cfg.Profile, "Credential profile to run as.")

	configCmd := flag.NewFlagSet("config", flag.ContinueOnError)
	configWrite := configCmd.Bool("write", false, "Write the effective configuration to the config file.")

	for _, fs := range []*flag.FlagSet{loginCmd, logoutCmd, bellCmd, blocksCmd, catalogsCmd, listCmd, configCmd} {
		fs.SetOutput(cli.stdout)
	}

	switch args[1] {
	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		fmt.Fprint(cli.stdout, "Paste access token:")
		token, err := readPasswordFunc(int(os.Stdin.Fd()))
		fmt.Fprintln(cli.stdout)
		if err != nil {
			return err
		}
		if len(token) == 0 {
			loginCmd.Usage()
			return errHelp
		}
		return cli.login(*loginProfile, strings.TrimSpace(string(token)), *loginAccount)

	case "logout":
		if err := logoutCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.logout(*logoutProfile)

	case "bell":
		if err := bellCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.bell(*bellProfile)

	case "blocks":
		if err := blocksCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *blocksModel == "" {
			blocksCmd.Usage()
			return errHelp
		}
		return cli.blocks(*blocksProfile, *blocksModel, *blocksType)

	case "catalogs":
		if err := catalogsCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *catalogsModel == "" {
			catalogsCmd.Usage()
			return errHelp
		}
		return cli.catalogs(*catalogsModel)

	case "list":
		if err := listCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *listResource == "" {
			listCmd.Usage()
			return errHelp
		}
		q := api.ListQuery{Page: *listPage, Size: *listSize, Search: *listSearch}
		return cli.list(*listProfile, api.ResourceName(*listResource), q)

	case "config":
		if err := configCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.config(*configWrite)

	default:
		cli.printUsage()
		return errHelp
	}
}

func resourceNames() string {
	names := make([]string, len(api.ResourceNames))
	for i, n := range api.ResourceNames {
		names[i] = string(n)
	}
	return strings.Join(names, ", ")
}

// client returns an API client authenticated as profile.
func (cli *commandLine) client(profile string) (*api.Client, credential.Session, error) {
	session, err := cli.vault.Session(profile)
	if errors.Is(err, credential.ErrNotLoggedIn) {
		return nil, credential.Session{}, fmt.Errorf("profile %q is not logged in; run 'robolab login'", profile)
	}
	if err != nil {
		return nil, credential.Session{}, err
	}

	c := api.NewClient(cli.cfg.API.BaseURL, session.Token,
		api.WithTimeout(cli.cfg.API.Timeout),
		api.WithRateLimitRetries(cli.cfg.API.RateLimitRetries),
		api.WithLogger(cli.logger.With("component", "api")),
	)
	return c, session, nil
}
