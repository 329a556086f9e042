// deyectl is a development and diagnostic CLI for Deye cloud accounts
// and the appliances bound to them.
//
// It talks to the same endpoints as the vendor mobile app: the REST API
// for account, catalog and token operations, and the per-platform MQTT
// brokers for live device state. Run deyectl without arguments for the
// command list.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deye-community/go-deye/cloudapi"
	"github.com/deye-community/go-deye/internal/config"
	"github.com/deye-community/go-deye/internal/logging"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Command timeouts.
const (
	// queryTimeout bounds the state round trip for get and set.
	queryTimeout = 10 * time.Second

	// recordTimeout bounds each state log write during monitor.
	recordTimeout = 5 * time.Second
)

const usageText = `deyectl interacts with Deye cloud accounts and appliances.

Usage:

  deyectl [global flags] <command> [command flags]

Commands:

  devices        List all devices bound to the account
  products       List the vendor product catalog
  get            Query the current state of a device
  set            Change the state of a device
  monitor        Stream state and availability changes for a device
  print-token    Print the cloud auth token
  refresh-token  Force a refresh of the cloud auth token
  classic-mqtt   Print Classic platform broker information
  fog-mqtt       Print Fog platform broker information

Global flags:

  -config string     path to a YAML config file
  -username string   Deye cloud username (env DEYE_USERNAME)
  -password string   Deye cloud password (env DEYE_PASSWORD)
  -token string      Deye cloud auth token (env DEYE_AUTH_TOKEN)

Command flags:

  get/set/monitor    -device-id string (env DEYE_DEVICE_ID)
  set                -power on|off  -mode <name>  -fan-speed <name>
                     -target-humidity <n>  -anion on|off  -water-pump on|off
                     -oscillating on|off  -child-lock on|off
  monitor            -record <path>  record observed states to a SQLite file
`

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual tool logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - args: Command line arguments, without the program name
//   - stdout: Destination for command output
//
// Returns:
//   - error: nil on success, or error describing failure
func run(ctx context.Context, args []string, stdout io.Writer) error {
	globals := flag.NewFlagSet("deyectl", flag.ContinueOnError)
	configPath := globals.String("config", "", "path to a YAML config file")
	username := globals.String("username", "", "Deye cloud username")
	password := globals.String("password", "", "Deye cloud password")
	token := globals.String("token", "", "Deye cloud auth token")
	globals.Usage = func() {
		fmt.Fprint(globals.Output(), usageText)
	}

	if err := globals.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	rest := globals.Args()
	if len(rest) == 0 {
		globals.Usage()
		return errors.New("no command given")
	}
	command, commandArgs := rest[0], rest[1:]

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Flags beat both the file and the environment.
	if *username != "" {
		cfg.Auth.Username = *username
	}
	if *password != "" {
		cfg.Auth.Password = *password
	}
	if *token != "" {
		cfg.Auth.AuthToken = *token
	}

	log := logging.New(cfg.Logging, version)
	log.Debug("starting deyectl",
		"version", version,
		"commit", commit,
		"build_date", date,
		"command", command,
	)

	a := &app{cfg: cfg, log: log, stdout: stdout}

	switch command {
	case "devices":
		return a.runDevices(ctx, commandArgs)
	case "products":
		return a.runProducts(ctx, commandArgs)
	case "get":
		return a.runGet(ctx, commandArgs)
	case "set":
		return a.runSet(ctx, commandArgs)
	case "monitor":
		return a.runMonitor(ctx, commandArgs)
	case "print-token":
		return a.runPrintToken(ctx, commandArgs)
	case "refresh-token":
		return a.runRefreshToken(ctx, commandArgs)
	case "classic-mqtt":
		return a.runClassicMQTTInfo(ctx, commandArgs)
	case "fog-mqtt":
		return a.runFogMQTTInfo(ctx, commandArgs)
	}

	globals.Usage()
	return fmt.Errorf("unknown command %q", command)
}

// app carries the loaded configuration and logger through one command.
type app struct {
	cfg    *config.Config
	log    *logging.Logger
	stdout io.Writer
}

// newAPI builds an authenticated cloud client from the merged
// credentials.
//
// A configured auth token is used as-is; otherwise the username and
// password are exchanged for one.
func (a *app) newAPI(ctx context.Context) (*cloudapi.Client, error) {
	auth := a.cfg.Auth
	if auth.AuthToken == "" && (auth.Username == "" || auth.Password == "") {
		return nil, errors.New("either -token or -username and -password are required " +
			"(or DEYE_AUTH_TOKEN, DEYE_USERNAME, DEYE_PASSWORD)")
	}

	api := cloudapi.NewClient(nil, auth.Username, auth.Password)
	if a.cfg.Cloud.Endpoint != "" {
		api.SetEndpoint(a.cfg.Cloud.Endpoint)
	}

	if auth.AuthToken != "" {
		if err := api.SetAuthToken(auth.AuthToken); err != nil {
			return nil, fmt.Errorf("setting auth token: %w", err)
		}
		return api, nil
	}

	if err := api.Authenticate(ctx); err != nil {
		return nil, fmt.Errorf("authenticating: %w", err)
	}
	return api, nil
}
