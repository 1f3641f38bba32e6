// Copyright 2025 The Drover Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command drover runs and operates agents on Bedrock AgentCore.
//
// Usage:
//
//	drover serve --config drover.yaml
//	drover invoke "What is the weather in Paris?" --stream
//	drover chat --remote
//	drover promote my-runtime-id V3 --to canary
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	drover "github.com/droverhq/drover"
	"github.com/droverhq/drover/pkg/config"
)

// CLI defines the command-line interface.
type CLI struct {
	Version   VersionCmd   `cmd:"" help:"Show version information."`
	Serve     ServeCmd     `cmd:"" help:"Start the AgentCore runtime service."`
	Invoke    InvokeCmd    `cmd:"" help:"Invoke a deployed agent runtime."`
	Chat      ChatCmd      `cmd:"" help:"Chat with an agent interactively."`
	Versions  VersionsCmd  `cmd:"" help:"List versions of an agent runtime."`
	Promote   PromoteCmd   `cmd:"" help:"Point an endpoint alias at a runtime version."`
	Endpoints EndpointsCmd `cmd:"" help:"List endpoint aliases of an agent runtime."`
	Schema    SchemaCmd    `cmd:"" help:"Generate JSON Schema for the config file."`

	Config    string   `short:"c" help:"Path to config file." type:"path"`
	EnvFile   []string `name:"env-file" help:"Env files loaded before anything else (default: .env.local, .env)." type:"path"`
	Debug     bool     `help:"Shorthand for --log-level=debug."`
	LogLevel  string   `name:"log-level" help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string   `name:"log-file" help:"Log file path (empty = stderr)."`
	LogFormat string   `name:"log-format" help:"Log format (simple, verbose, json)." default:"simple"`
}

// effectiveLogLevel folds the --debug shorthand into the level flag.
func (c *CLI) effectiveLogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.LogLevel
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(drover.GetVersion().String())
	return nil
}

// printBanner prints a colored ASCII banner using drover-amber (#d97706).
func printBanner() {
	// Check if stdout is a terminal
	if fileInfo, err := os.Stdout.Stat(); err == nil {
		if (fileInfo.Mode() & os.ModeCharDevice) == 0 {
			// Not a terminal, skip banner
			return
		}
	} else {
		return
	}

	// Amber color: #d97706 = RGB(217, 119, 6)
	amberColor := "\033[38;2;217;119;6m"
	resetColor := "\033[0m"

	banner := `
██████╗ ██████╗  ██████╗ ██╗   ██╗███████╗██████╗
██╔══██╗██╔══██╗██╔═══██╗██║   ██║██╔════╝██╔══██╗
██║  ██║██████╔╝██║   ██║██║   ██║█████╗  ██████╔╝
██║  ██║██╔══██╗██║   ██║╚██╗ ██╔╝██╔══╝  ██╔══██╗
██████╔╝██║  ██║╚██████╔╝ ╚████╔╝ ███████╗██║  ██║
╚═════╝ ╚═╝  ╚═╝ ╚═════╝   ╚═══╝  ╚══════╝╚═╝  ╚═╝
`
	fmt.Printf("%s%s%s\n", amberColor, banner, resetColor)
}

// shouldSkipBanner checks if the command should skip the banner. Only
// serve shows it; everything else writes output meant to be read or
// piped.
func shouldSkipBanner(args []string) bool {
	for _, arg := range args[1:] {
		if arg == "serve" {
			return false
		}
	}
	return true
}

func main() {
	if !shouldSkipBanner(os.Args) {
		printBanner()
	}

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("drover"),
		kong.Description("Drover - run, invoke, and promote agents on Bedrock AgentCore"),
		kong.UsageOnError(),
	)

	// Env files first so every later stage (logger, config expansion,
	// AWS clients) sees them.
	if err := config.LoadEnvFiles(cli.EnvFile...); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load env files: %v\n", err)
		os.Exit(1)
	}

	cleanup, err := initLoggerFromCLI(cli.effectiveLogLevel(), cli.LogFile, cli.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
