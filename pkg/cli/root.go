package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sort"

	"github.com/sirupsen/logrus"
)

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(ctx context.Context, args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet

	usageOut io.Writer
}

// Env carries what every command writes to.
type Env struct {
	Out io.Writer
	Log *logrus.Logger
}

// NewRootCommand creates the root command
func NewRootCommand(env Env) *Command {
	if env.Log == nil {
		env.Log = logrus.New()
		env.Log.SetOutput(io.Discard)
	}

	root := &Command{
		Name:        "novo-probe",
		Description: "novo-probe - exercise the Novo auth backend through the gateway pipeline",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("novo-probe", flag.ContinueOnError),
	}

	// Add subcommands
	root.Subcommands["status"] = newStatusCommand(env)
	root.Subcommands["me"] = newMeCommand(env)
	root.Subcommands["login"] = newLoginCommand(env)
	root.Subcommands["documents"] = newDocumentsCommand(env)

	root.usageOut = env.Out
	return root
}

// Execute runs the subcommand named by args[0]
func (c *Command) Execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return c.usage()
	}

	// Check for help flag
	if args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		return c.usage()
	}

	// Check for subcommand
	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Run(ctx, args[1:])
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage
func (c *Command) usage() error {
	out := c.usageOut
	if out == nil {
		out = io.Discard
	}
	fmt.Fprintf(out, "Usage: %s <command> [args]\n\n", c.Name)
	fmt.Fprintf(out, "Commands:\n")

	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-15s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}
