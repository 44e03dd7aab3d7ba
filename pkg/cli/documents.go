package cli

import (
	"context"
	"fmt"

	"github.com/platinummonkey/novo-auth/pkg/gqlclient"
)

func newDocumentsCommand(env Env) *Command {
	return &Command{
		Name:        "documents",
		Description: "List the GraphQL documents the gateway sends",
		Run: func(_ context.Context, args []string) error {
			fs := newFlagSet("documents", env)
			show := fs.String("show", "", "Print the full source of one document")
			if err := fs.Parse(args); err != nil {
				return err
			}

			if *show != "" {
				doc, ok := gqlclient.Lookup(*show)
				if !ok {
					return fmt.Errorf("unknown document: %s", *show)
				}
				_, err := fmt.Fprintln(env.Out, doc.Source())
				return err
			}

			rows := make([][2]string, 0)
			for _, name := range gqlclient.Names() {
				doc, _ := gqlclient.Lookup(name)
				rows = append(rows, [2]string{name, string(doc.Kind)})
			}
			return writeTable(env.Out, rows)
		},
	}
}
