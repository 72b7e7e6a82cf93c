package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"hostexposer/internal/directory"
	"hostexposer/internal/types"
	"hostexposer/internal/version"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var errNotAuthenticated = errors.New("not authenticated")

// options holds the resolved global flags
type options struct {
	v   *viper.Viper
	out io.Writer
}

func newRootCommand(out io.Writer) *cobra.Command {
	o := &options{v: viper.New(), out: out}

	root := &cobra.Command{
		Use:          "exposerctl",
		Short:        "Inspect and rename the clients known to a hostexposer server",
		Version:      version.GetInfo().Version,
		SilenceUsage: true,
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.String("server", "http://localhost:3030", "Server base URL (env EXPOSER_SERVER)")
	flags.String("password", "", "Server password (env EXPOSER_PASSWORD)")
	flags.Bool("raw-credential", false, "Send the password as the Basic token without base64 encoding")
	flags.Duration("timeout", 30*time.Second, "Request timeout")
	flags.Bool("verbose", false, "Log requests to stderr")

	for _, name := range []string{"server", "password", "raw-credential", "timeout", "verbose"} {
		_ = o.v.BindPFlag(name, flags.Lookup(name))
	}
	_ = o.v.BindEnv("server", "EXPOSER_SERVER")
	_ = o.v.BindEnv("password", "EXPOSER_PASSWORD")

	root.AddCommand(
		newListCommand(o),
		newAuthCommand(o),
		newRenameCommand(o),
	)
	return root
}

func (o *options) client() (*directory.Client, error) {
	opts := []directory.Option{}
	if o.v.GetBool("raw-credential") {
		opts = append(opts, directory.WithCredentialEncoding(directory.EncodingRaw))
	}
	if o.v.GetBool("verbose") {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		opts = append(opts, directory.WithLogger(logger))
	}

	store := directory.NewSessionStore()
	store.Set(directory.PasswordKey, o.v.GetString("password"))

	return directory.NewClient(o.v.GetString("server"), store, opts...)
}

func (o *options) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), o.v.GetDuration("timeout"))
}

func newListCommand(o *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clients with their adapter addresses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			ctx, cancel := o.context(cmd)
			defer cancel()

			clients, err := c.ListClients(ctx)
			if err != nil {
				return err
			}

			switch output {
			case "json":
				enc := json.NewEncoder(o.out)
				enc.SetIndent("", "  ")
				return enc.Encode(clients)
			case "table":
				renderClients(o.out, clients)
				return nil
			default:
				return fmt.Errorf("unknown output format %q", output)
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table or json")
	return cmd
}

// renderClients prints one row per adapter. A client without adapters still
// gets a row.
func renderClients(out io.Writer, clients []types.ClientInformation) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"ID", "Name", "Adapter", "IPv4", "IPv6", "Created", "Last Fetch"})
	table.SetAutoWrapText(false)
	table.SetAutoMergeCells(false)

	for _, client := range clients {
		e := client.Entity
		if len(client.AdapterAddresses) == 0 {
			table.Append([]string{e.ID, e.Name, "", "", "", e.CreateTime, e.LastFetchTime})
			continue
		}
		for i, a := range client.AdapterAddresses {
			if i == 0 {
				table.Append([]string{e.ID, e.Name, a.Name, a.V4, a.V6, e.CreateTime, e.LastFetchTime})
			} else {
				table.Append([]string{"", "", a.Name, a.V4, a.V6, "", ""})
			}
		}
	}

	table.Render()
}

func newAuthCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Check whether the password is accepted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			ctx, cancel := o.context(cmd)
			defer cancel()

			status := c.CheckAuthenticatable(ctx)
			_, _ = fmt.Fprintln(o.out, status)
			if status != directory.Authenticated {
				return errNotAuthenticated
			}
			return nil
		},
	}
}

func newRenameCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Set the display name of a client",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			ctx, cancel := o.context(cmd)
			defer cancel()

			name := args[1]
			if err := c.RenameClient(ctx, args[0], name); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(o.out, "renamed %s to %q\n", args[0], name)
			return nil
		},
	}
}
