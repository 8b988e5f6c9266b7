package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/folio/cachekit/cache"
	"github.com/folio/cachekit/config"
	"github.com/folio/cachekit/tui"
	"github.com/spf13/cobra"
	"github.com/vmihailenco/msgpack/v5"
)

func newKeysCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List the keys in the namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openDurable(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			keys, err := store.Keys(cmd.Context())
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
}

func newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a live value as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openDurable(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			res := store.Lookup(cmd.Context(), args[0])
			switch res.Status {
			case cache.StatusDegraded:
				return res.Err
			case cache.StatusMiss:
				return errors.Newf("%q not found", args[0])
			}
			var val any
			if err := msgpack.Unmarshal(res.Value.(cache.Raw), &val); err != nil {
				return errors.Wrapf(err, "decode %q", args[0])
			}
			buf, err := json.MarshalIndent(val, "", "  ")
			if err != nil {
				return errors.Wrapf(err, "encode %q", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(buf))
			return nil
		},
	}
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>...",
		Short: "Remove keys from the namespace",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openDurable(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			for _, key := range args {
				if store.Delete(cmd.Context(), key) {
					tui.ShowSuccess(cmd.OutOrStdout(), "deleted %s", key)
				} else {
					tui.ShowWarning(cmd.OutOrStdout(), "%s not found", key)
				}
			}
			return nil
		},
	}
}

func newClearCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every key in the namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openDurable(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			keys, err := store.Keys(cmd.Context())
			if err != nil {
				return err
			}
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				if !tui.HasInput {
					return errors.New("refusing to clear without --yes")
				}
				ok, err := tui.Ask(fmt.Sprintf("Remove %d keys?", len(keys)), false)
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
			}
			store.Clear(cmd.Context())
			tui.ShowSuccess(cmd.OutOrStdout(), "cleared %d keys", len(keys))
			return nil
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show size and remaining TTL of every record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openDurable(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(stats.Items))
			for _, item := range stats.Items {
				ttl := item.RemainingTTL.Round(time.Second).String()
				if item.RemainingTTL == 0 {
					ttl = tui.Muted("expired")
				}
				rows = append(rows, []string{item.Key, strconv.Itoa(item.ApproximateSize), ttl})
			}
			tui.Table(cmd.OutOrStdout(), []string{"KEY", "SIZE", "TTL"}, rows)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", tui.Title("total"), stats.TotalItems)
			return nil
		},
	}
}

func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init <file>",
		Short: "Write a config file with the default settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Default().Save(args[0]); err != nil {
				return err
			}
			tui.ShowSuccess(cmd.OutOrStdout(), "wrote %s", args[0])
			return nil
		},
	}
}
