package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dkeye/tempvoice/internal/app"
	"github.com/dkeye/tempvoice/internal/config"
	"github.com/dkeye/tempvoice/internal/domain"
	"github.com/dkeye/tempvoice/internal/store"
)

// A small offline tool for inspecting and repairing the room store. The bot
// holds the store lock while running, so stop it first.

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var reg *app.Registry
	var st store.Store

	root := &cobra.Command{
		Use:           "tempvoice-admin",
		Short:         "Inspect and repair the tempvoice room store",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := config.Load(configPath)
			if err != nil {
				return err
			}
			st, err = store.Open(cfg.Store.Type, cfg.Store.Path)
			if errors.Is(err, store.ErrLocked) {
				return fmt.Errorf("%s is in use, stop the bot first", cfg.Store.Path)
			}
			if err != nil {
				return err
			}
			reg, err = app.NewRegistry(st)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if st == nil {
				return nil
			}
			return st.Close()
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	var guild string
	cmdRooms := &cobra.Command{
		Use:   "rooms",
		Short: "List registered rooms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := json.MarshalIndent(reg.Rooms(domain.GuildID(guild)), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmdRooms.Flags().StringVarP(&guild, "guild", "g", "", "only rooms of this guild")

	cmdDrop := &cobra.Command{
		Use:   "drop [channel id]",
		Short: "Forget a room without touching Discord",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := reg.RemoveRoom(domain.ChannelID(args[0]))
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("no room %s", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dropped %s\n", args[0])
			return nil
		},
	}

	cmdEntry := &cobra.Command{
		Use:   "entry [guild id] [channel id]",
		Short: "Set or clear a guild's Join-To-Create channel",
		Long:  `entry sets the guild's Join-To-Create channel. Without a channel id it clears the setup.`,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ch domain.ChannelID
			if len(args) == 2 {
				ch = domain.ChannelID(args[1])
			}
			if err := reg.ConfigureEntry(domain.GuildID(args[0]), ch); err != nil {
				return err
			}
			if ch == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "cleared entry channel of %s\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "entry channel of %s is now %s\n", args[0], ch)
			}
			return nil
		},
	}

	root.AddCommand(cmdRooms, cmdDrop, cmdEntry)
	return root
}
