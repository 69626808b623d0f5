package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Keksclan/goRawrCache/cache"
	"github.com/Keksclan/goRawrCache/config"
	"github.com/Keksclan/goRawrCache/store"
)

func newSnapshotCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage the snapshot file",
	}

	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Drop expired entries from the snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.Snapshot)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			entries, err := st.Load()
			if err != nil {
				return err
			}

			now := time.Now()
			kept := entries[:0]
			for _, e := range entries {
				if e.TTL > 0 && now.After(e.CreatedAt.Add(e.TTL)) {
					continue
				}
				kept = append(kept, e)
			}
			if err := st.Save(kept); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dropped %d expired entries, %d kept.\n",
				len(entries)-len(kept), len(kept))
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all entries from the snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.Snapshot)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if err := st.Save([]cache.Entry{}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Snapshot cleared.")
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "rawrcache.yaml", "path to config file")
	cmd.AddCommand(purgeCmd, clearCmd)
	return cmd
}
