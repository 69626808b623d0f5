package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Keksclan/goRawrCache/config"
	"github.com/Keksclan/goRawrCache/store"
)

func newStatsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the snapshot file",
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

			var live, expired int
			var tokensBanked, hitsServed uint64
			now := time.Now()
			for _, e := range entries {
				if e.TTL > 0 && now.After(e.CreatedAt.Add(e.TTL)) {
					expired++
					continue
				}
				live++
				tokensBanked += uint64(e.TokenCost)
				hitsServed += e.UsageCount
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Entries:       %d live, %d expired\n", live, expired)
			fmt.Fprintf(out, "Tokens banked: %d\n", tokensBanked)
			fmt.Fprintf(out, "Hits served:   %d\n", hitsServed)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "rawrcache.yaml", "path to config file")
	return cmd
}
