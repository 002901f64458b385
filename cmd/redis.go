package cmd

import (
	"fmt"

	"songbox/cache"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Test the Redis connection",
	Long:  `Connect to Redis and run a basic write, read and delete round trip.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Redis: %s, DB: %d\n", cfg.RedisAddr(), cfg.RedisDB)

		if err := cache.ConnectRedis(cfg); err != nil {
			return err
		}
		defer cache.CloseRedis()
		fmt.Fprintln(out, "Connected.")

		if err := cache.TestRedis(cmd.Context(), cache.RedisClient); err != nil {
			return fmt.Errorf("redis round trip failed: %w", err)
		}
		fmt.Fprintln(out, "Read/write test passed.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
