/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/purgo-board/apiserver/config"
	"github.com/purgo-board/apiserver/internal/db"
	"github.com/purgo-board/apiserver/internal/services"
	"github.com/purgo-board/apiserver/internal/store"
	"github.com/spf13/cobra"
)

var (
	restrictLoginID  string
	restrictDuration time.Duration
)

// restrictCmd manages a user's posting limit window.
var restrictCmd = &cobra.Command{
	Use:   "restrict",
	Short: "Restrict or unrestrict a user's posting",
}

var restrictSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Block a user from posting for a duration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if restrictDuration <= 0 {
			return errors.New("--duration must be positive")
		}
		return withStanding(cmd.Context(), func(ctx context.Context, standing *services.StandingService, userID int) error {
			window, err := standing.Restrict(ctx, userID, restrictDuration)
			if err != nil {
				return err
			}
			cmd.Printf("restricted %s until %s\n", restrictLoginID, window.EndDate.Format(time.RFC3339))
			return nil
		})
	},
}

var restrictClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Lift a user's posting restriction",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStanding(cmd.Context(), func(ctx context.Context, standing *services.StandingService, userID int) error {
			if err := standing.Lift(ctx, userID); err != nil {
				return err
			}
			cmd.Printf("cleared restriction for %s\n", restrictLoginID)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(restrictCmd)
	restrictCmd.AddCommand(restrictSetCmd, restrictClearCmd)

	restrictCmd.PersistentFlags().StringVar(&restrictLoginID, "user", "", "login id of the user")
	_ = restrictCmd.MarkPersistentFlagRequired("user")
	restrictSetCmd.Flags().DurationVar(&restrictDuration, "duration", 24*time.Hour, "how long the restriction lasts")
}

func withStanding(ctx context.Context, fn func(context.Context, *services.StandingService, int) error) error {
	cfg := config.LoadConfig()
	newLogger(cfg, "board-cli")

	conn, err := db.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer conn.Close()

	st := store.New(conn)
	user, err := st.Users.GetByLoginID(ctx, restrictLoginID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("user %q not found", restrictLoginID)
		}
		return err
	}
	return fn(ctx, services.NewStandingService(st.Standing), user.ID)
}
