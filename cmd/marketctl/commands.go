package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ignatzorin/collab-backend/internal/config"
	"github.com/ignatzorin/collab-backend/internal/db"
	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
	"github.com/ignatzorin/collab-backend/internal/infrastructure/persistence"
	"github.com/ignatzorin/collab-backend/internal/logger"
	"github.com/ignatzorin/collab-backend/internal/notify"
	"github.com/ignatzorin/collab-backend/internal/service"
	"github.com/ignatzorin/collab-backend/internal/usecase/subscription"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending SQL migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		conn, err := db.NewPostgres(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer conn.Close()

		applied, err := db.RunMigrations(cmd.Context(), conn, cfg.MigrationsPath)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		}
		for _, name := range applied {
			fmt.Fprintln(cmd.OutOrStdout(), "applied", name)
		}
		return nil
	},
}

var sweepAt string

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one subscription sweep pass and print the report",
	Long: `Run one pass of the subscription sweep: renewal reminders, expiry with
downgrade to the free plan and win-back offers. Notifications go to the
inbox and, when REDIS_URL is set, to connected clients through Redis.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		at := time.Now().UTC()
		if sweepAt != "" {
			parsed, err := time.Parse(time.RFC3339, sweepAt)
			if err != nil {
				return fmt.Errorf("--at: %w", err)
			}
			at = parsed
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger.Init(cfg.LogLevel)

		conn, err := db.NewPostgres(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer conn.Close()

		sinks := []notify.Sink{notify.NewStoreSink(persistence.NewNotificationRepository(conn))}
		if cfg.RedisURL != "" {
			client, err := notify.NewRedisClient(cmd.Context(), cfg.RedisURL)
			if err != nil {
				return err
			}
			defer client.Close()
			sinks = append(sinks, notify.NewRedisSink(client))
		}
		dispatcher := notify.NewDispatcher(cfg.NotifyBuffer, sinks...)
		dctx, stop := context.WithCancel(context.Background())
		dispatcher.Start(dctx)

		report, err := subscription.NewSweep(persistence.NewTransactor(conn), dispatcher, cfg.SweepConcurrency).Run(cmd.Context(), at)
		stop()
		dispatcher.Wait()
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

var (
	tokenRole    string
	tokenUser    string
	tokenProfile string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an access token for local testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		p := entity.Principal{Role: valueobject.Role(tokenRole)}
		if !p.Role.IsValid() {
			return fmt.Errorf("--role: неизвестная роль %q", tokenRole)
		}
		if p.UserID, err = idOrNew(tokenUser); err != nil {
			return fmt.Errorf("--user: %w", err)
		}
		if p.Role != valueobject.RoleAdmin {
			if p.ProfileID, err = idOrNew(tokenProfile); err != nil {
				return fmt.Errorf("--profile: %w", err)
			}
		}

		token, expires, err := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL).GenerateAccess(p)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		fmt.Fprintf(cmd.ErrOrStderr(), "role=%s user=%s profile=%s expires=%s\n", p.Role, p.UserID, p.ProfileID, expires.Format(time.RFC3339))
		return nil
	},
}

func idOrNew(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.New(), nil
	}
	return uuid.Parse(raw)
}

func init() {
	sweepCmd.Flags().StringVar(&sweepAt, "at", "", "sweep as of this RFC3339 time instead of now")

	tokenCmd.Flags().StringVar(&tokenRole, "role", string(valueobject.RoleBrand), "brand, creator or admin")
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id (random when empty)")
	tokenCmd.Flags().StringVar(&tokenProfile, "profile", "", "brand or creator profile id (random when empty)")
}
