// marketctl - служебные команды: миграции, разовый обход подписок, выпуск токенов для отладки.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ignatzorin/collab-backend/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "marketctl",
	Short:         "Operational commands for the collab backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd, sweepCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Log.WithError(err).Error("marketctl: команда завершилась с ошибкой")
		os.Exit(1)
	}
}
