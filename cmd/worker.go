/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/purgo-board/apiserver/config"
	"github.com/purgo-board/apiserver/internal/mail"
	"github.com/purgo-board/apiserver/internal/mq"
	"github.com/purgo-board/apiserver/internal/worker"
	"github.com/spf13/cobra"
)

// workerCmd consumes domain events and sends notification mail.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume signup and moderation events and send mail",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := newLogger(cfg, "board-worker")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		queue, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		defer func() {
			_ = queue.Close()
		}()

		mailer := mail.NewSendGridMailer(cfg.Mail, nil)
		logger.Info("worker started", "backend", cfg.MQ.Backend)
		if err := worker.New(queue, mailer, logger).Run(ctx); err != nil {
			return fmt.Errorf("worker: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
