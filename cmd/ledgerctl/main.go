package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goldline/backend/internal/audit"
	"github.com/goldline/backend/internal/config"
	"github.com/goldline/backend/internal/database"
	"github.com/goldline/backend/internal/events"
	"github.com/goldline/backend/internal/gateway"
	"github.com/goldline/backend/internal/models"
	"github.com/goldline/backend/internal/repository"
	"github.com/goldline/backend/internal/services"
	"github.com/spf13/cobra"
)

var Version = "dev"

// ledgerOps is the part of the reconciliation engine the CLI drives.
type ledgerOps interface {
	FailExpiredPending(ctx context.Context, olderThan time.Duration) (*services.SweepResult, error)
	LoanBalance(ctx context.Context, loanID string) (*models.LoanBalance, error)
	GetPayment(ctx context.Context, idOrNumber string) (*models.PaymentRecord, error)
}

// opener connects to the configured stores. The returned func releases them.
type opener func() (ledgerOps, func(), error)

func main() {
	config.InitViper()
	if err := newRootCmd(openEngine).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(open opener) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operate the loan payment ledger",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(sweepPendingCmd(open))
	rootCmd.AddCommand(loanBalanceCmd(open))
	rootCmd.AddCommand(paymentCmd(open))
	return rootCmd
}

func sweepPendingCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep-pending",
		Short: "Fail PENDING payments that were never confirmed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			olderThan, err := cmd.Flags().GetDuration("older-than")
			if err != nil {
				return err
			}
			if olderThan < 0 {
				return fmt.Errorf("--older-than must not be negative")
			}

			ops, closeFn, err := open()
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := ops.FailExpiredPending(cmd.Context(), olderThan)
			if err != nil {
				return fmt.Errorf("sweep pending payments: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().Duration("older-than", 0, "Age after which a PENDING payment expires (0 uses LEDGER_PENDING_EXPIRY)")
	return cmd
}

func loanBalanceCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "loan-balance [loanId]",
		Short: "Show a loan's outstanding balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, closeFn, err := open()
			if err != nil {
				return err
			}
			defer closeFn()

			loan, err := ops.LoanBalance(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), loan)
		},
	}
}

func paymentCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "payment [paymentId|paymentNumber]",
		Short: "Show one payment record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, closeFn, err := open()
			if err != nil {
				return err
			}
			defer closeFn()

			payment, err := ops.GetPayment(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), payment)
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func openEngine() (ledgerOps, func(), error) {
	logger := config.GetLogger()

	db, err := database.InitDB()
	if err != nil {
		return nil, nil, err
	}
	redisClient := database.InitRedis()

	sinks := events.MultiSink{events.NewLogSink(logger)}
	if redisClient != nil {
		sinks = append(sinks, events.NewRedisSettlementQueue(redisClient))
	}

	ledgerCfg := config.LoadLedgerConfig()
	engine := services.NewReconciliationEngine(
		repository.NewPostgresStore(db),
		gateway.NewRazorpayClient(gateway.LoadRazorpayConfig(), logger),
		sinks,
		events.NewWebhookDeduper(redisClient, ledgerCfg.WebhookDedupeTTL, logger),
		audit.NewAuditLogger(logger),
		logger,
		ledgerCfg,
	)

	return engine, func() {
		db.Close()
		if redisClient != nil {
			redisClient.Close()
		}
	}, nil
}
