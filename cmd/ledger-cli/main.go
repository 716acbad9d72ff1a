package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"ledger-core/internal/model"
	"ledger-core/internal/service"
	"ledger-core/internal/tax"
	"ledger-core/pkg/config"
	"ledger-core/pkg/database"
	"ledger-core/pkg/logger"
	"ledger-core/pkg/money"
	"ledger-core/pkg/monitor"
)

// ledger-cli is the ops entrypoint for one-off maintenance: forcing an
// auto-release sweep, reconciling a wallet, checking a balance.

func connect() (*gorm.DB, error) {
	config.Init()
	logger.Init(config.Global.App.Env)
	monitor.Init()

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=Asia/Kolkata",
		config.Global.DB.Host, config.Global.DB.User, config.Global.DB.Password,
		config.Global.DB.Name, config.Global.DB.Port)
	return database.ConnectPostgres(dsn)
}

func taxRatesFromConfig() tax.RateTable {
	return tax.RateTable{
		tax.TDS: money.MustFromString(config.Global.Tax.TDSRate),
		tax.GST: money.MustFromString(config.Global.Tax.GSTRate),
	}
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Release all escrow payments past their auto-release deadline",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := connect()
			if err != nil {
				return err
			}
			cfg := config.Global

			wallet := service.NewWalletService(db)
			escrow := service.NewEscrowService(db, wallet,
				money.MustFromString(cfg.Distribution.CommissionRate),
				taxRatesFromConfig(), cfg.Escrow.SweepBatchSize)

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
			defer cancel()

			summary, err := escrow.AutoReleaseSweep(ctx, time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("processed=%d released=%d failed=%d\n",
				summary.Processed, summary.Released, summary.Failed)
			for _, e := range summary.Errors {
				fmt.Printf("  payment %d: %s\n", e.PaymentID, e.Reason)
			}
			return nil
		},
	}
}

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <owner_type> <owner_id>",
		Short: "Fold a wallet's ledger and compare against the cached balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := connect()
			if err != nil {
				return err
			}
			ownerType, ownerID, err := parseOwner(args)
			if err != nil {
				return err
			}

			wallet := service.NewWalletService(db)
			folded, err := wallet.Reconcile(cmd.Context(), ownerType, ownerID)
			if err != nil {
				return fmt.Errorf("reconciliation failed (wallet may now be frozen): %w", err)
			}
			fmt.Printf("consistent, folded balance %s\n", folded.StringFixed(2))
			return nil
		},
	}
}

func newBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <owner_type> <owner_id>",
		Short: "Show a wallet's balance and available balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := connect()
			if err != nil {
				return err
			}
			ownerType, ownerID, err := parseOwner(args)
			if err != nil {
				return err
			}

			wallet := service.NewWalletService(db)
			w, err := wallet.Balance(cmd.Context(), ownerType, ownerID)
			if err != nil {
				return err
			}
			available, err := wallet.AvailableBalance(cmd.Context(), ownerType, ownerID)
			if err != nil {
				return err
			}
			fmt.Printf("balance=%s available=%s frozen=%v\n",
				w.Balance.StringFixed(2), available.StringFixed(2), w.IsFrozen)
			return nil
		},
	}
}

func newClawbackCmd() *cobra.Command {
	var paymentID uint64
	var reason string
	cmd := &cobra.Command{
		Use:   "clawback <owner_type> <owner_id> <amount>",
		Short: "Debit a wallet to recover funds from a disputed released payment",
		Long: "Appends a refund_issued debit against the owner's wallet. Escrow " +
			"refunds only exist before release; once a payment has been released " +
			"and credited, recovering it is a manual ops action recorded here.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := connect()
			if err != nil {
				return err
			}
			ownerType, ownerID, err := parseOwner(args)
			if err != nil {
				return err
			}
			amount, err := decimal.NewFromString(args[2])
			if err != nil || !amount.IsPositive() {
				return fmt.Errorf("invalid amount %q", args[2])
			}

			wallet := service.NewWalletService(db)
			entry, err := wallet.Append(cmd.Context(), service.AppendInput{
				OwnerType:     ownerType,
				OwnerID:       ownerID,
				Type:          model.TxRefundIssued,
				Amount:        money.Round2(amount),
				Description:   "clawback: " + reason,
				ReferenceType: "payment",
				ReferenceID:   paymentID,
				ProcessedBy:   "ops_cli",
			})
			if err != nil {
				return err
			}
			fmt.Printf("entry %d appended, balance %s -> %s\n",
				entry.ID, entry.BalanceBefore.StringFixed(2), entry.BalanceAfter.StringFixed(2))
			return nil
		},
	}
	cmd.Flags().Uint64Var(&paymentID, "payment", 0, "payment the clawback refers to")
	cmd.Flags().StringVar(&reason, "reason", "", "why the funds are being recovered")
	_ = cmd.MarkFlagRequired("payment")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func parseOwner(args []string) (model.OwnerType, uint64, error) {
	ownerType := model.OwnerType(args[0])
	if ownerType != model.OwnerFirm && ownerType != model.OwnerProfessional {
		return "", 0, fmt.Errorf("owner_type must be firm or professional, got %q", args[0])
	}
	var ownerID uint64
	if _, err := fmt.Sscanf(args[1], "%d", &ownerID); err != nil || ownerID == 0 {
		return "", 0, fmt.Errorf("invalid owner_id %q", args[1])
	}
	return ownerType, ownerID, nil
}

func main() {
	root := &cobra.Command{
		Use:   "ledger-cli",
		Short: "Operational tooling for the ledger service",
	}
	root.AddCommand(newSweepCmd(), newReconcileCmd(), newBalanceCmd(), newClawbackCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
