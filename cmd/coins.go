package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/folio/internal/formatter"
	"github.com/desertthunder/folio/internal/media"
	"github.com/desertthunder/folio/internal/models"
	"github.com/desertthunder/folio/internal/services"
	"github.com/desertthunder/folio/internal/shared"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// CoinsBalance prints the current balance.
func (r *Runner) CoinsBalance(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClient(); err != nil {
		return err
	}
	ledger, err := r.client.GetCoins(ctx, r.store.UserID())
	if err != nil {
		return err
	}
	return r.writePlain("%s coins\n", humanize.Comma(int64(ledger.TotalCoins)))
}

// CoinsLedger prints the transaction history.
func (r *Runner) CoinsLedger(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClient(); err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	ledger, err := r.client.GetCoins(ctx, r.store.UserID())
	if err != nil {
		return err
	}
	return r.write(formatter.Ledger(ledger, format))
}

// CoinsCheckin claims the daily reward once per calendar day and prints the month's calendar.
func (r *Runner) CoinsCheckin(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClient(); err != nil {
		return err
	}
	userID := r.store.UserID()
	ledger, err := r.client.GetCoins(ctx, userID)
	if err != nil {
		return err
	}

	now := time.Now()
	if ledger.CheckedInOn(now) {
		r.writePlain("Already checked in today.\n\n")
		return r.printCalendar(*ledger, now)
	}

	if err := r.client.UpdateCoins(ctx, services.CoinUpdate{
		UserID: userID,
		Amount: services.DailyCheckinReward,
		Type:   models.TxDailyCheckin,
	}); err != nil {
		return err
	}
	r.logger.Info("checked in", "reward", services.DailyCheckinReward)

	if updated, err := r.client.GetCoins(ctx, userID); err == nil {
		ledger = updated
	} else {
		r.logger.Debug("could not refresh ledger", "error", err)
		ledger.TotalCoins += services.DailyCheckinReward
		ledger.Transactions = append(ledger.Transactions, models.Transaction{
			Amount:    services.DailyCheckinReward,
			Type:      models.TxDailyCheckin,
			CreatedAt: models.Timestamp{Time: now},
		})
	}

	r.writePlain("✓ Checked in: +%d coins, balance %s\n\n", services.DailyCheckinReward, humanize.Comma(int64(ledger.TotalCoins)))
	return r.printCalendar(*ledger, now)
}

func (r *Runner) printCalendar(ledger models.CoinLedger, now time.Time) error {
	cal := media.NewCalendar(ledger, now)
	return r.writePlain("%s\n%d check-ins this month • streak %d\n", cal, cal.CheckedInDays(), media.Streak(ledger, now))
}

// CoinsEarn credits a reward to the user's balance.
func (r *Runner) CoinsEarn(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClient(); err != nil {
		return err
	}
	amount := cmd.IntArg("amount")
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", shared.ErrInvalidArgument)
	}
	if err := r.client.UpdateCoins(ctx, services.CoinUpdate{
		UserID: r.store.UserID(),
		Amount: amount,
		Type:   models.TxEarn,
	}); err != nil {
		return err
	}
	return r.writePlain("✓ Earned %d coins\n", amount)
}
