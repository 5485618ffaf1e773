// Command recurring-worker generates the expenses of every recurring
// template due on or before a date, then exits. Run it from cron or a
// scheduled job; each run is safe to repeat.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"splitledger/internal/amqp"
	"splitledger/internal/cli"
	"splitledger/internal/core"
	"splitledger/internal/log"
	"splitledger/internal/metrics"
	"splitledger/internal/services"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "list due templates without generating expenses")
	asOf := flag.String("date", "", "process templates due on or before this date (YYYY-MM-DD, default today UTC)")
	flag.Parse()

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	ctx, stop := cli.SignalContext()
	defer stop()

	day := core.DateOf(time.Now())
	if *asOf != "" {
		d, err := core.ParseDate(*asOf)
		if err != nil {
			logger.ErrorContext(ctx, "Invalid -date flag", log.FieldError, err)
			os.Exit(2)
		}
		day = d
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var publisher services.Publisher
	if cfg.AMQPURL != "" && !*dryRun {
		client, err := amqp.ConnectWithRetry(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, 3)
		if err != nil {
			logger.WarnContext(ctx, "AMQP unavailable, generating without events", log.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
		}
	}

	deps := services.Deps{Store: repo, Publisher: publisher, Metrics: metrics.New()}
	recurring := services.NewRecurringService(deps, cfg.Limits())

	if err := run(ctx, logger, recurring, day, *dryRun); err != nil {
		logger.ErrorContext(ctx, "Recurring processing failed", log.FieldError, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *log.Logger, recurring *services.RecurringService, day core.Date, dryRun bool) error {
	if dryRun {
		due, err := recurring.Due(ctx, day)
		if err != nil {
			return err
		}
		for _, t := range due {
			logger.InfoContext(ctx, "Template due",
				log.FieldOwnerID, t.OwnerID,
				log.FieldTemplateID, t.ID,
				log.FieldDueDate, t.NextDueDate.String(),
				log.FieldAmount, core.FormatAmount(t.Amount),
				log.FieldFrequency, t.Frequency)
		}
		logger.InfoContext(ctx, "Dry run complete", log.FieldCount, len(due), "as_of", day.String())
		return nil
	}

	start := time.Now()
	n, err := recurring.ProcessDue(ctx, day)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "Recurring processing complete",
		log.FieldCount, n,
		"as_of", day.String(),
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}
