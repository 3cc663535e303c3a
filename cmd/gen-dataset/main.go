package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/churnlens/internal/datagen"
	"github.com/okian/churnlens/pkg/logger"
)

func main() {
	def := datagen.DefaultOptions()
	var (
		dir          = flag.String("dir", "data", "Output directory for the generated tables")
		users        = flag.Int("users", def.Users, "Number of customers")
		months       = flag.Int("months", def.Months, "Number of months in the churn series")
		agents       = flag.Int("agents", def.Agents, "Number of agents")
		calls        = flag.Int("calls", def.Calls, "Number of contact-center calls")
		start        = flag.String("start", def.Start.Format(time.DateOnly), "First month of the series (YYYY-MM-DD)")
		seed         = flag.Uint64("seed", def.Seed, "Random seed; 0 picks a random one")
		noBase       = flag.Bool("no-base", false, "Skip the customer base table")
		noTx         = flag.Bool("no-transactions", false, "Skip the itemized transactions table")
		noModel      = flag.Bool("no-model", false, "Skip the model artifacts")
		outputFormat = flag.String("log-format", "text", "Log format: text or json")
	)
	flag.Parse()

	if err := logger.Init(logger.WithFormat(*outputFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	ctx := context.Background()
	log := logger.Get()

	startAt, err := time.Parse(time.DateOnly, *start)
	if err != nil {
		log.Error(ctx, "invalid start month", logger.String("start", *start), logger.Error(err))
		os.Exit(2)
	}

	files, err := datagen.Generate(*dir, datagen.Options{
		Users:            *users,
		Months:           *months,
		Agents:           *agents,
		Calls:            *calls,
		Start:            startAt,
		Seed:             *seed,
		WithBase:         !*noBase,
		WithTransactions: !*noTx,
		WithModel:        !*noModel,
	})
	if err != nil {
		log.Error(ctx, "dataset generation failed", logger.Error(err))
		os.Exit(1)
	}
	log.Info(ctx, "dataset generated",
		logger.String("dir", *dir),
		logger.String("churn", files.Churn),
		logger.String("calls", files.Calls),
		logger.String("agents", files.Agents),
		logger.String("base", files.Base),
		logger.String("transactions", files.Transactions),
		logger.String("models", files.ModelDir),
	)
}
