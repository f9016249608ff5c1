package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	logrus "github.com/sirupsen/logrus"

	"triggertrade/internal/engine"
	"triggertrade/internal/store"
	"triggertrade/pkg/chain"
	"triggertrade/pkg/config"
	"triggertrade/pkg/pricing"
)

const defaultSweepSpec = "*/10 * * * * *"

func main() {
	// Initialize logger
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	_ = godotenv.Load()

	// Initialize database
	config.InitDB()

	strategyStore := store.New(config.DB)
	prices := pricing.NewClient(os.Getenv("JUPITER_BASE_URL"))
	rpcClient := chain.New(os.Getenv("SOLANA_RPC_PRIMARY"), os.Getenv("SOLANA_RPC_BACKUP"))

	// RabbitMQ carries trigger notifications out and confirmation jobs in.
	// Without it the worker still sweeps; it just skips both queues.
	var notifier engine.Notifier
	if os.Getenv("RABBITMQ_HOST") != "" {
		config.InitRabbitMQ()
		defer config.RabbitMQ.Close()

		publisher, err := config.NewPublisher()
		if err != nil {
			logrus.Fatal("Failed to create publisher: ", err)
		}
		defer publisher.Close()
		notifier = publisher

		go runConfirmConsumer(strategyStore, rpcClient)
	} else {
		logrus.Warn("RabbitMQ not configured, running sweeps without event queues")
	}

	evaluator := engine.NewEvaluator(strategyStore, prices, notifier)

	sweepSpec := os.Getenv("SWEEP_CRON")
	if sweepSpec == "" {
		sweepSpec = defaultSweepSpec
	}

	// SkipIfStillRunning keeps sweeps from overlapping; the evaluator relies
	// on at most one sweep in flight.
	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	_, err := c.AddFunc(sweepSpec, func() {
		results, err := evaluator.EvaluateTriggers()
		if err != nil {
			logrus.Errorf("Trigger sweep failed: %v", err)
			return
		}

		triggered := 0
		for _, r := range results {
			if r.DidTrigger {
				triggered++
			}
		}
		if len(results) > 0 {
			logrus.WithFields(logrus.Fields{
				"evaluated": len(results),
				"triggered": triggered,
			}).Info("Trigger sweep completed")
		}
	})
	if err != nil {
		logrus.Fatal("Failed to schedule trigger sweep: ", err)
	}

	logrus.Infof("Trigger sweep worker started (schedule %q)", sweepSpec)
	c.Run()
}

// runConfirmConsumer feeds queued confirmation jobs to the poller. Errored
// jobs (RPC unreachable, attempt write failures) are redelivered by the
// queue.
func runConfirmConsumer(strategyStore *store.StrategyStore, rpcClient *chain.Client) {
	consumer, err := config.NewConsumer(engine.QueueExecutionConfirm)
	if err != nil {
		logrus.Fatal("Failed to create consumer: ", err)
	}
	defer consumer.Close()

	poller := engine.NewConfirmPoller(strategyStore, rpcClient)
	err = consumer.Consume(func(msg []byte) error {
		if err := poller.HandleConfirmJob(context.Background(), msg); err != nil {
			logrus.Errorf("Confirm job failed: %v", err)
			return err
		}
		return nil
	})
	if err != nil {
		logrus.Fatal("Confirm consumer stopped: ", err)
	}
}
