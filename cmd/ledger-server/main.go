package main

import (
	"os"

	"github.com/gagliardetto/solana-go"

	"github.com/qZheng/CavityProof/ledger"
	"github.com/qZheng/CavityProof/logaudit"
	"github.com/qZheng/CavityProof/pkg/appbuilder"
	"github.com/qZheng/CavityProof/pkg/logger"
	"github.com/qZheng/CavityProof/pkg/rabbitmq"
	"github.com/qZheng/CavityProof/pkg/rest"
)

const (
	claimEventsPublisher  = rabbitmq.PublisherAlias("ClaimEventsPublisher")
	streakEventsPublisher = rabbitmq.PublisherAlias("StreakEventsPublisher")
	logPublisher          = rabbitmq.PublisherAlias("LogPublisher")
)

func main() {
	var ledgerHandler *ledger.Handler
	var logHandler *logaudit.Handler
	var workers []rabbitmq.WorkerService

	appbuilder.New[LedgerConfigJson, LedgerConfig]().
		InitLogger(logger.GlobalLoggerConfig{
			Args: []logger.LoggerArg{{Key: "service", Value: "ledger-server"}},
		}).
		ResolveEnvironment().
		LoadConfig("config.json").
		InitRabbitmqConnection().
		InitRabbitmqRegistries().
		WithOption(func(a *appbuilder.AppBuilder[LedgerConfigJson, LedgerConfig]) {
			// ----- RABBITMQ LOGGING SINK -----
			logSink := rabbitmq.CreateRabbitmqLoggerSink(rabbitmq.GetPublisher(logPublisher))
			logger.AddSinkToLoggerInstance(logger.Default(), logSink)

			// ----- ORACLE TRUST ANCHOR -----
			oraclePubkey, err := solana.PublicKeyFromBase58(os.Getenv("ORACLE_PUBKEY"))
			if err != nil {
				logger.Default().Fatal(err, "ORACLE_PUBKEY must be a base58 32-byte public key")
			}

			// ----- DATABASE -----
			db, err := connectDatabase()
			if err != nil {
				logger.Default().Fatal(err, "Could not connect to the ledger database")
			}
			if err := ledger.RunMigrations(db); err != nil {
				logger.Default().Fatal(err, "Could not run ledger migrations")
			}
			if err := logaudit.RunMigrations(db); err != nil {
				logger.Default().Fatal(err, "Could not run log audit migrations")
			}
			store := ledger.NewGormStore(db)

			// ----- PROCESSOR + WORKERS -----
			processor := ledger.NewProcessor(oraclePubkey, store,
				ledger.WithEventPublisher(rabbitmq.GetPublisher(claimEventsPublisher)),
			)
			ledgerHandler = ledger.NewHandler(processor)

			logService := logaudit.NewService(db, "ledger-server")
			logHandler = logaudit.NewHandler(logService)

			workers = append(workers,
				ledger.NewStreakWatchWorker(store, rabbitmq.GetPublisher(streakEventsPublisher)),
				logaudit.NewLogSinkWorker(logService),
			)

			logger.Default().Infof("Ledger accepting attestations from oracle %s", oraclePubkey)
		}).
		WithOption(func(a *appbuilder.AppBuilder[LedgerConfigJson, LedgerConfig]) {
			a.AddWorkerServices(workers...)
		}).

		// ----- CORS -----
		AddGinMiddleware(
			rest.NewMiddleware("*", rest.CORSMiddleware()),
		).

		// ----- ROUTES -----
		AddGinRoutes(
			rest.NewRoute(rest.POST, "ledger", "init", ledgerHandler.InitUser),
			rest.NewRoute(rest.POST, "ledger", "claim", ledgerHandler.Claim),
			rest.NewRoute(rest.POST, "ledger", "claim_dev", ledgerHandler.ClaimDev),
			rest.NewRoute(rest.GET, "ledger", "progress/:user", ledgerHandler.GetProgress),
			rest.NewRoute(rest.GET, "", "logs", logHandler.GetLogEntries),
			rest.NewRoute(rest.GET, "", "logs/level/:level", logHandler.GetLogEntriesByLevel),
			rest.NewRoute(rest.GET, "", "health", ledgerHandler.Health),
		).
		InitGinRouter().
		Build().
		Start()
}
