package main

import (
	"github.com/qZheng/CavityProof/oracle"
	"github.com/qZheng/CavityProof/pkg/appbuilder"
	"github.com/qZheng/CavityProof/pkg/logger"
	"github.com/qZheng/CavityProof/pkg/rest"
)

func main() {
	var oracleHandler *oracle.Handler

	appbuilder.New[OracleConfigJson, OracleConfig]().
		InitLogger(logger.GlobalLoggerConfig{
			Args: []logger.LoggerArg{{Key: "service", Value: "oracle-server"}},
		}).
		ResolveEnvironment().
		LoadConfig("config.json").
		WithOption(func(a *appbuilder.AppBuilder[OracleConfigJson, OracleConfig]) {
			// ----- SIGNING KEY -----
			key, err := oracle.LoadSigningKey()
			if err != nil {
				logger.Default().Fatal(err, "Could not load the oracle signing key")
			}
			logger.Default().Infof("Oracle identity: %s", key.PublicKey)

			oracleHandler = oracle.NewHandler(oracle.NewService(key))
		}).

		// ----- CORS -----
		AddGinMiddleware(
			rest.NewMiddleware("*", rest.CORSMiddleware()),
		).

		// ----- ROUTES -----
		AddGinRoutes(
			rest.NewRoute(rest.POST, "oracle", "sign", oracleHandler.SignClaim),
			rest.NewRoute(rest.POST, "", "verify", oracleHandler.VerifyAttestation),
			rest.NewRoute(rest.GET, "", "health", oracleHandler.Health),
		).
		InitGinRouter().
		Build().
		Start()
}
