package main

import (
	_ "github.com/lib/pq"

	"github.com/nodal-works/ferret/backend/internal/server"
	"github.com/nodal-works/ferret/backend/internal/util"
	"github.com/nodal-works/ferret/backend/pkg/logger"
	"github.com/nodal-works/ferret/backend/pkg/logger/console"
	"github.com/nodal-works/ferret/backend/pkg/logger/zaplog"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	if util.GetEnvBool("LOG_JSON", false) {
		jsonLogger, err := zaplog.NewZapLogger(zaplog.ZapLoggerParams{
			Debug: debug,
		})
		if err != nil {
			logger.Fatal("Failed to create JSON logger", "err", err)
		}
		defer jsonLogger.Sync()
		logger.Init(consoleLogger, jsonLogger)
	}

	server.Init()
}
