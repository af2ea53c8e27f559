package main

import (
	"unibook/config"
	"unibook/di"
	"unibook/shared/logger"
)

// @title Unibook API
// @version 1.0
// @description Capacity-safe slot reservation service for a university community platform.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Get()

	logger.InitLogger()

	logger.SetLogLevel(cfg)

	http := di.InitializeService()
	http.Serve()
}
