package main

import (
	"context"

	"github.com/iot-for-tillgenglighet/messaging-golang/pkg/messaging"

	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/application"
	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/demodata"
	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/infrastructure/config"
	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/infrastructure/logging"
	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/infrastructure/repositories/database"
)

func main() {

	serviceName := "streetlight-energy"

	log := logging.NewLogger()
	log.Infof("Starting up %s ...", serviceName)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %s", err.Error())
	}

	logging.SetLevel(cfg.LogLevel)

	connector := database.NewPostgreSQLConnector(cfg.PostgresDSN(), log)
	if cfg.DBDriver == "sqlite" {
		connector = database.NewSQLiteConnector(cfg.SQLiteDSN)
	}

	db, err := database.NewDatabaseConnection(connector, log)
	if err != nil {
		log.Fatalf("Failed to connect to the database: %s", err.Error())
	}

	if cfg.SeedDemoData {
		seeder := demodata.NewSeeder(db, log, demodata.WithLocation(cfg.Location))
		if err = seeder.Seed(context.Background()); err != nil {
			log.Fatalf("Failed to seed demo data: %s", err.Error())
		}
	}

	var messenger application.MessagingContext

	if cfg.MessagingEnabled {
		mc, err := messaging.Initialize(messaging.LoadConfiguration(serviceName))
		if err != nil {
			log.Fatalf("Failed to initialize messaging: %s", err.Error())
		}
		defer mc.Close()

		messenger = mc
	}

	application.CreateRouterAndStartServing(cfg, log, messenger, db)
}
