// Command import_members loads members from a CSV export into MongoDB.
//
//	go run ./cmd/scripts members.csv
package main

import (
	"context"
	"os"

	"github.com/pulsefit/retention-backend/internal/config"
	mongorepo "github.com/pulsefit/retention-backend/internal/repositories/mongodb"
	"github.com/pulsefit/retention-backend/internal/utils"
	mongodb "github.com/pulsefit/retention-backend/pkg/mongodb"
	"golang.org/x/exp/slog"
)

func main() {
	if len(os.Args) < 2 {
		slog.Error("CSV file path is required as a command line argument")
		os.Exit(2)
	}
	csvFilePath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	client, err := mongodb.NewClient(ctx, cfg.MongoDB.URI)
	if err != nil {
		slog.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.MongoDB.Database)
	if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
		slog.Error("Failed to create MongoDB indexes", "error", err)
		os.Exit(1)
	}

	file, err := os.Open(csvFilePath)
	if err != nil {
		slog.Error("Failed to open CSV file", "error", err, "path", csvFilePath)
		os.Exit(1)
	}
	defer file.Close()

	result, err := utils.NewMemberImporter(mongorepo.NewMemberRepository(db)).Import(ctx, file)
	if err != nil {
		slog.Error("Failed to import members", "error", err)
		os.Exit(1)
	}
	for _, rowErr := range result.Errors {
		slog.Warn("Skipped row", "error", rowErr)
	}
	slog.Info("Members imported", "created", result.MembersCreated, "updated", result.MembersUpdated, "skipped", len(result.Errors))
}
