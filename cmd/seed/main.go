// Command seed creates chat groups from a JSON file of the form
// [{"id":"optional","name":"Lobby","lat":52.5,"lng":13.3}, ...].
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"go.uber.org/zap"

	"map-chat/internal/storage"
)

func main() {
	file := flag.String("file", "groups.json", "Path to the JSON file with groups")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("zap.NewDevelopment: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	data, err := os.ReadFile(*file)
	if err != nil {
		sugar.Fatalf("Cannot read %s: %v", *file, err)
	}

	groups, err := parseSeed(data)
	if err != nil {
		sugar.Fatalf("Cannot parse %s: %v", *file, err)
	}

	dbCfg := storage.Config{}
	if err := env.Parse(&dbCfg); err != nil {
		sugar.Fatalf("Cannot parse database config: %v", err)
	}

	ctx := context.Background()
	store, err := storage.New(ctx, sugar, dbCfg, storage.ConnectionTimeout(30*time.Second))
	if err != nil {
		sugar.Fatalf("Cannot create Store instance: %v", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		sugar.Fatalf("Cannot migrate database: %v", err)
	}

	ids, err := store.CreateGroups(ctx, groups)
	if err != nil {
		sugar.Fatalf("Cannot create groups: %v", err)
	}

	for i, id := range ids {
		sugar.Infof("Created group %q (id: %s)", groups[i].Name, id)
	}
}
