package main

import (
	"context"
	"flag"
	"log"

	"github.com/joho/godotenv"

	"github.com/dmehra/oddsradar/internal/config"
	sqlstore "github.com/dmehra/oddsradar/internal/storage/sqlite"
)

func main() {
	drop := flag.Bool("drop", false, "drop all tables before creating")
	flag.Parse()

	godotenv.Load()
	cfg := config.Load("migrate")

	store, err := sqlstore.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("open sqlite: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if *drop {
		if err := store.DropTables(ctx); err != nil {
			log.Fatalf("drop tables: %v", err)
		}
		log.Printf("tables dropped")
	}
	if err := store.CreateTables(ctx); err != nil {
		log.Fatalf("create tables: %v", err)
	}
	log.Printf("schema ready at %s", cfg.SQLitePath)
}
