package main

import (
	"flag"
	"fmt"
	"io/fs"
	"log"

	"arcade_webapp/internal/config"
	"arcade_webapp/internal/db"
	"arcade_webapp/internal/migrations"
)

func main() {
	apply := flag.Bool("apply", false, "apply pending migrations")
	version := flag.Bool("version", false, "print the applied migration version")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.DatabaseURL == "" && (*apply || *version) {
		log.Fatal("DATABASE_URL not set")
	}

	switch {
	case *apply:
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			log.Fatalf("apply migrations: %v", err)
		}
		fmt.Println("migrations applied")

	case *version:
		v, dirty, err := db.MigrationVersion(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("read version: %v", err)
		}
		fmt.Printf("version=%d dirty=%t\n", v, dirty)

	default:
		files, err := fs.Glob(migrations.FS, "*.up.sql")
		if err != nil {
			log.Fatalf("list migrations: %v", err)
		}
		for _, name := range files {
			fmt.Println(name)
		}
	}
}
