package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"

	"github.com/devlens/devlens/internal/adapter/auth"
)

// Issues a service API key bound to one tenant. The secret is printed once
// and only its bcrypt hash is stored.
func main() {
	tenant := flag.String("tenant", "", "tenant the key is bound to")
	name := flag.String("name", "", "human-readable key name")
	flag.Parse()

	if *tenant == "" || *name == "" {
		flag.Usage()
		os.Exit(2)
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	key, err := auth.NewAPIKeyStore(db).Create(context.Background(), *tenant, *name)
	if err != nil {
		log.Fatalf("failed to create API key: %v", err)
	}

	fmt.Printf("API key for tenant %s (%s):\n\n  %s\n\nStore it now; the secret cannot be recovered.\n", *tenant, *name, key)
}
