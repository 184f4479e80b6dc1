// Applies a SQL migration file to the configured database.
// Usage: migrate [migration_file.sql] (defaults to migrations/schema.sql)
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"aquaflow/internal/config"

	_ "github.com/lib/pq"
)

func main() {
	migrationFile := "migrations/schema.sql"
	if len(os.Args) > 1 {
		migrationFile = os.Args[1]
	}

	sqlContent, err := os.ReadFile(migrationFile)
	if err != nil {
		log.Fatalf("Failed to read migration file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.GetDSN())
	if err != nil {
		log.Fatalf("Cannot open database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}

	fmt.Printf("Connected to database: %s\n", cfg.Database.Database)

	statements := strings.Split(string(sqlContent), ";")
	applied := 0
	for _, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" || strings.HasPrefix(stmt, "--") {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("Failed to execute statement %q: %v", firstLine(stmt), err)
		}
		applied++
	}

	fmt.Printf("Applied %d statements from %s\n", applied, migrationFile)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
