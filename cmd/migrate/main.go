package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"facetrace/internal/database"
)

func main() {
	var (
		dbType         = flag.String("db", "postgres", "Database type (postgres or sqlite)")
		host           = flag.String("host", "localhost", "Database host")
		port           = flag.Int("port", 5432, "Database port")
		user           = flag.String("user", "facetrace", "Database user")
		password       = flag.String("password", "facetrace_dev", "Database password")
		dbName         = flag.String("name", "facetrace", "Database name")
		migrationsPath = flag.String("migrations", "./migrations", "Path to migrations directory")
		status         = flag.Bool("status", false, "Show migration status only")
	)
	flag.Parse()

	config := database.Config{
		Type:     *dbType,
		Host:     *host,
		Port:     *port,
		User:     *user,
		Password: *password,
		Name:     *dbName,
	}

	// Environment overrides flags, matching the server's configuration.
	if env := os.Getenv("DB_TYPE"); env != "" {
		config.Type = env
	}
	if env := os.Getenv("DB_HOST"); env != "" {
		config.Host = env
	}
	if env := os.Getenv("DB_USER"); env != "" {
		config.User = env
	}
	if env := os.Getenv("DB_PASSWORD"); env != "" {
		config.Password = env
	}
	if env := os.Getenv("DB_NAME"); env != "" {
		config.Name = env
	}

	db, err := database.NewDB(config)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	migrator := database.NewMigrator(db.Conn(), config.Type)

	if *status {
		if err := migrator.Initialize(); err != nil {
			log.Fatal("Failed to initialize migrator:", err)
		}

		applied, err := migrator.GetAppliedMigrations()
		if err != nil {
			log.Fatal("Failed to get applied migrations:", err)
		}

		migrations, err := migrator.LoadMigrations(*migrationsPath)
		if err != nil {
			log.Fatal("Failed to load migrations:", err)
		}

		fmt.Println("Migration Status:")
		fmt.Println("=================")
		for _, m := range migrations {
			status := "pending"
			if applied[m.Version] {
				status = "applied"
			}
			fmt.Printf("%s - %s [%s]\n", m.Version, m.Name, status)
		}
	} else {
		fmt.Printf("Running migrations from %s...\n", *migrationsPath)
		if err := db.RunMigrations(*migrationsPath); err != nil {
			log.Fatal("Failed to run migrations:", err)
		}
		fmt.Println("Migrations completed successfully!")
	}
}
