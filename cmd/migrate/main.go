package main

import (
	"flag"
	"log"
	"os"

	"github.com/courtside/courtside-chat/internal/config"
	"github.com/courtside/courtside-chat/internal/migration"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "configs/config.local.yaml", "config file path")
	withDirectory := flag.Bool("with-directory", false, "also create and seed the profile/group tables (local development only)")
	verify := flag.Bool("verify", false, "run integrity checks instead of migrating")
	verbose := flag.Bool("verbose", false, "verbose SQL logging")
	flag.Parse()

	config.LoadDotEnv()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logLevel := gormlogger.Warn
	if *verbose {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(mysql.Open(cfg.Database.GetDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get underlying DB: %v", err)
	}
	defer sqlDB.Close()

	if *verify {
		if !runVerify(db) {
			sqlDB.Close() //nolint:errcheck
			os.Exit(1)
		}
		return
	}

	log.Println("[migrate] Creating chat tables")
	if err := migration.Run(db); err != nil {
		log.Fatalf("[migrate] FAILED: %v", err)
	}

	if *withDirectory {
		if !cfg.IsDevelopment() {
			log.Fatalf("[migrate] -with-directory is only allowed in development (env=%s)", cfg.Server.Env)
		}
		log.Println("[migrate] Creating directory tables and demo data")
		if err := migration.RunDirectory(db); err != nil {
			log.Fatalf("[migrate] FAILED directory: %v", err)
		}
	}

	log.Println("[migrate] Done")
}

func runVerify(db *gorm.DB) bool {
	log.Println("[verify] Checking chat tables...")

	checks, err := migration.Verify(db)
	if err != nil {
		log.Printf("[verify] FAILED: %v", err)
		return false
	}

	ok := true
	for _, c := range checks {
		status := "OK"
		if c.Failed() {
			status = "MISMATCH"
			ok = false
		}
		log.Printf("[verify] %-36s %8d  %s", c.Label, c.Count, status)
	}
	return ok
}
