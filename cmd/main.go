package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"EstateDesk/internal/appmanager"
	"EstateDesk/internal/config"
)

// openLedger opens the optional sign-in ledger.
func openLedger(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, nil
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// openAuditPool opens the optional audit database.
func openAuditPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	if url == "" {
		return nil, nil
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 4
	return pgxpool.NewWithConfig(ctx, cfg)
}

// existing filters out env files that are not there, so one missing file
// does not stop the next from loading.
func existing(paths ...string) []string {
	var out []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	settings := config.Load(existing(".env", "../.env")...)
	if len(settings.CMSServers) == 0 {
		log.Fatal("CMS_SERVER (or NEXT_PUBLIC_CMS_SERVER) is not set")
	}

	db, err := openLedger(settings.LedgerDSN)
	if err != nil {
		log.Fatal("failed to open ledger DB:", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	pool, err := openAuditPool(ctx, settings.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatal("failed to connect to audit DB:", err)
	}

	manager := appmanager.NewAppManager(settings, db, pool)

	servicesCfg, err := appmanager.LoadServiceSequence(settings.ServicesFile)
	if err != nil {
		log.Fatal("failed to load service sequence:", err)
	}
	if err := manager.AutoRegisterServices(servicesCfg); err != nil {
		log.Fatal("failed to build services:", err)
	}
	if err := manager.StartAll(); err != nil {
		log.Fatal("failed to start:", err)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	if err := manager.StopAll(); err != nil {
		log.Println("failed to stop cleanly:", err)
	}
	if pool != nil {
		pool.Close()
	}
	if db != nil {
		db.Close()
	}
}
