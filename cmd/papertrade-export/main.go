// papertrade-export archives all settled transactions from the SQLite store
// to per-account monthly parquet files. Re-running it is idempotent: already
// archived transactions are merged by ID.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"papertrade/internal/config"
	"papertrade/internal/store"
	"papertrade/internal/util"
)

func main() {
	cfgPath := "config/papertrade.yaml"
	if p := os.Getenv("PAPERTRADE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level)

	st, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening store: %v", err)
	}
	defer st.Close()

	archive := store.NewTransactionArchive(cfg.Storage.ArchiveDir)
	ctx := context.Background()

	accounts, err := st.ListAccounts(ctx)
	if err != nil {
		log.Fatalf("listing accounts: %v", err)
	}

	var total int
	for _, acct := range accounts {
		txns, err := st.ListTransactions(ctx, acct.ID, 0)
		if err != nil {
			log.Fatalf("listing transactions for %s: %v", acct.ID, err)
		}
		if len(txns) == 0 {
			continue
		}
		if err := archive.WriteTransactions(ctx, txns); err != nil {
			log.Fatalf("archiving transactions for %s: %v", acct.ID, err)
		}
		logger.Info("archived account", "account", acct.ID, "transactions", len(txns))
		total += len(txns)
	}

	fmt.Printf("archived %d transactions for %d accounts to %s\n", total, len(accounts), cfg.Storage.ArchiveDir)
}
