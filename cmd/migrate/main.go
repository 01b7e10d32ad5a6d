// Command migrate upgrades an invoices table created before payment
// tracking existed. The server's AutoMigrate covers fresh databases.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/urfave/cli/v2"
)

type step struct {
	name string
	sql  string
}

// paymentColumns lists the columns added for payment tracking, in order
var paymentColumns = []step{
	{"payment_status", "ALTER TABLE invoices ADD COLUMN payment_status VARCHAR(16) NOT NULL DEFAULT 'unpaid'"},
	{"payment_proof_path", "ALTER TABLE invoices ADD COLUMN payment_proof_path VARCHAR(512)"},
	{"payment_date", "ALTER TABLE invoices ADD COLUMN payment_date VARCHAR(32)"},
	{"paid_amount", "ALTER TABLE invoices ADD COLUMN paid_amount NUMERIC(14,2) NOT NULL DEFAULT 0"},
	{"credit", "ALTER TABLE invoices ADD COLUMN credit NUMERIC(14,2) NOT NULL DEFAULT 0"},
}

const createPaymentRecords = `CREATE TABLE IF NOT EXISTS payment_records (
	id BIGSERIAL PRIMARY KEY,
	created_at TIMESTAMPTZ,
	updated_at TIMESTAMPTZ,
	deleted_at TIMESTAMPTZ,
	invoice_id BIGINT NOT NULL,
	payment_amount NUMERIC(14,2) NOT NULL,
	payment_date VARCHAR(32) NOT NULL,
	payment_proof_path VARCHAR(512),
	notes TEXT
)`

const indexPaymentRecords = `CREATE INDEX IF NOT EXISTS idx_payment_records_invoice_id ON payment_records (invoice_id)`

const backfillStatus = `UPDATE invoices SET payment_status = 'unpaid' WHERE payment_status IS NULL OR payment_status = ''`

func main() {
	app := &cli.App{
		Name:  "migrate",
		Usage: "add payment tracking columns to an existing invoice database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "PostgreSQL connection string",
				EnvVars:  []string{"DATABASE_URL"},
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "print the statements without executing them",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "overall migration timeout",
				Value: time.Minute,
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("[MIGRATE] %v", err)
	}
}

func run(c *cli.Context) error {
	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	db, err := sql.Open("postgres", c.String("database-url"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	existing, err := invoiceColumns(ctx, db)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		log.Printf("[MIGRATE] invoices table not found, nothing to migrate; the server creates it on start")
		return nil
	}

	steps := plan(existing)
	if c.Bool("dry-run") {
		for _, s := range steps {
			fmt.Println(s.sql + ";")
		}
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	for _, s := range steps {
		log.Printf("[MIGRATE] %s", s.name)
		if _, err := tx.ExecContext(ctx, s.sql); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	log.Printf("[MIGRATE] done, %d statement(s) applied", len(steps))
	return nil
}

func invoiceColumns(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = 'invoices'`)
	if err != nil {
		return nil, fmt.Errorf("failed to read invoices columns: %w", err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// plan returns the statements needed to bring a table with the given
// columns up to date. Already present columns are skipped.
func plan(existing map[string]bool) []step {
	var steps []step
	for _, col := range paymentColumns {
		if !existing[col.name] {
			steps = append(steps, step{name: "add column " + col.name, sql: col.sql})
		}
	}
	steps = append(steps,
		step{name: "backfill payment_status", sql: backfillStatus},
		step{name: "create payment_records", sql: createPaymentRecords},
		step{name: "index payment_records", sql: indexPaymentRecords},
	)
	return steps
}
