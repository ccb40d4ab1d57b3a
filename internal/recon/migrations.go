package recon

import (
	"database/sql"

	"github.com/HerbHall/zonemap/internal/store"
)

// migrations returns the snapshot history schema.
func migrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "create recon_snapshots table",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE recon_snapshots (
						id          TEXT PRIMARY KEY,
						zone        TEXT NOT NULL,
						started_at  TEXT NOT NULL,
						duration_ms INTEGER NOT NULL DEFAULT 0,
						devices     INTEGER NOT NULL DEFAULT 0,
						partial     INTEGER NOT NULL DEFAULT 0,
						subnets     INTEGER NOT NULL DEFAULT 0,
						topology    TEXT NOT NULL DEFAULT '{}'
					)`,
					`CREATE INDEX idx_recon_snapshots_zone ON recon_snapshots(zone, started_at)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}
