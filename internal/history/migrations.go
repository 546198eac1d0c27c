package history

import (
	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
)

func Migrations(log logs.Log) []migration.Migrator {
	migs := []migration.Migrator{}
	idx := 0

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE record(
			id INTEGER PRIMARY KEY,
			filename TEXT NOT NULL,
			prediction TEXT NOT NULL,
			confidence REAL NOT NULL,
			raw_score REAL NOT NULL,
			time INT NOT NULL,
			image BLOB
		);

		CREATE INDEX idx_record_time ON record (time);
	`))

	return migs
}
