// Package database opens the SQLite database behind the exchange journal
// and applies its schema migrations.
//
// Open sets WAL mode and a busy timeout, restricts the file to its owner
// and limits the pool to one connection, matching SQLite's single writer.
// Migrations are read from any fs.FS (the migrations package embeds them).
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Journal.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
