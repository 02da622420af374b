// Package migration applies versioned SQL migrations to a SQLite database.
//
// Migration files are read from an fs.FS (usually an embed.FS compiled into the
// binary) and must be named {version}_{description}.sql, e.g.
// "0001_create_snapshots.sql". Applied versions are tracked in the
// schema_migrations table together with the blake2b checksum of the file, so a
// file that was edited after it ran is reported instead of silently skipped.
//
// Example usage:
//
//	manager := migration.NewManager(migration.NewFileScanner(files, "migrations"), migration.NewSQLiteExecutor(db, logger), logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return fmt.Errorf("migrate: %w", err)
//	}
package migration
