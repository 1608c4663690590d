// Command liftdb imports competition result feeds and resolves each row to a
// lifter identity. Subcommands cover batch import, single-row resolution
// previews, roster inspection, reprocess-queue management, database
// diagnostics, and configuration utilities.
package main
