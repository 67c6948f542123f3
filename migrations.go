package shareit

import "embed"

// MigrationsFS holds the SQL migrations for every supported ledger dialect,
// one directory per dialect under migrations/.
//
//go:embed migrations
var MigrationsFS embed.FS
