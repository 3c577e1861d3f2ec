package sqlite

// Connection pragmas applied on Attach.
var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 5000",
}

// Schema DDL. seq records insertion order and breaks stored_at ties so that
// eviction is strictly oldest-first.
const (
	createTranslations = `CREATE TABLE IF NOT EXISTS translations (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    cache_key TEXT NOT NULL UNIQUE,
    text TEXT NOT NULL,
    stored_at INTEGER NOT NULL
);`

	idxTranslationsStoredAt = `CREATE INDEX IF NOT EXISTS idx_translations_stored_at ON translations(stored_at, seq);`
)

var schemaDDL = []string{
	createTranslations,
	idxTranslationsStoredAt,
}
