package database

// Timestamps are stored as unix milliseconds so both drivers share the same queries.

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id BIGSERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		api_key TEXT NOT NULL UNIQUE,
		preferred_language TEXT NOT NULL DEFAULT 'ro',
		subscription_status TEXT NOT NULL DEFAULT 'trial',
		subscription_end_date BIGINT,
		translations_used INTEGER NOT NULL DEFAULT 0,
		translations_limit INTEGER NOT NULL DEFAULT 5,
		created_at BIGINT NOT NULL,
		last_active BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS translation_cache (
		cache_key TEXT PRIMARY KEY,
		file_id TEXT NOT NULL,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		translated_content TEXT NOT NULL,
		usage_count BIGINT NOT NULL DEFAULT 1,
		created_at BIGINT NOT NULL,
		last_used BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_translation_cache_created_at ON translation_cache (created_at)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		api_key TEXT NOT NULL UNIQUE,
		preferred_language TEXT NOT NULL DEFAULT 'ro',
		subscription_status TEXT NOT NULL DEFAULT 'trial',
		subscription_end_date INTEGER,
		translations_used INTEGER NOT NULL DEFAULT 0,
		translations_limit INTEGER NOT NULL DEFAULT 5,
		created_at INTEGER NOT NULL,
		last_active INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS translation_cache (
		cache_key TEXT PRIMARY KEY,
		file_id TEXT NOT NULL,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		translated_content TEXT NOT NULL,
		usage_count INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		last_used INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_translation_cache_created_at ON translation_cache (created_at)`,
}
