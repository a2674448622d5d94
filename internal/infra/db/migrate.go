package db

import (
	"database/sql"
)

// MigrateUp creates the news ingestion schema: the news table and its three
// dependent tables (thumbnail, related_tickers, news_sentiment), each keyed
// off news.uuid. Safe to call repeatedly; every statement is IF NOT EXISTS.
func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS news (
    uuid                  TEXT PRIMARY KEY,
    title                 TEXT NOT NULL,
    publisher             TEXT,
    link                  TEXT NOT NULL,
    provider_publish_time BIGINT NOT NULL,
    created_at            BIGINT NOT NULL,
    type                  TEXT NOT NULL DEFAULT 'scrape',
    summary               TEXT,
    body                  TEXT
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS thumbnail (
    thumbnail_id TEXT PRIMARY KEY,
    uuid         TEXT NOT NULL REFERENCES news(uuid) ON DELETE CASCADE,
    url          TEXT NOT NULL,
    width        INTEGER,
    height       INTEGER,
    tag          TEXT
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS related_tickers (
    id       TEXT PRIMARY KEY,
    uuid     TEXT NOT NULL REFERENCES news(uuid) ON DELETE CASCADE,
    ticker   TEXT NOT NULL,
    stock_id TEXT
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS news_sentiment (
    article_uuid      TEXT PRIMARY KEY REFERENCES news(uuid) ON DELETE CASCADE,
    stock_codes       TEXT,
    title             TEXT,
    link              TEXT,
    article           TEXT,
    article_tldr      TEXT,
    sentiment_title   TEXT,
    sentiment_article TEXT
)`); err != nil {
		return err
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_news_provider_publish_time ON news(provider_publish_time DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_news_publisher ON news(publisher)`,
		`CREATE INDEX IF NOT EXISTS idx_thumbnail_uuid ON thumbnail(uuid)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_thumbnail_uuid_url_tag ON thumbnail(uuid, url, tag)`,
		`CREATE INDEX IF NOT EXISTS idx_related_tickers_uuid ON related_tickers(uuid)`,
		`CREATE INDEX IF NOT EXISTS idx_related_tickers_ticker ON related_tickers(ticker)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_related_tickers_uuid_ticker ON related_tickers(uuid, ticker)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	return nil
}

// MigrateDown drops the news ingestion schema. Use with caution: this
// deletes all ingested articles and their dependent rows.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP TABLE IF EXISTS news_sentiment CASCADE`,
		`DROP TABLE IF EXISTS related_tickers CASCADE`,
		`DROP TABLE IF EXISTS thumbnail CASCADE`,
		`DROP TABLE IF EXISTS news CASCADE`,
	}

	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
