package sqlite

// Schema for the identity provider. Timestamps are stored as UTC
// millisecond integers. Uniqueness of cookie values, authorization
// codes, and refresh tokens is enforced by primary keys.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS cookie_bindings (
	value      TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id),
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cookie_bindings_user ON cookie_bindings(user_id);

CREATE TABLE IF NOT EXISTS auth_codes (
	code                  TEXT PRIMARY KEY,
	client_id             TEXT NOT NULL,
	redirect_uri          TEXT NOT NULL,
	code_challenge        TEXT NOT NULL,
	code_challenge_method TEXT NOT NULL,
	user_id               TEXT NOT NULL,
	event_id              TEXT NOT NULL DEFAULT '',
	scope                 TEXT NOT NULL DEFAULT '',
	expires_at            INTEGER NOT NULL,
	created_at            INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS refresh_tokens (
	token      TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	client_id  TEXT NOT NULL,
	scope      TEXT NOT NULL DEFAULT '',
	event_id   TEXT NOT NULL DEFAULT '',
	expires_at INTEGER NOT NULL,
	revoked    INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user ON refresh_tokens(user_id);

CREATE TABLE IF NOT EXISTS gaps (
	id         TEXT PRIMARY KEY,
	event_id   TEXT NOT NULL,
	type       TEXT NOT NULL,
	policy     TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
`
