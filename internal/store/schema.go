package store

// schemaSQL is the canonical schema applied once to a brand-new database
// file (spec.md §4.3 "Opening semantics"). Every subsequent change is an
// idempotent migration in internal/store/migrations, the way beads
// layers numbered migration files over a base schema rather than
// rewriting it in place.
const schemaSQL = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS harnesses (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	provider TEXT NOT NULL DEFAULT '',
	log_format TEXT NOT NULL DEFAULT '',
	display_name TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS workspaces (
	id TEXT PRIMARY KEY,
	path TEXT NOT NULL,
	git_remote TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_workspaces_git_remote ON workspaces(git_remote) WHERE git_remote IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_workspaces_path ON workspaces(path);

CREATE TABLE IF NOT EXISTS models (
	id TEXT PRIMARY KEY,
	raw_name TEXT NOT NULL,
	creator TEXT NOT NULL DEFAULT '',
	family TEXT NOT NULL DEFAULT '',
	version TEXT NOT NULL DEFAULT '',
	variant TEXT NOT NULL DEFAULT '',
	released TEXT NOT NULL DEFAULT '',
	UNIQUE(raw_name)
);

CREATE TABLE IF NOT EXISTS providers (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS tools (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS tool_aliases (
	harness_id TEXT NOT NULL REFERENCES harnesses(id),
	raw_name TEXT NOT NULL,
	canonical_name TEXT NOT NULL,
	PRIMARY KEY (harness_id, raw_name)
);

CREATE TABLE IF NOT EXISTS tags (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS content_blobs (
	hash TEXT PRIMARY KEY,
	payload BLOB NOT NULL,
	ref_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	harness_id TEXT NOT NULL REFERENCES harnesses(id),
	workspace_id TEXT REFERENCES workspaces(id),
	model_id TEXT REFERENCES models(id),
	external_id TEXT NOT NULL,
	started_at TEXT,
	ended_at TEXT,
	UNIQUE(harness_id, external_id)
);
CREATE INDEX IF NOT EXISTS idx_conversations_workspace ON conversations(workspace_id);
CREATE INDEX IF NOT EXISTS idx_conversations_started_at ON conversations(started_at);

CREATE TABLE IF NOT EXISTS prompts (
	id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	prompt_index INTEGER NOT NULL,
	timestamp TEXT
);
CREATE INDEX IF NOT EXISTS idx_prompts_conversation ON prompts(conversation_id, prompt_index);

CREATE TABLE IF NOT EXISTS prompt_content (
	id TEXT PRIMARY KEY,
	prompt_id TEXT NOT NULL REFERENCES prompts(id) ON DELETE CASCADE,
	block_index INTEGER NOT NULL,
	block_type TEXT NOT NULL,
	text TEXT NOT NULL DEFAULT '',
	content_hash TEXT REFERENCES content_blobs(hash),
	raw_json TEXT
);
CREATE INDEX IF NOT EXISTS idx_prompt_content_prompt ON prompt_content(prompt_id, block_index);

CREATE TABLE IF NOT EXISTS responses (
	id TEXT PRIMARY KEY,
	prompt_id TEXT NOT NULL REFERENCES prompts(id) ON DELETE CASCADE,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	model_id TEXT REFERENCES models(id),
	provider_id TEXT REFERENCES providers(id),
	timestamp TEXT,
	input_tokens INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_responses_prompt ON responses(prompt_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_responses_conversation ON responses(conversation_id);

CREATE TABLE IF NOT EXISTS response_attributes (
	response_id TEXT NOT NULL REFERENCES responses(id) ON DELETE CASCADE,
	key TEXT NOT NULL,
	value TEXT,
	PRIMARY KEY (response_id, key)
);

CREATE TABLE IF NOT EXISTS response_content (
	id TEXT PRIMARY KEY,
	response_id TEXT NOT NULL REFERENCES responses(id) ON DELETE CASCADE,
	block_index INTEGER NOT NULL,
	block_type TEXT NOT NULL,
	text TEXT NOT NULL DEFAULT '',
	content_hash TEXT REFERENCES content_blobs(hash),
	raw_json TEXT
);
CREATE INDEX IF NOT EXISTS idx_response_content_response ON response_content(response_id, block_index);

CREATE TABLE IF NOT EXISTS tool_calls (
	id TEXT PRIMARY KEY,
	response_id TEXT NOT NULL REFERENCES responses(id) ON DELETE CASCADE,
	external_id TEXT,
	tool_name TEXT NOT NULL,
	input_json TEXT NOT NULL DEFAULT '{}',
	result_hash TEXT REFERENCES content_blobs(hash),
	result_inline TEXT,
	status TEXT NOT NULL DEFAULT 'success'
);
CREATE INDEX IF NOT EXISTS idx_tool_calls_response ON tool_calls(response_id);
CREATE INDEX IF NOT EXISTS idx_tool_calls_tool_name ON tool_calls(tool_name);

CREATE TABLE IF NOT EXISTS conversation_tags (
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	tag_id TEXT NOT NULL REFERENCES tags(id),
	PRIMARY KEY (conversation_id, tag_id)
);
CREATE TABLE IF NOT EXISTS workspace_tags (
	workspace_id TEXT NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
	tag_id TEXT NOT NULL REFERENCES tags(id),
	PRIMARY KEY (workspace_id, tag_id)
);
CREATE TABLE IF NOT EXISTS tool_call_tags (
	tool_call_id TEXT NOT NULL REFERENCES tool_calls(id) ON DELETE CASCADE,
	tag_id TEXT NOT NULL REFERENCES tags(id),
	PRIMARY KEY (tool_call_id, tag_id)
);
CREATE TABLE IF NOT EXISTS prompt_tags (
	prompt_id TEXT NOT NULL REFERENCES prompts(id) ON DELETE CASCADE,
	tag_id TEXT NOT NULL REFERENCES tags(id),
	PRIMARY KEY (prompt_id, tag_id)
);

CREATE TABLE IF NOT EXISTS ingested_files (
	id TEXT PRIMARY KEY,
	path TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	conversation_id TEXT REFERENCES conversations(id),
	ingested_at TEXT NOT NULL,
	error TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_ingested_files_path_hash ON ingested_files(path, content_hash);

CREATE TABLE IF NOT EXISTS pricing (
	model TEXT NOT NULL,
	provider TEXT NOT NULL,
	input_cost_per_million REAL NOT NULL DEFAULT 0,
	output_cost_per_million REAL NOT NULL DEFAULT 0,
	effective_date TEXT NOT NULL,
	PRIMARY KEY (model, provider, effective_date)
);

CREATE TABLE IF NOT EXISTS active_sessions (
	harness_session_id TEXT PRIMARY KEY,
	adapter_name TEXT NOT NULL,
	workspace_path TEXT NOT NULL,
	started_at TEXT NOT NULL,
	last_seen_at TEXT
);

CREATE TABLE IF NOT EXISTS pending_tags (
	id TEXT PRIMARY KEY,
	harness_session_id TEXT NOT NULL,
	tag_name TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	exchange_index INTEGER,
	created_at TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_pending_tags_dedup ON pending_tags(
	harness_session_id, tag_name, entity_type, COALESCE(exchange_index, -1)
);

-- content_fts is a standalone (non-external-content) FTS5 index: it
-- duplicates prompt_content/response_content text rather than joining
-- back to a content rowid, which keeps rebuild_fts_index (below) a
-- simple drop-and-repopulate instead of a trigger-maintained view.
CREATE VIRTUAL TABLE IF NOT EXISTS content_fts USING fts5(
	content_id UNINDEXED,
	side UNINDEXED,
	conversation_id UNINDEXED,
	text
);
`
