package storage

const schema = `
-- FIFO queue of remote operations awaiting a confirmed write.
CREATE TABLE IF NOT EXISTS pending_operations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    type TEXT NOT NULL,
    payload TEXT NOT NULL,
    enqueued_at TEXT NOT NULL
);

-- Per-day local review counters. all_due_completed has its own write path
-- and is never touched by counter increments.
CREATE TABLE IF NOT EXISTS local_day_stats (
    day TEXT PRIMARY KEY,
    reviews INTEGER NOT NULL DEFAULT 0,
    correct INTEGER NOT NULL DEFAULT 0,
    lapses INTEGER NOT NULL DEFAULT 0,
    all_due_completed INTEGER
);

-- Offline snapshot of each deck, stored in the in-memory JSON shape so the
-- dirty flags survive restarts.
CREATE TABLE IF NOT EXISTS deck_cache (
    id TEXT PRIMARY KEY,
    payload TEXT NOT NULL,
    saved_at TEXT NOT NULL
);
`
