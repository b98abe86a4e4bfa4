package database

type migration struct {
	id   int
	name string
	sql  string
}

var migrations = []migration{
	{
		id:   1,
		name: "initial_schema",
		sql: `
			-- Players table: stores client tokens (no accounts, just tokens)
			CREATE TABLE players (
				id TEXT PRIMARY KEY,
				token TEXT UNIQUE NOT NULL,
				name TEXT NOT NULL,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				last_seen_at DATETIME DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX idx_players_token ON players(token);

			-- Battles table: one row per engagement
			CREATE TABLE battles (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				land TEXT NOT NULL,
				master_hex TEXT NOT NULL DEFAULT '',
				attacker TEXT NOT NULL,
				defender TEXT NOT NULL,
				created_by TEXT,
				status TEXT NOT NULL DEFAULT 'active',
				result_json TEXT,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				ended_at DATETIME
			);
			CREATE INDEX idx_battles_status ON battles(status);

			-- Battle state: the latest engine snapshot as JSON
			CREATE TABLE battle_state (
				battle_id TEXT PRIMARY KEY,
				snapshot_json TEXT NOT NULL,
				turn INTEGER NOT NULL DEFAULT 1,
				phase TEXT NOT NULL DEFAULT '',
				active_side TEXT NOT NULL DEFAULT '',
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				FOREIGN KEY (battle_id) REFERENCES battles(id) ON DELETE CASCADE
			);
		`,
	},
	{
		id:   2,
		name: "add_battle_history",
		sql: `
			-- Battle history: the event log shown to players
			CREATE TABLE battle_history (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				battle_id TEXT NOT NULL,
				turn INTEGER NOT NULL,
				phase TEXT NOT NULL,
				side TEXT NOT NULL,
				event_type TEXT NOT NULL,
				message TEXT NOT NULL,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				FOREIGN KEY (battle_id) REFERENCES battles(id) ON DELETE CASCADE
			);
			CREATE INDEX idx_battle_history_battle ON battle_history(battle_id);
		`,
	},
}
