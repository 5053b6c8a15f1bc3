package audit

// Schema statements executed on open. Both tables are append-only; the
// retention pruner is the only deleter.
const (
	createEvaluationsTable = `
CREATE TABLE IF NOT EXISTS rule_evaluations (
	id         TEXT PRIMARY KEY,
	rule_id    TEXT NOT NULL,
	rule_name  TEXT NOT NULL,
	passed     INTEGER NOT NULL,
	action     TEXT NOT NULL DEFAULT '',
	context    TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);`

	createEvaluationsIndex = `
CREATE INDEX IF NOT EXISTS idx_rule_evaluations_created_at
	ON rule_evaluations(created_at);`

	createDecisionsTable = `
CREATE TABLE IF NOT EXISTS policy_decisions (
	id          TEXT PRIMARY KEY,
	request_id  TEXT NOT NULL,
	subject     TEXT NOT NULL,
	org         TEXT NOT NULL,
	policy_hash TEXT NOT NULL,
	decision    TEXT NOT NULL,
	reason      TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMP NOT NULL
);`

	createDecisionsIndex = `
CREATE INDEX IF NOT EXISTS idx_policy_decisions_created_at
	ON policy_decisions(created_at);`
)

var schemaStatements = []string{
	createEvaluationsTable,
	createEvaluationsIndex,
	createDecisionsTable,
	createDecisionsIndex,
}
