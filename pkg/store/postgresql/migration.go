package postgresql

// migrations returns the schema migrations for the PostgreSQL store, keyed by
// version.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS application_states (
				application_id   VARCHAR(255) PRIMARY KEY,
				template_id      VARCHAR(255) NOT NULL,
				template_version INTEGER NOT NULL,
				current_stage_id VARCHAR(255) NOT NULL,
				entered_at       TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_application_states_stage
				ON application_states (template_id, template_version, current_stage_id);

			CREATE TABLE IF NOT EXISTS application_history (
				id              VARCHAR(255) PRIMARY KEY,
				application_id  VARCHAR(255) NOT NULL REFERENCES application_states (application_id),
				stage_id        VARCHAR(255) NOT NULL,
				entered_at      TIMESTAMP WITH TIME ZONE NOT NULL,
				exited_at       TIMESTAMP WITH TIME ZONE,
				transition_name VARCHAR(255) NOT NULL,
				triggered_by    VARCHAR(255) NOT NULL,
				position        INTEGER NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_application_history_app
				ON application_history (application_id, position);

			CREATE TABLE IF NOT EXISTS application_leases (
				application_id VARCHAR(255) PRIMARY KEY,
				holder_token   VARCHAR(255) NOT NULL,
				expires_at     TIMESTAMP WITH TIME ZONE NOT NULL
			);
		`,
	}
}
