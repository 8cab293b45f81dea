package store

// SQL query constants. PostgresStore methods reference these.

// Event queries.
const (
	queryInsertSearchEvent = `
		INSERT INTO search_events (id, term, offset_value, limit_value, results, cached, status, created_at)
		VALUES (@id, @term, @offset_value, @limit_value, @results, @cached, @status, @created_at)`

	queryInsertClickEvent = `
		INSERT INTO click_events (id, target_url, item_id, created_at)
		VALUES (@id, @target_url, @item_id, @created_at)`

	queryTopQueries = `
		SELECT lower(term) AS term, COUNT(*) AS n
		FROM search_events
		WHERE created_at >= $1 AND status = 200
		GROUP BY lower(term)
		ORDER BY n DESC, term ASC
		LIMIT $2`
)

// Scheduler lock queries.
const (
	queryAcquireSchedulerLock = `
		INSERT INTO scheduler_locks (job_name, lock_holder, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (job_name) DO UPDATE
			SET locked_at   = now(),
				lock_holder = EXCLUDED.lock_holder,
				expires_at  = EXCLUDED.expires_at
			WHERE scheduler_locks.expires_at < now()
		RETURNING job_name`

	queryReleaseSchedulerLock = `
		DELETE FROM scheduler_locks WHERE job_name = $1 AND lock_holder = $2`
)
