package storage

import (
	"database/sql"
	"time"

	"github.com/danmaku-hub/aggregator/internal/domain"
)

// CreateTaskHistory inserts a new TaskHistory row in the queued state and
// returns its id (spec §4.4: "every state change and every progress
// update is persisted").
func (db *DB) CreateTaskHistory(title string) (int64, error) {
	res, err := db.Exec(`
		INSERT INTO task_history (title, status, progress) VALUES (?, ?, 0)`,
		title, domain.TaskStatusQueued)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateTaskProgress records a progress-callback update without changing
// status.
func (db *DB) UpdateTaskProgress(taskID int64, progress int, description string) error {
	_, err := db.Exec(`
		UPDATE task_history SET progress = ?, description = ? WHERE task_id = ?`,
		progress, description, taskID)
	return err
}

// SetTaskStatus transitions a task's status; completed/failed also set
// finished_at. Transitions are expected to be monotonic
// (queued -> running -> completed|failed); the caller enforces that.
func (db *DB) SetTaskStatus(taskID int64, status domain.TaskStatus, description string) error {
	if status == domain.TaskStatusCompleted || status == domain.TaskStatusFailed {
		_, err := db.Exec(`
			UPDATE task_history SET status = ?, description = ?, finished_at = ? WHERE task_id = ?`,
			status, description, time.Now(), taskID)
		return err
	}
	_, err := db.Exec(`UPDATE task_history SET status = ?, description = ? WHERE task_id = ?`, status, description, taskID)
	return err
}

func (db *DB) GetTaskHistory(taskID int64) (*domain.TaskHistory, error) {
	var t domain.TaskHistory
	var status string
	var finishedAt sql.NullTime
	err := db.QueryRow(`
		SELECT task_id, title, status, progress, description, created_at, finished_at
		FROM task_history WHERE task_id = ?`, taskID,
	).Scan(&t.TaskID, &t.Title, &status, &t.Progress, &t.Description, &t.CreatedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Status = domain.TaskStatus(status)
	if finishedAt.Valid {
		t.FinishedAt = &finishedAt.Time
	}
	return &t, nil
}

func (db *DB) ListTaskHistory(limit int) ([]domain.TaskHistory, error) {
	rows, err := db.Query(`
		SELECT task_id, title, status, progress, description, created_at, finished_at
		FROM task_history ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TaskHistory
	for rows.Next() {
		var t domain.TaskHistory
		var status string
		var finishedAt sql.NullTime
		if err := rows.Scan(&t.TaskID, &t.Title, &status, &t.Progress, &t.Description, &t.CreatedAt, &finishedAt); err != nil {
			return nil, err
		}
		t.Status = domain.TaskStatus(status)
		if finishedAt.Valid {
			t.FinishedAt = &finishedAt.Time
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpsertScheduledTask creates or updates a cron job registration.
func (db *DB) UpsertScheduledTask(name, jobType, cronExpr string, enabled bool) (int64, error) {
	_, err := db.Exec(`
		INSERT INTO scheduled_tasks (name, job_type, cron_expression, enabled)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET job_type = excluded.job_type,
			cron_expression = excluded.cron_expression, enabled = excluded.enabled`,
		name, jobType, cronExpr, enabled)
	if err != nil {
		return 0, err
	}
	var id int64
	err = db.QueryRow(`SELECT id FROM scheduled_tasks WHERE name = ?`, name).Scan(&id)
	return id, err
}

func (db *DB) ListScheduledTasks() ([]domain.ScheduledTask, error) {
	rows, err := db.Query(`
		SELECT id, name, job_type, cron_expression, enabled, last_run, next_run
		FROM scheduled_tasks ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ScheduledTask
	for rows.Next() {
		var t domain.ScheduledTask
		var lastRun, nextRun sql.NullTime
		if err := rows.Scan(&t.ID, &t.Name, &t.JobType, &t.CronExpression, &t.Enabled, &lastRun, &nextRun); err != nil {
			return nil, err
		}
		if lastRun.Valid {
			t.LastRun = &lastRun.Time
		}
		if nextRun.Valid {
			t.NextRun = &nextRun.Time
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// RecordScheduledTaskRun updates last_run/next_run on both execution and
// error (spec §4.5).
func (db *DB) RecordScheduledTaskRun(id int64, lastRun, nextRun time.Time) error {
	_, err := db.Exec(`UPDATE scheduled_tasks SET last_run = ?, next_run = ? WHERE id = ?`, lastRun, nextRun, id)
	return err
}

// SetScheduledTaskNextRun implements RunNow(task_id): advance the job's
// next fire time to now.
func (db *DB) SetScheduledTaskNextRun(id int64, nextRun time.Time) error {
	_, err := db.Exec(`UPDATE scheduled_tasks SET next_run = ? WHERE id = ?`, nextRun, id)
	return err
}
