package tasks

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhive/taskhive/internal/platform/db"
	"github.com/taskhive/taskhive/internal/shared"
)

var (
	// ErrNotFound indicates that the requested task or activity does not exist.
	ErrNotFound = errors.New("tasks: not found")
)

const taskColumns = `id, company_id, department_id, kind, title, description, status, priority, due_date, created_by, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for tasks and
// activities.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get fetches a task with its assignee set.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	task, err := scanTask(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return Task{}, err
	}
	assignees, err := r.assigneesFor(ctx, []uuid.UUID{task.ID})
	if err != nil {
		return Task{}, err
	}
	task.Assignees = assignees[task.ID]
	if task.Kind == KindAssigned && task.Assignees == nil {
		task.Assignees = []uuid.UUID{}
	}
	return task, nil
}

// ListByDepartment pages tasks of one kind within a department.
func (r *Repository) ListByDepartment(ctx context.Context, companyID, departmentID uuid.UUID, kind Kind, page shared.PageRequest) ([]Task, int, error) {
	const countQuery = `SELECT count(*) FROM tasks WHERE company_id = $1 AND department_id = $2 AND kind = $3`
	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE company_id = $1 AND department_id = $2 AND kind = $3
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`
	return r.page(ctx, countQuery, query,
		[]any{companyID, departmentID, string(kind)},
		[]any{companyID, departmentID, string(kind), page.PerPage, page.Offset()})
}

// ListByCompany pages tasks of one kind across the whole company.
func (r *Repository) ListByCompany(ctx context.Context, companyID uuid.UUID, kind Kind, page shared.PageRequest) ([]Task, int, error) {
	const countQuery = `SELECT count(*) FROM tasks WHERE company_id = $1 AND kind = $2`
	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE company_id = $1 AND kind = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`
	return r.page(ctx, countQuery, query,
		[]any{companyID, string(kind)},
		[]any{companyID, string(kind), page.PerPage, page.Offset()})
}

// ListAssignedTo pages assigned tasks carrying the user in their assignee
// set, regardless of department. This implements the self-assignment read
// scope as a query filter.
func (r *Repository) ListAssignedTo(ctx context.Context, companyID, userID uuid.UUID, page shared.PageRequest) ([]Task, int, error) {
	const countQuery = `
		SELECT count(*)
		FROM tasks t
		JOIN task_assignees a ON a.task_id = t.id
		WHERE t.company_id = $1 AND a.user_id = $2 AND t.kind = 'assigned'`
	const query = `SELECT t.id, t.company_id, t.department_id, t.kind, t.title, t.description, t.status, t.priority, t.due_date, t.created_by, t.created_at, t.updated_at
		FROM tasks t
		JOIN task_assignees a ON a.task_id = t.id
		WHERE t.company_id = $1 AND a.user_id = $2 AND t.kind = 'assigned'
		ORDER BY t.created_at DESC
		LIMIT $3 OFFSET $4`
	return r.page(ctx, countQuery, query,
		[]any{companyID, userID},
		[]any{companyID, userID, page.PerPage, page.Offset()})
}

// Create inserts a task and its assignee set in one transaction.
func (r *Repository) Create(ctx context.Context, task Task) (Task, error) {
	var created Task
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO tasks (company_id, department_id, kind, title, description, status, priority, due_date, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING ` + taskColumns
		var err error
		created, err = scanTask(tx.QueryRow(ctx, query,
			task.CompanyID, task.DepartmentID, string(task.Kind), task.Title, task.Description,
			string(task.Status), string(task.Priority), task.DueDate, task.CreatedBy))
		if err != nil {
			return err
		}
		return insertAssignees(ctx, tx, created.ID, task.Assignees)
	})
	if err != nil {
		return Task{}, err
	}
	created.Assignees = task.Assignees
	if created.Kind == KindAssigned && created.Assignees == nil {
		created.Assignees = []uuid.UUID{}
	}
	return created, nil
}

// Update rewrites the mutable fields and, when assignees is non-nil,
// replaces the assignee set in the same transaction.
func (r *Repository) Update(ctx context.Context, task Task, assignees []uuid.UUID) (Task, error) {
	var updated Task
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			UPDATE tasks
			SET title = $2, description = $3, status = $4, priority = $5, due_date = $6, updated_at = now()
			WHERE id = $1
			RETURNING ` + taskColumns
		var err error
		updated, err = scanTask(tx.QueryRow(ctx, query,
			task.ID, task.Title, task.Description, string(task.Status), string(task.Priority), task.DueDate))
		if err != nil {
			return err
		}
		if assignees != nil {
			if _, err := tx.Exec(ctx, `DELETE FROM task_assignees WHERE task_id = $1`, task.ID); err != nil {
				return err
			}
			if err := insertAssignees(ctx, tx, task.ID, assignees); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Task{}, err
	}
	if assignees != nil {
		updated.Assignees = assignees
	} else {
		updated.Assignees = task.Assignees
	}
	return updated, nil
}

// Delete removes a task. Returns ErrNotFound if nothing was deleted.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountOpenForUser counts open assigned tasks for one user.
func (r *Repository) CountOpenForUser(ctx context.Context, companyID, userID uuid.UUID) (int, error) {
	const query = `
		SELECT count(*)
		FROM tasks t
		JOIN task_assignees a ON a.task_id = t.id
		WHERE t.company_id = $1 AND a.user_id = $2 AND t.status IN ('open', 'in_progress')`
	var n int
	if err := r.pool.QueryRow(ctx, query, companyID, userID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CountOpenForDepartment counts open tasks of every kind in one department.
func (r *Repository) CountOpenForDepartment(ctx context.Context, companyID, departmentID uuid.UUID) (int, error) {
	const query = `
		SELECT count(*)
		FROM tasks
		WHERE company_id = $1 AND department_id = $2 AND status IN ('open', 'in_progress')`
	var n int
	if err := r.pool.QueryRow(ctx, query, companyID, departmentID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CountOpenForCompany counts open tasks of every kind across the company.
func (r *Repository) CountOpenForCompany(ctx context.Context, companyID uuid.UUID) (int, error) {
	const query = `
		SELECT count(*)
		FROM tasks
		WHERE company_id = $1 AND status IN ('open', 'in_progress')`
	var n int
	if err := r.pool.QueryRow(ctx, query, companyID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// GetActivity fetches an activity row.
func (r *Repository) GetActivity(ctx context.Context, id uuid.UUID) (Activity, error) {
	const query = `
		SELECT id, task_id, company_id, performed_by, note, minutes, created_at, updated_at
		FROM task_activities
		WHERE id = $1
	`
	return scanActivity(r.pool.QueryRow(ctx, query, id))
}

// ListActivities returns the activity log of a task, oldest first.
func (r *Repository) ListActivities(ctx context.Context, taskID uuid.UUID) ([]Activity, error) {
	const query = `
		SELECT id, task_id, company_id, performed_by, note, minutes, created_at, updated_at
		FROM task_activities
		WHERE task_id = $1
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	acts := make([]Activity, 0)
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.TaskID, &a.CompanyID, &a.PerformedBy, &a.Note, &a.Minutes, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		acts = append(acts, a)
	}
	return acts, rows.Err()
}

// CreateActivity appends a work log entry.
func (r *Repository) CreateActivity(ctx context.Context, activity Activity) (Activity, error) {
	const query = `
		INSERT INTO task_activities (task_id, company_id, performed_by, note, minutes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, task_id, company_id, performed_by, note, minutes, created_at, updated_at
	`
	return scanActivity(r.pool.QueryRow(ctx, query,
		activity.TaskID, activity.CompanyID, activity.PerformedBy, activity.Note, activity.Minutes))
}

// UpdateActivity rewrites the note and minutes of an entry.
func (r *Repository) UpdateActivity(ctx context.Context, id uuid.UUID, note string, minutes int) (Activity, error) {
	const query = `
		UPDATE task_activities
		SET note = $2, minutes = $3, updated_at = now()
		WHERE id = $1
		RETURNING id, task_id, company_id, performed_by, note, minutes, created_at, updated_at
	`
	return scanActivity(r.pool.QueryRow(ctx, query, id, note, minutes))
}

// DeleteActivity removes an entry. Returns ErrNotFound if nothing was deleted.
func (r *Repository) DeleteActivity(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM task_activities WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) page(ctx context.Context, countQuery, query string, countArgs, args []any) ([]Task, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := make([]Task, 0)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		task, err := scanTaskRows(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, task)
		ids = append(ids, task.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	assignees, err := r.assigneesFor(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range list {
		list[i].Assignees = assignees[list[i].ID]
		if list[i].Kind == KindAssigned && list[i].Assignees == nil {
			list[i].Assignees = []uuid.UUID{}
		}
	}
	return list, total, nil
}

func (r *Repository) assigneesFor(ctx context.Context, taskIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	result := make(map[uuid.UUID][]uuid.UUID, len(taskIDs))
	if len(taskIDs) == 0 {
		return result, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT task_id, user_id FROM task_assignees WHERE task_id = ANY($1)`, taskIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var taskID, userID uuid.UUID
		if err := rows.Scan(&taskID, &userID); err != nil {
			return nil, err
		}
		result[taskID] = append(result[taskID], userID)
	}
	return result, rows.Err()
}

func insertAssignees(ctx context.Context, tx pgx.Tx, taskID uuid.UUID, assignees []uuid.UUID) error {
	for _, userID := range assignees {
		if _, err := tx.Exec(ctx,
			`INSERT INTO task_assignees (task_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			taskID, userID); err != nil {
			return err
		}
	}
	return nil
}

func scanTask(row pgx.Row) (Task, error) {
	var t Task
	var kind, status, priority string
	err := row.Scan(&t.ID, &t.CompanyID, &t.DepartmentID, &kind, &t.Title, &t.Description,
		&status, &priority, &t.DueDate, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, err
	}
	t.Kind, t.Status, t.Priority = Kind(kind), Status(status), Priority(priority)
	return t, nil
}

func scanTaskRows(rows pgx.Rows) (Task, error) {
	var t Task
	var kind, status, priority string
	err := rows.Scan(&t.ID, &t.CompanyID, &t.DepartmentID, &kind, &t.Title, &t.Description,
		&status, &priority, &t.DueDate, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return Task{}, err
	}
	t.Kind, t.Status, t.Priority = Kind(kind), Status(status), Priority(priority)
	return t, nil
}

func scanActivity(row pgx.Row) (Activity, error) {
	var a Activity
	err := row.Scan(&a.ID, &a.TaskID, &a.CompanyID, &a.PerformedBy, &a.Note, &a.Minutes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Activity{}, ErrNotFound
		}
		return Activity{}, err
	}
	return a, nil
}
