package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"cadence/internal/config"
	"cadence/internal/domain"
	"cadence/internal/events"
	"cadence/internal/repo"
	"cadence/internal/translate"
	"cadence/internal/week"
)

var (
	// ErrNoActiveTemplate is returned when generation is requested but no
	// template has been initialized and activated.
	ErrNoActiveTemplate = errors.New("no active template")
	// ErrEmptyTemplate is returned when the chosen template has no tasks.
	ErrEmptyTemplate = errors.New("template has no tasks")
)

type Engine struct {
	DB         *sql.DB
	Repo       repo.Repo
	Events     events.Writer
	Translator translate.Translator
	Config     *config.Config
	Logger     *log.Logger
	Now        func() time.Time
}

func New(db *sql.DB, cfg *config.Config, tr translate.Translator) Engine {
	return Engine{
		DB:         db,
		Repo:       repo.Repo{DB: db},
		Events:     events.Writer{DB: db},
		Translator: tr,
		Config:     cfg,
		Now:        time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) logger() *log.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return log.Default()
}

const (
	dateLayout = "2006-01-02"
)

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

// translatePtr is the best-effort translation used everywhere user text is
// stored. A nil result means the call failed and the caller must flag the
// row for retry.
func (e Engine) translatePtr(ctx context.Context, text string) (*string, error) {
	if e.Translator == nil {
		return nil, fmt.Errorf("translator not configured")
	}
	out, err := e.Translator.Translate(ctx, text, e.Config.Languages.Source, e.Config.Languages.Target)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateOptions parameterizes week generation. TemplateID is required;
// callers resolve the active template first so the choice is explicit and
// auditable.
type GenerateOptions struct {
	WeekKey     string
	TemplateID  string
	RequestedBy string
}

// GenerateResult reports what one generation pass did.
type GenerateResult struct {
	Week         domain.Week   `json:"week"`
	TasksCreated int           `json:"tasks_created"`
	TasksSkipped int           `json:"tasks_skipped"`
	Tasks        []domain.Task `json:"tasks"`
}

// GenerateWeek materializes a template into one week's tasks. Running it
// again for the same week creates nothing new: tasks are matched by their
// Japanese title within the week.
func (e Engine) GenerateWeek(ctx context.Context, opts GenerateOptions) (GenerateResult, error) {
	if _, _, err := week.ParseKey(opts.WeekKey); err != nil {
		return GenerateResult{}, err
	}
	tmpl, err := e.Repo.GetTemplate(ctx, opts.TemplateID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return GenerateResult{}, ErrNoActiveTemplate
		}
		return GenerateResult{}, err
	}
	tmplTasks, err := e.Repo.ListTemplateTasks(ctx, tmpl.ID)
	if err != nil {
		return GenerateResult{}, err
	}
	if len(tmplTasks) == 0 {
		return GenerateResult{}, ErrEmptyTemplate
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return GenerateResult{}, err
	}
	defer tx.Rollback()

	w, err := e.ensureWeekTx(ctx, tx, opts.WeekKey)
	if err != nil {
		return GenerateResult{}, err
	}
	anchor, err := time.ParseInLocation(dateLayout, w.BusinessDate(), time.Local)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("week %s has invalid business date %q: %w", w.WeekKey, w.BusinessDate(), err)
	}

	existing, err := e.Repo.TaskTitlesForWeek(ctx, tx, w.ID)
	if err != nil {
		return GenerateResult{}, err
	}

	res := GenerateResult{Week: w}
	for _, tt := range tmplTasks {
		if existing[tt.TitleJA] {
			res.TasksSkipped++
			continue
		}
		task, err := e.generateTaskTx(ctx, tx, w, tt, anchor, opts.RequestedBy)
		if err != nil {
			return GenerateResult{}, fmt.Errorf("generate %q: %w", tt.TitleJA, err)
		}
		res.Tasks = append(res.Tasks, task)
		res.TasksCreated++
	}

	if err := e.Events.Append(ctx, tx, events.TypeTemplateGenerated, opts.RequestedBy, "", "", events.EventPayload{
		"week_key":      w.WeekKey,
		"week_id":       w.ID,
		"template_id":   tmpl.ID,
		"tasks_created": res.TasksCreated,
		"tasks_skipped": res.TasksSkipped,
	}); err != nil {
		return GenerateResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return GenerateResult{}, err
	}
	return res, nil
}

// ensureWeekTx fetches the week row, creating it with the computed default
// business date when it does not exist yet.
func (e Engine) ensureWeekTx(ctx context.Context, tx *sql.Tx, key week.Key) (domain.Week, error) {
	var w domain.Week
	var actual sql.NullString
	err := tx.QueryRowContext(ctx, `SELECT id,week_key,business_date_default,business_date_actual,created_at FROM weeks WHERE week_key=?`, key).
		Scan(&w.ID, &w.WeekKey, &w.BusinessDateDefault, &actual, &w.CreatedAt)
	if err == nil {
		if actual.Valid {
			v := actual.String
			w.BusinessDateActual = &v
		}
		return w, nil
	}
	if err != sql.ErrNoRows {
		return w, err
	}
	anchor, err := week.DefaultAnchor(key)
	if err != nil {
		return w, err
	}
	w = domain.Week{
		ID:                  uuid.NewString(),
		WeekKey:             key,
		BusinessDateDefault: anchor.Format(dateLayout),
		CreatedAt:           e.timestamp(),
	}
	if err := e.Repo.InsertWeekTx(ctx, tx, w); err != nil {
		return w, fmt.Errorf("insert week: %w", err)
	}
	return w, nil
}

func (e Engine) generateTaskTx(ctx context.Context, tx *sql.Tx, w domain.Week, tt domain.TemplateTask, anchor time.Time, requestedBy string) (domain.Task, error) {
	rule, err := week.ParseRule(tt.RelativeDueRule)
	if err != nil {
		return domain.Task{}, err
	}
	dueAt := rule.At(anchor)
	now := e.timestamp()

	task := domain.Task{
		ID:             uuid.NewString(),
		WeekID:         w.ID,
		TemplateTaskID: &tt.ID,
		TitleJA:        tt.TitleJA,
		BodyJA:         tt.BodyJA,
		DueAt:          dueAt.Format(time.RFC3339),
		Priority:       domain.PriorityMedium,
		Status:         domain.StatusTodo,
		Tag:            tt.Tag,
		CreatedBy:      requestedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// A partial result is kept: a translated title survives a failed body
	// and only the missing piece is retried later.
	titleFR, terr := e.translatePtr(ctx, tt.TitleJA)
	if terr == nil {
		task.TitleFR = titleFR
		if tt.BodyJA != nil {
			task.BodyFR, terr = e.translatePtr(ctx, *tt.BodyJA)
		}
	}
	if terr != nil {
		task.NeedsRetranslate = true
		e.logger().Printf("generate: translation failed for %q: %v", tt.TitleJA, terr)
		if err := e.Events.Append(ctx, tx, events.TypeTranslationFailed, requestedBy, task.ID, "", events.EventPayload{
			"title_ja": tt.TitleJA,
			"error":    terr.Error(),
		}); err != nil {
			return domain.Task{}, err
		}
	} else {
		ts := now
		task.TranslatedAt = &ts
	}

	if err := e.Repo.InsertTaskTx(ctx, tx, task); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(ctx, tx, events.TypeTaskCreated, requestedBy, task.ID, "", events.EventPayload{
		"week_key": w.WeekKey,
		"title_ja": task.TitleJA,
		"due_at":   task.DueAt,
	}); err != nil {
		return domain.Task{}, err
	}

	items, err := e.Repo.ListTemplateChecklistItems(ctx, tt.ID)
	if err != nil {
		return domain.Task{}, err
	}
	for _, item := range items {
		if err := e.generateChecklistItemTx(ctx, tx, task, item, requestedBy); err != nil {
			return domain.Task{}, err
		}
	}
	return task, nil
}

func (e Engine) generateChecklistItemTx(ctx context.Context, tx *sql.Tx, task domain.Task, item domain.TemplateChecklistItem, requestedBy string) error {
	assignee, err := e.resolveAssigneeTx(ctx, tx, item.DefaultAssignee)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		// No user can take the item. Skip it, but leave a trace instead of
		// failing the whole generation.
		e.logger().Printf("generate: no assignee for %q (wanted %s), skipping checklist item", item.TextJA, item.DefaultAssignee)
		return e.Events.Append(ctx, tx, events.TypeChecklistSkipped, requestedBy, task.ID, "", events.EventPayload{
			"text_ja":          item.TextJA,
			"default_assignee": item.DefaultAssignee,
		})
	}
	now := e.timestamp()
	c := domain.ChecklistItem{
		ID:             uuid.NewString(),
		TaskID:         task.ID,
		TextJA:         item.TextJA,
		AssigneeUserID: assignee.ID,
		DueAt:          &task.DueAt,
		SortOrder:      item.SortOrder,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	textFR, terr := e.translatePtr(ctx, item.TextJA)
	if terr != nil {
		c.NeedsRetranslate = true
	} else {
		c.TextFR = textFR
		ts := now
		c.TranslatedAt = &ts
	}
	return e.Repo.InsertChecklistItemTx(ctx, tx, c)
}

// resolveAssigneeTx maps "role:<name>" placeholders to the user with the
// lowest id in that role, and anything else to a user id.
func (e Engine) resolveAssigneeTx(ctx context.Context, tx *sql.Tx, assignee string) (domain.User, error) {
	if role, ok := strings.CutPrefix(assignee, "role:"); ok {
		return e.Repo.FirstUserByRole(ctx, tx, role)
	}
	var u domain.User
	err := tx.QueryRowContext(ctx, `SELECT id,name,role,default_language,created_at,updated_at FROM users WHERE id=?`, assignee).
		Scan(&u.ID, &u.Name, &u.Role, &u.DefaultLanguage, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return u, repo.ErrNotFound
	}
	return u, err
}

// SetBusinessDate overrides a week's anchor date and reschedules every task
// that still carries its template link and is not finished. Done and blocked
// tasks keep their original due timestamps.
func (e Engine) SetBusinessDate(ctx context.Context, weekID, date, updatedBy string) (domain.Week, error) {
	anchor, err := time.ParseInLocation(dateLayout, date, time.Local)
	if err != nil {
		return domain.Week{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD: %w", date, err)
	}
	w, err := e.Repo.GetWeek(ctx, weekID)
	if err != nil {
		return domain.Week{}, err
	}
	// Setting the date the week already uses records the override but must
	// not touch any task or write an event.
	changed := date != w.BusinessDate()
	var tasks []domain.Task
	if changed {
		tasks, err = e.Repo.ListTasks(ctx, repo.TaskFilters{WeekID: weekID})
		if err != nil {
			return domain.Week{}, err
		}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Week{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateBusinessDateActualTx(ctx, tx, weekID, date); err != nil {
		return domain.Week{}, err
	}

	rescheduled := 0
	now := e.timestamp()
	for _, t := range tasks {
		if t.TemplateTaskID == nil {
			continue
		}
		if t.Status != domain.StatusTodo && t.Status != domain.StatusInProgress {
			continue
		}
		tt, err := e.Repo.GetTemplateTask(ctx, *t.TemplateTaskID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				continue
			}
			return domain.Week{}, err
		}
		rule, err := week.ParseRule(tt.RelativeDueRule)
		if err != nil {
			// A broken stored rule must not block the rest of the week.
			e.logger().Printf("reschedule: skipping %q: %v", t.TitleJA, err)
			continue
		}
		dueAt := rule.At(anchor).Format(time.RFC3339)
		if err := e.Repo.UpdateTaskDueAtTx(ctx, tx, t.ID, dueAt, now); err != nil {
			return domain.Week{}, err
		}
		if err := e.Repo.ShiftChecklistDueAtTx(ctx, tx, t.ID, dueAt, now); err != nil {
			return domain.Week{}, err
		}
		rescheduled++
	}

	if changed {
		if err := e.Events.Append(ctx, tx, events.TypeScheduleExceptionSet, updatedBy, "", "", events.EventPayload{
			"week_key":          w.WeekKey,
			"week_id":           w.ID,
			"business_date":     date,
			"tasks_rescheduled": rescheduled,
		}); err != nil {
			return domain.Week{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Week{}, err
	}
	w.BusinessDateActual = &date
	return w, nil
}

// TaskCreateOptions are parameters for a one-off task outside the template.
type TaskCreateOptions struct {
	WeekKey   string
	TitleJA   string
	BodyJA    string
	DueAt     string
	Priority  string
	Tag       string
	Assignee  string
	CreatedBy string
}

func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	if _, _, err := week.ParseKey(opts.WeekKey); err != nil {
		return domain.Task{}, err
	}
	if opts.TitleJA == "" {
		return domain.Task{}, fmt.Errorf("title is required")
	}
	if opts.DueAt != "" {
		if _, err := time.Parse(time.RFC3339, opts.DueAt); err != nil {
			return domain.Task{}, fmt.Errorf("invalid due_at %q: %w", opts.DueAt, err)
		}
	}
	if opts.Priority == "" {
		opts.Priority = domain.PriorityMedium
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	w, err := e.ensureWeekTx(ctx, tx, opts.WeekKey)
	if err != nil {
		return domain.Task{}, err
	}
	dueAt := opts.DueAt
	if dueAt == "" {
		anchor, err := time.ParseInLocation(dateLayout, w.BusinessDate(), time.Local)
		if err != nil {
			return domain.Task{}, err
		}
		dueAt = anchor.Add(18 * time.Hour).Format(time.RFC3339)
	}

	now := e.timestamp()
	task := domain.Task{
		ID:        uuid.NewString(),
		WeekID:    w.ID,
		TitleJA:   opts.TitleJA,
		DueAt:     dueAt,
		Priority:  opts.Priority,
		Status:    domain.StatusTodo,
		CreatedBy: opts.CreatedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if opts.BodyJA != "" {
		task.BodyJA = &opts.BodyJA
	}
	if opts.Tag != "" {
		task.Tag = &opts.Tag
	}
	if opts.Assignee != "" {
		task.AssigneeUserID = &opts.Assignee
	}

	titleFR, terr := e.translatePtr(ctx, opts.TitleJA)
	if terr == nil {
		task.TitleFR = titleFR
		if task.BodyJA != nil {
			task.BodyFR, terr = e.translatePtr(ctx, *task.BodyJA)
		}
	}
	if terr != nil {
		task.NeedsRetranslate = true
		if err := e.Events.Append(ctx, tx, events.TypeTranslationFailed, opts.CreatedBy, task.ID, "", events.EventPayload{
			"title_ja": task.TitleJA,
			"error":    terr.Error(),
		}); err != nil {
			return domain.Task{}, err
		}
	} else {
		ts := now
		task.TranslatedAt = &ts
	}

	if err := e.Repo.InsertTaskTx(ctx, tx, task); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(ctx, tx, events.TypeTaskCreated, opts.CreatedBy, task.ID, "", events.EventPayload{
		"week_key": w.WeekKey,
		"title_ja": task.TitleJA,
		"due_at":   task.DueAt,
	}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

func (e Engine) UpdateTask(ctx context.Context, id string, u repo.TaskUpdate, updatedBy string) (domain.Task, error) {
	if u.Status != nil && !validStatus(*u.Status) {
		return domain.Task{}, fmt.Errorf("invalid status %q", *u.Status)
	}
	if u.Priority != nil && !validPriority(*u.Priority) {
		return domain.Task{}, fmt.Errorf("invalid priority %q", *u.Priority)
	}
	if u.DueAt != nil {
		if _, err := time.Parse(time.RFC3339, *u.DueAt); err != nil {
			return domain.Task{}, fmt.Errorf("invalid due_at %q: %w", *u.DueAt, err)
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateTaskTx(ctx, tx, id, u, updatedBy, e.timestamp()); err != nil {
		return domain.Task{}, err
	}
	payload := events.EventPayload{}
	if u.Status != nil {
		payload["status"] = *u.Status
	}
	if err := e.Events.Append(ctx, tx, events.TypeTaskUpdated, updatedBy, id, "", payload); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return e.Repo.GetTask(ctx, id)
}

func (e Engine) DeleteTask(ctx context.Context, id, deletedBy string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteTaskTx(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, events.TypeTaskDeleted, deletedBy, id, "", nil); err != nil {
		return err
	}
	return tx.Commit()
}

// SetChecklistDone toggles an item. Checking records who and when;
// unchecking clears both.
func (e Engine) SetChecklistDone(ctx context.Context, itemID string, done bool, userID string) (domain.ChecklistItem, error) {
	item, err := e.Repo.GetChecklistItem(ctx, itemID)
	if err != nil {
		return domain.ChecklistItem{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.ChecklistItem{}, err
	}
	defer tx.Rollback()
	now := e.timestamp()
	if err := e.Repo.SetChecklistDoneTx(ctx, tx, itemID, done, userID, now, now); err != nil {
		return domain.ChecklistItem{}, err
	}
	evtType := events.TypeChecklistChecked
	if !done {
		evtType = events.TypeChecklistUnchecked
	}
	if err := e.Events.Append(ctx, tx, evtType, userID, item.TaskID, itemID, events.EventPayload{
		"text_ja": item.TextJA,
	}); err != nil {
		return domain.ChecklistItem{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.ChecklistItem{}, err
	}
	return e.Repo.GetChecklistItem(ctx, itemID)
}

func (e Engine) AddComment(ctx context.Context, taskID, authorID, bodyJA string) (domain.Comment, error) {
	if strings.TrimSpace(bodyJA) == "" {
		return domain.Comment{}, fmt.Errorf("comment body is required")
	}
	if _, err := e.Repo.GetTask(ctx, taskID); err != nil {
		return domain.Comment{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Comment{}, err
	}
	defer tx.Rollback()

	now := e.timestamp()
	c := domain.Comment{
		ID:           uuid.NewString(),
		TaskID:       taskID,
		AuthorUserID: authorID,
		BodyJA:       bodyJA,
		CreatedAt:    now,
	}
	bodyFR, terr := e.translatePtr(ctx, bodyJA)
	if terr != nil {
		c.NeedsRetranslate = true
		if err := e.Events.Append(ctx, tx, events.TypeTranslationFailed, authorID, taskID, "", events.EventPayload{
			"comment_id": c.ID,
			"error":      terr.Error(),
		}); err != nil {
			return domain.Comment{}, err
		}
	} else {
		c.BodyFR = bodyFR
		ts := now
		c.TranslatedAt = &ts
	}
	if err := e.Repo.InsertCommentTx(ctx, tx, c); err != nil {
		return domain.Comment{}, err
	}
	if err := e.Events.Append(ctx, tx, events.TypeCommentCreated, authorID, taskID, "", events.EventPayload{
		"comment_id": c.ID,
	}); err != nil {
		return domain.Comment{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Comment{}, err
	}
	return c, nil
}

// ListWeeks returns the weeks from a starting key: stored rows where they
// exist, synthesized defaults for future weeks that have not been generated
// yet. Synthesized weeks have an empty ID.
func (e Engine) ListWeeks(ctx context.Context, fromKey string, count int) ([]domain.Week, error) {
	if _, _, err := week.ParseKey(fromKey); err != nil {
		return nil, err
	}
	if count <= 0 {
		count = 6
	}
	stored, err := e.Repo.ListWeeksFrom(ctx, fromKey, count)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]domain.Week, len(stored))
	for _, w := range stored {
		byKey[w.WeekKey] = w
	}
	res := make([]domain.Week, 0, count)
	cur := fromKey
	for i := 0; i < count; i++ {
		if w, ok := byKey[cur]; ok {
			res = append(res, w)
		} else {
			anchor, err := week.DefaultAnchor(cur)
			if err != nil {
				return nil, err
			}
			res = append(res, domain.Week{
				WeekKey:             cur,
				BusinessDateDefault: anchor.Format(dateLayout),
			})
		}
		if cur, err = week.Next(cur); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func validStatus(s string) bool {
	switch s {
	case domain.StatusTodo, domain.StatusInProgress, domain.StatusDone, domain.StatusBlocked:
		return true
	}
	return false
}

func validPriority(p string) bool {
	switch p {
	case domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow:
		return true
	}
	return false
}
