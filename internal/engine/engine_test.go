package engine_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"cadence/internal/config"
	"cadence/internal/db"
	"cadence/internal/domain"
	"cadence/internal/engine"
	"cadence/internal/migrate"
	"cadence/internal/repo"
)

// stubTranslator prefixes instead of calling a model so tests are offline
// and deterministic. failOn fails only texts containing the substring.
type stubTranslator struct {
	fail   bool
	failOn string
	calls  int
}

func (s *stubTranslator) Translate(ctx context.Context, text, from, to string) (string, error) {
	s.calls++
	if s.fail || (s.failOn != "" && strings.Contains(text, s.failOn)) {
		return "", fmt.Errorf("model unavailable")
	}
	return "fr:" + text, nil
}

type testEnv struct {
	Engine     engine.Engine
	Translator *stubTranslator
	Ctx        context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	tr := &stubTranslator{}
	eng := engine.New(conn, config.Default("test-shop"), tr)
	eng.Now = func() time.Time { return time.Date(2026, 1, 19, 9, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	for i, role := range []string{"admin", "coadmin", "worker"} {
		id := fmt.Sprintf("u-%s-1", role)
		if _, err := eng.CreateUser(ctx, id, fmt.Sprintf("User %d", i+1), role, "ja"); err != nil {
			t.Fatalf("create user %s: %v", id, err)
		}
	}
	return testEnv{Engine: eng, Translator: tr, Ctx: ctx}
}

func initDefaultTemplate(t *testing.T, env testEnv) domain.Template {
	t.Helper()
	tmpl, err := env.Engine.InitTemplate(env.Ctx, engine.DefaultTemplateName, engine.DefaultTemplate(), "tester")
	if err != nil {
		t.Fatalf("init template: %v", err)
	}
	return tmpl
}

func TestGenerateWeekCreatesTasksAndChecklists(t *testing.T) {
	env := newTestEnv(t)
	tmpl := initDefaultTemplate(t, env)

	res, err := env.Engine.GenerateWeek(env.Ctx, engine.GenerateOptions{
		WeekKey:     "2026-W04",
		TemplateID:  tmpl.ID,
		RequestedBy: "tester",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.TasksCreated != 14 {
		t.Fatalf("tasks created = %d, want 14", res.TasksCreated)
	}
	if res.Week.BusinessDateDefault != "2026-01-22" {
		t.Fatalf("default business date = %s, want the week's Thursday 2026-01-22", res.Week.BusinessDateDefault)
	}

	// The LINE announcement task: -4 days 20:00 from the Thursday anchor.
	var lineTask domain.Task
	for _, task := range res.Tasks {
		if task.TitleJA == "公式LINE: お取り置き案内配信" {
			lineTask = task
		}
	}
	if lineTask.ID == "" {
		t.Fatalf("line announcement task not generated")
	}
	due, err := time.Parse(time.RFC3339, lineTask.DueAt)
	if err != nil {
		t.Fatalf("parse due: %v", err)
	}
	if due.Month() != time.January || due.Day() != 18 || due.Hour() != 20 || due.Minute() != 0 {
		t.Fatalf("line task due %s, want Jan 18 20:00", lineTask.DueAt)
	}
	if lineTask.TitleFR == nil || *lineTask.TitleFR != "fr:公式LINE: お取り置き案内配信" {
		t.Fatalf("title not translated: %+v", lineTask.TitleFR)
	}
	if lineTask.TemplateTaskID == nil {
		t.Fatalf("generated task lost its template link")
	}

	items, err := env.Engine.Repo.ListChecklistItems(env.Ctx, lineTask.ID)
	if err != nil {
		t.Fatalf("list checklist: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("checklist items = %d, want 1", len(items))
	}
	if items[0].AssigneeUserID != "u-admin-1" {
		t.Fatalf("assignee = %s, want u-admin-1", items[0].AssigneeUserID)
	}
}

func TestGenerateWeekIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	tmpl := initDefaultTemplate(t, env)
	opts := engine.GenerateOptions{WeekKey: "2026-W04", TemplateID: tmpl.ID, RequestedBy: "tester"}

	first, err := env.Engine.GenerateWeek(env.Ctx, opts)
	if err != nil {
		t.Fatalf("first generate: %v", err)
	}
	second, err := env.Engine.GenerateWeek(env.Ctx, opts)
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if second.TasksCreated != 0 {
		t.Fatalf("second run created %d tasks, want 0", second.TasksCreated)
	}
	if second.TasksSkipped != first.TasksCreated {
		t.Fatalf("second run skipped %d, want %d", second.TasksSkipped, first.TasksCreated)
	}
	tasks, err := env.Engine.Repo.ListTasks(env.Ctx, repo.TaskFilters{WeekID: first.Week.ID})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != first.TasksCreated {
		t.Fatalf("total tasks = %d, want %d", len(tasks), first.TasksCreated)
	}
}

func TestGenerateWeekTranslationFailureIsNonFatal(t *testing.T) {
	env := newTestEnv(t)
	tmpl := initDefaultTemplate(t, env)
	env.Translator.fail = true

	res, err := env.Engine.GenerateWeek(env.Ctx, engine.GenerateOptions{
		WeekKey: "2026-W04", TemplateID: tmpl.ID, RequestedBy: "tester",
	})
	if err != nil {
		t.Fatalf("generate with failing translator: %v", err)
	}
	if res.TasksCreated != 14 {
		t.Fatalf("tasks created = %d, want 14", res.TasksCreated)
	}
	for _, task := range res.Tasks {
		if !task.NeedsRetranslate {
			t.Fatalf("task %q not flagged for retranslation", task.TitleJA)
		}
		if task.TitleFR != nil {
			t.Fatalf("task %q has a translation despite failure", task.TitleJA)
		}
	}

	// Flip the translator back on and retry the sweep.
	env.Translator.fail = false
	retry, err := env.Engine.RetryTranslations(env.Ctx, "tester")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if retry.Tasks != 14 {
		t.Fatalf("retried tasks = %d, want 14", retry.Tasks)
	}
	if retry.Failed != 0 {
		t.Fatalf("retry failed = %d, want 0", retry.Failed)
	}
	task, err := env.Engine.Repo.GetTask(env.Ctx, res.Tasks[0].ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if task.NeedsRetranslate || task.TitleFR == nil {
		t.Fatalf("task still untranslated after retry: %+v", task)
	}
}

func TestGenerateKeepsTitleWhenBodyTranslationFails(t *testing.T) {
	env := newTestEnv(t)
	tmpl, err := env.Engine.InitTemplate(env.Ctx, "with-body", []engine.TemplateTaskDef{
		{TitleJA: "仕込み", BodyJA: "粉を計量する", DueRule: "0 days 09:00"},
	}, "tester")
	if err != nil {
		t.Fatalf("init template: %v", err)
	}
	env.Translator.failOn = "粉を計量する"

	res, err := env.Engine.GenerateWeek(env.Ctx, engine.GenerateOptions{
		WeekKey: "2026-W04", TemplateID: tmpl.ID, RequestedBy: "tester",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	task := res.Tasks[0]
	if task.TitleFR == nil || *task.TitleFR != "fr:仕込み" {
		t.Fatalf("translated title was discarded: %+v", task.TitleFR)
	}
	if task.BodyFR != nil {
		t.Fatalf("body has a translation despite failure: %q", *task.BodyFR)
	}
	if !task.NeedsRetranslate {
		t.Fatalf("task not flagged for retranslation")
	}
	if task.TranslatedAt != nil {
		t.Fatalf("translated_at set on a partial translation")
	}

	// The retry sweep fills in only the body; the stored title is not
	// translated a second time.
	env.Translator.failOn = ""
	calls := env.Translator.calls
	retry, err := env.Engine.RetryTranslations(env.Ctx, "tester")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if retry.Tasks != 1 || retry.Failed != 0 {
		t.Fatalf("retry = %+v, want 1 task, 0 failed", retry)
	}
	if env.Translator.calls != calls+1 {
		t.Fatalf("retry made %d calls, want 1 (body only)", env.Translator.calls-calls)
	}
	got, err := env.Engine.Repo.GetTask(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.NeedsRetranslate || got.TitleFR == nil || got.BodyFR == nil || *got.BodyFR != "fr:粉を計量する" {
		t.Fatalf("retry did not complete the row: %+v", got)
	}
}

func TestGenerateWeekSkipsChecklistWithoutAssignee(t *testing.T) {
	env := newTestEnv(t)
	tmpl, err := env.Engine.InitTemplate(env.Ctx, "minimal", []engine.TemplateTaskDef{
		{
			TitleJA: "担当者なしタスク",
			DueRule: "0 days 09:00",
			Checklist: []engine.TemplateChecklistDef{
				{TextJA: "存在しないユーザーの項目", DefaultAssignee: "no-such-user"},
				{TextJA: "管理者の項目", DefaultAssignee: "role:admin"},
			},
		},
	}, "tester")
	if err != nil {
		t.Fatalf("init template: %v", err)
	}
	res, err := env.Engine.GenerateWeek(env.Ctx, engine.GenerateOptions{
		WeekKey: "2026-W04", TemplateID: tmpl.ID, RequestedBy: "tester",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	items, err := env.Engine.Repo.ListChecklistItems(env.Ctx, res.Tasks[0].ID)
	if err != nil {
		t.Fatalf("list checklist: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("checklist items = %d, want 1 (unassignable item skipped)", len(items))
	}
	evts, err := env.Engine.Repo.ListEvents(env.Ctx, repo.EventFilters{Type: "checklist_skipped"})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(evts) != 1 {
		t.Fatalf("checklist_skipped events = %d, want 1", len(evts))
	}
}

func TestGenerateWeekErrors(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.GenerateWeek(env.Ctx, engine.GenerateOptions{
		WeekKey: "2026-W04", TemplateID: "missing", RequestedBy: "tester",
	})
	if !errors.Is(err, engine.ErrNoActiveTemplate) {
		t.Fatalf("err = %v, want ErrNoActiveTemplate", err)
	}
	tmpl := initDefaultTemplate(t, env)
	if _, err := env.Engine.GenerateWeek(env.Ctx, engine.GenerateOptions{
		WeekKey: "2026-W60", TemplateID: tmpl.ID, RequestedBy: "tester",
	}); err == nil || !strings.Contains(err.Error(), "invalid week key") {
		t.Fatalf("err = %v, want invalid week key", err)
	}
	if _, err := env.Engine.InitTemplate(env.Ctx, "empty", nil, "tester"); !errors.Is(err, engine.ErrEmptyTemplate) {
		t.Fatalf("err = %v, want ErrEmptyTemplate", err)
	}
}

func TestSetBusinessDateReschedulesOpenTasks(t *testing.T) {
	env := newTestEnv(t)
	tmpl := initDefaultTemplate(t, env)
	res, err := env.Engine.GenerateWeek(env.Ctx, engine.GenerateOptions{
		WeekKey: "2026-W04", TemplateID: tmpl.ID, RequestedBy: "tester",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// Finish one task; it must keep its due date after the move.
	var doneTask, openTask domain.Task
	for _, task := range res.Tasks {
		switch task.TitleJA {
		case "焼成作業":
			doneTask = task
		case "公式LINE: お取り置き案内配信":
			openTask = task
		}
	}
	done := domain.StatusDone
	if _, err := env.Engine.UpdateTask(env.Ctx, doneTask.ID, repo.TaskUpdate{Status: &done}, "tester"); err != nil {
		t.Fatalf("mark done: %v", err)
	}

	// Move the business day from Thursday Jan 22 to Friday Jan 23.
	w, err := env.Engine.SetBusinessDate(env.Ctx, res.Week.ID, "2026-01-23", "tester")
	if err != nil {
		t.Fatalf("set business date: %v", err)
	}
	if w.BusinessDate() != "2026-01-23" {
		t.Fatalf("effective business date = %s, want 2026-01-23", w.BusinessDate())
	}

	moved, err := env.Engine.Repo.GetTask(env.Ctx, openTask.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	due, _ := time.Parse(time.RFC3339, moved.DueAt)
	if due.Day() != 19 || due.Hour() != 20 {
		t.Fatalf("open task due %s, want Jan 19 20:00 (-4 days from new anchor)", moved.DueAt)
	}

	kept, err := env.Engine.Repo.GetTask(env.Ctx, doneTask.ID)
	if err != nil {
		t.Fatalf("get done task: %v", err)
	}
	if kept.DueAt != doneTask.DueAt {
		t.Fatalf("done task was rescheduled: %s -> %s", doneTask.DueAt, kept.DueAt)
	}
}

func TestSetBusinessDateSameDateLeavesTasksAlone(t *testing.T) {
	env := newTestEnv(t)
	tmpl := initDefaultTemplate(t, env)
	res, err := env.Engine.GenerateWeek(env.Ctx, engine.GenerateOptions{
		WeekKey: "2026-W04", TemplateID: tmpl.ID, RequestedBy: "tester",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	before := res.Tasks[0]

	// Re-submitting the week's current anchor is a no-op for the schedule.
	w, err := env.Engine.SetBusinessDate(env.Ctx, res.Week.ID, res.Week.BusinessDateDefault, "tester")
	if err != nil {
		t.Fatalf("set business date: %v", err)
	}
	if w.BusinessDate() != res.Week.BusinessDateDefault {
		t.Fatalf("effective business date = %s, want %s", w.BusinessDate(), res.Week.BusinessDateDefault)
	}

	after, err := env.Engine.Repo.GetTask(env.Ctx, before.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if after.DueAt != before.DueAt || after.UpdatedAt != before.UpdatedAt {
		t.Fatalf("task rewritten by a no-op date change: %+v", after)
	}
	evts, err := env.Engine.Repo.ListEvents(env.Ctx, repo.EventFilters{Type: "schedule_exception_changed"})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(evts) != 0 {
		t.Fatalf("schedule_exception_changed events = %d, want 0", len(evts))
	}
}

func TestChecklistCheckAndUncheck(t *testing.T) {
	env := newTestEnv(t)
	tmpl := initDefaultTemplate(t, env)
	res, err := env.Engine.GenerateWeek(env.Ctx, engine.GenerateOptions{
		WeekKey: "2026-W04", TemplateID: tmpl.ID, RequestedBy: "tester",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	items, err := env.Engine.Repo.ListChecklistItems(env.Ctx, res.Tasks[0].ID)
	if err != nil || len(items) == 0 {
		t.Fatalf("list checklist: %v", err)
	}

	checked, err := env.Engine.SetChecklistDone(env.Ctx, items[0].ID, true, "u-worker-1")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !checked.IsDone || checked.DoneBy == nil || *checked.DoneBy != "u-worker-1" || checked.DoneAt == nil {
		t.Fatalf("check did not record who and when: %+v", checked)
	}

	unchecked, err := env.Engine.SetChecklistDone(env.Ctx, items[0].ID, false, "u-worker-1")
	if err != nil {
		t.Fatalf("uncheck: %v", err)
	}
	if unchecked.IsDone || unchecked.DoneBy != nil || unchecked.DoneAt != nil {
		t.Fatalf("uncheck did not clear done state: %+v", unchecked)
	}
}

func TestAddCommentTranslatesBody(t *testing.T) {
	env := newTestEnv(t)
	tmpl := initDefaultTemplate(t, env)
	res, err := env.Engine.GenerateWeek(env.Ctx, engine.GenerateOptions{
		WeekKey: "2026-W04", TemplateID: tmpl.ID, RequestedBy: "tester",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	c, err := env.Engine.AddComment(env.Ctx, res.Tasks[0].ID, "u-admin-1", "明日は早めに来てください")
	if err != nil {
		t.Fatalf("add comment: %v", err)
	}
	if c.BodyFR == nil || *c.BodyFR != "fr:明日は早めに来てください" {
		t.Fatalf("comment not translated: %+v", c)
	}
	list, err := env.Engine.Repo.ListComments(env.Ctx, res.Tasks[0].ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("list comments: %v (%d)", err, len(list))
	}
}

func TestListWeeksSynthesizesFutureWeeks(t *testing.T) {
	env := newTestEnv(t)
	tmpl := initDefaultTemplate(t, env)
	if _, err := env.Engine.GenerateWeek(env.Ctx, engine.GenerateOptions{
		WeekKey: "2026-W04", TemplateID: tmpl.ID, RequestedBy: "tester",
	}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	weeks, err := env.Engine.ListWeeks(env.Ctx, "2026-W04", 3)
	if err != nil {
		t.Fatalf("list weeks: %v", err)
	}
	if len(weeks) != 3 {
		t.Fatalf("weeks = %d, want 3", len(weeks))
	}
	if weeks[0].ID == "" {
		t.Fatalf("stored week came back synthesized")
	}
	if weeks[1].ID != "" || weeks[1].WeekKey != "2026-W05" {
		t.Fatalf("second week = %+v, want synthesized 2026-W05", weeks[1])
	}
	if weeks[1].BusinessDateDefault != "2026-01-29" {
		t.Fatalf("synthesized anchor = %s, want 2026-01-29", weeks[1].BusinessDateDefault)
	}
}

func TestInitTemplateVersionsAndSingleActive(t *testing.T) {
	env := newTestEnv(t)
	first := initDefaultTemplate(t, env)
	second, err := env.Engine.InitTemplate(env.Ctx, "v2", engine.DefaultTemplate(), "tester")
	if err != nil {
		t.Fatalf("second init: %v", err)
	}
	if second.Version != first.Version+1 {
		t.Fatalf("version = %d, want %d", second.Version, first.Version+1)
	}
	active, err := env.Engine.Repo.ActiveTemplate(env.Ctx)
	if err != nil {
		t.Fatalf("active template: %v", err)
	}
	if active.ID != second.ID {
		t.Fatalf("active = %s, want newest %s", active.ID, second.ID)
	}
	if _, err := env.Engine.InitTemplate(env.Ctx, "bad", []engine.TemplateTaskDef{
		{TitleJA: "壊れたルール", DueRule: "next thursday"},
	}, "tester"); err == nil {
		t.Fatalf("expected rule validation error")
	}
}
