package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cadence/internal/app"
	"cadence/internal/config"
	"cadence/internal/db"
	"cadence/internal/domain"
	"cadence/internal/engine"
	"cadence/internal/migrate"
	"cadence/internal/repo"
	"cadence/internal/server"
	"cadence/internal/week"
)

var rootCmd = &cobra.Command{
	Use:   "cad",
	Short: "Cadence CLI",
	Long: `Cadence generates a small shop's weekly tasks from a template.
- Workspace: the .cadence directory holding the database; cadence.yml holds shop config.
- Weeks: identified by ISO keys like 2026-W04; each week has a business day (default Thursday, overridable).
- Template: the versioned weekly workflow; 'cad template init' installs the built-in one.
- Generate: 'cad week generate' materializes the active template into tasks; running it twice adds nothing.
- Due rules: '<±days> days HH:MM' relative to the week's business day.
- Translation: Japanese text is translated to French for staff; failures are flagged and retried with 'cad translate retry'.
- Event log: diary of changes, view with 'cad log tail'.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("CADENCE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("user-id", "local-user", "acting user id")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("user-id", rootCmd.PersistentFlags().Lookup("user-id"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(weekCmd())
	rootCmd.AddCommand(templateCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(checklistCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(glossaryCmd())
	rootCmd.AddCommand(translateCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(apiKeyCmd())
	rootCmd.AddCommand(serveCmd())
}

func initCmd() *cobra.Command {
	var shopName string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the workspace: config file, database, glossary",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				if err := os.WriteFile(path, []byte(config.GenerateDefault(shopName)), 0o644); err != nil {
					return err
				}
				fmt.Println("wrote", path)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				n, err := e.SeedGlossary(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("database ready at %s, %d glossary terms seeded\n", db.Path(workspace), n)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&shopName, "shop", "cadence", "shop name for the config file")
	return cmd
}

func weekCmd() *cobra.Command {
	wk := &cobra.Command{Use: "week", Short: "Manage weeks"}
	wk.AddCommand(weekListCmd())
	wk.AddCommand(weekShowCmd())
	wk.AddCommand(weekGenerateCmd())
	wk.AddCommand(weekSetDateCmd())
	return wk
}

func weekListCmd() *cobra.Command {
	var from string
	var count int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List upcoming weeks with their business days",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if from == "" {
					from = week.KeyOf(time.Now())
				}
				weeks, err := e.ListWeeks(ctx, from, count)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(weeks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Week", "Business day", "Generated"})
				for _, w := range weeks {
					generated := "yes"
					if w.ID == "" {
						generated = ""
					}
					tw.AppendRow(table.Row{w.WeekKey, w.BusinessDate(), generated})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "starting week key (default: current week)")
	cmd.Flags().IntVar(&count, "count", 6, "number of weeks")
	return cmd
}

func weekShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <week-key>",
		Short: "Show a week's schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				w, err := e.Repo.GetWeekByKey(ctx, args[0])
				if err != nil {
					return err
				}
				tasks, err := e.Repo.ListTasks(ctx, repo.TaskFilters{WeekID: w.ID})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"week": w, "tasks": tasks})
				}
				fmt.Printf("%s  business day %s\n", w.WeekKey, w.BusinessDate())
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Due", "Title", "Status", "Tag"})
				for _, t := range tasks {
					title := t.TitleJA
					if t.TitleFR != nil {
						title = fmt.Sprintf("%s / %s", t.TitleJA, *t.TitleFR)
					}
					tag := ""
					if t.Tag != nil {
						tag = *t.Tag
					}
					tw.AppendRow(table.Row{t.DueAt, title, t.Status, tag})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func weekGenerateCmd() *cobra.Command {
	var weekKey, templateID string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a week's tasks from the active template",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if weekKey == "" {
					weekKey = week.KeyOf(time.Now())
				}
				if templateID == "" {
					tmpl, err := e.Repo.ActiveTemplate(ctx)
					if err != nil {
						if errors.Is(err, repo.ErrNotFound) {
							return fmt.Errorf("no active template; run 'cad template init' first")
						}
						return err
					}
					templateID = tmpl.ID
				}
				res, err := e.GenerateWeek(ctx, engine.GenerateOptions{
					WeekKey:     weekKey,
					TemplateID:  templateID,
					RequestedBy: viper.GetString("user-id"),
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				fmt.Printf("%s: %d tasks created, %d already present\n", res.Week.WeekKey, res.TasksCreated, res.TasksSkipped)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&weekKey, "week", "", "week key (default: current week)")
	cmd.Flags().StringVar(&templateID, "template", "", "template id (default: active template)")
	return cmd
}

func weekSetDateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-date <week-key> <date>",
		Short: "Override a week's business day and reschedule open tasks",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				w, err := e.Repo.GetWeekByKey(ctx, args[0])
				if err != nil {
					return err
				}
				updated, err := e.SetBusinessDate(ctx, w.ID, args[1], viper.GetString("user-id"))
				if err != nil {
					return err
				}
				return printJSON(updated)
			})
		},
	}
	return cmd
}

func templateCmd() *cobra.Command {
	tp := &cobra.Command{Use: "template", Short: "Manage the weekly template"}
	tp.AddCommand(templateInitCmd())
	tp.AddCommand(templateShowCmd())
	return tp
}

func templateInitCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Install the built-in weekly template as a new active version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if name == "" {
					name = engine.DefaultTemplateName
				}
				tmpl, err := e.InitTemplate(ctx, name, engine.DefaultTemplate(), viper.GetString("user-id"))
				if err != nil {
					return err
				}
				fmt.Printf("template %s installed (version %d)\n", tmpl.ID, tmpl.Version)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "template name")
	return cmd
}

func templateShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the active template",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tmpl, err := e.Repo.ActiveTemplate(ctx)
				if err != nil {
					return err
				}
				tasks, err := e.Repo.ListTemplateTasks(ctx, tmpl.ID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"template": tmpl, "tasks": tasks})
				}
				fmt.Printf("%s (version %d)\n", tmpl.Name, tmpl.Version)
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"#", "Title", "Rule", "Tag"})
				for _, t := range tasks {
					tag := ""
					if t.Tag != nil {
						tag = *t.Tag
					}
					tw.AppendRow(table.Row{t.SortOrder, t.TitleJA, t.RelativeDueRule, tag})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func taskCmd() *cobra.Command {
	tk := &cobra.Command{Use: "task", Short: "Manage tasks"}
	tk.AddCommand(taskListCmd())
	tk.AddCommand(taskShowCmd())
	tk.AddCommand(taskAddCmd())
	tk.AddCommand(taskUpdateCmd())
	tk.AddCommand(taskCommentCmd())
	tk.AddCommand(taskDeleteCmd())
	return tk
}

func taskDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task and its checklist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteTask(ctx, args[0], viper.GetString("user-id"))
			})
		},
	}
	return cmd
}

func taskListCmd() *cobra.Command {
	var weekKey, status, assignee, tag string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				f := repo.TaskFilters{Status: status, AssigneeID: assignee, Tag: tag}
				if weekKey != "" {
					w, err := e.Repo.GetWeekByKey(ctx, weekKey)
					if err != nil {
						return err
					}
					f.WeekID = w.ID
				}
				tasks, err := e.Repo.ListTasks(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Due", "Title", "Status", "Assignee"})
				for _, t := range tasks {
					assignee := ""
					if t.AssigneeUserID != nil {
						assignee = *t.AssigneeUserID
					}
					tw.AppendRow(table.Row{t.ID, t.DueAt, t.TitleJA, t.Status, assignee})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&weekKey, "week", "", "week key filter")
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().StringVar(&assignee, "assignee", "", "assignee user id filter")
	cmd.Flags().StringVar(&tag, "tag", "", "tag filter")
	return cmd
}

func taskShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task with checklist and comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				task, err := e.Repo.GetTask(ctx, args[0])
				if err != nil {
					return err
				}
				items, err := e.Repo.ListChecklistItems(ctx, task.ID)
				if err != nil {
					return err
				}
				comments, err := e.Repo.ListComments(ctx, task.ID)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{
					"task":      task,
					"checklist": items,
					"comments":  comments,
				})
			})
		},
	}
	return cmd
}

func taskAddCmd() *cobra.Command {
	var opts engine.TaskCreateOptions
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a one-off task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if opts.WeekKey == "" {
					opts.WeekKey = week.KeyOf(time.Now())
				}
				opts.CreatedBy = viper.GetString("user-id")
				task, err := e.CreateTask(ctx, opts)
				if err != nil {
					return err
				}
				return printJSON(task)
			})
		},
	}
	cmd.Flags().StringVar(&opts.WeekKey, "week", "", "week key (default: current week)")
	cmd.Flags().StringVar(&opts.TitleJA, "title", "", "title (Japanese)")
	cmd.Flags().StringVar(&opts.BodyJA, "body", "", "body (Japanese)")
	cmd.Flags().StringVar(&opts.DueAt, "due", "", "due timestamp (RFC3339)")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "HIGH, MEDIUM or LOW")
	cmd.Flags().StringVar(&opts.Tag, "tag", "", "tag")
	cmd.Flags().StringVar(&opts.Assignee, "assignee", "", "assignee user id")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskUpdateCmd() *cobra.Command {
	var status, priority, assignee, title, body, tag, due string
	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Update a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var u repo.TaskUpdate
				if cmd.Flags().Changed("status") {
					u.Status = &status
				}
				if cmd.Flags().Changed("priority") {
					u.Priority = &priority
				}
				if cmd.Flags().Changed("assignee") {
					u.AssigneeUserID = &assignee
				}
				if cmd.Flags().Changed("title") {
					u.TitleJA = &title
				}
				if cmd.Flags().Changed("body") {
					u.BodyJA = &body
				}
				if cmd.Flags().Changed("tag") {
					u.Tag = &tag
				}
				if cmd.Flags().Changed("due") {
					u.DueAt = &due
				}
				task, err := e.UpdateTask(ctx, args[0], u, viper.GetString("user-id"))
				if err != nil {
					return err
				}
				return printJSON(task)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "TODO, IN_PROGRESS, DONE or BLOCKED")
	cmd.Flags().StringVar(&priority, "priority", "", "HIGH, MEDIUM or LOW")
	cmd.Flags().StringVar(&assignee, "assignee", "", "assignee user id")
	cmd.Flags().StringVar(&title, "title", "", "title (Japanese)")
	cmd.Flags().StringVar(&body, "body", "", "body (Japanese)")
	cmd.Flags().StringVar(&tag, "tag", "", "tag")
	cmd.Flags().StringVar(&due, "due", "", "due timestamp (RFC3339)")
	return cmd
}

func taskCommentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment <task-id> <text>",
		Short: "Comment on a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.AddComment(ctx, args[0], viper.GetString("user-id"), args[1])
				if err != nil {
					return err
				}
				return printJSON(c)
			})
		},
	}
	return cmd
}

func checklistCmd() *cobra.Command {
	cl := &cobra.Command{Use: "checklist", Short: "Work with checklist items"}
	cl.AddCommand(checklistMineCmd())
	cl.AddCommand(checklistCheckCmd())
	cl.AddCommand(checklistUncheckCmd())
	return cl
}

func checklistMineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mine",
		Short: "Show my open checklist items, soonest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListChecklistItemsForUser(ctx, viper.GetString("user-id"))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Due", "Text"})
				for _, it := range items {
					due := ""
					if it.DueAt != nil {
						due = *it.DueAt
					}
					tw.AppendRow(table.Row{it.ID, due, it.TextJA})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func checklistCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <item-id>",
		Short: "Check off a checklist item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				item, err := e.SetChecklistDone(ctx, args[0], true, viper.GetString("user-id"))
				if err != nil {
					return err
				}
				return printJSON(item)
			})
		},
	}
	return cmd
}

func checklistUncheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uncheck <item-id>",
		Short: "Undo a checked item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				item, err := e.SetChecklistDone(ctx, args[0], false, viper.GetString("user-id"))
				if err != nil {
					return err
				}
				return printJSON(item)
			})
		},
	}
	return cmd
}

func userCmd() *cobra.Command {
	us := &cobra.Command{Use: "user", Short: "Manage staff"}
	us.AddCommand(userListCmd())
	us.AddCommand(userAddCmd())
	return us
}

func userListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List staff",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				users, err := r.ListUsers(ctx)
				if err != nil {
					return err
				}
				return printJSON(users)
			})
		},
	}
	return cmd
}

func userAddCmd() *cobra.Command {
	var id, name, role, lang string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a staff member",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.CreateUser(ctx, id, name, role, lang)
				if err != nil {
					return err
				}
				return printJSON(u)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "user id")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", "worker", "admin, coadmin or worker")
	cmd.Flags().StringVar(&lang, "lang", "", "default language (ja or fr)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func glossaryCmd() *cobra.Command {
	gl := &cobra.Command{Use: "glossary", Short: "Manage the translation glossary"}
	gl.AddCommand(glossaryListCmd())
	gl.AddCommand(glossaryAddCmd())
	return gl
}

func glossaryListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List glossary terms",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				terms, err := r.ListGlossaryTerms(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(terms)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"JA", "FR"})
				for _, t := range terms {
					tw.AppendRow(table.Row{t.JATerm, t.FRTerm})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func glossaryAddCmd() *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "add <ja-term> <fr-term>",
		Short: "Pin a fixed translation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var notePtr *string
				if note != "" {
					notePtr = &note
				}
				term, err := e.AddGlossaryTerm(ctx, args[0], args[1], notePtr)
				if err != nil {
					return err
				}
				return printJSON(term)
			})
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "usage note")
	return cmd
}

func translateCmd() *cobra.Command {
	tr := &cobra.Command{Use: "translate", Short: "Translation maintenance"}
	tr.AddCommand(&cobra.Command{
		Use:   "retry",
		Short: "Retry every translation flagged as failed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.RetryTranslations(ctx, viper.GetString("user-id"))
				if err != nil {
					return err
				}
				fmt.Printf("retranslated %d tasks, %d checklist items, %d comments (%d still failing)\n",
					res.Tasks, res.ChecklistItems, res.Comments, res.Failed)
				return nil
			})
		},
	})
	return tr
}

func logCmd() *cobra.Command {
	lg := &cobra.Command{Use: "log", Short: "Event log"}
	var evtType, taskID string
	var limit int
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Show recent events, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				evts, err := r.ListEvents(ctx, repo.EventFilters{Type: evtType, TaskID: taskID, Limit: limit})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(evts)
				}
				for _, e := range evts {
					fmt.Printf("%s  %-28s user=%s task=%s %s\n", e.TS, e.Type, e.UserID, e.TaskID, e.Payload)
				}
				return nil
			})
		},
	}
	tail.Flags().StringVar(&evtType, "type", "", "event type filter")
	tail.Flags().StringVar(&taskID, "task", "", "task id filter")
	tail.Flags().IntVar(&limit, "limit", 50, "number of events")
	lg.AddCommand(tail)
	return lg
}

func apiKeyCmd() *cobra.Command {
	ak := &cobra.Command{Use: "apikey", Short: "Manage device API keys"}
	var userID, name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Mint an API key for a user; the raw key is printed once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if _, err := r.GetUser(ctx, userID); err != nil {
					return err
				}
				raw := uuid.NewString()
				key := domain.APIKey{
					ID:        uuid.NewString(),
					UserID:    userID,
					Name:      name,
					KeyHash:   repo.HashAPIKey(raw),
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				}
				if err := r.InsertAPIKey(ctx, key); err != nil {
					return err
				}
				fmt.Println(raw)
				return nil
			})
		},
	}
	create.Flags().StringVar(&userID, "user", "", "user id the key acts as")
	create.Flags().StringVar(&name, "name", "", "key label")
	_ = create.MarkFlagRequired("user")
	ak.AddCommand(create)
	return ak
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := app.ResolveConfig(workspace)
			if err != nil {
				return err
			}
			r := repo.Repo{DB: conn}
			tr, err := app.NewTranslator(cmd.Context(), cfg, r)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg, tr)
			authCfg := server.AuthConfig{
				JWTSecret:             os.Getenv("CADENCE_JWT_SECRET"),
				AllowLegacyUserHeader: viper.GetBool("allow-legacy-user-header"),
			}
			if authCfg.JWTSecret == "" {
				return fmt.Errorf("CADENCE_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Cadence API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8787", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().Bool("allow-legacy-user-header", false, "accept unauthenticated X-User-Id (dev only)")
	_ = viper.BindPFlag("allow-legacy-user-header", cmd.Flags().Lookup("allow-legacy-user-header"))
	return cmd
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := app.ResolveConfig(workspace)
	if err != nil {
		return err
	}
	r := repo.Repo{DB: conn}
	tr, err := app.NewTranslator(ctx, cfg, r)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg, tr)
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
