package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"cadence/internal/domain"
	"cadence/internal/engine"
	"cadence/internal/repo"
	"cadence/internal/week"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"no_active_template"`
	Message string         `json:"message" example:"no active template"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

type requestKey struct{}
type bodyBytesKey struct{}

// apiError is the error envelope every endpoint returns.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Cadence API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			ctx := context.WithValue(r.Context(), requestKey{}, r)
			ctx = context.WithValue(ctx, bodyBytesKey{}, bodyBytes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Repo))
	hcfg := huma.DefaultConfig("Cadence API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerWeeks(group, cfg.Engine)
	registerTasks(group, cfg.Engine)
	registerChecklist(group, cfg.Engine)
	registerComments(group, cfg.Engine)
	registerTemplates(group, cfg.Engine)
	registerUsers(group, cfg.Engine)
	registerGlossary(group, cfg.Engine)
	registerTranslateRetry(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerDevAuth(group, cfg.Auth)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, engine.ErrNoActiveTemplate) {
		return newAPIError(http.StatusConflict, "no_active_template", err.Error(), nil)
	}
	if errors.Is(err, engine.ErrEmptyTemplate) {
		return newAPIError(http.StatusUnprocessableEntity, "empty_template", err.Error(), nil)
	}
	var pe *week.ParseError
	if errors.As(err, &pe) {
		return newAPIError(http.StatusBadRequest, "invalid_week_key", err.Error(), map[string]any{"week_key": pe.Key})
	}
	var re *week.RuleError
	if errors.As(err, &re) {
		return newAPIError(http.StatusUnprocessableEntity, "invalid_due_rule", err.Error(), map[string]any{"rule": re.Rule})
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "unique constraint"):
		return newAPIError(http.StatusConflict, "conflict", msg, nil)
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "required") || strings.Contains(lowered, "unknown role"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func bodyBytes(ctx context.Context) []byte {
	if buf, ok := ctx.Value(bodyBytesKey{}).([]byte); ok {
		return buf
	}
	req, ok := ctx.Value(requestKey{}).(*http.Request)
	if !ok || req == nil {
		return nil
	}
	data, _ := io.ReadAll(req.Body)
	return data
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			spec, _ = json.Marshal(api.OpenAPI())
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func swaggerHTML(basePath string) string {
	specURL := path.Join(basePath, "openapi.json")
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
  <head>
    <title>Cadence API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({ url: '%s', dom_id: '#swagger-ui' });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or X-Api-Key.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerWeeks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-weeks",
		Method:      http.MethodGet,
		Path:        "/weeks",
		Summary:     "List weeks from a starting key, synthesizing future ones",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		From  string `query:"from" example:"2026-W04"`
		Count int    `query:"count" default:"6"`
	}) (*struct {
		Body []domain.Week `json:"body"`
	}, error) {
		from := input.From
		if from == "" {
			from = week.KeyOf(e.Now())
		}
		weeks, err := e.ListWeeks(ctx, from, input.Count)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Week `json:"body"`
		}{Body: weeks}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-week",
		Method:      http.MethodGet,
		Path:        "/weeks/{week_id}",
		Summary:     "Week detail with its tasks",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		WeekID string `path:"week_id"`
	}) (*struct {
		Body WeekDetailResponse `json:"body"`
	}, error) {
		w, err := e.Repo.GetWeek(ctx, input.WeekID)
		if err != nil {
			return nil, handleError(err)
		}
		tasks, err := e.Repo.ListTasks(ctx, repo.TaskFilters{WeekID: w.ID})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WeekDetailResponse `json:"body"`
		}{Body: WeekDetailResponse{Week: w, BusinessDate: w.BusinessDate(), Tasks: tasks}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-business-date",
		Method:      http.MethodPatch,
		Path:        "/weeks/{week_id}",
		Summary:     "Override the week's business day and reschedule open tasks",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		WeekID string `path:"week_id"`
		Body   SetBusinessDateRequest
	}) (*struct {
		Body domain.Week `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 || input.Body.BusinessDate == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "business_date is required", nil)
		}
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		w, err := e.SetBusinessDate(ctx, input.WeekID, input.Body.BusinessDate, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Week `json:"body"`
		}{Body: w}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "generate-week",
		Method:        http.MethodPost,
		Path:          "/weeks/generate",
		Summary:       "Generate a week's tasks from a template",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		Body GenerateWeekRequest
	}) (*struct {
		Body engine.GenerateResult `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 || input.Body.WeekKey == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "week_key is required", nil)
		}
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		templateID := ""
		if input.Body.TemplateID != nil {
			templateID = *input.Body.TemplateID
		} else {
			tmpl, err := e.Repo.ActiveTemplate(ctx)
			if err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return nil, handleError(engine.ErrNoActiveTemplate)
				}
				return nil, handleError(err)
			}
			templateID = tmpl.ID
		}
		res, err := e.GenerateWeek(ctx, engine.GenerateOptions{
			WeekKey:     input.Body.WeekKey,
			TemplateID:  templateID,
			RequestedBy: userID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.GenerateResult `json:"body"`
		}{Body: res}, nil
	})
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		WeekID   string `query:"week_id"`
		Status   string `query:"status" enum:",TODO,IN_PROGRESS,DONE,BLOCKED"`
		Assignee string `query:"assignee_user_id"`
		Tag      string `query:"tag"`
		Limit    int    `query:"limit"`
	}) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		tasks, err := e.Repo.ListTasks(ctx, repo.TaskFilters{
			WeekID:     input.WeekID,
			Status:     input.Status,
			AssigneeID: input.Assignee,
			Tag:        input.Tag,
			Limit:      input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: tasks}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create a one-off task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.TaskCreateOptions{
			WeekKey:   input.Body.WeekKey,
			TitleJA:   input.Body.TitleJA,
			CreatedBy: userID,
		}
		if input.Body.BodyJA != nil {
			opts.BodyJA = *input.Body.BodyJA
		}
		if input.Body.DueAt != nil {
			opts.DueAt = *input.Body.DueAt
		}
		if input.Body.Priority != nil {
			opts.Priority = *input.Body.Priority
		}
		if input.Body.Tag != nil {
			opts.Tag = *input.Body.Tag
		}
		if input.Body.Assignee != nil {
			opts.Assignee = *input.Body.Assignee
		}
		task, err := e.CreateTask(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}",
		Summary:     "Task detail with checklist and comments",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct {
		Body TaskDetailResponse `json:"body"`
	}, error) {
		task, err := e.Repo.GetTask(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListChecklistItems(ctx, task.ID)
		if err != nil {
			return nil, handleError(err)
		}
		comments, err := e.Repo.ListComments(ctx, task.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TaskDetailResponse `json:"body"`
		}{Body: TaskDetailResponse{Task: task, Checklist: items, Comments: comments}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{task_id}",
		Summary:     "Update a task",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
		Body   UpdateTaskRequest
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		task, err := e.UpdateTask(ctx, input.TaskID, repo.TaskUpdate{
			Status:         input.Body.Status,
			Priority:       input.Body.Priority,
			AssigneeUserID: input.Body.Assignee,
			TitleJA:        input.Body.TitleJA,
			BodyJA:         input.Body.BodyJA,
			Tag:            input.Body.Tag,
			DueAt:          input.Body.DueAt,
		}, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/tasks/{task_id}",
		Summary:       "Delete a task",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct{}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteTask(ctx, input.TaskID, userID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerChecklist(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-checklist",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}/checklist",
		Summary:     "Checklist items of a task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct {
		Body []domain.ChecklistItem `json:"body"`
	}, error) {
		if _, err := e.Repo.GetTask(ctx, input.TaskID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListChecklistItems(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.ChecklistItem `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "my-checklist",
		Method:      http.MethodGet,
		Path:        "/me/checklist",
		Summary:     "Caller's open checklist items, soonest first",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.ChecklistItem `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListChecklistItemsForUser(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.ChecklistItem `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "check-item",
		Method:      http.MethodPatch,
		Path:        "/checklist/{item_id}/check",
		Summary:     "Check or uncheck a checklist item",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ItemID string `path:"item_id"`
		Body   CheckItemRequest
	}) (*struct {
		Body domain.ChecklistItem `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		item, err := e.SetChecklistDone(ctx, input.ItemID, input.Body.Done, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ChecklistItem `json:"body"`
		}{Body: item}, nil
	})
}

func registerComments(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-comments",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}/comments",
		Summary:     "Comments on a task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct {
		Body []domain.Comment `json:"body"`
	}, error) {
		if _, err := e.Repo.GetTask(ctx, input.TaskID); err != nil {
			return nil, handleError(err)
		}
		comments, err := e.Repo.ListComments(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Comment `json:"body"`
		}{Body: comments}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-comment",
		Method:        http.MethodPost,
		Path:          "/tasks/{task_id}/comments",
		Summary:       "Comment on a task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
		Body   CreateCommentRequest
	}) (*struct {
		Body domain.Comment `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 || input.Body.BodyJA == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body_ja is required", nil)
		}
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.AddComment(ctx, input.TaskID, userID, input.Body.BodyJA)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Comment `json:"body"`
		}{Body: c}, nil
	})
}

func registerTemplates(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "init-template",
		Method:        http.MethodPost,
		Path:          "/templates/init",
		Summary:       "Install the built-in weekly template as a new version",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		Body InitTemplateRequest `required:"false"`
	}) (*struct {
		Body domain.Template `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		name := engine.DefaultTemplateName
		if input.Body.Name != nil && *input.Body.Name != "" {
			name = *input.Body.Name
		}
		tmpl, err := e.InitTemplate(ctx, name, engine.DefaultTemplate(), userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Template `json:"body"`
		}{Body: tmpl}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "active-template",
		Method:      http.MethodGet,
		Path:        "/templates/active",
		Summary:     "The active template with its tasks",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body TemplateDetailResponse `json:"body"`
	}, error) {
		tmpl, err := e.Repo.ActiveTemplate(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		tasks, err := e.Repo.ListTemplateTasks(ctx, tmpl.ID)
		if err != nil {
			return nil, handleError(err)
		}
		detail := TemplateDetailResponse{Template: tmpl}
		for _, tt := range tasks {
			items, err := e.Repo.ListTemplateChecklistItems(ctx, tt.ID)
			if err != nil {
				return nil, handleError(err)
			}
			detail.Tasks = append(detail.Tasks, TemplateTaskDetail{Task: tt, Checklist: items})
		}
		return &struct {
			Body TemplateDetailResponse `json:"body"`
		}{Body: detail}, nil
	})
}

func registerUsers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List staff",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.User `json:"body"`
	}, error) {
		users, err := e.Repo.ListUsers(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.User `json:"body"`
		}{Body: users}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-user",
		Method:        http.MethodPost,
		Path:          "/users",
		Summary:       "Register a staff member",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body CreateUserRequest
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		lang := ""
		if input.Body.DefaultLanguage != nil {
			lang = *input.Body.DefaultLanguage
		}
		u, err := e.CreateUser(ctx, input.Body.ID, input.Body.Name, input.Body.Role, lang)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})
}

func registerGlossary(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-glossary",
		Method:      http.MethodGet,
		Path:        "/glossary",
		Summary:     "List glossary terms",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.GlossaryTerm `json:"body"`
	}, error) {
		terms, err := e.Repo.ListGlossaryTerms(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.GlossaryTerm `json:"body"`
		}{Body: terms}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-glossary-term",
		Method:        http.MethodPost,
		Path:          "/glossary",
		Summary:       "Add a glossary term",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body CreateGlossaryTermRequest
	}) (*struct {
		Body domain.GlossaryTerm `json:"body"`
	}, error) {
		if input.Body.JATerm == "" || input.Body.FRTerm == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "ja_term and fr_term are required", nil)
		}
		term, err := e.AddGlossaryTerm(ctx, input.Body.JATerm, input.Body.FRTerm, input.Body.Note)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.GlossaryTerm `json:"body"`
		}{Body: term}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-glossary-term",
		Method:      http.MethodPatch,
		Path:        "/glossary/{term_id}",
		Summary:     "Update a glossary term",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TermID string `path:"term_id"`
		Body   UpdateGlossaryTermRequest
	}) (*struct {
		Body domain.GlossaryTerm `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		term, err := e.UpdateGlossaryTerm(ctx, input.TermID, input.Body.FRTerm, input.Body.Note)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.GlossaryTerm `json:"body"`
		}{Body: term}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-glossary-term",
		Method:        http.MethodDelete,
		Path:          "/glossary/{term_id}",
		Summary:       "Delete a glossary term",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TermID string `path:"term_id"`
	}) (*struct{}, error) {
		if err := e.Repo.DeleteGlossaryTerm(ctx, input.TermID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerTranslateRetry(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "retry-translations",
		Method:      http.MethodPost,
		Path:        "/translate/retry",
		Summary:     "Retry every translation flagged as failed",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body engine.RetryResult `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		res, err := e.RetryTranslations(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.RetryResult `json:"body"`
		}{Body: res}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Tail the event log, newest first",
	}, func(ctx context.Context, input *struct {
		Type   string `query:"type"`
		TaskID string `query:"task_id"`
		Limit  int    `query:"limit" default:"50"`
	}) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		evts, err := e.Repo.ListEvents(ctx, repo.EventFilters{
			Type:   input.Type,
			TaskID: input.TaskID,
			Limit:  input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: evts}, nil
	})
}

func registerDevAuth(api huma.API, authCfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "dev-login",
		Method:      http.MethodPost,
		Path:        "/auth/dev/login",
		Summary:     "DEV ONLY: mint a JWT for local testing",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body DevLoginRequest
	}) (*struct {
		Body DevLoginResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 || strings.TrimSpace(input.Body.UserID) == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "user_id is required", nil)
		}
		token, err := signDevToken(authCfg.JWTSecret, strings.TrimSpace(input.Body.UserID), input.Body.Role)
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", err.Error(), nil)
		}
		return &struct {
			Body DevLoginResponse `json:"body"`
		}{Body: DevLoginResponse{Token: token}}, nil
	})
}
