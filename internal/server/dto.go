package server

import "cadence/internal/domain"

// Request payloads

type GenerateWeekRequest struct {
	WeekKey    string  `json:"week_key" example:"2026-W04"`
	TemplateID *string `json:"template_id,omitempty"`
}

type SetBusinessDateRequest struct {
	BusinessDate string `json:"business_date" format:"date" example:"2026-01-23"`
}

type CreateTaskRequest struct {
	WeekKey  string  `json:"week_key"`
	TitleJA  string  `json:"title_ja"`
	BodyJA   *string `json:"body_ja,omitempty"`
	DueAt    *string `json:"due_at,omitempty" format:"date-time"`
	Priority *string `json:"priority,omitempty" enum:"HIGH,MEDIUM,LOW"`
	Tag      *string `json:"tag,omitempty"`
	Assignee *string `json:"assignee_user_id,omitempty"`
}

type UpdateTaskRequest struct {
	Status   *string `json:"status,omitempty" enum:"TODO,IN_PROGRESS,DONE,BLOCKED"`
	Priority *string `json:"priority,omitempty" enum:"HIGH,MEDIUM,LOW"`
	Assignee *string `json:"assignee_user_id,omitempty"`
	TitleJA  *string `json:"title_ja,omitempty"`
	BodyJA   *string `json:"body_ja,omitempty"`
	Tag      *string `json:"tag,omitempty"`
	DueAt    *string `json:"due_at,omitempty" format:"date-time"`
}

type CheckItemRequest struct {
	Done bool `json:"done"`
}

type CreateCommentRequest struct {
	BodyJA string `json:"body_ja"`
}

type InitTemplateRequest struct {
	Name *string `json:"name,omitempty"`
}

type CreateUserRequest struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Role            string  `json:"role" enum:"admin,coadmin,worker"`
	DefaultLanguage *string `json:"default_language,omitempty" enum:"ja,fr"`
}

type CreateGlossaryTermRequest struct {
	JATerm string  `json:"ja_term"`
	FRTerm string  `json:"fr_term"`
	Note   *string `json:"note,omitempty"`
}

type UpdateGlossaryTermRequest struct {
	FRTerm *string `json:"fr_term,omitempty"`
	Note   *string `json:"note,omitempty"`
}

type DevLoginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty"`
}

// Response payloads

type DevLoginResponse struct {
	Token string `json:"token"`
}

type WeekDetailResponse struct {
	Week         domain.Week   `json:"week"`
	BusinessDate string        `json:"business_date" format:"date"`
	Tasks        []domain.Task `json:"tasks,omitempty"`
}

type TaskDetailResponse struct {
	Task      domain.Task            `json:"task"`
	Checklist []domain.ChecklistItem `json:"checklist,omitempty"`
	Comments  []domain.Comment       `json:"comments,omitempty"`
}

type TemplateTaskDetail struct {
	Task      domain.TemplateTask            `json:"task"`
	Checklist []domain.TemplateChecklistItem `json:"checklist,omitempty"`
}

type TemplateDetailResponse struct {
	Template domain.Template      `json:"template"`
	Tasks    []TemplateTaskDetail `json:"tasks,omitempty"`
}
