package domain

// Task lifecycle and priority values.
const (
	StatusTodo       = "TODO"
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusBlocked    = "BLOCKED"

	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
	PriorityLow    = "LOW"
)

type User struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Role            string `json:"role" enum:"admin,coadmin,worker"`
	DefaultLanguage string `json:"default_language" enum:"ja,fr"`
	CreatedAt       string `json:"created_at" format:"date-time"`
	UpdatedAt       string `json:"updated_at" format:"date-time"`
}

// Week is one ISO week of operations. BusinessDateActual overrides the
// computed Thursday default when the shop moves its opening day.
type Week struct {
	ID                  string  `json:"id"`
	WeekKey             string  `json:"week_key"`
	BusinessDateDefault string  `json:"business_date_default" format:"date"`
	BusinessDateActual  *string `json:"business_date_actual,omitempty" format:"date"`
	CreatedAt           string  `json:"created_at" format:"date-time"`
}

// BusinessDate is the effective anchor: the actual override if set,
// otherwise the default.
func (w Week) BusinessDate() string {
	if w.BusinessDateActual != nil && *w.BusinessDateActual != "" {
		return *w.BusinessDateActual
	}
	return w.BusinessDateDefault
}

type Task struct {
	ID               string  `json:"id"`
	WeekID           string  `json:"week_id"`
	TemplateTaskID   *string `json:"template_task_id,omitempty"`
	TitleJA          string  `json:"title_ja"`
	TitleFR          *string `json:"title_fr,omitempty"`
	BodyJA           *string `json:"body_ja,omitempty"`
	BodyFR           *string `json:"body_fr,omitempty"`
	DueAt            string  `json:"due_at" format:"date-time"`
	Priority         string  `json:"priority" enum:"HIGH,MEDIUM,LOW"`
	Status           string  `json:"status" enum:"TODO,IN_PROGRESS,DONE,BLOCKED"`
	Tag              *string `json:"tag,omitempty"`
	AssigneeUserID   *string `json:"assignee_user_id,omitempty"`
	CreatedBy        string  `json:"created_by"`
	UpdatedBy        *string `json:"updated_by,omitempty"`
	CreatedAt        string  `json:"created_at" format:"date-time"`
	UpdatedAt        string  `json:"updated_at" format:"date-time"`
	TranslatedAt     *string `json:"translated_at,omitempty" format:"date-time"`
	NeedsRetranslate bool    `json:"needs_retranslate"`
}

type ChecklistItem struct {
	ID               string  `json:"id"`
	TaskID           string  `json:"task_id"`
	TextJA           string  `json:"text_ja"`
	TextFR           *string `json:"text_fr,omitempty"`
	AssigneeUserID   string  `json:"assignee_user_id"`
	DueAt            *string `json:"due_at,omitempty" format:"date-time"`
	IsDone           bool    `json:"is_done"`
	DoneBy           *string `json:"done_by,omitempty"`
	DoneAt           *string `json:"done_at,omitempty" format:"date-time"`
	SortOrder        int     `json:"sort_order"`
	CreatedAt        string  `json:"created_at" format:"date-time"`
	UpdatedAt        string  `json:"updated_at" format:"date-time"`
	TranslatedAt     *string `json:"translated_at,omitempty" format:"date-time"`
	NeedsRetranslate bool    `json:"needs_retranslate"`
}

type Comment struct {
	ID               string  `json:"id"`
	TaskID           string  `json:"task_id"`
	AuthorUserID     string  `json:"author_user_id"`
	BodyJA           string  `json:"body_ja"`
	BodyFR           *string `json:"body_fr,omitempty"`
	CreatedAt        string  `json:"created_at" format:"date-time"`
	TranslatedAt     *string `json:"translated_at,omitempty" format:"date-time"`
	NeedsRetranslate bool    `json:"needs_retranslate"`
}

// Template is the versioned definition of a week's recurring tasks.
// At most one template is active at a time; the store enforces it.
type Template struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsActive  bool   `json:"is_active"`
	Version   int    `json:"version"`
	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

type TemplateTask struct {
	ID              string  `json:"id"`
	TemplateID      string  `json:"template_id"`
	TitleJA         string  `json:"title_ja"`
	BodyJA          *string `json:"body_ja,omitempty"`
	RelativeDueRule string  `json:"relative_due_rule"`
	Tag             *string `json:"tag,omitempty"`
	SortOrder       int     `json:"sort_order"`
	CreatedAt       string  `json:"created_at" format:"date-time"`
}

// TemplateChecklistItem's DefaultAssignee is either a concrete user id or a
// role placeholder of the form "role:<name>" resolved at generation time.
type TemplateChecklistItem struct {
	ID              string `json:"id"`
	TemplateTaskID  string `json:"template_task_id"`
	TextJA          string `json:"text_ja"`
	DefaultAssignee string `json:"default_assignee"`
	SortOrder       int    `json:"sort_order"`
	CreatedAt       string `json:"created_at" format:"date-time"`
}

type GlossaryTerm struct {
	ID        string  `json:"id"`
	JATerm    string  `json:"ja_term"`
	FRTerm    string  `json:"fr_term"`
	Note      *string `json:"note,omitempty"`
	CreatedAt string  `json:"created_at" format:"date-time"`
	UpdatedAt string  `json:"updated_at" format:"date-time"`
}

type Event struct {
	ID              int64  `json:"id"`
	TS              string `json:"ts" format:"date-time"`
	Type            string `json:"type"`
	UserID          string `json:"user_id,omitempty"`
	TaskID          string `json:"task_id,omitempty"`
	ChecklistItemID string `json:"checklist_item_id,omitempty"`
	Payload         string `json:"payload_json"`
}

// APIKey authenticates a device or integration as a concrete user.
type APIKey struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
