package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"cadence/internal/domain"
	"cadence/internal/events"
	"cadence/internal/week"
)

// TemplateTaskDef is one task of a template definition before it is stored.
type TemplateTaskDef struct {
	TitleJA   string
	BodyJA    string
	DueRule   string
	Tag       string
	Checklist []TemplateChecklistDef
}

type TemplateChecklistDef struct {
	TextJA          string
	DefaultAssignee string
}

// InitTemplate stores a template definition as the next version and makes it
// the active one. Every due rule is validated before anything is written, and
// role placeholders must name roles the config declares.
func (e Engine) InitTemplate(ctx context.Context, name string, defs []TemplateTaskDef, requestedBy string) (domain.Template, error) {
	if len(defs) == 0 {
		return domain.Template{}, ErrEmptyTemplate
	}
	for _, def := range defs {
		if def.TitleJA == "" {
			return domain.Template{}, fmt.Errorf("template task with empty title")
		}
		if _, err := week.ParseRule(def.DueRule); err != nil {
			return domain.Template{}, err
		}
		for _, item := range def.Checklist {
			if role, ok := cutRole(item.DefaultAssignee); ok && !e.Config.KnownRole(role) {
				return domain.Template{}, fmt.Errorf("checklist item %q references unknown role %q", item.TextJA, role)
			}
		}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Template{}, err
	}
	defer tx.Rollback()

	now := e.timestamp()
	version, err := e.Repo.MaxTemplateVersion(ctx, tx)
	if err != nil {
		return domain.Template{}, err
	}
	if err := e.Repo.DeactivateTemplatesTx(ctx, tx, now); err != nil {
		return domain.Template{}, err
	}
	tmpl := domain.Template{
		ID:        uuid.NewString(),
		Name:      name,
		IsActive:  true,
		Version:   version + 1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.Repo.InsertTemplateTx(ctx, tx, tmpl); err != nil {
		return domain.Template{}, fmt.Errorf("insert template: %w", err)
	}
	for i, def := range defs {
		tt := domain.TemplateTask{
			ID:              uuid.NewString(),
			TemplateID:      tmpl.ID,
			TitleJA:         def.TitleJA,
			RelativeDueRule: def.DueRule,
			SortOrder:       i,
			CreatedAt:       now,
		}
		if def.BodyJA != "" {
			tt.BodyJA = &def.BodyJA
		}
		if def.Tag != "" {
			tt.Tag = &def.Tag
		}
		if err := e.Repo.InsertTemplateTaskTx(ctx, tx, tt); err != nil {
			return domain.Template{}, err
		}
		for j, item := range def.Checklist {
			tc := domain.TemplateChecklistItem{
				ID:              uuid.NewString(),
				TemplateTaskID:  tt.ID,
				TextJA:          item.TextJA,
				DefaultAssignee: item.DefaultAssignee,
				SortOrder:       j,
				CreatedAt:       now,
			}
			if err := e.Repo.InsertTemplateChecklistItemTx(ctx, tx, tc); err != nil {
				return domain.Template{}, err
			}
		}
	}
	if err := e.Events.Append(ctx, tx, events.TypeTemplateInitialized, requestedBy, "", "", events.EventPayload{
		"template_id": tmpl.ID,
		"name":        tmpl.Name,
		"version":     tmpl.Version,
		"tasks":       len(defs),
	}); err != nil {
		return domain.Template{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Template{}, err
	}
	return tmpl, nil
}

// CreateUser registers a staff member.
func (e Engine) CreateUser(ctx context.Context, id, name, role, lang string) (domain.User, error) {
	if id == "" || name == "" {
		return domain.User{}, fmt.Errorf("user id and name are required")
	}
	if !e.Config.KnownRole(role) {
		return domain.User{}, fmt.Errorf("unknown role %q", role)
	}
	if lang == "" {
		lang = e.Config.Languages.Source
	}
	now := e.timestamp()
	u := domain.User{
		ID:              id,
		Name:            name,
		Role:            role,
		DefaultLanguage: lang,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := e.Repo.InsertUser(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// SeedGlossary loads the config's fixed vocabulary into the glossary table.
func (e Engine) SeedGlossary(ctx context.Context) (int, error) {
	now := e.timestamp()
	n := 0
	for _, entry := range e.Config.Translation.Glossary {
		t := domain.GlossaryTerm{
			ID:        uuid.NewString(),
			JATerm:    entry.JA,
			FRTerm:    entry.FR,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := e.Repo.UpsertGlossaryTerm(ctx, t); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// AddGlossaryTerm pins a fixed translation for a JA term.
func (e Engine) AddGlossaryTerm(ctx context.Context, jaTerm, frTerm string, note *string) (domain.GlossaryTerm, error) {
	if jaTerm == "" || frTerm == "" {
		return domain.GlossaryTerm{}, fmt.Errorf("ja_term and fr_term are required")
	}
	now := e.timestamp()
	t := domain.GlossaryTerm{
		ID:        uuid.NewString(),
		JATerm:    jaTerm,
		FRTerm:    frTerm,
		Note:      note,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.Repo.InsertGlossaryTerm(ctx, t); err != nil {
		return domain.GlossaryTerm{}, err
	}
	return t, nil
}

// UpdateGlossaryTerm changes the target text or note of a term.
func (e Engine) UpdateGlossaryTerm(ctx context.Context, id string, frTerm, note *string) (domain.GlossaryTerm, error) {
	if err := e.Repo.UpdateGlossaryTerm(ctx, id, frTerm, note, e.timestamp()); err != nil {
		return domain.GlossaryTerm{}, err
	}
	return e.Repo.GetGlossaryTerm(ctx, id)
}

func cutRole(assignee string) (string, bool) {
	const prefix = "role:"
	if len(assignee) > len(prefix) && assignee[:len(prefix)] == prefix {
		return assignee[len(prefix):], true
	}
	return "", false
}
