package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	_ repositories.OutreachRepository      = (*OutreachRepository)(nil)
	_ repositories.NotificationRepository  = (*NotificationRepository)(nil)
	_ repositories.WorkoutPlanRepository   = (*WorkoutPlanRepository)(nil)
	_ repositories.EmailTemplateRepository = (*EmailTemplateRepository)(nil)
	_ repositories.SuppressionRepository   = (*SuppressionRepository)(nil)
)

type OutreachRepository struct {
	mu   sync.RWMutex
	rows []models.OutreachAction
}

func NewOutreachRepository() *OutreachRepository {
	return &OutreachRepository{}
}

func (r *OutreachRepository) Create(_ context.Context, action *models.OutreachAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	action.ID = primitive.NewObjectID()
	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now()
	}
	r.rows = append(r.rows, *action)
	return nil
}

func (r *OutreachRepository) FindByMemberID(_ context.Context, memberID primitive.ObjectID) ([]*models.OutreachAction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*models.OutreachAction{}
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].MemberID == memberID {
			row := r.rows[i]
			out = append(out, &row)
		}
	}
	return out, nil
}

type NotificationRepository struct {
	mu   sync.RWMutex
	rows []*models.Notification
}

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{}
}

func (r *NotificationRepository) Create(_ context.Context, notification *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	notification.ID = primitive.NewObjectID()
	notification.CreatedAt = now
	notification.UpdatedAt = now
	row := *notification
	r.rows = append(r.rows, &row)
	return nil
}

func (r *NotificationRepository) FindByMember(_ context.Context, memberID primitive.ObjectID, unreadOnly bool) ([]*models.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*models.Notification{}
	for i := len(r.rows) - 1; i >= 0 && len(out) < 100; i-- {
		n := r.rows[i]
		if n.MemberID != memberID || (unreadOnly && n.IsRead) {
			continue
		}
		row := *n
		out = append(out, &row)
	}
	return out, nil
}

func (r *NotificationRepository) MarkRead(_ context.Context, id, memberID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.rows {
		if n.ID == id && n.MemberID == memberID {
			n.IsRead = true
			n.UpdatedAt = time.Now()
			return nil
		}
	}
	return repositories.ErrNotFound
}

type WorkoutPlanRepository struct {
	mu   sync.RWMutex
	rows []*models.WorkoutPlan
}

func NewWorkoutPlanRepository() *WorkoutPlanRepository {
	return &WorkoutPlanRepository{}
}

func cloneWorkoutPlan(p *models.WorkoutPlan) *models.WorkoutPlan {
	out := *p
	out.Sessions = make([]models.WorkoutSession, len(p.Sessions))
	for i, s := range p.Sessions {
		s.Exercises = append([]models.Exercise(nil), s.Exercises...)
		out.Sessions[i] = s
	}
	return &out
}

func (r *WorkoutPlanRepository) Create(_ context.Context, plan *models.WorkoutPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	plan.ID = primitive.NewObjectID()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now()
	}
	r.rows = append(r.rows, cloneWorkoutPlan(plan))
	return nil
}

func (r *WorkoutPlanRepository) FindByMemberID(_ context.Context, memberID primitive.ObjectID) ([]*models.WorkoutPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*models.WorkoutPlan{}
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].MemberID == memberID {
			out = append(out, cloneWorkoutPlan(r.rows[i]))
		}
	}
	return out, nil
}

type EmailTemplateRepository struct {
	mu        sync.RWMutex
	templates []*models.EmailTemplate
}

func NewEmailTemplateRepository() *EmailTemplateRepository {
	return &EmailTemplateRepository{}
}

func cloneTemplate(t *models.EmailTemplate) *models.EmailTemplate {
	out := *t
	out.Variables = append([]string(nil), t.Variables...)
	return &out
}

func (r *EmailTemplateRepository) Create(_ context.Context, template *models.EmailTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.templates {
		if t.Name == template.Name {
			return repositories.ErrDuplicate
		}
	}
	now := time.Now()
	template.ID = primitive.NewObjectID()
	template.CreatedAt = now
	template.UpdatedAt = now
	r.templates = append(r.templates, cloneTemplate(template))
	return nil
}

func (r *EmailTemplateRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.EmailTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.templates {
		if t.ID == id {
			return cloneTemplate(t), nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *EmailTemplateRepository) FindByName(_ context.Context, name string) (*models.EmailTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.templates {
		if t.Name == name {
			return cloneTemplate(t), nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *EmailTemplateRepository) FindAll(_ context.Context) ([]*models.EmailTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.EmailTemplate, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, cloneTemplate(t))
	}
	return out, nil
}

func (r *EmailTemplateRepository) Update(_ context.Context, template *models.EmailTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := -1
	for i, t := range r.templates {
		if t.ID == template.ID {
			idx = i
		} else if t.Name == template.Name {
			return repositories.ErrDuplicate
		}
	}
	if idx < 0 {
		return repositories.ErrNotFound
	}
	template.UpdatedAt = time.Now()
	r.templates[idx] = cloneTemplate(template)
	return nil
}

func (r *EmailTemplateRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range r.templates {
		if t.ID == id {
			r.templates = append(r.templates[:i], r.templates[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

type SuppressionRepository struct {
	mu      sync.RWMutex
	entries map[string]models.SuppressionEntry
	order   []string
}

func NewSuppressionRepository() *SuppressionRepository {
	return &SuppressionRepository{entries: make(map[string]models.SuppressionEntry)}
}

func (r *SuppressionRepository) IsSuppressed(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[strings.ToLower(strings.TrimSpace(email))]
	return ok, nil
}

func (r *SuppressionRepository) Add(_ context.Context, entry *models.SuppressionEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := normalizeEmail(entry.Email)
	if _, ok := r.entries[key]; ok {
		return nil
	}
	entry.ID = primitive.NewObjectID()
	entry.Email = key
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	r.entries[key] = *entry
	r.order = append(r.order, key)
	return nil
}

func (r *SuppressionRepository) FindAll(_ context.Context) ([]*models.SuppressionEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.SuppressionEntry, 0, len(r.order))
	for _, key := range r.order {
		e := r.entries[key]
		out = append(out, &e)
	}
	return out, nil
}
