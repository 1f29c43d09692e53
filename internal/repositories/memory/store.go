// Package memory holds process-local repository implementations used for
// local development and tests. State is lost on restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewStore returns a Store backed entirely by memory.
func NewStore() *repositories.Store {
	return &repositories.Store{
		Members:          NewMemberRepository(),
		ChurnEmails:      NewChurnEmailRepository(),
		Interactions:     NewEmailInteractionRepository(),
		Offers:           NewLoyaltyOfferRepository(),
		Redemptions:      NewRedemptionRepository(),
		PointTransaction: NewPointTransactionRepository(),
		Visits:           NewVisitRepository(),
		Outreach:         NewOutreachRepository(),
		Notifications:    NewNotificationRepository(),
		WorkoutPlans:     NewWorkoutPlanRepository(),
		EmailTemplates:   NewEmailTemplateRepository(),
		Suppressions:     NewSuppressionRepository(),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyID(id *primitive.ObjectID) *primitive.ObjectID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// --- members ---

var _ repositories.MemberRepository = (*MemberRepository)(nil)

// MemberRepository keeps members in a map keyed by id.
type MemberRepository struct {
	mu      sync.RWMutex
	members map[primitive.ObjectID]*models.Member
}

func NewMemberRepository() *MemberRepository {
	return &MemberRepository{members: make(map[primitive.ObjectID]*models.Member)}
}

func cloneMember(m *models.Member) *models.Member {
	out := *m
	out.LastVisit = copyTime(m.LastVisit)
	return &out
}

func (r *MemberRepository) Create(_ context.Context, member *models.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	member.Email = normalizeEmail(member.Email)
	for _, existing := range r.members {
		if existing.Email == member.Email {
			return repositories.ErrDuplicate
		}
	}
	now := time.Now()
	member.ID = primitive.NewObjectID()
	member.CreatedAt = now
	member.UpdatedAt = now
	r.members[member.ID] = cloneMember(member)
	return nil
}

func (r *MemberRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return cloneMember(m), nil
}

func (r *MemberRepository) FindByEmail(_ context.Context, email string) (*models.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	email = normalizeEmail(email)
	for _, m := range r.members {
		if m.Email == email {
			return cloneMember(m), nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *MemberRepository) FindAll(_ context.Context, page, limit int) ([]*models.Member, error) {
	r.mu.RLock()
	all := make([]*models.Member, 0, len(r.members))
	for _, m := range r.members {
		all = append(all, cloneMember(m))
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].LastName != all[j].LastName {
			return all[i].LastName < all[j].LastName
		}
		return all[i].FirstName < all[j].FirstName
	})
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	start := (page - 1) * limit
	if start >= len(all) {
		return []*models.Member{}, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (r *MemberRepository) FindAtRisk(_ context.Context, cutoff time.Time) ([]*models.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*models.Member{}
	for _, m := range r.members {
		if m.Role != models.RoleMember {
			continue
		}
		if m.LastVisit == nil || m.LastVisit.Before(cutoff) {
			out = append(out, cloneMember(m))
		}
	}
	// never-visited first, then oldest visit first
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].LastVisit, out[j].LastVisit
		switch {
		case a == nil && b == nil:
			return out[i].ID.Hex() < out[j].ID.Hex()
		case a == nil:
			return true
		case b == nil:
			return false
		}
		return a.Before(*b)
	})
	return out, nil
}

func (r *MemberRepository) Update(_ context.Context, member *models.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[member.ID]; !ok {
		return repositories.ErrNotFound
	}
	member.Email = normalizeEmail(member.Email)
	for id, existing := range r.members {
		if id != member.ID && existing.Email == member.Email {
			return repositories.ErrDuplicate
		}
	}
	member.UpdatedAt = time.Now()
	r.members[member.ID] = cloneMember(member)
	return nil
}

func (r *MemberRepository) UpdateLastVisit(_ context.Context, id primitive.ObjectID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[id]
	if !ok {
		return repositories.ErrNotFound
	}
	m.LastVisit = &at
	m.UpdatedAt = time.Now()
	return nil
}

func (r *MemberRepository) AdjustPoints(_ context.Context, id primitive.ObjectID, delta int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[id]
	if !ok {
		return 0, repositories.ErrNotFound
	}
	if m.LoyaltyPoints+delta < 0 {
		return 0, repositories.ErrInsufficientBalance
	}
	m.LoyaltyPoints += delta
	m.UpdatedAt = time.Now()
	return m.LoyaltyPoints, nil
}

func (r *MemberRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.members)), nil
}

// --- churn emails ---

var _ repositories.ChurnEmailRepository = (*ChurnEmailRepository)(nil)

// ChurnEmailRepository keeps churn emails in insertion order.
type ChurnEmailRepository struct {
	mu     sync.RWMutex
	emails []*models.ChurnEmail
}

func NewChurnEmailRepository() *ChurnEmailRepository {
	return &ChurnEmailRepository{}
}

func cloneChurnEmail(e *models.ChurnEmail) *models.ChurnEmail {
	out := *e
	out.MemberProfile = e.MemberProfile.Clone()
	out.StaffID = copyID(e.StaffID)
	out.ApprovedBy = copyID(e.ApprovedBy)
	out.ApprovedAt = copyTime(e.ApprovedAt)
	out.RejectedAt = copyTime(e.RejectedAt)
	out.SentAt = copyTime(e.SentAt)
	out.DispatchingAt = copyTime(e.DispatchingAt)
	return &out
}

func (r *ChurnEmailRepository) Create(_ context.Context, email *models.ChurnEmail) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	email.ID = primitive.NewObjectID()
	if email.CreatedAt.IsZero() {
		email.CreatedAt = now
	}
	email.UpdatedAt = now
	r.emails = append(r.emails, cloneChurnEmail(email))
	return nil
}

func (r *ChurnEmailRepository) find(id primitive.ObjectID) *models.ChurnEmail {
	for _, e := range r.emails {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (r *ChurnEmailRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.ChurnEmail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e := r.find(id)
	if e == nil {
		return nil, repositories.ErrNotFound
	}
	return cloneChurnEmail(e), nil
}

func (r *ChurnEmailRepository) FindAll(_ context.Context, status models.ChurnEmailStatus) ([]*models.ChurnEmail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*models.ChurnEmail{}
	for i := len(r.emails) - 1; i >= 0; i-- {
		e := r.emails[i]
		if status == "" || e.Status == status {
			out = append(out, cloneChurnEmail(e))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *ChurnEmailRepository) FindLatestByMember(_ context.Context, memberID primitive.ObjectID) (*models.ChurnEmail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *models.ChurnEmail
	for _, e := range r.emails {
		if e.MemberID != memberID {
			continue
		}
		if latest == nil || !e.CreatedAt.Before(latest.CreatedAt) {
			latest = e
		}
	}
	if latest == nil {
		return nil, repositories.ErrNotFound
	}
	return cloneChurnEmail(latest), nil
}

func (r *ChurnEmailRepository) UpdateStatus(_ context.Context, id primitive.ObjectID, from models.ChurnEmailStatus, update models.ChurnEmailUpdate) (*models.ChurnEmail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.find(id)
	if e == nil {
		return nil, repositories.ErrNotFound
	}
	if e.Status != from {
		return nil, repositories.ErrConflict
	}
	e.Status = update.Status
	e.UpdatedAt = time.Now()
	if update.StaffID != nil {
		e.StaffID = copyID(update.StaffID)
	}
	if update.ApprovedAt != nil {
		e.ApprovedAt = copyTime(update.ApprovedAt)
		if update.StaffID != nil {
			e.ApprovedBy = copyID(update.StaffID)
		}
	}
	if update.RejectedAt != nil {
		e.RejectedAt = copyTime(update.RejectedAt)
	}
	if update.SentAt != nil {
		e.SentAt = copyTime(update.SentAt)
	}
	if update.TrackingID != "" {
		e.TrackingID = update.TrackingID
	}
	if update.Status == models.ChurnEmailSent {
		e.DispatchingAt = nil
	}
	return cloneChurnEmail(e), nil
}

func (r *ChurnEmailRepository) ClaimDispatch(_ context.Context, id primitive.ObjectID, at, staleBefore time.Time) (*models.ChurnEmail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.find(id)
	if e == nil {
		return nil, repositories.ErrNotFound
	}
	if e.Status != models.ChurnEmailApproved {
		return nil, repositories.ErrConflict
	}
	if e.DispatchingAt != nil && !e.DispatchingAt.Before(staleBefore) {
		return nil, repositories.ErrConflict
	}
	e.DispatchingAt = &at
	e.UpdatedAt = time.Now()
	return cloneChurnEmail(e), nil
}

func (r *ChurnEmailRepository) ReleaseDispatch(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.find(id)
	if e == nil {
		return repositories.ErrNotFound
	}
	e.DispatchingAt = nil
	return nil
}

// --- email interactions ---

var _ repositories.EmailInteractionRepository = (*EmailInteractionRepository)(nil)

// EmailInteractionRepository is an append-only slice.
type EmailInteractionRepository struct {
	mu   sync.RWMutex
	rows []models.EmailInteraction
}

func NewEmailInteractionRepository() *EmailInteractionRepository {
	return &EmailInteractionRepository{}
}

func (r *EmailInteractionRepository) Create(_ context.Context, interaction *models.EmailInteraction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	interaction.ID = primitive.NewObjectID()
	interaction.ProspectEmail = normalizeEmail(interaction.ProspectEmail)
	if interaction.CreatedAt.IsZero() {
		interaction.CreatedAt = time.Now()
	}
	r.rows = append(r.rows, *interaction)
	return nil
}

func (r *EmailInteractionRepository) FindFirstByTrackingID(_ context.Context, trackingID string, interactionType models.InteractionType) (*models.EmailInteraction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, row := range r.rows {
		if row.TrackingID == trackingID && row.InteractionType == interactionType {
			out := row
			return &out, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *EmailInteractionRepository) filter(match func(models.EmailInteraction) bool) []*models.EmailInteraction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*models.EmailInteraction{}
	for _, row := range r.rows {
		if match(row) {
			row := row
			out = append(out, &row)
		}
	}
	return out
}

func (r *EmailInteractionRepository) FindByTrackingID(_ context.Context, trackingID string) ([]*models.EmailInteraction, error) {
	return r.filter(func(row models.EmailInteraction) bool { return row.TrackingID == trackingID }), nil
}

func (r *EmailInteractionRepository) FindByProspectEmail(_ context.Context, email string) ([]*models.EmailInteraction, error) {
	email = normalizeEmail(email)
	return r.filter(func(row models.EmailInteraction) bool { return row.ProspectEmail == email }), nil
}
