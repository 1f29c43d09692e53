package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	_ repositories.LoyaltyOfferRepository     = (*LoyaltyOfferRepository)(nil)
	_ repositories.RedemptionRepository       = (*RedemptionRepository)(nil)
	_ repositories.PointTransactionRepository = (*PointTransactionRepository)(nil)
	_ repositories.VisitRepository            = (*VisitRepository)(nil)
)

type LoyaltyOfferRepository struct {
	mu     sync.RWMutex
	offers []*models.LoyaltyOffer
}

func NewLoyaltyOfferRepository() *LoyaltyOfferRepository {
	return &LoyaltyOfferRepository{}
}

func cloneOffer(o *models.LoyaltyOffer) *models.LoyaltyOffer {
	out := *o
	out.ValidUntil = copyTime(o.ValidUntil)
	return &out
}

func (r *LoyaltyOfferRepository) Create(_ context.Context, offer *models.LoyaltyOffer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	offer.ID = primitive.NewObjectID()
	offer.CreatedAt = now
	offer.UpdatedAt = now
	r.offers = append(r.offers, cloneOffer(offer))
	return nil
}

func (r *LoyaltyOfferRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.LoyaltyOffer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.offers {
		if o.ID == id {
			return cloneOffer(o), nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *LoyaltyOfferRepository) FindAll(_ context.Context, activeOnly bool) ([]*models.LoyaltyOffer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*models.LoyaltyOffer{}
	for _, o := range r.offers {
		if activeOnly && !o.IsActive {
			continue
		}
		out = append(out, cloneOffer(o))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Points < out[j].Points })
	return out, nil
}

func (r *LoyaltyOfferRepository) Update(_ context.Context, offer *models.LoyaltyOffer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, o := range r.offers {
		if o.ID == offer.ID {
			offer.UpdatedAt = time.Now()
			r.offers[i] = cloneOffer(offer)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (r *LoyaltyOfferRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.offers)), nil
}

// RedemptionRepository enforces one redemption per (member, offer).
type RedemptionRepository struct {
	mu   sync.RWMutex
	rows []models.OfferRedemption
}

func NewRedemptionRepository() *RedemptionRepository {
	return &RedemptionRepository{}
}

func (r *RedemptionRepository) Create(_ context.Context, redemption *models.OfferRedemption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.MemberID == redemption.MemberID && row.OfferID == redemption.OfferID {
			return repositories.ErrDuplicate
		}
	}
	redemption.ID = primitive.NewObjectID()
	if redemption.RedeemedAt.IsZero() {
		redemption.RedeemedAt = time.Now()
	}
	r.rows = append(r.rows, *redemption)
	return nil
}

func (r *RedemptionRepository) FindByMemberAndOffer(_ context.Context, memberID, offerID primitive.ObjectID) (*models.OfferRedemption, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, row := range r.rows {
		if row.MemberID == memberID && row.OfferID == offerID {
			out := row
			return &out, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *RedemptionRepository) FindByMember(_ context.Context, memberID primitive.ObjectID) ([]*models.OfferRedemption, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*models.OfferRedemption{}
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].MemberID == memberID {
			row := r.rows[i]
			out = append(out, &row)
		}
	}
	return out, nil
}

type PointTransactionRepository struct {
	mu   sync.RWMutex
	rows []models.PointTransaction
}

func NewPointTransactionRepository() *PointTransactionRepository {
	return &PointTransactionRepository{}
}

func (r *PointTransactionRepository) Create(_ context.Context, transaction *models.PointTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	transaction.ID = primitive.NewObjectID()
	if transaction.CreatedAt.IsZero() {
		transaction.CreatedAt = time.Now()
	}
	r.rows = append(r.rows, *transaction)
	return nil
}

// FindByMemberID returns the ledger newest first.
func (r *PointTransactionRepository) FindByMemberID(_ context.Context, memberID primitive.ObjectID) ([]*models.PointTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*models.PointTransaction{}
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].MemberID == memberID {
			row := r.rows[i]
			out = append(out, &row)
		}
	}
	return out, nil
}

type VisitRepository struct {
	mu   sync.RWMutex
	rows []models.Visit
}

func NewVisitRepository() *VisitRepository {
	return &VisitRepository{}
}

func (r *VisitRepository) Create(_ context.Context, visit *models.Visit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	visit.ID = primitive.NewObjectID()
	r.rows = append(r.rows, *visit)
	return nil
}

func (r *VisitRepository) FindByMemberID(_ context.Context, memberID primitive.ObjectID, limit int) ([]*models.Visit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*models.Visit{}
	for i := len(r.rows) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		if r.rows[i].MemberID == memberID {
			row := r.rows[i]
			out = append(out, &row)
		}
	}
	return out, nil
}
