// Package loyalty keeps client point accrual and block redemption.
package loyalty

import (
	"time"

	"go.uber.org/zap"

	userRepo "servifix/database/repository/user"
	"servifix/models"
	"servifix/services/apperr"
)

const (
	// PointsPerBlock is the redemption granularity; partial blocks are
	// never consumed.
	PointsPerBlock = 100
	// DiscountPerBlock is the dollar discount one full block buys.
	DiscountPerBlock = 10.0
)

// LoyaltyService owns point accrual and redemption for client accounts.
type LoyaltyService interface {
	// Accrue appends an earned entry. Returns the points granted, which is
	// 0 for non-client accounts (a silent no-op, not an error).
	Accrue(user *models.User, points int, reason string) (int, error)
	// Redeem consumes whole 100-point blocks up to the requested amount
	// and returns the consumed points and dollar discount.
	Redeem(user *models.User, requested int) (consumed int, discount float64, err error)
}

// DefaultLoyaltyService implements LoyaltyService over the user repository.
type DefaultLoyaltyService struct {
	UserRepo userRepo.UserRepository
}

func (s *DefaultLoyaltyService) Accrue(user *models.User, points int, reason string) (int, error) {
	if user.Role != models.RoleClient {
		return 0, nil
	}
	if points <= 0 {
		return 0, apperr.Validation("points to accrue must be positive")
	}

	entry := models.LoyaltyEntry{
		Kind:      models.LoyaltyEarned,
		Amount:    points,
		Reason:    reason,
		CreatedAt: time.Now(),
	}
	ok, err := s.UserRepo.AppendLoyalty(user.ID, entry, points)
	if err != nil {
		return 0, apperr.Infra("failed to record loyalty accrual: %v", err)
	}
	if !ok {
		return 0, apperr.NotFound("client %s not found", user.ID)
	}

	user.Loyalty.Balance += points
	user.Loyalty.History = append(user.Loyalty.History, entry)

	zap.L().Info("loyalty points earned",
		zap.String("client_id", user.ID),
		zap.Int("points", points),
		zap.String("reason", reason))
	return points, nil
}

func (s *DefaultLoyaltyService) Redeem(user *models.User, requested int) (int, float64, error) {
	if user.Role != models.RoleClient {
		return 0, 0, apperr.Unauthorized("only clients hold loyalty points")
	}
	if requested <= 0 {
		return 0, 0, apperr.Validation("points to redeem must be positive")
	}
	if requested > user.Loyalty.Balance {
		return 0, 0, apperr.Conflict("insufficient points: balance %d, requested %d", user.Loyalty.Balance, requested)
	}

	// Only whole blocks are consumed; a remainder below one block stays
	// on the account untouched.
	available := requested
	if user.Loyalty.Balance < available {
		available = user.Loyalty.Balance
	}
	blocks := available / PointsPerBlock
	if blocks == 0 {
		return 0, 0, apperr.Conflict("at least %d points are required to redeem", PointsPerBlock)
	}
	consumed := blocks * PointsPerBlock
	discount := float64(blocks) * DiscountPerBlock

	entry := models.LoyaltyEntry{
		Kind:      models.LoyaltyRedeemed,
		Amount:    consumed,
		Reason:    "discount redemption",
		CreatedAt: time.Now(),
	}
	// The repository guards the decrement on the stored balance, so a stale
	// snapshot here cannot drive the account negative under concurrency.
	ok, err := s.UserRepo.AppendLoyalty(user.ID, entry, -consumed)
	if err != nil {
		return 0, 0, apperr.Infra("failed to record loyalty redemption: %v", err)
	}
	if !ok {
		return 0, 0, apperr.Conflict("insufficient points: %d requested", requested)
	}

	user.Loyalty.Balance -= consumed
	user.Loyalty.History = append(user.Loyalty.History, entry)

	zap.L().Info("loyalty points redeemed",
		zap.String("client_id", user.ID),
		zap.Int("consumed", consumed),
		zap.Float64("discount", discount))
	return consumed, discount, nil
}
