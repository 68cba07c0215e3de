package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"vendor-rewards-api/internal/events"
	"vendor-rewards-api/internal/ledger"
	"vendor-rewards-api/internal/metrics"
	"vendor-rewards-api/internal/models"
	"vendor-rewards-api/internal/validation"
)

// Purchase accrues points for the selected menu items. Every failure comes
// back as a *FlashError wrapping the cause.
func (s *Service) Purchase(ctx context.Context, req models.PurchaseRequest) (models.PurchaseResponse, error) {
	if err := validation.ValidatePurchase(req); err != nil {
		s.metrics.ObserveAccrual(metrics.OutcomeInvalid, 0, false)
		return models.PurchaseResponse{}, flash(err, "%s %s", MsgPurchaseFailed, sentence(err.Error()))
	}

	res, err := s.ledger.Accrue(ctx, req.VendorID, req.UserID, req.ItemIDs)
	s.metrics.ObserveAccrual(outcome(err), res.Earned, res.Created)
	if err != nil {
		return models.PurchaseResponse{}, s.purchaseError(req, err)
	}

	s.logger.Info("purchase recorded",
		"vendor_id", req.VendorID,
		"user_id", req.UserID,
		"items", len(req.ItemIDs),
		"earned", res.Earned,
		"balance", res.Balance.Points,
		"balance_created", res.Created,
	)
	s.events.PublishPurchaseRecorded(ctx, events.PurchaseRecordedData{
		ItemIDs: req.ItemIDs,
		Earned:  res.Earned,
		Created: res.Created,
		Balance: res.Balance,
	})

	return models.PurchaseResponse{
		Message: MsgPurchaseMade,
		Earned:  res.Earned,
		Created: res.Created,
		Balance: res.Balance,
	}, nil
}

func (s *Service) purchaseError(req models.PurchaseRequest, err error) error {
	log := s.logger.With("vendor_id", req.VendorID, "user_id", req.UserID)

	switch {
	case errors.Is(err, ledger.ErrNotFound):
		log.Info("purchase rejected", "error", err)
		return flash(err, "%s %s", MsgPurchaseFailed, sentence(detail(err, ledger.ErrNotFound)))
	case errors.Is(err, ledger.ErrEmptyPurchase):
		return flash(err, "%s Select at least one menu item.", MsgPurchaseFailed)
	default:
		log.Error("purchase failed", "error", err)
		return flash(err, "%s %s", MsgPurchaseFailed, MsgGenericFailure)
	}
}

// Redeem spends points on a deal. An empty mode means points. An unknown
// mode leaves the balance alone and says so in the message, unless strict
// redemption mode is on, in which case it is an error.
func (s *Service) Redeem(ctx context.Context, req models.RedemptionRequest) (models.RedemptionResponse, error) {
	if req.Mode == "" {
		req.Mode = models.RedemptionModePoints
	}
	if err := validation.ValidateRedemption(req); err != nil {
		s.metrics.ObserveRedemption(metrics.OutcomeInvalid, 0)
		return models.RedemptionResponse{}, flash(err, "%s %s", MsgRedemptionFailed, sentence(err.Error()))
	}

	res, err := s.ledger.Redeem(ctx, req.VendorID, req.UserID, req.DealID, req.Mode)
	if err != nil {
		s.metrics.ObserveRedemption(outcome(err), 0)
		return models.RedemptionResponse{}, s.redemptionError(req, err)
	}

	if !res.Applied {
		s.metrics.ObserveRedemption(metrics.OutcomeNoop, 0)
		s.logger.Warn("redemption mode not supported",
			"vendor_id", req.VendorID, "user_id", req.UserID, "mode", req.Mode)
		return models.RedemptionResponse{
			Message: fmt.Sprintf("Redemption mode %q is not supported; nothing was redeemed", req.Mode),
			Balance: res.Balance,
		}, nil
	}

	s.metrics.ObserveRedemption(metrics.OutcomeSuccess, res.Spent)
	s.logger.Info("deal redeemed",
		"vendor_id", req.VendorID,
		"user_id", req.UserID,
		"deal_id", req.DealID,
		"spent", res.Spent,
		"balance", res.Balance.Points,
	)
	s.events.PublishPointsRedeemed(ctx, events.PointsRedeemedData{
		DealID:  req.DealID,
		Spent:   res.Spent,
		Balance: res.Balance,
	})

	return models.RedemptionResponse{
		Message: MsgDealRedeemed,
		Applied: true,
		Spent:   res.Spent,
		Balance: res.Balance,
	}, nil
}

func (s *Service) redemptionError(req models.RedemptionRequest, err error) error {
	log := s.logger.With("vendor_id", req.VendorID, "user_id", req.UserID, "deal_id", req.DealID)

	switch {
	case errors.Is(err, ledger.ErrInsufficientPoints):
		log.Info("redemption rejected", "error", err)
		return flash(err, "%s", MsgNotEnoughPoints)
	case errors.Is(err, ledger.ErrNotFound):
		log.Info("redemption rejected", "error", err)
		return flash(err, "%s %s", MsgRedemptionFailed, sentence(detail(err, ledger.ErrNotFound)))
	case errors.Is(err, ledger.ErrUnsupportedMode):
		log.Info("redemption rejected", "mode", req.Mode)
		return flash(err, "%s Redemption mode %q is not supported.", MsgRedemptionFailed, req.Mode)
	default:
		log.Error("redemption failed", "error", err)
		return flash(err, "%s %s", MsgRedemptionFailed, MsgGenericFailure)
	}
}

// PurchaseForm returns the users and menu a purchase page offers.
func (s *Service) PurchaseForm(ctx context.Context, vendorID int64) (models.PurchaseFormData, error) {
	if _, err := s.db.GetVendor(ctx, vendorID); err != nil {
		return models.PurchaseFormData{}, err
	}

	users, err := s.db.ListUsers(ctx)
	if err != nil {
		return models.PurchaseFormData{}, err
	}
	menu, err := s.db.ListMenuItems(ctx, vendorID)
	if err != nil {
		return models.PurchaseFormData{}, err
	}

	return models.PurchaseFormData{VendorID: vendorID, Users: users, Menu: menu}, nil
}

// Balances returns every reward balance of a user.
func (s *Service) Balances(ctx context.Context, userID int64) ([]models.RewardBalance, error) {
	if _, err := s.db.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.db.ListBalances(ctx, userID)
}

// Entries returns the history of a user's balance with a vendor.
func (s *Service) Entries(ctx context.Context, userID, vendorID int64) ([]models.RewardEntry, error) {
	if _, err := s.db.GetBalance(ctx, userID, vendorID); err != nil {
		return nil, err
	}
	return s.db.ListEntries(ctx, userID, vendorID)
}

// sentence capitalizes msg and ends it with a period.
func sentence(msg string) string {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(msg)
	msg = string(unicode.ToUpper(r)) + msg[size:]
	if !strings.HasSuffix(msg, ".") {
		msg += "."
	}
	return msg
}
