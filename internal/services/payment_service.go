package services

import (
	"context"
	"fmt"

	"profiles-api/internal/adapters/billing"
	"profiles-api/internal/auth"
	"profiles-api/internal/locale"
	"profiles-api/internal/models"
	"profiles-api/internal/repositories"

	"github.com/sirupsen/logrus"
)

// paymentService implements PaymentService
type paymentService struct {
	*base
}

// CancelPayment cancels a purchase's subscription and records the refund.
// Purchases past the cancel window or with a chosen partner are final.
func (s *paymentService) CancelPayment(ctx context.Context, claim *auth.Claim, req *CancelPaymentRequest) (*MessageResponse, error) {
	if req == nil {
		return nil, RequestShapeError(fmt.Errorf("request cannot be nil"))
	}
	if err := models.ValidateStruct(req); err != nil {
		return nil, RequestShapeError(err)
	}

	user, err := s.loadUser(ctx, claim)
	if err != nil {
		return nil, err
	}

	purchase, err := s.store.Purchases.GetByID(ctx, req.PurchaseID, user.ID)
	if err != nil {
		return nil, DatabaseError(err, locale.PurchaseNotFound).inLocale(user.LanguageID)
	}
	if purchase.HasPartner() {
		return nil, InvalidError(locale.PartnerAlreadySelected, nil).inLocale(user.LanguageID)
	}
	if !purchase.WithinCancelWindow(s.now(), s.cfg.App.CancelWindow) {
		return nil, InvalidError(locale.CancelWindowExpired, nil).inLocale(user.LanguageID)
	}

	if s.billing == nil {
		return nil, UpstreamError(fmt.Errorf("billing provider not configured")).inLocale(user.LanguageID)
	}
	sub, err := s.billing.CancelSubscription(ctx, purchase.SubscriptionID)
	if err != nil {
		return nil, UpstreamError(err).inLocale(user.LanguageID)
	}

	customerID := sub.CustomerID
	if user.HasBillingAccount() {
		customerID = *user.CustomerID
	}
	refund := models.NewRefund(purchase, user.UserID, customerID, models.ParseUserAgent(req.UserAgent), req.Channel)

	err = s.store.Tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.store.Purchases.DeleteBySubscription(txCtx, user.ID, purchase.SubscriptionID); err != nil {
			return err
		}
		return s.store.Transactions.Create(txCtx, refund)
	})
	if err != nil {
		return nil, DatabaseError(err, locale.PurchaseNotFound).inLocale(user.LanguageID)
	}

	s.logger.WithFields(logrus.Fields{
		"rid":             user.ID,
		"purchase_id":     purchase.ID,
		"subscription_id": purchase.SubscriptionID,
	}).Info("Payment cancelled")

	return &MessageResponse{Message: s.messages(user).Get(locale.PaymentCancelled)}, nil
}

// HandleWebhook turns a card expiry event into a notification for the
// matching account. Other events are acknowledged and ignored.
func (s *paymentService) HandleWebhook(ctx context.Context, req *WebhookRequest) (*MessageResponse, error) {
	if req == nil {
		return nil, RequestShapeError(fmt.Errorf("request cannot be nil"))
	}
	cfg := s.cfg.Billing
	if !billing.CheckWebhookCredentials(req.Username, req.Password, cfg.WebhookUsername, cfg.WebhookPassword) {
		return nil, AuthError(locale.Unauthorized, fmt.Errorf("invalid webhook credentials"))
	}

	event, err := billing.ParseWebhookEvent(req.Body)
	if err != nil {
		return nil, RequestShapeError(err)
	}

	msgs := s.catalog.For(locale.DefaultLocaleID)
	logger := s.logger.WithFields(logrus.Fields{"event_id": event.ID, "event_type": event.EventType})

	if event.EventType != cfg.CardExpiryEvent {
		logger.Debug("Ignoring billing event")
		return &MessageResponse{Message: msgs.Get(locale.WebhookIgnored)}, nil
	}

	customerID := event.CustomerID()
	if customerID == "" {
		return nil, RequestShapeError(fmt.Errorf("event %s has no customer", event.ID))
	}
	user, err := s.store.Users.GetByCustomerID(ctx, customerID)
	if err != nil {
		return nil, DatabaseError(err, locale.InvalidUser)
	}

	n, err := models.NewNotification(user.ID, user.UserID, cfg.CardExpiryNotificationType, map[string]string{
		"card_number":  event.CardLast4(),
		"profile_link": cfg.UpdatePaymentLink,
	})
	if err != nil {
		return nil, InternalError(err)
	}
	if err := s.store.Notifications.Create(ctx, n); err != nil {
		return nil, DatabaseError(err, locale.InvalidUser)
	}

	logger.WithField("rid", user.ID).Info("Card expiry notification created")
	return &MessageResponse{Message: msgs.Get(locale.WebhookProcessed)}, nil
}

// Checkout starts a purchase. The account gets a billing customer on first
// use. A first purchase goes through a hosted checkout page that collects the
// payment method; later purchases charge the stored method right away.
func (s *paymentService) Checkout(ctx context.Context, claim *auth.Claim, req *PurchaseRequest) (*CheckoutResponse, error) {
	user, plan, err := s.preparePurchase(ctx, claim, req)
	if err != nil {
		return nil, err
	}

	purchases, err := s.store.Purchases.ListByRID(ctx, user.ID)
	if err != nil {
		return nil, DatabaseError(err, locale.PurchaseNotFound).inLocale(user.LanguageID)
	}
	if owns(purchases, req.ProductID) {
		return nil, InvalidError(locale.ProductPurchased, nil).inLocale(user.LanguageID)
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return nil, err
	}

	logger := s.logger.WithFields(logrus.Fields{
		"rid":         user.ID,
		"product_id":  req.ProductID,
		"plan_id":     plan.ID,
		"customer_id": customerID,
	})

	if len(purchases) == 0 {
		page, err := s.billing.CheckoutNew(ctx, customerID, plan.ID)
		if err != nil {
			return nil, UpstreamError(err).inLocale(user.LanguageID)
		}
		logger.WithField("hosted_page_id", page.ID).Info("Checkout page created")
		return &CheckoutResponse{Site: s.cfg.Billing.Site, HostedPage: page}, nil
	}

	charge, err := s.billing.CreateSubscription(ctx, customerID, plan.ID)
	if err != nil {
		return nil, UpstreamError(err).inLocale(user.LanguageID)
	}
	if !charge.Invoice.Paid() {
		logger.WithField("subscription_id", charge.Subscription.ID).Warn("Subscription invoice not paid")
		return nil, InvalidError(locale.PaymentFailed, nil).inLocale(user.LanguageID)
	}

	purchase, err := s.recordPurchase(ctx, user, customerID, plan, charge.Subscription.ID, req)
	if err != nil {
		return nil, err
	}
	return &CheckoutResponse{
		Message:    s.messages(user).Get(locale.PaymentCompleted),
		PurchaseID: purchase.ID,
	}, nil
}

// ConfirmPayment records a purchase paid on the hosted checkout page. The
// customer's oldest live subscription to the product's plan that is not yet
// recorded becomes the purchase.
func (s *paymentService) ConfirmPayment(ctx context.Context, claim *auth.Claim, req *PurchaseRequest) (*PurchaseResponse, error) {
	user, plan, err := s.preparePurchase(ctx, claim, req)
	if err != nil {
		return nil, err
	}
	if !user.HasBillingAccount() {
		return nil, InvalidError(locale.PaymentFailed, fmt.Errorf("account has no billing customer")).inLocale(user.LanguageID)
	}

	purchases, err := s.store.Purchases.ListByRID(ctx, user.ID)
	if err != nil {
		return nil, DatabaseError(err, locale.PurchaseNotFound).inLocale(user.LanguageID)
	}
	if owns(purchases, req.ProductID) {
		return nil, InvalidError(locale.ProductPurchased, nil).inLocale(user.LanguageID)
	}

	subs, err := s.billing.ListSubscriptions(ctx, *user.CustomerID)
	if err != nil {
		return nil, UpstreamError(err).inLocale(user.LanguageID)
	}
	sub := oldestUnrecorded(subs, plan.ID, purchases)
	if sub == nil {
		return nil, InvalidError(locale.PaymentFailed, nil).inLocale(user.LanguageID)
	}

	purchase, err := s.recordPurchase(ctx, user, *user.CustomerID, plan, sub.ID, req)
	if err != nil {
		return nil, err
	}
	return &PurchaseResponse{
		Message:    s.messages(user).Get(locale.PaymentCompleted),
		PurchaseID: purchase.ID,
	}, nil
}

// ListPurchases returns the caller's purchases, newest first, with whether
// each can still be cancelled
func (s *paymentService) ListPurchases(ctx context.Context, claim *auth.Claim) (*PurchasesResponse, error) {
	user, err := s.loadUser(ctx, claim)
	if err != nil {
		return nil, err
	}

	purchases, err := s.store.Purchases.ListByRID(ctx, user.ID)
	if err != nil {
		return nil, DatabaseError(err, locale.PurchaseNotFound).inLocale(user.LanguageID)
	}

	now := s.now()
	resp := &PurchasesResponse{Purchases: make([]PurchaseSummary, 0, len(purchases))}
	for _, p := range purchases {
		resp.Purchases = append(resp.Purchases, PurchaseSummary{
			Purchase:    p,
			Cancellable: !p.HasPartner() && p.WithinCancelWindow(now, s.cfg.App.CancelWindow),
		})
	}
	return resp, nil
}

// preparePurchase validates the request, loads the caller and resolves the
// product's plan at the billing provider
func (s *paymentService) preparePurchase(ctx context.Context, claim *auth.Claim, req *PurchaseRequest) (*models.User, *billing.Plan, error) {
	if req == nil {
		return nil, nil, RequestShapeError(fmt.Errorf("request cannot be nil"))
	}
	if err := models.ValidateStruct(req); err != nil {
		return nil, nil, RequestShapeError(err)
	}

	user, err := s.loadUser(ctx, claim)
	if err != nil {
		return nil, nil, err
	}

	planID, ok := s.cfg.Billing.Plans[req.ProductID]
	if !ok {
		return nil, nil, NotFoundError(locale.ProductNotFound, fmt.Errorf("no plan for product %d", req.ProductID)).inLocale(user.LanguageID)
	}
	if s.billing == nil {
		return nil, nil, UpstreamError(fmt.Errorf("billing provider not configured")).inLocale(user.LanguageID)
	}
	plan, err := s.billing.RetrievePlan(ctx, planID)
	if err != nil {
		return nil, nil, UpstreamError(err).inLocale(user.LanguageID)
	}
	return user, plan, nil
}

// ensureCustomer returns the account's billing customer, creating and
// recording one on first use
func (s *paymentService) ensureCustomer(ctx context.Context, user *models.User) (string, error) {
	if user.HasBillingAccount() {
		return *user.CustomerID, nil
	}

	email, _ := s.cipher.OpenString(user.EmailCipher)
	firstName, _ := s.cipher.OpenString(user.FirstNameCipher)
	lastName, _ := s.cipher.OpenString(user.LastNameCipher)

	customer, err := s.billing.CreateCustomer(ctx, billing.NewCustomer{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Locale:    s.messages(user).LanguageCode(),
	})
	if err != nil {
		return "", UpstreamError(err).inLocale(user.LanguageID)
	}

	err = s.store.Users.SetCustomerID(ctx, user.ID, customer.ID)
	if repositories.IsConcurrency(err) {
		// a concurrent checkout recorded its customer first
		current, getErr := s.store.Users.GetByID(ctx, user.ID)
		if getErr != nil || !current.HasBillingAccount() {
			return "", DatabaseError(err, locale.InvalidUser).inLocale(user.LanguageID)
		}
		s.logger.WithFields(logrus.Fields{
			"rid":         user.ID,
			"customer_id": customer.ID,
			"kept":        *current.CustomerID,
		}).Warn("Discarding duplicate billing customer")
		user.CustomerID = current.CustomerID
		return *current.CustomerID, nil
	}
	if err != nil {
		return "", DatabaseError(err, locale.InvalidUser).inLocale(user.LanguageID)
	}

	user.CustomerID = &customer.ID
	s.logger.WithFields(logrus.Fields{"rid": user.ID, "customer_id": customer.ID}).Info("Billing customer created")
	return customer.ID, nil
}

// recordPurchase stores the purchase and its ledger entry together
func (s *paymentService) recordPurchase(ctx context.Context, user *models.User, customerID string, plan *billing.Plan, subscriptionID string, req *PurchaseRequest) (*models.Purchase, error) {
	purchase := &models.Purchase{
		RID:             user.ID,
		ProductID:       req.ProductID,
		SubscriptionID:  subscriptionID,
		CurrencyCode:    plan.CurrencyCode,
		Amount:          plan.Price,
		TransactionDate: s.now().UTC(),
	}
	entry := models.NewPurchaseEntry(purchase, user.UserID, customerID, models.ParseUserAgent(req.UserAgent), req.Channel)
	entry.Timestamp = purchase.TransactionDate

	err := s.store.Tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.store.Purchases.Create(txCtx, purchase); err != nil {
			return err
		}
		return s.store.Transactions.Create(txCtx, entry)
	})
	if err != nil {
		return nil, DatabaseError(err, locale.PurchaseNotFound).inLocale(user.LanguageID)
	}

	s.logger.WithFields(logrus.Fields{
		"rid":             user.ID,
		"purchase_id":     purchase.ID,
		"product_id":      purchase.ProductID,
		"subscription_id": subscriptionID,
	}).Info("Purchase recorded")
	return purchase, nil
}

func owns(purchases []*models.Purchase, productID int64) bool {
	for _, p := range purchases {
		if p.ProductID == productID {
			return true
		}
	}
	return false
}

// oldestUnrecorded picks the earliest live subscription to planID that no
// purchase refers to yet
func oldestUnrecorded(subs []billing.Subscription, planID string, purchases []*models.Purchase) *billing.Subscription {
	recorded := make(map[string]bool, len(purchases))
	for _, p := range purchases {
		recorded[p.SubscriptionID] = true
	}

	var oldest *billing.Subscription
	for i := range subs {
		sub := &subs[i]
		if sub.PlanID != planID || !sub.Active() || recorded[sub.ID] {
			continue
		}
		if oldest == nil || sub.CreatedAt < oldest.CreatedAt {
			oldest = sub
		}
	}
	return oldest
}
