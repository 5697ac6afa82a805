package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/webhook"

	"newsletterai-backend/internal/models"
)

// billingUserRepo is the slice of UserRepo that billing needs; an
// interface so webhook handling is testable without a database.
type billingUserRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.UserProfile, error)
	SetStripeCustomerID(ctx context.Context, userID uuid.UUID, customerID string) error
	UpdatePlan(ctx context.Context, userID uuid.UUID, planTier string, usageLimit int) error
	UpdatePlanByStripeCustomer(ctx context.Context, customerID, planTier string, usageLimit int) error
}

type BillingService struct {
	userRepo      billingUserRepo
	webhookSecret string
	priceIDBasic  string
	priceIDPro    string
	frontendURL   string
}

// PlanLimit maps a plan tier to its monthly newsletter allowance. Paid
// "unlimited" tiers use a sentinel that no one will reach in a month.
func PlanLimit(planTier string) int {
	switch planTier {
	case "free":
		return 2
	case "basic":
		return 10
	case "pro", "agency":
		return 999999
	default:
		return 2
	}
}

func NewBillingService(userRepo billingUserRepo, secretKey, webhookSecret, priceIDBasic, priceIDPro, frontendURL string) *BillingService {
	stripe.Key = secretKey
	return &BillingService{
		userRepo:      userRepo,
		webhookSecret: webhookSecret,
		priceIDBasic:  priceIDBasic,
		priceIDPro:    priceIDPro,
		frontendURL:   strings.TrimRight(frontendURL, "/"),
	}
}

// CreateCheckoutSession starts a Stripe Checkout for the given plan and
// returns the hosted checkout URL.
func (s *BillingService) CreateCheckoutSession(ctx context.Context, userID uuid.UUID, planTier string) (string, error) {
	var priceID string
	switch planTier {
	case "basic":
		priceID = s.priceIDBasic
	case "pro":
		priceID = s.priceIDPro
	default:
		return "", NewValidationError("unknown plan tier", map[string]string{"planTier": "must be basic or pro"})
	}
	if priceID == "" {
		return "", fmt.Errorf("billing not configured for plan %s", planTier)
	}

	customerID, err := s.ensureCustomer(ctx, userID)
	if err != nil {
		return "", err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(customerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.frontendURL + "/billing/success"),
		CancelURL:  stripe.String(s.frontendURL + "/billing/cancel"),
		Metadata: map[string]string{
			"userId":   userID.String(),
			"planTier": planTier,
		},
	}

	sess, err := session.New(params)
	if err != nil {
		return "", NewVendorError("stripe", err)
	}

	return sess.URL, nil
}

func (s *BillingService) ensureCustomer(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		return *user.StripeCustomerID, nil
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(user.Email),
		Metadata: map[string]string{
			"userId": userID.String(),
		},
	}
	cust, err := customer.New(params)
	if err != nil {
		return "", NewVendorError("stripe", err)
	}

	if err := s.userRepo.SetStripeCustomerID(ctx, userID, cust.ID); err != nil {
		return "", err
	}

	return cust.ID, nil
}

// VerifyWebhook checks the Stripe signature and parses the event.
func (s *BillingService) VerifyWebhook(payload []byte, sigHeader string) (stripe.Event, error) {
	if s.webhookSecret == "" {
		return stripe.Event{}, fmt.Errorf("webhook secret not configured")
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		sigHeader,
		s.webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		return stripe.Event{}, NewUnauthorizedError("signature verification failed")
	}

	return event, nil
}

// HandleEvent applies a verified Stripe event to the user's plan state.
// Unrecognized event types are ignored.
func (s *BillingService) HandleEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return fmt.Errorf("invalid session payload: %w", err)
		}
		return s.applyCheckoutCompleted(ctx, &sess)

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("invalid subscription payload: %w", err)
		}
		if sub.Customer == nil || sub.Customer.ID == "" {
			return fmt.Errorf("subscription event missing customer id")
		}
		return s.userRepo.UpdatePlanByStripeCustomer(ctx, sub.Customer.ID, "free", PlanLimit("free"))

	default:
		// Intentionally ignore unhandled events.
		log.Printf("ignoring stripe event type %s", event.Type)
		return nil
	}
}

func (s *BillingService) applyCheckoutCompleted(ctx context.Context, sess *stripe.CheckoutSession) error {
	planTier := sess.Metadata["planTier"]
	switch planTier {
	case "basic", "pro", "agency":
	default:
		planTier = "basic"
	}
	limit := PlanLimit(planTier)

	// Prefer the explicit user id from checkout metadata; fall back to
	// the customer id for sessions created elsewhere.
	if userIDStr := sess.Metadata["userId"]; userIDStr != "" {
		userID, err := uuid.Parse(userIDStr)
		if err == nil {
			if sess.Customer != nil && sess.Customer.ID != "" {
				if err := s.userRepo.SetStripeCustomerID(ctx, userID, sess.Customer.ID); err != nil {
					log.Printf("failed to store stripe customer id for user %s: %v", userID, err)
				}
			}
			return s.userRepo.UpdatePlan(ctx, userID, planTier, limit)
		}
	}

	if sess.Customer == nil || sess.Customer.ID == "" {
		return fmt.Errorf("checkout event missing both user id and customer id")
	}
	return s.userRepo.UpdatePlanByStripeCustomer(ctx, sess.Customer.ID, planTier, limit)
}
