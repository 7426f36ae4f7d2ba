package handlers

import (
	"context"
	"net/http"

	"profiles-api/internal/auth"
	"profiles-api/internal/services"
	"profiles-api/pkg/lambda"
)

// Checkout godoc
// @Summary Checkout
// @Description Start a purchase: a hosted checkout page for the first purchase, a direct charge of the stored payment method afterwards
// @Tags payment
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param product_id header int false "Product id; may be sent in the body instead"
// @Param request body services.PurchaseRequest false "Product to buy"
// @Success 200 {object} services.CheckoutResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /payment/checkout [post]
func (h *Handlers) Checkout(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	return h.authenticated(ctx, req, http.StatusOK, func(claim *auth.Claim) (interface{}, error) {
		body, err := purchaseRequest(req)
		if err != nil {
			return nil, err
		}
		return h.services.PaymentService.Checkout(ctx, claim, body)
	})
}

// MakePayment godoc
// @Summary Confirm payment
// @Description Record the purchase paid on the hosted checkout page
// @Tags payment
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param product_id header int false "Product id; may be sent in the body instead"
// @Param request body services.PurchaseRequest false "Product that was paid"
// @Success 200 {object} services.PurchaseResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /payment/confirm [post]
func (h *Handlers) MakePayment(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	return h.authenticated(ctx, req, http.StatusOK, func(claim *auth.Claim) (interface{}, error) {
		body, err := purchaseRequest(req)
		if err != nil {
			return nil, err
		}
		return h.services.PaymentService.ConfirmPayment(ctx, claim, body)
	})
}

// Purchases godoc
// @Summary Purchased products
// @Description List the caller's purchases and whether each can still be cancelled
// @Tags payment
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.PurchasesResponse
// @Failure 403 {object} ErrorResponse
// @Router /purchases [get]
func (h *Handlers) Purchases(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	return h.authenticated(ctx, req, http.StatusOK, func(claim *auth.Claim) (interface{}, error) {
		return h.services.PaymentService.ListPurchases(ctx, claim)
	})
}

// CancelPayment godoc
// @Summary Cancel payment
// @Description Cancel a recent purchase at the billing provider and record the refund
// @Tags payment
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param product_id header int false "Purchase id; may be sent in the body instead"
// @Param request body services.CancelPaymentRequest false "Purchase to cancel"
// @Success 200 {object} services.MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /payment/cancel [post]
func (h *Handlers) CancelPayment(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	return h.authenticated(ctx, req, http.StatusOK, func(claim *auth.Claim) (interface{}, error) {
		var body services.CancelPaymentRequest
		if err := decode(req, &body); err != nil {
			return nil, err
		}
		if id, ok, err := headerInt(req, "product_id"); err != nil {
			return nil, err
		} else if ok {
			body.PurchaseID = int64(id)
		}
		body.UserAgent = req.Header("User-Agent")
		return h.services.PaymentService.CancelPayment(ctx, claim, &body)
	})
}

// BillingWebhook godoc
// @Summary Billing webhook
// @Description Receive billing provider events; card expiry reminders become notifications
// @Tags payment
// @Accept json
// @Produce json
// @Param event body object true "Billing event"
// @Success 200 {object} services.MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /webhooks/billing [post]
func (h *Handlers) BillingWebhook(ctx context.Context, req *lambda.Request) (*lambda.Response, error) {
	msgs := h.requestMessages(req)

	username, password, _ := basicAuth(req.Header("Authorization"))
	resp, err := h.services.PaymentService.HandleWebhook(ctx, &services.WebhookRequest{
		Username: username,
		Password: password,
		Body:     req.Body,
	})
	if err != nil {
		return h.fail(req, msgs, err), nil
	}
	return lambda.JSON(http.StatusOK, resp), nil
}

func purchaseRequest(req *lambda.Request) (*services.PurchaseRequest, error) {
	var body services.PurchaseRequest
	if err := decode(req, &body); err != nil {
		return nil, err
	}
	if id, ok, err := headerInt(req, "product_id"); err != nil {
		return nil, err
	} else if ok {
		body.ProductID = int64(id)
	}
	body.UserAgent = req.Header("User-Agent")
	return &body, nil
}

// basicAuth decodes a Basic Authorization header value
func basicAuth(value string) (username, password string, ok bool) {
	r := http.Request{Header: http.Header{}}
	r.Header.Set("Authorization", value)
	return r.BasicAuth()
}
