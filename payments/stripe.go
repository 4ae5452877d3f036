package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

type stripeProvider struct {
	api *client.API
}

func NewStripeProvider(secretKey string) (Provider, error) {
	if secretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}
	api := &client.API{}
	api.Init(secretKey, nil)
	return &stripeProvider{api: api}, nil
}

func (p *stripeProvider) CreateCustomer(ctx context.Context, email string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	params.Context = ctx

	customer, err := p.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create stripe customer: %w", err)
	}
	return customer.ID, nil
}

func (p *stripeProvider) CreateIntent(ctx context.Context, amount int64, currency, customerID string, metadata map[string]string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
	}
	if customerID != "" {
		params.Customer = stripe.String(customerID)
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	intent, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create stripe payment intent: %w", err)
	}

	return &Intent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
	}, nil
}
