package payments

import "context"

// Intent описывает провайдерское представление авторизованного, но ещё не
// списанного платежа. ClientSecret передаётся клиенту для hosted-формы
// оплаты; сервер его не интерпретирует.
type Intent struct {
	ID           string
	ClientSecret string
}

// Provider mints charge intents with the external payment processor.
// Amount is in the currency's minor unit (pence for GBP). Metadata is
// attached for later reconciliation. CustomerID may be empty; intents
// are then created without a customer attached.
type Provider interface {
	CreateCustomer(ctx context.Context, email string) (string, error)
	CreateIntent(ctx context.Context, amount int64, currency, customerID string, metadata map[string]string) (*Intent, error)
}
