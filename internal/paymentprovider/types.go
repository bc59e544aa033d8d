package paymentprovider

// Запрос на создание счёта: order_id равен числовому идентификатору
// пользователя — по этому соглашению webhook сопоставляет платёж
// с пользователем.
type CreateInvoiceRequest struct {
	PriceAmount    float64 `json:"price_amount" validate:"required,gt=0"`
	PriceCurrency  string  `json:"price_currency" validate:"required"`
	OrderID        string  `json:"order_id" validate:"required,numeric"`
	OrderDesc      string  `json:"order_description,omitempty"`
	IPNCallbackURL string  `json:"ipn_callback_url,omitempty"`
}

// Ответ провайдера при создании счёта.
type CreateInvoiceResponse struct {
	ID            string `json:"id"`
	InvoiceURL    string `json:"invoice_url"` // ссылка на оплату для пользователя
	OrderID       string `json:"order_id"`
	PriceAmount   string `json:"price_amount"`
	PriceCurrency string `json:"price_currency"`
	CreatedAt     string `json:"created_at"`
}
