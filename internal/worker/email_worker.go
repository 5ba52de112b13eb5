package worker

// email_worker.go
// Processes sale confirmation jobs from QueueEmail.
// Sends the order summary to the customer via SMTP, behind a circuit breaker.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"

	"hbpos/internal/infra"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// SaleConfirmationPayload is the job payload sent to QueueEmail.
type SaleConfirmationPayload struct {
	SaleID         int64              `json:"sale_id"`
	OrderCode      string             `json:"order_code"`
	ToEmail        string             `json:"to_email"`
	CustomerName   string             `json:"customer_name"`
	SaleDate       string             `json:"sale_date"`
	PaymentMethod  string             `json:"payment_method"`
	TotalAmount    decimal.Decimal    `json:"total_amount"`
	Discount       decimal.Decimal    `json:"discount"`
	VoucherPayment decimal.Decimal    `json:"voucher_payment"`
	Lines          []ConfirmationLine `json:"lines"`
}

type ConfirmationLine struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// MailSender is satisfied by *infra.Mailer.
type MailSender interface {
	Send(to, subject, text, html string) error
}

var confirmationTmpl = template.Must(template.New("confirmation").Parse(
	`Hello {{if .CustomerName}}{{.CustomerName}}{{else}}there{{end}},

Thank you for shopping at {{.Store}}.

Order:    {{.OrderCode}}
Date:     {{.SaleDate}}
Payment:  {{.PaymentMethod}}
{{range .Lines}}
  {{.Quantity}} x {{.Description}}  {{.TotalPrice.StringFixed 2}}{{end}}

Total:    {{.TotalAmount.StringFixed 2}}
{{- if .Discount.IsPositive}}
Discount: {{.Discount.StringFixed 2}}{{end}}
{{- if .VoucherPayment.IsPositive}}
Voucher:  {{.VoucherPayment.StringFixed 2}}{{end}}
`))

// EmailWorker processes sale confirmation jobs from QueueEmail.
type EmailWorker struct {
	sender    MailSender
	cb        *infra.CircuitBreaker
	storeName string
}

// NewEmailWorker creates an EmailWorker. cb guards the SMTP server.
func NewEmailWorker(sender MailSender, cb *infra.CircuitBreaker, storeName string) *EmailWorker {
	return &EmailWorker{sender: sender, cb: cb, storeName: storeName}
}

// Process renders and sends one confirmation.
func (w *EmailWorker) Process(_ context.Context, raw json.RawMessage) error {
	var payload SaleConfirmationPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Permanent(fmt.Errorf("email_worker: invalid payload: %w", err))
	}
	if payload.ToEmail == "" {
		log.Warn().Int64("sale_id", payload.SaleID).Msg("email_worker: empty to_email, skipping")
		return nil
	}

	body, err := RenderConfirmation(w.storeName, payload)
	if err != nil {
		return Permanent(err)
	}
	subject := fmt.Sprintf("Your order %s", payload.OrderCode)

	err = w.cb.Execute(func() error {
		return w.sender.Send(payload.ToEmail, subject, body, "")
	})
	if err != nil {
		log.Error().Err(err).Str("to", payload.ToEmail).Msg("email_worker: failed to send email")
		return err
	}
	log.Info().Str("to", payload.ToEmail).Str("order_code", payload.OrderCode).Msg("email_worker: confirmation sent")
	return nil
}

// RenderConfirmation builds the plain text body of a confirmation email.
func RenderConfirmation(store string, p SaleConfirmationPayload) (string, error) {
	var buf bytes.Buffer
	err := confirmationTmpl.Execute(&buf, struct {
		SaleConfirmationPayload
		Store string
	}{p, store})
	return buf.String(), err
}

// ── Permanent failures ───────────────────────────────────────────────────────

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying; the job goes straight to the DLQ.
func Permanent(err error) error { return &permanentError{err: err} }
