package service

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"credibridge-backend/internal/domain"
	"credibridge-backend/internal/logger"
)

type sendGridAlertService struct {
	apiKey    string
	fromEmail string
	fromName  string
	toEmail   string
}

// NewSendGridAlertService mails every reconciliation record to the operator.
func NewSendGridAlertService(apiKey, fromEmail, fromName, operatorEmail string) AlertService {
	return &sendGridAlertService{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
		toEmail:   operatorEmail,
	}
}

func (s *sendGridAlertService) NotifyUnreconciled(ctx context.Context, rec *domain.Reconciliation) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail("Operator", s.toEmail)
	subject, plain, html := reconciliationMessage(rec)

	message := mail.NewSingleEmail(from, subject, to, plain, html)
	client := sendgrid.NewSendClient(s.apiKey)

	logger.ExternalServiceCall("sendgrid", "send", "reconciliationID", rec.ID)
	response, err := client.SendWithContext(ctx, message)
	if err == nil && response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	logger.ExternalServiceResult("sendgrid", "send", err, "reconciliationID", rec.ID)
	if err != nil {
		return fmt.Errorf("failed to send reconciliation alert: %w", err)
	}
	return nil
}

type logAlertService struct{}

// NewLogAlertService is used when no mail provider is configured; the
// reconciliation channel in the log is then the only alert.
func NewLogAlertService() AlertService {
	return &logAlertService{}
}

func (s *logAlertService) NotifyUnreconciled(ctx context.Context, rec *domain.Reconciliation) error {
	logger.Warn("Reconciliation alert not mailed, no provider configured", "reconciliationID", rec.ID)
	return nil
}

func reconciliationMessage(rec *domain.Reconciliation) (subject, plain, html string) {
	subject = fmt.Sprintf("[CrediBridge] Manual reconciliation needed: %s %s", rec.Operation, rec.Amount)
	plain = fmt.Sprintf(
		"A %s of %s was withdrawn from account %s (operation %s) but did not complete.\n\n"+
			"Funding member: %s\nReceiving party: %s (account %s)\nCause: %s\nRecord: %s\n",
		rec.Operation, rec.Amount, rec.FundingAccount, rec.WithdrawalID,
		rec.FundingID, rec.ReceivingID, rec.ReceivingAccount, rec.Cause, rec.ID,
	)
	html = fmt.Sprintf(
		"<p>A <strong>%s</strong> of <strong>%s</strong> was withdrawn from account %s (operation %s) but did not complete.</p>"+
			"<ul><li>Funding member: %s</li><li>Receiving party: %s (account %s)</li><li>Cause: %s</li><li>Record: %s</li></ul>",
		rec.Operation, rec.Amount, rec.FundingAccount, rec.WithdrawalID,
		rec.FundingID, rec.ReceivingID, rec.ReceivingAccount, rec.Cause, rec.ID,
	)
	return subject, plain, html
}
