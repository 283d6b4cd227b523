package worker

import (
	"bytes"
	"fmt"
	"text/template"
)

type emailTemplate struct {
	subject string
	body    *template.Template
}

func mustTemplate(name, subject, body string) emailTemplate {
	return emailTemplate{
		subject: subject,
		body:    template.Must(template.New(name).Option("missingkey=zero").Parse(body)),
	}
}

var templates = map[string]emailTemplate{
	TemplatePaymentReceipt: mustTemplate(TemplatePaymentReceipt, "Viewing fee payment received",
		"Hello {{.name}},\n\nWe received your payment of NGN {{.amount}} for viewing {{.viewingId}}.\nReference: {{.reference}}\n\nSee you at the viewing."),
	TemplatePaymentReceived: mustTemplate(TemplatePaymentReceived, "You have a new viewing fee",
		"Hello {{.name}},\n\nA visitor paid the viewing fee for viewing {{.viewingId}}.\nYour share of NGN {{.amount}} has been added to your wallet.\nReference: {{.reference}}"),
	TemplateWithdrawalOTP: mustTemplate(TemplateWithdrawalOTP, "Your withdrawal code",
		"Hello {{.name}},\n\nUse {{.otp}} to confirm your withdrawal of NGN {{.amount}}.\nThe code expires in {{.expiresInSeconds}} seconds. If you did not start this withdrawal, reset your PIN now."),
	TemplatePinReset: mustTemplate(TemplatePinReset, "Reset your transaction PIN",
		"Hello {{.name}},\n\nYour PIN reset code is {{.code}}. It expires in {{.expiresInMinutes}} minutes.\nIf you did not ask for this, ignore this email."),
	TemplateWithdrawalCompleted: mustTemplate(TemplateWithdrawalCompleted, "Withdrawal successful",
		"Hello {{.name}},\n\nNGN {{.amount}} has been sent to {{.bankName}} {{.account}}.\nReference: {{.reference}}"),
	TemplateWithdrawalFailed: mustTemplate(TemplateWithdrawalFailed, "Withdrawal failed",
		"Hello {{.name}},\n\nYour withdrawal of NGN {{.amount}} could not be completed{{if .reason}}: {{.reason}}{{end}}.\nThe funds are back in your wallet.\nReference: {{.reference}}"),
	TemplateDisbursement: mustTemplate(TemplateDisbursement, "Your earnings are on the way",
		"Hello {{.name}},\n\nWe have sent NGN {{.amount}} in viewing fee earnings to {{.bankName}} {{.account}}.\nReference: {{.reference}}"),
}

// Render produces the subject and plain-text body for a template.
func Render(name string, data map[string]interface{}) (string, string, error) {
	tpl, ok := templates[name]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", name)
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	if _, ok := data["name"]; !ok {
		data["name"] = "there"
	}

	var body bytes.Buffer
	if err := tpl.body.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", name, err)
	}
	return tpl.subject, body.String(), nil
}
