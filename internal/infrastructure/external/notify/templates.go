package notify

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/dkrause/garnishflow/internal/domain/entity"
)

// Message bodies per template. Kept deliberately plain: the receiving
// channels (creditor portal, customer messaging) apply their own formatting.
var templates = map[string]string{
	entity.TemplateRejectionReason: "Garnishment order {{.case_number}} could not be verified against our records" +
		"{{if .score}} (match score {{.score}}){{end}}. " +
		"The order has been rejected; please confirm the debtor's details with the court and resubmit.",

	entity.TemplateInsufficientFunds: "The garnished account holds {{.balance}}, which does not cover the ordered amount of {{.amount}}. " +
		"The case has been closed as insufficient funds.",

	entity.TemplatePaymentConfirmation: "Garnishment payment of {{.amount}} to {{.creditor}} has settled (reference {{.reference}}). " +
		"The case is closed.",

	entity.TemplateCaseCancelled: "The garnishment case against your account has been cancelled" +
		"{{if .reason}}: {{.reason}}{{end}}.",
}

var parsed = func() map[string]*template.Template {
	out := make(map[string]*template.Template, len(templates))
	for name, body := range templates {
		out[name] = template.Must(template.New(name).Parse(body))
	}
	return out
}()

// Render produces the message body for a notification task
func Render(task *entity.NotificationTask) (string, error) {
	tmpl, ok := parsed[task.Template]
	if !ok {
		return "", fmt.Errorf("unknown notification template %q", task.Template)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, task.Params); err != nil {
		return "", fmt.Errorf("render template %s: %w", task.Template, err)
	}
	return sb.String(), nil
}
