package service

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/quyennt2020/device-repair-management-system-sub002/internal/model"
)

// MessageTemplate defines the subject/body text for one event type.
type MessageTemplate struct {
	Subject string
	Body    string
}

// templates is the fixed, immutable template table keyed by event type.
// Placeholders use {{key}} and render empty when the key is absent.
var templates = map[model.NotificationType]MessageTemplate{
	model.NotifyRequest: {
		Subject: "Approval required: document {{documentId}}",
		Body:    "Document {{documentId}} is waiting for your approval at level {{level}}. Submitted by {{submittedBy}}.",
	},
	model.NotifyReminder: {
		Subject: "Reminder: document {{documentId}} still needs your approval",
		Body:    "Document {{documentId}} has been waiting at level {{level}} since {{startedAt}}. Please approve or reject.",
	},
	model.NotifyApproved: {
		Subject: "Level approved: document {{documentId}}",
		Body:    "Level {{level}} of document {{documentId}} was approved by {{approverUserId}}.",
	},
	model.NotifyRejected: {
		Subject: "Rejected: document {{documentId}}",
		Body:    "Document {{documentId}} was rejected by {{approverUserId}} at level {{level}}. Comments: {{comments}}",
	},
	model.NotifyEscalated: {
		Subject: "Escalated: document {{documentId}}",
		Body:    "Document {{documentId}} escalated from level {{fromLevel}} to level {{toLevel}}. Reason: {{reason}}",
	},
	model.NotifyDelegated: {
		Subject: "Approval delegated to you: document {{documentId}}",
		Body:    "{{fromUserId}} delegated their approval of document {{documentId}} at level {{level}} to you. Reason: {{reason}}",
	},
	model.NotifyCompleted: {
		Subject: "Approved: document {{documentId}}",
		Body:    "Document {{documentId}} passed all approval levels and is now approved.",
	},
}

// TemplateFor looks up the template for an event type.
func TemplateFor(t model.NotificationType) (MessageTemplate, bool) {
	tpl, ok := templates[t]
	return tpl, ok
}

// TemplateNames returns the known event types, sorted, for diagnostics.
func TemplateNames() []string {
	names := make([]string, 0, len(templates))
	for t := range templates {
		names = append(names, string(t))
	}
	sort.Strings(names)
	return names
}

var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// RenderTemplate substitutes {{key}} placeholders from data. Missing keys
// render as empty strings; rendering never fails.
func RenderTemplate(text string, data map[string]interface{}) string {
	return placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		key := placeholderRe.FindStringSubmatch(match)[1]
		value, ok := data[key]
		if !ok || value == nil {
			return ""
		}
		return stringify(value)
	})
}

func stringify(v interface{}) string {
	switch value := v.(type) {
	case string:
		return value
	case fmt.Stringer:
		return value.String()
	default:
		return fmt.Sprintf("%v", value)
	}
}
