// Package prompt builds the question texts sent to the SparkAI endpoints.
package prompt

import (
	"fmt"
	"strings"

	"github.com/spec-kit/spark-support/internal/domain"
)

var initialPreamble = []string{
	"Du bist SparkAI, ein deutschsprachiger Support-Assistent. Analysiere das folgende Ticket und formuliere eine strukturierte, pragmatische Lösung mit konkreten nächsten Schritten.",
	"Deine Antwort muss mindestens eine fundierte Handlungsempfehlung enthalten. Wenn Informationen fehlen, stelle gezielte Rückfragen und schlage diagnostische Schritte vor.",
	"Du darfst den Fall nur eskalieren, wenn eine unmittelbare Sicherheits-, Datenschutz- oder Eskalationsrichtlinie verletzt würde. Formulierungen wie 'Ich habe keine Lösung' sind zu vermeiden.",
	"Ticketinformationen:",
}

const closingInstruction = "Antworte bitte auf Deutsch und konzentriere dich ausschließlich auf die Ticketdaten."

// BuildContext renders the labeled ticket block. Without a ticket the
// description is returned unchanged. description is the live, possibly
// edited text, not necessarily the ticket's own.
func BuildContext(ticket *domain.Ticket, description string) string {
	if ticket == nil {
		return description
	}
	supportType := ticket.SupportType()
	if supportType == "" {
		supportType = domain.UnknownValue
	}
	lines := []string{
		"Ticket-ID: " + ticket.ID,
		"Betreff: " + orUnknown(ticket.Subject),
		"Produkt: " + orUnknown(ticket.Product),
		"Abteilung: " + orUnknown(ticket.Department),
		"Status: " + orUnknown(ticket.Status),
		"Support-Typ: " + supportType,
		"Beschreibung: " + description,
	}
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, "\n")
}

// BuildInitialPrompt wraps a context in the instruction preamble sent as the
// first message of a conversation.
func BuildInitialPrompt(context string) string {
	parts := make([]string, 0, len(initialPreamble)+2)
	parts = append(parts, initialPreamble...)
	parts = append(parts, strings.TrimSpace(context), closingInstruction)
	return strings.Join(parts, "\n\n")
}

// BuildTranslateQuestion asks the translate endpoint for a German version.
func BuildTranslateQuestion(subject, description string) string {
	return fmt.Sprintf("Bitte übersetze das folgende Ticket ins Deutsche.\n\nBetreff: %s\n\nBeschreibung: %s", subject, description)
}

// BuildUpgradeQuestion composes the upgrade-path question.
func BuildUpgradeQuestion(from, to, addon string) string {
	if strings.TrimSpace(addon) == "" {
		addon = "None"
	}
	return fmt.Sprintf("From %s to %s Add ons: %s", from, to, addon)
}

func orUnknown(s string) string {
	if s == "" {
		return domain.UnknownValue
	}
	return s
}
