// Package messaging provides pluggable chat transports for the diary bot.
//
// The core hands transports plain text plus an optional quick-reply menu;
// transports that have no native reply keyboard render the menu as footer
// lines under the message body.
package messaging

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/oryshchuk/leotrack/internal/models"
)

// Constants for messaging service configuration
const (
	// DefaultChannelBufferSize defines the default buffer size for receipt and response channels
	DefaultChannelBufferSize = 100
	// DefaultChannelTimeout defines the default timeout for non-blocking channel operations
	DefaultChannelTimeout = 1 * time.Second
)

// ErrServiceStopped is returned when a send is attempted after Stop.
var ErrServiceStopped = errors.New("messaging service stopped")

// phoneNumberRegex matches everything that is not a digit.
var phoneNumberRegex = regexp.MustCompile(`\D`)

// Service defines a pluggable message delivery abstraction.
// It supports sending messages with optional menus, and provides channels
// for receipt and inbound response events.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a
	// recipient identifier. Each transport applies its own rules.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendMessage sends a message to a recipient. A non-nil menu is the
	// quick-reply layout the transport should offer alongside the text.
	SendMessage(ctx context.Context, to string, body string, menu *models.Menu) error

	// Start begins any background processing (e.g., polling for events).
	Start(ctx context.Context) error

	// Stop stops background processing and cleans up resources.
	Stop() error

	// Receipts returns a channel of receipt events (sent, delivered, read).
	Receipts() <-chan models.Receipt

	// Responses returns a channel of incoming caller messages.
	Responses() <-chan models.Response
}

// canonicalizePhone strips a recipient down to its digits and validates the
// result. Shared by the transports, which all address callers by phone.
func canonicalizePhone(recipient string) (string, error) {
	if recipient == "" {
		return "", errors.New("recipient cannot be empty")
	}
	canonical := phoneNumberRegex.ReplaceAllString(recipient, "")
	if canonical == "" {
		return "", errors.New("invalid phone number: no digits found")
	}
	if len(canonical) < 6 {
		return "", errors.New("invalid phone number: too short")
	}
	return canonical, nil
}

// RenderMenu flattens a quick-reply layout into footer lines for transports
// without native reply keyboards.
func RenderMenu(menu *models.Menu) string {
	if menu == nil || len(menu.Rows) == 0 {
		return ""
	}
	var b strings.Builder
	for _, row := range menu.Rows {
		b.WriteString("\n")
		b.WriteString(strings.Join(row, "  |  "))
	}
	return b.String()
}

// ComposeBody appends the rendered menu to the message body.
func ComposeBody(body string, menu *models.Menu) string {
	footer := RenderMenu(menu)
	if footer == "" {
		return body
	}
	return body + "\n" + footer
}
