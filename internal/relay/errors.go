package relay

import (
	"errors"
	"fmt"
)

// Kind classifies why a send did not succeed.
type Kind int

const (
	// NotConfigured means no Bot API token is available.
	NotConfigured Kind = iota + 1
	// MissingDestination means chat_id was empty.
	MissingDestination
	// EmptyMessage means the message was empty after trimming.
	EmptyMessage
	// MessageTooLong means the message exceeded the configured UTF-16 length.
	MessageTooLong
	// DeliveryExhausted means every attempt failed with a transport error.
	DeliveryExhausted
	// PlatformRejected means the Bot API answered ok:false.
	PlatformRejected
)

var kindNames = map[Kind]string{
	NotConfigured:      "not_configured",
	MissingDestination: "missing_destination",
	EmptyMessage:       "empty_message",
	MessageTooLong:     "message_too_long",
	DeliveryExhausted:  "delivery_exhausted",
	PlatformRejected:   "platform_rejected",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is returned by Send and Deliver for every failure.
type Error struct {
	Kind        Kind
	Description string
	// Attempts is the number of sendMessage calls made; zero for validation errors.
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case DeliveryExhausted:
		return fmt.Sprintf("telegram delivery failed after %d attempts: %v", e.Attempts, e.Err)
	case PlatformRejected:
		return "telegram rejected message: " + e.Description
	default:
		return e.Description
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports whether the error was raised before any network call.
func (e *Error) Validation() bool {
	switch e.Kind {
	case NotConfigured, MissingDestination, EmptyMessage, MessageTooLong:
		return true
	}
	return false
}

// IsKind reports whether err is a relay error of the given kind.
func IsKind(err error, kind Kind) bool {
	var rerr *Error
	return errors.As(err, &rerr) && rerr.Kind == kind
}

// PublicMessage renders err as the text reported to API callers.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var rerr *Error
	if !errors.As(err, &rerr) {
		return err.Error()
	}
	switch rerr.Kind {
	case DeliveryExhausted:
		if rerr.Err != nil {
			return rerr.Err.Error()
		}
		return "All retry attempts failed"
	case PlatformRejected:
		if rerr.Description == "" {
			return "Failed to send message"
		}
		return rerr.Description
	default:
		return rerr.Description
	}
}
