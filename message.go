package assistant

import (
	"fmt"
	"reflect"

	"github.com/goliatone/go-errors"
)

const CodeInvalidMessage = "INVALID_MESSAGE"

// Message is implemented by the requests routed through handlers, such as
// publishing jobs and sync requests.
type Message interface {
	Type() string
	Validate() error
}

// MessageType returns msg.Type(), or "unknown" when msg is not a Message.
func MessageType(msg any) string {
	if isNil(msg) {
		return "unknown"
	}
	if m, ok := msg.(Message); ok {
		return m.Type()
	}
	return "unknown"
}

func isNil(msg any) bool {
	if msg == nil {
		return true
	}
	v := reflect.ValueOf(msg)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

// MessageHandler is embedded by handlers to share message validation.
type MessageHandler[T any] struct{}

// ValidateMessage rejects nil pointers and runs Validate when T is a
// Message. Failures carry the message type in their metadata.
func (h *MessageHandler[T]) ValidateMessage(msg T) error {
	if isNil(msg) {
		return errors.New("nil message pointer", errors.CategoryValidation).
			WithTextCode(CodeInvalidMessage)
	}

	m, ok := any(msg).(Message)
	if !ok {
		return nil
	}
	if err := m.Validate(); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, fmt.Sprintf("invalid %s message", m.Type())).
			WithTextCode(CodeValidationFailed).
			WithMetadata(map[string]any{"message_type": m.Type()})
	}
	return nil
}
