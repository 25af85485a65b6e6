// Defines the validation interface for requests.

package dto

// Validatable is implemented by request types that can validate their
// fields. The Wrap function in handler_wrapper.go uses this interface as a
// type constraint so every request type provides validation.
type Validatable interface {
	Validate() error
}
