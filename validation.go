package logging

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate
var once sync.Once

// validateDescriptor checks a resolved transport descriptor before any
// writer is built from it. Descriptors failing validation are dropped by the
// resolver, never fatal.
func validateDescriptor(d *TransportDescriptor) error {
	const op Op = "logging.validateDescriptor"
	if d == nil {
		return newError(op).Msg(errMsgDescriptorUnset)
	}

	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})

	if err := validate.Struct(d); err != nil {
		return newError(op).Err(err).Msg(errMsgDescriptorUnset)
	}

	return nil
}
