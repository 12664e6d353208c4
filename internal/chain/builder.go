package chain

import (
	"fmt"

	"go.uber.org/zap"
)

// Factory constructs one provider handler. Construction may fail (a client
// that validates credentials, for instance), so factories return errors.
type Factory func() (Handler, error)

// Build assembles a chain from a declarative provider order. Every name in
// the order must have a registered factory — a misspelled provider is a
// configuration error surfaced here, before any record is processed. The
// fallback handler is always appended as the final link, whether or not the
// order lists it.
func Build(providerOrder []string, factories map[string]Factory, fallback *FallbackHandler, ratePerMinute int, logger *zap.Logger) (*Chain, error) {
	handlers := make([]Handler, 0, len(providerOrder)+1)

	for _, name := range providerOrder {
		if name == FallbackName {
			// Listed or not, the fallback goes last exactly once.
			continue
		}
		factory, ok := factories[name]
		if !ok {
			return nil, fmt.Errorf("no handler factory registered for provider %q", name)
		}
		h, err := factory()
		if err != nil {
			return nil, fmt.Errorf("constructing %q handler: %w", name, err)
		}
		handlers = append(handlers, h)
	}

	handlers = append(handlers, fallback)
	return New(handlers, ratePerMinute, logger), nil
}
