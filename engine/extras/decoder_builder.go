package extras

// DecoderBuilderOption is a functional option for configuring a PayloadDecoder via NewDecoder.
type DecoderBuilderOption func(*decoder)

// WithCreatorFactory registers the factory for component envelopes of kind, replacing any
// factory already registered for it.
//
// Parameters:
//   - kind: the envelope kind
//   - factory: the factory building creators for that kind
//
// Returns:
//   - DecoderBuilderOption: option function to apply
func WithCreatorFactory(kind string, factory CreatorFactory) DecoderBuilderOption {
	return func(d *decoder) {
		if factory == nil {
			delete(d.factories, kind)
			return
		}
		d.factories[kind] = factory
	}
}
