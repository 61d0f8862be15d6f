package notify

type DispatcherOption func(d *Dispatcher)

// WithBufferLimit caps the number of pending events. Events over the limit are dropped.
func WithBufferLimit(limit int) DispatcherOption {
	return func(d *Dispatcher) {
		d.limit = limit
	}
}
