package health

import "context"

// StorePinger checks row store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// IndexObserver reports the lifecycle state of every index controller.
type IndexObserver interface {
	States() map[string]string
}
