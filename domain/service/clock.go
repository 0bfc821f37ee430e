package service

import (
	"time"

	"github.com/igorofyeshuasete/authgate/domain/port/outbound"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// NewSystemClock returns the wall-clock used in production wiring.
func NewSystemClock() outbound.Clock { return systemClock{} }
