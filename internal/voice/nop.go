package voice

import (
	"context"
	"errors"
)

// NopCapability represents a host without speech recognition. The voice
// affordance is disabled; text answering is unaffected.
type NopCapability struct{}

func NewNopCapability() *NopCapability { return &NopCapability{} }

func (NopCapability) Supported() bool { return false }

func (NopCapability) Start(context.Context, EngineConfig) (Engine, error) {
	return nil, errors.New("speech recognition is not supported on this host")
}
