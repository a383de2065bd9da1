// File: internal/projection/factory.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package projection

import (
	"io"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/momentics/hioload-headunit/api"
)

// SinkFactory returns the consumer of a session's inbound stream.
type SinkFactory func(id string, ep api.Endpoint) io.Writer

// Factory implements api.EntityFactory.
type Factory struct {
	log            logr.Logger
	sinks          SinkFactory
	handshake      Handshake
	readBufferSize int
}

var _ api.EntityFactory = (*Factory)(nil)

// FactoryOption customizes a Factory.
type FactoryOption func(*Factory)

func WithSinkFactory(sf SinkFactory) FactoryOption {
	return func(f *Factory) { f.sinks = sf }
}

func WithHandshake(hs Handshake) FactoryOption {
	return func(f *Factory) { f.handshake = hs }
}

func WithReadBufferSize(n int) FactoryOption {
	return func(f *Factory) { f.readBufferSize = n }
}

func NewFactory(log logr.Logger, opts ...FactoryOption) *Factory {
	f := &Factory{log: log, readBufferSize: defaultReadBufferSize}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Create builds an entity that owns ep.
func (f *Factory) Create(ep api.Endpoint) (api.Entity, error) {
	if ep == nil {
		return nil, api.NegotiationError("create projection entity", api.ErrInvalidArgument)
	}
	id := uuid.NewString()
	var sink io.Writer
	if f.sinks != nil {
		sink = f.sinks(id, ep)
	}
	return newEntity(id, ep, sink, f.handshake, f.readBufferSize, f.log), nil
}
