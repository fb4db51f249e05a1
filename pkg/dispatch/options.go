package dispatch

import (
	"time"

	"chainflow/pkg/config"
	"chainflow/pkg/protocol"
	"chainflow/pkg/protocol/codec"
	"chainflow/pkg/transport"
)

// Options configure a Client. The zero value of the retry fields gives the
// plain behaviour: no timeout and no retry.
type Options struct {
	Kind    string
	Address string
	Format  protocol.Format

	// Timeout bounds one request/reply exchange. Zero waits forever.
	Timeout time.Duration
	// MaxRetries resends a call after a timeout or connection error,
	// reconnecting first.
	MaxRetries     uint64
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	// DialAttempts caps retries of the initial connection.
	DialAttempts uint64
	FragmentSize int

	Codecs *codec.Registry
	// Transport overrides Kind.
	Transport transport.Transport
}

// OptionsFromConfig maps the dispatch config section onto Options.
func OptionsFromConfig(c config.DispatchConfig) (Options, error) {
	f, err := protocol.ParseFormat(c.Format)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Kind:           c.Kind,
		Address:        c.Address,
		Format:         f,
		Timeout:        c.Timeout,
		MaxRetries:     c.MaxRetries,
		BackoffInitial: c.BackoffInitial,
		BackoffMax:     c.BackoffMax,
		DialAttempts:   c.DialAttempts,
		FragmentSize:   c.FragmentSize,
	}, nil
}

func (o Options) withDefaults() Options {
	if o.Format == protocol.FormatUnknown {
		o.Format = protocol.FormatCBOR
	}
	if o.Address == "" {
		o.Address = config.DefaultAddress
	}
	if o.Codecs == nil {
		o.Codecs = codec.NewRegistry()
	}
	if o.BackoffInitial <= 0 {
		o.BackoffInitial = 100 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 5 * time.Second
	}
	return o
}
