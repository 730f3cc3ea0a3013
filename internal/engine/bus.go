package engine

import (
	"github.com/linuxmatters/lullwave/internal/audio"
	"github.com/linuxmatters/lullwave/internal/graph"
)

// bus is the shared output stage: master gain into a limiter into the
// destination, with a convolution reverb feeding the master gain.
type bus struct {
	ctx     *graph.Context
	master  *graph.Gain
	limiter *graph.DynamicsCompressor
	reverb  *graph.Convolver
}

func newBus(ctx *graph.Context, impulse *audio.Buffer, volume float64) (*bus, error) {
	b := &bus{
		ctx:     ctx,
		master:  ctx.NewGain(),
		limiter: ctx.NewDynamicsCompressor(graph.LimiterSettings),
	}
	reverb, err := ctx.NewConvolver(impulse, true)
	if err != nil {
		return nil, err
	}
	b.reverb = reverb

	b.master.Gain.SetValue(volume)
	if err := b.master.Connect(b.limiter); err != nil {
		return nil, err
	}
	if err := b.limiter.Connect(ctx.Destination()); err != nil {
		return nil, err
	}
	if err := b.reverb.Connect(b.master); err != nil {
		return nil, err
	}
	return b, nil
}

// newSend taps src into the reverb at level.
func (b *bus) newSend(src outlet, level float64) (*graph.Gain, error) {
	send := b.ctx.NewGain()
	send.Gain.SetValue(level)
	if err := src.Connect(send); err != nil {
		return nil, err
	}
	if err := send.Connect(b.reverb); err != nil {
		return nil, err
	}
	return send, nil
}

func (b *bus) release() {
	b.reverb.Disconnect()
	b.master.Disconnect()
	b.limiter.Disconnect()
}
