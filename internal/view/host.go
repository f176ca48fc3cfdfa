package view

import (
	"context"
	"errors"
	"time"

	"github.com/metcalfc/leaf/internal/frame"
	"github.com/metcalfc/leaf/internal/gesture"
	"github.com/metcalfc/leaf/internal/relay"
)

func (m *Manager) registerHandlers() {
	handlers := map[string]relay.HandlerFunc{
		relay.TypeFramePress: m.onPress,
		relay.TypeFrameClick: m.onClick,
		relay.TypeFrameKey:   m.onKey,
	}
	for t, fn := range handlers {
		if err := m.relay.Handle(t, fn); err != nil {
			m.log.Error().Err(err).Str("type", t).Msg("failed to register relay handler")
		}
	}
}

// Run is the host loop. It drains relayed input, feeds the gesture
// disambiguator and applies the intents it resolves, until ctx is done.
// Gesture state is only ever mutated here.
func (m *Manager) Run(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		if deadline, ok := m.gestures.Deadline(); ok {
			timer.Reset(max(0, deadline.Sub(m.opts.Clock())))
		} else {
			timer.Stop()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-m.relay.Messages():
			m.handle(ctx, msg)
		case <-timer.C:
			m.advance(ctx)
		}
	}
}

// handle dispatches one relayed message and resolves anything now due.
func (m *Manager) handle(ctx context.Context, msg relay.Message) {
	if err := m.relay.Dispatch(ctx, msg); err != nil {
		if errors.Is(err, relay.ErrNoHandler) {
			m.log.Debug().Str("type", msg.Type).Msg("ignoring unknown frame message")
		} else {
			m.log.Warn().Err(err).Str("type", msg.Type).Msg("frame message failed")
		}
	}
	m.advance(ctx)
}

func (m *Manager) advance(ctx context.Context) {
	for _, intent := range m.gestures.Advance(m.opts.Clock()) {
		m.apply(ctx, intent)
	}
}

func (m *Manager) apply(ctx context.Context, intent gesture.Intent) {
	m.log.Debug().Str("intent", intent.String()).Msg("tap resolved")
	switch intent {
	case gesture.IntentPrev, gesture.IntentNext:
		m.turn(intent)
	case gesture.IntentToggleMenu:
		m.publish(Event{Type: EventMiddleTap})
	}
}

func (m *Manager) onPress(_ context.Context, _ relay.Message) error {
	m.gestures.Press(m.opts.Clock())
	return nil
}

func (m *Manager) onClick(_ context.Context, msg relay.Message) error {
	var p relay.ClickPayload
	if err := msg.Decode(&p); err != nil {
		return err
	}

	// Without known view bounds, the frame itself is the view.
	view := m.viewBounds()
	if view.Width <= 0 {
		view = frame.Rect{Left: p.FrameLeft, Width: p.FrameWidth}
	}

	outcome := m.gestures.Click(gesture.ClickEvent{
		ClientX:    p.ClientX,
		ClientY:    p.ClientY,
		FrameLeft:  p.FrameLeft,
		FrameWidth: p.FrameWidth,
		Target:     p.Target,
	}, view, m.opts.Clock())

	m.log.Debug().
		Float64("x", p.ClientX).
		Str("zone", gesture.Classify(p.ClientX-view.Left, view.Width).String()).
		Str("outcome", outcome.String()).
		Msg("frame click")
	return nil
}

func (m *Manager) onKey(_ context.Context, msg relay.Message) error {
	var p relay.KeyPayload
	if err := msg.Decode(&p); err != nil {
		return err
	}
	m.HandleKey(p.Key)
	return nil
}
