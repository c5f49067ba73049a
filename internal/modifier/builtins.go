package modifier

import "github.com/k4hvh/madbridge/internal/view"

// RegisterBuiltins adds the small set of Go-native modifiers the
// reference binary and test suite exercise in place of a real scripting
// runtime.
func RegisterBuiltins(h *Host) {
	h.Register("force_base_mode", forceBaseMode)
	h.Register("clear_rc_overrides", clearRCOverrides)
}

// forceBaseMode overwrites a HEARTBEAT's base_mode bitmask from the
// trigger_context key "base_mode_bits", leaving every other field
// untouched. Used to demonstrate trigger-driven state announcement
// (e.g. forcing a HEARTBEAT to report a mode change after an activation).
func forceBaseMode(ctx Context) (Context, error) {
	bits, ok := ctx.TriggerContext["base_mode_bits"]
	if !ok {
		return ctx, nil
	}
	n, ok := bits.(int64)
	if !ok {
		return ctx, nil
	}
	ctx.Message = view.Set(ctx.Message, "base_mode", view.Flags(n))
	return ctx, nil
}

// clearRCOverrides zeroes every RC_CHANNELS_OVERRIDE channel, used to
// demonstrate a "neutralize before forwarding" rewrite.
func clearRCOverrides(ctx Context) (Context, error) {
	channels, ok := ctx.Message.Field("channels")
	if !ok || channels.Kind() != view.KindList {
		return ctx, nil
	}
	zeroed := make([]view.Value, 0)
	for i := 0; ; i++ {
		if _, ok := channels.Index(i); !ok {
			break
		}
		zeroed = append(zeroed, view.Scalar(int64(0)))
	}
	ctx.Message = view.Set(ctx.Message, "channels", view.List(zeroed))
	return ctx, nil
}
