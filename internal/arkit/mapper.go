package arkit

// ChannelSink is the write side of a host animation target: something that
// owns a set of named channel values (shape keys, morph targets, ...).
type ChannelSink interface {
	HasChannel(name string) bool
	SetChannel(name string, value float32)
}

// ChannelSource is the read side of a host animation target.
type ChannelSource interface {
	// Channel returns the current value of name and whether the target has it.
	Channel(name string) (float32, bool)
}

// Apply writes values positionally onto sink.
//
// values[i] drives Channels[i]. Indices past the end of values, and channels
// the sink does not expose, are skipped. Values are passed through unchanged.
// Apply returns the number of channels written.
func Apply(values []float32, sink ChannelSink) int {
	if sink == nil {
		return 0
	}
	applied := 0
	for i, name := range Channels {
		if i >= len(values) {
			break
		}
		if !sink.HasChannel(name) {
			continue
		}
		sink.SetChannel(name, values[i])
		applied++
	}
	return applied
}

// Clear writes 0 to every catalogue channel present on sink and returns the
// number of channels reset.
func Clear(sink ChannelSink) int {
	if sink == nil {
		return 0
	}
	cleared := 0
	for _, name := range Channels {
		if !sink.HasChannel(name) {
			continue
		}
		sink.SetChannel(name, 0)
		cleared++
	}
	return cleared
}
