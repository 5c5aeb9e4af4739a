package messages

// Strategy selects where captured message content is recorded.
type Strategy string

const (
	// StrategySpanAttributes records message content as span attributes.
	StrategySpanAttributes Strategy = "span-attributes"
	// StrategyEvent records message content in a single log event per
	// operation.
	StrategyEvent Strategy = "event"
)

// DefaultMaxContentLength is the content budget used when none is configured.
const DefaultMaxContentLength = 8192

// TruncationMarker is appended to content cut at the configured budget.
const TruncationMarker = "...[truncated]"

// CaptureOptions controls message content capture. The zero value disables
// content capture; use NewCaptureOptions to build a normalized value.
type CaptureOptions struct {
	captureContent   bool
	maxContentLength int
	strategy         Strategy
}

// ParseStrategy maps a configuration value to a Strategy. Unrecognized values
// map to StrategySpanAttributes.
func ParseStrategy(s string) Strategy {
	switch Strategy(s) {
	case StrategyEvent:
		return StrategyEvent
	default:
		return StrategySpanAttributes
	}
}

// NewCaptureOptions builds capture options. A non-positive maxContentLength
// falls back to DefaultMaxContentLength.
func NewCaptureOptions(captureContent bool, maxContentLength int, strategy string) CaptureOptions {
	if maxContentLength <= 0 {
		maxContentLength = DefaultMaxContentLength
	}
	return CaptureOptions{
		captureContent:   captureContent,
		maxContentLength: maxContentLength,
		strategy:         ParseStrategy(strategy),
	}
}

// CaptureContent reports whether message content is recorded.
func (o CaptureOptions) CaptureContent() bool { return o.captureContent }

// MaxContentLength returns the per-choice content budget in characters.
func (o CaptureOptions) MaxContentLength() int {
	if o.maxContentLength <= 0 {
		return DefaultMaxContentLength
	}
	return o.maxContentLength
}

// Strategy returns the capture strategy.
func (o CaptureOptions) Strategy() Strategy {
	if o.strategy == "" {
		return StrategySpanAttributes
	}
	return o.strategy
}
