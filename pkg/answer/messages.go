package answer

// SegmentKind tags one variant of the provider's structured response content.
// The schema is not under our control, so anything unrecognized maps to
// SegmentUnknown instead of failing the request.
type SegmentKind string

const (
	SegmentText     SegmentKind = "text"
	SegmentToolCall SegmentKind = "tool_call"
	SegmentError    SegmentKind = "error"
	SegmentUnknown  SegmentKind = "unknown"
)

// Segment is one tagged piece of a provider response message.
type Segment struct {
	Kind SegmentKind
	Text string
}

// FallbackAnswer is returned when a completed job carries no readable text.
// A response turn is always produced, even for a malformed provider payload.
const FallbackAnswer = "I generated a response but could not read it back from the search provider. Please try asking again."

// ExtractAnswer returns the first textual segment of a response, falling back
// to a generic message when the shape is unexpected.
func ExtractAnswer(segments []Segment) string {
	for _, segment := range segments {
		if segment.Kind == SegmentText && segment.Text != "" {
			return segment.Text
		}
	}
	return FallbackAnswer
}
