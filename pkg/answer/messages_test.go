package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractAnswer(t *testing.T) {
	tests := []struct {
		name     string
		segments []Segment
		want     string
	}{
		{
			name:     "first text segment wins",
			segments: []Segment{{Kind: SegmentText, Text: "answer"}, {Kind: SegmentText, Text: "later"}},
			want:     "answer",
		},
		{
			name:     "skips non-text segments",
			segments: []Segment{{Kind: SegmentToolCall, Text: "call"}, {Kind: SegmentText, Text: "answer"}},
			want:     "answer",
		},
		{
			name:     "empty text segment skipped",
			segments: []Segment{{Kind: SegmentText, Text: ""}, {Kind: SegmentText, Text: "answer"}},
			want:     "answer",
		},
		{
			name:     "no segments falls back",
			segments: nil,
			want:     FallbackAnswer,
		},
		{
			name:     "only unknown segments falls back",
			segments: []Segment{{Kind: SegmentUnknown, Text: "??"}},
			want:     FallbackAnswer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractAnswer(tt.segments))
		})
	}
}
