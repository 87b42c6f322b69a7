package transcript

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LeoVertizBP/content-scan-engine/internal/scan"
)

func TestParseWellFormedSRT(t *testing.T) {
	t.Parallel()

	segments, err := Parse([]byte(`1
00:00:01,000 --> 00:00:03,500
Hello there.

2
00:00:04,000 --> 00:00:06,000
Second line
continues here.
`))
	require.NoError(t, err)
	require.Equal(t, []scan.TranscriptSegment{
		{StartMs: 1000, EndMs: 3500, Text: "Hello there."},
		{StartMs: 4000, EndMs: 6000, Text: "Second line continues here."},
	}, segments)
}

func TestParseWebVTT(t *testing.T) {
	t.Parallel()

	segments, err := Parse([]byte(`WEBVTT

00:01.000 --> 00:02.500 align:start position:0%
First cue

00:00:03.000 --> 00:00:04.000
Second cue
`))
	require.NoError(t, err)
	require.Equal(t, []scan.TranscriptSegment{
		{StartMs: 1000, EndMs: 2500, Text: "First cue"},
		{StartMs: 3000, EndMs: 4000, Text: "Second cue"},
	}, segments)
}

func TestParseRepairsBOMAndCRLF(t *testing.T) {
	t.Parallel()

	segments, err := Parse([]byte("\xEF\xBB\xBF1\r\n00:00:00,500 --> 00:00:01,000\r\nwindows line endings\r\n"))
	require.NoError(t, err)
	require.Len(t, segments, 1)
	require.Equal(t, int64(500), segments[0].StartMs)
	require.Equal(t, "windows line endings", segments[0].Text)
}

func TestParseRepairsMissingBlankSeparator(t *testing.T) {
	t.Parallel()

	segments, err := Parse([]byte(`1
00:00:01,000 --> 00:00:02,000
First cue text
2
00:00:03,000 --> 00:00:04,000
Second cue text
`))
	require.NoError(t, err)
	require.Len(t, segments, 2)
	require.Equal(t, "First cue text", segments[0].Text)
	require.Equal(t, "Second cue text", segments[1].Text)
}

func TestParseSortsByStartTime(t *testing.T) {
	t.Parallel()

	segments, err := Parse([]byte(`2
00:00:05,000 --> 00:00:06,000
later

1
00:00:01,000 --> 00:00:02,000
earlier
`))
	require.NoError(t, err)
	require.Equal(t, "earlier", segments[0].Text)
	require.Equal(t, "later", segments[1].Text)
}

func TestParseSkipsBrokenCues(t *testing.T) {
	t.Parallel()

	segments, err := Parse([]byte(`1
00:00:02,000 --> 00:00:01,000
ends before it starts

2
garbage --> nonsense
not a cue

3
00:00:03,000 --> 00:00:04,000
survivor
`))
	require.NoError(t, err)
	require.Len(t, segments, 1)
	require.Equal(t, "survivor", segments[0].Text)
}

func TestParseNoSegments(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "just some prose\nwith no cues", "WEBVTT\n"} {
		_, err := Parse([]byte(input))
		require.ErrorIs(t, err, ErrNoSegments)
	}
}

func TestParseToleratesLongFractions(t *testing.T) {
	t.Parallel()

	segments, err := Parse([]byte(`1
00:00:01.23456 --> 00:00:02.5
fractional
`))
	require.NoError(t, err)
	require.Equal(t, int64(1234), segments[0].StartMs)
	require.Equal(t, int64(2500), segments[0].EndMs)
}
