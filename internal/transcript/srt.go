// Package transcript parses subtitle resources (SRT and WebVTT) into timed
// segments. Provider-hosted subtitle files are frequently malformed, so the
// parser repairs the defects we have seen in the wild before giving up.
package transcript

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/LeoVertizBP/content-scan-engine/internal/scan"
)

// ErrNoSegments is returned when a document yields no parsable cues.
// Callers treat it as "no transcript" rather than an ingestion failure.
var ErrNoSegments = errors.New("transcript: no parsable segments")

const timeSeparator = "-->"

// Parse converts raw subtitle bytes into ordered transcript segments.
//
// Known defects repaired before parsing: UTF-8 BOM prefixes, CRLF and bare-CR
// line endings, decimal points where SRT expects commas, and cue blocks that
// run together without a blank separator line.
func Parse(data []byte) ([]scan.TranscriptSegment, error) {
	text := strings.TrimPrefix(string(data), "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")

	var segments []scan.TranscriptSegment
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if !strings.Contains(line, timeSeparator) {
			continue
		}
		start, end, err := parseCueTiming(line)
		if err != nil {
			continue
		}

		var parts []string
		for i++; i < len(lines); i++ {
			textLine := strings.TrimSpace(lines[i])
			if textLine == "" {
				break
			}
			// A missing blank separator means the next cue starts here.
			if strings.Contains(textLine, timeSeparator) || isCueIndex(textLine, i, lines) {
				i--
				break
			}
			parts = append(parts, textLine)
		}
		if len(parts) == 0 {
			continue
		}
		segments = append(segments, scan.TranscriptSegment{
			StartMs: start,
			EndMs:   end,
			Text:    strings.Join(parts, " "),
		})
	}

	if len(segments) == 0 {
		return nil, ErrNoSegments
	}
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].StartMs < segments[j].StartMs
	})
	return segments, nil
}

// parseCueTiming extracts start and end milliseconds from a timing line such
// as "00:00:01,000 --> 00:00:03,500" or the WebVTT equivalent with periods
// and optional cue settings after the end timestamp.
func parseCueTiming(line string) (int64, int64, error) {
	halves := strings.SplitN(line, timeSeparator, 2)
	if len(halves) != 2 {
		return 0, 0, fmt.Errorf("transcript: bad timing line %q", line)
	}
	start, err := parseTimestamp(strings.TrimSpace(halves[0]))
	if err != nil {
		return 0, 0, err
	}
	endField := strings.Fields(strings.TrimSpace(halves[1]))
	if len(endField) == 0 {
		return 0, 0, fmt.Errorf("transcript: missing end timestamp in %q", line)
	}
	end, err := parseTimestamp(endField[0])
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, fmt.Errorf("transcript: cue ends before it starts in %q", line)
	}
	return start, end, nil
}

// parseTimestamp handles HH:MM:SS,mmm and MM:SS,mmm with either a comma or a
// period before the millisecond part.
func parseTimestamp(raw string) (int64, error) {
	normalized := strings.ReplaceAll(raw, ",", ".")
	clockPart := normalized
	msPart := "0"
	if idx := strings.LastIndex(normalized, "."); idx >= 0 {
		clockPart = normalized[:idx]
		msPart = normalized[idx+1:]
	}

	fields := strings.Split(clockPart, ":")
	var hours, minutes, seconds int64
	switch len(fields) {
	case 3:
		var err error
		if hours, err = parseIntField(fields[0]); err != nil {
			return 0, err
		}
		if minutes, err = parseIntField(fields[1]); err != nil {
			return 0, err
		}
		if seconds, err = parseIntField(fields[2]); err != nil {
			return 0, err
		}
	case 2:
		var err error
		if minutes, err = parseIntField(fields[0]); err != nil {
			return 0, err
		}
		if seconds, err = parseIntField(fields[1]); err != nil {
			return 0, err
		}
	default:
		return 0, fmt.Errorf("transcript: bad timestamp %q", raw)
	}

	millis, err := parseMillisField(msPart)
	if err != nil {
		return 0, err
	}
	return ((hours*60+minutes)*60+seconds)*1000 + millis, nil
}

func parseIntField(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("transcript: bad time field %q", s)
	}
	return n, nil
}

// parseMillisField pads or truncates the fractional part to milliseconds.
func parseMillisField(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if len(s) > 3 {
		s = s[:3]
	}
	for len(s) < 3 {
		s += "0"
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("transcript: bad millisecond field %q", s)
	}
	return n, nil
}

// isCueIndex reports whether the line is a bare SRT cue index immediately
// followed by a timing line, which marks the start of the next cue block.
func isCueIndex(line string, pos int, lines []string) bool {
	if _, err := strconv.Atoi(line); err != nil {
		return false
	}
	if pos+1 >= len(lines) {
		return false
	}
	return strings.Contains(lines[pos+1], timeSeparator)
}
