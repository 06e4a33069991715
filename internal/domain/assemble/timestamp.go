package assemble

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatTimestamp renders seconds as HH:MM:SS.mmm with zero-padded hours and
// three-digit milliseconds. Downstream clipping relies on this exact shape
// for frame-accurate cuts.
func FormatTimestamp(totalSeconds float64) string {
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	hours := int(totalSeconds / 3600)
	minutes := int(totalSeconds/60) % 60
	seconds := totalSeconds - float64(hours)*3600 - float64(minutes)*60
	return fmt.Sprintf("%02d:%02d:%06.3f", hours, minutes, seconds)
}

// ParseTimestamp accepts MM:SS, HH:MM:SS, and HH:MM:SS.mmm and returns total
// seconds.
func ParseTimestamp(ts string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(ts), ":")
	switch len(parts) {
	case 2:
		minutes, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q: %w", ts, err)
		}
		seconds, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q: %w", ts, err)
		}
		return float64(minutes)*60 + seconds, nil
	case 3:
		hours, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q: %w", ts, err)
		}
		minutes, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q: %w", ts, err)
		}
		seconds, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q: %w", ts, err)
		}
		return float64(hours)*3600 + float64(minutes)*60 + seconds, nil
	default:
		return 0, fmt.Errorf("invalid timestamp format: %q", ts)
	}
}
