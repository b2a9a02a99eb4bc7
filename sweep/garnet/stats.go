package garnet

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/garnet-sweep/garnet-sweep/sweep"
)

const maxStatsLine = 1 << 20

// StatsReader implements sweep.LogReader over gem5 output directories. A
// metric is looked up in every regular file under the location, the way
// `grep -r` would find it in stats.txt.
type StatsReader struct{}

// Exists reports whether location is present on disk.
func (StatsReader) Exists(location string) (bool, error) {
	_, err := os.Stat(location)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Metric returns the value of the one line naming metric, optionally behind a
// dotted prefix such as system.ruby.network. The line may carry a trailing
// "# description" comment.
func (StatsReader) Metric(location, metric string) (float64, error) {
	pattern := regexp.MustCompile(`^(?:\S*\.)?` + regexp.QuoteMeta(metric) + `(?:\s|$)`)

	var matches []string
	err := filepath.WalkDir(location, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		found, err := scanFile(path, pattern)
		if err != nil {
			return err
		}
		matches = append(matches, found...)
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, &sweep.MissingOutputError{Location: location}
		}
		return 0, &sweep.MetricParseError{Location: location, Metric: metric, Reason: "unreadable output", Err: err}
	}

	switch len(matches) {
	case 0:
		return 0, &sweep.MetricParseError{Location: location, Metric: metric, Reason: "metric not found"}
	case 1:
		return parseValue(location, metric, matches[0])
	default:
		return 0, &sweep.MetricParseError{
			Location: location, Metric: metric, Line: matches[1],
			Reason: fmt.Sprintf("metric appears %d times", len(matches)),
		}
	}
}

func scanFile(path string, pattern *regexp.Regexp) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var found []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxStatsLine)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if pattern.MatchString(line) {
			found = append(found, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return found, nil
}

func parseValue(location, metric, line string) (float64, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0, &sweep.MetricParseError{Location: location, Metric: metric, Line: line, Reason: "no value"}
	}
	if len(fields) > 2 && !strings.HasPrefix(fields[2], "#") {
		return 0, &sweep.MetricParseError{Location: location, Metric: metric, Line: line, Reason: "unexpected text after value"}
	}
	v, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, &sweep.MetricParseError{Location: location, Metric: metric, Line: line, Reason: "malformed value", Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &sweep.MetricParseError{Location: location, Metric: metric, Line: line, Reason: "non-finite value"}
	}
	return v, nil
}
