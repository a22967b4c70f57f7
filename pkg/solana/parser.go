// Package solana wraps the solana CLI for the monitoring agent and parses
// its catchup output into slot lag measurements.
package solana

import (
	"fmt"
	"regexp"
	"strconv"
)

// CatchupResult holds one slot comparison between the local node and the
// reference cluster tip. Values are never mutated after parsing.
type CatchupResult struct {
	LocalSlot     uint64 `json:"local_slot"`
	ReferenceSlot uint64 `json:"reference_slot"`
	SlotLag       uint64 `json:"slot_lag"`
}

// ParseError reports catchup output that matched no known format. The raw
// output is retained for diagnostic logging.
type ParseError struct {
	Raw string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unrecognized catchup output: %q", e.Raw)
}

// The catchup output format has changed across CLI releases without a
// machine-readable mode, so parsing tries each known format in order of
// specificity. First match wins; strategies never combine partial matches.
var (
	compactPattern = regexp.MustCompile(`\(us:(\d+) them:(\d+)\)`)

	localSlotPattern   = regexp.MustCompile(`(?i)\blocal(?:\s+slot)?[\s:]+(\d+)`)
	clusterSlotPattern = regexp.MustCompile(`(?i)\bcluster(?:\s+slot)?[\s:]+(\d+)`)

	processedSlotPattern = regexp.MustCompile(`Processed slot (\d+)`)
	behindByPattern      = regexp.MustCompile(`behind by (\d+) slots`)
)

type parseStrategy func(output string) (CatchupResult, bool)

var parseStrategies = []parseStrategy{
	parseCompact,
	parseLabeled,
	parseLegacy,
}

// ParseCatchup extracts a CatchupResult from raw catchup command output.
// It is a pure function: no I/O, no state, identical results for identical
// input. Unrecognized output yields a *ParseError.
func ParseCatchup(output string) (CatchupResult, error) {
	for _, parse := range parseStrategies {
		if result, ok := parse(output); ok {
			return result, nil
		}
	}

	return CatchupResult{}, &ParseError{Raw: output}
}

// parseCompact matches the "(us:A them:B)" form emitted while the node is
// catching up. Most specific pattern, always tried first.
func parseCompact(output string) (CatchupResult, bool) {
	m := compactPattern.FindStringSubmatch(output)
	if m == nil {
		return CatchupResult{}, false
	}

	local, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return CatchupResult{}, false
	}

	reference, err := strconv.ParseUint(m[2], 10, 64)
	if err != nil {
		return CatchupResult{}, false
	}

	return newResult(local, reference), true
}

// parseLabeled matches output that reports the local and cluster slots on
// separate labeled lines. Both labels must be present; a single label falls
// through to the next strategy instead of producing a partial result.
func parseLabeled(output string) (CatchupResult, bool) {
	localMatch := localSlotPattern.FindStringSubmatch(output)
	clusterMatch := clusterSlotPattern.FindStringSubmatch(output)

	if localMatch == nil || clusterMatch == nil {
		return CatchupResult{}, false
	}

	local, err := strconv.ParseUint(localMatch[1], 10, 64)
	if err != nil {
		return CatchupResult{}, false
	}

	reference, err := strconv.ParseUint(clusterMatch[1], 10, 64)
	if err != nil {
		return CatchupResult{}, false
	}

	return newResult(local, reference), true
}

// parseLegacy matches the oldest "Processed slot N" form, optionally
// accompanied by "behind by K slots". Without the behind clause the node is
// treated as caught up.
func parseLegacy(output string) (CatchupResult, bool) {
	slotMatch := processedSlotPattern.FindStringSubmatch(output)
	if slotMatch == nil {
		return CatchupResult{}, false
	}

	local, err := strconv.ParseUint(slotMatch[1], 10, 64)
	if err != nil {
		return CatchupResult{}, false
	}

	reference := local
	if behindMatch := behindByPattern.FindStringSubmatch(output); behindMatch != nil {
		lag, err := strconv.ParseUint(behindMatch[1], 10, 64)
		if err != nil {
			return CatchupResult{}, false
		}

		reference = local + lag
	}

	return newResult(local, reference), true
}

// newResult computes the lag, clamping at zero when the reference reading
// is behind the local one (stale or racy reference query).
func newResult(local, reference uint64) CatchupResult {
	var lag uint64
	if reference > local {
		lag = reference - local
	}

	return CatchupResult{
		LocalSlot:     local,
		ReferenceSlot: reference,
		SlotLag:       lag,
	}
}
