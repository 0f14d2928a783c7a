package heuristics

import "strings"

// Delimiters checked by the table-like heuristic, in priority order.
var Delimiters = []rune{'|', '\t', ','}

// TableDelimiter inspects the first th.TableSampleLines non-blank lines and
// returns the delimiter whose count is identical across all of them and at
// least th.MinDelimiters. At least two lines are required.
func TableDelimiter(lines []string, th Thresholds) (delim rune, count int, ok bool) {
	sample := make([]string, 0, th.TableSampleLines)
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		sample = append(sample, l)
		if len(sample) == th.TableSampleLines {
			break
		}
	}
	if len(sample) < 2 {
		return 0, 0, false
	}
	for _, d := range Delimiters {
		n := strings.Count(sample[0], string(d))
		if n < th.MinDelimiters {
			continue
		}
		same := true
		for _, l := range sample[1:] {
			if strings.Count(l, string(d)) != n {
				same = false
				break
			}
		}
		if same {
			return d, n, true
		}
	}
	return 0, 0, false
}

// IsTableLike reports whether lines look like delimited table rows.
func IsTableLike(lines []string, th Thresholds) bool {
	_, _, ok := TableDelimiter(lines, th)
	return ok
}

// SplitCells splits a delimited row and trims each cell. Leading and trailing
// empty cells produced by "| a | b |" style rows are dropped.
func SplitCells(row string, delim rune) []string {
	parts := strings.Split(row, string(delim))
	if delim == '|' {
		if len(parts) > 0 && strings.TrimSpace(parts[0]) == "" {
			parts = parts[1:]
		}
		if len(parts) > 0 && strings.TrimSpace(parts[len(parts)-1]) == "" {
			parts = parts[:len(parts)-1]
		}
	}
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}
