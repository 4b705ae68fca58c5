package layout

// Normalize applies the page transform to every run's own transform so that
// all runs of a page share one coordinate space. The input slice is not
// modified. Runs whose transform is missing or malformed are kept but marked
// unusable; FilterRotated drops them.
func Normalize(page Matrix, raws []RawRun) []Run {
	runs := make([]Run, 0, len(raws))
	for _, raw := range raws {
		m, ok := toMatrix(raw.Transform)
		if !ok {
			runs = append(runs, Run{Str: raw.Str, Width: raw.Width, Height: raw.Height, EOL: raw.EOL, unusable: true})
			continue
		}
		runs = append(runs, NewRun(raw.Str, page.Multiply(m), raw.Width, raw.Height, raw.EOL))
	}
	return runs
}

// IsNotRotated reports whether m is a pure scale and translation. Rotated or
// sheared text is usually a watermark or a stamp.
func IsNotRotated(m Matrix) bool {
	return m[1] == 0 && m[2] == 0
}

// FilterRotated returns the runs that are usable and not rotated.
func FilterRotated(runs []Run) []Run {
	out := make([]Run, 0, len(runs))
	for _, r := range runs {
		if r.unusable || !IsNotRotated(r.Transform) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// PageRuns normalizes a page and drops rotated or unusable runs.
func PageRuns(p Page) []Run {
	return FilterRotated(Normalize(p.Transform, p.Runs))
}
