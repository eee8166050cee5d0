package directive

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kailas-cloud/attachments/internal/domain"
)

// Bool interprets key as a boolean. Missing or unrecognized values return def.
func (d Directives) Bool(key string, def bool) bool {
	v, ok := d.Get(key)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "true", "yes", "on", "1":
		return true
	case "false", "no", "off", "0":
		return false
	}
	return def
}

// Int interprets key as an integer. Missing or malformed values return def.
func (d Directives) Int(key string, def int) int {
	v, ok := d.Get(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

var (
	rangeRegex  = regexp.MustCompile(`^(-?\d+)-(-?\d+)?$`)
	singleRegex = regexp.MustCompile(`^-?\d+$`)
)

// ParseRanges resolves a page spec like "1-3,5,-1" against total items.
// Numbers are 1-based, negative numbers count from the end (-1 is the last item).
// It returns zero-based indices in spec order without duplicates; out-of-range
// numbers are skipped.
func ParseRanges(spec string, total int) ([]int, error) {
	var out []int
	seen := make(map[int]struct{})
	add := func(i int) {
		if i < 0 || i >= total {
			return
		}
		if _, ok := seen[i]; ok {
			return
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	resolve := func(n int) int {
		if n < 0 {
			return total + n
		}
		return n - 1
	}

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if singleRegex.MatchString(part) {
			n, _ := strconv.Atoi(part)
			add(resolve(n))
			continue
		}
		m := rangeRegex.FindStringSubmatch(part)
		if m == nil {
			return nil, fmt.Errorf("%w: range %q", domain.ErrInvalidDirective, part)
		}
		from, _ := strconv.Atoi(m[1])
		to := total
		if m[2] != "" {
			to, _ = strconv.Atoi(m[2])
		}
		lo, hi := max(resolve(from), 0), min(resolve(to), total-1)
		for i := lo; i <= hi; i++ {
			add(i)
		}
	}
	return out, nil
}

// DefaultMaxPixels bounds the area of a resized image when no limit is configured.
const DefaultMaxPixels = 40_000_000

// ParseSize resolves a size spec against the current dimensions.
// Accepted forms: "50%", "800x600", "800" (width, height proportional).
// The result is never smaller than 1x1 and never larger than maxPixels in area;
// maxPixels <= 0 means DefaultMaxPixels.
func ParseSize(spec string, w, h, maxPixels int) (int, int, error) {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	spec = strings.ToLower(strings.TrimSpace(spec))
	invalid := fmt.Errorf("%w: size %q", domain.ErrInvalidDirective, spec)

	var fw, fh float64
	switch {
	case strings.HasSuffix(spec, "%"):
		pct, err := strconv.ParseFloat(strings.TrimSuffix(spec, "%"), 64)
		if err != nil || pct <= 0 {
			return 0, 0, invalid
		}
		fw = float64(w) * pct / 100
		fh = float64(h) * pct / 100
	case strings.Contains(spec, "x"):
		ws, hs, _ := strings.Cut(spec, "x")
		nw, err1 := strconv.Atoi(ws)
		nh, err2 := strconv.Atoi(hs)
		if err1 != nil || err2 != nil {
			return 0, 0, invalid
		}
		fw, fh = float64(nw), float64(nh)
	default:
		n, err := strconv.Atoi(spec)
		if err != nil {
			return 0, 0, invalid
		}
		fw = float64(n)
		if w > 0 {
			fh = float64(h) * float64(n) / float64(w)
		}
	}
	fw, fh = max(fw, 1), max(fh, 1)
	if fw*fh > float64(maxPixels) {
		return 0, 0, fmt.Errorf("%w: size %q exceeds %d pixels", domain.ErrInvalidDirective, spec, maxPixels)
	}
	return int(fw), int(fh), nil
}
