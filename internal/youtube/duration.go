package youtube

import "regexp"

var iso8601Duration = regexp.MustCompile(`^P(?:(\d+)D)?T?(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// ParseDuration converts an ISO-8601 duration like "PT1H2M3S" to seconds.
// Anything it cannot parse yields 0; callers treat that as unknown.
func ParseDuration(raw string) float64 {
	m := iso8601Duration.FindStringSubmatch(raw)
	if m == nil {
		return 0
	}
	var total float64
	for i, mult := range []float64{86400, 3600, 60, 1} {
		total += atof(m[i+1]) * mult
	}
	return total
}

func atof(s string) float64 {
	var n float64
	for _, c := range s {
		n = n*10 + float64(c-'0')
	}
	return n
}
