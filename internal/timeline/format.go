package timeline

import (
	"fmt"
	"strings"

	"github.com/gosight/gazetrace/internal/instant"
)

// FormatOffset renders milliseconds as [[hh:]mm:]ss.mmm.
func FormatOffset(ms int64) string {
	sign := ""
	if ms < 0 {
		sign = "-"
		ms = -ms
	}

	rest := ms / 1000
	var comps []string
	for i := 0; i < 2 && rest > 0; i++ {
		comps = append(comps, fmt.Sprintf("%02d", rest%60))
		rest /= 60
	}
	if rest > 0 {
		comps = append(comps, fmt.Sprintf("%02d", rest))
	}
	if len(comps) == 0 {
		comps = []string{"00"}
	}
	for i, j := 0, len(comps)-1; i < j; i, j = i+1, j-1 {
		comps[i], comps[j] = comps[j], comps[i]
	}

	return fmt.Sprintf("%s%s.%03d", sign, strings.Join(comps, ":"), ms%1000)
}

// FormatDate renders an instant as dd.mm.yyyy hh:mm:ss in UTC.
func FormatDate(i instant.Instant) string {
	if !i.Valid() {
		return ""
	}
	return i.Time().Format("02.01.2006 15:04:05")
}
