package detect

import "fmt"

// HumanSize renders a byte count as a short human-readable string
// (1.5MB, 12.0KB, ...).
func HumanSize(n int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	f := float64(n)
	step := 0
	for f >= 1024 && step < len(units)-1 {
		f /= 1024
		step++
	}
	return fmt.Sprintf("%.1f%s", f, units[step])
}
