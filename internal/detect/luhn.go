package detect

// luhnValid reports whether the digits in s (separators ignored) pass the
// Luhn checksum: reading right to left, every second digit is doubled, 9 is
// subtracted from doubled values above 9, and the total must be divisible
// by 10.
func luhnValid(s string) bool {
	digits := make([]int, 0, len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits = append(digits, int(r-'0'))
		case r == ' ' || r == '-':
			// separator
		default:
			return false
		}
	}
	if len(digits) == 0 {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
