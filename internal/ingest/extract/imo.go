package extract

// ValidIMO reports whether s is a structurally valid IMO number: exactly
// seven digits where the first six, weighted 7 down to 2, sum to a value
// whose last digit equals the seventh digit.
func ValidIMO(s string) bool {
	if len(s) != 7 {
		return false
	}
	sum := 0
	for i := 0; i < 6; i++ {
		d := s[i]
		if d < '0' || d > '9' {
			return false
		}
		sum += int(d-'0') * (7 - i)
	}
	check := s[6]
	if check < '0' || check > '9' {
		return false
	}
	return sum%10 == int(check-'0')
}
