package kernel

// IsPrime reports whether n is prime using trial division.
//
// Values <= 1 are not prime. Candidates i = 2, 3, ... are tried while i*i <= n.
// The bound is evaluated as i <= n/i, which is the same condition for positive
// integers but cannot overflow when n is close to math.MaxInt32.
func IsPrime(n int32) bool {
	if n <= 1 {
		return false
	}
	for i := int32(2); i <= n/i; i++ {
		if n%i == 0 {
			return false
		}
	}
	return true
}
