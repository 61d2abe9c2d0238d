package conn

import "time"

// backoffDelay returns the wait before reconnect attempt number attempt
// (1-based): base * 2^attempt, capped at max. No jitter: the schedule is
// deterministic so the UI can show an accurate countdown.
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	if attempt <= 0 {
		return base
	}
	// Guard the shift; past the cap the exact value no longer matters.
	if attempt > 30 {
		return max
	}
	d := base * time.Duration(1<<uint(attempt))
	if d > max || d <= 0 {
		return max
	}
	return d
}
