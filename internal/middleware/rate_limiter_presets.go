package middleware

// StrictRateLimiter - For sensitive endpoints (login)
// Burst: 5 requests, Sustained: 1 request per 2 seconds
func StrictRateLimiter() *RateLimiterConfig {
	return &RateLimiterConfig{
		Capacity:   5,
		RefillRate: 0.5,
	}
}

// DefaultRateLimiterConfig - For the user API
// Burst: 20 requests, Sustained: 10 requests per second
func DefaultRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		Capacity:   20,
		RefillRate: 10.0,
	}
}
