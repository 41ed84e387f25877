package logcolors

// ANSI color codes for log prefixes
const (
	Reset  = "\033[0m"
	Green  = "\033[32m"
	Blue   = "\033[34m"
	Purple = "\033[35m"
	Cyan   = "\033[36m"
	Yellow = "\033[33m"

	BrightGreen   = "\033[92m"
	BrightBlue    = "\033[94m"
	BrightMagenta = "\033[95m"
	BrightCyan    = "\033[96m"

	Red       = "\033[31m"
	BrightRed = "\033[91m"
)

// Cache-related log prefixes
const (
	LogCacheInit     = Blue + "[Cache:Init]" + Reset
	LogCache         = Blue + "[Cache]" + Reset
	LogCacheClear    = Blue + "[Cache:Clear]" + Reset
	LogCacheLyrics   = Green + "[Cache:Lyrics]" + Reset
	LogCacheNegative = Cyan + "[Cache:Negative]" + Reset
	LogCacheSweep    = Blue + "[Cache:Sweep]" + Reset
)

// Rate limiting log prefixes
const (
	LogRateLimit = Purple + "[RateLimit]" + Reset
	LogAPIKey    = Purple + "[APIKey]" + Reset
)

// CircuitBreakerPrefix returns a colored circuit breaker prefix with the given name
func CircuitBreakerPrefix(name string) string {
	return Purple + "[CircuitBreaker:" + name + "]" + Reset
}

// providerColors rotate per provider name so each source is easy to follow in the logs
var providerColors = []string{
	Green, Blue, Purple, Cyan,
	BrightGreen, BrightBlue, BrightMagenta, BrightCyan,
}

// Provider returns a colored "[Name]" prefix for a lyrics source.
// Same name always gets the same color.
func Provider(name string) string {
	hash := 0
	for _, c := range name {
		hash += int(c)
	}
	color := providerColors[hash%len(providerColors)]
	return color + "[" + name + "]" + Reset
}

// Server/Init log prefixes
const (
	LogServer   = Green + "[Server]" + Reset
	LogConfig   = Cyan + "[Config]" + Reset
	LogStats    = Blue + "[Stats]" + Reset
	LogNotifier = Yellow + "[Notifier]" + Reset
)

// Lyrics pipeline log prefixes
const (
	LogRequest    = Purple + "[Request]" + Reset
	LogSearch     = Blue + "[Search]" + Reset
	LogHTTP       = Cyan + "[HTTP]" + Reset
	LogMatch      = Green + "[Match]" + Reset
	LogSuccess    = Green + "[Success]" + Reset
	LogLyrics     = Blue + "[Lyrics]" + Reset
	LogFallback   = Cyan + "[Fallback]" + Reset
	LogNoLyrics   = Yellow + "[No Lyrics]" + Reset
	LogLRCParser  = Cyan + "[LRC Parser]" + Reset
	LogUserLyrics = BrightGreen + "[User Lyrics]" + Reset
	LogWarning    = Red + "[Warning]" + Reset
)

// Playback and auxiliary service log prefixes
const (
	LogSession     = BrightCyan + "[Session]" + Reset
	LogSpotify     = Green + "[Spotify]" + Reset
	LogBearerToken = Cyan + "[Bearer Token]" + Reset
	LogYouTube     = Red + "[YouTube]" + Reset
	LogRecordings  = BrightMagenta + "[Recordings]" + Reset
)
