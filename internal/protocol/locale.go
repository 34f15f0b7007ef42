package protocol

// Locale is a UI language understood by the room clients.
type Locale string

// Supported locales.
const (
	LocaleEN Locale = "en"
	LocaleRU Locale = "ru"
)

// ParseLocale validates a wire locale value.
func ParseLocale(raw string) (Locale, bool) {
	switch Locale(raw) {
	case LocaleEN, LocaleRU:
		return Locale(raw), true
	default:
		return "", false
	}
}
