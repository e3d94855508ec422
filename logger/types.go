package logger

// Logger defines the logging interface used throughout the bot.
type Logger interface {
	DebugW(msg string, keysAndValues ...any)
	InfoW(msg string, keysAndValues ...any)
	WarnW(msg string, keysAndValues ...any)
	ErrorW(msg string, keysAndValues ...any)
	With(keysAndValues ...any) Logger
	Sync() error
}
