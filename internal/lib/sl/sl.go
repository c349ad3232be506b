package sl

import "log/slog"

func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

func Module(mod string) slog.Attr {
	return slog.Attr{
		Key:   "module",
		Value: slog.StringValue(mod),
	}
}

// Secret logs only the edges of a sensitive value.
func Secret(key, value string) slog.Attr {
	return slog.String(key, mask(value))
}

func mask(value string) string {
	r := []rune(value)
	if len(r) <= 6 {
		return "***"
	}
	return string(r[:3]) + "***" + string(r[len(r)-3:])
}
