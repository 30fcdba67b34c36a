package cmd

import (
	"fmt"
	"log/slog"

	"github.com/mileusna/useragent"
)

// deviceAttr returns a log group with the browser and operating system of userAgent.
// It is false, if nothing could be recognised.
func deviceAttr(userAgent string) (slog.Attr, bool) {
	if userAgent == "" {
		return slog.Attr{}, false
	}

	ua := useragent.Parse(userAgent)

	var attrs []any

	if ua.Name != "" {
		attrs = append(attrs, slog.String("browser", versioned(ua.Name, ua.Version)))
	}

	if ua.OS != "" {
		attrs = append(attrs, slog.String("os", versioned(ua.OS, ua.OSVersion)))
	}

	if ua.Bot {
		attrs = append(attrs, slog.Bool("bot", true))
	}

	if len(attrs) == 0 {
		return slog.Attr{}, false
	}

	return slog.Group("device", attrs...), true
}

func versioned(name string, version string) string {
	if version == "" {
		return name
	}

	return fmt.Sprintf("%s v%s", name, version)
}
