package storage

import (
	"log/slog"
	"mime"
)

// Image extensions missing from minimal mime tables (distroless, alpine).
var imageTypes = map[string]string{
	".webp": "image/webp",
	".avif": "image/avif",
	".heic": "image/heic",
}

func init() {
	for ext, typ := range imageTypes {
		if mime.TypeByExtension(ext) != "" {
			continue
		}
		if err := mime.AddExtensionType(ext, typ); err != nil {
			slog.Warn("storage: register mime type", slog.String("ext", ext), slog.Any("error", err))
		}
	}
}
