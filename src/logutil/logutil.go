package logutil

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

const (
	logFileName  = "screen_ocr_overlay.log"
	maxSizeBytes = 10 * 1024 * 1024 // 10 MB
	maxArchives  = 3
)

// Setup routes the standard logger. With file logging enabled it writes to a
// size-rotated file (10MB, max 3 archives); otherwise it writes to stderr,
// which is where recognition results end up.
func Setup(enableFileLogging bool) {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if !enableFileLogging {
		log.SetOutput(os.Stderr)
		return
	}
	rotateIfNeeded(logFileName)
	f, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		log.SetOutput(os.Stderr)
		return
	}
	log.SetOutput(&rotatingWriter{path: logFileName, f: f})
}

type rotatingWriter struct {
	path string
	f    *os.File
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	if st, err := w.f.Stat(); err == nil && st.Size()+int64(len(p)) > maxSizeBytes {
		_ = w.f.Close()
		rotateIfNeeded(w.path)
		nf, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return 0, err
		}
		w.f = nf
	}
	return w.f.Write(p)
}

// rotateIfNeeded shifts path -> .1 -> .2 -> .3 once path exceeds the size cap.
func rotateIfNeeded(path string) {
	st, err := os.Stat(path)
	if err != nil || st.Size() <= maxSizeBytes {
		return
	}
	_ = os.Remove(archiveName(path, maxArchives))
	for i := maxArchives - 1; i >= 1; i-- {
		_ = os.Rename(archiveName(path, i), archiveName(path, i+1))
	}
	_ = os.Rename(path, archiveName(path, 1))
}

func archiveName(path string, n int) string {
	return filepath.Join(filepath.Dir(path), fmt.Sprintf("%s.%d", filepath.Base(path), n))
}

// RedactKey masks an API key, leaving first/last 4 chars: xxxx...yyyy
func RedactKey(k string) string {
	if len(k) <= 8 {
		return "********"
	}
	return fmt.Sprintf("%s...%s", k[:4], k[len(k)-4:])
}

// Sanitize escapes line breaks and masks control characters so recognized
// text cannot forge log lines. maxLen <= 0 keeps the full text.
func Sanitize(text string, maxLen int) string {
	truncated := false
	if maxLen > 0 && len(text) > maxLen {
		text = text[:maxLen]
		truncated = true
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '\n' || r == '\r':
			b.WriteString(`\n`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 32 || r == 127:
			b.WriteByte('?')
		default:
			b.WriteRune(r)
		}
	}
	if truncated {
		b.WriteString("...")
	}
	return b.String()
}
