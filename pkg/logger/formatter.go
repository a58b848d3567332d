package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Formatter renders entries as JSON lines. The entry message becomes the
// "event" field. A message that already is a JSON object is written as is.
type Formatter struct {
	Service       string
	SchemaVersion string
}

func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	if msg := strings.TrimSpace(entry.Message); isJSONObject(msg) {
		return append([]byte(msg), '\n'), nil
	}

	record := make(logrus.Fields, len(entry.Data)+6)
	record["timestamp"] = entry.Time.UTC().Format(time.RFC3339Nano)
	record["level"] = levelName(entry.Level)
	record["event"] = entry.Message
	record[FieldRequestID] = nil
	record["service"] = f.Service
	record["version"] = f.SchemaVersion

	for k, v := range entry.Data {
		if err, ok := v.(error); ok {
			record[k] = err.Error()
			continue
		}
		record[k] = v
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(record); err != nil {
		return nil, fmt.Errorf("failed to marshal log record: %w", err)
	}
	return buf.Bytes(), nil
}

func isJSONObject(s string) bool {
	return strings.HasPrefix(s, "{") && json.Valid([]byte(s))
}

func levelName(l logrus.Level) string {
	return strings.ToUpper(l.String())
}
