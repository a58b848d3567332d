package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, line []byte) map[string]any {
	t.Helper()
	var record map[string]any
	require.NoError(t, json.Unmarshal(line, &record))
	return record
}

func TestFormatter_Envelope(t *testing.T) {
	f := &Formatter{Service: "task_api", SchemaVersion: "1.0"}
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Date(2026, time.October, 15, 10, 30, 0, 0, time.FixedZone("X", 3600)),
		Level:   logrus.WarnLevel,
		Message: "task_not_found",
		Data:    logrus.Fields{"task_id": 7, "error": errors.New("boom")},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.True(t, bytes.HasSuffix(out, []byte("\n")))

	record := decodeLine(t, out)
	assert.Equal(t, "2026-10-15T09:30:00Z", record["timestamp"])
	assert.Equal(t, "WARNING", record["level"])
	assert.Equal(t, "task_not_found", record["event"])
	assert.Equal(t, "task_api", record["service"])
	assert.Equal(t, "1.0", record["version"])
	assert.Nil(t, record["request_id"])
	assert.Contains(t, record, "request_id")
	assert.EqualValues(t, 7, record["task_id"])
	assert.Equal(t, "boom", record["error"])
}

func TestFormatter_PassesThroughJSONMessage(t *testing.T) {
	f := &Formatter{Service: "task_api", SchemaVersion: "1.0"}
	msg := `{"event":"already_encoded","level":"INFO"}`
	entry := &logrus.Entry{Logger: logrus.New(), Time: time.Now(), Level: logrus.InfoLevel, Message: msg}

	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, msg+"\n", string(out))
}

func TestFormatter_WrapsJSONLookingNonObject(t *testing.T) {
	f := &Formatter{Service: "task_api", SchemaVersion: "1.0"}
	entry := &logrus.Entry{Logger: logrus.New(), Time: time.Now(), Level: logrus.ErrorLevel, Message: "{not json"}

	out, err := f.Format(entry)
	require.NoError(t, err)
	record := decodeLine(t, out)
	assert.Equal(t, "{not json", record["event"])
	assert.Equal(t, "ERROR", record["level"])
}

func TestFromContext_CarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	prevOut := Log.Out
	Log.SetOutput(&buf)
	defer Log.SetOutput(prevOut)

	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestID(ctx))

	FromContext(ctx).WithField("method", "GET").Info("request_started")
	FromContext(context.Background()).Info("outside_request")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	first := decodeLine(t, []byte(lines[0]))
	assert.Equal(t, "req-1", first["request_id"])
	assert.Equal(t, "GET", first["method"])
	assert.Equal(t, "INFO", first["level"])

	second := decodeLine(t, []byte(lines[1]))
	assert.Nil(t, second["request_id"])
}

func TestSetup_AppendsToFile(t *testing.T) {
	prevOut, prevFormatter, prevLevel := Log.Out, Log.Formatter, Log.Level
	defer func() {
		Log.SetOutput(prevOut)
		Log.SetFormatter(prevFormatter)
		Log.SetLevel(prevLevel)
	}()

	path := filepath.Join(t.TempDir(), "logs.json")
	require.NoError(t, os.WriteFile(path, []byte("{\"event\":\"earlier\"}\n"), 0o644))

	closer, err := Setup(Options{FilePath: path, Level: "info", Service: "svc", SchemaVersion: "2"})
	require.NoError(t, err)
	Log.Info("appended")
	Log.Debug("dropped")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `{"event":"earlier"}`, lines[0])

	record := decodeLine(t, []byte(lines[1]))
	assert.Equal(t, "appended", record["event"])
	assert.Equal(t, "svc", record["service"])
	assert.Equal(t, "2", record["version"])
}

func TestSetup_InvalidLevel(t *testing.T) {
	_, err := Setup(Options{FilePath: filepath.Join(t.TempDir(), "x.json"), Level: "loud"})
	require.Error(t, err)
}
