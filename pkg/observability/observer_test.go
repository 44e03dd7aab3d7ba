package observability

import (
	"bytes"
	"encoding/json"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventMessage(t *testing.T) {
	assert.Equal(t, "[novo-auth:transport:link:auth] missing-token", EventMessage("transport:link:auth", "missing-token"))
}

func TestLoggerObserver(t *testing.T) {
	var buf bytes.Buffer
	obs := NewLoggerObserver(NewLogger(DebugLevel, &buf))

	obs.Warn("session:normalize", "invalid-expiry", Fields{"raw": "soon"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "[novo-auth:session:normalize] invalid-expiry", entry["msg"])
	assert.Equal(t, "session:normalize", entry["scope"])
	assert.Equal(t, "invalid-expiry", entry["event"])
	assert.Equal(t, "soon", entry["raw"])
}

func TestLogrusObserver(t *testing.T) {
	log, hook := test.NewNullLogger()
	obs := NewLogrusObserver(log)

	obs.Info("client", "create", Fields{"endpoint": "http://x"})
	obs.Warn("client", "stale", nil)
	obs.Error("client", "missing-endpoint", nil)

	entries := hook.AllEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, logrus.InfoLevel, entries[0].Level)
	assert.Equal(t, "[novo-auth:client] create", entries[0].Message)
	assert.Equal(t, "http://x", entries[0].Data["endpoint"])
	assert.Equal(t, "client", entries[0].Data["scope"])
	assert.Equal(t, logrus.WarnLevel, entries[1].Level)
	assert.Equal(t, logrus.ErrorLevel, entries[2].Level)

	assert.NotNil(t, NewLogrusObserver(nil))
}

func TestNopObserver(t *testing.T) {
	var obs Observer = NopObserver{}
	obs.Info("a", "b", nil)
	obs.Warn("a", "b", Fields{"k": 1})
	obs.Error("a", "b", nil)
}

func TestRecorder(t *testing.T) {
	rec := NewRecorder()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec.Info("transport", "request", nil)
		}()
	}
	wg.Wait()

	rec.Warn("transport", "retry", Fields{"attempt": 2})
	rec.Error("transport", "network-error", nil)

	assert.Equal(t, 10, rec.Count("transport", "request"))
	assert.Len(t, rec.Events(), 12)

	found := rec.Find("transport", "retry")
	require.Len(t, found, 1)
	assert.Equal(t, WarnLevel, found[0].Level)
	assert.Equal(t, 2, found[0].Fields["attempt"])

	assert.Empty(t, rec.Find("transport", "unknown"))
	assert.Equal(t, ErrorLevel, rec.Find("transport", "network-error")[0].Level)
}
