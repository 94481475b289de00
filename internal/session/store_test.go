package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/stocklens/stocklens/internal/ailink"
	"github.com/stocklens/stocklens/internal/ailink/content"
	"github.com/stocklens/stocklens/internal/ailink/driver"
)

type pcmSynth struct{ staticSynth }

func (pcmSynth) Synthesize(context.Context, ailink.SpeechRequest) (*driver.SpeechResponse, error) {
	return &driver.SpeechResponse{Audio: content.ContentBlock{Type: "audio/L16;rate=24000", Data: []byte{0, 0, 1, 0}}}, nil
}

func newTestStore(idle time.Duration) *Store {
	return NewStore(func() (Analyzer, Speaker) {
		return &blockingAnalyzer{result: passResult()}, nil
	}, idle, nil)
}

func TestStoreIssuesAndReusesIDs(t *testing.T) {
	store := newTestStore(0)

	sess, created := store.Get("")
	require.True(t, created)
	_, err := uuid.Parse(sess.ID)
	require.NoError(t, err)

	again, created := store.Get(sess.ID)
	require.False(t, created)
	require.Same(t, sess, again)

	other, created := store.Get("not-a-uuid")
	require.True(t, created)
	require.NotEqual(t, "not-a-uuid", other.ID)
	require.Equal(t, 2, store.Len())
}

func TestStorePrunesIdleSessions(t *testing.T) {
	store := newTestStore(time.Minute)
	sess, _ := store.Get("")

	require.Zero(t, store.Prune(time.Now()))
	require.Equal(t, 1, store.Prune(time.Now().Add(2*time.Minute)))
	require.Zero(t, store.Len())

	_, created := store.Get(sess.ID)
	require.True(t, created)

	require.Zero(t, newTestStore(0).Prune(time.Now().Add(time.Hour)))
}
