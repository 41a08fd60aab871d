package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wowmobi/callsignal/internal/adapter/driven/persistence/sqlite"
	"github.com/wowmobi/callsignal/internal/core/domain"
)

type dirEntry struct {
	dataToken string
	voip      *domain.VoipTarget
	profile   *domain.Profile
}

type fakeDirectory struct {
	users map[int64]dirEntry
}

func (d *fakeDirectory) DataToken(ctx context.Context, userID int64) (string, error) {
	return d.users[userID].dataToken, nil
}

func (d *fakeDirectory) VoipTarget(ctx context.Context, userID int64) (*domain.VoipTarget, error) {
	return d.users[userID].voip, nil
}

func (d *fakeDirectory) Profile(ctx context.Context, userID int64) (*domain.Profile, error) {
	return d.users[userID].profile, nil
}

type dataPush struct {
	token string
	data  map[string]string
}

type fakeDataPusher struct {
	sent []dataPush
	fail bool
}

func (p *fakeDataPusher) Push(ctx context.Context, token string, data map[string]string) error {
	if p.fail {
		return errors.New("push rejected")
	}
	p.sent = append(p.sent, dataPush{token: token, data: data})
	return nil
}

type voipPush struct {
	target domain.VoipTarget
	data   map[string]any
}

type fakeVoipPusher struct {
	sent []voipPush
	fail bool
}

func (p *fakeVoipPusher) Push(ctx context.Context, target domain.VoipTarget, data map[string]any) error {
	if p.fail {
		return errors.New("push rejected")
	}
	p.sent = append(p.sent, voipPush{target: target, data: data})
	return nil
}

// testEnv wires the services against a throwaway sqlite store and recording
// push fakes. Caller is user 1, callee user 42.
type testEnv struct {
	store *sqlite.Store
	data  *fakeDataPusher
	voip  *fakeVoipPusher

	calls *CallService
	relay *SignalRelay
	poll  *PollCoordinator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "signal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	callRepo := sqlite.NewCallRepository(store)
	signalRepo := sqlite.NewSignalRepository(store)

	dir := &fakeDirectory{users: map[int64]dirEntry{
		1: {
			dataToken: "fcm-caller",
			profile:   &domain.Profile{UserID: 1, Name: "Alice", Avatar: "https://cdn/a.png"},
		},
		42: {
			dataToken: "fcm-callee",
			voip:      &domain.VoipTarget{Token: "aa11", Env: "sandbox"},
			profile:   &domain.Profile{UserID: 42, Name: "Bob"},
		},
	}}
	data := &fakeDataPusher{}
	voip := &fakeVoipPusher{}
	push := NewPushDispatcher(dir, data, voip)

	relay := NewSignalRelay(callRepo, signalRepo, push)
	return &testEnv{
		store: store,
		data:  data,
		voip:  voip,
		calls: NewCallService(callRepo, signalRepo, push),
		relay: relay,
		poll:  NewPollCoordinator(callRepo, signalRepo, relay, push),
	}
}

func (e *testEnv) newCall(t *testing.T, media domain.MediaType) *domain.Call {
	t.Helper()
	call, err := e.calls.Create(context.Background(), 1, 42, media)
	require.NoError(t, err)
	return call
}

// age rewinds a call's timestamps so the inactivity check fires.
func (e *testEnv) age(t *testing.T, callID int64, d time.Duration) {
	t.Helper()
	past := time.Now().Add(-d).Unix()
	_, err := e.store.Exec(`UPDATE calls SET created_at = ?, updated_at = ? WHERE id = ?`, past, past, callID)
	require.NoError(t, err)
}

func (e *testEnv) sdpRows(t *testing.T, callID int64) int {
	t.Helper()
	var n int
	require.NoError(t, e.store.QueryRow(`SELECT COUNT(*) FROM call_sdp WHERE call_id = ?`, callID).Scan(&n))
	return n
}

func (e *testEnv) iceRows(t *testing.T, callID int64) int {
	t.Helper()
	var n int
	require.NoError(t, e.store.QueryRow(`SELECT COUNT(*) FROM call_ice WHERE call_id = ?`, callID).Scan(&n))
	return n
}

func errKind(t *testing.T, err error) domain.Kind {
	t.Helper()
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	return de.Kind
}
