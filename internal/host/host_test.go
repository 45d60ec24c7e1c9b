package host

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/lcsync/internal/errors"
	"github.com/hpungsan/lcsync/internal/record"
	"github.com/hpungsan/lcsync/internal/remote"
	"github.com/hpungsan/lcsync/internal/session"
)

type fakeSession struct {
	mu        sync.Mutex
	info      session.Info
	ensureErr error
	recordErr error
	removeErr error
	completed map[string]bool

	refreshes []bool
	recorded  []record.Record
	removed   []string
	window    time.Duration
}

func (f *fakeSession) Ensure(_ context.Context, refresh bool) (session.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes = append(f.refreshes, refresh)
	return f.info, f.ensureErr
}

func (f *fakeSession) RecordCompletion(_ context.Context, rec record.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, rec)
	return f.recordErr
}

func (f *fakeSession) RemoveCompletion(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, id)
	return f.removeErr
}

func (f *fakeSession) CompletedWithin(id string, window time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.window = window
	return f.completed[id]
}

func sampleRecord() record.Record {
	return record.Record{
		Link:               "https://leetcode.com/problems/two-sum/",
		ID:                 "two-sum",
		Difficulty:         record.Easy,
		RepeatDate:         record.MustParseDate("2024-01-08"),
		LastCompletionDate: record.MustParseDate("2024-01-01T12:00:00Z"),
	}
}

func TestGetUserInfo(t *testing.T) {
	s := &fakeSession{info: session.Info{Username: "alice", Records: []record.Record{sampleRecord()}}}
	d := NewDispatcher(s, nil)

	resp := d.GetUserInfo(context.Background(), true)
	assert.Equal(t, "alice", resp.Username)
	assert.Len(t, resp.Records, 1)
	assert.Nil(t, resp.Error)
	assert.Equal(t, []bool{true}, s.refreshes)
}

func TestGetUserInfo_FailureKeepsEmptyFallback(t *testing.T) {
	s := &fakeSession{
		info:      session.Info{Username: "alice"},
		ensureErr: errors.NewChallengeExhausted(64, "max 64 attempts"),
	}
	d := NewDispatcher(s, nil)

	resp := d.GetUserInfo(context.Background(), false)
	assert.Equal(t, "alice", resp.Username)
	assert.NotNil(t, resp.Records)
	assert.Empty(t, resp.Records)
	require.NotNil(t, resp.Error)
	assert.Equal(t, errors.ErrChallengeExhausted, resp.Error.Code)
	assert.Equal(t, 401, resp.Error.Status)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"records":[]`)
}

func TestGetUserInfo_NoUser(t *testing.T) {
	d := NewDispatcher(&fakeSession{}, nil)

	resp := d.GetUserInfo(context.Background(), false)
	assert.Empty(t, resp.Username)
	assert.NotNil(t, resp.Records)
	assert.Nil(t, resp.Error)
}

func TestProblemCompleted_RunsInBackground(t *testing.T) {
	s := &fakeSession{}
	d := NewDispatcher(s, nil)

	resp := d.ProblemCompleted(context.Background(), sampleRecord())
	require.Nil(t, resp.Error)
	assert.Len(t, resp.JobID, 26)

	d.Wait()
	require.Len(t, s.recorded, 1)
	assert.Equal(t, "two-sum", s.recorded[0].ID)
}

func TestProblemCompleted_SurvivesCallerCancel(t *testing.T) {
	s := &fakeSession{}
	d := NewDispatcher(s, nil)

	ctx, cancel := context.WithCancel(context.Background())
	resp := d.ProblemCompleted(ctx, sampleRecord())
	cancel()
	d.Wait()

	assert.NotEmpty(t, resp.JobID)
	assert.Len(t, s.recorded, 1)
}

func TestProblemCompleted_AfterClose(t *testing.T) {
	s := &fakeSession{}
	d := NewDispatcher(s, nil)

	resp := d.ProblemCompleted(context.Background(), sampleRecord())
	require.Nil(t, resp.Error)
	d.Close()
	assert.Len(t, s.recorded, 1)

	resp = d.ProblemCompleted(context.Background(), sampleRecord())
	require.NotNil(t, resp.Error)
	assert.Equal(t, errors.ErrInternal, resp.Error.Code)
	assert.Empty(t, resp.JobID)

	d.Close()
	assert.Len(t, s.recorded, 1)
}

func TestProblemCompleted_InvalidRecord(t *testing.T) {
	s := &fakeSession{}
	d := NewDispatcher(s, nil)

	resp := d.ProblemCompleted(context.Background(), record.Record{ID: "x"})
	d.Wait()
	require.NotNil(t, resp.Error)
	assert.Equal(t, errors.ErrInvalidRequest, resp.Error.Code)
	assert.Empty(t, resp.JobID)
	assert.Empty(t, s.recorded)
}

func TestDeleteRow(t *testing.T) {
	s := &fakeSession{}
	d := NewDispatcher(s, nil)

	resp := d.DeleteRow(context.Background(), "two-sum")
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	assert.Equal(t, []string{"two-sum"}, s.removed)
}

func TestDeleteRow_ReflectsRemoteFailure(t *testing.T) {
	s := &fakeSession{removeErr: errors.NewRemote(500, "nope")}
	d := NewDispatcher(s, nil)

	resp := d.DeleteRow(context.Background(), "two-sum")
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, errors.ErrRemote, resp.Error.Code)
}

func TestDeleteRow_PlainErrorIsInternal(t *testing.T) {
	s := &fakeSession{removeErr: stderrors.New("context canceled")}
	d := NewDispatcher(s, nil)

	resp := d.DeleteRow(context.Background(), "two-sum")
	require.NotNil(t, resp.Error)
	assert.Equal(t, errors.ErrInternal, resp.Error.Code)
}

func TestCheckCompletedLastDay(t *testing.T) {
	s := &fakeSession{completed: map[string]bool{"two-sum": true}}
	d := NewDispatcher(s, nil)

	assert.True(t, d.CheckCompletedLastDay("two-sum").IsCompleted)
	assert.Equal(t, 24*time.Hour, s.window)
	assert.False(t, d.CheckCompletedLastDay("missing").IsCompleted)

	resp := d.CheckCompletedLastDay("")
	require.NotNil(t, resp.Error)
	assert.Equal(t, errors.ErrInvalidRequest, resp.Error.Code)
}

func TestHandle(t *testing.T) {
	rec := sampleRecord()
	s := &fakeSession{
		info:      session.Info{Username: "alice", Records: []record.Record{rec}},
		completed: map[string]bool{"two-sum": true},
	}
	d := NewDispatcher(s, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		msg   Message
		check func(t *testing.T, got Response)
	}{
		{"getUserInfo", Message{Action: ActionGetUserInfo, ShouldRefresh: true}, func(t *testing.T, got Response) {
			resp := got.(UserInfoResponse)
			assert.Equal(t, "alice", resp.Username)
		}},
		{"problemCompleted", Message{Action: ActionProblemCompleted, Record: &rec}, func(t *testing.T, got Response) {
			resp := got.(ProblemCompletedResponse)
			assert.NotEmpty(t, resp.JobID)
		}},
		{"problemCompleted without record", Message{Action: ActionProblemCompleted}, func(t *testing.T, got Response) {
			resp := got.(ProblemCompletedResponse)
			require.NotNil(t, resp.Error)
			assert.Equal(t, errors.ErrInvalidRequest, resp.Error.Code)
		}},
		{"deleteRow", Message{Action: ActionDeleteRow, ID: "two-sum"}, func(t *testing.T, got Response) {
			assert.True(t, got.(DeleteRowResponse).Success)
		}},
		{"check", Message{Action: ActionCheckCompletedLastDay, ID: "two-sum"}, func(t *testing.T, got Response) {
			assert.True(t, got.(CheckResponse).IsCompleted)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.Handle(ctx, tt.msg)
			require.NoError(t, err)
			tt.check(t, got)
		})
	}
	d.Wait()

	_, err := d.Handle(ctx, Message{Action: "setBadge"})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestMessage_JSON(t *testing.T) {
	var msg Message
	err := json.Unmarshal([]byte(`{"action":"getUserInfo","shouldRefresh":true}`), &msg)
	require.NoError(t, err)
	assert.Equal(t, ActionGetUserInfo, msg.Action)
	assert.True(t, msg.ShouldRefresh)
}

func TestStaticUsername(t *testing.T) {
	name, ok, err := StaticUsername(" alice \n").Username(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice", name)

	_, ok, err = StaticUsername("").Username(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileUsername(t *testing.T) {
	path := filepath.Join(t.TempDir(), "username")
	src := FileUsername{Path: path}
	ctx := context.Background()

	_, ok, err := src.Username(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "missing file is no user")

	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0600))
	_, ok, err = src.Username(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "blank file is no user")

	require.NoError(t, os.WriteFile(path, []byte("bob\n"), 0600))
	name, ok, err := src.Username(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "bob", name)
}

// End to end through a real session and client against a challenging server.
func TestDispatcher_EndToEnd(t *testing.T) {
	var mu sync.Mutex
	rows := []json.RawMessage{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(remote.HeaderChallengeResponse) != "42" {
			w.Header().Set(remote.HeaderChallenge, "6 * 7")
			w.Header().Set(remote.HeaderChallengeToken, "tok")
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		switch r.URL.Path {
		case "/get-table":
			_ = json.NewEncoder(w).Encode(map[string]any{"table": rows})
		case "/insert-row":
			var raw json.RawMessage
			_ = json.NewDecoder(r.Body).Decode(&raw)
			rows = append(rows, raw)
			_, _ = w.Write([]byte(`{}`))
		case "/delete-row":
			rows = rows[:0]
			_, _ = w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client, err := remote.New(srv.URL, remote.Options{MaxChallenges: 4})
	require.NoError(t, err)
	mgr := session.New(session.Options{Remote: client, Usernames: StaticUsername("alice")})
	d := NewDispatcher(mgr, nil)
	ctx := context.Background()

	info := d.GetUserInfo(ctx, false)
	require.Nil(t, info.Error)
	assert.Empty(t, info.Records)

	rec := sampleRecord()
	rec.LastCompletionDate = record.NewDate(time.Now().Add(-time.Hour))
	require.Nil(t, d.ProblemCompleted(ctx, rec).Error)
	d.Wait()

	assert.True(t, d.CheckCompletedLastDay("two-sum").IsCompleted)

	info = d.GetUserInfo(ctx, true)
	require.Nil(t, info.Error)
	require.Len(t, info.Records, 1)
	assert.Equal(t, "two-sum", info.Records[0].ID)

	assert.True(t, d.DeleteRow(ctx, "two-sum").Success)
	assert.False(t, d.CheckCompletedLastDay("two-sum").IsCompleted)
}
