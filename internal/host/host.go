package host

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/lcsync/internal/errors"
	"github.com/hpungsan/lcsync/internal/record"
	"github.com/hpungsan/lcsync/internal/session"
)

// CompletionWindow is the lookback of checkIfProblemCompletedInLastDay.
const CompletionWindow = 24 * time.Hour

// Action names a host request.
type Action string

const (
	ActionGetUserInfo           Action = "getUserInfo"
	ActionProblemCompleted      Action = "problemCompleted"
	ActionDeleteRow             Action = "deleteRow"
	ActionCheckCompletedLastDay Action = "checkIfProblemCompletedInLastDay"
)

// Message is one request from the host page.
type Message struct {
	Action        Action         `json:"action"`
	ShouldRefresh bool           `json:"shouldRefresh,omitempty"`
	Record        *record.Record `json:"record,omitempty"`
	ID            string         `json:"id,omitempty"`
}

// Error is the typed failure attached to a response. The data fields of
// the response keep their empty fallback values alongside it.
type Error struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
	Status  int              `json:"status"`
}

// Response is implemented by every action's response.
type Response interface {
	// Failure returns the attached error, nil on success.
	Failure() *Error
}

// UserInfoResponse answers getUserInfo.
type UserInfoResponse struct {
	Username string          `json:"username"`
	Records  []record.Record `json:"records"`
	Error    *Error          `json:"error,omitempty"`
}

// ProblemCompletedResponse answers problemCompleted. The insert itself runs
// in the background under JobID.
type ProblemCompletedResponse struct {
	JobID string `json:"jobId,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// DeleteRowResponse answers deleteRow.
type DeleteRowResponse struct {
	Success bool   `json:"success"`
	Error   *Error `json:"error,omitempty"`
}

// CheckResponse answers checkIfProblemCompletedInLastDay.
type CheckResponse struct {
	IsCompleted bool   `json:"isCompleted"`
	Error       *Error `json:"error,omitempty"`
}

func (r UserInfoResponse) Failure() *Error         { return r.Error }
func (r ProblemCompletedResponse) Failure() *Error { return r.Error }
func (r DeleteRowResponse) Failure() *Error        { return r.Error }
func (r CheckResponse) Failure() *Error            { return r.Error }

// Session is the part of session.Manager the dispatcher drives.
type Session interface {
	Ensure(ctx context.Context, refresh bool) (session.Info, error)
	RecordCompletion(ctx context.Context, rec record.Record) error
	RemoveCompletion(ctx context.Context, id string) error
	CompletedWithin(id string, window time.Duration) bool
}

// Dispatcher answers host requests against a Session.
type Dispatcher struct {
	session Session
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
	jobs   sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. A nil logger discards.
func NewDispatcher(s Session, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{session: s, logger: logger}
}

// Handle routes msg to its action and returns the action's response value.
func (d *Dispatcher) Handle(ctx context.Context, msg Message) (Response, error) {
	switch msg.Action {
	case ActionGetUserInfo:
		return d.GetUserInfo(ctx, msg.ShouldRefresh), nil
	case ActionProblemCompleted:
		if msg.Record == nil {
			return ProblemCompletedResponse{Error: toError(errors.NewInvalidRequest("record is required"))}, nil
		}
		return d.ProblemCompleted(ctx, *msg.Record), nil
	case ActionDeleteRow:
		return d.DeleteRow(ctx, msg.ID), nil
	case ActionCheckCompletedLastDay:
		return d.CheckCompletedLastDay(msg.ID), nil
	default:
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown action %q", msg.Action))
	}
}

// GetUserInfo materializes the session and returns its records.
func (d *Dispatcher) GetUserInfo(ctx context.Context, shouldRefresh bool) UserInfoResponse {
	info, err := d.session.Ensure(ctx, shouldRefresh)
	if err != nil {
		d.logger.Warn("getUserInfo failed", "error", err)
		return UserInfoResponse{Username: info.Username, Records: []record.Record{}, Error: toError(err)}
	}
	recs := info.Records
	if recs == nil {
		recs = []record.Record{}
	}
	return UserInfoResponse{Username: info.Username, Records: recs}
}

// ProblemCompleted validates rec and starts the insert in the background.
// The outcome is logged under the returned job id.
func (d *Dispatcher) ProblemCompleted(ctx context.Context, rec record.Record) ProblemCompletedResponse {
	if err := rec.Validate(); err != nil {
		return ProblemCompletedResponse{Error: toError(errors.NewInvalidRequest(err.Error()))}
	}

	jobID := ulid.Make().String()
	jobCtx := context.WithoutCancel(ctx)
	logger := d.logger.With("job", jobID, "id", rec.ID)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ProblemCompletedResponse{Error: toError(errors.NewInternal(fmt.Errorf("dispatcher is shut down")))}
	}
	d.jobs.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.jobs.Done()
		if err := d.session.RecordCompletion(jobCtx, rec); err != nil {
			logger.Error("problemCompleted failed", "error", err)
			return
		}
		logger.Info("problemCompleted done")
	}()

	return ProblemCompletedResponse{JobID: jobID}
}

// DeleteRow removes id. Success reflects the remote outcome.
func (d *Dispatcher) DeleteRow(ctx context.Context, id string) DeleteRowResponse {
	if err := d.session.RemoveCompletion(ctx, id); err != nil {
		d.logger.Warn("deleteRow failed", "id", id, "error", err)
		return DeleteRowResponse{Error: toError(err)}
	}
	return DeleteRowResponse{Success: true}
}

// CheckCompletedLastDay reports whether id was completed in the last 24h.
func (d *Dispatcher) CheckCompletedLastDay(id string) CheckResponse {
	if id == "" {
		return CheckResponse{Error: toError(errors.NewInvalidRequest("id is required"))}
	}
	return CheckResponse{IsCompleted: d.session.CompletedWithin(id, CompletionWindow)}
}

// Wait blocks until every background job started so far has finished.
// It must not race with ProblemCompleted; use Close at shutdown.
func (d *Dispatcher) Wait() {
	d.jobs.Wait()
}

// Close stops accepting background jobs and waits for the running ones.
// ProblemCompleted after Close fails with INTERNAL.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.jobs.Wait()
}

// toError converts err to its wire form. Non-SyncErrors map to INTERNAL.
func toError(err error) *Error {
	if err == nil {
		return nil
	}
	sErr, ok := errors.As(err)
	if !ok {
		sErr = errors.NewInternal(err)
	}
	return &Error{Code: sErr.Code, Message: sErr.Message, Status: sErr.Status}
}
