// Package remote talks to the completion-table service.
//
// Every call goes through Client.Call, which answers the server's
// proof-of-work challenges transparently: a 401 carrying X-Challenge and
// X-Challenge-Token is solved and the identical request is reissued with
// X-Challenge-Token and X-Challenge-Response set. Any other failure is
// terminal and returned as a typed *errors.SyncError.
package remote

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/lcsync/internal/challenge"
	"github.com/hpungsan/lcsync/internal/errors"
)

// Protocol headers.
const (
	HeaderChallenge         = "X-Challenge"
	HeaderChallengeToken    = "X-Challenge-Token"
	HeaderChallengeResponse = "X-Challenge-Response"
	HeaderRequestID         = "X-Request-Id"
)

// maxDiagnosticBody caps how much of an error body is kept for diagnostics.
const maxDiagnosticBody = 64 << 10

// Request describes one logical remote call.
type Request struct {
	Method   string
	Endpoint string // relative to the base URL, e.g. "insert-row"
	Query    url.Values
	Body     any // JSON-encoded when non-nil
}

// Options configures a Client.
type Options struct {
	// HTTPClient defaults to a client with a 15s timeout.
	HTTPClient *http.Client

	// MaxChallenges bounds the challenges answered per call; 0 is unbounded.
	MaxChallenges int

	// ChallengeBudget bounds the time spent answering challenges per call; 0 is unbounded.
	ChallengeBudget time.Duration

	// Logger defaults to a discarding logger.
	Logger *slog.Logger
}

// Client executes remote calls and satisfies challenge/response authentication.
// It is safe for concurrent use; challenge headers are scoped to a single call.
type Client struct {
	base          *url.URL
	http          *http.Client
	maxChallenges int
	budget        time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

// New creates a Client for the service rooted at baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https, got %q", baseURL)
	}
	// Endpoints resolve beneath the base path, not beside it.
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		base:          base,
		http:          httpClient,
		maxChallenges: opts.MaxChallenges,
		budget:        opts.ChallengeBudget,
		logger:        logger,
		now:           time.Now,
	}, nil
}

// Call issues req, answering challenges until the server returns a final
// response. On 2xx the body must be JSON; it is decoded into out when out is
// non-nil.
func (c *Client) Call(ctx context.Context, req Request, out any) error {
	var payload []byte
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return errors.NewInternal(fmt.Errorf("encode request body: %w", err))
		}
		payload = data
	}

	target := c.base.ResolveReference(&url.URL{Path: req.Endpoint, RawQuery: req.Query.Encode()})
	requestID := newRequestID()
	log := c.logger.With("request_id", requestID, "method", req.Method, "endpoint", req.Endpoint)

	headers := make(http.Header)
	headers.Set("Content-Type", "application/json")
	headers.Set("Accept", "application/json")
	headers.Set(HeaderRequestID, requestID)

	start := c.now()
	challenges := 0
	for {
		status, respHeader, body, err := c.roundTrip(ctx, req.Method, target.String(), headers, payload)
		if err != nil {
			log.Warn("request failed", "error", err)
			return errors.NewTransport(err)
		}
		log.Debug("response", "status", status, "challenges", challenges)

		if status == http.StatusUnauthorized {
			chal := respHeader.Get(HeaderChallenge)
			token := respHeader.Get(HeaderChallengeToken)
			if chal == "" || token == "" {
				return errors.NewChallengeProtocol(status, string(body))
			}

			if c.maxChallenges > 0 && challenges >= c.maxChallenges {
				log.Warn("challenge attempts exhausted", "challenges", challenges)
				return errors.NewChallengeExhausted(challenges, fmt.Sprintf("max %d attempts", c.maxChallenges))
			}
			if c.budget > 0 && c.now().Sub(start) >= c.budget {
				log.Warn("challenge budget exhausted", "challenges", challenges, "budget", c.budget)
				return errors.NewChallengeExhausted(challenges, fmt.Sprintf("budget %s", c.budget))
			}

			challenges++
			solution := challenge.SolveString(chal)
			log.Debug("answering challenge", "challenge", chal, "solution", solution)
			headers.Set(HeaderChallengeToken, token)
			headers.Set(HeaderChallengeResponse, solution)
			continue
		}

		if status < 200 || status > 299 {
			return errors.NewRemote(status, string(body))
		}

		return decode(body, out)
	}
}

// roundTrip sends one HTTP request and reads the full response.
func (c *Client) roundTrip(ctx context.Context, method, target string, headers http.Header, payload []byte) (int, http.Header, []byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return 0, nil, nil, err
	}
	httpReq.Header = headers.Clone()

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	reader := io.Reader(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reader = io.LimitReader(resp.Body, maxDiagnosticBody)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, resp.Header, data, nil
}

// decode validates body as JSON and unmarshals it into out.
func decode(body []byte, out any) error {
	if !json.Valid(body) {
		return errors.NewDecode(fmt.Errorf("response is not valid JSON: %q", truncate(string(body), 200)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.NewDecode(err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// newRequestID generates a ULID used to correlate the attempts of one call.
func newRequestID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
