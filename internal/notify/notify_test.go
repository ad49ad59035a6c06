package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskscope/riskscope/internal/testutil"
	"github.com/riskscope/riskscope/pkg/batch"
	"github.com/riskscope/riskscope/pkg/config"
	"github.com/riskscope/riskscope/pkg/export"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}
}

func TestSignAndVerify(t *testing.T) {
	secret := []byte("s3cret")
	payload := []byte(`{"text":"hi"}`)

	sig := Sign(payload, secret)
	assert.True(t, len(sig) > len("sha256="))
	assert.NoError(t, verifySignature(payload, sig, secret))
	assert.Error(t, verifySignature([]byte(`{"text":"bye"}`), sig, secret))
	assert.Error(t, verifySignature(payload, "md5=abc", secret))
	assert.Error(t, verifySignature(payload, "sha256=zz", secret))
}

func TestPosterSignsAndPosts(t *testing.T) {
	var got []byte
	var sig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = io.ReadAll(r.Body)
		sig = r.Header.Get(SignatureHeader)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p, err := NewPoster(config.ExportConfig{WebhookURL: srv.URL, WebhookSecret: "k"})
	require.NoError(t, err)
	require.NoError(t, p.Post(context.Background(), map[string]string{"text": "hello"}))

	assert.JSONEq(t, `{"text":"hello"}`, string(got))
	assert.NoError(t, verifySignature(got, sig, []byte("k")))
}

func TestPosterRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p, err := NewPoster(config.ExportConfig{WebhookURL: srv.URL}, WithRetry(fastRetry(3)))
	require.NoError(t, err)
	require.NoError(t, p.Post(context.Background(), "x"))
	assert.Equal(t, int32(3), calls.Load())
}

func TestPosterDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	p, err := NewPoster(config.ExportConfig{WebhookURL: srv.URL}, WithRetry(fastRetry(3)))
	require.NoError(t, err)

	err = p.Post(context.Background(), "x")
	var se *StatusError
	require.True(t, errors.As(err, &se), "expected StatusError, got %v", err)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Contains(t, se.Body, "invalid_payload")
	assert.Equal(t, int32(1), calls.Load())
}

func TestPosterGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p, err := NewPoster(config.ExportConfig{WebhookURL: srv.URL}, WithRetry(fastRetry(2)))
	require.NoError(t, err)
	assert.Error(t, p.Post(context.Background(), "x"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestPosterTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	p, err := NewPoster(config.ExportConfig{WebhookURL: srv.URL, Timeout: 20 * time.Millisecond}, WithRetry(fastRetry(1)))
	require.NoError(t, err)

	start := time.Now()
	assert.Error(t, p.Post(context.Background(), "x"))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPosterRequiresURL(t *testing.T) {
	_, err := NewPoster(config.ExportConfig{})
	assert.Error(t, err)
}

func TestWebhookTargetThroughPipeline(t *testing.T) {
	var payload export.SlackPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}))
	defer srv.Close()

	target, err := NewWebhookTarget(config.ExportConfig{WebhookURL: srv.URL, WebhookPlatform: "slack"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "webhook:slack", target.Name())

	r := testutil.Report(t, "Moon Vault", 65, "Known rug deployer")
	pipeline := export.NewPipeline(nil)
	require.True(t, pipeline.Share(context.Background(), r, target))

	require.Len(t, payload.Attachments, 1)
	assert.Equal(t, "Risk report: Moon Vault", payload.Attachments[0].Title)
	assert.Equal(t, "#E01E5A", payload.Attachments[0].Color)
}

func TestWebhookTargetFailureIsIsolated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	target, err := NewWebhookTarget(config.ExportConfig{WebhookURL: srv.URL, WebhookPlatform: "teams"}, nil)
	require.NoError(t, err)

	var failed string
	pipeline := export.NewPipeline(nil)
	pipeline.OnFailure = func(name string, _ error) { failed = name }

	assert.False(t, pipeline.Share(context.Background(), testutil.Report(t, "Moon Vault", 10), target))
	assert.Equal(t, "webhook:teams", failed)
	assert.Error(t, pipeline.LastError())
}

func TestNewWebhookTarget(t *testing.T) {
	target, err := NewWebhookTarget(config.ExportConfig{}, nil)
	assert.NoError(t, err)
	assert.Nil(t, target)

	_, err = NewWebhookTarget(config.ExportConfig{WebhookURL: "http://x", WebhookPlatform: "discord"}, nil)
	assert.ErrorIs(t, err, export.ErrUnsupportedPlatform)
}

func TestWebhookTargetBatch(t *testing.T) {
	var payload export.TeamsPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}))
	defer srv.Close()

	target, err := NewWebhookTarget(config.ExportConfig{WebhookURL: srv.URL, WebhookPlatform: "teams"}, nil)
	require.NoError(t, err)
	require.NoError(t, target.DeliverBatch(context.Background(), batch.Summary{Total: 3, Passed: 3}))
	assert.Equal(t, "MessageCard", payload.Type)
	assert.Equal(t, "Batch screening: 3 projects", payload.Title)
}

type fakeWriter struct {
	mu     sync.Mutex
	topic  string
	msgs   []kafkago.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisher(t *testing.T) {
	writers := map[string]*fakeWriter{}
	p := NewKafkaPublisher([]string{"localhost:9092"}, "riskscope", nil)
	p.newWriter = func(topic string) messageWriter {
		w := &fakeWriter{topic: topic}
		writers[topic] = w
		return w
	}

	r := testutil.Report(t, "Moon Vault", 72, "Known rug deployer")
	completed, err := ReportCompleted(r)
	require.NoError(t, err)
	alert, err := WatchlistAlert(r, 60)
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), completed, alert))

	require.Contains(t, writers, "riskscope.report.completed")
	require.Contains(t, writers, "riskscope.watchlist.alert")

	msg := writers["riskscope.report.completed"].msgs[0]
	assert.Equal(t, "moon-vault", string(msg.Key))
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, EventReportCompleted, string(msg.Headers[0].Value))

	var env Event
	require.NoError(t, json.Unmarshal(msg.Value, &env))
	var body ReportCompletedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &body))
	assert.Equal(t, 72, body.RiskScore)
	assert.Equal(t, []string{"Known rug deployer"}, body.RedFlags)

	var alertBody WatchlistAlertPayload
	require.NoError(t, json.Unmarshal(writers["riskscope.watchlist.alert"].msgs[0].Value, &env))
	require.NoError(t, json.Unmarshal(env.Payload, &alertBody))
	assert.Equal(t, 60, alertBody.AlertAt)
	assert.Equal(t, "Known rug deployer", alertBody.TopRedFlag)

	// Writers are reused per topic.
	require.NoError(t, p.Publish(context.Background(), completed))
	assert.Len(t, writers["riskscope.report.completed"].msgs, 2)

	require.NoError(t, p.Close())
	assert.True(t, writers["riskscope.report.completed"].closed)
}

func TestBatchCompletedEvent(t *testing.T) {
	res, err := batch.Aggregate(nil, time.Second)
	require.NoError(t, err)
	evt, err := BatchCompleted("b-1", res, "packets/b-1.json", testutil.FixedTime)
	require.NoError(t, err)
	assert.Equal(t, EventBatchCompleted, evt.Type)
	assert.Equal(t, "b-1", evt.Key)
	assert.NotEmpty(t, evt.ID)

	var body BatchCompletedPayload
	require.NoError(t, json.Unmarshal(evt.Payload, &body))
	assert.Equal(t, "packets/b-1.json", body.PacketKey)
	assert.Equal(t, int64(1000), body.Summary.ProcessingTime)
}

func TestNewPublisher(t *testing.T) {
	assert.IsType(t, NopPublisher{}, NewPublisher(nil, "riskscope", nil))
	assert.IsType(t, &KafkaPublisher{}, NewPublisher([]string{"k:9092"}, "riskscope", nil))
	assert.Equal(t, "report.completed", NewKafkaPublisher(nil, "", nil).Topic(EventReportCompleted))
}
