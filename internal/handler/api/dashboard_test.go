package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"OracleDash/internal/service/oracle"
	"OracleDash/internal/service/ratelimit"
	"OracleDash/internal/usecase"
	xhttp "OracleDash/pkg/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ts = `"2025-11-01T10:00:00"`

var backendRoutes = map[string]string{
	"GET /signals/latest": `{"timestamp":` + ts + `,"signals":[{"source":"aws_spot","name":"p3.2xlarge","value":0.9,"unit":"$/hr","timestamp":` + ts + `,"change_pct":null}]}`,
	"GET /signals/sources": `{"sources":[{"id":"aws_spot","name":"AWS Spot","status":"active","last_update":null}]}`,
	"GET /signals/history": `{"source":"weather","name":"temp","data_points":[{"timestamp":` + ts + `,"value":12.5}]}`,
	"GET /predictions/latest": `{"prediction_id":"pred_4","cycle":4,"timestamp":` + ts + `,"target":"gpu_price","current_price":0.9,
		"predictions":[{"horizon":"1h","predicted_price":0.92,"direction":"up","confidence":0.7}],
		"causal_explanation":"spot prices rising","contributing_factors":[]}`,
	"GET /predictions/history": `{"predictions":[]}`,
	"GET /causal/graph": `{"nodes":[{"id":"s1","label":"Spot","type":"signal","source":"aws_spot"},{"id":"t1","label":"Price","type":"target","source":"model"}],
		"edges":[{"from":"s1","to":"t1","weight":0.9,"confidence":0.8,"direction":"positive","last_updated":` + ts + `}],
		"metadata":{"total_nodes":2,"total_edges":1,"last_updated":` + ts + `,"version":4}}`,
	"GET /causal/factors":    `{"factors":[]}`,
	"GET /learning/metrics":  `{"total_cycles":1,"overall_mae":0.2,"directional_accuracy":0.5,"mae_history":[0.2],"directional_accuracy_history":[0.5],"graph_versions":1,"last_improvement":null}`,
	"GET /learning/log":      `{"events":[]}`,
	"GET /scheduler/windows": `{"current_price":0.9,"windows":[],"recommendation":"run now","cumulative_savings":{"total_usd":12.5,"vs_naive_pct":8,"workloads_optimized":3}}`,
	"GET /health":            `{"status":"ok","redis":"connected"}`,
	"POST /cycle/run":        `{"cycle":5,"prediction_id":"pred_5","timestamp":` + ts + `,"signal_count":12,"predicted_price_1h":0.93}`,
}

type backend struct {
	mu        sync.Mutex
	cycleBody []string
}

func (b *backend) bodies() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.cycleBody...)
}

func newBackend(t *testing.T) (*httptest.Server, *backend) {
	t.Helper()
	b := &backend{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := backendRoutes[r.Method+" "+r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodPost {
			raw, _ := io.ReadAll(r.Body)
			b.mu.Lock()
			b.cycleBody = append(b.cycleBody, string(raw))
			b.mu.Unlock()
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, b
}

func newTestApp(t *testing.T, limiter *ratelimit.Limiter) (*echo.Echo, *usecase.Dashboard, *backend) {
	t.Helper()
	srv, b := newBackend(t)
	set := usecase.DefaultSettings()
	set.Signals, set.Predictions, set.Causal = time.Hour, time.Hour, time.Hour
	set.Learning, set.Scheduler, set.Sources = time.Hour, time.Hour, time.Hour
	dash := usecase.NewDashboard(oracle.New(srv.URL, 2*time.Second), nil, nil, nil, set)
	h := NewDashboardHandler(nil, dash, limiter, NewStream(nil, dash))
	return xhttp.NewServer(h).Echo(), dash, b
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func do(t *testing.T, e *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestPanelLifecycleOverHTTP(t *testing.T) {
	e, _, _ := newTestApp(t, nil)

	rec, env := do(t, e, http.MethodGet, "/api/panels/graph", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var p usecase.Panel
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, usecase.StatusLoading, p.Status)

	rec, env = do(t, e, http.MethodPost, "/api/revalidate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sum usecase.RefreshSummary
	require.NoError(t, json.Unmarshal(env.Data, &sum))
	assert.True(t, sum.OK, "failed: %v", sum.Failed)

	_, env = do(t, e, http.MethodGet, "/api/panels/graph", "")
	var graph struct {
		Status usecase.Status `json:"status"`
		Data   struct {
			Header string `json:"header"`
			Edges  []struct {
				Label string `json:"label"`
			} `json:"edges"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &graph))
	assert.Equal(t, usecase.StatusReady, graph.Status)
	assert.Equal(t, "v4 | 2 nodes, 1 edges", graph.Data.Header)
	require.Len(t, graph.Data.Edges, 1)
	assert.Equal(t, "0.90", graph.Data.Edges[0].Label)

	rec, env = do(t, e, http.MethodGet, "/api/panels", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []usecase.Panel
	require.NoError(t, json.Unmarshal(env.Data, &all))
	require.Len(t, all, len(usecase.PanelNames))
	for _, p := range all {
		assert.Equal(t, usecase.StatusReady, p.Status, p.Name)
	}
}

func TestUnknownPanelIs404(t *testing.T) {
	e, _, _ := newTestApp(t, nil)
	rec, _ := do(t, e, http.MethodGet, "/api/panels/weather", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSignalHistoryValidation(t *testing.T) {
	e, _, _ := newTestApp(t, nil)

	rec, env := do(t, e, http.MethodGet, "/api/signals/history?source=weather&name=temp", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var p struct {
		Status usecase.Status            `json:"status"`
		Data   usecase.SignalHistoryView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, usecase.StatusReady, p.Status)
	assert.Equal(t, 24, p.Data.Hours, "hours defaults to 24")
	require.Len(t, p.Data.Points, 1)
	assert.Equal(t, 12.5, p.Data.Points[0].Value)

	rec, _ = do(t, e, http.MethodGet, "/api/signals/history?source=weather", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, e, http.MethodGet, "/api/signals/history?source=tides&name=x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, e, http.MethodGet, "/api/signals/history?source=weather&name=temp&hours=1000", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunCycleFillsPredictionAndIsRateLimited(t *testing.T) {
	e, _, b := newTestApp(t, ratelimit.New(1, 0))
	do(t, e, http.MethodPost, "/api/revalidate", "")

	rec, env := do(t, e, http.MethodPost, "/api/cycle/run", `{"actual_price":0.95}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out usecase.CycleOutcome
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, 5, out.Result.Cycle)
	assert.True(t, out.Refresh.OK)

	bodies := b.bodies()
	require.Len(t, bodies, 1)
	assert.JSONEq(t, `{"previous_prediction_id":"pred_4","actual_price":0.95}`, bodies[0])

	rec, _ = do(t, e, http.MethodPost, "/api/cycle/run", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Len(t, b.bodies(), 1)
}

func TestRunCycleRejectsNegativePrice(t *testing.T) {
	e, _, b := newTestApp(t, nil)
	rec, _ := do(t, e, http.MethodPost, "/api/cycle/run", `{"actual_price":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, b.bodies())
}

func TestHealthz(t *testing.T) {
	e, _, _ := newTestApp(t, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var hs HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hs))
	assert.Equal(t, "ok", hs.Status)
	assert.Equal(t, "connected", hs.Backend.Redis)
	assert.Equal(t, usecase.StatusLoading, hs.Panels[usecase.PanelSignals])
}

func TestStreamSendsSnapshotThenChanges(t *testing.T) {
	e, dash, _ := newTestApp(t, nil)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first StreamMessage
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "snapshot", first.Type)
	assert.Len(t, first.Panels, len(usecase.PanelNames))

	dash.Start(context.Background())
	t.Cleanup(dash.Stop)

	for {
		var msg StreamMessage
		require.NoError(t, conn.ReadJSON(&msg))
		require.Equal(t, "panel", msg.Type)
		require.NotNil(t, msg.Panel)
		if msg.Panel.Name == usecase.PanelPrediction && msg.Panel.Status == usecase.StatusReady {
			break
		}
	}
}
