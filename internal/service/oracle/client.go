package oracle

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"OracleDash/internal/domain/models"
	drepo "OracleDash/internal/domain/repository"
	httpx "OracleDash/pkg/http"

	"github.com/go-playground/validator/v10"
)

const (
	pathSignalsLatest     = "/signals/latest"
	pathSignalsHistory    = "/signals/history"
	pathSignalsSources    = "/signals/sources"
	pathPredictionsLatest = "/predictions/latest"
	pathPredictionsHist   = "/predictions/history"
	pathCausalGraph       = "/causal/graph"
	pathCausalFactors     = "/causal/factors"
	pathLearningMetrics   = "/learning/metrics"
	pathLearningLog       = "/learning/log"
	pathSchedulerWindows  = "/scheduler/windows"
	pathCycleRun          = "/cycle/run"
	pathHealth            = "/health"
)

var registerOnce sync.Once

// Client implements repository.OracleAPI over the backend's JSON HTTP API.
// Every decoded response is checked against its validate tags; a violation
// is reported as a decode FetchError.
type Client struct {
	baseURL string
	http    *httpx.Client
}

// New creates a backend client rooted at baseURL.
func New(baseURL string, timeout time.Duration, opts ...httpx.ClientOption) drepo.OracleAPI {
	registerOnce.Do(func() {
		httpx.RegisterStructValidation(priceWindowOrder, models.PriceWindow{})
	})
	opts = append([]httpx.ClientOption{httpx.WithTimeout(timeout)}, opts...)
	return &Client{baseURL: baseURL, http: httpx.NewClient(opts...)}
}

func priceWindowOrder(sl validator.StructLevel) {
	w := sl.Current().Interface().(models.PriceWindow)
	if !w.Start.IsZero() && !w.End.IsZero() && !w.Start.Before(w.End.Time) {
		sl.ReportError(w.End, "end", "End", "gtfield", "start")
	}
}

func (c *Client) LatestSignals(ctx context.Context) (*models.SignalsLatestResponse, error) {
	var out models.SignalsLatestResponse
	if err := c.get(ctx, pathSignalsLatest, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SignalHistory(ctx context.Context, req models.SignalHistoryRequest) (*models.SignalHistoryResponse, error) {
	q := map[string][]string{
		"source": {req.Source},
		"name":   {req.Name},
	}
	if req.Hours > 0 {
		q["hours"] = []string{strconv.Itoa(req.Hours)}
	}
	var out models.SignalHistoryResponse
	if err := c.get(ctx, pathSignalsHistory, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Sources(ctx context.Context) (*models.SourcesResponse, error) {
	var out models.SourcesResponse
	if err := c.get(ctx, pathSignalsSources, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) LatestPrediction(ctx context.Context) (*models.PredictionResponse, error) {
	var out models.PredictionResponse
	if err := c.get(ctx, pathPredictionsLatest, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PredictionHistory(ctx context.Context, limit int) (*models.PredictionHistoryResponse, error) {
	var out models.PredictionHistoryResponse
	if err := c.get(ctx, pathPredictionsHist, limitParam(limit), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CausalGraph(ctx context.Context) (*models.CausalGraphResponse, error) {
	var out models.CausalGraphResponse
	if err := c.get(ctx, pathCausalGraph, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Factors(ctx context.Context) (*models.FactorsResponse, error) {
	var out models.FactorsResponse
	if err := c.get(ctx, pathCausalFactors, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) LearningMetrics(ctx context.Context) (*models.LearningMetricsResponse, error) {
	var out models.LearningMetricsResponse
	if err := c.get(ctx, pathLearningMetrics, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) LearningLog(ctx context.Context, limit int) (*models.LearningLogResponse, error) {
	var out models.LearningLogResponse
	if err := c.get(ctx, pathLearningLog, limitParam(limit), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SchedulerWindows(ctx context.Context) (*models.SchedulerResponse, error) {
	var out models.SchedulerResponse
	if err := c.get(ctx, pathSchedulerWindows, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Health(ctx context.Context) (*models.HealthResponse, error) {
	var out models.HealthResponse
	if err := c.get(ctx, pathHealth, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RunCycle posts to /cycle/run. An empty request still sends "{}".
func (c *Client) RunCycle(ctx context.Context, req models.CycleRunRequest) (*models.CycleRunResponse, error) {
	var out models.CycleRunResponse
	opts := &httpx.RequestOptions{
		Method: httpx.MethodPost,
		URL:    c.baseURL + pathCycleRun,
		Body:   req,
	}
	if err := c.do(ctx, opts, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	return c.do(ctx, &httpx.RequestOptions{
		Method:      httpx.MethodGet,
		URL:         c.baseURL + path,
		QueryParams: query,
	}, dest)
}

func (c *Client) do(ctx context.Context, opts *httpx.RequestOptions, dest interface{}) error {
	if err := c.http.SendAndParse(ctx, opts, dest); err != nil {
		return err
	}
	if err := httpx.ValidateStruct(dest); err != nil {
		return &httpx.FetchError{
			Kind:   httpx.KindDecode,
			Method: opts.Method,
			URL:    opts.URL,
			Err:    fmt.Errorf("schema: %w", err),
		}
	}
	return nil
}

func limitParam(limit int) map[string][]string {
	if limit <= 0 {
		return nil
	}
	return map[string][]string{"limit": {strconv.Itoa(limit)}}
}
