package models

// SignalSource identifies an ingestion feed of the forecasting backend.
type SignalSource string

const (
	SourceAWSSpot        SignalSource = "aws_spot"
	SourceEIAElectricity SignalSource = "eia_electricity"
	SourceWeather        SignalSource = "weather"
	SourceGPUPricing     SignalSource = "gpu_pricing"
	SourceNews           SignalSource = "news"
)

// SignalSources lists every source in display order.
var SignalSources = []SignalSource{
	SourceAWSSpot,
	SourceEIAElectricity,
	SourceWeather,
	SourceGPUPricing,
	SourceNews,
}

// Signal is one observed input value. (Source, Name) is unique within a poll.
type Signal struct {
	Source    SignalSource `json:"source" validate:"required,oneof=aws_spot eia_electricity weather gpu_pricing news"`
	Name      string       `json:"name" validate:"required"`
	Value     float64      `json:"value"`
	Unit      string       `json:"unit"`
	Timestamp Timestamp    `json:"timestamp"`
	ChangePct *float64     `json:"change_pct"`
}

type SignalsLatestResponse struct {
	Timestamp Timestamp `json:"timestamp"`
	Signals   []Signal  `json:"signals" validate:"dive"`
}

type DataPoint struct {
	Timestamp Timestamp `json:"timestamp"`
	Value     float64   `json:"value"`
}

type SignalHistoryResponse struct {
	Source     SignalSource `json:"source" validate:"required,oneof=aws_spot eia_electricity weather gpu_pricing news"`
	Name       string       `json:"name" validate:"required"`
	DataPoints []DataPoint  `json:"data_points" validate:"dive"`
}

type SourceStatus struct {
	ID         string     `json:"id" validate:"required"`
	Name       string     `json:"name"`
	Status     string     `json:"status" validate:"oneof=active inactive error"`
	LastUpdate *Timestamp `json:"last_update"`
}

type SourcesResponse struct {
	Sources []SourceStatus `json:"sources" validate:"dive"`
}

// SignalHistoryRequest selects one signal's series.
type SignalHistoryRequest struct {
	Source string `query:"source" json:"source" validate:"required,oneof=aws_spot eia_electricity weather gpu_pricing news"`
	Name   string `query:"name" json:"name" validate:"required"`
	Hours  int    `query:"hours" json:"hours" default:"24" validate:"gte=1,lte=720"`
}
