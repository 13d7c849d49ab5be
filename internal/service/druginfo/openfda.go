package druginfo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jwalitptl/medtracker-api/internal/model"
	"github.com/jwalitptl/medtracker-api/pkg/circuitbreaker"
	apperrors "github.com/jwalitptl/medtracker-api/pkg/errors"
	"github.com/jwalitptl/medtracker-api/pkg/httpclient"
	"github.com/jwalitptl/medtracker-api/pkg/metrics"
)

const (
	DefaultBaseURL = "https://api.fda.gov/drug/label.json"

	unknownManufacturer = "Unknown"
	noWarnings          = "No warnings available"
	noPurpose           = "Not specified"
)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// Breaker settings
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// OpenFDAClient queries the openFDA drug label endpoint.
type OpenFDAClient struct {
	http    *httpclient.Client
	cb      *circuitbreaker.CircuitBreaker
	config  Config
	metrics *metrics.Metrics
}

func NewOpenFDAClient(config Config, m *metrics.Metrics) *OpenFDAClient {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.OpenTimeout <= 0 {
		config.OpenTimeout = 30 * time.Second
	}

	return &OpenFDAClient{
		http: httpclient.New(config.Timeout),
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:             "openfda",
			MaxRequests:      1,
			Timeout:          config.OpenTimeout,
			FailureThreshold: config.FailureThreshold,
			// A drug the label service does not know is an answer, not an outage.
			IsSuccessful: func(err error) bool {
				return err == nil || httpclient.StatusCode(err) == http.StatusNotFound
			},
		}),
		config:  config,
		metrics: m,
	}
}

type labelResponse struct {
	Results []labelResult `json:"results"`
}

type labelResult struct {
	OpenFDA struct {
		ManufacturerName []string `json:"manufacturer_name"`
	} `json:"openfda"`
	Warnings []string `json:"warnings"`
	Purpose  []string `json:"purpose"`
}

func (c *OpenFDAClient) GetDrugInfo(ctx context.Context, name string) (*model.DrugInfo, error) {
	name, err := normalize(name)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("search", fmt.Sprintf("openfda.generic_name:%q", name))
	q.Set("limit", "1")
	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}

	var body labelResponse
	start := time.Now()
	err = c.cb.Execute(func() error {
		return c.http.GetJSON(ctx, c.config.BaseURL+"?"+q.Encode(), nil, &body)
	})
	if c.metrics != nil {
		c.metrics.DrugInfoLatency.Observe(time.Since(start).Seconds())
	}

	switch {
	case err == nil:
	case circuitbreaker.IsOpen(err):
		return nil, apperrors.Upstream("drug information service is unavailable", err)
	case httpclient.StatusCode(err) == http.StatusNotFound:
		return nil, apperrors.Upstream(fmt.Sprintf("No results found for %s", name), err)
	case httpclient.StatusCode(err) != 0:
		return nil, apperrors.Upstream(fmt.Sprintf("OpenFDA request failed with status %d", httpclient.StatusCode(err)), err)
	default:
		return nil, apperrors.Upstream("OpenFDA request failed", err)
	}

	if len(body.Results) == 0 {
		return nil, apperrors.Upstream(fmt.Sprintf("No results found for %s", name), nil)
	}
	return toDrugInfo(name, body.Results[0]), nil
}

func toDrugInfo(name string, r labelResult) *model.DrugInfo {
	info := &model.DrugInfo{
		Name:         name,
		Manufacturer: unknownManufacturer,
		Warnings:     r.Warnings,
		Purpose:      r.Purpose,
	}
	if len(r.OpenFDA.ManufacturerName) > 0 && r.OpenFDA.ManufacturerName[0] != "" {
		info.Manufacturer = r.OpenFDA.ManufacturerName[0]
	}
	if len(info.Warnings) == 0 {
		info.Warnings = []string{noWarnings}
	}
	if len(info.Purpose) == 0 {
		info.Purpose = []string{noPurpose}
	}
	return info
}
