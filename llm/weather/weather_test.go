package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"routeqa/config"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const parisJSON = `{"name":"Paris","weather":[{"description":"clear sky"}],"main":{"temp":18,"feels_like":17,"humidity":40}}`

func TestClientFetch(t *testing.T) {
	var query map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = map[string]string{
			"q":     r.URL.Query().Get("q"),
			"appid": r.URL.Query().Get("appid"),
			"units": r.URL.Query().Get("units"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(parisJSON))
	}))
	defer srv.Close()

	c := NewClient(config.WeatherConfig{APIKey: "k", BaseURL: srv.URL})
	report, err := c.Fetch(context.Background(), "Paris")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"q": "Paris", "appid": "k", "units": "metric"}, query)
	assert.Equal(t, "Paris", report.City)
	assert.Equal(t, "clear sky", report.Description)
	require.NotNil(t, report.Temperature)
	assert.Equal(t, 18.0, *report.Temperature)
	assert.NotNil(t, report.Raw)
}

func TestClientFetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"cod":"404","message":"city not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(config.WeatherConfig{APIKey: "k", BaseURL: srv.URL}).Fetch(context.Background(), "Atlantis")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "city not found")

	_, err = NewClient(config.WeatherConfig{BaseURL: srv.URL}).Fetch(context.Background(), "Paris")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(config.WeatherConfig{APIKey: "k", BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	_, err := c.Fetch(context.Background(), "Paris")
	assert.Error(t, err)
}

func TestNormalizeMissingFields(t *testing.T) {
	r := Normalize(map[string]any{"name": "Nowhere"})
	assert.Equal(t, "Nowhere", r.City)
	assert.Empty(t, r.Description)
	assert.Nil(t, r.Temperature)
	assert.Nil(t, r.FeelsLike)
	assert.Nil(t, r.Humidity)
}

func TestReportFormat(t *testing.T) {
	temp, feels, hum := 18.0, 17.5, 40.0
	r := Report{City: "Paris", Description: "clear sky", Temperature: &temp, FeelsLike: &feels, Humidity: &hum}
	assert.Equal(t, "Weather in Paris: clear sky. Temperature: 18°C (feels like 17.5°C). Humidity: 40%.", r.Format("metric"))
	assert.Contains(t, r.Format("imperial"), "18°F")
}

func TestReportFormatMissingValues(t *testing.T) {
	r := Report{City: "Oslo", Description: "fog"}
	assert.Equal(t, "Weather in Oslo: fog. Temperature: n/a. Humidity: n/a.", r.Format("metric"))
	assert.NotContains(t, r.Format("standard"), "n/aK")
}

type stubFetcher struct {
	report *Report
	err    error
	calls  int
}

func (s *stubFetcher) Fetch(context.Context, string) (*Report, error) {
	s.calls++
	return s.report, s.err
}

func parisReport() *Report {
	temp, feels, hum := 18.0, 17.0, 40.0
	return &Report{City: "Paris", Description: "clear sky", Temperature: &temp, FeelsLike: &feels, Humidity: &hum}
}

func TestHandle(t *testing.T) {
	f := &stubFetcher{report: parisReport()}
	res, err := NewHandler(f).Handle(context.Background(), "Paris")
	require.NoError(t, err)
	assert.Equal(t, "Weather in Paris: clear sky. Temperature: 18°C (feels like 17°C). Humidity: 40%.", res.Answer)
	assert.Equal(t, "Paris", res.Report.City)
}

func TestHandleWithoutLocationMakesNoCall(t *testing.T) {
	f := &stubFetcher{report: parisReport()}
	_, err := NewHandler(f).Handle(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrNoLocation)
	assert.Equal(t, "No location found in the question. Please specify a city/state.", Message(err))
	assert.Zero(t, f.calls)
}

func TestHandleFetchFailure(t *testing.T) {
	f := &stubFetcher{err: errors.New("boom")}
	_, err := NewHandler(f).Handle(context.Background(), "Paris")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
	assert.Equal(t, "weather fetch failed: boom", err.Error())
	assert.Equal(t, "Weather fetch failed: boom", Message(err))
}

type summaryModel struct {
	reply string
	err   error
	input []*schema.Message
}

func (m *summaryModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.input = input
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *summaryModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func TestHandleSummarizes(t *testing.T) {
	m := &summaryModel{reply: "It is a clear 18 degrees in Paris."}
	res, err := NewHandler(&stubFetcher{report: parisReport()}, WithSummarizer(m)).Handle(context.Background(), "Paris")
	require.NoError(t, err)
	assert.Equal(t, "It is a clear 18 degrees in Paris.", res.Answer)

	require.Len(t, m.input, 1)
	assert.Contains(t, m.input[0].Content, "Summarize the following weather info")
	assert.Contains(t, m.input[0].Content, `"city":"Paris"`)
}

func TestHandleSummaryFailureKeepsReport(t *testing.T) {
	m := &summaryModel{err: errors.New("quota")}
	res, err := NewHandler(&stubFetcher{report: parisReport()}, WithSummarizer(m)).Handle(context.Background(), "Paris")
	require.NoError(t, err)
	assert.Contains(t, res.Answer, "clear sky")
}
