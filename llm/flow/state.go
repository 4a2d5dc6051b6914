package flow

import (
	"errors"
	"strings"

	"routeqa/llm"
	"routeqa/llm/rag"
	"routeqa/llm/weather"
)

// ErrQuestionRequired is reported for an empty question.
var ErrQuestionRequired = errors.New("question is required")

// errNoAnswer marks a handler that succeeded with blank text.
var errNoAnswer = errors.New("no answer was produced")

// Request is the graph input.
type Request struct {
	Question    string
	DocumentRef string
	TopK        int
}

// ClassifyResult is the output of the classify stage.
type ClassifyResult struct {
	Request        *Request
	Classification llm.Classification
	Err            error
}

// WeatherResult is the output of the weather stage.
type WeatherResult struct {
	Result *weather.Result
	Err    error
}

// RagResult is the output of the rag stage.
type RagResult struct {
	Result *rag.Result
	Err    error
}

// FlowOutcome is the terminal graph state. Exactly one of Answer and Error
// is non-empty.
type FlowOutcome struct {
	Mode     llm.Intent
	Location string
	Weather  *WeatherResult
	Rag      *RagResult
	Answer   string
	Error    string
}

// settle fills Answer or Error, never both.
func (o *FlowOutcome) settle(answer string, err error) *FlowOutcome {
	if err == nil && strings.TrimSpace(answer) == "" {
		err = errNoAnswer
	}
	if err != nil {
		return o.fail(err.Error())
	}
	o.Answer, o.Error = answer, ""
	return o
}

// fail records msg as the user-facing error.
func (o *FlowOutcome) fail(msg string) *FlowOutcome {
	if strings.TrimSpace(msg) == "" {
		msg = errNoAnswer.Error()
	}
	o.Answer, o.Error = "", msg
	return o
}

// Result is what Run hands back to callers.
type Result struct {
	Answer     string          `json:"answer,omitempty"`
	Sources    []llm.SearchHit `json:"sources,omitempty"`
	Error      string          `json:"error,omitempty"`
	Mode       llm.Intent      `json:"mode,omitempty"`
	Location   string          `json:"location,omitempty"`
	Weather    *weather.Report `json:"weather,omitempty"`
	Evaluation *rag.Evaluation `json:"evaluation,omitempty"`
}

// OK reports whether the run produced an answer.
func (r Result) OK() bool {
	return r.Error == ""
}

func (o *FlowOutcome) result() Result {
	res := Result{
		Answer:   o.Answer,
		Error:    o.Error,
		Mode:     o.Mode,
		Location: o.Location,
	}
	if o.Weather != nil && o.Weather.Result != nil {
		res.Weather = o.Weather.Result.Report
	}
	if o.Rag != nil && o.Rag.Result != nil {
		res.Sources = o.Rag.Result.Sources
		eval := o.Rag.Result.Evaluation
		res.Evaluation = &eval
	}
	return res
}
