// Package analysis turns raw model output into the internal analysis shape.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
)

// Analyzer is the capability that produces a raw incident analysis.
// Implementations make no schema guarantees beyond best effort; the
// normalizer treats any missing required field as total failure.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*RawAnalysis, error)
}

// Request holds the incident fields sent to the analyzer.
type Request struct {
	Title       string
	Severity    string
	Description string
}

// RawAnalysis is the best-effort decoded model response.
type RawAnalysis struct {
	Summary               string         `json:"summary"`
	RootCauses            RootCauseList  `json:"root_causes"`
	CustomerMessage       string         `json:"customer_message"`
	ActionItems           ActionItemList `json:"action_items"`
	SuggestedSeverity     string         `json:"suggested_severity"`
	SeverityJustification string         `json:"severity_justification"`
	SimilarPatterns       []string       `json:"similar_patterns"`
	PreventiveMeasures    []string       `json:"preventive_measures"`
	TokensUsed            int            `json:"tokens_used"`
}

// UnmarshalJSON decodes a raw analysis, additionally accepting camelCase
// keys. Models occasionally ignore the requested snake_case naming.
func (r *RawAnalysis) UnmarshalJSON(data []byte) error {
	type rawAlias RawAnalysis
	var a rawAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = RawAnalysis(a)

	var alt struct {
		RootCauses        RootCauseList  `json:"rootCauses"`
		CustomerMessage   string         `json:"customerMessage"`
		ActionItems       ActionItemList `json:"actionItems"`
		SuggestedSeverity string         `json:"suggestedSeverity"`
	}
	if err := json.Unmarshal(data, &alt); err == nil {
		if len(r.RootCauses) == 0 {
			r.RootCauses = alt.RootCauses
		}
		if r.CustomerMessage == "" {
			r.CustomerMessage = alt.CustomerMessage
		}
		if len(r.ActionItems) == 0 {
			r.ActionItems = alt.ActionItems
		}
		if r.SuggestedSeverity == "" {
			r.SuggestedSeverity = alt.SuggestedSeverity
		}
	}
	return nil
}

// RootCause is one root-cause entry from the model: either a bare string
// (Text set, all other fields empty) or a structured object.
type RootCause struct {
	Text       string
	Cause      string   `json:"cause"`
	Likelihood string   `json:"likelihood"`
	Reasoning  string   `json:"reasoning"`
	Components []string `json:"components"`
}

// UnmarshalJSON accepts either a JSON string or a structured object.
func (c *RootCause) UnmarshalJSON(data []byte) error {
	if isJSONString(data) {
		return json.Unmarshal(data, &c.Text)
	}
	type causeAlias RootCause
	var a causeAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*c = RootCause(a)
	return nil
}

// RootCauseList accepts a sequence, a single object, or a single string,
// always decoding to a slice.
type RootCauseList []RootCause

// UnmarshalJSON wraps a lone element into a one-element list.
func (l *RootCauseList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*l = nil
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []RootCause
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var one RootCause
	if err := json.Unmarshal(trimmed, &one); err != nil {
		return err
	}
	*l = RootCauseList{one}
	return nil
}

// ActionItem is one action-item entry from the model: either a bare string
// or a structured object.
type ActionItem struct {
	Text     string
	Priority string `json:"priority"`
	Action   string `json:"action"`
	Owner    string `json:"owner"`
	Command  string `json:"command"`
}

// UnmarshalJSON accepts either a JSON string or a structured object.
func (i *ActionItem) UnmarshalJSON(data []byte) error {
	if isJSONString(data) {
		return json.Unmarshal(data, &i.Text)
	}
	type itemAlias ActionItem
	var a itemAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*i = ActionItem(a)
	return nil
}

// ActionItemList accepts a sequence, a single object, or a single string.
type ActionItemList []ActionItem

// UnmarshalJSON wraps a lone element into a one-element list.
func (l *ActionItemList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*l = nil
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []ActionItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var one ActionItem
	if err := json.Unmarshal(trimmed, &one); err != nil {
		return err
	}
	*l = ActionItemList{one}
	return nil
}

func isJSONString(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '"'
}
