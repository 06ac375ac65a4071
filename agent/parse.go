package agent

import (
	"encoding/json"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/internal/util"
)

// stepKind tags the decoded shape of one reasoning-loop round.
type stepKind int

const (
	stepInvalid stepKind = iota
	stepAnswer           // terminal success
	stepAction           // tool call requested
	stepResult           // intermediate result, no tool call
)

// step is the tagged union a reasoning loop branches on. Model output is
// decoded explicitly into exactly one of Answer/Action/Result; anything else
// is a typed core.ParseError, never an ad hoc key check.
type step struct {
	kind    stepKind
	thought string
	answer  string
	result  string
	action  *ToolCall
}

// rawStep mirrors the JSON contract the loop prompts ask for.
type rawStep struct {
	Thought *string   `json:"thought"`
	Answer  *string   `json:"answer"`
	Action  *ToolCall `json:"action"`
	Result  *string   `json:"result"`
}

// parseStep decodes one round of structured model output. The "thought"
// field is mandatory; exactly one of answer/action/result selects the
// branch, with answer taking precedence over action over result.
func parseStep(raw string) (*step, error) {
	obj := util.ExtractJSONObject(raw)
	if obj == "" {
		return nil, &core.ParseError{Reason: "no JSON object in model output", Raw: raw}
	}

	var decoded rawStep
	if err := json.Unmarshal([]byte(obj), &decoded); err != nil {
		return nil, &core.ParseError{Reason: "malformed JSON: " + err.Error(), Raw: raw}
	}
	if decoded.Thought == nil || *decoded.Thought == "" {
		return nil, &core.ParseError{Reason: "missing required field \"thought\"", Raw: raw}
	}

	st := &step{thought: *decoded.Thought}
	switch {
	case decoded.Answer != nil:
		st.kind = stepAnswer
		st.answer = *decoded.Answer
	case decoded.Action != nil:
		st.kind = stepAction
		st.action = decoded.Action
	case decoded.Result != nil:
		st.kind = stepResult
		st.result = *decoded.Result
	default:
		return nil, &core.ParseError{Reason: "step carries none of answer, action or result", Raw: raw}
	}
	return st, nil
}

// parseToolCall decodes a bare tool suggestion {provider, tool, arguments}.
func parseToolCall(raw string) (*ToolCall, error) {
	obj := util.ExtractJSONObject(raw)
	if obj == "" {
		return nil, &core.ParseError{Reason: "no JSON object in model output", Raw: raw}
	}
	var call ToolCall
	if err := json.Unmarshal([]byte(obj), &call); err != nil {
		return nil, &core.ParseError{Reason: "malformed JSON: " + err.Error(), Raw: raw}
	}
	if call.Provider == "" || call.Tool == "" {
		return nil, &core.ParseError{Reason: "tool suggestion requires provider and tool fields", Raw: raw}
	}
	return &call, nil
}

// reflection mirrors the self-critique contract of the Reflection loop.
type reflection struct {
	Reflection string `json:"reflection"`
}

// parseReflection decodes the self-critique output. Malformed output is a
// non-fatal parse error for the caller to log and skip.
func parseReflection(raw string) (string, error) {
	obj := util.ExtractJSONObject(raw)
	if obj == "" {
		return "", &core.ParseError{Reason: "no JSON object in reflection output", Raw: raw}
	}
	var decoded reflection
	if err := json.Unmarshal([]byte(obj), &decoded); err != nil {
		return "", &core.ParseError{Reason: "malformed JSON: " + err.Error(), Raw: raw}
	}
	if decoded.Reflection == "" {
		return "", &core.ParseError{Reason: "missing required field \"reflection\"", Raw: raw}
	}
	return decoded.Reflection, nil
}

// planStep is one entry of the ordered plan produced by the planning phase.
type planStep struct {
	Step        int    `json:"step"`
	Description string `json:"description"`
	Goal        string `json:"goal"`
}

// parsePlan decodes the planning output into an ordered step list capped at
// maxSteps. An empty or malformed plan is the caller's fallback signal, not
// a hard failure.
func parsePlan(raw string, maxSteps int) ([]planStep, error) {
	arr := util.ExtractJSONArray(raw)
	if arr == "" {
		return nil, &core.ParseError{Reason: "no JSON array in plan output", Raw: raw}
	}
	var steps []planStep
	if err := json.Unmarshal([]byte(arr), &steps); err != nil {
		return nil, &core.ParseError{Reason: "malformed plan JSON: " + err.Error(), Raw: raw}
	}
	var valid []planStep
	for _, s := range steps {
		if s.Description == "" {
			continue
		}
		valid = append(valid, s)
		if maxSteps > 0 && len(valid) == maxSteps {
			break
		}
	}
	if len(valid) == 0 {
		return nil, &core.ParseError{Reason: "plan contains no usable steps", Raw: raw}
	}
	return valid, nil
}
