package workflow

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Session identifies the caller a run belongs to. The engine never
// interprets it; it is threaded through every node call so events and
// outputs can be labelled, and so one node tree can serve concurrent
// runs for different sessions.
type Session struct {
	SessionID string
	UserID    string
}

// ArtifactKind classifies a media artifact attached to a step.
type ArtifactKind string

const (
	ArtifactImage ArtifactKind = "image"
	ArtifactVideo ArtifactKind = "video"
	ArtifactAudio ArtifactKind = "audio"
)

// Artifact is a reference to a media object produced or consumed by a
// step. The engine only accumulates artifacts; it never dereferences
// them.
type Artifact struct {
	ID       string       `json:"id,omitempty"`
	Kind     ArtifactKind `json:"kind,omitempty"`
	URL      string       `json:"url,omitempty"`
	MimeType string       `json:"mime_type,omitempty"`
}

// StepInput carries the data a node executes against. Values are
// immutable by convention: the engine builds a fresh StepInput for each
// node instead of mutating the previous one, so a node may retain its
// input without aliasing surprises.
type StepInput struct {
	// Message is the original caller-supplied request content. It stays
	// constant through a run unless a node overrides chaining.
	Message any

	// PreviousStepContent is the content produced by the immediately
	// preceding node, used for default chaining.
	PreviousStepContent any

	// PreviousStepOutputs maps step name to that step's output, in
	// insertion order, accumulated as the run progresses.
	PreviousStepOutputs *StepOutputs

	// AdditionalData is a free-form side channel the engine never reads.
	AdditionalData map[string]any

	// Media accumulated so far. Only ever appended to.
	Images []Artifact
	Videos []Artifact
	Audio  []Artifact
}

// MessageString renders the message as a string. Structured values are
// rendered as indented JSON so prompts stay readable.
func (in *StepInput) MessageString() string {
	switch m := in.Message.(type) {
	case nil:
		return ""
	case string:
		return m
	default:
		if b, err := json.MarshalIndent(m, "", "  "); err == nil {
			return string(b)
		}
		return fmt.Sprintf("%v", m)
	}
}

// Output returns the recorded output of a named previous step.
func (in *StepInput) Output(stepName string) (StepOutput, bool) {
	if in.PreviousStepOutputs == nil {
		return StepOutput{}, false
	}
	return in.PreviousStepOutputs.Get(stepName)
}

// Content returns the content of a named previous step, or nil when the
// step has not run.
func (in *StepInput) Content(stepName string) any {
	out, ok := in.Output(stepName)
	if !ok {
		return nil
	}
	return out.Content
}

// LastContent returns the content of the most recently recorded step.
func (in *StepInput) LastContent() any {
	if in.PreviousStepOutputs == nil {
		return nil
	}
	last, ok := in.PreviousStepOutputs.Last()
	if !ok {
		return nil
	}
	return last.Content
}

// AllPreviousContent concatenates the content of every recorded step,
// each section headed by the step name.
func (in *StepInput) AllPreviousContent() string {
	if in.PreviousStepOutputs == nil {
		return ""
	}
	var parts []string
	in.PreviousStepOutputs.Range(func(name string, out StepOutput) bool {
		if out.Content != nil {
			parts = append(parts, fmt.Sprintf("=== %s ===\n%v", name, out.Content))
		}
		return true
	})
	return strings.Join(parts, "\n\n")
}

// clone returns a shallow copy with its own slices and output map, so
// chaining never mutates an input a node may still hold.
func (in *StepInput) clone() *StepInput {
	cp := &StepInput{
		Message:             in.Message,
		PreviousStepContent: in.PreviousStepContent,
		Images:              append([]Artifact(nil), in.Images...),
		Videos:              append([]Artifact(nil), in.Videos...),
		Audio:               append([]Artifact(nil), in.Audio...),
	}
	if in.AdditionalData != nil {
		cp.AdditionalData = make(map[string]any, len(in.AdditionalData))
		for k, v := range in.AdditionalData {
			cp.AdditionalData[k] = v
		}
	}
	if in.PreviousStepOutputs != nil {
		cp.PreviousStepOutputs = in.PreviousStepOutputs.clone()
	}
	return cp
}

// StepOutput is the result a node hands back to its parent.
type StepOutput struct {
	// StepName identifies the producing node; synthesized for anonymous
	// nodes.
	StepName string `json:"step_name,omitempty"`

	// ExecutorType and ExecutorName describe what produced the output
	// ("func", "runner", or a composite kind).
	ExecutorType string `json:"executor_type,omitempty"`
	ExecutorName string `json:"executor_name,omitempty"`

	// Content is the opaque payload produced by the node.
	Content any `json:"content,omitempty"`

	Images []Artifact `json:"images,omitempty"`
	Videos []Artifact `json:"videos,omitempty"`
	Audio  []Artifact `json:"audio,omitempty"`

	// Success is false when the node's work failed; Error then carries a
	// human-readable description. A soft failure never aborts the run by
	// itself.
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	// Stop requests that enclosing composites halt further execution of
	// subsequent siblings and iterations.
	Stop bool `json:"stop,omitempty"`
}

// NewStepOutput returns a successful output for the named step.
func NewStepOutput(stepName string, content any) StepOutput {
	return StepOutput{StepName: stepName, Content: content, Success: true}
}

// ErrorOutput returns a failed output carrying the error description.
func ErrorOutput(stepName string, err error) StepOutput {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return StepOutput{
		StepName: stepName,
		Content:  fmt.Sprintf("Step %s failed: %s", stepName, msg),
		Success:  false,
		Error:    msg,
	}
}

// StopOutput returns a successful output that also requests early
// termination of the enclosing composite chain.
func StopOutput(stepName string, content any) StepOutput {
	out := NewStepOutput(stepName, content)
	out.Stop = true
	return out
}

// ContentString renders the output content as a string. Structured
// values are rendered as indented JSON, matching MessageString.
func (o StepOutput) ContentString() string {
	switch c := o.Content.(type) {
	case nil:
		return ""
	case string:
		return c
	default:
		if b, err := json.MarshalIndent(c, "", "  "); err == nil {
			return string(b)
		}
		return fmt.Sprintf("%v", c)
	}
}

// Outputs is the uniform result shape of every node. Leaves produce a
// single element; fan-out composites produce several. Parents flatten
// nested lists when merging, so both shapes are handled the same way.
type Outputs []StepOutput

// Last returns the final output, which drives chaining.
func (o Outputs) Last() (StepOutput, bool) {
	if len(o) == 0 {
		return StepOutput{}, false
	}
	return o[len(o)-1], true
}

// HasStop reports whether any output requested early termination.
func (o Outputs) HasStop() bool {
	for _, out := range o {
		if out.Stop {
			return true
		}
	}
	return false
}

// HasFailure reports whether any output represents a soft failure.
func (o Outputs) HasFailure() bool {
	for _, out := range o {
		if !out.Success {
			return true
		}
	}
	return false
}

// StepOutputs is an insertion-ordered map from step name to output.
// Re-recording a name overwrites the value but keeps its original
// position, matching how loop iterations replace earlier entries.
type StepOutputs struct {
	names  []string
	byName map[string]StepOutput
}

// NewStepOutputs returns an empty ordered output map.
func NewStepOutputs() *StepOutputs {
	return &StepOutputs{byName: make(map[string]StepOutput)}
}

// Set records an output under the given step name.
func (s *StepOutputs) Set(name string, out StepOutput) {
	if _, exists := s.byName[name]; !exists {
		s.names = append(s.names, name)
	}
	s.byName[name] = out
}

// Get returns the output recorded under name.
func (s *StepOutputs) Get(name string) (StepOutput, bool) {
	out, ok := s.byName[name]
	return out, ok
}

// Last returns the most recently inserted output.
func (s *StepOutputs) Last() (StepOutput, bool) {
	if len(s.names) == 0 {
		return StepOutput{}, false
	}
	return s.byName[s.names[len(s.names)-1]], true
}

// Len returns the number of recorded steps.
func (s *StepOutputs) Len() int {
	return len(s.names)
}

// Names returns the step names in insertion order.
func (s *StepOutputs) Names() []string {
	return append([]string(nil), s.names...)
}

// Range calls fn for each entry in insertion order until fn returns
// false.
func (s *StepOutputs) Range(fn func(name string, out StepOutput) bool) {
	for _, name := range s.names {
		if !fn(name, s.byName[name]) {
			return
		}
	}
}

func (s *StepOutputs) clone() *StepOutputs {
	cp := &StepOutputs{
		names:  append([]string(nil), s.names...),
		byName: make(map[string]StepOutput, len(s.byName)),
	}
	for k, v := range s.byName {
		cp.byName[k] = v
	}
	return cp
}

// MarshalJSON serializes the map preserving insertion order.
func (s *StepOutputs) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, name := range s.names {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(s.byName[name])
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// UnmarshalJSON restores a map serialized by MarshalJSON. Ordering
// follows the document order of the JSON object.
func (s *StepOutputs) UnmarshalJSON(data []byte) error {
	raw := make(map[string]StepOutput)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	dec := json.NewDecoder(strings.NewReader(string(data)))
	if _, err := dec.Token(); err != nil { // opening brace
		return err
	}
	s.names = nil
	s.byName = make(map[string]StepOutput, len(raw))
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("workflow: unexpected token %v in step outputs", tok)
		}
		var out StepOutput
		if err := dec.Decode(&out); err != nil {
			return err
		}
		s.Set(name, out)
	}
	return nil
}
