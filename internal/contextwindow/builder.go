package contextwindow

// Role is the author of a prompt message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PromptMessage is one entry of the prompt sent to the backend.
type PromptMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Input carries everything Build needs. History is chronological and, in
// history mode, already contains the incoming user turn.
type Input struct {
	SystemPrompt   string
	History        []PromptMessage
	Incoming       string
	MaxTokens      int
	HistoryEnabled bool
}

// Builder assembles prompt windows.
type Builder struct {
	Estimator CostEstimator
}

// NewBuilder returns a Builder using est, or ApproxEstimator when est is nil.
func NewBuilder(est CostEstimator) Builder {
	if est == nil {
		est = ApproxEstimator{}
	}
	return Builder{Estimator: est}
}

// Build returns the prompt for in.
//
// With history disabled the result is the system message (if any) followed
// by the incoming message; no history is consulted. With history enabled the
// system message cost is reserved first, then history is walked newest to
// oldest until the next message would overflow MaxTokens.
func (b Builder) Build(in Input) []PromptMessage {
	est := b.Estimator
	if est == nil {
		est = ApproxEstimator{}
	}

	var out []PromptMessage
	if in.SystemPrompt != "" {
		out = append(out, PromptMessage{Role: RoleSystem, Content: in.SystemPrompt})
	}
	if !in.HistoryEnabled {
		return append(out, PromptMessage{Role: RoleUser, Content: in.Incoming})
	}

	total := 0
	for _, m := range out {
		total += est.Estimate(m.Content)
	}
	start := len(in.History)
	for i := len(in.History) - 1; i >= 0; i-- {
		cost := est.Estimate(in.History[i].Content)
		if total+cost > in.MaxTokens {
			break
		}
		total += cost
		start = i
	}
	// history[start:] is already chronological, so no reversal is needed.
	return append(out, in.History[start:]...)
}
