// Package contextwindow turns persisted chat history into a bounded prompt.
//
// The window is always the system prompt (when set) followed by a contiguous,
// chronological suffix of the history whose estimated cost fits the budget.
// A message that does not fit ends the walk; messages are never truncated or
// skipped over. Cost estimation sits behind CostEstimator so a real tokenizer
// can replace the default character heuristic without touching the algorithm.
package contextwindow
