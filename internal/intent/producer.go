// Package intent turns a natural-language command into an executable
// specification. The engine only ever sees the validated data
// contract; any producer returning a value matching the schema will
// do.
package intent

import (
	"context"
	"strings"
	"time"

	"github.com/krishnaAiGen/voice-first-to-do/internal/spec"
)

// Exchange is one prior turn of the conversation. Only a bounded
// window is ever passed to the producer.
type Exchange struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// HistoryWindow bounds how many prior exchanges reach the producer.
const HistoryWindow = 10

type Producer interface {
	Produce(ctx context.Context, command string, history []Exchange) (spec.Specification, error)
}

// BoundHistory keeps only the most recent window of exchanges.
func BoundHistory(history []Exchange) []Exchange {
	if len(history) <= HistoryWindow {
		return history
	}
	return history[len(history)-HistoryWindow:]
}

// extractJSON strips markdown fences and surrounding chatter from a
// model response, leaving the outermost JSON object.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

func buildPrompt(command string, history []Exchange, now time.Time) string {
	var b strings.Builder
	b.WriteString(`You are a task management intent parser. Convert the user's command into a structured specification.

Current date/time: `)
	b.WriteString(now.Format(time.RFC3339))
	b.WriteString("\n\n")

	if len(history) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, ex := range history {
			b.WriteString(ex.Role)
			b.WriteString(": ")
			b.WriteString(ex.Text)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(`User command: "`)
	b.WriteString(command)
	b.WriteString(`"

Respond with JSON only (no markdown, no explanations):
{
  "complexity": "simple" | "multi_step" | "interactive",
  "strategy": "sequential" | "interactive",
  "steps": [
    {
      "order": 1,
      "operation": "create" | "read" | "update" | "delete" | "update_batch",
      "params": {"title": "string", "description": "string", "priority": 0-3, "category": "string", "scheduled_time": "ISO 8601 string or null"},
      "filters": [{"type": "is_overdue"}, {"type": "priority_min", "value": 2}, {"type": "keyword", "value": "client"}],
      "limit": integer or null,
      "save_result_as": "variable_name" or null,
      "use_result_from": "variable_name" or null,
      "selector": "first_N" | "last_N" | "by_index" | null,
      "index": integer or null,
      "modifications": {} or null
    }
  ],
  "natural_response": "User-friendly confirmation message"
}

Available filter types:
- is_overdue: tasks past scheduled_time and not completed
- is_today: tasks scheduled for today
- is_completed: completed tasks
- priority_min, priority_max, priority_equals: priority filtering (0-3)
- category: category filter (case-insensitive partial match)
- status: status filter (pending | in_progress | completed)
- keyword: full-text search across title, description, category
- scheduled_after, scheduled_before: date range for scheduled_time
- created_after, created_before: date range for created_at

Rules:
1. For single-operation commands use complexity="simple" with exactly one step.
2. For multi-operation commands use complexity="multi_step" with sequential steps.
3. Parse relative dates against the current date/time above.
4. Priority: "high"/"urgent" = 3, "medium" = 2, "low" = 1, unspecified = 0.
5. If the user says "4th task" or "task 5", use selector="by_index" with that index.
6. To act on a previous step's result, set save_result_as on the producing step and use_result_from on the consumer.
7. To change many tasks at once, read them with save_result_as, then use operation="update_batch" with use_result_from and modifications.
8. Always include natural_response.`)
	return b.String()
}
