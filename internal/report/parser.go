// Package report turns captured worker output into displayable task reports
// and structured dispatch decisions.
package report

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"mapleboard/internal/domain"
)

// MaxTags caps how many tags a single structured report may contribute.
const MaxTags = 5

// rawOutputLimit is the character budget for verbatim output fallback.
const rawOutputLimit = 4000

var fencedJSONPattern = regexp.MustCompile("(?s)```json\\s*(.*?)```")

// ExecResult is the captured outcome of one worker invocation.
type ExecResult struct {
	Success bool
	Code    *int
	Stdout  string
	Stderr  string
}

// Structured is the recognized shape of machine-readable worker output.
type Structured struct {
	Conclusion   string
	Changes      []string
	Verification []string
	Tags         []string
	StatusHint   domain.TaskStatus // "" when the output carried no hint
}

// Decision is what the dispatch loop applies back onto a task.
type Decision struct {
	Status domain.TaskStatus
	Tags   []string
	Report string
}

// ExtractJSONCandidate finds the JSON span inside free-form worker output.
// A fenced ```json block wins; otherwise the span between the first "{" and
// the last "}" is taken. ok is false when neither pattern is present, which
// callers must treat as "unstructured output", not as an error.
func ExtractJSONCandidate(text string) (string, bool) {
	if m := fencedJSONPattern.FindStringSubmatch(text); m != nil {
		candidate := strings.TrimSpace(m[1])
		if candidate != "" {
			return candidate, true
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// ParseStructured extracts the recognized fields from worker output. It
// returns nil when no JSON candidate exists, the candidate does not parse, or
// every recognized field is empty. A nil result means "fall back to raw
// text"; it is never an error.
func ParseStructured(text string) *Structured {
	candidate, ok := ExtractJSONCandidate(text)
	if !ok || !gjson.Valid(candidate) {
		return nil
	}

	parsed := gjson.Parse(candidate)
	if !parsed.IsObject() {
		return nil
	}

	out := &Structured{
		Conclusion:   strings.TrimSpace(parsed.Get("conclusion").String()),
		Changes:      stringList(parsed.Get("changes"), 0),
		Verification: stringList(parsed.Get("verification"), 0),
		StatusHint:   statusHint(parsed.Get("status").String()),
	}

	tags := stringList(parsed.Get("tags"), MaxTags)
	if len(tags) == 0 {
		tags = stringList(parsed.Get("tag"), MaxTags)
	}
	out.Tags = tags

	if out.Conclusion == "" && len(out.Changes) == 0 && len(out.Verification) == 0 &&
		len(out.Tags) == 0 && out.StatusHint == "" {
		return nil
	}
	return out
}

// Resolve folds an execution result into the single decision the controller
// applies: spawn success plus any structured hint determine the status, and
// the rendered conclusion becomes the task report. Derivable is false only
// when the call failed and nothing in the output was recognizable.
func Resolve(res ExecResult, taskTitle string) (Decision, bool) {
	structured := ParseStructured(res.Stdout + "\n" + res.Stderr)

	status := domain.StatusBlocked
	if res.Success {
		status = domain.StatusDone
	}
	var tags []string
	if structured != nil {
		if structured.StatusHint != "" {
			status = structured.StatusHint
		}
		tags = structured.Tags
	}

	decision := Decision{
		Status: status,
		Tags:   tags,
		Report: BuildConclusionReport(res, taskTitle),
	}

	derivable := res.Success || structured != nil ||
		strings.TrimSpace(res.Stdout+res.Stderr) != ""
	return decision, derivable
}

// BuildConclusionReport renders the archived report text for a finished
// invocation. It always returns non-empty text and never fails: structured
// output gets the fixed template, raw output is included verbatim up to the
// truncation budget, and silence yields a generic completion message.
func BuildConclusionReport(res ExecResult, taskTitle string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "任务: %s\n", strings.TrimSpace(taskTitle))
	fmt.Fprintf(&b, "执行状态: %s\n", statusLabel(res.Success))

	if structured := ParseStructured(res.Stdout + "\n" + res.Stderr); structured != nil {
		conclusion := structured.Conclusion
		if conclusion == "" {
			conclusion = "无"
		}
		fmt.Fprintf(&b, "结论: %s\n", conclusion)
		b.WriteString("变更:\n")
		writeList(&b, structured.Changes)
		b.WriteString("验证:\n")
		writeList(&b, structured.Verification)
		return b.String()
	}

	raw := strings.TrimSpace(strings.TrimSpace(res.Stdout) + "\n" + strings.TrimSpace(res.Stderr))
	if raw != "" {
		b.WriteString("输出:\n")
		b.WriteString(truncate(raw, rawOutputLimit))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString("任务已执行完成，但未捕获到可归档的输出。\n")
	return b.String()
}

func writeList(b *strings.Builder, items []string) {
	if len(items) == 0 {
		b.WriteString("- 无\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

func statusLabel(success bool) string {
	if success {
		return "成功"
	}
	return "失败"
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "\n……（输出过长，已截断）"
}

// stringList coerces a string-or-array field into trimmed non-empty strings.
func stringList(value gjson.Result, max int) []string {
	var out []string
	appendOne := func(raw string) {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return
		}
		if max > 0 && len(out) >= max {
			return
		}
		out = append(out, trimmed)
	}

	switch {
	case value.IsArray():
		for _, item := range value.Array() {
			appendOne(item.String())
		}
	case value.Type == gjson.String:
		appendOne(value.String())
	}
	return out
}

func statusHint(raw string) domain.TaskStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "done", "completed", "success", string(domain.StatusDone):
		return domain.StatusDone
	case "blocked", "failed", string(domain.StatusBlocked):
		return domain.StatusBlocked
	case "needs_info", "need_more_info", "needs-info", string(domain.StatusNeedsInfo):
		return domain.StatusNeedsInfo
	}
	return ""
}
