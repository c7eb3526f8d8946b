package curriculum

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/artem13815/curricula/pkg/llm"
	"github.com/artem13815/curricula/pkg/logger"
)

const (
	minJobTextLen  = 20
	maxJobTextLen  = 12000
	defaultRetries = 1
)

// Analyzer extracts a prioritized topic hierarchy from raw job-posting text
// with a single structured LLM call and post-hoc contract validation.
type Analyzer struct {
	llm         llm.ChatModel
	log         *logger.Logger
	maxImplicit int
	retries     int // contract retries after the first attempt
	backoffBase time.Duration
}

func NewAnalyzer(model llm.ChatModel, log *logger.Logger, maxImplicit, retries int) *Analyzer {
	if maxImplicit <= 0 {
		maxImplicit = 5
	}
	if retries < 0 {
		retries = defaultRetries
	}
	return &Analyzer{
		llm:         model,
		log:         log.With("component", "analyzer"),
		maxImplicit: maxImplicit,
		retries:     retries,
		backoffBase: 500 * time.Millisecond,
	}
}

// Analyze turns job text into a validated TopicHierarchy. It never returns an
// empty hierarchy without an error: a failed analysis must be distinguishable
// from a job that genuinely produced no topics.
func (a *Analyzer) Analyze(ctx context.Context, jobText string) (TopicHierarchy, error) {
	text := strings.TrimSpace(jobText)
	if len(text) < minJobTextLen {
		return TopicHierarchy{}, fmt.Errorf("%w: got %d characters", ErrInsufficientInput, len(text))
	}
	if len(text) > maxJobTextLen {
		text = text[:maxJobTextLen]
	}

	user := a.buildPrompt(text)
	var lastErr error
	for attempt := 0; attempt <= a.retries; attempt++ {
		if attempt > 0 {
			// Stricter reminder on the retry; the first reply violated the contract.
			user += "\n\nREMINDER: your previous reply violated the schema. Return ONE JSON object, every topic with non-empty name, tier and priority from the allowed values, and a justification for every IMPLICIT topic. No markdown, no prose."
		}
		raw, err := a.ask(ctx, analyzerSystemPrompt, user)
		if err != nil {
			return TopicHierarchy{}, err
		}
		h, err := a.parseHierarchy(raw)
		if err != nil {
			lastErr = err
			a.log.Warn("analysis contract violation", "attempt", attempt+1, "error", err)
			continue
		}
		return h, nil
	}
	return TopicHierarchy{}, fmt.Errorf("%w: %v", ErrAnalysisContract, lastErr)
}

// ask calls the model with bounded retries and exponential backoff for
// transport-level failures.
func (a *Analyzer) ask(ctx context.Context, system, user string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrUpstream, ctx.Err())
			case <-time.After(a.backoffBase << (attempt - 1)):
			}
		}
		raw, err := a.llm.Ask(ctx, system, user)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		a.log.Warn("llm call failed", "attempt", attempt+1, "error", err)
	}
	return "", fmt.Errorf("%w: %v", ErrUpstream, lastErr)
}

const analyzerSystemPrompt = "You are a curriculum analyst. Reply with ONE JSON object only, no markdown, no code fences, no explanations. Empty arrays are [], never null. Do not invent requirements that a careful reader could not defend."

func (a *Analyzer) buildPrompt(jobText string) string {
	return fmt.Sprintf(
		"Job posting:\n<<<\n%s\n>>>\n\nExtract what a candidate must study. Return ONE JSON object:\n{\n  \"roleLabel\": string,\n  \"topics\": [{\"name\":string,\"tier\":\"EXPLICIT\"|\"IMPLICIT\",\"priority\":\"HIGH\"|\"MEDIUM\"|\"LOW\",\"keywords\":string[],\"justification\":string}]\n}\n\nRules:\n- EXPLICIT topics are directly named in the posting; be specific (\"time-series forecasting\", not \"time series\")\n- at most %d IMPLICIT topics, each with a one-sentence justification\n- every topic gets 2-5 keywords (synonyms / related terms) to widen retrieval\n- no extra fields, no markdown\n",
		jobText, a.maxImplicit,
	)
}

// parseHierarchy validates the untrusted model reply against the topic
// contract. Missing tier/priority is a violation, never silently defaulted.
func (a *Analyzer) parseHierarchy(raw string) (TopicHierarchy, error) {
	raw = strings.TrimSpace(raw)
	var h TopicHierarchy
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		// try to extract a JSON object from surrounding text
		i := strings.Index(raw, "{")
		j := strings.LastIndex(raw, "}")
		if i < 0 || j <= i {
			return TopicHierarchy{}, fmt.Errorf("no JSON object in reply")
		}
		if err := json.Unmarshal([]byte(raw[i:j+1]), &h); err != nil {
			return TopicHierarchy{}, fmt.Errorf("unmarshal hierarchy: %v", err)
		}
	}
	if len(h.Topics) == 0 {
		return TopicHierarchy{}, fmt.Errorf("no topics extracted")
	}

	seen := make(map[string]struct{}, len(h.Topics))
	implicit := 0
	out := make([]TopicRequirement, 0, len(h.Topics))
	for i, t := range h.Topics {
		t.Name = strings.TrimSpace(t.Name)
		if t.Name == "" {
			return TopicHierarchy{}, fmt.Errorf("topic %d has empty name", i)
		}
		key := strings.ToLower(t.Name)
		if _, dup := seen[key]; dup {
			// duplicates are collapsed, not rejected: the first occurrence wins
			continue
		}
		if t.Tier != TierExplicit && t.Tier != TierImplicit {
			return TopicHierarchy{}, fmt.Errorf("topic %q has invalid tier %q", t.Name, t.Tier)
		}
		if !ValidPriority(t.Priority) {
			return TopicHierarchy{}, fmt.Errorf("topic %q has invalid priority %q", t.Name, t.Priority)
		}
		if t.Tier == TierImplicit {
			implicit++
			if strings.TrimSpace(t.Justification) == "" {
				return TopicHierarchy{}, fmt.Errorf("implicit topic %q has no justification", t.Name)
			}
		}
		if t.Keywords == nil {
			t.Keywords = []string{}
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	if implicit > a.maxImplicit {
		return TopicHierarchy{}, fmt.Errorf("%d implicit topics exceeds cap %d", implicit, a.maxImplicit)
	}
	h.Topics = out
	h.RoleLabel = strings.TrimSpace(h.RoleLabel)
	return h, nil
}
