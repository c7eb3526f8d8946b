package curriculum

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/artem13815/curricula/pkg/llm"
	"github.com/artem13815/curricula/pkg/logger"
)

// Sequencer groups covered topics into ordered learning stages with one
// structured LLM call. Losing structure is acceptable, losing topics is not:
// a reply that drops or duplicates a topic is retried once and then replaced
// by a deterministic single-stage fallback.
type Sequencer struct {
	llm         llm.ChatModel
	log         *logger.Logger
	retries     int
	backoffBase time.Duration
}

func NewSequencer(model llm.ChatModel, log *logger.Logger, retries int) *Sequencer {
	if retries < 0 {
		retries = defaultRetries
	}
	return &Sequencer{
		llm:         model,
		log:         log.With("component", "sequencer"),
		retries:     retries,
		backoffBase: 500 * time.Millisecond,
	}
}

// Sequence orders the covered subset into stages. fallbackUsed reports that
// the deterministic grouping replaced the model's; it is a recoverable
// condition, not an error. Precondition: every input result has Covered=true.
func (s *Sequencer) Sequence(ctx context.Context, covered []CoverageResult) (stages []LearningStage, fallbackUsed bool, err error) {
	if len(covered) == 0 {
		return []LearningStage{}, false, nil
	}

	user := s.buildPrompt(covered)
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			user += "\n\nREMINDER: your previous reply dropped or duplicated topics. Every input topic must appear in exactly one stage, spelled exactly as given. JSON only."
		}
		raw, askErr := s.ask(ctx, user)
		if askErr != nil {
			// Upstream failure: no point retrying the contract loop, go straight
			// to the fallback so the pipeline still completes.
			s.log.Warn("sequencing llm unavailable, using fallback", "error", askErr)
			return s.fallback(covered), true, nil
		}
		parsed, parseErr := parseStages(raw, covered)
		if parseErr != nil {
			s.log.Warn("sequencing contract violation", "attempt", attempt+1, "error", parseErr)
			continue
		}
		return parsed, false, nil
	}

	s.log.Warn("sequencing retries exhausted, using fallback", "topics", len(covered))
	return s.fallback(covered), true, nil
}

func (s *Sequencer) ask(ctx context.Context, user string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(s.backoffBase << (attempt - 1)):
			}
		}
		raw, err := s.llm.Ask(ctx, sequencerSystemPrompt, user)
		if err == nil {
			return raw, nil
		}
		lastErr = err
	}
	return "", lastErr
}

const sequencerSystemPrompt = "You are a curriculum planner. Reply with ONE JSON object only, no markdown, no code fences, no explanations. Empty arrays are [], never null."

func (s *Sequencer) buildPrompt(covered []CoverageResult) string {
	var b strings.Builder
	b.WriteString("Covered topics (name | priority | tier | confidence | justification):\n")
	for _, r := range covered {
		fmt.Fprintf(&b, "- %s | %s | %s | %.2f | %s\n",
			r.Topic.Name, r.Topic.Priority, r.Topic.Tier, r.Confidence, r.Topic.Justification)
	}
	b.WriteString("\nGroup ALL of these topics into 3-6 thematically coherent stages, ordered so that plausible prerequisites come first. Return ONE JSON object:\n")
	b.WriteString(`{"stages":[{"name":string,"durationEstimate":string,"topics":[{"name":string,"rationale":string}]}]}`)
	b.WriteString("\n\nRules:\n- every topic appears in exactly one stage, spelled exactly as given\n- do not add topics that are not in the list\n- rationale is one short sentence (may mention interview relevance)\n- durationEstimate like \"1 week\"; leave \"\" if unsure\n- no extra fields, no markdown\n")
	return b.String()
}

// parseStages validates the untrusted reply: the multiset of topics across
// all stages must equal the input set exactly.
func parseStages(raw string, covered []CoverageResult) ([]LearningStage, error) {
	raw = strings.TrimSpace(raw)
	var payload struct {
		Stages []LearningStage `json:"stages"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		i := strings.Index(raw, "{")
		j := strings.LastIndex(raw, "}")
		if i < 0 || j <= i {
			return nil, fmt.Errorf("no JSON object in reply")
		}
		if err := json.Unmarshal([]byte(raw[i:j+1]), &payload); err != nil {
			return nil, fmt.Errorf("unmarshal stages: %v", err)
		}
	}

	want := make(map[string]struct{}, len(covered))
	for _, r := range covered {
		want[strings.ToLower(r.Topic.Name)] = struct{}{}
	}

	stages := make([]LearningStage, 0, len(payload.Stages))
	got := make(map[string]struct{}, len(covered))
	for _, st := range payload.Stages {
		if len(st.Topics) == 0 {
			continue
		}
		if strings.TrimSpace(st.Name) == "" {
			return nil, fmt.Errorf("stage %d has empty name", len(stages)+1)
		}
		for _, t := range st.Topics {
			key := strings.ToLower(strings.TrimSpace(t.Name))
			if _, ok := want[key]; !ok {
				return nil, fmt.Errorf("stage %q references unknown topic %q", st.Name, t.Name)
			}
			if _, dup := got[key]; dup {
				return nil, fmt.Errorf("topic %q placed in more than one stage", t.Name)
			}
			got[key] = struct{}{}
		}
		st.SequenceIndex = len(stages) + 1
		stages = append(stages, st)
	}
	if len(got) != len(want) {
		return nil, fmt.Errorf("stages reference %d topics, input has %d", len(got), len(want))
	}
	return stages, nil
}

var priorityRank = map[Priority]int{PriorityHigh: 0, PriorityMedium: 1, PriorityLow: 2}

// fallback places every covered topic into a single stage ordered by priority
// then by input order.
func (s *Sequencer) fallback(covered []CoverageResult) []LearningStage {
	idx := make([]int, len(covered))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return priorityRank[covered[idx[a]].Topic.Priority] < priorityRank[covered[idx[b]].Topic.Priority]
	})
	topics := make([]StageTopic, 0, len(covered))
	for _, i := range idx {
		topics = append(topics, StageTopic{
			Name:      covered[i].Topic.Name,
			Rationale: fmt.Sprintf("%s priority topic from the job requirements", covered[i].Topic.Priority),
		})
	}
	return []LearningStage{{
		Name:          "Study Plan",
		SequenceIndex: 1,
		Topics:        topics,
	}}
}
