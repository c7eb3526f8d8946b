package curriculum

import "errors"

var (
	// ErrInsufficientInput means the job text is empty or too short to analyze.
	// User-correctable; surfaced directly.
	ErrInsufficientInput = errors.New("job text is too short to analyze")

	// ErrAnalysisContract means the model kept producing output that violates
	// the topic-hierarchy schema after the bounded retry.
	ErrAnalysisContract = errors.New("could not understand job description")

	// ErrUpstream means the language model or the content index was
	// unreachable or timed out after retries. Safe to retry the whole request.
	ErrUpstream = errors.New("upstream service failure")

	// ErrNotFound means no learning path exists for the user.
	ErrNotFound = errors.New("learning path not found")
)
