package services

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/portfolio/internal/logging"
)

// TextRewriter rewrites free-form text with a generative model.
type TextRewriter interface {
	Rewrite(ctx context.Context, prompt string) (string, error)
}

// CVResult is the outcome of a CV refinement. Data holds the refined text on
// success and Error the user-facing reason otherwise.
type CVResult struct {
	Success bool   `json:"success"`
	Data    string `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

const cvPrompt = `You are an expert resume writer. Please refine the following CV text to improve its clarity, grammar, and appeal to potential employers. Highlight key skills and experiences.

CV Text:
`

// CVService polishes CV text. A nil rewriter disables the feature.
type CVService struct {
	rw  TextRewriter
	log logging.Logger
}

func NewCVService(rw TextRewriter, log logging.Logger) *CVService {
	return &CVService{rw: rw, log: log.With("module", "cv")}
}

func (s *CVService) Available() bool { return s.rw != nil }

func (s *CVService) Refine(ctx context.Context, cvText string) CVResult {
	if strings.TrimSpace(cvText) == "" {
		return CVResult{Error: "CV text cannot be empty."}
	}
	if s.rw == nil {
		return CVResult{Error: "CV refinement is not available."}
	}

	out, err := s.rw.Rewrite(ctx, cvPrompt+cvText)
	if err != nil {
		s.log.Error(ctx, "cv refinement failed", "error", err)
		return CVResult{Error: "Failed to refine CV due to a server error."}
	}
	return CVResult{Success: true, Data: out}
}
