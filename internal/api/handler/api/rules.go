package api

import (
	"net/http"

	"github.com/newthinker/scorecard/internal/api/response"
	"github.com/newthinker/scorecard/internal/rules"
)

// RuleInfo describes a registered rule.
type RuleInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Weight      int    `json:"weight"`
}

// RulesHandler exposes the active rule set.
type RulesHandler struct {
	engine *rules.Engine
}

// NewRulesHandler creates a new rules handler.
func NewRulesHandler(engine *rules.Engine) *RulesHandler {
	return &RulesHandler{engine: engine}
}

// List returns the registered rules in evaluation order and the
// normalization policy.
func (h *RulesHandler) List(w http.ResponseWriter, r *http.Request) {
	registered := h.engine.Rules()
	infos := make([]RuleInfo, len(registered))
	for i, rule := range registered {
		infos[i] = RuleInfo{
			Name:        rule.Name(),
			Description: rule.Description(),
			Weight:      rule.Weight(),
		}
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"rules":  infos,
		"count":  len(infos),
		"policy": h.engine.Policy(),
	})
}
