package badges

import (
	"fmt"

	"quizmaster/internal/domain"

	"github.com/sirupsen/logrus"
)

// Engine evaluates badge definitions. Definitions are never modified after construction.
type Engine struct {
	defs []Definition
	byID map[string]Definition
	log  logrus.FieldLogger
}

func NewEngine(defs []Definition, log logrus.FieldLogger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	copied := append([]Definition(nil), defs...)
	byID := make(map[string]Definition, len(copied))
	for _, def := range copied {
		byID[def.ID] = def
	}
	return &Engine{defs: copied, byID: byID, log: log}
}

// EvaluateSession returns the session badges newly earned by a finished session.
func (e *Engine) EvaluateSession(held []string, view SessionOutcomeView) []string {
	return e.Evaluate(ScopeSession, held, view)
}

// EvaluateGlobal returns the global badges newly earned with the given stats.
func (e *Engine) EvaluateGlobal(held []string, view StatsView) []string {
	return e.Evaluate(ScopeGlobal, held, view)
}

// Evaluate checks every definition of scope not already in held. A failing
// definition is logged and skipped. The result is never nil.
func (e *Engine) Evaluate(scope Scope, held []string, view View) []string {
	owned := make(map[string]struct{}, len(held))
	for _, id := range held {
		owned[id] = struct{}{}
	}

	earned := []string{}
	for _, def := range e.defs {
		if def.Scope != scope {
			continue
		}
		if _, ok := owned[def.ID]; ok {
			continue
		}
		ok, err := e.check(def, view)
		if err != nil {
			e.log.WithError(err).WithField("badge_id", def.ID).Error("badge condition failed")
			continue
		}
		if ok {
			owned[def.ID] = struct{}{}
			earned = append(earned, def.ID)
		}
	}
	return earned
}

func (e *Engine) check(def Definition, view View) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("panic: %v", r)
		}
	}()
	for _, c := range def.When {
		holds, err := c.holds(view)
		if err != nil {
			return false, err
		}
		if !holds {
			return false, nil
		}
	}
	return true, nil
}

// Info returns the display information of a badge. Unknown ids get a generic entry.
func (e *Engine) Info(id string) domain.Badge {
	if def, ok := e.byID[id]; ok {
		info := def.Info()
		if info.Name == "" {
			info.Name = id
		}
		return info
	}
	return domain.Badge{ID: id, Name: id, Description: "Badge: " + id}
}

// Infos maps ids to display information, preserving order.
func (e *Engine) Infos(ids []string) []domain.Badge {
	out := make([]domain.Badge, 0, len(ids))
	for _, id := range ids {
		out = append(out, e.Info(id))
	}
	return out
}
