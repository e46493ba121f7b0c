// Package dasha models the four-level nested time-period hierarchy
// (mahadasha, bhukti, pratyantardasha, sookshma) produced by the external
// computation engine. The model is read-only: it decodes, navigates, and
// checks what the engine supplied, and computes nothing itself.
package dasha

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Level is the nesting depth of a period node.
type Level int

const (
	LevelMaha Level = iota
	LevelBhukti
	LevelPratyantar
	LevelSookshma
)

func (l Level) String() string {
	switch l {
	case LevelMaha:
		return "mahadasha"
	case LevelBhukti:
		return "bhukti"
	case LevelPratyantar:
		return "pratyantardasha"
	case LevelSookshma:
		return "sookshma"
	}
	return "unknown"
}

const dateLayout = "2006-01-02"

// Period is one node of the hierarchy. ID is a dotted path of child
// indexes ("2", "2.4", "2.4.0", ...) assigned at decode time and stable for
// the life of the tree, so clients can expand subtrees independently.
type Period struct {
	ID        string `json:"id"`
	Level     Level  `json:"level"`
	Label     string `json:"label"`
	Start     string `json:"start_date"`
	End       string `json:"end_date"`
	IsCurrent bool   `json:"is_current"`
	HasChild  bool   `json:"has_children"`

	children []Period
}

// IsExpandedByDefault reports whether a node's subtree should be disclosed
// without user action: only the currently running chain opens by itself.
func IsExpandedByDefault(p Period) bool {
	return p.IsCurrent
}

// Tree is the decoded hierarchy.
type Tree struct {
	roots []Period
	index map[string]*Period
}

type wireNode struct {
	Planet    string     `json:"planet"`
	StartDate string     `json:"start_date"`
	EndDate   string     `json:"end_date"`
	IsCurrent bool       `json:"is_current"`
	Bhuktis   []wireNode `json:"bhuktis,omitempty"`
	Pratyan   []wireNode `json:"pratyantardashas,omitempty"`
	Sookshma  []wireNode `json:"sookshma_dashas,omitempty"`
}

func (w wireNode) childNodes() []wireNode {
	switch {
	case len(w.Bhuktis) > 0:
		return w.Bhuktis
	case len(w.Pratyan) > 0:
		return w.Pratyan
	default:
		return w.Sookshma
	}
}

// Decode builds a Tree from the engine's mahadasha list JSON.
func Decode(data []byte) (*Tree, error) {
	var wire []wireNode
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode period hierarchy: %w", err)
	}
	t := &Tree{index: map[string]*Period{}}
	t.roots = t.build(wire, LevelMaha, "")
	return t, nil
}

func (t *Tree) build(wire []wireNode, level Level, prefix string) []Period {
	var out []Period
	for i, w := range wire {
		id := strconv.Itoa(i)
		if prefix != "" {
			id = prefix + "." + id
		}
		p := Period{
			ID:        id,
			Level:     level,
			Label:     w.Planet,
			Start:     w.StartDate,
			End:       w.EndDate,
			IsCurrent: w.IsCurrent,
		}
		if level < LevelSookshma {
			p.children = t.build(w.childNodes(), level+1, id)
			p.HasChild = len(p.children) > 0
		}
		out = append(out, p)
	}
	// Index after the slice is final so pointers stay valid.
	for i := range out {
		t.index[out[i].ID] = &out[i]
	}
	return out
}

// Roots returns the top-level (mahadasha) periods in order.
func (t *Tree) Roots() []Period {
	return append([]Period(nil), t.roots...)
}

// Expand returns the children of the identified node, in order. A node with
// no children (legal only at the deepest level) and an unknown id both yield
// an empty result; expansion is never an error.
func (t *Tree) Expand(nodeID string) []Period {
	p, ok := t.index[nodeID]
	if !ok {
		return nil
	}
	return append([]Period(nil), p.children...)
}

// CurrentChain walks the is_current flags from the root down and returns
// the running node at each level, outermost first.
func (t *Tree) CurrentChain() []Period {
	var chain []Period
	nodes := t.roots
	for len(nodes) > 0 {
		var next []Period
		found := false
		for _, p := range nodes {
			if p.IsCurrent {
				chain = append(chain, p)
				next = p.children
				found = true
				break
			}
		}
		if !found {
			break
		}
		nodes = next
	}
	return chain
}

// Validate checks the exactly-one-current invariant against a reference
// now: at each level, scoped to the current parent, exactly one node is
// flagged current and its interval contains now. Depths past the supplied
// data are skipped (the engine may truncate the deepest levels).
func (t *Tree) Validate(now time.Time) error {
	nodes := t.roots
	for len(nodes) > 0 {
		currentCount := 0
		var current *Period
		for i := range nodes {
			if nodes[i].IsCurrent {
				currentCount++
				current = &nodes[i]
			}
		}
		if currentCount != 1 {
			return fmt.Errorf("expected exactly one current %s, found %d", nodes[0].Level, currentCount)
		}
		start, err := time.Parse(dateLayout, current.Start)
		if err != nil {
			return fmt.Errorf("parse %s start: %w", current.Level, err)
		}
		end, err := time.Parse(dateLayout, current.End)
		if err != nil {
			return fmt.Errorf("parse %s end: %w", current.Level, err)
		}
		if now.Before(start) || now.After(end.AddDate(0, 0, 1)) {
			return fmt.Errorf("current %s %s does not contain the reference now", current.Level, current.Label)
		}
		nodes = current.children
	}
	return nil
}
