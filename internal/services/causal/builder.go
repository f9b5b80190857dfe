package causal

import (
	"fmt"

	"OracleDash/internal/domain/models"
)

// Layout constants, in diagram units.
const (
	LeftX          = 20.0
	RightX         = 400.0
	TopOffset      = 30.0
	LeftRowHeight  = 70.0
	RightRowHeight = 80.0
	NodeWidth      = 160
)

// Columns.
const (
	ColumnLeft  = "left"
	ColumnRight = "right"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PositionedNode struct {
	ID       string    `json:"id"`
	Label    string    `json:"label"`
	Type     string    `json:"type"`
	Source   string    `json:"source,omitempty"`
	Column   string    `json:"column"`
	Row      int       `json:"row"`
	Position Point     `json:"position"`
	Style    NodeStyle `json:"style"`
}

type StyledEdge struct {
	ID         string    `json:"id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Weight     float64   `json:"weight"`
	Confidence float64   `json:"confidence"`
	Direction  string    `json:"direction"`
	Label      string    `json:"label"`
	Animated   bool      `json:"animated"`
	FromPos    Point     `json:"from_pos"`
	ToPos      Point     `json:"to_pos"`
	Style      EdgeStyle `json:"style"`
	Marker     Marker    `json:"marker"`
}

// Report lists upstream inconsistencies found while building.
type Report struct {
	// DroppedEdges holds ids of edges whose endpoint is not a placed node.
	DroppedEdges []string `json:"dropped_edges,omitempty"`
	// DuplicateNodes holds ids seen more than once; the first occurrence wins.
	DuplicateNodes []string `json:"duplicate_nodes,omitempty"`
	// UnplacedNodes holds ids whose type is neither left nor right column.
	UnplacedNodes    []string `json:"unplaced_nodes,omitempty"`
	MetadataMismatch bool     `json:"metadata_mismatch"`
}

// Clean reports whether nothing was dropped or mismatched.
func (r Report) Clean() bool {
	return len(r.DroppedEdges) == 0 && len(r.DuplicateNodes) == 0 && len(r.UnplacedNodes) == 0 && !r.MetadataMismatch
}

// Diagram is a positioned, styled causal graph.
type Diagram struct {
	Version int              `json:"version"`
	Header  string           `json:"header"`
	Nodes   []PositionedNode `json:"nodes"`
	Edges   []StyledEdge     `json:"edges"`
	Report  Report           `json:"report"`
}

// Build lays out g deterministically. Signal and derived nodes stack in the
// left column, targets in the right column centered on the left column's span,
// both in input order. Edges referencing a missing node are dropped and listed
// in the report. Build never mutates g and the same input always yields the
// same Diagram.
func Build(g *models.CausalGraphResponse) Diagram {
	d := Diagram{
		Nodes: []PositionedNode{},
		Edges: []StyledEdge{},
	}
	if g == nil {
		return d
	}
	d.Version = g.Metadata.Version
	d.Header = fmt.Sprintf("v%d | %d nodes, %d edges", g.Metadata.Version, g.Metadata.TotalNodes, g.Metadata.TotalEdges)
	d.Report.MetadataMismatch = g.Metadata.TotalNodes != len(g.Nodes) || g.Metadata.TotalEdges != len(g.Edges)

	seen := make(map[string]struct{}, len(g.Nodes))
	var left, right []models.CausalNode
	for _, n := range g.Nodes {
		if _, dup := seen[n.ID]; dup {
			d.Report.DuplicateNodes = append(d.Report.DuplicateNodes, n.ID)
			continue
		}
		seen[n.ID] = struct{}{}
		switch n.Type {
		case models.NodeSignal, models.NodeDerived:
			left = append(left, n)
		case models.NodeTarget:
			right = append(right, n)
		default:
			d.Report.UnplacedNodes = append(d.Report.UnplacedNodes, n.ID)
		}
	}

	pos := make(map[string]Point, len(left)+len(right))
	for i, n := range left {
		p := Point{X: LeftX, Y: TopOffset + float64(i)*LeftRowHeight}
		pos[n.ID] = p
		d.Nodes = append(d.Nodes, place(n, ColumnLeft, i, p))
	}
	// both column spans share a midpoint, each measured with its own row height
	rightTop := TopOffset + (float64(len(left))*LeftRowHeight-float64(len(right))*RightRowHeight)/2
	for i, n := range right {
		p := Point{X: RightX, Y: rightTop + float64(i)*RightRowHeight}
		pos[n.ID] = p
		d.Nodes = append(d.Nodes, place(n, ColumnRight, i, p))
	}

	for i, e := range g.Edges {
		id := fmt.Sprintf("e-%d", i)
		from, okFrom := pos[e.From]
		to, okTo := pos[e.To]
		if !okFrom || !okTo {
			d.Report.DroppedEdges = append(d.Report.DroppedEdges, id)
			continue
		}
		w := ClampWeight(e.Weight)
		style, marker := styleEdge(w, e.Direction)
		d.Edges = append(d.Edges, StyledEdge{
			ID:         id,
			From:       e.From,
			To:         e.To,
			Weight:     w,
			Confidence: e.Confidence,
			Direction:  e.Direction,
			Label:      WeightLabel(w),
			Animated:   Animated(w),
			FromPos:    from,
			ToPos:      to,
			Style:      style,
			Marker:     marker,
		})
	}
	return d
}

func place(n models.CausalNode, column string, row int, p Point) PositionedNode {
	return PositionedNode{
		ID:       n.ID,
		Label:    n.Label,
		Type:     n.Type,
		Source:   n.Source,
		Column:   column,
		Row:      row,
		Position: p,
		Style:    styleNode(n.Type),
	}
}
