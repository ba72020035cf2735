package graph

import (
	"context"
	"fmt"

	"github.com/siherrmann/biolink/helper"
	"github.com/siherrmann/biolink/model"
)

const (
	DefaultMaxVisNodes = 100
	visLabelLength     = 15
	visTooltipLength   = 400
	visConceptSize     = 15
	visNodeSize        = 25
)

var visColors = map[model.NodeType]string{
	model.NodeTypePaper:    "#ef5350",
	model.NodeTypeTrial:    "#66bb6a",
	model.NodeTypeChemical: "#42a5f5",
	model.NodeTypeDisease:  "#ffa726",
	model.NodeTypeTarget:   "#ab47bc",
}

const visDefaultColor = "#bdbdbd"

// Visualize returns up to maxNodes styled nodes and the edges between them.
func Visualize(ctx context.Context, store Store, maxNodes int) (*model.Visualization, error) {
	if maxNodes <= 0 {
		maxNodes = DefaultMaxVisNodes
	}

	nodes, err := store.SelectNodes(ctx, maxNodes)
	if err != nil {
		return nil, helper.NewError("select nodes", err)
	}

	vis := &model.Visualization{Nodes: []*model.VisNode{}, Edges: []*model.VisEdge{}}
	seen := map[string]bool{}
	for _, n := range nodes {
		if n.ID == "" || seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		vis.Nodes = append(vis.Nodes, visNode(n))
	}

	edges, err := store.SelectEdges(ctx)
	if err != nil {
		return nil, helper.NewError("select edges", err)
	}
	for _, e := range edges {
		if !seen[e.SourceID] || !seen[e.TargetID] {
			continue
		}
		vis.Edges = append(vis.Edges, &model.VisEdge{
			Source: e.SourceID,
			Target: e.TargetID,
			Label:  string(e.Relation),
		})
	}

	return vis, nil
}

func visNode(n *model.Node) *model.VisNode {
	color, ok := visColors[n.Type]
	if !ok {
		color = visDefaultColor
	}

	size := visNodeSize
	if n.Type == model.NodeTypeConcept {
		size = visConceptSize
	}

	label := n.Title()
	if label == "" {
		label = "Node"
	}

	return &model.VisNode{
		ID:      n.ID,
		Label:   helper.Ellipsis(label, visLabelLength),
		Tooltip: tooltip(n, label),
		Color:   color,
		Size:    size,
	}
}

func tooltip(n *model.Node, label string) string {
	attrs := n.Attributes
	switch n.Type {
	case model.NodeTypePaper:
		return fmt.Sprintf("PAPER: %s\n\n%s | %s\n\nABSTRACT:\n%s",
			label, attrs.GetString("date"), attrs.GetString("journal"),
			helper.Ellipsis(attrs.GetString("abstract"), visTooltipLength))
	case model.NodeTypeTrial:
		return fmt.Sprintf("TRIAL: %s\n\n%s | %s\n\nCRITERIA:\n%s",
			label, attrs.GetString("status"), attrs.GetString("phase"),
			helper.Ellipsis(attrs.GetString("criteria"), visTooltipLength))
	case model.NodeTypeChemical:
		return "DRUG: " + label
	case model.NodeTypeDisease:
		return "DISEASE: " + label
	case model.NodeTypeTarget:
		return "TARGET: " + label
	default:
		return "Concept: " + label
	}
}
