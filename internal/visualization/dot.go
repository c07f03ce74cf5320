// Package visualization renders the concept graph in various output formats.
package visualization

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ethos-sim/ethos/internal/models"
	"github.com/ethos-sim/ethos/internal/store"
)

// Format specifies the output format for graph rendering.
type Format string

const (
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
)

// nodeColors maps node types to DOT colors.
var nodeColors = map[models.NodeType]string{
	models.NodeTypeAnchor:  "goldenrod",
	models.NodeTypeConcept: "steelblue",
	models.NodeTypeOther:   "lightgray",
}

// RenderDOT produces a Graphviz DOT representation of the graph. Anchors
// are labeled with their virtue names; edge thickness follows weight.
func RenderDOT(ctx context.Context, gs store.GraphStore) (string, error) {
	nodes, edges, err := snapshot(ctx, gs)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("digraph ethos {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=filled, fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n\n")

	for _, node := range nodes {
		color := nodeColors[node.Type]
		if color == "" {
			color = "lightgray"
		}

		label := node.ID
		if v, ok := models.VirtueByID(node.ID); ok {
			label = fmt.Sprintf("%s\\n%s", node.ID, v.Name)
		}
		b.WriteString(fmt.Sprintf("  %q [label=%q, fillcolor=%q, tooltip=\"activation=%.3f baseline=%.3f\"];\n",
			node.ID, label, color, node.Activation, node.Baseline))
	}
	b.WriteString("\n")

	for _, edge := range edges {
		style := "solid"
		if edge.Direction == models.DirectionMutual {
			style = "bold"
		}
		b.WriteString(fmt.Sprintf("  %q -> %q [style=%s, penwidth=\"%.1f\", tooltip=\"weight=%.3f uses=%d\"];\n",
			edge.Source, edge.Target, style, 0.5+edge.Weight*3, edge.Weight, edge.UseCount))
	}

	b.WriteString("}\n")
	return b.String(), nil
}

// RenderJSON produces a JSON-ready graph representation with nodes and
// edges arrays.
func RenderJSON(ctx context.Context, gs store.GraphStore) (map[string]interface{}, error) {
	nodes, edges, err := snapshot(ctx, gs)
	if err != nil {
		return nil, err
	}

	jsonNodes := make([]map[string]interface{}, 0, len(nodes))
	for _, node := range nodes {
		entry := map[string]interface{}{
			"id":         node.ID,
			"type":       string(node.Type),
			"activation": node.Activation,
			"baseline":   node.Baseline,
		}
		if v, ok := models.VirtueByID(node.ID); ok {
			entry["name"] = v.Name
		}
		jsonNodes = append(jsonNodes, entry)
	}

	jsonEdges := make([]map[string]interface{}, 0, len(edges))
	for _, edge := range edges {
		jsonEdges = append(jsonEdges, map[string]interface{}{
			"source":    edge.Source,
			"target":    edge.Target,
			"weight":    edge.Weight,
			"direction": string(edge.Direction),
			"use_count": edge.UseCount,
		})
	}

	return map[string]interface{}{
		"nodes":      jsonNodes,
		"edges":      jsonEdges,
		"node_count": len(jsonNodes),
		"edge_count": len(jsonEdges),
	}, nil
}

// snapshot loads nodes and edges in deterministic order.
func snapshot(ctx context.Context, gs store.GraphStore) ([]models.Node, []models.Edge, error) {
	nodes, err := gs.Nodes(ctx, "")
	if err != nil {
		return nil, nil, fmt.Errorf("load nodes: %w", err)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	edges, err := gs.Edges(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load edges: %w", err)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})
	return nodes, edges, nil
}
