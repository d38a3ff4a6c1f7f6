// Package render turns catalog snapshots into the generated markdown views.
package render

import (
	"fmt"
	"strings"

	"github.com/starford/feattree/internal/models"
)

const notice = "> Auto-generated. Do not edit. Use the feature-tree tools to modify."

// Node is one entry in a rendered tree.
type Node[T any] struct {
	Item     T
	Children []*Node[T]
}

// BuildForest arranges items into trees by parent id. Items whose parent
// is absent from items, or is the item itself, become roots. Items caught
// in a parent cycle are promoted to roots in input order after the regular
// roots. Every item appears exactly once.
func BuildForest[T any](items []T, id, parent func(T) string) []*Node[T] {
	index := make(map[string]int, len(items))
	for i, it := range items {
		if _, dup := index[id(it)]; !dup {
			index[id(it)] = i
		}
	}

	kids := make([][]int, len(items))
	var roots []int
	for i, it := range items {
		p, ok := index[parent(it)]
		if parent(it) == "" || !ok || p == i {
			roots = append(roots, i)
			continue
		}
		kids[p] = append(kids[p], i)
	}

	visited := make([]bool, len(items))
	var grow func(i int) *Node[T]
	grow = func(i int) *Node[T] {
		visited[i] = true
		n := &Node[T]{Item: items[i]}
		for _, k := range kids[i] {
			if !visited[k] {
				n.Children = append(n.Children, grow(k))
			}
		}
		return n
	}

	forest := make([]*Node[T], 0, len(roots))
	for _, r := range roots {
		forest = append(forest, grow(r))
	}
	for i := range items {
		if !visited[i] {
			forest = append(forest, grow(i))
		}
	}
	return forest
}

// FeaturesMarkdown renders FEATURES.md for a snapshot of non-deleted
// features.
func FeaturesMarkdown(features []models.Feature) string {
	var b strings.Builder
	header(&b, "Features")
	forest := BuildForest(features,
		func(f models.Feature) string { return f.ID },
		func(f models.Feature) string { return f.ParentID })
	for _, n := range forest {
		writeFeature(&b, n, 2)
	}
	return b.String()
}

// WorkflowsMarkdown renders WORKFLOWS.md for a snapshot of non-deleted
// workflows.
func WorkflowsMarkdown(workflows []models.Workflow) string {
	var b strings.Builder
	header(&b, "Workflows")
	forest := BuildForest(workflows,
		func(w models.Workflow) string { return w.ID },
		func(w models.Workflow) string { return w.ParentID })
	for _, n := range forest {
		writeWorkflow(&b, n, 2)
	}
	return b.String()
}

func header(b *strings.Builder, title string) {
	fmt.Fprintf(b, "# %s\n\n%s\n\n", title, notice)
}

func writeFeature(b *strings.Builder, n *Node[models.Feature], level int) {
	f := n.Item
	fmt.Fprintf(b, "%s %s\n**%s**\n", strings.Repeat("#", level), f.ID, f.Name)
	if f.Description != "" {
		b.WriteString(f.Description + "\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(b, "- **Status:** %s\n", f.Status)
	listLine(b, "Symbols", f.CodeSymbols)
	listLine(b, "Files", f.Files)
	listLine(b, "Commits", f.CommitIDs)
	listLine(b, "Uses", f.Uses)
	b.WriteString("\n")

	for _, c := range n.Children {
		writeFeature(b, c, level+1)
	}
}

func writeWorkflow(b *strings.Builder, n *Node[models.Workflow], level int) {
	w := n.Item
	fmt.Fprintf(b, "%s %s\n**%s**\n", strings.Repeat("#", level), w.ID, w.Name)
	if w.Purpose != "" {
		fmt.Fprintf(b, "*%s*\n", w.Purpose)
	}
	if w.Description != "" {
		b.WriteString(w.Description + "\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(b, "- **Status:** %s\n", w.Status)
	listLine(b, "Depends on", w.DependsOn)
	b.WriteString("\n")

	if w.Mermaid != "" {
		b.WriteString("```mermaid\n" + w.Mermaid)
		if !strings.HasSuffix(w.Mermaid, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("```\n\n")
	}

	for _, c := range n.Children {
		writeWorkflow(b, c, level+1)
	}
}

func listLine(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "- **%s:** %s\n", label, strings.Join(items, ", "))
}
