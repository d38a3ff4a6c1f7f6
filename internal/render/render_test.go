package render

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/feattree/internal/models"
)

func feature(id, parent string) models.Feature {
	return models.Feature{ID: id, ParentID: parent, Name: "name " + id, Status: models.StatusPlanned}
}

// shape flattens a forest into "depth:id" strings in render order.
func shape(forest []*Node[models.Feature]) []string {
	var out []string
	var walk func(n *Node[models.Feature], depth int)
	walk = func(n *Node[models.Feature], depth int) {
		out = append(out, strings.Repeat(">", depth)+n.Item.ID)
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	for _, n := range forest {
		walk(n, 0)
	}
	return out
}

func buildFeatures(fs []models.Feature) []*Node[models.Feature] {
	return BuildForest(fs,
		func(f models.Feature) string { return f.ID },
		func(f models.Feature) string { return f.ParentID })
}

func TestBuildForestNesting(t *testing.T) {
	got := shape(buildFeatures([]models.Feature{
		feature("A", ""),
		feature("A.1", "A"),
		feature("A.1.x", "A.1"),
		feature("B", ""),
	}))
	want := []string{"A", ">A.1", ">>A.1.x", "B"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("forest (-want +got):\n%s", diff)
	}
}

func TestBuildForestOrphanAndSelfParent(t *testing.T) {
	got := shape(buildFeatures([]models.Feature{
		feature("A", "GONE"),
		feature("B", "B"),
		feature("C", "A"),
	}))
	want := []string{"A", ">C", "B"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("forest (-want +got):\n%s", diff)
	}
}

func TestBuildForestCycle(t *testing.T) {
	got := shape(buildFeatures([]models.Feature{
		feature("R", ""),
		feature("X", "Y"),
		feature("Y", "Z"),
		feature("Z", "X"),
		feature("Z.1", "Z"),
	}))
	want := []string{"R", "X", ">Z", ">>Y", ">>Z.1"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("forest (-want +got):\n%s", diff)
	}
}

func TestFeaturesMarkdown(t *testing.T) {
	root := feature("AUTH", "")
	root.Name = "Authentication"
	root.Description = "Sign users in."
	root.Status = models.StatusDone
	root.Files = []string{"auth.go", "session.go"}
	root.Uses = []string{"DB"}
	child := feature("AUTH.login", "AUTH")
	grandchild := feature("AUTH.login.form", "AUTH.login")
	grandchild.CodeSymbols = []string{}

	md := FeaturesMarkdown([]models.Feature{root, child, grandchild})

	for _, want := range []string{
		"# Features\n\n" + notice + "\n\n",
		"## AUTH\n**Authentication**\nSign users in.\n\n- **Status:** done\n- **Files:** auth.go, session.go\n- **Uses:** DB\n\n",
		"### AUTH.login\n**name AUTH.login**\n\n- **Status:** planned\n\n",
		"#### AUTH.login.form\n",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n---\n%s", want, md)
		}
	}
	if strings.Contains(md, "Symbols") {
		t.Errorf("empty list rendered:\n%s", md)
	}
	if md != FeaturesMarkdown([]models.Feature{root, child, grandchild}) {
		t.Error("rendering is not deterministic")
	}
}

func TestWorkflowsMarkdown(t *testing.T) {
	md := WorkflowsMarkdown([]models.Workflow{
		{
			ID: "CHECKOUT", Name: "Checkout", Purpose: "Buy a cart", Description: "From cart to receipt.",
			Status: models.StatusInProgress, DependsOn: []string{"CART", "AUTH"}, Mermaid: "graph TD\n  A-->B\n",
		},
		{ID: "CHECKOUT.pay", ParentID: "CHECKOUT", Name: "Pay", Status: models.StatusPlanned},
	})

	for _, want := range []string{
		"# Workflows\n",
		"## CHECKOUT\n**Checkout**\n*Buy a cart*\nFrom cart to receipt.\n\n",
		"- **Status:** in-progress\n- **Depends on:** CART, AUTH\n",
		"```mermaid\ngraph TD\n  A-->B\n```\n",
		"### CHECKOUT.pay\n**Pay**\n",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n---\n%s", want, md)
		}
	}
}

func TestWorkflowsMarkdownMermaidVerbatim(t *testing.T) {
	tests := []struct {
		name    string
		mermaid string
		want    string
	}{
		{"no trailing newline", "graph TD\n  A-->B", "```mermaid\ngraph TD\n  A-->B\n```\n"},
		{"trailing newline", "graph TD\n  A-->B\n", "```mermaid\ngraph TD\n  A-->B\n```\n"},
		{"trailing blank lines", "graph LR\n  X-->Y\n\n\n", "```mermaid\ngraph LR\n  X-->Y\n\n\n```\n"},
		{"leading and inner space", "  graph TD\n\n  A-->B  ", "```mermaid\n  graph TD\n\n  A-->B  \n```\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := WorkflowsMarkdown([]models.Workflow{
				{ID: "W", Name: "Flow", Status: models.StatusPlanned, Mermaid: tt.mermaid},
			})
			if !strings.Contains(md, tt.want) {
				t.Errorf("markdown missing %q\n---\n%s", tt.want, md)
			}
		})
	}
}
