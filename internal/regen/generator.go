package regen

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/loomkit/loom/internal/model"
)

// Payload is the output of one generation run.
type Payload struct {
	Code string
	Aux  string // optional companion output (stories, docs)
}

// Generator produces code for an artifact from its design inputs.
// Implementations may call out to an external generation pipeline; Generate
// must honor ctx cancellation.
type Generator interface {
	Generate(ctx context.Context, artifact *model.Artifact, tokens model.TokenSet, reqs model.RequirementSet) (*Payload, error)
}

// TemplateGenerator is the built-in deterministic generator: it renders a
// React component scaffold that binds every token and requirement by its
// dotted path. Identical inputs yield byte-identical output, which keeps
// code diffs meaningful across regenerations.
type TemplateGenerator struct{}

// Generate implements Generator.
func (TemplateGenerator) Generate(_ context.Context, artifact *model.Artifact, tokens model.TokenSet, reqs model.RequirementSet) (*Payload, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "// %s (%s)\n", artifact.Name, artifact.Kind)
	b.WriteString("// Generated file. Do not edit by hand.\n\n")

	b.WriteString("export const tokens = {\n")
	for _, path := range sortedKeys(tokens) {
		fmt.Fprintf(&b, "  %q: %q,\n", path, tokens[path])
	}
	b.WriteString("};\n\n")

	b.WriteString("export const requirements = {\n")
	for _, path := range sortedKeys(reqs) {
		fmt.Fprintf(&b, "  %q: %q,\n", path, reqs[path])
	}
	b.WriteString("};\n\n")

	fmt.Fprintf(&b, "export const %s = (props) => null;\n", identifier(artifact.Name))

	return &Payload{Code: b.String()}, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// identifier reduces an artifact name to a JS identifier.
func identifier(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r == ' ' || r == '-' || r == '/' {
			continue
		}
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return "Component"
	}
	return b.String()
}
