package core

import "strings"

// EmbeddableText builds the string that is fed to the embedding model for
// this document. The derivation is fixed per entity type:
//
//   - servers: name, description, tags, each tool's name and description
//   - agents: name, description, tags, capabilities, each skill's name
//     and description
//
// Path, tool input schemas and metadata are excluded; they are retained on
// the document for display and keyword matching only.
func (d *Document) EmbeddableText() string {
	var b strings.Builder

	writeLine := func(s string) {
		if s == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(s)
	}

	writeLine(d.Name)
	writeLine(d.Description)
	if len(d.Tags) > 0 {
		writeLine("Tags: " + strings.Join(d.Tags, ", "))
	}

	switch d.Type {
	case EntityTypeServer:
		for _, tool := range d.Tools {
			writeLine(tool.Name)
			writeLine(tool.Description)
		}
	case EntityTypeAgent:
		if len(d.Capabilities) > 0 {
			writeLine("Capabilities: " + strings.Join(d.Capabilities, ", "))
		}
		for _, skill := range d.Skills {
			writeLine(skill.Name)
			writeLine(skill.Description)
		}
	}

	return b.String()
}
