package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/canvass/internal/core"
)

// mappingFile is the on-disk form of a column mapping:
//
//	entity: person
//	columns:
//	  Cédula: national_id
//	  Nombres: first_name
type mappingFile struct {
	Entity  string            `yaml:"entity"`
	Columns map[string]string `yaml:"columns"`
}

func newMappingFile(entity core.EntityType, m core.FieldMapping) mappingFile {
	f := mappingFile{Entity: string(entity), Columns: make(map[string]string, len(m))}
	for col, tag := range m {
		f.Columns[col] = string(tag)
	}
	return f
}

// loadMapping reads a mapping file and checks it against entity. An empty
// entity adopts the file's.
func loadMapping(path string, entity core.EntityType) (core.EntityType, core.FieldMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}

	var f mappingFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return "", nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if f.Entity != "" {
		fileEntity, err := core.ParseEntityType(f.Entity)
		if err != nil {
			return "", nil, fmt.Errorf("%s: %w", path, err)
		}
		switch {
		case entity == "":
			entity = fileEntity
		case entity != fileEntity:
			return "", nil, fmt.Errorf("%w: --entity %s but %s maps %s", core.ErrEntityMismatch, entity, path, fileEntity)
		}
	}
	if entity == "" {
		return "", nil, fmt.Errorf("%s: no entity given", path)
	}

	mapping := make(core.FieldMapping, len(f.Columns))
	for col, tag := range f.Columns {
		mapping[col] = core.FieldTag(tag)
	}
	if err := mapping.Validate(entity); err != nil {
		return "", nil, fmt.Errorf("%s: %w", path, err)
	}
	return entity, mapping, nil
}

// writeMapping emits columns in header order so the file diffs cleanly.
func writeMapping(w io.Writer, entity core.EntityType, headers []string, m core.FieldMapping) error {
	f := newMappingFile(entity, m)

	var cols yaml.Node
	cols.Kind = yaml.MappingNode
	seen := make(map[string]bool, len(headers))
	keys := make([]string, 0, len(f.Columns))
	for _, h := range headers {
		if _, ok := f.Columns[h]; ok && !seen[h] {
			keys = append(keys, h)
			seen[h] = true
		}
	}
	var rest []string
	for col := range f.Columns {
		if !seen[col] {
			rest = append(rest, col)
		}
	}
	sort.Strings(rest)
	keys = append(keys, rest...)

	for _, k := range keys {
		cols.Content = append(cols.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: k},
			&yaml.Node{Kind: yaml.ScalarNode, Value: f.Columns[k]},
		)
	}

	doc := yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
		{Kind: yaml.ScalarNode, Value: "entity"},
		{Kind: yaml.ScalarNode, Value: f.Entity},
		{Kind: yaml.ScalarNode, Value: "columns"},
		&cols,
	}}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	return enc.Close()
}
