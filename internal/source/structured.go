package source

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAML and JSON catalogs come in two shapes:
//
//	- {isbn: "...", title: "..."}      # list of records; keys of the first
//	- {isbn: "...", title: "..."}      # record fix the column order
//
//	columns: [isbn, title]            # explicit header
//	rows:                              # rows are lists or mappings
//	  - ["...", "..."]

func parseYAML(data []byte) ([]string, [][]string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil, nil
	}
	root := doc.Content[0]

	switch root.Kind {
	case yaml.SequenceNode:
		return yamlRecords(nil, root.Content)
	case yaml.MappingNode:
		var columns, rows *yaml.Node
		for i := 0; i+1 < len(root.Content); i += 2 {
			switch root.Content[i].Value {
			case "columns":
				columns = root.Content[i+1]
			case "rows":
				rows = root.Content[i+1]
			}
		}
		if rows == nil {
			return nil, nil, fmt.Errorf("catalog mapping needs a rows key")
		}
		var header []string
		if columns != nil {
			if columns.Kind != yaml.SequenceNode {
				return nil, nil, fmt.Errorf("columns must be a list")
			}
			for _, c := range columns.Content {
				header = append(header, yamlScalar(c))
			}
		}
		if rows.Kind != yaml.SequenceNode {
			return nil, nil, fmt.Errorf("rows must be a list")
		}
		return yamlRecords(header, rows.Content)
	default:
		return nil, nil, fmt.Errorf("unexpected top-level YAML node")
	}
}

func yamlRecords(header []string, items []*yaml.Node) ([]string, [][]string, error) {
	records := make([][]string, 0, len(items))
	for n, item := range items {
		switch item.Kind {
		case yaml.SequenceNode:
			rec := make([]string, len(item.Content))
			for i, c := range item.Content {
				rec[i] = yamlScalar(c)
			}
			records = append(records, rec)
		case yaml.MappingNode:
			keys := make([]string, 0, len(item.Content)/2)
			values := make(map[string]string, len(item.Content)/2)
			for i := 0; i+1 < len(item.Content); i += 2 {
				k := item.Content[i].Value
				keys = append(keys, k)
				values[k] = yamlScalar(item.Content[i+1])
			}
			header = mergeKeys(header, keys)
			records = append(records, recordFor(header, values))
		default:
			return nil, nil, fmt.Errorf("row %d: expected a list or a mapping", n+1)
		}
	}
	return header, records, nil
}

func yamlScalar(n *yaml.Node) string {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return ""
		}
		return n.Value
	case yaml.AliasNode:
		if n.Alias != nil {
			return yamlScalar(n.Alias)
		}
		return ""
	default:
		parts := make([]string, 0, len(n.Content))
		for _, c := range n.Content {
			if s := yamlScalar(c); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	}
}

// mergeKeys appends keys not already in header.
func mergeKeys(header, keys []string) []string {
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		seen[h] = true
	}
	for _, k := range keys {
		if !seen[k] {
			header = append(header, k)
			seen[k] = true
		}
	}
	return header
}

func recordFor(header []string, values map[string]string) []string {
	rec := make([]string, len(header))
	for i, h := range header {
		rec[i] = values[h]
	}
	return rec
}

type orderedObject struct {
	keys   []string
	values map[string]interface{}
}

func parseJSON(data []byte) ([]string, [][]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeOrdered(dec)
	if err != nil {
		if err == io.EOF {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	switch root := v.(type) {
	case []interface{}:
		return jsonRecords(nil, root)
	case *orderedObject:
		rows, ok := root.values["rows"].([]interface{})
		if !ok {
			return nil, nil, fmt.Errorf("catalog object needs a rows list")
		}
		var header []string
		if cols, ok := root.values["columns"].([]interface{}); ok {
			for _, c := range cols {
				header = append(header, jsonScalar(c))
			}
		}
		return jsonRecords(header, rows)
	default:
		return nil, nil, fmt.Errorf("unexpected top-level JSON value")
	}
}

func jsonRecords(header []string, items []interface{}) ([]string, [][]string, error) {
	records := make([][]string, 0, len(items))
	for n, item := range items {
		switch it := item.(type) {
		case []interface{}:
			rec := make([]string, len(it))
			for i, c := range it {
				rec[i] = jsonScalar(c)
			}
			records = append(records, rec)
		case *orderedObject:
			values := make(map[string]string, len(it.keys))
			for _, k := range it.keys {
				values[k] = jsonScalar(it.values[k])
			}
			header = mergeKeys(header, it.keys)
			records = append(records, recordFor(header, values))
		default:
			return nil, nil, fmt.Errorf("row %d: expected an array or an object", n+1)
		}
	}
	return header, records, nil
}

func jsonScalar(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case []interface{}:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			if s := jsonScalar(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	case *orderedObject:
		parts := make([]string, 0, len(x.keys))
		for _, k := range x.keys {
			if s := jsonScalar(x.values[k]); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprint(x)
	}
}

// decodeOrdered decodes one JSON value, keeping object key order.
func decodeOrdered(dec *json.Decoder) (interface{}, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := &orderedObject{values: make(map[string]interface{})}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("expected object key, got %v", keyTok)
				}
				val, err := decodeOrdered(dec)
				if err != nil {
					return nil, err
				}
				if _, dup := obj.values[key]; !dup {
					obj.keys = append(obj.keys, key)
				}
				obj.values[key] = val
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			var arr []interface{}
			for dec.More() {
				val, err := decodeOrdered(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			if arr == nil {
				arr = []interface{}{}
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	default:
		return t, nil
	}
}

func parseCSV(data []byte) ([]string, [][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(all) == 0 {
		return nil, nil, nil
	}
	header := all[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return header, all[1:], nil
}
