// ABOUTME: Parses loosely-typed flow export records into Nodes and builds a FlowSet from them.
// ABOUTME: Unknown fields are ignored; a record without an id is the only fatal condition.
package flow

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MalformedNodeError reports a raw record that cannot become a Node.
type MalformedNodeError struct {
	Index  int
	Reason string
}

func (e *MalformedNodeError) Error() string {
	return fmt.Sprintf("malformed node at index %d: %s", e.Index, e.Reason)
}

// ParseFlow normalizes raw flow records into a FlowSet.
// Records are processed in order; when two records share an id the later one wins.
func ParseFlow(records []map[string]any) (*FlowSet, error) {
	nodes := make([]*Node, 0, len(records))
	for i, rec := range records {
		n, err := parseNode(i, rec)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return newFlowSet(nodes), nil
}

// ParseJSON decodes a flow export and parses it. It accepts either a bare JSON array of
// node objects or the {"rev": ..., "flows": [...]} envelope used by the admin API.
func ParseJSON(data []byte) (*FlowSet, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ParseFlow(nil)
	}

	var raw []json.RawMessage
	if trimmed[0] == '{' {
		var envelope struct {
			Flows []json.RawMessage `json:"flows"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("decode flow envelope: %w", err)
		}
		raw = envelope.Flows
	} else {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("decode flow: %w", err)
		}
	}

	records := make([]map[string]any, len(raw))
	for i, elem := range raw {
		var rec map[string]any
		if err := json.Unmarshal(elem, &rec); err != nil || rec == nil {
			return nil, &MalformedNodeError{Index: i, Reason: "record is not an object"}
		}
		records[i] = rec
	}
	return ParseFlow(records)
}

// parseNode extracts the fields the rules care about from one raw record.
func parseNode(index int, rec map[string]any) (*Node, error) {
	id, ok := rec["id"].(string)
	if !ok || id == "" {
		return nil, &MalformedNodeError{Index: index, Reason: "missing id"}
	}

	n := &Node{
		ID:    id,
		Type:  stringField(rec, "type"),
		Z:     stringField(rec, "z"),
		Name:  stringField(rec, "name"),
		Label: stringField(rec, "label"),
		X:     numberField(rec, "x"),
		Y:     numberField(rec, "y"),
		Wires: wiresField(rec["wires"]),
		Links: stringList(rec["links"]),
		Func:  stringField(rec, "func"),
	}
	return n, nil
}

func stringField(rec map[string]any, key string) string {
	s, _ := rec[key].(string)
	return s
}

func numberField(rec map[string]any, key string) float64 {
	switch v := rec[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	default:
		return 0
	}
}

// wiresField accepts [][]string as well as the []any shapes produced by JSON decoding.
// Non-string targets are skipped; a port that is not a list becomes an empty port.
func wiresField(v any) [][]string {
	switch ports := v.(type) {
	case [][]string:
		out := make([][]string, len(ports))
		for i, p := range ports {
			out[i] = append([]string(nil), p...)
		}
		return out
	case []any:
		out := make([][]string, 0, len(ports))
		for _, p := range ports {
			out = append(out, stringList(p))
		}
		return out
	default:
		return [][]string{}
	}
}

func stringList(v any) []string {
	switch items := v.(type) {
	case []string:
		return append([]string(nil), items...)
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}
