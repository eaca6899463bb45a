package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	storeerrors "github.com/vango-go/trackstore/internal/errors"
	"github.com/vango-go/trackstore/pkg/reactive"
)

const lengthSegment = "length"

// parsePath splits a dot separated path. "" and "." name the root.
func parsePath(path string) ([]string, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == "." {
		return nil, nil
	}
	segs := strings.Split(path, ".")
	for _, seg := range segs {
		if seg == "" {
			return nil, storeerrors.New("T201").WithDetailf("%q has an empty segment", path)
		}
	}
	return segs, nil
}

func joinPath(segs []string) string {
	if len(segs) == 0 {
		return "."
	}
	return strings.Join(segs, ".")
}

func badSegment(seg, why string) error {
	return storeerrors.New("T201").WithDetailf("%q %s", seg, why)
}

func notContainer(segs []string) error {
	return storeerrors.New("T201").WithDetailf("%s is not a map or list", joinPath(segs))
}

func listIndex(seg string, n int) (int, error) {
	i, err := strconv.Atoi(seg)
	if err != nil {
		return 0, badSegment(seg, "is not a list index")
	}
	if i < 0 || i >= n {
		return 0, storeerrors.New("T201").WithDetailf("index %d out of range (length %d)", i, n)
	}
	return i, nil
}

// readPath walks segs from root. Reads through views are tracked for the
// view's subscriber; list elements are raw nodes and are walked untracked.
func readPath(root *reactive.ReadMap, segs []string) (any, error) {
	var cur any = root
	for n, seg := range segs {
		switch c := cur.(type) {
		case *reactive.ReadMap:
			v, ok := c.Lookup(seg)
			if !ok {
				return nil, missing(segs[:n+1])
			}
			cur = v
		case *reactive.ReadList:
			if seg == lengthSegment {
				cur = c.Len()
				continue
			}
			i, err := listIndex(seg, c.Len())
			if err != nil {
				return nil, err
			}
			cur = c.At(i)
		case *reactive.Map:
			v, ok := c.Lookup(seg)
			if !ok {
				return nil, missing(segs[:n+1])
			}
			cur = v
		case *reactive.List:
			if seg == lengthSegment {
				cur = c.Len()
				continue
			}
			i, err := listIndex(seg, c.Len())
			if err != nil {
				return nil, err
			}
			cur = c.At(i)
		default:
			return nil, notContainer(segs[:n])
		}
	}
	return cur, nil
}

// writeTarget walks segs through write views. List elements cannot be
// changed in place, so paths may end at a list element but not go through
// one.
func writeTarget(root *reactive.WriteMap, segs []string) (any, error) {
	var cur any = root
	for n, seg := range segs {
		switch c := cur.(type) {
		case *reactive.WriteMap:
			v, ok := c.Lookup(seg)
			if !ok {
				return nil, missing(segs[:n+1])
			}
			cur = v
		case *reactive.WriteList:
			if n < len(segs)-1 {
				return nil, throughElement(segs, n)
			}
			i, err := listIndex(seg, c.Len())
			if err != nil {
				return nil, err
			}
			cur = c.At(i)
		default:
			return nil, notContainer(segs[:n])
		}
	}
	return cur, nil
}

// writeParent returns the write view holding the last segment of segs.
func writeParent(root *reactive.WriteMap, segs []string) (any, string, error) {
	last := len(segs) - 1
	parent, err := writeTarget(root, segs[:last])
	if err != nil {
		return nil, "", err
	}
	switch parent.(type) {
	case *reactive.WriteMap, *reactive.WriteList:
		return parent, segs[last], nil
	case *reactive.Map, *reactive.List:
		return nil, "", throughElement(segs, last-1)
	}
	return nil, "", notContainer(segs[:last])
}

// throughElement reports a write path that continues past the list element
// at segs[n].
func throughElement(segs []string, n int) error {
	return storeerrors.New("T201").
		WithDetailf("%s goes through a list element", joinPath(segs)).
		WithSuggestion("Replace the whole element: set " + joinPath(segs[:n+1]) + " <value>")
}

func missing(segs []string) error {
	return storeerrors.New("T201").WithDetailf("%s does not exist", joinPath(segs))
}

// parseValue reads a JSON value. Integers stay ints; text that is not JSON is
// taken as a string.
func parseValue(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, storeerrors.New("T200").WithDetail("missing value")
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return raw, nil
	}
	return numbers(v), nil
}

// numbers replaces json.Number values with int or float64.
func numbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := strconv.Atoi(x.String()); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case map[string]any:
		for k, e := range x {
			x[k] = numbers(e)
		}
	case []any:
		for i, e := range x {
			x[i] = numbers(e)
		}
	}
	return v
}

// loadState reads a JSON or YAML state file whose top level is a mapping.
func loadState(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, storeerrors.New("T202").Wrap(err)
	}

	var state map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &state)
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		err = dec.Decode(&state)
		if err == nil {
			state = numbers(state).(map[string]any)
		}
	default:
		return nil, storeerrors.New("T202").WithDetailf("%s has an unknown extension", filepath.Base(path))
	}
	if err != nil {
		return nil, storeerrors.New("T202").
			WithDetailf("%s: %v", filepath.Base(path), err)
	}
	if state == nil {
		state = map[string]any{}
	}
	return state, nil
}
