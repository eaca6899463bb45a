package reactive

import (
	"math/big"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// maxDepth bounds nesting while converting values. Only a tree that contains
// itself gets anywhere near it.
const maxDepth = 4096

// FromValue builds a fresh state tree from v.
//
// Maps with string keys become *Map, slices and arrays become *List, structs
// are converted through their json tags, read and write views are unwrapped,
// and existing nodes are deep copied. *big.Int leaves are copied, other
// leaves are kept as they are. Nil nodes, views and pointers become nil.
func FromValue(v any) (any, error) {
	return convert(v, nil, 0)
}

// FromStruct converts a struct (or pointer to struct) into a *Map using the
// struct's json tags as keys.
func FromStruct(v any) (*Map, error) {
	converted, err := convertStruct(v, nil, 0)
	if err != nil {
		return nil, err
	}
	m, ok := converted.(*Map)
	if !ok {
		return nil, shapeError(v)
	}
	return m, nil
}

// ToValue converts a node or view back into plain values: map[string]any,
// []any and leaves. The result shares nothing with the tree.
func ToValue(v any) (any, error) {
	return toPlain(v, 0)
}

// normalize prepares v for storage in c's tree. Plain maps and slices become
// new nodes and nodes of this tree keep their identity, so moving a subtree
// inside an action is a reference assignment. Nodes of any other tree are
// deep copied.
func (c *Container) normalize(v any) (any, error) {
	return convert(v, c, 0)
}

// convert turns v into a storable value. Nodes owned by owner are kept;
// every other node is copied into a new node owned by owner. A nil owner
// copies every node.
func convert(v any, owner *Container, depth int) (any, error) {
	if depth > maxDepth {
		return nil, cyclicError()
	}

	switch x := v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return x, nil
	case *big.Int:
		if x == nil {
			return nil, nil
		}
		return new(big.Int).Set(x), nil
	case *Symbol:
		if x == nil {
			return nil, nil
		}
		return x, nil
	case *Map:
		if x == nil {
			return nil, nil
		}
		if owner != nil && x.owner == owner {
			return x, nil
		}
		out := newMap(len(x.fields))
		out.owner = owner
		for k, fv := range x.fields {
			cv, err := convert(fv, owner, depth+1)
			if err != nil {
				return nil, err
			}
			out.fields[k] = cv
		}
		return out, nil
	case *List:
		if x == nil {
			return nil, nil
		}
		if owner != nil && x.owner == owner {
			return x, nil
		}
		out := newList(len(x.items))
		out.owner = owner
		for _, iv := range x.items {
			cv, err := convert(iv, owner, depth+1)
			if err != nil {
				return nil, err
			}
			out.items = append(out.items, cv)
		}
		return out, nil
	case *ReadMap:
		if x == nil {
			return nil, nil
		}
		return convert(x.node, owner, depth)
	case *ReadList:
		if x == nil {
			return nil, nil
		}
		return convert(x.node, owner, depth)
	case *WriteMap:
		if x == nil {
			return nil, nil
		}
		return convert(x.node, owner, depth)
	case *WriteList:
		if x == nil {
			return nil, nil
		}
		return convert(x.node, owner, depth)
	case map[string]any:
		out := newMap(len(x))
		out.owner = owner
		for k, fv := range x {
			cv, err := convert(fv, owner, depth+1)
			if err != nil {
				return nil, err
			}
			out.fields[k] = cv
		}
		return out, nil
	case []any:
		out := newList(len(x))
		out.owner = owner
		for _, iv := range x {
			cv, err := convert(iv, owner, depth+1)
			if err != nil {
				return nil, err
			}
			out.items = append(out.items, cv)
		}
		return out, nil
	}

	return convertReflect(v, owner, depth)
}

// convertReflect handles named types, typed maps and slices, and structs.
func convertReflect(v any, owner *Container, depth int) (any, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return v, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, unsupportedError(v)
		}
		out := newMap(rv.Len())
		out.owner = owner
		iter := rv.MapRange()
		for iter.Next() {
			cv, err := convert(iter.Value().Interface(), owner, depth+1)
			if err != nil {
				return nil, err
			}
			out.fields[iter.Key().String()] = cv
		}
		return out, nil
	case reflect.Slice, reflect.Array:
		out := newList(rv.Len())
		out.owner = owner
		for i := 0; i < rv.Len(); i++ {
			cv, err := convert(rv.Index(i).Interface(), owner, depth+1)
			if err != nil {
				return nil, err
			}
			out.items = append(out.items, cv)
		}
		return out, nil
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, nil
		}
		if rv.Elem().Kind() == reflect.Struct {
			return convertStruct(v, owner, depth)
		}
	case reflect.Struct:
		return convertStruct(v, owner, depth)
	}
	return nil, unsupportedError(v)
}

// convertStruct flattens a struct into a map through mapstructure, then
// converts that map like any other.
func convertStruct(v any, owner *Container, depth int) (any, error) {
	var fields map[string]any
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &fields,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(v); err != nil {
		return nil, unsupportedError(v)
	}
	return convert(fields, owner, depth+1)
}

func toPlain(v any, depth int) (any, error) {
	if depth > maxDepth {
		return nil, cyclicError()
	}

	switch x := v.(type) {
	case *big.Int:
		if x == nil {
			return nil, nil
		}
		return new(big.Int).Set(x), nil
	case *Map:
		if x == nil {
			return nil, nil
		}
		out := make(map[string]any, len(x.fields))
		for k, fv := range x.fields {
			pv, err := toPlain(fv, depth+1)
			if err != nil {
				return nil, err
			}
			out[k] = pv
		}
		return out, nil
	case *List:
		if x == nil {
			return nil, nil
		}
		out := make([]any, 0, len(x.items))
		for _, iv := range x.items {
			pv, err := toPlain(iv, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, pv)
		}
		return out, nil
	case *ReadMap:
		if x == nil {
			return nil, nil
		}
		return toPlain(x.node, depth)
	case *ReadList:
		if x == nil {
			return nil, nil
		}
		return toPlain(x.node, depth)
	case *WriteMap:
		if x == nil {
			return nil, nil
		}
		return toPlain(x.node, depth)
	case *WriteList:
		if x == nil {
			return nil, nil
		}
		return toPlain(x.node, depth)
	}
	return v, nil
}
