// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package transform

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	lua "github.com/yuin/gopher-lua"

	"github.com/gardener/es-timeslicer/pkg/util/elasticsearch/bulk"
)

// unsafeGlobals are removed from the interpreter so that scripts cannot load other code.
var unsafeGlobals = []string{"dofile", "loadfile", "load", "loadstring", "require", "module", "package"}

const (
	// arrayMetatable is the registry name of the metatable that marks tables converted from json arrays.
	arrayMetatable = "es_timeslicer.array"
	jsonTypeField  = "__jsontype"
	jsonTypeArray  = "array"
)

type luaFunc struct {
	file  string
	name  string
	state *lua.LState
	fn    *lua.LFunction
}

// LoadLua evaluates the script in a restricted interpreter and returns the only global function it defines.
func LoadLua(file string) (Func, error) {
	src, err := os.ReadFile(filepath.Clean(file))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read transform file %s", file)
	}

	L, err := newSandbox()
	if err != nil {
		return nil, err
	}
	before := map[string]lua.LValue{}
	L.G.Global.ForEach(func(k, v lua.LValue) {
		before[k.String()] = v
	})

	chunk, err := L.Load(strings.NewReader(string(src)), filepath.Base(file))
	if err != nil {
		L.Close()
		return nil, errors.Wrapf(err, "unable to parse transform file %s", file)
	}
	L.Push(chunk)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		L.Close()
		return nil, errors.Wrapf(err, "unable to evaluate transform file %s", file)
	}
	L.SetTop(0)

	functions := map[string]*lua.LFunction{}
	L.G.Global.ForEach(func(k, v lua.LValue) {
		if prev, ok := before[k.String()]; ok && prev == v {
			return
		}
		if fn, ok := v.(*lua.LFunction); ok {
			functions[k.String()] = fn
		}
	})
	if len(functions) != 1 {
		L.Close()
		names := make([]string, 0, len(functions))
		for name := range functions {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, errors.Errorf("transform file %s has to define exactly one function but defines %d %v", file, len(functions), names)
	}

	f := &luaFunc{file: file, state: L}
	for name, fn := range functions {
		f.name = name
		f.fn = fn
	}
	return f, nil
}

func newSandbox() (*lua.LState, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, errors.Wrapf(err, "unable to open lua library %s", lib.name)
		}
	}
	for _, name := range unsafeGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	L.SetField(L.NewTypeMetatable(arrayMetatable), jsonTypeField, lua.LString(jsonTypeArray))
	return L, nil
}

func (f *luaFunc) Transform(ctx context.Context, result map[string]interface{}, writeIndex, pipeline string) ([]bulk.Record, error) {
	f.state.SetContext(ctx)
	defer f.state.RemoveContext()

	var pl lua.LValue = lua.LNil
	if pipeline != "" {
		pl = lua.LString(pipeline)
	}
	if err := f.state.CallByParam(lua.P{
		Fn:      f.fn,
		NRet:    1,
		Protect: true,
	}, toLua(f.state, result), lua.LString(writeIndex), pl); err != nil {
		return nil, errors.Wrapf(err, "error executing function %q of %s", f.name, f.file)
	}
	ret := f.state.Get(-1)
	f.state.Pop(1)

	records, err := toRecords(ret)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid result of function %q of %s", f.name, f.file)
	}
	return records, nil
}

func (f *luaFunc) Close() error {
	f.state.Close()
	return nil
}

func toLua(L *lua.LState, value interface{}) lua.LValue {
	switch v := value.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(v)
	case float64:
		return lua.LNumber(v)
	case int:
		return lua.LNumber(v)
	case int64:
		return lua.LNumber(v)
	case string:
		return lua.LString(v)
	case []interface{}:
		tbl := L.CreateTable(len(v), 0)
		for _, item := range v {
			tbl.Append(toLua(L, item))
		}
		L.SetMetatable(tbl, L.GetTypeMetatable(arrayMetatable))
		return tbl
	case map[string]interface{}:
		tbl := L.CreateTable(0, len(v))
		for key, item := range v {
			tbl.RawSetString(key, toLua(L, item))
		}
		return tbl
	default:
		return lua.LNil
	}
}

func fromLua(value lua.LValue) (interface{}, error) {
	switch v := value.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LBool:
		return bool(v), nil
	case lua.LNumber:
		return float64(v), nil
	case lua.LString:
		return string(v), nil
	case *lua.LTable:
		return tableToGo(v)
	default:
		return nil, errors.Errorf("values of type %s cannot be converted to json", value.Type().String())
	}
}

// isArray reports whether tbl was converted from a json array.
func isArray(tbl *lua.LTable) bool {
	mt, ok := tbl.Metatable.(*lua.LTable)
	return ok && mt.RawGetString(jsonTypeField) == lua.LString(jsonTypeArray)
}

// tableToGo converts sequences into lists and all other tables into objects.
// Empty tables are converted into empty objects unless they were json arrays.
func tableToGo(tbl *lua.LTable) (interface{}, error) {
	n := 0
	isList := true
	tbl.ForEach(func(k, _ lua.LValue) {
		n++
		num, ok := k.(lua.LNumber)
		if !ok || float64(num) != math.Trunc(float64(num)) || num < 1 {
			isList = false
		}
	})
	if n == 0 {
		if isArray(tbl) {
			return []interface{}{}, nil
		}
		return map[string]interface{}{}, nil
	}

	var convErr error
	if isList && tbl.Len() == n {
		list := make([]interface{}, 0, n)
		for i := 1; i <= n; i++ {
			item, err := fromLua(tbl.RawGetInt(i))
			if err != nil {
				return nil, err
			}
			list = append(list, item)
		}
		return list, nil
	}

	obj := make(map[string]interface{}, n)
	tbl.ForEach(func(k, v lua.LValue) {
		if convErr != nil {
			return
		}
		item, err := fromLua(v)
		if err != nil {
			convErr = errors.Wrapf(err, "key %s", k.String())
			return
		}
		obj[k.String()] = item
	})
	if convErr != nil {
		return nil, convErr
	}
	return obj, nil
}

// toRecords converts the return value of a transform function into records.
// nil and empty tables mean no records.
func toRecords(value lua.LValue) ([]bulk.Record, error) {
	if value == lua.LNil {
		return nil, nil
	}
	tbl, ok := value.(*lua.LTable)
	if !ok {
		return nil, errors.Errorf("expected a list of records but got %s", value.Type().String())
	}
	converted, err := tableToGo(tbl)
	if err != nil {
		return nil, err
	}
	switch v := converted.(type) {
	case map[string]interface{}:
		if len(v) == 0 {
			return nil, nil
		}
		return nil, errors.New("expected a list of records but got a single table")
	case []interface{}:
		records := make([]bulk.Record, 0, len(v))
		for i, item := range v {
			obj, ok := item.(map[string]interface{})
			if !ok {
				return nil, errors.Errorf("record %d is not a table", i+1)
			}
			records = append(records, bulk.Record(obj))
		}
		return records, nil
	default:
		return nil, errors.Errorf("unexpected result type %T", converted)
	}
}
