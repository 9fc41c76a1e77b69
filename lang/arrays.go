package lang

import (
	"mu/sem"
)

// arrayArg extracts a non-nil array from a value
func arrayArg(v sem.Value) (*sem.Array, error) {
	arr, _ := v.Pointer().(*sem.Array)
	if arr == nil {
		return nil, sem.NewException(sem.ExceptionNilArgument, "nil array")
	}

	return arr, nil
}

// elementType is the result type hook of element accessors
func elementType(args []sem.Type) sem.Type {
	if len(args) > 0 {
		if at, ok := args[0].(sem.ArrayType); ok {
			return at.ElementType()
		}
	}

	return nil
}

// indexOf converts index arguments into an offset into the array's elements
func indexOf(arr *sem.Array, args []sem.Value) (int, error) {
	indices := make([]int, len(args))
	for i, a := range args {
		indices[i] = int(a.Int())
	}

	offset, ok := arr.Index(indices...)
	if !ok {
		return 0, sem.NewException(sem.ExceptionBadArgument, "index %v out of range for array of dimensions %v", indices, arr.Dims)
	}

	return offset, nil
}

// checkElement verifies that v can be stored in arr
func checkElement(arr *sem.Array, v sem.Value) error {
	elem := arr.Type().ElementType()
	if v.Type() == nil || !v.Type().IsA(elem) {
		return sem.NewException(sem.ExceptionBadArgument, "cannot store a `%s` in a `%s`", typeName(v.Type()), arr.Type().QualifiedName())
	}

	return nil
}

func typeName(t sem.Type) string {
	if t == nil {
		return "void"
	}

	return t.QualifiedName()
}

func declareArrays(d *declarer) {
	ctx := d.ctx

	d.native("size", ctx.Int, sem.FnMaybePure, func(ev sem.Evaluator, args []sem.Value) (sem.Value, error) {
		arr, err := arrayArg(args[0])
		if err != nil {
			return sem.NoValue, err
		}

		return sem.IntValue(ctx.Int, int64(len(arr.Elems))), nil
	}, sem.Param("array", ctx.AnyArray))

	d.native("dimensions", ctx.DynamicArrayOf(ctx.Int, 1), sem.FnMaybePure, func(ev sem.Evaluator, args []sem.Value) (sem.Value, error) {
		arr, err := arrayArg(args[0])
		if err != nil {
			return sem.NoValue, err
		}

		t := ev.Context().DynamicArrayOf(ctx.Int, 1)
		dims := ev.Context().NewArray(t, []int{len(arr.Dims)})
		for i, n := range arr.Dims {
			dims.Elems[i] = sem.IntValue(ctx.Int, int64(n))
		}

		return sem.PointerValue(t, dims), nil
	}, sem.Param("array", ctx.AnyArray))

	aref := d.native("aref", ctx.Any, sem.FnMaybePure, func(ev sem.Evaluator, args []sem.Value) (sem.Value, error) {
		arr, err := arrayArg(args[0])
		if err != nil {
			return sem.NoValue, err
		}

		offset, err := indexOf(arr, args[1:])
		if err != nil {
			return sem.NoValue, err
		}

		return arr.Elems[offset], nil
	}, sem.Param("array", ctx.AnyArray), sem.Param("index", ctx.Int))
	d.repeat(aref, maxRepeats)
	if aref != nil {
		aref.SetResultType(elementType)
	}

	// (aset array value index...) stores value and returns it
	aset := d.native("aset", ctx.Any, sem.FnNone, func(ev sem.Evaluator, args []sem.Value) (sem.Value, error) {
		arr, err := arrayArg(args[0])
		if err != nil {
			return sem.NoValue, err
		}

		if err := checkElement(arr, args[1]); err != nil {
			return sem.NoValue, err
		}

		offset, err := indexOf(arr, args[2:])
		if err != nil {
			return sem.NoValue, err
		}

		arr.Elems[offset] = args[1]
		return args[1], nil
	}, sem.Param("array", ctx.AnyArray), sem.Param("value", ctx.Any), sem.Param("index", ctx.Int))
	d.repeat(aset, maxRepeats)
	if aset != nil {
		aset.SetResultType(elementType)
	}

	d.native("push", ctx.Void, sem.FnNone, func(ev sem.Evaluator, args []sem.Value) (sem.Value, error) {
		arr, err := arrayArg(args[0])
		if err != nil {
			return sem.NoValue, err
		}

		if arr.Type().Rank() != 1 {
			return sem.NoValue, sem.NewException(sem.ExceptionBadArgument, "push needs a one dimensional array")
		}

		if err := checkElement(arr, args[1]); err != nil {
			return sem.NoValue, err
		}

		arr.Append(args[1])
		return sem.VoidValue(ctx.Void), nil
	}, sem.Param("array", ctx.AnyDynamicArray), sem.Param("value", ctx.Any))

	d.native("resize", ctx.Void, sem.FnNone, func(ev sem.Evaluator, args []sem.Value) (sem.Value, error) {
		arr, err := arrayArg(args[0])
		if err != nil {
			return sem.NoValue, err
		}

		n := int(args[1].Int())
		if arr.Type().Rank() != 1 || n < 0 {
			return sem.NoValue, sem.NewException(sem.ExceptionBadArgument, "cannot resize a `%s` to %d", arr.Type().QualifiedName(), n)
		}

		arr.Resize(n, ev.Context().ZeroValue(arr.Type().ElementType()))
		return sem.VoidValue(ctx.Void), nil
	}, sem.Param("array", ctx.AnyDynamicArray), sem.Param("size", ctx.Int))
}
