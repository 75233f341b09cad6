package models

import (
	"math"
	"reflect"
)

// Sanitize walks v in place and replaces every non-finite float it can reach
// with the missing marker: nil for pointer fields, interface values and map
// entries. Plain float fields and float slice elements cannot hold nil and are
// set to 0 instead, so any output value that may be missing is a *float64.
// v must be a pointer, slice or map.
func Sanitize(v any) {
	sanitizeValue(reflect.ValueOf(v))
}

func sanitizeValue(v reflect.Value) {
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return
		}
		elem := v.Elem()
		if isFloat(elem.Kind()) {
			if nonFinite(elem.Float()) && v.CanSet() {
				v.Set(reflect.Zero(v.Type()))
			}
			return
		}
		sanitizeValue(elem)
	case reflect.Interface:
		if v.IsNil() {
			return
		}
		inner := v.Elem()
		if isFloat(inner.Kind()) && nonFinite(inner.Float()) {
			if v.CanSet() {
				v.Set(reflect.Zero(v.Type()))
			}
			return
		}
		if inner.Kind() == reflect.Map || inner.Kind() == reflect.Slice || inner.Kind() == reflect.Pointer {
			sanitizeValue(inner)
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			field := v.Field(i)
			if !field.CanSet() {
				continue
			}
			if isFloat(field.Kind()) {
				if nonFinite(field.Float()) {
					field.SetFloat(0)
				}
				continue
			}
			sanitizeValue(field)
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			item := v.Index(i)
			if isFloat(item.Kind()) {
				if item.CanSet() && nonFinite(item.Float()) {
					item.SetFloat(0)
				}
				continue
			}
			sanitizeValue(item)
		}
	case reflect.Map:
		if v.IsNil() {
			return
		}
		iter := v.MapRange()
		for iter.Next() {
			val := iter.Value()
			switch {
			case val.Kind() == reflect.Interface && !val.IsNil() && isFloat(val.Elem().Kind()):
				if nonFinite(val.Elem().Float()) {
					v.SetMapIndex(iter.Key(), reflect.Zero(val.Type()))
				}
			case val.Kind() == reflect.Pointer && !val.IsNil() && isFloat(val.Elem().Kind()):
				if nonFinite(val.Elem().Float()) {
					v.SetMapIndex(iter.Key(), reflect.Zero(val.Type()))
				}
			case isFloat(val.Kind()):
				if nonFinite(val.Float()) {
					v.SetMapIndex(iter.Key(), reflect.Zero(val.Type()))
				}
			default:
				// map values are not addressable; recurse through their
				// reference types only
				if val.Kind() == reflect.Interface && !val.IsNil() {
					val = val.Elem()
				}
				if val.Kind() == reflect.Map || val.Kind() == reflect.Slice || val.Kind() == reflect.Pointer {
					sanitizeValue(val)
				}
			}
		}
	}
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func nonFinite(f float64) bool {
	return math.IsNaN(f) || math.IsInf(f, 0)
}
