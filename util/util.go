package util

import (
	"fmt"
	"reflect"
	"strings"
)

// StructMap flattens the exported fields of a struct (or pointer to one) into a map keyed by field name.
func StructMap(s any) map[string]any {
	out := map[string]any{}
	typ := reflect.TypeOf(s)
	struc := reflect.ValueOf(s)
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
		struc = struc.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return out
	}
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		out[field.Name] = struc.Field(i).Interface()
	}
	return out
}

// SizeLabel renders a byte count the way buffer sizes are labelled in results: "16 KB", "8 MB", "100 MB".
func SizeLabel(bytes int64) string {
	switch {
	case bytes >= 1<<30 && bytes%(1<<30) == 0:
		return fmt.Sprintf("%d GB", bytes>>30)
	case bytes >= 1<<20 && bytes%(1<<20) == 0:
		return fmt.Sprintf("%d MB", bytes>>20)
	case bytes >= 1<<10 && bytes%(1<<10) == 0:
		return fmt.Sprintf("%d KB", bytes>>10)
	}
	return fmt.Sprintf("%d B", bytes)
}

// SplitList splits comma separated values, trimming blanks and dropping empty items.
func SplitList(values ...string) []string {
	out := []string{}
	for _, v := range values {
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

// StructTags returns the names a struct's exported fields carry under tag, in field order. Untagged fields and
// fields tagged "-" are skipped.
func StructTags(s any, tag string) []string {
	out := []string{}
	typ := reflect.TypeOf(s)
	for typ != nil && typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return out
	}
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		name, _, _ := strings.Cut(field.Tag.Get(tag), ",")
		if !field.IsExported() || name == "" || name == "-" {
			continue
		}
		out = append(out, name)
	}
	return out
}
