package crt

import (
	"fmt"
	"io"
	"strings"

	"github.com/ohler55/ojg/jp"

	"github.com/etftools/etf/pkg/errors"
	pkgio "github.com/etftools/etf/pkg/io"
)

// Keys of the data exchange document.
const (
	KeyCountrySpecific    = "country_specific_data"
	KeyNodes              = "nodes"
	KeyVariables          = "variables"
	KeyGrids              = "grids"
	KeyLineDescription    = "line_description"
	KeyDimensionInstances = "dimension_instances"
	KeyDropDowns          = "drop_downs"
	KeyData               = "data"
	KeyValues             = "values"
	KeyInventoryYear      = "inventory_year"

	KeyUID              = "uid"
	KeyParentUID        = "parent_uid"
	KeyTemplateNodeUID  = "template_node_uid"
	KeyTemplateVarUID   = "template_var_uid"
	KeyTemplateGroupUID = "template_group_uid"
	KeyNodeUID          = "node_uid"
	KeyVariableUID      = "variable_uid"
	KeyNode             = "node"
	KeyGroup            = "group"
	KeyNamePrefix       = "name_prefix"
	KeyName             = "name"
)

// Object is a decoded JSON object. Numbers are json.Number.
type Object = map[string]any

// Document is a decoded data exchange file.
//
// The document keeps the generic JSON values it was decoded into, so fields
// this package does not know about pass through unchanged.
type Document struct {
	root Object
}

// New wraps an already decoded JSON object.
func New(root Object) *Document {
	return &Document{root: root}
}

// Read decodes a data exchange document from r.
func Read(r io.Reader) (*Document, error) {
	var v any
	if err := pkgio.ReadJSON(r, &v); err != nil {
		return nil, err
	}
	return fromValue(v)
}

// ReadFile decodes the data exchange file at path; "-" reads stdin.
func ReadFile(path string) (*Document, error) {
	var v any
	if err := pkgio.ImportJSON(path, &v); err != nil {
		return nil, err
	}
	return fromValue(v)
}

func fromValue(v any) (*Document, error) {
	root, ok := v.(Object)
	if !ok {
		return nil, errors.MalformedData("", "data document is %s, want object", kind(v))
	}
	return &Document{root: root}, nil
}

// Write encodes the document to w.
func (d *Document) Write(w io.Writer) error {
	return pkgio.WriteJSON(w, d.root)
}

// WriteFile encodes the document to path; "-" writes stdout.
func (d *Document) WriteFile(path string) error {
	return pkgio.ExportJSON(path, d.root)
}

// Root returns the top-level JSON object.
func (d *Document) Root() Object { return d.root }

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	return &Document{root: cloneValue(d.root).(Object)}
}

// ReplaceWith makes d hold the contents of src. src must not be used
// afterwards.
func (d *Document) ReplaceWith(src *Document) {
	d.root = src.root
}

// Section returns the country_specific_data object.
func (d *Document) Section() (Object, error) {
	v, ok := d.root[KeyCountrySpecific]
	if !ok {
		return nil, errors.MalformedData("", "missing %q", KeyCountrySpecific)
	}
	sec, ok := v.(Object)
	if !ok {
		return nil, errors.MalformedData("."+KeyCountrySpecific, "%s, want object", kind(v))
	}
	return sec, nil
}

// Objects returns the list stored under key in country_specific_data.
// A missing list is empty; a list holding anything but objects is
// malformed.
func (d *Document) Objects(key string) ([]Object, error) {
	sec, err := d.Section()
	if err != nil {
		return nil, err
	}
	return objectList(sec[key], fmt.Sprintf(".%s.%s", KeyCountrySpecific, key))
}

// SetObjects replaces the list stored under key in country_specific_data.
func (d *Document) SetObjects(key string, items []Object) error {
	sec, err := d.Section()
	if err != nil {
		return err
	}
	SetList(sec, key, items)
	return nil
}

// SetList stores items as the JSON array obj[key].
func SetList(obj Object, key string, items []Object) {
	obj[key] = toList(items)
}

// AppendObject appends item to the list stored under key in
// country_specific_data, creating the list when missing.
func (d *Document) AppendObject(key string, item Object) error {
	sec, err := d.Section()
	if err != nil {
		return err
	}
	list, _ := sec[key].([]any)
	sec[key] = append(list, item)
	return nil
}

// Inventory is one reporting year of data.values.
type Inventory struct {
	Object Object
	Year   string
	Values []Object
	Path   string
}

// Inventories returns the entries of data.values. A document without
// reported data has none.
func (d *Document) Inventories() ([]Inventory, error) {
	data, ok := d.root[KeyData]
	if !ok || data == nil {
		return nil, nil
	}
	obj, ok := data.(Object)
	if !ok {
		return nil, errors.MalformedData("."+KeyData, "%s, want object", kind(data))
	}
	base := fmt.Sprintf(".%s.%s", KeyData, KeyValues)
	list, err := objectList(obj[KeyValues], base)
	if err != nil {
		return nil, err
	}

	out := make([]Inventory, 0, len(list))
	for i, inv := range list {
		path := fmt.Sprintf("%s[%d]", base, i)
		values, err := objectList(inv[KeyValues], path+"."+KeyValues)
		if err != nil {
			return nil, err
		}
		out = append(out, Inventory{
			Object: inv,
			Year:   String(inv, KeyInventoryYear),
			Values: values,
			Path:   path,
		})
	}
	return out, nil
}

// SetValues replaces the reported values of inv.
func (inv *Inventory) SetValues(values []Object) {
	inv.Values = values
	inv.Object[KeyValues] = toList(values)
}

// Locate evaluates a JSONPath expression against the document and
// returns the first match. A leading "$" is optional.
func (d *Document) Locate(path string) (any, bool, error) {
	if !strings.HasPrefix(path, "$") {
		if !strings.HasPrefix(path, ".") && !strings.HasPrefix(path, "[") {
			path = "." + path
		}
		path = "$" + path
	}
	x, err := jp.ParseString(path)
	if err != nil {
		return nil, false, fmt.Errorf("invalid JSONPath %q: %w", path, err)
	}
	results := x.Get(d.root)
	if len(results) == 0 {
		return nil, false, nil
	}
	return results[0], true, nil
}

// String returns obj[key] when it holds a string.
func String(obj Object, key string) string {
	if obj == nil {
		return ""
	}
	switch v := obj[key].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	return ""
}

// Has reports whether obj carries key, even with a null value.
func Has(obj Object, key string) bool {
	_, ok := obj[key]
	return ok
}

func objectList(v any, path string) ([]Object, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, errors.MalformedData(path, "%s, want array", kind(v))
	}
	out := make([]Object, len(list))
	for i, item := range list {
		obj, ok := item.(Object)
		if !ok {
			return nil, errors.MalformedData(fmt.Sprintf("%s[%d]", path, i), "%s, want object", kind(item))
		}
		out[i] = obj
	}
	return out, nil
}

func toList(items []Object) []any {
	list := make([]any, len(items))
	for i, item := range items {
		list[i] = item
	}
	return list
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case Object:
		out := make(Object, len(x))
		for k, val := range x {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = cloneValue(val)
		}
		return out
	}
	return v
}

// CloneObject returns a deep copy of obj.
func CloneObject(obj Object) Object {
	if obj == nil {
		return nil
	}
	return cloneValue(obj).(Object)
}

func kind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case Object:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	}
	return "number"
}
