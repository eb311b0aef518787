package twinconfig

import (
	"fmt"

	"github.com/tidwall/gjson"
)

var emptyScope = gjson.Parse("{}")

// resolveScope parses document and returns the namespace object the fields
// are read from. A missing or null namespace yields an empty object.
func resolveScope(document []byte, mode Mode, namespace string) (gjson.Result, error) {
	if !gjson.ValidBytes(document) {
		return gjson.Result{}, fmt.Errorf("%w: invalid JSON", ErrDocument)
	}
	root := gjson.ParseBytes(document)
	if !root.IsObject() {
		return gjson.Result{}, fmt.Errorf("%w: top level is %s", ErrDocument, root.Type)
	}
	if mode == ModeComplete {
		desired, ok := member(root, DesiredKey)
		if !ok || !desired.IsObject() {
			return gjson.Result{}, fmt.Errorf("%w: %q object not found", ErrParse, DesiredKey)
		}
		root = desired
	}
	scope, ok := member(root, namespace)
	if !ok || scope.Type == gjson.Null {
		return emptyScope, nil
	}
	if !scope.IsObject() {
		return gjson.Result{}, fmt.Errorf("%w: %q is %s, not an object", ErrParse, namespace, scope.Type)
	}
	return scope, nil
}
