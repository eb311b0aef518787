package twinconfig

import (
	"github.com/tidwall/gjson"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Extension owns the event-priority part of the namespace object.
//
// Update runs while the store holds its write lock. It must return promptly
// and must not call back into the store. Errors wrapping ErrTypeMismatch mark
// the event-priority status as rejected; any other error aborts the update.
// Update must leave its state untouched when it returns an error.
//
// Serialize runs under the store's read lock and adds the extension's keys to
// dst, the namespace object of the reported document.
type Extension interface {
	Update(scope gjson.Result) error
	Serialize(dst *orderedmap.OrderedMap[string, any]) error
}

// NoopExtension accepts every document and reports nothing.
type NoopExtension struct{}

func (NoopExtension) Update(gjson.Result) error { return nil }

func (NoopExtension) Serialize(*orderedmap.OrderedMap[string, any]) error { return nil }
