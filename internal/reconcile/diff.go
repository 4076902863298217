// Package reconcile computes the minimal set of extra-field attribute
// upserts and deletes to submit, relative to the snapshot taken when the
// asset was fetched. The backend accepts a flat array of attribute
// changes rather than a full replace, so sending only the delta avoids
// clobbering concurrently edited attributes and keeps requests small.
package reconcile

import (
	"sort"
	"strings"

	"github.com/helloakshay27/hi-society-assets/internal/types"
)

// changeSet accumulates attribute changes de-duplicated by field key:
// last write wins, first-seen insertion order is preserved for the
// final array.
type changeSet struct {
	order []types.FieldKey
	byKey map[types.FieldKey]types.AttributeChange
}

func newChangeSet() *changeSet {
	return &changeSet{byKey: make(map[types.FieldKey]types.AttributeChange)}
}

func (c *changeSet) put(key types.FieldKey, change types.AttributeChange) {
	if _, seen := c.byKey[key]; !seen {
		c.order = append(c.order, key)
	}
	c.byKey[key] = change
}

func (c *changeSet) list() []types.AttributeChange {
	if len(c.order) == 0 {
		return nil
	}
	out := make([]types.AttributeChange, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.byKey[key])
	}
	return out
}

// BuildChangedAttributes diffs the live form's custom fields, IT-asset
// custom fields and standard extra-field entries against the original
// snapshot. The result contains upserts for new or value-changed fields
// (update vs insert distinguished by the presence of the original id)
// and tombstones for custom fields removed from the live state. Running
// it twice on an unchanged state yields an empty result.
func BuildChangedAttributes(
	customFields map[string][]types.CustomField,
	itCustomFields map[string][]types.CustomField,
	entries map[types.FieldKey]types.ExtraFieldEntry,
	snapshot []types.SavedAttribute,
) []types.AttributeChange {
	original := make(map[types.FieldKey]types.SavedAttribute, len(snapshot))
	for _, attr := range snapshot {
		original[attr.Key()] = attr
	}

	changes := newChangeSet()

	// 1. Custom fields, section-scoped then IT-scoped. Only non-empty
	// values qualify, and only when the value actually changed.
	upsertCustom(changes, customFields, original)
	upsertCustom(changes, itCustomFields, original)

	// 2. Standard entries. Keys already composed with their group get
	// the repeated prefix stripped; date values are canonicalized.
	for _, key := range sortedEntryKeys(entries) {
		entry := entries[key]
		if entry.FieldDescription == types.CustomFieldDescription {
			continue
		}
		group := entry.GroupType
		if group == "" {
			group = key.Group
		}
		name := strings.TrimPrefix(key.Name, group+"_")
		value := entry.Value
		if entry.FieldType == types.FieldTypeDate {
			value = types.CanonicalDate(value)
		}
		if value == "" {
			continue
		}
		normKey := types.FieldKey{Group: group, Name: name}
		orig, existed := original[normKey]
		if existed && !valueChanged(entry.FieldType, value, orig.FieldValue) {
			continue
		}
		change := types.AttributeChange{
			FieldName:        name,
			FieldValue:       value,
			GroupName:        group,
			FieldDescription: entry.FieldDescription,
		}
		if existed {
			change.ID = orig.ID
		}
		changes.put(normKey, change)
	}

	// 3. Deletion pass: snapshot custom fields absent from the live
	// maps become tombstones carrying the original id.
	present := presentCustomKeys(customFields, itCustomFields)
	for _, attr := range snapshot {
		if attr.FieldDescription != types.CustomFieldDescription {
			continue
		}
		if present[attr.Key()] {
			continue
		}
		changes.put(attr.Key(), types.AttributeChange{
			ID:               attr.ID,
			FieldName:        attr.FieldName,
			FieldValue:       "",
			GroupName:        attr.GroupName,
			FieldDescription: types.CustomFieldDescription,
			Destroy:          true,
		})
	}

	return changes.list()
}

func upsertCustom(changes *changeSet, fields map[string][]types.CustomField, original map[types.FieldKey]types.SavedAttribute) {
	for _, group := range sortedGroups(fields) {
		for _, f := range fields[group] {
			if f.Value == "" {
				continue
			}
			key := types.FieldKey{Group: group, Name: f.Name}
			orig, existed := original[key]
			if existed && orig.FieldValue == f.Value {
				continue
			}
			change := types.AttributeChange{
				FieldName:        f.Name,
				FieldValue:       f.Value,
				GroupName:        group,
				FieldDescription: types.CustomFieldDescription,
			}
			switch {
			case existed && orig.ID != nil:
				change.ID = orig.ID
			case f.ID != nil:
				change.ID = f.ID
			}
			changes.put(key, change)
		}
	}
}

// valueChanged compares stringified values. Dates compare in canonical
// form so "2024-01-02T00:00:00Z" and "2024-01-02" count as unchanged.
func valueChanged(ft types.FieldType, newValue, origValue string) bool {
	if ft == types.FieldTypeDate {
		return newValue != types.CanonicalDate(origValue)
	}
	return newValue != origValue
}

func presentCustomKeys(maps ...map[string][]types.CustomField) map[types.FieldKey]bool {
	present := make(map[types.FieldKey]bool)
	for _, m := range maps {
		for group, fields := range m {
			for _, f := range fields {
				present[types.FieldKey{Group: group, Name: f.Name}] = true
			}
		}
	}
	return present
}

func sortedGroups(m map[string][]types.CustomField) []string {
	groups := make([]string, 0, len(m))
	for g := range m {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

func sortedEntryKeys(entries map[types.FieldKey]types.ExtraFieldEntry) []types.FieldKey {
	keys := make([]types.FieldKey, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Group != keys[j].Group {
			return keys[i].Group < keys[j].Group
		}
		return keys[i].Name < keys[j].Name
	})
	return keys
}
