package segments

import (
	"maps"
	"slices"
	"strings"
)

// Dict maps instrument names to their coverage.
type Dict map[string]List

// Clone returns a deep copy of d.
func (d Dict) Clone() Dict {
	out := make(Dict, len(d))
	for key, list := range d {
		out[key] = slices.Clone(list)
	}

	return out
}

// Keys returns the instruments of d in sorted order.
func (d Dict) Keys() []string {
	return slices.Sorted(maps.Keys(d))
}

// IsEmpty reports whether no instrument in d covers any time.
func (d Dict) IsEmpty() bool {
	for _, list := range d {
		if len(list) > 0 {
			return false
		}
	}

	return true
}

// Union returns the per-instrument union of d and o.
func (d Dict) Union(o Dict) Dict {
	out := d.Clone()

	for key, list := range o {
		out[key] = out[key].Union(list)
	}

	return out
}

// Intersect returns the per-instrument intersection of d and o. Instruments
// missing from either side, or left empty, are omitted.
func (d Dict) Intersect(o Dict) Dict {
	out := make(Dict)

	for key, list := range d {
		other, ok := o[key]
		if !ok {
			continue
		}

		if common := list.Intersect(other); len(common) > 0 {
			out[key] = common
		}
	}

	return out
}

// Clip returns every list of d restricted to seg, omitting instruments that
// become empty.
func (d Dict) Clip(seg Segment) Dict {
	out := make(Dict)

	for key, list := range d {
		if clipped := list.Clip(seg); len(clipped) > 0 {
			out[key] = clipped
		}
	}

	return out
}

// Shift returns a copy of d in which the instruments named by offsets are
// moved by their offset. Other instruments are copied unchanged.
func (d Dict) Shift(offsets map[string]Time) Dict {
	out := make(Dict, len(d))

	for key, list := range d {
		if offset, ok := offsets[key]; ok {
			out[key] = list.Shift(offset)

			continue
		}

		out[key] = slices.Clone(list)
	}

	return out
}

// ShiftKeys returns the instruments of d named by offsets, each moved by its
// offset. Instruments not named are left out.
func (d Dict) ShiftKeys(offsets map[string]Time) Dict {
	out := make(Dict, len(offsets))

	for key, offset := range offsets {
		if list, ok := d[key]; ok {
			out[key] = list.Shift(offset)
		}
	}

	return out
}

// IsCoincident reports whether any list of d intersects any list of o, with
// both sides restricted to keys. Keys missing from either side are ignored.
// A nil keys slice considers every instrument.
func (d Dict) IsCoincident(o Dict, keys []string) bool {
	mine := d.restrict(keys)
	theirs := o.restrict(keys)

	for _, a := range mine {
		for _, b := range theirs {
			if a.Intersects(b) {
				return true
			}
		}
	}

	return false
}

func (d Dict) restrict(keys []string) []List {
	if keys == nil {
		keys = d.Keys()
	}

	lists := make([]List, 0, len(keys))

	for _, key := range keys {
		if list, ok := d[key]; ok && len(list) > 0 {
			lists = append(lists, list)
		}
	}

	return lists
}

// IntersectsAll reports whether every list in o intersects the list d holds
// for the same instrument. It is false when o has no lists.
func (d Dict) IntersectsAll(o Dict) bool {
	if len(o) == 0 {
		return false
	}

	for key, list := range o {
		if !d[key].Intersects(list) {
			return false
		}
	}

	return true
}

// IntersectsSegment reports whether any list in d overlaps seg.
func (d Dict) IntersectsSegment(seg Segment) bool {
	for _, list := range d {
		if list.IntersectsSegment(seg) {
			return true
		}
	}

	return false
}

// ExtentAll returns the smallest segment containing every segment of every
// list in d. The boolean is false when d covers no time.
func (d Dict) ExtentAll() (Segment, bool) {
	var (
		extent Segment
		found  bool
	)

	for _, list := range d {
		listExtent, ok := list.Extent()
		if !ok {
			continue
		}

		if !found {
			extent, found = listExtent, true

			continue
		}

		extent = extent.Hull(listExtent)
	}

	return extent, found
}

// ExtractCommon returns a Dict in which each of keys maps to the time covered
// by all of keys' lists. If any key is missing from d the result is empty.
func (d Dict) ExtractCommon(keys []string) Dict {
	if len(keys) == 0 {
		return Dict{}
	}

	common, ok := d[keys[0]]
	if !ok {
		return Dict{}
	}

	for _, key := range keys[1:] {
		list, ok := d[key]
		if !ok {
			return Dict{}
		}

		common = common.Intersect(list)
	}

	out := make(Dict, len(keys))

	if len(common) == 0 {
		return out
	}

	for _, key := range keys {
		out[key] = slices.Clone(common)
	}

	return out
}

// Epoch returns the earliest start time in d. The boolean is false when d
// covers no time.
func (d Dict) Epoch() (Time, bool) {
	extent, ok := d.ExtentAll()

	return extent.Start, ok
}

// Normalize returns d with every time expressed relative to epoch.
func (d Dict) Normalize(epoch Time) Dict {
	out := make(Dict, len(d))
	for key, list := range d {
		out[key] = list.Shift(-epoch)
	}

	return out
}

// Denormalize reverses [Dict.Normalize] for the same epoch.
func (d Dict) Denormalize(epoch Time) Dict {
	out := make(Dict, len(d))
	for key, list := range d {
		out[key] = list.Shift(epoch)
	}

	return out
}

func (d Dict) String() string {
	keys := d.Keys()
	parts := make([]string, len(keys))

	for i, key := range keys {
		parts[i] = key + ": " + d[key].String()
	}

	return "{" + strings.Join(parts, ", ") + "}"
}
