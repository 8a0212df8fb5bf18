package model

import (
	"bytes"
	"encoding/json"
	"errors"

	mapset "github.com/deckarep/golang-set/v2"
)

var errInvalidLink = errors.New("invalid link entry, expected a target id or {target, azimuth, azimuthOffset}")

// Link is a directed edge from the owning panophoto to Target.
// Links are kept symmetric: the target holds a matching entry pointing back,
// with its own azimuth and its own offset.
type Link struct {
	Target        string  `json:"target"`
	Azimuth       float64 `json:"azimuth"`
	AzimuthOffset float64 `json:"azimuthOffset"`

	// legacy links were stored as a bare target id; the azimuth is unknown
	// until the entry is rewritten.
	legacy bool
}

// NewLegacyLink builds the bare-reference form of a link.
func NewLegacyLink(target string) Link {
	return Link{Target: target, legacy: true}
}

// Legacy reports whether the entry was decoded from the bare-reference form
// or lacks a stored azimuth.
func (l Link) Legacy() bool {
	return l.legacy
}

// MarshalJSON writes a legacy entry back without an azimuth, keeping it legacy
// until it is upserted.
func (l Link) MarshalJSON() ([]byte, error) {
	if !l.legacy {
		type structured Link
		return json.Marshal(structured(l))
	}
	if l.AzimuthOffset == 0 {
		return json.Marshal(l.Target)
	}

	return json.Marshal(struct {
		Target        string  `json:"target"`
		AzimuthOffset float64 `json:"azimuthOffset"`
	}{l.Target, l.AzimuthOffset})
}

func (l *Link) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var target string
		if err := json.Unmarshal(data, &target); err != nil {
			return err
		}
		*l = NewLegacyLink(target)
		return nil
	}

	var raw struct {
		Target        json.RawMessage `json:"target"`
		ID            string          `json:"_id"`
		Azimuth       *float64        `json:"azimuth"`
		AzimuthOffset *float64        `json:"azimuthOffset"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	target := raw.ID
	if len(raw.Target) > 0 {
		// target may itself be a populated record
		var nested Link
		if err := nested.UnmarshalJSON(raw.Target); err != nil {
			return err
		}
		target = nested.Target
	}
	if target == "" {
		return errInvalidLink
	}

	*l = Link{Target: target, legacy: raw.Azimuth == nil}
	if raw.Azimuth != nil {
		l.Azimuth = *raw.Azimuth
	}
	if raw.AzimuthOffset != nil {
		l.AzimuthOffset = *raw.AzimuthOffset
	}

	return nil
}

// LinkList is the ordered link collection embedded in a panophoto.
type LinkList []Link

// Find returns the first entry pointing at target.
func (l LinkList) Find(target string) (Link, bool) {
	for _, link := range l {
		if link.Target == target {
			return link, true
		}
	}
	return Link{}, false
}

// TargetIDs returns the distinct targets in first-seen order.
func (l LinkList) TargetIDs() []string {
	seen := mapset.NewThreadUnsafeSet[string]()
	ids := make([]string, 0, len(l))
	for _, link := range l {
		if link.Target == "" || seen.Contains(link.Target) {
			continue
		}
		seen.Add(link.Target)
		ids = append(ids, link.Target)
	}
	return ids
}

// TargetSet returns the distinct targets as a set.
func (l LinkList) TargetSet() mapset.Set[string] {
	return mapset.NewThreadUnsafeSet(l.TargetIDs()...)
}

// HasLegacy reports whether any entry still needs to be upgraded.
func (l LinkList) HasLegacy() bool {
	for _, link := range l {
		if link.legacy {
			return true
		}
	}
	return false
}

// Upsert returns a list holding exactly one structured entry for target with
// the given azimuth. The offset of the first structured entry is kept, else the
// offset a legacy entry carried. Legacy entries and duplicates for target are
// folded into that single entry, which stays at the position of the first
// occurrence.
func (l LinkList) Upsert(target string, azimuth float64) (LinkList, bool) {
	offset, found := 0.0, false
	for _, link := range l {
		if link.Target != target {
			continue
		}
		if !link.legacy {
			offset = link.AzimuthOffset
			break
		}
		if !found {
			offset, found = link.AzimuthOffset, true
		}
	}

	entry := Link{Target: target, Azimuth: azimuth, AzimuthOffset: offset}
	out := make(LinkList, 0, len(l)+1)
	placed, changed := false, false
	for _, link := range l {
		if link.Target != target {
			out = append(out, link)
			continue
		}
		if placed {
			changed = true
			continue
		}
		placed = true
		if link != entry {
			changed = true
		}
		out = append(out, entry)
	}
	if !placed {
		out = append(out, entry)
		changed = true
	}

	return out, changed
}

// Remove drops every entry, structured or legacy, pointing at target.
func (l LinkList) Remove(target string) (LinkList, bool) {
	out := make(LinkList, 0, len(l))
	for _, link := range l {
		if link.Target != target {
			out = append(out, link)
		}
	}
	return out, len(out) != len(l)
}

// SetOffset replaces the offset of the structured entry for target.
// It reports false when no entry for target exists.
func (l LinkList) SetOffset(target string, offset float64) (LinkList, bool) {
	out := make(LinkList, len(l))
	copy(out, l)
	for i := range out {
		if out[i].Target == target {
			out[i].AzimuthOffset = offset
			return out, true
		}
	}
	return out, false
}
