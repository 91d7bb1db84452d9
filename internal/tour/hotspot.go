package tour

import (
	"encoding/json"

	"github.com/starford/raido/internal/apperr"
)

// Hotspot type tags as they appear in the project document.
const (
	HotspotTypeInfo = "info"
	HotspotTypeLink = "link"
)

// Hotspot is a point annotation at an angular position on a panorama.
// It is a closed union: the only implementations are InfoHotspot and
// LinkHotspot, and every consumer switches exhaustively on the concrete
// type rather than sniffing fields.
type Hotspot interface {
	// HotspotID returns the id, unique within the owning scene.
	HotspotID() string
	// Position returns the angular placement in radians.
	Position() (yaw, pitch float64)

	isHotspot()
}

// InfoHotspot is a point annotation with no navigational effect.
type InfoHotspot struct {
	ID    string  `json:"id"`
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	Title string  `json:"title,omitempty"`
	Text  string  `json:"text,omitempty"`
}

func (h InfoHotspot) HotspotID() string              { return h.ID }
func (h InfoHotspot) Position() (yaw, pitch float64) { return h.Yaw, h.Pitch }
func (InfoHotspot) isHotspot()                       {}

// LinkHotspot switches the active scene to TargetSceneID when activated.
// Rotation orients the arrow glyph only; it has no navigational meaning.
// TargetSceneID is a soft reference: write-time operations accept any id,
// and DanglingLinks reports targets that no longer exist.
type LinkHotspot struct {
	ID            string  `json:"id"`
	Yaw           float64 `json:"yaw"`
	Pitch         float64 `json:"pitch"`
	TargetSceneID string  `json:"targetSceneId"`
	Rotation      float64 `json:"rotation,omitempty"`
}

func (h LinkHotspot) HotspotID() string              { return h.ID }
func (h LinkHotspot) Position() (yaw, pitch float64) { return h.Yaw, h.Pitch }
func (LinkHotspot) isHotspot()                       {}

// MarshalJSON injects the discriminating type tag.
func (h InfoHotspot) MarshalJSON() ([]byte, error) {
	type alias InfoHotspot
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: HotspotTypeInfo, alias: alias(h)})
}

// MarshalJSON injects the discriminating type tag.
func (h LinkHotspot) MarshalJSON() ([]byte, error) {
	type alias LinkHotspot
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{Type: HotspotTypeLink, alias: alias(h)})
}

func decodeHotspot(raw json.RawMessage) (Hotspot, error) {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, apperr.NewValidationError("hotspots", "hotspot is not an object")
	}
	switch tag.Type {
	case HotspotTypeInfo:
		var h InfoHotspot
		if err := json.Unmarshal(raw, &h); err != nil {
			return nil, apperr.NewValidationError("hotspots", err.Error())
		}
		return h, nil
	case HotspotTypeLink:
		var h LinkHotspot
		if err := json.Unmarshal(raw, &h); err != nil {
			return nil, apperr.NewValidationError("hotspots", err.Error())
		}
		return h, nil
	default:
		return nil, apperr.NewValidationError("hotspots", "unknown hotspot type "+tag.Type)
	}
}

// HotspotPatch carries field-level updates for UpdateHotspot. Nil fields are
// left untouched. Fields that do not apply to the hotspot's variant are
// ignored.
type HotspotPatch struct {
	Yaw           *float64 `json:"yaw,omitempty"`
	Pitch         *float64 `json:"pitch,omitempty"`
	Title         *string  `json:"title,omitempty"`
	Text          *string  `json:"text,omitempty"`
	TargetSceneID *string  `json:"targetSceneId,omitempty"`
	Rotation      *float64 `json:"rotation,omitempty"`
}

func applyPatch(h Hotspot, patch HotspotPatch) Hotspot {
	switch v := h.(type) {
	case InfoHotspot:
		if patch.Yaw != nil {
			v.Yaw = *patch.Yaw
		}
		if patch.Pitch != nil {
			v.Pitch = *patch.Pitch
		}
		if patch.Title != nil {
			v.Title = *patch.Title
		}
		if patch.Text != nil {
			v.Text = *patch.Text
		}
		return v
	case LinkHotspot:
		if patch.Yaw != nil {
			v.Yaw = *patch.Yaw
		}
		if patch.Pitch != nil {
			v.Pitch = *patch.Pitch
		}
		if patch.TargetSceneID != nil {
			v.TargetSceneID = *patch.TargetSceneID
		}
		if patch.Rotation != nil {
			v.Rotation = *patch.Rotation
		}
		return v
	default:
		return h
	}
}
