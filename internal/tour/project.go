// Package tour defines the versioned virtual tour document and the pure
// operations that create, validate, and mutate it. Every operation returns
// a fresh Project value; inputs are never aliased or modified.
package tour

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/raido/internal/apperr"
)

// Version is the single project document version this build reads and writes.
const Version = 1

// Project is the root tour document. Binary panoramas are never embedded
// here; scenes reference them through the shared scene id so the document
// stays small and diffable.
type Project struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Title     string    `json:"title"`
	Scenes    []Scene   `json:"scenes"`
}

// Scene is one equirectangular panorama with its entry pose and annotations.
type Scene struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Panorama    Panorama  `json:"panorama"`
	InitialView View      `json:"initialView"`
	Hotspots    []Hotspot `json:"hotspots"`
}

// Panorama describes the source image of a scene.
type Panorama struct {
	Type     string `json:"type"`
	Label    string `json:"label,omitempty"`
	FileName string `json:"fileName,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// PanoramaEquirect is the only projection the document format carries.
const PanoramaEquirect = "equirect"

// View is a camera pose: yaw/pitch in radians, fov in degrees.
type View struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	Fov   float64 `json:"fov"`
}

// New creates an empty project document with both timestamps set to now.
func New(title string) Project {
	now := time.Now()
	return Project{
		Version:   Version,
		CreatedAt: now,
		UpdatedAt: now,
		Title:     title,
		Scenes:    []Scene{},
	}
}

// Clone returns a deep copy of the project. Hotspot values are immutable
// once boxed, so copying the slices is sufficient for value semantics.
func (p Project) Clone() Project {
	out := p
	out.Scenes = make([]Scene, len(p.Scenes))
	for i, sc := range p.Scenes {
		out.Scenes[i] = sc.clone()
	}
	return out
}

func (s Scene) clone() Scene {
	out := s
	out.Hotspots = make([]Hotspot, len(s.Hotspots))
	copy(out.Hotspots, s.Hotspots)
	return out
}

// UnmarshalJSON decodes a scene, dispatching hotspots on their type tag.
func (s *Scene) UnmarshalJSON(data []byte) error {
	type shadow struct {
		ID          string            `json:"id"`
		Name        string            `json:"name"`
		Panorama    Panorama          `json:"panorama"`
		InitialView View              `json:"initialView"`
		Hotspots    []json.RawMessage `json:"hotspots"`
	}
	var sh shadow
	if err := json.Unmarshal(data, &sh); err != nil {
		return err
	}
	s.ID = sh.ID
	s.Name = sh.Name
	s.Panorama = sh.Panorama
	s.InitialView = sh.InitialView
	s.Hotspots = make([]Hotspot, 0, len(sh.Hotspots))
	for _, raw := range sh.Hotspots {
		h, err := decodeHotspot(raw)
		if err != nil {
			return err
		}
		s.Hotspots = append(s.Hotspots, h)
	}
	return nil
}

// Encode serializes the project document as indented JSON.
func Encode(p Project) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("tour: encode project: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses and structurally validates a project document.
// Validation is structural only: it does not check hotspot target ids or
// asset presence. Any failure refuses the whole document.
func Decode(data []byte) (Project, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return Project{}, apperr.NewValidationError("", "not a JSON object")
	}

	rawVersion, ok := obj["version"]
	if !ok {
		return Project{}, apperr.NewValidationError("version", "missing")
	}
	var version int
	if err := json.Unmarshal(rawVersion, &version); err != nil {
		return Project{}, apperr.NewValidationError("version", "must be an integer")
	}
	if version != Version {
		return Project{}, &apperr.UnsupportedVersionError{Got: version, Want: Version}
	}

	rawTitle, ok := obj["title"]
	if !ok {
		return Project{}, apperr.NewValidationError("title", "missing")
	}
	var title string
	if err := json.Unmarshal(rawTitle, &title); err != nil {
		return Project{}, apperr.NewValidationError("title", "must be a string")
	}

	rawScenes, ok := obj["scenes"]
	if !ok {
		return Project{}, apperr.NewValidationError("scenes", "missing")
	}
	var scenes []json.RawMessage
	if err := json.Unmarshal(rawScenes, &scenes); err != nil {
		return Project{}, apperr.NewValidationError("scenes", "must be an array")
	}

	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		var verr *apperr.ValidationError
		if errors.As(err, &verr) {
			return Project{}, verr
		}
		return Project{}, apperr.NewValidationError("scenes", err.Error())
	}
	return p, nil
}
