package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/raido/internal/tour"
	"github.com/starford/raido/internal/tourservice"
)

// TitleRequest is the request body for renaming the tour.
type TitleRequest struct {
	Title string `json:"title" example:"Harbor Walk" validate:"required"`
}

// Validate implements request validation.
func (r TitleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
	)
}

// NameRequest is the request body for renaming a scene.
type NameRequest struct {
	Name string `json:"name" example:"Lobby" validate:"required"`
}

// Validate implements request validation.
func (r NameRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
	)
}

// ViewRequest is the request body for setting a scene's initial view.
type ViewRequest struct {
	Yaw   float64 `json:"yaw" example:"1.57"`
	Pitch float64 `json:"pitch" example:"0"`
	Fov   float64 `json:"fov" example:"90"`
}

// Validate implements request validation.
func (r ViewRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Fov, validation.Min(10.0), validation.Max(150.0)),
	)
}

// View converts the request into a domain view.
func (r ViewRequest) View() tour.View {
	return tour.View{Yaw: r.Yaw, Pitch: r.Pitch, Fov: r.Fov}
}

// HotspotRequest is the request body for placing a hotspot. The server
// assigns the hotspot id.
type HotspotRequest struct {
	Type          string  `json:"type" example:"link" validate:"required"`
	Yaw           float64 `json:"yaw" example:"0.5"`
	Pitch         float64 `json:"pitch" example:"-0.1"`
	Title         string  `json:"title,omitempty" example:"Front desk"`
	Text          string  `json:"text,omitempty" example:"Opening hours ..."`
	TargetSceneID string  `json:"targetSceneId,omitempty" example:"scene-17"`
	Rotation      float64 `json:"rotation,omitempty" example:"3.14"`
}

// Validate implements request validation.
func (r HotspotRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Type, validation.Required,
			validation.In(tour.HotspotTypeInfo, tour.HotspotTypeLink)),
		validation.Field(&r.TargetSceneID,
			validation.Required.When(r.Type == tour.HotspotTypeLink)),
	)
}

// Hotspot converts the request into a domain hotspot with a fresh id.
func (r HotspotRequest) Hotspot() tour.Hotspot {
	id := tour.NewID("hs")
	if r.Type == tour.HotspotTypeLink {
		return tour.LinkHotspot{
			ID:            id,
			Yaw:           r.Yaw,
			Pitch:         r.Pitch,
			TargetSceneID: r.TargetSceneID,
			Rotation:      r.Rotation,
		}
	}
	return tour.InfoHotspot{
		ID:    id,
		Yaw:   r.Yaw,
		Pitch: r.Pitch,
		Title: r.Title,
		Text:  r.Text,
	}
}

// HotspotPatchRequest is the request body for editing a hotspot. Absent
// fields keep their current value.
type HotspotPatchRequest struct {
	Yaw           *float64 `json:"yaw,omitempty"`
	Pitch         *float64 `json:"pitch,omitempty"`
	Title         *string  `json:"title,omitempty"`
	Text          *string  `json:"text,omitempty"`
	TargetSceneID *string  `json:"targetSceneId,omitempty"`
	Rotation      *float64 `json:"rotation,omitempty"`
}

// Patch converts the request into a domain patch.
func (r HotspotPatchRequest) Patch() tour.HotspotPatch {
	return tour.HotspotPatch{
		Yaw:           r.Yaw,
		Pitch:         r.Pitch,
		Title:         r.Title,
		Text:          r.Text,
		TargetSceneID: r.TargetSceneID,
		Rotation:      r.Rotation,
	}
}

// ExportRequest is the request body for building a bundle.
type ExportRequest struct {
	Target     string `json:"target,omitempty" example:"exports/harbor-walk"`
	SingleFile bool   `json:"single_file,omitempty" example:"false"`
}

// ExportResponse lists the workspace-relative files an export produced.
type ExportResponse struct {
	Files []string `json:"files" validate:"required"`
}

// ProjectResponse wraps the project document with its dangling link report.
type ProjectResponse struct {
	Project       tour.Project        `json:"project" validate:"required"`
	DanglingLinks []tour.DanglingLink `json:"danglingLinks" validate:"required"`
}

// BatchReport is the per-file outcome of an import (aliased from the domain layer).
type BatchReport = tourservice.BatchReport

// ImportedScene describes one imported file (aliased from the domain layer).
type ImportedScene = tourservice.ImportedScene
