package tour

import (
	"fmt"
	"time"

	"github.com/starford/raido/internal/apperr"
)

// touch stamps a mutation. Every mutating operation in this package is
// defined as "apply a field-level change to a clone, then touch".
func touch(p Project) Project {
	p.UpdatedAt = time.Now()
	return p
}

// SetTitle returns a copy of p with a new title.
func SetTitle(p Project, title string) Project {
	out := p.Clone()
	out.Title = title
	return touch(out)
}

// AppendScenes returns a copy of p with the given scenes appended in order.
func AppendScenes(p Project, scenes ...Scene) Project {
	out := p.Clone()
	for _, sc := range scenes {
		out.Scenes = append(out.Scenes, sc.clone())
	}
	return touch(out)
}

// RemoveScene returns a copy of p without the given scene. Link hotspots in
// other scenes that target it are left in place; they are reported by
// DanglingLinks and skipped at export time.
func RemoveScene(p Project, sceneID string) (Project, error) {
	out := p.Clone()
	for i, sc := range out.Scenes {
		if sc.ID == sceneID {
			out.Scenes = append(out.Scenes[:i], out.Scenes[i+1:]...)
			return touch(out), nil
		}
	}
	return Project{}, fmt.Errorf("tour: scene %s: %w", sceneID, apperr.ErrNotFound)
}

// RenameScene returns a copy of p with the scene's display name replaced.
func RenameScene(p Project, sceneID, name string) (Project, error) {
	return updateScene(p, sceneID, func(sc *Scene) {
		sc.Name = name
	})
}

// SetInitialView returns a copy of p with the scene's entry pose replaced.
func SetInitialView(p Project, sceneID string, v View) (Project, error) {
	return updateScene(p, sceneID, func(sc *Scene) {
		sc.InitialView = v
	})
}

// UpdateScenePanorama returns a copy of p with the scene's panorama
// descriptor replaced, used when a scene's asset is re-imported.
func UpdateScenePanorama(p Project, sceneID string, pano Panorama) (Project, error) {
	return updateScene(p, sceneID, func(sc *Scene) {
		sc.Panorama = pano
	})
}

// UpdateSceneHotspots returns a copy of p with the scene's hotspot list
// replaced wholesale.
func UpdateSceneHotspots(p Project, sceneID string, hotspots []Hotspot) (Project, error) {
	return updateScene(p, sceneID, func(sc *Scene) {
		sc.Hotspots = make([]Hotspot, len(hotspots))
		copy(sc.Hotspots, hotspots)
	})
}

// AddHotspot returns a copy of p with the hotspot appended to the scene.
func AddHotspot(p Project, sceneID string, h Hotspot) (Project, error) {
	out, err := updateScene(p, sceneID, func(sc *Scene) {
		sc.Hotspots = append(sc.Hotspots, h)
	})
	if err != nil {
		return Project{}, err
	}
	return out, nil
}

// UpdateHotspot returns a copy of p with patch applied to one hotspot.
func UpdateHotspot(p Project, sceneID, hotspotID string, patch HotspotPatch) (Project, error) {
	found := false
	out, err := updateScene(p, sceneID, func(sc *Scene) {
		for i, h := range sc.Hotspots {
			if h.HotspotID() == hotspotID {
				sc.Hotspots[i] = applyPatch(h, patch)
				found = true
				return
			}
		}
	})
	if err != nil {
		return Project{}, err
	}
	if !found {
		return Project{}, fmt.Errorf("tour: hotspot %s: %w", hotspotID, apperr.ErrNotFound)
	}
	return out, nil
}

// RemoveHotspot returns a copy of p with one hotspot removed from the scene.
func RemoveHotspot(p Project, sceneID, hotspotID string) (Project, error) {
	found := false
	out, err := updateScene(p, sceneID, func(sc *Scene) {
		for i, h := range sc.Hotspots {
			if h.HotspotID() == hotspotID {
				sc.Hotspots = append(sc.Hotspots[:i], sc.Hotspots[i+1:]...)
				found = true
				return
			}
		}
	})
	if err != nil {
		return Project{}, err
	}
	if !found {
		return Project{}, fmt.Errorf("tour: hotspot %s: %w", hotspotID, apperr.ErrNotFound)
	}
	return out, nil
}

// ClearHotspots returns a copy of p with the scene's hotspot list emptied.
func ClearHotspots(p Project, sceneID string) (Project, error) {
	return updateScene(p, sceneID, func(sc *Scene) {
		sc.Hotspots = []Hotspot{}
	})
}

// FindScene returns a copy of the scene with the given id.
func FindScene(p Project, sceneID string) (Scene, error) {
	for _, sc := range p.Scenes {
		if sc.ID == sceneID {
			return sc.clone(), nil
		}
	}
	return Scene{}, fmt.Errorf("tour: scene %s: %w", sceneID, apperr.ErrNotFound)
}

// updateScene clones p, applies fn to the targeted scene in the clone, and
// touches the result. The input project is never modified.
func updateScene(p Project, sceneID string, fn func(*Scene)) (Project, error) {
	out := p.Clone()
	for i := range out.Scenes {
		if out.Scenes[i].ID == sceneID {
			fn(&out.Scenes[i])
			return touch(out), nil
		}
	}
	return Project{}, fmt.Errorf("tour: scene %s: %w", sceneID, apperr.ErrNotFound)
}

// DanglingLink identifies a link hotspot whose target scene is gone.
type DanglingLink struct {
	SceneID       string `json:"sceneId"`
	HotspotID     string `json:"hotspotId"`
	TargetSceneID string `json:"targetSceneId"`
}

// DanglingLinks reports link hotspots that reference a scene id absent from
// the project. Target ids are soft references, so scene deletion can leave
// these behind; callers decide whether to surface or clean them.
func DanglingLinks(p Project) []DanglingLink {
	ids := make(map[string]struct{}, len(p.Scenes))
	for _, sc := range p.Scenes {
		ids[sc.ID] = struct{}{}
	}
	var out []DanglingLink
	for _, sc := range p.Scenes {
		for _, h := range sc.Hotspots {
			link, ok := h.(LinkHotspot)
			if !ok {
				continue
			}
			if _, exists := ids[link.TargetSceneID]; !exists {
				out = append(out, DanglingLink{
					SceneID:       sc.ID,
					HotspotID:     link.ID,
					TargetSceneID: link.TargetSceneID,
				})
			}
		}
	}
	return out
}
