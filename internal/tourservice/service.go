// Package tourservice coordinates the project document, the asset store,
// and the normalization pipeline behind the API and CLI surfaces.
package tourservice

import (
	"context"
	"path"
	"strings"
	"sync"

	"github.com/starford/raido/internal/assetstore"
	"github.com/starford/raido/internal/bundle"
	"github.com/starford/raido/internal/pipeline"
	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/tour"
)

// ProjectFile is the workspace-relative path of the project document.
const ProjectFile = "project.json"

// DefaultTitle names projects created on first run.
const DefaultTitle = "Untitled Tour"

// Service owns the live project document. All mutations are serialized
// behind one mutex: imports, edits, and reloads never interleave, which is
// what bounds peak memory to one decoded bitmap during batch imports.
type Service struct {
	store  storage.Provider
	assets assetstore.Store
	norm   *pipeline.Normalizer

	mu       sync.Mutex
	project  tour.Project
	previews map[string]*Preview
}

// NewService loads the project document from the workspace, creating a
// fresh one when none exists yet.
func NewService(store storage.Provider, assets assetstore.Store, norm *pipeline.Normalizer) (*Service, error) {
	s := &Service{
		store:    store,
		assets:   assets,
		norm:     norm,
		previews: make(map[string]*Preview),
	}
	if !store.Exists(ProjectFile) {
		s.project = tour.New(DefaultTitle)
		if err := s.saveLocked(); err != nil {
			return nil, err
		}
		return s, nil
	}
	data, err := store.Read(ProjectFile)
	if err != nil {
		return nil, err
	}
	p, err := tour.Decode(data)
	if err != nil {
		return nil, err
	}
	s.project = p
	return s, nil
}

// saveLocked writes the current document atomically. Callers hold mu.
func (s *Service) saveLocked() error {
	data, err := tour.Encode(s.project)
	if err != nil {
		return err
	}
	return s.store.Write(ProjectFile, data)
}

// Project returns a snapshot of the current document.
func (s *Service) Project(_ context.Context) tour.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project.Clone()
}

// DanglingLinks reports link hotspots whose target scene is gone.
func (s *Service) DanglingLinks(_ context.Context) []tour.DanglingLink {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tour.DanglingLinks(s.project)
}

// Reload re-reads the project document from the workspace, for watcher-
// driven refresh after external edits. An invalid document on disk is
// refused: the last good in-memory document keeps serving.
func (s *Service) Reload(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.store.Read(ProjectFile)
	if err != nil {
		return err
	}
	p, err := tour.Decode(data)
	if err != nil {
		return err
	}
	s.project = p
	return nil
}

// mutate applies a pure document operation and persists the result.
func (s *Service) mutate(fn func(tour.Project) (tour.Project, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(s.project)
	if err != nil {
		return err
	}
	prev := s.project
	s.project = next
	if err := s.saveLocked(); err != nil {
		s.project = prev
		return err
	}
	return nil
}

// SetTitle renames the tour.
func (s *Service) SetTitle(_ context.Context, title string) error {
	return s.mutate(func(p tour.Project) (tour.Project, error) {
		return tour.SetTitle(p, title), nil
	})
}

// RenameScene changes a scene's display name.
func (s *Service) RenameScene(_ context.Context, sceneID, name string) error {
	return s.mutate(func(p tour.Project) (tour.Project, error) {
		return tour.RenameScene(p, sceneID, name)
	})
}

// SetInitialView replaces a scene's entry camera pose.
func (s *Service) SetInitialView(_ context.Context, sceneID string, v tour.View) error {
	return s.mutate(func(p tour.Project) (tour.Project, error) {
		return tour.SetInitialView(p, sceneID, v)
	})
}

// AddHotspot appends a hotspot to a scene and returns its id.
func (s *Service) AddHotspot(_ context.Context, sceneID string, h tour.Hotspot) error {
	return s.mutate(func(p tour.Project) (tour.Project, error) {
		return tour.AddHotspot(p, sceneID, h)
	})
}

// UpdateHotspot applies a field patch to one hotspot.
func (s *Service) UpdateHotspot(_ context.Context, sceneID, hotspotID string, patch tour.HotspotPatch) error {
	return s.mutate(func(p tour.Project) (tour.Project, error) {
		return tour.UpdateHotspot(p, sceneID, hotspotID, patch)
	})
}

// RemoveHotspot deletes one hotspot from a scene.
func (s *Service) RemoveHotspot(_ context.Context, sceneID, hotspotID string) error {
	return s.mutate(func(p tour.Project) (tour.Project, error) {
		return tour.RemoveHotspot(p, sceneID, hotspotID)
	})
}

// ClearHotspots empties a scene's hotspot list.
func (s *Service) ClearHotspots(_ context.Context, sceneID string) error {
	return s.mutate(func(p tour.Project) (tour.Project, error) {
		return tour.ClearHotspots(p, sceneID)
	})
}

// RemoveScene deletes the scene, its stored asset, and its preview handle.
// Link hotspots elsewhere that target the scene are left as soft dangling
// references (see tour.DanglingLinks).
func (s *Service) RemoveScene(ctx context.Context, sceneID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := tour.RemoveScene(s.project, sceneID)
	if err != nil {
		return err
	}
	prev := s.project
	s.project = next
	if err := s.saveLocked(); err != nil {
		s.project = prev
		return err
	}
	if err := s.assets.Delete(ctx, sceneID); err != nil {
		return err
	}
	s.releasePreviewLocked(sceneID)
	return nil
}

// ImportFile is one uploaded panorama in a batch.
type ImportFile struct {
	Name string
	Data []byte
}

// ImportedScene describes one successfully imported file.
type ImportedScene struct {
	SceneID  string `json:"sceneId"`
	Name     string `json:"name"`
	FileName string `json:"fileName"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// FailedFile describes one file that was skipped.
type FailedFile struct {
	FileName string `json:"fileName"`
	Error    string `json:"error"`
}

// BatchReport is the outcome of an import batch. Partial success is normal
// and visible: imported scenes are in the project, failed files are not.
type BatchReport struct {
	Imported []ImportedScene `json:"imported"`
	Failed   []FailedFile    `json:"failed"`
}

// ImportBatch processes files strictly one at a time, in input order. For
// each file the asset is persisted first and the scene appended only after,
// so the project never references an asset that failed to persist. A failed
// file aborts that file only.
func (s *Service) ImportBatch(ctx context.Context, files []ImportFile) (BatchReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := BatchReport{Imported: []ImportedScene{}, Failed: []FailedFile{}}
	for _, f := range files {
		norm, err := s.norm.Normalize(f.Name, f.Data)
		if err != nil {
			report.Failed = append(report.Failed, FailedFile{FileName: f.Name, Error: err.Error()})
			continue
		}

		sceneID := tour.NewID("scene")
		if err := s.assets.Put(ctx, assetFrom(sceneID, norm)); err != nil {
			report.Failed = append(report.Failed, FailedFile{FileName: f.Name, Error: err.Error()})
			continue
		}

		sc := tour.Scene{
			ID:   sceneID,
			Name: sceneName(f.Name),
			Panorama: tour.Panorama{
				Type:     tour.PanoramaEquirect,
				FileName: f.Name,
				Width:    norm.OriginalWidth,
				Height:   norm.OriginalHeight,
			},
			InitialView: tour.View{Yaw: 0, Pitch: 0, Fov: 90},
			Hotspots:    []tour.Hotspot{},
		}
		next := tour.AppendScenes(s.project, sc)
		prev := s.project
		s.project = next
		if err := s.saveLocked(); err != nil {
			// Roll back the document and orphan-clean the asset so the
			// project never carries a half-imported scene.
			s.project = prev
			_ = s.assets.Delete(ctx, sceneID)
			report.Failed = append(report.Failed, FailedFile{FileName: f.Name, Error: err.Error()})
			continue
		}

		report.Imported = append(report.Imported, ImportedScene{
			SceneID:  sceneID,
			Name:     sc.Name,
			FileName: f.Name,
			Width:    norm.Width,
			Height:   norm.Height,
		})
	}
	return report, nil
}

// ReimportScene replaces the asset of an existing scene. The old payload is
// discarded by the store and the scene's preview handle is released right
// after the new asset is installed.
func (s *Service) ReimportScene(ctx context.Context, sceneID string, f ImportFile) (ImportedScene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := tour.FindScene(s.project, sceneID); err != nil {
		return ImportedScene{}, err
	}
	norm, err := s.norm.Normalize(f.Name, f.Data)
	if err != nil {
		return ImportedScene{}, err
	}
	if err := s.assets.Put(ctx, assetFrom(sceneID, norm)); err != nil {
		return ImportedScene{}, err
	}
	s.releasePreviewLocked(sceneID)

	next, err := tour.UpdateScenePanorama(s.project, sceneID, tour.Panorama{
		Type:     tour.PanoramaEquirect,
		FileName: f.Name,
		Width:    norm.OriginalWidth,
		Height:   norm.OriginalHeight,
	})
	if err != nil {
		return ImportedScene{}, err
	}
	prev := s.project
	s.project = next
	if err := s.saveLocked(); err != nil {
		s.project = prev
		return ImportedScene{}, err
	}

	sc, _ := tour.FindScene(s.project, sceneID)
	return ImportedScene{
		SceneID:  sceneID,
		Name:     sc.Name,
		FileName: f.Name,
		Width:    norm.Width,
		Height:   norm.Height,
	}, nil
}

// BuildBundle assembles the export file set from the current snapshot
// without writing anything. Export never writes back into the project.
func (s *Service) BuildBundle(ctx context.Context, singleFile bool) ([]bundle.File, string, error) {
	s.mu.Lock()
	snapshot := s.project.Clone()
	s.mu.Unlock()

	stored, err := s.assets.List(ctx)
	if err != nil {
		return nil, "", err
	}
	byScene := make(map[string]assetstore.StoredAsset, len(stored))
	for _, a := range stored {
		byScene[a.SceneID] = a
	}

	files, err := bundle.Build(snapshot, byScene, bundle.Options{SingleFile: singleFile})
	if err != nil {
		return nil, "", err
	}
	return files, snapshot.Title, nil
}

// Export builds a bundle and writes it under the workspace-relative target.
// singleFile selects the self-contained page only; otherwise the full
// directory file set is emitted.
func (s *Service) Export(ctx context.Context, target string, singleFile bool) ([]string, error) {
	files, title, err := s.BuildBundle(ctx, singleFile)
	if err != nil {
		return nil, err
	}

	if target == "" {
		target = "exports/" + bundle.SanitizeName(title)
	}
	written := make([]string, 0, len(files))
	for _, f := range files {
		rel := path.Join(target, f.Path)
		if err := s.store.Write(rel, f.Data); err != nil {
			return nil, err
		}
		written = append(written, rel)
	}
	return written, nil
}

func assetFrom(sceneID string, n pipeline.Normalized) assetstore.StoredAsset {
	return assetstore.StoredAsset{
		SceneID:        sceneID,
		FileName:       n.FileName,
		Payload:        n.Payload,
		Width:          n.Width,
		Height:         n.Height,
		OriginalWidth:  n.OriginalWidth,
		OriginalHeight: n.OriginalHeight,
	}
}

// sceneName derives a display name from an uploaded file name.
func sceneName(fileName string) string {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	if base == "" || base == "." {
		return "Scene"
	}
	return base
}
