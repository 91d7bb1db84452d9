package tourservice

import (
	"context"
	"net/http"
)

// Preview is the ephemeral display handle for a scene's current asset: an
// in-memory reference used only to serve the live editing preview. It is
// never shared across scenes and never persisted.
type Preview struct {
	SceneID     string
	Payload     []byte
	ContentType string
}

// Preview returns the scene's display handle, materializing it from the
// asset store on first use. The handle stays valid until the scene's asset
// is replaced or the scene is deleted.
//
// The store read happens under mu so the handle is installed atomically
// with the payload it was read from. A reimport that revokes the handle
// cannot interleave and have the stale payload reinstalled after it.
func (s *Service) Preview(ctx context.Context, sceneID string) (*Preview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pv, ok := s.previews[sceneID]; ok {
		return pv, nil
	}

	a, err := s.assets.Get(ctx, sceneID)
	if err != nil {
		return nil, err
	}
	pv := &Preview{
		SceneID:     sceneID,
		Payload:     a.Payload,
		ContentType: http.DetectContentType(a.Payload),
	}
	s.previews[sceneID] = pv
	return pv, nil
}

// releasePreviewLocked revokes a scene's display handle. Callers hold mu.
// Dropping the map entry is the release: nothing else references the
// payload once the handle is gone.
func (s *Service) releasePreviewLocked(sceneID string) {
	delete(s.previews, sceneID)
}
