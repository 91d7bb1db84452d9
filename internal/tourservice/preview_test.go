package tourservice

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/starford/raido/internal/assetstore"
	"github.com/starford/raido/internal/testutil"
)

// stallGetStore delays the first Get until released, widening the window
// between reading an asset and installing its preview handle.
type stallGetStore struct {
	assetstore.Store
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *stallGetStore) Get(ctx context.Context, sceneID string) (*assetstore.StoredAsset, error) {
	s.once.Do(func() {
		close(s.entered)
		<-s.release
	})
	return s.Store.Get(ctx, sceneID)
}

func TestPreviewDuringReimportNeverServesRevokedPayload(t *testing.T) {
	_, store := testutil.TestWorkspace(t)
	gate := &stallGetStore{
		Store:   testutil.TestAssetDB(t),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc, err := NewService(store, gate, testutil.TestNormalizer(t, 2048))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	report, err := svc.ImportBatch(ctx, []ImportFile{{Name: "deck.jpg", Data: testJPEG(t, 200, 100)}})
	if err != nil {
		t.Fatal(err)
	}
	sceneID := report.Imported[0].SceneID

	previewDone := make(chan error, 1)
	go func() {
		_, err := svc.Preview(ctx, sceneID)
		previewDone <- err
	}()
	<-gate.entered

	// Replace the asset while the first preview read is in flight. The old
	// handle is revoked by the reimport; the stalled read must not reinstall
	// the payload it saw before the replacement.
	reimportDone := make(chan error, 1)
	go func() {
		_, err := svc.ReimportScene(ctx, sceneID, ImportFile{Name: "deck-v2.jpg", Data: testJPEG(t, 600, 300)})
		reimportDone <- err
	}()
	select {
	case err := <-reimportDone:
		if err != nil {
			t.Fatal(err)
		}
		reimportDone <- nil
	case <-time.After(100 * time.Millisecond):
	}
	close(gate.release)

	if err := <-previewDone; err != nil {
		t.Fatal(err)
	}
	if err := <-reimportDone; err != nil {
		t.Fatal(err)
	}

	current, err := gate.Store.Get(ctx, sceneID)
	if err != nil {
		t.Fatal(err)
	}
	pv, err := svc.Preview(ctx, sceneID)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(pv.Payload, current.Payload) {
		t.Fatal("preview serves a payload that was replaced by reimport")
	}
}
