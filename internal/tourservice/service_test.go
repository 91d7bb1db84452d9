package tourservice

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/testutil"
	"github.com/starford/raido/internal/tour"
)

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func testService(t *testing.T) (*Service, string) {
	t.Helper()
	dir, store := testutil.TestWorkspace(t)
	svc, err := NewService(store, testutil.TestAssetDB(t), testutil.TestNormalizer(t, 2048))
	if err != nil {
		t.Fatal(err)
	}
	return svc, dir
}

func TestNewServiceCreatesProject(t *testing.T) {
	svc, dir := testService(t)

	p := svc.Project(context.Background())
	if p.Title != DefaultTitle {
		t.Fatalf("title = %q, want %q", p.Title, DefaultTitle)
	}
	if len(p.Scenes) != 0 {
		t.Fatalf("fresh project has %d scenes", len(p.Scenes))
	}
	if _, err := os.Stat(filepath.Join(dir, ProjectFile)); err != nil {
		t.Fatalf("project file not persisted: %v", err)
	}
}

func TestSetTitlePersistsAcrossRestart(t *testing.T) {
	_, store := testutil.TestWorkspace(t)
	db := testutil.TestAssetDB(t)
	norm := testutil.TestNormalizer(t, 2048)

	svc, err := NewService(store, db, norm)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.SetTitle(context.Background(), "Harbor Walk"); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewService(store, db, norm)
	if err != nil {
		t.Fatal(err)
	}
	p := reopened.Project(context.Background())
	if p.Title != "Harbor Walk" {
		t.Fatalf("title after reopen = %q", p.Title)
	}
}

func TestImportBatchPartialFailure(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	report, err := svc.ImportBatch(ctx, []ImportFile{
		{Name: "lobby.jpg", Data: testJPEG(t, 400, 200)},
		{Name: "broken.jpg", Data: []byte("not an image")},
		{Name: "roof.jpg", Data: testJPEG(t, 300, 150)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Imported) != 2 {
		t.Fatalf("imported %d, want 2", len(report.Imported))
	}
	if len(report.Failed) != 1 || report.Failed[0].FileName != "broken.jpg" {
		t.Fatalf("failed = %+v", report.Failed)
	}

	p := svc.Project(ctx)
	if len(p.Scenes) != 2 {
		t.Fatalf("project has %d scenes, want 2", len(p.Scenes))
	}
	if p.Scenes[0].Name != "lobby" || p.Scenes[1].Name != "roof" {
		t.Fatalf("scene names = %q, %q", p.Scenes[0].Name, p.Scenes[1].Name)
	}
	if p.Scenes[0].Panorama.Width != 400 || p.Scenes[0].Panorama.Height != 200 {
		t.Fatalf("panorama dims = %dx%d", p.Scenes[0].Panorama.Width, p.Scenes[0].Panorama.Height)
	}

	for _, sc := range report.Imported {
		if _, err := svc.Preview(ctx, sc.SceneID); err != nil {
			t.Fatalf("preview %s: %v", sc.SceneID, err)
		}
	}
}

func TestImportBatchEmpty(t *testing.T) {
	svc, _ := testService(t)

	report, err := svc.ImportBatch(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Imported) != 0 || len(report.Failed) != 0 {
		t.Fatalf("empty batch report = %+v", report)
	}
}

func TestReimportSceneReplacesAssetAndPreview(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	report, err := svc.ImportBatch(ctx, []ImportFile{{Name: "hall.jpg", Data: testJPEG(t, 200, 100)}})
	if err != nil {
		t.Fatal(err)
	}
	sceneID := report.Imported[0].SceneID

	before, err := svc.Preview(ctx, sceneID)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.ReimportScene(ctx, sceneID, ImportFile{Name: "hall-v2.jpg", Data: testJPEG(t, 600, 300)}); err != nil {
		t.Fatal(err)
	}

	after, err := svc.Preview(ctx, sceneID)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(before.Payload, after.Payload) {
		t.Fatal("preview payload not refreshed after reimport")
	}

	sc, err := tour.FindScene(svc.Project(ctx), sceneID)
	if err != nil {
		t.Fatal(err)
	}
	if sc.Panorama.FileName != "hall-v2.jpg" || sc.Panorama.Width != 600 {
		t.Fatalf("panorama = %+v", sc.Panorama)
	}
}

func TestReimportSceneUnknownScene(t *testing.T) {
	svc, _ := testService(t)

	_, err := svc.ReimportScene(context.Background(), "scene-missing", ImportFile{Name: "x.jpg", Data: testJPEG(t, 10, 10)})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRemoveSceneCleansUpAndLeavesDanglingLinks(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	report, err := svc.ImportBatch(ctx, []ImportFile{
		{Name: "atrium.jpg", Data: testJPEG(t, 100, 50)},
		{Name: "stairs.jpg", Data: testJPEG(t, 100, 50)},
	})
	if err != nil {
		t.Fatal(err)
	}
	atrium := report.Imported[0].SceneID
	stairs := report.Imported[1].SceneID

	link := tour.LinkHotspot{ID: "hs-link", Yaw: 1, Pitch: 0, TargetSceneID: stairs}
	if err := svc.AddHotspot(ctx, atrium, link); err != nil {
		t.Fatal(err)
	}

	if err := svc.RemoveScene(ctx, stairs); err != nil {
		t.Fatal(err)
	}

	p := svc.Project(ctx)
	if len(p.Scenes) != 1 {
		t.Fatalf("scenes = %d, want 1", len(p.Scenes))
	}
	if _, err := svc.Preview(ctx, stairs); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("preview of removed scene: err = %v", err)
	}

	dangling := svc.DanglingLinks(ctx)
	if len(dangling) != 1 || dangling[0].TargetSceneID != stairs {
		t.Fatalf("dangling = %+v", dangling)
	}

	// The stale link stays editable and removable.
	if err := svc.RemoveHotspot(ctx, atrium, "hs-link"); err != nil {
		t.Fatal(err)
	}
	if got := svc.DanglingLinks(ctx); len(got) != 0 {
		t.Fatalf("dangling after removal = %+v", got)
	}
}

func TestExportWritesBundleIntoWorkspace(t *testing.T) {
	svc, dir := testService(t)
	ctx := context.Background()

	if err := svc.SetTitle(ctx, "Pier 7"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ImportBatch(ctx, []ImportFile{{Name: "deck.jpg", Data: testJPEG(t, 64, 32)}}); err != nil {
		t.Fatal(err)
	}

	written, err := svc.Export(ctx, "", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(written) == 0 {
		t.Fatal("no files written")
	}
	for _, rel := range written {
		if filepath.Dir(rel) == "." {
			t.Fatalf("file %q outside export target", rel)
		}
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(rel))); err != nil {
			t.Fatalf("written file missing on disk: %v", err)
		}
	}

	foundEntry := false
	for _, rel := range written {
		if rel == "exports/Pier_7/index.html" {
			foundEntry = true
		}
	}
	if !foundEntry {
		t.Fatalf("no index.html under default target among %v", written)
	}
}

func TestExportSingleFile(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	if err := svc.SetTitle(ctx, "One Room"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ImportBatch(ctx, []ImportFile{{Name: "room.jpg", Data: testJPEG(t, 64, 32)}}); err != nil {
		t.Fatal(err)
	}

	written, err := svc.Export(ctx, "out", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(written) != 1 || filepath.Base(written[0]) != "One_Room.html" {
		t.Fatalf("written = %v", written)
	}
}

func TestReloadRefusesInvalidDocument(t *testing.T) {
	svc, dir := testService(t)
	ctx := context.Background()

	if err := svc.SetTitle(ctx, "Before"); err != nil {
		t.Fatal(err)
	}

	docPath := filepath.Join(dir, ProjectFile)
	if err := os.WriteFile(docPath, []byte(`{"version": 99}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := svc.Reload(ctx); err == nil {
		t.Fatal("reload of unsupported version succeeded")
	}
	if p := svc.Project(ctx); p.Title != "Before" {
		t.Fatalf("last good document lost, title = %q", p.Title)
	}

	good, err := tour.Encode(tour.New("After"))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(docPath, good, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := svc.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	if p := svc.Project(ctx); p.Title != "After" {
		t.Fatalf("reload not applied, title = %q", p.Title)
	}
}
