// Package bundle turns a project snapshot plus its stored assets into an
// offline-viewable export. Building is pure: identical inputs produce an
// identical file set, so bundles can be snapshot-tested.
package bundle

import (
	"bytes"
	"embed"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"text/template"

	"github.com/starford/raido/internal/assetstore"
	"github.com/starford/raido/internal/tour"
)

//go:embed viewer/panoviewer.js viewer/tour.js viewer/styles.css
var viewerFS embed.FS

// Fixed file names of the directory-mode export.
const (
	EntryPage    = "index.html"
	OfflinePage  = "index-offline.html"
	Stylesheet   = "styles.css"
	RuntimeFile  = "vendor/panoviewer.js"
	DataFile     = "tour-data.js"
	ViewerFile   = "tour.js"
	UsageNote    = "README.txt"
	AssetsSubdir = "assets"
)

// File is one entry of a built bundle.
type File struct {
	Path string
	Data []byte
}

// Options select the delivery strategy. SingleFile is chosen by host
// capability (no directory write access), not by user preference; the
// fallback is silent.
type Options struct {
	SingleFile bool
}

var entryTmpl = template.Must(template.New("entry").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>{{.Title}}</title>
<link rel="stylesheet" href="styles.css">
</head>
<body>
<div id="pano"></div>
<div id="scene-title"></div>
<div id="info-panel"><span class="close">&#215;</span><h2></h2><p></p></div>
<script src="vendor/panoviewer.js"></script>
<script src="tour-data.js"></script>
<script src="tour.js"></script>
</body>
</html>
`))

var offlineTmpl = template.Must(template.New("offline").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>{{.Title}}</title>
<style>
{{.Styles}}</style>
</head>
<body>
<div id="pano"></div>
<div id="scene-title"></div>
<div id="info-panel"><span class="close">&#215;</span><h2></h2><p></p></div>
<script>
{{.Runtime}}</script>
<script>
{{.Data}}</script>
<script>
{{.Viewer}}</script>
</body>
</html>
`))

const usageNote = `%s
%s

This folder is a self-contained virtual tour exported from Raido.

- Serve the folder with any static file server and open index.html, or
- open index-offline.html directly in a browser (no server needed; every
  image is embedded in the page).

The tour requires no network access and no Raido installation.
`

// Build produces the export file set for the project and its assets.
// Scenes without a stored asset are kept in the tour data but have no image
// entry; link hotspots pointing at deleted scenes are dropped so an
// exported tour never navigates nowhere.
func Build(p tour.Project, assets map[string]assetstore.StoredAsset, opts Options) ([]File, error) {
	exported := exportableProject(p)

	dataJSON, err := json.Marshal(exported)
	if err != nil {
		return nil, fmt.Errorf("bundle: marshal tour data: %w", err)
	}

	runtime := mustViewerFile("viewer/panoviewer.js")
	viewerJS := mustViewerFile("viewer/tour.js")
	styles := mustViewerFile("viewer/styles.css")

	title := p.Title
	if title == "" {
		title = "Virtual Tour"
	}
	escTitle := html.EscapeString(title)

	if opts.SingleFile {
		page, err := offlinePage(escTitle, styles, runtime, viewerJS, dataJSON, exported, assets, true)
		if err != nil {
			return nil, err
		}
		return []File{{Path: SanitizeName(title) + ".html", Data: page}}, nil
	}

	var files []File

	var entry bytes.Buffer
	if err := entryTmpl.Execute(&entry, map[string]string{"Title": escTitle}); err != nil {
		return nil, fmt.Errorf("bundle: entry page: %w", err)
	}
	files = append(files, File{Path: EntryPage, Data: entry.Bytes()})
	files = append(files, File{Path: Stylesheet, Data: styles})
	files = append(files, File{Path: RuntimeFile, Data: runtime})

	var data bytes.Buffer
	data.WriteString("window.TOUR_DATA = ")
	data.Write(dataJSON)
	data.WriteString(";\n")
	data.WriteString(assetMapJS(exported, assets, false))
	files = append(files, File{Path: DataFile, Data: data.Bytes()})

	files = append(files, File{Path: ViewerFile, Data: viewerJS})
	files = append(files, File{Path: UsageNote, Data: []byte(fmt.Sprintf(usageNote, title, strings.Repeat("=", len(title))))})

	for _, sc := range exported.Scenes {
		a, ok := assets[sc.ID]
		if !ok {
			continue
		}
		files = append(files, File{
			Path: AssetsSubdir + "/" + assetFileName(sc.ID, a.Payload),
			Data: a.Payload,
		})
	}

	offline, err := offlinePage(escTitle, styles, runtime, viewerJS, dataJSON, exported, assets, false)
	if err != nil {
		return nil, err
	}
	files = append(files, File{Path: OfflinePage, Data: offline})

	return files, nil
}

// exportableProject strips link hotspots whose target scene no longer
// exists. The project document itself keeps them (soft references); only
// the export drops them.
func exportableProject(p tour.Project) tour.Project {
	dangling := make(map[string]struct{})
	for _, d := range tour.DanglingLinks(p) {
		dangling[d.SceneID+"\x00"+d.HotspotID] = struct{}{}
	}
	if len(dangling) == 0 {
		return p.Clone()
	}
	out := p.Clone()
	for i := range out.Scenes {
		kept := out.Scenes[i].Hotspots[:0]
		for _, h := range out.Scenes[i].Hotspots {
			if _, drop := dangling[out.Scenes[i].ID+"\x00"+h.HotspotID()]; !drop {
				kept = append(kept, h)
			}
		}
		out.Scenes[i].Hotspots = kept
	}
	return out
}

func offlinePage(escTitle string, styles, runtime, viewerJS, dataJSON []byte, p tour.Project, assets map[string]assetstore.StoredAsset, single bool) ([]byte, error) {
	var data bytes.Buffer
	data.WriteString("window.TOUR_DATA = ")
	data.Write(dataJSON)
	data.WriteString(";\n")
	data.WriteString(assetMapJS(p, assets, true))

	var page bytes.Buffer
	err := offlineTmpl.Execute(&page, map[string]string{
		"Title":   escTitle,
		"Styles":  string(styles),
		"Runtime": string(runtime),
		"Data":    data.String(),
		"Viewer":  string(viewerJS),
	})
	if err != nil {
		return nil, fmt.Errorf("bundle: offline page: %w", err)
	}
	return page.Bytes(), nil
}

// assetMapJS emits window.TOUR_ASSETS in scene order, mapping scene ids to
// either relative asset paths or data URIs. Scene order keeps the output
// deterministic.
func assetMapJS(p tour.Project, assets map[string]assetstore.StoredAsset, inline bool) string {
	var b strings.Builder
	b.WriteString("window.TOUR_ASSETS = {")
	first := true
	for _, sc := range p.Scenes {
		a, ok := assets[sc.ID]
		if !ok {
			continue
		}
		if !first {
			b.WriteString(",")
		}
		first = false
		key, _ := json.Marshal(sc.ID)
		b.WriteString("\n  ")
		b.Write(key)
		b.WriteString(": ")
		if inline {
			b.WriteString(`"data:`)
			b.WriteString(detectMIME(a.Payload))
			b.WriteString(`;base64,`)
			b.WriteString(base64.StdEncoding.EncodeToString(a.Payload))
			b.WriteString(`"`)
		} else {
			path, _ := json.Marshal(AssetsSubdir + "/" + assetFileName(sc.ID, a.Payload))
			b.Write(path)
		}
	}
	b.WriteString("\n};\n")
	return b.String()
}

var mimeToExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

func detectMIME(payload []byte) string {
	ct := strings.Split(http.DetectContentType(payload), ";")[0]
	if _, ok := mimeToExt[ct]; ok {
		return ct
	}
	return "image/jpeg"
}

func assetFileName(sceneID string, payload []byte) string {
	return SanitizeName(sceneID) + mimeToExt[detectMIME(payload)]
}

func mustViewerFile(name string) []byte {
	data, err := viewerFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("bundle: embedded file %s: %v", name, err))
	}
	return data
}
