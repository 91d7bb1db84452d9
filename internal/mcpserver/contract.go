package mcpserver

// TourFormatContract describes the project document format and the
// coordinate conventions LLM consumers must follow when editing a tour.
const TourFormatContract = `# Raido Tour Document Contract

The project document is a single JSON file (` + "`project.json`" + `) in the
workspace root.

## Structure

` + "```" + `json
{
  "version": 1,
  "title": "Harbor Walk",
  "createdAt": "2025-01-15T09:30:00Z",
  "updatedAt": "2025-01-20T14:05:00Z",
  "scenes": [
    {
      "id": "scene-1737366600000-a1b2c3d4",
      "name": "Lobby",
      "panorama": {
        "type": "equirect",
        "fileName": "lobby.jpg",
        "width": 8192,
        "height": 4096
      },
      "initialView": { "yaw": 0, "pitch": 0, "fov": 90 },
      "hotspots": [
        { "type": "info", "id": "hs-...", "yaw": 0.5, "pitch": -0.1,
          "title": "Front desk", "text": "Opening hours ..." },
        { "type": "link", "id": "hs-...", "yaw": 2.1, "pitch": 0,
          "targetSceneId": "scene-...", "rotation": 3.14 }
      ]
    }
  ]
}
` + "```" + `

## Rules

1. **` + "`version`" + ` is 1.** Documents with any other version are rejected.
2. **Scene ids are unique** project-wide and never reused. The server
   assigns them; never invent ids.
3. **Panoramas are equirectangular** (2:1 full sphere). Other projections
   are not supported.
4. **Angles are radians.** ` + "`yaw`" + ` is horizontal (0 faces the panorama
   center, positive turns right), ` + "`pitch`" + ` is vertical (positive looks
   up). ` + "`fov`" + ` is the vertical field of view in degrees.
5. **Hotspot ` + "`type`" + ` is ` + "`info`" + ` or ` + "`link`" + `.** Info hotspots carry
   ` + "`title`" + `/` + "`text`" + `; link hotspots carry ` + "`targetSceneId`" + ` and an
   optional ` + "`rotation`" + ` for the arrow glyph.
6. **Link targets may dangle.** Deleting a scene does not touch hotspots
   on other scenes; ` + "`get_project`" + ` reports dangling links and exports
   drop them. Clean them up with ` + "`remove_hotspot`" + ` when asked to tidy
   a tour.
7. **Timestamps are RFC 3339 UTC** and maintained by the server.

## Importing panoramas

- Use ` + "`import_panorama`" + ` with a base64 data URI. One call creates one
  scene; the scene name is derived from the file name.
- Images wider or taller than the configured safe texture dimension are
  downscaled automatically; the stored document keeps the original
  dimensions for reference.

## Exporting

- ` + "`export_tour`" + ` writes a standalone web bundle into the workspace
  under ` + "`exports/<title>/`" + ` (or a single HTML page with
  ` + "`single_file`" + `). The bundle needs no server and no network.
`
