// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Raido tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal/tour"
	"github.com/starford/raido/internal/tourservice"
)

// Server wraps the MCP server with Raido tools.
type Server struct {
	mcp *server.MCPServer
	svc *tourservice.Service
}

// New creates a new MCP server with all Raido tools registered.
func New(svc *tourservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_project",
		mcp.WithDescription("Read the full tour project document, including scenes, hotspots, and any dangling link hotspots."),
	), s.getProject)

	s.mcp.AddTool(mcp.NewTool("list_scenes",
		mcp.WithDescription("List scene ids and names in project order."),
	), s.listScenes)

	s.mcp.AddTool(mcp.NewTool("add_hotspot",
		mcp.WithDescription("Place a hotspot on a scene. Type 'info' shows a text panel, "+
			"type 'link' navigates to target_scene_id when clicked. Positions are in "+
			"radians; read the raido://tour-format resource for the coordinate contract."),
		mcp.WithString("scene_id", mcp.Required(), mcp.Description("Scene to place the hotspot on")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Hotspot type: info or link")),
		mcp.WithNumber("yaw", mcp.Required(), mcp.Description("Horizontal angle in radians")),
		mcp.WithNumber("pitch", mcp.Required(), mcp.Description("Vertical angle in radians")),
		mcp.WithString("title", mcp.Description("Info hotspot heading")),
		mcp.WithString("text", mcp.Description("Info hotspot body text")),
		mcp.WithString("target_scene_id", mcp.Description("Link hotspot destination scene id (required for type=link)")),
	), s.addHotspot)

	s.mcp.AddTool(mcp.NewTool("remove_hotspot",
		mcp.WithDescription("Remove a hotspot from a scene."),
		mcp.WithString("scene_id", mcp.Required(), mcp.Description("Scene the hotspot is on")),
		mcp.WithString("hotspot_id", mcp.Required(), mcp.Description("Hotspot to remove")),
	), s.removeHotspot)

	s.mcp.AddTool(mcp.NewTool("import_panorama",
		mcp.WithDescription("Import one equirectangular panorama as a new scene. The source "+
			"is a base64 data URI (data:image/jpeg;base64,...) or a local file path. "+
			"Oversized images are downscaled to the configured safe texture dimension automatically."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Base64 data URI or local file path of the image")),
		mcp.WithString("filename", mcp.Description("Original file name, used to derive the scene name")),
	), s.importPanorama)

	s.mcp.AddTool(mcp.NewTool("export_tour",
		mcp.WithDescription("Build a standalone web bundle of the tour into the workspace. "+
			"single_file produces one self-contained HTML page."),
		mcp.WithString("target", mcp.Description("Workspace-relative output directory (default exports/<title>)")),
		mcp.WithBoolean("single_file", mcp.Description("Emit a single self-contained HTML page")),
	), s.exportTour)

	// Resource: project document contract.
	s.mcp.AddResource(
		mcp.NewResource("raido://tour-format", "Tour Document Contract",
			mcp.WithResourceDescription("Canonical project document format and hotspot coordinate conventions."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readTourFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) getProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(map[string]any{
		"project":       s.svc.Project(ctx),
		"danglingLinks": s.svc.DanglingLinks(ctx),
	}, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listScenes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p := s.svc.Project(ctx)
	if len(p.Scenes) == 0 {
		return mcp.NewToolResultText("no scenes"), nil
	}
	var lines []string
	for _, sc := range p.Scenes {
		lines = append(lines, fmt.Sprintf("%s\t%s\t%d hotspots", sc.ID, sc.Name, len(sc.Hotspots)))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) addHotspot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sceneID, err := req.RequireString("scene_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	yaw, err := req.RequireFloat("yaw")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pitch, err := req.RequireFloat("pitch")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var hs tour.Hotspot
	switch kind {
	case tour.HotspotTypeInfo:
		hs = tour.InfoHotspot{
			ID:    tour.NewID("hs"),
			Yaw:   yaw,
			Pitch: pitch,
			Title: req.GetString("title", ""),
			Text:  req.GetString("text", ""),
		}
	case tour.HotspotTypeLink:
		target := req.GetString("target_scene_id", "")
		if target == "" {
			return mcp.NewToolResultError("target_scene_id is required for type=link"), nil
		}
		hs = tour.LinkHotspot{
			ID:            tour.NewID("hs"),
			Yaw:           yaw,
			Pitch:         pitch,
			TargetSceneID: target,
		}
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown hotspot type: %s (allowed: info, link)", kind)), nil
	}

	if err := s.svc.AddHotspot(ctx, sceneID, hs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.Marshal(hs)
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) removeHotspot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sceneID, err := req.RequireString("scene_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hotspotID, err := req.RequireString("hotspot_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.RemoveHotspot(ctx, sceneID, hotspotID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("removed: %s", hotspotID)), nil
}

func (s *Server) importPanorama(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, ext, err := readSource(source)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	filename := req.GetString("filename", "")
	if filename == "" {
		if strings.HasPrefix(source, "data:") {
			filename = "panorama" + ext
		} else {
			filename = filepath.Base(source)
		}
	}

	report, err := s.svc.ImportBatch(ctx, []tourservice.ImportFile{{Name: filename, Data: data}})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(report.Failed) > 0 {
		return mcp.NewToolResultError(fmt.Sprintf("import failed: %s", report.Failed[0].Error)), nil
	}
	out, _ := json.Marshal(report.Imported[0])
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) exportTour(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target := req.GetString("target", "")
	singleFile := req.GetBool("single_file", false)

	files, err := s.svc.Export(ctx, target, singleFile)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(strings.Join(files, "\n")), nil
}

func (s *Server) readTourFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "raido://tour-format",
			MIMEType: "text/markdown",
			Text:     TourFormatContract,
		},
	}, nil
}
