package mcp

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/pdf-entry-mapper/internal/batch"
	"github.com/a3tai/pdf-entry-mapper/internal/config"
	"github.com/a3tai/pdf-entry-mapper/internal/descriptions"
	"github.com/a3tai/pdf-entry-mapper/internal/manifest"
	"github.com/a3tai/pdf-entry-mapper/internal/pdf"
	"github.com/a3tai/pdf-entry-mapper/internal/versions"
)

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	runner    *batch.Runner
	store     *manifest.Store
	tracker   *versions.Tracker
	guard     *pdf.PathGuard
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, runner *batch.Runner, store *manifest.Store,
	tracker *versions.Tracker) (*Server, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if tracker == nil {
		return nil, fmt.Errorf("tracker cannot be nil")
	}

	guard, err := pdf.NewPathGuard(cfg.SourceDir)
	if err != nil {
		return nil, err
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // the tool set is fixed
	)

	s := &Server{
		config:    cfg,
		runner:    runner,
		store:     store,
		tracker:   tracker,
		guard:     guard,
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s, nil
}

func folderFileOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("folder",
			mcp.Required(),
			mcp.Description("Package folder name (immediate subfolder of the source directory)"),
		),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("PDF file name inside the folder"),
		),
	}
}

func (s *Server) addTool(name string, handler server.ToolHandlerFunc, opts ...mcp.ToolOption) {
	opts = append([]mcp.ToolOption{mcp.WithDescription(descriptions.GetToolDescription(name))}, opts...)
	s.mcpServer.AddTool(mcp.NewTool(name, opts...), handler)
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.addTool("entry_analyze_file", s.handleAnalyzeFile,
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF, absolute or relative to the source directory"),
		),
		mcp.WithString("folder",
			mcp.Description("Package folder name (defaults to the PDF's parent directory)"),
		),
	)

	s.addTool("entry_field_locations", s.handleFieldLocations,
		append(folderFileOptions(),
			mcp.WithString("category",
				mcp.Description("Only return fields of this category"),
			),
			mcp.WithNumber("page",
				mcp.Description("Only return fields on this 1-based page"),
			),
		)...,
	)

	s.addTool("entry_signature_locations", s.handleSignatureLocations, folderFileOptions()...)
	s.addTool("entry_date_locations", s.handleDateLocations, folderFileOptions()...)
	s.addTool("entry_check_changes", s.handleCheckChanges)
	s.addTool("entry_update", s.handleUpdate)
}

// Handler functions
func (s *Server) handleAnalyzeFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resolved, err := s.guard.Resolve(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	folder := filepath.Base(filepath.Dir(resolved))
	if f, ok := request.GetArguments()["folder"].(string); ok && f != "" {
		folder = f
	}

	res, err := s.runner.AnalyzeAndSave(ctx, resolved, folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatAnalysis(res.Manifest, res.ManifestPath)), nil
}

func (s *Server) handleFieldLocations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder, file, errResult := requireFolderFile(request)
	if errResult != nil {
		return errResult, nil
	}

	args := request.GetArguments()
	category, _ := args["category"].(string)
	page := 0
	if p, ok := args["page"].(float64); ok {
		page = int(p)
	}
	if page < 0 {
		return mcp.NewToolResultError("page must not be negative"), nil
	}

	fields, err := s.store.FieldLocations(folder, file, category, page)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(fields) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No fields found for %s/%s", folder, file)), nil
	}
	text := fmt.Sprintf("Found %d fields in %s/%s\n", len(fields), folder, file)
	text += formatFields(fields)
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleSignatureLocations(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	folder, file, errResult := requireFolderFile(request)
	if errResult != nil {
		return errResult, nil
	}

	fields, err := s.store.SignatureLocations(folder, file)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(fields) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No signature locations found for %s/%s", folder, file)), nil
	}
	text := fmt.Sprintf("Found %d signature locations in %s/%s\n", len(fields), folder, file)
	text += formatFields(fields)
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleDateLocations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder, file, errResult := requireFolderFile(request)
	if errResult != nil {
		return errResult, nil
	}

	dates, err := s.store.DateLocations(folder, file)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("Date fields in %s/%s: %d\n", folder, file, len(dates.DateFields))
	text += formatFields(dates.DateFields)
	text += fmt.Sprintf("\nTime-length options: %d\n", len(dates.TimeLengthOptions))
	for _, item := range dates.TimeLengthOptions {
		text += fmt.Sprintf("p%d: %d days: %s @ %s\n", item.Page, item.Days, item.Text, item.BBox)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleCheckChanges(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	changes, err := s.tracker.CheckChanges()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(changes.String()), nil
}

func (s *Server) handleUpdate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.runner.Update(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatUpdate(result)), nil
}

func requireFolderFile(request mcp.CallToolRequest) (string, string, *mcp.CallToolResult) {
	folder, err := request.RequireString("folder")
	if err != nil {
		return "", "", mcp.NewToolResultError(err.Error())
	}
	file, err := request.RequireString("file")
	if err != nil {
		return "", "", mcp.NewToolResultError(err.Error())
	}
	return folder, file, nil
}

func formatFields(fields []manifest.FieldEntry) string {
	var b strings.Builder
	for _, f := range fields {
		b.WriteString(f.String())
		b.WriteString("\n")
	}
	return b.String()
}

func (s *Server) formatAnalysis(m *manifest.Manifest, manifestPath string) string {
	text := fmt.Sprintf("Analyzed %s/%s\n", m.Folder, m.File)
	text += fmt.Sprintf("Version: %s\n", m.Version)
	if m.PreviousVersion != "" {
		text += fmt.Sprintf("Previous version: %s\n", m.PreviousVersion)
	}
	text += fmt.Sprintf("Pages: %d\n", m.PageCount)
	text += fmt.Sprintf("Status: %s\n", m.Status)
	text += fmt.Sprintf("Manifest: %s\n", manifestPath)
	text += fmt.Sprintf("Form widgets: %d (%d filled, %d empty)\n",
		m.Summary.TotalFormWidgets, m.Summary.FilledWidgets, m.Summary.EmptyWidgets)
	text += fmt.Sprintf("Entry spaces: %d\n", m.Summary.TotalEntrySpaces)

	categories := make([]string, 0, len(m.Summary.EntryCategories))
	for c := range m.Summary.EntryCategories {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		text += fmt.Sprintf("  %s: %d\n", c, m.Summary.EntryCategories[c])
	}

	if len(m.TimeLengthReview) > 0 {
		text += fmt.Sprintf("Time-length items to review: %d\n", len(m.TimeLengthReview))
	}

	if len(m.Issues) > 0 {
		text += "\n⚠️  ISSUES:\n"
		for _, issue := range m.Issues {
			text += fmt.Sprintf("  - %s: %s\n", issue.Type, issue.Detail)
		}
	}
	return text
}

func (s *Server) formatUpdate(u *batch.UpdateReport) string {
	if len(u.Report.Results) == 0 {
		text := "All documents up to date. No re-analysis needed.\n"
		if len(u.Changes.Removed) > 0 {
			text += fmt.Sprintf("Removed (no longer present): %s\n", strings.Join(u.Changes.Removed, ", "))
		}
		return text
	}

	text := fmt.Sprintf("Re-analyzed %d changed/new documents\n", len(u.Report.Results))
	if u.Entry != nil {
		text += fmt.Sprintf("Run: %s at %s\n", u.Entry.RunID, u.Entry.Timestamp)
	}
	for _, res := range u.Report.Results {
		if res.Err != nil {
			text += fmt.Sprintf("  ✗ %s: %v\n", res.Key(), res.Err)
			continue
		}
		text += fmt.Sprintf("  ✓ %s (v%s, %s)\n", res.Key(), res.Manifest.Version, res.Manifest.Status)
	}
	if len(u.Changes.Removed) > 0 {
		text += fmt.Sprintf("Removed (no longer present): %s\n", strings.Join(u.Changes.Removed, ", "))
	}
	return text
}

// Run serves the tools over stdio until the client disconnects
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting entry mapper MCP server in stdio mode")
		log.Printf("Source directory: %s", s.config.SourceDir)
		log.Printf("Manifest directory: %s", s.config.ManifestDir)
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
